package snapshot

import (
	"context"
	"time"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"

	"github.com/younsl/snapkeeper/internal/models"
)

// Creator takes one snapshot of every volume matching a tag filter.
type Creator struct {
	svc    Service
	tags   map[string]string
	logger *log.Entry
}

// NewCreator returns a Creator selecting volumes by the given tags.
func NewCreator(svc Service, tags map[string]string, logger *log.Entry) *Creator {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Creator{
		svc:    svc,
		tags:   tags,
		logger: logger.WithField("job", "create"),
	}
}

// Run snapshots every matching volume. The first API error aborts the run;
// snapshots created before the failure are still part of the report.
func (c *Creator) Run(ctx context.Context) (*models.CreateReport, error) {
	report := &models.CreateReport{StartedAt: time.Now()}

	volumes, err := c.svc.ListVolumes(ctx, models.VolumeFilter{Tags: c.tags})
	if err != nil {
		return report, errors.Wrap(err, "listing volumes")
	}
	report.Volumes = volumes
	c.logger.WithField("volumes", len(volumes)).Info("found matching volumes")

	for _, volume := range volumes {
		snap, err := c.svc.CreateSnapshot(ctx, volume.VolumeID)
		if err != nil {
			return report, errors.Wrapf(err, "creating snapshot of volume %s", volume.VolumeID)
		}
		c.logger.WithFields(log.Fields{
			"volume":   volume.VolumeID,
			"snapshot": snap.SnapshotID,
			"state":    snap.State,
		}).Info("snapshot created")
		report.Created = append(report.Created, snap)
	}

	return report, nil
}
