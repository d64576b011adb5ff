package snapshot

import (
	"context"
	"time"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"

	"github.com/younsl/snapkeeper/internal/models"
)

// PrunerOptions configures a Pruner
type PrunerOptions struct {
	Tags   map[string]string
	Owner  string
	Keep   int
	DryRun bool
}

// Pruner deletes all but the newest snapshots of every matching volume.
type Pruner struct {
	svc    Service
	opts   PrunerOptions
	logger *log.Entry
}

// NewPruner returns a Pruner. Owner defaults to DefaultOwner and a Keep below
// one to DefaultKeep.
func NewPruner(svc Service, opts PrunerOptions, logger *log.Entry) *Pruner {
	if opts.Owner == "" {
		opts.Owner = DefaultOwner
	}
	if opts.Keep < 1 {
		opts.Keep = DefaultKeep
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Pruner{
		svc:    svc,
		opts:   opts,
		logger: logger.WithField("job", "prune"),
	}
}

// Run applies the retention policy to every matching volume. Listing errors
// abort the run. Each delete is issued on its own: failed deletes are recorded
// in the report and returned together once every volume has been processed.
func (p *Pruner) Run(ctx context.Context) (*models.PruneReport, error) {
	report := &models.PruneReport{
		StartedAt: time.Now(),
		Keep:      p.opts.Keep,
		DryRun:    p.opts.DryRun,
	}

	plans, err := p.Plan(ctx)
	if err != nil {
		return report, err
	}

	var deleteErrs []error
	for _, plan := range plans {
		logger := p.logger.WithField("volume", plan.Volume.VolumeID)
		result := models.VolumePrune{Volume: plan.Volume, Kept: plan.Kept}

		for _, snap := range plan.Deleted {
			if p.opts.DryRun {
				logger.WithField("snapshot", snap.SnapshotID).Info("would delete snapshot")
				result.Deleted = append(result.Deleted, snap)
				continue
			}
			if err := p.svc.DeleteSnapshot(ctx, snap.SnapshotID); err != nil {
				logger.WithError(err).WithField("snapshot", snap.SnapshotID).Error("failed to delete snapshot")
				result.Failed = append(result.Failed, models.SnapshotFailure{Snapshot: snap, Error: err.Error()})
				deleteErrs = append(deleteErrs, errors.Wrapf(err, "deleting snapshot %s", snap.SnapshotID))
				continue
			}
			logger.WithField("snapshot", snap.SnapshotID).Info("snapshot deleted")
			result.Deleted = append(result.Deleted, snap)
		}

		report.Volumes = append(report.Volumes, result)
	}

	return report, errors.Combine(deleteErrs...)
}

// Plan lists every matching volume with the snapshots the retention policy
// keeps and deletes, without deleting anything.
func (p *Pruner) Plan(ctx context.Context) ([]models.VolumePrune, error) {
	volumes, err := p.svc.ListVolumes(ctx, models.VolumeFilter{Tags: p.opts.Tags})
	if err != nil {
		return nil, errors.Wrap(err, "listing volumes")
	}
	p.logger.WithField("volumes", len(volumes)).Debug("found matching volumes")

	plans := make([]models.VolumePrune, 0, len(volumes))
	for _, volume := range volumes {
		snapshots, err := p.svc.ListSnapshots(ctx, p.opts.Owner, models.SnapshotFilter{VolumeID: volume.VolumeID})
		if err != nil {
			return nil, errors.Wrapf(err, "listing snapshots of volume %s", volume.VolumeID)
		}
		kept, deleted := PlanRetention(snapshots, p.opts.Keep)
		p.logger.WithFields(log.Fields{
			"volume":    volume.VolumeID,
			"snapshots": len(snapshots),
			"keep":      len(kept),
			"delete":    len(deleted),
		}).Debug("retention planned")
		plans = append(plans, models.VolumePrune{Volume: volume, Kept: kept, Deleted: deleted})
	}
	return plans, nil
}
