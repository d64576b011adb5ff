package snapshot

import (
	"context"
	"time"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/younsl/snapkeeper/internal/models"
)

const (
	DefaultDevice         = "/dev/xvdb"
	DefaultRestoreTimeout = 10 * time.Minute
	DefaultPollInterval   = 2 * time.Second
	DefaultPollFactor     = 2.0
	DefaultPollSteps      = 64
	DefaultPollCap        = time.Minute
)

// RestorerOptions configures a Restorer
type RestorerOptions struct {
	InstanceID string
	// Zone the new volume is created in. Empty means the source volume's zone.
	Zone   string
	Device string
	Owner  string
	// Tags applied to the new volume. Empty means the source volume's tags;
	// the CLI passes the configured restore tags or the tag filter.
	Tags    map[string]string
	Timeout time.Duration
	Backoff wait.Backoff
	// OnPoll is called after every state poll of the new volume.
	OnPoll func(volumeID string, state models.VolumeState)
}

// DefaultBackoff is the poll schedule used while waiting for a restored volume
func DefaultBackoff() wait.Backoff {
	return wait.Backoff{
		Duration: DefaultPollInterval,
		Factor:   DefaultPollFactor,
		Jitter:   0.1,
		Steps:    DefaultPollSteps,
		Cap:      DefaultPollCap,
	}
}

// Restorer recreates the volume attached to an instance from its latest
// snapshot and attaches the new volume to the same instance.
type Restorer struct {
	svc    Service
	opts   RestorerOptions
	logger *log.Entry
}

// NewRestorer returns a Restorer, filling in defaults for unset options.
func NewRestorer(svc Service, opts RestorerOptions, logger *log.Entry) *Restorer {
	if opts.Device == "" {
		opts.Device = DefaultDevice
	}
	if opts.Owner == "" {
		opts.Owner = DefaultOwner
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRestoreTimeout
	}
	if opts.Backoff.Steps <= 0 {
		opts.Backoff = DefaultBackoff()
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Restorer{
		svc:    svc,
		opts:   opts,
		logger: logger.WithFields(log.Fields{"job": "restore", "instance": opts.InstanceID}),
	}
}

// Run performs the restore. The created volume is not deleted when a later
// step fails; the returned report names it so it can be cleaned up.
func (r *Restorer) Run(ctx context.Context) (*models.RestoreReport, error) {
	start := time.Now()
	report := &models.RestoreReport{
		InstanceID: r.opts.InstanceID,
		Device:     r.opts.Device,
	}
	defer func() { report.Elapsed = time.Since(start) }()

	source, err := r.attachedVolume(ctx)
	if err != nil {
		return report, err
	}
	report.SourceVolume = source

	snapshots, err := r.svc.ListSnapshots(ctx, r.opts.Owner, models.SnapshotFilter{VolumeID: source.VolumeID})
	if err != nil {
		return report, errors.Wrapf(err, "listing snapshots of volume %s", source.VolumeID)
	}
	latest, ok := Latest(snapshots)
	if !ok {
		return report, errors.Wrapf(ErrNoSnapshots, "volume %s", source.VolumeID)
	}
	report.Snapshot = latest
	r.logger.WithFields(log.Fields{
		"volume":    source.VolumeID,
		"snapshot":  latest.SnapshotID,
		"startTime": latest.StartTime,
	}).Info("restoring from latest snapshot")

	zone := r.opts.Zone
	if zone == "" {
		zone = source.AvailabilityZone
	}
	tags := r.opts.Tags
	if len(tags) == 0 {
		tags = source.Tags
	}

	created, err := r.svc.CreateVolume(ctx, latest.SnapshotID, zone, tags)
	if err != nil {
		return report, errors.Wrapf(err, "creating volume from snapshot %s", latest.SnapshotID)
	}
	report.NewVolume = created
	r.logger.WithFields(log.Fields{"volume": created.VolumeID, "zone": zone}).Info("volume created")

	polls, err := r.waitAvailable(ctx, created)
	report.Polls = polls
	if err != nil {
		return report, err
	}
	report.NewVolume.State = models.VolumeStateAvailable

	if err := r.svc.AttachVolume(ctx, created.VolumeID, r.opts.InstanceID, r.opts.Device); err != nil {
		return report, errors.Wrapf(err, "attaching volume %s to %s at %s", created.VolumeID, r.opts.InstanceID, r.opts.Device)
	}
	report.Attached = true
	r.logger.WithFields(log.Fields{"volume": created.VolumeID, "device": r.opts.Device}).Info("volume attached")

	return report, nil
}

func (r *Restorer) attachedVolume(ctx context.Context) (models.Volume, error) {
	volumes, err := r.svc.ListVolumes(ctx, models.VolumeFilter{InstanceID: r.opts.InstanceID})
	if err != nil {
		return models.Volume{}, errors.Wrapf(err, "listing volumes attached to %s", r.opts.InstanceID)
	}
	switch len(volumes) {
	case 0:
		return models.Volume{}, errors.Wrapf(ErrNoAttachedVolume, "instance %s", r.opts.InstanceID)
	case 1:
		return volumes[0], nil
	default:
		ids := make([]string, 0, len(volumes))
		for _, v := range volumes {
			ids = append(ids, v.VolumeID)
		}
		return models.Volume{}, errors.Wrapf(ErrMultipleAttachedVolumes, "instance %s has %v", r.opts.InstanceID, ids)
	}
}

// errPollsExhausted stops the poll loop once every backoff step has been used.
var errPollsExhausted = errors.New("poll steps exhausted")

// waitAvailable polls the volume state until it is available, the backoff
// steps run out or the timeout expires. It returns the number of polls made.
// The delay between polls grows by the backoff factor up to its cap and then
// stays there. A poll cut short by the timeout counts as the timeout, not as
// a poll error.
func (r *Restorer) waitAvailable(ctx context.Context, volume models.Volume) (int, error) {
	pollCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	volumeID := volume.VolumeID
	var (
		polls   int
		last    = volume.State
		pollErr error
	)
	err := r.opts.Backoff.DelayFunc().Until(pollCtx, true, true, func(ctx context.Context) (bool, error) {
		state, err := r.svc.GetVolumeState(ctx, volumeID)
		polls++
		if err != nil {
			pollErr = err
			return false, err
		}
		last = state
		r.logger.WithFields(log.Fields{"volume": volumeID, "state": state, "poll": polls}).Debug("polled volume state")
		if r.opts.OnPoll != nil {
			r.opts.OnPoll(volumeID, state)
		}
		if state == models.VolumeStateAvailable {
			return true, nil
		}
		if polls >= r.opts.Backoff.Steps {
			return false, errPollsExhausted
		}
		return false, nil
	})
	switch {
	case err == nil:
		return polls, nil
	case ctx.Err() != nil:
		return polls, errors.Wrapf(ctx.Err(), "waiting for volume %s", volumeID)
	case pollCtx.Err() != nil:
		return polls, errors.Wrapf(ErrVolumeNotAvailable, "volume %s still %q after %s", volumeID, last, r.opts.Timeout)
	case pollErr != nil:
		return polls, errors.Wrapf(pollErr, "getting state of volume %s", volumeID)
	default:
		return polls, errors.Wrapf(ErrVolumeNotAvailable, "volume %s still %q after %d polls", volumeID, last, polls)
	}
}
