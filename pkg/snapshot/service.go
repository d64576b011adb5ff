// Package snapshot implements EBS snapshot lifecycle jobs: periodic snapshot
// creation, retention pruning and restoring an instance volume from its most
// recent snapshot. Every job talks to the cloud through a Service handle
// supplied by the caller.
package snapshot

import (
	"context"

	"emperror.dev/errors"
	"github.com/younsl/snapkeeper/internal/models"
)

// DefaultOwner selects snapshots owned by the calling account
const DefaultOwner = "self"

var (
	// ErrNoAttachedVolume is returned when the restore target has no volume attached.
	ErrNoAttachedVolume = errors.New("no volume attached to instance")
	// ErrMultipleAttachedVolumes is returned when the restore target has more than one volume attached.
	ErrMultipleAttachedVolumes = errors.New("multiple volumes attached to instance")
	// ErrNoSnapshots is returned when a volume has no owned snapshots to restore from.
	ErrNoSnapshots = errors.New("no snapshots found for volume")
	// ErrVolumeNotAvailable is returned when a restored volume does not become available in time.
	ErrVolumeNotAvailable = errors.New("volume did not become available")
)

// Service is the cloud volume/snapshot API used by the jobs.
type Service interface {
	ListVolumes(ctx context.Context, filter models.VolumeFilter) ([]models.Volume, error)
	ListSnapshots(ctx context.Context, owner string, filter models.SnapshotFilter) ([]models.Snapshot, error)
	CreateSnapshot(ctx context.Context, volumeID string) (models.Snapshot, error)
	DeleteSnapshot(ctx context.Context, snapshotID string) error
	CreateVolume(ctx context.Context, snapshotID, zone string, tags map[string]string) (models.Volume, error)
	GetVolumeState(ctx context.Context, volumeID string) (models.VolumeState, error)
	AttachVolume(ctx context.Context, volumeID, instanceID, device string) error
}
