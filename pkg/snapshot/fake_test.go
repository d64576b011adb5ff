package snapshot

import (
	"context"
	"fmt"
	"io"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/younsl/snapkeeper/internal/models"
)

// fakeService is an in-memory Service that records the calls made against it.
type fakeService struct {
	mu sync.Mutex

	volumes   []models.Volume
	snapshots map[string][]models.Snapshot
	states    []models.VolumeState

	listVolumesErr   error
	listSnapshotsErr error
	// listSnapshotsErrFor limits listSnapshotsErr to one volume when set.
	listSnapshotsErrFor string
	createSnapErr       map[string]error
	deleteErr           map[string]error
	createVolumeErr     error
	stateErr            error
	blockState          bool
	attachErr           error

	created      []string
	deleted      []string
	polls        int
	createdFrom  string
	createdZone  string
	createdTags  map[string]string
	attached     []string
	lastFilter   models.VolumeFilter
	lastOwner    string
	nextSnapshot int
}

func newFakeService() *fakeService {
	return &fakeService{
		snapshots:     map[string][]models.Snapshot{},
		createSnapErr: map[string]error{},
		deleteErr:     map[string]error{},
	}
}

func (f *fakeService) ListVolumes(_ context.Context, filter models.VolumeFilter) ([]models.Volume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	if f.listVolumesErr != nil {
		return nil, f.listVolumesErr
	}
	var out []models.Volume
	for _, v := range f.volumes {
		if !matches(v, filter) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func matches(v models.Volume, filter models.VolumeFilter) bool {
	for k, want := range filter.Tags {
		if v.Tags[k] != want {
			return false
		}
	}
	if filter.InstanceID == "" {
		return true
	}
	for _, a := range v.Attachments {
		if a.InstanceID == filter.InstanceID {
			return true
		}
	}
	return false
}

func (f *fakeService) ListSnapshots(_ context.Context, owner string, filter models.SnapshotFilter) ([]models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastOwner = owner
	if f.listSnapshotsErr != nil && (f.listSnapshotsErrFor == "" || f.listSnapshotsErrFor == filter.VolumeID) {
		return nil, f.listSnapshotsErr
	}
	return append([]models.Snapshot(nil), f.snapshots[filter.VolumeID]...), nil
}

func (f *fakeService) CreateSnapshot(_ context.Context, volumeID string) (models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.createSnapErr[volumeID]; err != nil {
		return models.Snapshot{}, err
	}
	f.nextSnapshot++
	f.created = append(f.created, volumeID)
	return models.Snapshot{
		SnapshotID: fmt.Sprintf("snap-%d", f.nextSnapshot),
		VolumeID:   volumeID,
		State:      "pending",
	}, nil
}

func (f *fakeService) DeleteSnapshot(_ context.Context, snapshotID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[snapshotID]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, snapshotID)
	return nil
}

func (f *fakeService) CreateVolume(_ context.Context, snapshotID, zone string, tags map[string]string) (models.Volume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createVolumeErr != nil {
		return models.Volume{}, f.createVolumeErr
	}
	f.createdFrom = snapshotID
	f.createdZone = zone
	f.createdTags = tags
	return models.Volume{
		VolumeID:         "vol-restored",
		AvailabilityZone: zone,
		Tags:             tags,
		State:            models.VolumeStateCreating,
	}, nil
}

// GetVolumeState walks through states, repeating the last one forever. With
// blockState set it hangs until ctx is done, like a slow API call.
func (f *fakeService) GetVolumeState(ctx context.Context, _ string) (models.VolumeState, error) {
	f.mu.Lock()
	block := f.blockState
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		f.mu.Lock()
		f.polls++
		f.mu.Unlock()
		return "", ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.stateErr != nil {
		return "", f.stateErr
	}
	if len(f.states) == 0 {
		return models.VolumeStateAvailable, nil
	}
	idx := min(f.polls-1, len(f.states)-1)
	return f.states[idx], nil
}

func (f *fakeService) AttachVolume(_ context.Context, volumeID, instanceID, device string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attachErr != nil {
		return f.attachErr
	}
	f.attached = append(f.attached, volumeID+"@"+instanceID+":"+device)
	return nil
}

func quietLogger() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return log.NewEntry(logger)
}
