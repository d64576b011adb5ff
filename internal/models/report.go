package models

import "time"

// CreateReport lists the snapshots created by one creator run
type CreateReport struct {
	Region    string     `json:"region,omitempty"`
	StartedAt time.Time  `json:"startedAt"`
	Volumes   []Volume   `json:"volumes"`
	Created   []Snapshot `json:"created"`
}

// SnapshotFailure records a snapshot whose deletion failed
type SnapshotFailure struct {
	Snapshot Snapshot `json:"snapshot"`
	Error    string   `json:"error"`
}

// VolumePrune is the retention outcome for a single volume
type VolumePrune struct {
	Volume  Volume            `json:"volume"`
	Kept    []Snapshot        `json:"kept"`
	Deleted []Snapshot        `json:"deleted"`
	Failed  []SnapshotFailure `json:"failed,omitempty"`
}

// PruneReport lists the retention outcome of one pruner run
type PruneReport struct {
	Region    string        `json:"region,omitempty"`
	StartedAt time.Time     `json:"startedAt"`
	Keep      int           `json:"keep"`
	DryRun    bool          `json:"dryRun"`
	Volumes   []VolumePrune `json:"volumes"`
}

// DeletedCount returns the number of snapshots deleted (or planned for deletion
// in a dry run) across all volumes
func (r PruneReport) DeletedCount() int {
	n := 0
	for _, v := range r.Volumes {
		n += len(v.Deleted)
	}
	return n
}

// RestoreReport describes a completed or partially completed restore
type RestoreReport struct {
	Region       string        `json:"region,omitempty"`
	InstanceID   string        `json:"instanceId"`
	Device       string        `json:"device"`
	SourceVolume Volume        `json:"sourceVolume"`
	Snapshot     Snapshot      `json:"snapshot"`
	NewVolume    Volume        `json:"newVolume"`
	Attached     bool          `json:"attached"`
	Polls        int           `json:"polls"`
	Elapsed      time.Duration `json:"elapsed"`
}
