package models

import "time"

// Snapshot represents EBS snapshot information
type Snapshot struct {
	SnapshotID  string    `json:"snapshotId"`
	VolumeID    string    `json:"volumeId"`
	OwnerID     string    `json:"ownerId,omitempty"`
	State       string    `json:"state,omitempty"`
	Description string    `json:"description,omitempty"`
	Size        int       `json:"size"`
	StartTime   time.Time `json:"startTime"`
}

// SnapshotFilter selects the snapshots taken from a single volume
type SnapshotFilter struct {
	VolumeID string
}
