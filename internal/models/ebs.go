package models

import "time"

// VolumeState is the lifecycle state of an EBS volume
type VolumeState string

const (
	VolumeStateCreating  VolumeState = "creating"
	VolumeStateAvailable VolumeState = "available"
	VolumeStateInUse     VolumeState = "in-use"
	VolumeStateDeleting  VolumeState = "deleting"
	VolumeStateDeleted   VolumeState = "deleted"
	VolumeStateError     VolumeState = "error"
)

// Attachment represents a volume attached to an instance
type Attachment struct {
	InstanceID string `json:"instanceId"`
	Device     string `json:"device"`
}

// Volume represents EBS volume information
type Volume struct {
	VolumeID         string            `json:"volumeId"`
	Name             string            `json:"name,omitempty"`
	Tags             map[string]string `json:"tags,omitempty"`
	Size             int               `json:"size"`
	State            VolumeState       `json:"state"`
	AvailabilityZone string            `json:"availabilityZone"`
	CreationTime     time.Time         `json:"creationTime"`
	Attachments      []Attachment      `json:"attachments,omitempty"`
}

// VolumeFilter selects volumes. Every tag must match and, when InstanceID is
// set, the volume must be attached to that instance.
type VolumeFilter struct {
	Tags       map[string]string
	InstanceID string
}
