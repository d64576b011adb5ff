package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/younsl/snapkeeper/internal/models"
	"github.com/younsl/snapkeeper/pkg/utils"
)

// DefaultSnapshotDescription is set on every snapshot created by EBSClient
const DefaultSnapshotDescription = "Created by snapkeeper"

// ec2API is the subset of the EC2 API used by EBSClient
type ec2API interface {
	ec2.DescribeVolumesAPIClient
	ec2.DescribeSnapshotsAPIClient
	CreateSnapshot(ctx context.Context, params *ec2.CreateSnapshotInput, optFns ...func(*ec2.Options)) (*ec2.CreateSnapshotOutput, error)
	DeleteSnapshot(ctx context.Context, params *ec2.DeleteSnapshotInput, optFns ...func(*ec2.Options)) (*ec2.DeleteSnapshotOutput, error)
	CreateVolume(ctx context.Context, params *ec2.CreateVolumeInput, optFns ...func(*ec2.Options)) (*ec2.CreateVolumeOutput, error)
	AttachVolume(ctx context.Context, params *ec2.AttachVolumeInput, optFns ...func(*ec2.Options)) (*ec2.AttachVolumeOutput, error)
}

// EBSClient struct for EBS volume and snapshot operations
type EBSClient struct {
	client      ec2API
	region      string
	description string
}

// LoadConfig loads the default AWS config for a region
func LoadConfig(ctx context.Context, region string) (aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithRetryMode(aws.RetryModeStandard),
		config.WithEC2IMDSClientEnableState(imds.ClientEnabled),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("error loading AWS config: %w", err)
	}
	return cfg, nil
}

// NewEBSClient creates a new EBSClient
func NewEBSClient(ctx context.Context, region string) (*EBSClient, error) {
	cfg, err := LoadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return NewEBSClientFromConfig(cfg), nil
}

// NewEBSClientFromConfig creates a new EBSClient from an existing AWS config
func NewEBSClientFromConfig(cfg aws.Config) *EBSClient {
	return &EBSClient{
		client:      ec2.NewFromConfig(cfg),
		region:      cfg.Region,
		description: DefaultSnapshotDescription,
	}
}

// Region returns the region the client talks to
func (c *EBSClient) Region() string {
	return c.region
}

// SetSnapshotDescription sets the description of created snapshots
func (c *EBSClient) SetSnapshotDescription(description string) {
	c.description = description
}

// ListVolumes returns every volume matching the filter
func (c *EBSClient) ListVolumes(ctx context.Context, filter models.VolumeFilter) ([]models.Volume, error) {
	input := &ec2.DescribeVolumesInput{
		Filters: volumeFilters(filter),
	}

	volumes := []models.Volume{}
	paginator := ec2.NewDescribeVolumesPaginator(c.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error querying EBS volumes: %w", err)
		}
		for _, volume := range page.Volumes {
			volumes = append(volumes, toVolume(volume))
		}
	}

	return volumes, nil
}

// ListSnapshots returns the snapshots owned by owner matching the filter
func (c *EBSClient) ListSnapshots(ctx context.Context, owner string, filter models.SnapshotFilter) ([]models.Snapshot, error) {
	input := &ec2.DescribeSnapshotsInput{
		OwnerIds: []string{owner},
	}
	if filter.VolumeID != "" {
		input.Filters = []types.Filter{{
			Name:   aws.String("volume-id"),
			Values: []string{filter.VolumeID},
		}}
	}

	snapshots := []models.Snapshot{}
	paginator := ec2.NewDescribeSnapshotsPaginator(c.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error querying EBS snapshots: %w", err)
		}
		for _, snapshot := range page.Snapshots {
			snapshots = append(snapshots, models.Snapshot{
				SnapshotID:  aws.ToString(snapshot.SnapshotId),
				VolumeID:    aws.ToString(snapshot.VolumeId),
				OwnerID:     aws.ToString(snapshot.OwnerId),
				State:       string(snapshot.State),
				Description: aws.ToString(snapshot.Description),
				Size:        int(aws.ToInt32(snapshot.VolumeSize)),
				StartTime:   aws.ToTime(snapshot.StartTime),
			})
		}
	}

	return snapshots, nil
}

// CreateSnapshot starts a snapshot of a volume
func (c *EBSClient) CreateSnapshot(ctx context.Context, volumeID string) (models.Snapshot, error) {
	input := &ec2.CreateSnapshotInput{
		VolumeId: aws.String(volumeID),
	}
	if c.description != "" {
		input.Description = aws.String(c.description)
	}

	result, err := c.client.CreateSnapshot(ctx, input)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("error creating snapshot of %s: %w", volumeID, err)
	}

	return models.Snapshot{
		SnapshotID:  aws.ToString(result.SnapshotId),
		VolumeID:    aws.ToString(result.VolumeId),
		OwnerID:     aws.ToString(result.OwnerId),
		State:       string(result.State),
		Description: aws.ToString(result.Description),
		Size:        int(aws.ToInt32(result.VolumeSize)),
		StartTime:   aws.ToTime(result.StartTime),
	}, nil
}

// DeleteSnapshot deletes a snapshot
func (c *EBSClient) DeleteSnapshot(ctx context.Context, snapshotID string) error {
	_, err := c.client.DeleteSnapshot(ctx, &ec2.DeleteSnapshotInput{
		SnapshotId: aws.String(snapshotID),
	})
	if err != nil {
		return fmt.Errorf("error deleting snapshot %s: %w", snapshotID, err)
	}
	return nil
}

// CreateVolume creates a volume from a snapshot in the given availability zone
func (c *EBSClient) CreateVolume(ctx context.Context, snapshotID, zone string, tags map[string]string) (models.Volume, error) {
	input := &ec2.CreateVolumeInput{
		SnapshotId:       aws.String(snapshotID),
		AvailabilityZone: aws.String(zone),
	}
	if len(tags) > 0 {
		input.TagSpecifications = []types.TagSpecification{{
			ResourceType: types.ResourceTypeVolume,
			Tags:         utils.ConvertToEC2Tags(tags),
		}}
	}

	result, err := c.client.CreateVolume(ctx, input)
	if err != nil {
		return models.Volume{}, fmt.Errorf("error creating volume from %s: %w", snapshotID, err)
	}

	return models.Volume{
		VolumeID:         aws.ToString(result.VolumeId),
		Name:             utils.GetName(result.Tags),
		Tags:             utils.GetTagsMap(result.Tags),
		Size:             int(aws.ToInt32(result.Size)),
		State:            models.VolumeState(result.State),
		AvailabilityZone: aws.ToString(result.AvailabilityZone),
		CreationTime:     aws.ToTime(result.CreateTime),
	}, nil
}

// GetVolumeState returns the current lifecycle state of a volume
func (c *EBSClient) GetVolumeState(ctx context.Context, volumeID string) (models.VolumeState, error) {
	result, err := c.client.DescribeVolumes(ctx, &ec2.DescribeVolumesInput{
		VolumeIds: []string{volumeID},
	})
	if err != nil {
		return "", fmt.Errorf("error querying volume %s: %w", volumeID, err)
	}
	if len(result.Volumes) != 1 {
		return "", fmt.Errorf("volume %s not found", volumeID)
	}
	return models.VolumeState(result.Volumes[0].State), nil
}

// AttachVolume attaches a volume to an instance at the given device
func (c *EBSClient) AttachVolume(ctx context.Context, volumeID, instanceID, device string) error {
	_, err := c.client.AttachVolume(ctx, &ec2.AttachVolumeInput{
		VolumeId:   aws.String(volumeID),
		InstanceId: aws.String(instanceID),
		Device:     aws.String(device),
	})
	if err != nil {
		return fmt.Errorf("error attaching volume %s to %s: %w", volumeID, instanceID, err)
	}
	return nil
}

// volumeFilters translates a VolumeFilter into EC2 filters. Tag keys are
// sorted so the request is deterministic.
func volumeFilters(filter models.VolumeFilter) []types.Filter {
	var filters []types.Filter
	for _, key := range utils.SortedKeys(filter.Tags) {
		filters = append(filters, types.Filter{
			Name:   aws.String("tag:" + key),
			Values: []string{filter.Tags[key]},
		})
	}
	if filter.InstanceID != "" {
		filters = append(filters, types.Filter{
			Name:   aws.String("attachment.instance-id"),
			Values: []string{filter.InstanceID},
		})
	}
	return filters
}

func toVolume(volume types.Volume) models.Volume {
	var attachments []models.Attachment
	for _, attachment := range volume.Attachments {
		attachments = append(attachments, models.Attachment{
			InstanceID: aws.ToString(attachment.InstanceId),
			Device:     aws.ToString(attachment.Device),
		})
	}

	return models.Volume{
		VolumeID:         aws.ToString(volume.VolumeId),
		Name:             utils.GetName(volume.Tags),
		Tags:             utils.GetTagsMap(volume.Tags),
		Size:             int(aws.ToInt32(volume.Size)),
		State:            models.VolumeState(volume.State),
		AvailabilityZone: aws.ToString(volume.AvailabilityZone),
		CreationTime:     aws.ToTime(volume.CreateTime),
		Attachments:      attachments,
	}
}
