package aws

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/younsl/snapkeeper/internal/models"
)

type fakeEC2 struct {
	volumePages   []*ec2.DescribeVolumesOutput
	snapshotPages []*ec2.DescribeSnapshotsOutput
	err           error

	describeVolumes   []*ec2.DescribeVolumesInput
	describeSnapshots []*ec2.DescribeSnapshotsInput
	createSnapshot    *ec2.CreateSnapshotInput
	deleteSnapshot    *ec2.DeleteSnapshotInput
	createVolume      *ec2.CreateVolumeInput
	attachVolume      *ec2.AttachVolumeInput
}

func (f *fakeEC2) DescribeVolumes(_ context.Context, params *ec2.DescribeVolumesInput, _ ...func(*ec2.Options)) (*ec2.DescribeVolumesOutput, error) {
	f.describeVolumes = append(f.describeVolumes, params)
	if f.err != nil {
		return nil, f.err
	}
	idx := len(f.describeVolumes) - 1
	if idx >= len(f.volumePages) {
		return &ec2.DescribeVolumesOutput{}, nil
	}
	return f.volumePages[idx], nil
}

func (f *fakeEC2) DescribeSnapshots(_ context.Context, params *ec2.DescribeSnapshotsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSnapshotsOutput, error) {
	f.describeSnapshots = append(f.describeSnapshots, params)
	if f.err != nil {
		return nil, f.err
	}
	idx := len(f.describeSnapshots) - 1
	if idx >= len(f.snapshotPages) {
		return &ec2.DescribeSnapshotsOutput{}, nil
	}
	return f.snapshotPages[idx], nil
}

func (f *fakeEC2) CreateSnapshot(_ context.Context, params *ec2.CreateSnapshotInput, _ ...func(*ec2.Options)) (*ec2.CreateSnapshotOutput, error) {
	f.createSnapshot = params
	if f.err != nil {
		return nil, f.err
	}
	return &ec2.CreateSnapshotOutput{
		SnapshotId:  aws.String("snap-new"),
		VolumeId:    params.VolumeId,
		OwnerId:     aws.String("123456789012"),
		State:       types.SnapshotStatePending,
		Description: params.Description,
		VolumeSize:  aws.Int32(8),
	}, nil
}

func (f *fakeEC2) DeleteSnapshot(_ context.Context, params *ec2.DeleteSnapshotInput, _ ...func(*ec2.Options)) (*ec2.DeleteSnapshotOutput, error) {
	f.deleteSnapshot = params
	if f.err != nil {
		return nil, f.err
	}
	return &ec2.DeleteSnapshotOutput{}, nil
}

func (f *fakeEC2) CreateVolume(_ context.Context, params *ec2.CreateVolumeInput, _ ...func(*ec2.Options)) (*ec2.CreateVolumeOutput, error) {
	f.createVolume = params
	if f.err != nil {
		return nil, f.err
	}
	var tags []types.Tag
	for _, ts := range params.TagSpecifications {
		tags = append(tags, ts.Tags...)
	}
	return &ec2.CreateVolumeOutput{
		VolumeId:         aws.String("vol-new"),
		AvailabilityZone: params.AvailabilityZone,
		SnapshotId:       params.SnapshotId,
		State:            types.VolumeStateCreating,
		Size:             aws.Int32(8),
		Tags:             tags,
	}, nil
}

func (f *fakeEC2) AttachVolume(_ context.Context, params *ec2.AttachVolumeInput, _ ...func(*ec2.Options)) (*ec2.AttachVolumeOutput, error) {
	f.attachVolume = params
	if f.err != nil {
		return nil, f.err
	}
	return &ec2.AttachVolumeOutput{State: types.VolumeAttachmentStateAttaching}, nil
}

func newTestClient(api *fakeEC2) *EBSClient {
	return &EBSClient{client: api, region: "us-east-1", description: DefaultSnapshotDescription}
}

func filterValues(filters []types.Filter) map[string][]string {
	out := map[string][]string{}
	for _, f := range filters {
		out[aws.ToString(f.Name)] = f.Values
	}
	return out
}

func TestListVolumesFiltersAndPaginates(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	api := &fakeEC2{volumePages: []*ec2.DescribeVolumesOutput{
		{
			Volumes: []types.Volume{{
				VolumeId:         aws.String("vol-1"),
				AvailabilityZone: aws.String("us-east-1b"),
				State:            types.VolumeStateInUse,
				Size:             aws.Int32(100),
				CreateTime:       aws.Time(created),
				Tags:             []types.Tag{{Key: aws.String("Name"), Value: aws.String("prod")}},
				Attachments: []types.VolumeAttachment{{
					InstanceId: aws.String("i-1"),
					Device:     aws.String("/dev/xvda"),
				}},
			}},
			NextToken: aws.String("page-2"),
		},
		{
			Volumes: []types.Volume{{VolumeId: aws.String("vol-2"), State: types.VolumeStateAvailable}},
		},
	}}

	volumes, err := newTestClient(api).ListVolumes(context.Background(), models.VolumeFilter{
		Tags:       map[string]string{"Name": "prod", "Env": "live"},
		InstanceID: "i-1",
	})

	require.NoError(t, err)
	require.Len(t, volumes, 2)
	assert.Equal(t, models.Volume{
		VolumeID:         "vol-1",
		Name:             "prod",
		Tags:             map[string]string{"Name": "prod"},
		Size:             100,
		State:            models.VolumeStateInUse,
		AvailabilityZone: "us-east-1b",
		CreationTime:     created,
		Attachments:      []models.Attachment{{InstanceID: "i-1", Device: "/dev/xvda"}},
	}, volumes[0])
	assert.Equal(t, "vol-2", volumes[1].VolumeID)

	require.Len(t, api.describeVolumes, 2)
	assert.Equal(t, "page-2", aws.ToString(api.describeVolumes[1].NextToken))
	filters := api.describeVolumes[0].Filters
	assert.Equal(t, "tag:Env", aws.ToString(filters[0].Name), "tag filters are sorted by key")
	assert.Equal(t, map[string][]string{
		"tag:Env":                {"live"},
		"tag:Name":               {"prod"},
		"attachment.instance-id": {"i-1"},
	}, filterValues(filters))
}

func TestListSnapshotsOwnerAndVolumeFilter(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	api := &fakeEC2{snapshotPages: []*ec2.DescribeSnapshotsOutput{{
		Snapshots: []types.Snapshot{{
			SnapshotId: aws.String("snap-1"),
			VolumeId:   aws.String("vol-1"),
			OwnerId:    aws.String("123456789012"),
			State:      types.SnapshotStateCompleted,
			VolumeSize: aws.Int32(100),
			StartTime:  aws.Time(start),
		}},
	}}}

	snapshots, err := newTestClient(api).ListSnapshots(context.Background(), "self", models.SnapshotFilter{VolumeID: "vol-1"})

	require.NoError(t, err)
	assert.Equal(t, []models.Snapshot{{
		SnapshotID: "snap-1",
		VolumeID:   "vol-1",
		OwnerID:    "123456789012",
		State:      "completed",
		Size:       100,
		StartTime:  start,
	}}, snapshots)
	assert.Equal(t, []string{"self"}, api.describeSnapshots[0].OwnerIds)
	assert.Equal(t, map[string][]string{"volume-id": {"vol-1"}}, filterValues(api.describeSnapshots[0].Filters))
}

func TestCreateSnapshotSetsDescription(t *testing.T) {
	api := &fakeEC2{}

	snap, err := newTestClient(api).CreateSnapshot(context.Background(), "vol-1")

	require.NoError(t, err)
	assert.Equal(t, "vol-1", aws.ToString(api.createSnapshot.VolumeId))
	assert.Equal(t, DefaultSnapshotDescription, aws.ToString(api.createSnapshot.Description))
	assert.Equal(t, "snap-new", snap.SnapshotID)
	assert.Equal(t, "pending", snap.State)
}

func TestDeleteSnapshot(t *testing.T) {
	api := &fakeEC2{}

	require.NoError(t, newTestClient(api).DeleteSnapshot(context.Background(), "snap-old"))
	assert.Equal(t, "snap-old", aws.ToString(api.deleteSnapshot.SnapshotId))
}

func TestCreateVolumeTagsAndZone(t *testing.T) {
	api := &fakeEC2{}

	volume, err := newTestClient(api).CreateVolume(context.Background(), "snap-1", "us-east-1b", map[string]string{"Name": "prod"})

	require.NoError(t, err)
	assert.Equal(t, "snap-1", aws.ToString(api.createVolume.SnapshotId))
	assert.Equal(t, "us-east-1b", aws.ToString(api.createVolume.AvailabilityZone))
	require.Len(t, api.createVolume.TagSpecifications, 1)
	assert.Equal(t, types.ResourceTypeVolume, api.createVolume.TagSpecifications[0].ResourceType)
	assert.Equal(t, "vol-new", volume.VolumeID)
	assert.Equal(t, "prod", volume.Name)
	assert.Equal(t, models.VolumeStateCreating, volume.State)
}

func TestGetVolumeState(t *testing.T) {
	api := &fakeEC2{volumePages: []*ec2.DescribeVolumesOutput{{
		Volumes: []types.Volume{{VolumeId: aws.String("vol-1"), State: types.VolumeStateAvailable}},
	}}}

	state, err := newTestClient(api).GetVolumeState(context.Background(), "vol-1")

	require.NoError(t, err)
	assert.Equal(t, models.VolumeStateAvailable, state)
	assert.Equal(t, []string{"vol-1"}, api.describeVolumes[0].VolumeIds)
}

func TestGetVolumeStateNotFound(t *testing.T) {
	_, err := newTestClient(&fakeEC2{}).GetVolumeState(context.Background(), "vol-gone")

	assert.ErrorContains(t, err, "vol-gone not found")
}

func TestAttachVolume(t *testing.T) {
	api := &fakeEC2{}

	require.NoError(t, newTestClient(api).AttachVolume(context.Background(), "vol-1", "i-1", "/dev/xvdb"))
	assert.Equal(t, "vol-1", aws.ToString(api.attachVolume.VolumeId))
	assert.Equal(t, "i-1", aws.ToString(api.attachVolume.InstanceId))
	assert.Equal(t, "/dev/xvdb", aws.ToString(api.attachVolume.Device))
}

func TestErrorsAreWrapped(t *testing.T) {
	boom := errors.New("UnauthorizedOperation")
	client := newTestClient(&fakeEC2{err: boom})

	_, err := client.ListVolumes(context.Background(), models.VolumeFilter{})
	assert.ErrorIs(t, err, boom)

	err = client.DeleteSnapshot(context.Background(), "snap-1")
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "snap-1")
}

func TestNewEBSClientFromConfig(t *testing.T) {
	client := NewEBSClientFromConfig(aws.Config{Region: "eu-central-2"})

	assert.Equal(t, "eu-central-2", client.Region())
	assert.Equal(t, DefaultSnapshotDescription, client.description)
}
