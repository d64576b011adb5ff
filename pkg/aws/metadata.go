package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
)

// InstanceIdentity is the identity of the EC2 instance the tool runs on
type InstanceIdentity struct {
	InstanceID       string
	Region           string
	AvailabilityZone string
}

type identityAPI interface {
	GetInstanceIdentityDocument(ctx context.Context, params *imds.GetInstanceIdentityDocumentInput, optFns ...func(*imds.Options)) (*imds.GetInstanceIdentityDocumentOutput, error)
}

// GetInstanceIdentity reads the local instance identity from the EC2 instance
// metadata service
func GetInstanceIdentity(ctx context.Context, cfg aws.Config) (InstanceIdentity, error) {
	return getInstanceIdentity(ctx, imds.NewFromConfig(cfg))
}

func getInstanceIdentity(ctx context.Context, client identityAPI) (InstanceIdentity, error) {
	result, err := client.GetInstanceIdentityDocument(ctx, &imds.GetInstanceIdentityDocumentInput{})
	if err != nil {
		return InstanceIdentity{}, fmt.Errorf("error reading instance identity (not running on EC2?): %w", err)
	}
	return InstanceIdentity{
		InstanceID:       result.InstanceID,
		Region:           result.Region,
		AvailabilityZone: result.AvailabilityZone,
	}, nil
}
