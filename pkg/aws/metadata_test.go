package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdentity struct {
	doc imds.InstanceIdentityDocument
	err error
}

func (f fakeIdentity) GetInstanceIdentityDocument(context.Context, *imds.GetInstanceIdentityDocumentInput, ...func(*imds.Options)) (*imds.GetInstanceIdentityDocumentOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &imds.GetInstanceIdentityDocumentOutput{InstanceIdentityDocument: f.doc}, nil
}

func TestGetInstanceIdentity(t *testing.T) {
	identity, err := getInstanceIdentity(context.Background(), fakeIdentity{doc: imds.InstanceIdentityDocument{
		InstanceID:       "i-06cfc27313775bbb6",
		Region:           "us-east-1",
		AvailabilityZone: "us-east-1b",
	}})

	require.NoError(t, err)
	assert.Equal(t, InstanceIdentity{
		InstanceID:       "i-06cfc27313775bbb6",
		Region:           "us-east-1",
		AvailabilityZone: "us-east-1b",
	}, identity)
}

func TestGetInstanceIdentityError(t *testing.T) {
	_, err := getInstanceIdentity(context.Background(), fakeIdentity{err: errors.New("connection refused")})

	assert.ErrorContains(t, err, "not running on EC2?")
}
