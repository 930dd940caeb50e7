package services

import (
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubPresignSeams(t *testing.T) {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origPut := presignPutObject
	origGet := presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignPutObject = origPut
		presignGetObject = origGet
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		require.NotNil(t, opts.BaseEndpoint)
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}
}

func TestPresignedPutURL_KeyShardsByEntity(t *testing.T) {
	stubPresignSeams(t)

	var capturedKey string
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		capturedKey = *in.Key
		assert.Equal(t, "venue-photos", *in.Bucket)
		return &v4.PresignedHTTPRequest{URL: "https://blob/put"}, nil
	}

	svc := NewMediaService(testServerConfig())
	key, url, err := svc.PresignedPutURL(context.Background(), "e1", "front.jpg")
	require.NoError(t, err)

	assert.Equal(t, "https://blob/put", url)
	assert.Equal(t, capturedKey, key)
	assert.True(t, strings.HasPrefix(key, "entities/e1/"))
	assert.True(t, strings.HasSuffix(key, "-front.jpg"))
}

func TestPresignedPutURL_StripsDirectoryFromFilename(t *testing.T) {
	stubPresignSeams(t)

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: "https://blob/put"}, nil
	}

	svc := NewMediaService(testServerConfig())
	key, _, err := svc.PresignedPutURL(context.Background(), "e1", "../../etc/passwd")
	require.NoError(t, err)
	assert.NotContains(t, key, "..")
}

func TestPresignedGetURL(t *testing.T) {
	stubPresignSeams(t)

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		assert.Equal(t, "entities/e1/k", *in.Key)
		return &v4.PresignedHTTPRequest{URL: "https://blob/get"}, nil
	}

	svc := NewMediaService(testServerConfig())
	url, err := svc.PresignedGetURL(context.Background(), "entities/e1/k")
	require.NoError(t, err)
	assert.Equal(t, "https://blob/get", url)
}
