package store

import (
	"audio-separator-worker/src/application/upload/entity"
	"audio-separator-worker/src/lib/werror"
	"context"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

var _ entity.Uploader = S3Uploader{}

// S3Uploader targets the platform's S3-compatible output bucket,
// which is where result files get linked from.
type S3Uploader struct {
	uploader   *s3manager.Uploader
	bucketName string
}

func NewS3Uploader(endpointURL string, accessKeyID string, secretAccessKey string, bucketName string) (S3Uploader, error) {
	awsSession, err := session.NewSession(&aws.Config{
		Endpoint:         aws.String(endpointURL),
		Region:           aws.String("us-east-1"),
		Credentials:      credentials.NewStaticCredentials(accessKeyID, secretAccessKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return S3Uploader{}, werror.WrapError("Failed to create S3 session", err)
	}

	return S3Uploader{
		uploader:   s3manager.NewUploader(awsSession),
		bucketName: bucketName,
	}, nil
}

func (s S3Uploader) UploadFile(ctx context.Context, localFilePath string, objectName string) (string, error) {
	file, err := os.Open(localFilePath)
	if err != nil {
		return "", werror.WrapError("Failed to open local file for upload", err)
	}

	defer file.Close()

	result, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectName),
		Body:   file,
	})
	if err != nil {
		return "", werror.WrapError("Error occurred when uploading file", err)
	}

	return result.Location, nil
}
