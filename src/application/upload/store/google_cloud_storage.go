package store

import (
	"audio-separator-worker/src/application/upload/entity"
	"audio-separator-worker/src/lib/werror"
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

var _ entity.Uploader = GoogleUploader{}

const GOOGLE_STORAGE_HOST = "https://storage.googleapis.com"

type GoogleUploader struct {
	storageClient *storage.Client
	bucketName    string
}

func NewGoogleUploader(jsonKey string, bucketName string) (GoogleUploader, error) {
	googleStorageClient, err := storage.NewClient(context.Background(), option.WithCredentialsJSON([]byte(jsonKey)))

	if err != nil {
		return GoogleUploader{}, werror.WrapError("Failed to create Google Cloud Storage client", err)
	}

	return GoogleUploader{
		storageClient: googleStorageClient,
		bucketName:    bucketName,
	}, nil
}

func (g GoogleUploader) UploadFile(ctx context.Context, localFilePath string, objectName string) (_ string, err error) {
	fileContents, err := os.ReadFile(localFilePath)
	if err != nil {
		return "", werror.WrapError("Failed to read local file for upload", err)
	}

	objectHandle := g.storageClient.Bucket(g.bucketName).Object(objectName)
	writer := objectHandle.NewWriter(ctx)
	defer func() {
		closeErr := writer.Close()
		if err == nil && closeErr != nil {
			err = werror.WrapError("Error occurred when closing the upload stream", closeErr)
		}
	}()

	if _, err = writer.Write(fileContents); err != nil {
		return "", werror.WrapError("Error occurred when uploading file", err)
	}

	return fmt.Sprintf("%s/%s/%s", GOOGLE_STORAGE_HOST, g.bucketName, objectName), nil
}
