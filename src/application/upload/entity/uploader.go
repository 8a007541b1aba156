package entity

import "context"

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

// Uploader ships a local file to a publicly reachable location and
// returns its URL.
//counterfeiter:generate . Uploader
type Uploader interface {
	UploadFile(ctx context.Context, localFilePath string, objectName string) (string, error)
}
