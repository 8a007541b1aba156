package dummy

import (
	"audio-separator-worker/src/application/upload/entity"
	"context"
	"fmt"
	"os"
)

var _ entity.Uploader = (*Uploader)(nil)

func NewDummyUploader() *Uploader {
	return &Uploader{
		Unavailable: false,
		State:       map[string][]byte{},
	}
}

// Uploader keeps uploaded bytes in memory keyed by their public URL.
type Uploader struct {
	Unavailable bool
	State       map[string][]byte
}

func (u *Uploader) UploadFile(_ context.Context, localFilePath string, objectName string) (string, error) {
	if u.Unavailable {
		return "", NetworkFailure
	}

	contents, err := os.ReadFile(localFilePath)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("https://file-store.local/%s", objectName)
	u.State[url] = append([]byte{}, contents...)

	return url, nil
}
