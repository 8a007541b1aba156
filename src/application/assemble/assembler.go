package assemble

import (
	"audio-separator-worker/src/application/upload/entity"
	"audio-separator-worker/src/lib/werror"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"
)

// Assembler shapes final artifacts into one of the two result modes:
// inline base64 blobs, or uploaded public URLs.
type Assembler struct {
	uploader entity.Uploader
}

// NewAssembler accepts a nil uploader, in which case only the base64
// mode is available and URL requests fail at assembly time.
func NewAssembler(uploader entity.Uploader) Assembler {
	return Assembler{
		uploader: uploader,
	}
}

// EncodeFiles reads each artifact fully into memory and base64-encodes
// it, keyed by file name. Files missing from disk are skipped with a
// warning rather than failing the whole response.
func (a Assembler) EncodeFiles(filePaths []string) map[string]string {
	resultFiles := map[string]string{}

	for _, filePath := range filePaths {
		fileContents, err := os.ReadFile(filePath)
		if err != nil {
			log.WithField("filePath", filePath).Warn("Output file could not be read, skipping")
			continue
		}

		resultFiles[filepath.Base(filePath)] = base64.StdEncoding.EncodeToString(fileContents)
	}

	return resultFiles
}

// UploadFiles ships each artifact to the upload collaborator and returns
// public URLs keyed by file name. Missing files are skipped with a
// warning; an upload failure aborts the whole assembly.
func (a Assembler) UploadFiles(ctx context.Context, destPrefix string, filePaths []string) (map[string]string, error) {
	if a.uploader == nil {
		return nil, werror.WrapError("No upload backend is configured for URL results", nil)
	}

	uploadedFiles := map[string]string{}

	for _, filePath := range filePaths {
		if _, err := os.Stat(filePath); err != nil {
			log.WithField("filePath", filePath).Warn("Output file does not exist, skipping")
			continue
		}

		fileName := filepath.Base(filePath)
		objectName := fmt.Sprintf("%s/%s", destPrefix, fileName)

		logger := log.WithFields(log.Fields{
			"filePath":   filePath,
			"objectName": objectName,
		})

		logger.Info("Uploading output file")
		url, err := a.uploader.UploadFile(ctx, filePath, objectName)
		if err != nil {
			logger.Error("Failed to upload output file")
			return nil, werror.WrapError(fmt.Sprintf("Failed to upload output file %s", fileName), err)
		}

		logger.WithField("url", url).Info("Upload complete")
		uploadedFiles[fileName] = url
	}

	return uploadedFiles, nil
}
