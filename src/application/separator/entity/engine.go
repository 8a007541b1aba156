package entity

import "context"

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

type ModelInfo struct {
	ModelFilename string   `json:"model_filename"`
	FriendlyName  string   `json:"friendly_name"`
	Arch          string   `json:"arch,omitempty"`
	OutputStems   []string `json:"output_stems,omitempty"`
}

// Engine is the boundary to the external source separation runtime.
// Exactly one model is loaded at a time; LoadModel invalidates
// whatever was loaded before it.
//counterfeiter:generate . Engine
type Engine interface {
	DownloadModel(ctx context.Context, modelFilename string) error
	LoadModel(ctx context.Context, modelFilename string) error
	SetOutputFormat(outputFormat string)
	Separate(ctx context.Context, inputFilePath string, outputDir string, customOutputNames map[string]string) ([]string, error)
	ListModels(ctx context.Context) ([]ModelInfo, error)
}
