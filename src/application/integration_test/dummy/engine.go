package dummy

import (
	"audio-separator-worker/src/application/separator/entity"
	"audio-separator-worker/src/application/separator/models"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var _ entity.Engine = (*Engine)(nil)

// Engine mimics the separation engine: every separate call chains the
// stem label onto the input contents, so a test can assert the exact
// provenance of each output file.
func NewDummyEngine() *Engine {
	return &Engine{
		OutputCount:  2,
		OutputFormat: "WAV",
	}
}

type Engine struct {
	Unavailable      bool
	UnloadableModels map[string]bool
	OutputCount      int
	OutputFormat     string

	// Delay stretches out each separate call so tests can overlap jobs
	Delay time.Duration

	CurrentModel     string
	LoadedModels     []string
	DownloadedModels []string

	// MaxConcurrentJobs records how many separate calls were ever
	// inside the engine at the same time
	MaxConcurrentJobs int

	mutex      sync.Mutex
	activeJobs int
}

func (e *Engine) DownloadModel(_ context.Context, modelFilename string) error {
	if e.Unavailable {
		return NetworkFailure
	}

	e.DownloadedModels = append(e.DownloadedModels, modelFilename)
	return nil
}

func (e *Engine) LoadModel(_ context.Context, modelFilename string) error {
	if e.Unavailable {
		return NetworkFailure
	}

	if e.UnloadableModels[modelFilename] {
		return ModelMissing
	}

	e.CurrentModel = modelFilename
	e.LoadedModels = append(e.LoadedModels, modelFilename)
	return nil
}

func (e *Engine) SetOutputFormat(outputFormat string) {
	if outputFormat != "" {
		e.OutputFormat = outputFormat
	}
}

func (e *Engine) Separate(_ context.Context, inputFilePath string, outputDir string, customOutputNames map[string]string) ([]string, error) {
	e.mutex.Lock()
	e.activeJobs++
	if e.activeJobs > e.MaxConcurrentJobs {
		e.MaxConcurrentJobs = e.activeJobs
	}
	e.mutex.Unlock()

	defer func() {
		e.mutex.Lock()
		e.activeJobs--
		e.mutex.Unlock()
	}()

	if e.Delay > 0 {
		time.Sleep(e.Delay)
	}

	if e.Unavailable {
		return nil, NetworkFailure
	}

	if e.CurrentModel == "" {
		return nil, UnexpectedInput
	}

	model, ok := models.Lookup(e.CurrentModel)
	if !ok {
		return nil, ModelMissing
	}

	contents, err := os.ReadFile(inputFilePath)
	if err != nil {
		return nil, err
	}

	extension := strings.ToLower(e.OutputFormat)
	inputBase := strings.TrimSuffix(filepath.Base(inputFilePath), filepath.Ext(inputFilePath))
	modelTag := strings.TrimSuffix(e.CurrentModel, filepath.Ext(e.CurrentModel))

	outputPaths := []string{}

	for i, stemLabel := range model.Stems.Labels() {
		if i >= e.OutputCount {
			break
		}

		fileName := fmt.Sprintf("%s_(%s)_%s.%s", inputBase, stemLabel, modelTag, extension)
		if customName, ok := customOutputNames[stemLabel]; ok {
			fileName = fmt.Sprintf("%s.%s", customName, extension)
		}

		outputPath := filepath.Join(outputDir, fileName)
		stemContents := []byte(string(contents) + "-" + stemLabel)

		if err := os.WriteFile(outputPath, stemContents, os.ModePerm); err != nil {
			return nil, err
		}

		outputPaths = append(outputPaths, outputPath)
	}

	return outputPaths, nil
}

func (e *Engine) ListModels(_ context.Context) ([]entity.ModelInfo, error) {
	if e.Unavailable {
		return nil, NetworkFailure
	}

	modelList := []entity.ModelInfo{}
	for _, model := range models.Required() {
		modelList = append(modelList, entity.ModelInfo{
			ModelFilename: model.Filename,
			FriendlyName:  model.FriendlyName,
			OutputStems:   []string{model.Stems.First, model.Stems.Second},
		})
	}

	return modelList, nil
}
