package engine

import (
	"audio-separator-worker/src/application/executor"
	"audio-separator-worker/src/application/separator/entity"
	"audio-separator-worker/src/application/separator/models"
	"audio-separator-worker/src/lib/cerr"
	"audio-separator-worker/src/lib/werror"
	"audio-separator-worker/src/lib/working_dir"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/apex/log"
)

var _ entity.Engine = (*CLIEngine)(nil)

// CLIEngine drives the audio-separator binary. It remembers which model
// is current so that repeated loads of the same model are free, and so
// that separate calls always run against an explicitly loaded model.
type CLIEngine struct {
	binPath      string
	modelFileDir string
	outputFormat string
	workingDir   working_dir.WorkingDir
	executor     executor.Executor

	currentModel string
}

func NewCLIEngine(binPath string, modelFileDir string, workingDirStr string, outputFormat string, executor executor.Executor) (*CLIEngine, error) {
	workingDir, err := working_dir.NewWorkingDir(workingDirStr)
	if err != nil {
		return nil, cerr.Wrap(err).Error("Failed to convert working dir to absolute format")
	}

	if err := os.MkdirAll(modelFileDir, os.ModePerm); err != nil {
		return nil, cerr.Field("model_file_dir", modelFileDir).
			Wrap(err).Error("Failed to create model file directory")
	}

	if outputFormat == "" {
		outputFormat = "WAV"
	}

	return &CLIEngine{
		binPath:      binPath,
		modelFileDir: modelFileDir,
		outputFormat: outputFormat,
		workingDir:   workingDir,
		executor:     executor,
	}, nil
}

// SetOutputFormat applies the caller requested container format to
// subsequent separate calls.
func (c *CLIEngine) SetOutputFormat(outputFormat string) {
	if outputFormat != "" {
		c.outputFormat = outputFormat
	}
}

func (c *CLIEngine) DownloadModel(ctx context.Context, modelFilename string) error {
	if c.modelFileExists(modelFilename) {
		return nil
	}

	if ctx.Err() != nil {
		return werror.WrapError("Context cancelled before model download could happen", ctx.Err())
	}

	log.WithField("model", modelFilename).Info("Downloading model files")

	cmd := c.executor.Command(c.binPath,
		"--download_model_only",
		"-m", modelFilename,
		"--model_file_dir", c.modelFileDir)
	cmd.SetDir(c.workingDir.Root())

	output, err := cmd.CombinedOutput()
	if err != nil {
		errMsg := fmt.Sprintf("Error occurred while downloading model - output: %s", string(output))
		return werror.WrapError(errMsg, err)
	}

	return nil
}

func (c *CLIEngine) LoadModel(ctx context.Context, modelFilename string) error {
	if modelFilename == "" {
		return werror.WrapError("No model filename provided", nil)
	}

	// reload only on mismatch - loading is the expensive part of a run
	if c.currentModel == modelFilename {
		return nil
	}

	if err := c.DownloadModel(ctx, modelFilename); err != nil {
		return werror.WrapError("Failed to ensure model files are present", err)
	}

	log.WithField("model", modelFilename).Info("Loading model")
	c.currentModel = modelFilename
	return nil
}

func (c *CLIEngine) Separate(ctx context.Context, inputFilePath string, outputDir string, customOutputNames map[string]string) ([]string, error) {
	if c.currentModel == "" {
		return nil, werror.WrapError("No model is loaded", nil)
	}

	absInputFilePath, err := filepath.Abs(inputFilePath)
	if err != nil {
		return nil, werror.WrapError("Cannot convert source path to absolute format", err)
	}

	absOutputDir, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, werror.WrapError("Cannot convert destination path to absolute format", err)
	}

	// separation is a lengthy process, if we want to halt now is the time
	if ctx.Err() != nil {
		return nil, werror.WrapError("Context cancelled before separation could happen", ctx.Err())
	}

	if err := c.runSeparator(absInputFilePath, absOutputDir, customOutputNames); err != nil {
		return nil, werror.WrapError("Failed to execute audio-separator", err)
	}

	outputPaths, err := collectOutputFilePaths(absOutputDir)
	if err != nil {
		return nil, err
	}

	if customOutputNames == nil {
		outputPaths = orderByModelStems(c.currentModel, outputPaths)
	}

	return outputPaths, nil
}

func (c *CLIEngine) ListModels(ctx context.Context) ([]entity.ModelInfo, error) {
	if ctx.Err() != nil {
		return nil, werror.WrapError("Context cancelled before model listing could happen", ctx.Err())
	}

	cmd := c.executor.Command(c.binPath,
		"--list_models",
		"--list_format", "json",
		"--model_file_dir", c.modelFileDir)
	cmd.SetDir(c.workingDir.Root())

	output, err := cmd.CombinedOutput()
	if err != nil {
		errMsg := fmt.Sprintf("Error occurred while listing models - output: %s", string(output))
		return nil, werror.WrapError(errMsg, err)
	}

	modelList := []entity.ModelInfo{}
	if err := json.Unmarshal(output, &modelList); err != nil {
		return nil, werror.WrapError("Failed to parse model list output", err)
	}

	return modelList, nil
}

func (c *CLIEngine) runSeparator(sourcePath string, destDir string, customOutputNames map[string]string) error {
	logger := log.WithFields(log.Fields{
		"sourcePath":   sourcePath,
		"destDir":      destDir,
		"model":        c.currentModel,
		"outputFormat": c.outputFormat,
	})

	args := []string{
		sourcePath,
		"-m", c.currentModel,
		"--model_file_dir", c.modelFileDir,
		"--output_dir", destDir,
		"--output_format", c.outputFormat,
	}

	if customOutputNames != nil {
		namesJSON, err := json.Marshal(customOutputNames)
		if err != nil {
			return werror.WrapError("Failed to marshal custom output names", err)
		}
		args = append(args, "--custom_output_names", string(namesJSON))
	}

	logger.Info("Running audio-separator command")
	cmd := c.executor.Command(c.binPath, args...)
	cmd.SetDir(c.workingDir.Root())

	output, err := cmd.CombinedOutput()
	if err != nil {
		errMsg := fmt.Sprintf("Error occurred while running audio-separator - output: %s", string(output))
		return werror.WrapError(errMsg, err)
	}

	logger.Debug(string(output))
	logger.Info("Finished audio-separator command")

	return nil
}

func (c *CLIEngine) modelFileExists(modelFilename string) bool {
	_, err := os.Stat(filepath.Join(c.modelFileDir, modelFilename))
	return err == nil
}

func collectOutputFilePaths(dir string) ([]string, error) {
	logger := log.WithFields(log.Fields{
		"dir": dir,
	})

	logger.Info("Reading directory to collect output file paths")
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, werror.WrapError("Error reading output directory", err)
	}

	if len(dirEntries) == 0 {
		return nil, werror.WrapError("No files in output directory", nil)
	}

	outputs := []string{}

	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() {
			continue
		}

		filePath, err := filepath.Abs(filepath.Join(dir, dirEntry.Name()))
		if err != nil {
			return nil, werror.WrapError("Failed to convert file path to absolute format", err)
		}

		outputs = append(outputs, filePath)
	}

	sort.Strings(outputs)

	return outputs, nil
}

// orderByModelStems reorders the collected files so that they follow the
// model's declared stem ordering. The engine names each output with its
// stem label in parentheses, which is the only ordering signal available
// once the files are on disk.
func orderByModelStems(modelFilename string, outputPaths []string) []string {
	model, ok := models.Lookup(modelFilename)
	if !ok {
		return outputPaths
	}

	ordered := []string{}
	remaining := append([]string{}, outputPaths...)

	for _, stemLabel := range model.Stems.Labels() {
		marker := fmt.Sprintf("(%s)", stemLabel)
		for i, path := range remaining {
			if strings.Contains(filepath.Base(path), marker) {
				ordered = append(ordered, path)
				remaining = append(remaining[:i], remaining[i+1:]...)
				break
			}
		}
	}

	// anything unmatched keeps its collected position at the end
	return append(ordered, remaining...)
}
