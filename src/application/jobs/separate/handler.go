package separate

import (
	"audio-separator-worker/src/application/assemble"
	"audio-separator-worker/src/application/jobs/job_message"
	"audio-separator-worker/src/application/jobs/joberr"
	"audio-separator-worker/src/application/separator/entity"
	"audio-separator-worker/src/application/separator/models"
	"audio-separator-worker/src/lib/cerr"
	"audio-separator-worker/src/lib/working_dir"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/google/uuid"
)

type Result struct {
	Success     bool              `json:"success"`
	Message     string            `json:"message"`
	OutputFiles map[string]string `json:"output_files,omitempty"`
	OutputURLs  map[string]string `json:"output_urls,omitempty"`
	ModelUsed   string            `json:"model_used"`
	ReturnType  string            `json:"return_type"`
}

func NewJobHandler(engine entity.Engine, assembler assemble.Assembler, workingDir working_dir.WorkingDir) JobHandler {
	return JobHandler{
		engine:     engine,
		assembler:  assembler,
		workingDir: workingDir,
	}
}

type JobHandler struct {
	engine     entity.Engine
	assembler  assemble.Assembler
	workingDir working_dir.WorkingDir
}

func (h JobHandler) HandleSeparateJob(ctx context.Context, input job_message.JobInput) (Result, error) {
	if input.AudioData == "" {
		return Result{}, joberr.New(joberr.ValidationKind, "Missing audio_data", cerr.Error("audio_data field is required"))
	}

	modelFilename := input.ModelFilename
	if modelFilename == "" {
		modelFilename = models.DefaultModel
	}

	logger := log.WithFields(log.Fields{
		"model":       modelFilename,
		"return_type": input.ReturnTypeOrDefault(),
	})

	audioBytes, err := base64.StdEncoding.DecodeString(input.AudioData)
	if err != nil {
		return Result{}, joberr.New(joberr.ValidationKind, "Invalid audio_data", err)
	}

	logger.Info("Creating scratch directory for the input track")
	inputDir, removeInputDir, err := h.workingDir.MakeScratchDir("separate-input")
	if err != nil {
		return Result{}, joberr.New(joberr.InternalKind, "Audio separation failed", err)
	}

	defer removeInputDir()

	inputFilePath := filepath.Join(inputDir, "input.wav")
	if err := os.WriteFile(inputFilePath, audioBytes, os.ModePerm); err != nil {
		return Result{}, joberr.New(joberr.InternalKind, "Audio separation failed",
			cerr.Wrap(err).Error("Failed to write input audio to disk"))
	}

	logger.Info("Creating scratch directory for the output stems")
	outputDir, removeOutputDir, err := h.workingDir.MakeScratchDir("separate-output")
	if err != nil {
		return Result{}, joberr.New(joberr.InternalKind, "Audio separation failed", err)
	}

	defer removeOutputDir()

	h.engine.SetOutputFormat(input.OutputFormatOrDefault())

	logger.Info("Loading the requested model")
	if err := h.engine.LoadModel(ctx, modelFilename); err != nil {
		return Result{}, joberr.New(joberr.ModelLoadKind, "Model load failed",
			cerr.Field("model", modelFilename).Wrap(err).Error("Failed to load the requested model"))
	}

	logger.Info("Starting audio separation")
	outputPaths, err := h.engine.Separate(ctx, inputFilePath, outputDir, input.CustomOutputNames)
	if err != nil {
		return Result{}, joberr.New(joberr.InternalKind, "Audio separation failed", err)
	}

	logger.WithField("output_count", len(outputPaths)).Info("Audio separation complete")

	result := Result{
		Success:    true,
		Message:    "Audio separation completed successfully",
		ModelUsed:  modelFilename,
		ReturnType: input.ReturnTypeOrDefault(),
	}

	switch input.ReturnTypeOrDefault() {
	case job_message.ReturnTypeBase64:
		result.OutputFiles = h.assembler.EncodeFiles(outputPaths)
	default:
		outputURLs, err := h.assembler.UploadFiles(ctx, uuid.NewString(), outputPaths)
		if err != nil {
			return Result{}, joberr.New(joberr.UploadKind, "Failed to upload output files", err)
		}
		result.OutputURLs = outputURLs
	}

	return result, nil
}
