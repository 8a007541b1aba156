package advanced_separate

import (
	"audio-separator-worker/src/application/assemble"
	"audio-separator-worker/src/application/jobs/advanced_separate/pipeline"
	"audio-separator-worker/src/application/jobs/job_message"
	"audio-separator-worker/src/application/jobs/joberr"
	"audio-separator-worker/src/application/separator/entity"
	"audio-separator-worker/src/lib/cerr"
	"audio-separator-worker/src/lib/working_dir"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/google/uuid"
)

type Result struct {
	Success        bool              `json:"success"`
	Message        string            `json:"message"`
	OutputFiles    map[string]string `json:"output_files,omitempty"`
	OutputURLs     map[string]string `json:"output_urls,omitempty"`
	StepsCompleted []string          `json:"steps_completed"`
	FinalOutputs   []string          `json:"final_outputs"`
	ReturnType     string            `json:"return_type"`
}

func NewJobHandler(engine entity.Engine, assembler assemble.Assembler, workingDir working_dir.WorkingDir) JobHandler {
	return JobHandler{
		runner:     pipeline.NewRunner(engine),
		engine:     engine,
		assembler:  assembler,
		workingDir: workingDir,
	}
}

type JobHandler struct {
	runner     pipeline.Runner
	engine     entity.Engine
	assembler  assemble.Assembler
	workingDir working_dir.WorkingDir
}

func (h JobHandler) HandleAdvancedSeparateJob(ctx context.Context, input job_message.JobInput) (Result, error) {
	if input.AudioData == "" {
		return Result{}, joberr.New(joberr.ValidationKind, "Missing audio_data", cerr.Error("audio_data field is required"))
	}

	audioBytes, err := base64.StdEncoding.DecodeString(input.AudioData)
	if err != nil {
		return Result{}, joberr.New(joberr.ValidationKind, "Invalid audio_data", err)
	}

	log.Info("Creating scratch directory for the pipeline run")
	scratchDir, removeScratchDir, err := h.workingDir.MakeScratchDir("advanced-separate")
	if err != nil {
		return Result{}, joberr.New(joberr.InternalKind, "Advanced audio separation failed", err)
	}

	defer removeScratchDir()

	inputFilePath := filepath.Join(scratchDir, "input.wav")
	if err := os.WriteFile(inputFilePath, audioBytes, os.ModePerm); err != nil {
		return Result{}, joberr.New(joberr.InternalKind, "Advanced audio separation failed",
			cerr.Wrap(err).Error("Failed to write input audio to disk"))
	}

	h.engine.SetOutputFormat(input.OutputFormatOrDefault())

	log.Info("Starting the advanced separation pipeline")
	pipelineResult, err := h.runner.Run(ctx, inputFilePath, scratchDir)
	if err != nil {
		return Result{}, err
	}

	finalPaths := []string{
		pipelineResult.InstrumentalPath,
		pipelineResult.CleanLeadVocalPath,
	}

	result := Result{
		Success:        true,
		Message:        "Advanced audio separation completed successfully",
		StepsCompleted: pipelineResult.StepsCompleted,
		FinalOutputs: []string{
			fmt.Sprintf("%s - separated instrumental", filepath.Base(pipelineResult.InstrumentalPath)),
			fmt.Sprintf("%s - cleaned lead vocal", filepath.Base(pipelineResult.CleanLeadVocalPath)),
		},
		ReturnType: input.ReturnTypeOrDefault(),
	}

	switch input.ReturnTypeOrDefault() {
	case job_message.ReturnTypeBase64:
		result.OutputFiles = h.assembler.EncodeFiles(finalPaths)
	default:
		outputURLs, err := h.assembler.UploadFiles(ctx, uuid.NewString(), finalPaths)
		if err != nil {
			return Result{}, joberr.New(joberr.UploadKind, "Failed to upload output files", err)
		}
		result.OutputURLs = outputURLs
	}

	return result, nil
}
