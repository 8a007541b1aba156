package list_models

import (
	"audio-separator-worker/src/application/jobs/joberr"
	"audio-separator-worker/src/application/separator/entity"
	"context"
)

type Result struct {
	Success bool               `json:"success"`
	Models  []entity.ModelInfo `json:"models"`
	Message string             `json:"message"`
}

func NewJobHandler(engine entity.Engine) JobHandler {
	return JobHandler{
		engine: engine,
	}
}

type JobHandler struct {
	engine entity.Engine
}

func (h JobHandler) HandleListModelsJob(ctx context.Context) (Result, error) {
	modelList, err := h.engine.ListModels(ctx)
	if err != nil {
		return Result{}, joberr.New(joberr.InternalKind, "Failed to retrieve models", err)
	}

	return Result{
		Success: true,
		Models:  modelList,
		Message: "Available models retrieved successfully",
	}, nil
}
