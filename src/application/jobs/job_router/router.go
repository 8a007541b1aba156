package job_router

import (
	"audio-separator-worker/src/application/jobs/advanced_separate"
	"audio-separator-worker/src/application/jobs/job_message"
	"audio-separator-worker/src/application/jobs/joberr"
	"audio-separator-worker/src/application/jobs/list_models"
	"audio-separator-worker/src/application/jobs/separate"
	"audio-separator-worker/src/lib/cerr"
	"context"
	"fmt"

	"github.com/apex/log"
)

func NewJobRouter(
	listModelsHandler list_models.JobHandler,
	separateHandler separate.JobHandler,
	advancedSeparateHandler advanced_separate.JobHandler,
) JobRouter {
	return JobRouter{
		listModelsHandler:       listModelsHandler,
		separateHandler:         separateHandler,
		advancedSeparateHandler: advancedSeparateHandler,
	}
}

type JobRouter struct {
	listModelsHandler       list_models.JobHandler
	separateHandler         separate.JobHandler
	advancedSeparateHandler advanced_separate.JobHandler
}

// HandleJob dispatches on the declared job type and always returns a
// serializable result. Failures come back as the uniform error result,
// never as an error value - nothing may crash the serving loop.
func (j JobRouter) HandleJob(ctx context.Context, request job_message.JobRequest) interface{} {
	logger := log.WithField("job_type", request.Input.Type)
	logger.Info("Handling job")

	result, err := j.dispatch(ctx, request.Input)
	if err != nil {
		err = cerr.Field("job_type", request.Input.Type).
			Wrap(err).Error("Failed to process job")
		cerr.Log(err)
		return toErrorResult(err)
	}

	logger.Info("Successfully processed job")
	return result
}

func (j JobRouter) dispatch(ctx context.Context, input job_message.JobInput) (interface{}, error) {
	jobType := input.Type
	if jobType == "" {
		jobType = job_message.SeparateJobType
	}

	switch jobType {
	case job_message.ListModelsJobType:
		result, err := j.listModelsHandler.HandleListModelsJob(ctx)
		if err != nil {
			return nil, err
		}
		return result, nil

	case job_message.SeparateJobType:
		result, err := j.separateHandler.HandleSeparateJob(ctx, input)
		if err != nil {
			return nil, err
		}
		return result, nil

	case job_message.AdvancedSeparateJobType:
		result, err := j.advancedSeparateHandler.HandleAdvancedSeparateJob(ctx, input)
		if err != nil {
			return nil, err
		}
		return result, nil

	default:
		return nil, joberr.New(joberr.UnknownOperationKind,
			fmt.Sprintf("Unknown job type: %s", input.Type),
			cerr.Error("Supported types: 'list_models', 'separate', 'advanced_separate'"))
	}
}

func toErrorResult(err error) job_message.ErrorResult {
	if jobErr, ok := joberr.As(err); ok {
		return job_message.ErrorResult{
			Error:   jobErr.Title,
			Message: jobErr.Detail(),
		}
	}

	return job_message.ErrorResult{
		Error:   "Internal server error",
		Message: err.Error(),
	}
}
