package serverless

import (
	"audio-separator-worker/src/application/jobs/job_message"
	"audio-separator-worker/src/application/jobs/job_router"
	"audio-separator-worker/src/lib/cerr"
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Server exposes the platform-style job surface: synchronous runs,
// asynchronous submit-then-poll runs, and a health check. runMutex
// serializes job execution across both surfaces so only one job runs
// to completion at a time, which is what keeps the engine's
// one-model-at-a-time discipline.
type Server struct {
	echo      *echo.Echo
	jobRouter job_router.JobRouter
	store     *jobStore
	jobQueue  chan queuedJob
	runMutex  sync.Mutex
	bind      string
}

type queuedJob struct {
	id      string
	request job_message.JobRequest
}

func NewServer(bind string, jobRouter job_router.JobRouter) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())

	server := &Server{
		echo:      e,
		jobRouter: jobRouter,
		store:     newJobStore(),
		jobQueue:  make(chan queuedJob, 100),
		bind:      bind,
	}

	e.POST("/runsync", server.handleRunSync)
	e.POST("/run", server.handleRun)
	e.GET("/status/:id", server.handleStatus)
	e.GET("/health-check", server.handleHealthCheck)

	go server.runLoop()

	return server
}

// Start blocks serving HTTP until the listener fails.
func (s *Server) Start() error {
	err := s.echo.Start(s.bind)
	if err != nil && err != http.ErrServerClosed {
		return cerr.Field("bind", s.bind).Wrap(err).Error("Failed to start HTTP server")
	}

	return nil
}

// Handler exposes the echo handler, mostly so tests can drive the
// server without binding a port.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) handleRunSync(c echo.Context) error {
	request := job_message.JobRequest{}
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, job_message.ErrorResult{
			Error:   "Malformed request",
			Message: "The request body could not be parsed as a job request",
		})
	}

	output := s.runJob(c.Request().Context(), request)

	return c.JSON(http.StatusOK, JobEnvelope{
		ID:     uuid.NewString(),
		Status: statusForOutput(output),
		Output: output,
	})
}

// runJob is the single execution point for both surfaces. The engine
// holds one model at a time, so jobs must never interleave.
func (s *Server) runJob(ctx context.Context, request job_message.JobRequest) interface{} {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()

	return s.jobRouter.HandleJob(ctx, request)
}

func (s *Server) handleRun(c echo.Context) error {
	request := job_message.JobRequest{}
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, job_message.ErrorResult{
			Error:   "Malformed request",
			Message: "The request body could not be parsed as a job request",
		})
	}

	envelope := JobEnvelope{
		ID:     uuid.NewString(),
		Status: StatusInQueue,
	}

	s.store.Set(envelope)

	select {
	case s.jobQueue <- queuedJob{id: envelope.ID, request: request}:
	default:
		s.store.Delete(envelope.ID)
		return c.JSON(http.StatusServiceUnavailable, job_message.ErrorResult{
			Error:   "Server overloaded",
			Message: "The job queue is full, retry the submission later",
		})
	}

	return c.JSON(http.StatusOK, envelope)
}

func (s *Server) handleStatus(c echo.Context) error {
	jobID := c.Param("id")

	envelope, ok := s.store.Get(jobID)
	if !ok {
		return c.JSON(http.StatusNotFound, job_message.ErrorResult{
			Error:   "Job not found",
			Message: "No job exists for the requested id",
		})
	}

	return c.JSON(http.StatusOK, envelope)
}

func (s *Server) handleHealthCheck(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (s *Server) runLoop() {
	for job := range s.jobQueue {
		s.store.Set(JobEnvelope{
			ID:     job.id,
			Status: StatusInProgress,
		})

		output := s.runJob(context.Background(), job.request)

		s.store.Set(JobEnvelope{
			ID:     job.id,
			Status: statusForOutput(output),
			Output: output,
		})
	}
}

func statusForOutput(output interface{}) JobStatus {
	if _, failed := output.(job_message.ErrorResult); failed {
		return StatusFailed
	}

	return StatusCompleted
}
