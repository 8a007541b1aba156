package application

import (
	"audio-separator-worker/src/application/assemble"
	"audio-separator-worker/src/application/executor"
	"audio-separator-worker/src/application/jobs/advanced_separate"
	"audio-separator-worker/src/application/jobs/job_router"
	"audio-separator-worker/src/application/jobs/list_models"
	"audio-separator-worker/src/application/jobs/separate"
	"audio-separator-worker/src/application/publish"
	"audio-separator-worker/src/application/separator/engine"
	"audio-separator-worker/src/application/separator/entity"
	"audio-separator-worker/src/application/separator/models"
	"audio-separator-worker/src/application/serverless"
	uploadentity "audio-separator-worker/src/application/upload/entity"
	uploadstore "audio-separator-worker/src/application/upload/store"
	"audio-separator-worker/src/application/worker"
	"audio-separator-worker/src/lib/env"
	"audio-separator-worker/src/lib/working_dir"
	"context"
	"fmt"
	"os"

	"github.com/apex/log"

	"github.com/streadway/amqp"
)

func getEnvOrPanic(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("No env variable found for key %s", key))
	}

	return val
}

func ensureOk(err error) {
	if err != nil {
		panic(err)
	}
}

type App struct {
	server  *serverless.Server
	workers []worker.QueueWorker
}

func NewApp() App {
	separationEngine := newEngine()
	warmStart(separationEngine)

	jobRouter := newJobRouter(separationEngine)

	app := App{}

	switch servingMode() {
	case "queue":
		app.workers = []worker.QueueWorker{newQueueWorker(jobRouter)}
	case "http":
		app.server = serverless.NewServer(httpBind(), jobRouter)
	default:
		panic("Invalid serving mode, expected http or queue")
	}

	return app
}

func (a *App) Start() {
	if a.server != nil {
		go func() {
			if err := a.server.Start(); err != nil {
				log.Error("Failed to start HTTP server!")
			}
		}()
	}

	for _, queueWorker := range a.workers {
		go func(queueWorker worker.QueueWorker) {
			if err := queueWorker.Start(); err != nil {
				log.Error("Failed to start queue worker!")
			}
		}(queueWorker)
	}
}

func servingMode() string {
	mode := os.Getenv("SERVING_MODE")
	if mode == "" {
		return "http"
	}

	return mode
}

func httpBind() string {
	bind := os.Getenv("HTTP_BIND")
	if bind == "" {
		if env.Get() == env.Production {
			panic("No HTTP_BIND env variable set in production")
		}
		return ":8000"
	}

	return bind
}

func newEngine() *engine.CLIEngine {
	binPath := getEnvOrPanic("SEPARATOR_BIN_PATH")
	workingDir := getEnvOrPanic("SEPARATOR_WORKING_DIR_PATH")
	modelFileDir := getEnvOrPanic("MODEL_FILE_DIR")

	err := os.MkdirAll(workingDir, os.ModePerm)
	ensureOk(err)

	separationEngine, err := engine.NewCLIEngine(binPath, modelFileDir, workingDir, "WAV", executor.BinaryFileExecutor{})
	ensureOk(err)

	return separationEngine
}

// warmStart pre-fetches the pipeline models and loads the default one so
// that the first job doesn't pay the whole cold start cost. Failures are
// only warnings - the models get another chance per job.
func warmStart(separationEngine entity.Engine) {
	ctx := context.Background()

	for _, model := range models.Required() {
		if err := separationEngine.DownloadModel(ctx, model.Filename); err != nil {
			log.WithField("model", model.Filename).Warn("Failed to pre-download model")
		}
	}

	if err := separationEngine.LoadModel(ctx, models.DefaultModel); err != nil {
		log.WithField("model", models.DefaultModel).Warn("Failed to pre-load default model")
	}
}

func newJobRouter(separationEngine entity.Engine) job_router.JobRouter {
	workingDir, err := working_dir.NewWorkingDir(getEnvOrPanic("SEPARATOR_WORKING_DIR_PATH"))
	ensureOk(err)

	assembler := assemble.NewAssembler(newUploader())

	return job_router.NewJobRouter(
		list_models.NewJobHandler(separationEngine),
		separate.NewJobHandler(separationEngine, assembler, workingDir),
		advanced_separate.NewJobHandler(separationEngine, assembler, workingDir),
	)
}

func newUploader() uploadentity.Uploader {
	switch os.Getenv("UPLOAD_BACKEND") {
	case "s3":
		uploader, err := uploadstore.NewS3Uploader(
			getEnvOrPanic("BUCKET_ENDPOINT_URL"),
			getEnvOrPanic("BUCKET_ACCESS_KEY_ID"),
			getEnvOrPanic("BUCKET_SECRET_ACCESS_KEY"),
			getEnvOrPanic("BUCKET_NAME"),
		)
		ensureOk(err)
		return uploader

	case "gcs":
		uploader, err := uploadstore.NewGoogleUploader(
			getEnvOrPanic("GOOGLE_CLOUD_KEY"),
			getEnvOrPanic("GOOGLE_CLOUD_STORAGE_BUCKET_NAME"),
		)
		ensureOk(err)
		return uploader

	default:
		// base64 results only; URL requests fail at assembly time
		return nil
	}
}

func newQueueWorker(jobRouter job_router.JobRouter) worker.QueueWorker {
	rabbitURL := getEnvOrPanic("RABBITMQ_URL")
	queueName := getEnvOrPanic("RABBITMQ_QUEUE_NAME")

	consumerConn, err := amqp.Dial(rabbitURL)
	ensureOk(err)
	producerConn, err := amqp.Dial(rabbitURL)
	ensureOk(err)

	publisher, err := publish.NewRabbitMQPublisher(producerConn, queueName+".results")
	ensureOk(err)

	queueWorker, err := worker.NewQueueWorkerFromConnection(consumerConn, queueName, jobRouter, publisher)
	ensureOk(err)

	return queueWorker
}
