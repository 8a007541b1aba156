package integration_test_test

import (
	"audio-separator-worker/src/application/assemble"
	"audio-separator-worker/src/application/integration_test/dummy"
	"audio-separator-worker/src/application/jobs/advanced_separate"
	"audio-separator-worker/src/application/jobs/job_message"
	"audio-separator-worker/src/application/jobs/job_router"
	"audio-separator-worker/src/application/jobs/list_models"
	"audio-separator-worker/src/application/jobs/separate"
	"audio-separator-worker/src/application/separator/engine"
	"audio-separator-worker/src/application/worker"
	"audio-separator-worker/src/lib/working_dir"
	"encoding/base64"
	"encoding/json"
	"os"
	"strings"

	"github.com/streadway/amqp"

	. "github.com/onsi/gomega"

	. "github.com/onsi/ginkgo"
)

var _ = Describe("IntegrationTest", func() {
	var (
		originalTrackData []byte
		correlationID     string

		requestQueue      *dummy.RabbitMQ
		resultsQueue      *dummy.RabbitMQ
		dummyUploader     *dummy.Uploader
		separatorExecutor *dummy.SeparatorExecutor

		queueWorker worker.QueueWorker

		run func(request job_message.JobRequest)

		receiveResult = func() amqp.Delivery {
			var delivery amqp.Delivery
			Eventually(resultsQueue.MessageChannel).Should(Receive(&delivery))
			return delivery
		}
	)

	BeforeEach(func() {
		By("Assigning data to variables", func() {
			originalTrackData = []byte("cool_jamz")
			correlationID = "job-123"
		})

		By("Instantiating all dummies", func() {
			requestQueue = dummy.NewRabbitMQ()
			resultsQueue = dummy.NewRabbitMQ()
			dummyUploader = dummy.NewDummyUploader()
			separatorExecutor = dummy.NewDummySeparatorExecutor()
		})

		By("Creating the job router", func() {
			modelFileDir, err := os.MkdirTemp(workingDir, "models-*")
			Expect(err).NotTo(HaveOccurred())

			cliEngine, err := engine.NewCLIEngine("/somewhere/audio-separator", modelFileDir, workingDir, "", separatorExecutor)
			Expect(err).NotTo(HaveOccurred())

			workDir, err := working_dir.NewWorkingDir(workingDir)
			Expect(err).NotTo(HaveOccurred())

			assembler := assemble.NewAssembler(dummyUploader)
			jobRouter := job_router.NewJobRouter(
				list_models.NewJobHandler(cliEngine),
				separate.NewJobHandler(cliEngine, assembler, workDir),
				advanced_separate.NewJobHandler(cliEngine, assembler, workDir),
			)

			queueWorker = worker.NewQueueWorker(requestQueue, "test-queue", jobRouter, resultsQueue)
		})

		By("Setting up the run routine", func() {
			run = func(request job_message.JobRequest) {
				go func() {
					defer GinkgoRecover()
					err := queueWorker.Start()
					Expect(err).NotTo(HaveOccurred())
				}()

				body, err := json.Marshal(request)
				Expect(err).NotTo(HaveOccurred())

				err = requestQueue.Publish(amqp.Publishing{
					CorrelationId: correlationID,
					Body:          body,
				})
				Expect(err).NotTo(HaveOccurred())
			}
		})
	})

	Describe("Separate job", func() {
		BeforeEach(func() {
			run(job_message.JobRequest{
				Input: job_message.JobInput{
					Type:      job_message.SeparateJobType,
					AudioData: base64.StdEncoding.EncodeToString(originalTrackData),
				},
			})
		})

		It("publishes a successful result with both uploaded stems", func() {
			delivery := receiveResult()
			Expect(delivery.CorrelationId).To(Equal(correlationID))

			result := separate.Result{}
			err := json.Unmarshal(delivery.Body, &result)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Success).To(BeTrue())
			Expect(result.OutputURLs).To(HaveLen(2))

			for fileName, url := range result.OutputURLs {
				expectedStem := "Vocals"
				if strings.Contains(fileName, "(Instrumental)") {
					expectedStem = "Instrumental"
				}

				expectedContents := []byte(string(originalTrackData) + "-" + expectedStem)
				Expect(dummyUploader.State[url]).To(Equal(expectedContents))
			}
		})
	})

	Describe("Advanced separate job", func() {
		BeforeEach(func() {
			run(job_message.JobRequest{
				Input: job_message.JobInput{
					Type:      job_message.AdvancedSeparateJobType,
					AudioData: base64.StdEncoding.EncodeToString(originalTrackData),
				},
			})
		})

		It("publishes a result with the two final artifacts", func() {
			delivery := receiveResult()

			result := advanced_separate.Result{}
			err := json.Unmarshal(delivery.Body, &result)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Success).To(BeTrue())
			Expect(result.StepsCompleted).To(HaveLen(4))
			Expect(result.OutputURLs).To(HaveLen(2))

			uploadedContents := [][]byte{}
			for _, url := range result.OutputURLs {
				uploadedContents = append(uploadedContents, dummyUploader.State[url])
			}

			Expect(uploadedContents).To(ConsistOf(
				[]byte("cool_jamz-Instrumental"),
				[]byte("cool_jamz-Vocals-Lead Vocals-No Reverb-No Noise"),
			))
		})
	})

	Describe("List models job", func() {
		BeforeEach(func() {
			run(job_message.JobRequest{
				Input: job_message.JobInput{
					Type: job_message.ListModelsJobType,
				},
			})
		})

		It("publishes the model catalog", func() {
			delivery := receiveResult()

			result := list_models.Result{}
			err := json.Unmarshal(delivery.Body, &result)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Success).To(BeTrue())
			Expect(result.Models).To(HaveLen(4))
		})
	})

	Describe("Bad job", func() {
		BeforeEach(func() {
			run(job_message.JobRequest{
				Input: job_message.JobInput{
					Type: "make_coffee",
				},
			})
		})

		It("publishes an error result instead of crashing", func() {
			delivery := receiveResult()

			errorResult := job_message.ErrorResult{}
			err := json.Unmarshal(delivery.Body, &errorResult)
			Expect(err).NotTo(HaveOccurred())

			Expect(errorResult.Error).To(Equal("Unknown job type: make_coffee"))
		})
	})
})
