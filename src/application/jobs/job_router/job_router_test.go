package job_router_test

import (
	"audio-separator-worker/src/application/assemble"
	"audio-separator-worker/src/application/integration_test/dummy"
	"audio-separator-worker/src/application/jobs/advanced_separate"
	"audio-separator-worker/src/application/jobs/job_message"
	"audio-separator-worker/src/application/jobs/job_router"
	"audio-separator-worker/src/application/jobs/list_models"
	"audio-separator-worker/src/application/jobs/separate"
	"audio-separator-worker/src/application/separator/models"
	"context"
	"encoding/base64"

	. "github.com/onsi/gomega"

	. "github.com/onsi/ginkgo"
)

var _ = Describe("JobRouter", func() {
	var (
		dummyEngine   *dummy.Engine
		dummyUploader *dummy.Uploader

		jobRouter job_router.JobRouter

		request job_message.JobRequest
	)

	BeforeEach(func() {
		By("Instantiating all dummies", func() {
			dummyEngine = dummy.NewDummyEngine()
			dummyUploader = dummy.NewDummyUploader()
		})

		By("Initializing the router", func() {
			assembler := assemble.NewAssembler(dummyUploader)
			jobRouter = job_router.NewJobRouter(
				list_models.NewJobHandler(dummyEngine),
				separate.NewJobHandler(dummyEngine, assembler, workingDir),
				advanced_separate.NewJobHandler(dummyEngine, assembler, workingDir),
			)
		})

		request = job_message.JobRequest{
			Input: job_message.JobInput{
				AudioData: base64.StdEncoding.EncodeToString([]byte("cool_jamz")),
			},
		}
	})

	Describe("List models job", func() {
		BeforeEach(func() {
			request.Input = job_message.JobInput{
				Type: job_message.ListModelsJobType,
			}
		})

		It("returns the model catalog", func() {
			output := jobRouter.HandleJob(context.Background(), request)

			result, ok := output.(list_models.Result)
			Expect(ok).To(BeTrue())
			Expect(result.Success).To(BeTrue())
			Expect(result.Models).To(HaveLen(4))
			Expect(result.Models[0].ModelFilename).To(Equal(models.VocalInstrumentalModel))
		})

		Describe("When the engine is down", func() {
			BeforeEach(func() {
				dummyEngine.Unavailable = true
			})

			It("returns an error result instead of an error", func() {
				output := jobRouter.HandleJob(context.Background(), request)

				errorResult, ok := output.(job_message.ErrorResult)
				Expect(ok).To(BeTrue())
				Expect(errorResult.Error).To(Equal("Failed to retrieve models"))
				Expect(errorResult.Message).NotTo(BeEmpty())
			})
		})
	})

	Describe("Separate job", func() {
		BeforeEach(func() {
			request.Input.Type = job_message.SeparateJobType
		})

		It("returns a separation result", func() {
			output := jobRouter.HandleJob(context.Background(), request)

			result, ok := output.(separate.Result)
			Expect(ok).To(BeTrue())
			Expect(result.Success).To(BeTrue())
			Expect(result.ModelUsed).To(Equal(models.DefaultModel))
			Expect(result.OutputURLs).To(HaveLen(2))
		})

		Describe("With no job type at all", func() {
			BeforeEach(func() {
				request.Input.Type = ""
			})

			It("treats the job as a separation", func() {
				output := jobRouter.HandleJob(context.Background(), request)

				result, ok := output.(separate.Result)
				Expect(ok).To(BeTrue())
				Expect(result.Success).To(BeTrue())
			})
		})

		Describe("With no audio data", func() {
			BeforeEach(func() {
				request.Input.AudioData = ""
			})

			It("returns the validation failure as an error result", func() {
				output := jobRouter.HandleJob(context.Background(), request)

				errorResult, ok := output.(job_message.ErrorResult)
				Expect(ok).To(BeTrue())
				Expect(errorResult.Error).To(Equal("Missing audio_data"))
			})
		})
	})

	Describe("Advanced separate job", func() {
		BeforeEach(func() {
			request.Input.Type = job_message.AdvancedSeparateJobType
		})

		It("returns a pipeline result", func() {
			output := jobRouter.HandleJob(context.Background(), request)

			result, ok := output.(advanced_separate.Result)
			Expect(ok).To(BeTrue())
			Expect(result.Success).To(BeTrue())
			Expect(result.StepsCompleted).To(HaveLen(4))
			Expect(result.OutputURLs).To(HaveLen(2))
		})
	})

	Describe("Unknown job type", func() {
		BeforeEach(func() {
			request.Input.Type = "make_coffee"
		})

		It("returns an error result naming the bad type", func() {
			output := jobRouter.HandleJob(context.Background(), request)

			errorResult, ok := output.(job_message.ErrorResult)
			Expect(ok).To(BeTrue())
			Expect(errorResult.Error).To(Equal("Unknown job type: make_coffee"))
			Expect(errorResult.Message).To(ContainSubstring("Supported types"))
		})
	})
})
