package list_models_test

import (
	"audio-separator-worker/src/application/integration_test/dummy"
	"audio-separator-worker/src/application/jobs/joberr"
	"audio-separator-worker/src/application/jobs/list_models"
	"audio-separator-worker/src/application/separator/models"
	"context"

	. "github.com/onsi/gomega"

	. "github.com/onsi/ginkgo"
)

var _ = Describe("List models handler", func() {
	var (
		dummyEngine *dummy.Engine
		handler     list_models.JobHandler
	)

	BeforeEach(func() {
		dummyEngine = dummy.NewDummyEngine()
		handler = list_models.NewJobHandler(dummyEngine)
	})

	Describe("Happy path", func() {
		It("returns every known model", func() {
			result, err := handler.HandleListModelsJob(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Success).To(BeTrue())
			Expect(result.Message).To(Equal("Available models retrieved successfully"))
			Expect(result.Models).To(HaveLen(4))

			modelFilenames := []string{}
			for _, model := range result.Models {
				Expect(model.FriendlyName).NotTo(BeEmpty())
				Expect(model.OutputStems).To(HaveLen(2))
				modelFilenames = append(modelFilenames, model.ModelFilename)
			}

			Expect(modelFilenames).To(ConsistOf(
				models.VocalInstrumentalModel,
				models.LeadBackingModel,
				models.DeReverbModel,
				models.DeNoiseModel,
			))
		})
	})

	Describe("When the engine is down", func() {
		BeforeEach(func() {
			dummyEngine.Unavailable = true
		})

		It("returns an internal error", func() {
			_, err := handler.HandleListModelsJob(context.Background())
			Expect(err).To(HaveOccurred())

			jobErr, ok := joberr.As(err)
			Expect(ok).To(BeTrue())
			Expect(jobErr.Kind).To(Equal(joberr.InternalKind))
			Expect(jobErr.Title).To(Equal("Failed to retrieve models"))
		})
	})
})
