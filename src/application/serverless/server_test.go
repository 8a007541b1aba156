package serverless_test

import (
	"audio-separator-worker/src/application/assemble"
	"audio-separator-worker/src/application/integration_test/dummy"
	"audio-separator-worker/src/application/jobs/advanced_separate"
	"audio-separator-worker/src/application/jobs/job_message"
	"audio-separator-worker/src/application/jobs/job_router"
	"audio-separator-worker/src/application/jobs/list_models"
	"audio-separator-worker/src/application/jobs/separate"
	"audio-separator-worker/src/application/serverless"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/gomega"

	. "github.com/onsi/ginkgo"
)

// jobEnvelope mirrors the wire shape so tests decode what a real
// platform client would see.
type jobEnvelope struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
}

var _ = Describe("Serverless HTTP surface", func() {
	var (
		dummyEngine   *dummy.Engine
		dummyUploader *dummy.Uploader

		server *serverless.Server

		separateRequestBody []byte

		postJSON = func(path string, body []byte) *httptest.ResponseRecorder {
			request := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
			request.Header.Set("Content-Type", "application/json")

			recorder := httptest.NewRecorder()
			server.Handler().ServeHTTP(recorder, request)
			return recorder
		}

		get = func(path string) *httptest.ResponseRecorder {
			request := httptest.NewRequest(http.MethodGet, path, nil)

			recorder := httptest.NewRecorder()
			server.Handler().ServeHTTP(recorder, request)
			return recorder
		}

		decodeEnvelope = func(recorder *httptest.ResponseRecorder) jobEnvelope {
			envelope := jobEnvelope{}
			err := json.Unmarshal(recorder.Body.Bytes(), &envelope)
			Expect(err).NotTo(HaveOccurred())
			return envelope
		}
	)

	BeforeEach(func() {
		By("Instantiating all dummies", func() {
			dummyEngine = dummy.NewDummyEngine()
			dummyUploader = dummy.NewDummyUploader()
		})

		By("Instantiating the server", func() {
			assembler := assemble.NewAssembler(dummyUploader)
			router := job_router.NewJobRouter(
				list_models.NewJobHandler(dummyEngine),
				separate.NewJobHandler(dummyEngine, assembler, workingDir),
				advanced_separate.NewJobHandler(dummyEngine, assembler, workingDir),
			)

			server = serverless.NewServer("localhost:0", router)
		})

		By("Building a job request body", func() {
			request := job_message.JobRequest{
				Input: job_message.JobInput{
					Type:      job_message.SeparateJobType,
					AudioData: base64.StdEncoding.EncodeToString([]byte("cool_jamz")),
				},
			}

			var err error
			separateRequestBody, err = json.Marshal(request)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("POST /runsync", func() {
		It("runs the job and returns a completed envelope", func() {
			recorder := postJSON("/runsync", separateRequestBody)
			Expect(recorder.Code).To(Equal(http.StatusOK))

			envelope := decodeEnvelope(recorder)
			Expect(envelope.ID).NotTo(BeEmpty())
			Expect(envelope.Status).To(Equal("COMPLETED"))

			result := separate.Result{}
			err := json.Unmarshal(envelope.Output, &result)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Success).To(BeTrue())
			Expect(result.OutputURLs).To(HaveLen(2))
		})

		It("marks failed jobs as FAILED but still returns 200", func() {
			request := job_message.JobRequest{
				Input: job_message.JobInput{
					Type: "make_coffee",
				},
			}
			body, err := json.Marshal(request)
			Expect(err).NotTo(HaveOccurred())

			recorder := postJSON("/runsync", body)
			Expect(recorder.Code).To(Equal(http.StatusOK))

			envelope := decodeEnvelope(recorder)
			Expect(envelope.Status).To(Equal("FAILED"))

			errorResult := job_message.ErrorResult{}
			err = json.Unmarshal(envelope.Output, &errorResult)
			Expect(err).NotTo(HaveOccurred())
			Expect(errorResult.Error).To(Equal("Unknown job type: make_coffee"))
		})

		It("rejects a body that isn't a job request", func() {
			recorder := postJSON("/runsync", []byte("not json"))
			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /run then GET /status/:id", func() {
		It("queues the job and eventually completes it", func() {
			recorder := postJSON("/run", separateRequestBody)
			Expect(recorder.Code).To(Equal(http.StatusOK))

			envelope := decodeEnvelope(recorder)
			Expect(envelope.ID).NotTo(BeEmpty())
			Expect(envelope.Status).To(Equal("IN_QUEUE"))

			statusPath := fmt.Sprintf("/status/%s", envelope.ID)

			Eventually(func() string {
				return decodeEnvelope(get(statusPath)).Status
			}).Should(Equal("COMPLETED"))

			finalEnvelope := decodeEnvelope(get(statusPath))

			result := separate.Result{}
			err := json.Unmarshal(finalEnvelope.Output, &result)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Success).To(BeTrue())
		})

		It("eventually marks a failing job as FAILED", func() {
			request := job_message.JobRequest{
				Input: job_message.JobInput{
					Type: job_message.SeparateJobType,
					// no audio data
				},
			}
			body, err := json.Marshal(request)
			Expect(err).NotTo(HaveOccurred())

			envelope := decodeEnvelope(postJSON("/run", body))
			statusPath := fmt.Sprintf("/status/%s", envelope.ID)

			Eventually(func() string {
				return decodeEnvelope(get(statusPath)).Status
			}).Should(Equal("FAILED"))
		})

		It("404s for an unknown job id", func() {
			recorder := get("/status/no-such-job")
			Expect(recorder.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("Job serialization", func() {
		BeforeEach(func() {
			dummyEngine.Delay = 50 * time.Millisecond
		})

		It("never overlaps two synchronous runs inside the engine", func() {
			var wg sync.WaitGroup
			recorders := make([]*httptest.ResponseRecorder, 2)

			for i := range recorders {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					recorders[i] = postJSON("/runsync", separateRequestBody)
				}(i)
			}
			wg.Wait()

			for _, recorder := range recorders {
				Expect(recorder.Code).To(Equal(http.StatusOK))
				Expect(decodeEnvelope(recorder).Status).To(Equal("COMPLETED"))
			}

			Expect(dummyEngine.MaxConcurrentJobs).To(Equal(1))
		})

		It("never overlaps a synchronous run with a queued run", func() {
			queuedEnvelope := decodeEnvelope(postJSON("/run", separateRequestBody))

			syncRecorder := postJSON("/runsync", separateRequestBody)
			Expect(decodeEnvelope(syncRecorder).Status).To(Equal("COMPLETED"))

			Eventually(func() string {
				return decodeEnvelope(get(fmt.Sprintf("/status/%s", queuedEnvelope.ID))).Status
			}).Should(Equal("COMPLETED"))

			Expect(dummyEngine.MaxConcurrentJobs).To(Equal(1))
		})
	})

	Describe("When the job queue is full", func() {
		BeforeEach(func() {
			dummyEngine.Delay = 100 * time.Millisecond
		})

		It("rejects the overflowing submission instead of blocking", func() {
			overloadedCount := 0

			// one job in flight plus a full buffer, then at least one more
			for i := 0; i < 102; i++ {
				recorder := postJSON("/run", separateRequestBody)

				switch recorder.Code {
				case http.StatusOK:
				case http.StatusServiceUnavailable:
					overloadedCount++

					errorResult := job_message.ErrorResult{}
					err := json.Unmarshal(recorder.Body.Bytes(), &errorResult)
					Expect(err).NotTo(HaveOccurred())
					Expect(errorResult.Error).To(Equal("Server overloaded"))
				default:
					Fail(fmt.Sprintf("unexpected status code %d", recorder.Code))
				}
			}

			Expect(overloadedCount).To(BeNumerically(">=", 1))
		})
	})

	Describe("GET /health-check", func() {
		It("responds OK", func() {
			recorder := get("/health-check")
			Expect(recorder.Code).To(Equal(http.StatusOK))
		})
	})
})
