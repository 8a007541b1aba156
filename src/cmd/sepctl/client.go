package main

import (
	"audio-separator-worker/src/application/jobs/job_message"
	"audio-separator-worker/src/lib/werror"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	statusCompleted = "COMPLETED"
	statusFailed    = "FAILED"
)

type jobEnvelope struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output,omitempty"`
}

// jobOutput is the union of every result shape the worker returns.
type jobOutput struct {
	Success     bool                     `json:"success"`
	Message     string                   `json:"message"`
	Models      []map[string]interface{} `json:"models,omitempty"`
	OutputFiles map[string]string        `json:"output_files,omitempty"`
	OutputURLs  map[string]string        `json:"output_urls,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient accepts either the endpoint base URL or one of its
// /run, /runsync, /status forms and normalizes back to the base.
func NewClient(endpoint string, apiKey string) Client {
	baseURL := strings.TrimRight(endpoint, "/")
	for _, suffix := range []string{"/run", "/runsync", "/status"} {
		if strings.HasSuffix(baseURL, suffix) {
			baseURL = strings.TrimSuffix(baseURL, suffix)
		}
	}

	return Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func (c Client) RunSync(input job_message.JobInput) (jobEnvelope, error) {
	return c.postJob("/runsync", input)
}

func (c Client) Run(input job_message.JobInput) (jobEnvelope, error) {
	return c.postJob("/run", input)
}

func (c Client) Status(jobID string) (jobEnvelope, error) {
	request, err := http.NewRequest(http.MethodGet, c.baseURL+"/status/"+jobID, nil)
	if err != nil {
		return jobEnvelope{}, werror.WrapError("Failed to build status request", err)
	}

	return c.doJobRequest(request)
}

// RunAsync submits the job and polls its status until it reaches a
// terminal state or the deadline passes.
func (c Client) RunAsync(input job_message.JobInput, pollInterval time.Duration, timeout time.Duration) (jobEnvelope, error) {
	submitted, err := c.Run(input)
	if err != nil {
		return jobEnvelope{}, werror.WrapError("Failed to submit job", err)
	}

	if submitted.ID == "" {
		return jobEnvelope{}, werror.WrapError("No job id returned from submission", nil)
	}

	fmt.Printf("Submitted job %s, polling for completion\n", submitted.ID)

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		envelope, err := c.Status(submitted.ID)
		if err != nil {
			return jobEnvelope{}, werror.WrapError("Failed to poll job status", err)
		}

		fmt.Printf("Status: %s\n", envelope.Status)

		if envelope.Status == statusCompleted || envelope.Status == statusFailed {
			return envelope, nil
		}

		time.Sleep(pollInterval)
	}

	return jobEnvelope{}, werror.WrapError("Timed out waiting for job completion", nil)
}

func (c Client) postJob(path string, input job_message.JobInput) (jobEnvelope, error) {
	payload, err := json.Marshal(job_message.JobRequest{Input: input})
	if err != nil {
		return jobEnvelope{}, werror.WrapError("Failed to marshal job request", err)
	}

	request, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return jobEnvelope{}, werror.WrapError("Failed to build job request", err)
	}

	return c.doJobRequest(request)
}

func (c Client) doJobRequest(request *http.Request) (jobEnvelope, error) {
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		request.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return jobEnvelope{}, werror.WrapError("Request failed", err)
	}

	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return jobEnvelope{}, werror.WrapError("Failed to read response body", err)
	}

	if response.StatusCode != http.StatusOK {
		return jobEnvelope{}, werror.WrapError(
			fmt.Sprintf("Unexpected HTTP status %d: %s", response.StatusCode, string(body)), nil)
	}

	envelope := jobEnvelope{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return jobEnvelope{}, werror.WrapError("Failed to parse response JSON", err)
	}

	return envelope, nil
}

func decodeOutput(envelope jobEnvelope) (jobOutput, error) {
	output := jobOutput{}
	if len(envelope.Output) == 0 {
		return output, nil
	}

	if err := json.Unmarshal(envelope.Output, &output); err != nil {
		return jobOutput{}, werror.WrapError("Failed to parse job output", err)
	}

	return output, nil
}

// saveOutputs writes base64 results to disk and downloads URL results.
func (c Client) saveOutputs(output jobOutput, outputDir string) error {
	if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
		return werror.WrapError("Failed to create output directory", err)
	}

	savedAny := false

	for fileName, url := range output.OutputURLs {
		fmt.Printf("Downloading %s <- %s\n", fileName, url)

		response, err := c.httpClient.Get(url)
		if err != nil {
			return werror.WrapError("Failed to download output file", err)
		}

		contents, err := io.ReadAll(response.Body)
		_ = response.Body.Close()
		if err != nil {
			return werror.WrapError("Failed to read downloaded file", err)
		}

		filePath := filepath.Join(outputDir, fileName)
		if err := os.WriteFile(filePath, contents, os.ModePerm); err != nil {
			return werror.WrapError("Failed to save downloaded file", err)
		}

		fmt.Printf("Saved %s\n", filePath)
		savedAny = true
	}

	for fileName, encodedContents := range output.OutputFiles {
		contents, err := base64.StdEncoding.DecodeString(encodedContents)
		if err != nil {
			return werror.WrapError("Failed to decode base64 output file", err)
		}

		filePath := filepath.Join(outputDir, fileName)
		if err := os.WriteFile(filePath, contents, os.ModePerm); err != nil {
			return werror.WrapError("Failed to save decoded file", err)
		}

		fmt.Printf("Saved %s\n", filePath)
		savedAny = true
	}

	if !savedAny {
		fmt.Println("Nothing to save - the result contained no output files or URLs")
	}

	return nil
}
