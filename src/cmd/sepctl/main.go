package main

import (
	"audio-separator-worker/src/application/jobs/job_message"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	endpointFlag string
	apiKeyFlag   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sepctl",
		Short: "Test client for a deployed audio separation endpoint",
	}

	rootCmd.PersistentFlags().StringVar(&endpointFlag, "endpoint", "", "endpoint base URL, e.g. https://api.example.com/v2/<ENDPOINT_ID>")
	rootCmd.PersistentFlags().StringVar(&apiKeyFlag, "api-key", "", "bearer token for the endpoint")
	_ = rootCmd.MarkPersistentFlagRequired("endpoint")

	rootCmd.AddCommand(newPingCommand())
	rootCmd.AddCommand(newListModelsCommand())
	rootCmd.AddCommand(newRunCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newPingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check connectivity with a synchronous list_models request",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewClient(endpointFlag, apiKeyFlag)

			envelope, err := client.RunSync(job_message.JobInput{
				Type: job_message.ListModelsJobType,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Endpoint is reachable, job %s finished with status %s\n", envelope.ID, envelope.Status)
			return nil
		},
	}
}

func newListModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list-models",
		Short: "List the models the endpoint can separate with",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewClient(endpointFlag, apiKeyFlag)

			envelope, err := client.RunSync(job_message.JobInput{
				Type: job_message.ListModelsJobType,
			})
			if err != nil {
				return err
			}

			return printEnvelope(envelope)
		},
	}
}

func newRunCommand() *cobra.Command {
	var (
		audioPath    string
		advanced     bool
		model        string
		outputFormat string
		returnType   string
		async        bool
		pollInterval time.Duration
		timeout      time.Duration
		outputDir    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Submit an audio file for separation and save the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			audioBytes, err := os.ReadFile(audioPath)
			if err != nil {
				return err
			}

			fmt.Printf("Input file: %s (%d bytes)\n", audioPath, len(audioBytes))

			jobType := job_message.SeparateJobType
			if advanced {
				jobType = job_message.AdvancedSeparateJobType
			}

			input := job_message.JobInput{
				Type:          jobType,
				AudioData:     base64.StdEncoding.EncodeToString(audioBytes),
				ModelFilename: model,
				OutputFormat:  outputFormat,
				ReturnType:    returnType,
			}

			client := NewClient(endpointFlag, apiKeyFlag)

			var envelope jobEnvelope
			if async {
				envelope, err = client.RunAsync(input, pollInterval, timeout)
			} else {
				envelope, err = client.RunSync(input)
			}
			if err != nil {
				return err
			}

			if err := printEnvelope(envelope); err != nil {
				return err
			}

			output, err := decodeOutput(envelope)
			if err != nil {
				return err
			}

			if envelope.Status == statusFailed || output.Error != "" {
				return fmt.Errorf("job failed: %s - %s", output.Error, output.Message)
			}

			return client.saveOutputs(output, outputDir)
		},
	}

	cmd.Flags().StringVar(&audioPath, "audio", "", "path to the input audio file")
	cmd.Flags().BoolVar(&advanced, "advanced", false, "run the 4-stage advanced pipeline instead of a single split")
	cmd.Flags().StringVar(&model, "model", "", "model filename for single splits (server default if empty)")
	cmd.Flags().StringVar(&outputFormat, "output-format", "WAV", "output container format")
	cmd.Flags().StringVar(&returnType, "return-type", "url", "result mode: url or base64")
	cmd.Flags().BoolVar(&async, "async", false, "submit via /run and poll /status instead of /runsync")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 5*time.Second, "async status polling interval")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "async completion deadline")
	cmd.Flags().StringVar(&outputDir, "output-dir", "output_results", "directory to save result files into")
	_ = cmd.MarkFlagRequired("audio")

	return cmd
}

func printEnvelope(envelope jobEnvelope) error {
	pretty, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(pretty))
	return nil
}
