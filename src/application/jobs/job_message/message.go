package job_message

const (
	ListModelsJobType       string = "list_models"
	SeparateJobType         string = "separate"
	AdvancedSeparateJobType string = "advanced_separate"
)

const (
	ReturnTypeURL    string = "url"
	ReturnTypeBase64 string = "base64"
)

const DefaultOutputFormat string = "WAV"

// JobRequest is the envelope the platform hands to the worker.
type JobRequest struct {
	Input JobInput `json:"input"`
}

type JobInput struct {
	Type              string            `json:"type"`
	AudioData         string            `json:"audio_data,omitempty"`
	ModelFilename     string            `json:"model_filename,omitempty"`
	OutputFormat      string            `json:"output_format,omitempty"`
	CustomOutputNames map[string]string `json:"custom_output_names,omitempty"`
	ReturnType        string            `json:"return_type,omitempty"`
}

func (j JobInput) ReturnTypeOrDefault() string {
	if j.ReturnType == "" {
		return ReturnTypeURL
	}

	return j.ReturnType
}

func (j JobInput) OutputFormatOrDefault() string {
	if j.OutputFormat == "" {
		return DefaultOutputFormat
	}

	return j.OutputFormat
}

// ErrorResult is the uniform failure shape. Every failure, from a missing
// field to an engine crash, leaves the worker looking like this.
type ErrorResult struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
