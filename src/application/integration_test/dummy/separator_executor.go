package dummy

import (
	"audio-separator-worker/src/application/executor"
	"audio-separator-worker/src/application/separator/models"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var _ executor.Executor = (*SeparatorExecutor)(nil)

// SeparatorExecutor emulates the audio-separator binary's three
// invocation shapes: model download, model listing, and separation.
func NewDummySeparatorExecutor() *SeparatorExecutor {
	return &SeparatorExecutor{
		Unavailable: false,
	}
}

type SeparatorExecutor struct {
	Unavailable bool
	Commands    [][]string
}

func (s *SeparatorExecutor) Command(_ string, arg ...string) executor.Command {
	s.Commands = append(s.Commands, arg)
	return &SeparatorCommand{
		Unavailable: s.Unavailable,
		Args:        arg,
	}
}

type SeparatorCommand struct {
	Unavailable bool
	Args        []string
}

func (s *SeparatorCommand) SetDir(_ string) {}

func (s *SeparatorCommand) CombinedOutput() ([]byte, error) {
	if s.Unavailable {
		return nil, NetworkFailure
	}

	switch s.Args[0] {
	case "--download_model_only":
		return s.downloadModel()
	case "--list_models":
		return s.listModels()
	default:
		return s.separate()
	}
}

func (s *SeparatorCommand) downloadModel() ([]byte, error) {
	modelFilename, err := getOptionValue(s.Args, "-m")
	if err != nil {
		return nil, err
	}

	modelFileDir, err := getOptionValue(s.Args, "--model_file_dir")
	if err != nil {
		return nil, err
	}

	if _, ok := models.Lookup(modelFilename); !ok {
		return nil, ModelMissing
	}

	modelPath := filepath.Join(modelFileDir, modelFilename)
	if err := os.WriteFile(modelPath, []byte("model-weights"), os.ModePerm); err != nil {
		return nil, err
	}

	return []byte("Download complete"), nil
}

func (s *SeparatorCommand) listModels() ([]byte, error) {
	modelList := []map[string]interface{}{}
	for _, model := range models.Required() {
		modelList = append(modelList, map[string]interface{}{
			"model_filename": model.Filename,
			"friendly_name":  model.FriendlyName,
			"output_stems":   []string{model.Stems.First, model.Stems.Second},
		})
	}

	return json.Marshal(modelList)
}

func (s *SeparatorCommand) separate() ([]byte, error) {
	sourcePath := s.Args[0]

	modelFilename, err := getOptionValue(s.Args, "-m")
	if err != nil {
		return nil, err
	}

	destinationDir, err := getOptionValue(s.Args, "--output_dir")
	if err != nil {
		return nil, err
	}

	outputFormat, err := getOptionValue(s.Args, "--output_format")
	if err != nil {
		return nil, err
	}

	customOutputNames := map[string]string{}
	if namesJSON, err := getOptionValue(s.Args, "--custom_output_names"); err == nil {
		if err := json.Unmarshal([]byte(namesJSON), &customOutputNames); err != nil {
			return nil, err
		}
	}

	model, ok := models.Lookup(modelFilename)
	if !ok {
		return nil, ModelMissing
	}

	contents, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, err
	}

	extension := strings.ToLower(outputFormat)
	inputBase := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	modelTag := strings.TrimSuffix(modelFilename, filepath.Ext(modelFilename))

	for _, stemLabel := range model.Stems.Labels() {
		fileName := fmt.Sprintf("%s_(%s)_%s.%s", inputBase, stemLabel, modelTag, extension)
		if customName, ok := customOutputNames[stemLabel]; ok {
			fileName = fmt.Sprintf("%s.%s", customName, extension)
		}

		stemPath := filepath.Join(destinationDir, fileName)
		stemContents := []byte(string(contents) + "-" + stemLabel)
		if err := os.WriteFile(stemPath, stemContents, os.ModePerm); err != nil {
			return nil, err
		}
	}

	return []byte("Success"), nil
}

func getOptionValue(args []string, key string) (string, error) {
	for i, arg := range args {
		if arg == key && i+1 < len(args) {
			return args[i+1], nil
		}
	}

	return "", UnexpectedInput
}
