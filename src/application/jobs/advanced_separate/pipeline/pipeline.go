package pipeline

import (
	"audio-separator-worker/src/application/jobs/joberr"
	"audio-separator-worker/src/application/separator/entity"
	"audio-separator-worker/src/application/separator/models"
	"audio-separator-worker/src/lib/cerr"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"
)

// Final artifact roles. Everything else a stage produces is scratch.
const (
	InstrumentalRole   = "instrumental"
	CleanLeadVocalRole = "clean_lead_vocal"
)

// Stage describes one link of the chain as data: which model runs,
// which output of the previous stage feeds it, and which of its own
// outputs survive into the final result.
type Stage struct {
	Name          string
	ModelFilename string

	// FallbackModelFilename substitutes on a load failure. Only the
	// first stage carries one; a load failure anywhere else is fatal.
	FallbackModelFilename string

	// InputIndex selects the previous stage's output to consume.
	// Ignored for the first stage, which consumes the job input.
	InputIndex int

	// FinalRoles maps output indexes to final artifact roles,
	// "" marking outputs that stay scratch.
	FinalRoles [2]string
}

// Stages is the fixed four-step chain. Each model splits its input into
// exactly two stems, so the chain is strictly sequential: every stage's
// sole input is produced by the stage before it.
func Stages() []Stage {
	return []Stage{
		{
			Name:                  "Vocals/Instrumental separation",
			ModelFilename:         models.VocalInstrumentalModel,
			FallbackModelFilename: models.LeadBackingModel,
			FinalRoles:            [2]string{InstrumentalRole, ""},
		},
		{
			Name:          "Lead/Backing vocal separation",
			ModelFilename: models.LeadBackingModel,
			InputIndex:    1, // the vocals stem
		},
		{
			Name:          "DeReverb processing",
			ModelFilename: models.DeReverbModel,
			InputIndex:    1, // the lead vocal stem
		},
		{
			Name:          "Denoise processing",
			ModelFilename: models.DeNoiseModel,
			InputIndex:    0, // the de-reverbed lead vocal stem
			FinalRoles:    [2]string{"", CleanLeadVocalRole},
		},
	}
}

type Result struct {
	InstrumentalPath   string
	CleanLeadVocalPath string
	StepsCompleted     []string
}

func NewRunner(engine entity.Engine) Runner {
	return Runner{
		engine: engine,
	}
}

type Runner struct {
	engine entity.Engine
}

// Run executes the chain against inputFilePath, using scratchDir for
// every intermediate artifact. The caller owns scratchDir teardown;
// the two returned paths live inside it.
func (r Runner) Run(ctx context.Context, inputFilePath string, scratchDir string) (Result, error) {
	finalPaths := map[string]string{}
	stepsCompleted := []string{}

	currentInputPath := inputFilePath
	var previousOutputs []string

	for i, stage := range Stages() {
		stageNumber := i + 1
		logger := log.WithFields(log.Fields{
			"stage": stageNumber,
			"name":  stage.Name,
			"model": stage.ModelFilename,
		})

		if i > 0 {
			currentInputPath = previousOutputs[stage.InputIndex]
		}

		if err := r.loadStageModel(ctx, stage); err != nil {
			return Result{}, err
		}

		stageOutputDir := filepath.Join(scratchDir, fmt.Sprintf("stage-%d", stageNumber))
		if err := os.MkdirAll(stageOutputDir, os.ModePerm); err != nil {
			return Result{}, joberr.New(joberr.InternalKind,
				fmt.Sprintf("%s failed", stage.Name),
				cerr.Wrap(err).Error("Failed to create stage output directory"))
		}

		logger.Info("Running separation stage")
		outputPaths, err := r.engine.Separate(ctx, currentInputPath, stageOutputDir, nil)
		if err != nil {
			return Result{}, joberr.New(joberr.InternalKind,
				fmt.Sprintf("%s failed", stage.Name), err)
		}

		if len(outputPaths) < 2 {
			return Result{}, joberr.New(joberr.StageOutputKind,
				fmt.Sprintf("%s produced insufficient outputs", stage.Name),
				cerr.Field("output_count", len(outputPaths)).
					Error("The engine returned fewer than 2 stems"))
		}

		logger.WithField("output_count", len(outputPaths)).Info("Separation stage complete")

		for outputIndex, role := range stage.FinalRoles {
			if role != "" {
				finalPaths[role] = outputPaths[outputIndex]
			}
		}

		stepsCompleted = append(stepsCompleted, stage.Name)
		previousOutputs = outputPaths
	}

	return Result{
		InstrumentalPath:   finalPaths[InstrumentalRole],
		CleanLeadVocalPath: finalPaths[CleanLeadVocalRole],
		StepsCompleted:     stepsCompleted,
	}, nil
}

func (r Runner) loadStageModel(ctx context.Context, stage Stage) error {
	err := r.engine.LoadModel(ctx, stage.ModelFilename)
	if err == nil {
		return nil
	}

	if stage.FallbackModelFilename == "" {
		return joberr.New(joberr.ModelLoadKind,
			fmt.Sprintf("Failed to load model for %s", stage.Name),
			cerr.Field("model", stage.ModelFilename).Wrap(err).Error("Model load failed"))
	}

	log.WithFields(log.Fields{
		"model":    stage.ModelFilename,
		"fallback": stage.FallbackModelFilename,
	}).Warn("Preferred model failed to load, substituting fallback model")

	if fallbackErr := r.engine.LoadModel(ctx, stage.FallbackModelFilename); fallbackErr != nil {
		return joberr.New(joberr.ModelLoadKind,
			fmt.Sprintf("Failed to load model for %s", stage.Name),
			cerr.Fields(cerr.F{
				"model":    stage.ModelFilename,
				"fallback": stage.FallbackModelFilename,
			}).Wrap(fallbackErr).Error("Fallback model load failed"))
	}

	return nil
}
