package models

// Model filenames understood by the separation engine. Each one is a
// single purpose two-stem splitter.
const (
	VocalInstrumentalModel = "Kim_Vocal_1.onnx"
	LeadBackingModel       = "UVR_MDXNET_KARA.onnx"
	DeReverbModel          = "UVR-De-Echo-Aggressive.pth"
	DeNoiseModel           = "UVR-DeNoise.pth"
)

const DefaultModel = VocalInstrumentalModel

// StemPair declares the engine's output ordering convention for a model.
// Index 0 produces First, index 1 produces Second. The ordering is a
// contract with the engine, so it lives here as configuration rather
// than as positional assumptions at the call sites.
type StemPair struct {
	First  string
	Second string
}

func (s StemPair) Labels() [2]string {
	return [2]string{s.First, s.Second}
}

type Model struct {
	Filename     string
	FriendlyName string
	Stems        StemPair
}

var knownModels = map[string]Model{
	VocalInstrumentalModel: {
		Filename:     VocalInstrumentalModel,
		FriendlyName: "MDX-Net Kim Vocal 1 (vocals/instrumental)",
		Stems:        StemPair{First: "Instrumental", Second: "Vocals"},
	},
	LeadBackingModel: {
		Filename:     LeadBackingModel,
		FriendlyName: "MDX-Net Karaoke (lead/backing vocals)",
		Stems:        StemPair{First: "Backing Vocals", Second: "Lead Vocals"},
	},
	DeReverbModel: {
		Filename:     DeReverbModel,
		FriendlyName: "UVR De-Echo Aggressive (reverb removal)",
		Stems:        StemPair{First: "No Reverb", Second: "Reverb"},
	},
	DeNoiseModel: {
		Filename:     DeNoiseModel,
		FriendlyName: "UVR DeNoise (noise removal)",
		Stems:        StemPair{First: "Noise", Second: "No Noise"},
	},
}

func Lookup(filename string) (Model, bool) {
	model, ok := knownModels[filename]
	return model, ok
}

// Required returns every model the advanced pipeline depends on,
// in the order the stages use them.
func Required() []Model {
	return []Model{
		knownModels[VocalInstrumentalModel],
		knownModels[LeadBackingModel],
		knownModels[DeReverbModel],
		knownModels[DeNoiseModel],
	}
}
