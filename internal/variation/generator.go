package variation

import (
	"math"

	"github.com/suPer8Hu/prompt-lab/internal/ai"
	"github.com/suPer8Hu/prompt-lab/internal/scoring"
)

const (
	LabelConservative = "Conservative"
	LabelBalanced     = "Balanced"
	LabelCreative     = "Creative"

	MinTemperature = 0.1
	MaxTemperature = 1.0

	temperatureStep = 0.2
)

// Variation is one synthesized candidate response with its scores.
type Variation struct {
	Label       string           `json:"label" yaml:"label"`
	Temperature float64          `json:"temperature" yaml:"temperature"`
	Text        string           `json:"content" yaml:"content"`
	Parameters  Params           `json:"parameters" yaml:"-"`
	Scores      scoring.ScoreSet `json:"scores" yaml:"scores"`
}

// Generator derives the three temperature variants of a prompt and scores
// each one. It holds no mutable state.
type Generator struct {
	registry *ai.Registry
}

func NewGenerator(registry *ai.Registry) *Generator {
	if registry == nil {
		registry = ai.NewRegistry()
	}
	return &Generator{registry: registry}
}

// Temperatures returns the Conservative, Balanced and Creative
// temperatures for base, each within [MinTemperature, MaxTemperature].
func Temperatures(base float64) [3]float64 {
	return [3]float64{
		clampTemperature(base - temperatureStep),
		clampTemperature(base),
		clampTemperature(base + temperatureStep),
	}
}

func clampTemperature(t float64) float64 {
	return math.Min(MaxTemperature, math.Max(MinTemperature, t))
}

// Generate returns exactly three variations in the order Conservative,
// Balanced, Creative.
func (g *Generator) Generate(prompt string, params Params) []Variation {
	temps := Temperatures(params.Temperature)
	labels := [3]string{LabelConservative, LabelBalanced, LabelCreative}
	provider := g.registry.Resolve(params.Model)

	out := make([]Variation, 0, len(labels))
	for i, label := range labels {
		vp := params.Clone()
		vp.Temperature = temps[i]
		if vp.Extra == nil {
			vp.Extra = make(map[string]any, 1)
		}
		vp.Extra["variation"] = label

		text := provider.Generate(ai.Request{
			Prompt:      prompt,
			Label:       label,
			Temperature: vp.Temperature,
			TopP:        vp.TopP,
			MaxTokens:   vp.MaxTokens,
			Model:       vp.Model,
		})

		out = append(out, Variation{
			Label:       label,
			Temperature: vp.Temperature,
			Text:        text,
			Parameters:  vp,
			Scores:      scoring.Score(text, prompt),
		})
	}
	return out
}
