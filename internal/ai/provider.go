package ai

import "fmt"

// Request describes one candidate to synthesize.
type Request struct {
	Prompt      string
	Label       string
	Temperature float64
	TopP        float64
	MaxTokens   int
	Model       string
}

// Provider produces candidate text for a request. Implementations must be
// deterministic and free of side effects so that scoring stays pure.
type Provider interface {
	Generate(req Request) string
}

// ProviderFunc adapts a plain function to Provider.
type ProviderFunc func(req Request) string

func (f ProviderFunc) Generate(req Request) string { return f(req) }

const (
	// MockModel is the model name served by TemplateProvider.
	MockModel = "mock-model"

	excerptLen = 60
)

// TemplateProvider stands in for a generation backend. Its output embeds
// the variant label, a prompt excerpt, and the effective temperature.
type TemplateProvider struct{}

func (TemplateProvider) Generate(req Request) string {
	return fmt.Sprintf(`Simulated %s response for prompt: "%s..." with temperature %.2f.`,
		req.Label, excerpt(req.Prompt, excerptLen), req.Temperature)
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
