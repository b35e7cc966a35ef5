package variation

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/prompt-lab/internal/ai"
)

func labels(vs []Variation) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Label)
	}
	return out
}

func temps(vs []Variation) []float64 {
	out := make([]float64, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Temperature)
	}
	return out
}

func TestGenerate_PhotosynthesisExample(t *testing.T) {
	g := NewGenerator(nil)
	p := DefaultParams()
	p.Temperature = 0.7

	vs := g.Generate("How does photosynthesis work?", p)
	require.Len(t, vs, 3)
	assert.Equal(t, []string{LabelConservative, LabelBalanced, LabelCreative}, labels(vs))

	if diff := cmp.Diff([]float64{0.5, 0.7, 0.9}, temps(vs), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("temperatures mismatch (-want +got):\n%s", diff)
	}
	for _, v := range vs {
		assert.Greater(t, v.Scores.Relevance, 0.0, v.Label)
		assert.Contains(t, v.Text, "photosynthesis")
		assert.Contains(t, v.Text, v.Label)
	}
	assert.Contains(t, vs[0].Text, "temperature 0.50.")
}

func TestTemperatures_Bounds(t *testing.T) {
	cases := []struct {
		base float64
		want [3]float64
	}{
		{0.0, [3]float64{0.1, 0.1, 0.2}},
		{1.0, [3]float64{0.8, 1.0, 1.0}},
		{-3, [3]float64{0.1, 0.1, 0.1}},
		{7, [3]float64{1.0, 1.0, 1.0}},
		{0.3, [3]float64{0.1, 0.3, 0.5}},
	}
	for _, tc := range cases {
		got := Temperatures(tc.base)
		for i := range got {
			assert.InDelta(t, tc.want[i], got[i], 1e-9, "base=%v idx=%d", tc.base, i)
			assert.GreaterOrEqual(t, got[i], MinTemperature)
			assert.LessOrEqual(t, got[i], MaxTemperature)
		}
	}
}

func TestTemperatures_Monotonic(t *testing.T) {
	for base := 0.3; base <= 0.8; base += 0.05 {
		got := Temperatures(base)
		assert.LessOrEqual(t, got[0], got[1])
		assert.LessOrEqual(t, got[1], got[2])
	}
}

func TestGenerate_ParameterCopies(t *testing.T) {
	p := DefaultParams()
	p.Extra = map[string]any{"seed": 42.0}

	vs := NewGenerator(nil).Generate("prompt", p)
	for _, v := range vs {
		assert.Equal(t, 42.0, v.Parameters.Extra["seed"])
		assert.Equal(t, v.Label, v.Parameters.Extra["variation"])
		assert.Equal(t, v.Temperature, v.Parameters.Temperature)
	}
	// the caller's parameter set is untouched
	assert.Equal(t, map[string]any{"seed": 42.0}, p.Extra)
	assert.Equal(t, DefaultTemperature, p.Temperature)
}

func TestGenerate_RoutesByModel(t *testing.T) {
	reg := ai.NewRegistry()
	reg.Register("echo", ai.ProviderFunc(func(req ai.Request) string {
		return req.Label + ": " + req.Prompt
	}))
	p := DefaultParams()
	p.Model = "echo"

	vs := NewGenerator(reg).Generate("tell me about rivers", p)
	assert.Equal(t, "Creative: tell me about rivers", vs[2].Text)
	assert.InDelta(t, 100, vs[2].Scores.Relevance, 1e-9)
}

func TestGenerate_Deterministic(t *testing.T) {
	g := NewGenerator(nil)
	a := g.Generate("Explain quantum entanglement in simple terms", DefaultParams())
	b := g.Generate("Explain quantum entanglement in simple terms", DefaultParams())
	assert.Empty(t, cmp.Diff(a, b))
}

func TestParams_UnmarshalDefaults(t *testing.T) {
	var p Params
	require.NoError(t, json.Unmarshal([]byte(`{"temperature":0.4,"seed":7,"topP":null}`), &p))
	assert.Equal(t, 0.4, p.Temperature)
	assert.Equal(t, DefaultTopP, p.TopP)
	assert.Equal(t, DefaultMaxTokens, p.MaxTokens)
	assert.Equal(t, DefaultModel, p.Model)
	assert.Equal(t, map[string]any{"seed": 7.0}, p.Extra)

	var empty Params
	require.NoError(t, json.Unmarshal([]byte(`{}`), &empty))
	assert.Equal(t, DefaultParams(), empty)
}

func TestParams_UnmarshalRejectsNonObject(t *testing.T) {
	var p Params
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &p))
	assert.Error(t, json.Unmarshal([]byte(`{"temperature":"hot"}`), &p))
}

func TestParams_MarshalFlattensExtra(t *testing.T) {
	p := DefaultParams()
	p.Extra = map[string]any{"stop": "END"}
	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"temperature":0.7,"topP":0.9,"maxTokens":1000,"model":"mock-model","stop":"END"}`, string(b))
}
