package variation

import (
	"encoding/json"
	"errors"
	"maps"

	"github.com/suPer8Hu/prompt-lab/internal/ai"
)

const (
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9
	DefaultMaxTokens   = 1000
	DefaultModel       = ai.MockModel
)

// Params is the generation parameter set. Recognized options have
// defaults; anything else travels in Extra and is echoed back unchanged.
type Params struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
	Model       string
	Extra       map[string]any
}

func DefaultParams() Params {
	return Params{
		Temperature: DefaultTemperature,
		TopP:        DefaultTopP,
		MaxTokens:   DefaultMaxTokens,
		Model:       DefaultModel,
	}
}

// Clone returns a copy whose Extra map is not shared with p.
func (p Params) Clone() Params {
	out := p
	if p.Extra != nil {
		out.Extra = maps.Clone(p.Extra)
	}
	return out
}

var errParamsNotObject = errors.New("parameters must be a JSON object")

// UnmarshalJSON fills defaults for absent (or null) recognized keys and
// collects unrecognized keys into Extra.
func (p *Params) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return errParamsNotObject
	}
	if raw == nil {
		return errParamsNotObject
	}

	out := DefaultParams()
	for k, v := range raw {
		var err error
		switch k {
		case "temperature":
			err = json.Unmarshal(v, &out.Temperature)
		case "topP":
			err = json.Unmarshal(v, &out.TopP)
		case "maxTokens":
			err = json.Unmarshal(v, &out.MaxTokens)
		case "model":
			err = json.Unmarshal(v, &out.Model)
		default:
			var val any
			err = json.Unmarshal(v, &val)
			if out.Extra == nil {
				out.Extra = make(map[string]any)
			}
			out.Extra[k] = val
		}
		if err != nil {
			return err
		}
	}
	if out.Model == "" {
		out.Model = DefaultModel
	}
	*p = out
	return nil
}

// MarshalJSON flattens Extra next to the recognized keys.
func (p Params) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(p.Extra)+4)
	maps.Copy(m, p.Extra)
	m["temperature"] = p.Temperature
	m["topP"] = p.TopP
	m["maxTokens"] = p.MaxTokens
	m["model"] = p.Model
	return json.Marshal(m)
}
