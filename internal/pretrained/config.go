// Package pretrained provides the frozen encoder and decoder networks
// that the graft bridge connects and the synthesis layer draws
// parameters from, plus the registry resolving architecture families to
// model builders.
package pretrained

import (
	"os"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/graft-ml/grafomer/internal/modelerr"
)

// Config describes one pretrained network. Family selects the
// architecture via the registry; the remaining fields size the stack.
type Config struct {
	Family string `json:"family" yaml:"family"`

	VocabSize        int     `json:"vocab_size" yaml:"vocab_size"`
	HiddenSize       int     `json:"hidden_size" yaml:"hidden_size"`
	NumLayers        int     `json:"num_layers" yaml:"num_layers"`
	NumHeads         int     `json:"num_heads" yaml:"num_heads"`
	IntermediateSize int     `json:"intermediate_size" yaml:"intermediate_size"`
	MaxPositions     int     `json:"max_positions" yaml:"max_positions"`
	LayerNormEps     float32 `json:"layer_norm_eps" yaml:"layer_norm_eps"`

	PadTokenID int `json:"pad_token_id" yaml:"pad_token_id"`
	BOSTokenID int `json:"bos_token_id" yaml:"bos_token_id"`
	EOSTokenID int `json:"eos_token_id" yaml:"eos_token_id"`
}

// Validate checks the structural fields.
func (c *Config) Validate() error {
	switch {
	case c.Family == "":
		return modelerr.Configf("pretrained config: family is required")
	case c.VocabSize <= 0:
		return modelerr.Configf("pretrained config: vocab_size must be positive, got %d", c.VocabSize)
	case c.HiddenSize <= 0:
		return modelerr.Configf("pretrained config: hidden_size must be positive, got %d", c.HiddenSize)
	case c.NumLayers <= 0:
		return modelerr.Configf("pretrained config: num_layers must be positive, got %d", c.NumLayers)
	case c.NumHeads <= 0 || c.HiddenSize%c.NumHeads != 0:
		return modelerr.Configf("pretrained config: hidden_size %d not divisible by num_heads %d", c.HiddenSize, c.NumHeads)
	case c.IntermediateSize <= 0:
		return modelerr.Configf("pretrained config: intermediate_size must be positive, got %d", c.IntermediateSize)
	case c.MaxPositions <= 0:
		return modelerr.Configf("pretrained config: max_positions must be positive, got %d", c.MaxPositions)
	}
	if c.LayerNormEps == 0 {
		c.LayerNormEps = 1e-5
	}
	return nil
}

// LoadConfig reads and validates a JSON model spec from path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read model spec %s", path)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, modelerr.WrapConfig(err, "parse model spec "+path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
