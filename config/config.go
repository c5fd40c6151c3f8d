// Package config loads the YAML experiment configuration: the two
// pretrained network specs, the bridge dimensions, optional student
// stack specs and generation defaults. Everything here is load-time
// state, immutable for the lifetime of a model instance.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/graft-ml/grafomer/internal/graft"
	"github.com/graft-ml/grafomer/internal/modelerr"
	"github.com/graft-ml/grafomer/internal/pretrained"
)

// Bridge sizes the graft bridge.
type Bridge struct {
	Width         int     `yaml:"width"`
	NumHeads      int     `yaml:"num_heads"`
	HiddenDim     int     `yaml:"hidden_dim"`
	EncoderLayers int     `yaml:"encoder_layers"`
	DecoderLayers int     `yaml:"decoder_layers"`
	LayerNormEps  float32 `yaml:"layer_norm_eps"`
}

// Student sizes the synthesized stacks. When present, the student
// variant of the model can be built against the frozen pair as teacher.
type Student struct {
	Encoder pretrained.Config `yaml:"encoder"`
	Decoder pretrained.Config `yaml:"decoder"`
}

// Generation holds decoding defaults.
type Generation struct {
	MaxNewTokens int     `yaml:"max_new_tokens"`
	EOSTokenID   int     `yaml:"eos_token_id"`
	Temperature  float32 `yaml:"temperature"`
}

// Config is the root of the experiment file.
type Config struct {
	Encoder pretrained.Config `yaml:"encoder"`
	Decoder pretrained.Config `yaml:"decoder"`

	DecoderStartTokenID int    `yaml:"decoder_start_token_id"`
	Bridge              Bridge `yaml:"bridge"`

	Student *Student `yaml:"student,omitempty"`

	Generation Generation `yaml:"generation"`
}

// Load reads and validates an experiment file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates raw YAML.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, modelerr.WrapConfig(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the embedded network specs and bridge sizes.
func (c *Config) Validate() error {
	if err := c.Encoder.Validate(); err != nil {
		return err
	}
	if err := c.Decoder.Validate(); err != nil {
		return err
	}
	if c.Student != nil {
		if err := c.Student.Encoder.Validate(); err != nil {
			return err
		}
		if err := c.Student.Decoder.Validate(); err != nil {
			return err
		}
	}
	if c.Generation.MaxNewTokens == 0 {
		c.Generation.MaxNewTokens = 64
	}
	// Bridge sizing is fully validated when the bridge is built; catch
	// the obviously missing case early.
	if c.Bridge.Width <= 0 {
		return modelerr.Configf("config: bridge.width is required")
	}
	return nil
}

// ModelConfig converts the bridge section into the model's form. The
// outer widths are filled in by the model from its encoder and decoder.
func (c *Config) ModelConfig() graft.ModelConfig {
	return graft.ModelConfig{
		DecoderStartTokenID: c.DecoderStartTokenID,
		Bridge: graft.BridgeConfig{
			Width:         c.Bridge.Width,
			NumHeads:      c.Bridge.NumHeads,
			HiddenDim:     c.Bridge.HiddenDim,
			EncoderLayers: c.Bridge.EncoderLayers,
			DecoderLayers: c.Bridge.DecoderLayers,
			LayerNormEps:  c.Bridge.LayerNormEps,
		},
	}
}
