package graft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graft-ml/grafomer/internal/backend/cpu"
	"github.com/graft-ml/grafomer/internal/modelerr"
	"github.com/graft-ml/grafomer/internal/tensor"
)

func bridgeConfig() BridgeConfig {
	return BridgeConfig{
		Width:         32,
		NumHeads:      4,
		HiddenDim:     64,
		EncoderLayers: 2,
		DecoderLayers: 2,
		EncoderWidth:  48,
		DecoderWidth:  40,
	}
}

func TestBridgeForwardShape(t *testing.T) {
	backend := cpu.New()
	bridge, err := NewGraftBridge(bridgeConfig(), backend)
	require.NoError(t, err)
	assert.Equal(t, 32, bridge.Width())

	encoderHidden := tensor.Randn[float32](tensor.Shape{2, 7, 48}, backend)
	decoderHidden := tensor.Randn[float32](tensor.Shape{2, 4, 40}, backend)

	// The correction comes back in the frozen decoder's width even
	// though the bridge runs narrower internally.
	out := bridge.Forward(encoderHidden, nil, decoderHidden, nil, nil)
	assert.Equal(t, tensor.Shape{2, 4, 40}, out.Shape())
}

func TestBridgeConfigValidation(t *testing.T) {
	backend := cpu.New()

	cases := []struct {
		name   string
		mutate func(*BridgeConfig)
	}{
		{"zero width", func(c *BridgeConfig) { c.Width = 0 }},
		{"indivisible heads", func(c *BridgeConfig) { c.NumHeads = 5 }},
		{"zero hidden dim", func(c *BridgeConfig) { c.HiddenDim = 0 }},
		{"zero encoder layers", func(c *BridgeConfig) { c.EncoderLayers = 0 }},
		{"zero decoder layers", func(c *BridgeConfig) { c.DecoderLayers = 0 }},
		{"zero encoder width", func(c *BridgeConfig) { c.EncoderWidth = 0 }},
		{"zero decoder width", func(c *BridgeConfig) { c.DecoderWidth = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := bridgeConfig()
			tc.mutate(&cfg)
			_, err := NewGraftBridge(cfg, backend)
			require.Error(t, err)
			assert.True(t, modelerr.IsConfiguration(err))
		})
	}
}

func TestBridgeDefaultEps(t *testing.T) {
	cfg := bridgeConfig()
	require.NoError(t, cfg.validate())
	assert.Equal(t, float32(1e-5), cfg.LayerNormEps)
}

func TestBridgeParameters(t *testing.T) {
	backend := cpu.New()
	bridge, err := NewGraftBridge(bridgeConfig(), backend)
	require.NoError(t, err)

	params := bridge.Parameters()
	require.NotEmpty(t, params)
	for _, p := range params {
		assert.NotNil(t, p.Data())
	}

	// 3 poolers with bias plus 2 encoder and 2 decoder blocks.
	// Encoder block: 4 attention linears (8) + 2 norms (4) + 2 ffn
	// linears (4) = 16. Decoder block adds cross attention (8) and its
	// norm (2) = 26.
	assert.Len(t, params, 6+2*16+2*26)
}
