// Package graft implements the bridge that couples two independently
// pretrained networks: a small trainable encoder/decoder pair inserted
// between a frozen encoder's output and a frozen decoder's hidden
// state, plus the top-level model that combines them.
package graft

import (
	"github.com/graft-ml/grafomer/internal/modelerr"
	"github.com/graft-ml/grafomer/internal/nn"
	"github.com/graft-ml/grafomer/internal/tensor"
)

// BridgeConfig sizes the graft bridge.
type BridgeConfig struct {
	// Width is the bridge's internal hidden size. It may differ from
	// both outer widths; the poolers reconcile them.
	Width         int
	NumHeads      int
	HiddenDim     int
	EncoderLayers int
	DecoderLayers int
	LayerNormEps  float32

	// EncoderWidth and DecoderWidth are the hidden sizes of the frozen
	// networks the bridge sits between.
	EncoderWidth int
	DecoderWidth int
}

func (c *BridgeConfig) validate() error {
	switch {
	case c.Width <= 0:
		return modelerr.Configf("bridge: width must be positive, got %d", c.Width)
	case c.NumHeads <= 0 || c.Width%c.NumHeads != 0:
		return modelerr.Configf("bridge: width %d not divisible by num heads %d", c.Width, c.NumHeads)
	case c.HiddenDim <= 0:
		return modelerr.Configf("bridge: hidden dim must be positive, got %d", c.HiddenDim)
	case c.EncoderLayers <= 0 || c.DecoderLayers <= 0:
		return modelerr.Configf("bridge: layer counts must be positive, got %d/%d", c.EncoderLayers, c.DecoderLayers)
	case c.EncoderWidth <= 0 || c.DecoderWidth <= 0:
		return modelerr.Configf("bridge: outer widths must be positive, got %d/%d", c.EncoderWidth, c.DecoderWidth)
	}
	if c.LayerNormEps == 0 {
		c.LayerNormEps = 1e-5
	}
	return nil
}

// GraftBridge refines the frozen encoder's output with its own encoder
// layers, runs its own causal decoder layers with cross-attention to
// the refined states, and emits a correction in the frozen decoder's
// width. The outer model adds the correction residually before the
// language model head, so all task-specific capacity lives here while
// the pretrained halves stay frozen.
type GraftBridge[B tensor.Backend] struct {
	cfg BridgeConfig

	encPool *nn.Linear[B]
	inPool  *nn.Linear[B]
	outPool *nn.Linear[B]

	encLayers []*nn.EncoderBlock[B]
	decLayers []*nn.DecoderBlock[B]
}

// NewGraftBridge builds the bridge from a validated config.
func NewGraftBridge[B tensor.Backend](cfg BridgeConfig, b B) (*GraftBridge[B], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	block := nn.BlockConfig{
		EmbedDim:  cfg.Width,
		NumHeads:  cfg.NumHeads,
		HiddenDim: cfg.HiddenDim,
		Eps:       cfg.LayerNormEps,
	}
	g := &GraftBridge[B]{
		cfg:     cfg,
		encPool: nn.NewLinear(cfg.EncoderWidth, cfg.Width, true, b),
		inPool:  nn.NewLinear(cfg.DecoderWidth, cfg.Width, true, b),
		outPool: nn.NewLinear(cfg.Width, cfg.DecoderWidth, true, b),
	}
	for i := 0; i < cfg.EncoderLayers; i++ {
		g.encLayers = append(g.encLayers, nn.NewEncoderBlock(block, b))
	}
	for i := 0; i < cfg.DecoderLayers; i++ {
		g.decLayers = append(g.decLayers, nn.NewDecoderBlock(block, true, b))
	}
	return g, nil
}

// Forward produces a correction tensor shaped like decoderHidden.
//
// encoderHidden is [batch, srcLen, encoderWidth] and decoderHidden
// [batch, tgtLen, decoderWidth]. The masks are additive: encoderMask
// over encoder self-attention, decoderMask over bridge decoder
// self-attention (causality is applied by the blocks themselves), and
// crossMask between decoder queries and encoder keys. Any mask may be
// nil.
func (g *GraftBridge[B]) Forward(encoderHidden, encoderMask, decoderHidden, decoderMask, crossMask *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	enc := g.encPool.Forward(encoderHidden)
	for _, layer := range g.encLayers {
		enc = layer.Forward(enc, encoderMask)
	}

	dec := g.inPool.Forward(decoderHidden)
	for i, layer := range g.decLayers {
		dec = layer.Forward(dec, enc, decoderMask, crossMask, nil, i)
	}
	return g.outPool.Forward(dec)
}

// Width returns the bridge's internal hidden size.
func (g *GraftBridge[B]) Width() int { return g.cfg.Width }

// Parameters returns all bridge parameters: poolers, encoder layers,
// decoder layers.
func (g *GraftBridge[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	params = append(params, g.encPool.Parameters()...)
	params = append(params, g.inPool.Parameters()...)
	params = append(params, g.outPool.Parameters()...)
	for _, l := range g.encLayers {
		params = append(params, l.Parameters()...)
	}
	for _, l := range g.decLayers {
		params = append(params, l.Parameters()...)
	}
	return params
}
