package pretrained

import (
	"k8s.io/klog/v2"

	"github.com/graft-ml/grafomer/internal/modelerr"
	"github.com/graft-ml/grafomer/internal/tensor"
)

// EncoderBuilder constructs an encoder for a config.
type EncoderBuilder[B tensor.Backend] func(cfg *Config, b B) (Encoder[B], error)

// DecoderBuilder constructs a decoder for a config.
type DecoderBuilder[B tensor.Backend] func(cfg *Config, b B) (Decoder[B], error)

// Registry maps architecture family names to model builders. Families
// are resolved when a config is turned into a model, so an unknown
// family fails at load time rather than mid-forward.
type Registry[B tensor.Backend] struct {
	encoders map[string]EncoderBuilder[B]
	decoders map[string]DecoderBuilder[B]
}

// NewRegistry creates an empty registry.
func NewRegistry[B tensor.Backend]() *Registry[B] {
	return &Registry[B]{
		encoders: make(map[string]EncoderBuilder[B]),
		decoders: make(map[string]DecoderBuilder[B]),
	}
}

// DefaultRegistry returns a registry with the built-in architectures.
func DefaultRegistry[B tensor.Backend]() *Registry[B] {
	r := NewRegistry[B]()
	r.RegisterEncoder(FamilyBidirectional, func(cfg *Config, b B) (Encoder[B], error) {
		return NewBidirectionalEncoder(cfg, b)
	})
	r.RegisterDecoder(FamilyCausal, func(cfg *Config, b B) (Decoder[B], error) {
		return NewCausalDecoder(cfg, b)
	})
	return r
}

// RegisterEncoder binds an encoder family name to its builder.
func (r *Registry[B]) RegisterEncoder(family string, build EncoderBuilder[B]) {
	r.encoders[family] = build
}

// RegisterDecoder binds a decoder family name to its builder.
func (r *Registry[B]) RegisterDecoder(family string, build DecoderBuilder[B]) {
	r.decoders[family] = build
}

// BuildEncoder resolves cfg.Family and constructs the encoder.
func (r *Registry[B]) BuildEncoder(cfg *Config, b B) (Encoder[B], error) {
	build, ok := r.encoders[cfg.Family]
	if !ok {
		return nil, modelerr.Configf("unknown encoder family %q", cfg.Family)
	}
	klog.V(1).Infof("building encoder family=%s layers=%d hidden=%d", cfg.Family, cfg.NumLayers, cfg.HiddenSize)
	return build(cfg, b)
}

// BuildDecoder resolves cfg.Family and constructs the decoder.
func (r *Registry[B]) BuildDecoder(cfg *Config, b B) (Decoder[B], error) {
	build, ok := r.decoders[cfg.Family]
	if !ok {
		return nil, modelerr.Configf("unknown decoder family %q", cfg.Family)
	}
	klog.V(1).Infof("building decoder family=%s layers=%d hidden=%d", cfg.Family, cfg.NumLayers, cfg.HiddenSize)
	return build(cfg, b)
}
