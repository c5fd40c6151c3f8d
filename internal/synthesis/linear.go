package synthesis

import (
	"github.com/graft-ml/grafomer/internal/nn"
	"github.com/graft-ml/grafomer/internal/tensor"
)

// SynthesizedLinear behaves like nn.Linear but owns no weight matrix:
// the projection weight and bias are rebuilt from the teacher group on
// every forward pass. Its learnable state is the mixing, scale and
// offset parameters of its synthesizers.
type SynthesizedLinear[B tensor.Backend] struct {
	weight *WeightSynthesizer[B]
	bias   *BiasSynthesizer[B]
}

// NewSynthesizedLinear builds a synthesized projection for role mapping
// inFeatures to outFeatures. The teacher must expose role+".weight"
// parameters of shape [outFeatures, inFeatures] and role+".bias"
// parameters of shape [outFeatures].
func NewSynthesizedLinear[B tensor.Backend](ctx *TeacherContext[B], role string, studentLayer, numLayers, inFeatures, outFeatures int, b B) (*SynthesizedLinear[B], error) {
	weight, err := NewWeightSynthesizer(ctx, role, studentLayer, numLayers, outFeatures, inFeatures, b)
	if err != nil {
		return nil, err
	}
	bias, err := NewBiasSynthesizer(ctx, role, studentLayer, numLayers, outFeatures, b)
	if err != nil {
		return nil, err
	}
	return &SynthesizedLinear[B]{weight: weight, bias: bias}, nil
}

// Forward synthesizes the current weight and bias and applies the
// affine projection to [batch, in] or [batch, seq, in] input.
func (l *SynthesizedLinear[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return nn.Affine(input, l.weight.Synthesize(), l.bias.Synthesize())
}

// OutFeatures returns the projection's output width.
func (l *SynthesizedLinear[B]) OutFeatures() int { return l.weight.OutFeatures() }

// InFeatures returns the projection's input width.
func (l *SynthesizedLinear[B]) InFeatures() int { return l.weight.InFeatures() }

// Parameters returns the weight synthesizer's parameters followed by
// the bias synthesizer's.
func (l *SynthesizedLinear[B]) Parameters() []*nn.Parameter[B] {
	return append(l.weight.Parameters(), l.bias.Parameters()...)
}
