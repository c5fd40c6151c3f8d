package synthesis

import (
	"github.com/graft-ml/grafomer/internal/modelerr"
	"github.com/graft-ml/grafomer/internal/nn"
	"github.com/graft-ml/grafomer/internal/tensor"
)

// synthesizer holds a frozen teacher parameter group selected at
// construction plus the learned combination parameters, and recomputes
// the effective tensor on every call. The result is never cached: after
// a gradient step on mix, scale or offset the next Synthesize reflects
// it immediately.
type synthesizer[B tensor.Backend] struct {
	// group is the stacked teacher slice [adjacent, targetShape...],
	// read-only after construction.
	group *tensor.Tensor[float32, B]

	adjacent    int
	targetShape tensor.Shape

	mix    *nn.Parameter[B]
	scale  *nn.Parameter[B]
	offset *nn.Parameter[B]
}

func newSynthesizer[B tensor.Backend](ctx *TeacherContext[B], role string, studentLayer, numLayers int, targetShape tensor.Shape, b B) (*synthesizer[B], error) {
	group, err := ctx.Select(role, studentLayer, numLayers)
	if err != nil {
		return nil, err
	}

	shape := group.Shape()
	if !shape[1:].Equal(targetShape) {
		return nil, modelerr.Configf("role %q: teacher parameter shape %v does not match student shape %v",
			role, tensor.Shape(shape[1:]), targetShape)
	}

	s := &synthesizer[B]{
		group:       group,
		adjacent:    shape[0],
		targetShape: targetShape.Clone(),
	}
	s.mix = nn.NewParameter("mix", nn.XavierUniform[B](tensor.Shape{1, s.adjacent}, b))
	s.scale = nn.NewParameter("scale", tensor.Ones[float32](targetShape, b))
	s.offset = nn.NewParameter("offset", tensor.Zeros[float32](targetShape, b))
	return s, nil
}

// Synthesize recomputes tanh(mix · group) * scale + offset.
func (s *synthesizer[B]) Synthesize() *tensor.Tensor[float32, B] {
	flat := s.group.Reshape(s.adjacent, s.targetShape.NumElements())
	mixed := s.mix.Data().MatMul(flat).Reshape(s.targetShape...)
	return mixed.Tanh().Mul(s.scale.Data()).Add(s.offset.Data())
}

func (s *synthesizer[B]) parameters() []*nn.Parameter[B] {
	return []*nn.Parameter[B]{s.mix, s.scale, s.offset}
}

// WeightSynthesizer produces a projection weight [outFeatures,
// inFeatures] from the teacher parameters matching role + ".weight".
type WeightSynthesizer[B tensor.Backend] struct {
	synthesizer[B]
}

// NewWeightSynthesizer selects the teacher group for role, validates it
// against the student dimensions and initializes the combination
// parameters.
func NewWeightSynthesizer[B tensor.Backend](ctx *TeacherContext[B], role string, studentLayer, numLayers, outFeatures, inFeatures int, b B) (*WeightSynthesizer[B], error) {
	s, err := newSynthesizer(ctx, role+".weight", studentLayer, numLayers, tensor.Shape{outFeatures, inFeatures}, b)
	if err != nil {
		return nil, err
	}
	return &WeightSynthesizer[B]{synthesizer: *s}, nil
}

// OutFeatures returns the synthesized weight's output width.
func (w *WeightSynthesizer[B]) OutFeatures() int { return w.targetShape[0] }

// InFeatures returns the synthesized weight's input width.
func (w *WeightSynthesizer[B]) InFeatures() int { return w.targetShape[1] }

// Parameters returns mix, scale and offset.
func (w *WeightSynthesizer[B]) Parameters() []*nn.Parameter[B] { return w.parameters() }

// BiasSynthesizer produces a bias vector [outFeatures] from the teacher
// parameters matching role + ".bias".
type BiasSynthesizer[B tensor.Backend] struct {
	synthesizer[B]
}

// NewBiasSynthesizer selects the teacher group for role, validates it
// against the student dimension and initializes the combination
// parameters.
func NewBiasSynthesizer[B tensor.Backend](ctx *TeacherContext[B], role string, studentLayer, numLayers, outFeatures int, b B) (*BiasSynthesizer[B], error) {
	s, err := newSynthesizer(ctx, role+".bias", studentLayer, numLayers, tensor.Shape{outFeatures}, b)
	if err != nil {
		return nil, err
	}
	return &BiasSynthesizer[B]{synthesizer: *s}, nil
}

// Parameters returns mix, scale and offset.
func (b *BiasSynthesizer[B]) Parameters() []*nn.Parameter[B] { return b.parameters() }
