package nn

import "github.com/graft-ml/grafomer/internal/tensor"

// Linear is an affine projection y = x W^T + b with weight shape
// [outFeatures, inFeatures].
type Linear[B tensor.Backend] struct {
	weight *Parameter[B]
	bias   *Parameter[B]

	inFeatures  int
	outFeatures int
}

// NewLinear creates a linear layer with Xavier-initialized weight and,
// when withBias is true, a zero-initialized bias.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, withBias bool, b B) *Linear[B] {
	l := &Linear[B]{
		weight:      NewParameter("weight", XavierUniform[B](tensor.Shape{outFeatures, inFeatures}, b)),
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
	}
	if withBias {
		l.bias = NewParameter("bias", tensor.Zeros[float32](tensor.Shape{outFeatures}, b))
	}
	return l
}

// LinearFromTensors creates a linear layer around existing weight
// [outFeatures, inFeatures] and optional bias [outFeatures] tensors.
func LinearFromTensors[B tensor.Backend](weight, bias *tensor.Tensor[float32, B]) *Linear[B] {
	shape := weight.Shape()
	if len(shape) != 2 {
		panic("nn: linear weight must be 2D, got shape " + shape.String())
	}
	l := &Linear[B]{
		weight:      NewParameter("weight", weight),
		inFeatures:  shape[1],
		outFeatures: shape[0],
	}
	if bias != nil {
		l.bias = NewParameter("bias", bias)
	}
	return l
}

// Forward applies the projection. Accepts [batch, in] or
// [batch, seq, in] input and returns output with the trailing
// dimension replaced by outFeatures.
func (l *Linear[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return Affine(input, l.weight.Data(), biasData(l.bias))
}

// Weight returns the weight parameter.
func (l *Linear[B]) Weight() *Parameter[B] { return l.weight }

// Bias returns the bias parameter, or nil when the layer has none.
func (l *Linear[B]) Bias() *Parameter[B] { return l.bias }

// InFeatures returns the input width.
func (l *Linear[B]) InFeatures() int { return l.inFeatures }

// OutFeatures returns the output width.
func (l *Linear[B]) OutFeatures() int { return l.outFeatures }

// Parameters returns weight then bias.
func (l *Linear[B]) Parameters() []*Parameter[B] {
	params := []*Parameter[B]{l.weight}
	if l.bias != nil {
		params = append(params, l.bias)
	}
	return params
}

func biasData[B tensor.Backend](p *Parameter[B]) *tensor.Tensor[float32, B] {
	if p == nil {
		return nil
	}
	return p.Data()
}

// Affine computes input · weight^T + bias for [.., in] input, weight
// [out, in] and optional bias [out]. It is shared by Linear and the
// synthesized projection layers, whose weights are recomputed tensors
// rather than stored parameters.
func Affine[B tensor.Backend](input, weight, bias *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	out := weight.Shape()[0]

	var result *tensor.Tensor[float32, B]
	switch len(shape) {
	case 2:
		result = input.MatMul(weight.T())
	case 3:
		flat := input.Reshape(shape[0]*shape[1], shape[2])
		result = flat.MatMul(weight.T()).Reshape(shape[0], shape[1], out)
	default:
		panic("nn: affine input must be 2D or 3D, got shape " + shape.String())
	}

	if bias != nil {
		result = result.Add(bias)
	}
	return result
}
