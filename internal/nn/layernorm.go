package nn

import "github.com/graft-ml/grafomer/internal/tensor"

// LayerNorm normalizes the trailing dimension to zero mean and unit
// variance, then applies a learned elementwise affine transform.
type LayerNorm[B tensor.Backend] struct {
	gamma *Parameter[B]
	beta  *Parameter[B]

	normSize int
	eps      float32
}

// NewLayerNorm creates a layer norm over the trailing dimension of size
// normSize, with gamma initialized to ones and beta to zeros.
func NewLayerNorm[B tensor.Backend](normSize int, eps float32, b B) *LayerNorm[B] {
	return &LayerNorm[B]{
		gamma:    NewParameter("gamma", tensor.Ones[float32](tensor.Shape{normSize}, b)),
		beta:     NewParameter("beta", tensor.Zeros[float32](tensor.Shape{normSize}, b)),
		normSize: normSize,
		eps:      eps,
	}
}

// Forward normalizes input over its last dimension.
func (ln *LayerNorm[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	last := len(shape) - 1
	if shape[last] != ln.normSize {
		panic("nn: layernorm expects trailing dimension " + tensor.Shape{ln.normSize}.String() +
			", got shape " + shape.String())
	}

	mean := input.MeanDim(last, true)
	centered := input.Sub(mean)
	variance := centered.Mul(centered).MeanDim(last, true)
	inv := variance.AddScalar(ln.eps).Rsqrt()

	return centered.Mul(inv).Mul(ln.gamma.Data()).Add(ln.beta.Data())
}

// Gamma returns the scale parameter.
func (ln *LayerNorm[B]) Gamma() *Parameter[B] { return ln.gamma }

// Beta returns the shift parameter.
func (ln *LayerNorm[B]) Beta() *Parameter[B] { return ln.beta }

// Parameters returns gamma then beta.
func (ln *LayerNorm[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{ln.gamma, ln.beta}
}
