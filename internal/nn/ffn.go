package nn

import "github.com/graft-ml/grafomer/internal/tensor"

// Activation is an elementwise nonlinearity between the two feed-forward
// projections.
type Activation[B tensor.Backend] func(*tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

// GELU is the Gaussian error linear unit (tanh approximation).
func GELU[B tensor.Backend](x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return x.Gelu()
}

// FeedForward is the position-wise two-layer MLP of a transformer block.
type FeedForward[B tensor.Backend] struct {
	up   *Linear[B]
	down *Linear[B]
	act  Activation[B]
}

// NewFeedForward creates an MLP expanding embedDim to hiddenDim and back.
func NewFeedForward[B tensor.Backend](embedDim, hiddenDim int, act Activation[B], b B) *FeedForward[B] {
	return &FeedForward[B]{
		up:   NewLinear(embedDim, hiddenDim, true, b),
		down: NewLinear(hiddenDim, embedDim, true, b),
		act:  act,
	}
}

// Forward applies down(act(up(input))).
func (f *FeedForward[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return f.down.Forward(f.act(f.up.Forward(input)))
}

// Parameters returns the up then down projection parameters.
func (f *FeedForward[B]) Parameters() []*Parameter[B] {
	return append(f.up.Parameters(), f.down.Parameters()...)
}
