package nn

import "github.com/graft-ml/grafomer/internal/tensor"

// Parameter is a named learnable tensor owned by a module.
type Parameter[B tensor.Backend] struct {
	name string
	data *tensor.Tensor[float32, B]
}

// NewParameter wraps data as a parameter with a local name such as
// "weight" or "bias". Hierarchical names are assembled by the owner.
func NewParameter[B tensor.Backend](name string, data *tensor.Tensor[float32, B]) *Parameter[B] {
	if data == nil {
		panic("nn: parameter " + name + " created with nil data")
	}
	return &Parameter[B]{name: name, data: data}
}

// Name returns the parameter's local name.
func (p *Parameter[B]) Name() string { return p.name }

// Data returns the parameter's current tensor.
func (p *Parameter[B]) Data() *tensor.Tensor[float32, B] { return p.data }

// SetData replaces the parameter's tensor. The new tensor must have the
// same shape as the old one.
func (p *Parameter[B]) SetData(data *tensor.Tensor[float32, B]) {
	if !p.data.Shape().Equal(data.Shape()) {
		panic("nn: parameter " + p.name + " shape mismatch on SetData: " +
			p.data.Shape().String() + " vs " + data.Shape().String())
	}
	p.data = data
}
