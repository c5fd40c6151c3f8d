// Package nn provides the neural network building blocks used by the
// graft bridge and the synthesized student stacks: linear projections,
// layer normalization, embeddings, a single multi-head attention
// primitive covering the causal, bidirectional and cross variants, and
// transformer blocks assembled from them.
package nn

import "github.com/graft-ml/grafomer/internal/tensor"

// Module is a named unit of computation with learnable parameters.
type Module[B tensor.Backend] interface {
	// Forward applies the module to the input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns the module's learnable parameters in a stable
	// order: own parameters first, then submodules in field order.
	Parameters() []*Parameter[B]
}
