package nn

import (
	"math"
	"math/rand"

	"github.com/graft-ml/grafomer/internal/tensor"
)

// XavierUniform fills a new tensor of the given shape with values drawn
// uniformly from [-limit, limit] where limit = sqrt(6 / (fanIn + fanOut)).
//
// For matrices fanIn and fanOut are the trailing two dimensions; leading
// dimensions are treated as independent replicas, matching the Glorot
// scheme used for stacked projection weights.
func XavierUniform[B tensor.Backend](shape tensor.Shape, b B) *tensor.Tensor[float32, B] {
	if len(shape) < 2 {
		panic("nn: XavierUniform requires at least 2 dimensions, got shape " + shape.String())
	}
	fanIn := shape[len(shape)-1]
	fanOut := shape[len(shape)-2]
	limit := float32(math.Sqrt(6.0 / float64(fanIn+fanOut)))

	t := tensor.Zeros[float32](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = (rand.Float32()*2 - 1) * limit
	}
	return t
}

// NormalInit fills a new tensor with values drawn from N(0, std).
func NormalInit[B tensor.Backend](shape tensor.Shape, std float32, b B) *tensor.Tensor[float32, B] {
	t := tensor.Zeros[float32](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = float32(rand.NormFloat64()) * std
	}
	return t
}
