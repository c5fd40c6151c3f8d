package nn

import "github.com/graft-ml/grafomer/internal/tensor"

// Embedding maps int32 token ids to dense rows of a learned table with
// shape [numEmbeddings, embedDim].
type Embedding[B tensor.Backend] struct {
	weight *Parameter[B]

	numEmbeddings int
	embedDim      int
}

// NewEmbedding creates an embedding table initialized from N(0, 0.02).
func NewEmbedding[B tensor.Backend](numEmbeddings, embedDim int, b B) *Embedding[B] {
	return &Embedding[B]{
		weight:        NewParameter("weight", NormalInit[B](tensor.Shape{numEmbeddings, embedDim}, 0.02, b)),
		numEmbeddings: numEmbeddings,
		embedDim:      embedDim,
	}
}

// Lookup gathers rows for ids of shape [batch, seq], returning
// [batch, seq, embedDim].
func (e *Embedding[B]) Lookup(ids *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	return e.weight.Data().Embedding(ids)
}

// Weight returns the table parameter.
func (e *Embedding[B]) Weight() *Parameter[B] { return e.weight }

// Parameters returns the table parameter.
func (e *Embedding[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{e.weight}
}

// PositionIDs builds the int32 position tensor [batch, seq] covering
// positions [offset, offset+seq) for every batch row. The offset is the
// number of previously cached positions during incremental decoding.
func PositionIDs[B tensor.Backend](batch, seq, offset int, b B) *tensor.Tensor[int32, B] {
	data := make([]int32, batch*seq)
	for row := 0; row < batch; row++ {
		for i := 0; i < seq; i++ {
			data[row*seq+i] = int32(offset + i)
		}
	}
	t, err := tensor.FromSlice(data, tensor.Shape{batch, seq}, b)
	if err != nil {
		panic("nn: position ids: " + err.Error())
	}
	return t
}
