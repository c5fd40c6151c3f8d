package generate

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graft-ml/grafomer/internal/backend/cpu"
	"github.com/graft-ml/grafomer/internal/graft"
	"github.com/graft-ml/grafomer/internal/modelerr"
	"github.com/graft-ml/grafomer/internal/pretrained"
	"github.com/graft-ml/grafomer/internal/tensor"
)

// constSampler always emits the same token id.
type constSampler struct{ id int32 }

func (s constSampler) Sample(*tensor.Tensor[float32, *cpu.CPUBackend]) int32 { return s.id }

func smallModel(t *testing.T) (*graft.GrafomerModel[*cpu.CPUBackend], *cpu.CPUBackend) {
	t.Helper()
	backend := cpu.New()

	encCfg := &pretrained.Config{
		Family:           pretrained.FamilyBidirectional,
		VocabSize:        30,
		HiddenSize:       16,
		NumLayers:        1,
		NumHeads:         4,
		IntermediateSize: 32,
		MaxPositions:     64,
	}
	decCfg := &pretrained.Config{
		Family:           pretrained.FamilyCausal,
		VocabSize:        30,
		HiddenSize:       16,
		NumLayers:        1,
		NumHeads:         4,
		IntermediateSize: 32,
		MaxPositions:     64,
		EOSTokenID:       2,
	}

	encoder, err := pretrained.NewBidirectionalEncoder(encCfg, backend)
	require.NoError(t, err)
	decoder, err := pretrained.NewCausalDecoder(decCfg, backend)
	require.NoError(t, err)

	model, err := graft.NewGrafomerModel[*cpu.CPUBackend](encoder, decoder, graft.ModelConfig{
		DecoderStartTokenID: 1,
		Bridge: graft.BridgeConfig{
			Width:         8,
			NumHeads:      2,
			HiddenDim:     16,
			EncoderLayers: 1,
			DecoderLayers: 1,
		},
	}, backend)
	require.NoError(t, err)
	return model, backend
}

func sourceIDs(t *testing.T, backend *cpu.CPUBackend) *tensor.Tensor[int32, *cpu.CPUBackend] {
	t.Helper()
	ids, err := tensor.FromSlice([]int32{5, 6, 7, 8, 9, 10}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)
	return ids
}

func TestNewGeneratorValidation(t *testing.T) {
	model, backend := smallModel(t)

	_, err := NewGenerator(model, Greedy[*cpu.CPUBackend]{}, Config{MaxNewTokens: 0}, backend)
	require.Error(t, err)
	assert.True(t, modelerr.IsConfiguration(err))
}

func TestGenerateLengthBound(t *testing.T) {
	model, backend := smallModel(t)

	gen, err := NewGenerator(model, Greedy[*cpu.CPUBackend]{}, Config{
		MaxNewTokens: 5,
		EOSTokenID:   -1,
	}, backend)
	require.NoError(t, err)

	out, err := gen.Generate(context.Background(), sourceIDs(t, backend), nil)
	require.NoError(t, err)
	// Start token plus exactly MaxNewTokens generated positions.
	assert.Equal(t, tensor.Shape{2, 6}, out.Shape())
	assert.Equal(t, int32(1), out.At(0, 0))
	assert.Equal(t, int32(1), out.At(1, 0))
}

func TestGenerateStopsAtEOS(t *testing.T) {
	model, backend := smallModel(t)

	steps := 0
	gen, err := NewGenerator[*cpu.CPUBackend](model, constSampler{id: 2}, Config{
		MaxNewTokens: 10,
		EOSTokenID:   2,
		OnStep:       func(int) { steps++ },
	}, backend)
	require.NoError(t, err)

	out, err := gen.Generate(context.Background(), sourceIDs(t, backend), nil)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 2}, out.Shape())
	assert.Equal(t, int32(2), out.At(0, 1))
	assert.Equal(t, 1, steps)
}

func TestGenerateDeterministicWithGreedy(t *testing.T) {
	model, backend := smallModel(t)

	gen, err := NewGenerator(model, Greedy[*cpu.CPUBackend]{}, Config{
		MaxNewTokens: 4,
		EOSTokenID:   -1,
	}, backend)
	require.NoError(t, err)

	first, err := gen.Generate(context.Background(), sourceIDs(t, backend), nil)
	require.NoError(t, err)
	second, err := gen.Generate(context.Background(), sourceIDs(t, backend), nil)
	require.NoError(t, err)
	assert.Equal(t, first.Data(), second.Data())
}

func TestGenerateHonorsContext(t *testing.T) {
	model, backend := smallModel(t)

	gen, err := NewGenerator(model, Greedy[*cpu.CPUBackend]{}, Config{MaxNewTokens: 10}, backend)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = gen.Generate(ctx, sourceIDs(t, backend), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGreedySampler(t *testing.T) {
	backend := cpu.New()
	logits, err := tensor.FromSlice([]float32{0.1, 3.5, -2, 1}, tensor.Shape{4}, backend)
	require.NoError(t, err)

	assert.Equal(t, int32(1), Greedy[*cpu.CPUBackend]{}.Sample(logits))
}

func TestTemperatureSampler(t *testing.T) {
	backend := cpu.New()
	logits, err := tensor.FromSlice([]float32{0, 10, 0}, tensor.Shape{3}, backend)
	require.NoError(t, err)

	// Non-positive temperature degrades to greedy.
	s := Temperature[*cpu.CPUBackend]{T: 0}
	assert.Equal(t, int32(1), s.Sample(logits))

	// With a dominant logit and low temperature the draw is stable.
	s = Temperature[*cpu.CPUBackend]{T: 0.1, Rng: rand.New(rand.NewSource(7))}
	for i := 0; i < 20; i++ {
		assert.Equal(t, int32(1), s.Sample(logits))
	}
}
