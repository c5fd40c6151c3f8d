package graft_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graft-ml/grafomer/internal/backend/cpu"
	"github.com/graft-ml/grafomer/internal/graft"
	"github.com/graft-ml/grafomer/internal/modelerr"
	"github.com/graft-ml/grafomer/internal/nn"
	"github.com/graft-ml/grafomer/internal/pretrained"
	"github.com/graft-ml/grafomer/internal/tensor"
)

func testConfigs() (*pretrained.Config, *pretrained.Config) {
	enc := &pretrained.Config{
		Family:           pretrained.FamilyBidirectional,
		VocabSize:        60,
		HiddenSize:       768,
		NumLayers:        1,
		NumHeads:         12,
		IntermediateSize: 1024,
		MaxPositions:     64,
	}
	dec := &pretrained.Config{
		Family:           pretrained.FamilyCausal,
		VocabSize:        60,
		HiddenSize:       768,
		NumLayers:        1,
		NumHeads:         12,
		IntermediateSize: 1024,
		MaxPositions:     64,
		EOSTokenID:       2,
	}
	return enc, dec
}

func testModel(t *testing.T) *graft.GrafomerModel[*cpu.CPUBackend] {
	t.Helper()
	backend := cpu.New()
	encCfg, decCfg := testConfigs()

	encoder, err := pretrained.NewBidirectionalEncoder(encCfg, backend)
	require.NoError(t, err)
	decoder, err := pretrained.NewCausalDecoder(decCfg, backend)
	require.NoError(t, err)

	model, err := graft.NewGrafomerModel[*cpu.CPUBackend](encoder, decoder, graft.ModelConfig{
		DecoderStartTokenID: 1,
		Bridge: graft.BridgeConfig{
			Width:         128,
			NumHeads:      4,
			HiddenDim:     256,
			EncoderLayers: 1,
			DecoderLayers: 1,
		},
	}, backend)
	require.NoError(t, err)
	return model
}

func intTensor(t *testing.T, data []int32, shape tensor.Shape) *tensor.Tensor[int32, *cpu.CPUBackend] {
	t.Helper()
	x, err := tensor.FromSlice(data, shape, cpu.New())
	require.NoError(t, err)
	return x
}

// TestForwardLogitsShape drives the full pipeline with a bridge that is
// narrower than both pretrained widths.
func TestForwardLogitsShape(t *testing.T) {
	model := testModel(t)

	src := intTensor(t, []int32{5, 6, 7, 8, 9, 10, 11, 12, 13, 14}, tensor.Shape{2, 5})
	tgt := intTensor(t, []int32{1, 2, 3, 4, 5, 6, 7, 8}, tensor.Shape{2, 4})

	out, err := model.Forward(graft.ForwardInputs[*cpu.CPUBackend]{
		InputIDs:        src,
		DecoderInputIDs: tgt,
	})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 4, 60}, out.Logits.Shape())
	assert.Equal(t, tensor.Shape{2, 4, 768}, out.DecoderHidden.Shape())
	assert.Equal(t, tensor.Shape{2, 5, 768}, out.EncoderOut.Hidden.Shape())
}

func TestForwardWithMasks(t *testing.T) {
	model := testModel(t)
	backend := cpu.New()

	src := intTensor(t, []int32{5, 6, 7, 0, 0, 8, 9, 10, 11, 0}, tensor.Shape{2, 5})
	srcMask, err := tensor.FromSlice([]float32{1, 1, 1, 0, 0, 1, 1, 1, 1, 0}, tensor.Shape{2, 5}, backend)
	require.NoError(t, err)
	tgt := intTensor(t, []int32{1, 2, 3, 1, 2, 0}, tensor.Shape{2, 3})
	tgtMask, err := tensor.FromSlice([]float32{1, 1, 1, 1, 1, 0}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)

	out, err := model.Forward(graft.ForwardInputs[*cpu.CPUBackend]{
		InputIDs:             src,
		AttentionMask:        srcMask,
		DecoderInputIDs:      tgt,
		DecoderAttentionMask: tgtMask,
	})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3, 60}, out.Logits.Shape())
}

func TestForwardSourceFallback(t *testing.T) {
	model := testModel(t)

	// Without decoder inputs the source ids are decoded directly.
	src := intTensor(t, []int32{5, 6, 7}, tensor.Shape{1, 3})
	out, err := model.Forward(graft.ForwardInputs[*cpu.CPUBackend]{InputIDs: src})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 3, 60}, out.Logits.Shape())

	// With an embedding source there is nothing to fall back to.
	embeds := tensor.Randn[float32](tensor.Shape{1, 3, 768}, cpu.New())
	_, err = model.Forward(graft.ForwardInputs[*cpu.CPUBackend]{InputEmbeds: embeds})
	require.Error(t, err)
	assert.True(t, modelerr.IsInputContract(err))
}

func TestForwardReusesEncoderOut(t *testing.T) {
	model := testModel(t)

	src := intTensor(t, []int32{5, 6, 7}, tensor.Shape{1, 3})
	tgt := intTensor(t, []int32{1, 2}, tensor.Shape{1, 2})

	first, err := model.Forward(graft.ForwardInputs[*cpu.CPUBackend]{
		InputIDs:        src,
		DecoderInputIDs: tgt,
	})
	require.NoError(t, err)

	second, err := model.Forward(graft.ForwardInputs[*cpu.CPUBackend]{
		EncoderOut:      first.EncoderOut,
		DecoderInputIDs: tgt,
	})
	require.NoError(t, err)
	assert.Same(t, first.EncoderOut, second.EncoderOut)
	assert.Equal(t, first.Logits.Data(), second.Logits.Data())
}

func TestPrepareInputsForGeneration(t *testing.T) {
	model := testModel(t)
	backend := cpu.New()

	ids := intTensor(t, []int32{1, 2, 3}, tensor.Shape{1, 3})

	// Empty cache: the whole prefix is fed.
	cache := nn.NewKVCache[*cpu.CPUBackend](1)
	inputs := model.PrepareInputsForGeneration(ids, nil, nil, cache)
	assert.Equal(t, tensor.Shape{1, 3}, inputs.DecoderInputIDs.Shape())

	// Warm cache: only the last token is fed.
	k := tensor.Randn[float32](tensor.Shape{1, 12, 3, 64}, backend)
	v := tensor.Randn[float32](tensor.Shape{1, 12, 3, 64}, backend)
	cache.Update(0, k, v)
	inputs = model.PrepareInputsForGeneration(ids, nil, nil, cache)
	require.Equal(t, tensor.Shape{1, 1}, inputs.DecoderInputIDs.Shape())
	assert.Equal(t, int32(3), inputs.DecoderInputIDs.At(0, 0))
}

func TestTrainableParametersAreBridgeOnly(t *testing.T) {
	model := testModel(t)

	params := model.Parameters()
	require.NotEmpty(t, params)
	assert.Equal(t, len(model.Bridge().Parameters()), len(params))
}

func TestNewGrafomerModelValidation(t *testing.T) {
	backend := cpu.New()

	_, err := graft.NewGrafomerModel[*cpu.CPUBackend](nil, nil, graft.ModelConfig{}, backend)
	require.Error(t, err)
	assert.True(t, modelerr.IsConfiguration(err))
}
