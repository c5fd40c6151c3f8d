package synthesis_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graft-ml/grafomer/internal/backend/cpu"
	"github.com/graft-ml/grafomer/internal/modelerr"
	"github.com/graft-ml/grafomer/internal/synthesis"
	"github.com/graft-ml/grafomer/internal/tensor"
)

func TestWeightSynthesizerShape(t *testing.T) {
	b := cpu.New()
	ctx := newFakeContext(12, tensor.Shape{8, 6})

	w, err := synthesis.NewWeightSynthesizer(ctx, "encoder.attention.self.query", 1, 4, 8, 6, b)
	require.NoError(t, err)
	assert.Equal(t, 8, w.OutFeatures())
	assert.Equal(t, 6, w.InFeatures())
	assert.Equal(t, tensor.Shape{8, 6}, w.Synthesize().Shape())
}

func TestBiasSynthesizerShape(t *testing.T) {
	b := cpu.New()
	ctx := newFakeContext(12, tensor.Shape{8, 6})

	bias, err := synthesis.NewBiasSynthesizer(ctx, "encoder.attention.self.query", 1, 4, 8, b)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{8}, bias.Synthesize().Shape())
}

func TestSynthesizerShapeMismatchAtConstruction(t *testing.T) {
	b := cpu.New()
	ctx := newFakeContext(12, tensor.Shape{8, 6})

	// The error must surface when the synthesizer is built, not on the
	// first Synthesize call.
	_, err := synthesis.NewWeightSynthesizer(ctx, "encoder.attention.self.query", 0, 4, 6, 8, b)
	require.Error(t, err)
	assert.True(t, modelerr.IsConfiguration(err))

	_, err = synthesis.NewBiasSynthesizer(ctx, "encoder.attention.self.query", 0, 4, 5, b)
	require.Error(t, err)
	assert.True(t, modelerr.IsConfiguration(err))
}

func TestSynthesizeBoundedByScaleAroundOffset(t *testing.T) {
	b := cpu.New()
	ctx := newFakeContext(12, tensor.Shape{8, 6})

	w, err := synthesis.NewWeightSynthesizer(ctx, "encoder.attention.self.query", 2, 4, 8, 6, b)
	require.NoError(t, err)

	// tanh keeps the mixed tensor in (-1, 1), so every element is
	// within |scale| of offset. With the initial scale of ones and zero
	// offset that means |value| <= 1.
	out := w.Synthesize()
	for _, v := range out.Data() {
		assert.LessOrEqual(t, math.Abs(float64(v)), 1.0)
	}
}

func TestSynthesizeDeterministic(t *testing.T) {
	b := cpu.New()
	ctx := newFakeContext(12, tensor.Shape{4, 4})

	w, err := synthesis.NewWeightSynthesizer(ctx, "encoder.attention.self.query", 0, 4, 4, 4, b)
	require.NoError(t, err)

	first := w.Synthesize()
	second := w.Synthesize()
	assert.Equal(t, first.Data(), second.Data())
}

func TestSynthesizeReflectsParameterUpdates(t *testing.T) {
	b := cpu.New()
	ctx := newFakeContext(12, tensor.Shape{4, 4})

	w, err := synthesis.NewWeightSynthesizer(ctx, "encoder.attention.self.query", 0, 4, 4, 4, b)
	require.NoError(t, err)

	params := w.Parameters()
	require.Len(t, params, 3)

	var offset *tensor.Tensor[float32, *cpu.CPUBackend]
	for _, p := range params {
		if p.Name() == "offset" {
			offset = p.Data()
		}
	}
	require.NotNil(t, offset)

	before := w.Synthesize().Clone()
	for i := range offset.Data() {
		offset.Data()[i] = 10
	}
	after := w.Synthesize()

	for i, v := range after.Data() {
		assert.InDelta(t, float64(before.Data()[i])+10, float64(v), 1e-5)
	}
}

func TestSynthesizedLinearForward(t *testing.T) {
	b := cpu.New()
	ctx := newFakeContext(12, tensor.Shape{8, 6})

	lin, err := synthesis.NewSynthesizedLinear(ctx, "encoder.attention.self.query", 0, 4, 6, 8, b)
	require.NoError(t, err)
	assert.Equal(t, 6, lin.InFeatures())
	assert.Equal(t, 8, lin.OutFeatures())
	assert.Len(t, lin.Parameters(), 6)

	input := tensor.Randn[float32](tensor.Shape{2, 3, 6}, b)
	out := lin.Forward(input)
	assert.Equal(t, tensor.Shape{2, 3, 8}, out.Shape())

	// Repeated calls with the same input produce the same output.
	assert.Equal(t, out.Data(), lin.Forward(input).Data())
}
