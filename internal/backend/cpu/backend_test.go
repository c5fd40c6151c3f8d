package cpu

import (
	"math"
	"testing"

	"github.com/graft-ml/grafomer/internal/tensor"
)

func rawF32(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatal(err)
	}
	copy(raw.AsFloat32(), data)
	return raw
}

func TestBackendIdentity(t *testing.T) {
	backend := New()
	if backend.Name() != "cpu" {
		t.Errorf("Name() = %q, want cpu", backend.Name())
	}
	if backend.Device() != tensor.CPU {
		t.Errorf("Device() = %v, want CPU", backend.Device())
	}
}

func TestAddBroadcast(t *testing.T) {
	backend := New()

	a := rawF32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := rawF32(t, []float32{10, 20, 30}, tensor.Shape{3})

	out := backend.Add(a, b)
	want := []float32{11, 22, 33, 14, 25, 36}
	for i, v := range out.AsFloat32() {
		if v != want[i] {
			t.Errorf("element %d: got %v, want %v", i, v, want[i])
		}
	}
}

func TestDivByScalarTensor(t *testing.T) {
	backend := New()

	a := rawF32(t, []float32{2, 4, 8}, tensor.Shape{3})
	b := rawF32(t, []float32{2}, tensor.Shape{1})

	out := backend.Div(a, b)
	want := []float32{1, 2, 4}
	for i, v := range out.AsFloat32() {
		if v != want[i] {
			t.Errorf("element %d: got %v, want %v", i, v, want[i])
		}
	}
}

func TestMatMulRect(t *testing.T) {
	backend := New()

	a := rawF32(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	b := rawF32(t, []float32{1, 0, 0, 1}, tensor.Shape{2, 2})

	out := backend.MatMul(a, b)
	for i, v := range out.AsFloat32() {
		if v != a.AsFloat32()[i] {
			t.Errorf("identity matmul changed element %d: %v", i, v)
		}
	}
}

func TestSoftmaxStability(t *testing.T) {
	backend := New()

	// Large logits must not overflow to NaN.
	x := rawF32(t, []float32{1000, 1001, 1002}, tensor.Shape{1, 3})
	out := backend.Softmax(x, 1)

	var sum float64
	for _, v := range out.AsFloat32() {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("softmax produced %v", v)
		}
		sum += float64(v)
	}
	if math.Abs(sum-1) > 1e-5 {
		t.Errorf("softmax sums to %v, want 1", sum)
	}
}

func TestSoftmaxFullyMaskedRow(t *testing.T) {
	backend := New()

	x := rawF32(t, []float32{-1e9, -1e9, -1e9}, tensor.Shape{1, 3})
	out := backend.Softmax(x, 1)
	for _, v := range out.AsFloat32() {
		if math.IsNaN(float64(v)) {
			t.Fatal("softmax over a fully masked row produced NaN")
		}
	}
}

func TestNarrowCopiesData(t *testing.T) {
	backend := New()

	x := rawF32(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	out := backend.Narrow(x, 1, 1, 2)
	if !out.Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("Narrow shape = %v, want [2 2]", out.Shape())
	}
	want := []float32{2, 3, 5, 6}
	for i, v := range out.AsFloat32() {
		if v != want[i] {
			t.Errorf("element %d: got %v, want %v", i, v, want[i])
		}
	}

	// The slice owns its data.
	out.AsFloat32()[0] = 99
	if x.AsFloat32()[1] == 99 {
		t.Error("Narrow aliased the source buffer")
	}
}

func TestCatDim(t *testing.T) {
	backend := New()

	a := rawF32(t, []float32{1, 2}, tensor.Shape{1, 2})
	b := rawF32(t, []float32{3, 4}, tensor.Shape{1, 2})

	out := backend.Cat([]*tensor.RawTensor{a, b}, 1)
	if !out.Shape().Equal(tensor.Shape{1, 4}) {
		t.Fatalf("Cat shape = %v, want [1 4]", out.Shape())
	}
	want := []float32{1, 2, 3, 4}
	for i, v := range out.AsFloat32() {
		if v != want[i] {
			t.Errorf("element %d: got %v, want %v", i, v, want[i])
		}
	}
}

func TestArgmaxTies(t *testing.T) {
	backend := New()

	// First occurrence wins on ties.
	x := rawF32(t, []float32{5, 5, 1}, tensor.Shape{1, 3})
	out := backend.Argmax(x, 1)
	if got := out.AsInt32()[0]; got != 0 {
		t.Errorf("Argmax tie = %d, want 0", got)
	}
}
