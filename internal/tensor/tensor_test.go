package tensor_test

import (
	"math"
	"testing"

	"github.com/graft-ml/grafomer/internal/backend/cpu"
	"github.com/graft-ml/grafomer/internal/tensor"
)

func TestShape(t *testing.T) {
	s := tensor.Shape{2, 3, 4}
	if s.NumElements() != 24 {
		t.Errorf("expected 24 elements, got %d", s.NumElements())
	}
	if !s.Equal(tensor.Shape{2, 3, 4}) {
		t.Error("identical shapes should be equal")
	}
	if s.Equal(tensor.Shape{2, 3}) {
		t.Error("shapes of different rank should not be equal")
	}
	if err := s.Validate(); err != nil {
		t.Errorf("valid shape rejected: %v", err)
	}
	if err := (tensor.Shape{2, -1}).Validate(); err == nil {
		t.Error("negative dimension should be rejected")
	}
}

func TestBroadcastShapes(t *testing.T) {
	out, _, err := tensor.BroadcastShapes(tensor.Shape{2, 1, 4}, tensor.Shape{3, 1})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Equal(tensor.Shape{2, 3, 4}) {
		t.Errorf("expected [2 3 4], got %v", out)
	}

	if _, _, err := tensor.BroadcastShapes(tensor.Shape{2, 3}, tensor.Shape{4, 3}); err == nil {
		t.Error("incompatible shapes should not broadcast")
	}
}

func TestFromSlice(t *testing.T) {
	backend := cpu.New()

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	if err != nil {
		t.Fatal(err)
	}
	if x.At(1, 2) != 6 {
		t.Errorf("expected 6 at (1,2), got %v", x.At(1, 2))
	}

	if _, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2, 3}, backend); err == nil {
		t.Error("mismatched data length should be rejected")
	}
}

func TestElementwiseBroadcast(t *testing.T) {
	backend := cpu.New()

	a, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	b, _ := tensor.FromSlice([]float32{10, 20}, tensor.Shape{2}, backend)

	sum := a.Add(b)
	want := []float32{11, 22, 13, 24}
	for i, v := range sum.Data() {
		if v != want[i] {
			t.Errorf("element %d: got %v, want %v", i, v, want[i])
		}
	}

	prod := a.Mul(b)
	wantProd := []float32{10, 40, 30, 80}
	for i, v := range prod.Data() {
		if v != wantProd[i] {
			t.Errorf("element %d: got %v, want %v", i, v, wantProd[i])
		}
	}
}

func TestMatMul(t *testing.T) {
	backend := cpu.New()

	a, _ := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	b, _ := tensor.FromSlice([]float32{7, 8, 9, 10, 11, 12}, tensor.Shape{3, 2}, backend)

	out := a.MatMul(b)
	if !out.Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("expected shape [2 2], got %v", out.Shape())
	}
	want := []float32{58, 64, 139, 154}
	for i, v := range out.Data() {
		if v != want[i] {
			t.Errorf("element %d: got %v, want %v", i, v, want[i])
		}
	}
}

func TestBatchMatMul(t *testing.T) {
	backend := cpu.New()

	a := tensor.Ones[float32](tensor.Shape{2, 3, 2, 4}, backend)
	b := tensor.Ones[float32](tensor.Shape{2, 3, 4, 5}, backend)
	out := a.BatchMatMul(b)
	if !out.Shape().Equal(tensor.Shape{2, 3, 2, 5}) {
		t.Fatalf("expected shape [2 3 2 5], got %v", out.Shape())
	}
	for _, v := range out.Data() {
		if v != 4 {
			t.Fatalf("expected 4, got %v", v)
		}
	}
}

func TestTranspose(t *testing.T) {
	backend := cpu.New()

	a, _ := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	at := a.T()
	if !at.Shape().Equal(tensor.Shape{3, 2}) {
		t.Fatalf("expected shape [3 2], got %v", at.Shape())
	}
	if at.At(2, 0) != 3 || at.At(0, 1) != 4 {
		t.Error("transpose moved elements incorrectly")
	}

	b := tensor.Randn[float32](tensor.Shape{2, 3, 4, 5}, backend)
	bt := b.Transpose(0, 2, 1, 3)
	if !bt.Shape().Equal(tensor.Shape{2, 4, 3, 5}) {
		t.Fatalf("expected shape [2 4 3 5], got %v", bt.Shape())
	}
	if bt.At(1, 3, 2, 4) != b.At(1, 2, 3, 4) {
		t.Error("axis permutation moved elements incorrectly")
	}
}

func TestSoftmax(t *testing.T) {
	backend := cpu.New()

	x, _ := tensor.FromSlice([]float32{1, 2, 3, 1, 1, 1}, tensor.Shape{2, 3}, backend)
	out := x.Softmax(1)
	for row := 0; row < 2; row++ {
		var sum float64
		for col := 0; col < 3; col++ {
			sum += float64(out.At(row, col))
		}
		if math.Abs(sum-1) > 1e-5 {
			t.Errorf("row %d sums to %v, want 1", row, sum)
		}
	}
	// Uniform logits give uniform probabilities.
	if math.Abs(float64(out.At(1, 0))-1.0/3) > 1e-5 {
		t.Errorf("expected 1/3, got %v", out.At(1, 0))
	}
}

func TestReductions(t *testing.T) {
	backend := cpu.New()

	x, _ := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)

	if got := x.Sum().Item(); got != 21 {
		t.Errorf("Sum = %v, want 21", got)
	}

	mean := x.MeanDim(1, true)
	if !mean.Shape().Equal(tensor.Shape{2, 1}) {
		t.Fatalf("expected shape [2 1], got %v", mean.Shape())
	}
	if mean.At(0, 0) != 2 || mean.At(1, 0) != 5 {
		t.Errorf("MeanDim values wrong: %v, %v", mean.At(0, 0), mean.At(1, 0))
	}

	arg := x.Argmax(1)
	if arg.At(0) != 2 || arg.At(1) != 2 {
		t.Errorf("Argmax values wrong: %v, %v", arg.At(0), arg.At(1))
	}
}

func TestCatStackNarrowChunk(t *testing.T) {
	backend := cpu.New()

	a, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{1, 2}, backend)
	b, _ := tensor.FromSlice([]float32{3, 4}, tensor.Shape{1, 2}, backend)

	cat := tensor.Cat([]*tensor.Tensor[float32, *cpu.CPUBackend]{a, b}, 0)
	if !cat.Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("expected shape [2 2], got %v", cat.Shape())
	}
	if cat.At(1, 0) != 3 {
		t.Errorf("expected 3 at (1,0), got %v", cat.At(1, 0))
	}

	stack := tensor.Stack([]*tensor.Tensor[float32, *cpu.CPUBackend]{a, b}, 0)
	if !stack.Shape().Equal(tensor.Shape{2, 1, 2}) {
		t.Fatalf("expected shape [2 1 2], got %v", stack.Shape())
	}

	narrow := cat.Narrow(0, 1, 1)
	if !narrow.Shape().Equal(tensor.Shape{1, 2}) || narrow.At(0, 1) != 4 {
		t.Error("Narrow returned wrong slice")
	}

	chunks := cat.Chunk(2, 1)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if !chunks[0].Shape().Equal(tensor.Shape{2, 1}) {
		t.Fatalf("expected chunk shape [2 1], got %v", chunks[0].Shape())
	}
	if chunks[1].At(0, 0) != 2 || chunks[1].At(1, 0) != 4 {
		t.Error("Chunk returned wrong columns")
	}
}

func TestEmbeddingGather(t *testing.T) {
	backend := cpu.New()

	table, _ := tensor.FromSlice([]float32{
		0, 0,
		1, 1,
		2, 2,
	}, tensor.Shape{3, 2}, backend)
	ids, _ := tensor.FromSlice([]int32{2, 0}, tensor.Shape{1, 2}, backend)

	out := table.Embedding(ids)
	if !out.Shape().Equal(tensor.Shape{1, 2, 2}) {
		t.Fatalf("expected shape [1 2 2], got %v", out.Shape())
	}
	if out.At(0, 0, 0) != 2 || out.At(0, 1, 0) != 0 {
		t.Error("Embedding gathered wrong rows")
	}
}

func TestAtSet(t *testing.T) {
	backend := cpu.New()
	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)

	x.Set(7, 1, 2)
	if x.At(1, 2) != 7 {
		t.Errorf("expected 7 at (1,2), got %v", x.At(1, 2))
	}
	if x.At(0, 0) != 0 {
		t.Errorf("expected untouched element to stay 0, got %v", x.At(0, 0))
	}
}

func TestSetRejectsBadIndices(t *testing.T) {
	backend := cpu.New()
	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)

	mustPanic := func(name string, f func()) {
		defer func() {
			if recover() == nil {
				t.Errorf("%s: expected panic", name)
			}
		}()
		f()
	}

	mustPanic("wrong index count", func() { x.Set(1, 0) })
	mustPanic("index out of range", func() { x.Set(1, 0, 3) })
	mustPanic("negative index", func() { x.Set(1, -1, 0) })
}

func TestUnaryOps(t *testing.T) {
	backend := cpu.New()

	x, _ := tensor.FromSlice([]float32{0, 1, 4}, tensor.Shape{3}, backend)
	sqrt := x.Sqrt()
	if sqrt.At(2) != 2 {
		t.Errorf("Sqrt(4) = %v, want 2", sqrt.At(2))
	}

	tanh := x.Tanh()
	if tanh.At(0) != 0 {
		t.Errorf("Tanh(0) = %v, want 0", tanh.At(0))
	}
	if math.Abs(float64(tanh.At(1))-math.Tanh(1)) > 1e-6 {
		t.Errorf("Tanh(1) = %v, want %v", tanh.At(1), math.Tanh(1))
	}

	gelu := x.Gelu()
	if gelu.At(0) != 0 {
		t.Errorf("Gelu(0) = %v, want 0", gelu.At(0))
	}
	if g := float64(gelu.At(1)); math.Abs(g-0.8412) > 1e-2 {
		t.Errorf("Gelu(1) = %v, want ~0.8412", g)
	}
}

func TestReshapeExpand(t *testing.T) {
	backend := cpu.New()

	x := tensor.Arange[float32](0, 6, backend)
	r := x.Reshape(2, 3)
	if !r.Shape().Equal(tensor.Shape{2, 3}) {
		t.Fatalf("expected shape [2 3], got %v", r.Shape())
	}

	u := r.Unsqueeze(0)
	if !u.Shape().Equal(tensor.Shape{1, 2, 3}) {
		t.Fatalf("expected shape [1 2 3], got %v", u.Shape())
	}
	if !u.Squeeze(0).Shape().Equal(tensor.Shape{2, 3}) {
		t.Fatal("Squeeze did not undo Unsqueeze")
	}

	e := u.Expand(tensor.Shape{4, 2, 3})
	if !e.Shape().Equal(tensor.Shape{4, 2, 3}) {
		t.Fatalf("expected shape [4 2 3], got %v", e.Shape())
	}
	if e.At(3, 1, 2) != 5 {
		t.Errorf("expanded view has wrong value: %v", e.At(3, 1, 2))
	}
}
