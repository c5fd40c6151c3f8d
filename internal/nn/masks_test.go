package nn

import (
	"testing"

	"github.com/graft-ml/grafomer/internal/backend/cpu"
	"github.com/graft-ml/grafomer/internal/tensor"
)

func TestCausalMaskSquare(t *testing.T) {
	backend := cpu.New()

	mask := CausalMask(3, 3, backend)
	if !mask.Shape().Equal(tensor.Shape{1, 1, 3, 3}) {
		t.Fatalf("expected shape [1 1 3 3], got %v", mask.Shape())
	}

	for q := 0; q < 3; q++ {
		for k := 0; k < 3; k++ {
			v := mask.At(0, 0, q, k)
			if k <= q && v != 0 {
				t.Errorf("position (%d,%d) should be visible, got %v", q, k, v)
			}
			if k > q && v >= 0 {
				t.Errorf("position (%d,%d) should be masked, got %v", q, k, v)
			}
		}
	}
}

func TestCausalMaskEndAligned(t *testing.T) {
	backend := cpu.New()

	// One new query over four cached keys: everything is visible.
	mask := CausalMask(1, 4, backend)
	if !mask.Shape().Equal(tensor.Shape{1, 1, 1, 4}) {
		t.Fatalf("expected shape [1 1 1 4], got %v", mask.Shape())
	}
	for k := 0; k < 4; k++ {
		if v := mask.At(0, 0, 0, k); v != 0 {
			t.Errorf("cached key %d should be visible, got %v", k, v)
		}
	}

	// Two queries over four keys: the first query sees keys 0..2 only.
	mask = CausalMask(2, 4, backend)
	if v := mask.At(0, 0, 0, 3); v >= 0 {
		t.Errorf("first query should not see the last key, got %v", v)
	}
	if v := mask.At(0, 0, 1, 3); v != 0 {
		t.Errorf("last query should see the last key, got %v", v)
	}
}

func TestCausalMaskRejectsShortKeys(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when keyLen < queryLen")
		}
	}()
	CausalMask(4, 2, cpu.New())
}

func TestPaddingMask(t *testing.T) {
	backend := cpu.New()

	attn, err := tensor.FromSlice([]float32{1, 1, 0}, tensor.Shape{1, 3}, backend)
	if err != nil {
		t.Fatal(err)
	}

	mask := PaddingMask(attn, 2)
	if !mask.Shape().Equal(tensor.Shape{1, 1, 2, 3}) {
		t.Fatalf("expected shape [1 1 2 3], got %v", mask.Shape())
	}
	for q := 0; q < 2; q++ {
		if v := mask.At(0, 0, q, 0); v != 0 {
			t.Errorf("kept token should score 0, got %v", v)
		}
		if v := mask.At(0, 0, q, 2); v >= 0 {
			t.Errorf("padded token should be masked, got %v", v)
		}
	}
}

func TestCombineMasks(t *testing.T) {
	backend := cpu.New()

	causal := CausalMask(2, 2, backend)
	if got := CombineMasks[*cpu.CPUBackend](nil, nil); got != nil {
		t.Errorf("combining two nil masks should stay nil, got %v", got)
	}
	if got := CombineMasks(causal, nil); got != causal {
		t.Error("combining with nil should return the other mask unchanged")
	}

	attn, err := tensor.FromSlice([]float32{1, 0}, tensor.Shape{1, 2}, backend)
	if err != nil {
		t.Fatal(err)
	}
	combined := CombineMasks(causal, PaddingMask(attn, 2))
	// Query 1 over key 1: causal-visible but padded out.
	if v := combined.At(0, 0, 1, 1); v >= 0 {
		t.Errorf("padded key should stay masked after combining, got %v", v)
	}
	if v := combined.At(0, 0, 1, 0); v != 0 {
		t.Errorf("visible key should stay at 0, got %v", v)
	}
}
