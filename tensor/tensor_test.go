// Copyright 2025 The Grafomer Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	"github.com/graft-ml/grafomer/backend/cpu"
	"github.com/graft-ml/grafomer/tensor"
)

// TestBackendInterface verifies that the CPU backend satisfies
// tensor.Backend through the public facade.
func TestBackendInterface(_ *testing.T) {
	var _ tensor.Backend = (*cpu.Backend)(nil)
}

func TestFacadeCreation(t *testing.T) {
	backend := cpu.New()

	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
	if !x.Shape().Equal(tensor.Shape{2, 3}) {
		t.Fatalf("Zeros shape = %v, want [2 3]", x.Shape())
	}

	y, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}

	sum := x.Add(y)
	for i, v := range sum.Data() {
		if v != y.Data()[i] {
			t.Errorf("element %d: got %v, want %v", i, v, y.Data()[i])
		}
	}
}

func TestFacadeStack(t *testing.T) {
	backend := cpu.New()

	a := tensor.Ones[float32](tensor.Shape{2, 2}, backend)
	b := tensor.Zeros[float32](tensor.Shape{2, 2}, backend)

	stacked := tensor.Stack([]*tensor.Tensor[float32, *cpu.Backend]{a, b}, 0)
	if !stacked.Shape().Equal(tensor.Shape{2, 2, 2}) {
		t.Fatalf("Stack shape = %v, want [2 2 2]", stacked.Shape())
	}
}
