// Copyright 2025 The Grafomer Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package generate exposes the autoregressive decoding driver and
// sampling strategies.
package generate

import (
	"github.com/graft-ml/grafomer/internal/generate"
	"github.com/graft-ml/grafomer/internal/graft"
	"github.com/graft-ml/grafomer/internal/tensor"
)

// Config bounds one generation run.
type Config = generate.Config

// Sampler picks the next token id from one row of vocabulary logits.
type Sampler[B tensor.Backend] = generate.Sampler[B]

// Greedy always picks the highest-scoring token.
type Greedy[B tensor.Backend] = generate.Greedy[B]

// Temperature samples from the tempered softmax distribution.
type Temperature[B tensor.Backend] = generate.Temperature[B]

// Generator runs incremental decoding over a Grafomer model.
type Generator[B tensor.Backend] = generate.Generator[B]

// NewGenerator wires a model with a sampling strategy.
func NewGenerator[B tensor.Backend](model *graft.GrafomerModel[B], sampler Sampler[B], cfg Config, b B) (*Generator[B], error) {
	return generate.NewGenerator(model, sampler, cfg, b)
}
