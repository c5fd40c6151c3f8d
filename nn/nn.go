// Copyright 2025 The Grafomer Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the public neural network building blocks:
// linear projections, layer normalization, embeddings, the unified
// multi-head attention primitive and transformer blocks.
package nn

import (
	"github.com/graft-ml/grafomer/internal/nn"
	"github.com/graft-ml/grafomer/internal/tensor"
)

// Module is a named unit of computation with learnable parameters.
type Module[B tensor.Backend] = nn.Module[B]

// Parameter is a named learnable tensor owned by a module.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// Linear is an affine projection y = x W^T + b.
type Linear[B tensor.Backend] = nn.Linear[B]

// LayerNorm normalizes the trailing dimension with a learned affine.
type LayerNorm[B tensor.Backend] = nn.LayerNorm[B]

// Embedding maps token ids to rows of a learned table.
type Embedding[B tensor.Backend] = nn.Embedding[B]

// AttentionOptions selects attention capabilities: causal, cross or
// plain bidirectional.
type AttentionOptions = nn.AttentionOptions

// MultiHeadAttention is the single attention primitive used by every
// stack.
type MultiHeadAttention[B tensor.Backend] = nn.MultiHeadAttention[B]

// FeedForward is the position-wise two-layer MLP of a transformer
// block.
type FeedForward[B tensor.Backend] = nn.FeedForward[B]

// BlockConfig sizes a transformer block.
type BlockConfig = nn.BlockConfig

// EncoderBlock is a post-norm bidirectional transformer layer.
type EncoderBlock[B tensor.Backend] = nn.EncoderBlock[B]

// DecoderBlock is a post-norm causal transformer layer with optional
// cross-attention.
type DecoderBlock[B tensor.Backend] = nn.DecoderBlock[B]

// KVCache stores per-layer key/value projections across incremental
// decoding steps.
type KVCache[B tensor.Backend] = nn.KVCache[B]

// StackOutput is the result of running a transformer stack.
type StackOutput[B tensor.Backend] = nn.StackOutput[B]

// NewParameter wraps data as a named parameter.
func NewParameter[B tensor.Backend](name string, data *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, data)
}

// NewLinear creates a linear layer with Xavier-initialized weight.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, withBias bool, b B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, withBias, b)
}

// NewLayerNorm creates a layer norm over the trailing dimension.
func NewLayerNorm[B tensor.Backend](normSize int, eps float32, b B) *LayerNorm[B] {
	return nn.NewLayerNorm(normSize, eps, b)
}

// NewEmbedding creates an embedding table.
func NewEmbedding[B tensor.Backend](numEmbeddings, embedDim int, b B) *Embedding[B] {
	return nn.NewEmbedding[B](numEmbeddings, embedDim, b)
}

// NewMultiHeadAttention creates an attention module.
func NewMultiHeadAttention[B tensor.Backend](embedDim, numHeads int, opts AttentionOptions, b B) *MultiHeadAttention[B] {
	return nn.NewMultiHeadAttention(embedDim, numHeads, opts, b)
}

// NewEncoderBlock creates an encoder block.
func NewEncoderBlock[B tensor.Backend](cfg BlockConfig, b B) *EncoderBlock[B] {
	return nn.NewEncoderBlock(cfg, b)
}

// NewDecoderBlock creates a decoder block, with cross-attention when
// withCross is true.
func NewDecoderBlock[B tensor.Backend](cfg BlockConfig, withCross bool, b B) *DecoderBlock[B] {
	return nn.NewDecoderBlock(cfg, withCross, b)
}

// NewKVCache creates an empty cache for numLayers layers.
func NewKVCache[B tensor.Backend](numLayers int) *KVCache[B] {
	return nn.NewKVCache[B](numLayers)
}

// CausalMask builds an additive mask blocking future positions.
func CausalMask[B tensor.Backend](queryLen, keyLen int, b B) *tensor.Tensor[float32, B] {
	return nn.CausalMask(queryLen, keyLen, b)
}

// PaddingMask expands a [batch, keyLen] 0/1 mask into an additive
// attention mask.
func PaddingMask[B tensor.Backend](attnMask *tensor.Tensor[float32, B], queryLen int) *tensor.Tensor[float32, B] {
	return nn.PaddingMask(attnMask, queryLen)
}
