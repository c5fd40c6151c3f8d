// Copyright 2025 The Grafomer Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package grafomer exposes the top-level model surface: the
// bridge-coupled composition of a pretrained encoder and decoder, the
// pretrained architecture registry, and the student variant whose
// projections are synthesized from a teacher.
package grafomer

import (
	"github.com/graft-ml/grafomer/internal/graft"
	"github.com/graft-ml/grafomer/internal/pretrained"
	"github.com/graft-ml/grafomer/internal/student"
	"github.com/graft-ml/grafomer/internal/synthesis"
	"github.com/graft-ml/grafomer/internal/tensor"
)

// PretrainedConfig describes one pretrained network.
type PretrainedConfig = pretrained.Config

// LoadPretrainedConfig reads and validates a JSON model spec.
func LoadPretrainedConfig(path string) (*PretrainedConfig, error) {
	return pretrained.LoadConfig(path)
}

// Encoder is a frozen bidirectional stack.
type Encoder[B tensor.Backend] = pretrained.Encoder[B]

// Decoder is a frozen causal stack with a separately callable head.
type Decoder[B tensor.Backend] = pretrained.Decoder[B]

// EncoderInputs carries one encoder forward pass worth of inputs.
type EncoderInputs[B tensor.Backend] = pretrained.EncoderInputs[B]

// DecoderInputs carries one decoder forward pass worth of inputs.
type DecoderInputs[B tensor.Backend] = pretrained.DecoderInputs[B]

// Registry maps architecture family names to model builders.
type Registry[B tensor.Backend] = pretrained.Registry[B]

// DefaultRegistry returns a registry with the built-in architectures.
func DefaultRegistry[B tensor.Backend]() *Registry[B] {
	return pretrained.DefaultRegistry[B]()
}

// Teacher joins a frozen encoder and decoder into a parameter source
// for weight synthesis.
type Teacher[B tensor.Backend] = pretrained.Teacher[B]

// NewTeacher wraps an encoder/decoder pair.
func NewTeacher[B tensor.Backend](encoder Encoder[B], decoder Decoder[B]) *Teacher[B] {
	return pretrained.NewTeacher(encoder, decoder)
}

// BridgeConfig sizes the graft bridge.
type BridgeConfig = graft.BridgeConfig

// GraftBridge is the trainable sub-network between the frozen halves.
type GraftBridge[B tensor.Backend] = graft.GraftBridge[B]

// NewGraftBridge builds a bridge from a validated config.
func NewGraftBridge[B tensor.Backend](cfg BridgeConfig, b B) (*GraftBridge[B], error) {
	return graft.NewGraftBridge(cfg, b)
}

// ModelConfig configures the top-level composition.
type ModelConfig = graft.ModelConfig

// Model is the bridge-coupled sequence-to-sequence composition.
type Model[B tensor.Backend] = graft.GrafomerModel[B]

// ForwardInputs carries one model pass worth of inputs.
type ForwardInputs[B tensor.Backend] = graft.ForwardInputs[B]

// ForwardOutput is the result of one model pass.
type ForwardOutput[B tensor.Backend] = graft.ForwardOutput[B]

// New composes a frozen encoder/decoder pair with a fresh bridge.
func New[B tensor.Backend](encoder Encoder[B], decoder Decoder[B], cfg ModelConfig, b B) (*Model[B], error) {
	return graft.NewGrafomerModel(encoder, decoder, cfg, b)
}

// StudentEncoder is a bidirectional stack whose projections are
// synthesized from the teacher's encoder scope.
type StudentEncoder[B tensor.Backend] = student.Encoder[B]

// StudentDecoder is a causal stack whose projections are synthesized
// from the teacher's decoder scope.
type StudentDecoder[B tensor.Backend] = student.Decoder[B]

// NewStudentEncoder builds a student encoder.
func NewStudentEncoder[B tensor.Backend](ctx *synthesis.TeacherContext[B], cfg *PretrainedConfig, b B) (*StudentEncoder[B], error) {
	return student.NewEncoder(ctx, cfg, b)
}

// NewStudentDecoder builds a student decoder.
func NewStudentDecoder[B tensor.Backend](ctx *synthesis.TeacherContext[B], cfg *PretrainedConfig, b B) (*StudentDecoder[B], error) {
	return student.NewDecoder(ctx, cfg, b)
}

// NewStudent composes synthesized student stacks into the same
// bridge-coupled architecture, drawing every projection from teacher.
func NewStudent[B tensor.Backend](teacher synthesis.TeacherNetwork[B], encCfg, decCfg *PretrainedConfig, cfg ModelConfig, b B) (*Model[B], error) {
	return student.NewGrafomer(teacher, encCfg, decCfg, cfg, b)
}
