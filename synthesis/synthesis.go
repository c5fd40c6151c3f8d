// Copyright 2025 The Grafomer Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package synthesis exposes the student weight-generation pipeline:
// teacher parameter selection by role, weight and bias synthesizers,
// and the synthesized linear layer.
package synthesis

import (
	"github.com/graft-ml/grafomer/internal/synthesis"
	"github.com/graft-ml/grafomer/internal/tensor"
)

// Role identifies a family of teacher parameters, one per teacher
// layer, as "scope.dotted.path".
type Role = synthesis.Role

// ParseRole splits a textual role into scope and path.
func ParseRole(s string) (Role, error) { return synthesis.ParseRole(s) }

// NamedParam is a teacher parameter tagged with its hierarchical name.
type NamedParam[B tensor.Backend] = synthesis.NamedParam[B]

// TeacherNetwork exposes the frozen parameters that synthesis draws
// from.
type TeacherNetwork[B tensor.Backend] = synthesis.TeacherNetwork[B]

// TeacherContext binds a teacher network for parameter selection.
type TeacherContext[B tensor.Backend] = synthesis.TeacherContext[B]

// NewTeacherContext wraps a teacher network.
func NewTeacherContext[B tensor.Backend](teacher TeacherNetwork[B]) *TeacherContext[B] {
	return synthesis.NewTeacherContext(teacher)
}

// WeightSynthesizer produces a projection weight from a teacher group.
type WeightSynthesizer[B tensor.Backend] = synthesis.WeightSynthesizer[B]

// NewWeightSynthesizer selects and validates the teacher group for
// role and initializes the combination parameters.
func NewWeightSynthesizer[B tensor.Backend](ctx *TeacherContext[B], role string, studentLayer, numLayers, outFeatures, inFeatures int, b B) (*WeightSynthesizer[B], error) {
	return synthesis.NewWeightSynthesizer(ctx, role, studentLayer, numLayers, outFeatures, inFeatures, b)
}

// BiasSynthesizer produces a bias vector from a teacher group.
type BiasSynthesizer[B tensor.Backend] = synthesis.BiasSynthesizer[B]

// NewBiasSynthesizer selects and validates the teacher group for role
// and initializes the combination parameters.
func NewBiasSynthesizer[B tensor.Backend](ctx *TeacherContext[B], role string, studentLayer, numLayers, outFeatures int, b B) (*BiasSynthesizer[B], error) {
	return synthesis.NewBiasSynthesizer(ctx, role, studentLayer, numLayers, outFeatures, b)
}

// SynthesizedLinear is an affine layer whose weight and bias are
// rebuilt from the teacher group on every forward pass.
type SynthesizedLinear[B tensor.Backend] = synthesis.SynthesizedLinear[B]

// NewSynthesizedLinear builds a synthesized projection for role.
func NewSynthesizedLinear[B tensor.Backend](ctx *TeacherContext[B], role string, studentLayer, numLayers, inFeatures, outFeatures int, b B) (*SynthesizedLinear[B], error) {
	return synthesis.NewSynthesizedLinear(ctx, role, studentLayer, numLayers, inFeatures, outFeatures, b)
}
