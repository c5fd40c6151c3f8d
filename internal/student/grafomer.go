package student

import (
	"github.com/graft-ml/grafomer/internal/graft"
	"github.com/graft-ml/grafomer/internal/pretrained"
	"github.com/graft-ml/grafomer/internal/synthesis"
	"github.com/graft-ml/grafomer/internal/tensor"
)

// NewGrafomer composes a student encoder and decoder, both synthesized
// from teacher, into the same bridge-coupled architecture the frozen
// variant uses. The returned model's trainable surface is the bridge;
// the synthesis parameters are reachable through the stacks directly.
func NewGrafomer[B tensor.Backend](teacher synthesis.TeacherNetwork[B], encCfg, decCfg *pretrained.Config, cfg graft.ModelConfig, b B) (*graft.GrafomerModel[B], error) {
	ctx := synthesis.NewTeacherContext(teacher)

	encoder, err := NewEncoder(ctx, encCfg, b)
	if err != nil {
		return nil, err
	}
	decoder, err := NewDecoder(ctx, decCfg, b)
	if err != nil {
		return nil, err
	}
	return graft.NewGrafomerModel[B](encoder, decoder, cfg, b)
}
