package generate

import (
	"context"

	"k8s.io/klog/v2"

	"github.com/graft-ml/grafomer/internal/graft"
	"github.com/graft-ml/grafomer/internal/modelerr"
	"github.com/graft-ml/grafomer/internal/nn"
	"github.com/graft-ml/grafomer/internal/tensor"
)

// Config bounds one generation run.
type Config struct {
	// MaxNewTokens caps the number of generated positions.
	MaxNewTokens int

	// EOSTokenID terminates a sequence when sampled. Negative disables
	// the check.
	EOSTokenID int

	// OnStep, when non-nil, is called after each decoding step with
	// the zero-based step index.
	OnStep func(step int)
}

// Generator runs incremental decoding over a Grafomer model.
type Generator[B tensor.Backend] struct {
	model   *graft.GrafomerModel[B]
	sampler Sampler[B]
	cfg     Config
	backend B
}

// NewGenerator wires a model with a sampling strategy.
func NewGenerator[B tensor.Backend](model *graft.GrafomerModel[B], sampler Sampler[B], cfg Config, b B) (*Generator[B], error) {
	if cfg.MaxNewTokens <= 0 {
		return nil, modelerr.Configf("generate: max new tokens must be positive, got %d", cfg.MaxNewTokens)
	}
	return &Generator[B]{model: model, sampler: sampler, cfg: cfg, backend: b}, nil
}

// Generate encodes inputIDs [batch, srcLen] once, seeds the decoder
// with the start token and decodes until every row emits EOS or the
// length bound is reached. Returns the decoder ids including the start
// token, shape [batch, generated+1].
func (g *Generator[B]) Generate(ctx context.Context, inputIDs *tensor.Tensor[int32, B], attnMask *tensor.Tensor[float32, B]) (*tensor.Tensor[int32, B], error) {
	batch := inputIDs.Shape()[0]

	decIDs := startTokens[B](batch, int32(g.model.DecoderStartTokenID()), g.backend)
	cache := nn.NewKVCache[B](g.model.Decoder().Config().NumLayers)
	finished := make([]bool, batch)

	var encOut *nn.StackOutput[B]

	for step := 0; step < g.cfg.MaxNewTokens; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		inputs := g.model.PrepareInputsForGeneration(decIDs, attnMask, encOut, cache)
		if encOut == nil {
			// First step also runs the encoder.
			inputs.InputIDs = inputIDs
		}

		out, err := g.model.Forward(inputs)
		if err != nil {
			return nil, err
		}
		encOut = out.EncoderOut

		next := g.sampleLast(out.Logits, decIDs, finished)
		decIDs = tensor.Cat([]*tensor.Tensor[int32, B]{decIDs, next}, 1)

		if g.cfg.OnStep != nil {
			g.cfg.OnStep(step)
		}
		if g.allFinished(finished) {
			klog.V(2).Infof("generate: all %d sequences finished after %d steps", batch, step+1)
			break
		}
	}
	return decIDs, nil
}

// sampleLast picks the next token for each row from the final position
// of logits [batch, seq, vocab]. Finished rows keep emitting EOS.
func (g *Generator[B]) sampleLast(logits *tensor.Tensor[float32, B], decIDs *tensor.Tensor[int32, B], finished []bool) *tensor.Tensor[int32, B] {
	shape := logits.Shape()
	batch, seq, vocab := shape[0], shape[1], shape[2]
	last := logits.Narrow(1, seq-1, 1).Reshape(batch, vocab)

	next := make([]int32, batch)
	for row := 0; row < batch; row++ {
		if finished[row] {
			next[row] = int32(g.cfg.EOSTokenID)
			continue
		}
		id := g.sampler.Sample(last.Narrow(0, row, 1).Reshape(vocab))
		next[row] = id
		if g.cfg.EOSTokenID >= 0 && id == int32(g.cfg.EOSTokenID) {
			finished[row] = true
		}
	}

	t, err := tensor.FromSlice(next, tensor.Shape{batch, 1}, g.backend)
	if err != nil {
		panic("generate: next tokens: " + err.Error())
	}
	return t
}

func (g *Generator[B]) allFinished(finished []bool) bool {
	for _, f := range finished {
		if !f {
			return false
		}
	}
	return true
}

func startTokens[B tensor.Backend](batch int, id int32, b B) *tensor.Tensor[int32, B] {
	data := make([]int32, batch)
	for i := range data {
		data[i] = id
	}
	t, err := tensor.FromSlice(data, tensor.Shape{batch, 1}, b)
	if err != nil {
		panic("generate: start tokens: " + err.Error())
	}
	return t
}
