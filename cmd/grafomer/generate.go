package main

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"k8s.io/klog/v2"

	"github.com/graft-ml/grafomer/config"
	"github.com/graft-ml/grafomer/internal/backend/cpu"
	"github.com/graft-ml/grafomer/internal/generate"
	"github.com/graft-ml/grafomer/internal/graft"
	"github.com/graft-ml/grafomer/internal/pretrained"
	"github.com/graft-ml/grafomer/internal/student"
	"github.com/graft-ml/grafomer/internal/tensor"
	"github.com/graft-ml/grafomer/internal/tokenizer"
)

func generateCmd() *cli.Command {
	var (
		configPath   string
		prompt       string
		encoding     string
		useStudent   bool
		maxNewTokens int64
		temperature  float64
	)

	return &cli.Command{
		Name:  "generate",
		Usage: "Run sequence-to-sequence generation from a prompt",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to experiment YAML",
				Required:    true,
				Destination: &configPath,
			},
			&cli.StringFlag{
				Name:        "prompt",
				Aliases:     []string{"p"},
				Usage:       "source text to encode",
				Required:    true,
				Destination: &prompt,
			},
			&cli.StringFlag{
				Name:        "encoding",
				Usage:       "tiktoken encoding name",
				Value:       "r50k_base",
				Destination: &encoding,
			},
			&cli.BoolFlag{
				Name:        "student",
				Usage:       "use the synthesized student stacks instead of the frozen pair",
				Destination: &useStudent,
			},
			&cli.Int64Flag{
				Name:        "max-new-tokens",
				Usage:       "override the configured generation bound",
				Destination: &maxNewTokens,
			},
			&cli.Float64Flag{
				Name:        "temperature",
				Usage:       "sampling temperature, 0 for greedy",
				Destination: &temperature,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if maxNewTokens > 0 {
				cfg.Generation.MaxNewTokens = int(maxNewTokens)
			}
			if cmd.IsSet("temperature") {
				cfg.Generation.Temperature = float32(temperature)
			}

			backend := cpu.New()
			model, err := buildModel(cfg, useStudent, backend)
			if err != nil {
				return err
			}
			tok, err := tokenizer.New(encoding)
			if err != nil {
				return err
			}
			ids := foldIDs(tok.Encode(prompt), cfg.Encoder.VocabSize)
			if len(ids) == 0 {
				return fmt.Errorf("prompt produced no tokens")
			}
			klog.V(1).Infof("prompt tokens: %d", len(ids))

			inputIDs, err := tensor.FromSlice(ids, tensor.Shape{1, len(ids)}, backend)
			if err != nil {
				return err
			}

			bar := progressbar.Default(int64(cfg.Generation.MaxNewTokens), "decoding")
			gen, err := generate.NewGenerator[*cpu.CPUBackend](model, sampler(cfg), generate.Config{
				MaxNewTokens: cfg.Generation.MaxNewTokens,
				EOSTokenID:   cfg.Generation.EOSTokenID,
				OnStep:       func(int) { _ = bar.Add(1) },
			}, backend)
			if err != nil {
				return err
			}

			out, err := gen.Generate(ctx, inputIDs, nil)
			if err != nil {
				return err
			}
			_ = bar.Finish()

			fmt.Println(tok.Decode(out.Data()))
			return nil
		},
	}
}

func buildModel(cfg *config.Config, useStudent bool, backend *cpu.CPUBackend) (*graft.GrafomerModel[*cpu.CPUBackend], error) {
	registry := pretrained.DefaultRegistry[*cpu.CPUBackend]()
	encoder, err := registry.BuildEncoder(&cfg.Encoder, backend)
	if err != nil {
		return nil, err
	}
	decoder, err := registry.BuildDecoder(&cfg.Decoder, backend)
	if err != nil {
		return nil, err
	}

	if useStudent {
		if cfg.Student == nil {
			return nil, fmt.Errorf("config has no student section")
		}
		teacher := pretrained.NewTeacher(encoder, decoder)
		return student.NewGrafomer[*cpu.CPUBackend](teacher, &cfg.Student.Encoder, &cfg.Student.Decoder, cfg.ModelConfig(), backend)
	}
	return graft.NewGrafomerModel(encoder, decoder, cfg.ModelConfig(), backend)
}

func sampler(cfg *config.Config) generate.Sampler[*cpu.CPUBackend] {
	if cfg.Generation.Temperature > 0 {
		return generate.Temperature[*cpu.CPUBackend]{T: cfg.Generation.Temperature}
	}
	return generate.Greedy[*cpu.CPUBackend]{}
}

// foldIDs maps tokenizer ids into the model's vocabulary range. The
// demo models are randomly initialized, so the mapping only needs to be
// deterministic, not meaningful.
func foldIDs(ids []int32, vocab int) []int32 {
	out := make([]int32, len(ids))
	for i, id := range ids {
		out[i] = id % int32(vocab)
	}
	return out
}
