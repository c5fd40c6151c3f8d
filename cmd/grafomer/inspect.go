package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/graft-ml/grafomer/config"
	"github.com/graft-ml/grafomer/internal/backend/cpu"
	"github.com/graft-ml/grafomer/internal/nn"
	"github.com/graft-ml/grafomer/internal/pretrained"
	"github.com/graft-ml/grafomer/internal/student"
	"github.com/graft-ml/grafomer/internal/synthesis"
)

func inspectCmd() *cli.Command {
	var configPath string

	return &cli.Command{
		Name:  "inspect",
		Usage: "Show the parameter surface of a configured model",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to experiment YAML",
				Required:    true,
				Destination: &configPath,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			backend := cpu.New()
			registry := pretrained.DefaultRegistry[*cpu.CPUBackend]()
			encoder, err := registry.BuildEncoder(&cfg.Encoder, backend)
			if err != nil {
				return err
			}
			decoder, err := registry.BuildDecoder(&cfg.Decoder, backend)
			if err != nil {
				return err
			}

			fmt.Printf("encoder  %-14s layers=%d hidden=%d params=%s\n",
				cfg.Encoder.Family, cfg.Encoder.NumLayers, cfg.Encoder.HiddenSize,
				humanize.Comma(namedCount(encoder.NamedParameters())))
			fmt.Printf("decoder  %-14s layers=%d hidden=%d params=%s\n",
				cfg.Decoder.Family, cfg.Decoder.NumLayers, cfg.Decoder.HiddenSize,
				humanize.Comma(namedCount(decoder.NamedParameters())))

			model, err := buildModel(cfg, false, backend)
			if err != nil {
				return err
			}
			fmt.Printf("bridge   width=%d params=%s (trainable)\n",
				cfg.Bridge.Width, humanize.Comma(paramCount(model.Bridge().Parameters())))

			if cfg.Student == nil {
				return nil
			}

			teacher := pretrained.NewTeacher(encoder, decoder)
			ctx2 := synthesis.NewTeacherContext[*cpu.CPUBackend](teacher)
			studentEnc, err := student.NewEncoder(ctx2, &cfg.Student.Encoder, backend)
			if err != nil {
				return err
			}
			studentDec, err := student.NewDecoder(ctx2, &cfg.Student.Decoder, backend)
			if err != nil {
				return err
			}
			fmt.Printf("student encoder layers=%d params=%s (synthesized projections)\n",
				cfg.Student.Encoder.NumLayers, humanize.Comma(paramCount(studentEnc.Parameters())))
			fmt.Printf("student decoder layers=%d params=%s (synthesized projections)\n",
				cfg.Student.Decoder.NumLayers, humanize.Comma(paramCount(studentDec.Parameters())))
			return nil
		},
	}
}

func paramCount(params []*nn.Parameter[*cpu.CPUBackend]) int64 {
	var n int64
	for _, p := range params {
		n += int64(p.Data().NumElements())
	}
	return n
}

func namedCount(params []synthesis.NamedParam[*cpu.CPUBackend]) int64 {
	var n int64
	for _, p := range params {
		n += int64(p.Tensor.NumElements())
	}
	return n
}
