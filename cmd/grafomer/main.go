// Package main provides the grafomer CLI: build bridge-coupled models
// from an experiment config, inspect their parameter surface and run
// generation demos.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"k8s.io/klog/v2"
)

const version = "v0.1.0-dev"

func main() {
	klog.InitFlags(nil)
	defer klog.Flush()

	app := &cli.Command{
		Name:  "grafomer",
		Usage: "Graft-bridge sequence-to-sequence models with synthesized students",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			generateCmd(),
			inspectCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fmt.Printf("grafomer %s\n", version)
			return nil
		},
	}
}
