// Command logpi extracts network addresses from log files and writes a
// sorted, deterministic index of where each one occurs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"logpi/internal/config"
	"logpi/internal/pipeline"
)

func main() {
	app := &cli.App{
		Name:      "logpi",
		Usage:     "extract and index network addresses from log files",
		ArgsUsage: "<input> [input...]",
		Version:   "0.1.0",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "debug", Aliases: []string{"d"}, Value: 0, Usage: "diagnostic verbosity, 0-9"},
			&cli.BoolFlag{Name: "write", Aliases: []string{"w"}, Usage: "write <input>.lpi instead of stdout"},
			&cli.BoolFlag{Name: "serial", Aliases: []string{"s"}, Usage: "force serial (single-worker) mode"},
			&cli.BoolFlag{Name: "greedy", Aliases: []string{"g"}, Usage: "tokenizer quote-ignore mode"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "logpi:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("at least one input path is required (\"-\" for stdin)", 1)
	}

	cfg := config.Config{
		Inputs: c.Args().Slice(),
		Debug:  c.Int("debug"),
		Write:  c.Bool("write"),
		Serial: c.Bool("serial"),
		Greedy: c.Bool("greedy"),
	}
	for _, in := range cfg.Inputs {
		if in == "-" {
			cfg.Serial = true
		}
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	log := logrus.New()
	log.SetLevel(cfg.LogrusLevel())
	log.SetOutput(os.Stderr)

	ix := pipeline.New(cfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			ix.RequestShutdown()
		case <-ctx.Done():
		}
	}()
	defer signal.Stop(sigCh)

	if err := ix.Run(ctx); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}
