package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"ozzus/relayping/internal/config"
)

var version = "dev"

var errNothingMeasured = errors.New("no host could be measured")

// app carries state shared by all subcommands once the root pre-run has
// loaded configuration.
type app struct {
	configPath string
	output     string
	verbose    bool

	cfg *config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "relayping",
		Short:         "Measure latency to game relay servers",
		Long:          "relayping measures TCP handshake latency to relay servers, falling back to ICMP ping.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to a YAML config file")
	flags.StringVarP(&a.output, "output", "o", formatTable, "output format: table, json or yaml")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(
		newMeasureCmd(a),
		newServersCmd(a),
		newSweepCmd(a),
		newAgentCmd(a),
	)

	return root
}

func (a *app) init() error {
	switch a.output {
	case formatTable, formatJSON, formatYAML:
	default:
		return fmt.Errorf("unsupported output format %q", a.output)
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if a.verbose {
		a.log = setupLogger(cfg.Env, os.Stderr)
	} else {
		a.log = slog.New(slog.DiscardHandler)
	}
	return nil
}
