package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/samyak-umathe/L-THackthon/pkg/config"
	"github.com/samyak-umathe/L-THackthon/pkg/logging"
	"github.com/samyak-umathe/L-THackthon/pkg/pipeline"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// app carries state resolved by the root command for its subcommands.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	output     string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "gridsense",
		Short:         "Score feeder telemetry for theft and failure risk",
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")
	pf.StringVar(&a.logLevel, "log-level", "", "log level [debug, info, warn, error]")
	pf.StringVar(&a.logFormat, "log-format", "", "log format [text, json]")
	pf.StringVar(&a.output, "format", formatJSON, "output format [json, yaml]")

	root.AddCommand(
		newScoreCmd(a),
		newGenerateCmd(a),
		newSummaryCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if a.output != formatJSON && a.output != formatYAML && a.output != "yml" {
		return errors.Errorf("unsupported output format %q", a.output)
	}

	a.cfg = cfg
	a.logger = logging.SetDefault(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	return nil
}

func (a *app) pipeline() *pipeline.Pipeline {
	return pipeline.New(a.cfg.Pipeline, pipeline.WithLogger(a.logger))
}

// print encodes v to w in the selected output format.
func (a *app) print(w io.Writer, v any) error {
	if a.output == formatYAML || a.output == "yml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, "failed to encode yaml")
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "failed to encode json")
}
