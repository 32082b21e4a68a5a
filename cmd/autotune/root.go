package main

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/autotune/dataset"
	"github.com/YuminosukeSato/autotune/internal/config"
	"github.com/YuminosukeSato/autotune/pkg/errors"
	"github.com/YuminosukeSato/autotune/pkg/log"
)

// cli holds the flags and configuration shared by every subcommand.
type cli struct {
	cfgFile  string
	logLevel string
	output   string
	target   string
	features []string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "autotune",
		Short:         "Select variables, rank features and tune models on a CSV dataset",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgFile, "config", "", "config file (YAML)")
	pf.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	pf.StringVarP(&c.output, "output", "o", "json", "output format: json or yaml")
	pf.StringVarP(&c.target, "target", "t", "", "target column")
	pf.StringSliceVarP(&c.features, "features", "f", nil, "feature columns (comma separated)")

	root.AddCommand(
		newValidateCmd(c),
		newRankCmd(c),
		newTuneCmd(c),
		newRunCmd(c),
	)
	return root
}

func (c *cli) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(c.cfgFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = c.logLevel
	}
	if err := log.SetupLogger(cfg.LogLevel); err != nil {
		return err
	}
	if c.output != "json" && c.output != "yaml" {
		return errors.NewValidationError("output", "must be json or yaml", c.output)
	}
	c.cfg = cfg
	return nil
}

// readDataset loads the CSV file at path.
func readDataset(path string) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	ds, err := dataset.ReadCSV(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return ds, nil
}

// write encodes v to w in the selected format.
func (c *cli) write(w io.Writer, v interface{}) error {
	if strings.EqualFold(c.output, "yaml") {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, "encode yaml")
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "encode json")
	}
	return nil
}
