package main

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/autotune/comparison"
	"github.com/YuminosukeSato/autotune/dataset"
	"github.com/YuminosukeSato/autotune/engine"
	"github.com/YuminosukeSato/autotune/importance"
	"github.com/YuminosukeSato/autotune/pkg/errors"
	"github.com/YuminosukeSato/autotune/preprocessing"
	"github.com/YuminosukeSato/autotune/selection"
	"github.com/YuminosukeSato/autotune/tuning"
)

func newValidateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.csv>",
		Short: "Check a target and feature selection and suggest a replacement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := readDataset(args[0])
			if err != nil {
				return err
			}
			v := selection.NewValidator(selection.WithMaxFeatures(c.cfg.Recommend.MaxFeatures))
			return c.write(cmd.OutOrStdout(), v.Validate(ds, c.target, c.features))
		},
	}
}

func newRankCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rank <file.csv>",
		Short: "Rank every usable column by relevance to the target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.target == "" {
				return errors.NewValidationError("target", "is required", c.target)
			}
			ds, err := readDataset(args[0])
			if err != nil {
				return err
			}
			agg := importance.NewAggregator(
				importance.WithTrees(c.cfg.Importance.Trees),
				importance.WithMaxDepth(c.cfg.Importance.MaxDepth),
				importance.WithNeighbors(c.cfg.Importance.Neighbors),
				importance.WithSeed(c.cfg.Seed),
				importance.WithWorkers(c.cfg.MaxWorkers),
			)
			ranking, err := agg.RankDetailed(ds, c.target)
			if err != nil {
				return err
			}
			return c.write(cmd.OutOrStdout(), ranking)
		},
	}
}

// tuneOutput is the result of tuning a single family.
type tuneOutput struct {
	Baseline *tuning.SearchResult `json:"baseline" yaml:"baseline"`
	Result   *tuning.SearchResult `json:"result" yaml:"result"`
	Report   *comparison.Report   `json:"report" yaml:"report"`
}

func newTuneCmd(c *cli) *cobra.Command {
	var family string
	cmd := &cobra.Command{
		Use:   "tune <file.csv>",
		Short: "Tune one model family on the selected features",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := tuning.ParseFamily(family)
			if err != nil {
				return err
			}
			ds, err := readDataset(args[0])
			if err != nil {
				return err
			}
			sel := selection.NewValidator(selection.WithMaxFeatures(c.cfg.Recommend.MaxFeatures)).
				Validate(ds, c.target, c.features)
			if !sel.HasTarget() {
				return errors.NewValueError("tune", sel.Explanation)
			}
			design, err := preprocessing.BuildDesign(ds, sel.SuggestedTarget, sel.SuggestedFeatures)
			if err != nil {
				return err
			}
			req, err := c.cfg.Request(sel.SuggestedTarget, sel.SuggestedFeatures)
			if err != nil {
				return err
			}
			opts := tuning.Options{
				Strategy:   req.Strategy,
				Folds:      req.Folds,
				Candidates: req.Candidates,
				Seed:       c.cfg.Seed,
			}
			pt := dataset.DetectProblemType(design.Target())
			searcher := tuning.NewSearcher(tuning.DefaultRegistry(), tuning.WithWorkers(c.cfg.MaxWorkers))

			out := tuneOutput{
				Baseline: searcher.Baseline(cmd.Context(), f, pt, design, opts),
				Result:   searcher.Search(cmd.Context(), f, pt, design, opts),
			}
			out.Report = comparison.Compare(
				[]*tuning.SearchResult{out.Result},
				[]*tuning.SearchResult{out.Baseline},
			)
			return c.write(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&family, "family", "random_forest", "model family to tune")
	return cmd
}

func newRunCmd(c *cli) *cobra.Command {
	var summary bool
	cmd := &cobra.Command{
		Use:   "run <file.csv>",
		Short: "Validate, rank, tune every family and compare the results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := readDataset(args[0])
			if err != nil {
				return err
			}
			req, err := c.cfg.Request(c.target, c.features)
			if err != nil {
				return err
			}
			d, err := engine.New(tuning.DefaultRegistry(), c.cfg.EngineOptions()...).
				Run(cmd.Context(), ds, req)
			if err != nil {
				return err
			}
			if summary {
				_, err := cmd.OutOrStdout().Write([]byte(d.Report.Summary()))
				return err
			}
			return c.write(cmd.OutOrStdout(), d)
		},
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "print the comparison summary instead of the full decision")
	return cmd
}
