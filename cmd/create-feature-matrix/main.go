package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reallyasi9/cfb-predict/internal/cfb"
	"github.com/reallyasi9/cfb-predict/internal/cli"
)

var (
	stage        = cli.Stage{Name: "create-feature-matrix"}
	weighting    string
	windowDays   int
	halflifeDays int
)

var rootCmd = &cobra.Command{
	Use:   "create-feature-matrix INFILE",
	Short: "Build the team-game feature matrix from the canonical game table",
	Long: `Read an all_games table, write every game from both teams' points of view, add each team's
and opponent's trailing-window win percentage, and archive the result as the feature_matrix table.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fc := &stage.Config.Features
		if cmd.Flags().Changed("weighting") {
			fc.Weighting = weighting
		}
		if cmd.Flags().Changed("window-days") {
			fc.WindowDays = windowDays
		}
		if cmd.Flags().Changed("halflife-days") {
			fc.HalflifeDays = halflifeDays
		}
		w, err := cfb.ParseWeighting(fc.Weighting)
		if err != nil {
			return err
		}
		opts := cfb.FeatureOptions{Window: fc.Window(), Halflife: fc.Halflife(), Weighting: w}

		df, err := stage.Read(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		games, err := cfb.GamesFromDataFrame(df)
		if err != nil {
			return err
		}
		rows, dups, err := cfb.BuildFeatures(games, opts)
		if err != nil {
			return err
		}
		if dups > 0 {
			stage.Log.Warn("teams with more than one game at the same kickoff", zap.Int("rows", dups))
		}
		stage.Log.Info("built features", zap.Int("games", len(games)), zap.Int("rows", len(rows)), zap.Stringer("weighting", w))
		return stage.Archive(cmd, cfb.FeatureRowsToDataFrame(rows), "feature_matrix")
	},
}

func init() {
	stage.Bind(rootCmd)
	rootCmd.Flags().StringVar(&weighting, "weighting", "none", "trailing win weighting: exponential, linear, or none")
	rootCmd.Flags().IntVar(&windowDays, "window-days", 365, "trailing window length in days")
	rootCmd.Flags().IntVar(&halflifeDays, "halflife-days", 365, "weighting halflife in days")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := stage.Execute(ctx, rootCmd)
	stop()
	os.Exit(code)
}
