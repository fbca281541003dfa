package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reallyasi9/cfb-predict/internal/cfb"
	"github.com/reallyasi9/cfb-predict/internal/cli"
	"github.com/reallyasi9/cfb-predict/internal/train"
)

var (
	stage   = cli.Stage{Name: "train-model"}
	epochs  int
	minYear int
)

var rootCmd = &cobra.Command{
	Use:   "train-model INFILE",
	Short: "Train the recurrent win model on a feature matrix",
	Long: `Read a feature_matrix table, encode each team's season as a sequence, train the recurrent
model on all but the most recent season, and report test and holdout accuracy.  The per-epoch
training history is archived as the training_history table.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tc := &stage.Config.Trainer
		if cmd.Flags().Changed("epochs") {
			tc.Epochs = epochs
		}
		if cmd.Flags().Changed("min-year") {
			tc.MinYear = minYear
		}

		df, err := stage.Read(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		rows, err := cfb.FeatureRowsFromDataFrame(df)
		if err != nil {
			return err
		}
		ds, err := train.Prepare(rows, *tc, stage.Log)
		if err != nil {
			return err
		}
		_, report, err := train.Fit(ds, *tc, stage.Log)
		if err != nil {
			return err
		}
		stage.Log.Info("trained model",
			zap.Float64("test_accuracy", report.Test.Accuracy),
			zap.Float64("holdout_accuracy", report.Holdout.Accuracy),
			zap.Int("holdout_year", report.HoldoutYear))
		return stage.Archive(cmd, report.History(), "training_history")
	},
}

func init() {
	stage.Bind(rootCmd)
	rootCmd.Flags().IntVar(&epochs, "epochs", 10, "passes over the training set")
	rootCmd.Flags().IntVar(&minYear, "min-year", 0, "drop seasons before this year (0 keeps all)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := stage.Execute(ctx, rootCmd)
	stop()
	os.Exit(code)
}
