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
	stage       = cli.Stage{Name: "clean-games"}
	defaultTime string
)

var rootCmd = &cobra.Command{
	Use:   "clean-games INFILE",
	Short: "Clean downloaded games into the canonical game table",
	Long: `Read a raw_games table, split rankings from team names, place the home and away teams,
parse kickoff times, and archive the result as the all_games table.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("default-time") {
			stage.Config.Cleaner.DefaultTime = defaultTime
		}

		df, err := stage.Read(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		raw, err := cfb.RawGamesFromDataFrame(df)
		if err != nil {
			return err
		}
		games, err := cfb.Clean(raw, stage.Config.Cleaner.DefaultTime)
		if err != nil {
			return err
		}
		stage.Log.Info("cleaned games", zap.Int("raw", len(raw)), zap.Int("games", len(games)))
		return stage.Archive(cmd, cfb.GamesToDataFrame(games), "all_games")
	},
}

func init() {
	stage.Bind(rootCmd)
	rootCmd.Flags().StringVar(&defaultTime, "default-time", cfb.DefaultTime, "kickoff time assumed when none is listed")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := stage.Execute(ctx, rootCmd)
	stop()
	os.Exit(code)
}
