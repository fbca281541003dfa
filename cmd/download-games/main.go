package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reallyasi9/cfb-predict/internal/cfb"
	"github.com/reallyasi9/cfb-predict/internal/cli"
	"github.com/reallyasi9/cfb-predict/internal/scrape"
)

var (
	stage   = cli.Stage{Name: "download-games"}
	years   []int
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "download-games",
	Short: "Download college football schedules and scores",
	Long: `Scrape the season schedules from sports-reference and archive them, one row per game, as the
raw_games table.  Without --year every listed season is downloaded.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d := scrape.NewDownloader(&http.Client{Timeout: timeout}, stage.Config.Downloader, stage.Log)
		raw, err := d.Download(cmd.Context(), years)
		if err != nil {
			return err
		}
		stage.Log.Info("downloaded games", zap.Int("rows", len(raw)), zap.Ints("years", years))
		return stage.Archive(cmd, cfb.RawGamesToDataFrame(raw), "raw_games")
	},
}

func init() {
	stage.Bind(rootCmd)
	rootCmd.Flags().IntSliceVar(&years, "year", nil, "season to download (repeatable; default all)")
	rootCmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "timeout for each page request")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := stage.Execute(ctx, rootCmd)
	stop()
	os.Exit(code)
}
