package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func command(s *Stage, run func(cmd *cobra.Command, args []string) error) *cobra.Command {
	cmd := &cobra.Command{Use: s.Name, Args: cobra.MaximumNArgs(1), RunE: run}
	s.Bind(cmd)
	return cmd
}

func TestStageArchivesAndReads(t *testing.T) {
	dir := t.TempDir()
	s := &Stage{Name: "clean-games"}
	df := dataframe.New(
		series.New([]string{"Alabama", "Georgia"}, series.String, "Team"),
		series.New([]int{1, 2}, series.Int, "Week"),
	)

	var read dataframe.DataFrame
	cmd := command(s, func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			var err error
			read, err = s.Read(cmd.Context(), args[0])
			return err
		}
		return s.Archive(cmd, df, "all_games.csv")
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	logFile := filepath.Join(dir, "clean-games.log")
	cmd.SetArgs([]string{"-o", dir, "--format", "csv,sqlite", "--log-file", logFile})

	require.Equal(t, 0, s.Execute(context.Background(), cmd))
	paths := strings.Fields(out.String())
	require.Len(t, paths, 2)
	assert.Equal(t, ".csv", filepath.Ext(paths[0]))
	assert.Equal(t, ".sqlite", filepath.Ext(paths[1]))
	assert.True(t, strings.HasPrefix(filepath.Base(paths[0]), "all_games-"))

	info, err := os.Stat(logFile)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())

	s2 := &Stage{Name: "clean-games"}
	cmd = command(s2, func(cmd *cobra.Command, args []string) error {
		var err error
		read, err = s2.Read(cmd.Context(), args[0])
		return err
	})
	cmd.SetArgs([]string{paths[1], "--log-file", ""})
	require.Equal(t, 0, s2.Execute(context.Background(), cmd))
	assert.Equal(t, 2, read.Nrow())
	assert.Equal(t, []string{"parquet", "csv"}, s2.Formats)
}

func TestStageFailures(t *testing.T) {
	dir := t.TempDir()
	s := &Stage{Name: "clean-games"}
	cmd := command(s, func(cmd *cobra.Command, args []string) error {
		_, err := s.Read(cmd.Context(), args[0])
		return err
	})
	cmd.SetArgs([]string{filepath.Join(dir, "missing.json"), "--log-file", ""})
	assert.Equal(t, 1, s.Execute(context.Background(), cmd))

	s = &Stage{Name: "clean-games"}
	cmd = command(s, func(cmd *cobra.Command, args []string) error { return nil })
	cmd.SetArgs([]string{"--config", filepath.Join(dir, "missing.yaml")})
	assert.Equal(t, 1, s.Execute(context.Background(), cmd))

	s = &Stage{Name: "clean-games"}
	cmd = command(s, func(cmd *cobra.Command, args []string) error { return nil })
	cmd.SetArgs([]string{"--format", "firestore", "--log-file", ""})
	assert.Equal(t, 1, s.Execute(context.Background(), cmd), "firestore without a project")
}

func TestStageRefusesCSVInput(t *testing.T) {
	dir := t.TempDir()
	df := dataframe.New(series.New([]float64{0.6666666, 0.6666667}, series.Float, "RollWinPct"))

	s := &Stage{Name: "create-feature-matrix"}
	cmd := command(s, func(cmd *cobra.Command, args []string) error {
		return s.Archive(cmd, df, "feature_matrix")
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"-o", dir, "--format", "csv,json", "--log-file", ""})
	require.Equal(t, 0, s.Execute(context.Background(), cmd))
	paths := strings.Fields(out.String())
	require.Len(t, paths, 2)

	var readErr error
	var read dataframe.DataFrame
	s = &Stage{Name: "train-model"}
	cmd = command(s, func(cmd *cobra.Command, args []string) error {
		read, readErr = s.Read(cmd.Context(), args[0])
		return readErr
	})
	cmd.SetArgs([]string{paths[0], "--log-file", ""})
	assert.Equal(t, 1, s.Execute(context.Background(), cmd))
	require.Error(t, readErr)
	assert.Contains(t, readErr.Error(), "inspection")

	s = &Stage{Name: "train-model"}
	cmd = command(s, func(cmd *cobra.Command, args []string) error {
		read, readErr = s.Read(cmd.Context(), args[0])
		return readErr
	})
	cmd.SetArgs([]string{paths[1], "--log-file", ""})
	require.Equal(t, 0, s.Execute(context.Background(), cmd))
	assert.Equal(t, []float64{0.6666666, 0.6666667}, read.Col("RollWinPct").Float())
}
