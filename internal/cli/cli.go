// Package cli holds the flags, logging, and archiving shared by the pipeline commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/go-gota/gota/dataframe"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reallyasi9/cfb-predict/internal/archive"
	"github.com/reallyasi9/cfb-predict/internal/config"
	"github.com/reallyasi9/cfb-predict/internal/logging"
)

// Stage is the common state of one pipeline command.
type Stage struct {
	Name string

	OutDir     string
	ConfigPath string
	Formats    []string
	Verbose    bool
	LogFile    string

	Config   *config.Config
	Log      *zap.Logger
	Archiver *archive.Archiver

	fs        *firestore.Client
	closeLogs func()
}

// Bind registers the common flags on cmd and sets it up to load configuration and logging before
// running.
func (s *Stage) Bind(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVarP(&s.OutDir, "outdir", "o", ".", "directory for archived tables")
	f.StringVar(&s.ConfigPath, "config", "", "YAML configuration file")
	f.StringSliceVar(&s.Formats, "format", nil, "archive formats: "+strings.Join(archive.Formats, ", ")+" (default from configuration)")
	f.BoolVarP(&s.Verbose, "verbose", "v", false, "log debug messages to stderr")
	f.StringVar(&s.LogFile, "log-file", s.Name+".log", "debug log file (empty to disable)")
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return s.setup(cmd.Context())
	}
}

func (s *Stage) setup(ctx context.Context) error {
	cfg, err := config.Load(s.ConfigPath)
	if err != nil {
		return err
	}
	s.Config = cfg

	log, closeLogs, err := logging.New(s.Name, s.LogFile, s.Verbose)
	if err != nil {
		return err
	}
	s.Log, s.closeLogs = log, closeLogs
	log.Debug("configuration", zap.String("config", cfg.String()))

	if len(s.Formats) == 0 {
		s.Formats = cfg.Archive.Formats
	}
	var fs *firestore.Client
	for _, f := range s.Formats {
		if f == archive.Firestore {
			if fs, err = s.firestore(ctx); err != nil {
				return err
			}
		}
	}
	s.Archiver = archive.New(s.OutDir, fs, log)
	return nil
}

func (s *Stage) firestore(ctx context.Context) (*firestore.Client, error) {
	if s.fs != nil {
		return s.fs, nil
	}
	if s.Config.Archive.FirestoreProject == "" {
		return nil, fmt.Errorf("firestore requires archive.firestore_project in the configuration")
	}
	fs, err := archive.NewFirestoreClient(ctx, s.Config.Archive.FirestoreProject)
	if err != nil {
		return nil, err
	}
	s.fs = fs
	return fs, nil
}

// Read loads the input table of a stage.  Paths under the archives collection are read from
// Firestore; anything else is a file.  CSV archives round floats to six places and are refused.
func (s *Stage) Read(ctx context.Context, path string) (dataframe.DataFrame, error) {
	var (
		df  dataframe.DataFrame
		err error
	)
	if strings.EqualFold(filepath.Ext(path), "."+archive.CSV) {
		return df, fmt.Errorf("%s: csv archives are for inspection; read the json, sqlite, or parquet archive instead", path)
	}
	prefix := archive.Collection + "/"
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) && strings.HasPrefix(path, prefix) {
		var fs *firestore.Client
		if fs, err = s.firestore(ctx); err != nil {
			return df, err
		}
		df, err = archive.ReadFirestore(ctx, fs, strings.TrimPrefix(path, prefix))
	} else {
		df, err = archive.Read(path)
	}
	if err != nil {
		return df, err
	}
	s.Log.Info("read table", zap.String("path", path), zap.Int("rows", df.Nrow()), zap.Int("cols", df.Ncol()))
	return df, nil
}

// Archive writes df under name in the configured formats and prints each path to cmd's output.
func (s *Stage) Archive(cmd *cobra.Command, df dataframe.DataFrame, name string) error {
	paths, err := s.Archiver.Archive(cmd.Context(), df, name, s.Formats...)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}

// Close releases the logger and any Firestore client.
func (s *Stage) Close() {
	if s.fs != nil {
		s.fs.Close()
	}
	if s.closeLogs != nil {
		s.closeLogs()
	}
}

// Execute runs cmd with a context cancelled on interrupt, logs any error, and returns the process
// exit code.
func (s *Stage) Execute(ctx context.Context, cmd *cobra.Command) int {
	err := cmd.ExecuteContext(ctx)
	defer s.Close()
	if err == nil {
		return 0
	}
	if s.Log != nil {
		s.Log.Error("failed", zap.Error(err))
	} else {
		fmt.Fprintf(os.Stderr, "%s: %v\n", s.Name, err)
	}
	return 1
}
