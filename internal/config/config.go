// Package config holds the settings shared by the pipeline stages.  Default gives the values the
// stages run with; a YAML file can override any of them.
package config

import (
	"fmt"
	"io/ioutil"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// Downloader configures the schedule scraper.
type Downloader struct {
	YearsURL         string `yaml:"years_url"`
	ScheduleLinkText string `yaml:"schedule_link_text"`
	UserAgent        string `yaml:"user_agent"`
}

// Cleaner configures game cleaning.
type Cleaner struct {
	DefaultTime string `yaml:"default_time"`
}

// Features configures the trailing-window form features.
type Features struct {
	WindowDays   int    `yaml:"window_days"`
	HalflifeDays int    `yaml:"halflife_days"`
	Weighting    string `yaml:"weighting"`
}

// Window returns the trailing window as a duration.
func (f Features) Window() time.Duration {
	return time.Duration(f.WindowDays) * 24 * time.Hour
}

// Halflife returns the weighting halflife as a duration.
func (f Features) Halflife() time.Duration {
	return time.Duration(f.HalflifeDays) * 24 * time.Hour
}

// Trainer configures season filtering, the train/test split, and the recurrent model.
type Trainer struct {
	MinSeasonGames int     `yaml:"min_season_games"`
	MinYear        int     `yaml:"min_year"`
	TestFraction   float64 `yaml:"test_fraction"`
	Seed           int64   `yaml:"seed"`
	Epochs         int     `yaml:"epochs"`
	EmbeddingSize  int     `yaml:"embedding_size"`
	HiddenSize     int     `yaml:"hidden_size"`
	Layers         int     `yaml:"layers"`
	LearningRate   float64 `yaml:"learning_rate"`
}

// Archive configures where and how tables are written.
type Archive struct {
	Formats          []string `yaml:"formats"`
	FirestoreProject string   `yaml:"firestore_project"`
}

// Config is the whole pipeline configuration.
type Config struct {
	Downloader Downloader `yaml:"downloader"`
	Cleaner    Cleaner    `yaml:"cleaner"`
	Features   Features   `yaml:"features"`
	Trainer    Trainer    `yaml:"trainer"`
	Archive    Archive    `yaml:"archive"`
}

// Default returns the configuration the pipeline runs with when no file is given.
func Default() *Config {
	return &Config{
		Downloader: Downloader{
			YearsURL:         "https://www.sports-reference.com/cfb/years/",
			ScheduleLinkText: "Schedule & Scores",
			UserAgent:        "Mozilla/5.0 (compatible; cfb-predict/1.0)",
		},
		Cleaner: Cleaner{
			DefaultTime: "12:00 AM",
		},
		Features: Features{
			WindowDays:   365,
			HalflifeDays: 365,
			Weighting:    "none",
		},
		Trainer: Trainer{
			MinSeasonGames: 8,
			MinYear:        0,
			TestFraction:   .25,
			Seed:           0xdeadbeef,
			Epochs:         10,
			EmbeddingSize:  10,
			HiddenSize:     64,
			Layers:         2,
			LearningRate:   .001,
		},
		Archive: Archive{
			Formats: []string{"parquet", "csv"},
		},
	}
}

// Load reads a YAML file over the defaults.  An empty path returns the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	if err := yaml.UnmarshalStrict(b, c); err != nil {
		return nil, fmt.Errorf("Load: cannot parse %q: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("Load: %q: %w", path, err)
	}
	return c, nil
}

// Validate checks values that would make a stage fail late.
func (c *Config) Validate() error {
	switch {
	case c.Features.WindowDays <= 0:
		return fmt.Errorf("features.window_days must be positive, got %d", c.Features.WindowDays)
	case c.Features.HalflifeDays <= 0:
		return fmt.Errorf("features.halflife_days must be positive, got %d", c.Features.HalflifeDays)
	case c.Trainer.TestFraction < 0 || c.Trainer.TestFraction >= 1:
		return fmt.Errorf("trainer.test_fraction must be in [0, 1), got %g", c.Trainer.TestFraction)
	case c.Trainer.Epochs < 0:
		return fmt.Errorf("trainer.epochs must not be negative, got %d", c.Trainer.Epochs)
	case c.Trainer.HiddenSize <= 0 || c.Trainer.EmbeddingSize <= 0 || c.Trainer.Layers <= 0:
		return fmt.Errorf("trainer sizes must be positive")
	case len(c.Archive.Formats) == 0:
		return fmt.Errorf("archive.formats must name at least one format")
	}
	return nil
}

// String dumps the configuration as YAML for logging.
func (c *Config) String() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("%+v", *c)
	}
	return string(b)
}
