package app

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/etlgen/internal/planio"
	"github.com/specialistvlad/etlgen/internal/program"
)

// Stdout is the OutputPath that selects the app's output writer.
const Stdout = "-"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	DocPath string // .hcl file or directory

	// Kinds and Dialects override the document's compile block when set.
	Kinds    []string
	Dialects []string
	Mode     string

	OutputPath     string
	Format         string
	NoCompress     bool
	PruneRedundant bool
	StableIDs      bool
	Parallelism    int
	PublishURL     string

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.DocPath == "" {
		return nil, errors.New("DocPath is a required configuration field and cannot be empty")
	}
	if cfg.Mode != "" && !program.ValidMode(cfg.Mode) {
		return nil, fmt.Errorf("invalid mode %q: must be one of airflow, prefect, python, jupyter, r", cfg.Mode)
	}
	if _, err := program.ParseDialects(cfg.Dialects); err != nil {
		return nil, err
	}
	if cfg.Format == "" {
		cfg.Format = string(planio.YAML)
	}
	if _, err := planio.ParseFormat(cfg.Format); err != nil {
		return nil, err
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = Stdout
	}
	if cfg.Parallelism < 0 {
		return nil, fmt.Errorf("invalid parallelism %d: must not be negative", cfg.Parallelism)
	}
	return &cfg, nil
}
