package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/etlgen/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("etlgen", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
etlgen - compiles declarative ETL documents into ordered, deduplicated task plans.

Usage:
  etlgen [options] [DOC_PATH]

Arguments:
  DOC_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	docFlag := flagSet.String("doc", "", "Path to the document file or directory.")
	dFlag := flagSet.String("d", "", "Path to the document file or directory (shorthand).")
	kindsFlag := flagSet.String("kinds", "", "Comma-separated constraint kinds to satisfy. Overrides the compile block.")
	dialectsFlag := flagSet.String("dialects", "", "Comma-separated dialect preference order, e.g. 'python,bash'. Overrides the compile block.")
	modeFlag := flagSet.String("mode", "", "Output mode. Options: 'airflow', 'prefect', 'python', 'jupyter', 'r'.")
	outputFlag := flagSet.String("output", app.Stdout, "Plan output file. '-' writes to stdout.")
	formatFlag := flagSet.String("format", "yaml", "Plan output format. Options: 'yaml' or 'json'.")
	noCompressFlag := flagSet.Bool("no-compress", false, "Emit every task standalone instead of compressing them into loops.")
	pruneFlag := flagSet.Bool("prune-redundant", false, "Drop dependencies implied by a longer dependency path.")
	stableIDsFlag := flagSet.Bool("stable-ids", false, "Derive concept UUIDs from their position so the output is reproducible.")
	parallelismFlag := flagSet.Int("parallelism", 0, "Maximum concurrent evaluations per stage. 0 means unlimited.")
	publishFlag := flagSet.String("publish-url", "", "socket.io endpoint receiving compile events. Empty disables publishing.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *docFlag != "" {
		path = *docFlag
	} else if *dFlag != "" {
		path = *dFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Document path determined.", "path", path)

	if path == "" {
		slog.Debug("No document path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		DocPath:        path,
		Kinds:          splitList(*kindsFlag),
		Dialects:       splitList(*dialectsFlag),
		Mode:           strings.ToLower(*modeFlag),
		OutputPath:     *outputFlag,
		Format:         strings.ToLower(*formatFlag),
		NoCompress:     *noCompressFlag,
		PruneRedundant: *pruneFlag,
		StableIDs:      *stableIDsFlag,
		Parallelism:    *parallelismFlag,
		PublishURL:     *publishFlag,
		LogFormat:      logFormat,
		LogLevel:       logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// splitList splits a comma-separated flag value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
