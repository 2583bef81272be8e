// Command validate checks gridshare JSON config files before they are
// deployed. For each file it reports:
//   - JSON syntax errors and unknown keys
//   - Out-of-range values (dimensions, port, buffers, rate limits)
//   - Settings that are legal but worth a second look, such as accepting
//     every WebSocket origin
//
// With no arguments it validates configs/*.json.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/mcp-training/gridshare/game/config"
)

// ValidationResult captures the outcome of validating a single file.
// Notes are informational and never make a file invalid.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Notes  []string
}

// validateConfig loads and validates a single configuration file.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	cfg, err := config.LoadFile(filePath)
	if err != nil {
		result.Valid = false
		if errors.Is(err, config.ErrInvalidConfig) {
			msg := strings.TrimPrefix(err.Error(), config.ErrInvalidConfig.Error()+": ")
			result.Errors = append(result.Errors, strings.Split(msg, "; ")...)
		} else {
			result.Errors = append(result.Errors, err.Error())
		}
		return result
	}

	result.Notes = append(result.Notes,
		fmt.Sprintf("grid %dx%d (%d cells, %d states)", cfg.Rows, cfg.Cols, cfg.Rows*cfg.Cols, cfg.States),
		fmt.Sprintf("listens on %s", cfg.Addr()))

	// An init frame carries every cell, so large grids mean large frames.
	if cells := cfg.Rows * cfg.Cols; cells > 10000 {
		result.Notes = append(result.Notes, fmt.Sprintf("%d cells: each join sends a large snapshot", cells))
	}
	if len(cfg.AllowedOrigins) == 0 {
		result.Notes = append(result.Notes, "allowed_origins is empty: WebSocket connections from any origin are accepted")
	}
	if cfg.RateLimit == 0 {
		result.Notes = append(result.Notes, "rate_limit is 0: REST mutations are not rate limited")
	}
	if cfg.IdleTimeout.Duration == 0 {
		result.Notes = append(result.Notes, "idle_timeout is 0: idle clients are never dropped")
	}
	if cfg.SendBuffer < 16 {
		result.Notes = append(result.Notes, fmt.Sprintf("send_buffer %d is small: bursts of edits may drop slow clients", cfg.SendBuffer))
	}

	return result
}

// report prints one section per result and returns whether all were valid.
func report(w io.Writer, results []ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "VALID")
		} else {
			fmt.Fprintln(w, "INVALID")
			allValid = false
		}
		for _, e := range result.Errors {
			fmt.Fprintln(w, "  error: "+e)
		}
		for _, n := range result.Notes {
			fmt.Fprintln(w, "  note: "+n)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "All configurations are valid")
	} else {
		fmt.Fprintln(w, "Some configurations have errors")
	}
	return allValid
}

func main() {
	files := os.Args[1:]
	if len(files) == 0 {
		matches, err := filepath.Glob(filepath.Join("configs", "*.json"))
		if err != nil {
			fmt.Printf("Error finding config files: %v\n", err)
			os.Exit(1)
		}
		files = matches
	}
	if len(files) == 0 {
		fmt.Println("No config files found")
		os.Exit(1)
	}

	results := make([]ValidationResult, 0, len(files))
	for _, file := range files {
		results = append(results, validateConfig(file))
	}

	if !report(os.Stdout, results) {
		os.Exit(1)
	}
}
