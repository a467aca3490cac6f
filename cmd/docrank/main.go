// Command docrank ranks the sections of a document collection for a persona
// and task. It reads its input directory and writes one output record; all
// settings come from the environment or docrank.yaml.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/dgallion1/docrank/internal/config"
	"github.com/dgallion1/docrank/internal/embedding"
	"github.com/dgallion1/docrank/internal/logging"
	"github.com/dgallion1/docrank/internal/output"
	"github.com/dgallion1/docrank/internal/pipeline"
)

const (
	exitFatal = 1
	exitInput = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		return fatal("configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return fatal("configuration", err)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fatal("logging", err)
	}
	defer log.Sync()

	desc, src, err := pipeline.LoadBatchInput(cfg)
	if err != nil {
		return fatal("input", err)
	}

	eng, err := embedding.New(embedding.FromConfig(cfg.Embedding), log, nil)
	if err != nil {
		return fatal("embedding", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := pipeline.NewRunner(cfg, eng, log, nil)
	r := pipeline.NewRun()
	rec, err := runner.Run(ctx, r, desc, src)
	if err != nil {
		return fatal("run", err)
	}

	path := filepath.Join(cfg.OutputDir, cfg.OutputName)
	if err := output.Write(path, rec); err != nil {
		return fatal("output", err)
	}

	snap := r.Snapshot()
	log.Info("output written",
		zap.String("path", path),
		zap.String("run_id", r.ID),
		zap.Int("sections", len(rec.ExtractedSections)),
	)
	if n := len(snap.Progress.Excluded); n > 0 {
		color.New(color.FgYellow).Fprintf(os.Stderr, "docrank: %d of %d documents excluded\n", n, len(desc.Documents))
	}
	return 0
}

// fatal prints a diagnostic naming the failed stage and returns the exit code.
func fatal(stage string, err error) int {
	color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "docrank: %s: %v\n", stage, err)
	var inErr *pipeline.InputError
	if errors.As(err, &inErr) {
		return exitInput
	}
	if stage == "configuration" {
		fmt.Fprintln(os.Stderr, "see docrank.yaml or the environment for settings")
	}
	return exitFatal
}
