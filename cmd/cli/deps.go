package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/finn-wa/grocy-trolley-sub000/internal/app"
	"github.com/finn-wa/grocy-trolley-sub000/internal/importer"
	"github.com/finn-wa/grocy-trolley-sub000/internal/prompt"
	"github.com/finn-wa/grocy-trolley-sub000/internal/report"
	"github.com/finn-wa/grocy-trolley-sub000/internal/storage"
	"github.com/finn-wa/grocy-trolley-sub000/internal/store"
)

func newPrompter() prompt.Prompter {
	if cfg.Import.NonInteractive {
		return prompt.Always{Choice: -1}
	}
	return prompt.NewTerminal(os.Stdin, os.Stdout)
}

// newImporter wires an importer for the --store flag.
func newImporter() (*importer.Importer, error) {
	code, err := store.ParseCode(storeCode)
	if err != nil {
		return nil, err
	}
	return app.New(cfg, newPrompter(), *logger).Importer(code)
}

// finishRun prints the run table and archives the run when a report
// directory is configured. The run error is returned unchanged.
func finishRun(run *report.Run, runErr error) error {
	if run == nil {
		return runErr
	}
	if err := report.WriteTable(os.Stdout, run); err != nil {
		logger.Warn().Err(err).Msg("Failed to print report")
	}
	if dir := cfg.Import.ReportDir; dir != "" {
		if err := archiveRun(dir, run); err != nil {
			logger.Warn().Err(err).Msg("Failed to write report")
		}
	}
	if runErr != nil {
		return fmt.Errorf("%s import aborted: %w", run.Source, runErr)
	}
	return nil
}

func archiveRun(dir string, run *report.Run) error {
	st, err := storage.NewLocalStorage(dir)
	if err != nil {
		return err
	}
	keys, err := report.Archive(context.Background(), st, run)
	if err != nil {
		return err
	}
	logger.Info().Str("dir", dir).Strs("keys", keys).Dur("elapsed", time.Since(run.StartedAt)).Msg("Report written")
	return nil
}
