package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/wgomg/lexmetrics/internal/config"
	"github.com/wgomg/lexmetrics/internal/nlp"
	"github.com/wgomg/lexmetrics/internal/processor"
	"github.com/wgomg/lexmetrics/internal/report"
	"github.com/wgomg/lexmetrics/internal/utils"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		log := utils.NewLogger("error", false)
		log.Fatal(nil, "Failed to load configuration: %v", err)
	}
	if err := applyFlags(cfg, args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := cfg.Validate(); err != nil {
		log := utils.NewLogger("error", false)
		log.Fatal(nil, "Invalid configuration: %v", err)
	}

	logger := utils.NewLogger(cfg.App.LogLevel, cfg.App.Env == config.Production).With("run_id", uuid.NewString())
	defer logger.Sync()

	logger.Info(nil, "Starting corpus metrics run")
	logger.Info(nil, "Environment: %s", cfg.App.Env)
	logger.Info(nil, "Corpus: %s (%s)", cfg.Corpus.Dir, cfg.Corpus.Pattern)
	logger.Info(nil, "Report: %s", cfg.Report.Path)
	logger.Info(nil, "NLP engine: %s", cfg.Nlp.Engine)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files, err := processor.ListFiles(cfg.Corpus.Dir, cfg.Corpus.Pattern)
	if err != nil {
		logger.Error(nil, "Failed to list corpus files: %v", err)
		return 1
	}
	if len(files) == 0 {
		logger.Warn(nil, "No files in %s match %s", cfg.Corpus.Dir, cfg.Corpus.Pattern)
	}

	writer, err := report.NewWriter(cfg.Report.Path, cfg.Report.Format)
	if err != nil {
		logger.Error(nil, "Failed to open report: %v", err)
		return 1
	}
	defer writer.Close()

	parser, err := nlp.NewParser(ctx, logger, &cfg.Nlp)
	if err != nil {
		logger.Error(nil, "Failed to initialize NLP engine: %v", err)
		return 1
	}
	defer func() {
		if err := parser.Close(); err != nil {
			logger.Error(nil, "Failed to stop NLP engine: %v", err)
		}
	}()

	proc := processor.New(parser, writer, logger, processor.Options{
		FailFast:     cfg.Corpus.FailFast,
		WriteRetries: cfg.Report.WriteRetries,
		RetryDelay:   time.Duration(cfg.Report.RetryDelayMs) * time.Millisecond,
	})

	summary, runErr := proc.Run(ctx, files)

	logger.Info(
		nil,
		"Run finished in %s: processed=%d, failed=%d, flush_failures=%d, rows=%d",
		summary.Duration.Round(time.Millisecond),
		summary.Processed,
		len(summary.Failed),
		summary.FlushFailures,
		proc.Table().Len(),
	)
	for _, fe := range summary.Failed {
		logger.Warn(nil, "Skipped %s", fe.Error())
	}
	if cached, ok := parser.(*nlp.CachedParser); ok {
		logger.Debug(nil, "Parse cache: size=%d, hit_rate=%f", cached.Size(), cached.HitRate())
	}

	if runErr != nil {
		logger.Error(nil, "Run stopped: %v", runErr)
		return 1
	}
	if len(summary.Failed) > 0 {
		return 1
	}
	return 0
}

// applyFlags lets the command line override the environment configuration.
func applyFlags(cfg *config.Config, args []string) error {
	fs := pflag.NewFlagSet("lexmetrics", pflag.ContinueOnError)
	dir := fs.StringP("dir", "d", cfg.Corpus.Dir, "corpus directory")
	pattern := fs.StringP("pattern", "p", cfg.Corpus.Pattern, "file name pattern")
	out := fs.StringP("out", "o", cfg.Report.Path, "report file, rewritten after every document")
	format := fs.StringP("format", "f", cfg.Report.Format, "report format: csv, xlsx or sqlite (default: from --out extension)")
	engine := fs.StringP("engine", "e", cfg.Nlp.Engine, "NLP engine: spacy or conllu")
	model := fs.StringP("model", "m", cfg.Nlp.Model, "spaCy model name or directory")
	failFast := fs.Bool("fail-fast", cfg.Corpus.FailFast, "abort on the first file that cannot be processed")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return fmt.Errorf("expected at most one corpus directory, got %d", fs.NArg())
	}

	cfg.Corpus.Dir = *dir
	if fs.NArg() == 1 {
		cfg.Corpus.Dir = fs.Arg(0)
	}
	cfg.Corpus.Pattern = *pattern
	cfg.Corpus.FailFast = *failFast
	cfg.Report.Path = *out
	cfg.Report.Format = *format
	cfg.Nlp.Engine = *engine
	cfg.Nlp.Model = *model

	return nil
}
