package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/wgomg/lexmetrics/internal/metrics"
	"github.com/wgomg/lexmetrics/internal/nlp"
	"github.com/wgomg/lexmetrics/internal/report"
	"github.com/wgomg/lexmetrics/internal/utils"
)

// Options controls failure handling and report write retries.
type Options struct {
	FailFast     bool
	WriteRetries int
	RetryDelay   time.Duration
}

// FileError is a file that could not be measured, with the reason.
type FileError struct {
	File string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

type Result struct {
	Row     report.Row
	Metrics metrics.Summary
}

type Summary struct {
	Processed     int
	Failed        []*FileError
	FlushFailures int
	Duration      time.Duration
}

// Processor runs files one at a time and rewrites the whole report after
// each of them, so an interrupted run keeps everything finished so far.
type Processor struct {
	parser nlp.Parser
	writer report.Writer
	logger *utils.Logger
	opts   Options
	table  *report.Table
	dirty  bool
	sleep  func(time.Duration)
}

func New(parser nlp.Parser, writer report.Writer, logger *utils.Logger, opts Options) *Processor {
	return &Processor{
		parser: parser,
		writer: writer,
		logger: logger,
		opts:   opts,
		table:  report.NewTable(),
		sleep:  time.Sleep,
	}
}

func (p *Processor) Table() *report.Table {
	return p.table
}

// ProcessFile reads, parses and measures one file. It does not touch the
// table.
func (p *Processor) ProcessFile(ctx context.Context, path string, reqID string) (*Result, error) {
	name := filepath.Base(path)

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("file is not valid UTF-8")
	}

	doc, err := p.parser.Parse(ctx, string(content))
	if err != nil {
		return nil, fmt.Errorf("parse with %s: %w", p.parser.Name(), err)
	}

	summary, err := metrics.Compute(doc)
	if err != nil {
		return nil, fmt.Errorf("compute metrics: %w", err)
	}

	codes := ClassifyName(name)
	if !codes.Complete() {
		p.logger.Warn(&reqID, "File name %q is shorter than the three classification characters", name)
	}
	if summary.Tokens == 0 {
		p.logger.Warn(&reqID, "File %s has no content tokens, metrics reported as 0", name)
	}

	return &Result{
		Row: report.Row{
			File:             name,
			Discipline:       codes.Discipline,
			Time:             codes.Time,
			Paradigm:         codes.Paradigm,
			Entropy:          summary.Entropy,
			CorrectedEntropy: summary.CorrectedEntropy,
			MeanDistance:     summary.MeanDistance,
		},
		Metrics: summary,
	}, nil
}

// Run processes files in order. A failing file is logged and skipped unless
// FailFast is set. Cancellation takes effect between files. The returned
// error is non-nil when the run stopped early or the final report could not
// be written.
func (p *Processor) Run(ctx context.Context, files []string) (*Summary, error) {
	started := time.Now()
	summary := &Summary{}
	defer func() { summary.Duration = time.Since(started) }()

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			p.logger.Warn(nil, "Run interrupted before %s, %d of %d files done", filepath.Base(path), i, len(files))
			return summary, p.finish(summary, err)
		}

		reqID := uuid.NewString()
		name := filepath.Base(path)
		p.logger.Info(&reqID, "Processing %s (%d/%d)", name, i+1, len(files))

		result, err := p.ProcessFile(ctx, path, reqID)
		if err != nil {
			fileErr := &FileError{File: name, Err: err}

			if errors.Is(err, nlp.ErrEngineUnavailable) {
				p.logger.Error(&reqID, "NLP engine failed on %s: %v", name, err)
				return summary, p.finish(summary, fileErr)
			}
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				p.logger.Warn(&reqID, "Run interrupted while processing %s", name)
				return summary, p.finish(summary, err)
			}

			summary.Failed = append(summary.Failed, fileErr)
			if p.opts.FailFast {
				p.logger.Error(&reqID, "Aborting run on %s: %v", name, err)
				return summary, p.finish(summary, fileErr)
			}
			p.logger.Error(&reqID, "Skipping %s: %v", name, err)
			continue
		}

		p.table.Append(result.Row)
		summary.Processed++

		p.logger.Info(
			&reqID,
			"Measured %s: tokens=%d, types=%d, entropy=%.4f, corrected_entropy=%.4f, mean_distance=%.4f",
			name,
			result.Metrics.Tokens,
			result.Metrics.Types,
			result.Metrics.Entropy,
			result.Metrics.CorrectedEntropy,
			result.Metrics.MeanDistance,
		)

		if err := p.flush(&reqID); err != nil {
			summary.FlushFailures++
			p.logger.Error(&reqID, "Report not written after %s, %d rows kept in memory: %v", name, p.table.Len(), err)
		}
	}

	return summary, p.finish(summary, nil)
}

// finish makes sure the report on disk holds every row in the table and
// returns cause, or the write error when there is no earlier cause. A run
// that produced no rows writes an empty report only when none exists yet.
func (p *Processor) finish(summary *Summary, cause error) error {
	if !p.dirty && p.table.Len() == 0 {
		if _, err := os.Stat(p.writer.Path()); err == nil {
			p.logger.Warn(nil, "No rows measured, leaving existing report %s untouched", p.writer.Path())
			return cause
		}
		p.dirty = true
	}

	if p.dirty {
		if err := p.flush(nil); err != nil {
			summary.FlushFailures++
			werr := fmt.Errorf("write report %s: %w", p.writer.Path(), err)
			if cause != nil {
				return errors.Join(cause, werr)
			}
			return werr
		}
	}
	return cause
}

func (p *Processor) flush(reqID *string) error {
	rows := p.table.Rows()

	var err error
	for attempt := 0; attempt <= p.opts.WriteRetries; attempt++ {
		if attempt > 0 {
			delay := p.opts.RetryDelay * time.Duration(attempt)
			p.logger.Warn(reqID, "Retrying report write in %s (attempt %d/%d): %v", delay, attempt, p.opts.WriteRetries, err)
			p.sleep(delay)
		}

		if err = p.writer.Write(rows); err == nil {
			p.dirty = false
			p.logger.Debug(reqID, "Wrote %d rows to %s", len(rows), p.writer.Path())
			return nil
		}
	}

	p.dirty = true
	return err
}
