package nlp

import (
	"context"
	"fmt"

	"github.com/wgomg/lexmetrics/internal/config"
	"github.com/wgomg/lexmetrics/internal/utils"
)

// NewParser builds and starts the configured engine. The returned parser is
// loaded once and shared by every document of the run.
func NewParser(ctx context.Context, logger *utils.Logger, cfg *config.NlpConfig) (Parser, error) {
	var parser Parser

	switch cfg.Engine {
	case config.EngineSpacy:
		spacy := NewPythonParser(logger, cfg)
		if err := spacy.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize spaCy parser: %w", err)
		}
		parser = spacy
	case config.EngineConllu:
		logger.Info(nil, "Reading pre-parsed CoNLL-U documents")
		parser = NewConlluParser()
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", ErrEngineUnavailable, cfg.Engine)
	}

	if cfg.Cache {
		return NewCachedParser(parser, cfg.CacheSize), nil
	}
	return parser, nil
}
