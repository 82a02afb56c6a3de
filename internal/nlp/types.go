package nlp

import (
	"context"
	"errors"
	"fmt"
)

var ErrEngineUnavailable = errors.New("nlp engine unavailable")

// Token is one record of a parsed document. Head is the Index of the token's
// syntactic governor; a sentence root points at itself.
type Token struct {
	Text    string
	IsPunct bool
	IsSpace bool
	Index   int
	Head    int
}

type Document struct {
	Tokens []Token
}

type Parser interface {
	Parse(ctx context.Context, text string) (*Document, error)
	Name() string
	Close() error
}

// EngineError is an error reported by the engine itself for one document.
type EngineError struct {
	Engine  string
	Message string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s engine error: %s", e.Engine, e.Message)
}
