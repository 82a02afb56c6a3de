package nlp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/wgomg/lexmetrics/internal/config"
	"github.com/wgomg/lexmetrics/internal/utils"
)

type countingParser struct {
	calls  int
	closed bool
	err    error
}

func (p *countingParser) Parse(_ context.Context, text string) (*Document, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &Document{Tokens: []Token{{Text: text}}}, nil
}

func (p *countingParser) Name() string { return "counting" }

func (p *countingParser) Close() error {
	p.closed = true
	return nil
}

func TestCachedParser(t *testing.T) {
	t.Parallel()

	inner := &countingParser{}
	c := NewCachedParser(inner, 4)

	first, err := c.Parse(context.Background(), "the cat sat")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	second, err := c.Parse(context.Background(), "the cat sat")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if first != second {
		t.Error("identical text should return the cached document")
	}
	if _, err := c.Parse(context.Background(), "on the mat"); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if inner.calls != 2 {
		t.Errorf("inner parser called %d times, want 2", inner.calls)
	}
	if c.Size() != 2 {
		t.Errorf("Size = %d, want 2", c.Size())
	}
	if got, want := c.HitRate(), 1.0/3.0; got != want {
		t.Errorf("HitRate = %v, want %v", got, want)
	}
	if c.Name() != "counting" {
		t.Errorf("Name = %q", c.Name())
	}
	if err := c.Close(); err != nil || !inner.closed {
		t.Errorf("Close should close the wrapped parser, err=%v", err)
	}
}

func TestCachedParserStaysWithinCapacity(t *testing.T) {
	t.Parallel()

	const capacity = 4
	inner := &countingParser{}
	c := NewCachedParser(inner, capacity)

	word := strings.Repeat("w ", 10_000)
	for i := range 50 {
		if _, err := c.Parse(context.Background(), fmt.Sprintf("%d %s", i, word)); err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if c.Size() > capacity {
			t.Fatalf("after %d documents Size = %d, want at most %d", i+1, c.Size(), capacity)
		}
	}
	if c.Size() != capacity {
		t.Errorf("Size = %d, want %d", c.Size(), capacity)
	}
	if inner.calls != 50 {
		t.Errorf("inner parser called %d times, want 50", inner.calls)
	}
}

func TestCachedParserEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	inner := &countingParser{}
	c := NewCachedParser(inner, 2)
	ctx := context.Background()

	for _, text := range []string{"a", "b", "a", "c"} {
		if _, err := c.Parse(ctx, text); err != nil {
			t.Fatalf("Parse(%q): %v", text, err)
		}
	}
	// "b" was the least recently used when "c" arrived.
	if inner.calls != 3 {
		t.Fatalf("inner parser called %d times, want 3", inner.calls)
	}

	if _, err := c.Parse(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 3 {
		t.Errorf("recently used document was evicted, calls = %d", inner.calls)
	}
	if _, err := c.Parse(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 4 {
		t.Errorf("evicted document should be parsed again, calls = %d", inner.calls)
	}
	if c.Size() != 2 {
		t.Errorf("Size = %d, want 2", c.Size())
	}
}

func TestNewCachedParserDefaultCapacity(t *testing.T) {
	t.Parallel()

	c := NewCachedParser(&countingParser{}, 0)
	for i := range DefaultCacheSize + 5 {
		if _, err := c.Parse(context.Background(), fmt.Sprint(i)); err != nil {
			t.Fatal(err)
		}
	}
	if c.Size() != DefaultCacheSize {
		t.Errorf("Size = %d, want %d", c.Size(), DefaultCacheSize)
	}
}

func TestCachedParserDoesNotCacheErrors(t *testing.T) {
	t.Parallel()

	inner := &countingParser{err: errors.New("parse failed")}
	c := NewCachedParser(inner, 4)

	for range 2 {
		if _, err := c.Parse(context.Background(), "x"); err == nil {
			t.Fatal("expected error")
		}
	}
	if inner.calls != 2 || c.Size() != 0 {
		t.Errorf("calls=%d size=%d, want 2 and 0", inner.calls, c.Size())
	}
	if c.HitRate() != 0 {
		t.Errorf("HitRate = %v, want 0", c.HitRate())
	}
}

func TestNewParser(t *testing.T) {
	t.Parallel()

	logger := utils.NewDiscardLogger()

	p, err := NewParser(context.Background(), logger, &config.NlpConfig{Engine: config.EngineConllu, Cache: true, CacheSize: 2})
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	if _, ok := p.(*CachedParser); !ok {
		t.Errorf("cache enabled: got %T, want *CachedParser", p)
	}
	if p.Name() != config.EngineConllu {
		t.Errorf("Name = %q", p.Name())
	}

	p, err = NewParser(context.Background(), logger, &config.NlpConfig{Engine: config.EngineConllu})
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	if _, ok := p.(*ConlluParser); !ok {
		t.Errorf("cache disabled: got %T, want *ConlluParser", p)
	}

	_, err = NewParser(context.Background(), logger, &config.NlpConfig{Engine: "stanza"})
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Errorf("unknown engine error = %v, want ErrEngineUnavailable", err)
	}
}
