package nlp

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/wgomg/lexmetrics/internal/config"
)

const conlluColumns = 10

// ConlluParser reads documents that are already annotated in CoNLL-U.
// Token indices run across sentence boundaries and a sentence root (HEAD 0)
// is its own head.
type ConlluParser struct{}

func NewConlluParser() *ConlluParser {
	return &ConlluParser{}
}

func (p *ConlluParser) Name() string {
	return config.EngineConllu
}

func (p *ConlluParser) Close() error {
	return nil
}

type conlluWord struct {
	line int
	id   int
	form string
	upos string
	head int
}

func (p *ConlluParser) Parse(ctx context.Context, text string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := &Document{}
	var sentence []conlluWord

	flush := func() error {
		base := len(doc.Tokens)
		for _, w := range sentence {
			if w.head > len(sentence) {
				return fmt.Errorf("line %d: head %d outside sentence of %d words", w.line, w.head, len(sentence))
			}
			index := base + w.id - 1
			head := index
			if w.head > 0 {
				head = base + w.head - 1
			}
			doc.Tokens = append(doc.Tokens, Token{
				Text:    w.form,
				IsPunct: w.upos == "PUNCT",
				Index:   index,
				Head:    head,
			})
		}
		sentence = sentence[:0]
		return nil
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")

		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != conlluColumns {
			return nil, fmt.Errorf("line %d: expected %d tab-separated columns, got %d", lineNo, conlluColumns, len(fields))
		}

		// multiword ranges (1-2) and empty nodes (1.1) carry no head of their own
		if strings.ContainsAny(fields[0], "-.") {
			continue
		}

		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid ID %q: %w", lineNo, fields[0], err)
		}
		if id != len(sentence)+1 {
			return nil, fmt.Errorf("line %d: word ID %d out of sequence, expected %d", lineNo, id, len(sentence)+1)
		}

		head, err := strconv.Atoi(fields[6])
		if err != nil || head < 0 {
			return nil, fmt.Errorf("line %d: invalid HEAD %q", lineNo, fields[6])
		}

		sentence = append(sentence, conlluWord{
			line: lineNo,
			id:   id,
			form: fields[1],
			upos: fields[3],
			head: head,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read conllu: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return doc, nil
}
