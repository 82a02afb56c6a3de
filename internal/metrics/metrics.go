// Package metrics computes lexical and syntactic statistics of one parsed
// document. Every function is pure; only content tokens (neither
// punctuation nor whitespace) are counted.
package metrics

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/wgomg/lexmetrics/internal/nlp"
)

// ErrMalformedToken reports a token whose index or head does not fit the document.
var ErrMalformedToken = errors.New("malformed token")

// Summary holds the counts and metrics computed for one document.
type Summary struct {
	Tokens           int
	Types            int
	Entropy          float64
	MillerMadow      float64
	CorrectedEntropy float64
	MeanDistance     float64
}

// IsContent reports whether tok counts towards the frequency table.
func IsContent(tok nlp.Token) bool {
	return !tok.IsPunct && !tok.IsSpace
}

func ContentTokens(doc *nlp.Document) []nlp.Token {
	var content []nlp.Token
	for _, tok := range doc.Tokens {
		if IsContent(tok) {
			content = append(content, tok)
		}
	}
	return content
}

// Frequencies maps each content-token text to its number of occurrences.
func Frequencies(doc *nlp.Document) map[string]int {
	frequencies := make(map[string]int)
	for _, tok := range doc.Tokens {
		if IsContent(tok) {
			frequencies[tok.Text]++
		}
	}
	return frequencies
}

// Entropy is the Shannon entropy in bits of the content-token text
// distribution. It is 0 for a document without content tokens.
func Entropy(doc *nlp.Document) float64 {
	return entropy(Frequencies(doc))
}

func entropy(frequencies map[string]int) float64 {
	total := 0
	for _, freq := range frequencies {
		total += freq
	}
	if total == 0 {
		return 0
	}

	// fixed summation order keeps repeated calls bit-identical
	result := 0.0
	for _, text := range slices.Sorted(maps.Keys(frequencies)) {
		p := float64(frequencies[text]) / float64(total)
		result -= p * math.Log2(p)
	}
	return result
}

// MillerMadow is the bias-correction term (T-1)/(2N) for T distinct texts
// over N content tokens, or 0 when N is 0.
func MillerMadow(doc *nlp.Document) float64 {
	types := make(map[string]struct{})
	tokens := 0
	for _, tok := range doc.Tokens {
		if IsContent(tok) {
			types[tok.Text] = struct{}{}
			tokens++
		}
	}
	return millerMadow(len(types), tokens)
}

func millerMadow(types, tokens int) float64 {
	if tokens == 0 {
		return 0
	}
	return float64(types-1) / float64(2*tokens)
}

// CorrectedEntropy is Entropy plus the Miller–Madow term.
func CorrectedEntropy(doc *nlp.Document) float64 {
	return Entropy(doc) + MillerMadow(doc)
}

// MeanDependencyDistance averages |Index-Head| over content tokens.
func MeanDependencyDistance(doc *nlp.Document) float64 {
	totalDistance := 0
	totalTokens := 0

	for _, tok := range doc.Tokens {
		if !IsContent(tok) {
			continue
		}
		distance := tok.Index - tok.Head
		if distance < 0 {
			distance = -distance
		}
		totalDistance += distance
		totalTokens++
	}

	if totalTokens == 0 {
		return 0
	}
	return float64(totalDistance) / float64(totalTokens)
}

// Validate reports token records that cannot come from a dependency parse:
// negative or duplicate indices and heads that point outside the document.
func Validate(doc *nlp.Document) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", ErrMalformedToken)
	}

	indices := make(map[int]struct{}, len(doc.Tokens))
	for pos, tok := range doc.Tokens {
		if tok.Index < 0 {
			return fmt.Errorf("%w: token %d (%q) has negative index %d", ErrMalformedToken, pos, tok.Text, tok.Index)
		}
		if _, dup := indices[tok.Index]; dup {
			return fmt.Errorf("%w: token %d (%q) repeats index %d", ErrMalformedToken, pos, tok.Text, tok.Index)
		}
		indices[tok.Index] = struct{}{}
	}

	for pos, tok := range doc.Tokens {
		if _, ok := indices[tok.Head]; !ok {
			return fmt.Errorf("%w: token %d (%q) has head %d outside the document", ErrMalformedToken, pos, tok.Text, tok.Head)
		}
	}
	return nil
}

// Compute validates doc and derives every statistic of its content tokens.
func Compute(doc *nlp.Document) (Summary, error) {
	if err := Validate(doc); err != nil {
		return Summary{}, err
	}

	frequencies := Frequencies(doc)
	tokens := 0
	for _, freq := range frequencies {
		tokens += freq
	}

	s := Summary{
		Tokens:       tokens,
		Types:        len(frequencies),
		Entropy:      entropy(frequencies),
		MeanDistance: MeanDependencyDistance(doc),
	}
	s.MillerMadow = millerMadow(s.Types, s.Tokens)
	s.CorrectedEntropy = s.Entropy + s.MillerMadow

	return s, nil
}
