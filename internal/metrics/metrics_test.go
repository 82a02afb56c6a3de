package metrics

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/wgomg/lexmetrics/internal/nlp"
)

const tolerance = 1e-9

// chain builds a document whose content words each depend on the previous
// one; the first word is the root. Entries "." and " " become punctuation and
// whitespace tokens.
func chain(words ...string) *nlp.Document {
	doc := &nlp.Document{}
	for i, w := range words {
		head := i - 1
		if i == 0 {
			head = 0
		}
		doc.Tokens = append(doc.Tokens, nlp.Token{
			Text:    w,
			IsPunct: w == ".",
			IsSpace: strings.TrimSpace(w) == "",
			Index:   i,
			Head:    head,
		})
	}
	return doc
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < tolerance
}

func TestEntropyScenarios(t *testing.T) {
	t.Parallel()

	catSat := chain("the", "cat", "sat", "on", "the", "mat", ".")
	catSatEntropy := -(2.0/6.0*math.Log2(2.0/6.0) + 4*(1.0/6.0*math.Log2(1.0/6.0)))

	tests := []struct {
		name          string
		doc           *nlp.Document
		wantEntropy   float64
		wantMM        float64
		wantCorrected float64
	}{
		{
			name:          "the cat sat on the mat",
			doc:           catSat,
			wantEntropy:   catSatEntropy,
			wantMM:        4.0 / 12.0,
			wantCorrected: catSatEntropy + 4.0/12.0,
		},
		{
			name: "only punctuation and whitespace",
			doc:  chain(".", " ", "\n", "."),
		},
		{
			name: "empty document",
			doc:  &nlp.Document{},
		},
		{
			name: "single token",
			doc:  chain("hello"),
		},
		{
			name: "one repeated type",
			doc:  chain("la", "la", "la", "la"),
		},
		{
			name:          "all distinct",
			doc:           chain("a", "b", "c", "d"),
			wantEntropy:   2,
			wantMM:        3.0 / 8.0,
			wantCorrected: 2 + 3.0/8.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Entropy(tt.doc); !almostEqual(got, tt.wantEntropy) {
				t.Errorf("Entropy = %v, want %v", got, tt.wantEntropy)
			}
			if got := MillerMadow(tt.doc); !almostEqual(got, tt.wantMM) {
				t.Errorf("MillerMadow = %v, want %v", got, tt.wantMM)
			}
			if got := CorrectedEntropy(tt.doc); !almostEqual(got, tt.wantCorrected) {
				t.Errorf("CorrectedEntropy = %v, want %v", got, tt.wantCorrected)
			}
		})
	}
}

func TestScenarioValuesRounded(t *testing.T) {
	t.Parallel()

	doc := chain("the", "cat", "sat", "on", "the", "mat")

	if got := math.Round(Entropy(doc)*1000) / 1000; got != 2.252 {
		t.Errorf("entropy = %v, want ≈2.252", got)
	}
	if got := math.Round(MillerMadow(doc)*1000) / 1000; got != 0.333 {
		t.Errorf("miller-madow = %v, want ≈0.333", got)
	}
	if got := math.Round(CorrectedEntropy(doc)*1000) / 1000; got != 2.585 {
		t.Errorf("corrected entropy = %v, want ≈2.585", got)
	}
}

func TestMeanDependencyDistance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  *nlp.Document
		want float64
	}{
		{name: "empty", doc: &nlp.Document{}, want: 0},
		{name: "no content tokens", doc: chain(".", " "), want: 0},
		{name: "single root", doc: chain("hello"), want: 0},
		{
			// root 0, then four words at distance 1
			name: "chain",
			doc:  chain("a", "b", "c", "d", "e"),
			want: 4.0 / 5.0,
		},
		{
			name: "punctuation excluded",
			doc: &nlp.Document{Tokens: []nlp.Token{
				{Text: "She", Index: 0, Head: 1},
				{Text: "left", Index: 1, Head: 1},
				{Text: "yesterday", Index: 2, Head: 1},
				{Text: "!", IsPunct: true, Index: 3, Head: 0},
			}},
			want: 2.0 / 3.0,
		},
		{
			name: "long distance",
			doc: &nlp.Document{Tokens: []nlp.Token{
				{Text: "What", Index: 0, Head: 4},
				{Text: "did", Index: 1, Head: 4},
				{Text: "you", Index: 2, Head: 4},
				{Text: "really", Index: 3, Head: 4},
				{Text: "say", Index: 4, Head: 4},
			}},
			want: (4.0 + 3 + 2 + 1) / 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := MeanDependencyDistance(tt.doc); !almostEqual(got, tt.want) {
				t.Errorf("MeanDependencyDistance = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPropertiesHoldAcrossDocuments(t *testing.T) {
	t.Parallel()

	docs := []*nlp.Document{
		{},
		chain("."),
		chain("x"),
		chain("x", "x"),
		chain("x", "y"),
		chain("a", "b", "a", ".", "c", " ", "a", "b"),
		chain(strings.Fields("it was the best of times it was the worst of times")...),
	}

	for i, doc := range docs {
		e := Entropy(doc)
		ce := CorrectedEntropy(doc)
		mdd := MeanDependencyDistance(doc)
		types := len(Frequencies(doc))

		if e < 0 {
			t.Errorf("doc %d: entropy %v < 0", i, e)
		}
		if (e == 0) != (types <= 1) {
			t.Errorf("doc %d: entropy %v with %d types", i, e, types)
		}
		if ce < e {
			t.Errorf("doc %d: corrected entropy %v < entropy %v", i, ce, e)
		}
		if mdd < 0 {
			t.Errorf("doc %d: mean distance %v < 0", i, mdd)
		}
		if types > 0 && e > math.Log2(float64(len(ContentTokens(doc))))+tolerance {
			t.Errorf("doc %d: entropy %v above log2(n)", i, e)
		}
	}
}

func TestIdempotent(t *testing.T) {
	t.Parallel()

	doc := chain(strings.Fields("a rose is a rose is a rose and so on and so forth until the end of the text")...)

	first, err := Compute(doc)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	for range 50 {
		again, err := Compute(doc)
		if err != nil {
			t.Fatalf("Compute: %v", err)
		}
		if math.Float64bits(again.Entropy) != math.Float64bits(first.Entropy) ||
			math.Float64bits(again.CorrectedEntropy) != math.Float64bits(first.CorrectedEntropy) ||
			math.Float64bits(again.MeanDistance) != math.Float64bits(first.MeanDistance) {
			t.Fatalf("Compute not bit-identical: %+v vs %+v", again, first)
		}
		if math.Float64bits(Entropy(doc)) != math.Float64bits(first.Entropy) {
			t.Fatal("Entropy not bit-identical with Compute")
		}
	}
}

func TestFrequenciesInvariant(t *testing.T) {
	t.Parallel()

	doc := chain("the", "cat", ".", "sat", " ", "on", "the", "mat")
	freq := Frequencies(doc)

	sum := 0
	for text, count := range freq {
		if count < 1 {
			t.Errorf("%q has count %d", text, count)
		}
		sum += count
	}
	if n := len(ContentTokens(doc)); sum != n {
		t.Errorf("counts sum to %d, want %d content tokens", sum, n)
	}
	if freq["the"] != 2 || freq["."] != 0 {
		t.Errorf("frequencies = %v", freq)
	}
}

func TestCompute(t *testing.T) {
	t.Parallel()

	s, err := Compute(chain("the", "cat", "sat", "on", "the", "mat", "."))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if s.Tokens != 6 || s.Types != 5 {
		t.Errorf("tokens=%d types=%d, want 6 and 5", s.Tokens, s.Types)
	}
	if !almostEqual(s.CorrectedEntropy, s.Entropy+s.MillerMadow) {
		t.Errorf("corrected %v != %v + %v", s.CorrectedEntropy, s.Entropy, s.MillerMadow)
	}

	empty, err := Compute(chain(".", " "))
	if err != nil {
		t.Fatalf("Compute empty: %v", err)
	}
	if empty != (Summary{}) {
		t.Errorf("empty document summary = %+v, want zero", empty)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     *nlp.Document
		wantErr bool
	}{
		{name: "valid", doc: chain("a", "b", "c")},
		{name: "empty", doc: &nlp.Document{}},
		{name: "nil", doc: nil, wantErr: true},
		{
			name:    "negative index",
			doc:     &nlp.Document{Tokens: []nlp.Token{{Text: "a", Index: -1, Head: -1}}},
			wantErr: true,
		},
		{
			name: "duplicate index",
			doc: &nlp.Document{Tokens: []nlp.Token{
				{Text: "a", Index: 0, Head: 0},
				{Text: "b", Index: 0, Head: 0},
			}},
			wantErr: true,
		},
		{
			name:    "head outside document",
			doc:     &nlp.Document{Tokens: []nlp.Token{{Text: "a", Index: 0, Head: 7}}},
			wantErr: true,
		},
		{
			name: "punctuation head still checked",
			doc: &nlp.Document{Tokens: []nlp.Token{
				{Text: "a", Index: 0, Head: 0},
				{Text: ".", IsPunct: true, Index: 1, Head: 9},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(tt.doc)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformedToken) {
				t.Errorf("error %v does not wrap ErrMalformedToken", err)
			}
			if _, cerr := Compute(tt.doc); (cerr != nil) != tt.wantErr {
				t.Errorf("Compute() error = %v, wantErr %v", cerr, tt.wantErr)
			}
		})
	}
}
