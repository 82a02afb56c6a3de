package report

import "strconv"

var Columns = []string{
	"file",
	"discipline",
	"time",
	"paradigm",
	"entropy",
	"corrected_entropy",
	"mean_distance",
}

type Row struct {
	File             string
	Discipline       string
	Time             string
	Paradigm         string
	Entropy          float64
	CorrectedEntropy float64
	MeanDistance     float64
}

// Strings renders the row in column order with full float precision.
func (r Row) Strings() []string {
	return []string{
		r.File,
		r.Discipline,
		r.Time,
		r.Paradigm,
		formatFloat(r.Entropy),
		formatFloat(r.CorrectedEntropy),
		formatFloat(r.MeanDistance),
	}
}

func (r Row) values() []any {
	return []any{
		r.File,
		r.Discipline,
		r.Time,
		r.Paradigm,
		r.Entropy,
		r.CorrectedEntropy,
		r.MeanDistance,
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Table is an append-only sequence of rows in processing order.
type Table struct {
	rows []Row
}

func NewTable() *Table {
	return &Table{}
}

func (t *Table) Append(row Row) {
	t.rows = append(t.rows, row)
}

// Rows returns a copy so callers cannot alter rows already appended.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	copy(out, t.rows)
	return out
}

func (t *Table) Len() int {
	return len(t.rows)
}
