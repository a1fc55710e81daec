// Package dataset holds ordered text records and maps tokenization over them,
// merging each output field into the records as a new column.
package dataset

import (
	"maps"

	"github.com/ZanzyTHEbar/tokprep/tokprep/preprocess"
)

// Dataset is an ordered, immutable list of records.
type Dataset struct {
	rows []preprocess.Record
}

// New returns a Dataset over shallow copies of rows.
func New(rows []preprocess.Record) *Dataset {
	out := make([]preprocess.Record, len(rows))
	for i, r := range rows {
		out[i] = maps.Clone(r)
		if out[i] == nil {
			out[i] = preprocess.Record{}
		}
	}
	return &Dataset{rows: out}
}

// FromTexts returns a Dataset with one record per text.
func FromTexts(texts ...string) *Dataset {
	rows := make([]preprocess.Record, len(texts))
	for i, t := range texts {
		rows[i] = preprocess.Record{preprocess.FieldText: t}
	}
	return &Dataset{rows: rows}
}

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.rows) }

// Row returns a copy of record i.
func (d *Dataset) Row(i int) preprocess.Record { return maps.Clone(d.rows[i]) }

// Rows returns copies of all records.
func (d *Dataset) Rows() []preprocess.Record {
	out := make([]preprocess.Record, len(d.rows))
	for i, r := range d.rows {
		out[i] = maps.Clone(r)
	}
	return out
}

// Column returns the value of name for every record; missing values are nil.
func (d *Dataset) Column(name string) []any {
	out := make([]any, len(d.rows))
	for i, r := range d.rows {
		out[i] = r[name]
	}
	return out
}

// ColumnNames returns the columns of the first record.
func (d *Dataset) ColumnNames() []string {
	if len(d.rows) == 0 {
		return nil
	}
	names := make([]string, 0, len(d.rows[0]))
	for k := range d.rows[0] {
		names = append(names, k)
	}
	return names
}
