package features

import (
	"errors"
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"ckml/pkg/table"
)

// ErrRaggedRow is returned when a row's width differs from the first row's.
var ErrRaggedRow = errors.New("row width differs from feature vector width")

// Conversion records, per column, the surrogate assigned to every textual value
// and the next unused surrogate. Columns are keyed by their decimal index.
type Conversion struct {
	Conv map[string]map[string]float64
	Next map[string]float64
}

func NewConversion() *Conversion {
	return &Conversion{
		Conv: map[string]map[string]float64{},
		Next: map[string]float64{},
	}
}

// Clone returns a deep copy. A nil conversion clones to an empty one.
func (c *Conversion) Clone() *Conversion {
	result := NewConversion()
	if c == nil {
		return result
	}
	for column, values := range c.Conv {
		copied := make(map[string]float64, len(values))
		for value, surrogate := range values {
			copied[value] = surrogate
		}
		result.Conv[column] = copied
	}
	for column, next := range c.Next {
		result.Next[column] = next
	}
	return result
}

// Surrogate returns the surrogate of value in column, assigning the next one
// on first sight.
func (c *Conversion) Surrogate(column int, value string) float64 {
	key := strconv.Itoa(column)
	values, ok := c.Conv[key]
	if !ok {
		values = map[string]float64{}
		c.Conv[key] = values
	}
	if surrogate, seen := values[value]; seen {
		return surrogate
	}
	surrogate := c.Next[key]
	values[value] = surrogate
	c.Next[key] = surrogate + 1
	return surrogate
}

// Decode returns the textual value mapped to surrogate in column.
func (c *Conversion) Decode(column int, surrogate float64) (string, bool) {
	for value, s := range c.Conv[strconv.Itoa(column)] {
		if s == surrogate {
			return value, true
		}
	}
	return "", false
}

// Encoding is the result of encoding a feature table.
type Encoding struct {
	Rows [][]float64
	*Conversion
}

// Dense returns the encoded rows as a matrix, or nil when there are none.
func (e *Encoding) Dense() *mat.Dense {
	if len(e.Rows) == 0 || len(e.Rows[0]) == 0 {
		return nil
	}
	width := len(e.Rows[0])
	data := make([]float64, 0, len(e.Rows)*width)
	for _, row := range e.Rows {
		data = append(data, row...)
	}
	return mat.NewDense(len(e.Rows), width, data)
}

// Encode replaces every textual cell by a per-column float surrogate assigned
// in first-seen order. Numeric cells pass through unchanged.
func Encode(t table.Table) (*Encoding, error) {
	return EncodeWith(t, nil)
}

// EncodeWith encodes t extending a copy of prior, so values already known to
// prior keep their surrogates. prior itself is left untouched.
func EncodeWith(t table.Table, prior *Conversion) (*Encoding, error) {
	conversion := prior.Clone()
	width := t.Width()
	rows := make([][]float64, 0, len(t))
	if width > 0 {
		for i, row := range t {
			if len(row) != width {
				return nil, fmt.Errorf("row %d has %d cells, expected %d: %w", i, len(row), width, ErrRaggedRow)
			}
			vec := make([]float64, width)
			for j, cell := range row {
				switch cell.Kind {
				case table.Text:
					vec[j] = conversion.Surrogate(j, cell.Label)
				case table.Number:
					vec[j] = cell.Value
				}
			}
			rows = append(rows, vec)
		}
	}
	return &Encoding{Rows: rows, Conversion: conversion}, nil
}
