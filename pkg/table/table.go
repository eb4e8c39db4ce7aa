package table

import (
	"math"
	"strconv"
)

// Kind tells which variant a Cell holds
type Kind int

const (
	Number Kind = iota
	Text
)

// Cell is a single scalar of a feature or characteristics table. It holds
// either a number or a textual value.
type Cell struct {
	Kind  Kind
	Value float64
	Label string
}

func Num(v float64) Cell {
	return Cell{Kind: Number, Value: v}
}

func Str(s string) Cell {
	return Cell{Kind: Text, Label: s}
}

// Missing is the number cell used for absent values.
func Missing() Cell {
	return Num(math.NaN())
}

func (c Cell) IsText() bool {
	return c.Kind == Text
}

func (c Cell) String() string {
	if c.Kind == Text {
		return c.Label
	}
	return strconv.FormatFloat(c.Value, 'g', -1, 64)
}

type Row []Cell

// Table is an ordered list of fixed-width rows.
type Table []Row

// Width returns the length of the first row, or 0 for an empty table.
func (t Table) Width() int {
	if len(t) == 0 {
		return 0
	}
	return len(t[0])
}

// Parse turns a raw string into a number cell when possible, otherwise a text cell.
func Parse(raw string) Cell {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Str(raw)
	}
	return Num(value)
}
