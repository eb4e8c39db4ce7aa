package model

import (
	"ckml/pkg/features"
	"ckml/pkg/table"
)

// NameMap implements a bidirectional mapping between a name and an index
type NameMap struct {
	NameToIndex map[string]int
	IndexToName map[int]string
}

func (f NameMap) Set(name string, index int) {
	f.NameToIndex[name] = index
	f.IndexToName[index] = name
}

func (f NameMap) Size() int {
	return len(f.IndexToName)
}

func (f NameMap) ContainsName(name string) (int, bool) {
	index, ok := f.NameToIndex[name]
	return index, ok
}

// ValueFor returns the index of name, adding it with the next free index if unknown.
func (f NameMap) ValueFor(name string) int {
	index, ok := f.NameToIndex[name]
	if !ok {
		index = f.Size()
		f.Set(name, index)
	}
	return index
}

func NewNameMap() NameMap {
	return NameMap{
		NameToIndex: map[string]int{},
		IndexToName: map[int]string{},
	}
}

// Classes maps characteristic values to class indexes. Cells keeps the
// first cell seen for every class so predictions keep their type.
type Classes struct {
	Names NameMap
	Cells []table.Cell
}

func NewClasses() *Classes {
	return &Classes{Names: NewNameMap()}
}

// Index returns the class index of cell, registering it on first sight.
func (c *Classes) Index(cell table.Cell) int {
	index, ok := c.Names.ContainsName(cell.String())
	if !ok {
		index = c.Names.ValueFor(cell.String())
		c.Cells = append(c.Cells, cell)
	}
	return index
}

func (c *Classes) Cell(index int) table.Cell {
	return c.Cells[index]
}

func (c *Classes) Size() int {
	return c.Names.Size()
}

// Metadata describes the data a model was built from.
type Metadata struct {
	// FeatureKeys are the flat keys of the feature columns
	FeatureKeys []string

	// CharacteristicKeys are the flat keys of the characteristics columns
	CharacteristicKeys []string

	// Conversion holds the categorical feature surrogates seen while building
	Conversion *features.Conversion

	// Classes maps the first characteristic to class indexes
	Classes *Classes
}

func NewMetadata() *Metadata {
	return &Metadata{
		Conversion: features.NewConversion(),
		Classes:    NewClasses(),
	}
}
