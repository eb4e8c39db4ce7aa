package features

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Render writes the conversion as a console table, one line per textual
// value, ordered by column then surrogate. keys names the columns when given.
func (c *Conversion) Render(w io.Writer, keys []string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Categorical Feature Conversion")
	t.AppendHeader(table.Row{"COLUMN", "KEY", "VALUE", "SURROGATE"})
	for _, column := range c.columns() {
		key := ""
		if column < len(keys) {
			key = keys[column]
		}
		name := strconv.Itoa(column)
		values := c.Conv[name]
		ordered := make([]string, 0, len(values))
		for value := range values {
			ordered = append(ordered, value)
		}
		sort.Slice(ordered, func(i, j int) bool {
			return values[ordered[i]] < values[ordered[j]]
		})
		for _, value := range ordered {
			t.AppendRow(table.Row{column, key, value, fmt.Sprintf("%.1f", values[value])})
		}
		t.AppendSeparator()
	}
	t.Render()
}

func (c *Conversion) columns() []int {
	result := make([]int, 0, len(c.Conv))
	for name := range c.Conv {
		column, err := strconv.Atoi(name)
		if err != nil {
			continue
		}
		result = append(result, column)
	}
	sort.Ints(result)
	return result
}
