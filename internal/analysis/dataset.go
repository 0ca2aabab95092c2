package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Dataset is an in-memory table with named, typed columns.
type Dataset struct {
	Name      string
	Columns   []Column
	Rows      int // rows kept
	TotalRows int // rows seen in the source
	Warnings  []string
}

// Column holds the raw cells of one column and, for numeric columns,
// the parsed values. Values is aligned with Raw; cells that did not parse are NaN.
type Column struct {
	Name   string
	Unit   string
	Kind   string
	Raw    []string
	Values []float64
}

// Numeric returns the finite values of the column.
func (c *Column) Numeric() []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Empty reports whether the dataset has no columns or no rows.
func (d *Dataset) Empty() bool {
	return d == nil || len(d.Columns) == 0 || d.Rows == 0
}

// ColumnNames returns all column names in header order.
func (d *Dataset) ColumnNames() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// NumericColumns returns the names of numeric columns in header order.
func (d *Dataset) NumericColumns() []string {
	var out []string
	for _, c := range d.Columns {
		if c.Kind == KindNumeric {
			out = append(out, c.Name)
		}
	}
	return out
}

// Column looks a column up by name; matching is exact first, then case-insensitive.
func (d *Dataset) Column(name string) (*Column, bool) {
	for i := range d.Columns {
		if d.Columns[i].Name == name {
			return &d.Columns[i], true
		}
	}
	for i := range d.Columns {
		if strings.EqualFold(d.Columns[i].Name, strings.TrimSpace(name)) {
			return &d.Columns[i], true
		}
	}
	return nil, false
}

// NumericColumn is like Column but returns ErrNoColumn unless the column is numeric.
func (d *Dataset) NumericColumn(name string) (*Column, error) {
	c, ok := d.Column(name)
	if !ok || c.Kind != KindNumeric {
		return nil, fmt.Errorf("%w: %q", ErrNoColumn, name)
	}
	return c, nil
}

// Head returns the first n rows as raw strings. n <= 0 means 5.
func (d *Dataset) Head(n int) [][]string {
	if n <= 0 {
		n = 5
	}
	if n > d.Rows {
		n = d.Rows
	}
	out := make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, len(d.Columns))
		for j, c := range d.Columns {
			if i < len(c.Raw) {
				row[j] = c.Raw[i]
			}
		}
		out[i] = row
	}
	return out
}

// Distinct returns the number of distinct finite values of a numeric column.
func (c *Column) Distinct() int {
	seen := map[float64]struct{}{}
	for _, v := range c.Values {
		if !math.IsNaN(v) {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

// topValues returns category counts ordered by count desc, then value.
func (c *Column) topValues(limit int) ([]CategoryCount, int) {
	cats := map[string]int{}
	for _, v := range c.Raw {
		if v == "" || len(v) > 64 {
			continue
		}
		cats[v]++
	}
	tops := make([]CategoryCount, 0, len(cats))
	for k, v := range cats {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if limit > 0 && len(tops) > limit {
		tops = tops[:limit]
	}
	return tops, len(cats)
}
