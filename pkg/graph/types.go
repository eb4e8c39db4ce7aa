package graph

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
)

// Point is one row of a plot table. Missing values are NaN.
type Point []float64

// HasMissing reports whether any dimension of the point is missing.
func (p Point) HasMissing() bool {
	for _, v := range p {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

func (p Point) MarshalJSON() ([]byte, error) {
	values := make([]*float64, len(p))
	for i := range p {
		if !math.IsNaN(p[i]) && !math.IsInf(p[i], 0) {
			values[i] = &p[i]
		}
	}
	return json.Marshal(values)
}

// UnmarshalJSON reads a list of numbers in which null marks a missing value.
func (p *Point) UnmarshalJSON(data []byte) error {
	var values []*float64
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	result := make(Point, len(values))
	for i, v := range values {
		if v == nil {
			result[i] = math.NaN()
		} else {
			result[i] = *v
		}
	}
	*p = result
	return nil
}

// Graphs holds the points of every separate graph keyed by its index ("0", "1", ...).
type Graphs map[string][]Point

// Keys returns the graph keys in numeric order. Non-numeric keys sort last, by name.
func (g Graphs) Keys() []string {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Size returns the total number of points.
func (g Graphs) Size() int {
	size := 0
	for _, points := range g {
		size += len(points)
	}
	return size
}

// Bounds returns the minimum and maximum of every dimension over all graphs,
// ignoring missing values.
func (g Graphs) Bounds() (tmin, tmax []float64) {
	for _, points := range g {
		for _, p := range points {
			for d, v := range p {
				for len(tmin) <= d {
					tmin = append(tmin, math.NaN())
					tmax = append(tmax, math.NaN())
				}
				if math.IsNaN(v) {
					continue
				}
				if math.IsNaN(tmin[d]) || v < tmin[d] {
					tmin[d] = v
				}
				if math.IsNaN(tmax[d]) || v > tmax[d] {
					tmax[d] = v
				}
			}
		}
	}
	return tmin, tmax
}

// SortBy returns a copy with every graph's points stably sorted by dimension dim.
// Points lacking the dimension keep their relative order at the end.
func (g Graphs) SortBy(dim int) Graphs {
	result := make(Graphs, len(g))
	for k, points := range g {
		sorted := make([]Point, len(points))
		copy(sorted, points)
		sort.SliceStable(sorted, func(i, j int) bool {
			if dim >= len(sorted[i]) {
				return false
			}
			if dim >= len(sorted[j]) {
				return true
			}
			return sorted[i][dim] < sorted[j][dim]
		})
		result[k] = sorted
	}
	return result
}

// SubstituteXWithLoop returns a copy in which the first dimension of every
// point is replaced by the point's index within its graph.
func (g Graphs) SubstituteXWithLoop() Graphs {
	result := make(Graphs, len(g))
	for k, points := range g {
		substituted := make([]Point, len(points))
		for i, p := range points {
			q := make(Point, len(p))
			copy(q, p)
			if len(q) > 0 {
				q[0] = float64(i)
			}
			substituted[i] = q
		}
		result[k] = substituted
	}
	return result
}
