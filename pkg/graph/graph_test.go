package graph

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testGraphs() Graphs {
	return Graphs{
		"0":  {{3, 30}, {1, 10}, {2, 20}},
		"1":  {{1, 15}, {2, math.NaN()}, {4, 5}},
		"10": {{0, 1}},
	}
}

func TestGraphsKeys(t *testing.T) {
	g := testGraphs()
	g["extra"] = nil
	require.Equal(t, []string{"0", "1", "10", "extra"}, g.Keys())
}

func TestGraphsBounds(t *testing.T) {
	tmin, tmax := testGraphs().Bounds()
	require.Equal(t, []float64{0, 1}, tmin)
	require.Equal(t, []float64{4, 30}, tmax)
}

func TestGraphsSortAndLoop(t *testing.T) {
	g := testGraphs()
	sorted := g.SortBy(0)
	require.Equal(t, []Point{{1, 10}, {2, 20}, {3, 30}}, sorted["0"])
	require.Equal(t, Point{3, 30}, g["0"][0])

	looped := sorted.SubstituteXWithLoop()
	require.Equal(t, []Point{{0, 10}, {1, 20}, {2, 30}}, looped["0"])
	require.Equal(t, Point{1, 10}, sorted["0"][0])
}

func TestPointJSON(t *testing.T) {
	var g Graphs
	require.NoError(t, json.Unmarshal([]byte(`{"0": [[1, 2], [3, null]]}`), &g))
	require.Equal(t, Point{1, 2}, g["0"][0])
	require.True(t, g["0"][1].HasMissing())

	out, err := json.Marshal(g)
	require.NoError(t, err)
	require.JSONEq(t, `{"0": [[1, 2], [3, null]]}`, string(out))
}

func TestAnalyze(t *testing.T) {
	values := []float64{1, 1.1, 0.9, 5, 5.1, 4.9, math.NaN()}
	d := Analyze(values, 0.9, 5.1, 50)
	require.Equal(t, 50, len(d.XS))
	require.Equal(t, 0.9, d.XS[0])
	require.InDelta(t, 5.1, d.XS[49], 1e-9)
	require.InDelta(t, 3.0, d.Mean, 1e-9)
	require.True(t, d.Bandwidth > 0)
	require.NotEmpty(t, d.PeakXS)
	for i := 1; i < len(d.PeakYS); i++ {
		require.True(t, d.PeakYS[i-1] >= d.PeakYS[i])
	}

	single := Analyze([]float64{2}, 2, 2, 5)
	require.Equal(t, 5, len(single.YS))
	require.Equal(t, 1, len(single.PeakXS))
	require.InDelta(t, 2, single.PeakXS[0], 1e-9)

	require.Empty(t, Analyze(nil, 0, 1, 10).XS)
}

func TestParseColor(t *testing.T) {
	for _, c := range []string{"r", "#00ff00", "steelblue", " K "} {
		_, err := parseColor(c)
		require.NoError(t, err, c)
	}
	_, err := parseColor("not-a-colour")
	require.Error(t, err)
}

func TestResolveStyle(t *testing.T) {
	style := resolve(PointStyle{Color: "g"}, 9)
	require.Equal(t, "g", style.Color)
	require.Equal(t, defaultStyles[1].Marker, style.Marker)
	require.Equal(t, defaultStyles[1].Size, style.Size)
}

func TestRenderErrors(t *testing.T) {
	_, err := Render(Graphs{}, Options{PlotType: Scatter2D})
	require.True(t, errors.Is(err, ErrNoPoints))

	_, err = Render(testGraphs(), Options{PlotType: "gnuplot_3d"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "gnuplot_3d")

	_, err = Render(testGraphs(), Options{
		PlotType:   Scatter2D,
		PointStyle: map[string]PointStyle{"0": {Color: "chartreuse-ish"}},
	})
	require.Error(t, err)
}

func TestPlotTypes(t *testing.T) {
	dir := t.TempDir()
	xmin := -1.0
	spread := Graphs{
		"0": {{1}, {2}, {2.5}, {4}},
		"1": {{3}, {3.5}, {math.NaN()}, {5}},
	}
	errorGraphs := Graphs{
		"0": {{1, 0.1, 10, 1}, {2, 0.2, 20, 2}},
		"1": {{1, 0.1, 12, 1}, {2, math.NaN(), 22, 2}},
	}

	tests := []struct {
		name   string
		graphs Graphs
		o      Options
	}{
		{name: "scatter", graphs: testGraphs(), o: Options{PlotType: Scatter2D, PlotGrid: true, BoundLines: true, XMin: &xmin,
			PointStyle: map[string]PointStyle{"0": {Frontier: true, Marker: "s"}}, LabelsForSeparateGraphs: []string{"gcc", "llvm"}}},
		{name: "scatter-errors", graphs: errorGraphs, o: Options{PlotType: Scatter2D, DisplayXErrorBar: true, DisplayYErrorBar: true,
			LabelsForSeparateGraphs: []string{"a"}}},
		{name: "bars", graphs: testGraphs(), o: Options{PlotType: Bars2D, XTicksPeriod: 2, LabelsForSeparateGraphs: []string{"a", "b"}}},
		{name: "lines", graphs: testGraphs(), o: Options{PlotType: Lines2D, Title: "time", AxisXDesc: "x", AxisYDesc: "y"}},
		{name: "density", graphs: spread, o: Options{PlotType: Density1D, Bins: 20}},
		{name: "histogram", graphs: spread, o: Options{PlotType: Histogram1D, Bins: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.o.OutToFile = filepath.Join(dir, tt.name+".png")
			tt.o.ImageDPI = 40
			require.NoError(t, Plot(tt.graphs, tt.o))
			info, err := os.Stat(tt.o.OutToFile)
			require.NoError(t, err)
			require.True(t, info.Size() > 0)
		})
	}
}

func TestPlotSVG(t *testing.T) {
	out := filepath.Join(t.TempDir(), "graph.svg")
	require.NoError(t, Plot(testGraphs(), Options{PlotType: Scatter2D, OutToFile: out}))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), "<svg"))
}

func TestLoadOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plot.yaml")
	content := `plot_type: mpl_2d_bars
x_ticks_period: 3
sort_index: 0
plot_grid: true
xmin: 1.5
point_style:
  "0":
    color: "#ff0000"
    elinewidth: 2
labels_for_separate_graphs: [base, opt]
font:
  size: 12
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	o, err := LoadOptions(path)
	require.NoError(t, err)
	require.Equal(t, Bars2D, o.PlotType)
	require.Equal(t, 3, o.XTicksPeriod)
	require.NotNil(t, o.SortIndex)
	require.Equal(t, 0, *o.SortIndex)
	require.True(t, o.PlotGrid)
	require.Equal(t, 1.5, *o.XMin)
	require.Equal(t, "#ff0000", o.PointStyle["0"].Color)
	require.Equal(t, 2.0, o.PointStyle["0"].ELineWidth)
	require.Equal(t, []string{"base", "opt"}, o.LabelsForSeparateGraphs)
	require.Equal(t, 12.0, o.Font.Size)

	_, err = LoadOptions(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "error reading plot options")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("plot_type: [\n"), 0644))
	_, err = LoadOptions(bad)
	require.ErrorContains(t, err, "error decoding plot options")
}

func TestContinuousPlot(t *testing.T) {
	out := filepath.Join(t.TempDir(), "live.png")
	calls := 0
	source := func() (Graphs, error) {
		calls++
		return testGraphs(), nil
	}
	err := ContinuousPlot(strings.NewReader("\n\n"), source, Options{PlotType: Lines2D, OutToFile: out, ImageDPI: 30})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}
