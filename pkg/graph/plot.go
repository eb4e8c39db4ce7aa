package graph

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var ErrNoPoints = errors.New("no points found")

// errPoints carries points together with symmetric error magnitudes.
type errPoints struct {
	plotter.XYs
	plotter.XErrors
	plotter.YErrors
}

// series is the drawable content of one separate graph.
type series struct {
	x, xerr, y, yerr []float64
}

func (s *series) xys() plotter.XYs {
	xys := make(plotter.XYs, len(s.x))
	for i := range s.x {
		xys[i].X = s.x[i]
		xys[i].Y = s.y[i]
	}
	return xys
}

func (s *series) withErrors() errPoints {
	e := errPoints{XYs: s.xys()}
	if s.xerr != nil {
		e.XErrors = make(plotter.XErrors, len(s.xerr))
		for i, v := range s.xerr {
			e.XErrors[i].Low, e.XErrors[i].High = v, v
		}
	}
	if s.yerr != nil {
		e.YErrors = make(plotter.YErrors, len(s.yerr))
		for i, v := range s.yerr {
			e.YErrors[i].Low, e.YErrors[i].High = v, v
		}
	}
	return e
}

// painter holds the state shared while drawing all separate graphs.
type painter struct {
	o          Options
	p          *plot.Plot
	graphs     Graphs
	tmin, tmax []float64
	width      float64

	// density bounds over all graphs
	dmin, dmax, dmean float64
	dcount            int
}

// Plot renders graphs according to o and writes the picture to o.OutToFile.
func Plot(graphs Graphs, o Options) error {
	p, err := Render(graphs, o)
	if err != nil {
		return err
	}
	o = o.withDefaults()
	return save(p, o)
}

// Render builds the plot without writing it.
func Render(graphs Graphs, o Options) (*plot.Plot, error) {
	o = o.withDefaults()

	if o.SortIndex != nil {
		graphs = graphs.SortBy(*o.SortIndex)
	}
	if o.SubstituteXWithLoop {
		graphs = graphs.SubstituteXWithLoop()
	}
	if graphs.Size() == 0 {
		return nil, ErrNoPoints
	}

	switch o.PlotType {
	case Scatter2D, Bars2D, Lines2D, Density1D, Histogram1D:
	default:
		return nil, fmt.Errorf("this type of plot (%s) is not supported", o.PlotType)
	}

	pt := &painter{o: o, p: plot.New(), graphs: graphs}
	pt.setupFonts()
	if o.PlotGrid {
		pt.p.Add(plotter.NewGrid())
	}
	pt.tmin, pt.tmax = graphs.Bounds()
	pt.densityBounds()

	if o.PlotType == Bars2D || o.PlotType == Lines2D {
		pt.xTicks()
		pt.width = 0.9 / float64(len(graphs))
	}

	for s, key := range graphs.Keys() {
		style := resolve(o.PointStyle[key], s)
		if err := pt.draw(s, key, style); err != nil {
			return nil, fmt.Errorf("error drawing graph %s: %w", key, err)
		}
	}

	if o.BoundLines && len(pt.tmin) > 1 {
		if err := pt.boundLines(); err != nil {
			return nil, err
		}
	}

	pt.p.X.Label.Text = o.AxisXDesc
	pt.p.Y.Label.Text = o.AxisYDesc
	pt.p.Title.Text = o.Title
	pt.limits()

	log.Debug().Str("type", o.PlotType).Int("graphs", len(graphs)).Int("points", graphs.Size()).Msg("Rendered plot")
	return pt.p, nil
}

func (pt *painter) setupFonts() {
	size := vg.Points(pt.o.Font.Size)
	pt.p.Title.TextStyle.Font.Size = size
	pt.p.X.Label.TextStyle.Font.Size = size
	pt.p.Y.Label.TextStyle.Font.Size = size
	pt.p.X.Tick.Label.Font.Size = size
	pt.p.Y.Tick.Label.Font.Size = size
	pt.p.Legend.TextStyle.Font.Size = size
}

func (pt *painter) limits() {
	if pt.o.XMin != nil {
		pt.p.X.Min = *pt.o.XMin
	}
	if pt.o.XMax != nil {
		pt.p.X.Max = *pt.o.XMax
	}
	if pt.o.YMin != nil {
		pt.p.Y.Min = *pt.o.YMin
	}
	if pt.o.YMax != nil {
		pt.p.Y.Max = *pt.o.YMax
	}
}

// densityBounds finds min, max and mean of the first dimension over all graphs.
func (pt *painter) densityBounds() {
	if pt.o.PlotType != Density1D && pt.o.PlotType != Histogram1D {
		return
	}
	sum := 0.0
	for _, points := range pt.graphs {
		for _, p := range points {
			if len(p) == 0 || math.IsNaN(p[0]) {
				continue
			}
			v := p[0]
			if pt.dcount == 0 || v < pt.dmin {
				pt.dmin = v
			}
			if pt.dcount == 0 || v > pt.dmax {
				pt.dmax = v
			}
			sum += v
			pt.dcount++
		}
	}
	if pt.dcount > 0 {
		pt.dmean = sum / float64(pt.dcount)
	}
}

// xTicks places a labelled tick at every XTicksPeriod-th x value of graph "0".
func (pt *painter) xTicks() {
	var ticks []plot.Tick
	for i, p := range pt.graphs["0"] {
		if len(p) == 0 || math.IsNaN(p[0]) {
			continue
		}
		label := ""
		if (i+1)%pt.o.XTicksPeriod == 0 {
			label = strconv.FormatFloat(p[0], 'g', -1, 64)
		}
		ticks = append(ticks, plot.Tick{Value: p[0], Label: label})
	}
	if len(ticks) > 0 {
		pt.p.X.Tick.Marker = plot.ConstantTicks(ticks)
		pt.p.X.Tick.Label.Rotation = -20 * math.Pi / 180
	}
}

// collect extracts x [xerr] y [yerr] from the complete points of a graph.
func (pt *painter) collect(points []Point) *series {
	s := &series{}
	if pt.o.DisplayXErrorBar {
		s.xerr = []float64{}
	}
	if pt.o.DisplayYErrorBar {
		s.yerr = []float64{}
	}
	need := 2
	if pt.o.DisplayXErrorBar {
		need++
	}
	if pt.o.DisplayYErrorBar {
		need++
	}
	for _, p := range points {
		if p.HasMissing() || len(p) < need {
			continue
		}
		iu := 0
		s.x = append(s.x, p[iu])
		iu++
		if pt.o.DisplayXErrorBar {
			s.xerr = append(s.xerr, p[iu])
			iu++
		}
		s.y = append(s.y, p[iu])
		iu++
		if pt.o.DisplayYErrorBar {
			s.yerr = append(s.yerr, p[iu])
		}
	}
	return s
}

func (pt *painter) draw(s int, key string, style PointStyle) error {
	c, err := parseColor(style.Color)
	if err != nil {
		return err
	}
	label := pt.o.label(s)
	points := pt.graphs[key]

	switch pt.o.PlotType {
	case Scatter2D:
		return pt.scatter(pt.collect(points), c, style, label)
	case Bars2D:
		return pt.bars(pt.collect(points), s, c, style, label)
	case Lines2D:
		return pt.lines(pt.collect(points), c, style, label)
	case Density1D:
		return pt.density(points, c, label)
	case Histogram1D:
		return pt.histogram(points, c, label)
	}
	return nil
}

func (pt *painter) scatter(sr *series, c color.Color, style PointStyle, label string) error {
	if len(sr.x) == 0 {
		return nil
	}
	if pt.o.DisplayXErrorBar || pt.o.DisplayYErrorBar {
		if err := pt.errorBars(sr, c, style, label); err != nil {
			return err
		}
	} else {
		sc, err := plotter.NewScatter(sr.xys())
		if err != nil {
			return err
		}
		sc.GlyphStyle.Color = c
		sc.GlyphStyle.Radius = radius(style.Size)
		sc.GlyphStyle.Shape = glyph(style.Marker)
		pt.p.Add(sc)
		if label != "" {
			pt.p.Legend.Add(label, sc)
		}
	}

	if style.Frontier && len(pt.tmin) > 1 {
		return pt.frontier(sr, c, style, label)
	}
	return nil
}

// frontier draws the sorted staircase from (min x, max y) to (max x, min y).
func (pt *painter) frontier(sr *series, c color.Color, style PointStyle, label string) error {
	xys := sr.xys()
	sort.SliceStable(xys, func(i, j int) bool { return xys[i].X < xys[j].X })
	line := plotter.XYs{{X: pt.tmin[0], Y: pt.tmax[1]}}
	line = append(line, xys...)
	line = append(line, plotter.XY{X: pt.tmax[0], Y: pt.tmin[1]})

	l, err := plotter.NewLine(line)
	if err != nil {
		return err
	}
	l.LineStyle.Color = c
	l.LineStyle.Dashes = dashes(style.LineStyle)
	pt.p.Add(l)
	if label != "" {
		pt.p.Legend.Add(label, l)
	}
	return nil
}

func (pt *painter) errorBars(sr *series, c color.Color, style PointStyle, label string) error {
	e := sr.withErrors()
	var added bool
	if sr.xerr != nil {
		xe, err := plotter.NewXErrorBars(e)
		if err != nil {
			return err
		}
		xe.LineStyle.Color = c
		if style.ELineWidth > 0 {
			xe.LineStyle.Width = vg.Points(style.ELineWidth)
		}
		pt.p.Add(xe)
		added = true
	}
	if sr.yerr != nil {
		ye, err := plotter.NewYErrorBars(e)
		if err != nil {
			return err
		}
		ye.LineStyle.Color = c
		if style.ELineWidth > 0 {
			ye.LineStyle.Width = vg.Points(style.ELineWidth)
		}
		pt.p.Add(ye)
		added = true
	}
	if added && label != "" {
		pt.p.Legend.Add(label, swatch(c))
	}
	return nil
}

func (pt *painter) bars(sr *series, s int, c color.Color, style PointStyle, label string) error {
	var first *plotter.Polygon
	for i := range sr.x {
		x := sr.x[i] + pt.width*float64(s)
		left, right := x-pt.width/2, x+pt.width/2
		poly, err := plotter.NewPolygon(plotter.XYs{
			{X: left, Y: 0}, {X: right, Y: 0}, {X: right, Y: sr.y[i]}, {X: left, Y: sr.y[i]},
		})
		if err != nil {
			return err
		}
		poly.Color = c
		poly.LineStyle.Color = c
		pt.p.Add(poly)
		if first == nil {
			first = poly
		}
	}
	if sr.yerr != nil && len(sr.x) > 0 {
		shifted := &series{y: sr.y, yerr: sr.yerr}
		for _, x := range sr.x {
			shifted.x = append(shifted.x, x+pt.width*float64(s))
		}
		ye, err := plotter.NewYErrorBars(shifted.withErrors())
		if err != nil {
			return err
		}
		if style.ELineWidth > 0 {
			ye.LineStyle.Width = vg.Points(style.ELineWidth)
		}
		pt.p.Add(ye)
	}
	if first != nil && label != "" {
		pt.p.Legend.Add(label, first)
	}
	return nil
}

func (pt *painter) lines(sr *series, c color.Color, style PointStyle, label string) error {
	if len(sr.x) == 0 {
		return nil
	}
	if sr.yerr != nil {
		ye, err := plotter.NewYErrorBars(sr.withErrors())
		if err != nil {
			return err
		}
		ye.LineStyle.Color = c
		if style.ELineWidth > 0 {
			ye.LineStyle.Width = vg.Points(style.ELineWidth)
		}
		pt.p.Add(ye)
	}
	l, err := plotter.NewLine(sr.xys())
	if err != nil {
		return err
	}
	l.LineStyle.Color = c
	pt.p.Add(l)
	if label != "" {
		pt.p.Legend.Add(label, l)
	}
	return nil
}

func firstDimension(points []Point) []float64 {
	var values []float64
	for _, p := range points {
		if len(p) > 0 && !math.IsNaN(p[0]) {
			values = append(values, p[0])
		}
	}
	return values
}

func (pt *painter) density(points []Point, c color.Color, label string) error {
	if pt.dcount == 0 {
		return nil
	}
	values := firstDimension(points)
	if len(values) == 0 {
		return nil
	}
	d := Analyze(values, pt.dmin, pt.dmax, pt.o.Bins)

	curve := make(plotter.XYs, len(d.XS))
	for i := range d.XS {
		curve[i] = plotter.XY{X: d.XS[i], Y: d.YS[i]}
	}
	l, err := plotter.NewLine(curve)
	if err != nil {
		return err
	}
	l.LineStyle.Color = c
	pt.p.Add(l)
	if label != "" {
		pt.p.Legend.Add(label, l)
	}

	peaks := make(plotter.XYs, len(d.PeakXS))
	for i := range d.PeakXS {
		peaks[i] = plotter.XY{X: d.PeakXS[i], Y: d.PeakYS[i]}
	}
	if len(peaks) > 0 {
		sc, err := plotter.NewScatter(peaks)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Shape = draw.CrossGlyph{}
		sc.GlyphStyle.Color = shortColors["r"]
		sc.GlyphStyle.Radius = vg.Points(4)
		pt.p.Add(sc)

		mean, err := plotter.NewLine(plotter.XYs{{X: pt.dmean, Y: 0}, {X: pt.dmean, Y: d.PeakYS[0]}})
		if err != nil {
			return err
		}
		mean.LineStyle.Color = shortColors["g"]
		mean.LineStyle.Width = vg.Points(2)
		mean.LineStyle.Dashes = dashes("--")
		pt.p.Add(mean)
	}
	return nil
}

func (pt *painter) histogram(points []Point, c color.Color, label string) error {
	if pt.dcount == 0 {
		return nil
	}
	values := firstDimension(points)
	if len(values) == 0 {
		return nil
	}
	h, err := plotter.NewHist(plotter.Values(values), pt.o.Bins)
	if err != nil {
		return err
	}
	h.Normalize(1)
	h.FillColor = c
	pt.p.Add(h)
	if label != "" {
		pt.p.Legend.Add(label, h)
	}
	return nil
}

func (pt *painter) boundLines() error {
	c, err := parseColor(pt.o.BoundColor)
	if err != nil {
		return err
	}
	for _, xys := range []plotter.XYs{
		{{X: pt.tmin[0], Y: pt.tmin[1]}, {X: pt.tmax[0], Y: pt.tmin[1]}},
		{{X: pt.tmin[0], Y: pt.tmin[1]}, {X: pt.tmin[0], Y: pt.tmax[1]}},
	} {
		l, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		l.LineStyle.Color = c
		l.LineStyle.Dashes = dashes(pt.o.BoundStyle)
		pt.p.Add(l)
	}
	return nil
}

func swatch(c color.Color) plot.Thumbnailer {
	return &plotter.Line{LineStyle: draw.LineStyle{Color: c, Width: vg.Points(2)}}
}

// save writes p to the output file; the extension selects the format.
// PNG output honours the configured DPI.
func save(p *plot.Plot, o Options) error {
	w := vg.Length(o.ImageSizeX) * vg.Inch
	h := vg.Length(o.ImageSizeY) * vg.Inch

	if strings.EqualFold(filepath.Ext(o.OutToFile), ".png") {
		c := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(o.ImageDPI))
		p.Draw(draw.New(c))
		f, err := os.Create(o.OutToFile)
		if err != nil {
			return fmt.Errorf("error creating %s: %w", o.OutToFile, err)
		}
		defer f.Close()
		if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(f); err != nil {
			return fmt.Errorf("error writing %s: %w", o.OutToFile, err)
		}
		log.Info().Str("file", o.OutToFile).Msg("Saved plot")
		return nil
	}

	if err := p.Save(w, h, o.OutToFile); err != nil {
		return fmt.Errorf("error saving %s: %w", o.OutToFile, err)
	}
	log.Info().Str("file", o.OutToFile).Msg("Saved plot")
	return nil
}
