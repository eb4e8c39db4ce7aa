package graph

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	Scatter2D   = "mpl_2d_scatter"
	Bars2D      = "mpl_2d_bars"
	Lines2D     = "mpl_2d_lines"
	Density1D   = "mpl_1d_density"
	Histogram1D = "mpl_1d_histogram"
)

const DefaultOutputFile = "graph.png"

// PointStyle overrides the default style of one separate graph.
type PointStyle struct {
	Color      string  `yaml:"color" json:"color"`
	Size       float64 `yaml:"size" json:"size"`
	Marker     string  `yaml:"marker" json:"marker"`
	LineStyle  string  `yaml:"line_style" json:"line_style"`
	ELineWidth float64 `yaml:"elinewidth" json:"elinewidth"`
	Frontier   bool    `yaml:"frontier" json:"frontier"`
}

type Font struct {
	Family string  `yaml:"family" json:"family"`
	Weight string  `yaml:"weight" json:"weight"`
	Size   float64 `yaml:"size" json:"size"`
}

// Options configure a plot. Zero values select the defaults.
type Options struct {
	PlotType                string                `yaml:"plot_type" json:"plot_type"`
	PointStyle              map[string]PointStyle `yaml:"point_style" json:"point_style"`
	LabelsForSeparateGraphs []string              `yaml:"labels_for_separate_graphs" json:"labels_for_separate_graphs"`
	OutToFile               string                `yaml:"out_to_file" json:"out_to_file"`

	SortIndex           *int `yaml:"sort_index" json:"sort_index"`
	SubstituteXWithLoop bool `yaml:"substitute_x_with_loop" json:"substitute_x_with_loop"`

	Font       Font    `yaml:"font" json:"font"`
	ImageSizeX float64 `yaml:"mpl_image_size_x" json:"mpl_image_size_x"`
	ImageSizeY float64 `yaml:"mpl_image_size_y" json:"mpl_image_size_y"`
	ImageDPI   int     `yaml:"mpl_image_dpi" json:"mpl_image_dpi"`
	PlotGrid   bool    `yaml:"plot_grid" json:"plot_grid"`

	XMin *float64 `yaml:"xmin" json:"xmin"`
	XMax *float64 `yaml:"xmax" json:"xmax"`
	YMin *float64 `yaml:"ymin" json:"ymin"`
	YMax *float64 `yaml:"ymax" json:"ymax"`

	DisplayXErrorBar bool `yaml:"display_x_error_bar" json:"display_x_error_bar"`
	DisplayYErrorBar bool `yaml:"display_y_error_bar" json:"display_y_error_bar"`

	XTicksPeriod int `yaml:"x_ticks_period" json:"x_ticks_period"`
	Bins         int `yaml:"bins" json:"bins"`

	BoundLines bool   `yaml:"bound_lines" json:"bound_lines"`
	BoundStyle string `yaml:"bound_style" json:"bound_style"`
	BoundColor string `yaml:"bound_color" json:"bound_color"`

	AxisXDesc string `yaml:"axis_x_desc" json:"axis_x_desc"`
	AxisYDesc string `yaml:"axis_y_desc" json:"axis_y_desc"`
	Title     string `yaml:"title" json:"title"`
}

// LoadOptions reads plot options from a YAML file.
func LoadOptions(path string) (Options, error) {
	var o Options
	data, err := os.ReadFile(path)
	if err != nil {
		return o, fmt.Errorf("error reading plot options %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &o); err != nil {
		return o, fmt.Errorf("error decoding plot options %s: %w", path, err)
	}
	return o, nil
}

func (o Options) withDefaults() Options {
	if o.XTicksPeriod <= 0 {
		o.XTicksPeriod = 1
	}
	if o.Bins <= 0 {
		o.Bins = 100
	}
	if o.Font.Size <= 0 {
		o.Font.Size = 10
	}
	if o.ImageSizeX <= 0 {
		o.ImageSizeX = 9
	}
	if o.ImageSizeY <= 0 {
		o.ImageSizeY = 5
	}
	if o.ImageDPI <= 0 {
		o.ImageDPI = 100
	}
	if o.BoundStyle == "" {
		o.BoundStyle = ":"
	}
	if o.BoundColor == "" {
		o.BoundColor = "r"
	}
	if o.OutToFile == "" {
		o.OutToFile = DefaultOutputFile
	}
	return o
}

func (o Options) label(s int) string {
	if s < len(o.LabelsForSeparateGraphs) {
		return o.LabelsForSeparateGraphs[s]
	}
	return ""
}
