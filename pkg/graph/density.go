package graph

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Density is a gaussian kernel density estimate evaluated on a regular grid.
type Density struct {
	XS []float64
	YS []float64

	// PeakXS and PeakYS hold the local maxima, highest density first
	PeakXS []float64
	PeakYS []float64

	Mean      float64
	Bandwidth float64
}

// Analyze estimates the density of values on bins points between min and
// max, using Silverman's rule of thumb for the bandwidth. Missing values are
// ignored.
func Analyze(values []float64, min, max float64, bins int) Density {
	var clean []float64
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 || bins <= 0 {
		return Density{}
	}

	mean, std := stat.MeanStdDev(clean, nil)
	if len(clean) < 2 {
		std = 0
	}
	bandwidth := 1.06 * std * math.Pow(float64(len(clean)), -0.2)
	if bandwidth == 0 || math.IsNaN(bandwidth) {
		bandwidth = (max - min) / float64(bins)
	}
	if bandwidth == 0 {
		bandwidth = 1
	}
	if min == max {
		min -= 3 * bandwidth
		max += 3 * bandwidth
	}

	d := Density{
		XS:        make([]float64, bins),
		YS:        make([]float64, bins),
		Mean:      mean,
		Bandwidth: bandwidth,
	}
	step := 0.0
	if bins > 1 {
		step = (max - min) / float64(bins-1)
	}
	n := float64(len(clean))
	for i := range d.XS {
		x := min + step*float64(i)
		d.XS[i] = x
		sum := 0.0
		for _, v := range clean {
			sum += distuv.Normal{Mu: v, Sigma: bandwidth}.Prob(x)
		}
		d.YS[i] = sum / n
	}

	d.findPeaks()
	return d
}

func (d *Density) findPeaks() {
	var peaks []int
	for i := range d.YS {
		left := i == 0 || d.YS[i] > d.YS[i-1]
		right := i == len(d.YS)-1 || d.YS[i] >= d.YS[i+1]
		if left && right {
			peaks = append(peaks, i)
		}
	}
	sort.SliceStable(peaks, func(a, b int) bool {
		return d.YS[peaks[a]] > d.YS[peaks[b]]
	})
	for _, i := range peaks {
		d.PeakXS = append(d.PeakXS, d.XS[i])
		d.PeakYS = append(d.PeakYS, d.YS[i])
	}
}
