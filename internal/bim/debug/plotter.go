// Package debug renders diagnostic plots of intermediate detection
// state. Plots are optional and never on a job's critical path; a
// failed render is logged by the caller and ignored.
package debug

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/cloud2bim/internal/bim"
)

// SaveElevationHistogram plots the vertical point-density histogram the
// slab detector works from, with one bar per z bin.
func SaveElevationHistogram(path string, zs []float64, binWidth float64) error {
	if len(zs) == 0 {
		return fmt.Errorf("elevation histogram: no samples")
	}
	zMin, zMax := zs[0], zs[0]
	for _, z := range zs {
		if z < zMin {
			zMin = z
		}
		if z > zMax {
			zMax = z
		}
	}
	nBins := int(math.Floor((zMax-zMin)/binWidth)) + 1

	p := plot.New()
	p.Title.Text = "Vertical point density"
	p.X.Label.Text = "z (m)"
	p.Y.Label.Text = "points"

	vals := make(plotter.Values, len(zs))
	copy(vals, zs)
	hist, err := plotter.NewHist(vals, nBins)
	if err != nil {
		return fmt.Errorf("elevation histogram: %w", err)
	}
	hist.FillColor = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	p.Add(hist)

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save elevation histogram: %w", err)
	}
	return nil
}

// SaveStoreyPlan plots one storey in plan view: the projected points as
// a scatter, detected wall centerlines as heavy lines, and zone rings
// as light outlines.
func SaveStoreyPlan(path string, points []bim.Point2, walls []bim.Wall, zones []bim.Zone) error {
	p := plot.New()
	p.Title.Text = "Storey plan"
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"

	if len(points) > 0 {
		xys := make(plotter.XYs, len(points))
		for i, pt := range points {
			xys[i].X = pt.X
			xys[i].Y = pt.Y
		}
		scatter, err := plotter.NewScatter(xys)
		if err != nil {
			return fmt.Errorf("storey plan scatter: %w", err)
		}
		scatter.Radius = vg.Points(0.5)
		scatter.Color = color.RGBA{R: 160, G: 160, B: 160, A: 255}
		p.Add(scatter)
	}

	for _, w := range walls {
		line, err := plotter.NewLine(plotter.XYs{
			{X: w.Start.X, Y: w.Start.Y},
			{X: w.End.X, Y: w.End.Y},
		})
		if err != nil {
			return fmt.Errorf("storey plan wall line: %w", err)
		}
		line.Width = vg.Points(2)
		line.Color = color.RGBA{R: 200, A: 255}
		p.Add(line)
	}

	for _, z := range zones {
		if len(z.Polygon) < 3 {
			continue
		}
		ring := make(plotter.XYs, len(z.Polygon)+1)
		for i, v := range z.Polygon {
			ring[i].X = v.X
			ring[i].Y = v.Y
		}
		ring[len(z.Polygon)] = ring[0]
		line, err := plotter.NewLine(ring)
		if err != nil {
			return fmt.Errorf("storey plan zone ring: %w", err)
		}
		line.Width = vg.Points(1)
		line.Color = color.RGBA{G: 140, A: 255}
		p.Add(line)
	}

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save storey plan: %w", err)
	}
	return nil
}
