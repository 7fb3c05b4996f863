package plots

import (
	"errors"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

var ErrEmptySeries = errors.New("empty series")

// Series is one curve of a scan plot.
type Series struct {
	Label string
	X, Y  []float64
}

func (s Series) points() (plotter.XYs, error) {
	if len(s.X) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySeries, s.Label)
	}
	if len(s.X) != len(s.Y) {
		return nil, fmt.Errorf("series %s has %d x and %d y values", s.Label, len(s.X), len(s.Y))
	}
	pts := make(plotter.XYs, len(s.X))
	for k := range s.X {
		pts[k] = plotter.XY{X: s.X[k], Y: s.Y[k]}
	}
	return pts, nil
}

// Curves draws one line with points per series, e.g. counts against
// threshold for SPM and CSM, and saves it as an image. The format follows
// the file extension.
func Curves(filename, title, xLabel, yLabel string, series []Series) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	for i, s := range series {
		pts, err := s.points()
		if err != nil {
			return err
		}
		line, scatter, err := plotter.NewLinePoints(pts)
		if err != nil {
			return fmt.Errorf("series %s: %w", s.Label, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		scatter.Color = plotutil.Color(i)
		scatter.Shape = plotutil.Shape(i)
		p.Add(line, scatter)
		p.Legend.Add(s.Label, line, scatter)
	}
	p.Legend.Top = true
	p.Legend.Left = false

	if err := p.Save(8*vg.Inch, 5*vg.Inch, filename); err != nil {
		return fmt.Errorf("error saving plot %s: %w", filename, err)
	}
	return nil
}

// Spectrum plots a radial spectrum without its DC bucket, which would
// hide the rest of the curve.
func Spectrum(filename, title string, spectra []Series) error {
	trimmed := make([]Series, 0, len(spectra))
	for _, s := range spectra {
		if len(s.X) > 1 {
			s.X, s.Y = s.X[1:], s.Y[1:]
		}
		trimmed = append(trimmed, s)
	}
	return Curves(filename, title, "Spatial frequency (cycles / image)", "|F|", trimmed)
}

// RadiusSeries labels a radial spectrum with its bucket radius.
func RadiusSeries(label string, spectrum []float64) Series {
	x := make([]float64, len(spectrum))
	for r := range x {
		x[r] = float64(r)
	}
	return Series{Label: label, X: x, Y: spectrum}
}

type imageGrid struct {
	image  []uint32
	nx, ny int
}

func (g imageGrid) Dims() (c, r int)   { return g.nx, g.ny }
func (g imageGrid) Z(c, r int) float64 { return float64(g.image[c*g.ny+r]) }
func (g imageGrid) X(c int) float64    { return float64(c) }
func (g imageGrid) Y(r int) float64    { return float64(r) }

// Image draws a count image (i*ny + j order) as a heat map.
func Image(filename, title string, image []uint32, nx, ny int) error {
	if len(image) != nx*ny || nx < 2 || ny < 2 {
		return fmt.Errorf("invalid image of %d values for %dx%d pixels", len(image), nx, ny)
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "i"
	p.Y.Label.Text = "j"

	heat := plotter.NewHeatMap(imageGrid{image: image, nx: nx, ny: ny}, moreland.SmoothBlueRed().Palette(255))
	p.Add(heat)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, filename); err != nil {
		return fmt.Errorf("error saving plot %s: %w", filename, err)
	}
	return nil
}
