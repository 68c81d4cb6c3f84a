package main

import (
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"sic-ghost/numeric"
)

const circleSegments = 256

// plotPhases draws the phases on the complex plane over the unit circle and
// saves the figure to path.
func plotPhases(x *numeric.Array[*numeric.BigComplex], path string) error {
	p := plot.New()
	p.Title.Text = "Accepted phases"
	p.X.Label.Text = "Re"
	p.Y.Label.Text = "Im"

	circle := make(plotter.XYs, circleSegments+1)
	for i := range circle {
		t := 2 * math.Pi * float64(i) / circleSegments
		circle[i].X, circle[i].Y = math.Cos(t), math.Sin(t)
	}
	l, err := plotter.NewLine(circle)
	if err != nil {
		return err
	}

	pts := make(plotter.XYs, len(x.Data))
	for i, z := range x.Data {
		c := z.ToComplex()
		pts[i].X, pts[i].Y = real(c), imag(c)
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}

	p.Add(l, s)
	if err := p.Save(4*vg.Inch, 4*vg.Inch, path); err != nil {
		return err
	}
	return nil
}
