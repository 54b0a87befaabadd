/*
 * fieldplot.go, part of disloc.
 *
 *
 * Copyright 2026 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

//Package fieldplot draws maps of per-atom scalar fields, such as displacements or
//Nye tensor components, projected on a plane of the simulation box.
package fieldplot

import (
	"fmt"
	"image/color"
	"math"
	"os"

	"github.com/rmera/disloc"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

//Size of the images, and the share of the width used by the color bar.
var (
	Width    = 16 * vg.Centimeter
	Height   = 14 * vg.Centimeter
	BarShare = 0.15
)

//Undefined is the color of atoms with a NaN value.
var Undefined = color.Gray{Y: 190}

var axisNames = [3]string{"x (Å)", "y (Å)", "z (Å)"}

//Component returns the component k of the per-atom property name of S.
func Component(S *disloc.System, name string, k int) ([]float64, error) {
	p, ok := S.Prop(name)
	if !ok {
		return nil, fmt.Errorf("fieldplot: no property %q", name)
	}
	if k < 0 || k >= p.Width {
		return nil, fmt.Errorf("fieldplot: property %q has no component %d", name, k)
	}
	ret := make([]float64, S.Len())
	for i := range ret {
		ret[i] = p.At(i, k)
	}
	return ret, nil
}

//Norm returns the euclidean norm of the per-atom property name of S.
func Norm(S *disloc.System, name string) ([]float64, error) {
	p, ok := S.Prop(name)
	if !ok {
		return nil, fmt.Errorf("fieldplot: no property %q", name)
	}
	ret := make([]float64, S.Len())
	for i := range ret {
		var s float64
		for _, v := range p.Row(i) {
			s += v * v
		}
		ret[i] = math.Sqrt(s)
	}
	return ret, nil
}

//Mask sets to NaN the values of the atoms whose property name (usually a 0/1 flag)
//is zero.
func Mask(S *disloc.System, values []float64, name string) error {
	p, ok := S.Prop(name)
	if !ok || p.Width != 1 {
		return fmt.Errorf("fieldplot: no scalar property %q", name)
	}
	for i := range values {
		if p.Data[i] == 0 {
			values[i] = math.NaN()
		}
	}
	return nil
}

//colorMap returns a diverging map centered on zero if the values change sign, over
//their range otherwise.
func colorMap(values []float64) (palette.DivergingColorMap, error) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return nil, fmt.Errorf("fieldplot: no defined values")
	}
	if lo < 0 && hi > 0 {
		m := math.Max(-lo, hi)
		lo, hi = -m, m
	}
	if hi-lo <= 1e-12*math.Max(1, math.Abs(hi)) {
		lo, hi = lo-0.5, hi+0.5
	}
	cm := moreland.SmoothBlueRed()
	cm.SetMin(lo)
	cm.SetMax(hi)
	return cm, nil
}

//Map writes to path a PNG with the atoms of S, projected on the plane of the box
//axes in axes, colored by values (one per atom). Atoms with NaN values are drawn
//in gray.
func Map(S *disloc.System, values []float64, axes [2]int, title, path string) error {
	if len(values) != S.Len() {
		return fmt.Errorf("fieldplot: %d values for %d atoms", len(values), S.Len())
	}
	if axes[0] == axes[1] || axes[0] < 0 || axes[0] > 2 || axes[1] < 0 || axes[1] > 2 {
		return fmt.Errorf("fieldplot: bad projection axes %v", axes)
	}
	cm, err := colorMap(values)
	if err != nil {
		return err
	}
	p := plot.New()
	p.Title.Text = title
	p.Title.Padding = 3 * vg.Millimeter
	p.X.Label.Text = axisNames[axes[0]]
	p.Y.Label.Text = axisNames[axes[1]]
	xy := make(plotter.XYs, S.Len())
	for i := range xy {
		xy[i].X = S.Coords.At(i, axes[0])
		xy[i].Y = S.Coords.At(i, axes[1])
	}
	s, err := plotter.NewScatter(xy)
	if err != nil {
		return err
	}
	radius := vg.Points(2)
	s.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		g := draw.GlyphStyle{Radius: radius, Shape: draw.CircleGlyph{}, Color: Undefined}
		if !math.IsNaN(values[i]) {
			if c, err := cm.At(values[i]); err == nil {
				g.Color = c
			}
		}
		return g
	}
	p.Add(s)

	bar := plot.New()
	bar.HideX()
	bar.Y.Label.Text = title
	bar.Add(&plotter.ColorBar{ColorMap: cm, Vertical: true})

	img := vgimg.New(Width, Height)
	dc := draw.New(img)
	split := vg.Length(1-BarShare) * Width
	p.Draw(draw.Crop(dc, 0, split-Width, 0, 0))
	bar.Draw(draw.Crop(dc, split, 0, 0, 0))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
