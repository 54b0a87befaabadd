/*
 * burgers.go, part of disloc.
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

package nye

import (
	"fmt"
	"math"

	"github.com/rmera/disloc"
	"github.com/rmera/disloc/elastic"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

//BurgersOptions defines the region over which the Nye tensor is integrated: a
//cylinder of the given Radius around the line through Center along the unit
//vector Line. AtomicVolume is in Å^3 and LineLength is the length of the
//periodic repeat along the line, in Å.
type BurgersOptions struct {
	Line         [3]float64
	Center       [3]float64
	Radius       float64
	AtomicVolume float64
	LineLength   float64
}

//Burgers integrates the Nye tensor, b_j = sum_i t_k alpha_kj(i) V / L, over the atoms
//with a defined Nye tensor in the region given by o, with t the line direction. It
//returns the Burgers vector estimate, in the frame of S, and the number of atoms used.
func Burgers(S *disloc.System, R *Result, o BurgersOptions) ([3]float64, int, error) {
	var b [3]float64
	if len(R.Alpha) != S.Len() {
		return b, 0, disloc.NewConfigError("result and system sizes differ", "nye.Burgers")
	}
	if o.Radius <= 0 || o.AtomicVolume <= 0 || o.LineLength <= 0 {
		return b, 0, disloc.NewConfigError(fmt.Sprintf("bad integration region %+v", o), "nye.Burgers")
	}
	t := elastic.Unit(o.Line)
	if elastic.Norm(t) == 0 {
		return b, 0, disloc.NewConfigError("zero line direction", "nye.Burgers")
	}
	used := 0
	for i := 0; i < S.Len(); i++ {
		if !R.AlphaDefined[i] {
			continue
		}
		p := S.Coords.Vec(i)
		d := S.Box.MinImage([3]float64{p[0] - o.Center[0], p[1] - o.Center[1], p[2] - o.Center[2]}, S.PBC)
		along := elastic.Dot(d, t)
		for k := 0; k < 3; k++ {
			d[k] -= along * t[k]
		}
		if elastic.Norm(d) > o.Radius {
			continue
		}
		used++
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				b[j] += t[k] * R.Alpha[i][k][j]
			}
		}
	}
	f := o.AtomicVolume / o.LineLength
	for j := range b {
		b[j] *= f
	}
	return b, used, nil
}

//Summary gives aggregate figures for the atoms with a correspondence.
type Summary struct {
	Atoms           int
	Defined         int
	DefinedFraction float64
	MeanResidual    float64
	StdResidual     float64
	MaxResidual     float64
	//MaxGDeviation is the largest |G_ij - δ_ij| among defined atoms.
	MaxGDeviation float64
}

//Summarize returns the Summary of R.
func Summarize(R *Result) Summary {
	s := Summary{Atoms: len(R.Defined)}
	var res []float64
	for i, d := range R.Defined {
		if !d {
			continue
		}
		res = append(res, R.Residual[i])
		for a := 0; a < 3; a++ {
			for b := 0; b < 3; b++ {
				v := R.G[i][a][b]
				if a == b {
					v--
				}
				s.MaxGDeviation = math.Max(s.MaxGDeviation, math.Abs(v))
			}
		}
	}
	s.Defined = len(res)
	if s.Atoms > 0 {
		s.DefinedFraction = float64(s.Defined) / float64(s.Atoms)
	}
	if len(res) > 0 {
		s.MeanResidual, s.StdResidual = stat.MeanStdDev(res, nil)
		s.MaxResidual = floats.Max(res)
	}
	if len(res) < 2 {
		s.StdResidual = 0
	}
	return s
}
