/*
 * box.go, part of disloc.
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

package disloc

import (
	"fmt"
	"math"
)

//Box is a simulation cell in the LAMMPS convention: the a vector lies along x,
//b in the xy plane, and c is general. Lo and Hi are the bounds of the
//orthogonal (untilted) parallelepiped and Tilt holds xy, xz and yz.
type Box struct {
	Lo   [3]float64
	Hi   [3]float64
	Tilt [3]float64
}

//NewOrthoBox returns an orthogonal box spanning lo to hi.
func NewOrthoBox(lo, hi [3]float64) Box {
	return Box{Lo: lo, Hi: hi}
}

//NewBoxFromVects builds a box from three cell vectors and an origin. The
//vectors must already be in the LAMMPS form (a along x, b in the xy plane).
func NewBoxFromVects(a, b, c, origin [3]float64) (Box, error) {
	const tol = 1e-8
	if math.Abs(a[1]) > tol || math.Abs(a[2]) > tol || math.Abs(b[2]) > tol {
		return Box{}, NewConfigError(fmt.Sprintf("box vectors %v %v %v are not in LAMMPS form", a, b, c), "NewBoxFromVects")
	}
	if a[0] <= 0 || b[1] <= 0 || c[2] <= 0 {
		return Box{}, NewConfigError("box vectors must be right-handed with positive diagonal", "NewBoxFromVects")
	}
	bx := Box{Lo: origin}
	bx.Hi = [3]float64{origin[0] + a[0], origin[1] + b[1], origin[2] + c[2]}
	bx.Tilt = [3]float64{b[0], c[0], c[1]}
	return bx, nil
}

//Lengths returns lx, ly and lz.
func (b Box) Lengths() [3]float64 {
	return [3]float64{b.Hi[0] - b.Lo[0], b.Hi[1] - b.Lo[1], b.Hi[2] - b.Lo[2]}
}

//Vects returns the three cell vectors as rows.
func (b Box) Vects() [3][3]float64 {
	l := b.Lengths()
	return [3][3]float64{
		{l[0], 0, 0},
		{b.Tilt[0], l[1], 0},
		{b.Tilt[1], b.Tilt[2], l[2]},
	}
}

//IsOrthogonal returns true if all the tilt factors are zero.
func (b Box) IsOrthogonal() bool {
	return b.Tilt == [3]float64{}
}

//Volume returns the volume of the cell.
func (b Box) Volume() float64 {
	l := b.Lengths()
	return l[0] * l[1] * l[2]
}

//Frac returns the fractional coordinates of the cartesian point p.
func (b Box) Frac(p [3]float64) [3]float64 {
	l := b.Lengths()
	xy, xz, yz := b.Tilt[0], b.Tilt[1], b.Tilt[2]
	d := [3]float64{p[0] - b.Lo[0], p[1] - b.Lo[1], p[2] - b.Lo[2]}
	fz := d[2] / l[2]
	fy := (d[1] - yz*fz) / l[1]
	fx := (d[0] - xy*fy - xz*fz) / l[0]
	return [3]float64{fx, fy, fz}
}

//Cart returns the cartesian coordinates of the fractional point f.
func (b Box) Cart(f [3]float64) [3]float64 {
	v := b.Vects()
	var p [3]float64
	for j := 0; j < 3; j++ {
		p[j] = b.Lo[j] + f[0]*v[0][j] + f[1]*v[1][j] + f[2]*v[2][j]
	}
	return p
}

//Wrap maps p back into the cell along the dimensions flagged in pbc.
func (b Box) Wrap(p [3]float64, pbc [3]bool) [3]float64 {
	f := b.Frac(p)
	changed := false
	for i := 0; i < 3; i++ {
		if !pbc[i] {
			continue
		}
		if f[i] < 0 || f[i] >= 1 {
			f[i] -= math.Floor(f[i])
			if f[i] >= 1 { //floor rounding
				f[i] = 0
			}
			changed = true
		}
	}
	if !changed {
		return p
	}
	return b.Cart(f)
}

//MinImage returns the minimum image of the vector d along the periodic dimensions.
func (b Box) MinImage(d [3]float64, pbc [3]bool) [3]float64 {
	v := b.Vects()
	l := b.Lengths()
	//reduce in the order z, y, x as the cell is lower triangular.
	for i := 2; i >= 0; i-- {
		if !pbc[i] {
			continue
		}
		n := math.Round(d[i] / l[i])
		if n == 0 {
			continue
		}
		for j := 0; j < 3; j++ {
			d[j] -= n * v[i][j]
		}
	}
	return d
}

//Bounds returns the LAMMPS "bound" values (xlo_bound, xhi_bound, ...) used in dump files.
func (b Box) Bounds() (lo, hi [3]float64) {
	xy, xz, yz := b.Tilt[0], b.Tilt[1], b.Tilt[2]
	lo, hi = b.Lo, b.Hi
	lo[0] += math.Min(math.Min(0, xy), math.Min(xz, xy+xz))
	hi[0] += math.Max(math.Max(0, xy), math.Max(xz, xy+xz))
	lo[1] += math.Min(0, yz)
	hi[1] += math.Max(0, yz)
	return lo, hi
}

//boxFromBounds is the inverse of Bounds.
func boxFromBounds(lo, hi, tilt [3]float64) Box {
	xy, xz, yz := tilt[0], tilt[1], tilt[2]
	b := Box{Lo: lo, Hi: hi, Tilt: tilt}
	b.Lo[0] -= math.Min(math.Min(0, xy), math.Min(xz, xy+xz))
	b.Hi[0] -= math.Max(math.Max(0, xy), math.Max(xz, xy+xz))
	b.Lo[1] -= math.Min(0, yz)
	b.Hi[1] -= math.Max(0, yz)
	return b
}
