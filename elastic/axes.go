/*
 * axes.go, part of disloc.
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

package elastic

import (
	"fmt"
	"math"

	"github.com/rmera/disloc"
	"gonum.org/v1/gonum/mat"
)

//AxisTol is the tolerance used when checking that orientation vectors are unit,
//orthogonal and parallel to a cartesian axis.
const AxisTol = 1e-8

//Alignment is the result of validating a pair of dislocation orientation vectors.
//T has m, n and the line direction m x n as rows. Axes gives, for m, n and the line,
//the index of the cartesian axis each of them is parallel to, and Signs the
//direction (+1 or -1) along that axis.
type Alignment struct {
	T     [3][3]float64
	Axes  [3]int
	Signs [3]float64
}

//MAxis returns the box axis parallel to m.
func (A Alignment) MAxis() int { return A.Axes[0] }

//NAxis returns the box axis parallel to n, the slip plane normal.
func (A Alignment) NAxis() int { return A.Axes[1] }

//LineAxis returns the box axis parallel to the dislocation line.
func (A Alignment) LineAxis() int { return A.Axes[2] }

//Cross returns a x b.
func Cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

//Dot returns a.b
func Dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

//Norm returns the euclidean norm of a.
func Norm(a [3]float64) float64 {
	return math.Sqrt(Dot(a, a))
}

//Unit returns a normalized copy of a. It returns a zero vector for a zero vector.
func Unit(a [3]float64) [3]float64 {
	n := Norm(a)
	if n == 0 {
		return a
	}
	return [3]float64{a[0] / n, a[1] / n, a[2] / n}
}

//axisOf returns the cartesian axis v is parallel to, and the sign, or -1 if
//v is not parallel to any axis.
func axisOf(v [3]float64) (int, float64) {
	for i := 0; i < 3; i++ {
		if math.Abs(math.Abs(v[i])-1) > AxisTol {
			continue
		}
		if math.Abs(v[(i+1)%3]) > AxisTol || math.Abs(v[(i+2)%3]) > AxisTol {
			return -1, 0
		}
		return i, math.Copysign(1, v[i])
	}
	return -1, 0
}

//ValidateAxes checks that m and n are orthogonal unit vectors, each parallel to
//one of the cartesian axes, and returns the corresponding Alignment. Any
//violation results in a ConfigError, as the boundary conditions and neighbor
//searches downstream only support box-aligned dislocations.
func ValidateAxes(m, n [3]float64) (Alignment, error) {
	var A Alignment
	for _, v := range [][3]float64{m, n} {
		if math.Abs(Norm(v)-1) > AxisTol {
			return A, disloc.NewConfigError(fmt.Sprintf("orientation vector %v is not a unit vector", v), "elastic.ValidateAxes")
		}
	}
	if math.Abs(Dot(m, n)) > AxisTol {
		return A, disloc.NewConfigError(fmt.Sprintf("orientation vectors m=%v and n=%v are not orthogonal", m, n), "elastic.ValidateAxes")
	}
	xi := Cross(m, n)
	for i, v := range [3][3]float64{m, n, xi} {
		ax, s := axisOf(v)
		if ax < 0 {
			return A, disloc.NewConfigError(fmt.Sprintf("orientation vector %v is not parallel to a cartesian axis", v), "elastic.ValidateAxes")
		}
		A.T[i] = v
		A.Axes[i] = ax
		A.Signs[i] = s
	}
	return A, nil
}

//Orthonormal returns a ConfigError if the rows of T are not an orthonormal,
//right-handed set.
func Orthonormal(T [3][3]float64) error {
	t := mat.NewDense(3, 3, []float64{
		T[0][0], T[0][1], T[0][2],
		T[1][0], T[1][1], T[1][2],
		T[2][0], T[2][1], T[2][2],
	})
	var p mat.Dense
	p.Mul(t, t.T())
	if !mat.EqualApprox(&p, identity3(), 1e-8) {
		return disloc.NewConfigError(fmt.Sprintf("transformation %v is not orthonormal", T), "elastic.Orthonormal")
	}
	if mat.Det(t) < 0 {
		return disloc.NewConfigError(fmt.Sprintf("transformation %v is not right-handed", T), "elastic.Orthonormal")
	}
	return nil
}

func identity3() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}

//Transform returns T v, i.e. v expressed in the frame whose axes are the rows of T.
func Transform(v [3]float64, T [3][3]float64) [3]float64 {
	return [3]float64{Dot(T[0], v), Dot(T[1], v), Dot(T[2], v)}
}

//TransformBack returns Tᵀ v, the inverse of Transform for orthonormal T.
func TransformBack(v [3]float64, T [3][3]float64) [3]float64 {
	var r [3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[j] += T[i][j] * v[i]
		}
	}
	return r
}
