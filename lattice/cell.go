/*
 * cell.go, part of disloc.
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

//Package lattice builds crystalline configurations: unit cells of common prototypes,
//their reorientation along arbitrary crystallographic directions, replication into
//supercells and the boundary conditions used around dislocation cores.
package lattice

import (
	"fmt"
	"math"
	"sort"

	"github.com/rmera/disloc"
	"github.com/rmera/disloc/elastic"
	"gonum.org/v1/gonum/mat"
)

//Site is an atom in the unit cell, in fractional coordinates. Index
//identifies the site in the original (conventional) cell.
type Site struct {
	Frac  [3]float64
	Type  int
	Index int
}

//UnitCell is a crystal unit cell. Vects are the cell vectors, as rows, in Å.
//Symbols gives the element for each atom type (index type-1).
type UnitCell struct {
	Prototype string
	Vects     [3][3]float64
	Basis     []Site
	Symbols   []string
}

func cubicCell(proto string, a float64, fracs [][3]float64, symbols []string) *UnitCell {
	c := &UnitCell{Prototype: proto, Symbols: symbols}
	c.Vects = [3][3]float64{{a, 0, 0}, {0, a, 0}, {0, 0, a}}
	for i, f := range fracs {
		c.Basis = append(c.Basis, Site{Frac: f, Type: 1, Index: i})
	}
	return c
}

//SC returns a simple cubic cell with lattice parameter a.
func SC(a float64, symbol string) *UnitCell {
	return cubicCell("A_h--sc", a, [][3]float64{{0, 0, 0}}, []string{symbol})
}

//BCC returns a conventional body-centered cubic cell.
func BCC(a float64, symbol string) *UnitCell {
	return cubicCell("A2--W--bcc", a, [][3]float64{{0, 0, 0}, {0.5, 0.5, 0.5}}, []string{symbol})
}

//FCC returns a conventional face-centered cubic cell.
func FCC(a float64, symbol string) *UnitCell {
	return cubicCell("A1--Cu--fcc", a, [][3]float64{{0, 0, 0}, {0, 0.5, 0.5}, {0.5, 0, 0.5}, {0.5, 0.5, 0}}, []string{symbol})
}

//Diamond returns a conventional diamond cubic cell.
func Diamond(a float64, symbol string) *UnitCell {
	f := [][3]float64{{0, 0, 0}, {0, 0.5, 0.5}, {0.5, 0, 0.5}, {0.5, 0.5, 0}}
	for _, v := range f[:4] {
		f = append(f, [3]float64{v[0] + 0.25, v[1] + 0.25, v[2] + 0.25})
	}
	return cubicCell("A4--C--dc", a, f, []string{symbol})
}

//HCP returns a hexagonal close packed cell, with a along x and c along z.
func HCP(a, c float64, symbol string) *UnitCell {
	u := &UnitCell{Prototype: "A3--Mg--hcp", Symbols: []string{symbol}}
	u.Vects = [3][3]float64{{a, 0, 0}, {-a / 2, a * math.Sqrt(3) / 2, 0}, {0, 0, c}}
	u.Basis = []Site{
		{Frac: [3]float64{1.0 / 3, 2.0 / 3, 0.25}, Type: 1, Index: 0},
		{Frac: [3]float64{2.0 / 3, 1.0 / 3, 0.75}, Type: 1, Index: 1},
	}
	return u
}

//Prototype returns a unit cell for one of the known prototypes: sc, bcc, fcc, diamond
//or hcp (which also needs c). The lattice constants are in Å.
func Prototype(name string, a, c float64, symbols []string) (*UnitCell, error) {
	if a <= 0 || len(symbols) == 0 {
		return nil, disloc.NewConfigError(fmt.Sprintf("bad lattice parameters for prototype %s", name), "lattice.Prototype")
	}
	var u *UnitCell
	switch name {
	case "sc":
		u = SC(a, symbols[0])
	case "bcc":
		u = BCC(a, symbols[0])
	case "fcc":
		u = FCC(a, symbols[0])
	case "diamond":
		u = Diamond(a, symbols[0])
	case "hcp":
		if c <= 0 {
			return nil, disloc.NewConfigError("hcp needs a positive c lattice parameter", "lattice.Prototype")
		}
		u = HCP(a, c, symbols[0])
	default:
		return nil, disloc.NewConfigError(fmt.Sprintf("unknown prototype %s", name), "lattice.Prototype")
	}
	return u, nil
}

//NTypes returns the number of atom types in the cell.
func (u *UnitCell) NTypes() int {
	n := len(u.Symbols)
	for _, s := range u.Basis {
		if s.Type > n {
			n = s.Type
		}
	}
	return n
}

//Cartesian returns the cartesian vector for the crystallographic direction uvw.
func (u *UnitCell) Cartesian(uvw [3]float64) [3]float64 {
	var r [3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[j] += uvw[i] * u.Vects[i][j]
		}
	}
	return r
}

//Volume returns the volume of the cell.
func (u *UnitCell) Volume() float64 {
	v := u.Vects
	return math.Abs(elastic.Dot(v[0], elastic.Cross(v[1], v[2])))
}

//AtomicVolume returns the volume per atom.
func (u *UnitCell) AtomicVolume() float64 {
	return u.Volume() / float64(len(u.Basis))
}

//IsOrthogonal returns true if the cell vectors lie along x, y and z.
func (u *UnitCell) IsOrthogonal() bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if i != j && u.Vects[i][j] != 0 {
				return false
			}
		}
	}
	return true
}

//Lengths returns the length of the cell vectors.
func (u *UnitCell) Lengths() [3]float64 {
	return [3]float64{elastic.Norm(u.Vects[0]), elastic.Norm(u.Vects[1]), elastic.Norm(u.Vects[2])}
}

//Orient returns an orthogonal cell whose edges, along x, y and z, are the
//crystallographic directions in the rows of axes, together with the rotation R
//(rows are the unit vectors of the new axes, in the old frame) that maps
//cartesian vectors of u into the new cell. The axes must be mutually
//orthogonal and right-handed.
func Orient(u *UnitCell, axes [3][3]int) (*UnitCell, [3][3]float64, error) {
	var R [3][3]float64
	var v [3][3]float64
	var L [3]float64
	for i := 0; i < 3; i++ {
		v[i] = u.Cartesian([3]float64{float64(axes[i][0]), float64(axes[i][1]), float64(axes[i][2])})
		L[i] = elastic.Norm(v[i])
		if L[i] == 0 {
			return nil, R, disloc.NewConfigError(fmt.Sprintf("zero orientation axis %v", axes[i]), "lattice.Orient")
		}
		R[i] = elastic.Unit(v[i])
	}
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			if math.Abs(elastic.Dot(R[i], R[j])) > 1e-8 {
				return nil, R, disloc.NewConfigError(fmt.Sprintf("orientation axes %v and %v are not orthogonal", axes[i], axes[j]), "lattice.Orient")
			}
		}
	}
	if err := elastic.Orthonormal(R); err != nil {
		return nil, R, disloc.WrapConfigError(err, fmt.Sprintf("orientation axes %v", axes), "lattice.Orient")
	}
	//The integer det of axes times the basis is the expected number of atoms.
	det := axes[0][0]*(axes[1][1]*axes[2][2]-axes[1][2]*axes[2][1]) -
		axes[0][1]*(axes[1][0]*axes[2][2]-axes[1][2]*axes[2][0]) +
		axes[0][2]*(axes[1][0]*axes[2][1]-axes[1][1]*axes[2][0])
	if det < 0 {
		det = -det
	}
	want := det * len(u.Basis)

	//fractional coordinates of the new cell corners, to bound the search.
	V := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		V.SetRow(i, u.Vects[i][:])
	}
	var Vinv mat.Dense
	if err := Vinv.Inverse(V); err != nil {
		return nil, R, disloc.WrapConfigError(err, "singular unit cell", "lattice.Orient")
	}
	lo := [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for c := 0; c < 8; c++ {
		var p [3]float64
		for i := 0; i < 3; i++ {
			if c&(1<<uint(i)) != 0 {
				for j := 0; j < 3; j++ {
					p[j] += v[i][j]
				}
			}
		}
		for j := 0; j < 3; j++ {
			f := p[0]*Vinv.At(0, j) + p[1]*Vinv.At(1, j) + p[2]*Vinv.At(2, j)
			lo[j] = math.Min(lo[j], f)
			hi[j] = math.Max(hi[j], f)
		}
	}
	const tol = 1e-8
	o := &UnitCell{Prototype: u.Prototype, Symbols: u.Symbols}
	o.Vects = [3][3]float64{{L[0], 0, 0}, {0, L[1], 0}, {0, 0, L[2]}}
	for a := int(math.Floor(lo[0])) - 1; a <= int(math.Ceil(hi[0])); a++ {
		for b := int(math.Floor(lo[1])) - 1; b <= int(math.Ceil(hi[1])); b++ {
			for c := int(math.Floor(lo[2])) - 1; c <= int(math.Ceil(hi[2])); c++ {
				for _, s := range u.Basis {
					p := u.Cartesian([3]float64{float64(a) + s.Frac[0], float64(b) + s.Frac[1], float64(c) + s.Frac[2]})
					q := elastic.Transform(p, R)
					var f [3]float64
					in := true
					for i := 0; i < 3; i++ {
						f[i] = q[i] / L[i]
						if f[i] < -tol || f[i] >= 1-tol {
							in = false
							break
						}
						if f[i] < 0 {
							f[i] = 0
						}
					}
					if in {
						o.Basis = append(o.Basis, Site{Frac: f, Type: s.Type, Index: s.Index})
					}
				}
			}
		}
	}
	if len(o.Basis) != want {
		return nil, R, disloc.NewConfigError(fmt.Sprintf("oriented cell has %d atoms, expected %d", len(o.Basis), want), "lattice.Orient")
	}
	sort.SliceStable(o.Basis, func(i, j int) bool {
		a, b := o.Basis[i].Frac, o.Basis[j].Frac
		for k := 2; k >= 0; k-- {
			if math.Abs(a[k]-b[k]) > tol {
				return a[k] < b[k]
			}
		}
		return false
	})
	return o, R, nil
}

//ReplicationCount returns the smallest even n such that n*L >= S, so that a
//dislocation at the center of n periodic lengths L sits in a volume at
//least S wide. It is never smaller than 2.
func ReplicationCount(L, S float64) int {
	if L <= 0 {
		panic("lattice.ReplicationCount: non-positive periodic length")
	}
	half := S / (2 * L)
	n := int(math.Ceil(half - 1e-9*math.Max(1, half)))
	if n < 1 {
		n = 1
	}
	return 2 * n
}
