/*
 * build.go, part of disloc.
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

package lattice

import (
	"fmt"

	"github.com/rmera/disloc"
	v3 "github.com/rmera/disloc/v3"
)

//SiteProp is the per-atom property holding the index of the unit cell site each atom came from.
const SiteProp = "site"

//Bounds holds signed replication counts per axis: cells from Bounds[i][0] to
//Bounds[i][1]-1 are built along axis i, so a dislocation at the origin sits
//in the middle of a symmetric supercell.
type Bounds [3][2]int

//SymmetricBounds returns bounds with n[i]/2 cells on each side of the origin.
func SymmetricBounds(n [3]int) Bounds {
	var b Bounds
	for i := 0; i < 3; i++ {
		b[i] = [2]int{-n[i] / 2, n[i] - n[i]/2}
	}
	return b
}

//Count returns the number of cells along each axis.
func (b Bounds) Count() [3]int {
	return [3]int{b[0][1] - b[0][0], b[1][1] - b[1][0], b[2][1] - b[2][0]}
}

//Build replicates the orthogonal cell u within bounds. The whole configuration is
//displaced rigidly by shift (cartesian, Å) and atoms are then wrapped along the periodic
//axes. Atoms are numbered from 1 and carry the SiteProp property.
func Build(u *UnitCell, bounds Bounds, pbc [3]bool, shift [3]float64) (*disloc.System, error) {
	if !u.IsOrthogonal() {
		return nil, disloc.NewConfigError("only orthogonal cells can be replicated, orient the cell first", "lattice.Build")
	}
	L := u.Lengths()
	var lo, hi [3]float64
	count := bounds.Count()
	for i := 0; i < 3; i++ {
		if count[i] <= 0 {
			return nil, disloc.NewConfigError(fmt.Sprintf("empty replication bounds %v along axis %d", bounds[i], i), "lattice.Build")
		}
		lo[i] = float64(bounds[i][0]) * L[i]
		hi[i] = float64(bounds[i][1]) * L[i]
	}
	masses := make([]float64, u.NTypes())
	for i, s := range u.Symbols {
		masses[i], _ = disloc.Mass(s)
	}
	n := count[0] * count[1] * count[2] * len(u.Basis)
	atoms := make([]*disloc.Atom, 0, n)
	coords := v3.Zeros(n)
	site := make([]float64, 0, n)
	k := 0
	for c := bounds[2][0]; c < bounds[2][1]; c++ {
		for b := bounds[1][0]; b < bounds[1][1]; b++ {
			for a := bounds[0][0]; a < bounds[0][1]; a++ {
				for _, s := range u.Basis {
					p := [3]float64{
						(float64(a)+s.Frac[0])*L[0] + shift[0],
						(float64(b)+s.Frac[1])*L[1] + shift[1],
						(float64(c)+s.Frac[2])*L[2] + shift[2],
					}
					at := &disloc.Atom{ID: k + 1, Type: s.Type}
					if s.Type <= len(u.Symbols) {
						at.Symbol = u.Symbols[s.Type-1]
						at.Mass = masses[s.Type-1]
					}
					atoms = append(atoms, at)
					coords.SetVec(k, p)
					site = append(site, float64(s.Index))
					k++
				}
			}
		}
	}
	S, err := disloc.NewSystem(disloc.NewOrthoBox(lo, hi), pbc, atoms, coords)
	if err != nil {
		return nil, err
	}
	if err := S.SetProp(SiteProp, 1, site); err != nil {
		return nil, err
	}
	S.Wrap()
	return S, nil
}
