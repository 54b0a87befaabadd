/*
 * neighbors.go, part of disloc.
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
	"sort"

	"github.com/rmera/disloc"
	"github.com/rmera/disloc/elastic"
)

//NeighborList holds, for each atom, the indexes of all atoms within Cutoff and the
//vectors from the atom to each of them, taking the minimum image along periodic
//axes. Neighbors are sorted by distance.
type NeighborList struct {
	Cutoff  float64
	Index   [][]int
	Vectors [][][3]float64
}

//Coordination returns the number of neighbors of atom i.
func (nl *NeighborList) Coordination(i int) int {
	return len(nl.Index[i])
}

//heights returns the distances between opposite faces of the box.
func heights(b disloc.Box) [3]float64 {
	v := b.Vects()
	vol := b.Volume()
	var h [3]float64
	for i := 0; i < 3; i++ {
		h[i] = vol / elastic.Norm(elastic.Cross(v[(i+1)%3], v[(i+2)%3]))
	}
	return h
}

//Neighbors builds the neighbor list of S for the given cutoff, in Å, using
//a cell list. Along periodic axes the box must be more than twice as wide as
//the cutoff.
func Neighbors(S *disloc.System, cutoff float64) (*NeighborList, error) {
	if cutoff <= 0 {
		return nil, disloc.NewConfigError(fmt.Sprintf("bad neighbor cutoff %g", cutoff), "nye.Neighbors")
	}
	h := heights(S.Box)
	var nb [3]int
	for i := 0; i < 3; i++ {
		if S.PBC[i] && 2*cutoff >= h[i] {
			return nil, disloc.NewConfigError(fmt.Sprintf("box is %g wide along periodic axis %d, too small for a cutoff of %g", h[i], i, cutoff), "nye.Neighbors")
		}
		nb[i] = int(h[i] / cutoff)
		if nb[i] < 1 {
			nb[i] = 1
		}
	}
	n := S.Len()
	binOf := make([][3]int, n)
	bins := make(map[[3]int][]int)
	for k := 0; k < n; k++ {
		f := S.Box.Frac(S.Coords.Vec(k))
		var b [3]int
		for i := 0; i < 3; i++ {
			b[i] = int(math.Floor(f[i] * float64(nb[i])))
			if S.PBC[i] {
				b[i] = ((b[i] % nb[i]) + nb[i]) % nb[i]
			} else if b[i] < 0 {
				b[i] = 0
			} else if b[i] >= nb[i] {
				b[i] = nb[i] - 1
			}
		}
		binOf[k] = b
		bins[b] = append(bins[b], k)
	}
	nl := &NeighborList{Cutoff: cutoff, Index: make([][]int, n), Vectors: make([][][3]float64, n)}
	c2 := cutoff * cutoff
	for k := 0; k < n; k++ {
		pk := S.Coords.Vec(k)
		seen := make(map[[3]int]bool, 27)
		type nbr struct {
			j  int
			d  [3]float64
			r2 float64
		}
		var found []nbr
		for ox := -1; ox <= 1; ox++ {
			for oy := -1; oy <= 1; oy++ {
				for oz := -1; oz <= 1; oz++ {
					b := binOf[k]
					o := [3]int{ox, oy, oz}
					skip := false
					for i := 0; i < 3; i++ {
						b[i] += o[i]
						if S.PBC[i] {
							b[i] = ((b[i] % nb[i]) + nb[i]) % nb[i]
						} else if b[i] < 0 || b[i] >= nb[i] {
							skip = true
						}
					}
					if skip || seen[b] {
						continue
					}
					seen[b] = true
					for _, j := range bins[b] {
						if j == k {
							continue
						}
						pj := S.Coords.Vec(j)
						d := S.Box.MinImage([3]float64{pj[0] - pk[0], pj[1] - pk[1], pj[2] - pk[2]}, S.PBC)
						r2 := elastic.Dot(d, d)
						if r2 <= c2 {
							found = append(found, nbr{j, d, r2})
						}
					}
				}
			}
		}
		sort.Slice(found, func(a, b int) bool {
			if found[a].r2 != found[b].r2 {
				return found[a].r2 < found[b].r2
			}
			return found[a].j < found[b].j
		})
		nl.Index[k] = make([]int, len(found))
		nl.Vectors[k] = make([][3]float64, len(found))
		for m, f := range found {
			nl.Index[k][m] = f.j
			nl.Vectors[k][m] = f.d
		}
	}
	return nl, nil
}
