/*
 * boundary.go, part of disloc.
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
	"math"

	"github.com/rmera/disloc"
)

//FixedProp is the per-atom property set to 1 for atoms held fixed during relaxation.
const FixedProp = "fixed"

//Shell shapes.
const (
	ShapeCircle = "circle"
	ShapeBox    = "box"
)

//Shell describes the boundary region of atoms held fixed around a dislocation.
//For ShapeCircle, atoms farther than Size from the line through Center along
//LineAxis are fixed. For ShapeBox, atoms within Size of the non-periodic box
//faces perpendicular to the line are fixed.
type Shell struct {
	Shape    string
	Size     float64
	Center   [3]float64
	LineAxis int
}

//Check returns a ConfigError if the shell is not usable.
func (s Shell) Check() error {
	if s.Shape != ShapeCircle && s.Shape != ShapeBox {
		return disloc.NewConfigError(fmt.Sprintf("unknown boundary shape %q", s.Shape), "lattice.Shell.Check")
	}
	if s.Size <= 0 || s.LineAxis < 0 || s.LineAxis > 2 {
		return disloc.NewConfigError(fmt.Sprintf("bad boundary size %g or line axis %d", s.Size, s.LineAxis), "lattice.Shell.Check")
	}
	return nil
}

//Apply marks the atoms in the shell as fixed, see Fix. It returns the number of fixed atoms.
func (s Shell) Apply(S *disloc.System, ntypes int) (int, error) {
	if err := s.Check(); err != nil {
		return 0, err
	}
	if s.Shape == ShapeCircle {
		return CylinderShell(S, s.Center, s.LineAxis, s.Size, ntypes)
	}
	return BoxShell(S, s.LineAxis, s.Size, ntypes)
}

func inPlane(line int) (int, int) {
	return (line + 1) % 3, (line + 2) % 3
}

//CylinderShell fixes all atoms farther than radius from the line through core along lineAxis.
func CylinderShell(S *disloc.System, core [3]float64, lineAxis int, radius float64, ntypes int) (int, error) {
	i, j := inPlane(lineAxis)
	return Fix(S, ntypes, func(p [3]float64) bool {
		return math.Hypot(p[i]-core[i], p[j]-core[j]) > radius
	})
}

//BoxShell fixes all atoms within width of the box faces normal to the two axes
//other than lineAxis.
func BoxShell(S *disloc.System, lineAxis int, width float64, ntypes int) (int, error) {
	i, j := inPlane(lineAxis)
	lo, hi := S.Box.Lo, S.Box.Hi
	return Fix(S, ntypes, func(p [3]float64) bool {
		return p[i] < lo[i]+width || p[i] > hi[i]-width || p[j] < lo[j]+width || p[j] > hi[j]-width
	})
}

//Fix marks as fixed the atoms for which sel returns true: their type is raised
//by ntypes, so they can be grouped by type in the simulator, and the FixedProp
//property is set. Atoms that are already fixed are left alone.
func Fix(S *disloc.System, ntypes int, sel func(p [3]float64) bool) (int, error) {
	if ntypes <= 0 {
		return 0, disloc.NewConfigError("the number of atom types must be positive", "lattice.Fix")
	}
	fixed := make([]float64, S.Len())
	if p, ok := S.Prop(FixedProp); ok {
		copy(fixed, p.Data)
	}
	var chosen []int
	n := 0
	for k, a := range S.Atoms {
		if fixed[k] != 0 {
			n++
			continue
		}
		if sel(S.Coords.Vec(k)) {
			if a.Type > ntypes {
				return 0, disloc.NewConfigError(fmt.Sprintf("atom %d has type %d, more than the %d types given", a.ID, a.Type, ntypes), "lattice.Fix")
			}
			chosen = append(chosen, k)
		}
	}
	for _, k := range chosen {
		S.Atoms[k].Type += ntypes
		fixed[k] = 1
	}
	n += len(chosen)
	return n, S.SetProp(FixedProp, 1, fixed)
}
