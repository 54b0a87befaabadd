/*
 * setup.go, part of disloc.
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

package monopole

import (
	"fmt"
	"math"

	"github.com/rmera/disloc"
	"github.com/rmera/disloc/elastic"
	"github.com/rmera/disloc/lattice"
	"github.com/rmera/disloc/stroh"
)

//parallelTol is the tolerance for the dot product of two unit vectors to be
//considered parallel.
const parallelTol = 1e-8

//Crystal is the crystal in which the dislocation is built. A and C are the lattice
//parameters in Å (C only for hcp) and Cij the stiffness in the crystal frame, in GPa.
type Crystal struct {
	Prototype string
	A         float64
	C         float64
	Symbols   []string
	Cij       elastic.Cij
}

//Cell returns the conventional unit cell of the crystal.
func (c *Crystal) Cell() (*lattice.UnitCell, error) {
	u, err := lattice.Prototype(c.Prototype, c.A, c.C, c.Symbols)
	return u, disloc.ErrDecorate(err, "Crystal.Cell")
}

//Sizing controls the size of the supercell and the boundary region.
type Sizing struct {
	//Size is the minimum extent of the supercell, in Å, along both in-plane axes.
	Size float64 `toml:"size"`
	//LineCells is the number of periodic lengths along the line. It is increased if
	//needed to fit the neighbor cutoff.
	LineCells int `toml:"line_cells"`
	//Shape is lattice.ShapeCircle or lattice.ShapeBox
	Shape string `toml:"shape"`
	//Width of the fixed boundary region, in Å.
	Width float64 `toml:"width"`
}

//Check returns a ConfigError if the sizing is not usable.
func (s Sizing) Check() error {
	if s.Size <= 0 || s.Width <= 0 || s.LineCells < 0 {
		return disloc.NewConfigError(fmt.Sprintf("bad sizing %+v", s), "Sizing.Check")
	}
	if s.Shape != lattice.ShapeCircle && s.Shape != lattice.ShapeBox {
		return disloc.NewConfigError(fmt.Sprintf("unknown boundary shape %q", s.Shape), "Sizing.Check")
	}
	return nil
}

//Setup contains everything derived from the inputs before any simulation: the
//orientation, the stiffness and Burgers vector in the dislocation frame, the Stroh
//solution and the perfect supercell. It is not modified after NewSetup.
type Setup struct {
	Crystal *Crystal
	Params  *Params
	Sizing  Sizing
	//Cell is the oriented unit cell and R the rotation from the crystal to the box frame.
	Cell *lattice.UnitCell
	R    [3][3]float64
	//Align relates the box frame and the dislocation (m, n, line) frame.
	Align elastic.Alignment
	//C is the stiffness in the dislocation frame.
	C elastic.C4
	//Burgers vector, in Å, in the box and dislocation frames.
	BurgersBox  [3]float64
	BurgersDisl [3]float64
	Solution    *stroh.Solution
	Bounds      lattice.Bounds
	//Base is the perfect supercell, with the dislocation line through Core.
	Base         *disloc.System
	Core         [3]float64
	LineLength   float64
	AtomicVolume float64
}

//reciprocal returns the reciprocal cell vectors of u, as rows, without the 2π factor.
func reciprocal(u *lattice.UnitCell) [3][3]float64 {
	v := u.Vects
	vol := elastic.Dot(v[0], elastic.Cross(v[1], v[2]))
	var r [3][3]float64
	for i := 0; i < 3; i++ {
		c := elastic.Cross(v[(i+1)%3], v[(i+2)%3])
		for k := 0; k < 3; k++ {
			r[i][k] = c[k] / vol
		}
	}
	return r
}

func intv(v [3]int) [3]float64 { return [3]float64{float64(v[0]), float64(v[1]), float64(v[2])} }

//PlaneNormal returns the unit cartesian normal of the (hkl) plane of u.
func PlaneNormal(u *lattice.UnitCell, hkl [3]int) [3]float64 {
	r := reciprocal(u)
	var n [3]float64
	for i := 0; i < 3; i++ {
		for k := 0; k < 3; k++ {
			n[k] += float64(hkl[i]) * r[i][k]
		}
	}
	return elastic.Unit(n)
}

//NewSetup validates the inputs and computes everything needed before the simulations
//start. All configuration problems are detected here and reported as ConfigErrors.
func NewSetup(c *Crystal, p *Params, s Sizing) (*Setup, error) {
	const caller = "monopole.NewSetup"
	if err := p.Check(); err != nil {
		return nil, disloc.ErrDecorate(err, caller)
	}
	if err := s.Check(); err != nil {
		return nil, disloc.ErrDecorate(err, caller)
	}
	if !p.AppliesTo(c.Prototype) {
		return nil, disloc.NewConfigError(fmt.Sprintf("dislocation %s does not apply to prototype %s", p.Tag, c.Prototype), caller)
	}
	if err := c.Cij.Check(); err != nil {
		return nil, disloc.ErrDecorate(err, caller)
	}
	cell, err := c.Cell()
	if err != nil {
		return nil, disloc.ErrDecorate(err, caller)
	}
	S := &Setup{Crystal: c, Params: p, Sizing: s}
	S.Cell, S.R, err = lattice.Orient(cell, p.Axes)
	if err != nil {
		return nil, disloc.ErrDecorate(err, caller)
	}
	S.Align, err = elastic.ValidateAxes(p.M, p.N)
	if err != nil {
		return nil, disloc.ErrDecorate(err, caller)
	}
	line := elastic.Unit(elastic.Transform(cell.Cartesian(intv(p.LineUVW)), S.R))
	if elastic.Dot(line, S.Align.T[2]) < 1-parallelTol {
		return nil, disloc.NewConfigError(fmt.Sprintf("line direction %v is along %v in the box, not along m x n = %v", p.LineUVW, line, S.Align.T[2]), caller)
	}
	normal := elastic.Transform(PlaneNormal(cell, p.SlipHKL), S.R)
	if math.Abs(elastic.Dot(normal, S.Align.T[1])) < 1-parallelTol {
		return nil, disloc.NewConfigError(fmt.Sprintf("slip plane (%v) normal %v is not along n = %v", p.SlipHKL, normal, S.Align.T[1]), caller)
	}
	S.BurgersBox = elastic.Transform(cell.Cartesian(p.Burgers), S.R)
	if elastic.Norm(S.BurgersBox) < 1e-8*c.A {
		return nil, disloc.NewConfigError("zero Burgers vector", caller)
	}
	S.BurgersDisl = elastic.Transform(S.BurgersBox, S.Align.T)

	c4 := c.Cij.C4()
	if err := c4.Symmetric(1e-8); err != nil {
		return nil, disloc.ErrDecorate(err, caller)
	}
	S.C = elastic.Rotate(elastic.Rotate(c4, S.R), S.Align.T)
	S.Solution, err = stroh.Solve(S.C)
	if err != nil {
		return nil, disloc.ErrDecorate(err, caller)
	}

	L := S.Cell.Lengths()
	var count [3]int
	var pbc [3]bool
	lax := S.Align.LineAxis()
	for i := 0; i < 3; i++ {
		if i == lax {
			continue
		}
		count[i] = lattice.ReplicationCount(L[i], s.Size)
	}
	count[lax] = s.LineCells
	if count[lax] < 1 {
		count[lax] = 1
	}
	//the neighbor search needs more than two cutoffs along the periodic line.
	if need := int(math.Floor(2*p.NeighborCutoff*c.A/L[lax])) + 1; count[lax] < need {
		count[lax] = need
	}
	pbc[lax] = true
	S.Bounds = lattice.SymmetricBounds(count)
	var shift [3]float64
	for i := 0; i < 3; i++ {
		shift[i] = p.Shift[i] * L[i]
	}
	S.Base, err = lattice.Build(S.Cell, S.Bounds, pbc, shift)
	if err != nil {
		return nil, disloc.ErrDecorate(err, caller)
	}
	S.LineLength = L[lax] * float64(count[lax])
	S.AtomicVolume = S.Cell.AtomicVolume()
	if r := S.ShellRadius(); s.Shape == lattice.ShapeCircle && r <= p.CoreCutoff*c.A {
		return nil, disloc.NewConfigError(fmt.Sprintf("free region radius %g Å is not larger than the core cutoff, increase the size", r), caller)
	}
	return S, nil
}

//ShellRadius returns the radius of the free region for a circular boundary: the
//smallest in-plane half size of the supercell minus the boundary width.
func (S *Setup) ShellRadius() float64 {
	lo, hi := S.Base.Box.Bounds()
	r := math.Inf(1)
	for i := 0; i < 3; i++ {
		if i == S.Align.LineAxis() {
			continue
		}
		r = math.Min(r, math.Min(S.Core[i]-lo[i], hi[i]-S.Core[i]))
	}
	return r - S.Sizing.Width
}

//Shell returns the boundary region for the defected supercell.
func (S *Setup) Shell() lattice.Shell {
	sh := lattice.Shell{Shape: S.Sizing.Shape, Center: S.Core, LineAxis: S.Align.LineAxis(), Size: S.Sizing.Width}
	if sh.Shape == lattice.ShapeCircle {
		sh.Size = S.ShellRadius()
	}
	return sh
}

//PreLn returns the pre-logarithmic energy factor of the dislocation in eV/Å.
func (S *Setup) PreLn() float64 {
	v, _ := disloc.Convert(S.Solution.PreLn(S.BurgersDisl), disloc.UnitGPaA2, disloc.UnitEVPerA)
	return v
}
