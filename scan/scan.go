/*
 * scan.go, part of disloc.
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

package scan

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/rmera/disloc"
	"github.com/rmera/disloc/lammps"
	"github.com/rmera/disloc/lattice"
	"github.com/rmera/disloc/record"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

//MinLength is the smallest edge, in Å, of the periodic supercells used for each point.
var MinLength = 12.0

//Minimum statuses
const (
	StatusFound           = "found"
	StatusNoMinimum       = "no_minimum"
	StatusSimulatorFailed = "simulator_failed"
)

//ErrNoMinimum is returned by Minimum.Err when the energy has no minimum in the
//scanned range.
var ErrNoMinimum = errors.New("scan: no energy minimum in range")

//Point is the energy per atom, in eV, at lattice constant A, in Å. Err is the
//simulation error if the point failed, in which case E is NaN.
type Point struct {
	A   float64
	E   float64
	Err error
}

//Failed returns true if the point has no energy.
func (p Point) Failed() bool { return p.Err != nil }

//Minimum is a minimum of the energy, or the reason none could be found. Lo and Hi
//bracket the minimum.
type Minimum struct {
	A      float64
	E      float64
	Lo, Hi float64
	Status string
	Reason string
	err    error
}

//Err returns nil if the minimum was found, ErrNoMinimum if there is none, or the
//simulation error that prevented finding it.
func (m Minimum) Err() error {
	switch m.Status {
	case StatusFound:
		return nil
	case StatusSimulatorFailed:
		if m.err != nil {
			return m.err
		}
		return lammps.ErrSimulation
	}
	return ErrNoMinimum
}

func noMinimum(reason string) Minimum {
	return Minimum{A: math.NaN(), E: math.NaN(), Status: StatusNoMinimum, Reason: reason}
}

func failed(a float64, err error) Minimum {
	return Minimum{A: a, E: math.NaN(), Status: StatusSimulatorFailed, Reason: err.Error(), err: err}
}

//hexAxes gives an orthogonal cell for hexagonal prototypes.
var hexAxes = [3][3]int{{1, 0, 0}, {1, 2, 0}, {0, 0, 1}}

//scaled returns a copy of u with its first edge of length a, and all other edges
//scaled by the same factor.
func scaled(u *lattice.UnitCell, a float64) *lattice.UnitCell {
	f := a / u.Lengths()[0]
	s := *u
	s.Basis = append([]lattice.Site(nil), u.Basis...)
	for i := range s.Vects {
		for j := range s.Vects[i] {
			s.Vects[i][j] = u.Vects[i][j] * f
		}
	}
	return &s
}

//Supercell returns the periodic supercell of u, scaled to the lattice constant a,
//used to evaluate the energy per atom.
func Supercell(u *lattice.UnitCell, a float64) (*disloc.System, error) {
	if !(a > 0) {
		return nil, disloc.NewConfigError(fmt.Sprintf("non-positive lattice constant %g", a), "scan.Supercell")
	}
	c := scaled(u, a)
	if !c.IsOrthogonal() {
		var err error
		if c, _, err = lattice.Orient(c, hexAxes); err != nil {
			return nil, disloc.ErrDecorate(err, "scan.Supercell")
		}
	}
	L := c.Lengths()
	var n [3]int
	for i := range n {
		n[i] = lattice.ReplicationCount(L[i], MinLength)
	}
	S, err := lattice.Build(c, lattice.Bounds{{0, n[0]}, {0, n[1]}, {0, n[2]}}, [3]bool{true, true, true}, [3]float64{})
	if err != nil {
		return nil, disloc.ErrDecorate(err, "scan.Supercell")
	}
	return S, nil
}

//Energy returns the energy per atom, in eV, of the crystal u at lattice constant a.
func Energy(ctx context.Context, H *lammps.Handle, u *lattice.UnitCell, P *lammps.Potential, a float64) (float64, error) {
	S, err := Supercell(u, a)
	if err != nil {
		return math.NaN(), err
	}
	e, _, err := H.SinglePoint(ctx, S, P)
	if err != nil {
		return math.NaN(), disloc.ErrDecorate(err, "scan.Energy")
	}
	return e / float64(S.Len()), nil
}

//Scan evaluates the energy per atom at n evenly spaced lattice constants from amin
//to amax, both included. Simulation failures are recorded in the corresponding
//points; any other error (a bad cell or potential, a cancelled context) ends the scan.
func Scan(ctx context.Context, H *lammps.Handle, u *lattice.UnitCell, P *lammps.Potential, amin, amax float64, n int) ([]Point, error) {
	if n < 3 || !(amin > 0) || !(amax > amin) {
		return nil, disloc.NewConfigError(fmt.Sprintf("bad scan range [%g, %g] with %d points", amin, amax, n), "scan.Scan")
	}
	if err := P.Check(); err != nil {
		return nil, disloc.WrapConfigError(err, "potential "+P.ID, "scan.Scan")
	}
	as := floats.Span(make([]float64, n), amin, amax)
	points := make([]Point, 0, n)
	for i, a := range as {
		if err := ctx.Err(); err != nil {
			return points, err
		}
		H.SetName(fmt.Sprintf("scan%03d", i))
		e, err := Energy(ctx, H, u, P, a)
		if err != nil && !errors.Is(err, lammps.ErrSimulation) {
			return points, disloc.ErrDecorate(err, "scan.Scan")
		}
		points = append(points, Point{A: a, E: e, Err: err})
	}
	return points, nil
}

//Minima returns the local minima of the points, ordered by energy, each located
//by the vertex of the parabola through it and its two neighbors. If there are
//none, it returns a single Minimum telling why.
func Minima(points []Point) []Minimum {
	p := append([]Point(nil), points...)
	sort.Slice(p, func(i, j int) bool { return p[i].A < p[j].A })
	var ok []float64
	var firstErr Point
	for _, v := range p {
		if v.Failed() {
			if firstErr.Err == nil {
				firstErr = v
			}
			continue
		}
		ok = append(ok, v.E)
	}
	if len(ok) == 0 {
		if firstErr.Err == nil {
			return []Minimum{noMinimum("no points")}
		}
		return []Minimum{failed(firstErr.A, firstErr.Err)}
	}
	var ret []Minimum
	for i := 1; i < len(p)-1; i++ {
		l, c, r := p[i-1], p[i], p[i+1]
		if c.Failed() {
			continue
		}
		if l.Failed() || r.Failed() {
			//A failed neighbor hides whether c is a minimum, report it only if
			//c is the lowest energy found.
			if c.E == floats.Min(ok) {
				f := l
				if !f.Failed() {
					f = r
				}
				ret = append(ret, failed(f.A, f.Err))
			}
			continue
		}
		if c.E < l.E && c.E <= r.E {
			a, e := vertex([3]float64{l.A, c.A, r.A}, [3]float64{l.E, c.E, r.E})
			ret = append(ret, Minimum{A: a, E: e, Lo: l.A, Hi: r.A, Status: StatusFound})
		}
	}
	if len(ret) == 0 {
		if len(ok) < 3 {
			return []Minimum{noMinimum(fmt.Sprintf("only %d successful points", len(ok)))}
		}
		//monotonic, or flat, over the whole range
		if stat.Mean(ok[:len(ok)/2], nil) > stat.Mean(ok[len(ok)-len(ok)/2:], nil) {
			return []Minimum{noMinimum(fmt.Sprintf("energy decreases up to a=%g", p[len(p)-1].A))}
		}
		return []Minimum{noMinimum(fmt.Sprintf("energy decreases down to a=%g", p[0].A))}
	}
	sort.SliceStable(ret, func(i, j int) bool { return lower(ret[i], ret[j]) })
	return ret
}

//lower orders found minima by energy, before any unresolved one.
func lower(a, b Minimum) bool {
	if (a.Status == StatusFound) != (b.Status == StatusFound) {
		return a.Status == StatusFound
	}
	return a.E < b.E
}

//vertex returns the vertex of the parabola through three points. If the points are
//collinear it returns the middle one.
func vertex(x, y [3]float64) (float64, float64) {
	V := mat.NewDense(3, 3, []float64{
		x[0] * x[0], x[0], 1,
		x[1] * x[1], x[1], 1,
		x[2] * x[2], x[2], 1,
	})
	var c mat.VecDense
	if err := c.SolveVec(V, mat.NewVecDense(3, y[:])); err != nil || c.AtVec(0) <= 0 {
		return x[1], y[1]
	}
	a, b, k := c.AtVec(0), c.AtVec(1), c.AtVec(2)
	xv := -b / (2 * a)
	if xv < x[0] || xv > x[2] {
		return x[1], y[1]
	}
	return xv, a*xv*xv + b*xv + k
}

//invphi is 1/golden ratio.
var invphi = (math.Sqrt(5) - 1) / 2

//Refine narrows a found minimum by golden section search inside its bracket,
//until the bracket is narrower than tol (Å) or maxiter energies have been computed.
//Minima that were not found are returned unchanged. A simulation failure gives a
//minimum with StatusSimulatorFailed; a minimum that runs into the bracket edge gives
//StatusNoMinimum.
func Refine(ctx context.Context, H *lammps.Handle, u *lattice.UnitCell, P *lammps.Potential, m Minimum, tol float64, maxiter int) (Minimum, error) {
	if m.Status != StatusFound {
		return m, nil
	}
	if !(m.Hi > m.Lo) || tol <= 0 {
		return m, disloc.NewConfigError(fmt.Sprintf("bad bracket [%g, %g] or tolerance %g", m.Lo, m.Hi, tol), "scan.Refine")
	}
	iter := 0
	eval := func(a float64) (float64, error) {
		H.SetName(fmt.Sprintf("refine%03d", iter))
		iter++
		return Energy(ctx, H, u, P, a)
	}
	lo, hi := m.Lo, m.Hi
	x1 := hi - invphi*(hi-lo)
	x2 := lo + invphi*(hi-lo)
	f1, err := eval(x1)
	if err != nil {
		return refineErr(x1, err)
	}
	f2, err := eval(x2)
	if err != nil {
		return refineErr(x2, err)
	}
	for hi-lo > tol && iter < maxiter {
		if f1 < f2 {
			hi, x2, f2 = x2, x1, f1
			x1 = hi - invphi*(hi-lo)
			if f1, err = eval(x1); err != nil {
				return refineErr(x1, err)
			}
		} else {
			lo, x1, f1 = x1, x2, f2
			x2 = lo + invphi*(hi-lo)
			if f2, err = eval(x2); err != nil {
				return refineErr(x2, err)
			}
		}
	}
	ret := Minimum{A: x1, E: f1, Lo: lo, Hi: hi, Status: StatusFound}
	if f2 < f1 {
		ret.A, ret.E = x2, f2
	}
	edge := tol
	if hi-lo > edge {
		edge = hi - lo
	}
	if ret.A-m.Lo < edge || m.Hi-ret.A < edge {
		return noMinimum(fmt.Sprintf("refinement ran into the bracket edge at a=%g", ret.A)), nil
	}
	return ret, nil
}

func refineErr(a float64, err error) (Minimum, error) {
	if errors.Is(err, lammps.ErrSimulation) {
		return failed(a, err), nil
	}
	return Minimum{}, disloc.ErrDecorate(err, "scan.Refine")
}

//Record returns the scan record for the points and minima.
func Record(potential, crystal string, points []Point, minima []Minimum) *record.ScanRecord {
	R := record.NewScan()
	R.Potential = potential
	R.Crystal = crystal
	for _, p := range points {
		rp := record.Point{A: record.NewUnitValue(p.A, disloc.UnitAngstrom), Failed: p.Failed()}
		if !p.Failed() {
			e := record.NewUnitValue(p.E, disloc.UnitEVPerAtom)
			rp.Energy = &e
		}
		R.Points = append(R.Points, rp)
	}
	for _, m := range minima {
		rm := record.Minimum{Status: m.Status, Reason: m.Reason}
		if m.Status == StatusFound {
			a, e := record.NewUnitValue(m.A, disloc.UnitAngstrom), record.NewUnitValue(m.E, disloc.UnitEVPerAtom)
			rm.A, rm.Energy = &a, &e
		}
		R.Minima = append(R.Minima, rm)
	}
	return R
}
