/*
 * calc.go, part of disloc.
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
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rmera/disloc"
	"github.com/rmera/disloc/lammps"
	"github.com/rmera/disloc/nye"
	"github.com/rmera/disloc/record"
)

//Calculation is one dislocation monopole calculation: one potential, one crystal and
//one dislocation variant. All its files are written to the directory of Handle.
type Calculation struct {
	Crystal   *Crystal
	Params    *Params
	Potential *lammps.Potential
	Sizing    Sizing
	Min       lammps.MinOptions
	Handle    *lammps.Handle
	Logger    *slog.Logger
}

//Output holds the configurations produced by a calculation, for the artifacts.
type Output struct {
	Setup    *Setup
	Base     *disloc.System
	Defected *disloc.System
	Relaxed  *disloc.System
	Nye      *nye.Result
}

//checkTypes verifies that the types of the crystal are those of the potential.
func (C *Calculation) checkTypes() error {
	if err := C.Potential.Check(); err != nil {
		return disloc.WrapConfigError(err, "unusable potential", "Calculation.checkTypes")
	}
	for i, s := range C.Crystal.Symbols {
		if i >= len(C.Potential.Symbols) || C.Potential.Symbols[i] != s {
			return disloc.NewConfigError(fmt.Sprintf("crystal type %d is %s but potential %s has %v", i+1, s, C.Potential.ID, C.Potential.Symbols), "Calculation.checkTypes")
		}
	}
	return nil
}

//Run performs the whole calculation: setup, displacement field, boundary conditions,
//relaxation, Nye tensor analysis and Burgers vector integral. It returns a complete
//record, or an error and no record.
func (C *Calculation) Run(ctx context.Context) (*record.Record, *Output, error) {
	const caller = "Calculation.Run"
	log := C.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("potential", C.Potential.ID, "dislocation", C.Params.Tag)
	start := time.Now()
	if err := C.checkTypes(); err != nil {
		return nil, nil, disloc.ErrDecorate(err, caller)
	}
	S, err := NewSetup(C.Crystal, C.Params, C.Sizing)
	if err != nil {
		return nil, nil, disloc.ErrDecorate(err, caller)
	}
	out := &Output{Setup: S, Base: S.Base}
	log.Info("setup done", "atoms", S.Base.Len(), "burgers", S.BurgersBox, "perturbed", S.Solution.Perturbed, "preln", S.PreLn())

	def := S.Base.Copy()
	if err := ApplyField(def, S.Solution, S.BurgersDisl, S.Align, S.Core); err != nil {
		return nil, nil, disloc.ErrDecorate(err, caller)
	}
	ntypes := C.Potential.NTypes()
	nfixed, err := S.Shell().Apply(def, ntypes)
	if err != nil {
		return nil, nil, disloc.ErrDecorate(err, caller)
	}
	out.Defected = def
	log.Debug("boundary applied", "fixed", nfixed)

	H := C.Handle
	H.SetLogger(log)
	H.SetName("base")
	ebase, _, err := H.SinglePoint(ctx, S.Base, C.Potential)
	if err != nil {
		return nil, nil, disloc.ErrDecorate(err, caller)
	}
	H.SetName("relax")
	relaxed, erelax, thermo, err := H.Relax(ctx, def, C.Potential, C.Min)
	if err != nil {
		return nil, nil, disloc.ErrDecorate(err, caller)
	}
	out.Relaxed = relaxed
	log.Info("relaxed", "steps", len(thermo.Rows), "energy", erelax)

	a := C.Crystal.A
	cutoff := C.Params.NeighborCutoff * a
	nlBase, err := nye.Neighbors(S.Base, cutoff)
	if err != nil {
		return nil, nil, disloc.ErrDecorate(err, caller)
	}
	templates, err := S.Templates(nlBase)
	if err != nil {
		return nil, nil, disloc.ErrDecorate(err, caller)
	}
	nlRelaxed, err := nye.Neighbors(relaxed, cutoff)
	if err != nil {
		return nil, nil, disloc.ErrDecorate(err, caller)
	}
	res, err := nye.Analyze(relaxed, nlRelaxed, templates, nye.Options{
		AngleTolerance: C.Params.AngleTolerance * disloc.Deg2Rad,
		MaxResidual:    C.Params.MaxResidual,
	})
	if err != nil {
		return nil, nil, disloc.ErrDecorate(err, caller)
	}
	out.Nye = res
	bnye, used, err := nye.Burgers(relaxed, res, nye.BurgersOptions{
		Line:         S.Align.T[2],
		Center:       S.Core,
		Radius:       C.Params.CoreCutoff * a,
		AtomicVolume: S.AtomicVolume,
		LineLength:   S.LineLength,
	})
	if err != nil {
		return nil, nil, disloc.ErrDecorate(err, caller)
	}
	sum := nye.Summarize(res)
	log.Info("nye analysis done", "defined", sum.DefinedFraction, "burgers", bnye, "atoms", used)

	R := record.New()
	R.Potential = C.Potential.ID
	R.Crystal = C.Crystal.Prototype
	R.Symbols = append([]string(nil), C.Crystal.Symbols...)
	R.Dislocation = C.Params.Tag
	R.LatticeConstant = record.NewUnitValue(a, disloc.UnitAngstrom)
	R.Atoms = relaxed.Len()
	R.PreLnFactor = record.NewUnitValue(S.PreLn(), disloc.UnitEVPerA)
	R.PrescribedBurgers = record.Vector3Unit{Value: S.BurgersBox, Unit: disloc.UnitAngstrom}
	R.NyeBurgers = record.Vector3Unit{Value: bnye, Unit: disloc.UnitAngstrom}
	R.BaseEnergy = record.NewUnitValue(ebase, disloc.UnitEV)
	R.Energy = record.NewUnitValue(erelax, disloc.UnitEV)
	for i := 0; i < 3; i++ {
		p := S.Solution.P[i]
		R.Stroh.P[i] = [2]float64{real(p), imag(p)}
	}
	R.Stroh.K = record.Matrix3Unit{Value: S.Solution.K(), Unit: disloc.UnitGPa}
	R.Stroh.Perturbed = S.Solution.Perturbed
	R.Nye = record.NyeSummary{
		Atoms:           sum.Atoms,
		Defined:         sum.Defined,
		DefinedFraction: sum.DefinedFraction,
		MeanResidual:    sum.MeanResidual,
		MaxResidual:     sum.MaxResidual,
		IntegralAtoms:   used,
	}
	if err := R.Check(); err != nil {
		return nil, nil, disloc.ErrDecorate(err, caller)
	}
	log.Info("calculation finished", "key", R.Key, "elapsed", time.Since(start).Round(time.Millisecond))
	return R, out, nil
}
