/*
 * lammps.go, part of disloc.
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

package lammps

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rmera/disloc"
)

//Handle runs LAMMPS calculations in a given directory.
type Handle struct {
	command string
	dir     string
	name    string
	logger  *slog.Logger
}

//NewHandle returns a handle that runs command (for instance "lmp" or "mpirun -np 4 lmp")
//in the directory dir.
func NewHandle(command, dir string) *Handle {
	run := new(Handle)
	run.SetDefaults()
	if command != "" {
		run.command = command
	}
	run.dir = dir
	return run
}

//SetDefaults sets the command from the LAMMPS_COMMAND environment variable, or "lmp",
//and the file names to "disloc".
func (O *Handle) SetDefaults() {
	O.command = os.Getenv("LAMMPS_COMMAND")
	if O.command == "" {
		O.command = "lmp"
	}
	O.name = "disloc"
	O.dir = "."
	O.logger = slog.Default()
}

//Command returns the command used to run LAMMPS.
func (O *Handle) Command() string { return O.command }

//SetCommand sets the command used to run LAMMPS.
func (O *Handle) SetCommand(c string) { O.command = c }

//Dir returns the working directory.
func (O *Handle) Dir() string { return O.dir }

//SetDir sets the working directory.
func (O *Handle) SetDir(d string) { O.dir = d }

//SetName sets the base name of the files written.
func (O *Handle) SetName(name string) { O.name = name }

//SetLogger sets the logger used to report the commands run.
func (O *Handle) SetLogger(l *slog.Logger) { O.logger = l }

func (O *Handle) file(ext string) string { return O.name + ext }

//Files returns the names, relative to Dir, of the input script, data, log and dump files.
func (O *Handle) Files() (script, data, log, dump string) {
	return O.file(".in"), O.file(".data"), O.file(".log"), O.file(".dump")
}

//fixedTypes returns the types above ntypes present in S, as a LAMMPS type list.
func fixedTypes(S *disloc.System, ntypes int) string {
	present := make([]bool, S.NTypes()+1)
	for _, a := range S.Atoms {
		present[a.Type] = true
	}
	var r []string
	for t := ntypes + 1; t < len(present); t++ {
		if present[t] {
			r = append(r, strconv.Itoa(t))
		}
	}
	return strings.Join(r, " ")
}

//BuildInput writes the data file and the input script for job (JobMinimize or JobSinglePoint).
//Types above the potential's number of types are held fixed.
func (O *Handle) BuildInput(S *disloc.System, P *Potential, job string, opts MinOptions) error {
	script, data, _, dump := O.Files()
	if err := P.Check(); err != nil {
		return disloc.ErrDecorate(err, "BuildInput")
	}
	if S.Len() == 0 {
		return newError(ErrCantInput, O.dir, nil, fmt.Errorf("empty system"), "BuildInput")
	}
	ntypes := P.NTypes()
	alltypes := S.NTypes()
	if alltypes > 2*ntypes {
		return newError(ErrCantInput, O.dir, nil, fmt.Errorf("system has %d atom types, potential %s only %d", alltypes, P.ID, ntypes), "BuildInput")
	}
	if alltypes < ntypes {
		alltypes = ntypes
	}
	masses := P.TypeMasses(alltypes)
	if err := disloc.WriteDataFile(filepath.Join(O.dir, data), S, alltypes, nil); err != nil {
		return newError(ErrCantInput, O.dir, nil, err, "BuildInput")
	}
	coeff, err := P.Lines(alltypes)
	if err != nil {
		return disloc.ErrDecorate(err, "BuildInput")
	}
	fout, err := os.Create(filepath.Join(O.dir, script))
	if err != nil {
		return newError(ErrCantInput, O.dir, nil, err, "BuildInput")
	}
	d := scriptData{
		Job:        job,
		Boundary:   boundary(S.PBC),
		DataFile:   data,
		DumpFile:   dump,
		Masses:     masses,
		PairStyle:  P.PairStyle,
		PairCoeff:  coeff,
		FixedTypes: fixedTypes(S, ntypes),
		Min:        opts,
	}
	if err := writeScript(fout, d); err != nil {
		fout.Close()
		return newError(ErrCantInput, O.dir, []string{script}, err, "BuildInput")
	}
	return fout.Close()
}

//Run runs LAMMPS on the input script, in the working directory, and waits for it to finish.
func (O *Handle) Run(ctx context.Context) error {
	script, _, log, _ := O.Files()
	com := fmt.Sprintf(" -in %s -log %s > %s 2>&1", script, log, O.file(".out"))
	O.logger.Debug("running lammps", "command", O.command+com, "dir", O.dir)
	command := exec.CommandContext(ctx, "sh", "-c", O.command+com)
	command.Dir = O.dir
	if err := command.Run(); err != nil {
		return newError(ErrNotRunning, O.dir, []string{script, log, O.file(".out")}, err, "Run")
	}
	return nil
}

//Thermo returns the last thermo block of the log of a finished calculation.
func (O *Handle) Thermo() (*Thermo, error) {
	script, _, log, _ := O.Files()
	keep := []string{script, log}
	blocks, err := ParseLogFile(filepath.Join(O.dir, log))
	if err != nil {
		return nil, newError(ErrNoLog, O.dir, keep, err, "Thermo")
	}
	if len(blocks) == 0 || len(blocks[len(blocks)-1].Rows) == 0 {
		return nil, newError(ErrNoThermo, O.dir, keep, nil, "Thermo")
	}
	return blocks[len(blocks)-1], nil
}

//Energy returns the final potential energy, in eV, of a finished calculation.
func (O *Handle) Energy() (float64, *Thermo, error) {
	script, _, log, _ := O.Files()
	T, err := O.Thermo()
	if err != nil {
		return 0, nil, disloc.ErrDecorate(err, "Energy")
	}
	e, err := T.Last("PotEng")
	if err != nil || math.IsNaN(e) || math.IsInf(e, 0) {
		if err == nil {
			err = fmt.Errorf("energy is %g", e)
		}
		return 0, nil, newError(ErrNoEnergy, O.dir, []string{script, log}, err, "Energy")
	}
	return e, T, nil
}

//OptimizedGeometry reads the final configuration of a finished calculation and returns it
//as a copy of S, with the new positions and box. Atoms are matched by ID, so the order
//of S is kept.
func (O *Handle) OptimizedGeometry(S *disloc.System) (*disloc.System, error) {
	script, _, log, dump := O.Files()
	keep := []string{script, log, dump}
	R, err := disloc.ReadDumpFile(filepath.Join(O.dir, dump), nil, nil)
	if err != nil {
		return nil, newError(ErrNoGeometry, O.dir, keep, err, "OptimizedGeometry")
	}
	if R.Len() != S.Len() {
		return nil, newError(ErrAtomCount, O.dir, keep, fmt.Errorf("%d atoms in, %d atoms out", S.Len(), R.Len()), "OptimizedGeometry")
	}
	index := make(map[int]int, R.Len())
	for i, a := range R.Atoms {
		index[a.ID] = i
	}
	N := S.Copy()
	N.Box = R.Box
	for i, a := range S.Atoms {
		j, ok := index[a.ID]
		if !ok {
			return nil, newError(ErrAtomCount, O.dir, keep, fmt.Errorf("atom %d missing from the output", a.ID), "OptimizedGeometry")
		}
		if R.Atoms[j].Type != a.Type {
			return nil, newError(ErrNoGeometry, O.dir, keep, fmt.Errorf("atom %d changed type", a.ID), "OptimizedGeometry")
		}
		N.Coords.SetVec(i, R.Coords.Vec(j))
	}
	return N, nil
}

//Relax minimizes the energy of S with the potential P, holding fixed the atoms with
//types above P.NTypes(). It returns the relaxed configuration, with the atoms in the
//same order as S, its potential energy in eV and the thermo output of the minimization.
func (O *Handle) Relax(ctx context.Context, S *disloc.System, P *Potential, opts MinOptions) (*disloc.System, float64, *Thermo, error) {
	if err := O.BuildInput(S, P, JobMinimize, opts); err != nil {
		return nil, 0, nil, disloc.ErrDecorate(err, "Relax")
	}
	if err := O.Run(ctx); err != nil {
		return nil, 0, nil, disloc.ErrDecorate(err, "Relax")
	}
	e, T, err := O.Energy()
	if err != nil {
		return nil, 0, nil, disloc.ErrDecorate(err, "Relax")
	}
	R, err := O.OptimizedGeometry(S)
	if err != nil {
		return nil, 0, nil, disloc.ErrDecorate(err, "Relax")
	}
	return R, e, T, nil
}

//SinglePoint returns the potential energy of S, in eV, and the thermo output.
func (O *Handle) SinglePoint(ctx context.Context, S *disloc.System, P *Potential) (float64, *Thermo, error) {
	if err := O.BuildInput(S, P, JobSinglePoint, DefaultMinOptions()); err != nil {
		return 0, nil, disloc.ErrDecorate(err, "SinglePoint")
	}
	if err := O.Run(ctx); err != nil {
		return 0, nil, disloc.ErrDecorate(err, "SinglePoint")
	}
	e, T, err := O.Energy()
	if err != nil {
		return 0, nil, disloc.ErrDecorate(err, "SinglePoint")
	}
	return e, T, nil
}
