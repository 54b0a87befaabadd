/*
 * potential.go, part of disloc.
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
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

//Potential is an interatomic potential as LAMMPS needs it. PairCoeff lines are
//given without the pair_coeff command and can use the template field
//{{.Elements}}, which expands to the element of each atom type in order, for
//potentials (like eam/alloy) that map types to elements.
type Potential struct {
	ID        string    `toml:"id" yaml:"id"`
	PairStyle string    `toml:"pair_style" yaml:"pair_style"`
	PairCoeff []string  `toml:"pair_coeff" yaml:"pair_coeff"`
	Symbols   []string  `toml:"symbols" yaml:"symbols"`
	Masses    []float64 `toml:"masses" yaml:"masses"`
}

//Check returns an error if the potential can't be used.
func (P *Potential) Check() error {
	switch {
	case P.ID == "":
		return newError(ErrBadPotential, "", nil, fmt.Errorf("missing id"), "Potential.Check")
	case P.PairStyle == "" || len(P.PairCoeff) == 0:
		return newError(ErrBadPotential, "", nil, fmt.Errorf("potential %s needs pair_style and pair_coeff", P.ID), "Potential.Check")
	case len(P.Symbols) == 0 || len(P.Symbols) != len(P.Masses):
		return newError(ErrBadPotential, "", nil, fmt.Errorf("potential %s: %d symbols and %d masses", P.ID, len(P.Symbols), len(P.Masses)), "Potential.Check")
	}
	for _, m := range P.Masses {
		if m <= 0 {
			return newError(ErrBadPotential, "", nil, fmt.Errorf("potential %s: non-positive mass", P.ID), "Potential.Check")
		}
	}
	return nil
}

//NTypes returns the number of atom types the potential defines.
func (P *Potential) NTypes() int { return len(P.Symbols) }

//TypeSymbols returns the element of every type up to ntypes. Types beyond
//the potential's own repeat its symbols cyclically, as fixed atoms are given
//type+NTypes().
func (P *Potential) TypeSymbols(ntypes int) []string {
	r := make([]string, ntypes)
	for i := range r {
		r[i] = P.Symbols[i%len(P.Symbols)]
	}
	return r
}

//TypeMasses is TypeSymbols for the masses.
func (P *Potential) TypeMasses(ntypes int) []float64 {
	r := make([]float64, ntypes)
	for i := range r {
		r[i] = P.Masses[i%len(P.Masses)]
	}
	return r
}

//Lines returns the pair_coeff lines, with the elements for ntypes atom types substituted.
func (P *Potential) Lines(ntypes int) ([]string, error) {
	data := struct{ Elements string }{strings.Join(P.TypeSymbols(ntypes), " ")}
	ret := make([]string, 0, len(P.PairCoeff))
	for _, l := range P.PairCoeff {
		t, err := template.New("pair_coeff").Parse(l)
		if err != nil {
			return nil, newError(ErrBadPotential, "", nil, err, "Potential.Lines")
		}
		var b bytes.Buffer
		if err := t.Execute(&b, data); err != nil {
			return nil, newError(ErrBadPotential, "", nil, err, "Potential.Lines")
		}
		ret = append(ret, b.String())
	}
	return ret, nil
}
