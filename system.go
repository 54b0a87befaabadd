/*
 * system.go, part of disloc.
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

package disloc

import (
	"fmt"
	"sort"

	v3 "github.com/rmera/disloc/v3"
)

//Prop is a per-atom auxiliary field. Width is the number of components per
//atom (1 for scalars, 3 for vectors, 9 for 3x3 tensors), Data is atom-major.
type Prop struct {
	Width int
	Data  []float64
}

//At returns the component k of the property for atom i.
func (P Prop) At(i, k int) float64 {
	return P.Data[i*P.Width+k]
}

//Row returns a slice (not a copy) with the components for atom i.
func (P Prop) Row(i int) []float64 {
	return P.Data[i*P.Width : (i+1)*P.Width]
}

//System is an atomic configuration: a box, its periodicity, the atoms, their
//cartesian coordinates and any number of auxiliary per-atom fields.
type System struct {
	Box    Box
	PBC    [3]bool
	Atoms  []*Atom
	Coords *v3.Matrix
	props  map[string]Prop
}

//NewSystem returns a system with the given atoms and coordinates. The number of
//atoms and coordinates must match.
func NewSystem(box Box, pbc [3]bool, atoms []*Atom, coords *v3.Matrix) (*System, error) {
	if coords == nil || coords.NVecs() != len(atoms) {
		n := 0
		if coords != nil {
			n = coords.NVecs()
		}
		return nil, NewConfigError(fmt.Sprintf("%d atoms but %d coordinates", len(atoms), n), "NewSystem")
	}
	return &System{Box: box, PBC: pbc, Atoms: atoms, Coords: coords, props: make(map[string]Prop)}, nil
}

//Len returns the number of atoms in the system.
func (S *System) Len() int { return len(S.Atoms) }

//Atom returns the ith atom.
func (S *System) Atom(i int) *Atom { return S.Atoms[i] }

//Masses returns a slice with the mass of each atom.
func (S *System) Masses() ([]float64, error) {
	m := make([]float64, len(S.Atoms))
	for i, a := range S.Atoms {
		if a.Mass <= 0 {
			return nil, NewConfigError(fmt.Sprintf("atom %d has no mass", a.ID), "Masses")
		}
		m[i] = a.Mass
	}
	return m, nil
}

//NTypes returns the largest atom type in the system.
func (S *System) NTypes() int {
	n := 0
	for _, a := range S.Atoms {
		if a.Type > n {
			n = a.Type
		}
	}
	return n
}

//Symbols returns the element symbol for each atom type, indexed by type-1.
//Types without atoms get an empty string.
func (S *System) Symbols() []string {
	sym := make([]string, S.NTypes())
	for _, a := range S.Atoms {
		sym[a.Type-1] = a.Symbol
	}
	return sym
}

//SetProp stores a per-atom property, replacing any previous one with the same name.
func (S *System) SetProp(name string, width int, data []float64) error {
	if width <= 0 || len(data) != width*S.Len() {
		return NewConfigError(fmt.Sprintf("property %s: %d values for %d atoms with width %d", name, len(data), S.Len(), width), "SetProp")
	}
	if S.props == nil {
		S.props = make(map[string]Prop)
	}
	S.props[name] = Prop{Width: width, Data: data}
	return nil
}

//Prop returns the property with the given name.
func (S *System) Prop(name string) (Prop, bool) {
	p, ok := S.props[name]
	return p, ok
}

//DelProp removes a property.
func (S *System) DelProp(name string) {
	delete(S.props, name)
}

//PropNames returns the names of the stored properties, sorted.
func (S *System) PropNames() []string {
	names := make([]string, 0, len(S.props))
	for k := range S.props {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

//Copy returns a deep copy of the system.
func (S *System) Copy() *System {
	atoms := make([]*Atom, len(S.Atoms))
	for i, a := range S.Atoms {
		atoms[i] = a.Copy()
	}
	coords := v3.Zeros(S.Len())
	coords.Copy(S.Coords)
	props := make(map[string]Prop, len(S.props))
	for k, p := range S.props {
		d := make([]float64, len(p.Data))
		copy(d, p.Data)
		props[k] = Prop{Width: p.Width, Data: d}
	}
	return &System{Box: S.Box, PBC: S.PBC, Atoms: atoms, Coords: coords, props: props}
}

//Wrap maps all atoms back into the box along the periodic dimensions.
func (S *System) Wrap() {
	for i := 0; i < S.Len(); i++ {
		S.Coords.SetVec(i, S.Box.Wrap(S.Coords.Vec(i), S.PBC))
	}
}

//SortByID reorders atoms, coordinates and properties by increasing atom ID.
func (S *System) SortByID() {
	idx := make([]int, S.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return S.Atoms[idx[i]].ID < S.Atoms[idx[j]].ID })
	S.reorder(idx)
}

func (S *System) reorder(idx []int) {
	atoms := make([]*Atom, len(idx))
	coords := v3.Zeros(len(idx))
	coords.SomeVecs(S.Coords, idx)
	for k, i := range idx {
		atoms[k] = S.Atoms[i]
	}
	for name, p := range S.props {
		d := make([]float64, len(p.Data))
		for k, i := range idx {
			copy(d[k*p.Width:(k+1)*p.Width], p.Row(i))
		}
		S.props[name] = Prop{Width: p.Width, Data: d}
	}
	S.Atoms = atoms
	S.Coords = coords
}
