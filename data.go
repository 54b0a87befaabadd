/*
 * data.go, part of disloc.
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
	"bufio"
	"fmt"
	"io"
	"os"
)

//WriteData writes the system as a LAMMPS data file with atom_style atomic.
//The number of atom types is ntypes, or the largest type in the system if ntypes
//is smaller. masses, if not nil, is written as a Masses section (index type-1).
func WriteData(w io.Writer, S *System, ntypes int, masses []float64) error {
	if n := S.NTypes(); n > ntypes {
		ntypes = n
	}
	if masses != nil && len(masses) < ntypes {
		return NewConfigError(fmt.Sprintf("%d masses for %d atom types", len(masses), ntypes), "WriteData")
	}
	f := DumpFloatFormat
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "LAMMPS data file written by disloc\n\n")
	fmt.Fprintf(bw, "%d atoms\n%d atom types\n\n", S.Len(), ntypes)
	b := S.Box
	fmt.Fprintf(bw, f+" "+f+" xlo xhi\n", b.Lo[0], b.Hi[0])
	fmt.Fprintf(bw, f+" "+f+" ylo yhi\n", b.Lo[1], b.Hi[1])
	fmt.Fprintf(bw, f+" "+f+" zlo zhi\n", b.Lo[2], b.Hi[2])
	if !b.IsOrthogonal() {
		fmt.Fprintf(bw, f+" "+f+" "+f+" xy xz yz\n", b.Tilt[0], b.Tilt[1], b.Tilt[2])
	}
	if masses != nil {
		fmt.Fprintf(bw, "\nMasses\n\n")
		for t := 0; t < ntypes; t++ {
			fmt.Fprintf(bw, "%d "+f+"\n", t+1, masses[t])
		}
	}
	fmt.Fprintf(bw, "\nAtoms # atomic\n\n")
	for i, a := range S.Atoms {
		v := S.Coords.Vec(i)
		fmt.Fprintf(bw, "%d %d "+f+" "+f+" "+f+"\n", a.ID, a.Type, v[0], v[1], v[2])
	}
	return bw.Flush()
}

//WriteDataFile writes the system to a LAMMPS data file called name. See WriteData.
func WriteDataFile(name string, S *System, ntypes int, masses []float64) error {
	fout, err := os.Create(name)
	if err != nil {
		return err
	}
	if err = WriteData(fout, S, ntypes, masses); err != nil {
		fout.Close()
		return ErrDecorate(err, "WriteDataFile")
	}
	return fout.Close()
}
