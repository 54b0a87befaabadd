/*
 * dump.go, part of disloc.
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
	"regexp"
	"strconv"
	"strings"

	v3 "github.com/rmera/disloc/v3"
)

//DumpFloatFormat is the format used for every floating point column and box bound
//in the dump files written by this package, and requested from LAMMPS with
//dump_modify. Changing it breaks round trips with existing files.
const DumpFloatFormat = "%.13e"

var colRegexp = regexp.MustCompile(`^(.+)\[(\d+)\]$`)

//boundaryFlags returns the LAMMPS boundary string for one dimension.
func boundaryFlag(periodic bool) string {
	if periodic {
		return "pp"
	}
	return "mm"
}

//DumpColumns returns the column names that WriteDump uses for the system
//with the given properties.
func DumpColumns(S *System, props []string) ([]string, error) {
	cols := []string{"id", "type", "x", "y", "z"}
	for _, name := range props {
		p, ok := S.Prop(name)
		if !ok {
			return nil, NewConfigError(fmt.Sprintf("unknown property %s", name), "DumpColumns")
		}
		if p.Width == 1 {
			cols = append(cols, name)
			continue
		}
		for k := 1; k <= p.Width; k++ {
			cols = append(cols, fmt.Sprintf("%s[%d]", name, k))
		}
	}
	return cols, nil
}

//WriteDump writes the system as a single frame of a LAMMPS "custom" dump with the
//columns id type x y z followed by the properties in props (all of them if props is nil).
func WriteDump(w io.Writer, S *System, timestep int, props []string) error {
	if props == nil {
		props = S.PropNames()
	}
	cols, err := DumpColumns(S, props)
	if err != nil {
		return ErrDecorate(err, "WriteDump")
	}
	bw := bufio.NewWriter(w)
	f := DumpFloatFormat
	fmt.Fprintf(bw, "ITEM: TIMESTEP\n%d\n", timestep)
	fmt.Fprintf(bw, "ITEM: NUMBER OF ATOMS\n%d\n", S.Len())
	flags := fmt.Sprintf("%s %s %s", boundaryFlag(S.PBC[0]), boundaryFlag(S.PBC[1]), boundaryFlag(S.PBC[2]))
	lo, hi := S.Box.Bounds()
	if S.Box.IsOrthogonal() {
		fmt.Fprintf(bw, "ITEM: BOX BOUNDS %s\n", flags)
		for i := 0; i < 3; i++ {
			fmt.Fprintf(bw, f+" "+f+"\n", lo[i], hi[i])
		}
	} else {
		fmt.Fprintf(bw, "ITEM: BOX BOUNDS xy xz yz %s\n", flags)
		for i := 0; i < 3; i++ {
			fmt.Fprintf(bw, f+" "+f+" "+f+"\n", lo[i], hi[i], S.Box.Tilt[i])
		}
	}
	fmt.Fprintf(bw, "ITEM: ATOMS %s\n", strings.Join(cols, " "))
	pv := make([]Prop, len(props))
	for i, name := range props {
		pv[i], _ = S.Prop(name)
	}
	for i, a := range S.Atoms {
		v := S.Coords.Vec(i)
		fmt.Fprintf(bw, "%d %d "+f+" "+f+" "+f, a.ID, a.Type, v[0], v[1], v[2])
		for _, p := range pv {
			for _, x := range p.Row(i) {
				fmt.Fprintf(bw, " "+f, x)
			}
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

//WriteDumpFile writes the system to the file name. See WriteDump.
func WriteDumpFile(name string, S *System, props []string) error {
	fout, err := os.Create(name)
	if err != nil {
		return err
	}
	if err = WriteDump(fout, S, 0, props); err != nil {
		fout.Close()
		return ErrDecorate(err, "WriteDumpFile")
	}
	return fout.Close()
}

//DumpError is the error returned when a dump file can't be parsed.
type DumpError struct {
	message  string
	filename string
	line     int
	deco     []string
}

func (err *DumpError) Error() string {
	if err.filename != "" {
		return fmt.Sprintf("dump file %s, line %d: %s", err.filename, err.line, err.message)
	}
	return fmt.Sprintf("dump line %d: %s", err.line, err.message)
}

//Decorate adds new information to the error.
func (err *DumpError) Decorate(dec string) []string {
	if dec != "" {
		err.deco = append(err.deco, dec)
	}
	return err.deco
}

//Critical returns true. A broken dump is always critical.
func (err *DumpError) Critical() bool { return true }

//FileName returns the name of the file that failed, if known.
func (err *DumpError) FileName() string { return err.filename }

type dumpReader struct {
	sc   *bufio.Scanner
	line int
}

func (d *dumpReader) next() (string, bool) {
	if !d.sc.Scan() {
		return "", false
	}
	d.line++
	return strings.TrimSpace(d.sc.Text()), true
}

func (d *dumpReader) errorf(format string, a ...interface{}) *DumpError {
	return &DumpError{message: fmt.Sprintf(format, a...), line: d.line, deco: []string{"ReadDump"}}
}

//ReadDump reads a LAMMPS custom dump and returns the last frame in it as a System,
//with the atoms sorted by ID. The columns id, type and one of x y z, xu yu zu or
//xs ys zs are required; all other columns are stored as properties, with columns
//named like name[1], name[2]... grouped in a single property. symbols and masses,
//if not nil, give the element and mass for each type (index type-1).
func ReadDump(r io.Reader, symbols []string, masses []float64) (*System, error) {
	d := &dumpReader{sc: bufio.NewScanner(r)}
	d.sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var last *System
	for {
		S, err := d.frame(symbols, masses)
		if err != nil {
			return nil, err
		}
		if S == nil {
			break
		}
		last = S
	}
	if last == nil {
		return nil, d.errorf("no frames found")
	}
	return last, nil
}

//ReadDumpFile is ReadDump for a file name.
func ReadDumpFile(name string, symbols []string, masses []float64) (*System, error) {
	fin, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer fin.Close()
	S, err := ReadDump(fin, symbols, masses)
	if err != nil {
		if de, ok := err.(*DumpError); ok {
			de.filename = name
		}
		return nil, err
	}
	return S, nil
}

//frame reads one frame. It returns nil, nil at the end of the input.
func (d *dumpReader) frame(symbols []string, masses []float64) (*System, error) {
	var (
		natoms = -1
		box    Box
		pbc    [3]bool
	)
	for {
		l, ok := d.next()
		if !ok {
			if natoms < 0 {
				return nil, nil
			}
			return nil, d.errorf("truncated frame")
		}
		if l == "" {
			continue
		}
		if !strings.HasPrefix(l, "ITEM:") {
			return nil, d.errorf("expected an ITEM line, got %q", l)
		}
		item := strings.TrimSpace(strings.TrimPrefix(l, "ITEM:"))
		switch {
		case item == "TIMESTEP":
			if _, ok := d.next(); !ok {
				return nil, d.errorf("missing timestep")
			}
		case item == "NUMBER OF ATOMS":
			l, ok := d.next()
			if !ok {
				return nil, d.errorf("missing number of atoms")
			}
			n, err := strconv.Atoi(l)
			if err != nil || n <= 0 {
				return nil, d.errorf("bad number of atoms %q", l)
			}
			natoms = n
		case strings.HasPrefix(item, "BOX BOUNDS"):
			fields := strings.Fields(strings.TrimPrefix(item, "BOX BOUNDS"))
			tri := len(fields) > 0 && fields[0] == "xy"
			if tri {
				fields = fields[3:]
			}
			for i := 0; i < 3 && i < len(fields); i++ {
				pbc[i] = strings.HasPrefix(fields[i], "p")
			}
			var lo, hi, tilt [3]float64
			for i := 0; i < 3; i++ {
				l, ok := d.next()
				if !ok {
					return nil, d.errorf("missing box bounds")
				}
				f := strings.Fields(l)
				if len(f) < 2 || (tri && len(f) < 3) {
					return nil, d.errorf("bad box bounds %q", l)
				}
				var err error
				if lo[i], err = strconv.ParseFloat(f[0], 64); err != nil {
					return nil, d.errorf("bad box bound %q", f[0])
				}
				if hi[i], err = strconv.ParseFloat(f[1], 64); err != nil {
					return nil, d.errorf("bad box bound %q", f[1])
				}
				if tri {
					if tilt[i], err = strconv.ParseFloat(f[2], 64); err != nil {
						return nil, d.errorf("bad tilt factor %q", f[2])
					}
				}
			}
			box = boxFromBounds(lo, hi, tilt)
		case strings.HasPrefix(item, "ATOMS"):
			if natoms < 0 {
				return nil, d.errorf("ATOMS before NUMBER OF ATOMS")
			}
			cols := strings.Fields(strings.TrimPrefix(item, "ATOMS"))
			return d.atoms(cols, natoms, box, pbc, symbols, masses)
		default:
			return nil, d.errorf("unknown item %q", item)
		}
	}
}

type propCol struct {
	name  string
	width int
	cols  []int
}

func (d *dumpReader) atoms(cols []string, natoms int, box Box, pbc [3]bool, symbols []string, masses []float64) (*System, error) {
	idcol, typecol := -1, -1
	pos := [3]int{-1, -1, -1}
	scaled := false
	var props []*propCol
	byname := make(map[string]*propCol)
	for i, c := range cols {
		switch c {
		case "id":
			idcol = i
		case "type":
			typecol = i
		case "x", "xu":
			pos[0] = i
		case "y", "yu":
			pos[1] = i
		case "z", "zu":
			pos[2] = i
		case "xs", "ys", "zs":
			pos[int(c[0]-'x')] = i
			scaled = true
		default:
			name := c
			if m := colRegexp.FindStringSubmatch(c); m != nil {
				name = m[1]
			}
			p, ok := byname[name]
			if !ok {
				p = &propCol{name: name}
				byname[name] = p
				props = append(props, p)
			}
			p.width++
			p.cols = append(p.cols, i)
		}
	}
	if idcol < 0 || typecol < 0 || pos[0] < 0 || pos[1] < 0 || pos[2] < 0 {
		return nil, d.errorf("dump needs id, type and position columns, got %v", cols)
	}
	atoms := make([]*Atom, natoms)
	coords := v3.Zeros(natoms)
	pdata := make([][]float64, len(props))
	for k, p := range props {
		pdata[k] = make([]float64, natoms*p.width)
	}
	for i := 0; i < natoms; i++ {
		l, ok := d.next()
		if !ok {
			return nil, d.errorf("expected %d atoms, found %d", natoms, i)
		}
		f := strings.Fields(l)
		if len(f) != len(cols) {
			return nil, d.errorf("number of columns don't match: %d (expected %d)", len(f), len(cols))
		}
		id, err := strconv.Atoi(f[idcol])
		if err != nil {
			return nil, d.errorf("bad atom id %q", f[idcol])
		}
		t, err := strconv.Atoi(f[typecol])
		if err != nil || t < 1 {
			return nil, d.errorf("bad atom type %q", f[typecol])
		}
		a := &Atom{ID: id, Type: t}
		if t <= len(symbols) {
			a.Symbol = symbols[t-1]
		}
		if t <= len(masses) {
			a.Mass = masses[t-1]
		}
		atoms[i] = a
		var v [3]float64
		for j := 0; j < 3; j++ {
			if v[j], err = strconv.ParseFloat(f[pos[j]], 64); err != nil {
				return nil, d.errorf("bad coordinate %q", f[pos[j]])
			}
		}
		if scaled {
			v = box.Cart(v)
		}
		coords.SetVec(i, v)
		for k, p := range props {
			for w, c := range p.cols {
				if pdata[k][i*p.width+w], err = strconv.ParseFloat(f[c], 64); err != nil {
					return nil, d.errorf("bad value %q in column %s", f[c], cols[c])
				}
			}
		}
	}
	S, err := NewSystem(box, pbc, atoms, coords)
	if err != nil {
		return nil, err
	}
	for k, p := range props {
		if err := S.SetProp(p.name, p.width, pdata[k]); err != nil {
			return nil, err
		}
	}
	S.SortByID()
	return S, nil
}
