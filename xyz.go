/*
 * xyz.go, part of disloc.
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
	"strconv"
	"strings"

	v3 "github.com/rmera/disloc/v3"
)

//XYZFloatFormat is the format used for coordinates and properties in extended XYZ files.
var XYZFloatFormat = "%.8f"

//xyzCommentLine builds the comment line of an extended XYZ frame: the lattice,
//the periodicity and the column layout.
func xyzCommentLine(S *System, props []string) (string, error) {
	v := S.Box.Vects()
	var b strings.Builder
	b.WriteString(`Lattice="`)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if i+j > 0 {
				b.WriteString(" ")
			}
			b.WriteString(strconv.FormatFloat(v[i][j], 'g', -1, 64))
		}
	}
	b.WriteString(`" Origin="`)
	for i, o := range S.Box.Lo {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(strconv.FormatFloat(o, 'g', -1, 64))
	}
	b.WriteString(`" pbc="`)
	for i, p := range S.PBC {
		if i > 0 {
			b.WriteString(" ")
		}
		if p {
			b.WriteString("T")
		} else {
			b.WriteString("F")
		}
	}
	b.WriteString(`" Properties=species:S:1:id:I:1:type:I:1:pos:R:3`)
	for _, name := range props {
		p, ok := S.Prop(name)
		if !ok {
			return "", NewConfigError(fmt.Sprintf("no property %s", name), "xyzCommentLine")
		}
		if strings.ContainsAny(name, ": \"") {
			return "", NewConfigError(fmt.Sprintf("property name %q can't be written to XYZ", name), "xyzCommentLine")
		}
		fmt.Fprintf(&b, ":%s:R:%d", name, p.Width)
	}
	return b.String(), nil
}

//WriteXYZ writes the system as one extended XYZ frame, with the listed
//properties as extra columns. The files can be read by OVITO and ASE.
func WriteXYZ(w io.Writer, S *System, props []string) error {
	comment, err := xyzCommentLine(S, props)
	if err != nil {
		return ErrDecorate(err, "WriteXYZ")
	}
	f := XYZFloatFormat
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n%s\n", S.Len(), comment)
	for i, a := range S.Atoms {
		sym := a.Symbol
		if sym == "" {
			sym = "X"
		}
		c := S.Coords.Vec(i)
		fmt.Fprintf(bw, "%-2s %d %d "+f+" "+f+" "+f, sym, a.ID, a.Type, c[0], c[1], c[2])
		for _, name := range props {
			p, _ := S.Prop(name)
			for _, x := range p.Row(i) {
				fmt.Fprintf(bw, " "+f, x)
			}
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

//WriteXYZFile writes the system to an extended XYZ file called name. See WriteXYZ.
func WriteXYZFile(name string, S *System, props []string) error {
	fout, err := os.Create(name)
	if err != nil {
		return err
	}
	if err = WriteXYZ(fout, S, props); err != nil {
		fout.Close()
		return ErrDecorate(err, "WriteXYZFile")
	}
	return fout.Close()
}

//xyzKeys splits the key=value pairs of an extended XYZ comment line. Values
//may be quoted.
func xyzKeys(line string) map[string]string {
	keys := make(map[string]string)
	line = strings.TrimSpace(line)
	for line != "" {
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			break
		}
		key := strings.TrimSpace(line[:eq])
		line = line[eq+1:]
		var val string
		if strings.HasPrefix(line, `"`) {
			end := strings.IndexByte(line[1:], '"')
			if end < 0 {
				val, line = line[1:], ""
			} else {
				val, line = line[1:end+1], line[end+2:]
			}
		} else {
			end := strings.IndexAny(line, " \t")
			if end < 0 {
				val, line = line, ""
			} else {
				val, line = line[:end], line[end:]
			}
		}
		keys[key] = val
		line = strings.TrimSpace(line)
	}
	return keys
}

func parseFloats(s string, n int) ([]float64, error) {
	fields := strings.Fields(s)
	if len(fields) != n {
		return nil, fmt.Errorf("expected %d numbers, got %d", n, len(fields))
	}
	r := make([]float64, n)
	var err error
	for i, f := range fields {
		if r[i], err = strconv.ParseFloat(f, 64); err != nil {
			return nil, err
		}
	}
	return r, nil
}

type xyzColumn struct {
	name  string
	kind  string
	width int
}

func xyzColumns(s string) ([]xyzColumn, error) {
	parts := strings.Split(s, ":")
	if len(parts)%3 != 0 {
		return nil, fmt.Errorf("ill formed Properties %q", s)
	}
	var cols []xyzColumn
	for i := 0; i < len(parts); i += 3 {
		w, err := strconv.Atoi(parts[i+2])
		if err != nil || w <= 0 {
			return nil, fmt.Errorf("ill formed width in Properties %q", s)
		}
		cols = append(cols, xyzColumn{name: parts[i], kind: parts[i+1], width: w})
	}
	return cols, nil
}

//ReadXYZ reads one extended XYZ frame as written by WriteXYZ. Species, ids
//and types are optional (atoms are then numbered in order, with type 1), but
//the Lattice key and the pos column are required. Real-valued columns other
//than pos become properties of the system. Masses are taken from the element symbols.
func ReadXYZ(r io.Reader) (*System, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	fail := func(line int, format string, a ...interface{}) error {
		return NewConfigError(fmt.Sprintf("XYZ line %d: %s", line, fmt.Sprintf(format, a...)), "ReadXYZ")
	}
	if !sc.Scan() {
		return nil, fail(1, "empty file")
	}
	natoms, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil || natoms <= 0 {
		return nil, fail(1, "bad atom count %q", sc.Text())
	}
	if !sc.Scan() {
		return nil, fail(2, "missing comment line")
	}
	keys := xyzKeys(sc.Text())
	lat, ok := keys["Lattice"]
	if !ok {
		return nil, fail(2, "no Lattice key")
	}
	lv, err := parseFloats(lat, 9)
	if err != nil {
		return nil, fail(2, "Lattice: %v", err)
	}
	var origin [3]float64
	if o, ok := keys["Origin"]; ok {
		ov, err := parseFloats(o, 3)
		if err != nil {
			return nil, fail(2, "Origin: %v", err)
		}
		copy(origin[:], ov)
	}
	box, err := NewBoxFromVects([3]float64{lv[0], lv[1], lv[2]}, [3]float64{lv[3], lv[4], lv[5]}, [3]float64{lv[6], lv[7], lv[8]}, origin)
	if err != nil {
		return nil, ErrDecorate(err, "ReadXYZ")
	}
	pbc := [3]bool{true, true, true}
	if p, ok := keys["pbc"]; ok {
		fields := strings.Fields(p)
		if len(fields) != 3 {
			return nil, fail(2, "bad pbc %q", p)
		}
		for i, f := range fields {
			pbc[i] = f == "T" || f == "t" || f == "True" || f == "true"
		}
	}
	props, ok := keys["Properties"]
	if !ok {
		props = "species:S:1:pos:R:3"
	}
	cols, err := xyzColumns(props)
	if err != nil {
		return nil, fail(2, "%v", err)
	}
	haspos := false
	ncols := 0
	for _, c := range cols {
		if c.name == "pos" {
			haspos = c.width == 3
		}
		ncols += c.width
	}
	if !haspos {
		return nil, fail(2, "no pos:R:3 column")
	}
	atoms := make([]*Atom, natoms)
	coords := v3.Zeros(natoms)
	extra := make(map[string][]float64)
	for i := 0; i < natoms; i++ {
		if !sc.Scan() {
			return nil, fail(i+3, "expected %d atoms, got %d", natoms, i)
		}
		fields := strings.Fields(sc.Text())
		if len(fields) != ncols {
			return nil, fail(i+3, "expected %d columns, got %d", ncols, len(fields))
		}
		a := &Atom{ID: i + 1, Type: 1}
		k := 0
		for _, c := range cols {
			vals := fields[k : k+c.width]
			k += c.width
			switch {
			case c.name == "species":
				a.Symbol = vals[0]
				a.Mass, _ = Mass(a.Symbol)
			case c.name == "id" && c.kind == "I":
				if a.ID, err = strconv.Atoi(vals[0]); err != nil {
					return nil, fail(i+3, "bad id %q", vals[0])
				}
			case c.name == "type" && c.kind == "I":
				if a.Type, err = strconv.Atoi(vals[0]); err != nil || a.Type < 1 {
					return nil, fail(i+3, "bad type %q", vals[0])
				}
			case c.kind == "R":
				x, err := parseFloats(strings.Join(vals, " "), c.width)
				if err != nil {
					return nil, fail(i+3, "%s: %v", c.name, err)
				}
				if c.name == "pos" {
					coords.SetVec(i, [3]float64{x[0], x[1], x[2]})
				} else {
					extra[c.name] = append(extra[c.name], x...)
				}
			}
		}
		atoms[i] = a
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	S, err := NewSystem(box, pbc, atoms, coords)
	if err != nil {
		return nil, ErrDecorate(err, "ReadXYZ")
	}
	for _, c := range cols {
		if d, ok := extra[c.name]; ok {
			if err := S.SetProp(c.name, c.width, d); err != nil {
				return nil, ErrDecorate(err, "ReadXYZ")
			}
		}
	}
	return S, nil
}

//ReadXYZFile reads an extended XYZ file. See ReadXYZ.
func ReadXYZFile(name string) (*System, error) {
	fin, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer fin.Close()
	S, err := ReadXYZ(fin)
	if err != nil {
		return nil, ErrDecorate(err, "ReadXYZFile:"+name)
	}
	return S, nil
}
