/*
 * script.go, part of disloc.
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
	"io"
	"strconv"
	"strings"
	"text/template"
)

//MinOptions are the parameters of an energy minimization.
type MinOptions struct {
	Style   string  `toml:"style"`
	Etol    float64 `toml:"etol"`
	Ftol    float64 `toml:"ftol"`
	MaxIter int     `toml:"maxiter"`
	MaxEval int     `toml:"maxeval"`
	DMax    float64 `toml:"dmax"`
}

//DefaultMinOptions returns the minimization parameters used when none are given.
func DefaultMinOptions() MinOptions {
	return MinOptions{Style: "cg", Etol: 0, Ftol: 1e-10, MaxIter: 10000, MaxEval: 100000, DMax: 0.01}
}

//Jobs
const (
	JobMinimize    = "min"
	JobSinglePoint = "run0"
)

//ThermoKeywords are the thermo_style custom keywords requested, in order.
var ThermoKeywords = []string{"step", "atoms", "pe", "pxx", "pyy", "pzz", "pxy", "pxz", "pyz", "lx", "ly", "lz"}

//scriptData fills the input script template.
type scriptData struct {
	Job        string
	Boundary   string
	DataFile   string
	DumpFile   string
	Masses     []float64
	PairStyle  string
	PairCoeff  []string
	FixedTypes string
	Thermo     string
	Min        MinOptions
}

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	"g":   func(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) },
}

var script = template.Must(template.New("in").Funcs(funcs).Parse(`# LAMMPS input written by disloc
units metal
atom_style atomic
boundary {{.Boundary}}
read_data {{.DataFile}}
{{range $i, $m := .Masses}}mass {{inc $i}} {{g $m}}
{{end}}
pair_style {{.PairStyle}}
{{range .PairCoeff}}pair_coeff {{.}}
{{end}}
{{- if .FixedTypes}}
group fixed type {{.FixedTypes}}
fix nomove fixed setforce 0.0 0.0 0.0
{{- end}}
thermo_style custom {{.Thermo}}
thermo_modify format float %.13e
{{if eq .Job "min"}}
min_style {{.Min.Style}}
min_modify dmax {{g .Min.DMax}}
minimize {{g .Min.Etol}} {{g .Min.Ftol}} {{.Min.MaxIter}} {{.Min.MaxEval}}
{{- else}}
run 0
{{- end}}
write_dump all custom {{.DumpFile}} id type x y z modify format float %.13e
`))

//boundary returns the LAMMPS boundary flags for the periodicity.
func boundary(pbc [3]bool) string {
	b := make([]string, 3)
	for i, p := range pbc {
		b[i] = "m"
		if p {
			b[i] = "p"
		}
	}
	return strings.Join(b, " ")
}

func writeScript(w io.Writer, d scriptData) error {
	d.Thermo = strings.Join(ThermoKeywords, " ")
	return script.Execute(w, d)
}
