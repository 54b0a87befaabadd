/*
 * params.go, part of disloc.
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
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rmera/disloc"
	"gopkg.in/yaml.v3"
)

//Params describes one dislocation variant. Directions and the Burgers vector are in
//crystallographic (uvw) indices of the conventional cell; m and n are cartesian unit
//vectors in the box frame.
type Params struct {
	//Key identifies the parameter set.
	Key string `yaml:"key"`

	//Tag is a human readable name, e.g. fcc_a2_110_edge
	Tag string `yaml:"tag"`

	//Prototypes lists the crystal prototypes the variant applies to. Empty means any.
	Prototypes []string `yaml:"prototypes"`

	SlipHKL [3]int     `yaml:"slip_hkl"`
	LineUVW [3]int     `yaml:"line_uvw"`
	Burgers [3]float64 `yaml:"burgers"`

	//Axes are the crystallographic directions along the box x, y and z axes.
	Axes [3][3]int `yaml:"axes"`

	M [3]float64 `yaml:"m"`
	N [3]float64 `yaml:"n"`

	//Shift is a rigid shift of the atoms, in fractions of the oriented cell, so no
	//atom sits on the dislocation line.
	Shift [3]float64 `yaml:"shift"`

	//CoreCutoff is the radius of the region around the line, in lattice parameters,
	//over which the Nye tensor is integrated.
	CoreCutoff float64 `yaml:"core_cutoff"`

	//NeighborCutoff, in lattice parameters, for the Nye tensor neighbor lists.
	NeighborCutoff float64 `yaml:"neighbor_cutoff"`

	//AngleTolerance for the neighbor correspondence, in degrees. Zero for the default.
	AngleTolerance float64 `yaml:"angle_tolerance"`

	//MaxResidual for the neighbor correspondence fit. Zero disables the check.
	MaxResidual float64 `yaml:"max_residual"`

	//Templates are optional ideal neighbor environments, one list of vectors per site,
	//in cartesian crystal coordinates and lattice parameter units. If not given, they
	//are taken from the perfect supercell.
	Templates [][][3]float64 `yaml:"templates"`
}

//Check returns a ConfigError if the parameters are incomplete or inconsistent. Only
//what can be checked without a crystal is checked here, see Setup.
func (P *Params) Check() error {
	var e string
	switch {
	case P.Tag == "":
		e = "missing tag"
	case P.LineUVW == [3]int{}:
		e = "zero line direction"
	case P.SlipHKL == [3]int{}:
		e = "zero slip plane normal"
	case P.Burgers == [3]float64{}:
		e = "zero Burgers vector"
	case P.Axes[0] == [3]int{} || P.Axes[1] == [3]int{} || P.Axes[2] == [3]int{}:
		e = "zero box axis"
	case P.CoreCutoff <= 0:
		e = "core_cutoff must be positive"
	case P.NeighborCutoff <= 0:
		e = "neighbor_cutoff must be positive"
	case P.AngleTolerance < 0 || P.AngleTolerance >= 90:
		e = fmt.Sprintf("angle_tolerance %g out of range", P.AngleTolerance)
	case P.MaxResidual < 0:
		e = "negative max_residual"
	}
	if e == "" {
		for _, v := range P.Shift {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				e = "shift is not finite"
			}
		}
	}
	if e == "" {
		for i, t := range P.Templates {
			if len(t) < 3 {
				e = fmt.Sprintf("template %d has %d vectors, at least 3 are needed", i, len(t))
				break
			}
		}
	}
	if e != "" {
		return disloc.NewConfigError(fmt.Sprintf("dislocation parameters %s: %s", P.Tag, e), "Params.Check")
	}
	return nil
}

//AppliesTo returns true if the variant can be used with the given prototype.
func (P *Params) AppliesTo(prototype string) bool {
	if len(P.Prototypes) == 0 {
		return true
	}
	for _, p := range P.Prototypes {
		if p == prototype {
			return true
		}
	}
	return false
}

//LoadParams reads and checks one parameter file. Any problem is an error.
func LoadParams(name string) (*Params, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, disloc.WrapConfigError(err, "can't read dislocation parameters", "LoadParams")
	}
	P := new(Params)
	if err := yaml.Unmarshal(b, P); err != nil {
		return nil, disloc.WrapConfigError(err, fmt.Sprintf("can't parse %s", name), "LoadParams")
	}
	if P.Tag == "" {
		P.Tag = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}
	if err := P.Check(); err != nil {
		return nil, disloc.ErrDecorate(err, "LoadParams")
	}
	return P, nil
}

//LoadLibrary reads all the .yaml and .yml parameter files in dir. Files that can't be
//read or are invalid are skipped with a warning. Records are returned sorted by tag.
//Only a missing or unreadable directory is an error.
func LoadLibrary(dir string, logger *slog.Logger) ([]*Params, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, disloc.WrapConfigError(err, "can't read the parameter library", "LoadLibrary")
	}
	var ret []*Params
	seen := make(map[string]string)
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		name := filepath.Join(dir, e.Name())
		P, err := LoadParams(name)
		if err != nil {
			logger.Warn("skipping dislocation parameter file", "file", name, "error", err)
			continue
		}
		if prev, ok := seen[P.Tag]; ok {
			logger.Warn("skipping duplicated dislocation tag", "file", name, "tag", P.Tag, "first", prev)
			continue
		}
		seen[P.Tag] = name
		ret = append(ret, P)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Tag < ret[j].Tag })
	return ret, nil
}
