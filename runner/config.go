/*
 * config.go, part of disloc.
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

package runner

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pelletier/go-toml"
	"github.com/rmera/disloc"
	"github.com/rmera/disloc/blob"
	"github.com/rmera/disloc/elastic"
	"github.com/rmera/disloc/lammps"
	"github.com/rmera/disloc/monopole"
)

//LammpsConfig sets how LAMMPS is run.
type LammpsConfig struct {
	//Command, for instance "lmp" or "mpirun -np 4 lmp". Empty uses LAMMPS_COMMAND, or lmp.
	Command string            `toml:"command"`
	Min     lammps.MinOptions `toml:"min"`
}

//CrystalConfig describes the perfect crystal. Cij is the 6x6 stiffness matrix, in GPa.
type CrystalConfig struct {
	Prototype string      `toml:"prototype"`
	A         float64     `toml:"a"`
	C         float64     `toml:"c"`
	Symbols   []string    `toml:"symbols"`
	Cij       [][]float64 `toml:"cij"`
}

//Crystal returns the crystal for the monopole calculations.
func (c CrystalConfig) Crystal() (*monopole.Crystal, error) {
	if len(c.Cij) != 6 {
		return nil, disloc.NewConfigError(fmt.Sprintf("cij has %d rows, 6 needed", len(c.Cij)), "CrystalConfig.Crystal")
	}
	var flat []float64
	for _, r := range c.Cij {
		flat = append(flat, r...)
	}
	cij, err := elastic.NewCij(flat)
	if err != nil {
		return nil, disloc.ErrDecorate(err, "CrystalConfig.Crystal")
	}
	cr := &monopole.Crystal{Prototype: c.Prototype, A: c.A, C: c.C, Symbols: c.Symbols, Cij: cij}
	if _, err := cr.Cell(); err != nil {
		return nil, disloc.ErrDecorate(err, "CrystalConfig.Crystal")
	}
	return cr, nil
}

//DislocationConfig selects the dislocation parameter records. Files are always used,
//and every error reading them is fatal. Records in Library are used if they apply
//to the crystal prototype and, when Tags is not empty, their tag is in Tags.
type DislocationConfig struct {
	Files   []string `toml:"files"`
	Library string   `toml:"library"`
	Tags    []string `toml:"tags"`
}

//NyeConfig overrides, when not zero, the correspondence settings of the parameter records.
type NyeConfig struct {
	AngleTolerance float64 `toml:"angle_tolerance"`
	MaxResidual    float64 `toml:"max_residual"`
}

//ScanConfig sets a cohesive energy scan for each potential. No scan is done if
//Points is zero.
type ScanConfig struct {
	Min     float64 `toml:"min"`
	Max     float64 `toml:"max"`
	Points  int     `toml:"points"`
	Refine  bool    `toml:"refine"`
	Tol     float64 `toml:"tol"`
	MaxIter int     `toml:"maxiter"`
}

//Config is a job: every potential is used with every dislocation.
type Config struct {
	Lammps      LammpsConfig       `toml:"lammps"`
	Scratch     string             `toml:"scratch"`
	Output      string             `toml:"output"`
	Workers     int                `toml:"workers"`
	LogLevel    string             `toml:"log_level"`
	KeepScratch bool               `toml:"keep_scratch"`
	Plots       bool               `toml:"plots"`
	XYZ         bool               `toml:"xyz"`
	Metrics     string             `toml:"metrics"`
	Blob        blob.Config        `toml:"blob"`
	Potentials  []lammps.Potential `toml:"potentials"`
	Crystal     CrystalConfig      `toml:"crystal"`
	Dislocation DislocationConfig  `toml:"dislocations"`
	Sizing      monopole.Sizing    `toml:"sizing"`
	Nye         NyeConfig          `toml:"nye"`
	Scan        ScanConfig         `toml:"scan"`
}

//SetDefaults fills the fields that were not given.
func (c *Config) SetDefaults() {
	if c.Scratch == "" {
		c.Scratch = "scratch"
	}
	if c.Output == "" {
		c.Output = "results"
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Lammps.Min.Style == "" {
		c.Lammps.Min = lammps.DefaultMinOptions()
	}
	if c.Sizing.Shape == "" {
		c.Sizing.Shape = "circle"
	}
	if c.Blob.Driver == "" {
		c.Blob.Driver = blob.DriverFilesystem
	}
	if c.Blob.Driver == blob.DriverFilesystem && c.Blob.Root == "" {
		c.Blob.Root = c.Output
	}
	if c.Scan.Points > 0 {
		if c.Scan.Tol == 0 {
			c.Scan.Tol = 1e-4
		}
		if c.Scan.MaxIter == 0 {
			c.Scan.MaxIter = 40
		}
	}
}

//Level returns the slog level named by LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(c.LogLevel))
	return l, err
}

//Check returns a ConfigError if the job can't be run.
func (c *Config) Check() error {
	if c.Workers < 1 {
		return disloc.NewConfigError(fmt.Sprintf("%d workers", c.Workers), "Config.Check")
	}
	if _, err := c.Level(); err != nil {
		return disloc.WrapConfigError(err, "bad log level", "Config.Check")
	}
	if err := c.Blob.Check(); err != nil {
		return disloc.WrapConfigError(err, "bad blob store", "Config.Check")
	}
	if len(c.Potentials) == 0 {
		return disloc.NewConfigError("no potentials given", "Config.Check")
	}
	seen := make(map[string]bool)
	for i := range c.Potentials {
		P := &c.Potentials[i]
		if err := P.Check(); err != nil {
			return disloc.WrapConfigError(err, fmt.Sprintf("potential %d", i), "Config.Check")
		}
		if seen[P.ID] {
			return disloc.NewConfigError("repeated potential id "+P.ID, "Config.Check")
		}
		seen[P.ID] = true
	}
	if _, err := c.Crystal.Crystal(); err != nil {
		return disloc.ErrDecorate(err, "Config.Check")
	}
	if len(c.Dislocation.Files) == 0 && c.Dislocation.Library == "" {
		return disloc.NewConfigError("no dislocation files or library given", "Config.Check")
	}
	if err := c.Sizing.Check(); err != nil {
		return disloc.ErrDecorate(err, "Config.Check")
	}
	if c.Nye.AngleTolerance < 0 || c.Nye.MaxResidual < 0 {
		return disloc.NewConfigError("negative nye settings", "Config.Check")
	}
	if s := c.Scan; s.Points != 0 && (s.Points < 3 || !(s.Min > 0) || !(s.Max > s.Min) || s.Tol <= 0) {
		return disloc.NewConfigError(fmt.Sprintf("bad scan [%g, %g] with %d points", s.Min, s.Max, s.Points), "Config.Check")
	}
	return nil
}

//Decode reads a TOML job from the file name, applies the defaults and the S3
//environment overrides, and checks it.
func Decode(name string) (*Config, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, disloc.WrapConfigError(err, "can't open job file", "runner.Decode")
	}
	defer f.Close()
	c := new(Config)
	if err := toml.NewDecoder(f).Strict(true).Decode(c); err != nil {
		return nil, disloc.WrapConfigError(err, "can't parse "+name, "runner.Decode")
	}
	c.SetDefaults()
	c.Blob = c.Blob.FromEnv()
	if err := c.Check(); err != nil {
		return nil, disloc.ErrDecorate(err, "runner.Decode")
	}
	return c, nil
}

//Params loads the dislocation parameter records selected by the configuration.
func (c *Config) Params(logger *slog.Logger) ([]*monopole.Params, error) {
	var ret []*monopole.Params
	tags := make(map[string]bool)
	for _, name := range c.Dislocation.Files {
		P, err := monopole.LoadParams(name)
		if err != nil {
			return nil, disloc.ErrDecorate(err, "Config.Params")
		}
		if tags[P.Tag] {
			return nil, disloc.NewConfigError("repeated dislocation tag "+P.Tag, "Config.Params")
		}
		tags[P.Tag] = true
		ret = append(ret, P)
	}
	if c.Dislocation.Library == "" {
		return ret, nil
	}
	lib, err := monopole.LoadLibrary(c.Dislocation.Library, logger)
	if err != nil {
		return nil, disloc.ErrDecorate(err, "Config.Params")
	}
	wanted := make(map[string]bool)
	for _, t := range c.Dislocation.Tags {
		wanted[t] = true
	}
	for _, P := range lib {
		if tags[P.Tag] || !P.AppliesTo(c.Crystal.Prototype) || (len(wanted) > 0 && !wanted[P.Tag]) {
			continue
		}
		tags[P.Tag] = true
		ret = append(ret, P)
	}
	if len(ret) == 0 {
		return nil, disloc.NewConfigError("no dislocation applies to "+c.Crystal.Prototype, "Config.Params")
	}
	return ret, nil
}
