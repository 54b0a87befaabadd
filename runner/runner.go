/*
 * runner.go, part of disloc.
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
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rmera/disloc"
	"github.com/rmera/disloc/archive"
	"github.com/rmera/disloc/blob"
	"github.com/rmera/disloc/fieldplot"
	"github.com/rmera/disloc/lammps"
	"github.com/rmera/disloc/monopole"
	"github.com/rmera/disloc/nye"
	"github.com/rmera/disloc/record"
	"github.com/rmera/disloc/scan"
	"golang.org/x/sync/errgroup"
)

//Failure is a unit that produced no record. Its scratch directory, Dir, is kept.
type Failure struct {
	Kind        string
	Potential   string
	Dislocation string
	Dir         string
	Err         error
}

//Summary lists the keys of the records written and the failed units.
type Summary struct {
	Records []string
	Failed  []Failure
}

//Runner runs the units of a job.
type Runner struct {
	cfg     *Config
	crystal *monopole.Crystal
	params  []*monopole.Params
	store   blob.Store
	logger  *slog.Logger
	metrics *metrics

	mu      sync.Mutex
	summary Summary
}

//New checks the job, loads the dislocation parameters and opens the blob store.
//The scratch and output directories are created if needed.
func New(ctx context.Context, cfg *Config, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Check(); err != nil {
		return nil, disloc.ErrDecorate(err, "runner.New")
	}
	cr, err := cfg.Crystal.Crystal()
	if err != nil {
		return nil, disloc.ErrDecorate(err, "runner.New")
	}
	params, err := cfg.Params(logger)
	if err != nil {
		return nil, disloc.ErrDecorate(err, "runner.New")
	}
	for _, d := range []string{cfg.Scratch, cfg.Output} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return nil, err
		}
	}
	store, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		return nil, fmt.Errorf("runner: can't open the blob store: %w", err)
	}
	return &Runner{cfg: cfg, crystal: cr, params: params, store: store, logger: logger, metrics: newMetrics()}, nil
}

//Run runs every unit of the job, at most cfg.Workers at a time. The failure of a unit
//doesn't stop the others. The returned error is only for problems outside the
//units, such as a cancelled context or unwritable metrics.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	nunits := 0
	for i := range r.cfg.Potentials {
		pot := &r.cfg.Potentials[i]
		if r.cfg.Scan.Points > 0 {
			nunits++
			g.Go(func() error { return r.scanUnit(gctx, pot) })
		}
		for _, P := range r.params {
			nunits++
			P := r.withNye(P)
			g.Go(func() error { return r.monopoleUnit(gctx, pot, P) })
		}
	}
	r.logger.Info("job started", "units", nunits, "workers", r.cfg.Workers, "store", r.store.Driver())
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if merr := r.metrics.write(r.cfg.Metrics); merr != nil && err == nil {
		err = fmt.Errorf("runner: can't write metrics: %w", merr)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger.Info("job finished", "records", len(r.summary.Records), "failed", len(r.summary.Failed))
	return r.summary, err
}

//Run runs the job described by cfg.
func Run(ctx context.Context, cfg *Config, logger *slog.Logger) (Summary, error) {
	r, err := New(ctx, cfg, logger)
	if err != nil {
		return Summary{}, err
	}
	return r.Run(ctx)
}

//withNye returns P with the job-wide correspondence settings applied.
func (r *Runner) withNye(P *monopole.Params) *monopole.Params {
	if r.cfg.Nye == (NyeConfig{}) {
		return P
	}
	c := *P
	if r.cfg.Nye.AngleTolerance > 0 {
		c.AngleTolerance = r.cfg.Nye.AngleTolerance
	}
	if r.cfg.Nye.MaxResidual > 0 {
		c.MaxResidual = r.cfg.Nye.MaxResidual
	}
	return &c
}

//scratchDir creates a process-unique working directory for a unit.
func (r *Runner) scratchDir() (string, error) {
	dir := filepath.Join(r.cfg.Scratch, uuid.NewString())
	return dir, os.Mkdir(dir, 0755)
}

func (r *Runner) failed(f Failure, log *slog.Logger, start time.Time) {
	log.Error("unit failed", "dir", f.Dir, "error", f.Err)
	r.metrics.observe(f.Kind, record.StatusError, start)
	r.mu.Lock()
	r.summary.Failed = append(r.summary.Failed, f)
	r.mu.Unlock()
}

func (r *Runner) finished(kind, key, dir string, log *slog.Logger, start time.Time) {
	if !r.cfg.KeepScratch {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn("can't remove scratch directory", "dir", dir, "error", err)
		}
	}
	r.metrics.observe(kind, record.StatusFinished, start)
	r.mu.Lock()
	r.summary.Records = append(r.summary.Records, key)
	r.mu.Unlock()
}

//save puts the record in the store and then writes it to the output directory.
//A record that could not be stored is never left in the output directory.
func (r *Runner) save(ctx context.Context, key string, D record.Document) error {
	b, err := D.Marshal()
	if err != nil {
		return err
	}
	if _, err = r.store.Put(ctx, blob.Key(key, "record.json"), bytes.NewReader(b), "application/json"); err != nil {
		return err
	}
	name := filepath.Join(r.cfg.Output, key+".json")
	if err = record.WriteFile(name, D); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}

func (r *Runner) monopoleUnit(ctx context.Context, pot *lammps.Potential, P *monopole.Params) error {
	start := time.Now()
	f := Failure{Kind: kindMonopole, Potential: pot.ID, Dislocation: P.Tag}
	log := r.logger.With("kind", kindMonopole, "potential", pot.ID, "dislocation", P.Tag)
	dir, err := r.scratchDir()
	f.Dir = dir
	if err != nil {
		f.Err = err
		r.failed(f, log, start)
		return nil
	}
	log = log.With("unit", filepath.Base(dir))
	C := &monopole.Calculation{
		Crystal:   r.crystal,
		Params:    P,
		Potential: pot,
		Sizing:    r.cfg.Sizing,
		Min:       r.cfg.Lammps.Min,
		Handle:    lammps.NewHandle(r.cfg.Lammps.Command, dir),
		Logger:    r.logger.With("unit", filepath.Base(dir)),
	}
	R, out, err := C.Run(ctx)
	if err == nil {
		err = r.artifacts(ctx, dir, R, out)
	}
	if err == nil {
		err = r.save(ctx, R.Key, R)
	}
	if err != nil {
		f.Err = err
		r.failed(f, log, start)
		return nil
	}
	log.Info("record written", "key", R.Key, "preln", R.PreLnFactor.Value, "nye_burgers", R.NyeBurgers.Value)
	r.finished(kindMonopole, R.Key, dir, log, start)
	return nil
}

//artifacts writes the configurations, and the XYZ copy and maps if requested, of a finished
//calculation to dir, publishes them and lists them in R.
func (r *Runner) artifacts(ctx context.Context, dir string, R *record.Record, out *monopole.Output) error {
	dumps := []struct {
		name  string
		S     *disloc.System
		props []string
	}{
		{"base" + archive.Ext, out.Base, []string{}},
		{"defected" + archive.Ext, out.Defected, []string{monopole.DispProp}},
		{"relaxed" + archive.Ext, out.Relaxed, nil},
	}
	var files []string
	for _, d := range dumps {
		name := filepath.Join(dir, d.name)
		if err := archive.WriteDump(name, d.S, d.props); err != nil {
			return err
		}
		files = append(files, name)
	}
	if r.cfg.XYZ {
		name := filepath.Join(dir, "relaxed.xyz")
		if err := disloc.WriteXYZFile(name, out.Relaxed, out.Relaxed.PropNames()); err != nil {
			return err
		}
		files = append(files, name)
	}
	if r.cfg.Plots {
		maps, err := plotMaps(dir, out)
		if err != nil {
			return err
		}
		files = append(files, maps...)
	}
	for _, name := range files {
		key := blob.Key(R.Key, filepath.Base(name))
		if _, err := blob.PutFile(ctx, r.store, key, name, ""); err != nil {
			return err
		}
		R.Artifacts = append(R.Artifacts, record.Artifact{Name: filepath.Base(name), Key: key})
	}
	return nil
}

//plotMaps draws the magnitude of the applied displacement and the Nye tensor
//component that integrates to the largest Burgers vector component, on the plane
//normal to the line.
func plotMaps(dir string, out *monopole.Output) ([]string, error) {
	S := out.Setup
	plane := [2]int{S.Align.MAxis(), S.Align.NAxis()}
	u, err := fieldplot.Norm(out.Defected, monopole.DispProp)
	if err != nil {
		return nil, err
	}
	disp := filepath.Join(dir, "displacement.png")
	if err := fieldplot.Map(out.Defected, u, plane, "|u| (Å)", disp); err != nil {
		return nil, err
	}
	bi := 0
	for i, v := range S.BurgersBox {
		if v*v > S.BurgersBox[bi]*S.BurgersBox[bi] {
			bi = i
		}
	}
	line := S.Align.LineAxis()
	alpha, err := fieldplot.Component(out.Relaxed, nye.PropAlpha, 3*line+bi)
	if err != nil {
		return nil, err
	}
	if err := fieldplot.Mask(out.Relaxed, alpha, nye.PropDefined); err != nil {
		return nil, err
	}
	nyemap := filepath.Join(dir, "nye.png")
	title := fmt.Sprintf("alpha_%c%c (1/Å)", "xyz"[line], "xyz"[bi])
	if err := fieldplot.Map(out.Relaxed, alpha, plane, title, nyemap); err != nil {
		return nil, err
	}
	return []string{disp, nyemap}, nil
}

func (r *Runner) scanUnit(ctx context.Context, pot *lammps.Potential) error {
	start := time.Now()
	f := Failure{Kind: kindScan, Potential: pot.ID}
	log := r.logger.With("kind", kindScan, "potential", pot.ID)
	dir, err := r.scratchDir()
	f.Dir = dir
	if err != nil {
		f.Err = err
		r.failed(f, log, start)
		return nil
	}
	log = log.With("unit", filepath.Base(dir))
	H := lammps.NewHandle(r.cfg.Lammps.Command, dir)
	H.SetLogger(log)
	cfg := r.cfg.Scan
	u, err := r.crystal.Cell()
	var points []scan.Point
	if err == nil {
		points, err = scan.Scan(ctx, H, u, pot, cfg.Min, cfg.Max, cfg.Points)
	}
	var minima []scan.Minimum
	if err == nil {
		minima = scan.Minima(points)
		if cfg.Refine && minima[0].Status == scan.StatusFound {
			minima[0], err = scan.Refine(ctx, H, u, pot, minima[0], cfg.Tol, cfg.MaxIter)
		}
	}
	var R *record.ScanRecord
	if err == nil {
		R = scan.Record(pot.ID, r.crystal.Prototype, points, minima)
		err = r.save(ctx, R.Key, R)
	}
	if err != nil {
		f.Err = err
		r.failed(f, log, start)
		return nil
	}
	for _, m := range minima {
		log.Info("scan minimum", "status", m.Status, "a", m.A, "energy", m.E, "reason", m.Reason)
	}
	r.finished(kindScan, R.Key, dir, log, start)
	return nil
}
