package runner

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rmera/disloc"
	"github.com/rmera/disloc/archive"
	"github.com/rmera/disloc/blob"
	"github.com/rmera/disloc/lammps"
	"github.com/rmera/disloc/nye"
	"github.com/rmera/disloc/record"
	"github.com/rmera/disloc/scan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const screwYAML = `tag: sc_100_screw
prototypes: [sc]
slip_hkl: [0, 1, 0]
line_uvw: [0, 0, 1]
burgers: [0, 0, 1]
axes:
  - [1, 0, 0]
  - [0, 1, 0]
  - [0, 0, 1]
m: [1, 0, 0]
n: [0, 1, 0]
shift: [0.5, 0.5, 0]
core_cutoff: 5.5
neighbor_cutoff: 1.2
max_residual: 0.5
`

const fccOnlyYAML = `tag: fcc_only
prototypes: [fcc]
slip_hkl: [1, 1, 1]
line_uvw: [-1, -1, 2]
burgers: [0.5, -0.5, 0]
axes:
  - [1, -1, 0]
  - [1, 1, 1]
  - [-1, -1, 2]
m: [1, 0, 0]
n: [0, 1, 0]
core_cutoff: 3
neighbor_cutoff: 0.85
`

//The job, with the directories to be filled in.
const jobTOML = `scratch = "SCRATCH"
output = "OUTPUT"
workers = 2
log_level = "debug"
plots = true
xyz = true
metrics = "METRICS"

[lammps]
command = "COMMAND"

[lammps.min]
style = "cg"
etol = 0.0
ftol = 1e-10
maxiter = 100
maxeval = 1000
dmax = 0.01

[[potentials]]
id = "fe-test"
pair_style = "lj/cut 2.5"
pair_coeff = ["* * 1.0 1.0"]
symbols = ["Fe"]
masses = [55.845]

[crystal]
prototype = "sc"
a = 1.0
symbols = ["Fe"]
cij = [
  [168.0, 72.0, 72.0, 0.0, 0.0, 0.0],
  [72.0, 168.0, 72.0, 0.0, 0.0, 0.0],
  [72.0, 72.0, 168.0, 0.0, 0.0, 0.0],
  [0.0, 0.0, 0.0, 48.0, 0.0, 0.0],
  [0.0, 0.0, 0.0, 0.0, 48.0, 0.0],
  [0.0, 0.0, 0.0, 0.0, 0.0, 48.0],
]

[dislocations]
files = ["PARAMS"]

[sizing]
size = 20.0
line_cells = 4
shape = "circle"
width = 2.0

[scan]
min = 1.8
max = 2.2
points = 5
refine = true
tol = 1e-3
`

//fakeSh plays LAMMPS: it writes back the input configuration as the final one, and
//an energy of n(10(a-2)^2-3) eV, with a the cube root of the volume per atom.
const fakeSh = `#!/bin/sh
while [ $# -gt 0 ]; do
  case "$1" in
    -in) in="$2"; shift 2;;
    -log) log="$2"; shift 2;;
    *) shift;;
  esac
done
data=$(awk '/^read_data/ {print $2}' "$in")
dump=$(awk '/^write_dump/ {print $4}' "$in")
awk -v dump="$dump" '
/ atoms$/ { n = $1 }
/xlo xhi/ { xl = $1; xh = $2 }
/ylo yhi/ { yl = $1; yh = $2 }
/zlo zhi/ { zl = $1; zh = $2 }
/^Atoms/ { inatoms = 1; next }
inatoms && NF == 5 { line[++k] = $0 }
END {
	a = exp(log((xh - xl) * (yh - yl) * (zh - zl) / n) / 3)
	printf "LAMMPS (fake)\nStep Atoms PotEng\n0 %d %.12f\nLoop time of 0 on 1 procs\n", n, n * (10 * (a - 2) ^ 2 - 3)
	if (dump == "") exit 0
	print "ITEM: TIMESTEP" > dump; print 0 > dump
	print "ITEM: NUMBER OF ATOMS" > dump; print n > dump
	print "ITEM: BOX BOUNDS mm mm pp" > dump
	print xl, xh > dump; print yl, yh > dump; print zl, zh > dump
	print "ITEM: ATOMS id type x y z" > dump
	for (i = 1; i <= k; i++) print line[i] > dump
}' "$data" > "$log"
`

func writeJob(Te *testing.T, command string) (string, string) {
	dir := Te.TempDir()
	params := filepath.Join(dir, "screw.yaml")
	require.NoError(Te, os.WriteFile(params, []byte(screwYAML), 0644))
	if command == "" {
		sh := filepath.Join(dir, "lmp.sh")
		require.NoError(Te, os.WriteFile(sh, []byte(fakeSh), 0755))
		command = "sh " + sh
	}
	job := strings.NewReplacer(
		"SCRATCH", filepath.Join(dir, "scratch"),
		"OUTPUT", filepath.Join(dir, "out"),
		"METRICS", filepath.Join(dir, "disloc.prom"),
		"COMMAND", command,
		"PARAMS", params,
	).Replace(jobTOML)
	name := filepath.Join(dir, "job.toml")
	require.NoError(Te, os.WriteFile(name, []byte(job), 0644))
	return name, dir
}

func TestDecode(Te *testing.T) {
	name, dir := writeJob(Te, "lmp")
	c, err := Decode(name)
	require.NoError(Te, err)
	assert.Equal(Te, 2, c.Workers)
	assert.Equal(Te, "lmp", c.Lammps.Command)
	assert.Equal(Te, 100, c.Lammps.Min.MaxIter)
	assert.Equal(Te, blob.DriverFilesystem, c.Blob.Driver)
	assert.Equal(Te, filepath.Join(dir, "out"), c.Blob.Root)
	require.Len(Te, c.Potentials, 1)
	assert.Equal(Te, []string{"* * 1.0 1.0"}, c.Potentials[0].PairCoeff)
	assert.Equal(Te, 20.0, c.Sizing.Size)
	assert.Equal(Te, 5, c.Scan.Points)
	assert.Equal(Te, 40, c.Scan.MaxIter)
	cr, err := c.Crystal.Crystal()
	require.NoError(Te, err)
	assert.Equal(Te, 48.0, cr.Cij[3][3])

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(Te, os.WriteFile(bad, []byte("workers = 1\nmystery = true\n"), 0644))
	_, err = Decode(bad)
	assert.True(Te, disloc.IsConfigError(err))
	_, err = Decode(filepath.Join(dir, "missing.toml"))
	assert.True(Te, disloc.IsConfigError(err))
}

func TestDecodeEnv(Te *testing.T) {
	name, _ := writeJob(Te, "lmp")
	b, err := os.ReadFile(name)
	require.NoError(Te, err)
	require.NoError(Te, os.WriteFile(name, append(b, []byte("\n[blob]\ndriver = \"s3\"\nregion = \"us-east-1\"\n")...), 0644))
	_, err = Decode(name)
	assert.Error(Te, err, "s3 without a bucket")
	Te.Setenv(blob.EnvBucket, "results")
	c, err := Decode(name)
	require.NoError(Te, err)
	assert.Equal(Te, "results", c.Blob.Bucket)
}

func TestCheck(Te *testing.T) {
	name, _ := writeJob(Te, "lmp")
	for tname, f := range map[string]func(c *Config){
		"workers":    func(c *Config) { c.Workers = 0 },
		"level":      func(c *Config) { c.LogLevel = "loud" },
		"potentials": func(c *Config) { c.Potentials = nil },
		"repeated":   func(c *Config) { c.Potentials = append(c.Potentials, c.Potentials[0]) },
		"potential":  func(c *Config) { c.Potentials[0].Masses = nil },
		"cij":        func(c *Config) { c.Crystal.Cij = c.Crystal.Cij[:5] },
		"asymmetric": func(c *Config) { c.Crystal.Cij[0][1] = 10 },
		"prototype":  func(c *Config) { c.Crystal.Prototype = "bct" },
		"params":     func(c *Config) { c.Dislocation = DislocationConfig{} },
		"sizing":     func(c *Config) { c.Sizing.Size = 0 },
		"nye":        func(c *Config) { c.Nye.MaxResidual = -1 },
		"scan":       func(c *Config) { c.Scan.Max = 1 },
	} {
		c, err := Decode(name)
		require.NoError(Te, err)
		f(c)
		err = c.Check()
		assert.True(Te, disloc.IsConfigError(err), tname)
	}
}

func TestParams(Te *testing.T) {
	name, dir := writeJob(Te, "lmp")
	c, err := Decode(name)
	require.NoError(Te, err)
	lib := filepath.Join(dir, "lib")
	require.NoError(Te, os.Mkdir(lib, 0755))
	other := strings.Replace(screwYAML, "sc_100_screw", "sc_other", 1)
	require.NoError(Te, os.WriteFile(filepath.Join(lib, "screw.yaml"), []byte(screwYAML), 0644))
	require.NoError(Te, os.WriteFile(filepath.Join(lib, "other.yaml"), []byte(other), 0644))
	require.NoError(Te, os.WriteFile(filepath.Join(lib, "fcc.yaml"), []byte(fccOnlyYAML), 0644))
	c.Dislocation.Library = lib
	P, err := c.Params(nil)
	require.NoError(Te, err)
	//the file, then the library minus the repeated tag and the fcc variant
	require.Len(Te, P, 2)
	assert.Equal(Te, "sc_100_screw", P[0].Tag)
	assert.Equal(Te, "sc_other", P[1].Tag)

	c.Dislocation = DislocationConfig{Library: lib, Tags: []string{"fcc_only"}}
	_, err = c.Params(nil)
	assert.True(Te, disloc.IsConfigError(err))

	c.Dislocation = DislocationConfig{Files: []string{filepath.Join(dir, "missing.yaml")}, Library: lib}
	_, err = c.Params(nil)
	assert.True(Te, disloc.IsConfigError(err))
}

func TestRun(Te *testing.T) {
	name, dir := writeJob(Te, "")
	c, err := Decode(name)
	require.NoError(Te, err)
	sum, err := Run(context.Background(), c, nil)
	require.NoError(Te, err)
	require.Empty(Te, sum.Failed)
	require.Len(Te, sum.Records, 2)

	store, err := blob.NewFS(c.Blob.Root)
	require.NoError(Te, err)
	var nmono, nscan int
	for _, key := range sum.Records {
		D, err := record.ReadFile(filepath.Join(c.Output, key+".json"))
		require.NoError(Te, err)
		stored, err := store.List(context.Background(), key+"/")
		require.NoError(Te, err)
		switch R := D.(type) {
		case *record.Record:
			nmono++
			assert.Equal(Te, "sc_100_screw", R.Dislocation)
			require.Len(Te, R.Artifacts, 6)
			assert.Len(Te, stored, 7)
			X, err := disloc.ReadXYZFile(filepath.Join(c.Blob.Root, key, "relaxed.xyz"))
			require.NoError(Te, err)
			_, ok := X.Prop(nye.PropAlpha)
			assert.True(Te, ok)
			S, err := archive.ReadDump(filepath.Join(c.Blob.Root, key, "relaxed"+archive.Ext), []string{"Fe"}, []float64{55.845})
			require.NoError(Te, err)
			assert.Equal(Te, R.Atoms, S.Len())
		case *record.ScanRecord:
			nscan++
			require.Len(Te, R.Points, 5)
			require.NotEmpty(Te, R.Minima)
			assert.Equal(Te, scan.StatusFound, R.Minima[0].Status)
			assert.InDelta(Te, 2.0, R.Minima[0].A.Value, 2e-3)
			assert.Len(Te, stored, 1)
		}
	}
	assert.Equal(Te, 1, nmono)
	assert.Equal(Te, 1, nscan)

	left, err := os.ReadDir(c.Scratch)
	require.NoError(Te, err)
	assert.Empty(Te, left, "scratch directories of finished units are removed")
	prom, err := os.ReadFile(filepath.Join(dir, "disloc.prom"))
	require.NoError(Te, err)
	assert.Contains(Te, string(prom), `disloc_units_total{kind="monopole",status="finished"} 1`)
	assert.Contains(Te, string(prom), `disloc_unit_seconds_count{kind="scan"} 1`)
}

func TestRunFailure(Te *testing.T) {
	name, dir := writeJob(Te, "false")
	c, err := Decode(name)
	require.NoError(Te, err)
	c.Scan = ScanConfig{}
	sum, err := Run(context.Background(), c, nil)
	require.NoError(Te, err)
	assert.Empty(Te, sum.Records)
	require.Len(Te, sum.Failed, 1)
	f := sum.Failed[0]
	assert.Equal(Te, "sc_100_screw", f.Dislocation)
	assert.True(Te, errors.Is(f.Err, lammps.ErrSimulation))
	//the scratch directory is kept, with the input
	_, err = os.Stat(filepath.Join(f.Dir, "base.in"))
	assert.NoError(Te, err)
	out, err := os.ReadDir(c.Output)
	require.NoError(Te, err)
	assert.Empty(Te, out, "no record for a failed unit")
	prom, err := os.ReadFile(filepath.Join(dir, "disloc.prom"))
	require.NoError(Te, err)
	assert.Contains(Te, string(prom), `disloc_units_total{kind="monopole",status="error"} 1`)
}

//recordlessStore refuses the result records but takes everything else.
type recordlessStore struct {
	blob.Store
}

func (s recordlessStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (blob.Info, error) {
	if strings.HasSuffix(key, "/record.json") {
		return blob.Info{}, errors.New("store unavailable")
	}
	return s.Store.Put(ctx, key, r, contentType)
}

func TestRunStoreFailure(Te *testing.T) {
	name, _ := writeJob(Te, "")
	c, err := Decode(name)
	require.NoError(Te, err)
	r, err := New(context.Background(), c, nil)
	require.NoError(Te, err)
	r.store = recordlessStore{r.store}
	sum, err := r.Run(context.Background())
	require.NoError(Te, err)
	assert.Empty(Te, sum.Records)
	require.Len(Te, sum.Failed, 2)
	for _, f := range sum.Failed {
		assert.ErrorContains(Te, f.Err, "store unavailable")
	}
	out, err := os.ReadDir(c.Output)
	require.NoError(Te, err)
	for _, e := range out {
		assert.NotEqual(Te, ".json", filepath.Ext(e.Name()), "record %s left for a failed unit", e.Name())
	}
}
