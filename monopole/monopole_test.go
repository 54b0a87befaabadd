package monopole

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rmera/disloc"
	"github.com/rmera/disloc/elastic"
	"github.com/rmera/disloc/lammps"
	"github.com/rmera/disloc/lattice"
	"github.com/rmera/disloc/nye"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cuCrystal() *Crystal {
	return &Crystal{Prototype: "fcc", A: 3.615, Symbols: []string{"Cu"}, Cij: elastic.Cubic(169.9, 122.6, 76.2)}
}

func fccEdge() *Params {
	return &Params{
		Key:            "b9f5b1e6-3c0e-4f7e-9d1e-2a7c6f3b8e10",
		Tag:            "fcc_a2_110_edge",
		Prototypes:     []string{"fcc"},
		SlipHKL:        [3]int{1, 1, 1},
		LineUVW:        [3]int{-1, -1, 2},
		Burgers:        [3]float64{0.5, -0.5, 0},
		Axes:           [3][3]int{{1, -1, 0}, {1, 1, 1}, {-1, -1, 2}},
		M:              [3]float64{1, 0, 0},
		N:              [3]float64{0, 1, 0},
		Shift:          [3]float64{0.1, 0.2, 0},
		CoreCutoff:     3,
		NeighborCutoff: 0.85,
	}
}

func scCrystal() *Crystal {
	return &Crystal{Prototype: "sc", A: 1, Symbols: []string{"Fe"}, Cij: elastic.Isotropic(48, 0.3)}
}

func scScrew() *Params {
	return &Params{
		Tag:            "sc_100_screw",
		SlipHKL:        [3]int{0, 1, 0},
		LineUVW:        [3]int{0, 0, 1},
		Burgers:        [3]float64{0, 0, 1},
		Axes:           [3][3]int{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		M:              [3]float64{1, 0, 0},
		N:              [3]float64{0, 1, 0},
		Shift:          [3]float64{0.5, 0.5, 0},
		CoreCutoff:     5.5,
		NeighborCutoff: 1.2,
		MaxResidual:    0.5,
	}
}

const paramsYAML = `key: 5d1c7a5e-0a43-4b9e-8f0e-7f5d8e7c2b11
tag: fcc_a2_110_edge
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
shift: [0.1, 0.2, 0]
core_cutoff: 3
neighbor_cutoff: 0.85
angle_tolerance: 27
`

func TestLoadLibrary(Te *testing.T) {
	dir := Te.TempDir()
	write := func(name, content string) {
		require.NoError(Te, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	write("edge.yaml", paramsYAML)
	write("broken.yaml", "tag: [unclosed\n")
	write("zero.yml", "tag: zero\nline_uvw: [0, 0, 1]\nslip_hkl: [1, 0, 0]\ncore_cutoff: 1\nneighbor_cutoff: 1\n")
	write("notes.txt", "not a parameter file")
	P, err := LoadParams(filepath.Join(dir, "edge.yaml"))
	require.NoError(Te, err)
	assert.Equal(Te, fccEdge().Axes, P.Axes)
	assert.Equal(Te, [3]float64{0.5, -0.5, 0}, P.Burgers)
	assert.Equal(Te, 27.0, P.AngleTolerance)

	lib, err := LoadLibrary(dir, nil)
	require.NoError(Te, err)
	require.Len(Te, lib, 1)
	assert.Equal(Te, "fcc_a2_110_edge", lib[0].Tag)

	_, err = LoadParams(filepath.Join(dir, "broken.yaml"))
	assert.True(Te, disloc.IsConfigError(err))
	_, err = LoadParams(filepath.Join(dir, "zero.yml"))
	assert.True(Te, disloc.IsConfigError(err))
	_, err = LoadParams(filepath.Join(dir, "missing.yaml"))
	assert.True(Te, disloc.IsConfigError(err))
	_, err = LoadLibrary(filepath.Join(dir, "nodir"), nil)
	assert.Error(Te, err)
}

func TestSetupFCCEdge(Te *testing.T) {
	c := cuCrystal()
	S, err := NewSetup(c, fccEdge(), Sizing{Size: 40, LineCells: 1, Shape: lattice.ShapeCircle, Width: 5})
	require.NoError(Te, err)
	b := c.A / math.Sqrt2
	assert.InDeltaSlice(Te, []float64{b, 0, 0}, S.BurgersBox[:], 1e-10)
	assert.InDeltaSlice(Te, []float64{b, 0, 0}, S.BurgersDisl[:], 1e-10)
	assert.Equal(Te, 2, S.Align.LineAxis())
	assert.Equal(Te, [3]int{8, 8, 1}, S.Bounds.Count())
	assert.Equal(Te, 8*8*24, S.Base.Len())
	assert.Equal(Te, [3]bool{false, false, true}, S.Base.PBC)
	assert.InDelta(Te, c.A*math.Sqrt(6), S.LineLength, 1e-9)
	assert.InDelta(Te, math.Pow(c.A, 3)/4, S.AtomicVolume, 1e-9)
	assert.False(Te, S.Solution.Perturbed)
	assert.Less(Te, S.Solution.Biorthogonality(), 1e-6)
	pre := S.PreLn()
	assert.Greater(Te, pre, 0.0)
	assert.InDelta(Te, S.Solution.PreLn(S.BurgersDisl)*disloc.GPaA2toEVA, pre, 1e-12)
	//between the Reuss and Voigt isotropic estimates for an edge dislocation in Cu.
	assert.InDelta(Te, 0.22, pre, 0.07)
	assert.InDelta(Te, 20.448-5, S.ShellRadius(), 0.01)
}

func TestSetupErrors(Te *testing.T) {
	sz := Sizing{Size: 40, LineCells: 1, Shape: lattice.ShapeCircle, Width: 5}
	cases := map[string]func(*Crystal, *Params, *Sizing){
		"m off axis":            func(c *Crystal, p *Params, s *Sizing) { p.M = [3]float64{0.6, 0.8, 0} },
		"m not unit":            func(c *Crystal, p *Params, s *Sizing) { p.M = [3]float64{2, 0, 0} },
		"m not normal":          func(c *Crystal, p *Params, s *Sizing) { p.N = [3]float64{1, 0, 0} },
		"line reversed":         func(c *Crystal, p *Params, s *Sizing) { p.LineUVW = [3]int{1, 1, -2} },
		"wrong plane":           func(c *Crystal, p *Params, s *Sizing) { p.SlipHKL = [3]int{1, -1, 0} },
		"zero burgers":          func(c *Crystal, p *Params, s *Sizing) { p.Burgers = [3]float64{} },
		"prototype":             func(c *Crystal, p *Params, s *Sizing) { c.Prototype = "bcc" },
		"axes":                  func(c *Crystal, p *Params, s *Sizing) { p.Axes[2] = [3]int{0, 0, 1} },
		"asymmetric Cij":        func(c *Crystal, p *Params, s *Sizing) { c.Cij[0][1] += 10 },
		"barely asymmetric Cij": func(c *Crystal, p *Params, s *Sizing) { c.Cij[0][1] += 1e-4 },
		"small supercell":       func(c *Crystal, p *Params, s *Sizing) { s.Size = 10 },
		"shape":                 func(c *Crystal, p *Params, s *Sizing) { s.Shape = "hexagon" },
		"zero tensor":           func(c *Crystal, p *Params, s *Sizing) { c.Cij = elastic.Cij{} },
	}
	for name, spoil := range cases {
		c, p, s := cuCrystal(), fccEdge(), sz
		spoil(c, p, &s)
		_, err := NewSetup(c, p, s)
		assert.True(Te, disloc.IsConfigError(err), "%s: %v", name, err)
	}
}

func TestApplyFieldScrew(Te *testing.T) {
	S, err := NewSetup(scCrystal(), scScrew(), Sizing{Size: 20, LineCells: 4, Shape: lattice.ShapeCircle, Width: 2})
	require.NoError(Te, err)
	assert.True(Te, S.Solution.Perturbed)
	def := S.Base.Copy()
	require.NoError(Te, ApplyField(def, S.Solution, S.BurgersDisl, S.Align, S.Core))
	require.Equal(Te, S.Base.Len(), def.Len())
	disp, ok := def.Prop(DispProp)
	require.True(Te, ok)
	lo, hi := def.Box.Bounds()
	for i := 0; i < def.Len(); i++ {
		p := S.Base.Coords.Vec(i)
		u := disp.Row(i)
		want := math.Atan2(p[1], p[0]) / (2 * math.Pi)
		assert.InDelta(Te, want, u[2], 1e-4)
		assert.InDelta(Te, 0, u[0], 1e-4)
		assert.InDelta(Te, 0, u[1], 1e-4)
		q := def.Coords.Vec(i)
		assert.True(Te, q[2] >= lo[2] && q[2] < hi[2], "atom %d outside the periodic box: %v", i, q)
		assert.Equal(Te, S.Base.Atoms[i].ID, def.Atoms[i].ID)
	}
	//an atom on the line has no displacement.
	p := scScrew()
	p.Shift = [3]float64{}
	S, err = NewSetup(scCrystal(), p, Sizing{Size: 20, LineCells: 4, Shape: lattice.ShapeCircle, Width: 2})
	require.NoError(Te, err)
	err = ApplyField(S.Base.Copy(), S.Solution, S.BurgersDisl, S.Align, S.Core)
	assert.True(Te, disloc.IsConfigError(err))
}

func TestApplyFieldEdgeGrowsBox(Te *testing.T) {
	c := cuCrystal()
	S, err := NewSetup(c, fccEdge(), Sizing{Size: 40, LineCells: 1, Shape: lattice.ShapeBox, Width: 5})
	require.NoError(Te, err)
	def := S.Base.Copy()
	require.NoError(Te, ApplyField(def, S.Solution, S.BurgersDisl, S.Align, S.Core))
	assert.Equal(Te, S.Base.Len(), def.Len())
	lo, hi := def.Box.Bounds()
	for i := 0; i < def.Len(); i++ {
		q := def.Coords.Vec(i)
		for k := 0; k < 3; k++ {
			assert.True(Te, q[k] >= lo[k] && q[k] <= hi[k])
		}
	}
	n, err := S.Shell().Apply(def, 1)
	require.NoError(Te, err)
	assert.Greater(Te, n, 0)
	assert.Less(Te, n, def.Len())
}

func fccScrew() *Params {
	p := fccEdge()
	p.Tag = "fcc_a2_110_screw"
	p.LineUVW = [3]int{1, -1, 0}
	p.Axes = [3][3]int{{1, 1, -2}, {1, 1, 1}, {1, -1, 0}}
	return p
}

//The Nye tensor of the unrelaxed Stroh field, integrated within CoreCutoff of the
//line, points along the prescribed Burgers vector. The atoms closest to an edge
//core can't be matched to the ideal environment, and their share of the content
//is lost, so only a lower bound is checked for its magnitude.
func TestNyeBurgersFCC(Te *testing.T) {
	cases := []struct {
		params   *Params
		min, max float64
	}{
		{fccEdge(), 0.3, 1.1},
		{fccScrew(), 0.85, 1.1},
	}
	c := cuCrystal()
	for _, cs := range cases {
		p := cs.params
		S, err := NewSetup(c, p, Sizing{Size: 40, LineCells: 1, Shape: lattice.ShapeCircle, Width: 5})
		require.NoError(Te, err, p.Tag)
		def := S.Base.Copy()
		require.NoError(Te, ApplyField(def, S.Solution, S.BurgersDisl, S.Align, S.Core), p.Tag)
		cutoff := p.NeighborCutoff * c.A
		nlBase, err := nye.Neighbors(S.Base, cutoff)
		require.NoError(Te, err)
		templates, err := S.Templates(nlBase)
		require.NoError(Te, err)
		nl, err := nye.Neighbors(def, cutoff)
		require.NoError(Te, err)
		res, err := nye.Analyze(def, nl, templates, nye.Options{})
		require.NoError(Te, err)
		b, used, err := nye.Burgers(def, res, nye.BurgersOptions{
			Line:         S.Align.T[2],
			Center:       S.Core,
			Radius:       p.CoreCutoff * c.A,
			AtomicVolume: S.AtomicVolume,
			LineLength:   S.LineLength,
		})
		require.NoError(Te, err)
		assert.Greater(Te, used, 20, p.Tag)
		want := S.BurgersBox
		bw := elastic.Norm(want)
		assert.InDelta(Te, c.A/math.Sqrt2, bw, 1e-10)
		along := elastic.Dot(b, want) / bw
		assert.Greater(Te, along/bw, cs.min, "%s: %v for %v", p.Tag, b, want)
		assert.Less(Te, along/bw, cs.max, "%s: %v for %v", p.Tag, b, want)
		//the component normal to the prescribed vector stays small.
		var perp [3]float64
		for k := range perp {
			perp[k] = b[k] - along*want[k]/bw
		}
		assert.Less(Te, elastic.Norm(perp), 0.1*bw, "%s: %v for %v", p.Tag, b, want)
	}
}

func TestTemplatesFromParams(Te *testing.T) {
	p := scScrew()
	p.Templates = [][][3]float64{{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}}
	c := scCrystal()
	c.A = 2
	S, err := NewSetup(c, p, Sizing{Size: 40, LineCells: 4, Shape: lattice.ShapeCircle, Width: 4})
	require.NoError(Te, err)
	t, err := S.Templates(nil)
	require.NoError(Te, err)
	require.Len(Te, t, 1)
	assert.Equal(Te, [3]float64{2, 0, 0}, t[0].Vectors[0])
}

//the fake simulator turns the data file into a dump without moving any atom.
const fakeAwk = `/ atoms$/ { n = $1 }
/xlo xhi/ { xl = $1; xh = $2 }
/ylo yhi/ { yl = $1; yh = $2 }
/zlo zhi/ { zl = $1; zh = $2 }
/^Atoms/ { inatoms = 1; next }
inatoms && NF == 5 { line[++k] = $0 }
END {
	print "ITEM: TIMESTEP"; print 0
	print "ITEM: NUMBER OF ATOMS"; print n
	print "ITEM: BOX BOUNDS mm mm pp"; print xl, xh; print yl, yh; print zl, zh
	print "ITEM: ATOMS id type x y z"
	for (i = 1; i <= k; i++) print line[i]
}
`

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
awk -f FAKEDIR/fake.awk "$data" > "$dump"
printf 'LAMMPS (fake)\nStep Atoms PotEng\n0 1 -1.25\nLoop time of 0 on 1 procs\n' > "$log"
`

func fakeHandle(Te *testing.T) *lammps.Handle {
	fake := Te.TempDir()
	require.NoError(Te, os.WriteFile(filepath.Join(fake, "fake.awk"), []byte(fakeAwk), 0644))
	sh := strings.ReplaceAll(fakeSh, "FAKEDIR", fake)
	require.NoError(Te, os.WriteFile(filepath.Join(fake, "lmp.sh"), []byte(sh), 0755))
	return lammps.NewHandle("sh "+filepath.Join(fake, "lmp.sh"), Te.TempDir())
}

func TestRunScrew(Te *testing.T) {
	H := fakeHandle(Te)
	C := &Calculation{
		Crystal:   scCrystal(),
		Params:    scScrew(),
		Potential: &lammps.Potential{ID: "fe-test", PairStyle: "lj/cut 2.5", PairCoeff: []string{"* * 1.0 1.0"}, Symbols: []string{"Fe"}, Masses: []float64{55.845}},
		Sizing:    Sizing{Size: 20, LineCells: 4, Shape: lattice.ShapeCircle, Width: 2},
		Min:       lammps.DefaultMinOptions(),
		Handle:    H,
	}
	R, out, err := C.Run(context.Background())
	require.NoError(Te, err)
	require.NoError(Te, R.Check())
	assert.Equal(Te, out.Base.Len(), out.Relaxed.Len())
	assert.Equal(Te, out.Base.Len(), R.Atoms)
	assert.Equal(Te, [3]float64{0, 0, 1}, R.PrescribedBurgers.Value)
	assert.InDelta(Te, 1.0, R.NyeBurgers.Value[2], 0.1)
	assert.InDelta(Te, 0.0, R.NyeBurgers.Value[0], 0.1)
	assert.InDelta(Te, 0.0, R.NyeBurgers.Value[1], 0.1)
	assert.Equal(Te, -1.25, R.Energy.Value)
	assert.Equal(Te, disloc.UnitEVPerA, R.PreLnFactor.Unit)
	//isotropic screw: mu b^2 / 4 pi
	assert.InDelta(Te, 48*disloc.GPaA2toEVA/(4*math.Pi), R.PreLnFactor.Value, 1e-5)
	assert.True(Te, R.Stroh.Perturbed)
	assert.Greater(Te, R.Nye.IntegralAtoms, 300)
	for _, f := range []string{"base.in", "relax.in", "relax.log", "relax.dump", "relax.data"} {
		_, err := os.Stat(filepath.Join(H.Dir(), f))
		assert.NoError(Te, err, f)
	}
	_, ok := out.Relaxed.Prop(DispProp)
	assert.True(Te, ok)
	_, ok = out.Relaxed.Prop("nye_alpha")
	assert.True(Te, ok)
}

func TestRunConfigErrors(Te *testing.T) {
	C := &Calculation{
		Crystal:   scCrystal(),
		Params:    scScrew(),
		Potential: &lammps.Potential{ID: "ni", PairStyle: "eam", PairCoeff: []string{"* * Ni.eam"}, Symbols: []string{"Ni"}, Masses: []float64{58.69}},
		Sizing:    Sizing{Size: 20, LineCells: 4, Shape: lattice.ShapeCircle, Width: 2},
		Min:       lammps.DefaultMinOptions(),
		Handle:    lammps.NewHandle("false", Te.TempDir()),
	}
	_, _, err := C.Run(context.Background())
	assert.True(Te, disloc.IsConfigError(err))
	//no simulator files were written.
	entries, err := os.ReadDir(C.Handle.Dir())
	require.NoError(Te, err)
	assert.Empty(Te, entries)
}
