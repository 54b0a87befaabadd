package disloc

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	v3 "github.com/rmera/disloc/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSystem(Te *testing.T, symbols []string, tri bool) *System {
	n := 7
	atoms := make([]*Atom, n)
	coords := v3.Zeros(n)
	for i := 0; i < n; i++ {
		t := i%len(symbols) + 1
		m, _ := Mass(symbols[t-1])
		atoms[i] = &Atom{ID: n - i, Type: t, Symbol: symbols[t-1], Mass: m}
		coords.SetVec(i, [3]float64{0.1 + 1.37*float64(i), 2.0/3.0 + 0.11*float64(i), 1.0 / 7.0 * float64(i)})
	}
	box := NewOrthoBox([3]float64{-0.5, 0, 0}, [3]float64{10.25, 8, 3.5})
	if tri {
		box.Tilt = [3]float64{0.5, -0.25, 1.0 / 3.0}
	}
	S, err := NewSystem(box, [3]bool{false, false, true}, atoms, coords)
	require.NoError(Te, err)
	disp := make([]float64, 3*n)
	for i := range disp {
		disp[i] = 1e-3 * float64(i) / 3
	}
	require.NoError(Te, S.SetProp("disp", 3, disp))
	fixed := make([]float64, n)
	fixed[0] = 1
	require.NoError(Te, S.SetProp("fixed", 1, fixed))
	S.SortByID()
	return S
}

func TestDumpRoundTrip(Te *testing.T) {
	cases := [][]string{{"Cu"}, {"Ni", "Al"}, {"Fe", "Cr", "Ni"}}
	for _, symbols := range cases {
		for _, tri := range []bool{false, true} {
			Te.Run(fmt.Sprintf("%s-tri=%v", strings.Join(symbols, ""), tri), func(Te *testing.T) {
				S := testSystem(Te, symbols, tri)
				var buf bytes.Buffer
				require.NoError(Te, WriteDump(&buf, S, 0, nil))
				masses := make([]float64, len(symbols))
				for i, s := range symbols {
					masses[i], _ = Mass(s)
				}
				R, err := ReadDump(bytes.NewReader(buf.Bytes()), symbols, masses)
				require.NoError(Te, err)
				require.Equal(Te, S.Len(), R.Len())
				assert.Equal(Te, S.PBC, R.PBC)
				for i := range S.Atoms {
					a, b := S.Coords.Vec(i), R.Coords.Vec(i)
					assert.InDeltaSlice(Te, a[:], b[:], 1e-12)
					assert.Equal(Te, *S.Atoms[i], *R.Atoms[i])
				}
				for k := 0; k < 3; k++ {
					assert.InDelta(Te, S.Box.Lo[k], R.Box.Lo[k], 1e-12)
					assert.InDelta(Te, S.Box.Hi[k], R.Box.Hi[k], 1e-12)
					assert.InDelta(Te, S.Box.Tilt[k], R.Box.Tilt[k], 1e-12)
				}
				assert.Equal(Te, S.PropNames(), R.PropNames())
				pd, _ := R.Prop("disp")
				assert.Equal(Te, 3, pd.Width)
				//Writing again what we read gives back the same bytes.
				var buf2 bytes.Buffer
				require.NoError(Te, WriteDump(&buf2, R, 0, nil))
				assert.Equal(Te, buf.String(), buf2.String())
			})
		}
	}
}

func TestDumpColumns(Te *testing.T) {
	S := testSystem(Te, []string{"Cu"}, false)
	cols, err := DumpColumns(S, nil)
	require.NoError(Te, err)
	assert.Equal(Te, []string{"id", "type", "x", "y", "z"}, cols)
	cols, err = DumpColumns(S, []string{"disp", "fixed"})
	require.NoError(Te, err)
	assert.Equal(Te, []string{"id", "type", "x", "y", "z", "disp[1]", "disp[2]", "disp[3]", "fixed"}, cols)
	_, err = DumpColumns(S, []string{"nope"})
	assert.True(Te, IsConfigError(err))
}

func TestReadDumpLastFrameScaled(Te *testing.T) {
	dump := `ITEM: TIMESTEP
0
ITEM: NUMBER OF ATOMS
1
ITEM: BOX BOUNDS pp pp pp
0 2
0 2
0 2
ITEM: ATOMS id type x y z
1 1 0.5 0.5 0.5
ITEM: TIMESTEP
10
ITEM: NUMBER OF ATOMS
2
ITEM: BOX BOUNDS pp pp mm
0 4
0 2
0 2
ITEM: ATOMS type id xs ys zs c_pe
1 2 0.5 0.5 0.5 -3.5
1 1 0.25 0 0 -3.25
`
	S, err := ReadDump(strings.NewReader(dump), nil, nil)
	require.NoError(Te, err)
	require.Equal(Te, 2, S.Len())
	assert.Equal(Te, 1, S.Atoms[0].ID)
	assert.Equal(Te, [3]float64{1, 0, 0}, S.Coords.Vec(0))
	assert.Equal(Te, [3]float64{2, 1, 1}, S.Coords.Vec(1))
	assert.Equal(Te, [3]bool{true, true, false}, S.PBC)
	pe, ok := S.Prop("c_pe")
	require.True(Te, ok)
	assert.Equal(Te, []float64{-3.25, -3.5}, pe.Data)
}

func TestReadDumpBroken(Te *testing.T) {
	dump := "ITEM: TIMESTEP\n0\nITEM: NUMBER OF ATOMS\n2\nITEM: BOX BOUNDS pp pp pp\n0 1\n0 1\n0 1\nITEM: ATOMS id type x y z\n1 1 0 0 0\n"
	_, err := ReadDump(strings.NewReader(dump), nil, nil)
	require.Error(Te, err)
	_, ok := err.(*DumpError)
	assert.True(Te, ok)
	_, err = ReadDump(strings.NewReader(""), nil, nil)
	assert.Error(Te, err)
	empty := "ITEM: TIMESTEP\n0\nITEM: NUMBER OF ATOMS\n0\nITEM: BOX BOUNDS pp pp pp\n0 1\n0 1\n0 1\nITEM: ATOMS id type x y z\n"
	_, err = ReadDump(strings.NewReader(empty), nil, nil)
	assert.Error(Te, err)
}

func TestWriteData(Te *testing.T) {
	S := testSystem(Te, []string{"Ni", "Al"}, true)
	var buf bytes.Buffer
	require.NoError(Te, WriteData(&buf, S, 4, []float64{58.6934, 26.9815, 58.6934, 26.9815}))
	out := buf.String()
	fmt.Println(out)
	assert.Contains(Te, out, "7 atoms\n4 atom types\n")
	assert.Contains(Te, out, " xy xz yz\n")
	assert.Contains(Te, out, "\nMasses\n\n1 5.8693400000000e+01\n")
	err := WriteData(&buf, S, 4, []float64{1})
	assert.True(Te, IsConfigError(err))
}

func TestBoxWrapMinImage(Te *testing.T) {
	b := NewOrthoBox([3]float64{0, 0, 0}, [3]float64{2, 3, 4})
	b.Tilt = [3]float64{0.5, 0, 0}
	pbc := [3]bool{true, true, true}
	p := b.Wrap([3]float64{2.1, 3.2, -0.5}, pbc)
	f := b.Frac(p)
	for i := 0; i < 3; i++ {
		assert.True(Te, f[i] >= 0 && f[i] < 1, "fractional coordinate out of the box: %v", f)
	}
	d := b.MinImage([3]float64{1.9, 0, 3.9}, pbc)
	assert.InDelta(Te, -0.1, d[0], 1e-12)
	assert.InDelta(Te, -0.1, d[2], 1e-12)
	lo, hi := b.Bounds()
	r := boxFromBounds(lo, hi, b.Tilt)
	assert.Equal(Te, b, r)
}
