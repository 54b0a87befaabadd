package record

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() *Record {
	R := New()
	R.Potential = "Cu-Mishin-2001"
	R.Crystal = "fcc"
	R.Symbols = []string{"Cu"}
	R.Dislocation = "fcc_a2_110_edge"
	R.LatticeConstant = NewUnitValue(3.615, "angstrom")
	R.Atoms = 4320
	R.PreLnFactor = NewUnitValue(0.3112, "eV/angstrom")
	R.PrescribedBurgers = Vector3Unit{Value: [3]float64{2.556, 0, 0}, Unit: "angstrom"}
	R.NyeBurgers = Vector3Unit{Value: [3]float64{2.49, 0.01, -0.003}, Unit: "angstrom"}
	R.BaseEnergy = NewUnitValue(-15293.2, "eV")
	R.Energy = NewUnitValue(-15280.1, "eV")
	R.Stroh = Stroh{P: [3][2]float64{{0, 1}, {0.2, 0.9}, {-0.2, 0.9}}, K: Matrix3Unit{Value: [3][3]float64{{60, 0, 0}, {0, 60, 0}, {0, 0, 45}}, Unit: "GPa"}}
	R.Nye = NyeSummary{Atoms: 4320, Defined: 4300, DefinedFraction: 4300.0 / 4320, MeanResidual: 0.01, MaxResidual: 0.2, IntegralAtoms: 310}
	R.Artifacts = []Artifact{{Name: "relaxed", Key: "runs/x/relaxed.dump.zst"}}
	return R
}

func TestRecordRoundTrip(Te *testing.T) {
	R := testRecord()
	b, err := R.Marshal()
	require.NoError(Te, err)
	assert.Contains(Te, string(b), `"unit": "eV/angstrom"`)
	R2, err := Unmarshal(b)
	require.NoError(Te, err)
	assert.Equal(Te, R.Key, R2.Key)
	assert.Equal(Te, R.NyeBurgers, R2.NyeBurgers)
	assert.Equal(Te, R.Stroh, R2.Stroh)
	assert.True(Te, R.Created.Equal(R2.Created))

	D, err := Decode(bytes.NewReader(b))
	require.NoError(Te, err)
	_, ok := D.(*Record)
	assert.True(Te, ok)

	name := filepath.Join(Te.TempDir(), "r.json")
	require.NoError(Te, WriteFile(name, R))
	D, err = ReadFile(name)
	require.NoError(Te, err)
	assert.Equal(Te, R.PreLnFactor, D.(*Record).PreLnFactor)
}

func TestRecordCheck(Te *testing.T) {
	cases := map[string]func(*Record){
		"no unit":      func(R *Record) { R.PreLnFactor.Unit = "" },
		"nan":          func(R *Record) { R.NyeBurgers.Value[1] = math.NaN() },
		"no potential": func(R *Record) { R.Potential = "" },
		"bad key":      func(R *Record) { R.Key = "run-1" },
		"zero burgers": func(R *Record) { R.PrescribedBurgers.Value = [3]float64{} },
		"no atoms":     func(R *Record) { R.Atoms = 0 },
		"kind":         func(R *Record) { R.Kind = KindScan },
	}
	for name, spoil := range cases {
		R := testRecord()
		spoil(R)
		assert.Error(Te, R.Check(), name)
		_, err := R.Marshal()
		assert.Error(Te, err, name)
		assert.Error(Te, WriteFile(filepath.Join(Te.TempDir(), "x.json"), R), name)
	}
	_, err := Unmarshal([]byte(`{"kind":"dislocation_monopole","extra":1}`))
	assert.Error(Te, err)
}

func TestScanRecord(Te *testing.T) {
	S := NewScan()
	S.Potential = "Cu-Mishin-2001"
	S.Crystal = "fcc"
	e := NewUnitValue(-3.53, "eV/atom")
	a, emin := NewUnitValue(3.615, "angstrom"), NewUnitValue(-3.54, "eV/atom")
	S.Points = []Point{{A: NewUnitValue(3.6, "angstrom"), Energy: &e}, {A: NewUnitValue(3.7, "angstrom"), Failed: true}}
	S.Minima = []Minimum{{Status: "found", A: &a, Energy: &emin}, {Status: "simulator_failed", Reason: "LAMMPS exited with an error"}}
	b, err := S.Marshal()
	require.NoError(Te, err)
	D, err := Decode(bytes.NewReader(b))
	require.NoError(Te, err)
	S2, ok := D.(*ScanRecord)
	require.True(Te, ok)
	assert.Equal(Te, S.Minima, S2.Minima)
	assert.Nil(Te, S2.Points[1].Energy)

	S.Minima[0].Energy = nil
	assert.Error(Te, S.Check())
	S.Minima[0].Energy = &emin
	S.Points[1].Failed = false
	assert.Error(Te, S.Check())

	_, err = Decode(strings.NewReader(`{"kind":"stacking_fault"}`))
	assert.Error(Te, err)
}
