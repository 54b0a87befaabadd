package disloc

import (
	"fmt"
	"math"
)

//This provides useful conversion factors and other constants

//Conversions
const (
	Deg2Rad = math.Pi / 180
	Rad2Deg = 180 / math.Pi
	//eV per J
	EV2J = 1.602176634e-19
	//GPa*Å^2 in eV/Å
	GPaA2toEVA = 1e9 * 1e-20 / (EV2J / 1e-10)
	//GPa in eV/Å^3
	GPa2EVA3 = 1e9 * 1e-30 / EV2J
)

//Unit strings used across records. Values are always carried
//together with one of these.
const (
	UnitAngstrom  = "angstrom"
	UnitEV        = "eV"
	UnitGPa       = "GPa"
	UnitEVPerA    = "eV/angstrom"
	UnitEVPerA3   = "eV/angstrom^3"
	UnitGPaA2     = "GPa*angstrom^2"
	UnitEVPerAtom = "eV/atom"
)

type unitInfo struct {
	dim    string
	factor float64 //to the reference unit of the dimension
}

var units = map[string]unitInfo{
	UnitAngstrom:    {"length", 1},
	"nm":            {"length", 10},
	"m":             {"length", 1e10},
	UnitEV:          {"energy", 1},
	"J":             {"energy", 1 / EV2J},
	UnitEVPerAtom:   {"energy/atom", 1},
	UnitGPa:         {"pressure", 1},
	"Pa":            {"pressure", 1e-9},
	"bar":           {"pressure", 1e-4},
	UnitEVPerA3:     {"pressure", 1 / GPa2EVA3},
	UnitEVPerA:      {"energy/length", 1},
	UnitGPaA2:       {"energy/length", GPaA2toEVA},
	"J/m":           {"energy/length", 1e-10 / EV2J},
	"dimensionless": {"none", 1},
}

//Convert converts value from the unit from to the unit to. Both units must be known
//and of the same dimension.
func Convert(value float64, from, to string) (float64, error) {
	f, ok := units[from]
	if !ok {
		return 0, NewConfigError(fmt.Sprintf("unknown unit %q", from), "Convert")
	}
	t, ok := units[to]
	if !ok {
		return 0, NewConfigError(fmt.Sprintf("unknown unit %q", to), "Convert")
	}
	if f.dim != t.dim {
		return 0, NewConfigError(fmt.Sprintf("can't convert %s (%s) to %s (%s)", from, f.dim, to, t.dim), "Convert")
	}
	return value * f.factor / t.factor, nil
}
