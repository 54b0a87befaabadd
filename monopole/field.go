package monopole

import (
	"fmt"
	"math"

	"github.com/rmera/disloc"
	"github.com/rmera/disloc/elastic"
	"github.com/rmera/disloc/nye"
	"github.com/rmera/disloc/stroh"
)

//DispProp is the per-atom property holding the displacement applied by ApplyField.
const DispProp = "disp"

//boxPad is added around the atoms along the non-periodic axes when the box is
//enlarged to contain them.
const boxPad = 1e-6

//ApplyField displaces every atom of S by the Stroh displacement field of the dislocation
//with Burgers vector b (dislocation frame) whose line passes through core. align gives
//the dislocation frame. Atoms that leave the box along the periodic line are wrapped
//back, and the box is enlarged along the non-periodic axes if atoms moved out of it.
//The displacements, in the box frame, are stored in the DispProp property. The number
//and order of the atoms never change.
func ApplyField(S *disloc.System, sol *stroh.Solution, b [3]float64, align elastic.Alignment, core [3]float64) error {
	n := S.Len()
	disp := make([]float64, 0, 3*n)
	shifts := make([][3]float64, n)
	for i := 0; i < n; i++ {
		p := S.Coords.Vec(i)
		d := elastic.Transform([3]float64{p[0] - core[0], p[1] - core[1], p[2] - core[2]}, align.T)
		u := sol.Displacement(d[0], d[1], b)
		if math.IsNaN(u[0]) || math.IsNaN(u[1]) || math.IsNaN(u[2]) {
			return disloc.NewConfigError(fmt.Sprintf("atom %d lies on the dislocation line, use a shift", S.Atoms[i].ID), "monopole.ApplyField")
		}
		ub := elastic.TransformBack(u, align.T)
		shifts[i] = ub
		disp = append(disp, ub[:]...)
	}
	for i, ub := range shifts {
		S.Coords.AddToVec(i, ub)
	}
	if err := S.SetProp(DispProp, 3, disp); err != nil {
		return disloc.ErrDecorate(err, "monopole.ApplyField")
	}
	S.Wrap()
	fitBox(S)
	return nil
}

//fitBox enlarges an orthogonal box along its non-periodic axes so it contains all atoms.
func fitBox(S *disloc.System) {
	if !S.Box.IsOrthogonal() {
		return
	}
	for i := 0; i < S.Len(); i++ {
		p := S.Coords.Vec(i)
		for k := 0; k < 3; k++ {
			if S.PBC[k] {
				continue
			}
			if p[k] < S.Box.Lo[k] {
				S.Box.Lo[k] = p[k] - boxPad
			}
			if p[k] > S.Box.Hi[k] {
				S.Box.Hi[k] = p[k] + boxPad
			}
		}
	}
}

//Templates returns the ideal neighbor environments for the Nye analysis. If the
//parameters give them, they are rotated into the box frame and scaled by the lattice
//parameter; otherwise they are taken from the perfect supercell with its neighbor list.
func (S *Setup) Templates(nl *nye.NeighborList) ([]nye.Template, error) {
	if len(S.Params.Templates) == 0 {
		t, err := nye.TemplatesFrom(S.Base, nl)
		return t, disloc.ErrDecorate(err, "Setup.Templates")
	}
	ret := make([]nye.Template, len(S.Params.Templates))
	for i, vecs := range S.Params.Templates {
		ret[i].Site = i
		ret[i].Vectors = make([][3]float64, len(vecs))
		for j, v := range vecs {
			r := elastic.Transform(v, S.R)
			for k := range r {
				r[k] *= S.Crystal.A
			}
			ret[i].Vectors[j] = r
		}
	}
	return ret, nil
}
