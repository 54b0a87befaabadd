/*
 * nye.go, part of disloc.
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

//Package nye measures the dislocation content of an atomic configuration. Each
//atom's neighbors are put in correspondence with an ideal local environment, a
//per-atom lattice correspondence tensor is fitted, and the Nye tensor is obtained
//from its spatial derivatives. Integrating the Nye tensor over a section of the
//
//line gives back the Burgers vector.
package nye

import (
	"fmt"
	"math"
	"sort"

	"github.com/rmera/disloc"
	"github.com/rmera/disloc/elastic"
	"github.com/rmera/disloc/lattice"
	"gonum.org/v1/gonum/mat"
)

//Names of the per-atom properties written by Analyze.
const (
	PropG        = "nye_G"
	PropAlpha    = "nye_alpha"
	PropDefined  = "nye_defined"
	PropResidual = "nye_residual"
)

//DefaultAngleTolerance is the largest angle, in radians, between an ideal and an
//actual neighbor vector that can be put in correspondence.
const DefaultAngleTolerance = 27 * disloc.Deg2Rad

//Template is an ideal local environment: the vectors from a site to its neighbors
//in the perfect crystal.
type Template struct {
	Site    int
	Vectors [][3]float64
}

//sameSet returns true if a and b contain the same vectors, in any order.
func sameSet(a, b [][3]float64) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, v := range a {
		tol := 1e-6 * math.Max(1, elastic.Norm(v))
		found := false
		for j, w := range b {
			if !used[j] && math.Abs(v[0]-w[0]) < tol && math.Abs(v[1]-w[1]) < tol && math.Abs(v[2]-w[2]) < tol {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

//TemplatesFrom takes the ideal environments from a perfect reference configuration.
//For each lattice site (lattice.SiteProp, or a single site if the property is
//missing) the atom with most neighbors, and closest to the center of the atoms among those,
//is used. Identical environments are merged.
func TemplatesFrom(ref *disloc.System, nl *NeighborList) ([]Template, error) {
	if ref.Len() == 0 || len(nl.Index) != ref.Len() {
		return nil, disloc.NewConfigError("empty reference or neighbor list does not match it", "nye.TemplatesFrom")
	}
	site := make([]int, ref.Len())
	if p, ok := ref.Prop(lattice.SiteProp); ok {
		for i := range site {
			site[i] = int(p.Data[i])
		}
	}
	center := ref.Coords.Centroid()
	best := make(map[int]int)
	dist := func(i int) float64 {
		p := ref.Coords.Vec(i)
		d := 0.0
		for k := 0; k < 3; k++ {
			if !ref.PBC[k] {
				d += (p[k] - center[k]) * (p[k] - center[k])
			}
		}
		return d
	}
	for i := range site {
		b, ok := best[site[i]]
		if !ok || nl.Coordination(i) > nl.Coordination(b) || (nl.Coordination(i) == nl.Coordination(b) && dist(i) < dist(b)) {
			best[site[i]] = i
		}
	}
	sites := make([]int, 0, len(best))
	for s := range best {
		sites = append(sites, s)
	}
	sort.Ints(sites)
	var ret []Template
	for _, s := range sites {
		v := nl.Vectors[best[s]]
		if len(v) < 3 {
			return nil, disloc.NewConfigError(fmt.Sprintf("site %d has only %d neighbors, increase the cutoff", s, len(v)), "nye.TemplatesFrom")
		}
		dup := false
		for _, t := range ret {
			if sameSet(t.Vectors, v) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		vecs := make([][3]float64, len(v))
		copy(vecs, v)
		ret = append(ret, Template{Site: s, Vectors: vecs})
	}
	return ret, nil
}

//Options controls the correspondence search.
type Options struct {
	//AngleTolerance, in radians. Zero means DefaultAngleTolerance.
	AngleTolerance float64
	//MaxResidual is the largest root mean square difference between the matched ideal
	//and actual vectors, relative to the mean ideal vector length. Zero disables the check.
	MaxResidual float64
}

//Result holds the per-atom output of Analyze. G maps the ideal neighbor vectors
//of an atom to the actual ones (Q = P G, with vectors as rows), H is its inverse
//and Alpha the Nye tensor, in 1/Å. Atoms without a correspondence are not Defined;
//atoms without enough defined neighbors to differentiate H have AlphaDefined false.
type Result struct {
	G            [][3][3]float64
	H            [][3][3]float64
	Alpha        [][3][3]float64
	Residual     []float64
	Template     []int
	Defined      []bool
	AlphaDefined []bool
	//matched[i][k] is the position in the neighbor list of atom i of the neighbor
	//matched to the k-th template vector.
	matched [][]int
}

type pair struct {
	p, q  int
	angle float64
}

//match pairs each ideal vector in P with a distinct actual vector in Q, greedily
//by smallest angle, and returns the pairing and the sum of squared differences.
//Actual vectors left unpaired are ignored. Templates are single vector sets rather
//than lists of permutations: while the ideal neighbors are further apart in angle
//than twice the tolerance (60 degrees in fcc against the default 27), each actual
//vector is a candidate for one ideal vector only, and the greedy pairing is the one
//of least squared difference. Among templates, correspondence keeps the one with
//the smallest sum.
func match(P, Q [][3]float64, tol float64) ([]int, float64, bool) {
	if len(Q) < len(P) {
		return nil, 0, false
	}
	cosTol := math.Cos(tol)
	var pairs []pair
	for i, p := range P {
		np := elastic.Norm(p)
		for j, q := range Q {
			c := elastic.Dot(p, q) / (np * elastic.Norm(q))
			if c >= cosTol {
				pairs = append(pairs, pair{i, j, math.Acos(math.Min(1, c))})
			}
		}
	}
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a].angle != pairs[b].angle {
			return pairs[a].angle < pairs[b].angle
		}
		if pairs[a].p != pairs[b].p {
			return pairs[a].p < pairs[b].p
		}
		return pairs[a].q < pairs[b].q
	})
	res := make([]int, len(P))
	for i := range res {
		res[i] = -1
	}
	usedQ := make([]bool, len(Q))
	n := 0
	for _, pr := range pairs {
		if res[pr.p] >= 0 || usedQ[pr.q] {
			continue
		}
		res[pr.p] = pr.q
		usedQ[pr.q] = true
		n++
	}
	if n != len(P) {
		return nil, 0, false
	}
	ssd := 0.0
	for i, j := range res {
		for k := 0; k < 3; k++ {
			d := Q[j][k] - P[i][k]
			ssd += d * d
		}
	}
	return res, ssd, true
}

func rows(v [][3]float64) *mat.Dense {
	m := mat.NewDense(len(v), 3, nil)
	for i, r := range v {
		m.SetRow(i, r[:])
	}
	return m
}

func toArray(m mat.Matrix) [3][3]float64 {
	var a [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			a[i][j] = m.At(i, j)
		}
	}
	return a
}

//correspondence fits G for atom i. It returns false if no template can be matched.
func correspondence(Q [][3]float64, templates []Template, o Options) (G [3][3]float64, res float64, t int, matched []int, ok bool) {
	bestssd := math.Inf(1)
	t = -1
	for k, tp := range templates {
		m, ssd, good := match(tp.Vectors, Q, o.AngleTolerance)
		if good && ssd < bestssd {
			bestssd, t, matched = ssd, k, m
		}
	}
	if t < 0 {
		return G, 0, -1, nil, false
	}
	P := templates[t].Vectors
	q := make([][3]float64, len(matched))
	for k, j := range matched {
		q[k] = Q[j]
	}
	var g mat.Dense
	if err := g.Solve(rows(P), rows(q)); err != nil {
		return G, 0, -1, nil, false
	}
	G = toArray(&g)
	//relative rms residual of the fit.
	var fit mat.Dense
	fit.Mul(rows(P), &g)
	fit.Sub(&fit, rows(q))
	mean := 0.0
	for _, p := range P {
		mean += elastic.Norm(p)
	}
	mean /= float64(len(P))
	res = mat.Norm(&fit, 2) / math.Sqrt(float64(len(P))) / mean
	if o.MaxResidual > 0 {
		//the residual checked is that of the matching itself, before the fit.
		if math.Sqrt(bestssd/float64(len(P)))/mean > o.MaxResidual {
			return G, res, -1, nil, false
		}
	}
	return G, res, t, matched, true
}

//levi returns the Levi-Civita symbol.
func levi(i, j, k int) float64 {
	return float64((i - j) * (j - k) * (k - i) / 2)
}

//Analyze computes the correspondence tensor G, its inverse H and the Nye tensor for
//every atom in S, using the neighbor list nl of S and the ideal environments in
//templates. The results are also stored in S as the properties PropG, PropAlpha
//(both row-major 3x3), PropDefined and PropResidual. Atoms that can't be matched are
//flagged, never an error.
func Analyze(S *disloc.System, nl *NeighborList, templates []Template, o Options) (*Result, error) {
	if len(templates) == 0 {
		return nil, disloc.NewConfigError("no neighbor templates", "nye.Analyze")
	}
	if len(nl.Index) != S.Len() {
		return nil, disloc.NewConfigError(fmt.Sprintf("neighbor list for %d atoms, system has %d", len(nl.Index), S.Len()), "nye.Analyze")
	}
	if o.AngleTolerance <= 0 {
		o.AngleTolerance = DefaultAngleTolerance
	}
	n := S.Len()
	R := &Result{
		G:            make([][3][3]float64, n),
		H:            make([][3][3]float64, n),
		Alpha:        make([][3][3]float64, n),
		Residual:     make([]float64, n),
		Template:     make([]int, n),
		Defined:      make([]bool, n),
		AlphaDefined: make([]bool, n),
		matched:      make([][]int, n),
	}
	for i := 0; i < n; i++ {
		G, res, t, m, ok := correspondence(nl.Vectors[i], templates, o)
		R.Template[i] = t
		R.Residual[i] = res
		if !ok {
			continue
		}
		var h mat.Dense
		if err := h.Inverse(mat.NewDense(3, 3, []float64{G[0][0], G[0][1], G[0][2], G[1][0], G[1][1], G[1][2], G[2][0], G[2][1], G[2][2]})); err != nil {
			R.Template[i] = -1
			continue
		}
		R.G[i] = G
		R.H[i] = toArray(&h)
		R.Defined[i] = true
		R.matched[i] = m
	}
	for i := 0; i < n; i++ {
		if !R.Defined[i] {
			continue
		}
		R.Alpha[i], R.AlphaDefined[i] = R.nye(i, nl)
	}
	return R, R.Store(S)
}

//nye differentiates H around atom i by least squares over its matched, defined
//neighbors and returns alpha_ij = -e_ikl dH_lj/dx_k.
func (R *Result) nye(i int, nl *NeighborList) ([3][3]float64, bool) {
	var alpha [3][3]float64
	var D [][3]float64
	var dH [][]float64
	for _, pos := range R.matched[i] {
		j := nl.Index[i][pos]
		if !R.Defined[j] {
			continue
		}
		D = append(D, nl.Vectors[i][pos])
		row := make([]float64, 9)
		for l := 0; l < 3; l++ {
			for m := 0; m < 3; m++ {
				row[3*l+m] = R.H[j][l][m] - R.H[i][l][m]
			}
		}
		dH = append(dH, row)
	}
	if len(D) < 3 {
		return alpha, false
	}
	Y := mat.NewDense(len(dH), 9, nil)
	for r, row := range dH {
		Y.SetRow(r, row)
	}
	var grad mat.Dense //grad(k, 3l+j) = dH_lj/dx_k
	if err := grad.Solve(rows(D), Y); err != nil {
		return alpha, false
	}
	for a := 0; a < 3; a++ {
		for j := 0; j < 3; j++ {
			s := 0.0
			for k := 0; k < 3; k++ {
				for l := 0; l < 3; l++ {
					if e := levi(a, k, l); e != 0 {
						s -= e * grad.At(k, 3*l+j)
					}
				}
			}
			alpha[a][j] = s
		}
	}
	return alpha, true
}

//Store writes the results as per-atom properties of S.
func (R *Result) Store(S *disloc.System) error {
	n := len(R.G)
	g := make([]float64, 0, 9*n)
	a := make([]float64, 0, 9*n)
	def := make([]float64, n)
	for i := 0; i < n; i++ {
		for k := 0; k < 3; k++ {
			g = append(g, R.G[i][k][:]...)
			a = append(a, R.Alpha[i][k][:]...)
		}
		if R.Defined[i] {
			def[i] = 1
		}
	}
	for _, p := range []struct {
		name  string
		width int
		data  []float64
	}{{PropG, 9, g}, {PropAlpha, 9, a}, {PropDefined, 1, def}, {PropResidual, 1, R.Residual}} {
		if err := S.SetProp(p.name, p.width, p.data); err != nil {
			return disloc.ErrDecorate(err, "nye.Result.Store")
		}
	}
	return nil
}
