/*
 * stroh.go, part of disloc.
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

//Package stroh solves the sextic eigenvalue problem of anisotropic linear elasticity
//for a straight dislocation (the Stroh formalism) and evaluates the resulting
//displacement and stress fields, the energy coefficient tensor K and the pre-ln
//energy factor.
//
//The frame is the dislocation frame: x is m, y the slip plane normal n, and z the
//line direction. The stiffness tensor given to Solve must already be rotated into it.
package stroh

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"github.com/rmera/disloc"
	"github.com/rmera/disloc/elastic"
	"gonum.org/v1/gonum/mat"
)

//Default tolerances.
const (
	//DefaultPerturbation is the relative change applied to C_1111 when the
	//eigenproblem is degenerate.
	DefaultPerturbation = 1e-5
	//DegeneracyTol is the relative distance below which two eigenvalues are
	//considered the same.
	DegeneracyTol = 1e-5
	//PairTol is the relative tolerance for the complex conjugate pairing.
	PairTol = 1e-6
	//BiorthogonalityTol is the largest deviation from identity accepted for XᵀJX.
	BiorthogonalityTol = 1e-6
)

//Solution is the Stroh eigensystem for one stiffness tensor and orientation. The first
//three modes have Im(P)>0 and modes 3-5 are their exact complex conjugates. A and L
//are normalized so that 2 A_α·L_α = 1. Once built, a Solution is never modified
//and can be used concurrently.
type Solution struct {
	P         [6]complex128
	A         [6][3]complex128
	L         [6][3]complex128
	C         elastic.C4 //The tensor actually used, perturbed if Perturbed is true.
	Perturbed bool
}

type options struct {
	perturbation float64
	retry        bool
}

//Option modifies the behavior of Solve.
type Option func(*options)

//WithPerturbation sets the relative change in C_1111 used to break degeneracies.
func WithPerturbation(delta float64) Option {
	return func(o *options) { o.perturbation = delta }
}

//NoRetry makes Solve fail at once on a degenerate eigenproblem.
func NoRetry() Option {
	return func(o *options) { o.retry = false }
}

//degenerate signals a degenerate eigenproblem, which may be fixed by perturbing the tensor.
type degenerate struct{ reason string }

func (d degenerate) Error() string { return "degenerate Stroh eigenproblem: " + d.reason }

//Solve builds and solves the sextic eigenproblem for the stiffness tensor c, in GPa.
//If the problem is degenerate, as for isotropic materials, it is solved again once for a
//slightly perturbed tensor. A failure after that, a singular or unstable tensor give
//a ConfigError.
func Solve(c elastic.C4, opts ...Option) (*Solution, error) {
	o := options{perturbation: DefaultPerturbation, retry: true}
	for _, f := range opts {
		f(&o)
	}
	if err := c.Symmetric(1e-8); err != nil {
		return nil, disloc.ErrDecorate(err, "stroh.Solve")
	}
	s, err := solve(c)
	if err == nil {
		return s, nil
	}
	d, ok := err.(degenerate)
	if !ok {
		return nil, err
	}
	if !o.retry || o.perturbation == 0 {
		return nil, disloc.WrapConfigError(d, "no retry allowed", "stroh.Solve")
	}
	p := c
	p[0][0][0][0] *= 1 + o.perturbation
	s, err = solve(p)
	if err != nil {
		return nil, disloc.WrapConfigError(err, fmt.Sprintf("still degenerate after perturbing C1111 by %g", o.perturbation), "stroh.Solve")
	}
	s.Perturbed = true
	return s, nil
}

//mat3 returns the 3x3 matrix M_ik = sum_jl a_j C_ijkl b_l.
func mat3(c *elastic.C4, a, b int) *mat.Dense {
	m := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for k := 0; k < 3; k++ {
			m.Set(i, k, c[i][a][k][b])
		}
	}
	return m
}

//solve does the work for Solve, on the given tensor, without retries.
func solve(c elastic.C4) (*Solution, error) {
	scale := c.Max()
	if scale == 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, disloc.NewConfigError("stiffness tensor is empty or not finite", "stroh.solve")
	}
	cs := c.Scale(1 / scale)
	mm := mat3(&cs, 0, 0)
	mn := mat3(&cs, 0, 1)
	nm := mat3(&cs, 1, 0)
	nn := mat3(&cs, 1, 1)
	var nninv mat.Dense
	if err := nninv.Inverse(nn); err != nil {
		return nil, disloc.WrapConfigError(err, "singular (nn) matrix", "stroh.solve")
	}
	var n1, n3, tmp mat.Dense
	n1.Mul(&nninv, nm)
	n1.Scale(-1, &n1) //-nn⁻¹ nm
	tmp.Mul(mn, &nninv)
	n3.Mul(&tmp, nm)
	n3.Sub(&n3, mm) //mn nn⁻¹ nm - mm
	N := mat.NewDense(6, 6, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			N.Set(i, j, n1.At(i, j))
			N.Set(i, j+3, nninv.At(i, j))
			N.Set(i+3, j, n3.At(i, j))
			N.Set(i+3, j+3, n1.At(j, i))
		}
	}
	var eig mat.Eigen
	if ok := eig.Factorize(N, mat.EigenRight); !ok {
		return nil, disloc.NewConfigError("eigendecomposition failed", "stroh.solve")
	}
	vals := eig.Values(nil)
	var vecs mat.CDense
	eig.VectorsTo(&vecs)

	up, err := pairModes(vals)
	if err != nil {
		return nil, err
	}
	S := &Solution{C: c}
	for k, a := range up {
		S.P[k] = vals[a]
		S.P[k+3] = cmplx.Conj(vals[a])
		var xi [6]complex128
		for i := 0; i < 6; i++ {
			xi[i] = vecs.At(i, a)
		}
		norm := 0i
		for i := 0; i < 3; i++ {
			norm += 2 * xi[i] * xi[i+3]
		}
		size := 0.0
		for i := 0; i < 6; i++ {
			size += real(xi[i] * cmplx.Conj(xi[i]))
		}
		if cmplx.Abs(norm) < 1e-8*size {
			return nil, degenerate{fmt.Sprintf("vanishing normalization for p=%v", vals[a])}
		}
		f := cmplx.Sqrt(norm)
		//the factors restore the physical units of the scaled problem.
		for i := 0; i < 3; i++ {
			S.A[k][i] = xi[i] / f / complex(math.Sqrt(scale), 0)
			S.L[k][i] = xi[i+3] / f * complex(math.Sqrt(scale), 0)
			S.A[k+3][i] = cmplx.Conj(S.A[k][i])
			S.L[k+3][i] = cmplx.Conj(S.L[k][i])
		}
	}
	if b := S.Biorthogonality(); b > BiorthogonalityTol {
		return nil, degenerate{fmt.Sprintf("eigenvectors are not biorthogonal (%g)", b)}
	}
	return S, nil
}

//pairModes returns the indexes of the three eigenvalues with Im(p)>0, sorted by
//real and then imaginary part, after checking that each of them has its own complex
//conjugate among the other three. It fails if some eigenvalue is real, if the pairing
//is not exact within PairTol or, with a degenerate error, if two of the upper
//eigenvalues coincide.
func pairModes(vals []complex128) (up [3]int, err error) {
	var u, l []int
	for i, p := range vals {
		scale := math.Max(1, cmplx.Abs(p))
		switch {
		case imag(p) > 1e-10*scale:
			u = append(u, i)
		case imag(p) < -1e-10*scale:
			l = append(l, i)
		default:
			return up, disloc.NewConfigError(fmt.Sprintf("real eigenvalue %v, the material is not stable", p), "stroh.pairModes")
		}
	}
	if len(u) != 3 || len(l) != 3 {
		return up, disloc.NewConfigError(fmt.Sprintf("%d eigenvalues in the upper half plane, expected 3", len(u)), "stroh.pairModes")
	}
	sort.Slice(u, func(i, j int) bool {
		a, b := vals[u[i]], vals[u[j]]
		if real(a) != real(b) {
			return real(a) < real(b)
		}
		return imag(a) < imag(b)
	})
	used := [3]bool{}
	for k, a := range u {
		up[k] = a
		best, bestd := -1, math.Inf(1)
		for m, b := range l {
			if used[m] {
				continue
			}
			if d := cmplx.Abs(vals[b] - cmplx.Conj(vals[a])); d < bestd {
				best, bestd = m, d
			}
		}
		if best < 0 || bestd > PairTol*math.Max(1, cmplx.Abs(vals[a])) {
			return up, disloc.NewConfigError(fmt.Sprintf("eigenvalue %v has no complex conjugate partner", vals[a]), "stroh.pairModes")
		}
		used[best] = true
	}
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			pi, pj := vals[up[i]], vals[up[j]]
			if cmplx.Abs(pi-pj) < DegeneracyTol*math.Max(cmplx.Abs(pi), cmplx.Abs(pj)) {
				return up, degenerate{fmt.Sprintf("eigenvalues %v and %v coincide", pi, pj)}
			}
		}
	}
	return up, nil
}

//Biorthogonality returns the largest absolute deviation of XᵀJX from the identity,
//where the columns of X are the six (A, L) eigenvectors and J = [[0 I] [I 0]].
func (S *Solution) Biorthogonality() float64 {
	dev := 0.0
	for a := 0; a < 6; a++ {
		for b := 0; b < 6; b++ {
			v := 0i
			for i := 0; i < 3; i++ {
				v += S.A[a][i]*S.L[b][i] + S.L[a][i]*S.A[b][i]
			}
			if a == b {
				v--
			}
			dev = math.Max(dev, cmplx.Abs(v))
		}
	}
	return dev
}

//coefs returns A_α (L_α·b) for the three upper modes.
func (S *Solution) coefs(b [3]float64) [3][3]complex128 {
	var c [3][3]complex128
	for a := 0; a < 3; a++ {
		lb := S.L[a][0]*complex(b[0], 0) + S.L[a][1]*complex(b[1], 0) + S.L[a][2]*complex(b[2], 0)
		for i := 0; i < 3; i++ {
			c[a][i] = S.A[a][i] * lb
		}
	}
	return c
}

func nan3() [3]float64 { return [3]float64{math.NaN(), math.NaN(), math.NaN()} }

//Displacement returns the displacement at (x, y) of a dislocation at the origin with
//Burgers vector b, both in the dislocation frame. The branch cut lies on the negative
//x axis, so the displacement jumps by b when crossing the slip plane behind the core.
//At the origin all components are NaN.
func (S *Solution) Displacement(x, y float64, b [3]float64) [3]float64 {
	if x == 0 && y == 0 {
		return nan3()
	}
	c := S.coefs(b)
	var u [3]float64
	for a := 0; a < 3; a++ {
		lz := cmplx.Log(complex(x, 0) + S.P[a]*complex(y, 0))
		for i := 0; i < 3; i++ {
			u[i] += imag(c[a][i]*lz) / math.Pi
		}
	}
	return u
}

//DisplacementGradient returns G_ij = du_i/dx_j at (x, y). The third column is zero.
func (S *Solution) DisplacementGradient(x, y float64, b [3]float64) [3][3]float64 {
	var g [3][3]float64
	if x == 0 && y == 0 {
		return [3][3]float64{nan3(), nan3(), nan3()}
	}
	c := S.coefs(b)
	for a := 0; a < 3; a++ {
		inv := 1 / (complex(x, 0) + S.P[a]*complex(y, 0))
		for i := 0; i < 3; i++ {
			g[i][0] += imag(c[a][i]*inv) / math.Pi
			g[i][1] += imag(c[a][i]*S.P[a]*inv) / math.Pi
		}
	}
	return g
}

//Stress returns the stress tensor, in GPa, at (x, y).
func (S *Solution) Stress(x, y float64, b [3]float64) [3][3]float64 {
	g := S.DisplacementGradient(x, y, b)
	var s [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				for l := 0; l < 3; l++ {
					s[i][j] += S.C[i][j][k][l] * g[k][l]
				}
			}
		}
	}
	return s
}

//K returns the energy coefficient tensor, K = -i sum_α ±L_α⊗L_α with + for the
//upper modes, in GPa.
func (S *Solution) K() [3][3]float64 {
	var k [3][3]float64
	for a := 0; a < 3; a++ {
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				k[i][j] += 2 * imag(S.L[a][i]*S.L[a][j])
			}
		}
	}
	return k
}

//PreLn returns the pre-logarithmic energy factor b·K·b/4π for the Burgers vector b in Å,
//in GPa·Å², i.e. the energy per unit length of line is PreLn ln(R/r0).
func (S *Solution) PreLn(b [3]float64) float64 {
	k := S.K()
	e := 0.0
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			e += b[i] * k[i][j] * b[j]
		}
	}
	return e / (4 * math.Pi)
}
