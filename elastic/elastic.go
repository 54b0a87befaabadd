/*
 * elastic.go, part of disloc.
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

//Package elastic holds elastic stiffness tensors in Voigt and full rank-4 form,
//their rotation between coordinate systems, and the checks on the orientation
//frames used to set up dislocations.
package elastic

import (
	"fmt"
	"math"

	"github.com/rmera/disloc"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

//voigt maps a pair of cartesian indices to the Voigt index (11,22,33,23,13,12).
var voigt = [3][3]int{
	{0, 5, 4},
	{5, 1, 3},
	{4, 3, 2},
}

//voigtPairs is the inverse of voigt.
var voigtPairs = [6][2]int{{0, 0}, {1, 1}, {2, 2}, {1, 2}, {0, 2}, {0, 1}}

//Cij is a 6x6 stiffness matrix in Voigt notation, in GPa.
type Cij [6][6]float64

//C4 is a rank-4 stiffness tensor, in GPa.
type C4 [3][3][3][3]float64

func (c Cij) max() float64 {
	m := 0.0
	for i := range c {
		for j := range c[i] {
			m = math.Max(m, math.Abs(c[i][j]))
		}
	}
	return m
}

//NewCij returns a Cij from a 6x6 row-major slice (or 36 numbers), checking
//that it is symmetric and not all zeros.
func NewCij(data []float64) (Cij, error) {
	var c Cij
	if len(data) != 36 {
		return c, disloc.NewConfigError(fmt.Sprintf("%d values given for a 6x6 stiffness matrix", len(data)), "elastic.NewCij")
	}
	for i := 0; i < 6; i++ {
		copy(c[i][:], data[6*i:6*i+6])
	}
	return c, c.Check()
}

//Check returns a ConfigError if the matrix is not symmetric, is empty or has non-finite components.
func (c Cij) Check() error {
	m := c.max()
	if m == 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		return disloc.NewConfigError("stiffness matrix is empty or not finite", "elastic.Cij.Check")
	}
	for i := 0; i < 6; i++ {
		for j := i + 1; j < 6; j++ {
			if math.Abs(c[i][j]-c[j][i]) > 1e-8*m {
				return disloc.NewConfigError(fmt.Sprintf("stiffness matrix is not symmetric: C%d%d=%g, C%d%d=%g", i+1, j+1, c[i][j], j+1, i+1, c[j][i]), "elastic.Cij.Check")
			}
		}
	}
	return nil
}

//Slice returns the 36 components, row-major.
func (c Cij) Slice() []float64 {
	r := make([]float64, 0, 36)
	for i := range c {
		r = append(r, c[i][:]...)
	}
	return r
}

//Dense returns the matrix as a gonum symmetric matrix.
func (c Cij) Dense() *mat.SymDense {
	s := mat.NewSymDense(6, nil)
	for i := 0; i < 6; i++ {
		for j := i; j < 6; j++ {
			s.SetSym(i, j, c[i][j])
		}
	}
	return s
}

//PositiveDefinite returns true if the matrix is positive definite, i.e. the
//crystal is mechanically stable.
func (c Cij) PositiveDefinite() bool {
	var ch mat.Cholesky
	return ch.Factorize(c.Dense())
}

//Isotropic returns the stiffness of an isotropic material with shear modulus mu and Poisson ratio nu.
func Isotropic(mu, nu float64) Cij {
	lambda := 2 * mu * nu / (1 - 2*nu)
	return IsotropicLame(lambda, mu)
}

//IsotropicLame returns the stiffness of an isotropic material with Lame constants lambda and mu.
func IsotropicLame(lambda, mu float64) Cij {
	return Cubic(lambda+2*mu, lambda, mu)
}

//Cubic returns the stiffness matrix of a cubic crystal.
func Cubic(c11, c12, c44 float64) Cij {
	var c Cij
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			c[i][j] = c12
		}
		c[i][i] = c11
		c[i+3][i+3] = c44
	}
	return c
}

//Hexagonal returns the stiffness matrix of a hexagonal crystal, with c along z.
func Hexagonal(c11, c12, c13, c33, c44 float64) Cij {
	var c Cij
	c[0][0], c[1][1], c[2][2] = c11, c11, c33
	c[0][1], c[1][0] = c12, c12
	c[0][2], c[2][0], c[1][2], c[2][1] = c13, c13, c13, c13
	c[3][3], c[4][4] = c44, c44
	c[5][5] = (c11 - c12) / 2
	return c
}

//C4 expands the Voigt matrix into the full rank-4 tensor.
func (c Cij) C4() C4 {
	var t C4
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				for l := 0; l < 3; l++ {
					t[i][j][k][l] = c[voigt[i][j]][voigt[k][l]]
				}
			}
		}
	}
	return t
}

//Cij compresses the tensor to Voigt notation. The tensor is assumed to have
//the minor symmetries.
func (t C4) Cij() Cij {
	var c Cij
	for a, p := range voigtPairs {
		for b, q := range voigtPairs {
			c[a][b] = t[p[0]][p[1]][q[0]][q[1]]
		}
	}
	return c
}

//Max returns the largest absolute component.
func (t C4) Max() float64 {
	m := 0.0
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				m = math.Max(m, floats.Norm(t[i][j][k][:], math.Inf(1)))
			}
		}
	}
	return m
}

//Scale returns the tensor multiplied by f.
func (t C4) Scale(f float64) C4 {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				floats.Scale(f, t[i][j][k][:])
			}
		}
	}
	return t
}

//Symmetric checks the major and minor symmetries C_ijkl = C_jikl = C_ijlk = C_klij,
//to within tol times the largest component. It returns a ConfigError naming the first
//violation.
func (t C4) Symmetric(tol float64) error {
	lim := tol * t.Max()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				for l := 0; l < 3; l++ {
					v := t[i][j][k][l]
					if math.Abs(v-t[j][i][k][l]) > lim || math.Abs(v-t[i][j][l][k]) > lim || math.Abs(v-t[k][l][i][j]) > lim {
						return disloc.NewConfigError(fmt.Sprintf("stiffness tensor lacks symmetry at C%d%d%d%d", i+1, j+1, k+1, l+1), "elastic.C4.Symmetric")
					}
				}
			}
		}
	}
	return nil
}

//Rotate returns C'_ijkl = T_ia T_jb T_kc T_ld C_abcd. The rows of T are the new
//axes expressed in the old frame.
func Rotate(c C4, T [3][3]float64) C4 {
	//the contraction is done one index at a time.
	var r1, r2, r3, r4 C4
	for i := 0; i < 3; i++ {
		for b := 0; b < 3; b++ {
			for cc := 0; cc < 3; cc++ {
				for d := 0; d < 3; d++ {
					s := 0.0
					for a := 0; a < 3; a++ {
						s += T[i][a] * c[a][b][cc][d]
					}
					r1[i][b][cc][d] = s
				}
			}
		}
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for cc := 0; cc < 3; cc++ {
				for d := 0; d < 3; d++ {
					s := 0.0
					for b := 0; b < 3; b++ {
						s += T[j][b] * r1[i][b][cc][d]
					}
					r2[i][j][cc][d] = s
				}
			}
		}
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				for d := 0; d < 3; d++ {
					s := 0.0
					for cc := 0; cc < 3; cc++ {
						s += T[k][cc] * r2[i][j][cc][d]
					}
					r3[i][j][k][d] = s
				}
			}
		}
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				for l := 0; l < 3; l++ {
					s := 0.0
					for d := 0; d < 3; d++ {
						s += T[l][d] * r3[i][j][k][d]
					}
					r4[i][j][k][l] = s
				}
			}
		}
	}
	return r4
}

//RotateCij expands c, rotates it with T and compresses it back.
func RotateCij(c Cij, T [3][3]float64) Cij {
	return Rotate(c.C4(), T).Cij()
}
