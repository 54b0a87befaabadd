package stroh

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/rmera/disloc"
	"github.com/rmera/disloc/elastic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//fccFrame is m=[-110], n=[111], line=[11-2], normalized.
func fccFrame() [3][3]float64 {
	s2, s3, s6 := math.Sqrt(2), math.Sqrt(3), math.Sqrt(6)
	return [3][3]float64{{-1 / s2, 1 / s2, 0}, {1 / s3, 1 / s3, 1 / s3}, {1 / s6, 1 / s6, -2 / s6}}
}

func copper(Te *testing.T) *Solution {
	c := elastic.Rotate(elastic.Cubic(169.9, 122.6, 76.2).C4(), fccFrame())
	S, err := Solve(c)
	require.NoError(Te, err)
	return S
}

func TestAnisotropic(Te *testing.T) {
	S := copper(Te)
	assert.False(Te, S.Perturbed)
	assert.Less(Te, S.Biorthogonality(), 1e-6)
	for a := 0; a < 3; a++ {
		assert.Greater(Te, imag(S.P[a]), 0.0)
		assert.Equal(Te, cmplx.Conj(S.P[a]), S.P[a+3])
		n := 0i
		for i := 0; i < 3; i++ {
			n += 2 * S.A[a][i] * S.L[a][i]
		}
		assert.InDelta(Te, 1, real(n), 1e-9)
		assert.InDelta(Te, 0, imag(n), 1e-9)
	}
	K := S.K()
	for i := 0; i < 3; i++ {
		assert.Greater(Te, K[i][i], 0.0)
		for j := 0; j < 3; j++ {
			assert.InDelta(Te, K[i][j], K[j][i], 1e-8*K[0][0])
		}
	}
}

//closure integrates the displacement gradient around a circle of radius r.
func closure(S *Solution, r float64, b [3]float64) [3]float64 {
	const n = 4096
	var sum [3]float64
	dt := 2 * math.Pi / n
	for k := 0; k < n; k++ {
		t := (float64(k) + 0.5) * dt
		x, y := r*math.Cos(t), r*math.Sin(t)
		g := S.DisplacementGradient(x, y, b)
		dx, dy := -r*math.Sin(t)*dt, r*math.Cos(t)*dt
		for i := 0; i < 3; i++ {
			sum[i] += g[i][0]*dx + g[i][1]*dy
		}
	}
	return sum
}

func TestLoopClosure(Te *testing.T) {
	b := [3]float64{1.2, 0.3, -0.5}
	sols := map[string]*Solution{"Cu": copper(Te)}
	iso, err := Solve(elastic.Isotropic(50, 0.3).C4())
	require.NoError(Te, err)
	sols["isotropic"] = iso
	for name, S := range sols {
		for _, r := range []float64{0.5, 3, 25, 120} {
			c := closure(S, r, b)
			for i := 0; i < 3; i++ {
				assert.InDelta(Te, b[i], c[i], 1e-6, "%s r=%g component %d", name, r, i)
			}
			//The jump across the cut, measured on the displacement itself.
			up := S.Displacement(-r, 1e-9*r, b)
			down := S.Displacement(-r, -1e-9*r, b)
			for i := 0; i < 3; i++ {
				assert.InDelta(Te, b[i], up[i]-down[i], 1e-6, "%s r=%g jump %d", name, r, i)
			}
		}
	}
}

func TestIsotropicScrew(Te *testing.T) {
	mu, nu := 48.0, 0.3
	S, err := Solve(elastic.Isotropic(mu, nu).C4())
	require.NoError(Te, err)
	assert.True(Te, S.Perturbed)
	assert.Less(Te, S.Biorthogonality(), 1e-6)
	b := [3]float64{0, 0, 2.5}
	for _, p := range [][2]float64{{1, 0.5}, {-3, 2}, {0.1, -7}, {-4, -4}, {10, 1e-3}, {0, 2}} {
		x, y := p[0], p[1]
		u := S.Displacement(x, y, b)
		want := b[2] / (2 * math.Pi) * math.Atan2(y, x)
		assert.InDelta(Te, want, u[2], 1e-4*math.Abs(want)+1e-12, "uz at %v", p)
		assert.InDelta(Te, 0, u[0], 1e-8)
		assert.InDelta(Te, 0, u[1], 1e-8)
		s := S.Stress(x, y, b)
		r2 := x*x + y*y
		assert.InDelta(Te, -mu*b[2]/(2*math.Pi)*y/r2, s[0][2], 1e-4*mu*b[2]/r2)
		assert.InDelta(Te, mu*b[2]/(2*math.Pi)*x/r2, s[1][2], 1e-4*mu*b[2]/r2)
	}
	K := S.K()
	assert.InDelta(Te, mu, K[2][2], 1e-4*mu)
	assert.InDelta(Te, mu*2.5*2.5/(4*math.Pi), S.PreLn(b), 1e-4*mu)
}

func TestIsotropicEdge(Te *testing.T) {
	mu, nu := 48.0, 0.3
	S, err := Solve(elastic.Isotropic(mu, nu).C4())
	require.NoError(Te, err)
	b := [3]float64{2.5, 0, 0}
	K := S.K()
	assert.InDelta(Te, mu/(1-nu), K[0][0], 1e-4*mu)
	assert.InDelta(Te, mu/(1-nu), K[1][1], 1e-4*mu)
	assert.InDelta(Te, 0, K[0][1], 1e-4*mu)
	D := mu * b[0] / (2 * math.Pi * (1 - nu))
	for _, p := range [][2]float64{{1, 0.5}, {-3, 2}, {0.1, -7}, {-4, -4}} {
		x, y := p[0], p[1]
		r2 := x*x + y*y
		u := S.Displacement(x, y, b)
		ux := b[0] / (2 * math.Pi) * (math.Atan2(y, x) + x*y/(2*(1-nu)*r2))
		assert.InDelta(Te, ux, u[0], 1e-4*b[0])
		assert.InDelta(Te, 0, u[2], 1e-8)
		s := S.Stress(x, y, b)
		tol := 1e-4 * D / math.Sqrt(r2)
		assert.InDelta(Te, -D*y*(3*x*x+y*y)/(r2*r2), s[0][0], tol)
		assert.InDelta(Te, D*y*(x*x-y*y)/(r2*r2), s[1][1], tol)
		assert.InDelta(Te, D*x*(x*x-y*y)/(r2*r2), s[0][1], tol)
		assert.InDelta(Te, nu*(s[0][0]+s[1][1]), s[2][2], tol)
	}
}

func TestOrigin(Te *testing.T) {
	S := copper(Te)
	u := S.Displacement(0, 0, [3]float64{1, 0, 0})
	for _, v := range u {
		assert.True(Te, math.IsNaN(v))
	}
	s := S.Stress(0, 0, [3]float64{1, 0, 0})
	assert.True(Te, math.IsNaN(s[0][0]))
}

func TestSolveFailures(Te *testing.T) {
	var zero elastic.C4
	_, err := Solve(zero)
	assert.True(Te, disloc.IsConfigError(err))
	_, err = Solve(elastic.Isotropic(50, 0.3).C4(), NoRetry())
	assert.True(Te, disloc.IsConfigError(err))
	//C55 and C44 of opposite sign give real roots for the antiplane mode.
	unstable := elastic.Cubic(100, 50, 30)
	unstable[4][4] = -30
	_, err = Solve(unstable.C4())
	assert.True(Te, disloc.IsConfigError(err))
	bad := elastic.Cubic(100, 50, 30).C4()
	bad[0][1][0][0] = 7
	_, err = Solve(bad)
	assert.True(Te, disloc.IsConfigError(err))
}
