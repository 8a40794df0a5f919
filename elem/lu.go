package elem

import (
	"errors"
	"math"
)

// Small dense LU factorisation used by the Newton point-inversion loop. The
// systems here are at most 3x3, so a pivoted Crout factorisation beats
// pulling a full linear algebra stack into the hot path.

var errSingular = errors.New("elem: singular jacobian")

type luFactors struct {
	lu    []float64
	pivot []int
	n     int
}

func newLUFactors(n int) *luFactors {
	return &luFactors{
		lu:    make([]float64, n*n),
		pivot: make([]int, n),
		n:     n,
	}
}

// factorize decomposes the n x n row-major matrix vals in place of the
// factor buffers. It fails if the matrix is singular to working precision.
func (luf *luFactors) factorize(vals []float64) error {
	n := luf.n
	lu := luf.lu
	copy(lu, vals)

	var scale [3]float64
	for i := 0; i < n; i++ {
		max := 0.0
		for j := 0; j < n; j++ {
			if v := math.Abs(lu[i*n+j]); v > max {
				max = v
			}
		}
		if max == 0 {
			return errSingular
		}
		scale[i] = 1 / max
	}

	for k := 0; k < n; k++ {
		max, maxi := 0.0, k
		for i := k; i < n; i++ {
			if v := scale[i] * math.Abs(lu[i*n+k]); v > max {
				max, maxi = v, i
			}
		}

		if k != maxi {
			for j := 0; j < n; j++ {
				lu[k*n+j], lu[maxi*n+j] = lu[maxi*n+j], lu[k*n+j]
			}
			scale[maxi] = scale[k]
		}
		luf.pivot[k] = maxi

		if lu[k*n+k] == 0 {
			return errSingular
		}

		for i := k + 1; i < n; i++ {
			lu[i*n+k] /= lu[k*n+k]
			tmp := lu[i*n+k]
			for j := k + 1; j < n; j++ {
				lu[i*n+j] -= tmp * lu[k*n+j]
			}
		}
	}
	return nil
}

// solve computes xs such that M * xs = bs. bs and xs may alias.
func (luf *luFactors) solve(bs, xs []float64) {
	n := luf.n
	lu := luf.lu
	copy(xs, bs)

	// Forward substitution through L with the pivot permutation applied.
	for i := 0; i < n; i++ {
		piv := luf.pivot[i]
		sum := xs[piv]
		xs[piv] = xs[i]
		for j := 0; j < i; j++ {
			sum -= lu[i*n+j] * xs[j]
		}
		xs[i] = sum
	}

	// Back substitution through U.
	for i := n - 1; i >= 0; i-- {
		sum := xs[i]
		for j := i + 1; j < n; j++ {
			sum -= lu[i*n+j] * xs[j]
		}
		xs[i] = sum / lu[i*n+i]
	}
}
