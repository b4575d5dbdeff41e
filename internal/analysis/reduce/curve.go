package reduce

import (
	"math"

	"gonum.org/v1/gonum/optimize"
)

const curveSamples = 300

// fitAB fits a and b of the low-dimensional similarity 1 / (1 + a*d^(2b)) to
// the target curve defined by minDist and spread.
func fitAB(spread, minDist float64) (a, b float64) {
	xs := make([]float64, curveSamples)
	ys := make([]float64, curveSamples)
	for i := range xs {
		x := 3 * spread * float64(i) / float64(curveSamples-1)
		xs[i] = x
		if x < minDist {
			ys[i] = 1
		} else {
			ys[i] = math.Exp(-(x - minDist) / spread)
		}
	}

	loss := func(p []float64) float64 {
		a, b := p[0], p[1]
		if a <= 0 || b <= 0 {
			return math.Inf(1)
		}
		var sum float64
		for i, x := range xs {
			r := 1/(1+a*math.Pow(x, 2*b)) - ys[i]
			sum += r * r
		}
		return sum
	}

	result, err := optimize.Minimize(
		optimize.Problem{Func: loss},
		[]float64{1.8956, 0.8006},
		&optimize.Settings{MajorIterations: 2000},
		&optimize.NelderMead{},
	)
	if err != nil || result == nil || math.IsInf(result.F, 0) {
		return 1.8956, 0.8006
	}
	return result.X[0], result.X[1]
}
