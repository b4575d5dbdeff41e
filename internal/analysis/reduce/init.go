package reduce

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// layoutScale is the half-width of the box the initial layout is scaled into.
const layoutScale = 10.0

// pcaLayout projects the centred data onto its leading principal axes and
// scales the result into [-layoutScale, layoutScale]. Component signs are
// fixed so that the largest loading of each axis is positive.
func pcaLayout(data [][]float64, components int) ([][]float64, error) {
	n := len(data)
	dim := len(data[0])

	X := mat.NewDense(n, dim, nil)
	for i, row := range data {
		X.SetRow(i, row)
	}
	for j := 0; j < dim; j++ {
		mean := stat.Mean(mat.Col(nil, j, X), nil)
		for i := 0; i < n; i++ {
			X.Set(i, j, X.At(i, j)-mean)
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(X, mat.SVDThin); !ok {
		return nil, errors.New("SVD factorization failed")
	}
	var v mat.Dense
	svd.VTo(&v)
	_, avail := v.Dims()

	layout := make([][]float64, n)
	for i := range layout {
		layout[i] = make([]float64, components)
	}

	for c := 0; c < components && c < avail; c++ {
		axis := mat.Col(nil, c, &v)
		sign := 1.0
		var largest float64
		for _, l := range axis {
			if math.Abs(l) > math.Abs(largest) {
				largest = l
			}
		}
		if largest < 0 {
			sign = -1
		}
		for i := 0; i < n; i++ {
			layout[i][c] = sign * mat.Dot(X.RowView(i), mat.NewVecDense(dim, axis))
		}
	}

	var maxAbs float64
	for _, row := range layout {
		for _, x := range row {
			maxAbs = math.Max(maxAbs, math.Abs(x))
		}
	}
	if maxAbs > 0 {
		for _, row := range layout {
			for c := range row {
				row[c] *= layoutScale / maxAbs
			}
		}
	}
	return layout, nil
}
