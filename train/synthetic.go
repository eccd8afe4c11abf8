package train

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// Synthetic draws n toy samples. Every label owns a prototype made of one
// random unit vector per site; a sample is its label's prototype plus
// Gaussian noise of the given scale, renormalised per site. Labels cycle
// through 0..labels-1.
func Synthetic(rnd *rand.Rand, n, size, d, labels int, noise float64) []Sample {
	protos := make([][][]float64, labels)
	for l := range protos {
		protos[l] = make([][]float64, size)
		for i := range protos[l] {
			protos[l][i] = unit(randomVec(rnd, d, 1))
		}
	}

	out := make([]Sample, n)
	for k := range out {
		label := k % labels
		inputs := make([][]float64, size)
		for i := range inputs {
			v := randomVec(rnd, d, noise)
			floats.Add(v, protos[label][i])
			inputs[i] = unit(v)
		}
		out[k] = Sample{Inputs: inputs, Label: label}
	}
	return out
}

func randomVec(rnd *rand.Rand, d int, scale float64) []float64 {
	v := make([]float64, d)
	for i := range v {
		v[i] = scale * rnd.NormFloat64()
	}
	return v
}

func unit(v []float64) []float64 {
	if norm := floats.Norm(v, 2); norm > 0 {
		floats.Scale(1/norm, v)
	}
	return v
}
