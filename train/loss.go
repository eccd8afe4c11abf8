// Package train fits an mps.Classifier with gorgonia's solvers.
package train

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// CrossEntropy builds -log softmax(logits)[label] on g.
//
// The scores are shifted by shift before exponentiation. shift enters the
// graph as a constant input, so it cancels out of both the loss and its
// gradient; pass the largest score of the sample to keep exp from
// overflowing.
func CrossEntropy(g *gorgonia.ExprGraph, logits *gorgonia.Node, label int, shift float64) (*gorgonia.Node, error) {
	shape := logits.Shape()
	if len(shape) != 1 {
		return nil, errors.Errorf("train: logits shape %v is not a vector", shape)
	}
	n := shape[0]
	if label < 0 || label >= n {
		return nil, errors.Errorf("train: label %d out of range [0, %d)", label, n)
	}

	oneHot := make([]float64, n)
	oneHot[label] = 1
	target := gorgonia.NewVector(g, tensor.Float64,
		gorgonia.WithShape(n),
		gorgonia.WithName(fmt.Sprintf("target_%d", logits.ID())),
		gorgonia.WithValue(tensor.New(tensor.WithShape(n), tensor.WithBacking(oneHot))),
	)
	c := gorgonia.NewScalar(g, tensor.Float64,
		gorgonia.WithName(fmt.Sprintf("shift_%d", logits.ID())),
		gorgonia.WithValue(shift),
	)

	shifted, err := gorgonia.Sub(logits, c)
	if err != nil {
		return nil, errors.Wrap(err, "train: shift")
	}
	exp, err := gorgonia.Exp(shifted)
	if err != nil {
		return nil, errors.Wrap(err, "train: exp")
	}
	sum, err := gorgonia.Sum(exp)
	if err != nil {
		return nil, errors.Wrap(err, "train: sum")
	}
	lse, err := gorgonia.Log(sum)
	if err != nil {
		return nil, errors.Wrap(err, "train: log")
	}
	picked, err := gorgonia.Mul(target, shifted)
	if err != nil {
		return nil, errors.Wrap(err, "train: pick label")
	}
	return gorgonia.Sub(lse, picked)
}

// crossEntropy is CrossEntropy evaluated on plain scores.
func crossEntropy(scores []float64, label int) float64 {
	shift := floats.Max(scores)
	var sum float64
	for _, s := range scores {
		sum += math.Exp(s - shift)
	}
	return math.Log(sum) - (scores[label] - shift)
}
