package mps

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gorgonia.org/tensor"
)

// Eval computes the same scores as Logits directly on the classifier's
// engine, without building a graph. It only reads the cores and may be
// called concurrently, as long as no optimizer step runs at the same time.
func (c *Classifier) Eval(inputs [][]float64) ([]float64, error) {
	if err := c.validate(inputs); err != nil {
		return nil, err
	}

	D, d := c.bond, c.phys
	mats := make([]*tensor.Dense, c.size)
	for i, core := range c.cores {
		backing := make([]float64, d)
		copy(backing, inputs[i])
		x := tensor.New(
			tensor.WithShape(d, 1),
			tensor.WithBacking(backing),
		)
		m := newMatrix(D*D, 1)
		if err := c.eng.MatMul(core.AsMatrix(), x, m); err != nil {
			return nil, errors.Wrapf(err, "mps: site %d", i)
		}
		if err := m.Reshape(D, D); err != nil {
			return nil, errors.Wrapf(err, "mps: site %d", i)
		}
		mats[i] = m
	}

	final, err := reduce(mats, c.matMul)
	if err != nil {
		return nil, errors.Wrap(err, "mps: reducing bond matrices")
	}

	scores := make([]float64, c.labels)
	for l := range scores {
		slice, err := c.label.Slice(l)
		if err != nil {
			return nil, err
		}
		prod, err := c.matMul(final, slice)
		if err != nil {
			return nil, errors.Wrapf(err, "mps: label %d", l)
		}
		if scores[l], err = c.eng.Trace(prod); err != nil {
			return nil, errors.Wrapf(err, "mps: label %d", l)
		}
	}
	return scores, nil
}

func (c *Classifier) matMul(a, b *tensor.Dense) (*tensor.Dense, error) {
	out := newMatrix(a.Shape()[0], b.Shape()[1])
	if err := c.eng.MatMul(a, b, out); err != nil {
		return nil, err
	}
	return out, nil
}

func newMatrix(rows, cols int) *tensor.Dense {
	return tensor.New(
		tensor.WithShape(rows, cols),
		tensor.WithBacking(make([]float64, rows*cols)),
	)
}

// EvalBatch runs Eval for every sample in parallel. Results are in sample
// order. The first failing sample cancels the rest.
func (c *Classifier) EvalBatch(ctx context.Context, samples [][][]float64) ([][]float64, error) {
	out := make([][]float64, len(samples))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, s := range samples {
		i, s := i, s
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			scores, err := c.Eval(s)
			if err != nil {
				return errors.Wrapf(err, "mps: sample %d", i)
			}
			out[i] = scores
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Predict returns the label with the highest score.
func (c *Classifier) Predict(inputs [][]float64) (int, error) {
	scores, err := c.Eval(inputs)
	if err != nil {
		return 0, err
	}
	return floats.MaxIdx(scores), nil
}
