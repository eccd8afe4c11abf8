package mps

import (
	"math/rand"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Core is one trainable rank-3 tensor of shape (left bond, right bond,
// physical).
type Core struct {
	shape tensor.Shape
	t     *tensor.Dense
}

// NewCore allocates a core of the given (D_left, D_right, d) shape filled
// with independent standard normal values drawn from rnd.
func NewCore(shape tensor.Shape, rnd *rand.Rand) (*Core, error) {
	if len(shape) != 3 {
		return nil, errors.Wrapf(ErrInvalidShape, "core shape %v is not rank 3", shape)
	}
	for _, s := range shape {
		if s <= 0 {
			return nil, errors.Wrapf(ErrInvalidShape, "core shape %v", shape)
		}
	}

	data := make([]float64, shape.TotalSize())
	for i := range data {
		data[i] = rnd.NormFloat64()
	}
	return &Core{
		shape: shape.Clone(),
		t: tensor.New(
			tensor.WithShape(shape...),
			tensor.WithBacking(data),
		),
	}, nil
}

// Shape returns (D_left, D_right, d).
func (c *Core) Shape() tensor.Shape { return c.shape.Clone() }

// Tensor returns the live parameter tensor. Optimizers update it in place.
func (c *Core) Tensor() *tensor.Dense { return c.t }

// AsMatrix returns a (D_left*D_right) x d view of the core. The view shares
// the core's backing array, so it always reflects the current parameter
// values. Row l*D_right+r holds tensor[l, r, :].
func (c *Core) AsMatrix() *tensor.Dense {
	m := c.t.ShallowClone()
	// Reshape of a contiguous shallow clone cannot fail for a matching size.
	_ = m.Reshape(c.shape[0]*c.shape[1], c.shape[2])
	return m
}

// Slice copies tensor[:, :, k] into a new D_left x D_right matrix.
func (c *Core) Slice(k int) (*tensor.Dense, error) {
	dl, dr, d := c.shape[0], c.shape[1], c.shape[2]
	if k < 0 || k >= d {
		return nil, errors.Errorf("mps: slice %d out of range [0, %d)", k, d)
	}
	src := c.data()
	out := make([]float64, dl*dr)
	for row := 0; row < dl*dr; row++ {
		out[row] = src[row*d+k]
	}
	return tensor.New(
		tensor.WithShape(dl, dr),
		tensor.WithBacking(out),
	), nil
}

func (c *Core) data() []float64 {
	return c.t.Data().([]float64)
}
