package mps

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestNewCore(t *testing.T) {
	core, err := NewCore(tensor.Shape{2, 3, 4}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Equal(t, tensor.Shape{2, 3, 4}, core.Shape())
	require.Equal(t, tensor.Shape{2, 3, 4}, core.Tensor().Shape())
	require.Equal(t, tensor.Float64, core.Tensor().Dtype())

	nonZero := 0
	for _, v := range core.data() {
		if v != 0 {
			nonZero++
		}
	}
	require.Equal(t, 24, nonZero)
}

func TestNewCoreInvalidShape(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for _, shape := range []tensor.Shape{
		{2, 2},
		{2, 2, 2, 2},
		{0, 2, 2},
		{2, -1, 2},
		{2, 2, 0},
	} {
		_, err := NewCore(shape, r)
		require.ErrorIs(t, err, ErrInvalidShape, "shape %v", shape)
	}
}

func TestCoreAsMatrixLayout(t *testing.T) {
	core, err := NewCore(tensor.Shape{2, 3, 4}, rand.New(rand.NewSource(2)))
	require.NoError(t, err)

	m := core.AsMatrix()
	require.Equal(t, tensor.Shape{6, 4}, m.Shape())
	// The core itself keeps its rank-3 shape.
	require.Equal(t, tensor.Shape{2, 3, 4}, core.Tensor().Shape())

	for l := 0; l < 2; l++ {
		for r := 0; r < 3; r++ {
			for p := 0; p < 4; p++ {
				want, err := core.Tensor().At(l, r, p)
				require.NoError(t, err)
				got, err := m.At(l*3+r, p)
				require.NoError(t, err)
				require.Equal(t, want, got)
			}
		}
	}
}

func TestCoreAsMatrixIsLive(t *testing.T) {
	core, err := NewCore(tensor.Shape{2, 2, 2}, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	m := core.AsMatrix()
	core.data()[5] = 42

	got, err := m.At(2, 1)
	require.NoError(t, err)
	require.Equal(t, 42.0, got)

	// A fresh view sees the update too.
	got, err = core.AsMatrix().At(2, 1)
	require.NoError(t, err)
	require.Equal(t, 42.0, got)
}

func TestCoreSlice(t *testing.T) {
	core, err := NewCore(tensor.Shape{2, 2, 3}, rand.New(rand.NewSource(4)))
	require.NoError(t, err)

	s, err := core.Slice(1)
	require.NoError(t, err)
	require.Equal(t, tensor.Shape{2, 2}, s.Shape())
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			want, err := core.Tensor().At(i, j, 1)
			require.NoError(t, err)
			got, err := s.At(i, j)
			require.NoError(t, err)
			require.Equal(t, want, got)
		}
	}

	_, err = core.Slice(3)
	require.Error(t, err)
	_, err = core.Slice(-1)
	require.Error(t, err)
}
