// matmul.go
package engine

import (
	"fmt"

	"gorgonia.org/tensor"
)

// isRowMajorContiguous2D reports whether d is a 2D dense tensor with the
// standard row-major layout:
//
//	shape = [rows, cols]
//	strides = [cols, 1]
func isRowMajorContiguous2D(d *tensor.Dense) bool {
	if d.Dims() != 2 {
		return false
	}
	shape := d.Shape()
	strides := d.Strides()
	if len(shape) != 2 || len(strides) != 2 {
		return false
	}
	rows, cols := shape[0], shape[1]
	return strides[1] == 1 && strides[0] == cols && rows > 0 && cols > 0
}

// MatMul multiplies two dense row-major matrices into prealloc. Shapes are
// checked up front so a bad contraction fails with a descriptive error
// instead of deep inside StdEng. Anything that is not a plain 2D dense
// matrix (views, iterators, other tensor kinds) is handed to StdEng as is.
func (e *Eng) MatMul(a, b, prealloc tensor.Tensor) error {
	e.muls.Add(1)

	da, okA := a.(*tensor.Dense)
	db, okB := b.(*tensor.Dense)
	dc, okC := prealloc.(*tensor.Dense)
	if !okA || !okB || !okC {
		return e.StdEng.MatMul(a, b, prealloc)
	}

	if da.Dtype() != db.Dtype() || da.Dtype() != dc.Dtype() {
		return fmt.Errorf("engine: MatMul dtype mismatch: a=%v, b=%v, c=%v", da.Dtype(), db.Dtype(), dc.Dtype())
	}

	if !isRowMajorContiguous2D(da) || !isRowMajorContiguous2D(db) || !isRowMajorContiguous2D(dc) {
		return e.StdEng.MatMul(a, b, prealloc)
	}

	shapeA := da.Shape()
	shapeB := db.Shape()
	shapeC := dc.Shape()

	m, kA := shapeA[0], shapeA[1]
	kB, n := shapeB[0], shapeB[1]

	if kA != kB {
		return fmt.Errorf("engine: MatMul shape mismatch: a=%v, b=%v (inner dims %d vs %d)", shapeA, shapeB, kA, kB)
	}
	if shapeC[0] != m || shapeC[1] != n {
		return fmt.Errorf("engine: MatMul prealloc shape mismatch: expected [%d %d], got %v", m, n, shapeC)
	}

	return e.StdEng.MatMul(a, b, prealloc)
}

// Trace returns the trace of a square float64 matrix, computed the way the
// classifier readout defines it: the matrix is flattened row-major to a
// 1 x n*n row and multiplied with a flattened n x n identity.
func (e *Eng) Trace(a *tensor.Dense) (float64, error) {
	if a.Dtype() != tensor.Float64 {
		return 0, fmt.Errorf("engine: Trace needs float64, got %v", a.Dtype())
	}
	shape := a.Shape()
	if len(shape) != 2 || shape[0] != shape[1] {
		return 0, fmt.Errorf("engine: Trace needs a square matrix, got %v", shape)
	}
	n := shape[0]

	flat := a.ShallowClone()
	if err := flat.Reshape(1, n*n); err != nil {
		return 0, fmt.Errorf("engine: Trace reshape: %w", err)
	}

	eye := make([]float64, n*n)
	for i := 0; i < n; i++ {
		eye[i*n+i] = 1
	}
	eyeVec := tensor.New(
		tensor.WithShape(n*n, 1),
		tensor.WithBacking(eye),
	)

	out := make([]float64, 1)
	result := tensor.New(
		tensor.WithShape(1, 1),
		tensor.WithBacking(out),
	)
	if err := e.MatMul(flat, eyeVec, result); err != nil {
		return 0, err
	}
	return out[0], nil
}
