// engine.go
package engine

import (
	"sync/atomic"

	"gorgonia.org/tensor"
)

// Eng is a tensor.Engine used by the graph-free contraction path. It
// delegates to tensor.StdEng and wraps MatMul with the shape checks the
// contraction relies on.
//
// Eng counts the matrix products it performs so callers can confirm that
// rejected inputs never reach the tensor layer. It is safe for concurrent
// use.
type Eng struct {
	tensor.StdEng

	muls atomic.Int64
}

// New constructs a new Eng.
func New() *Eng {
	return &Eng{
		StdEng: tensor.StdEng{},
	}
}

// MatMuls returns the number of MatMul calls made through e.
func (e *Eng) MatMuls() int64 {
	return e.muls.Load()
}

// Compile-time check that *Eng satisfies tensor.Engine.
var _ tensor.Engine = (*Eng)(nil)
