// Package mps implements a matrix product state classifier.
//
// A chain of size cores, one per input site, is contracted against one
// embedding vector per site. The resulting D x D bond matrices are
// multiplied together in a balanced binary tree and the final matrix is
// traced against every slice of a label core, giving one raw score per
// label.
//
// Two contraction paths are provided. Logits and Tape build the contraction
// on a gorgonia expression graph, so a scalar loss over the scores can be
// differentiated with respect to every core. Eval runs the same contraction
// directly on a tensor engine and is meant for inference.
package mps

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/csotherden/mpsnet/engine"
)

// Boundary is the boundary condition of the chain. It is recorded on the
// classifier but does not change the contraction yet.
type Boundary int

const (
	Periodic Boundary = iota
	Open
)

func (b Boundary) String() string {
	switch b {
	case Periodic:
		return "periodic"
	case Open:
		return "open"
	}
	return fmt.Sprintf("Boundary(%d)", int(b))
}

// ParseBoundary parses "open" or "periodic".
func ParseBoundary(s string) (Boundary, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "periodic":
		return Periodic, nil
	case "open":
		return Open, nil
	}
	return 0, errors.Errorf("mps: unknown boundary condition %q", s)
}

const (
	defaultPhysicalDim = 2
	defaultLabels      = 10
)

// Classifier owns the cores of one matrix product state and the label core.
type Classifier struct {
	size     int
	bond     int
	phys     int
	labels   int
	boundary Boundary

	cores []*Core
	label *Core

	eng *engine.Eng
	rnd *rand.Rand
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithPhysicalDim sets the embedding dimension d of every site. Default 2.
func WithPhysicalDim(d int) Option {
	return func(c *Classifier) { c.phys = d }
}

// WithLabels sets the number of labels. Default 10.
func WithLabels(n int) Option {
	return func(c *Classifier) { c.labels = n }
}

// WithBoundary sets the boundary condition. Default Periodic.
func WithBoundary(b Boundary) Option {
	return func(c *Classifier) { c.boundary = b }
}

// WithRand sets the source used to initialise the cores.
func WithRand(r *rand.Rand) Option {
	return func(c *Classifier) { c.rnd = r }
}

// WithSeed initialises the cores from a source seeded with seed.
func WithSeed(seed int64) Option {
	return func(c *Classifier) { c.rnd = rand.New(rand.NewSource(seed)) }
}

// WithEngine sets the engine used by Eval.
func WithEngine(e *engine.Eng) Option {
	return func(c *Classifier) { c.eng = e }
}

// New builds a classifier of size sites with bond dimension bond. Size is
// not required to be a power of two here; Logits and Eval reject such
// chains.
func New(size, bond int, opts ...Option) (*Classifier, error) {
	c := &Classifier{
		size:     size,
		bond:     bond,
		phys:     defaultPhysicalDim,
		labels:   defaultLabels,
		boundary: Periodic,
	}
	for _, opt := range opts {
		opt(c)
	}

	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidShape, "size %d", size)
	}
	if c.rnd == nil {
		c.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if c.eng == nil {
		c.eng = engine.New()
	}

	c.cores = make([]*Core, size)
	for i := range c.cores {
		core, err := NewCore(tensor.Shape{bond, bond, c.phys}, c.rnd)
		if err != nil {
			return nil, err
		}
		c.cores[i] = core
	}

	label, err := NewCore(tensor.Shape{bond, bond, c.labels}, c.rnd)
	if err != nil {
		return nil, err
	}
	c.label = label

	// The source is only needed for initialisation.
	c.rnd = nil
	return c, nil
}

func (c *Classifier) Size() int          { return c.size }
func (c *Classifier) Bond() int          { return c.bond }
func (c *Classifier) PhysicalDim() int   { return c.phys }
func (c *Classifier) Labels() int        { return c.labels }
func (c *Classifier) Boundary() Boundary { return c.boundary }

// Cores returns the site cores in chain order.
func (c *Classifier) Cores() []*Core { return c.cores }

// LabelCore returns the (D, D, labels) label core.
func (c *Classifier) LabelCore() *Core { return c.label }

// Params returns every trainable core: the site cores in order followed by
// the label core. Tape gradients use the same order.
func (c *Classifier) Params() []*Core {
	out := make([]*Core, 0, len(c.cores)+1)
	out = append(out, c.cores...)
	return append(out, c.label)
}

// validate checks inputs against the classifier geometry. It runs before
// any tensor work.
func (c *Classifier) validate(inputs [][]float64) error {
	if len(inputs) != c.size {
		return &ShapeMismatchError{What: "len(inputs)", Got: len(inputs), Want: c.size}
	}
	for i, v := range inputs {
		if len(v) != c.phys {
			return &ShapeMismatchError{What: fmt.Sprintf("dim(inputs[%d])", i), Got: len(v), Want: c.phys}
		}
	}
	if !isPowerOfTwo(c.size) {
		return &UnsupportedSizeError{Size: c.size}
	}
	return nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
