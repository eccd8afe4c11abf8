package mps

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// params are the learnable nodes of one expression graph. Each node is
// bound to the live tensor of the matching core.
type params struct {
	cores []*gorgonia.Node
	label *gorgonia.Node
}

func (p *params) nodes() gorgonia.Nodes {
	out := make(gorgonia.Nodes, 0, len(p.cores)+1)
	out = append(out, p.cores...)
	return append(out, p.label)
}

func (c *Classifier) bind(g *gorgonia.ExprGraph) *params {
	p := &params{cores: make([]*gorgonia.Node, len(c.cores))}
	for i, core := range c.cores {
		p.cores[i] = gorgonia.NewTensor(g, tensor.Float64, 3,
			gorgonia.WithShape(core.shape...),
			gorgonia.WithName(fmt.Sprintf("core_%d", i)),
			gorgonia.WithValue(core.t),
		)
	}
	p.label = gorgonia.NewTensor(g, tensor.Float64, 3,
		gorgonia.WithShape(c.label.shape...),
		gorgonia.WithName("label_core"),
		gorgonia.WithValue(c.label.t),
	)
	return p
}

// contract adds the full contraction of one sample to g and returns the
// node holding its scores. tag keeps input node names unique when several
// samples share a graph.
func (c *Classifier) contract(g *gorgonia.ExprGraph, p *params, inputs [][]float64, tag string) (*gorgonia.Node, error) {
	mats, err := c.contractInput(g, p, inputs, tag)
	if err != nil {
		return nil, err
	}
	final, err := reduce(mats, func(a, b *gorgonia.Node) (*gorgonia.Node, error) {
		return gorgonia.Mul(a, b)
	})
	if err != nil {
		return nil, errors.Wrap(err, "mps: reducing bond matrices")
	}
	return c.readout(final, p.label)
}

// contractInput multiplies every core, viewed as a (D*D) x d matrix, with
// the site's input vector and reshapes the result to D x D. Inputs enter
// the graph as plain values and are never differentiated.
func (c *Classifier) contractInput(g *gorgonia.ExprGraph, p *params, inputs [][]float64, tag string) ([]*gorgonia.Node, error) {
	D, d := c.bond, c.phys
	out := make([]*gorgonia.Node, len(inputs))
	for i, vec := range inputs {
		backing := make([]float64, d)
		copy(backing, vec)
		x := gorgonia.NewVector(g, tensor.Float64,
			gorgonia.WithShape(d),
			gorgonia.WithName(fmt.Sprintf("%s_%d", tag, i)),
			gorgonia.WithValue(tensor.New(
				tensor.WithShape(d),
				tensor.WithBacking(backing),
			)),
		)

		m, err := gorgonia.Reshape(p.cores[i], tensor.Shape{D * D, d})
		if err != nil {
			return nil, errors.Wrapf(err, "mps: site %d", i)
		}
		v, err := gorgonia.Mul(m, x)
		if err != nil {
			return nil, errors.Wrapf(err, "mps: site %d", i)
		}
		if out[i], err = gorgonia.Reshape(v, tensor.Shape{D, D}); err != nil {
			return nil, errors.Wrapf(err, "mps: site %d", i)
		}
	}
	return out, nil
}

// readout computes trace(final @ label[:, :, l]) for every label l as a
// single matrix-vector product:
//
//	trace(F L_l) = sum_ij F[i,j] L[j,i,l] = (vec(F^T) . label(D*D, labels)[:, l])
//
// where vec is the row-major flattening.
func (c *Classifier) readout(final, label *gorgonia.Node) (*gorgonia.Node, error) {
	D, L := c.bond, c.labels

	ft, err := gorgonia.Transpose(final)
	if err != nil {
		return nil, errors.Wrap(err, "mps: readout")
	}
	flat, err := gorgonia.Reshape(ft, tensor.Shape{D * D})
	if err != nil {
		return nil, errors.Wrap(err, "mps: readout")
	}
	lm, err := gorgonia.Reshape(label, tensor.Shape{D * D, L})
	if err != nil {
		return nil, errors.Wrap(err, "mps: readout")
	}
	lmT, err := gorgonia.Transpose(lm)
	if err != nil {
		return nil, errors.Wrap(err, "mps: readout")
	}
	scores, err := gorgonia.Mul(lmT, flat)
	if err != nil {
		return nil, errors.Wrap(err, "mps: readout")
	}
	return scores, nil
}

// Logits returns the raw, pre-softmax score of every label for one sample.
// inputs holds one embedding vector of length d per site, in chain order.
//
// The input is validated before any tensor work: a wrong number of vectors
// or a wrong vector length fails with a *ShapeMismatchError, a chain length
// that is not a power of two with an *UnsupportedSizeError.
func (c *Classifier) Logits(inputs [][]float64) ([]float64, error) {
	if err := c.validate(inputs); err != nil {
		return nil, err
	}

	g := gorgonia.NewGraph()
	p := c.bind(g)
	out, err := c.contract(g, p, inputs, "x")
	if err != nil {
		return nil, err
	}

	vm := gorgonia.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		return nil, errors.Wrap(err, "mps: running contraction")
	}
	return floatsOf(out.Value())
}

// Tape is one differentiable forward pass of one or more samples. All
// samples share a single set of learnable parameter nodes, so a cost built
// from several Logits nodes yields their accumulated gradient.
//
// A Tape is single use: build the cost on Graph, call Backward once, read
// Gradients or hand Learnables to a solver, then Commit and Close.
type Tape struct {
	c      *Classifier
	g      *gorgonia.ExprGraph
	p      *params
	logits []*gorgonia.Node
	vm     gorgonia.VM
}

// NewTape validates every sample and builds its contraction on a fresh
// graph.
func (c *Classifier) NewTape(samples ...[][]float64) (*Tape, error) {
	if len(samples) == 0 {
		return nil, errors.New("mps: tape needs at least one sample")
	}
	for _, s := range samples {
		if err := c.validate(s); err != nil {
			return nil, err
		}
	}

	g := gorgonia.NewGraph()
	t := &Tape{
		c:      c,
		g:      g,
		p:      c.bind(g),
		logits: make([]*gorgonia.Node, len(samples)),
	}
	for i, s := range samples {
		out, err := c.contract(g, t.p, s, fmt.Sprintf("x%d", i))
		if err != nil {
			return nil, err
		}
		t.logits[i] = out
	}
	return t, nil
}

// Graph returns the expression graph costs must be built on.
func (t *Tape) Graph() *gorgonia.ExprGraph { return t.g }

// Logits returns the score node of sample i.
func (t *Tape) Logits(i int) *gorgonia.Node { return t.logits[i] }

// Len returns the number of samples on the tape.
func (t *Tape) Len() int { return len(t.logits) }

// Learnables returns the parameter nodes in Classifier.Params order.
func (t *Tape) Learnables() gorgonia.Nodes { return t.p.nodes() }

// Backward differentiates cost with respect to every parameter node and
// runs the graph. cost must be a scalar node on Graph.
func (t *Tape) Backward(cost *gorgonia.Node) error {
	if t.vm != nil {
		return errors.New("mps: tape already run")
	}
	learnables := t.p.nodes()
	if _, err := gorgonia.Grad(cost, learnables...); err != nil {
		return errors.Wrap(err, "mps: building gradient")
	}
	t.vm = gorgonia.NewTapeMachine(t.g, gorgonia.BindDualValues(learnables...))
	if err := t.vm.RunAll(); err != nil {
		return errors.Wrap(err, "mps: running tape")
	}
	return nil
}

// Scores returns the computed scores of sample i. Valid after Backward.
func (t *Tape) Scores(i int) ([]float64, error) {
	if t.vm == nil {
		return nil, errors.New("mps: tape not run")
	}
	return floatsOf(t.logits[i].Value())
}

// Gradients returns a copy of the gradient of every parameter, in
// Classifier.Params order. Valid after Backward.
func (t *Tape) Gradients() ([]*tensor.Dense, error) {
	if t.vm == nil {
		return nil, errors.New("mps: tape not run")
	}
	learnables := t.p.nodes()
	out := make([]*tensor.Dense, len(learnables))
	for i, n := range learnables {
		gv, err := n.Grad()
		if err != nil {
			return nil, errors.Wrapf(err, "mps: gradient of %s", n.Name())
		}
		gd, ok := gv.(*tensor.Dense)
		if !ok {
			return nil, errors.Errorf("mps: gradient of %s is %T, not *tensor.Dense", n.Name(), gv)
		}
		out[i] = gd.Clone().(*tensor.Dense)
	}
	return out, nil
}

// Commit writes the current value of every parameter node back into the
// classifier's cores. Solvers update node values in place, in which case
// Commit has nothing to copy.
func (t *Tape) Commit() error {
	params := t.c.Params()
	for i, n := range t.p.nodes() {
		dst := params[i].t
		src, ok := n.Value().(*tensor.Dense)
		if !ok {
			return errors.Errorf("mps: value of %s is %T, not *tensor.Dense", n.Name(), n.Value())
		}
		if src == dst {
			continue
		}
		copy(dst.Data().([]float64), src.Data().([]float64))
	}
	return nil
}

// Close releases the tape's machine.
func (t *Tape) Close() error {
	if t.vm == nil {
		return nil
	}
	return t.vm.Close()
}

func floatsOf(v gorgonia.Value) ([]float64, error) {
	t, ok := v.(tensor.Tensor)
	if !ok {
		return nil, errors.Errorf("mps: unexpected value %T", v)
	}
	switch data := t.Data().(type) {
	case []float64:
		out := make([]float64, len(data))
		copy(out, data)
		return out, nil
	case float64:
		return []float64{data}, nil
	}
	return nil, errors.Errorf("mps: unexpected backing %T", t.Data())
}
