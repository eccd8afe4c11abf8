package train

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/csotherden/mpsnet/mps"
)

// Sample is one labelled input: an embedding vector per site.
type Sample struct {
	Inputs [][]float64
	Label  int
}

const (
	Adam = "adam"
	SGD  = "sgd"
)

// Trainer updates the cores of a classifier by minimising the mean cross
// entropy of its scores.
type Trainer struct {
	c      *mps.Classifier
	solver gorgonia.Solver

	optimizer string
	learnRate float64
	batchSize int
	epochs    int

	log *slog.Logger
	rnd *rand.Rand
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithOptimizer selects Adam (default) or SGD.
func WithOptimizer(name string) Option {
	return func(t *Trainer) { t.optimizer = name }
}

// WithLearnRate sets the solver learn rate. Default 0.01.
func WithLearnRate(eta float64) Option {
	return func(t *Trainer) { t.learnRate = eta }
}

// WithBatchSize sets the number of samples per step. Default 8.
func WithBatchSize(n int) Option {
	return func(t *Trainer) { t.batchSize = n }
}

// WithEpochs sets the number of passes Fit makes. Default 10.
func WithEpochs(n int) Option {
	return func(t *Trainer) { t.epochs = n }
}

// WithLogger sets the logger. Default slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Trainer) { t.log = l }
}

// WithShuffleSeed seeds the per-epoch shuffle.
func WithShuffleSeed(seed int64) Option {
	return func(t *Trainer) { t.rnd = rand.New(rand.NewSource(seed)) }
}

// New returns a trainer for c.
func New(c *mps.Classifier, opts ...Option) (*Trainer, error) {
	t := &Trainer{
		c:         c,
		optimizer: Adam,
		learnRate: 0.01,
		batchSize: 8,
		epochs:    10,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.log == nil {
		t.log = slog.Default()
	}
	if t.rnd == nil {
		t.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if t.learnRate <= 0 {
		return nil, errors.Errorf("train: learn rate %v must be positive", t.learnRate)
	}
	if t.batchSize <= 0 {
		return nil, errors.Errorf("train: batch size %d must be positive", t.batchSize)
	}
	if t.epochs < 0 {
		return nil, errors.Errorf("train: epochs %d must not be negative", t.epochs)
	}

	switch t.optimizer {
	case Adam:
		t.solver = gorgonia.NewAdamSolver(gorgonia.WithLearnRate(t.learnRate))
	case SGD:
		t.solver = gorgonia.NewVanillaSolver(gorgonia.WithLearnRate(t.learnRate))
	default:
		return nil, errors.Errorf("train: unknown optimizer %q", t.optimizer)
	}
	return t, nil
}

// Step takes one solver step on the mean loss of batch and returns that
// loss, measured before the update.
func (t *Trainer) Step(batch []Sample) (float64, error) {
	if len(batch) == 0 {
		return 0, errors.New("train: empty batch")
	}

	inputs := make([][][]float64, len(batch))
	shifts := make([]float64, len(batch))
	for i, s := range batch {
		inputs[i] = s.Inputs
		scores, err := t.c.Eval(s.Inputs)
		if err != nil {
			return 0, errors.Wrapf(err, "train: sample %d", i)
		}
		shifts[i] = floats.Max(scores)
	}

	tape, err := t.c.NewTape(inputs...)
	if err != nil {
		return 0, err
	}
	defer tape.Close()

	g := tape.Graph()
	var total *gorgonia.Node
	for i, s := range batch {
		loss, err := CrossEntropy(g, tape.Logits(i), s.Label, shifts[i])
		if err != nil {
			return 0, errors.Wrapf(err, "train: sample %d", i)
		}
		if total == nil {
			total = loss
			continue
		}
		if total, err = gorgonia.Add(total, loss); err != nil {
			return 0, errors.Wrap(err, "train: summing losses")
		}
	}
	n := gorgonia.NewScalar(g, tensor.Float64,
		gorgonia.WithName("batch_size"),
		gorgonia.WithValue(float64(len(batch))),
	)
	mean, err := gorgonia.Div(total, n)
	if err != nil {
		return 0, errors.Wrap(err, "train: mean loss")
	}

	if err := tape.Backward(mean); err != nil {
		return 0, err
	}
	value, err := scalarOf(mean.Value())
	if err != nil {
		return 0, err
	}

	if err := t.solver.Step(gorgonia.NodesToValueGrads(tape.Learnables())); err != nil {
		return 0, errors.Wrap(err, "train: solver step")
	}
	if err := tape.Commit(); err != nil {
		return 0, err
	}
	return value, nil
}

// Fit trains on samples for the configured number of epochs and returns the
// mean training loss of every epoch. Cancellation is checked between steps;
// the losses of completed epochs are returned with the context's error.
func (t *Trainer) Fit(ctx context.Context, samples []Sample) ([]float64, error) {
	if len(samples) == 0 {
		return nil, errors.New("train: no samples")
	}

	order := make([]int, len(samples))
	for i := range order {
		order[i] = i
	}
	batch := make([]Sample, 0, t.batchSize)

	losses := make([]float64, 0, t.epochs)
	for epoch := 0; epoch < t.epochs; epoch++ {
		t.rnd.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		var sum float64
		for start := 0; start < len(order); start += t.batchSize {
			if err := ctx.Err(); err != nil {
				return losses, err
			}
			end := min(start+t.batchSize, len(order))
			batch = batch[:0]
			for _, idx := range order[start:end] {
				batch = append(batch, samples[idx])
			}

			loss, err := t.Step(batch)
			if err != nil {
				return losses, errors.Wrapf(err, "train: epoch %d", epoch+1)
			}
			t.log.Debug("step", "epoch", epoch+1, "offset", start, "loss", loss)
			sum += loss * float64(len(batch))
		}

		mean := sum / float64(len(samples))
		losses = append(losses, mean)
		t.log.Info("epoch complete", "epoch", epoch+1, "loss", mean)
	}
	return losses, nil
}

// Loss returns the mean cross entropy of c over samples.
func Loss(ctx context.Context, c *mps.Classifier, samples []Sample) (float64, error) {
	scores, err := evalAll(ctx, c, samples)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i, s := range samples {
		if s.Label < 0 || s.Label >= len(scores[i]) {
			return 0, errors.Errorf("train: label %d out of range [0, %d)", s.Label, len(scores[i]))
		}
		sum += crossEntropy(scores[i], s.Label)
	}
	return sum / float64(len(samples)), nil
}

// Accuracy returns the fraction of samples whose highest score is their
// label.
func Accuracy(ctx context.Context, c *mps.Classifier, samples []Sample) (float64, error) {
	scores, err := evalAll(ctx, c, samples)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i, s := range samples {
		if floats.MaxIdx(scores[i]) == s.Label {
			correct++
		}
	}
	return float64(correct) / float64(len(samples)), nil
}

func evalAll(ctx context.Context, c *mps.Classifier, samples []Sample) ([][]float64, error) {
	if len(samples) == 0 {
		return nil, errors.New("train: no samples")
	}
	inputs := make([][][]float64, len(samples))
	for i, s := range samples {
		inputs[i] = s.Inputs
	}
	return c.EvalBatch(ctx, inputs)
}

func scalarOf(v gorgonia.Value) (float64, error) {
	switch data := v.Data().(type) {
	case float64:
		return data, nil
	case []float64:
		if len(data) == 1 {
			return data[0], nil
		}
	}
	return 0, errors.Errorf("train: loss value %v is not a float64 scalar", v)
}
