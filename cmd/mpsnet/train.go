package main

import (
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/csotherden/mpsnet/train"
)

func newTrainCmd() *cobra.Command {
	var (
		geo       geometry
		samples   int
		noise     float64
		dataSeed  int64
		epochs    int
		batchSize int
		learnRate float64
		optimizer string
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a classifier on synthetic prototype data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			log := newLogger(cmd.ErrOrStderr(), verbose)

			c, err := geo.classifier()
			if err != nil {
				return err
			}

			data := train.Synthetic(rand.New(rand.NewSource(dataSeed)), samples, geo.size, geo.phys, geo.labels, noise)

			tr, err := train.New(c,
				train.WithOptimizer(optimizer),
				train.WithLearnRate(learnRate),
				train.WithBatchSize(batchSize),
				train.WithEpochs(epochs),
				train.WithShuffleSeed(dataSeed),
				train.WithLogger(log),
			)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			before, err := train.Accuracy(ctx, c, data)
			if err != nil {
				return err
			}
			log.Info("training", "size", geo.size, "bond", geo.bond, "labels", geo.labels,
				"boundary", c.Boundary(), "samples", len(data), "accuracy", before)

			if _, err := tr.Fit(ctx, data); err != nil {
				return err
			}

			after, err := train.Accuracy(ctx, c, data)
			if err != nil {
				return err
			}
			loss, err := train.Loss(ctx, c, data)
			if err != nil {
				return err
			}
			log.Info("done", "accuracy", after, "loss", loss)
			return nil
		},
	}

	geo.register(cmd)
	f := cmd.Flags()
	f.IntVar(&samples, "samples", 64, "Number of synthetic samples")
	f.Float64Var(&noise, "noise", 0.2, "Noise scale around each label prototype")
	f.Int64Var(&dataSeed, "data-seed", 2, "Seed for synthetic data and shuffling")
	f.IntVar(&epochs, "epochs", 20, "Training epochs")
	f.IntVar(&batchSize, "batch", 8, "Samples per step")
	f.Float64Var(&learnRate, "lr", 0.01, "Learn rate")
	f.StringVar(&optimizer, "optimizer", train.Adam, "Optimizer: adam or sgd")
	return cmd
}
