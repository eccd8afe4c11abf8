package main

import (
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/csotherden/mpsnet/mps"
)

// geometry holds the classifier flags shared by every command.
type geometry struct {
	size     int
	bond     int
	phys     int
	labels   int
	boundary string
	seed     int64
}

func (g *geometry) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVar(&g.size, "size", 4, "Number of sites (power of two)")
	f.IntVar(&g.bond, "bond", 2, "Bond dimension D")
	f.IntVar(&g.phys, "phys", 2, "Physical (embedding) dimension d")
	f.IntVar(&g.labels, "labels", 10, "Number of labels")
	f.StringVar(&g.boundary, "boundary", "periodic", "Boundary condition: open or periodic")
	f.Int64Var(&g.seed, "seed", 1, "Seed for core initialisation")
}

func (g *geometry) classifier() (*mps.Classifier, error) {
	b, err := mps.ParseBoundary(g.boundary)
	if err != nil {
		return nil, err
	}
	return mps.New(g.size, g.bond,
		mps.WithPhysicalDim(g.phys),
		mps.WithLabels(g.labels),
		mps.WithBoundary(b),
		mps.WithSeed(g.seed),
	)
}

// newLogger returns a text logger on w. Debug output is enabled by verbose
// or by a truthy MPSNET_DEBUG.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if debug, _ := strconv.ParseBool(os.Getenv("MPSNET_DEBUG")); debug || verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewCLI builds the mpsnet command tree.
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "mpsnet",
		Short:         "Matrix product state classifier",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newLogitsCmd(),
		newScheduleCmd(),
		newTrainCmd(),
	)
	return rootCmd
}
