package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
)

func newLogitsCmd() *cobra.Command {
	var (
		geo   geometry
		input []float64
		eval  bool
	)

	cmd := &cobra.Command{
		Use:   "logits",
		Short: "Score one input with a freshly initialised classifier",
		Example: `  mpsnet logits --size 4 --bond 2 --boundary open --input 0,1
  mpsnet logits --size 2 --phys 3 --input 1,0,0,0,1,0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := geo.classifier()
			if err != nil {
				return err
			}
			inputs, err := splitInput(input, geo.size, geo.phys)
			if err != nil {
				return err
			}

			var scores []float64
			if eval {
				scores, err = c.Eval(inputs)
			} else {
				scores, err = c.Logits(inputs)
			}
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"LABEL", "SCORE"})
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeaderLine(false)
			table.SetBorder(false)
			table.SetNoWhiteSpace(true)
			table.SetTablePadding("    ")
			for l, s := range scores {
				table.Append([]string{strconv.Itoa(l), strconv.FormatFloat(s, 'g', 8, 64)})
			}
			table.Render()

			fmt.Fprintf(cmd.OutOrStdout(), "\npredicted label: %d\n", floats.MaxIdx(scores))
			return nil
		},
	}

	geo.register(cmd)
	cmd.Flags().Float64SliceVar(&input, "input", []float64{0, 1}, "One vector of length d repeated at every site, or size*d values")
	cmd.Flags().BoolVar(&eval, "eval", false, "Contract on the tensor engine instead of the expression graph")
	return cmd
}

// splitInput turns flat flag values into one vector per site. A single
// vector is repeated at every site; anything else is cut into vectors of
// length d and left to the classifier to validate.
func splitInput(flat []float64, size, d int) ([][]float64, error) {
	if d <= 0 {
		return nil, errors.Errorf("physical dimension %d must be positive", d)
	}
	if len(flat) == 0 || len(flat)%d != 0 {
		return nil, errors.Errorf("--input has %d values, want a multiple of %d", len(flat), d)
	}
	if len(flat) == d {
		out := make([][]float64, size)
		for i := range out {
			out[i] = append([]float64(nil), flat...)
		}
		return out, nil
	}
	out := make([][]float64, 0, len(flat)/d)
	for i := 0; i < len(flat); i += d {
		out = append(out, flat[i:i+d])
	}
	return out, nil
}
