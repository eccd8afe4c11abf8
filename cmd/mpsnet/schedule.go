package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/csotherden/mpsnet/mps"
)

func newScheduleCmd() *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show which bond matrices each reduction round multiplies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rounds, err := mps.Schedule(size)
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"ROUND", "MATRICES", "PAIRS"})
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeaderLine(false)
			table.SetBorder(false)
			table.SetNoWhiteSpace(true)
			table.SetTablePadding("    ")
			for r, pairs := range rounds {
				parts := make([]string, len(pairs))
				for i, p := range pairs {
					parts[i] = fmt.Sprintf("(%d·%d)", p[0], p[1])
				}
				table.Append([]string{
					strconv.Itoa(r + 1),
					fmt.Sprintf("%d→%d", 2*len(pairs), len(pairs)),
					strings.Join(parts, " "),
				})
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&size, "size", 8, "Number of sites (power of two)")
	return cmd
}
