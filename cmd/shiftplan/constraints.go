package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/paiban/shiftplan/internal/constraints"
	"github.com/paiban/shiftplan/pkg/scheduler/constraint/builtin"
)

func constraintsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "constraints",
		Short: "列出求解使用的约束",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer app.close()

			asJSON, _ := cmd.Flags().GetBool("json")
			library := constraints.Describe(builtin.NewDefaultManager(app.cfg.Solver.ConstraintConfig()))

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, library)
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "类型\t名称\t类别\t启用\t计分")
			for _, d := range library {
				enabled := "否"
				if d.Enabled {
					enabled = "是"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.Type, d.DisplayName, d.Category, enabled, d.Penalty)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().Bool("json", false, "以 JSON 输出")
	return cmd
}
