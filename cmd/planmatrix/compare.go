package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/planmatrix/planmatrix"
	"github.com/planmatrix/planmatrix/internal/cli"
	"github.com/planmatrix/planmatrix/pkg/queryplan"
)

var comparePlansCmd = &cobra.Command{
	Use:   "compare-plans <schema> <plan-a.json> <plan-b.json>",
	Short: "Structurally compare two serialized query plans",
	Long: `Compare two serialized query plans against a supergraph schema. Plans may
be bare plan trees or full plan-all result entries. Identical plans report
no difference; differing plans report a unified diff of the canonical
renderings plus the first structural divergence.`,
	Example: `  # Compare two archived plans
  planmatrix compare-plans supergraph.graphql before.json after.json`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := readInput(args[0])
		if err != nil {
			return cli.FailureError("reading supergraph schema", err)
		}

		planA, err := readPlan(args[1])
		if err != nil {
			return err
		}
		planB, err := readPlan(args[2])
		if err != nil {
			return err
		}

		report, err := planmatrix.ComparePlans(schema, planA, planB)
		if err != nil {
			return cli.FailureError("comparing plans", err)
		}

		if report == nil {
			if done, err := emit(struct {
				Identical bool `json:"identical"`
			}{Identical: true}); done || err != nil {
				return err
			}
			okColor.Println("Plans are structurally identical.")
			return nil
		}

		if done, err := emit(report); done || err != nil {
			return err
		}

		headerColor.Println(report.Divergence.String())
		fmt.Println()
		printDiff(report.UnifiedDiff)
		return nil
	},
}

// readPlan loads and decodes one serialized plan argument.
func readPlan(path string) (*queryplan.Plan, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, cli.FailureError("reading plan", err)
	}
	plan, err := queryplan.ParsePlan([]byte(data))
	if err != nil {
		return nil, cli.FailureError(fmt.Sprintf("parsing plan %s", path), err)
	}
	return plan, nil
}
