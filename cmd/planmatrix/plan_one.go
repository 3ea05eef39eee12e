package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/planmatrix/planmatrix"
	"github.com/planmatrix/planmatrix/internal/cli"
)

var (
	planOneFlags       planFlags
	planOneOverrideAll bool
)

var planOneCmd = &cobra.Command{
	Use:   "plan-one <schema> <query> [labels...]",
	Short: "Build the query plan for one override-label combination",
	Long: `Build the query plan of one operation with exactly the given override
labels enabled. With --override-all every label declared in the schema is
enabled; the flag cannot be combined with an explicit label list.`,
	Example: `  # Plan with no overrides enabled
  planmatrix plan-one supergraph.graphql query.graphql

  # Plan with one label enabled
  planmatrix plan-one supergraph.graphql query.graphql 'percent(50)'

  # Plan with every label enabled
  planmatrix plan-one supergraph.graphql query.graphql --override-all`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		schemaPath, queryPath := args[0], args[1]
		labels := args[2:]

		schema, err := readInput(schemaPath)
		if err != nil {
			return cli.FailureError("reading supergraph schema", err)
		}
		query, err := readInput(queryPath)
		if err != nil {
			return cli.FailureError("reading operation", err)
		}

		result, err := planmatrix.BuildOnePlan(cmd.Context(), schema, query, queryPath,
			planOneFlags.plannerConfig(), planOneOverrideAll, labels, planOneFlags.matrixOptions()...)
		if err != nil {
			return cli.FailureError("building plan", err)
		}

		if done, err := emit(result); done || err != nil {
			return err
		}

		labelColor.Printf("overrides: %s\n", formatEnabled(result.Config.OverrideConditions))
		fmt.Println(result.Display)
		return nil
	},
}

func init() {
	registerPlanFlags(planOneCmd, &planOneFlags)
	planOneCmd.Flags().BoolVar(&planOneOverrideAll, "override-all", false, "enable every override label declared in the schema")
}
