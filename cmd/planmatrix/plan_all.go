package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/planmatrix/planmatrix"
	"github.com/planmatrix/planmatrix/internal/cli"
)

var planAllFlags planFlags

var planAllCmd = &cobra.Command{
	Use:   "plan-all [schema] [query]",
	Short: "Build one query plan per override-label combination",
	Long: `Build the query plan of one operation under every combination of the
override labels declared in the supergraph schema. Combinations are ordered
by index: bit j of the index enables label j of the catalog, so index 0
disables every label and the last index enables them all.`,
	Example: `  # Plan an operation across all label combinations
  planmatrix plan-all supergraph.graphql query.graphql

  # Machine-readable matrix
  planmatrix plan-all supergraph.graphql query.graphql --json`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		schemaPath, queryPath, err := planPaths(args)
		if err != nil {
			return err
		}

		schema, err := readInput(schemaPath)
		if err != nil {
			return cli.FailureError("reading supergraph schema", err)
		}
		query, err := readInput(queryPath)
		if err != nil {
			return cli.FailureError("reading operation", err)
		}

		results, err := planmatrix.BuildAllPlans(cmd.Context(), schema, query, queryPath,
			planAllFlags.plannerConfig(), planAllFlags.matrixOptions()...)
		if err != nil {
			return cli.FailureError("building plan matrix", err)
		}

		if done, err := emit(results); done || err != nil {
			return err
		}

		for i, r := range results {
			if i > 0 {
				fmt.Println()
			}
			headerColor.Printf("== combination %d ==\n", i)
			labelColor.Printf("overrides: %s\n", formatEnabled(r.Config.OverrideConditions))
			fmt.Println(r.Display)
		}
		return nil
	},
}

// planPaths resolves the schema and query arguments of a plan command, with
// the config file supplying defaults for omitted positionals.
func planPaths(args []string) (schemaPath, queryPath string, err error) {
	switch len(args) {
	case 2:
		schemaPath, queryPath = args[0], args[1]
	case 1:
		schemaPath, queryPath = args[0], cfg.Operation
	default:
		schemaPath, queryPath = cfg.Supergraph, cfg.Operation
	}
	schemaPath = resolveString(schemaPath, cfg.Supergraph)
	if schemaPath == "" {
		return "", "", cli.FailureError("no supergraph schema given (argument, config or PLANMATRIX_SUPERGRAPH)", nil)
	}
	if queryPath == "" {
		return "", "", cli.FailureError("no operation given (argument, config or PLANMATRIX_OPERATION)", nil)
	}
	return schemaPath, queryPath, nil
}

func init() {
	registerPlanFlags(planAllCmd, &planAllFlags)
}
