package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/planmatrix/planmatrix"
	"github.com/planmatrix/planmatrix/internal/cli"
)

var overrideLabelsCmd = &cobra.Command{
	Use:   "override-labels [schema]",
	Short: "List the progressive override labels of a supergraph",
	Long:  `List every progressive override label declared in a supergraph schema, in first-seen document order.`,
	Example: `  # List the labels of a composed schema
  planmatrix override-labels supergraph.graphql

  # Read the schema from stdin
  rover supergraph compose --config supergraph.yaml | planmatrix override-labels -`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var flagPath string
		if len(args) > 0 {
			flagPath = args[0]
		}
		schemaPath := resolveString(flagPath, cfg.Supergraph)
		if schemaPath == "" {
			return cli.FailureError("no supergraph schema given (argument, config or PLANMATRIX_SUPERGRAPH)", nil)
		}

		schema, err := readInput(schemaPath)
		if err != nil {
			return cli.FailureError("reading supergraph schema", err)
		}

		labels, err := planmatrix.OverrideLabels(schema)
		if err != nil {
			return cli.FailureError("extracting override labels", err)
		}

		if done, err := emit(struct {
			OverrideLabels []string `json:"overrideLabels"`
		}{OverrideLabels: labels}); done || err != nil {
			return err
		}

		if len(labels) == 0 {
			if !quiet {
				fmt.Println("No override labels declared.")
			}
			return nil
		}
		if !quiet {
			headerColor.Printf("%d override label(s):\n", len(labels))
		}
		for _, label := range labels {
			labelColor.Println(label)
		}
		return nil
	},
}
