// Package main provides a CLI for analyzing federated query plans across
// progressive override-label combinations.
//
// The CLI supports:
//   - override-labels: List the override labels declared in a supergraph
//   - plan-all: Build one query plan per label combination
//   - plan-one: Build the plan for a single label combination
//   - compare-plans: Structurally compare two serialized plans
//
// This tool is typically run during subgraph migrations to predict how
// enabling an override label reroutes fetches before any traffic shifts.
//
// Usage:
//
//	planmatrix [flags] <command>
//
// File arguments accept "-" to read from stdin.
package main

func main() {
	Execute()
}
