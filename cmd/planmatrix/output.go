package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"sigs.k8s.io/yaml"

	"github.com/planmatrix/planmatrix/internal/cli"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	labelColor  = color.New(color.FgYellow)
	okColor     = color.New(color.FgGreen)
	addColor    = color.New(color.FgGreen)
	delColor    = color.New(color.FgRed)
)

// readInput reads a file argument, with "-" meaning stdin.
func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// machineFormat resolves the requested machine output format with precedence
// --json > --output > config file. Empty means human text output.
func machineFormat() string {
	if jsonOutput {
		return "json"
	}
	format := outputFormat
	if format == "" && cfg != nil {
		format = cfg.Output.Format
	}
	if format == "text" {
		return ""
	}
	return format
}

// emit writes v in the requested machine format. It returns true when output
// was written and the caller should skip its human rendering.
func emit(v any) (bool, error) {
	switch format := machineFormat(); format {
	case "":
		return false, nil
	case "json":
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return false, fmt.Errorf("encoding json: %w", err)
		}
		fmt.Println(string(out))
		return true, nil
	case "yaml":
		out, err := yaml.Marshal(v)
		if err != nil {
			return false, fmt.Errorf("encoding yaml: %w", err)
		}
		fmt.Print(string(out))
		return true, nil
	default:
		return false, cli.FailureError(fmt.Sprintf("unknown output format %q (expected text, json or yaml)", format), nil)
	}
}

// printDiff writes a unified diff with +/- lines colored.
func printDiff(diff string) {
	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+"):
			addColor.Println(line)
		case strings.HasPrefix(line, "-"):
			delColor.Println(line)
		default:
			fmt.Println(line)
		}
	}
}

// formatEnabled renders an enabled-label set for human output.
func formatEnabled(labels []string) string {
	if len(labels) == 0 {
		return "(none)"
	}
	return strings.Join(labels, ", ")
}
