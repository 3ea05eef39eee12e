package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/planmatrix/planmatrix/internal/cli"
)

var (
	// Global state set during PersistentPreRunE
	cfg        *cli.Config
	configPath string
	log        zerolog.Logger

	// Persistent flags
	cfgFile      string
	verbose      int
	quiet        bool
	jsonOutput   bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "planmatrix",
	Short: "Federated query plan analysis across override labels",
	Long: `planmatrix - Federated query plan analysis

Planmatrix builds the query plan of one operation under every combination of
progressive override labels declared in a supergraph schema, and compares
plans structurally to show exactly where enabling a label moves a fetch.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for help/completion/version commands
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}

		log = newLogger(verbose, quiet)

		var err error
		cfg, configPath, err = cli.LoadConfig(cfgFile)
		if err != nil {
			return cli.FailureError("loading configuration", err)
		}
		if configPath != "" {
			log.Debug().Str("path", configPath).Msg("loaded config file")
		}

		return nil
	},
	SilenceUsage:  true, // Don't show usage on errors
	SilenceErrors: true, // We handle errors ourselves
}

// Command group IDs
const (
	groupPlan    = "plan"
	groupUtility = "utility"
)

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: auto-discover planmatrix.yaml)")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase verbosity (can be repeated)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "machine-readable JSON output")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "", "output format: text, json or yaml")

	// Define command groups
	rootCmd.AddGroup(
		&cobra.Group{ID: groupPlan, Title: "Planning:"},
		&cobra.Group{ID: groupUtility, Title: "Utility:"},
	)

	// Planning commands
	overrideLabelsCmd.GroupID = groupPlan
	planAllCmd.GroupID = groupPlan
	planOneCmd.GroupID = groupPlan
	comparePlansCmd.GroupID = groupPlan
	rootCmd.AddCommand(overrideLabelsCmd)
	rootCmd.AddCommand(planAllCmd)
	rootCmd.AddCommand(planOneCmd)
	rootCmd.AddCommand(comparePlansCmd)

	// Utility commands
	versionCmd.GroupID = groupUtility
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.ExitWithError(err)
	}
}

// newLogger builds the CLI logger: console writer on stderr, level derived
// from the -v count and -q.
func newLogger(verbose int, quiet bool) zerolog.Logger {
	level := zerolog.WarnLevel
	switch {
	case quiet:
		level = zerolog.ErrorLevel
	case verbose == 1:
		level = zerolog.InfoLevel
	case verbose >= 2:
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

// resolveString returns the first non-empty string from the provided values.
// Used to implement precedence: flag > config > default.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
