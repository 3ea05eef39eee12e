package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/planmatrix/planmatrix/pkg/matrix"
	"github.com/planmatrix/planmatrix/pkg/planner"
)

const (
	maxWalkDepth = 25
)

// Config represents the planmatrix configuration from planmatrix.yaml.
type Config struct {
	// Top-level convenience fields
	Supergraph string `mapstructure:"supergraph"`
	Operation  string `mapstructure:"operation"`

	// Per-concern configuration
	Planner PlannerConfig `mapstructure:"planner"`
	Matrix  MatrixConfig  `mapstructure:"matrix"`
	Output  OutputConfig  `mapstructure:"output"`
}

// PlannerConfig holds the planner options recognized by the engine.
type PlannerConfig struct {
	GenerateQueryFragments  bool `mapstructure:"generate_query_fragments"`
	EnableDefer             bool `mapstructure:"enable_defer"`
	TypeConditionedFetching bool `mapstructure:"type_conditioned_fetching"`
	MaxEvaluatedPlans       int  `mapstructure:"max_evaluated_plans"`
	PathsLimit              int  `mapstructure:"paths_limit"`
}

// MatrixConfig holds matrix enumeration settings.
type MatrixConfig struct {
	MaxLabels int `mapstructure:"max_labels"`
	Workers   int `mapstructure:"workers"`
}

// OutputConfig holds rendering settings.
type OutputConfig struct {
	Format string `mapstructure:"format"`
}

// LoadConfig discovers and loads configuration with proper precedence:
// flags > env > config file > defaults.
//
// Returns the loaded config, the path to the config file (empty if none found),
// and any error encountered.
func LoadConfig(explicitConfigPath string) (*Config, string, error) {
	v := viper.New()

	// 1. Set defaults first (lowest precedence)
	setDefaults(v)

	// 2. Set up environment variable binding
	v.SetEnvPrefix("PLANMATRIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 3. Find and load config file
	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	// 4. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, configPath, nil
}

func setDefaults(v *viper.Viper) {
	// Top-level defaults
	v.SetDefault("supergraph", "supergraph.graphql")
	v.SetDefault("operation", "")

	// Planner defaults mirror planner.DefaultConfig
	v.SetDefault("planner.generate_query_fragments", true)
	v.SetDefault("planner.enable_defer", true)
	v.SetDefault("planner.type_conditioned_fetching", false)
	v.SetDefault("planner.max_evaluated_plans", 0)
	v.SetDefault("planner.paths_limit", 0)

	// Matrix defaults
	v.SetDefault("matrix.max_labels", matrix.DefaultMaxLabels)
	v.SetDefault("matrix.workers", 0)

	// Output defaults
	v.SetDefault("output.format", "text")
}

// findConfigFile finds the config file to use.
// If explicitPath is provided, it validates the file exists.
// Otherwise, it walks up from cwd looking for planmatrix.yaml or
// planmatrix.yml, stopping at a .git directory or after maxWalkDepth levels.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	// Auto-discovery: walk up to .git or maxWalkDepth
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}

	dir := cwd
	for i := 0; i < maxWalkDepth; i++ {
		// Try planmatrix.yaml then planmatrix.yml
		for _, name := range []string{"planmatrix.yaml", "planmatrix.yml"} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		// Check for repo boundary (.git file or directory)
		gitPath := filepath.Join(dir, ".git")
		if _, err := os.Stat(gitPath); err == nil {
			break // Stop at repo root
		}

		// Move up
		parent := filepath.Dir(dir)
		if parent == dir {
			break // Reached filesystem root
		}
		dir = parent
	}

	return "", nil // No config found, use defaults
}

// PlannerConfig converts the file representation into the engine's config.
func (c *Config) PlannerConfig() planner.Config {
	cfg := planner.DefaultConfig()
	cfg.GenerateQueryFragments = c.Planner.GenerateQueryFragments
	cfg.EnableDefer = c.Planner.EnableDefer
	cfg.TypeConditionedFetching = c.Planner.TypeConditionedFetching
	if c.Planner.MaxEvaluatedPlans > 0 {
		cfg.MaxEvaluatedPlans = c.Planner.MaxEvaluatedPlans
	}
	if c.Planner.PathsLimit > 0 {
		cfg.PathsLimit = c.Planner.PathsLimit
	}
	return cfg
}

// MatrixOptions converts the matrix settings into builder options.
func (c *Config) MatrixOptions() []matrix.Option {
	var opts []matrix.Option
	if c.Matrix.MaxLabels > 0 {
		opts = append(opts, matrix.WithMaxLabels(c.Matrix.MaxLabels))
	}
	if c.Matrix.Workers > 0 {
		opts = append(opts, matrix.WithWorkers(c.Matrix.Workers))
	}
	return opts
}

// ResolvedSupergraph returns the effective supergraph path, with the flag
// value taking precedence over the config file.
func (c *Config) ResolvedSupergraph(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	return c.Supergraph
}

// ResolvedOperation returns the effective operation path, with the flag
// value taking precedence over the config file.
func (c *Config) ResolvedOperation(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	return c.Operation
}
