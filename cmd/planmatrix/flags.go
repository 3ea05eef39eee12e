package main

import (
	"github.com/spf13/cobra"

	"github.com/planmatrix/planmatrix/pkg/matrix"
	"github.com/planmatrix/planmatrix/pkg/planner"
)

// planFlags are the planner and matrix knobs shared by the plan commands.
type planFlags struct {
	disableFragments bool
	disableDefer     bool
	typeConditioned  bool
	plansLimit       int
	pathsLimit       int
	maxLabels        int
	workers          int
}

func registerPlanFlags(cmd *cobra.Command, f *planFlags) {
	cmd.Flags().BoolVar(&f.disableFragments, "disable-generate-query-fragments", false, "do not compact subgraph operations into fragments")
	cmd.Flags().BoolVar(&f.disableDefer, "disable-defer-support", false, "reject operations using @defer")
	cmd.Flags().BoolVar(&f.typeConditioned, "experimental-type-conditioned-fetching", false, "render flatten paths with entity type conditions")
	cmd.Flags().IntVar(&f.plansLimit, "experimental-plans-limit", 0, "maximum evaluated fetch sub-plans per build (default 10000)")
	cmd.Flags().IntVar(&f.pathsLimit, "experimental-paths-limit", 0, "maximum entity jumps per build (default unlimited)")
	cmd.Flags().IntVar(&f.maxLabels, "max-labels", 0, "combination ceiling (default 12 labels)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "planning worker pool size (default GOMAXPROCS)")
}

// plannerConfig merges the config file defaults with command flags; a flag
// only overrides when it was actually set.
func (f *planFlags) plannerConfig() planner.Config {
	pc := cfg.PlannerConfig()
	if f.disableFragments {
		pc.GenerateQueryFragments = false
	}
	if f.disableDefer {
		pc.EnableDefer = false
	}
	if f.typeConditioned {
		pc.TypeConditionedFetching = true
	}
	if f.plansLimit > 0 {
		pc.MaxEvaluatedPlans = f.plansLimit
	}
	if f.pathsLimit > 0 {
		pc.PathsLimit = f.pathsLimit
	}
	return pc
}

// matrixOptions merges config file matrix settings with command flags and
// attaches the CLI logger.
func (f *planFlags) matrixOptions() []matrix.Option {
	opts := cfg.MatrixOptions()
	if f.maxLabels > 0 {
		opts = append(opts, matrix.WithMaxLabels(f.maxLabels))
	}
	if f.workers > 0 {
		opts = append(opts, matrix.WithWorkers(f.workers))
	}
	opts = append(opts, matrix.WithLogger(log))
	return opts
}
