package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"cmdvrp/internal/buildinfo"
	"cmdvrp/internal/config"
	"cmdvrp/internal/formulation"
	"cmdvrp/internal/integrations"
	"cmdvrp/internal/logging"
	"cmdvrp/internal/report"
	"cmdvrp/internal/runs"
	"cmdvrp/internal/store"
)

type rootFlags struct {
	config  string
	variant string
	subtour string
	pruned  bool
	verbose bool
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:           "cmdvrp",
		Short:         "Build and solve capacitated multi-depot VRP models",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&f.config, "config", os.Getenv("CMDVRP_CONFIG"), "YAML config file")
	root.PersistentFlags().StringVarP(&f.variant, "variant", "v", "", "formulation: scf-hub, scf-route or cda (default from config)")
	root.PersistentFlags().StringVar(&f.subtour, "subtour", "", "subtour strategy: forbid, mtz or none")
	root.PersistentFlags().BoolVar(&f.pruned, "pruned", false, "only create depot-customer arcs")
	root.PersistentFlags().BoolVar(&f.verbose, "verbose", false, "debug logging")

	root.AddCommand(newBuildCmd(f), newSolveCmd(f), newExportCmd(f), newVersionCmd())
	return root
}

// setup loads config and the instance at path and returns the request and a
// service backed by an in-memory store.
func setup(f *rootFlags, path string, stderr io.Writer) (config.Config, runs.Request, *runs.Service, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return cfg, runs.Request{}, nil, err
	}
	level := cfg.Log.Level
	if f.verbose {
		level = "debug"
	}
	log, err := logging.New(stderr, level, cfg.Log.Format)
	if err != nil {
		return cfg, runs.Request{}, nil, err
	}

	in, err := integrations.LoadFile(path, cfg.Solver.MaxNodes)
	if err != nil {
		return cfg, runs.Request{}, nil, err
	}
	variant := f.variant
	if variant == "" {
		variant = cfg.Solver.Variant
	}
	v, err := formulation.ParseVariant(variant)
	if err != nil {
		return cfg, runs.Request{}, nil, err
	}
	subtour := f.subtour
	if subtour == "" {
		subtour = cfg.Solver.Subtour
	}
	req := runs.Request{Instance: in, Variant: v, Subtour: formulation.Subtour(subtour), PrunedArcs: f.pruned}

	svc := runs.NewService(store.NewMemory(), cfg.Solver.MaxCells)
	svc.Log = log.WithField("instance", in.Name())
	svc.DefaultTimeLimit = cfg.Solver.TimeLimit
	svc.MaxNodes = cfg.Solver.MaxNodes
	return cfg, req, svc, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newBuildCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "build <instance>",
		Short: "Build a model and print its size per constraint family",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, req, svc, err := setup(f, args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			m, err := svc.Build(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"variant":       m.Variant(),
				"instance":      req.Instance.Name(),
				"n_variables":   m.NumVars(),
				"n_constraints": m.NumConstraints(),
				"families":      report.Families(m),
				"varGroups":     report.VarGroups(m),
			})
		},
	}
}

func newSolveCmd(f *rootFlags) *cobra.Command {
	var (
		timeLimit   time.Duration
		full        bool
		sensitivity bool
	)
	cmd := &cobra.Command{
		Use:   "solve <instance>",
		Short: "Build and solve a model, printing the metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, req, svc, err := setup(f, args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			req.TimeLimit = timeLimit
			req.Sensitivity = sensitivity
			run, err := svc.Solve(cmd.Context(), req)
			if err != nil {
				return err
			}
			log := svc.Log.WithField("status", run.Metrics.Status)
			switch {
			case run.Error != "":
				log.Warn(run.Error)
			case !run.Metrics.Integral:
				log.Warn("LP relaxation is fractional, objective is a lower bound")
			}
			switch {
			case full:
				return writeJSON(cmd.OutOrStdout(), run)
			case sensitivity:
				return writeJSON(cmd.OutOrStdout(), map[string]any{"metrics": run.Metrics, "duals": run.Duals})
			}
			return writeJSON(cmd.OutOrStdout(), run.Metrics)
		},
	}
	cmd.Flags().DurationVar(&timeLimit, "time-limit", 0, "solver time limit (default from config)")
	cmd.Flags().BoolVar(&full, "full", false, "print the whole run record including nonzero values")
	cmd.Flags().BoolVar(&sensitivity, "sensitivity", false, "collect constraint duals of the relaxation")
	return cmd
}

func newExportCmd(f *rootFlags) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <instance>",
		Short: "Write the model in CPLEX LP format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, req, svc, err := setup(f, args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				file, err := os.Create(out)
				if err != nil {
					return err
				}
				defer func() { _ = file.Close() }()
				w = file
			}
			return svc.Export(cmd.Context(), req, w)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "-", "output file")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := buildinfo.Info()
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "cmdvrp %s (commit %s, %s)\n", info["version"], info["commit"], info["go"])
			return err
		},
	}
}
