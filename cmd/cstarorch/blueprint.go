package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/cstarorch/pkg/blueprint"
	"github.com/cuemby/cstarorch/pkg/metrics"
	"github.com/cuemby/cstarorch/pkg/orchestrator"
	"github.com/cuemby/cstarorch/pkg/types"
	"github.com/spf13/cobra"
)

var blueprintApplication string

var blueprintCmd = &cobra.Command{
	Use:   "blueprint",
	Short: "Run or validate a standalone blueprint",
}

var blueprintRunCmd = &cobra.Command{
	Use:   "run <path>",
	Short: "Execute a blueprint as a single ad-hoc step",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		if _, err := blueprint.Load(path); err != nil {
			return err
		}

		if blueprintApplication == "" {
			return fmt.Errorf("--application is required to run a standalone blueprint")
		}

		step := types.Step{
			Name:        "blueprint-run",
			Application: blueprintApplication,
			Blueprint:   path,
		}

		l, err := buildLauncher()
		if err != nil {
			return err
		}

		metrics.RegisterComponent("planner", true, "blueprint loaded")
		shutdownMetrics := startMetricsServer(metricsAddr)
		defer shutdownMetrics(context.Background())

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return orchestrator.RunStep(ctx, cfg, l, []types.Step{step}, step)
	},
}

var blueprintCheckCmd = &cobra.Command{
	Use:   "check <path>",
	Short: "Validate the contents of a blueprint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if _, err := blueprint.Load(path); err != nil {
			fmt.Printf("Blueprint in `%s` failed validation:\n - %v\n", path, err)
			return err
		}
		fmt.Printf("Blueprint in `%s` passed validation\n", path)
		return nil
	},
}

func init() {
	blueprintRunCmd.Flags().StringVar(&blueprintApplication, "application", "", "Application tag to resolve the blueprint's executable template")
	blueprintRunCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Address to serve /metrics and health endpoints on (disabled if empty)")

	blueprintCmd.AddCommand(blueprintRunCmd)
	blueprintCmd.AddCommand(blueprintCheckCmd)
}
