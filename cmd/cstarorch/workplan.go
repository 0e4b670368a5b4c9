package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cuemby/cstarorch/pkg/blueprint"
	"github.com/cuemby/cstarorch/pkg/health"
	"github.com/cuemby/cstarorch/pkg/launcher"
	"github.com/cuemby/cstarorch/pkg/metrics"
	"github.com/cuemby/cstarorch/pkg/orchestrator"
	"github.com/cuemby/cstarorch/pkg/planner"
	"github.com/cuemby/cstarorch/pkg/splitter"
	"github.com/cuemby/cstarorch/pkg/types"
	"github.com/cuemby/cstarorch/pkg/workplan"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

var backend string
var metricsAddr string
var batchRestURL string
var batchRestAddr string

var workplanCmd = &cobra.Command{
	Use:   "workplan",
	Short: "Run, validate, or render the execution plan of a workplan",
}

var workplanRunCmd = &cobra.Command{
	Use:   "run <path>",
	Short: "Execute a workplan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		wp, err := workplan.Load(path)
		if err != nil {
			return err
		}

		steps, err := orchestrator.ExpandSteps(wp.Steps, splitter.DefaultRegistry())
		if err != nil {
			return err
		}

		l, err := buildLauncher()
		if err != nil {
			return err
		}

		o, err := orchestrator.New(cfg, l, steps)
		if err != nil {
			return err
		}

		metrics.RegisterComponent("planner", true, "workplan loaded")
		collector := metrics.NewCollector(o, 5*time.Second)
		collector.Start()
		defer collector.Stop()

		shutdownMetrics := startMetricsServer(metricsAddr)
		defer shutdownMetrics(context.Background())

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return o.Run(ctx)
	},
}

var workplanCheckCmd = &cobra.Command{
	Use:   "check <path>",
	Short: "Validate the structure of a workplan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if _, err := workplan.Load(path); err != nil {
			fmt.Printf("Workplan in `%s` failed validation:\n - %v\n", path, err)
			return err
		}
		fmt.Printf("Workplan in `%s` passed validation\n", path)
		return nil
	},
}

var planOutputDir string

var workplanPlanCmd = &cobra.Command{
	Use:   "plan <path>",
	Short: "Render the traversal order a workplan would execute in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		wp, err := workplan.Load(path)
		if err != nil {
			return err
		}

		steps, err := orchestrator.ExpandSteps(wp.Steps, splitter.DefaultRegistry())
		if err != nil {
			return err
		}

		if err := preReadBlueprints(steps); err != nil {
			return err
		}

		dag, err := planner.BuildDAG(steps)
		if err != nil {
			return err
		}

		order := planner.NewGraphPlanner(dag).Iter()
		planPath, err := writePlanFile(path, planOutputDir, order)
		if err != nil {
			return err
		}

		fmt.Printf("Review the execution plan here: %s\n", planPath)
		return nil
	},
}

func init() {
	workplanRunCmd.Flags().StringVar(&backend, "backend", "local", "Execution backend: local or batch")
	workplanRunCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Address to serve /metrics and health endpoints on (disabled if empty)")
	workplanRunCmd.Flags().StringVar(&batchRestURL, "batch-rest-url", "", "Optional health URL of the batch scheduler's REST frontend (e.g. slurmrestd), probed before run")
	workplanRunCmd.Flags().StringVar(&batchRestAddr, "batch-rest-addr", "", "Optional host:port of the batch scheduler's REST frontend, TCP-probed before run")
	workplanPlanCmd.Flags().StringVarP(&planOutputDir, "output", "o", ".", "Directory to write the rendered plan into")

	workplanCmd.AddCommand(workplanRunCmd)
	workplanCmd.AddCommand(workplanCheckCmd)
	workplanCmd.AddCommand(workplanPlanCmd)
}

func buildLauncher() (launcher.Launcher, error) {
	switch backend {
	case "", "local":
		metrics.RegisterComponent("launcher", true, "local backend")
		return launcher.NewLocalLauncher(cfg, logDir, nil, nil), nil
	case "batch":
		if err := checkBatchBackend(); err != nil {
			metrics.RegisterComponent("launcher", false, err.Error())
			return nil, err
		}
		metrics.RegisterComponent("launcher", true, "batch backend reachable")
		return launcher.NewBatchLauncher(cfg, launcher.ExecCommandRunner, nil, nil), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want local or batch)", backend)
	}
}

// checkBatchBackend probes that the batch scheduler's CLI is on PATH and
// responsive before the orchestrator starts submitting steps against it.
// If the operator pointed --batch-rest-url or --batch-rest-addr at the
// scheduler's REST frontend (e.g. slurmrestd), those are probed too.
func checkBatchBackend() error {
	ctx := context.Background()

	execChecker := health.NewExecChecker([]string{"sacct", "--version"}).WithTimeout(5 * time.Second)
	if result := execChecker.Check(ctx); !result.Healthy {
		return fmt.Errorf("batch backend unavailable: %s", result.Message)
	}

	if batchRestURL != "" {
		httpChecker := health.NewHTTPChecker(batchRestURL).WithTimeout(5 * time.Second)
		if result := httpChecker.Check(ctx); !result.Healthy {
			return fmt.Errorf("batch REST frontend unavailable: %s", result.Message)
		}
	}

	if batchRestAddr != "" {
		tcpChecker := health.NewTCPChecker(batchRestAddr).WithTimeout(5 * time.Second)
		if result := tcpChecker.Check(ctx); !result.Healthy {
			return fmt.Errorf("batch REST frontend unreachable: %s", result.Message)
		}
	}

	return nil
}

// preReadBlueprints validates every step's referenced blueprint file
// concurrently before the plan is rendered: one errgroup goroutine per
// step with a blueprint, no limit on how many run at once, and the first
// load error is returned.
func preReadBlueprints(steps []types.Step) error {
	g := new(errgroup.Group)
	for _, step := range steps {
		step := step
		if step.Blueprint == "" {
			continue
		}
		g.Go(func() error {
			_, err := blueprint.Load(step.Blueprint)
			return err
		})
	}
	return g.Wait()
}

func writePlanFile(workplanPath, outputDir string, order []string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", err
	}

	data, err := yaml.Marshal(map[string]any{
		"workplan": workplanPath,
		"order":    order,
	})
	if err != nil {
		return "", err
	}

	planPath := filepath.Join(outputDir, "plan.yaml")
	if err := os.WriteFile(planPath, data, 0o644); err != nil {
		return "", err
	}
	return planPath, nil
}
