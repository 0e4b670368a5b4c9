package main

import (
	"fmt"
	"os"

	"github.com/cuemby/cstarorch/pkg/config"
	"github.com/cuemby/cstarorch/pkg/log"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	cfgPath string
	logDir  string
	cfg     config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cstarorch",
	Short: "cstarorch runs workplans of interdependent scientific simulation steps",
	Long: `cstarorch drives a declarative workplan through either local
processes or a SLURM-like batch scheduler, reconciling each step's status
until the whole plan completes.`,
	Version:           Version,
	PersistentPreRunE: initRun,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"cstarorch version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to a cstarorch config YAML file (defaults applied if unset)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", ".", "Directory local-backend process logs are written into")

	rootCmd.AddCommand(workplanCmd)
	rootCmd.AddCommand(blueprintCmd)
}

func initRun(cmd *cobra.Command, args []string) error {
	logLevel, _ := cmd.Flags().GetString("log-level")
	logJSON, _ := cmd.Flags().GetBool("log-json")
	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})

	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		cfg = *loaded
	} else {
		cfg = config.Default()
	}
	return nil
}
