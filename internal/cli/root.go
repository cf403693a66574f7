package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"VitalPulse/internal/di"
	"VitalPulse/pkg/config"
)

type app struct {
	configPath string
	jsonOut    bool
	timeout    time.Duration
	stdout     io.Writer
	stderr     io.Writer

	// tooling opens the engine; tests swap it for an in-memory one.
	tooling func(cfg *config.Config) (*di.Tooling, error)
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(os.Stdout, os.Stderr, di.OpenTooling)
}

func newRootCommand(out, errOut io.Writer, tooling func(*config.Config) (*di.Tooling, error)) *cobra.Command {
	a := &app{stdout: out, stderr: errOut, tooling: tooling}

	cmd := &cobra.Command{
		Use:           "baselinectl",
		Short:         "Inspect and adjust personal health baselines",
		Long:          "baselinectl talks to the same stores as the service: it can record observations, read baselines, classify values and build snapshots.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	defCfg := os.Getenv("VITALPULSE_CONFIG")
	if defCfg == "" {
		defCfg = "config/config.yaml"
	}
	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", defCfg, "config file path")
	cmd.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print raw JSON")
	cmd.PersistentFlags().DurationVar(&a.timeout, "timeout", 10*time.Second, "per-command timeout")

	cmd.AddCommand(
		newCatalogCmd(a),
		newObserveCmd(a),
		newBaselineCmd(a),
		newClassifyCmd(a),
		newPatternsCmd(a),
		newSnapshotCmd(a),
	)
	return cmd
}

// open loads config and wires the engine. Callers must Close the result.
func (a *app) open() (*di.Tooling, error) {
	cfg, err := config.LoadWithEnv(a.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	t, err := a.tooling(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize engine: %w", err)
	}
	return t, nil
}
