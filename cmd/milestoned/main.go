// Package main implements the milestoned CLI.
//
// milestoned implements the next unchecked milestone of a plan by asking a
// chat completion service for updated artifact files.
package main

import (
	"fmt"
	"os"

	"github.com/fyrsmithlabs/milestoned/internal/agent"
	"github.com/fyrsmithlabs/milestoned/internal/config"
	"github.com/fyrsmithlabs/milestoned/internal/gateway"
	"github.com/fyrsmithlabs/milestoned/internal/logging"
	"github.com/spf13/cobra"
)

var version = "dev"

// newGateway is replaced in tests.
var newGateway = func(cfg config.ModelConfig) (agent.Gateway, error) {
	return gateway.New(cfg)
}

// rootOptions holds the persistent flags.
type rootOptions struct {
	configPath   string
	planPath     string
	artifactsDir string
	logLevel     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "milestoned:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "milestoned",
		Short: "Implement plan milestones one at a time with a language model",
		Long: `milestoned reads a checklist plan (lines like "- [ ] 1. Build header"),
asks a chat completion service to implement the first unchecked milestone,
writes the files it returns into the artifacts directory, and checks the
milestone off.

Each invocation of "milestoned run" handles at most one milestone.

Configuration is read from ./milestoned.yaml (or --config) and MILESTONED_*
environment variables. OPENAI_API_KEY is used when no key is configured.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default ./milestoned.yaml if present)")
	pf.StringVar(&opts.planPath, "plan", "", "plan file (default "+config.DefaultPlanPath+")")
	pf.StringVar(&opts.artifactsDir, "artifacts", "", "artifact directory (default "+config.DefaultArtifactsDir+")")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newNextCmd(opts))
	root.AddCommand(newStatusCmd(opts))
	root.AddCommand(newShowCmd(opts))
	return root
}

// load resolves configuration and applies flag overrides.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.planPath != "" {
		cfg.Plan.Path = o.planPath
	}
	if o.artifactsDir != "" {
		cfg.Artifacts.Dir = o.artifactsDir
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, nil
}

// newLogger builds the stderr logger for a command.
func newLogger(cmd *cobra.Command, cfg *config.Config) (*logging.Logger, error) {
	logCfg, err := logging.FromAppConfig(cfg.Logging)
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewLoggerTo(logCfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
