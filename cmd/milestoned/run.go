package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fyrsmithlabs/milestoned/internal/agent"
	"github.com/fyrsmithlabs/milestoned/internal/artifact"
	"github.com/fyrsmithlabs/milestoned/internal/logging"
	"github.com/fyrsmithlabs/milestoned/internal/plan"
	"github.com/fyrsmithlabs/milestoned/internal/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Implement the next unchecked milestone",
		Long: `Implement the next unchecked milestone.

The model receives the milestone and may call updateArtifact with a filename
and contents. When it does, the file is written to the artifacts directory and
the milestone is checked off. A text-only answer is printed and the milestone
stays open.

Examples:
  # Implement the next milestone
  milestoned run

  # Use another plan and print the summary as JSON
  milestoned run --plan docs/plan.md --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			gw, err := newGateway(cfg.Model)
			if err != nil {
				return err
			}

			ctx := logging.WithLogger(cmd.Context(), logger)

			tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg.Telemetry, version))
			if err != nil {
				return err
			}
			defer func() {
				if err := tel.Shutdown(context.Background()); err != nil {
					logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
				}
			}()

			orch := agent.New(
				plan.NewFileRepository(cfg.Plan.Path),
				artifact.NewFileStore(cfg.Artifacts.Dir),
				gw,
				agent.WithSystemPrompt(cfg.Model.SystemPrompt),
				agent.WithLogger(logger),
				agent.WithTracerProvider(tel.TracerProvider()),
				agent.WithMeterProvider(tel.MeterProvider()),
				agent.WithProgress(func(p agent.Progress) {
					logger.Debug(ctx, p.Message, zap.String("step", string(p.Step)))
				}),
			)

			summary, err := orch.RunOnce(ctx)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			fmt.Fprintln(cmd.OutOrStdout(), describe(summary))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run summary as JSON")
	return cmd
}

// describe renders a summary for the terminal.
func describe(s *agent.Summary) string {
	switch s.Status {
	case agent.StatusCompleted:
		head := fmt.Sprintf("Completed %q (updated %s).", plan.Milestone(s.Milestone).Description(), s.Artifact)
		if s.Text == "" {
			return head
		}
		return head + "\n\n" + s.Text
	default:
		return s.Text
	}
}
