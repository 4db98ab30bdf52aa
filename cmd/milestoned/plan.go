package main

import (
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/milestoned/internal/artifact"
	"github.com/fyrsmithlabs/milestoned/internal/plan"
	"github.com/spf13/cobra"
)

func newNextCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Print the next unchecked milestone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			text, err := plan.NewFileRepository(cfg.Plan.Path).Read(cmd.Context())
			if errors.Is(err, plan.ErrPlanNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), "No plan found.")
				return nil
			}
			if err != nil {
				return err
			}

			m, ok := plan.SelectNext(text)
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "All milestones are completed.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), m)
			return nil
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print milestone progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			text, err := plan.NewFileRepository(cfg.Plan.Path).Read(cmd.Context())
			if errors.Is(err, plan.ErrPlanNotFound) {
				fmt.Fprintf(cmd.OutOrStdout(), "No plan found at %s.\n", cfg.Plan.Path)
				return nil
			}
			if err != nil {
				return err
			}

			p := plan.Summarize(text)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Plan: %s\n", cfg.Plan.Path)
			fmt.Fprintf(out, "Milestones: %d done, %d pending, %d total\n", p.Done, p.Pending, p.Total)
			if m, ok := plan.SelectNext(text); ok {
				fmt.Fprintf(out, "Next: %s\n", m.Description())
			}
			return nil
		},
	}
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <filename>",
		Short: "Print an artifact",
		Long: `Print the current contents of an artifact.

Examples:
  milestoned show index.html
  milestoned show styles.css --artifacts site`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			contents, err := artifact.NewFileStore(cfg.Artifacts.Dir).Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), contents)
			return nil
		},
	}
}
