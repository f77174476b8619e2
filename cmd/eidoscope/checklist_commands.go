package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"eidoscope/internal/checklist"
	"eidoscope/internal/eidos"
)

func newChecklistCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checklist",
		Short: "Manage the local reference checklist snapshot",
	}
	cmd.AddCommand(newChecklistRefreshCommand(ctx))
	cmd.AddCommand(newChecklistStatusCommand(ctx))
	return cmd
}

func newChecklistRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Download the reference checklist and replace the snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, logger, err := ctx.registryClient(cfg)
			if err != nil {
				return err
			}
			status, err := checklist.Refresh(cmd.Context(), cfg, client, client.BaseURL()+eidos.PathChecklist, logger)
			if errors.Is(err, checklist.ErrRefreshInProgress) {
				return fmt.Errorf("%w (lock %s)", err, cfg.ChecklistLockPath())
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %d checklist entries in %s\n", status.Entries, status.Path)
			return nil
		},
	}
}

type checklistStatusView struct {
	Path        string `json:"path"`
	Present     bool   `json:"present"`
	Entries     int    `json:"entries"`
	RefreshedAt string `json:"refreshed_at,omitempty"`
	Source      string `json:"source,omitempty"`
	Stale       bool   `json:"stale"`
}

func newChecklistStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the snapshot size and age",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			view := checklistStatusView{Path: cfg.Checklist.Path, Stale: true}
			if _, statErr := os.Stat(cfg.Checklist.Path); statErr == nil {
				store, err := checklist.Open(cmd.Context(), cfg.Checklist.Path)
				if err != nil {
					return err
				}
				status, err := store.Status(cmd.Context())
				_ = store.Close()
				if err != nil {
					return err
				}
				view.Present = true
				view.Entries = status.Entries
				view.Source = status.Source
				if !status.RefreshedAt.IsZero() {
					view.RefreshedAt = status.RefreshedAt.UTC().Format(time.RFC3339)
				}
				view.Stale = status.Stale(time.Now(), cfg.ChecklistMaxAge())
			}

			if asJSON {
				return writeJSON(cmd, view)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Checklist", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Path", statusInfo, view.Path, colorize))
			if !view.Present {
				fmt.Fprintln(out, renderStatusLine("Snapshot", statusWarn, "missing (run 'eidoscope checklist refresh')", colorize))
				return nil
			}
			kind := statusOK
			if view.Stale {
				kind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Entries", kind, fmt.Sprintf("%d", view.Entries), colorize))
			fmt.Fprintln(out, renderStatusLine("Refreshed", kind, orDash(view.RefreshedAt), colorize))
			fmt.Fprintln(out, renderStatusLine("Stale", kind, yesNo(view.Stale), colorize))
			if view.Source != "" {
				fmt.Fprintln(out, renderStatusLine("Source", statusInfo, view.Source, colorize))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
