package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"eidoscope/internal/batch"
	"eidoscope/internal/checklist"
	"eidoscope/internal/config"
	"eidoscope/internal/export"
	"eidoscope/internal/services"
	"eidoscope/internal/sources"
	"eidoscope/internal/species"
)

type resolveOptions struct {
	file        string
	ids         string
	format      string
	output      string
	sqlitePath  string
	concurrency int
	timeout     time.Duration
	sources     []string
	quiet       bool
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var opts resolveOptions

	cmd := &cobra.Command{
		Use:   "resolve [names...]",
		Short: "Resolve species names or registry IDs and report their status",
		Long: `Resolve species names or registry IDs and report their status.

Names may be given as arguments (one item each), read from --file (one per
line, commas and semicolons also separate items; "-" reads stdin), or passed as
registry IDs with --ids. Every input item produces exactly one output row.`,
		Example: `  eidoscope resolve "Lynx pardinus" "Canis lupus"
  eidoscope resolve --file species.txt --format csv --output status.csv
  eidoscope resolve --ids 14389,14.000 --sources national_catalog,national_red_list`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, ctx, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Read names from a file (- for stdin)")
	cmd.Flags().StringVar(&opts.ids, "ids", "", "Comma-separated registry IDs")
	cmd.Flags().StringVar(&opts.format, "format", "", "Output format: table, csv, tsv, markdown, html, json (default table, or from --output extension)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the result to a file instead of stdout")
	cmd.Flags().StringVar(&opts.sqlitePath, "sqlite", "", "Also append the result to an SQLite database")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "Override batch.concurrency")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Override batch.timeout_seconds (e.g. 90s, 5m)")
	cmd.Flags().StringSliceVar(&opts.sources, "sources", nil, "Override sources.enabled (comma-separated)")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress progress and summary output")
	return cmd
}

func runResolve(cmd *cobra.Command, ctx *commandContext, args []string, opts resolveOptions) error {
	baseCfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	cfg, err := applyResolveOverrides(baseCfg, opts)
	if err != nil {
		return err
	}

	items, err := collectItems(cmd, args, opts)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return services.Wrap(services.ErrInvalidInput, "resolve", "collect input",
			"provide names as arguments, --file, or --ids", nil)
	}

	format, err := resolveFormat(opts)
	if err != nil {
		return err
	}

	client, logger, err := ctx.registryClient(cfg)
	if err != nil {
		return err
	}
	fetchers, err := sources.NewFromConfig(cfg, client, logger)
	if err != nil {
		return err
	}
	pool, _, err := checklist.LoadPool(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	var progress batch.ProgressFunc
	if !opts.quiet && shouldColorize(stderr) {
		progress = func(done, total int, row species.ResultRow) {
			fmt.Fprintf(stderr, "\r\x1b[K[%d/%d] %s", done, total, truncate(row.RawText, 50))
			if done == total {
				fmt.Fprint(stderr, "\r\x1b[K")
			}
		}
	}

	orch := batch.NewFromConfig(cfg, client, fetchers, pool, progress, logger)
	table, err := orch.Run(cmd.Context(), items)
	if err != nil {
		return err
	}

	if err := writeResult(cmd, opts.output, format, table); err != nil {
		return err
	}
	if path := strings.TrimSpace(opts.sqlitePath); path != "" {
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return err
		}
		if err := export.WriteSQLite(cmd.Context(), expanded, table); err != nil {
			return fmt.Errorf("write sqlite export: %w", err)
		}
	}
	if !opts.quiet {
		printSummary(stderr, table, shouldColorize(stderr))
	}
	return nil
}

func applyResolveOverrides(base *config.Config, opts resolveOptions) (*config.Config, error) {
	cfg := *base
	cfg.Sources.Enabled = append([]string(nil), base.Sources.Enabled...)
	if opts.concurrency != 0 {
		cfg.Batch.Concurrency = opts.concurrency
	}
	if opts.timeout != 0 {
		cfg.Batch.TimeoutSeconds = int(math.Ceil(opts.timeout.Seconds()))
	}
	if len(opts.sources) > 0 {
		var names []string
		for _, s := range opts.sources {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				names = append(names, s)
			}
		}
		cfg.Sources.Enabled = names
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// collectItems gathers input in order: arguments, file, then IDs. Positions
// are renumbered across all inputs.
func collectItems(cmd *cobra.Command, args []string, opts resolveOptions) ([]species.QueryItem, error) {
	var raw []string
	raw = append(raw, args...)

	if path := strings.TrimSpace(opts.file); path != "" {
		var data []byte
		var err error
		if path == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			var expanded string
			expanded, err = config.ExpandPath(path)
			if err == nil {
				data, err = os.ReadFile(expanded)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("read input file: %w", err)
		}
		for _, item := range species.ParseItems(string(data)) {
			raw = append(raw, item.RawText)
		}
	}

	if ids := strings.TrimSpace(opts.ids); ids != "" {
		for _, item := range species.ParseItems(ids) {
			if _, ok := item.TaxonID(); !ok {
				return nil, services.Wrap(services.ErrInvalidInput, "resolve", "parse ids",
					fmt.Sprintf("%q is not a registry id", item.RawText), nil)
			}
			raw = append(raw, item.RawText)
		}
	}
	return species.NewItems(raw), nil
}

func resolveFormat(opts resolveOptions) (export.Format, error) {
	if strings.TrimSpace(opts.format) != "" {
		return export.ParseFormat(opts.format)
	}
	if strings.TrimSpace(opts.output) != "" {
		return export.FormatForPath(opts.output), nil
	}
	return export.FormatTable, nil
}

func writeResult(cmd *cobra.Command, output string, format export.Format, table species.Table) error {
	output = strings.TrimSpace(output)
	if output == "" || output == "-" {
		return export.Render(cmd.OutOrStdout(), format, table)
	}
	path, err := config.ExpandPath(output)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := export.Render(f, format, table); err != nil {
		_ = f.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d rows to %s\n", len(table.Rows), path)
	return nil
}

func printSummary(w io.Writer, table species.Table, colorize bool) {
	var resolved, ambiguous, unresolved, protected, sourceErrors int
	for _, row := range table.Rows {
		switch {
		case row.MatchKind.Resolved():
			resolved++
		case row.MatchKind == species.MatchAmbiguous:
			ambiguous++
		default:
			unresolved++
		}
		if row.Protected() {
			protected++
		}
		for _, rec := range row.Records {
			if rec.Outcome == species.OutcomeError {
				sourceErrors++
			}
		}
	}
	kind := statusOK
	if unresolved > 0 || ambiguous > 0 || sourceErrors > 0 {
		kind = statusWarn
	}
	message := fmt.Sprintf("%d/%d resolved, %d ambiguous, %d unresolved, %d protected, %d source errors",
		resolved, len(table.Rows), ambiguous, unresolved, protected, sourceErrors)
	fmt.Fprintln(w, renderStatusLine("Run "+shortRunID(table.RunID), kind, message, colorize))
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
