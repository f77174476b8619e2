package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"eidoscope/internal/config"
	"eidoscope/internal/logging"
	"eidoscope/internal/matching"
	"eidoscope/internal/memo"
	"eidoscope/internal/services"
	"eidoscope/internal/sources"
	"eidoscope/internal/species"
)

// DefaultConcurrency bounds outstanding registry and source calls per run.
const DefaultConcurrency = 8

// Registry is the name and ID lookup surface of the taxonomic registry.
type Registry interface {
	SearchByName(ctx context.Context, name string) ([]matching.Candidate, error)
	GetDetail(ctx context.Context, id string) (species.Taxon, error)
}

// ProgressFunc receives each completed row. Calls are serialized.
type ProgressFunc func(done, total int, row species.ResultRow)

// Options tune an Orchestrator.
type Options struct {
	Concurrency int
	// Timeout bounds a whole run. Zero disables the deadline.
	Timeout  time.Duration
	Policy   matching.Policy
	Progress ProgressFunc
}

// Orchestrator runs batches against one registry and a fixed set of sources.
type Orchestrator struct {
	registry Registry
	fetchers []sources.Fetcher
	pool     *matching.Pool
	resolver *matching.Resolver
	opts     Options
	logger   *slog.Logger
}

// New builds an orchestrator. pool may be nil; names then resolve through
// registry search results alone.
func New(registry Registry, fetchers []sources.Fetcher, pool *matching.Pool, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Policy == (matching.Policy{}) {
		opts.Policy = matching.DefaultPolicy()
	}
	if pool == nil {
		pool = matching.NewPool(nil)
	}
	logger = logging.NewComponentLogger(logger, "batch")
	return &Orchestrator{
		registry: registry,
		fetchers: fetchers,
		pool:     pool,
		resolver: matching.NewResolver(opts.Policy, logger),
		opts:     opts,
		logger:   logger,
	}
}

// NewFromConfig builds an orchestrator with the [batch] and [matching]
// settings of cfg.
func NewFromConfig(cfg *config.Config, registry Registry, fetchers []sources.Fetcher, pool *matching.Pool, progress ProgressFunc, logger *slog.Logger) *Orchestrator {
	return New(registry, fetchers, pool, Options{
		Concurrency: cfg.Batch.Concurrency,
		Timeout:     cfg.BatchTimeout(),
		Policy: matching.Policy{
			High:             cfg.Matching.HighThreshold,
			Low:              cfg.Matching.LowThreshold,
			SpeciesEditBound: cfg.Matching.SpeciesEditBound,
			AmbiguityMargin:  cfg.Matching.AmbiguityMargin,
		},
		Progress: progress,
	}, logger)
}

// Run resolves items and fetches every source for each resolved species. The
// returned table has exactly one row per item, ordered by position. An empty
// batch yields an empty table.
func (o *Orchestrator) Run(ctx context.Context, items []species.QueryItem) (species.Table, error) {
	if o == nil || o.registry == nil {
		return species.Table{}, services.Wrap(services.ErrConfiguration, "batch", "run", "registry client not configured", nil)
	}
	if len(o.fetchers) == 0 {
		return species.Table{}, services.Wrap(services.ErrConfiguration, "batch", "run", "no sources configured", nil)
	}
	names, err := o.sourceNames()
	if err != nil {
		return species.Table{}, err
	}

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, o.logger)
	table := species.Table{RunID: runID, Sources: names, Rows: []species.ResultRow{}}
	if len(items) == 0 {
		logger.Warn("empty batch submitted",
			logging.String(logging.FieldEventType, "batch_empty"),
			logging.String(logging.FieldErrorHint, "provide at least one name or registry id"),
		)
		return table, nil
	}

	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}
	r := newRun(ctx, o, logger, len(items))

	started := time.Now()
	logger.Info("batch started",
		logging.Int("items", len(items)),
		logging.Int("sources", len(o.fetchers)),
		logging.Int("concurrency", o.opts.Concurrency),
		logging.Int("pool_size", o.pool.Len()),
		logging.Float64("high_threshold", o.resolver.Policy().High),
		logging.Float64("low_threshold", o.resolver.Policy().Low),
	)

	entities := r.resolve(items)
	table.Rows = r.fanOut(entities)
	table.SortRows()

	summary := summarize(table)
	logger.Info("batch completed",
		logging.Int("items", len(items)),
		logging.Int("resolved", summary.resolved),
		logging.Int("ambiguous", summary.ambiguous),
		logging.Int("unresolved", summary.unresolved),
		logging.Int("source_errors", summary.sourceErrors),
		logging.Int("lookups", r.memo.Calls()),
		logging.Int("memo_entries", r.memo.Len()),
		logging.Duration("elapsed", time.Since(started)),
	)
	if ctx.Err() != nil {
		logging.WarnWithContext(logger, "batch deadline reached", "batch_timeout",
			logging.Duration("timeout", o.opts.Timeout),
			logging.String(logging.FieldErrorHint, "raise batch.timeout_seconds or reduce the batch size"),
		)
	}
	return table, nil
}

// sourceNames returns the fetcher names in display order. Records are keyed by
// name, so two fetchers sharing one are rejected.
func (o *Orchestrator) sourceNames() ([]string, error) {
	names := make([]string, 0, len(o.fetchers))
	seen := make(map[string]struct{}, len(o.fetchers))
	for _, f := range o.fetchers {
		name := f.Name()
		if _, ok := seen[name]; ok {
			return nil, services.Wrap(services.ErrConfiguration, "batch", "run",
				fmt.Sprintf("duplicate source %q", name), nil)
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	species.SortSources(names)
	return names, nil
}

type runSummary struct {
	resolved, ambiguous, unresolved, sourceErrors int
}

func summarize(table species.Table) runSummary {
	var s runSummary
	for _, row := range table.Rows {
		switch row.MatchKind {
		case species.MatchExact, species.MatchFuzzy:
			s.resolved++
		case species.MatchAmbiguous:
			s.ambiguous++
		default:
			s.unresolved++
		}
		for _, rec := range row.Records {
			if rec.Outcome == species.OutcomeError {
				s.sourceErrors++
			}
		}
	}
	return s
}

// newMemoContext attaches a fresh lookup memo to ctx.
func newMemoContext(ctx context.Context) (context.Context, *memo.Memo) {
	m := memo.New()
	return memo.WithMemo(ctx, m), m
}
