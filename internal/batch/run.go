package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"eidoscope/internal/logging"
	"eidoscope/internal/matching"
	"eidoscope/internal/memo"
	"eidoscope/internal/services"
	"eidoscope/internal/sources"
	"eidoscope/internal/species"
	"eidoscope/internal/taxon"
)

const timeoutDetail = "timeout"

// run is the state of one Run call.
type run struct {
	ctx      context.Context
	o        *Orchestrator
	logger   *slog.Logger
	sem      *semaphore.Weighted
	memo     *memo.Memo
	pool     *matching.Pool
	total    int
	progress *logging.ProgressSampler
}

func newRun(ctx context.Context, o *Orchestrator, logger *slog.Logger, total int) *run {
	ctx, m := newMemoContext(ctx)
	return &run{
		ctx:      ctx,
		o:        o,
		logger:   logger,
		sem:      semaphore.NewWeighted(int64(o.opts.Concurrency)),
		memo:     m,
		pool:     o.pool.Fork(),
		total:    total,
		progress: logging.NewProgressSampler(10),
	}
}

// entity is a resolved item plus whether its resolution was cut off by the
// deadline.
type entity struct {
	species.ResolvedEntity
	timedOut bool
}

// lookup is the registry answer for one distinct query key.
type lookup struct {
	query      string
	id         string
	candidates []matching.Candidate
	taxon      species.Taxon
	err        error
}

func (l *lookup) isID() bool { return l.id != "" }

// queryKey maps an item to its deduplication key: "id:<n>" for ID input, the
// normalized name otherwise, or "" for blank input.
func queryKey(item species.QueryItem) (key, id, name string) {
	if id, ok := item.TaxonID(); ok {
		return "id:" + id, id, ""
	}
	parsed := taxon.Parse(item.RawText)
	normalized := parsed.Canonical()
	if normalized == "" {
		return "", "", ""
	}
	return normalized, "", parsed.Display()
}

// resolve produces one entity per item. Registry lookups run once per
// distinct key; every name is then matched against the run pool after all
// searches have contributed their candidates.
func (r *run) resolve(items []species.QueryItem) []entity {
	keys := make([]string, len(items))
	lookups := make(map[string]*lookup)
	var order []*lookup
	for i, item := range items {
		key, id, name := queryKey(item)
		keys[i] = key
		if key == "" {
			continue
		}
		if _, ok := lookups[key]; ok {
			continue
		}
		l := &lookup{query: name, id: id}
		lookups[key] = l
		order = append(order, l)
	}

	var wg sync.WaitGroup
	for _, l := range order {
		wg.Add(1)
		go func(l *lookup) {
			defer wg.Done()
			r.lookupRegistry(l)
		}(l)
	}
	wg.Wait()

	for _, l := range order {
		if !l.isID() && len(l.candidates) > 0 {
			r.pool.Add(l.candidates...)
		}
	}

	decisions := make(map[string]matching.Decision, len(order))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for key, l := range lookups {
		if l.isID() {
			continue
		}
		g.Go(func() error {
			d := r.o.resolver.ResolveIn(key, r.pool)
			mu.Lock()
			decisions[key] = d
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	entities := make([]entity, len(items))
	for i, item := range items {
		entities[i] = r.entityFor(item, keys[i], lookups[keys[i]], decisions[keys[i]])
	}
	return entities
}

func (r *run) entityFor(item species.QueryItem, key string, l *lookup, d matching.Decision) entity {
	e := entity{ResolvedEntity: species.ResolvedEntity{Item: item, Match: species.Unresolved()}}
	if key == "" {
		e.Note = "blank input"
		return e
	}
	if l.err != nil && services.IsTimeout(l.err) {
		e.Note = "timeout"
		e.timedOut = true
		return e
	}
	if l.isID() {
		if l.err != nil {
			e.Note = registryNote(l.err, "registry id "+l.id)
			return e
		}
		e.Match = species.CandidateMatch{
			CanonicalName: l.taxon.Name,
			RegistryID:    l.taxon.ID,
			Score:         1,
			Kind:          species.MatchExact,
		}
		return e
	}
	e.Match = d.Match
	e.Note = d.Note
	if l.err != nil && !e.Match.Kind.Resolved() {
		e.Note = joinNotes(e.Note, registryNote(l.err, "registry search"))
	}
	return e
}

// lookupRegistry fills l from the registry, retrying a transport failure once.
func (r *run) lookupRegistry(l *lookup) {
	if l.isID() {
		l.taxon, l.err = memo.Get(r.ctx, r.memo, "registry:detail:"+l.id, func(ctx context.Context) (species.Taxon, error) {
			var t species.Taxon
			err := r.registryCall("get detail", func(ctx context.Context) error {
				var err error
				t, err = r.o.registry.GetDetail(ctx, l.id)
				return err
			})
			return t, err
		})
		return
	}
	l.candidates, l.err = memo.Get(r.ctx, r.memo, "registry:search:"+l.query, func(ctx context.Context) ([]matching.Candidate, error) {
		var out []matching.Candidate
		err := r.registryCall("search", func(ctx context.Context) error {
			var err error
			out, err = r.o.registry.SearchByName(ctx, l.query)
			return err
		})
		return out, err
	})
	if l.err != nil && !services.IsTimeout(l.err) {
		logging.WarnWithContext(r.logger, "registry search failed; matching against checklist only", "registry_search_failed",
			logging.String("query", l.query),
			logging.Error(l.err),
		)
	}
}

// registryCall runs fn under the semaphore and retries once when the error is
// retryable and the run is still live.
func (r *run) registryCall(op string, fn func(context.Context) error) error {
	attempt := func() error {
		if err := r.sem.Acquire(r.ctx, 1); err != nil {
			return err
		}
		defer r.sem.Release(1)
		return fn(r.ctx)
	}
	err := attempt()
	if err == nil || !services.IsRetryable(err) || r.ctx.Err() != nil {
		return err
	}
	r.logger.Debug("retrying registry call", logging.String("operation", op), logging.Error(err))
	return attempt()
}

// fanOut fetches every source for each resolved entity and returns the rows
// in completion order.
func (r *run) fanOut(entities []entity) []species.ResultRow {
	rowCh := make(chan species.ResultRow, len(entities))
	for _, e := range entities {
		go func(e entity) {
			rowCh <- species.NewRow(e.ResolvedEntity, r.fetchAll(e))
		}(e)
	}

	rows := make([]species.ResultRow, 0, len(entities))
	for done := 1; done <= len(entities); done++ {
		row := <-rowCh
		rows = append(rows, row)
		if r.o.opts.Progress != nil {
			r.o.opts.Progress(done, len(entities), row)
		}
		if r.progress.ShouldLog(done, len(entities)) {
			r.logger.Info("batch progress",
				logging.Int("done", done),
				logging.Int("total", len(entities)),
			)
		}
	}
	return rows
}

// fetchAll runs every source for e. Unresolved entities get no records unless
// their resolution timed out, in which case every source reports the timeout.
func (r *run) fetchAll(e entity) map[string]species.SourceRecord {
	records := make(map[string]species.SourceRecord, len(r.o.fetchers))
	if e.timedOut {
		for _, f := range r.o.fetchers {
			records[f.Name()] = species.Failed(f.Name(), timeoutDetail)
		}
		return records
	}
	if !e.Match.Kind.Resolved() || e.Match.RegistryID == "" {
		return records
	}

	target := sources.Target{ID: e.Match.RegistryID, Name: e.Match.CanonicalName}
	ctx := services.WithPosition(r.ctx, e.Item.Position)
	type pendingFetch struct {
		name string
		ch   chan species.SourceRecord
	}
	pending := make([]pendingFetch, 0, len(r.o.fetchers))
	for _, f := range r.o.fetchers {
		ch := make(chan species.SourceRecord, 1)
		pending = append(pending, pendingFetch{name: f.Name(), ch: ch})
		go func(f sources.Fetcher) {
			ch <- r.fetchOne(ctx, f, target)
		}(f)
	}
	for _, p := range pending {
		// A finished fetch is kept even when the deadline has already passed.
		select {
		case rec := <-p.ch:
			records[p.name] = rec
			continue
		default:
		}
		select {
		case rec := <-p.ch:
			records[p.name] = rec
		case <-r.ctx.Done():
			select {
			case rec := <-p.ch:
				records[p.name] = rec
			default:
				records[p.name] = species.Failed(p.name, timeoutDetail)
			}
		}
	}
	return records
}

// fetchOne runs f for target once per run; entities sharing a registry ID
// share the result.
func (r *run) fetchOne(ctx context.Context, f sources.Fetcher, target sources.Target) species.SourceRecord {
	name := f.Name()
	rec, err := memo.Get(ctx, r.memo, "source:"+name+":"+target.ID, func(ctx context.Context) (species.SourceRecord, error) {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			return species.Failed(name, timeoutDetail), nil
		}
		defer r.sem.Release(1)
		rec := sources.Fetch(services.WithSource(ctx, name), f, target)
		if rec.Outcome == species.OutcomeError {
			r.logger.Debug("source fetch failed",
				logging.String(logging.FieldSource, name),
				logging.String("registry_id", target.ID),
				logging.String("detail", rec.Detail),
			)
		}
		return rec, nil
	})
	if err != nil {
		return sources.FromError(name, err)
	}
	return rec
}

func registryNote(err error, what string) string {
	if services.IsTimeout(err) {
		return "timeout"
	}
	if errors.Is(err, services.ErrNotFound) {
		return what + " not found"
	}
	return fmt.Sprintf("%s failed: %v", what, err)
}

func joinNotes(notes ...string) string {
	var parts []string
	for _, n := range notes {
		if n = strings.TrimSpace(n); n != "" {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, "; ")
}
