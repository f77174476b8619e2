package matching

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"eidoscope/internal/logging"
	"eidoscope/internal/species"
	"eidoscope/internal/taxon"
)

// Policy holds the acceptance thresholds.
type Policy struct {
	High             float64
	Low              float64
	SpeciesEditBound int
	AmbiguityMargin  float64
}

// DefaultPolicy returns the standard acceptance thresholds.
func DefaultPolicy() Policy {
	return Policy{High: 0.92, Low: 0.85, SpeciesEditBound: 2, AmbiguityMargin: 0.02}
}

// Decision is a resolution result plus a human-readable note for ambiguous
// and unresolved outcomes.
type Decision struct {
	Match species.CandidateMatch
	Note  string
}

// Resolver selects the registry identity for a query. It holds no mutable
// state and is safe for concurrent use.
type Resolver struct {
	policy Policy
	logger *slog.Logger
}

// NewResolver constructs a resolver. A nil logger discards decision logs.
func NewResolver(policy Policy, logger *slog.Logger) *Resolver {
	return &Resolver{policy: policy, logger: logging.NewComponentLogger(logger, "matching")}
}

// Policy returns the resolver's thresholds.
func (r *Resolver) Policy() Policy {
	return r.policy
}

// Resolve matches query against candidates. Genus knowledge for the
// wrong-genus guard comes from the candidates themselves.
func (r *Resolver) Resolve(query string, candidates []Candidate) species.CandidateMatch {
	return r.Decide(query, candidates, nil).Match
}

// ResolveIn matches query against the length-compatible entries of pool,
// using the whole pool for genus knowledge.
func (r *Resolver) ResolveIn(query string, pool *Pool) Decision {
	if pool == nil {
		return Decision{Match: species.Unresolved(), Note: "no candidate names available"}
	}
	return r.Decide(query, pool.Candidates(query, r.policy.Low), pool.HasGenus)
}

type scored struct {
	cand     Candidate
	score    float64
	accepted bool
	guarded  bool
	index    int
}

// Decide runs the full policy. knownGenus may be nil, in which case the genera
// of candidates are used.
func (r *Resolver) Decide(query string, candidates []Candidate, knownGenus func(string) bool) Decision {
	q := taxon.Normalize(query)
	if q == "" {
		return Decision{Match: species.Unresolved(), Note: "blank input"}
	}
	if len(candidates) == 0 {
		return Decision{Match: species.Unresolved(), Note: "no candidate names available"}
	}

	prepared := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		c = c.prepared()
		if c.key == "" {
			continue
		}
		prepared = append(prepared, c)
	}

	if exact, ok := exactMatch(q, prepared); ok {
		r.logger.Debug("exact match",
			logging.String("query", q),
			logging.String("registry_id", exact.ID),
			logging.String("canonical_name", exact.Name))
		return Decision{Match: species.CandidateMatch{
			CanonicalName: exact.Name,
			RegistryID:    exact.ID,
			Score:         1,
			Kind:          species.MatchExact,
		}}
	}

	if knownGenus == nil {
		genera := make(map[string]struct{}, len(prepared))
		for _, c := range prepared {
			genera[taxon.Genus(c.key)] = struct{}{}
		}
		knownGenus = func(g string) bool {
			_, ok := genera[g]
			return ok
		}
	}
	qGenus := taxon.Genus(q)
	genusKnown := knownGenus(qGenus)

	results := make([]scored, 0, len(prepared))
	for i, c := range prepared {
		s := scored{cand: c, score: Similarity(q, c.key), index: i}
		if s.score < r.policy.Low {
			continue
		}
		sameGenus := taxon.Genus(c.key) == qGenus
		s.guarded = genusKnown && !sameGenus
		if !s.guarded {
			s.accepted = s.score >= r.policy.High ||
				(sameGenus && epithetDistance(q, c.key) <= r.policy.SpeciesEditBound)
		}
		results = append(results, s)
	}
	if len(results) == 0 {
		r.logger.Debug("no candidate above low threshold",
			logging.String("query", q),
			logging.Int("candidates", len(prepared)),
			logging.Float64("low_threshold", r.policy.Low))
		return Decision{Match: species.Unresolved(), Note: "no registry name is similar enough"}
	}

	slices.SortStableFunc(results, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		case a.cand.Accepted != b.cand.Accepted:
			if a.cand.Accepted {
				return -1
			}
			return 1
		default:
			return a.index - b.index
		}
	})

	bestIdx := slices.IndexFunc(results, func(s scored) bool { return s.accepted })
	if bestIdx < 0 {
		top := results[0]
		if top.guarded {
			alts := alternatives(results, top.score-r.policy.AmbiguityMargin)
			r.logger.Debug("wrong-genus candidate withheld",
				logging.String("query", q),
				logging.String("candidate", top.cand.Name),
				logging.Float64("score", top.score))
			return Decision{
				Match: species.CandidateMatch{Score: top.score, Kind: species.MatchAmbiguous, Alternatives: alts},
				Note:  fmt.Sprintf("closest names belong to another genus: %s", strings.Join(alts, "; ")),
			}
		}
		r.logger.Debug("candidate rejected by acceptance policy",
			logging.String("query", q),
			logging.String("candidate", top.cand.Name),
			logging.Float64("score", top.score))
		return Decision{
			Match: species.Unresolved(),
			Note:  fmt.Sprintf("closest name %q (score %.2f) did not pass the genus/epithet check", top.cand.Name, top.score),
		}
	}

	best := results[bestIdx]
	floor := best.score - r.policy.AmbiguityMargin
	for _, s := range results {
		if s.score < floor {
			break
		}
		if s.cand.ID != best.cand.ID {
			alts := alternatives(results, floor)
			r.logger.Debug("ambiguous near tie",
				logging.String("query", q),
				logging.Strings("alternatives", alts),
				logging.Float64("best_score", best.score))
			return Decision{
				Match: species.CandidateMatch{Score: best.score, Kind: species.MatchAmbiguous, Alternatives: alts},
				Note:  "several registry names match equally well",
			}
		}
	}

	r.logger.Debug("fuzzy match accepted",
		logging.String("query", q),
		logging.String("canonical_name", best.cand.Name),
		logging.String("registry_id", best.cand.ID),
		logging.Float64("score", best.score))
	return Decision{Match: species.CandidateMatch{
		CanonicalName: best.cand.Name,
		RegistryID:    best.cand.ID,
		Score:         best.score,
		Kind:          species.MatchFuzzy,
	}}
}

func exactMatch(q string, candidates []Candidate) (Candidate, bool) {
	var first Candidate
	found := false
	for _, c := range candidates {
		if c.key != q {
			continue
		}
		if c.Accepted {
			return c, true
		}
		if !found {
			first = c
			found = true
		}
	}
	return first, found
}

// alternatives lists distinct names scoring at or above floor, best first.
func alternatives(results []scored, floor float64) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, s := range results {
		if s.score < floor {
			break
		}
		if _, ok := seen[s.cand.Name]; ok {
			continue
		}
		seen[s.cand.Name] = struct{}{}
		out = append(out, s.cand.Name)
	}
	return out
}
