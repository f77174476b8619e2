package sources

import (
	"context"
	"slices"
	"strings"

	"eidoscope/internal/eidos"
	"eidoscope/internal/species"
	"eidoscope/internal/taxon"
)

// LegalLookup returns the legal listings of a taxon.
type LegalLookup interface {
	LegalStatuses(ctx context.Context, id string) ([]eidos.LegalStatus, error)
}

// Autonomous communities in the order regional columns are displayed.
var regionOrder = []string{
	"Andalucía", "Aragón", "Asturias", "Illes Balears", "Canarias", "Cantabria",
	"Castilla-La Mancha", "Castilla y León", "Cataluña", "Ceuta", "Comunitat Valenciana",
	"Extremadura", "Galicia", "La Rioja", "Comunidad de Madrid", "Melilla",
	"Región de Murcia", "Navarra", "País Vasco",
}

var regionRank = func() map[string]int {
	ranks := make(map[string]int, len(regionOrder))
	for i, name := range regionOrder {
		ranks[fold(name)] = i
	}
	return ranks
}()

// Convention datasets are ranked by the first pattern they contain.
var conventionPriority = []struct {
	pattern string
	rank    int
}{
	{"directiva aves", 1}, {"aves", 2}, {"directiva habitat", 3},
	{"habitat", 4}, {"cites", 5}, {"berna", 6}, {"bonn", 7}, {"cms", 7}, {"aewa", 8},
}

const unknownRegion = "Desconocida"

type legalScope int

const (
	scopeNational legalScope = iota
	scopeRegional
	scopeInternational
)

func classifyScope(scope string) legalScope {
	switch s := fold(scope); {
	case strings.Contains(s, "nacional") && !strings.Contains(s, "internacional"):
		return scopeNational
	case strings.Contains(s, "autonomico"), strings.Contains(s, "regional"):
		return scopeRegional
	default:
		return scopeInternational
	}
}

func isHabitatsDataset(dataset string) bool {
	return strings.Contains(fold(dataset), "habitat")
}

func isBirdsDataset(dataset string) bool {
	d := fold(dataset)
	return strings.Contains(d, "aves") && !strings.Contains(d, "habitat")
}

// legalFetcher groups current listings selected by pick and summarizes them.
type legalFetcher struct {
	name    string
	lookup  LegalLookup
	pick    func(eidos.LegalStatus) (group string, ok bool)
	rank    func(group string) int
	qualify bool
}

func (f legalFetcher) Name() string { return f.name }

func (f legalFetcher) Fetch(ctx context.Context, target Target) species.SourceRecord {
	if strings.TrimSpace(target.ID) == "" {
		return species.NotFound(f.name)
	}
	statuses, err := f.lookup.LegalStatuses(ctx, target.ID)
	if err != nil {
		return FromError(f.name, err)
	}
	groups := make(map[string][]string)
	for _, s := range statuses {
		state := strings.TrimSpace(s.Status)
		if !s.IsCurrent() || state == "" {
			continue
		}
		group, ok := f.pick(s)
		if !ok {
			continue
		}
		groups[group] = append(groups[group], state)
	}
	if len(groups) == 0 {
		return species.NotFound(f.name)
	}
	code, label := summarize(groups, f.rank, f.qualify)
	return species.OK(f.name, code, label)
}

// summarize joins the de-duplicated, sorted states of every group. The code
// is the union of states; the label names each group unless there is a
// single group and qualify is false.
func summarize(groups map[string][]string, rank func(string) int, qualify bool) (code, label string) {
	keys := make([]string, 0, len(groups))
	var all []string
	for key, states := range groups {
		keys = append(keys, key)
		all = append(all, states...)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if ra, rb := rank(a), rank(b); ra != rb {
			return ra - rb
		}
		return strings.Compare(a, b)
	})
	code = joinStates(all)
	if len(keys) == 1 && !qualify {
		return code, code
	}
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+joinStates(groups[key]))
	}
	return code, strings.Join(parts, "; ")
}

func joinStates(states []string) string {
	out := slices.Clone(states)
	slices.Sort(out)
	return strings.Join(slices.Compact(out), ", ")
}

func datasetOr(s eidos.LegalStatus, fallback string) string {
	if d := strings.TrimSpace(s.Dataset); d != "" {
		return d
	}
	return fallback
}

func nationalRank(dataset string) int {
	if fold(dataset) == "catalogo nacional" {
		return 0
	}
	return 1
}

func regionalRank(region string) int {
	if rank, ok := regionRank[fold(region)]; ok {
		return rank
	}
	return len(regionOrder)
}

func conventionRank(dataset string) int {
	d := fold(dataset)
	for _, p := range conventionPriority {
		if strings.Contains(d, p.pattern) {
			return p.rank
		}
	}
	return 100
}

// NewNationalCatalog reports listings of national scope (LESRPE, Catálogo
// Español de Especies Amenazadas).
func NewNationalCatalog(lookup LegalLookup) Fetcher {
	return legalFetcher{
		name:   species.SourceNationalCatalog,
		lookup: lookup,
		pick: func(s eidos.LegalStatus) (string, bool) {
			return datasetOr(s, "Catálogo Nacional"), classifyScope(s.Scope) == scopeNational
		},
		rank: nationalRank,
	}
}

// NewRegionalCatalogs reports listings in autonomous-community catalogues,
// labelled by community.
func NewRegionalCatalogs(lookup LegalLookup) Fetcher {
	return legalFetcher{
		name:   species.SourceRegionalCatalogs,
		lookup: lookup,
		pick: func(s eidos.LegalStatus) (string, bool) {
			region := strings.TrimSpace(s.Region)
			if region == "" {
				region = unknownRegion
			}
			return region, classifyScope(s.Scope) == scopeRegional
		},
		rank:    regionalRank,
		qualify: true,
	}
}

// NewHabitatsDirective reports Habitats Directive annex listings.
func NewHabitatsDirective(lookup LegalLookup) Fetcher {
	return legalFetcher{
		name:   species.SourceEUHabitatsDirective,
		lookup: lookup,
		pick: func(s eidos.LegalStatus) (string, bool) {
			return datasetOr(s, "Directiva Hábitats"),
				classifyScope(s.Scope) == scopeInternational && isHabitatsDataset(s.Dataset)
		},
		rank: conventionRank,
	}
}

// NewBirdsDirective reports Birds Directive annex listings.
func NewBirdsDirective(lookup LegalLookup) Fetcher {
	return legalFetcher{
		name:   species.SourceEUBirdsDirective,
		lookup: lookup,
		pick: func(s eidos.LegalStatus) (string, bool) {
			return datasetOr(s, "Directiva Aves"),
				classifyScope(s.Scope) == scopeInternational && isBirdsDataset(s.Dataset)
		},
		rank: conventionRank,
	}
}

// NewInternationalConventions reports the remaining international listings
// (CITES, Bern, Bonn, AEWA), labelled by instrument.
func NewInternationalConventions(lookup LegalLookup) Fetcher {
	return legalFetcher{
		name:   species.SourceInternationalConventions,
		lookup: lookup,
		pick: func(s eidos.LegalStatus) (string, bool) {
			if classifyScope(s.Scope) != scopeInternational || isHabitatsDataset(s.Dataset) || isBirdsDataset(s.Dataset) {
				return "", false
			}
			return datasetOr(s, "Convenio Internacional"), true
		},
		rank:    conventionRank,
		qualify: true,
	}
}

func fold(s string) string {
	return strings.ToLower(taxon.Fold(s))
}
