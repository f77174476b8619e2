package sources

import (
	"context"
	"strings"

	"eidoscope/internal/eidos"
	"eidoscope/internal/species"
)

// ConservationLookup returns the threat assessments of a taxon.
type ConservationLookup interface {
	ConservationStatuses(ctx context.Context, id string) ([]eidos.ConservationStatus, error)
}

type redListFetcher struct {
	name   string
	lookup ConservationLookup
	match  func(scope string) bool
}

func (f redListFetcher) Name() string { return f.name }

func (f redListFetcher) Fetch(ctx context.Context, target Target) species.SourceRecord {
	if strings.TrimSpace(target.ID) == "" {
		return species.NotFound(f.name)
	}
	statuses, err := f.lookup.ConservationStatuses(ctx, target.ID)
	if err != nil {
		return FromError(f.name, err)
	}
	var codes, labels []string
	for _, s := range statuses {
		if !s.IsCurrent() || !f.match(s.Scope) {
			continue
		}
		code := strings.TrimSpace(s.Code)
		category := strings.TrimSpace(s.Category)
		if code == "" {
			code = category
		}
		if code == "" {
			continue
		}
		codes = append(codes, code)
		if category != "" {
			labels = append(labels, category)
		} else {
			labels = append(labels, code)
		}
	}
	if len(codes) == 0 {
		return species.NotFound(f.name)
	}
	return species.OK(f.name, joinStates(codes), joinStates(labels))
}

// NewNationalRedList reports the current Spanish red list category.
func NewNationalRedList(lookup ConservationLookup) Fetcher {
	return redListFetcher{
		name:   species.SourceNationalRedList,
		lookup: lookup,
		match: func(scope string) bool {
			return classifyScope(scope) == scopeNational
		},
	}
}

// NewGlobalRedList reports the current global category as mirrored by EIDOS.
func NewGlobalRedList(lookup ConservationLookup) Fetcher {
	return redListFetcher{
		name:   species.SourceGlobalRedList,
		lookup: lookup,
		match: func(scope string) bool {
			s := fold(scope)
			return strings.Contains(s, "mundial") || strings.Contains(s, "global")
		},
	}
}
