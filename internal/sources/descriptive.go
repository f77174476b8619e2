package sources

import (
	"context"
	"strings"

	"eidoscope/internal/eidos"
	"eidoscope/internal/species"
)

// TaxonomyLookup returns the taxonomy view rows of a taxon.
type TaxonomyLookup interface {
	Taxonomy(ctx context.Context, id string) ([]eidos.TaxonomyRow, error)
}

// CommonNameLookup returns the vernacular names of a taxon.
type CommonNameLookup interface {
	CommonNames(ctx context.Context, id string) ([]eidos.CommonName, error)
}

// NewTaxonomicGroup reports the registry's taxonomic group (Aves, Mamíferos,
// Plantas vasculares...).
func NewTaxonomicGroup(lookup TaxonomyLookup) Fetcher {
	return NewFunc(species.SourceTaxonomicGroup, func(ctx context.Context, target Target) (species.SourceRecord, error) {
		rows, err := lookup.Taxonomy(ctx, target.ID)
		if err != nil {
			return species.SourceRecord{}, err
		}
		for _, row := range rows {
			if group := strings.TrimSpace(row.TaxonomicGroup); group != "" {
				return species.OK(species.SourceTaxonomicGroup, group, group), nil
			}
		}
		return species.NotFound(species.SourceTaxonomicGroup), nil
	})
}

// NewCommonName reports the preferred Spanish vernacular name.
func NewCommonName(lookup CommonNameLookup) Fetcher {
	return NewFunc(species.SourceCommonName, func(ctx context.Context, target Target) (species.SourceRecord, error) {
		names, err := lookup.CommonNames(ctx, target.ID)
		if err != nil {
			return species.SourceRecord{}, err
		}
		if name := eidos.PreferredCommonName(names); name != "" {
			return species.OK(species.SourceCommonName, name, name), nil
		}
		return species.NotFound(species.SourceCommonName), nil
	})
}
