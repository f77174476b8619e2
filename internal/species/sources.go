package species

import (
	"slices"
	"strings"
)

// Built-in source names.
const (
	SourceNationalCatalog          = "national_catalog"
	SourceRegionalCatalogs         = "regional_catalogs"
	SourceEUHabitatsDirective      = "eu_habitats_directive"
	SourceEUBirdsDirective         = "eu_birds_directive"
	SourceInternationalConventions = "international_conventions"
	SourceNationalRedList          = "national_red_list"
	SourceGlobalRedList            = "global_red_list"
	SourceIUCNRedList              = "iucn_red_list"
	SourceTaxonomicGroup           = "taxonomic_group"
	SourceCommonName               = "common_name"
)

// Column groups, in display order: descriptive sources, international legal
// instruments, national law, regional law, then red lists.
var sourceRank = map[string]int{
	SourceTaxonomicGroup:           0,
	SourceCommonName:               1,
	SourceEUBirdsDirective:         10,
	SourceEUHabitatsDirective:      11,
	SourceInternationalConventions: 12,
	SourceNationalCatalog:          20,
	SourceRegionalCatalogs:         30,
	SourceNationalRedList:          40,
	SourceGlobalRedList:            41,
	SourceIUCNRedList:              42,
}

var legalSources = map[string]bool{
	SourceNationalCatalog:          true,
	SourceRegionalCatalogs:         true,
	SourceEUHabitatsDirective:      true,
	SourceEUBirdsDirective:         true,
	SourceInternationalConventions: true,
}

// IsLegalSource reports whether the source describes legal protection as
// opposed to conservation threat or descriptive data.
func IsLegalSource(name string) bool {
	return legalSources[name]
}

// SortSources orders source names for display. Unknown sources go last in
// lexical order.
func SortSources(names []string) {
	slices.SortStableFunc(names, func(a, b string) int {
		ra, okA := sourceRank[a]
		rb, okB := sourceRank[b]
		switch {
		case okA && okB:
			return ra - rb
		case okA:
			return -1
		case okB:
			return 1
		default:
			return strings.Compare(a, b)
		}
	})
}
