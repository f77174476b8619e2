package sources

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"eidoscope/internal/config"
	"eidoscope/internal/eidos"
	"eidoscope/internal/services"
	"eidoscope/internal/species"
)

// EIDOS is the registry surface the built-in fetchers consume.
type EIDOS interface {
	LegalLookup
	ConservationLookup
	TaxonomyLookup
	CommonNameLookup
}

var _ EIDOS = (*eidos.Client)(nil)

var descriptions = map[string]string{
	species.SourceNationalCatalog:          "National catalogues (LESRPE, Catálogo Español de Especies Amenazadas)",
	species.SourceRegionalCatalogs:         "Autonomous-community catalogues, labelled by community",
	species.SourceEUHabitatsDirective:      "EU Habitats Directive annexes",
	species.SourceEUBirdsDirective:         "EU Birds Directive annexes",
	species.SourceInternationalConventions: "CITES, Bern, Bonn and AEWA listings",
	species.SourceNationalRedList:          "Spanish red list category (EIDOS)",
	species.SourceGlobalRedList:            "Global red list category mirrored by EIDOS",
	species.SourceIUCNRedList:              "IUCN Red List API v4 global category (requires token)",
	species.SourceTaxonomicGroup:           "Taxonomic group from the EIDOS taxonomy view",
	species.SourceCommonName:               "Preferred Spanish common name",
}

// Describe returns a one-line description of a built-in source.
func Describe(name string) string {
	return descriptions[name]
}

// BuiltinNames lists every built-in source in display order.
func BuiltinNames() []string {
	names := make([]string, 0, len(descriptions))
	for name := range descriptions {
		names = append(names, name)
	}
	species.SortSources(names)
	return names
}

// Registry holds fetchers by name.
type Registry struct {
	mu       sync.RWMutex
	fetchers map[string]Fetcher
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{fetchers: make(map[string]Fetcher)}
}

// Register adds f. Names must be unique.
func (r *Registry) Register(f Fetcher) error {
	if f == nil || f.Name() == "" {
		return services.Wrap(services.ErrConfiguration, "sources", "register", "fetcher must have a name", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.fetchers[f.Name()]; exists {
		return services.Wrap(services.ErrConfiguration, "sources", "register", "duplicate source "+f.Name(), nil)
	}
	r.fetchers[f.Name()] = f
	return nil
}

// Get returns the fetcher registered under name.
func (r *Registry) Get(name string) (Fetcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fetchers[name]
	return f, ok
}

// Names returns the registered names in display order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.fetchers))
	for name := range r.fetchers {
		names = append(names, name)
	}
	r.mu.RUnlock()
	species.SortSources(names)
	return names
}

// Select returns the fetchers for names in display order. An unknown name is
// a configuration error.
func (r *Registry) Select(names []string) ([]Fetcher, error) {
	ordered := slices.Clone(names)
	species.SortSources(ordered)
	ordered = slices.Compact(ordered)
	out := make([]Fetcher, 0, len(ordered))
	for _, name := range ordered {
		f, ok := r.Get(name)
		if !ok {
			return nil, services.Wrap(services.ErrConfiguration, "sources", "select",
				fmt.Sprintf("unknown source %q (available: %v)", name, r.Names()), nil)
		}
		out = append(out, f)
	}
	return out, nil
}

// Builtins registers every EIDOS-backed fetcher, plus the IUCN fetcher when
// iucn is non-nil.
func Builtins(client EIDOS, iucn *IUCNClient) *Registry {
	r := NewRegistry()
	for _, f := range []Fetcher{
		NewTaxonomicGroup(client),
		NewCommonName(client),
		NewBirdsDirective(client),
		NewHabitatsDirective(client),
		NewInternationalConventions(client),
		NewNationalCatalog(client),
		NewRegionalCatalogs(client),
		NewNationalRedList(client),
		NewGlobalRedList(client),
	} {
		_ = r.Register(f)
	}
	if iucn != nil {
		_ = r.Register(NewIUCNRedList(iucn))
	}
	return r
}

// NewFromConfig builds the built-in registry and selects the sources enabled
// in cfg.
func NewFromConfig(cfg *config.Config, client EIDOS, logger *slog.Logger) ([]Fetcher, error) {
	var iucn *IUCNClient
	if cfg.IUCNEnabled() {
		var err error
		iucn, err = NewIUCNClientFromConfig(cfg, logger)
		if err != nil {
			return nil, err
		}
	}
	return Builtins(client, iucn).Select(cfg.Sources.Enabled)
}
