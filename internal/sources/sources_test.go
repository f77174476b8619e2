package sources_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"eidoscope/internal/apiclient"
	"eidoscope/internal/config"
	"eidoscope/internal/eidos"
	"eidoscope/internal/memo"
	"eidoscope/internal/services"
	"eidoscope/internal/sources"
	"eidoscope/internal/species"
)

type fakeEIDOS struct {
	legal        []eidos.LegalStatus
	conservation []eidos.ConservationStatus
	taxonomy     []eidos.TaxonomyRow
	names        []eidos.CommonName
	err          error
	legalCalls   atomic.Int32
}

func (f *fakeEIDOS) LegalStatuses(ctx context.Context, id string) ([]eidos.LegalStatus, error) {
	return memo.Lookup(ctx, "legal:"+id, func(context.Context) ([]eidos.LegalStatus, error) {
		f.legalCalls.Add(1)
		return f.legal, f.err
	})
}

func (f *fakeEIDOS) ConservationStatuses(context.Context, string) ([]eidos.ConservationStatus, error) {
	return f.conservation, f.err
}

func (f *fakeEIDOS) Taxonomy(context.Context, string) ([]eidos.TaxonomyRow, error) {
	return f.taxonomy, f.err
}

func (f *fakeEIDOS) CommonNames(context.Context, string) ([]eidos.CommonName, error) {
	return f.names, f.err
}

func lynxRegistry() *fakeEIDOS {
	return &fakeEIDOS{
		legal: []eidos.LegalStatus{
			{Scope: "Nacional", Status: "En peligro de extinción", Dataset: "Catálogo Español de Especies Amenazadas", Current: 1},
			{Scope: "Nacional", Status: "Vulnerable", Dataset: "Catálogo Español de Especies Amenazadas", Current: 0},
			{Scope: "Autonómico", Status: "En peligro de extinción", Region: "Extremadura", Current: 1},
			{Scope: "Autonómico", Status: "En peligro de extinción", Region: "Andalucía", Current: 1},
			{Scope: "Autonómico", Status: "Sensible a la alteración de su hábitat", Region: "Andalucía", Current: 1},
			{Scope: "Internacional", Status: "Anexo II", Dataset: "Directiva Hábitats", Current: 1},
			{Scope: "Internacional", Status: "Anexo IV", Dataset: "Directiva Hábitats", Current: 1},
			{Scope: "Internacional", Status: "Anexo II", Dataset: "Convenio de Berna", Current: 1},
			{Scope: "Internacional", Status: "Apéndice I", Dataset: "CITES", Current: 1},
			{Scope: "Internacional", Status: "", Dataset: "Convenio de Bonn", Current: 1},
		},
		conservation: []eidos.ConservationStatus{
			{Scope: "Nacional", Code: "EN", Category: "En peligro", Current: 1},
			{Scope: "Mundial", Code: "EN", Category: "En peligro", Current: 1},
			{Scope: "Mundial", Code: "CR", Category: "En peligro crítico", Current: 0},
		},
		taxonomy: []eidos.TaxonomyRow{{TaxonID: "14389", TaxonomicGroup: "Mamíferos"}},
		names: []eidos.CommonName{
			{Name: "Iberian lynx", LanguageID: 2, Preferred: true},
			{Name: "Lince ibérico", LanguageID: eidos.SpanishLanguageID, Preferred: true},
		},
	}
}

func TestBuiltinFetchers(t *testing.T) {
	client := lynxRegistry()
	target := sources.Target{ID: "14389", Name: "Lynx pardinus"}
	tests := []struct {
		fetcher   sources.Fetcher
		wantCode  string
		wantLabel string
		outcome   species.Outcome
	}{
		{sources.NewNationalCatalog(client), "En peligro de extinción", "En peligro de extinción", species.OutcomeOK},
		{sources.NewRegionalCatalogs(client),
			"En peligro de extinción, Sensible a la alteración de su hábitat",
			"Andalucía: En peligro de extinción, Sensible a la alteración de su hábitat; Extremadura: En peligro de extinción",
			species.OutcomeOK},
		{sources.NewHabitatsDirective(client), "Anexo II, Anexo IV", "Anexo II, Anexo IV", species.OutcomeOK},
		{sources.NewBirdsDirective(client), "", "", species.OutcomeNotFound},
		{sources.NewInternationalConventions(client), "Anexo II, Apéndice I", "CITES: Apéndice I; Convenio de Berna: Anexo II", species.OutcomeOK},
		{sources.NewNationalRedList(client), "EN", "En peligro", species.OutcomeOK},
		{sources.NewGlobalRedList(client), "EN", "En peligro", species.OutcomeOK},
		{sources.NewTaxonomicGroup(client), "Mamíferos", "Mamíferos", species.OutcomeOK},
		{sources.NewCommonName(client), "Lince ibérico", "Lince ibérico", species.OutcomeOK},
	}
	for _, tt := range tests {
		t.Run(tt.fetcher.Name(), func(t *testing.T) {
			got := sources.Fetch(context.Background(), tt.fetcher, target)
			if got.Source != tt.fetcher.Name() {
				t.Fatalf("source = %q", got.Source)
			}
			if got.Outcome != tt.outcome || got.StatusCode != tt.wantCode || got.StatusLabel != tt.wantLabel {
				t.Fatalf("got %+v, want code %q label %q outcome %s", got, tt.wantCode, tt.wantLabel, tt.outcome)
			}
		})
	}
}

func TestLegalFetchersShareOneRequestPerRun(t *testing.T) {
	client := lynxRegistry()
	ctx := memo.WithMemo(context.Background(), memo.New())
	target := sources.Target{ID: "14389"}
	for _, f := range []sources.Fetcher{
		sources.NewNationalCatalog(client),
		sources.NewRegionalCatalogs(client),
		sources.NewHabitatsDirective(client),
		sources.NewInternationalConventions(client),
	} {
		sources.Fetch(ctx, f, target)
	}
	if calls := client.legalCalls.Load(); calls != 1 {
		t.Fatalf("expected one legal lookup, got %d", calls)
	}
}

func TestFetchErrorsBecomeRecords(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantOut    species.Outcome
		wantDetail string
	}{
		{"not found", services.Wrap(services.ErrNotFound, "eidos", "legal", "", nil), species.OutcomeNotFound, ""},
		{"timeout", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), species.OutcomeError, "timeout"},
		{"transient", errors.New("http 503"), species.OutcomeError, "http 503"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeEIDOS{err: tt.err}
			got := sources.Fetch(context.Background(), sources.NewNationalCatalog(client), sources.Target{ID: "1"})
			if got.Outcome != tt.wantOut || got.Detail != tt.wantDetail || got.StatusCode != "" {
				t.Fatalf("unexpected record %+v", got)
			}
		})
	}
}

type panicky struct{}

func (panicky) Name() string { return "broken" }

func (panicky) Fetch(context.Context, sources.Target) species.SourceRecord { panic("boom") }

func TestFetchRecoversPanics(t *testing.T) {
	got := sources.Fetch(context.Background(), panicky{}, sources.Target{ID: "1"})
	if got.Outcome != species.OutcomeError || !strings.Contains(got.Detail, "boom") || got.Source != "broken" {
		t.Fatalf("unexpected record %+v", got)
	}
}

func TestFetchWithoutIDIsNotFound(t *testing.T) {
	got := sources.Fetch(context.Background(), sources.NewCommonName(lynxRegistry()), sources.Target{})
	if got.Outcome != species.OutcomeNotFound {
		t.Fatalf("expected not_found, got %+v", got)
	}
}

func TestRegistrySelect(t *testing.T) {
	reg := sources.Builtins(lynxRegistry(), nil)
	if _, ok := reg.Get(species.SourceIUCNRedList); ok {
		t.Fatal("iucn fetcher must not register without a client")
	}
	fetchers, err := reg.Select([]string{species.SourceNationalRedList, species.SourceCommonName, species.SourceNationalRedList})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(fetchers) != 2 || fetchers[0].Name() != species.SourceCommonName {
		t.Fatalf("unexpected selection order: %v", fetchers)
	}
	if _, err := reg.Select([]string{"bogus"}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if err := reg.Register(sources.NewCommonName(lynxRegistry())); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if len(sources.BuiltinNames()) != 10 || sources.Describe(species.SourceIUCNRedList) == "" {
		t.Fatal("expected descriptions for every built-in")
	}
}

func TestNewFromConfigWiresIUCN(t *testing.T) {
	cfg := config.Default()
	cfg.IUCN.Token = "secret"
	cfg.Sources.Enabled = []string{species.SourceIUCNRedList}
	fetchers, err := sources.NewFromConfig(&cfg, lynxRegistry(), nil)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if len(fetchers) != 1 || fetchers[0].Name() != species.SourceIUCNRedList {
		t.Fatalf("unexpected fetchers %v", fetchers)
	}
}

func TestIUCNRedList(t *testing.T) {
	var auth, query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		query = r.URL.RawQuery
		if r.URL.Path != "/taxa/scientific_name" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("species_name") == "missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"assessments":[
			{"assessment_id":1,"year_published":"2008","latest":false,"red_list_category_code":"CR","scopes":[{"code":"1","description":{"en":"Global"}}]},
			{"assessment_id":2,"year_published":"2015","latest":true,"red_list_category_code":"EN","scopes":[{"code":"1","description":{"en":"Global"}}]},
			{"assessment_id":3,"year_published":"2018","latest":true,"red_list_category_code":"VU","scopes":[{"code":"2","description":{"en":"Europe"}}]}
		]}`))
	}))
	defer server.Close()

	client, err := sources.NewIUCNClient(server.URL, "token-1", apiclient.WithRetryMaxAttempts(1))
	if err != nil {
		t.Fatalf("NewIUCNClient: %v", err)
	}
	fetcher := sources.NewIUCNRedList(client)

	got := sources.Fetch(context.Background(), fetcher, sources.Target{ID: "14389", Name: "Lynx pardinus (Temminck, 1827)"})
	if got.Outcome != species.OutcomeOK || got.StatusCode != "EN" || got.StatusLabel != "Endangered (2015)" {
		t.Fatalf("unexpected record %+v", got)
	}
	if auth != "Bearer token-1" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if !strings.Contains(query, "genus_name=Lynx") || !strings.Contains(query, "species_name=pardinus") {
		t.Fatalf("unexpected query %q", query)
	}

	missing := sources.Fetch(context.Background(), fetcher, sources.Target{ID: "1", Name: "Lynx missing"})
	if missing.Outcome != species.OutcomeNotFound {
		t.Fatalf("expected not_found, got %+v", missing)
	}

	if _, err := sources.NewIUCNClient(server.URL, " "); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error without token, got %v", err)
	}
}
