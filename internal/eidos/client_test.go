package eidos_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"eidoscope/internal/apiclient"
	"eidoscope/internal/eidos"
	"eidoscope/internal/memo"
	"eidoscope/internal/services"
)

func newTestClient(t *testing.T, handler http.Handler) *eidos.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := eidos.New(srv.URL,
		eidos.WithConservationPath("/rpc/conservation"),
		eidos.WithAPIOptions(
			apiclient.WithHTTPClient(srv.Client()),
			apiclient.WithSleeper(func(time.Duration) {}),
		),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestSearchByNameFlagsAcceptedNames(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != eidos.PathSearchByName || r.URL.Query().Get("_nombretaxon") != "Lynx pardinus" {
			t.Errorf("unexpected request %s", r.URL)
		}
		_, _ = w.Write([]byte(`[
			{"taxonid": 14389, "name": "Lynx pardina", "nametype": "Sinónimo"},
			{"taxonid": "14389", "name": "Lynx pardinus", "nametype": "Aceptado/válido"},
			{"taxonid": null, "name": "Broken"}
		]`))
	}))

	candidates, err := client.SearchByName(context.Background(), "Lynx pardinus")
	if err != nil {
		t.Fatalf("SearchByName: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %+v", candidates)
	}
	if candidates[0].Accepted || !candidates[1].Accepted {
		t.Fatalf("unexpected accepted flags: %+v", candidates)
	}
	if candidates[1].ID != "14389" || candidates[1].Key() != "lynx pardinus" {
		t.Fatalf("unexpected candidate %+v", candidates[1])
	}
}

func TestGetDetail(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("_idtaxon") {
		case "14389":
			_, _ = w.Write([]byte(`[{"taxonid": 14389, "name": "Aquila adalberti"}]`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))

	detail, err := client.GetDetail(context.Background(), "14389")
	if err != nil {
		t.Fatalf("GetDetail: %v", err)
	}
	if detail.ID != "14389" || detail.Name != "Aquila adalberti" {
		t.Fatalf("unexpected detail %+v", detail)
	}

	if _, err := client.GetDetail(context.Background(), "999999"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLegalStatusesMemoizedPerRun(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`[{"ambito":"Nacional","estadolegal":"En peligro de extinción","dataset":"Catálogo Español de Especies Amenazadas","idvigente":1}]`))
	}))

	ctx := memo.WithMemo(context.Background(), memo.New())
	for i := 0; i < 3; i++ {
		statuses, err := client.LegalStatuses(ctx, "14389")
		if err != nil {
			t.Fatalf("LegalStatuses: %v", err)
		}
		if len(statuses) != 1 || !statuses[0].IsCurrent() || statuses[0].Scope != "Nacional" {
			t.Fatalf("unexpected statuses %+v", statuses)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one request within a run, got %d", calls.Load())
	}

	if _, err := client.LegalStatuses(context.Background(), "14389"); err != nil {
		t.Fatalf("LegalStatuses without memo: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected a fresh request outside the run, got %d", calls.Load())
	}
}

func TestViewsUsePostgRESTFilters(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case eidos.PathTaxonomy:
			if r.URL.Query().Get("taxonid") != "eq.14389" {
				t.Errorf("unexpected taxonomy filter %q", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`[{"taxonid":14389,"taxonomicgroup":"Mamíferos"}]`))
		case eidos.PathCommonNames:
			if r.URL.Query().Get("idtaxon") != "eq.14389" {
				t.Errorf("unexpected common name filter %q", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`[
				{"nombre_comun":"Iberian lynx","ididioma":2,"espreferente":true},
				{"nombre_comun":"Gato cerval","ididioma":1,"espreferente":false},
				{"nombre_comun":"Lince ibérico","ididioma":1,"espreferente":true}
			]`))
		case "/rpc/conservation":
			_, _ = w.Write([]byte(`[{"ambito":"Nacional","codigocategoria":"EN","categoria":"En peligro","idvigente":1}]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	ctx := context.Background()

	rows, err := client.Taxonomy(ctx, "14389")
	if err != nil || len(rows) != 1 || rows[0].TaxonomicGroup != "Mamíferos" {
		t.Fatalf("Taxonomy = %+v, %v", rows, err)
	}
	names, err := client.CommonNames(ctx, "14389")
	if err != nil {
		t.Fatalf("CommonNames: %v", err)
	}
	if got := eidos.PreferredCommonName(names); got != "Lince ibérico" {
		t.Fatalf("PreferredCommonName = %q", got)
	}
	statuses, err := client.ConservationStatuses(ctx, "14389")
	if err != nil || len(statuses) != 1 || statuses[0].Code != "EN" {
		t.Fatalf("ConservationStatuses = %+v, %v", statuses, err)
	}
}

func TestChecklistEntries(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"idtaxon":14389,"genus":"Lynx","species":"pardinus","subspecies":null,"acceptedname":"Lynx pardinus"},
			{"idtaxon":14389,"genus":"Felis","species":"pardina","subspecies":"","acceptedname":"Lynx pardinus"},
			{"idtaxon":2001,"genus":"Quercus","species":"ilex","subspecies":"ballota"}
		]`))
	}))
	entries, err := client.Checklist(context.Background())
	if err != nil {
		t.Fatalf("Checklist: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if !entries[0].Accepted() || entries[1].Accepted() || !entries[2].Accepted() {
		t.Fatalf("unexpected accepted flags")
	}
	if got := entries[2].FullName(); got != "Quercus ilex ballota" {
		t.Fatalf("FullName = %q", got)
	}
}

func TestPreferredCommonNameFallbacks(t *testing.T) {
	if got := eidos.PreferredCommonName(nil); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	names := []eidos.CommonName{{Name: "Wolf", LanguageID: 2}, {Name: "Llop", LanguageID: 3}}
	if got := eidos.PreferredCommonName(names); got != "Wolf" {
		t.Fatalf("expected first name fallback, got %q", got)
	}
}

func TestSearchTaxaRejectsBlank(t *testing.T) {
	client := newTestClient(t, http.NotFoundHandler())
	if _, err := client.SearchTaxa(context.Background(), " "); !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
