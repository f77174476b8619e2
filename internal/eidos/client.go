package eidos

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"eidoscope/internal/apiclient"
	"eidoscope/internal/config"
	"eidoscope/internal/logging"
	"eidoscope/internal/matching"
	"eidoscope/internal/memo"
	"eidoscope/internal/services"
	"eidoscope/internal/species"
)

// Endpoint paths relative to the registry base URL.
const (
	PathSearchByName   = "/rpc/obtenertaxonespornombre"
	PathTaxonByID      = "/rpc/obtenertaxonporid"
	PathLegalStatuses  = "/rpc/obtenerestadoslegalesportaxonid"
	PathTaxonomy       = "/v_taxonomia"
	PathCommonNames    = "/v_nombrescomunes"
	PathChecklist      = "/listapatron"
	defaultConservPath = "/rpc/obtenerestadosconservacionportaxonid"
)

// Client provides access to the EIDOS registry.
type Client struct {
	api              *apiclient.Client
	conservationPath string
	logger           *slog.Logger
}

// Option configures a Client.
type Option func(*options)

type options struct {
	conservationPath string
	api              []apiclient.Option
	logger           *slog.Logger
}

// WithConservationPath overrides the conservation status endpoint.
func WithConservationPath(path string) Option {
	return func(o *options) {
		if path = strings.TrimSpace(path); path != "" {
			o.conservationPath = path
		}
	}
}

// WithAPIOptions passes options through to the underlying HTTP client.
func WithAPIOptions(opts ...apiclient.Option) Option {
	return func(o *options) {
		o.api = append(o.api, opts...)
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates a registry client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	o := options{conservationPath: defaultConservPath}
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.NewComponentLogger(o.logger, "eidos")
	apiOpts := append([]apiclient.Option{apiclient.WithLogger(o.logger)}, o.api...)
	api, err := apiclient.New("eidos", baseURL, apiOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{api: api, conservationPath: o.conservationPath, logger: logger}, nil
}

// NewFromConfig builds a client from the [eidos] config section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "eidos", "init", "config required", nil)
	}
	base := []Option{
		WithLogger(logger),
		WithConservationPath(cfg.EIDOS.ConservationPath),
		WithAPIOptions(
			apiclient.WithTimeout(cfg.EIDOSTimeout()),
			apiclient.WithRateLimit(cfg.EIDOS.RateLimit, cfg.EIDOS.Burst),
			apiclient.WithRetryMaxAttempts(cfg.EIDOS.MaxAttempts),
			apiclient.WithHeader("User-Agent", cfg.EIDOS.UserAgent),
		),
	}
	return New(cfg.EIDOS.BaseURL, append(base, opts...)...)
}

// BaseURL returns the normalized registry base URL.
func (c *Client) BaseURL() string {
	return c.api.BaseURL()
}

// SearchTaxa returns every registry record matching name exactly (synonyms
// included).
func (c *Client) SearchTaxa(ctx context.Context, name string) ([]TaxonRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, services.Wrap(services.ErrInvalidInput, "eidos", "search", "name must not be empty", nil)
	}
	var records []TaxonRecord
	if err := c.api.GetJSON(ctx, PathSearchByName, url.Values{"_nombretaxon": {name}}, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// TaxonByID returns the registry record for id. An empty answer yields an
// error wrapping services.ErrNotFound.
func (c *Client) TaxonByID(ctx context.Context, id string) (TaxonRecord, error) {
	var records []TaxonRecord
	if err := c.api.GetJSON(ctx, PathTaxonByID, url.Values{"_idtaxon": {idParam(id)}}, &records); err != nil {
		return TaxonRecord{}, err
	}
	for _, r := range records {
		if strings.TrimSpace(r.Name) != "" {
			if r.TaxonID == "" {
				r.TaxonID = ID(idParam(id))
			}
			return r, nil
		}
	}
	return TaxonRecord{}, services.Wrap(services.ErrNotFound, "eidos", "taxon by id", "no name for id "+id, nil)
}

// LegalStatuses returns every legal listing of the taxon, current or not.
// Within a run the result is memoized so the legal-status sources share one
// request per taxon.
func (c *Client) LegalStatuses(ctx context.Context, id string) ([]LegalStatus, error) {
	return memo.Lookup(ctx, "eidos:legal:"+idParam(id), func(ctx context.Context) ([]LegalStatus, error) {
		var statuses []LegalStatus
		if err := c.api.GetJSON(ctx, PathLegalStatuses, url.Values{"_idtaxon": {idParam(id)}}, &statuses); err != nil {
			return nil, err
		}
		return statuses, nil
	})
}

// ConservationStatuses returns the threat assessments of the taxon. Memoized
// per run like LegalStatuses.
func (c *Client) ConservationStatuses(ctx context.Context, id string) ([]ConservationStatus, error) {
	return memo.Lookup(ctx, "eidos:conservation:"+idParam(id), func(ctx context.Context) ([]ConservationStatus, error) {
		var statuses []ConservationStatus
		if err := c.api.GetJSON(ctx, c.conservationPath, url.Values{"_idtaxon": {idParam(id)}}, &statuses); err != nil {
			return nil, err
		}
		return statuses, nil
	})
}

// Taxonomy returns the taxonomy view rows for the taxon.
func (c *Client) Taxonomy(ctx context.Context, id string) ([]TaxonomyRow, error) {
	var rows []TaxonomyRow
	if err := c.api.GetJSON(ctx, PathTaxonomy, url.Values{"taxonid": {"eq." + idParam(id)}}, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// CommonNames returns the vernacular names of the taxon.
func (c *Client) CommonNames(ctx context.Context, id string) ([]CommonName, error) {
	var names []CommonName
	if err := c.api.GetJSON(ctx, PathCommonNames, url.Values{"idtaxon": {"eq." + idParam(id)}}, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// Checklist downloads the full reference checklist.
func (c *Client) Checklist(ctx context.Context) ([]ChecklistEntry, error) {
	var entries []ChecklistEntry
	if err := c.api.GetJSON(ctx, PathChecklist, nil, &entries); err != nil {
		return nil, err
	}
	c.logger.Info("checklist downloaded", logging.Int("entries", len(entries)))
	return entries, nil
}

// Ping fetches a single checklist row to confirm the registry is reachable.
func (c *Client) Ping(ctx context.Context) error {
	var entries []ChecklistEntry
	return c.api.GetJSON(ctx, PathChecklist, url.Values{"limit": {"1"}}, &entries)
}

// SearchByName returns the registry's candidate names for name, flagging
// accepted names so exact matches prefer them over synonyms.
func (c *Client) SearchByName(ctx context.Context, name string) ([]matching.Candidate, error) {
	records, err := c.SearchTaxa(ctx, name)
	if err != nil {
		return nil, err
	}
	candidates := make([]matching.Candidate, 0, len(records))
	for _, r := range records {
		if r.TaxonID == "" || strings.TrimSpace(r.Name) == "" {
			continue
		}
		candidates = append(candidates, matching.NewCandidate(r.Name, r.TaxonID.String(), r.Accepted()))
	}
	return candidates, nil
}

// GetDetail returns the canonical identity for id, or an error wrapping
// services.ErrNotFound.
func (c *Client) GetDetail(ctx context.Context, id string) (species.Taxon, error) {
	record, err := c.TaxonByID(ctx, id)
	if err != nil {
		return species.Taxon{}, err
	}
	return species.Taxon{ID: record.TaxonID.String(), Name: strings.TrimSpace(record.Name)}, nil
}
