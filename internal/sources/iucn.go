package sources

import (
	"context"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"eidoscope/internal/apiclient"
	"eidoscope/internal/config"
	"eidoscope/internal/memo"
	"eidoscope/internal/services"
	"eidoscope/internal/species"
	"eidoscope/internal/taxon"
)

const iucnTaxaPath = "/taxa/scientific_name"

// globalScopeCode is the IUCN assessment scope code for global assessments.
const globalScopeCode = "1"

var iucnCategories = map[string]string{
	"EX":    "Extinct",
	"EW":    "Extinct in the Wild",
	"RE":    "Regionally Extinct",
	"CR":    "Critically Endangered",
	"EN":    "Endangered",
	"VU":    "Vulnerable",
	"NT":    "Near Threatened",
	"LR/cd": "Lower Risk/conservation dependent",
	"LR/nt": "Lower Risk/near threatened",
	"LR/lc": "Lower Risk/least concern",
	"LC":    "Least Concern",
	"DD":    "Data Deficient",
	"NE":    "Not Evaluated",
}

// IUCNAssessment is one assessment summary in the taxa response.
type IUCNAssessment struct {
	AssessmentID  int64       `json:"assessment_id"`
	YearPublished string      `json:"year_published"`
	Latest        bool        `json:"latest"`
	CategoryCode  string      `json:"red_list_category_code"`
	URL           string      `json:"url"`
	Scopes        []IUCNScope `json:"scopes"`
}

// IUCNScope identifies the geographic scope of an assessment.
type IUCNScope struct {
	Code        string            `json:"code"`
	Description map[string]string `json:"description"`
}

type iucnTaxaResponse struct {
	Assessments []IUCNAssessment `json:"assessments"`
}

// IUCNClient queries the IUCN Red List API v4.
type IUCNClient struct {
	api *apiclient.Client
}

// NewIUCNClient builds a client authenticated with token.
func NewIUCNClient(baseURL, token string, opts ...apiclient.Option) (*IUCNClient, error) {
	if strings.TrimSpace(token) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "iucn", "init", "api token required", nil)
	}
	opts = append([]apiclient.Option{apiclient.WithHeader("Authorization", "Bearer "+strings.TrimSpace(token))}, opts...)
	api, err := apiclient.New("iucn", baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &IUCNClient{api: api}, nil
}

// NewIUCNClientFromConfig builds a client from the [iucn] config section.
func NewIUCNClientFromConfig(cfg *config.Config, logger *slog.Logger) (*IUCNClient, error) {
	return NewIUCNClient(cfg.IUCN.BaseURL, cfg.IUCN.Token,
		apiclient.WithTimeout(cfg.IUCNTimeout()),
		apiclient.WithRateLimit(cfg.IUCN.RateLimit, 1),
		apiclient.WithHeader("User-Agent", cfg.EIDOS.UserAgent),
		apiclient.WithLogger(logger),
	)
}

// Assessments returns the assessments published for a scientific name.
func (c *IUCNClient) Assessments(ctx context.Context, name string) ([]IUCNAssessment, error) {
	parsed := taxon.Parse(name)
	if !parsed.Binomial {
		return nil, services.Wrap(services.ErrNotFound, "iucn", "assessments", "not a binomial: "+name, nil)
	}
	params := url.Values{
		"genus_name":   {capitalize(parsed.Genus)},
		"species_name": {parsed.Epithet},
	}
	if parsed.Infra != "" {
		params.Set("infra_name", parsed.Infra)
	}
	return memo.Lookup(ctx, "iucn:"+parsed.Canonical(), func(ctx context.Context) ([]IUCNAssessment, error) {
		var resp iucnTaxaResponse
		if err := c.api.GetJSON(ctx, iucnTaxaPath, params, &resp); err != nil {
			return nil, err
		}
		return resp.Assessments, nil
	})
}

// LatestGlobal picks the latest global assessment, falling back to the most
// recently published one.
func LatestGlobal(assessments []IUCNAssessment) (IUCNAssessment, bool) {
	var global []IUCNAssessment
	for _, a := range assessments {
		if strings.TrimSpace(a.CategoryCode) == "" {
			continue
		}
		if len(a.Scopes) == 0 || slices.ContainsFunc(a.Scopes, func(s IUCNScope) bool { return s.Code == globalScopeCode }) {
			global = append(global, a)
		}
	}
	if len(global) == 0 {
		return IUCNAssessment{}, false
	}
	for _, a := range global {
		if a.Latest {
			return a, true
		}
	}
	best := global[0]
	for _, a := range global[1:] {
		if a.YearPublished > best.YearPublished {
			best = a
		}
	}
	return best, true
}

// NewIUCNRedList reports the IUCN global category looked up by canonical
// name.
func NewIUCNRedList(client *IUCNClient) Fetcher {
	return NewFunc(species.SourceIUCNRedList, func(ctx context.Context, target Target) (species.SourceRecord, error) {
		assessments, err := client.Assessments(ctx, target.Name)
		if err != nil {
			return species.SourceRecord{}, err
		}
		latest, ok := LatestGlobal(assessments)
		if !ok {
			return species.NotFound(species.SourceIUCNRedList), nil
		}
		code := strings.TrimSpace(latest.CategoryCode)
		label, known := iucnCategories[code]
		if !known {
			label = code
		}
		if latest.YearPublished != "" {
			label += " (" + latest.YearPublished + ")"
		}
		return species.OK(species.SourceIUCNRedList, code, label), nil
	})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
