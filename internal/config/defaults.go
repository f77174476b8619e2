package config

const (
	defaultConfigPath            = "~/.config/eidoscope/config.toml"
	defaultCacheDir              = "~/.cache/eidoscope"
	defaultLogDir                = "~/.local/share/eidoscope/logs"
	defaultEIDOSBaseURL          = "https://iepnb.gob.es/api/especie"
	defaultConservationPath      = "/rpc/obtenerestadosconservacionportaxonid"
	defaultEIDOSRateLimit        = 4.0
	defaultEIDOSBurst            = 1
	defaultEIDOSTimeoutSeconds   = 30
	defaultEIDOSMaxAttempts      = 3
	defaultUserAgent             = "eidoscope/dev"
	defaultIUCNBaseURL           = "https://api.iucnredlist.org/api/v4"
	defaultIUCNRateLimit         = 2.0
	defaultIUCNTimeoutSeconds    = 30
	defaultBatchConcurrency      = 8
	defaultBatchTimeoutSeconds   = 300
	defaultHighThreshold         = 0.92
	defaultLowThreshold          = 0.85
	defaultSpeciesEditBound      = 2
	defaultAmbiguityMargin       = 0.02
	defaultChecklistFile         = "checklist.db"
	defaultChecklistMaxAgeDays   = 30
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	maxBatchConcurrency          = 64
)

// DefaultSources lists the status sources enabled out of the box. The IUCN
// source is added automatically when a token is configured.
var DefaultSources = []string{
	"national_catalog",
	"regional_catalogs",
	"eu_habitats_directive",
	"eu_birds_directive",
	"international_conventions",
	"national_red_list",
	"global_red_list",
	"taxonomic_group",
	"common_name",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir: defaultCacheDir,
			LogDir:   defaultLogDir,
		},
		EIDOS: EIDOS{
			BaseURL:          defaultEIDOSBaseURL,
			ConservationPath: defaultConservationPath,
			RateLimit:        defaultEIDOSRateLimit,
			Burst:            defaultEIDOSBurst,
			TimeoutSeconds:   defaultEIDOSTimeoutSeconds,
			MaxAttempts:      defaultEIDOSMaxAttempts,
			UserAgent:        defaultUserAgent,
		},
		IUCN: IUCN{
			BaseURL:        defaultIUCNBaseURL,
			RateLimit:      defaultIUCNRateLimit,
			TimeoutSeconds: defaultIUCNTimeoutSeconds,
		},
		Batch: Batch{
			Concurrency:    defaultBatchConcurrency,
			TimeoutSeconds: defaultBatchTimeoutSeconds,
		},
		Matching: Matching{
			HighThreshold:    defaultHighThreshold,
			LowThreshold:     defaultLowThreshold,
			SpeciesEditBound: defaultSpeciesEditBound,
			AmbiguityMargin:  defaultAmbiguityMargin,
		},
		Checklist: Checklist{
			Enabled:    true,
			MaxAgeDays: defaultChecklistMaxAgeDays,
		},
		Sources: Sources{
			Enabled: append([]string(nil), DefaultSources...),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
