package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"eidoscope/internal/config"
	"eidoscope/internal/eidos"
	"eidoscope/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	server     *httptest.Server
	requests   atomic.Int32
}

// setupCLITestEnv starts a fake registry that knows Lynx pardinus (14389) and
// writes a config pointing at it.
func setupCLITestEnv(t *testing.T, sources ...string) *cliTestEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CACHE_DIR", "")
	t.Setenv("EIDOS_RATE", "")
	t.Setenv("IUCN_API_TOKEN", "")

	env := &cliTestEnv{}
	env.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.requests.Add(1)
		q := r.URL.Query()
		switch r.URL.Path {
		case eidos.PathSearchByName:
			if strings.EqualFold(q.Get("_nombretaxon"), "Lynx pardinus") {
				_, _ = w.Write([]byte(`[{"taxonid": 14389, "name": "Lynx pardinus", "nametype": "Aceptado/válido"}]`))
				return
			}
			_, _ = w.Write([]byte(`[]`))
		case eidos.PathTaxonByID:
			if q.Get("_idtaxon") == "14389" {
				_, _ = w.Write([]byte(`[{"taxonid": 14389, "name": "Lynx pardinus"}]`))
				return
			}
			_, _ = w.Write([]byte(`[]`))
		case eidos.PathLegalStatuses:
			_, _ = w.Write([]byte(`[{"ambito": "Nacional", "estadolegal": "En peligro de extinción",
				"dataset": "Catálogo Español de Especies Amenazadas", "idvigente": 1}]`))
		case eidos.PathCommonNames:
			_, _ = w.Write([]byte(`[{"idtaxon": 14389, "nombre_comun": "Lince ibérico", "ididioma": 1, "espreferente": true}]`))
		case eidos.PathChecklist:
			_, _ = w.Write([]byte(`[
				{"idtaxon": 14389, "genus": "Lynx", "species": "pardinus", "nametype": "Aceptado/válido"},
				{"idtaxon": 14000, "genus": "Canis", "species": "lupus", "nametype": "Aceptado/válido"}
			]`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(env.server.Close)

	if len(sources) == 0 {
		sources = []string{"national_catalog", "common_name"}
	}
	env.cfg = testsupport.NewConfig(t,
		testsupport.WithEIDOSURL(env.server.URL),
		testsupport.WithSources(sources...),
		testsupport.WithDirectories(),
	)
	env.configPath = filepath.Join(testsupport.BaseDir(env.cfg), "config.toml")
	writeTestConfig(t, env.configPath, env.cfg)
	return env
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	quoted := make([]string, 0, len(cfg.Sources.Enabled))
	for _, name := range cfg.Sources.Enabled {
		quoted = append(quoted, fmt.Sprintf("%q", name))
	}
	content := fmt.Sprintf(`[paths]
cache_dir = %q
log_dir = %q

[eidos]
base_url = %q
rate_limit = 0.0
max_attempts = 1
timeout_seconds = 5

[batch]
concurrency = 4
timeout_seconds = 30

[checklist]
enabled = true
path = %q

[sources]
enabled = [%s]

[logging]
format = "json"
level = "error"
`, cfg.Paths.CacheDir, cfg.Paths.LogDir, cfg.EIDOS.BaseURL, cfg.Checklist.Path, strings.Join(quoted, ", "))
	testsupport.WriteFile(t, path, content)
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	return runCLIWithInput(t, configPath, "", args...)
}

func runCLIWithInput(t *testing.T, configPath, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q\n%s", substr, output)
	}
}
