package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8000", cfg.Store.BaseURL)
	assert.Equal(t, "/api", cfg.Store.PathPrefix)
	assert.Equal(t, 50, cfg.Store.PerPage)
	assert.Equal(t, 10, cfg.Store.MaxPages)
	assert.Equal(t, 800, cfg.References.MinContent)
	assert.Equal(t, 6, cfg.References.MaxCandidates)
	assert.Equal(t, 3, cfg.References.Concurrency)
	assert.Equal(t, 2, cfg.References.Wanted)
	assert.Equal(t, 300, cfg.Fetch.MinTextLength)
	assert.Equal(t, "beyondchats.com", cfg.Search.ExcludeDomain)
	assert.False(t, cfg.HasValidGoogleSearch())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Chdir(t.TempDir())

	t.Setenv("API_BASE_URL", "http://store.internal:9000/")
	t.Setenv("MIN_CONTENT", "1200")
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("OPENAI_MODEL", "gpt-test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://store.internal:9000", cfg.Store.BaseURL)
	assert.Equal(t, 1200, cfg.References.MinContent)
	assert.Equal(t, "gsk-test", cfg.AI.Groq.APIKey)
	assert.Equal(t, "gpt-test", cfg.AI.OpenAI.Model)
}

func TestLoadConfigFile(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "updater.yaml")
	content := `
references:
  min_content: 500
search:
  seeds_file: seeds.yaml
classify:
  extra_blocked_domains:
    - medium.com
app:
  debug: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.References.MinContent)
	assert.Equal(t, []string{"medium.com"}, cfg.Classify.ExtraBlockedDomains)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, path, cfg.App.ConfigFile)
}

func TestValidateConfigRejectsBadValues(t *testing.T) {
	cfg := &Config{
		Store:      Store{BaseURL: "not a url", PerPage: 50, MaxPages: 10},
		References: References{MinContent: 0, MaxCandidates: 6, Concurrency: 3, Wanted: 2},
		Search: Search{Providers: SearchProviders{
			Google: GoogleSearchConfig{APIKey: "key-only"},
		}},
	}

	err := validateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.base_url")
	assert.Contains(t, err.Error(), "references.min_content must be positive")
	assert.Contains(t, err.Error(), "Google Custom Search requires both")
}

func TestPostProcessConfigRejectsBadDuration(t *testing.T) {
	cfg := &Config{Fetch: Fetch{Timeout: "soon"}}
	err := postProcessConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch.timeout")
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, Duration("5s", time.Minute))
	assert.Equal(t, time.Minute, Duration("", time.Minute))
	assert.Equal(t, time.Minute, Duration("bogus", time.Minute))
}

func TestHasKey(t *testing.T) {
	assert.False(t, HasKey(""))
	assert.False(t, HasKey("YOUR_API_KEY"))
	assert.True(t, HasKey("sk-real"))
}
