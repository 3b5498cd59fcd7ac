package securityheaders

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "headers.yaml",
			content: `
options:
  hsts:
    maxAge: 31536000
    preload: false
  frameguard:
    action: sameorigin
  hidePoweredBy:
    setTo: null
skip_paths:
  - /healthz
debug: true
`,
		},
		{
			name: "json",
			file: "headers.json",
			content: `{
  "options": {
    "hsts": {"maxAge": 31536000, "preload": false},
    "frameguard": {"action": "sameorigin"}
  },
  "skip_paths": ["/healthz"],
  "debug": true
}`,
		},
		{
			name: "toml",
			file: "headers.toml",
			content: `
skip_paths = ["/healthz"]
debug = true

[options.hsts]
maxAge = 31536000.0
preload = false

[options.frameguard]
action = "sameorigin"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfigFromFile(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)

			assert.Equal(t, []string{"/healthz"}, config.SkipPaths)
			assert.True(t, config.Debug)

			eff := config.Options.Resolve()
			assert.Equal(t, HSTSConfig{MaxAge: 31536000, IncludeSubDomains: true, Preload: false}, eff.HSTS)
			assert.Equal(t, "sameorigin", eff.Frameguard.Action)
			assert.Equal(t, "", eff.HidePoweredBy.SetTo)
			require.NoError(t, ValidateConfig(config))
		})
	}
}

func TestLoadConfigFromFile_Errors(t *testing.T) {
	_, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to open config file")

	_, err = LoadConfigFromFile(writeFile(t, "bad.yaml", "options:\n  hsts:\n    maxAge: forever\n"))
	assert.ErrorContains(t, err, "failed to parse config file")

	_, err = LoadConfigFromFile(writeFile(t, "bad.toml", "[options.hsts]\nmaxAge = \"forever\"\n"))
	assert.ErrorContains(t, err, "failed to parse config file as TOML")
}

func TestSaveConfigToFile(t *testing.T) {
	config := NewConfigBuilder().
		WithOptions(Options{
			HSTS:       &HSTSOptions{MaxAge: Float(600)},
			Frameguard: &FrameguardOptions{Action: String("sameorigin")},
		}).
		WithSkipPaths([]string{"/healthz"}).
		WithDebug(true).
		Build()

	for _, format := range []string{"yaml", "json", "toml"} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "headers."+format)
			require.NoError(t, SaveConfigToFile(config, path, format))

			loaded, err := LoadConfigFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, config.Options.Resolve(), loaded.Options.Resolve())
			assert.Equal(t, config.SkipPaths, loaded.SkipPaths)
			assert.Equal(t, config.Debug, loaded.Debug)
		})
	}

	err := SaveConfigToFile(config, filepath.Join(t.TempDir(), "headers.ini"), "ini")
	assert.ErrorContains(t, err, "unsupported format")
}

func TestOptionsFromMap(t *testing.T) {
	opts, err := OptionsFromMap(map[string]any{
		"hsts":          map[string]any{"maxAge": 300, "includeSubDomains": false},
		"xssFilter":     map[string]any{"reportUri": "https://example.com/r"},
		"hidePoweredBy": map[string]any{"setTo": nil},
	})
	require.NoError(t, err)

	eff := opts.Resolve()
	assert.Equal(t, HSTSConfig{MaxAge: 300, IncludeSubDomains: false, Preload: true}, eff.HSTS)
	assert.Equal(t, "https://example.com/r", eff.XSSFilter.ReportURI)
	assert.Equal(t, "", eff.HidePoweredBy.SetTo)
	assert.Nil(t, opts.Frameguard)
}

func TestOptionsFromMap_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input map[string]any
	}{
		{"unknown rule", map[string]any{"contentSecurityPolicy": map[string]any{}}},
		{"unknown key", map[string]any{"hsts": map[string]any{"maxAgeSeconds": 1}}},
		{"non numeric max age", map[string]any{"hsts": map[string]any{"maxAge": "forever"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OptionsFromMap(tt.input)
			assert.ErrorContains(t, err, "failed to decode options")
		})
	}
}

func TestValidateConfig(t *testing.T) {
	assert.Error(t, ValidateConfig(nil))
	assert.NoError(t, ValidateConfig(&Config{}))
	assert.Error(t, ValidateConfig(&Config{
		Options: Options{HSTS: &HSTSOptions{MaxAge: Float(-1)}},
	}))
}
