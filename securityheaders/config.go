package securityheaders

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// LoadConfigFromFile loads configuration from a file (TOML, YAML or JSON)
func LoadConfigFromFile(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config

	if ext := strings.ToLower(filepath.Ext(filename)); ext == ".toml" {
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file as TOML: %w", err)
		}
		return &config, nil
	}

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, &config); err != nil {
		config = Config{}
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file as YAML or JSON: %w", err)
		}
	}

	return &config, nil
}

// SaveConfigToFile saves configuration to a file
func SaveConfigToFile(config *Config, filename string, format string) error {
	var data []byte
	var err error

	switch format {
	case "yaml", "yml":
		data, err = yaml.Marshal(config)
	case "json":
		data, err = json.MarshalIndent(config, "", "  ")
	case "toml":
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(config)
		data = buf.Bytes()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(filename, data, 0644)
}

// OptionsFromMap decodes loosely typed options, keyed by rule id and option
// name as in the JSON form, e.g. {"hsts": {"maxAge": 300}}. Unknown keys and
// values of the wrong type are errors.
func OptionsFromMap(m map[string]any) (*Options, error) {
	var opts Options

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		ErrorUnused: true,
		Result:      &opts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create options decoder: %w", err)
	}

	if err := decoder.Decode(m); err != nil {
		return nil, fmt.Errorf("failed to decode options: %w", err)
	}

	return &opts, nil
}

// ConfigBuilder helps build configurations programmatically
type ConfigBuilder struct {
	config *Config
}

// NewConfigBuilder creates a new configuration builder
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: &Config{},
	}
}

// WithOptions sets the rule overrides
func (cb *ConfigBuilder) WithOptions(opts Options) *ConfigBuilder {
	cb.config.Options = opts
	return cb
}

// WithSkipPaths sets the paths to skip
func (cb *ConfigBuilder) WithSkipPaths(paths []string) *ConfigBuilder {
	cb.config.SkipPaths = paths
	return cb
}

// WithDebug sets debug mode
func (cb *ConfigBuilder) WithDebug(debug bool) *ConfigBuilder {
	cb.config.Debug = debug
	return cb
}

// Build returns the built configuration
func (cb *ConfigBuilder) Build() *Config {
	return cb.config
}

var crossDomainPolicies = map[string]bool{
	"none":            true,
	"master-only":     true,
	"by-content-type": true,
	"by-ftp-filename": true,
	"all":             true,
}

// ValidateConfig performs comprehensive configuration validation
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration is nil")
	}

	for i, path := range config.SkipPaths {
		if path == "" {
			return fmt.Errorf("skip path %d cannot be empty", i)
		}
	}

	return ValidateOptions(&config.Options)
}

// ValidateOptions reports option values that produce questionable headers.
// Header processing never calls it; such values are written as is.
func ValidateOptions(opts *Options) error {
	eff := opts.Resolve()

	maxAge := eff.HSTS.MaxAge
	if math.IsNaN(maxAge) || math.IsInf(maxAge, 0) {
		return fmt.Errorf("%s: maxAge must be finite, got %v", HSTS, maxAge)
	}
	if maxAge < 0 {
		return fmt.Errorf("%s: maxAge cannot be negative, got %v", HSTS, maxAge)
	}

	if policy := eff.PermittedCrossDomainPolicies.Policy; !crossDomainPolicies[policy] {
		return fmt.Errorf("%s: unknown policy %q", PermittedCrossDomainPolicies, policy)
	}

	return nil
}
