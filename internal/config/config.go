package config

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/loopwork-ai/docagent/internal"
)

// Providers
const (
	ProviderAzure  = "azure"
	ProviderOpenAI = "openai"
	ProviderStub   = "stub"
)

// Document backends
const (
	DocstoreMock   = "mock"
	DocstoreSQLite = "sqlite"
)

// DefaultAzureAPIVersion is the api-version used when none is configured.
const DefaultAzureAPIVersion = "2023-05-15"

// Config represents the configuration for docagent
type Config struct {
	// Provider selects the model gateway. Empty means choose from the
	// credentials that are present.
	Provider string `json:"provider" yaml:"provider" toml:"provider"`

	// MaxTurns bounds the tool-calling loop.
	MaxTurns int `json:"maxTurns" yaml:"maxTurns" toml:"max_turns"`

	Azure    AzureConfig    `json:"azure" yaml:"azure" toml:"azure"`
	OpenAI   OpenAIConfig   `json:"openai" yaml:"openai" toml:"openai"`
	Docstore DocstoreConfig `json:"docstore" yaml:"docstore" toml:"docstore"`
}

// AzureConfig holds Azure OpenAI deployment settings.
type AzureConfig struct {
	APIKey     string `json:"apiKey" yaml:"apiKey" toml:"api_key"`
	Endpoint   string `json:"endpoint" yaml:"endpoint" toml:"endpoint"`
	Deployment string `json:"deployment" yaml:"deployment" toml:"deployment"`
	APIVersion string `json:"apiVersion" yaml:"apiVersion" toml:"api_version"`
}

// OpenAIConfig holds settings for an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey  string `json:"apiKey" yaml:"apiKey" toml:"api_key"`
	BaseURL string `json:"baseURL" yaml:"baseURL" toml:"base_url"`
	Model   string `json:"model" yaml:"model" toml:"model"`
}

// DocstoreConfig selects the document backend.
type DocstoreConfig struct {
	Backend string `json:"backend" yaml:"backend" toml:"backend"`
	Path    string `json:"path" yaml:"path" toml:"path"`
}

// DefaultConfig returns the configuration used when nothing else is set
func DefaultConfig() *Config {
	return &Config{
		MaxTurns: 5,
		Azure: AzureConfig{
			APIVersion: DefaultAzureAPIVersion,
		},
		Docstore: DocstoreConfig{
			Backend: DocstoreMock,
			Path:    "docagent.db",
		},
	}
}

// Options controls where configuration is read from.
type Options struct {
	// Path is an optional config file (.yaml, .yml, .toml or .json).
	// A missing file is not an error.
	Path string
	// DotEnvFiles are read in order, later files overriding earlier ones.
	// Nil means .env then .env.local in the working directory.
	DotEnvFiles []string
	// LookupEnv reads the process environment. Nil means os.LookupEnv.
	LookupEnv func(string) (string, bool)
	// Overrides apply last.
	Overrides Overrides
}

// Overrides holds command-line values. Empty fields are ignored.
type Overrides struct {
	Provider string
	Model    string
	Docstore string
	MaxTurns int
}

// Load builds the configuration with precedence
// defaults → config file → dotenv files → environment → overrides.
func Load(opts Options) (*Config, error) {
	cfg := DefaultConfig()

	if opts.Path != "" {
		if err := mergeFile(cfg, opts.Path); err != nil {
			return nil, err
		}
	}

	env, err := newEnv(opts)
	if err != nil {
		return nil, err
	}
	if err := mergeEnv(cfg, env); err != nil {
		return nil, err
	}
	applyOverrides(cfg, opts.Overrides)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("error opening config file: %w", err)
	}
	defer f.Close()

	return Decode(f, formatOf(path), cfg)
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	default:
		return "json"
	}
}

// Decode reads configuration in format ("yaml", "toml" or "json") from r
// into cfg. Fields absent from the input keep their current values.
func Decode(r io.Reader, format string, cfg *Config) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("error reading config data: %w", err)
	}

	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("error parsing config YAML: %w", err)
		}
	case "toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("error parsing config TOML: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("error parsing config JSON: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", format)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

// newEnv returns a lookup that prefers the process environment and falls
// back to values from dotenv files.
func newEnv(opts Options) (lookupFunc, error) {
	files := opts.DotEnvFiles
	if files == nil {
		files = []string{".env", ".env.local"}
	}

	dotenv := map[string]string{}
	for _, name := range files {
		values, err := godotenv.Read(name)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error reading %s: %w", name, err)
		}
		for k, v := range values {
			dotenv[k] = v
		}
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return func(key string) (string, bool) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
		v, ok := dotenv[key]
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}, nil
}

func mergeEnv(cfg *Config, env lookupFunc) error {
	set := func(key string, dst *string) {
		if v, ok := env(key); ok {
			*dst = v
		}
	}

	set("DOCAGENT_PROVIDER", &cfg.Provider)
	set("AZURE_OPENAI_API_KEY", &cfg.Azure.APIKey)
	set("AZURE_OPENAI_ENDPOINT", &cfg.Azure.Endpoint)
	set("AZURE_OPENAI_DEPLOYMENT_NAME", &cfg.Azure.Deployment)
	set("AZURE_OPENAI_API_VERSION", &cfg.Azure.APIVersion)
	set("OPENAI_API_KEY", &cfg.OpenAI.APIKey)
	set("OPENAI_BASE_URL", &cfg.OpenAI.BaseURL)
	set("DOCAGENT_MODEL", &cfg.OpenAI.Model)
	set("DOCAGENT_DOCSTORE", &cfg.Docstore.Backend)
	set("DOCAGENT_DOCSTORE_PATH", &cfg.Docstore.Path)

	if v, ok := env("DOCAGENT_MAX_TURNS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DOCAGENT_MAX_TURNS %q: %w", v, err)
		}
		cfg.MaxTurns = n
	}
	return nil
}

func applyOverrides(cfg *Config, o Overrides) {
	if o.Provider != "" {
		cfg.Provider = o.Provider
	}
	if o.Model != "" {
		cfg.OpenAI.Model = o.Model
	}
	if o.Docstore != "" {
		cfg.Docstore.Backend = o.Docstore
	}
	if o.MaxTurns > 0 {
		cfg.MaxTurns = o.MaxTurns
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Provider {
	case "", ProviderAzure, ProviderOpenAI, ProviderStub:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	switch c.Docstore.Backend {
	case DocstoreMock:
	case DocstoreSQLite:
		if c.Docstore.Path == "" {
			return fmt.Errorf("sqlite docstore requires a path")
		}
	default:
		return fmt.Errorf("unknown docstore backend %q", c.Docstore.Backend)
	}
	if c.MaxTurns <= 0 {
		return fmt.Errorf("maxTurns must be positive, got %d", c.MaxTurns)
	}
	if c.ResolvedProvider() == ProviderAzure {
		if c.Azure.Endpoint == "" {
			return fmt.Errorf("azure provider requires AZURE_OPENAI_ENDPOINT")
		}
		if c.Azure.Deployment == "" {
			return fmt.Errorf("azure provider requires AZURE_OPENAI_DEPLOYMENT_NAME")
		}
	}
	return nil
}

// ResolvedProvider returns the configured provider, or the first one with a
// credential: azure, then openai, then the stub.
func (c *Config) ResolvedProvider() string {
	if c.Provider != "" {
		return c.Provider
	}
	switch {
	case c.Azure.APIKey != "":
		return ProviderAzure
	case c.OpenAI.APIKey != "":
		return ProviderOpenAI
	default:
		return ProviderStub
	}
}

// ResolveSecrets replaces API keys that are secret references with their values.
func (c *Config) ResolveSecrets(ctx context.Context) error {
	for _, key := range []*string{&c.Azure.APIKey, &c.OpenAI.APIKey} {
		value, _, err := internal.ResolveSecretReference(ctx, *key)
		if err != nil {
			return err
		}
		*key = value
	}
	return nil
}
