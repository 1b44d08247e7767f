// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/toughchat/tough/internal/persona"
	"github.com/toughchat/tough/internal/provider"
	"github.com/toughchat/tough/internal/storage"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete tough configuration.
type Config struct {
	// DefaultProvider is used until the user picks a provider; a persisted
	// selection always wins.
	DefaultProvider string `toml:"default_provider" json:"default_provider"`

	// DefaultModel overrides the provider's first catalog model when set.
	DefaultModel string `toml:"default_model" json:"default_model"`

	Storage StorageConfig `toml:"storage" json:"storage"`
	HTTP    HTTPConfig    `toml:"http" json:"http"`
	Ollama  OllamaConfig  `toml:"ollama" json:"ollama"`
	Backend BackendConfig `toml:"backend" json:"backend"`
	Persona PersonaConfig `toml:"persona" json:"persona"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	Log     LogConfig     `toml:"log" json:"log"`

	// Credentials come from the environment only and are never written to
	// the config file.
	Credentials provider.Credentials `toml:"-" json:"-"`
}

// StorageConfig selects where local state is kept.
type StorageConfig struct {
	// Backend is "file", "sqlite" or "memory".
	Backend string `toml:"backend" json:"backend"`
	// DataDir holds the state file or database. Default: ~/.tough
	DataDir string `toml:"data_dir" json:"data_dir"`
}

// HTTPConfig tunes outbound provider calls.
type HTTPConfig struct {
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// RequestsPerMinute paces calls client-side. 0 means unlimited.
	RequestsPerMinute int `toml:"requests_per_minute" json:"requests_per_minute"`
}

// OllamaConfig holds the default Ollama base URL.
type OllamaConfig struct {
	URL string `toml:"url" json:"url"`
}

// BackendConfig points at the optional first-party backend.
type BackendConfig struct {
	URL string `toml:"url" json:"url"`
	// Enabled routes chat through the backend instead of calling the
	// provider directly.
	Enabled bool `toml:"enabled" json:"enabled"`
}

// PersonaConfig controls the reply rewriter.
type PersonaConfig struct {
	Enabled      bool   `toml:"enabled" json:"enabled"`
	Name         string `toml:"name" json:"name"`
	Organization string `toml:"organization" json:"organization"`
}

// UIConfig controls terminal rendering.
type UIConfig struct {
	Markdown bool `toml:"markdown" json:"markdown"`
	WordWrap int  `toml:"word_wrap" json:"word_wrap"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Verbose bool   `toml:"verbose" json:"verbose"`
	File    string `toml:"file" json:"file"`
}

// DefaultBackendURL is where the first-party backend listens by default.
const DefaultBackendURL = "http://localhost:3001/api"

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		DefaultProvider: string(provider.Default),

		Storage: StorageConfig{
			Backend: storage.BackendFile,
			DataDir: "",
		},

		HTTP: HTTPConfig{
			TimeoutSecs:       120,
			RequestsPerMinute: 0,
		},

		Ollama: OllamaConfig{
			URL: provider.DefaultOllamaURL,
		},

		Backend: BackendConfig{
			URL:     DefaultBackendURL,
			Enabled: false,
		},

		Persona: PersonaConfig{
			Enabled:      true,
			Name:         persona.DefaultName,
			Organization: persona.DefaultOrganization,
		},

		UI: UIConfig{
			Markdown: true,
			WordWrap: 80,
		},

		Credentials: provider.Credentials{},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the tough configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".tough"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// ensureSecurePermissions tightens a config file to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
//
// A file that fails to parse is reported alongside a usable default config.
func Load() (*Config, error) {
	var loadErr error

	if path, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			cfg, err := LoadFromPath(path)
			if err == nil {
				return cfg, nil
			}
			loadErr = err
		}
	}

	if loadErr == nil {
		if path, err := ConfigPathJSON(); err == nil {
			if _, statErr := os.Stat(path); statErr == nil {
				cfg, err := LoadFromPath(path)
				if err == nil {
					return cfg, nil
				}
				loadErr = err
			}
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, loadErr
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. Files ending in .json are read as JSON, anything else as TOML.
// Keys absent from the file keep their defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(strings.ToLower(path), ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SetDefaults fills in blank values with defaults.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.DefaultProvider == "" {
		c.DefaultProvider = defaults.DefaultProvider
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaults.Storage.Backend
	}
	if c.Storage.DataDir == "" {
		if dir, err := ConfigDir(); err == nil {
			c.Storage.DataDir = dir
		}
	}
	if c.HTTP.TimeoutSecs == 0 {
		c.HTTP.TimeoutSecs = defaults.HTTP.TimeoutSecs
	}
	if c.Ollama.URL == "" {
		c.Ollama.URL = defaults.Ollama.URL
	}
	if c.Backend.URL == "" {
		c.Backend.URL = defaults.Backend.URL
	}
	if c.Persona.Name == "" {
		c.Persona.Name = defaults.Persona.Name
	}
	if c.Persona.Organization == "" {
		c.Persona.Organization = defaults.Persona.Organization
	}
	if c.UI.WordWrap == 0 {
		c.UI.WordWrap = defaults.UI.WordWrap
	}
	if c.Credentials == nil {
		c.Credentials = provider.Credentials{}
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# tough configuration file")
	fmt.Fprintln(&buf, "# API keys are stored separately; see `tough key`.")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := storage.WriteFileAtomic(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every section and returns all problems at once as
// ValidateErrors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if _, err := provider.Parse(c.DefaultProvider); err != nil {
		errs = append(errs, ValidationError{
			Field:   "default_provider",
			Message: fmt.Sprintf("unknown provider '%s', must be one of: %s", c.DefaultProvider, providerNames()),
		})
	}
	if c.DefaultModel != "" {
		if p, err := provider.Parse(c.DefaultProvider); err == nil {
			if _, ok := provider.LookupModel(p, c.DefaultModel); !ok {
				errs = append(errs, ValidationError{
					Field:   "default_model",
					Message: fmt.Sprintf("model '%s' is not offered by %s", c.DefaultModel, p),
				})
			}
		}
	}

	switch strings.ToLower(c.Storage.Backend) {
	case storage.BackendFile, storage.BackendSQLite, storage.BackendMemory:
	default:
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: file, sqlite, memory", c.Storage.Backend),
		})
	}

	if c.HTTP.TimeoutSecs < 1 || c.HTTP.TimeoutSecs > 3600 {
		errs = append(errs, ValidationError{
			Field:   "http.timeout_secs",
			Message: fmt.Sprintf("timeout must be between 1 and 3600 seconds, got %d", c.HTTP.TimeoutSecs),
		})
	}
	if c.HTTP.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{
			Field:   "http.requests_per_minute",
			Message: "requests_per_minute cannot be negative",
		})
	}

	if err := validateHTTPURL(c.Ollama.URL); err != nil {
		errs = append(errs, ValidationError{Field: "ollama.url", Message: err.Error()})
	}
	if err := validateHTTPURL(c.Backend.URL); err != nil {
		errs = append(errs, ValidationError{Field: "backend.url", Message: err.Error()})
	}

	if c.Persona.Enabled {
		if err := c.PersonaIdentity().Validate(); err != nil {
			errs = append(errs, ValidationError{Field: "persona", Message: err.Error()})
		}
	}

	if c.UI.WordWrap < 0 || c.UI.WordWrap > 1000 {
		errs = append(errs, ValidationError{
			Field:   "ui.word_wrap",
			Message: fmt.Sprintf("word_wrap must be between 0 and 1000, got %d", c.UI.WordWrap),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must use http or https, got '%s'", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host: '%s'", raw)
	}
	return nil
}

func providerNames() string {
	var names []string
	for _, p := range provider.All() {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// credentialEnv lists the vendor key variables read into Credentials.
var credentialEnv = map[provider.Provider]string{
	provider.Groq:      "GROQ_API_KEY",
	provider.OpenAI:    "OPENAI_API_KEY",
	provider.Anthropic: "ANTHROPIC_API_KEY",
	provider.Together:  "TOGETHER_API_KEY",
}

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - TOUGH_PROVIDER: overrides default_provider
//   - TOUGH_MODEL: overrides default_model
//   - TOUGH_BACKEND_URL: overrides backend.url
//   - TOUGH_STORE: overrides storage.backend
//   - TOUGH_DATA_DIR: overrides storage.data_dir
//   - OLLAMA_HOST: overrides ollama.url (a scheme is added if missing)
//   - GROQ_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY, TOGETHER_API_KEY:
//     seed credentials for providers without a stored key
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("TOUGH_PROVIDER"); v != "" {
		c.DefaultProvider = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("TOUGH_MODEL"); v != "" {
		c.DefaultModel = v
	}
	if v := os.Getenv("TOUGH_BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("TOUGH_STORE"); v != "" {
		c.Storage.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("TOUGH_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		if !strings.Contains(v, "://") {
			v = "http://" + v
		}
		c.Ollama.URL = v
	}

	if c.Credentials == nil {
		c.Credentials = provider.Credentials{}
	}
	for p, env := range credentialEnv {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			c.Credentials[p] = v
		}
	}
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// Provider returns the parsed default provider.
func (c *Config) Provider() provider.Provider {
	p, err := provider.Parse(c.DefaultProvider)
	if err != nil {
		return provider.Default
	}
	return p
}

// Timeout returns the HTTP timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSecs) * time.Second
}

// PersonaIdentity returns the configured persona.
func (c *Config) PersonaIdentity() persona.Identity {
	return persona.Identity{Name: c.Persona.Name, Organization: c.Persona.Organization}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// AllKeys returns all configuration keys in dot notation.
func AllKeys() []string {
	return []string{
		"default_provider",
		"default_model",
		"storage.backend",
		"storage.data_dir",
		"http.timeout_secs",
		"http.requests_per_minute",
		"ollama.url",
		"backend.url",
		"backend.enabled",
		"persona.enabled",
		"persona.name",
		"persona.organization",
		"ui.markdown",
		"ui.word_wrap",
		"log.verbose",
		"log.file",
	}
}

// ErrUnknownKey is returned by Get and Set for keys outside AllKeys.
var ErrUnknownKey = errors.New("unknown config key")

func knownKey(key string) bool {
	for _, k := range AllKeys() {
		if k == key {
			return true
		}
	}
	return false
}

// Get retrieves a configuration value using dot notation (e.g., "http.timeout_secs").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if !knownKey(key) {
		return reflect.Value{}, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("%w: %s", ErrUnknownKey, key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strVal)
			if err != nil {
				lower := strings.ToLower(strVal)
				if lower != "yes" && lower != "no" {
					return fmt.Errorf("invalid boolean value: %q", strVal)
				}
				boolVal = lower == "yes"
			}
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Credentials = c.Credentials.Clone()
	return &clone
}

// String returns the config as JSON for debugging. Credentials are never
// included; only which providers have an environment key is shown.
func (c *Config) String() string {
	type view struct {
		*Config
		EnvKeys []string `json:"env_keys,omitempty"`
	}
	v := view{Config: c}
	for _, p := range provider.All() {
		if c.Credentials.Has(p) {
			v.EnvKeys = append(v.EnvKeys, string(p))
		}
	}
	data, _ := json.MarshalIndent(v, "", "  ")
	return string(data)
}
