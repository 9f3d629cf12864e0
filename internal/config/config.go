package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/abelbrown/ideadeck/internal/model"
)

// Backends
const (
	BackendSQLite   = "sqlite"
	BackendSupabase = "supabase"
)

// Environments select transport retry defaults.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config is the persistent application configuration
type Config struct {
	Backend  string         `json:"backend" validate:"oneof=sqlite supabase"`
	Env      string         `json:"env" validate:"oneof=development production test"`
	Supabase SupabaseConfig `json:"supabase"`
	SQLite   SQLiteConfig   `json:"sqlite"`
	UI       UIConfig       `json:"ui"`

	// Sources harvested by `ideas seed`. Empty means model.DefaultSources.
	Sources []SourceConfig `json:"sources,omitempty" validate:"dive"`
}

// SupabaseConfig holds the PostgREST endpoint and transport policy
type SupabaseConfig struct {
	URL               string  `json:"url"`
	AnonKey           string  `json:"anon_key,omitempty"`
	AccessToken       string  `json:"access_token,omitempty"` // user session JWT
	Table             string  `json:"table" validate:"required"`
	SavedTable        string  `json:"saved_table" validate:"required"`
	TimeoutSeconds    int     `json:"timeout_seconds" validate:"gte=1,lte=300"`
	MaxRetries        int     `json:"max_retries" validate:"gte=0,lte=10"`
	RetryDelayMs      int     `json:"retry_delay_ms" validate:"gte=0"`
	RequestsPerSecond float64 `json:"requests_per_second" validate:"gt=0"`
}

// SQLiteConfig holds the embedded store location
type SQLiteConfig struct {
	Path string `json:"path"` // empty = <data dir>/ideadeck.db
}

// UIConfig holds UI preferences
type UIConfig struct {
	Theme       string `json:"theme" validate:"oneof=dark light"`
	PageSize    int    `json:"page_size" validate:"gte=1,lte=100"`
	DefaultSort string `json:"default_sort" validate:"oneof=created_at upvotes"`
	DebounceMs  int    `json:"debounce_ms" validate:"gte=0,lte=5000"`
}

// SourceConfig is one harvested community feed
type SourceConfig struct {
	Name     string `json:"name" validate:"required"`
	URL      string `json:"url" validate:"required,url"`
	Category string `json:"category"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	cfg := &Config{
		Backend: BackendSQLite,
		Env:     EnvDevelopment,
		Supabase: SupabaseConfig{
			Table:             "business_ideas",
			SavedTable:        "saved_ideas",
			TimeoutSeconds:    30,
			RequestsPerSecond: 10,
		},
		UI: UIConfig{
			Theme:       "dark",
			PageSize:    model.DefaultPageSize,
			DefaultSort: string(model.SortRecent),
			DebounceMs:  300,
		},
	}
	cfg.ApplyRetryPolicy()
	return cfg
}

// ApplyRetryPolicy sets MaxRetries and RetryDelayMs from Env.
func (c *Config) ApplyRetryPolicy() {
	switch c.Env {
	case EnvProduction:
		c.Supabase.MaxRetries, c.Supabase.RetryDelayMs = 3, 2000
	case EnvTest:
		c.Supabase.MaxRetries, c.Supabase.RetryDelayMs = 0, 0
	default:
		c.Supabase.MaxRetries, c.Supabase.RetryDelayMs = 3, 1000
	}
}

// Timeout returns the per-request transport timeout.
func (s SupabaseConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// RetryDelay returns the base backoff between transport retries.
func (s SupabaseConfig) RetryDelay() time.Duration {
	return time.Duration(s.RetryDelayMs) * time.Millisecond
}

// DefaultFilter is the filter the Discover tab opens with.
func (c *Config) DefaultFilter() model.Filter {
	return model.Filter{
		Sort:     model.SortKey(c.UI.DefaultSort),
		PageSize: c.UI.PageSize,
	}
}

// SourceList returns the configured feeds, falling back to the defaults.
func (c *Config) SourceList() []model.Source {
	if len(c.Sources) == 0 {
		return model.DefaultSources
	}
	out := make([]model.Source, len(c.Sources))
	for i, s := range c.Sources {
		cat := s.Category
		if cat == "" {
			cat = "other"
		}
		out[i] = model.Source{Name: s.Name, URL: s.URL, Category: cat}
	}
	return out
}

// DBPath returns the SQLite path, defaulting into DataDir.
func (c *Config) DBPath() string {
	if c.SQLite.Path != "" {
		return c.SQLite.Path
	}
	return filepath.Join(DataDir(), "ideadeck.db")
}

var validate = validator.New()

// Validate checks field ranges and backend-specific requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Backend == BackendSupabase {
		if err := validate.Var(c.Supabase.URL, "required,url"); err != nil {
			return fmt.Errorf("invalid config: supabase.url must be set for the supabase backend")
		}
		if c.Supabase.AnonKey == "" {
			return fmt.Errorf("invalid config: supabase.anon_key must be set for the supabase backend")
		}
	}
	return nil
}

// DataDir returns ~/.ideadeck, or $IDEADECK_HOME when set.
func DataDir() string {
	if dir := os.Getenv("IDEADECK_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ideadeck")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.json")
}

// Load reads the config file, then .env files, then environment overrides.
func Load() (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := LoadFrom(ConfigPath())
	if err != nil {
		return nil, err
	}
	cfg.AutoPopulateFromEnv()
	return cfg, nil
}

// LoadFrom reads config from path, or returns defaults when it is missing.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes config to ConfigPath.
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes config to path with owner-only permissions.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600) // holds API keys
}

// LoadDotEnv loads .env.local then .env from the working directory.
// Existing process variables win; missing files are ignored.
func LoadDotEnv() error {
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// AutoPopulateFromEnv applies environment variable overrides
func (c *Config) AutoPopulateFromEnv() {
	c.applyVars(os.Getenv)
}

// LoadKeysFromFile applies overrides from a dotenv-style file (KEY=value,
// optional `export`) without touching the process environment.
func (c *Config) LoadKeysFromFile(path string) error {
	vars, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("read keys file: %w", err)
	}
	c.applyVars(func(k string) string { return vars[k] })
	return nil
}

func (c *Config) applyVars(get func(string) string) {
	if v := get("SUPABASE_URL"); v != "" {
		c.Supabase.URL = v
	}
	if v := get("SUPABASE_ANON_KEY"); v != "" {
		c.Supabase.AnonKey = v
	}
	if v := get("SUPABASE_ACCESS_TOKEN"); v != "" {
		c.Supabase.AccessToken = v
	}
	if v := get("IDEADECK_DB"); v != "" {
		c.SQLite.Path = v
	}
	if v := get("IDEADECK_ENV"); v != "" {
		c.Env = v
		c.ApplyRetryPolicy()
	}
	// A configured Supabase URL selects the remote backend unless overridden.
	if get("SUPABASE_URL") != "" {
		c.Backend = BackendSupabase
	}
	if v := get("IDEADECK_BACKEND"); v != "" {
		c.Backend = v
	}
}
