package contract

import (
	"fmt"
	"maps"
	"runtime"
	"strings"
	"time"

	"github.com/huangsam/placewise/schema"
)

// Default values for configuration.
const (
	DefaultResultLimit = 10
	MaxResultLimit     = 1000
	DefaultPrecision   = 1
	DefaultExplainTop  = 3
	DefaultSweepDays   = 90
	DefaultRedisAddr   = "localhost:6379"

	DefaultUpstreamRate    = 5.0
	DefaultUpstreamBurst   = 5
	DefaultUpstreamTimeout = 10 * time.Second
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// UpstreamConfig holds the HTTP collaborator settings.
type UpstreamConfig struct {
	// Endpoints maps a category to a URL template; "{area}" is replaced by the area code.
	Endpoints map[schema.CacheCategory]string
	Rate      float64
	Burst     int
	Timeout   time.Duration
}

// Config holds the runtime configuration for a ranking pass.
// This struct is the "final, validated" config.
type Config struct {
	ResultLimit int
	Workers     int
	Persona     schema.Persona
	Personas    schema.PersonaSet
	Precision   int
	Output      schema.OutputMode
	OutputFile  string
	Detail      bool
	Explain     bool
	ExplainTop  int
	Width       int // Terminal width override (0 = auto-detect)
	UseColors   bool

	// Areas and InputFile are the two ways to feed the engine.
	Areas     []string
	InputFile string

	Preferences schema.UserPreferences

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext
	CacheDir       string

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext

	Upstream     UpstreamConfig
	ExplainerURL string
	MetricsFile  string
}

// UpstreamEndpointRaw is one collaborator entry in the YAML config file.
type UpstreamEndpointRaw struct {
	URL string `mapstructure:"url"`
}

// UpstreamRawInput holds the upstream section of the YAML config file.
type UpstreamRawInput struct {
	Rate           float64             `mapstructure:"rate"`
	Burst          int                 `mapstructure:"burst"`
	Timeout        string              `mapstructure:"timeout"`
	Property       UpstreamEndpointRaw `mapstructure:"scansan_property"`
	Trends         UpstreamEndpointRaw `mapstructure:"scansan_trends"`
	Commute        UpstreamEndpointRaw `mapstructure:"tfl_commute"`
	Crime          UpstreamEndpointRaw `mapstructure:"crime"`
	Schools        UpstreamEndpointRaw `mapstructure:"schools"`
	Amenities      UpstreamEndpointRaw `mapstructure:"amenities"`
	Infrastructure UpstreamEndpointRaw `mapstructure:"infrastructure"`
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	OutputFile       string `mapstructure:"output-file"`
	Limit            int    `mapstructure:"limit"`
	Workers          int    `mapstructure:"workers"`
	Persona          string `mapstructure:"persona"`
	Precision        int    `mapstructure:"precision"`
	Output           string `mapstructure:"output"`
	Detail           bool   `mapstructure:"detail"`
	Width            int    `mapstructure:"width"`
	Color            string `mapstructure:"color"`
	CacheBackend     string `mapstructure:"cache-backend"`
	CacheDBConnect   string `mapstructure:"cache-db-connect"`
	CacheDir         string `mapstructure:"cache-dir"`
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`
	MetricsFile      string `mapstructure:"metrics-file"`

	// --- Fields from rankCmd.Flags() ---
	Areas        string  `mapstructure:"areas"`
	Input        string  `mapstructure:"input"`
	Explain      bool    `mapstructure:"explain"`
	ExplainTop   int     `mapstructure:"explain-top"`
	ExplainerURL string  `mapstructure:"explainer-url"`
	Budget       float64 `mapstructure:"budget"`
	MaxCommute   float64 `mapstructure:"max-commute"`
	MinSafety    float64 `mapstructure:"min-safety"`
	MinSchool    float64 `mapstructure:"min-school"`
	Importance   string  `mapstructure:"importance"`

	// --- Upstream collaborators from config file ---
	Upstream UpstreamRawInput `mapstructure:"upstream"`

	// --- Persona weight overrides from config file ---
	Personas map[string]map[string]float64 `mapstructure:"personas"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Areas != nil {
		clone.Areas = make([]string, len(c.Areas))
		copy(clone.Areas, c.Areas)
	}
	if c.Upstream.Endpoints != nil {
		clone.Upstream.Endpoints = maps.Clone(c.Upstream.Endpoints)
	}
	if c.Preferences.ImportanceWeights != nil {
		clone.Preferences.ImportanceWeights = maps.Clone(c.Preferences.ImportanceWeights)
	}
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := processPersonas(cfg, input); err != nil {
		return err
	}
	if err := processPreferences(cfg, input); err != nil {
		return err
	}
	if err := processUpstream(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of connection strings
// for the networked backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.FileBackend, schema.SQLiteBackend, schema.BadgerBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	case schema.RedisBackend:
		if connStr != "" && !strings.HasPrefix(connStr, "redis://") && !strings.HasPrefix(connStr, "rediss://") && !strings.Contains(connStr, ":") {
			return fmt.Errorf("Redis connection must be host:port or a redis:// URL")
		}
	}
	return nil
}

// validateBackendConfigs validates cache and history backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = schema.FileBackend
	}
	if _, ok := schema.ValidCacheBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("%w: invalid cache backend '%s'. must be file, sqlite, mysql, postgresql, redis, badger, none", ErrConfiguration, input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	cfg.CacheDir = input.CacheDir
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return fmt.Errorf("%w: cache-db-connect: %v", ErrConfiguration, err)
	}

	// --- History Backend Validation ---
	cfg.HistoryBackend = schema.DatabaseBackend(strings.ToLower(input.HistoryBackend))
	if cfg.HistoryBackend == "" {
		return nil
	}
	if _, ok := schema.ValidHistoryBackends[cfg.HistoryBackend]; !ok {
		return fmt.Errorf("%w: invalid history backend '%s'. must be sqlite, mysql, postgresql, none", ErrConfiguration, input.HistoryBackend)
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("%w: history-db-connect: %v", ErrConfiguration, err)
	}

	// Cache and history must not share one SQLite file
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.HistoryBackend == schema.SQLiteBackend {
		cachePath := cfg.CacheDBConnect
		if cachePath == "" {
			cachePath = GetCacheDBFilePath()
		}
		historyPath := cfg.HistoryDBConnect
		if historyPath == "" {
			historyPath = GetHistoryDBFilePath()
		}
		if cachePath == historyPath {
			return fmt.Errorf("%w: cache and history storage must use different SQLite database files. Both resolve to %q", ErrConfiguration, cachePath)
		}
	}
	return nil
}

// validateSimpleInputs processes and validates all scalar fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Detail = input.Detail
	cfg.Explain = input.Explain
	cfg.Width = input.Width
	cfg.InputFile = strings.TrimSpace(input.Input)
	cfg.ExplainerURL = strings.TrimSpace(input.ExplainerURL)
	cfg.MetricsFile = input.MetricsFile

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("%w: invalid --color value: %v", ErrConfiguration, err)
	}
	cfg.UseColors = colors

	if input.Limit <= 0 || input.Limit > MaxResultLimit {
		return fmt.Errorf("%w: limit must be greater than 0 and cannot exceed %d (received %d)", ErrConfiguration, MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	if input.Workers <= 0 {
		return fmt.Errorf("%w: workers must be greater than 0 (received %d)", ErrConfiguration, input.Workers)
	}
	cfg.Workers = input.Workers

	cfg.ExplainTop = input.ExplainTop
	if cfg.ExplainTop <= 0 {
		cfg.ExplainTop = DefaultExplainTop
	}

	if input.Precision < 1 || input.Precision > 2 {
		return fmt.Errorf("%w: precision must be 1 or 2 (received %d)", ErrConfiguration, input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("%w: invalid output format '%s'. must be text, csv, json, parquet", ErrConfiguration, input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("%w: parquet output requires --output-file", ErrConfiguration)
	}

	cfg.Areas = nil
	for code := range strings.SplitSeq(input.Areas, ",") {
		if trimmed := strings.TrimSpace(code); trimmed != "" {
			cfg.Areas = append(cfg.Areas, strings.ToUpper(trimmed))
		}
	}
	return nil
}

// processPersonas merges config overrides into the built-in persona table
// and resolves the selected persona.
func processPersonas(cfg *Config, input *ConfigRawInput) error {
	overrides := make(map[schema.Persona]schema.WeightMap, len(input.Personas))
	for name, raw := range input.Personas {
		weights := make(schema.WeightMap, len(raw))
		for factor, w := range raw {
			f := schema.Factor(strings.ToLower(factor))
			if _, ok := schema.ValidFactors[f]; !ok {
				return fmt.Errorf("%w: persona %s has unknown factor %q", ErrConfiguration, name, factor)
			}
			if w < 0 {
				return fmt.Errorf("%w: persona %s weight for %s must not be negative (received %.2f)", ErrConfiguration, name, factor, w)
			}
			weights[f] = w
		}
		if len(weights) > 0 {
			overrides[schema.Persona(strings.ToLower(name))] = weights
		}
	}
	cfg.Personas = schema.DefaultPersonas().WithOverrides(overrides)

	cfg.Persona = schema.Persona(strings.ToLower(strings.TrimSpace(input.Persona)))
	if cfg.Persona == "" {
		cfg.Persona = schema.StudentPersona
	}
	if _, ok := cfg.Personas.Get(cfg.Persona); !ok {
		return fmt.Errorf("%w: invalid persona '%s'. must be one of %v", ErrConfiguration, input.Persona, cfg.Personas.Names())
	}
	return nil
}

// processPreferences turns the constraint flags into UserPreferences.
// A zero flag value means the constraint is not set.
func processPreferences(cfg *Config, input *ConfigRawInput) error {
	prefs := schema.UserPreferences{}
	if input.Budget > 0 {
		prefs.BudgetMax = schema.Float(input.Budget)
	}
	if input.MaxCommute > 0 {
		prefs.MaxCommuteMinutes = schema.Float(input.MaxCommute)
	}
	if input.MinSafety > 0 {
		prefs.MinSafetyScore = schema.Float(input.MinSafety)
	}
	if input.MinSchool > 0 {
		prefs.MinSchoolRating = schema.Float(input.MinSchool)
	}
	if input.Importance != "" {
		importance, err := ParseImportanceString(input.Importance)
		if err != nil {
			return fmt.Errorf("%w: invalid --importance format: %v", ErrConfiguration, err)
		}
		prefs.ImportanceWeights = importance
	}
	if err := ValidatePreferences(prefs); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	cfg.Preferences = prefs
	return nil
}

// processUpstream converts the upstream section into endpoint templates and pacing.
func processUpstream(cfg *Config, input *ConfigRawInput) error {
	raw := input.Upstream
	endpoints := map[schema.CacheCategory]string{
		schema.PropertyCategory:       raw.Property.URL,
		schema.TrendsCategory:         raw.Trends.URL,
		schema.CommuteCategory:        raw.Commute.URL,
		schema.CrimeCategory:          raw.Crime.URL,
		schema.SchoolsCategory:        raw.Schools.URL,
		schema.AmenitiesCategory:      raw.Amenities.URL,
		schema.InfrastructureCategory: raw.Infrastructure.URL,
	}
	cfg.Upstream.Endpoints = make(map[schema.CacheCategory]string)
	for category, url := range endpoints {
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return fmt.Errorf("%w: upstream %s url must be http or https (received %q)", ErrConfiguration, category, url)
		}
		cfg.Upstream.Endpoints[category] = url
	}

	cfg.Upstream.Rate = raw.Rate
	if cfg.Upstream.Rate <= 0 {
		cfg.Upstream.Rate = DefaultUpstreamRate
	}
	cfg.Upstream.Burst = raw.Burst
	if cfg.Upstream.Burst <= 0 {
		cfg.Upstream.Burst = DefaultUpstreamBurst
	}
	cfg.Upstream.Timeout = DefaultUpstreamTimeout
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: invalid upstream timeout %q", ErrConfiguration, raw.Timeout)
		}
		cfg.Upstream.Timeout = d
	}
	return nil
}
