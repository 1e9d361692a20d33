// Package config provides configuration loading, validation and secrets for the service.
// It handles JSON config files, ${VAR} substitution, SOLACE_* environment overrides and .env files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"solace/pkg/logx"
)

// EnvPrefix prefixes every environment override, e.g. SOLACE_MODEL_NAME.
const EnvPrefix = "SOLACE_"

// Storage drivers.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Duration is a time.Duration that reads and writes as a Go duration string in JSON.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\" or nanoseconds: %w", err)
	}
	*d = Duration(n)
	return nil
}

// ModelConfig selects the conversation model.
type ModelConfig struct {
	Name        string  `json:"name"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// CircuitBreakerConfig defines configuration for circuit breaker behavior.
type CircuitBreakerConfig struct {
	FailureThreshold int      `json:"failure_threshold"`
	SuccessThreshold int      `json:"success_threshold"`
	Timeout          Duration `json:"timeout"`
}

// RetryConfig defines retry behavior for model calls.
type RetryConfig struct {
	MaxAttempts   int      `json:"max_attempts"`
	InitialDelay  Duration `json:"initial_delay"`
	MaxDelay      Duration `json:"max_delay"`
	BackoffFactor float64  `json:"backoff_factor"`
	Jitter        bool     `json:"jitter"`
}

// ResilienceConfig groups the model middleware settings.
type ResilienceConfig struct {
	RequestTimeout Duration             `json:"request_timeout"`
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker"`
	Retry          RetryConfig          `json:"retry"`
}

// ConversationConfig tunes the controller.
type ConversationConfig struct {
	HistoryMessages    int      `json:"history_messages"`     // Most recent messages loaded per turn
	HistoryTokenBudget int      `json:"history_token_budget"` // Token cap for the loaded history
	TurnTimeout        Duration `json:"turn_timeout"`
	MaxToolIterations  int      `json:"max_tool_iterations"`
	ReflectionMinChars int      `json:"reflection_min_chars"`
	ReflectionMinWords int      `json:"reflection_min_words"`
}

// GateConfig tunes the exercise suggestion gate.
type GateConfig struct {
	DeclineCooldown Duration `json:"decline_cooldown"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string   `json:"addr"`
	ShutdownTimeout Duration `json:"shutdown_timeout"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver string `json:"driver"` // "sqlite" or "memory"
	Path   string `json:"path"`
}

// MetricsConfig controls Prometheus export and querying.
type MetricsConfig struct {
	Enabled       bool   `json:"enabled"`
	PrometheusURL string `json:"prometheus_url"` // Optional; enables usage summaries
}

// DebugConfig controls debug logging.
type DebugConfig struct {
	Enabled bool     `json:"enabled"`
	Domains []string `json:"domains"`
}

// Config is the full service configuration.
type Config struct {
	Model        ModelConfig        `json:"model"`
	Resilience   ResilienceConfig   `json:"resilience"`
	Conversation ConversationConfig `json:"conversation"`
	Gate         GateConfig         `json:"gate"`
	Server       ServerConfig       `json:"server"`
	Storage      StorageConfig      `json:"storage"`
	Metrics      MetricsConfig      `json:"metrics"`
	Debug        DebugConfig        `json:"debug"`
	CatalogPath  string             `json:"catalog_path"` // Optional YAML catalog; the built-in one is used when empty
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// LoadDotEnv loads .env files into the process environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logx.NewLogger("config").Debug("no %s file, using environment variables", p)
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configPath (optional), applies environment overrides and defaults, and validates.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		expanded := envVarRegex.ReplaceAllStringFunc(string(data), func(match string) string {
			if value := os.Getenv(match[2 : len(match)-1]); value != "" {
				return value
			}
			return match
		})
		if err := json.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	applyEnvOverridesRecursive(reflect.ValueOf(cfg).Elem(), EnvPrefix)
}

func applyEnvOverridesRecursive(v reflect.Value, prefix string) {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		jsonTag := t.Field(i).Tag.Get("json")
		if jsonTag == "" || jsonTag == "-" {
			continue
		}
		envKey := strings.ToUpper(prefix + strings.Split(jsonTag, ",")[0])

		if field.Kind() == reflect.Struct {
			applyEnvOverridesRecursive(field, envKey+"_")
			continue
		}
		if envValue, ok := os.LookupEnv(envKey); ok && envValue != "" {
			setFieldFromEnv(field, envValue)
		}
	}
}

//nolint:gochecknoglobals // type lookup for reflection
var durationType = reflect.TypeOf(Duration(0))

func setFieldFromEnv(field reflect.Value, envValue string) {
	if !field.CanSet() {
		return
	}

	switch {
	case field.Type() == durationType:
		if d, err := time.ParseDuration(envValue); err == nil {
			field.SetInt(int64(d))
		}
	case field.Kind() == reflect.String:
		field.SetString(envValue)
	case field.Kind() == reflect.Int:
		if n, err := strconv.Atoi(envValue); err == nil {
			field.SetInt(int64(n))
		}
	case field.Kind() == reflect.Float64:
		if f, err := strconv.ParseFloat(envValue, 64); err == nil {
			field.SetFloat(f)
		}
	case field.Kind() == reflect.Bool:
		if b, err := strconv.ParseBool(envValue); err == nil {
			field.SetBool(b)
		}
	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		var parts []string
		for _, p := range strings.Split(envValue, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		field.Set(reflect.ValueOf(parts))
	}
}

// applyDefaults sets default values for missing configuration.
func applyDefaults(cfg *Config) {
	setDefault(&cfg.Model.Name, ModelClaudeSonnetLatest)
	setDefault(&cfg.Model.MaxTokens, 1024)
	setDefault(&cfg.Model.Temperature, 0.7)

	setDefault(&cfg.Resilience.RequestTimeout, Duration(45*time.Second))
	setDefault(&cfg.Resilience.CircuitBreaker.FailureThreshold, 5)
	setDefault(&cfg.Resilience.CircuitBreaker.SuccessThreshold, 3)
	setDefault(&cfg.Resilience.CircuitBreaker.Timeout, Duration(30*time.Second))
	setDefault(&cfg.Resilience.Retry.MaxAttempts, 3)
	setDefault(&cfg.Resilience.Retry.InitialDelay, Duration(200*time.Millisecond))
	setDefault(&cfg.Resilience.Retry.MaxDelay, Duration(5*time.Second))
	setDefault(&cfg.Resilience.Retry.BackoffFactor, 2.0)

	setDefault(&cfg.Conversation.HistoryMessages, 20)
	setDefault(&cfg.Conversation.HistoryTokenBudget, 6000)
	setDefault(&cfg.Conversation.TurnTimeout, Duration(90*time.Second))
	setDefault(&cfg.Conversation.MaxToolIterations, 3)
	setDefault(&cfg.Conversation.ReflectionMinChars, 50)
	setDefault(&cfg.Conversation.ReflectionMinWords, 10)

	setDefault(&cfg.Gate.DeclineCooldown, Duration(24*time.Hour))

	setDefault(&cfg.Server.Addr, ":8080")
	setDefault(&cfg.Server.ShutdownTimeout, Duration(10*time.Second))

	setDefault(&cfg.Storage.Driver, StorageSQLite)
	if cfg.Storage.Driver == StorageSQLite {
		setDefault(&cfg.Storage.Path, "solace.db")
	}
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

func validateConfig(cfg *Config) error {
	if _, err := GetModelProvider(cfg.Model.Name); err != nil {
		return err
	}
	if cfg.Model.Temperature < 0 || cfg.Model.Temperature > 2 {
		return fmt.Errorf("model.temperature must be between 0 and 2, got %v", cfg.Model.Temperature)
	}
	if cfg.Model.MaxTokens <= 0 {
		return fmt.Errorf("model.max_tokens must be positive")
	}
	switch cfg.Storage.Driver {
	case StorageSQLite, StorageMemory:
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", StorageSQLite, StorageMemory, cfg.Storage.Driver)
	}
	if cfg.Conversation.MaxToolIterations < 1 {
		return fmt.Errorf("conversation.max_tool_iterations must be at least 1")
	}
	if cfg.Resilience.Retry.MaxAttempts < 1 {
		return fmt.Errorf("resilience.retry.max_attempts must be at least 1")
	}
	return nil
}
