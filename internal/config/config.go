package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort     = 3000
	defaultLogLevel = "info"
)

// credentialEnv maps each known provider to the environment variable holding
// its API key.
var credentialEnv = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"claude":     "ANTHROPIC_API_KEY",
	"gemini":     "GEMINI_API_KEY",
	"groq":       "GROQ_API_KEY",
	"grok":       "XAI_API_KEY",
	"deepseek":   "DEEPSEEK_API_KEY",
	"perplexity": "PERPLEXITY_API_KEY",
	"assemblyai": "ASSEMBLYAI_API_KEY",
	"elevenlabs": "ELEVENLABS_API_KEY",
}

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server    ServerConfig              `yaml:"server"`
	Providers map[string]ProviderConfig `yaml:"providers"`
}

// ServerConfig defines listener and logging configuration.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	LogLevel       string   `yaml:"log_level"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ProviderConfig overrides credentials and endpoints for one provider.
type ProviderConfig struct {
	APIKey  string  `yaml:"api_key"`
	BaseURL string  `yaml:"base_url"`
	Headers Headers `yaml:"headers"`
	// PollInterval paces transcript polling for asynchronous vendors.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Headers contains additional HTTP headers to send with a provider request.
type Headers map[string]string

// KnownProviders returns every provider name the configuration understands.
func KnownProviders() []string {
	names := make([]string, 0, len(credentialEnv))
	for name := range credentialEnv {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// CredentialEnv returns the environment variable consulted for name.
func CredentialEnv(name string) string {
	return credentialEnv[name]
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:     defaultPort,
			LogLevel: defaultLogLevel,
		},
	}
}

// Load reads YAML configuration from disk, applies environment overrides and
// validates the result. An empty path yields the defaults plus environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return Config{}, fmt.Errorf("resolve config path: %w", err)
		}

		data, err := os.ReadFile(absPath)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadEnvFiles loads KEY=value pairs into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %q: %w", p, err)
		}
		slog.Debug("loaded env file", "path", p)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if raw := strings.TrimSpace(os.Getenv("PORT")); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("PORT must be an integer, got %q", raw)
		}
		c.Server.Port = port
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = defaultLogLevel
	}
	return nil
}

// Provider returns the configured overrides for name, if any.
func (c Config) Provider(name string) ProviderConfig {
	return c.Providers[name]
}

// APIKey resolves the credential for name: the config file wins, then the
// provider's environment variable.
func (c Config) APIKey(name string) string {
	if key := strings.TrimSpace(c.Providers[name].APIKey); key != "" {
		return key
	}
	env, ok := credentialEnv[name]
	if !ok {
		return ""
	}
	return strings.TrimSpace(os.Getenv(env))
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}

	if _, err := ParseLevel(c.Server.LogLevel); err != nil {
		return err
	}

	for _, origin := range c.Server.AllowedOrigins {
		if origin == "*" {
			continue
		}
		if err := validateAbsoluteURL(origin); err != nil {
			return fmt.Errorf("server.allowed_origins: %w", err)
		}
	}

	for name, provider := range c.Providers {
		if err := validateProvider(name, provider); err != nil {
			return err
		}
	}

	return nil
}

func validateProvider(name string, provider ProviderConfig) error {
	if _, ok := credentialEnv[name]; !ok {
		return fmt.Errorf("provider %s: unknown provider, expected one of %s", name, strings.Join(KnownProviders(), ", "))
	}

	if provider.BaseURL != "" {
		if err := validateAbsoluteURL(provider.BaseURL); err != nil {
			return fmt.Errorf("provider %s: base_url: %w", name, err)
		}
	}

	if provider.PollInterval < 0 {
		return fmt.Errorf("provider %s: poll_interval must not be negative", name)
	}

	for headerKey := range provider.Headers {
		if !isCanonicalHTTPHeader(headerKey) {
			return fmt.Errorf("provider %s: header %q is not a valid canonical HTTP header", name, headerKey)
		}
	}

	return nil
}

func validateAbsoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q must include a host", raw)
	}
	return nil
}

// ParseLevel maps a log level name to its slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("server.log_level %q must be one of debug, info, warn or error", name)
}

func isCanonicalHTTPHeader(header string) bool {
	if header == "" {
		return false
	}

	for _, r := range header {
		if !(r == '-' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}
