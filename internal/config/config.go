package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/weatherbot/internal/generator"
)

const defaultWeatherAPIURL = "https://api.openweathermap.org/data/2.5/weather"

// Config holds service configuration loaded from YAML, .env and the environment.
type Config struct {
	ServerPort   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	WeatherAPIKey     string
	WeatherAPIURL     string
	WeatherAPITimeout time.Duration

	CitiesFile        string
	ConversationsFile string

	Generator generator.Config

	MaxMessageLength   int
	ChatRequestTimeout time.Duration

	RateLimitRPS   int
	RateLimitBurst int

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration
}

type fileConfig struct {
	Server struct {
		Port         string `yaml:"port"`
		ReadTimeout  string `yaml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout"`
	} `yaml:"server"`

	WeatherAPI struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
		KeyFile string `yaml:"key_file"`
	} `yaml:"weather_api"`

	Data struct {
		CitiesFile        string `yaml:"cities_file"`
		ConversationsFile string `yaml:"conversations_file"`
	} `yaml:"data"`

	Generator struct {
		Provider  string            `yaml:"provider"`
		Model     string            `yaml:"model"`
		BaseURL   string            `yaml:"base_url"`
		MaxLength int               `yaml:"max_length"`
		Tokens    *generator.Tokens `yaml:"tokens"`
	} `yaml:"generator"`

	Chat struct {
		MaxMessageLength int    `yaml:"max_message_length"`
		RequestTimeout   string `yaml:"request_timeout"`
	} `yaml:"chat"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`
}

type secretsFile struct {
	WeatherAPIKey    string `yaml:"weather_api_key"`
	HuggingFaceToken string `yaml:"huggingface_token"`
	GeminiAPIKey     string `yaml:"gemini_api_key"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and config/secrets.yaml.
// A .env file in the working directory is loaded first and never overrides variables that
// are already set. The weather API key comes from WEATHER_API_KEY, the secrets file, or the
// raw key file named by weather_api.key_file, in that order. Call from project root.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	sec, err := loadSecrets(filepath.Join(cwd, "config", "secrets.yaml"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "5000"
	}
	cfg.ReadTimeout = parseDuration(fc.Server.ReadTimeout, 10*time.Second)
	cfg.WriteTimeout = parseDuration(fc.Server.WriteTimeout, 60*time.Second)

	cfg.WeatherAPIKey = firstNonEmpty(os.Getenv("WEATHER_API_KEY"), sec.WeatherAPIKey)
	if cfg.WeatherAPIKey == "" {
		keyFile := fc.WeatherAPI.KeyFile
		if keyFile == "" {
			keyFile = "api_key"
		}
		if !filepath.IsAbs(keyFile) {
			keyFile = filepath.Join(cwd, keyFile)
		}
		key, err := readKeyFile(keyFile)
		if err != nil {
			return nil, err
		}
		cfg.WeatherAPIKey = key
	}
	if cfg.WeatherAPIKey == "" {
		return nil, fmt.Errorf("WEATHER_API_KEY required (set env, config/secrets.yaml weather_api_key, or an api_key file)")
	}

	cfg.WeatherAPIURL = fc.WeatherAPI.URL
	if cfg.WeatherAPIURL == "" {
		cfg.WeatherAPIURL = defaultWeatherAPIURL
	}
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, 10*time.Second)

	cfg.CitiesFile = resolvePath(cwd, fc.Data.CitiesFile, "data/cities.txt")
	cfg.ConversationsFile = resolvePath(cwd, fc.Data.ConversationsFile, "data/chat_data.json")

	cfg.Generator = generator.Config{
		Provider:  generator.Provider(strings.ToLower(strings.TrimSpace(fc.Generator.Provider))),
		Model:     strings.TrimSpace(fc.Generator.Model),
		BaseURL:   strings.TrimSpace(fc.Generator.BaseURL),
		MaxLength: fc.Generator.MaxLength,
		Tokens:    generator.DefaultTokens(),
	}
	if p := strings.ToLower(strings.TrimSpace(os.Getenv("GENERATOR_PROVIDER"))); p != "" {
		cfg.Generator.Provider = generator.Provider(p)
	}
	if cfg.Generator.Provider == "" {
		cfg.Generator.Provider = generator.ProviderHuggingFace
	}
	if cfg.Generator.Model == "" && cfg.Generator.Provider == generator.ProviderHuggingFace {
		cfg.Generator.Model = generator.DefaultModel
	}
	if cfg.Generator.MaxLength <= 0 {
		cfg.Generator.MaxLength = 1000
	}
	if fc.Generator.Tokens != nil {
		cfg.Generator.Tokens = mergeTokens(cfg.Generator.Tokens, *fc.Generator.Tokens)
	}
	switch cfg.Generator.Provider {
	case generator.ProviderHuggingFace:
		cfg.Generator.APIKey = firstNonEmpty(os.Getenv("HUGGINGFACEHUB_API_TOKEN"), sec.HuggingFaceToken)
	case generator.ProviderGemini:
		cfg.Generator.APIKey = firstNonEmpty(os.Getenv("GEMINI_API_KEY"), sec.GeminiAPIKey)
	}

	cfg.MaxMessageLength = fc.Chat.MaxMessageLength
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = 500
	}
	cfg.ChatRequestTimeout = parseDuration(fc.Chat.RequestTimeout, 60*time.Second)

	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS < 0 {
		cfg.RateLimitRPS = 0
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = cfg.RateLimitRPS * 2
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadSecrets(path string) (secretsFile, error) {
	var sec secretsFile
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sec, nil
		}
		return sec, fmt.Errorf("read secrets file: %w", err)
	}
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return sec, fmt.Errorf("parse secrets file: %w", err)
	}
	return sec, nil
}

// readKeyFile returns the trimmed contents of a raw key file, or "" when it does not exist.
func readKeyFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read API key file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func resolvePath(cwd, p, fallback string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		p = fallback
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(cwd, p)
}

// mergeTokens overlays the configured tokens on the defaults; empty fields keep the default.
func mergeTokens(base, override generator.Tokens) generator.Tokens {
	base.CLS = firstNonEmpty(override.CLS, base.CLS)
	base.Mask = firstNonEmpty(override.Mask, base.Mask)
	base.Pad = firstNonEmpty(override.Pad, base.Pad)
	base.Sep = firstNonEmpty(override.Sep, base.Sep)
	base.EOS = firstNonEmpty(override.EOS, base.EOS)
	return base
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
func validate(cfg *Config) error {
	if cfg.WeatherAPITimeout <= 0 {
		return fmt.Errorf("weather_api.timeout must be positive")
	}
	switch cfg.Generator.Provider {
	case generator.ProviderHuggingFace, generator.ProviderOllama:
	case generator.ProviderGemini:
		if cfg.Generator.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY required when generator.provider is gemini")
		}
		if cfg.Generator.Model == "" {
			return fmt.Errorf("generator.model required when generator.provider is gemini")
		}
	default:
		return fmt.Errorf("generator.provider must be huggingface, ollama or gemini, got %q", cfg.Generator.Provider)
	}
	if cfg.Generator.Provider == generator.ProviderOllama && cfg.Generator.Model == "" {
		return fmt.Errorf("generator.model required when generator.provider is ollama")
	}
	if cfg.WriteTimeout <= cfg.ChatRequestTimeout {
		cfg.WriteTimeout = cfg.ChatRequestTimeout + 5*time.Second
	}
	if cfg.ShutdownInFlightTimeout > cfg.ShutdownTimeout {
		cfg.ShutdownInFlightTimeout = cfg.ShutdownTimeout
	}
	return nil
}
