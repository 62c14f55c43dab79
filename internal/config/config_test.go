package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kjstillabower/weatherbot/internal/generator"
)

// clearEnv unsets every variable Load consults and restores them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"WEATHER_API_KEY", "ENV_NAME", "GENERATOR_PROVIDER", "HUGGINGFACEHUB_API_TOKEN", "GEMINI_API_KEY"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_FailsWhenNoAPIKey(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, minimalEnvYAML)
	t.Chdir(dir)

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load() expected error when no API key source exists, got nil")
	}
	if cfg != nil {
		t.Fatalf("Load() expected nil config on error, got %+v", cfg)
	}
	if !strings.Contains(err.Error(), "WEATHER_API_KEY") {
		t.Errorf("Load() error = %v, want message containing WEATHER_API_KEY", err)
	}
}

func TestLoad_APIKeySources(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		secrets string
		keyFile string
		want    string
	}{
		{name: "env wins", env: "from-env", secrets: "weather_api_key: from-secrets\n", keyFile: "from-file", want: "from-env"},
		{name: "secrets before key file", secrets: "weather_api_key: from-secrets\n", keyFile: "from-file", want: "from-secrets"},
		{name: "raw key file trimmed", keyFile: "  from-file\n", want: "from-file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if tt.env != "" {
				t.Setenv("WEATHER_API_KEY", tt.env)
			}
			dir := t.TempDir()
			writeEnvFile(t, dir, minimalEnvYAML)
			if tt.secrets != "" {
				writeSecretsFile(t, dir, tt.secrets)
			}
			if tt.keyFile != "" {
				if err := os.WriteFile(filepath.Join(dir, "api_key"), []byte(tt.keyFile), 0600); err != nil {
					t.Fatalf("write key file: %v", err)
				}
			}
			t.Chdir(dir)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.WeatherAPIKey != tt.want {
				t.Errorf("WeatherAPIKey = %q, want %q", cfg.WeatherAPIKey, tt.want)
			}
		})
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	t.Cleanup(func() { os.Unsetenv("WEATHER_API_KEY") })
	dir := t.TempDir()
	writeEnvFile(t, dir, minimalEnvYAML)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("WEATHER_API_KEY=from-dotenv\n"), 0600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Chdir(dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WeatherAPIKey != "from-dotenv" {
		t.Errorf("WeatherAPIKey = %q, want value from .env", cfg.WeatherAPIKey)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEATHER_API_KEY", "test-key-1234567890")
	dir := t.TempDir()
	writeEnvFile(t, dir, "server:\n  port: \"\"\n")
	t.Chdir(dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "5000" {
		t.Errorf("ServerPort = %q, want 5000", cfg.ServerPort)
	}
	if cfg.WeatherAPIURL != defaultWeatherAPIURL {
		t.Errorf("WeatherAPIURL = %q, want default", cfg.WeatherAPIURL)
	}
	if cfg.WeatherAPITimeout != 10*time.Second {
		t.Errorf("WeatherAPITimeout = %v, want 10s", cfg.WeatherAPITimeout)
	}
	if cfg.CitiesFile != filepath.Join(dir, "data", "cities.txt") {
		t.Errorf("CitiesFile = %q, want data/cities.txt under cwd", cfg.CitiesFile)
	}
	if cfg.ConversationsFile != filepath.Join(dir, "data", "chat_data.json") {
		t.Errorf("ConversationsFile = %q, want data/chat_data.json under cwd", cfg.ConversationsFile)
	}
	if cfg.Generator.Provider != generator.ProviderHuggingFace {
		t.Errorf("Generator.Provider = %q, want huggingface", cfg.Generator.Provider)
	}
	if cfg.Generator.Model != generator.DefaultModel {
		t.Errorf("Generator.Model = %q, want %q", cfg.Generator.Model, generator.DefaultModel)
	}
	if cfg.Generator.MaxLength != 1000 {
		t.Errorf("Generator.MaxLength = %d, want 1000", cfg.Generator.MaxLength)
	}
	if cfg.Generator.Tokens != generator.DefaultTokens() {
		t.Errorf("Generator.Tokens = %+v, want defaults", cfg.Generator.Tokens)
	}
	if cfg.MaxMessageLength != 500 {
		t.Errorf("MaxMessageLength = %d, want 500", cfg.MaxMessageLength)
	}
	if cfg.ChatRequestTimeout != 60*time.Second {
		t.Errorf("ChatRequestTimeout = %v, want 60s", cfg.ChatRequestTimeout)
	}
	if cfg.RateLimitRPS != 0 {
		t.Errorf("RateLimitRPS = %d, want 0 (disabled)", cfg.RateLimitRPS)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEATHER_API_KEY", "test-key-1234567890")
	t.Setenv("HUGGINGFACEHUB_API_TOKEN", "hf-token")
	dir := t.TempDir()
	writeEnvFile(t, dir, minimalEnvYAML+`
data:
  cities_file: "/srv/cities.txt"
  conversations_file: "chat.json"
generator:
  provider: "HuggingFace"
  model: "microsoft/DialoGPT-small"
  max_length: 200
  tokens:
    eos: "</s>"
chat:
  max_message_length: 120
  request_timeout: "90s"
`)
	t.Chdir(dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.WeatherAPITimeout != 2*time.Second {
		t.Errorf("WeatherAPITimeout = %v, want 2s", cfg.WeatherAPITimeout)
	}
	if cfg.CitiesFile != "/srv/cities.txt" {
		t.Errorf("CitiesFile = %q, want absolute path kept", cfg.CitiesFile)
	}
	if cfg.ConversationsFile != filepath.Join(dir, "chat.json") {
		t.Errorf("ConversationsFile = %q, want resolved against cwd", cfg.ConversationsFile)
	}
	if cfg.Generator.Provider != generator.ProviderHuggingFace {
		t.Errorf("Generator.Provider = %q, want lowercased huggingface", cfg.Generator.Provider)
	}
	if cfg.Generator.Model != "microsoft/DialoGPT-small" || cfg.Generator.MaxLength != 200 {
		t.Errorf("Generator = %+v, want configured model and max length", cfg.Generator)
	}
	if cfg.Generator.APIKey != "hf-token" {
		t.Errorf("Generator.APIKey = %q, want token from env", cfg.Generator.APIKey)
	}
	if cfg.Generator.Tokens.EOS != "</s>" || cfg.Generator.Tokens.Pad != "<PAD>" {
		t.Errorf("Generator.Tokens = %+v, want eos override and default pad", cfg.Generator.Tokens)
	}
	if cfg.MaxMessageLength != 120 {
		t.Errorf("MaxMessageLength = %d, want 120", cfg.MaxMessageLength)
	}
	if cfg.ChatRequestTimeout != 90*time.Second {
		t.Errorf("ChatRequestTimeout = %v, want 90s", cfg.ChatRequestTimeout)
	}
	if cfg.WriteTimeout <= cfg.ChatRequestTimeout {
		t.Errorf("WriteTimeout = %v, want above chat request timeout", cfg.WriteTimeout)
	}
	if cfg.RateLimitRPS != 5 || cfg.RateLimitBurst != 10 {
		t.Errorf("rate limit = %d/%d, want 5/10", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
	if cfg.ShutdownInFlightTimeout != 10*time.Second {
		t.Errorf("ShutdownInFlightTimeout = %v, want capped at shutdown timeout", cfg.ShutdownInFlightTimeout)
	}
}

func TestLoad_EnvFileNotFound(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV_NAME", "nonexistent")
	t.Setenv("WEATHER_API_KEY", "key")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for missing env file, got nil")
	}
	if cfg != nil {
		t.Fatalf("Load() expected nil config on error, got %+v", cfg)
	}
	if !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("Load() error = %v, want message about config file not found", err)
	}
}

func TestLoad_InvalidDurationFallsBackToDefault(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, `
weather_api:
  timeout: "soon"
server:
  read_timeout: "-1s"
`)
	writeSecretsFile(t, dir, "weather_api_key: key\n")
	t.Chdir(dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WeatherAPITimeout != 10*time.Second {
		t.Errorf("WeatherAPITimeout = %v, want default on parse error", cfg.WeatherAPITimeout)
	}
	if cfg.ReadTimeout != 10*time.Second {
		t.Errorf("ReadTimeout = %v, want default for non-positive value", cfg.ReadTimeout)
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "zero weather timeout",
			yaml:    "weather_api:\n  timeout: \"0s\"\n",
			wantErr: "weather_api.timeout must be positive",
		},
		{
			name:    "unknown provider",
			yaml:    "generator:\n  provider: \"gpt2-local\"\n",
			wantErr: "generator.provider must be",
		},
		{
			name:    "gemini without key",
			yaml:    "generator:\n  provider: \"gemini\"\n  model: \"gemini-1.5-flash\"\n",
			wantErr: "GEMINI_API_KEY required",
		},
		{
			name:    "gemini without model",
			yaml:    "generator:\n  provider: \"gemini\"\n",
			env:     map[string]string{"GEMINI_API_KEY": "g-key"},
			wantErr: "generator.model required",
		},
		{
			name:    "ollama without model",
			yaml:    "generator:\n  provider: \"ollama\"\n",
			wantErr: "generator.model required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("WEATHER_API_KEY", "key")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			dir := t.TempDir()
			writeEnvFile(t, dir, tt.yaml)
			t.Chdir(dir)

			cfg, err := Load()
			if err == nil {
				t.Fatalf("Load() expected error, got config %+v", cfg)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_GeneratorProviderFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEATHER_API_KEY", "key")
	t.Setenv("GENERATOR_PROVIDER", "gemini")
	dir := t.TempDir()
	writeEnvFile(t, dir, "generator:\n  model: \"gemini-1.5-flash\"\n")
	writeSecretsFile(t, dir, "weather_api_key: ignored\ngemini_api_key: g-from-secrets\n")
	t.Chdir(dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Generator.Provider != generator.ProviderGemini {
		t.Errorf("Generator.Provider = %q, want gemini", cfg.Generator.Provider)
	}
	if cfg.Generator.APIKey != "g-from-secrets" {
		t.Errorf("Generator.APIKey = %q, want key from secrets file", cfg.Generator.APIKey)
	}
	if cfg.WeatherAPIKey != "key" {
		t.Errorf("WeatherAPIKey = %q, env must win over secrets", cfg.WeatherAPIKey)
	}
}

func TestLoad_InvalidSecretsYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeEnvFile(t, dir, minimalEnvYAML)
	writeSecretsFile(t, dir, "weather_api_key: [unclosed\n")
	t.Chdir(dir)

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "parse secrets file") {
		t.Fatalf("Load() error = %v, want parse secrets file", err)
	}
}

func TestLoad_InvalidConfigYAML(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEATHER_API_KEY", "key")
	dir := t.TempDir()
	writeEnvFile(t, dir, "server: [\n")
	t.Chdir(dir)

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "parse config file") {
		t.Fatalf("Load() error = %v, want parse config file", err)
	}
}

func TestLoad_RepositoryDevConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEATHER_API_KEY", "key")
	t.Chdir(findProjectRoot(t))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := os.Stat(cfg.CitiesFile); err != nil {
		t.Errorf("cities file from config/dev.yaml: %v", err)
	}
	if _, err := os.Stat(cfg.ConversationsFile); err != nil {
		t.Errorf("conversations file from config/dev.yaml: %v", err)
	}
}

const minimalEnvYAML = `
server:
  port: "8080"
weather_api:
  url: "https://api.example.com"
  timeout: "2s"
reliability:
  rate_limit_rps: 5
  rate_limit_burst: 10
shutdown:
  timeout: "10s"
  in_flight_timeout: "20s"
`

func writeEnvFile(t *testing.T, dir, content string) {
	t.Helper()
	configDir := filepath.Join(dir, "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("mkdir config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "dev.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
}

func writeSecretsFile(t *testing.T, dir, content string) {
	t.Helper()
	secretsDir := filepath.Join(dir, "config")
	if err := os.MkdirAll(secretsDir, 0755); err != nil {
		t.Fatalf("mkdir config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(secretsDir, "secrets.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("write secrets file: %v", err)
	}
}

// TestCoverageGaps_IntentionallyUntested documents paths we reviewed but chose not to test.
func TestCoverageGaps_IntentionallyUntested(t *testing.T) {
	t.Run("readKeyFile_read_error", func(t *testing.T) {
		t.Skip("non-IsNotExist read errors need a simulated ReadFile failure; not worth the portability cost")
	})
	t.Run("godotenv_parse_error", func(t *testing.T) {
		t.Skip("godotenv accepts nearly any line shape; a parse failure is not reliably reproducible")
	})
}

func findProjectRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "config", "dev.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("config/dev.yaml not found (run tests from project root)")
		}
		dir = parent
	}
}
