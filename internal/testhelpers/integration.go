//go:build integration
// +build integration

package testhelpers

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weatherbot/internal/catalog"
	"github.com/kjstillabower/weatherbot/internal/client"
	"github.com/kjstillabower/weatherbot/internal/router"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	APIKey  string
	APIURL  string
	DataDir string
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips test if WEATHER_API_KEY is not set.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	t.Helper()
	apiKey := os.Getenv("WEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("WEATHER_API_KEY not set, skipping integration test")
	}

	apiURL := os.Getenv("WEATHER_API_URL")
	if apiURL == "" {
		apiURL = "https://api.openweathermap.org/data/2.5/weather"
	}

	return IntegrationTestConfig{
		APIKey:  apiKey,
		APIURL:  apiURL,
		DataDir: findDataDir(t),
	}
}

// SetupIntegrationClient creates a weather client for integration tests.
func SetupIntegrationClient(t *testing.T, cfg IntegrationTestConfig) client.WeatherClient {
	t.Helper()
	c, err := client.NewOpenWeatherClient(cfg.APIKey, cfg.APIURL, 10*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}
	return c
}

// EchoGenerator stands in for the language model so integration runs need only the
// weather provider.
type EchoGenerator struct{}

func (EchoGenerator) Generate(ctx context.Context, text string) (string, error) {
	return "echo: " + text, nil
}

// SetupIntegrationRouter wires the repository's city and conversation files to a live
// weather client and EchoGenerator.
func SetupIntegrationRouter(t *testing.T, cfg IntegrationTestConfig, logger *zap.Logger) *router.Router {
	t.Helper()
	cities, err := catalog.LoadCities(filepath.Join(cfg.DataDir, "cities.txt"))
	if err != nil {
		t.Fatalf("LoadCities() error = %v", err)
	}
	conversations, err := catalog.LoadConversations(filepath.Join(cfg.DataDir, "chat_data.json"))
	if err != nil {
		t.Fatalf("LoadConversations() error = %v", err)
	}
	return router.New(cities, conversations, SetupIntegrationClient(t, cfg), EchoGenerator{}, logger)
}

func findDataDir(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		candidate := filepath.Join(dir, "data")
		if _, err := os.Stat(filepath.Join(candidate, "cities.txt")); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("data/cities.txt not found (run tests inside the repository)")
		}
		dir = parent
	}
}
