package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kjstillabower/weatherbot/internal/catalog"
	"github.com/kjstillabower/weatherbot/internal/client"
	"github.com/kjstillabower/weatherbot/internal/config"
	"github.com/kjstillabower/weatherbot/internal/generator"
	"github.com/kjstillabower/weatherbot/internal/observability"
	"github.com/kjstillabower/weatherbot/internal/router"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envName string
	root := &cobra.Command{
		Use:           "weatherbot",
		Short:         "Weather chatbot for a fixed set of cities",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if envName != "" {
				_ = os.Setenv("ENV_NAME", envName)
			}
		},
	}
	root.PersistentFlags().StringVar(&envName, "env", "", "config environment (reads config/<env>.yaml; overrides ENV_NAME)")
	root.AddCommand(newServeCmd(), newAskCmd())
	return root
}

// app is everything a chat turn needs, loaded once.
type app struct {
	cfg           *config.Config
	cities        *catalog.Cities
	conversations *catalog.Conversations
	router        *router.Router
	closer        io.Closer
}

func (a *app) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

func loadApp(ctx context.Context, logger *zap.Logger) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cities, err := catalog.LoadCities(cfg.CitiesFile)
	if err != nil {
		return nil, fmt.Errorf("city catalog: %w", err)
	}
	conversations, err := catalog.LoadConversations(cfg.ConversationsFile)
	if err != nil {
		return nil, fmt.Errorf("conversation table: %w", err)
	}
	logger.Info("catalogs loaded",
		zap.Int("cities", cities.Len()),
		zap.Int("conversations", conversations.Len()))

	weatherClient, err := client.NewOpenWeatherClient(cfg.WeatherAPIKey, cfg.WeatherAPIURL, cfg.WeatherAPITimeout)
	if err != nil {
		return nil, fmt.Errorf("weather client: %w", err)
	}

	gen, closer, err := generator.New(ctx, cfg.Generator)
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	logger.Info("generator ready",
		zap.String("provider", string(cfg.Generator.Provider)),
		zap.String("model", cfg.Generator.Model))

	return &app{
		cfg:           cfg,
		cities:        cities,
		conversations: conversations,
		router:        router.New(cities, conversations, weatherClient, gen, logger),
		closer:        closer,
	}, nil
}

func newLogger() (*zap.Logger, error) {
	logger, err := observability.NewLogger("weatherbot")
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return logger, nil
}
