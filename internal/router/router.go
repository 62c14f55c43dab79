// Package router turns one chat utterance into one reply: a weather answer for a
// catalog city, a canned reply, a fixed apology, or a generated reply.
package router

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kjstillabower/weatherbot/internal/catalog"
	"github.com/kjstillabower/weatherbot/internal/client"
	"github.com/kjstillabower/weatherbot/internal/generator"
	"github.com/kjstillabower/weatherbot/internal/observability"
)

// NotUnderstood is returned when the query names no city and matches no canned phrase.
const NotUnderstood = "Sorry, I couldn't find the city you're looking for or understand your query."

// Branch names the path that produced a reply.
type Branch string

const (
	BranchWeather       Branch = "weather"
	BranchWeatherError  Branch = "weather_error"
	BranchConversation  Branch = "conversation"
	BranchNotUnderstood Branch = "not_understood"
	BranchGenerative    Branch = "generative"
)

// Result is a routed reply.
type Result struct {
	Text   string
	Branch Branch
	City   string // matched catalog identifier, empty when none
}

// Router holds read-only lookup data and the two outbound collaborators.
type Router struct {
	cities        *catalog.Cities
	conversations *catalog.Conversations
	weather       client.WeatherClient
	generator     generator.Generator
	logger        *zap.Logger
}

func New(
	cities *catalog.Cities,
	conversations *catalog.Conversations,
	weather client.WeatherClient,
	gen generator.Generator,
	logger *zap.Logger,
) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		cities:        cities,
		conversations: conversations,
		weather:       weather,
		generator:     gen,
		logger:        logger,
	}
}

// Reply returns only the reply text.
func (r *Router) Reply(ctx context.Context, text string) (string, error) {
	res, err := r.Route(ctx, text)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Route applies, in order: city match, canned conversation, apology, weather
// lookup, attribute keyword, generative fallback. A matched city without an
// attribute keyword still performs the lookup and then falls through to the
// generator. Transport and generation failures are returned as errors.
func (r *Router) Route(ctx context.Context, text string) (Result, error) {
	logger := observability.LoggerFromContext(ctx, r.logger)
	lowered := catalog.Fold(text)

	city, ok := r.cities.Match(lowered)
	if !ok {
		if reply, ok := r.conversations.Lookup(lowered); ok {
			return r.done(logger, Result{Text: reply, Branch: BranchConversation}), nil
		}
		return r.done(logger, Result{Text: NotUnderstood, Branch: BranchNotUnderstood}), nil
	}

	record, err := r.weather.GetCurrentWeather(ctx, city)
	if err != nil {
		observability.WeatherAPIErrorsTotal.WithLabelValues(string(client.CategorizeError(err))).Inc()
		var pe *client.ProviderError
		if errors.As(err, &pe) {
			msg := fmt.Sprintf("Error fetching weather for %s: %s", city, pe.Message)
			return r.done(logger, Result{Text: msg, Branch: BranchWeatherError, City: city}), nil
		}
		logger.Warn("weather lookup failed", zap.String("city", city), zap.Error(err))
		return Result{}, fmt.Errorf("fetch weather for %s: %w", city, err)
	}

	if attr, ok := SelectAttribute(lowered); ok {
		logger.Debug("attribute selected", zap.String("city", city), zap.String("attribute", attr.Name))
		return r.done(logger, Result{Text: attr.Format(city, record), Branch: BranchWeather, City: city}), nil
	}

	reply, err := r.generator.Generate(ctx, text)
	if err != nil {
		logger.Warn("generative fallback failed", zap.String("city", city), zap.Error(err))
		return Result{}, fmt.Errorf("generate reply: %w", err)
	}
	return r.done(logger, Result{Text: reply, Branch: BranchGenerative, City: city}), nil
}

func (r *Router) done(logger *zap.Logger, res Result) Result {
	observability.RecordChatReply(string(res.Branch))
	logger.Debug("chat routed", zap.String("branch", string(res.Branch)), zap.String("city", res.City))
	return res
}
