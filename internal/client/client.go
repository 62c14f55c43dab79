package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/weatherbot/internal/models"
	"github.com/kjstillabower/weatherbot/internal/observability"
)

// WeatherClient fetches a current-conditions record for one catalog city.
type WeatherClient interface {
	GetCurrentWeather(ctx context.Context, city string) (models.WeatherRecord, error)
}

var (
	ErrInvalidAPIKey = errors.New("invalid API key")
	ErrProvider      = errors.New("weather provider error")
	ErrDecode        = errors.New("decode provider response")
)

const (
	successCode    = 200
	unknownMessage = "Unknown error"
)

// ProviderError is returned when the provider answers with a non-success code.
// Message is the provider's own text, surfaced verbatim to the user.
type ProviderError struct {
	City    string
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider code %s for %s: %s", e.Code, e.City, e.Message)
}

func (e *ProviderError) Unwrap() error { return ErrProvider }

type OpenWeatherClient struct {
	apiKey string
	apiURL string
	client *http.Client
}

func NewOpenWeatherClient(apiKey, apiURL string, timeout time.Duration) (*OpenWeatherClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	if _, err := url.Parse(apiURL); err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	return &OpenWeatherClient{
		apiKey: strings.TrimSpace(apiKey),
		apiURL: apiURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// statusCode accepts the provider's "cod" field, which is a number on success
// and usually a string ("404") on failure.
type statusCode struct {
	raw     string
	numeric bool
}

func (s *statusCode) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s.raw, s.numeric = str, false
		return nil
	}
	s.raw, s.numeric = string(b), true
	return nil
}

func (s statusCode) ok() bool {
	if !s.numeric {
		return false
	}
	n, err := strconv.ParseFloat(s.raw, 64)
	return err == nil && n == successCode
}

type openWeatherResponse struct {
	Cod     statusCode `json:"cod"`
	Message string     `json:"message"`
	Main    struct {
		Temp      float64     `json:"temp"`
		FeelsLike float64     `json:"feels_like"`
		Humidity  json.Number `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed json.Number `json:"speed"`
	} `json:"wind"`
	Sys struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
	Timezone int64 `json:"timezone"`
}

// GetCurrentWeather performs exactly one provider call. Provider-level failures
// come back as *ProviderError; transport and decode failures are wrapped as-is.
func (c *OpenWeatherClient) GetCurrentWeather(ctx context.Context, city string) (models.WeatherRecord, error) {
	start := time.Now()

	req, err := c.buildRequest(ctx, city)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		return models.WeatherRecord{}, fmt.Errorf("build request: %w", err)
	}

	if corrID := extractCorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		observability.WeatherAPIDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return models.WeatherRecord{}, fmt.Errorf("request timeout: %w", err)
		}
		return models.WeatherRecord{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		return models.WeatherRecord{}, fmt.Errorf("read response body: %w", err)
	}

	var apiResp openWeatherResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		return models.WeatherRecord{}, fmt.Errorf("%w: HTTP %d: %v", ErrDecode, resp.StatusCode, err)
	}

	if !apiResp.Cod.ok() {
		observability.WeatherAPICallsTotal.WithLabelValues("provider_error").Inc()
		observability.WeatherAPIDuration.WithLabelValues("provider_error").Observe(time.Since(start).Seconds())
		msg := apiResp.Message
		if msg == "" {
			msg = unknownMessage
		}
		return models.WeatherRecord{}, &ProviderError{City: city, Code: apiResp.Cod.raw, Message: msg}
	}

	observability.WeatherAPICallsTotal.WithLabelValues("success").Inc()
	observability.WeatherAPIDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())
	return mapResponse(apiResp, city), nil
}

func (c *OpenWeatherClient) buildRequest(ctx context.Context, city string) (*http.Request, error) {
	baseURL, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	params := baseURL.Query()
	params.Set("appid", c.apiKey)
	params.Set("q", DisplayName(city))
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

func mapResponse(apiResp openWeatherResponse, city string) models.WeatherRecord {
	description := ""
	if len(apiResp.Weather) > 0 {
		description = apiResp.Weather[0].Description
	}

	tempC, tempF := KelvinToCelsiusFahrenheit(apiResp.Main.Temp)
	feelsC, feelsF := KelvinToCelsiusFahrenheit(apiResp.Main.FeelsLike)

	return models.WeatherRecord{
		City:                city,
		TempCelsius:         tempC,
		TempFahrenheit:      tempF,
		FeelsLikeCelsius:    feelsC,
		FeelsLikeFahrenheit: feelsF,
		Humidity:            apiResp.Main.Humidity,
		WindSpeed:           apiResp.Wind.Speed,
		Description:         description,
		Sunrise:             ShiftedUTC(apiResp.Sys.Sunrise, apiResp.Timezone),
		Sunset:              ShiftedUTC(apiResp.Sys.Sunset, apiResp.Timezone),
	}
}

// KelvinToCelsiusFahrenheit converts a provider temperature.
func KelvinToCelsiusFahrenheit(kelvin float64) (celsius, fahrenheit float64) {
	celsius = kelvin - 273.15
	fahrenheit = celsius*(9.0/5.0) + 32
	return celsius, fahrenheit
}

// ShiftedUTC adds the provider's UTC offset (seconds) to an epoch and reads the
// result back as a UTC wall clock. It does not resolve a real time zone.
func ShiftedUTC(epoch, offset int64) time.Time {
	return time.Unix(epoch+offset, 0).UTC()
}

// DisplayName turns a city identifier into the human form used in requests and replies.
func DisplayName(city string) string {
	return strings.ReplaceAll(city, "_", " ")
}

func extractCorrelationID(ctx context.Context) string {
	if corrIDVal := ctx.Value(observability.CorrelationIDKey); corrIDVal != nil {
		if corrID, ok := corrIDVal.(string); ok {
			return corrID
		}
	}
	return ""
}
