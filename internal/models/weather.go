package models

import (
	"encoding/json"
	"time"
)

// WeatherRecord is a single provider snapshot for one city. Built fresh for every
// query and owned by the caller that requested it. Humidity and wind speed keep the
// provider's number literal so replies print exactly what was sent.
type WeatherRecord struct {
	City                string      `json:"city"`
	TempCelsius         float64     `json:"tempCelsius"`
	TempFahrenheit      float64     `json:"tempFahrenheit"`
	FeelsLikeCelsius    float64     `json:"feelsLikeCelsius"`
	FeelsLikeFahrenheit float64     `json:"feelsLikeFahrenheit"`
	Humidity            json.Number `json:"humidity"`
	WindSpeed           json.Number `json:"windSpeed"`
	Description         string      `json:"description"`
	Sunrise             time.Time   `json:"sunrise"` // provider offset applied, zone is UTC
	Sunset              time.Time   `json:"sunset"`
}
