package router

import (
	"fmt"
	"strings"

	"github.com/kjstillabower/weatherbot/internal/client"
	"github.com/kjstillabower/weatherbot/internal/models"
)

// TimestampLayout renders sunrise/sunset wall-clock times.
const TimestampLayout = "2006-01-02 15:04:05"

// Attribute pairs the keywords that request one weather field with its formatter.
// Keywords are lowercase; one English and one Vietnamese form each.
type Attribute struct {
	Name     string
	Keywords []string
	Format   func(city string, r models.WeatherRecord) string
}

// Attributes is checked in order against the lowered query; the first attribute
// with a contained keyword wins. "weather" sits before sunrise/sunset, so
// "sunrise weather in hue" yields the full summary.
var Attributes = []Attribute{
	{Name: "temperature", Keywords: []string{"temperature", "nhiệt độ"}, Format: formatTemperature},
	{Name: "feels_like", Keywords: []string{"feels like", "cảm giác như"}, Format: formatFeelsLike},
	{Name: "humidity", Keywords: []string{"humidity", "độ ẩm"}, Format: formatHumidity},
	{Name: "wind_speed", Keywords: []string{"wind speed", "tốc độ gió"}, Format: formatWindSpeed},
	{Name: "weather", Keywords: []string{"weather", "thời tiết"}, Format: formatSummary},
	{Name: "sunrise", Keywords: []string{"sunrise", "mặt trời mọc"}, Format: formatSunrise},
	{Name: "sunset", Keywords: []string{"sunset", "mặt trời lặn"}, Format: formatSunset},
}

// SelectAttribute returns the first attribute whose keyword appears in lowered.
func SelectAttribute(lowered string) (Attribute, bool) {
	for _, a := range Attributes {
		for _, kw := range a.Keywords {
			if strings.Contains(lowered, kw) {
				return a, true
			}
		}
	}
	return Attribute{}, false
}

func formatTemperature(city string, r models.WeatherRecord) string {
	return fmt.Sprintf("Temperature in %s: %.2f°C or %.2f°F", client.DisplayName(city), r.TempCelsius, r.TempFahrenheit)
}

func formatFeelsLike(city string, r models.WeatherRecord) string {
	return fmt.Sprintf("Feels like in %s: %.2f°C or %.2f°F", client.DisplayName(city), r.FeelsLikeCelsius, r.FeelsLikeFahrenheit)
}

func formatHumidity(city string, r models.WeatherRecord) string {
	return fmt.Sprintf("Humidity in %s: %s%%", client.DisplayName(city), r.Humidity)
}

func formatWindSpeed(city string, r models.WeatherRecord) string {
	return fmt.Sprintf("Wind Speed in %s: %s m/s", client.DisplayName(city), r.WindSpeed)
}

func formatSunrise(city string, r models.WeatherRecord) string {
	return fmt.Sprintf("Sunrise in %s at %s local time.", client.DisplayName(city), r.Sunrise.Format(TimestampLayout))
}

func formatSunset(city string, r models.WeatherRecord) string {
	return fmt.Sprintf("Sunset in %s at %s local time.", client.DisplayName(city), r.Sunset.Format(TimestampLayout))
}

func formatSummary(city string, r models.WeatherRecord) string {
	lines := []string{
		formatTemperature(city, r),
		formatFeelsLike(city, r),
		fmt.Sprintf("Humidity: %s%%", r.Humidity),
		fmt.Sprintf("Wind Speed: %s m/s", r.WindSpeed),
		fmt.Sprintf("General Weather: %s", r.Description),
		fmt.Sprintf("Sunrise at %s local time", r.Sunrise.Format(TimestampLayout)),
		fmt.Sprintf("Sunset at %s local time", r.Sunset.Format(TimestampLayout)),
	}
	return strings.Join(lines, "\n")
}
