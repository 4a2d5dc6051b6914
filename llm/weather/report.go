package weather

import (
	"fmt"
	"strconv"
	"strings"
)

// Report is the normalized subset of a weather API response.
// Fields the provider did not send are nil or empty.
type Report struct {
	City        string         `json:"city"`
	Description string         `json:"description"`
	Temperature *float64       `json:"temp,omitempty"`
	FeelsLike   *float64       `json:"feels_like,omitempty"`
	Humidity    *float64       `json:"humidity,omitempty"`
	Raw         map[string]any `json:"raw,omitempty"`
}

// Normalize extracts a Report from a decoded OpenWeatherMap response.
func Normalize(raw map[string]any) Report {
	r := Report{Raw: raw}
	r.City, _ = raw["name"].(string)

	if list, ok := raw["weather"].([]any); ok && len(list) > 0 {
		if first, ok := list[0].(map[string]any); ok {
			r.Description, _ = first["description"].(string)
		}
	}

	if main, ok := raw["main"].(map[string]any); ok {
		r.Temperature = number(main["temp"])
		r.FeelsLike = number(main["feels_like"])
		r.Humidity = number(main["humidity"])
	}
	return r
}

func number(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	}
	return nil
}

// Format renders the report as a single line, e.g.
// "Weather in Paris: clear sky. Temperature: 18°C (feels like 17°C). Humidity: 40%."
func (r Report) Format(units string) string {
	city := r.City
	if city == "" {
		city = "unknown location"
	}
	desc := r.Description
	if desc == "" {
		desc = "no description"
	}
	deg := degreeSymbol(units)

	var b strings.Builder
	fmt.Fprintf(&b, "Weather in %s: %s.", city, desc)
	fmt.Fprintf(&b, " Temperature: %s", formatValue(r.Temperature, deg))
	if r.FeelsLike != nil {
		fmt.Fprintf(&b, " (feels like %s)", formatValue(r.FeelsLike, deg))
	}
	b.WriteString(".")
	fmt.Fprintf(&b, " Humidity: %s.", formatValue(r.Humidity, "%"))
	return b.String()
}

// formatValue appends unit to v; a missing value is "n/a" without a unit.
func formatValue(v *float64, unit string) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + unit
}

func degreeSymbol(units string) string {
	switch units {
	case "imperial":
		return "°F"
	case "standard":
		return "K"
	default:
		return "°C"
	}
}
