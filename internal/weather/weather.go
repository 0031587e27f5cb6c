// Package weather synthesizes atmospheric readings from the simulation's
// weather condition and impact slider, and derives the flight restrictions
// the fleet operates under. Everything here is pure computation; the tick
// loop consumes only the impact number.
package weather

import (
	"fmt"
	"time"

	"skyfleet.ai/internal/energy"
)

// Data is a point-in-time weather report for a location.
type Data struct {
	Temperature   float64   `json:"temperature_c"`
	FeelsLike     float64   `json:"feels_like_c"`
	Humidity      float64   `json:"humidity_pct"`
	Pressure      float64   `json:"pressure_hpa"`
	WindSpeed     float64   `json:"wind_speed_ms"`
	WindDirection float64   `json:"wind_direction_deg"`
	WindGust      float64   `json:"wind_gust_ms"`
	Visibility    float64   `json:"visibility_m"`
	CloudCoverage float64   `json:"cloud_coverage_pct"`
	Precipitation float64   `json:"precipitation_mm"`
	Condition     string    `json:"condition"`
	Description   string    `json:"description"`
	Icon          string    `json:"icon"`
	Timestamp     time.Time `json:"timestamp"`
	Lat           float64   `json:"lat"`
	Lng           float64   `json:"lng"`
	City          string    `json:"city"`
}

// Restrictions describes what the current weather permits.
type Restrictions struct {
	CanFly            bool     `json:"can_fly"`
	Reason            string   `json:"reason,omitempty"`
	SpeedMultiplier   float64  `json:"speed_multiplier"`
	BatteryMultiplier float64  `json:"battery_multiplier"`
	Warnings          []string `json:"warnings"`
}

// FromCondition maps a simulation condition plus impact (0..100) to a
// synthetic weather report. Higher impact pushes wind and precipitation
// toward the top of each condition's band.
func FromCondition(c energy.Condition, impact float64, lat, lng float64, at time.Time) Data {
	frac := impact / 100
	d := Data{
		Timestamp: at,
		Lat:       lat,
		Lng:       lng,
		City:      "Delhi NCR",
	}
	switch c {
	case energy.ConditionLightRain:
		d.Temperature = 20
		d.FeelsLike = 18
		d.Humidity = 75
		d.Pressure = 1010
		d.WindSpeed = 5 + frac*3
		d.WindDirection = 220
		d.WindGust = 8 + frac*4
		d.Visibility = 8000
		d.CloudCoverage = 70
		d.Precipitation = 2 + frac*3
		d.Condition = "rain"
		d.Description = "light rain"
		d.Icon = "10d"
	case energy.ConditionHeavyRain:
		d.Temperature = 18
		d.FeelsLike = 16
		d.Humidity = 85
		d.Pressure = 1005
		d.WindSpeed = 8 + frac*4
		d.WindDirection = 240
		d.WindGust = 12 + frac*6
		d.Visibility = 5000
		d.CloudCoverage = 95
		d.Precipitation = 8 + frac*7
		d.Condition = "rain"
		d.Description = "heavy rain"
		d.Icon = "10d"
	case energy.ConditionStrongWind:
		d.Temperature = 22
		d.FeelsLike = 19
		d.Humidity = 55
		d.Pressure = 1008
		d.WindSpeed = 12 + frac*6
		d.WindDirection = 270
		d.WindGust = 18 + frac*10
		d.Visibility = 9000
		d.CloudCoverage = 40
		d.Condition = "clouds"
		d.Description = "strong wind"
		d.Icon = "03d"
	case energy.ConditionStorm:
		d.Temperature = 16
		d.FeelsLike = 13
		d.Humidity = 90
		d.Pressure = 998
		d.WindSpeed = 15 + frac*10
		d.WindDirection = 260
		d.WindGust = 25 + frac*15
		d.Visibility = 3000
		d.CloudCoverage = 100
		d.Precipitation = 15 + frac*20
		d.Condition = "thunderstorm"
		d.Description = "thunderstorm"
		d.Icon = "11d"
	default: // CLEAR
		d.Temperature = 25
		d.FeelsLike = 24
		d.Humidity = 45
		d.Pressure = 1013
		d.WindSpeed = 3 + frac*2
		d.WindDirection = 180
		d.WindGust = 5 + frac*3
		d.Visibility = 10000
		d.CloudCoverage = 10
		d.Condition = "clear"
		d.Description = "clear sky"
		d.Icon = "01d"
	}
	return d
}

// ForRestrictions derives flight limits from a report. impact is the same
// 0..100 slider that produced the report; it widens the multiplier bands.
func ForRestrictions(d Data, impact float64) Restrictions {
	r := Restrictions{
		CanFly:            true,
		SpeedMultiplier:   1.0,
		BatteryMultiplier: 1.0,
		Warnings:          []string{},
	}
	frac := impact / 100

	switch {
	case d.WindSpeed > 15:
		r.CanFly = false
		r.Reason = "Wind speed too high (>15 m/s)"
	case d.WindSpeed > 10:
		r.SpeedMultiplier = 0.7 - frac*0.2
		r.BatteryMultiplier = 1.5 + frac*0.5
		r.Warnings = append(r.Warnings, "High wind - reduced speed")
	case d.WindSpeed > 7:
		r.SpeedMultiplier = 0.85 - frac*0.15
		r.BatteryMultiplier = 1.2 + frac*0.3
		r.Warnings = append(r.Warnings, "Moderate wind")
	}

	switch {
	case d.Precipitation > 15:
		r.CanFly = false
		r.Reason = "Heavy precipitation - unsafe to fly"
	case d.Precipitation > 8:
		r.SpeedMultiplier *= 0.7
		r.BatteryMultiplier *= 1.4
		r.Warnings = append(r.Warnings, "Heavy rain - significantly reduced performance")
	case d.Precipitation > 2:
		r.SpeedMultiplier *= 0.85
		r.BatteryMultiplier *= 1.2
		r.Warnings = append(r.Warnings, "Light rain - reduced performance")
	}

	switch {
	case d.Visibility < 1000:
		r.CanFly = false
		r.Reason = "Low visibility (<1km)"
	case d.Visibility < 3000:
		r.SpeedMultiplier *= 0.9
		r.Warnings = append(r.Warnings, "Reduced visibility")
	}

	switch {
	case d.Temperature < -10 || d.Temperature > 45:
		r.CanFly = false
		r.Reason = "Extreme temperature"
	case d.Temperature < 0:
		r.BatteryMultiplier *= 1.3
		r.Warnings = append(r.Warnings, "Cold weather - increased battery drain")
	}

	if d.Condition == "thunderstorm" {
		r.CanFly = false
		r.Reason = "Thunderstorm - all flights grounded"
	}

	switch {
	case impact > 70:
		r.Warnings = append(r.Warnings, fmt.Sprintf("Severe weather conditions (%.0f%% impact)", impact))
	case impact > 40:
		r.Warnings = append(r.Warnings, fmt.Sprintf("Moderate weather impact (%.0f%%)", impact))
	}

	return r
}

// WindReport grades wind effect on the fleet.
type WindReport struct {
	Severity        string  `json:"severity"`
	SpeedReduction  float64 `json:"speed_reduction_pct"`
	BatteryIncrease float64 `json:"battery_increase_pct"`
}

// PrecipReport grades precipitation effect.
type PrecipReport struct {
	Severity            string  `json:"severity"`
	VisibilityReduction float64 `json:"visibility_reduction_m"`
	SafeToFly           bool    `json:"safe_to_fly"`
}

// TempReport grades temperature effect on batteries.
type TempReport struct {
	BatteryEfficiency float64  `json:"battery_efficiency"`
	Warnings          []string `json:"warnings"`
}

// ImpactReport is the detailed per-factor analysis served alongside the
// raw restrictions.
type ImpactReport struct {
	Wind          WindReport   `json:"wind"`
	Precipitation PrecipReport `json:"precipitation"`
	Temperature   TempReport   `json:"temperature"`
}

// Analyze breaks the report down per weather factor.
func Analyze(d Data, impact float64) ImpactReport {
	rep := ImpactReport{
		Wind: WindReport{
			Severity:        windSeverity(d.WindSpeed),
			SpeedReduction:  min(d.WindSpeed*2+impact*0.5, 70),
			BatteryIncrease: min(d.WindSpeed*3+impact, 150),
		},
		Precipitation: PrecipReport{
			Severity:            precipSeverity(d.Precipitation),
			VisibilityReduction: d.Precipitation * 10,
			SafeToFly:           d.Precipitation < 15,
		},
		Temperature: TempReport{
			BatteryEfficiency: 1.0,
			Warnings:          []string{},
		},
	}
	switch {
	case d.Temperature < 0:
		rep.Temperature.BatteryEfficiency = 0.7
		rep.Temperature.Warnings = append(rep.Temperature.Warnings, "Cold reduces battery efficiency")
	case d.Temperature > 35:
		rep.Temperature.BatteryEfficiency = 0.85
		rep.Temperature.Warnings = append(rep.Temperature.Warnings, "Heat may affect battery")
	}
	return rep
}

func windSeverity(ms float64) string {
	switch {
	case ms > 15:
		return "extreme"
	case ms > 10:
		return "high"
	case ms > 7:
		return "medium"
	default:
		return "low"
	}
}

func precipSeverity(mm float64) string {
	switch {
	case mm > 15:
		return "heavy"
	case mm > 8:
		return "moderate"
	case mm > 2:
		return "light"
	default:
		return "none"
	}
}
