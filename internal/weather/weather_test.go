package weather

import (
	"testing"
	"time"

	"skyfleet.ai/internal/energy"
)

var at = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestFromConditionBands(t *testing.T) {
	clear := FromCondition(energy.ConditionClear, 0, 28.61, 77.21, at)
	if clear.Condition != "clear" || clear.WindSpeed != 3 || clear.Precipitation != 0 {
		t.Fatalf("clear at impact 0: %+v", clear)
	}
	if clear.City != "Delhi NCR" {
		t.Fatalf("city = %q", clear.City)
	}

	// Impact pushes wind and rain toward the top of the band.
	storm0 := FromCondition(energy.ConditionStorm, 0, 28.61, 77.21, at)
	storm100 := FromCondition(energy.ConditionStorm, 100, 28.61, 77.21, at)
	if storm0.WindSpeed != 15 || storm100.WindSpeed != 25 {
		t.Fatalf("storm wind band: %v .. %v", storm0.WindSpeed, storm100.WindSpeed)
	}
	if storm0.Precipitation != 15 || storm100.Precipitation != 35 {
		t.Fatalf("storm precip band: %v .. %v", storm0.Precipitation, storm100.Precipitation)
	}
	if storm0.Condition != "thunderstorm" {
		t.Fatalf("storm condition = %q", storm0.Condition)
	}

	unknown := FromCondition(energy.Condition("DRIZZLE"), 50, 28.61, 77.21, at)
	if unknown.Condition != "clear" {
		t.Fatalf("unknown condition should fall back to clear, got %q", unknown.Condition)
	}
}

func TestRestrictionsGroundingRules(t *testing.T) {
	// Storm is always grounded, by thunderstorm if not already by wind.
	storm := FromCondition(energy.ConditionStorm, 0, 28.61, 77.21, at)
	r := ForRestrictions(storm, 0)
	if r.CanFly {
		t.Fatal("storm should ground the fleet")
	}

	wind := Data{WindSpeed: 16, Visibility: 10000, Temperature: 25}
	if r := ForRestrictions(wind, 0); r.CanFly {
		t.Fatal("wind >15 m/s should ground the fleet")
	}
	fog := Data{WindSpeed: 2, Visibility: 500, Temperature: 25}
	if r := ForRestrictions(fog, 0); r.CanFly {
		t.Fatal("visibility <1km should ground the fleet")
	}
	cold := Data{WindSpeed: 2, Visibility: 10000, Temperature: -15}
	if r := ForRestrictions(cold, 0); r.CanFly {
		t.Fatal("extreme cold should ground the fleet")
	}
	rain := Data{WindSpeed: 2, Visibility: 10000, Temperature: 20, Precipitation: 16}
	if r := ForRestrictions(rain, 0); r.CanFly {
		t.Fatal("precipitation >15mm should ground the fleet")
	}
}

func TestRestrictionsMultiplierTiers(t *testing.T) {
	clear := FromCondition(energy.ConditionClear, 0, 28.61, 77.21, at)
	r := ForRestrictions(clear, 0)
	if !r.CanFly || r.SpeedMultiplier != 1.0 || r.BatteryMultiplier != 1.0 {
		t.Fatalf("clear should be unrestricted: %+v", r)
	}
	if len(r.Warnings) != 0 {
		t.Fatalf("clear should carry no warnings: %v", r.Warnings)
	}

	// Moderate wind tier at zero impact.
	moderate := Data{WindSpeed: 8, Visibility: 10000, Temperature: 25}
	r = ForRestrictions(moderate, 0)
	if r.SpeedMultiplier != 0.85 || r.BatteryMultiplier != 1.2 {
		t.Fatalf("moderate wind tier: %+v", r)
	}

	// High wind tier widens with impact.
	high := Data{WindSpeed: 12, Visibility: 10000, Temperature: 25}
	r0 := ForRestrictions(high, 0)
	r100 := ForRestrictions(high, 100)
	if r0.SpeedMultiplier != 0.7 || r100.SpeedMultiplier < 0.499 || r100.SpeedMultiplier > 0.501 {
		t.Fatalf("high wind speed band: %v .. %v", r0.SpeedMultiplier, r100.SpeedMultiplier)
	}
	if r0.BatteryMultiplier != 1.5 || r100.BatteryMultiplier != 2.0 {
		t.Fatalf("high wind battery band: %v .. %v", r0.BatteryMultiplier, r100.BatteryMultiplier)
	}

	// Tiers compound multiplicatively.
	wet := Data{WindSpeed: 8, Visibility: 2500, Temperature: 25, Precipitation: 3}
	r = ForRestrictions(wet, 0)
	want := 0.85 * 0.85 * 0.9
	if diff := r.SpeedMultiplier - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("compound speed multiplier = %v, want %v", r.SpeedMultiplier, want)
	}
}

func TestRestrictionsImpactWarnings(t *testing.T) {
	clear := FromCondition(energy.ConditionClear, 80, 28.61, 77.21, at)
	r := ForRestrictions(clear, 80)
	found := false
	for _, w := range r.Warnings {
		if w == "Severe weather conditions (80% impact)" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected severe impact warning, got %v", r.Warnings)
	}
}

func TestAnalyze(t *testing.T) {
	storm := FromCondition(energy.ConditionStorm, 100, 28.61, 77.21, at)
	rep := Analyze(storm, 100)
	if rep.Wind.Severity != "extreme" {
		t.Fatalf("wind severity = %q", rep.Wind.Severity)
	}
	if rep.Wind.SpeedReduction != 70 || rep.Wind.BatteryIncrease != 150 {
		t.Fatalf("wind caps not applied: %+v", rep.Wind)
	}
	if rep.Precipitation.Severity != "heavy" || rep.Precipitation.SafeToFly {
		t.Fatalf("precip report: %+v", rep.Precipitation)
	}

	cold := Data{Temperature: -5}
	if eff := Analyze(cold, 0).Temperature.BatteryEfficiency; eff != 0.7 {
		t.Fatalf("cold battery efficiency = %v", eff)
	}
}
