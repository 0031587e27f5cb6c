// Package energy models battery drain, charging and range estimation for
// delivery drones. All drain figures are percent of battery capacity.
package energy

// Condition is the coarse weather bucket the simulation runs under. It feeds
// the drain multiplier and can ground the fleet entirely in the worst cases.
type Condition string

const (
	ConditionClear      Condition = "CLEAR"
	ConditionLightRain  Condition = "LIGHT_RAIN"
	ConditionHeavyRain  Condition = "HEAVY_RAIN"
	ConditionStrongWind Condition = "STRONG_WIND"
	ConditionStorm      Condition = "STORM"
)

// Valid reports whether c is one of the known conditions.
func (c Condition) Valid() bool {
	switch c {
	case ConditionClear, ConditionLightRain, ConditionHeavyRain, ConditionStrongWind, ConditionStorm:
		return true
	}
	return false
}

// Base drain factors per kilometre flown.
const (
	drainPerKm          = 1.0   // percent per km, empty airframe
	drainPerKgKm        = 0.3   // extra percent per km per kg of payload
	drainPer100mAltKm   = 0.2   // extra percent per km per 100m of altitude
	highSpeedThreshold  = 0.7   // fraction of max speed above which drag penalty kicks in
	idleDrainPerSecond  = 0.000139 // hover/avionics drain while on the ground
	chargeRatePerSecond = 0.01389  // pad charge rate, 50% per hour
	usableRangeFactor   = 0.8      // safety haircut applied to theoretical range
	returnMarginFactor  = 1.2      // distance margin demanded before committing to a leg
	lowBatteryFloor     = 15.0     // percent below which a drone always heads home
)

// WeatherMultiplier returns the raw drain multiplier for a condition at full
// impact. Unknown conditions are treated as clear.
func WeatherMultiplier(c Condition) float64 {
	switch c {
	case ConditionLightRain:
		return 1.2
	case ConditionHeavyRain:
		return 1.5
	case ConditionStrongWind:
		return 1.4
	case ConditionStorm:
		return 2.0
	default:
		return 1.0
	}
}

// DrainParams describes one flown leg for drain accounting.
type DrainParams struct {
	DistanceKm  float64
	PayloadKg   float64
	AltitudeM   float64
	SpeedKmh    float64
	MaxSpeedKmh float64
	Condition   Condition
	Impact      float64 // weather impact 0..100, scales the condition multiplier
	Multiplier  float64 // extra scenario drain multiplier, 0 means 1
}

// Drain returns the battery percentage consumed flying the described leg.
func Drain(p DrainParams) float64 {
	perKm := drainPerKm + p.PayloadKg*drainPerKgKm + p.AltitudeM/100*drainPer100mAltKm

	raw := WeatherMultiplier(p.Condition)
	weather := 1 + (raw-1)*p.Impact/100

	speed := 1.0
	if p.MaxSpeedKmh > 0 && p.SpeedKmh > highSpeedThreshold*p.MaxSpeedKmh {
		cruise := highSpeedThreshold * p.MaxSpeedKmh
		speed = 1 + (p.SpeedKmh-cruise)/cruise
	}

	scenario := p.Multiplier
	if scenario <= 0 {
		scenario = 1
	}

	return p.DistanceKm * perKm * weather * speed * scenario
}

// IdleDrain returns the percentage lost by a parked drone over the given
// number of simulated seconds.
func IdleDrain(seconds float64) float64 {
	return idleDrainPerSecond * seconds
}

// ChargeAmount returns the percentage gained on a charging pad over the given
// number of simulated seconds. Callers clamp the result at 100.
func ChargeAmount(seconds float64) float64 {
	return chargeRatePerSecond * seconds
}

// RemainingRangeKm estimates how far the drone can still fly on the given
// battery level carrying the given payload under the given weather. The
// estimate is derated by the usable range factor.
func RemainingRangeKm(battery, payloadKg float64, c Condition, impact float64) float64 {
	if battery <= 0 {
		return 0
	}
	perKm := Drain(DrainParams{
		DistanceKm: 1,
		PayloadKg:  payloadKg,
		Condition:  c,
		Impact:     impact,
	})
	if perKm <= 0 {
		return 0
	}
	return battery / perKm * usableRangeFactor
}

// ShouldReturn reports whether a drone with the given battery must abandon its
// task and head back: either the remaining range cannot cover the distance
// home with margin, or the battery has fallen below the hard floor.
func ShouldReturn(battery, distanceHomeKm, payloadKg float64, c Condition, impact float64) bool {
	if battery < lowBatteryFloor {
		return true
	}
	return RemainingRangeKm(battery, payloadKg, c, impact) < distanceHomeKm*returnMarginFactor
}
