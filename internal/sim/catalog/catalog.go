// Package catalog loads the static world data the simulation runs on:
// scenario presets, the drone fleet template, the kiosk/restaurant/customer
// seed set and the no-fly zone map. Everything is YAML on disk with compiled-in
// defaults so a server starts with no config directory at all.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"skyfleet.ai/internal/energy"
	"skyfleet.ai/internal/geo"
)

// Scenario is one named load profile for the simulation.
type Scenario struct {
	Name            string           `yaml:"name" json:"name"`
	Description     string           `yaml:"description" json:"description"`
	OrderFrequency  float64          `yaml:"order_frequency" json:"orderFrequency"` // orders per minute
	Weather         energy.Condition `yaml:"weather" json:"weather"`
	SpeedMultiplier float64          `yaml:"speed_multiplier" json:"speedMultiplier"`
	DrainMultiplier float64          `yaml:"drain_multiplier" json:"drainMultiplier"`
	FailureRate     float64          `yaml:"failure_rate" json:"failureRate"` // expected failures per drone-hour
}

// DroneSpec is the airframe template every fleet drone is stamped from.
type DroneSpec struct {
	MaxSpeedKmh  float64 `yaml:"max_speed_kmh" json:"maxSpeedKmh"`
	MaxRangeKm   float64 `yaml:"max_range_km" json:"maxRangeKm"`
	MaxPayloadKg float64 `yaml:"max_payload_kg" json:"maxPayloadKg"`
}

// Kiosk is a home base with charging pads.
type Kiosk struct {
	ID           string       `yaml:"id" json:"id"`
	Name         string       `yaml:"name" json:"name"`
	Position     geo.Position `yaml:"position" json:"position"`
	ChargingPads int          `yaml:"charging_pads" json:"chargingPads"`
	DroneCount   int          `yaml:"drone_count" json:"droneCount"`
}

// MenuItem is one orderable dish at a restaurant.
type MenuItem struct {
	ID       string  `yaml:"id" json:"id"`
	Name     string  `yaml:"name" json:"name"`
	WeightKg float64 `yaml:"weight_kg" json:"weightKg"`
	Price    float64 `yaml:"price" json:"price"`
}

type Restaurant struct {
	ID       string       `yaml:"id" json:"id"`
	Name     string       `yaml:"name" json:"name"`
	Position geo.Position `yaml:"position" json:"position"`
	Menu     []MenuItem   `yaml:"menu" json:"menu"`
}

type Customer struct {
	ID       string       `yaml:"id" json:"id"`
	Name     string       `yaml:"name" json:"name"`
	Position geo.Position `yaml:"position" json:"position"`
}

// Fleet bundles the airframe template with the seeded world entities.
type Fleet struct {
	Drone       DroneSpec    `yaml:"drone" json:"drone"`
	Kiosks      []Kiosk      `yaml:"kiosks" json:"kiosks"`
	Restaurants []Restaurant `yaml:"restaurants" json:"restaurants"`
	Customers   []Customer   `yaml:"customers" json:"customers"`
}

// Catalog is the full static data set for one world.
type Catalog struct {
	Scenarios map[string]Scenario
	Fleet     Fleet
	Zones     []geo.NoFlyZone
}

// ScenarioNames returns the scenario keys in sorted order.
func (c *Catalog) ScenarioNames() []string {
	names := make([]string, 0, len(c.Scenarios))
	for name := range c.Scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Scenario looks up a preset by name.
func (c *Catalog) Scenario(name string) (Scenario, bool) {
	s, ok := c.Scenarios[name]
	return s, ok
}

type scenariosFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

type zonesFile struct {
	Zones []geo.NoFlyZone `yaml:"zones"`
}

// Load reads scenarios.yaml, fleet.yaml and zones.yaml from dir. Missing
// files fall back to the compiled-in defaults; a malformed file is an error.
func Load(dir string) (*Catalog, error) {
	c := Default()

	if raw, err := readOptional(filepath.Join(dir, "scenarios.yaml")); err != nil {
		return nil, err
	} else if raw != nil {
		var f scenariosFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("scenarios.yaml: %w", err)
		}
		c.Scenarios = make(map[string]Scenario, len(f.Scenarios))
		for _, s := range f.Scenarios {
			if err := validateScenario(s); err != nil {
				return nil, fmt.Errorf("scenarios.yaml: %w", err)
			}
			c.Scenarios[s.Name] = s
		}
	}

	if raw, err := readOptional(filepath.Join(dir, "fleet.yaml")); err != nil {
		return nil, err
	} else if raw != nil {
		var f Fleet
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("fleet.yaml: %w", err)
		}
		if err := validateFleet(f); err != nil {
			return nil, fmt.Errorf("fleet.yaml: %w", err)
		}
		c.Fleet = f
	}

	if raw, err := readOptional(filepath.Join(dir, "zones.yaml")); err != nil {
		return nil, err
	} else if raw != nil {
		var f zonesFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("zones.yaml: %w", err)
		}
		for _, z := range f.Zones {
			if len(z.Polygon) < 3 {
				return nil, fmt.Errorf("zones.yaml: zone %s has %d vertices, need at least 3", z.ID, len(z.Polygon))
			}
		}
		c.Zones = f.Zones
	}

	return c, nil
}

func readOptional(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func validateScenario(s Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("scenario with empty name")
	}
	if s.OrderFrequency < 0 {
		return fmt.Errorf("scenario %s: negative order frequency", s.Name)
	}
	if !s.Weather.Valid() {
		return fmt.Errorf("scenario %s: unknown weather %q", s.Name, s.Weather)
	}
	if s.SpeedMultiplier <= 0 || s.DrainMultiplier <= 0 {
		return fmt.Errorf("scenario %s: multipliers must be positive", s.Name)
	}
	if s.FailureRate < 0 || s.FailureRate > 1 {
		return fmt.Errorf("scenario %s: failure rate %v outside [0,1]", s.Name, s.FailureRate)
	}
	return nil
}

func validateFleet(f Fleet) error {
	if f.Drone.MaxSpeedKmh <= 0 || f.Drone.MaxRangeKm <= 0 || f.Drone.MaxPayloadKg <= 0 {
		return fmt.Errorf("drone spec values must be positive")
	}
	if len(f.Kiosks) == 0 {
		return fmt.Errorf("no kiosks defined")
	}
	if len(f.Restaurants) == 0 {
		return fmt.Errorf("no restaurants defined")
	}
	if len(f.Customers) == 0 {
		return fmt.Errorf("no customers defined")
	}
	seen := map[string]bool{}
	for _, k := range f.Kiosks {
		if seen[k.ID] {
			return fmt.Errorf("duplicate kiosk id %s", k.ID)
		}
		seen[k.ID] = true
	}
	for _, r := range f.Restaurants {
		if seen[r.ID] {
			return fmt.Errorf("duplicate restaurant id %s", r.ID)
		}
		seen[r.ID] = true
		for _, m := range r.Menu {
			if m.WeightKg < 0 || m.Price < 0 {
				return fmt.Errorf("restaurant %s: item %s has negative weight or price", r.ID, m.ID)
			}
		}
	}
	for _, cu := range f.Customers {
		if seen[cu.ID] {
			return fmt.Errorf("duplicate customer id %s", cu.ID)
		}
		seen[cu.ID] = true
	}
	return nil
}
