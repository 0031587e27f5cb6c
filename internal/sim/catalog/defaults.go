package catalog

import (
	"fmt"

	"skyfleet.ai/internal/energy"
	"skyfleet.ai/internal/geo"
)

// Default returns the compiled-in catalog: the Delhi NCR demo world with
// three scenario presets, four kiosks, eight restaurants and a grid of
// customers spread across the service area.
func Default() *Catalog {
	return &Catalog{
		Scenarios: defaultScenarios(),
		Fleet:     defaultFleet(),
		Zones:     defaultZones(),
	}
}

func defaultScenarios() map[string]Scenario {
	list := []Scenario{
		{
			Name:            "NORMAL",
			Description:     "Steady weekday traffic in clear weather",
			OrderFrequency:  0.5,
			Weather:         energy.ConditionClear,
			SpeedMultiplier: 1.0,
			DrainMultiplier: 1.0,
			FailureRate:     0.05,
		},
		{
			Name:            "PEAK_HOUR",
			Description:     "Dinner rush, every pad and drone in play",
			OrderFrequency:  2.0,
			Weather:         energy.ConditionClear,
			SpeedMultiplier: 1.0,
			DrainMultiplier: 1.2,
			FailureRate:     0.15,
		},
		{
			Name:            "BAD_WEATHER",
			Description:     "Heavy rain, reduced speeds and doubled drain",
			OrderFrequency:  0.3,
			Weather:         energy.ConditionHeavyRain,
			SpeedMultiplier: 0.5,
			DrainMultiplier: 2.0,
			FailureRate:     0.30,
		},
	}
	m := make(map[string]Scenario, len(list))
	for _, s := range list {
		m[s.Name] = s
	}
	return m
}

func defaultFleet() Fleet {
	return Fleet{
		Drone: DroneSpec{
			MaxSpeedKmh:  60,
			MaxRangeKm:   15,
			MaxPayloadKg: 2.5,
		},
		Kiosks: []Kiosk{
			{ID: "kiosk-1", Name: "Connaught Place Hub", Position: geo.Position{Lat: 28.6139, Lng: 77.2090}, ChargingPads: 8, DroneCount: 4},
			{ID: "kiosk-2", Name: "Chandni Chowk Station", Position: geo.Position{Lat: 28.6506, Lng: 77.2303}, ChargingPads: 6, DroneCount: 3},
			{ID: "kiosk-3", Name: "Hauz Khas Hub", Position: geo.Position{Lat: 28.5494, Lng: 77.2001}, ChargingPads: 5, DroneCount: 3},
			{ID: "kiosk-4", Name: "Dwarka Hub", Position: geo.Position{Lat: 28.5921, Lng: 77.0460}, ChargingPads: 6, DroneCount: 2},
		},
		Restaurants: []Restaurant{
			{ID: "rest-1", Name: "Pizza Palace", Position: geo.Position{Lat: 28.6289, Lng: 77.2065}, Menu: defaultMenu("rest-1", "Margherita", "Pepperoni", "Garlic Bread")},
			{ID: "rest-2", Name: "Burger Barn", Position: geo.Position{Lat: 28.6519, Lng: 77.2315}, Menu: defaultMenu("rest-2", "Classic Burger", "Cheese Fries", "Milkshake")},
			{ID: "rest-3", Name: "Curry Corner", Position: geo.Position{Lat: 28.5965, Lng: 77.2270}, Menu: defaultMenu("rest-3", "Butter Chicken", "Dal Makhani", "Naan Basket")},
			{ID: "rest-4", Name: "Noodle House", Position: geo.Position{Lat: 28.6328, Lng: 77.2197}, Menu: defaultMenu("rest-4", "Hakka Noodles", "Dim Sum", "Spring Rolls")},
			{ID: "rest-5", Name: "Sushi Supreme", Position: geo.Position{Lat: 28.5605, Lng: 77.2291}, Menu: defaultMenu("rest-5", "Salmon Roll", "Tuna Nigiri", "Miso Soup")},
			{ID: "rest-6", Name: "Kebab Kingdom", Position: geo.Position{Lat: 28.5244, Lng: 77.1855}, Menu: defaultMenu("rest-6", "Seekh Kebab", "Shawarma", "Hummus Plate")},
			{ID: "rest-7", Name: "Tandoor Tales", Position: geo.Position{Lat: 28.6412, Lng: 77.1214}, Menu: defaultMenu("rest-7", "Tandoori Platter", "Paneer Tikka", "Lassi")},
			{ID: "rest-8", Name: "Sweet Treats", Position: geo.Position{Lat: 28.6129, Lng: 77.2295}, Menu: defaultMenu("rest-8", "Chocolate Cake", "Gulab Jamun", "Ice Cream Tub")},
		},
		Customers: defaultCustomers(),
	}
}

func defaultMenu(restID string, names ...string) []MenuItem {
	menu := make([]MenuItem, 0, len(names))
	for i, name := range names {
		menu = append(menu, MenuItem{
			ID:       fmt.Sprintf("%s-item-%d", restID, i+1),
			Name:     name,
			WeightKg: 0.5,
			Price:    10,
		})
	}
	return menu
}

// defaultCustomers lays a fixed 6x5 grid over the service area so repeated
// runs see identical delivery targets.
func defaultCustomers() []Customer {
	const (
		baseLat, spanLat = 28.50, 0.30
		baseLng, spanLng = 77.10, 0.40
		cols, rows       = 6, 5
	)
	customers := make([]Customer, 0, cols*rows)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			n := row*cols + col + 1
			customers = append(customers, Customer{
				ID:   fmt.Sprintf("customer-%d", n),
				Name: fmt.Sprintf("Customer %d", n),
				Position: geo.Position{
					Lat: baseLat + spanLat*(float64(row)+0.5)/rows,
					Lng: baseLng + spanLng*(float64(col)+0.5)/cols,
				},
			})
		}
	}
	return customers
}

func defaultZones() []geo.NoFlyZone {
	return []geo.NoFlyZone{
		{
			ID:   "nfz-1",
			Name: "Airport Zone",
			Polygon: []geo.Position{
				{Lat: 28.5562, Lng: 77.0999},
				{Lat: 28.5662, Lng: 77.0999},
				{Lat: 28.5662, Lng: 77.1199},
				{Lat: 28.5562, Lng: 77.1199},
			},
			Severity: "CRITICAL",
			Reason:   "Airport restricted airspace",
			Active:   true,
		},
		{
			ID:   "nfz-2",
			Name: "Government Building",
			Polygon: []geo.Position{
				{Lat: 28.6127, Lng: 77.2273},
				{Lat: 28.6147, Lng: 77.2273},
				{Lat: 28.6147, Lng: 77.2313},
				{Lat: 28.6127, Lng: 77.2313},
			},
			Severity: "CRITICAL",
			Reason:   "Restricted government area",
			Active:   true,
		},
	}
}
