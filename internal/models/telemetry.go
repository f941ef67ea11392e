package models

import "strings"

// Column names of the telemetry spreadsheet, lower-cased.
const (
	FieldTimestamp            = "timestamp"
	FieldIsDaytime            = "is_daytime"
	FieldSolarInputWatts      = "solar_input_watts"
	FieldGridStatus           = "grid_status"
	FieldDemandWatts          = "household_power_demand_watts"
	FieldHeavyApplianceActive = "heavy_appliance_active"
	FieldAmbientTempC         = "ambient_temperature_celsius"
	FieldWeatherCondition     = "weather_condition"
	FieldBatteryPercent       = "battery_percent"
)

// RawFields lists the input columns in spreadsheet order.
var RawFields = []string{
	FieldTimestamp,
	FieldIsDaytime,
	FieldSolarInputWatts,
	FieldGridStatus,
	FieldDemandWatts,
	FieldHeavyApplianceActive,
	FieldAmbientTempC,
	FieldWeatherCondition,
	FieldBatteryPercent,
}

// GridStatus as reported by the telemetry feed.
type GridStatus string

const (
	GridNormal             GridStatus = "normal"
	GridPowerOff           GridStatus = "power_off"
	GridVoltageFluctuation GridStatus = "voltage_fluctuation"
)

// NormalizeGridStatus maps spellings like "Power Off" or "voltage-fluctuation"
// onto the canonical lower snake case value. Unknown values are returned
// normalized but otherwise untouched.
func NormalizeGridStatus(s string) GridStatus {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return GridStatus(s)
}

// Degraded reports whether the grid cannot be relied on.
func (g GridStatus) Degraded() bool {
	return g == GridPowerOff || g == GridVoltageFluctuation
}

// RawRow is one telemetry record as read from the uploaded dataset.
// It is never modified after decoding.
type RawRow struct {
	Index                int        `json:"index"`
	Timestamp            string     `json:"timestamp"`
	IsDaytime            bool       `json:"is_daytime"`
	SolarInputWatts      float64    `json:"solar_input_watts"`
	GridStatus           GridStatus `json:"grid_status"`
	DemandWatts          float64    `json:"household_power_demand_watts"`
	HeavyApplianceActive bool       `json:"heavy_appliance_active"`
	AmbientTempC         float64    `json:"ambient_temperature_celsius"`
	WeatherCondition     string     `json:"weather_condition"`
	BatteryPercent       float64    `json:"battery_percent"` // 0..1 fraction or 0..100 percentage

	// Malformed holds the original cell text of every column that failed to parse.
	Malformed map[string]string `json:"malformed,omitempty"`
}

// IsMalformed reports whether the named column failed to parse.
func (r RawRow) IsMalformed(field string) bool {
	_, ok := r.Malformed[field]
	return ok
}
