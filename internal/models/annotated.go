package models

// PowerSource identifies which supply serves the household load.
type PowerSource string

const (
	SourceSolar        PowerSource = "Solar"
	SourceGrid         PowerSource = "Grid"
	SourceSolarGrid    PowerSource = "Solar+Grid"
	SourceSolarBattery PowerSource = "Solar+Battery"
	SourceBattery      PowerSource = "Battery"
)

// DrawsOnBattery reports whether the battery is part of the supply.
func (p PowerSource) DrawsOnBattery() bool {
	return p == SourceBattery || p == SourceSolarBattery
}

// BatteryAction is the battery operating mode for one row.
// Keep these values stable; they are written into exported spreadsheets.
type BatteryAction string

const (
	ActionNone        BatteryAction = ""
	ActionCharging    BatteryAction = "Charging"
	ActionDischarging BatteryAction = "Discharging"
	ActionIdle        BatteryAction = "Idle"
)

// Alert codes.
const (
	AlertGridDownSolarOnly      = "GRID_DOWN_SOLAR_ONLY"
	AlertGridDownBattery        = "GRID_DOWN_BATTERY"
	AlertHeavyApplianceGridDown = "HEAVY_APPLIANCE_GRID_DOWN"
	AlertNightBatterySwitch     = "NIGHT_BATTERY_SWITCH"
	AlertHeavyApplianceNight    = "HEAVY_APPLIANCE_NIGHT"
	AlertLowBattery             = "LOW_BATTERY"
)

// Alert is one operational warning raised for a row.
type Alert struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Derived column names, used for skipped_fields and export headers.
const (
	FieldPowerSource         = "power_source"
	FieldBatteryAction       = "battery_action"
	FieldBatteryEfficiency   = "battery_efficiency"
	FieldSolarContribution   = "solar_contribution"
	FieldGridContribution    = "grid_contribution"
	FieldBatteryContribution = "battery_contribution"
	FieldTotalConsumption    = "total_consumption_kwh"
	FieldBackupTime          = "estimated_battery_backup_time"
	FieldAlerts              = "alerts"
	FieldDischargeCycles     = "discharge_cycles"
)

// AnnotatedRow is a RawRow plus the energy-management decision derived for it.
// BatteryPercent carries the normalized percentage.
type AnnotatedRow struct {
	RawRow

	PowerSource          PowerSource   `json:"power_source"`
	BatteryAction        BatteryAction `json:"battery_action"`
	BatteryEfficiency    float64       `json:"battery_efficiency"`
	SolarContribution    float64       `json:"solar_contribution"`
	GridContribution     float64       `json:"grid_contribution"`
	BatteryContribution  float64       `json:"battery_contribution"`
	TotalConsumptionKWh  float64       `json:"total_consumption_kwh"`
	EstimatedBackupHours float64       `json:"estimated_battery_backup_time"`
	Alerts               []Alert       `json:"alerts"`
	DischargeCycles      int           `json:"discharge_cycles"`

	// Skipped lists derived fields left unset because an input was malformed.
	Skipped []string `json:"skipped_fields,omitempty"`
	// Issues holds the row-level error messages reported during classification.
	Issues []string `json:"issues,omitempty"`
}

// IsSkipped reports whether the named derived field was not computed.
func (a AnnotatedRow) IsSkipped(field string) bool {
	for _, f := range a.Skipped {
		if f == field {
			return true
		}
	}
	return false
}

// ExportRow pairs an input row with its annotation, if it was advanced over.
type ExportRow struct {
	Raw       RawRow
	Annotated *AnnotatedRow
}
