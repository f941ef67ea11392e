// Package engine derives the per-row energy-management decision: power
// source, battery action, energy split, battery health and alerts.
//
// The classifier is pure. Everything a row's decision depends on from
// earlier rows travels in State, which the caller threads from one call to
// the next.
package engine

import (
	"errors"
	"fmt"
	"strconv"

	"gridreplay/internal/models"
)

// State is carried from one row to the next within a replay session.
type State struct {
	DischargeCycles int
	LastAction      models.BatteryAction // ActionNone before the first row
}

// Classifier applies the decision rules with a fixed Config.
type Classifier struct {
	cfg Config
}

func New(cfg Config) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config invalid: %w", err)
	}
	return &Classifier{cfg: cfg}, nil
}

func (c *Classifier) Config() Config { return c.cfg }

type sourceOutcome int

const (
	sourceKnown        sourceOutcome = iota
	sourceUnclassified               // no rule matched the combination
	sourceUnknown                    // an input needed by the rules was malformed
)

// inputs is the parsed view of a RawRow with per-column validity.
type inputs struct {
	index     int
	daytime   bool
	daytimeOK bool
	solar     float64
	solarOK   bool
	demand    float64
	demandOK  bool
	heavy     bool
	heavyOK   bool
	battery   float64
	batteryOK bool
	grid      models.GridStatus
}

// ruleFields are the input columns the classification rules read. A
// malformed cell in any other column is not a row error.
var ruleFields = []string{
	models.FieldIsDaytime,
	models.FieldSolarInputWatts,
	models.FieldDemandWatts,
	models.FieldHeavyApplianceActive,
	models.FieldBatteryPercent,
}

// parseInputs also returns the row errors for the inputs it rejected.
// Solar and demand readings must not be negative.
func parseInputs(raw models.RawRow) (inputs, []error) {
	in := inputs{
		index:     raw.Index,
		daytime:   raw.IsDaytime,
		daytimeOK: !raw.IsMalformed(models.FieldIsDaytime),
		solar:     raw.SolarInputWatts,
		solarOK:   !raw.IsMalformed(models.FieldSolarInputWatts),
		demand:    raw.DemandWatts,
		demandOK:  !raw.IsMalformed(models.FieldDemandWatts),
		heavy:     raw.HeavyApplianceActive,
		heavyOK:   !raw.IsMalformed(models.FieldHeavyApplianceActive),
		battery:   NormalizeBatteryPercent(raw.BatteryPercent),
		batteryOK: !raw.IsMalformed(models.FieldBatteryPercent),
		grid:      models.NormalizeGridStatus(string(raw.GridStatus)),
	}

	var issues []error
	for _, f := range ruleFields {
		if text, bad := raw.Malformed[f]; bad {
			issues = append(issues, &DataValidationError{Row: raw.Index, Field: f, Value: text})
		}
	}
	if in.solarOK && in.solar < 0 {
		in.solarOK = false
		issues = append(issues, negativeReading(raw.Index, models.FieldSolarInputWatts, in.solar))
	}
	if in.demandOK && in.demand < 0 {
		in.demandOK = false
		issues = append(issues, negativeReading(raw.Index, models.FieldDemandWatts, in.demand))
	}
	return in, issues
}

func negativeReading(row int, field string, v float64) *DataValidationError {
	return &DataValidationError{
		Row:    row,
		Field:  field,
		Value:  strconv.FormatFloat(v, 'f', -1, 64),
		Reason: "must not be negative",
	}
}

// NormalizeBatteryPercent turns a 0..1 fraction into a percentage.
// Values of 1 and above are taken to be percentages already.
func NormalizeBatteryPercent(v float64) float64 {
	if v < 1 {
		return v * 100
	}
	return v
}

// Classify annotates one row. The returned error, when non-nil, joins the
// row-level DataValidationError and UnclassifiedStateError values; the
// annotated row is still usable and lists the outputs it could not compute
// in Skipped.
func (c *Classifier) Classify(raw models.RawRow, st State) (models.AnnotatedRow, State, error) {
	in, issues := parseInputs(raw)
	out := models.AnnotatedRow{RawRow: raw, Alerts: []models.Alert{}}
	out.GridStatus = in.grid
	if in.batteryOK {
		out.BatteryPercent = in.battery
	}

	src, outcome := c.powerSource(in, &out)
	switch outcome {
	case sourceKnown:
		out.PowerSource = src
	case sourceUnclassified:
		issues = append(issues, &UnclassifiedStateError{Row: in.index, IsDaytime: in.daytime, GridStatus: string(in.grid)})
	case sourceUnknown:
		out.Skipped = append(out.Skipped, models.FieldPowerSource)
	}

	if in.batteryOK && in.battery < c.cfg.LowBatteryPercent {
		out.Alerts = append(out.Alerts, models.Alert{
			Code:    models.AlertLowBattery,
			Message: fmt.Sprintf("Battery low at %.1f%%", in.battery),
		})
	}

	next := st
	action, ok := c.batteryAction(in, src, outcome)
	if ok {
		if action == models.ActionDischarging && st.LastAction != models.ActionDischarging {
			next.DischargeCycles++
		}
		next.LastAction = action
		out.BatteryAction = action
	} else {
		out.Skipped = append(out.Skipped, models.FieldBatteryAction)
	}

	out.DischargeCycles = next.DischargeCycles
	out.BatteryEfficiency = 100 - float64(next.DischargeCycles)*c.cfg.EfficiencyLossPerCycle

	c.splitEnergy(in, src, outcome, &out)

	if in.batteryOK && in.demandOK {
		if in.demand > 0 {
			out.EstimatedBackupHours = (in.battery / 100 * c.cfg.BatteryCapacityKWh) / (in.demand / 1000)
		}
	} else {
		out.Skipped = append(out.Skipped, models.FieldBackupTime)
	}

	for _, err := range issues {
		out.Issues = append(out.Issues, err.Error())
	}
	return out, next, errors.Join(issues...)
}

func (c *Classifier) powerSource(in inputs, out *models.AnnotatedRow) (models.PowerSource, sourceOutcome) {
	if !in.daytimeOK {
		return "", sourceUnknown
	}

	switch {
	case in.daytime && in.grid == models.GridNormal:
		if !in.solarOK || !in.demandOK {
			return "", sourceUnknown
		}
		if in.solar >= in.demand {
			return models.SourceSolar, sourceKnown
		}
		return models.SourceSolarGrid, sourceKnown

	case in.daytime && in.grid.Degraded():
		if !in.solarOK || !in.demandOK {
			return "", sourceUnknown
		}
		src := models.SourceSolarBattery
		if in.solar >= in.demand {
			src = models.SourceSolar
			out.Alerts = append(out.Alerts, models.Alert{
				Code:    models.AlertGridDownSolarOnly,
				Message: "Grid unavailable, using solar only",
			})
		} else {
			out.Alerts = append(out.Alerts, models.Alert{
				Code:    models.AlertGridDownBattery,
				Message: "Powering from battery due to grid issue",
			})
		}
		if in.heavyOK && in.heavy {
			out.Alerts = append(out.Alerts, models.Alert{
				Code:    models.AlertHeavyApplianceGridDown,
				Message: "Heavy appliance running during grid issue, reduce load",
			})
		}
		return src, sourceKnown

	case !in.daytime && in.grid == models.GridNormal:
		return models.SourceGrid, sourceKnown

	case !in.daytime && in.grid.Degraded():
		out.Alerts = append(out.Alerts, models.Alert{
			Code:    models.AlertNightBatterySwitch,
			Message: "Grid down at night, switched to battery",
		})
		if in.heavyOK && in.heavy {
			out.Alerts = append(out.Alerts, models.Alert{
				Code:    models.AlertHeavyApplianceNight,
				Message: "Heavy appliance running on battery at night, switch it off to preserve backup",
			})
		}
		return models.SourceBattery, sourceKnown
	}

	return "", sourceUnclassified
}

// batteryAction evaluates the action rules in priority order. It returns
// false when an input the rules need was malformed.
func (c *Classifier) batteryAction(in inputs, src models.PowerSource, outcome sourceOutcome) (models.BatteryAction, bool) {
	if outcome == sourceUnknown {
		return models.ActionNone, false
	}
	if src.DrawsOnBattery() {
		return models.ActionDischarging, true
	}
	if !in.batteryOK {
		return models.ActionNone, false
	}
	if in.daytime {
		if !in.solarOK || !in.demandOK {
			return models.ActionNone, false
		}
		if in.solar > in.demand && in.battery < 100 {
			return models.ActionCharging, true
		}
	}
	if in.grid == models.GridNormal && in.battery < 100 {
		return models.ActionCharging, true
	}
	// Only reached on a degraded grid when solar alone covers the load.
	if in.grid.Degraded() && in.battery > c.cfg.LowBatteryPercent {
		return models.ActionDischarging, true
	}
	return models.ActionIdle, true
}

// splitEnergy attributes the slice's consumption to each supply. The mixed
// sources put the remainder on grid or battery, which goes negative when
// solar exceeds demand.
func (c *Classifier) splitEnergy(in inputs, src models.PowerSource, outcome sourceOutcome, out *models.AnnotatedRow) {
	k := c.cfg.wattsToKWh()
	if in.demandOK {
		out.TotalConsumptionKWh = in.demand * k
	}

	if outcome == sourceUnknown || (outcome == sourceKnown && !in.demandOK) {
		out.Skipped = append(out.Skipped,
			models.FieldSolarContribution,
			models.FieldGridContribution,
			models.FieldBatteryContribution,
		)
	}
	if !in.demandOK {
		out.Skipped = append(out.Skipped, models.FieldTotalConsumption)
	}
	if outcome != sourceKnown || !in.demandOK {
		return
	}

	demand := in.demand * k
	switch src {
	case models.SourceSolar:
		out.SolarContribution = demand
	case models.SourceGrid:
		out.GridContribution = demand
	case models.SourceSolarGrid:
		out.SolarContribution = in.solar * k
		out.GridContribution = demand - out.SolarContribution
	case models.SourceSolarBattery:
		out.SolarContribution = in.solar * k
		out.BatteryContribution = demand - out.SolarContribution
	case models.SourceBattery:
		out.BatteryContribution = demand
	}
}
