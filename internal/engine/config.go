package engine

import "errors"

// Defaults of the reference household installation.
const (
	DefaultBatteryCapacityKWh     = 10.0
	DefaultSliceSeconds           = 20.0
	DefaultLowBatteryPercent      = 28.0
	DefaultEfficiencyLossPerCycle = 0.2
)

// Config holds the fixed parameters of the decision rules.
type Config struct {
	BatteryCapacityKWh     float64 `mapstructure:"battery_capacity_kwh" yaml:"capacity_kwh"`
	SliceSeconds           float64 `mapstructure:"slice_seconds" yaml:"slice_seconds"`
	LowBatteryPercent      float64 `mapstructure:"low_battery_percent" yaml:"low_battery_percent"`
	EfficiencyLossPerCycle float64 `mapstructure:"efficiency_loss_per_cycle" yaml:"efficiency_loss_per_cycle"`
}

func DefaultConfig() Config {
	return Config{
		BatteryCapacityKWh:     DefaultBatteryCapacityKWh,
		SliceSeconds:           DefaultSliceSeconds,
		LowBatteryPercent:      DefaultLowBatteryPercent,
		EfficiencyLossPerCycle: DefaultEfficiencyLossPerCycle,
	}
}

func (c Config) Validate() error {
	if c.BatteryCapacityKWh <= 0 {
		return errors.New("battery_capacity_kwh must be > 0")
	}
	if c.SliceSeconds <= 0 {
		return errors.New("slice_seconds must be > 0")
	}
	if c.LowBatteryPercent < 0 || c.LowBatteryPercent > 100 {
		return errors.New("low_battery_percent must be in [0, 100]")
	}
	if c.EfficiencyLossPerCycle < 0 {
		return errors.New("efficiency_loss_per_cycle must be >= 0")
	}
	return nil
}

// wattsToKWh is the energy drawn by one watt over one simulated slice.
func (c Config) wattsToKWh() float64 {
	return c.SliceSeconds / 3600 / 1000
}
