// Package cost converts travel estimates and vehicle profiles into itemized
// cost and emissions breakdowns, and enforces vehicle capacity.
package cost

import (
	"errors"
	"fmt"

	"fleetroute/internal/config"
	"fleetroute/internal/model"
)

// ErrInvalidInput flags a negative rate or demand reaching the cost model; it
// indicates a bug in an upstream caller, not bad user input.
var ErrInvalidInput = errors.New("invalid input")

// Model prices legs. Pure; all tunables fixed at construction.
type Model struct {
	alpineFuelSurcharge float64
	fuelPricePerLiter   float64
	carbonPricePerKg    float64
	depreciationPerKm   float64
	standardShiftHours  float64
	overtimeMultiplier  float64
}

// NewModel builds a Model from startup configuration.
func NewModel(cfg config.Config) *Model {
	return &Model{
		alpineFuelSurcharge: cfg.AlpineFuelSurcharge,
		fuelPricePerLiter:   cfg.FuelPricePerLiter,
		carbonPricePerKg:    cfg.CarbonPricePerKg,
		depreciationPerKm:   cfg.DepreciationPerKm,
		standardShiftHours:  cfg.StandardShiftHours,
		overtimeMultiplier:  cfg.OvertimeMultiplier,
	}
}

// Price itemizes the cost of driving distanceKm over durationHours with v
// carrying demand cases. TotalCost is derived from the four components at the
// end, never carried separately.
func (m *Model) Price(distanceKm, durationHours float64, demand int, v model.Vehicle, isAlpine bool) (model.CostBreakdown, error) {
	if demand < 0 {
		return model.CostBreakdown{}, fmt.Errorf("%w: demand %d is negative", ErrInvalidInput, demand)
	}
	if distanceKm < 0 || durationHours < 0 {
		return model.CostBreakdown{}, fmt.Errorf("%w: negative distance or duration", ErrInvalidInput)
	}
	if v.FuelConsumptionRate < 0 || v.CO2EmissionRate < 0 || v.HourlyLaborCost < 0 || v.FixedCostPerDelivery < 0 {
		return model.CostBreakdown{}, fmt.Errorf("%w: vehicle %s has a negative rate", ErrInvalidInput, v.ID)
	}

	fuel := distanceKm * v.FuelConsumptionRate * m.fuelPricePerLiter
	if isAlpine {
		fuel *= m.alpineFuelSurcharge
	}

	labor := durationHours * v.HourlyLaborCost
	overtime := false
	if durationHours > m.standardShiftHours {
		excess := durationHours - m.standardShiftHours
		labor = m.standardShiftHours*v.HourlyLaborCost + excess*v.HourlyLaborCost*m.overtimeMultiplier
		overtime = true
	}

	vehicle := distanceKm*m.depreciationPerKm + v.FixedCostPerDelivery
	co2 := distanceKm * v.CO2EmissionRate
	carbon := co2 * m.carbonPricePerKg

	return model.CostBreakdown{
		DistanceKm:    distanceKm,
		DurationHours: durationHours,
		FuelCost:      fuel,
		LaborCost:     labor,
		VehicleCost:   vehicle,
		CarbonCost:    carbon,
		TotalCost:     fuel + labor + vehicle + carbon,
		CO2Emissions:  co2,
		IsAlpine:      isAlpine,
		HasOvertime:   overtime,
	}, nil
}
