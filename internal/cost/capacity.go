package cost

import (
	"errors"
	"fmt"

	"fleetroute/internal/model"
)

// ErrCapacityExceeded is the sentinel for capacity failures; match with
// errors.Is, extract the load report with errors.As on *CapacityError.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// CapacityError carries the overload details. Remaining is negative here and
// only here.
type CapacityError struct {
	VehicleID string
	Demand    int
	Capacity  int
	Report    model.CapacityReport
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity exceeded: demand %d over vehicle %s capacity %d", e.Demand, e.VehicleID, e.Capacity)
}

func (e *CapacityError) Unwrap() error { return ErrCapacityExceeded }

// ValidateCapacity gates every costing or sequencing call: aggregate demand
// must fit the vehicle. On success the report's remaining is >= 0.
func ValidateCapacity(aggregateDemand int, v model.Vehicle) (model.CapacityReport, error) {
	if aggregateDemand < 0 {
		return model.CapacityReport{}, fmt.Errorf("%w: demand %d is negative", ErrInvalidInput, aggregateDemand)
	}
	if v.Capacity <= 0 {
		return model.CapacityReport{}, fmt.Errorf("%w: vehicle %s has capacity %d", ErrInvalidInput, v.ID, v.Capacity)
	}
	report := model.CapacityReport{
		CapacityUsed:      float64(aggregateDemand) / float64(v.Capacity),
		CapacityRemaining: v.Capacity - aggregateDemand,
	}
	if aggregateDemand > v.Capacity {
		return model.CapacityReport{}, &CapacityError{VehicleID: v.ID, Demand: aggregateDemand, Capacity: v.Capacity, Report: report}
	}
	return report, nil
}
