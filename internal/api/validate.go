package api

import (
	"fmt"

	"fleetroute/internal/model"
	"fleetroute/internal/route"
)

// validateOptimizeRequest checks wire-level shape; catalog existence and
// capacity are checked downstream.
func validateOptimizeRequest(req model.OptimizeRequest) error {
	if req.VehicleID == "" {
		return fmt.Errorf("%w: vehicleId required", route.ErrInvalidRequest)
	}
	if !route.ValidMode(req.Mode) {
		return fmt.Errorf("%w: unknown mode %q", route.ErrInvalidRequest, req.Mode)
	}
	if len(req.PremiseIDs) == 0 && len(req.Stops) == 0 {
		return fmt.Errorf("%w: premiseIds or stops required", route.ErrInvalidRequest)
	}
	if len(req.PremiseIDs) > 0 && len(req.Stops) > 0 {
		return fmt.Errorf("%w: premiseIds and stops are mutually exclusive", route.ErrInvalidRequest)
	}
	seen := map[string]struct{}{}
	for _, id := range req.PremiseIDs {
		if id == "" {
			return fmt.Errorf("%w: empty premise id", route.ErrInvalidRequest)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate premise %s", route.ErrInvalidRequest, id)
		}
		seen[id] = struct{}{}
	}
	for _, st := range req.Stops {
		if st.PremiseID == "" {
			return fmt.Errorf("%w: empty premise id", route.ErrInvalidRequest)
		}
		if _, dup := seen[st.PremiseID]; dup {
			return fmt.Errorf("%w: duplicate premise %s", route.ErrInvalidRequest, st.PremiseID)
		}
		seen[st.PremiseID] = struct{}{}
		if st.Demand < 0 {
			return fmt.Errorf("%w: negative demand for %s", route.ErrInvalidRequest, st.PremiseID)
		}
	}
	return nil
}

// stopSelection flattens the request into ids plus per-premise demand
// overrides (zero means premise weekly demand).
func stopSelection(req model.OptimizeRequest) (ids []string, overrides map[string]int) {
	overrides = map[string]int{}
	if len(req.PremiseIDs) > 0 {
		return req.PremiseIDs, overrides
	}
	for _, st := range req.Stops {
		ids = append(ids, st.PremiseID)
		overrides[st.PremiseID] = st.Demand
	}
	return ids, overrides
}

func validateCostRequest(req model.CostRequest) error {
	if req.DestinationID == "" {
		return fmt.Errorf("%w: destinationId required", route.ErrInvalidRequest)
	}
	if req.VehicleID == "" {
		return fmt.Errorf("%w: vehicleId required", route.ErrInvalidRequest)
	}
	if req.Demand < 0 {
		return fmt.Errorf("%w: demand must be >= 0", route.ErrInvalidRequest)
	}
	return nil
}
