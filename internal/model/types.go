package model

// Core domain types for the delivery cost model and route optimizer.

// Austria bounding box; premises and the warehouse must fall inside it.
const (
	MinLatitude  = 46.4
	MaxLatitude  = 49.0
	MinLongitude = 9.5
	MaxLongitude = 17.2
)

// Coordinate is a WGS84 point with elevation in meters.
type Coordinate struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	ElevationM float64 `json:"elevationM"`
}

// InBounds reports whether the coordinate lies inside the service area.
func (c Coordinate) InBounds() bool {
	return c.Latitude >= MinLatitude && c.Latitude <= MaxLatitude &&
		c.Longitude >= MinLongitude && c.Longitude <= MaxLongitude
}

// Premise categories.
const (
	CategoryNightclub  = "nightclub"
	CategoryGym        = "gym"
	CategoryRetail     = "retail"
	CategoryRestaurant = "restaurant"
	CategoryHotel      = "hotel"
)

// ValidCategory reports whether cat is a recognized premise category.
func ValidCategory(cat string) bool {
	switch cat {
	case CategoryNightclub, CategoryGym, CategoryRetail, CategoryRestaurant, CategoryHotel:
		return true
	}
	return false
}

// Premise is a delivery destination. Owned by the catalog; read-only to the core.
type Premise struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Category     string     `json:"category"`
	Location     Coordinate `json:"location"`
	WeeklyDemand int        `json:"weeklyDemand"` // cases
}

// Warehouse is the single fixed route origin. Open-path routing: routes do not
// return here.
type Warehouse struct {
	Name     string     `json:"name"`
	Location Coordinate `json:"location"`
}

// Vehicle types.
const (
	VehicleSmallVan    = "small_van"
	VehicleMediumTruck = "medium_truck"
	VehicleLargeTruck  = "large_truck"
)

// ValidVehicleType reports whether t is a recognized vehicle type.
func ValidVehicleType(t string) bool {
	switch t {
	case VehicleSmallVan, VehicleMediumTruck, VehicleLargeTruck:
		return true
	}
	return false
}

// Vehicle describes a delivery vehicle profile. All rates are non-negative and
// capacity is a positive integer (enforced by the catalog).
type Vehicle struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	Type                 string  `json:"type"`
	Capacity             int     `json:"capacity"`             // cases
	FuelConsumptionRate  float64 `json:"fuelConsumptionRate"`  // L/km
	CO2EmissionRate      float64 `json:"co2EmissionRate"`      // kg/km
	HourlyLaborCost      float64 `json:"hourlyLaborCost"`      // currency/hr
	FixedCostPerDelivery float64 `json:"fixedCostPerDelivery"` // currency
}

// CostBreakdown itemizes a single leg or a whole route. TotalCost is always
// the recomputed sum of the four cost components.
type CostBreakdown struct {
	DistanceKm    float64 `json:"distanceKm"`
	DurationHours float64 `json:"durationHours"`
	FuelCost      float64 `json:"fuelCost"`
	LaborCost     float64 `json:"laborCost"`
	VehicleCost   float64 `json:"vehicleCost"`
	CarbonCost    float64 `json:"carbonCost"`
	TotalCost     float64 `json:"totalCost"`
	CO2Emissions  float64 `json:"co2Emissions"` // kg
	IsAlpine      bool    `json:"isAlpine"`
	HasOvertime   bool    `json:"hasOvertime"`
}

// Add accumulates another breakdown into c, re-deriving TotalCost from the
// component sums so aggregates never drift from their parts.
func (c *CostBreakdown) Add(o CostBreakdown) {
	c.DistanceKm += o.DistanceKm
	c.DurationHours += o.DurationHours
	c.FuelCost += o.FuelCost
	c.LaborCost += o.LaborCost
	c.VehicleCost += o.VehicleCost
	c.CarbonCost += o.CarbonCost
	c.CO2Emissions += o.CO2Emissions
	c.TotalCost = c.FuelCost + c.LaborCost + c.VehicleCost + c.CarbonCost
	c.IsAlpine = c.IsAlpine || o.IsAlpine
	c.HasOvertime = c.HasOvertime || o.HasOvertime
}

// RouteStop is one visited premise with the cost of the leg arriving at it.
// Seq is 0-based over stops; the warehouse origin is implicit before seq 0.
type RouteStop struct {
	Seq       int           `json:"seq"`
	PremiseID string        `json:"premiseId"`
	Name      string        `json:"name,omitempty"`
	Demand    int           `json:"demand"`
	Leg       CostBreakdown `json:"leg"`
}

// CapacityReport describes vehicle load for a request. Remaining is negative
// only inside a CapacityExceeded error payload, never in a success response.
type CapacityReport struct {
	CapacityUsed      float64 `json:"capacityUsed"` // fraction of capacity
	CapacityRemaining int     `json:"capacityRemaining"`
}

// OptimizedRoute is the result of one sequencing call. Never mutated after
// being returned; a new call produces a fresh value.
type OptimizedRoute struct {
	Mode      string         `json:"mode"`
	VehicleID string         `json:"vehicleId"`
	Stops     []RouteStop    `json:"stops"`
	Totals    CostBreakdown  `json:"totals"`
	Capacity  CapacityReport `json:"capacity"`
	Baselines *ModeBaselines `json:"baselines,omitempty"`
}

// ModeBaselines carries the single-objective optima used to normalize the
// balanced objective; surfaced so the dashboard can chart the tradeoff.
type ModeBaselines struct {
	BestDurationHours float64 `json:"bestDurationHours"`
	BestTotalCost     float64 `json:"bestTotalCost"`
	BestCO2Kg         float64 `json:"bestCo2Kg"`
}

// StopIn selects a premise for an optimization request with an optional
// per-call demand override; zero means "use the premise weekly demand".
type StopIn struct {
	PremiseID string `json:"premiseId"`
	Demand    int    `json:"demand,omitempty"`
}

// OptimizeRequest is the wire form of a route optimization. Either PremiseIDs
// or Stops is supplied; consumed exactly once.
type OptimizeRequest struct {
	PremiseIDs []string `json:"premiseIds,omitempty"`
	Stops      []StopIn `json:"stops,omitempty"`
	VehicleID  string   `json:"vehicleId"`
	Mode       string   `json:"mode"`
}

// CostRequest is the single-leg costing operation.
type CostRequest struct {
	DestinationID string `json:"destinationId"`
	VehicleID     string `json:"vehicleId"`
	Demand        int    `json:"demand"`
}

// Webhook subscription types; the dashboard subscribes to core outputs.
type SubscriptionRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret"`
}

type Subscription struct {
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret,omitempty"`
}

// PremiseInput is the catalog write shape for premises.
type PremiseInput struct {
	Name         string     `json:"name"`
	Category     string     `json:"category"`
	Location     Coordinate `json:"location"`
	WeeklyDemand int        `json:"weeklyDemand"`
}

// VehicleInput is the catalog write shape for vehicles.
type VehicleInput struct {
	Name                 string  `json:"name"`
	Type                 string  `json:"type"`
	Capacity             int     `json:"capacity"`
	FuelConsumptionRate  float64 `json:"fuelConsumptionRate"`
	CO2EmissionRate      float64 `json:"co2EmissionRate"`
	HourlyLaborCost      float64 `json:"hourlyLaborCost"`
	FixedCostPerDelivery float64 `json:"fixedCostPerDelivery"`
}
