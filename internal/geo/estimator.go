// Package geo estimates travel legs between coordinates: great-circle
// distance, duration under a flat or alpine speed profile, and terrain
// classification. Pure functions of the inputs and startup configuration.
package geo

import (
	"math"

	"fleetroute/internal/config"
	"fleetroute/internal/model"
)

// Leg is the travel estimate between two coordinates.
type Leg struct {
	DistanceKm    float64
	DurationHours float64
	IsAlpine      bool
}

// Estimator classifies terrain and converts distance to duration using the
// configured speed profile.
type Estimator struct {
	baseSpeedKph       float64
	alpineElevationM   float64
	alpineGradientM    float64
	alpineSpeedPenalty float64
}

// NewEstimator builds an Estimator from startup configuration.
func NewEstimator(cfg config.Config) *Estimator {
	return &Estimator{
		baseSpeedKph:       cfg.BaseSpeedKph,
		alpineElevationM:   cfg.AlpineElevationM,
		alpineGradientM:    cfg.AlpineGradientM,
		alpineSpeedPenalty: cfg.AlpineSpeedPenalty,
	}
}

// Estimate returns the leg from a to b. Distance is symmetric in its
// arguments; so is the alpine classification, hence duration as well.
func (e *Estimator) Estimate(a, b model.Coordinate) Leg {
	dist := HaversineKm(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	alpine := e.isAlpine(a, b)
	speed := e.baseSpeedKph
	if alpine {
		speed /= e.alpineSpeedPenalty
	}
	return Leg{
		DistanceKm:    dist,
		DurationHours: dist / speed,
		IsAlpine:      alpine,
	}
}

// isAlpine flags a leg when either endpoint sits above the elevation
// threshold or the climb between them exceeds the gradient threshold.
func (e *Estimator) isAlpine(a, b model.Coordinate) bool {
	if a.ElevationM > e.alpineElevationM || b.ElevationM > e.alpineElevationM {
		return true
	}
	return math.Abs(a.ElevationM-b.ElevationM) > e.alpineGradientM
}

// HaversineKm returns the great-circle distance between two WGS84 points.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}
