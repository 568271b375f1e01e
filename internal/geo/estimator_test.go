package geo

import (
	"math"
	"testing"

	"fleetroute/internal/config"
	"fleetroute/internal/model"
)

var (
	salzburg   = model.Coordinate{Latitude: 47.8011, Longitude: 13.2760, ElevationM: 424}
	vienna     = model.Coordinate{Latitude: 48.2082, Longitude: 16.3738, ElevationM: 171}
	obertauern = model.Coordinate{Latitude: 47.2514, Longitude: 13.5565, ElevationM: 1740}
)

func TestHaversineSymmetry(t *testing.T) {
	pts := []model.Coordinate{salzburg, vienna, obertauern}
	for _, a := range pts {
		for _, b := range pts {
			d1 := HaversineKm(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
			d2 := HaversineKm(b.Latitude, b.Longitude, a.Latitude, a.Longitude)
			if d1 != d2 {
				t.Fatalf("distance not symmetric: %v vs %v", d1, d2)
			}
		}
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Salzburg-Vienna is roughly 250 km as the crow flies.
	d := HaversineKm(salzburg.Latitude, salzburg.Longitude, vienna.Latitude, vienna.Longitude)
	if d < 230 || d > 270 {
		t.Fatalf("Salzburg-Vienna distance out of range: %v km", d)
	}
	if HaversineKm(vienna.Latitude, vienna.Longitude, vienna.Latitude, vienna.Longitude) != 0 {
		t.Fatal("zero-length leg must have zero distance")
	}
}

func TestEstimateAlpineClassification(t *testing.T) {
	e := NewEstimator(config.Default())

	// Both endpoints well below the elevation threshold, delta under the
	// gradient threshold: flat.
	if leg := e.Estimate(salzburg, vienna); leg.IsAlpine {
		t.Fatalf("expected flat leg, got alpine: %+v", leg)
	}
	// One endpoint above the elevation threshold.
	if leg := e.Estimate(salzburg, obertauern); !leg.IsAlpine {
		t.Fatalf("expected alpine leg (elevation), got: %+v", leg)
	}
	// Elevation delta above the gradient threshold, both endpoints below the
	// elevation threshold.
	low := model.Coordinate{Latitude: 47.5, Longitude: 13.0, ElevationM: 100}
	high := model.Coordinate{Latitude: 47.6, Longitude: 13.1, ElevationM: 700}
	if leg := e.Estimate(low, high); !leg.IsAlpine {
		t.Fatalf("expected alpine leg (gradient), got: %+v", leg)
	}
}

func TestEstimateDuration(t *testing.T) {
	cfg := config.Default()
	e := NewEstimator(cfg)

	flat := e.Estimate(salzburg, vienna)
	wantFlat := flat.DistanceKm / cfg.BaseSpeedKph
	if math.Abs(flat.DurationHours-wantFlat) > 1e-9 {
		t.Fatalf("flat duration: got %v want %v", flat.DurationHours, wantFlat)
	}

	alp := e.Estimate(salzburg, obertauern)
	wantAlp := alp.DistanceKm / (cfg.BaseSpeedKph / cfg.AlpineSpeedPenalty)
	if math.Abs(alp.DurationHours-wantAlp) > 1e-9 {
		t.Fatalf("alpine duration: got %v want %v", alp.DurationHours, wantAlp)
	}
	if alp.DurationHours <= alp.DistanceKm/cfg.BaseSpeedKph {
		t.Fatal("alpine leg must be slower than flat for the same distance")
	}
}
