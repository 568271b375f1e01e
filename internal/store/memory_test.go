package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"fleetroute/internal/model"
)

func seeded(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory()
	if err := m.SeedDemo(context.Background()); err != nil {
		t.Fatalf("SeedDemo: %v", err)
	}
	return m
}

func TestPremiseValidation(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	good := model.PremiseInput{
		Name: "Flex", Category: model.CategoryNightclub,
		Location:     model.Coordinate{Latitude: 48.21, Longitude: 16.36, ElevationM: 160},
		WeeklyDemand: 100,
	}
	if _, err := m.CreatePremise(ctx, good); err != nil {
		t.Fatalf("valid premise rejected: %v", err)
	}

	cases := []struct {
		name string
		mut  func(*model.PremiseInput)
	}{
		{"missing name", func(p *model.PremiseInput) { p.Name = "" }},
		{"bad category", func(p *model.PremiseInput) { p.Category = "casino" }},
		{"north of Austria", func(p *model.PremiseInput) { p.Location.Latitude = 52.5 }},
		{"west of Austria", func(p *model.PremiseInput) { p.Location.Longitude = 8.0 }},
		{"zero demand", func(p *model.PremiseInput) { p.WeeklyDemand = 0 }},
	}
	for _, c := range cases {
		in := good
		c.mut(&in)
		if _, err := m.CreatePremise(ctx, in); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: got %v", c.name, err)
		}
	}
}

func TestVehicleValidation(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	good := model.VehicleInput{Name: "Van", Type: model.VehicleSmallVan, Capacity: 800, FuelConsumptionRate: 0.12, CO2EmissionRate: 0.28, HourlyLaborCost: 25, FixedCostPerDelivery: 15}
	if _, err := m.CreateVehicle(ctx, good); err != nil {
		t.Fatalf("valid vehicle rejected: %v", err)
	}
	bad := good
	bad.Type = "bicycle"
	if _, err := m.CreateVehicle(ctx, bad); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad type: got %v", err)
	}
	bad = good
	bad.Capacity = 0
	if _, err := m.CreateVehicle(ctx, bad); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero capacity: got %v", err)
	}
	bad = good
	bad.CO2EmissionRate = -1
	if _, err := m.CreateVehicle(ctx, bad); !errors.Is(err, ErrValidation) {
		t.Fatalf("negative rate: got %v", err)
	}
}

func TestWarehouseSingleton(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if _, err := m.GetWarehouse(ctx); !errors.Is(err, ErrWarehouseNotSet) {
		t.Fatalf("empty warehouse: got %v", err)
	}
	w := model.Warehouse{Name: "Salzburg", Location: model.Coordinate{Latitude: 47.8, Longitude: 13.27, ElevationM: 660}}
	if err := m.SetWarehouse(ctx, w); err != nil {
		t.Fatalf("SetWarehouse: %v", err)
	}
	// Replacing keeps a single instance.
	w2 := w
	w2.Name = "Salzburg II"
	if err := m.SetWarehouse(ctx, w2); err != nil {
		t.Fatalf("SetWarehouse replace: %v", err)
	}
	got, err := m.GetWarehouse(ctx)
	if err != nil || got.Name != "Salzburg II" {
		t.Fatalf("got %+v err %v", got, err)
	}
	outside := model.Warehouse{Location: model.Coordinate{Latitude: 50.1, Longitude: 8.7}}
	if err := m.SetWarehouse(ctx, outside); !errors.Is(err, ErrValidation) {
		t.Fatalf("out-of-bounds warehouse: got %v", err)
	}
}

func TestSnapshotResolution(t *testing.T) {
	m := seeded(t)
	ctx := context.Background()

	prs, _ := m.ListPremises(ctx)
	vhs, _ := m.ListVehicles(ctx)

	snap, err := m.Snapshot(ctx, []string{prs[1].ID, prs[0].ID}, vhs[0].ID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Premises) != 2 || snap.Premises[0].ID != prs[1].ID {
		t.Fatalf("snapshot must preserve request order: %+v", snap.Premises)
	}
	if snap.Vehicle.ID != vhs[0].ID {
		t.Fatalf("vehicle: %+v", snap.Vehicle)
	}

	if _, err := m.Snapshot(ctx, []string{"prm_missing"}, vhs[0].ID); !errors.Is(err, ErrPremiseNotFound) {
		t.Fatalf("missing premise: got %v", err)
	}
	if _, err := m.Snapshot(ctx, []string{prs[0].ID}, "veh_missing"); !errors.Is(err, ErrVehicleNotFound) {
		t.Fatalf("missing vehicle: got %v", err)
	}
}

func TestWebhookQueueLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.EnqueueWebhook(ctx, "sub_1", "route.optimized", "http://example.test/hook", "s3cret", []byte(`{}`))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	due, err := m.FetchDueWebhookDeliveries(ctx, 10)
	if err != nil || len(due) != 1 || due[0].ID != id {
		t.Fatalf("due: %v %+v", err, due)
	}

	// Retry pushes the next attempt into the future.
	next := time.Now().Add(time.Hour)
	if err := m.MarkWebhookDelivery(ctx, id, false, &next, "boom", 500, 12); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if due, _ = m.FetchDueWebhookDeliveries(ctx, 10); len(due) != 0 {
		t.Fatalf("retried delivery should not be due yet: %+v", due)
	}

	if err := m.FailWebhookDelivery(ctx, id, "gave up", 500, 8); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if due, _ = m.FetchDueWebhookDeliveries(ctx, 10); len(due) != 0 {
		t.Fatalf("failed delivery must leave the queue: %+v", due)
	}
}

func TestSubscriptionsForEvent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, _ = m.CreateSubscription(ctx, model.SubscriptionRequest{URL: "http://a.test", Events: []string{"route.optimized"}})
	_, _ = m.CreateSubscription(ctx, model.SubscriptionRequest{URL: "http://b.test", Events: []string{"cost.calculated"}})
	_, _ = m.CreateSubscription(ctx, model.SubscriptionRequest{URL: "http://c.test", Events: []string{"*"}})

	subs, err := m.GetSubscriptionsForEvent(ctx, "route.optimized")
	if err != nil {
		t.Fatalf("GetSubscriptionsForEvent: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("want 2 matches (direct + wildcard), got %d", len(subs))
	}
}
