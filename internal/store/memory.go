package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fleetroute/internal/model"
)

// Memory is the in-process catalog used when no DATABASE_URL is set.
type Memory struct {
	mu        sync.Mutex
	premises  map[string]model.Premise
	vehicles  map[string]model.Vehicle
	warehouse *model.Warehouse
	subs      map[string]model.Subscription

	deliveries map[string]*memDelivery
	order      []string // delivery ids in enqueue order
}

// memDelivery augments WebhookDelivery with scheduling state.
type memDelivery struct {
	WebhookDelivery
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
	LatencyMs     int
}

func NewMemory() *Memory {
	return &Memory{
		premises:   map[string]model.Premise{},
		vehicles:   map[string]model.Vehicle{},
		subs:       map[string]model.Subscription{},
		deliveries: map[string]*memDelivery{},
	}
}

func (m *Memory) CreatePremise(ctx context.Context, in model.PremiseInput) (model.Premise, error) {
	if err := validatePremise(in); err != nil {
		return model.Premise{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := model.Premise{
		ID:           "prm_" + uuid.New().String(),
		Name:         in.Name,
		Category:     in.Category,
		Location:     in.Location,
		WeeklyDemand: in.WeeklyDemand,
	}
	m.premises[p.ID] = p
	return p, nil
}

func (m *Memory) GetPremise(ctx context.Context, id string) (model.Premise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.premises[id]
	if !ok {
		return model.Premise{}, ErrPremiseNotFound
	}
	return p, nil
}

func (m *Memory) ListPremises(ctx context.Context) ([]model.Premise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Premise, 0, len(m.premises))
	for _, p := range m.premises {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpdatePremise(ctx context.Context, id string, in model.PremiseInput) (model.Premise, error) {
	if err := validatePremise(in); err != nil {
		return model.Premise{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.premises[id]
	if !ok {
		return model.Premise{}, ErrPremiseNotFound
	}
	p.Name = in.Name
	p.Category = in.Category
	p.Location = in.Location
	p.WeeklyDemand = in.WeeklyDemand
	m.premises[id] = p
	return p, nil
}

func (m *Memory) DeletePremise(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.premises[id]; !ok {
		return ErrPremiseNotFound
	}
	delete(m.premises, id)
	return nil
}

func (m *Memory) CreateVehicle(ctx context.Context, in model.VehicleInput) (model.Vehicle, error) {
	if err := validateVehicle(in); err != nil {
		return model.Vehicle{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v := model.Vehicle{
		ID:                   "veh_" + uuid.New().String(),
		Name:                 in.Name,
		Type:                 in.Type,
		Capacity:             in.Capacity,
		FuelConsumptionRate:  in.FuelConsumptionRate,
		CO2EmissionRate:      in.CO2EmissionRate,
		HourlyLaborCost:      in.HourlyLaborCost,
		FixedCostPerDelivery: in.FixedCostPerDelivery,
	}
	m.vehicles[v.ID] = v
	return v, nil
}

func (m *Memory) GetVehicle(ctx context.Context, id string) (model.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vehicles[id]
	if !ok {
		return model.Vehicle{}, ErrVehicleNotFound
	}
	return v, nil
}

func (m *Memory) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Vehicle, 0, len(m.vehicles))
	for _, v := range m.vehicles {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeleteVehicle(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vehicles[id]; !ok {
		return ErrVehicleNotFound
	}
	delete(m.vehicles, id)
	return nil
}

func (m *Memory) GetWarehouse(ctx context.Context) (model.Warehouse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.warehouse == nil {
		return model.Warehouse{}, ErrWarehouseNotSet
	}
	return *m.warehouse, nil
}

func (m *Memory) SetWarehouse(ctx context.Context, w model.Warehouse) error {
	if err := validateWarehouse(w); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warehouse = &w
	return nil
}

// Snapshot copies the requested entities under one lock acquisition, so a
// call sees either the catalog before or after a concurrent write, never a
// mix.
func (m *Memory) Snapshot(ctx context.Context, premiseIDs []string, vehicleID string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.warehouse == nil {
		return Snapshot{}, ErrWarehouseNotSet
	}
	snap := Snapshot{Warehouse: *m.warehouse, Premises: make([]model.Premise, 0, len(premiseIDs))}
	for _, id := range premiseIDs {
		p, ok := m.premises[id]
		if !ok {
			return Snapshot{}, ErrPremiseNotFound
		}
		snap.Premises = append(snap.Premises, p)
	}
	v, ok := m.vehicles[vehicleID]
	if !ok {
		return Snapshot{}, ErrVehicleNotFound
	}
	snap.Vehicle = v
	return snap, nil
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := model.Subscription{ID: "sub_" + uuid.New().String(), URL: req.URL, Events: req.Events, Secret: req.Secret}
	m.subs[sub.ID] = sub
	return sub, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		s.Secret = ""
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[id]; !ok {
		return ErrNotFound
	}
	delete(m.subs, id)
	return nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Subscription{}
	for _, s := range m.subs {
		for _, e := range s.Events {
			if e == eventType || e == "*" {
				out = append(out, s)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := "whd_" + uuid.New().String()
	m.deliveries[id] = &memDelivery{
		WebhookDelivery: WebhookDelivery{
			ID: id, SubscriptionID: subscriptionID, EventType: eventType,
			URL: url, Secret: secret, Payload: payload, Status: "pending",
		},
		NextAttemptAt: time.Now(),
	}
	m.order = append(m.order, id)
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	out := []WebhookDelivery{}
	for _, id := range m.order {
		d := m.deliveries[id]
		if d == nil || d.Status != "pending" || d.NextAttemptAt.After(now) {
			continue
		}
		out = append(out, d.WebhookDelivery)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		d.Status = "delivered"
	} else if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.Status = "failed"
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	return nil
}

// SeedDemo loads a small Austrian catalog so the binary is usable without a
// database: the Salzburg warehouse, a handful of premises, three vehicles.
func (m *Memory) SeedDemo(ctx context.Context) error {
	if err := m.SetWarehouse(ctx, model.Warehouse{
		Name:     "Salzburg Central Warehouse",
		Location: model.Coordinate{Latitude: 47.8011, Longitude: 13.2760, ElevationM: 660},
	}); err != nil {
		return err
	}
	premises := []model.PremiseInput{
		{Name: "Flex Vienna", Category: model.CategoryNightclub, Location: model.Coordinate{Latitude: 48.2145, Longitude: 16.3672, ElevationM: 160}, WeeklyDemand: 120},
		{Name: "Gasthof Post Innsbruck", Category: model.CategoryRestaurant, Location: model.Coordinate{Latitude: 47.2692, Longitude: 11.4041, ElevationM: 700}, WeeklyDemand: 60},
		{Name: "CityGym Linz", Category: model.CategoryGym, Location: model.Coordinate{Latitude: 48.3069, Longitude: 14.2858, ElevationM: 266}, WeeklyDemand: 45},
		{Name: "Hotel Goldener Hirsch Graz", Category: model.CategoryHotel, Location: model.Coordinate{Latitude: 47.0707, Longitude: 15.4395, ElevationM: 353}, WeeklyDemand: 90},
		{Name: "Spar Obertauern", Category: model.CategoryRetail, Location: model.Coordinate{Latitude: 47.2514, Longitude: 13.5565, ElevationM: 1740}, WeeklyDemand: 70},
	}
	for _, p := range premises {
		if _, err := m.CreatePremise(ctx, p); err != nil {
			return err
		}
	}
	vehicles := []model.VehicleInput{
		{Name: "Van 1", Type: model.VehicleSmallVan, Capacity: 800, FuelConsumptionRate: 0.12, CO2EmissionRate: 0.28, HourlyLaborCost: 25, FixedCostPerDelivery: 15},
		{Name: "Truck 1", Type: model.VehicleMediumTruck, Capacity: 2000, FuelConsumptionRate: 0.22, CO2EmissionRate: 0.55, HourlyLaborCost: 32, FixedCostPerDelivery: 28},
		{Name: "Truck 2", Type: model.VehicleLargeTruck, Capacity: 4500, FuelConsumptionRate: 0.34, CO2EmissionRate: 0.86, HourlyLaborCost: 38, FixedCostPerDelivery: 45},
	}
	for _, v := range vehicles {
		if _, err := m.CreateVehicle(ctx, v); err != nil {
			return err
		}
	}
	return nil
}
