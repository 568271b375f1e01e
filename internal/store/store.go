// Package store is the premise/vehicle catalog and the webhook delivery
// queue. The optimizer core never reads it directly; it consumes immutable
// Snapshot values resolved per call.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleetroute/internal/model"
)

var (
	ErrPremiseNotFound = errors.New("premise not found")
	ErrVehicleNotFound = errors.New("vehicle not found")
	ErrWarehouseNotSet = errors.New("warehouse not set")
	ErrNotFound        = errors.New("not found")
	// ErrValidation flags catalog writes that violate entity invariants
	// (bounding box, categories, rates).
	ErrValidation = errors.New("validation failed")
)

// Snapshot is the read-only catalog view one optimization call runs against.
// Premises appear in request order.
type Snapshot struct {
	Warehouse model.Warehouse
	Premises  []model.Premise
	Vehicle   model.Vehicle
}

// WebhookDelivery is one queued outbound notification.
type WebhookDelivery struct {
	ID             string
	SubscriptionID string
	EventType      string
	URL            string
	Secret         string
	Payload        []byte
	Status         string
	Attempts       int
}

// Store is the catalog persistence interface. Memory is the default;
// Postgres is selected by DATABASE_URL.
type Store interface {
	// Premises (the premise-management collaborator's data)
	CreatePremise(ctx context.Context, in model.PremiseInput) (model.Premise, error)
	GetPremise(ctx context.Context, id string) (model.Premise, error)
	ListPremises(ctx context.Context) ([]model.Premise, error)
	UpdatePremise(ctx context.Context, id string, in model.PremiseInput) (model.Premise, error)
	DeletePremise(ctx context.Context, id string) error

	// Vehicles
	CreateVehicle(ctx context.Context, in model.VehicleInput) (model.Vehicle, error)
	GetVehicle(ctx context.Context, id string) (model.Vehicle, error)
	ListVehicles(ctx context.Context) ([]model.Vehicle, error)
	DeleteVehicle(ctx context.Context, id string) error

	// Warehouse: exactly one per deployment.
	GetWarehouse(ctx context.Context) (model.Warehouse, error)
	SetWarehouse(ctx context.Context, w model.Warehouse) error

	// Snapshot resolves ids into the immutable view consumed by one
	// optimization call.
	Snapshot(ctx context.Context, premiseIDs []string, vehicleID string) (Snapshot, error)

	// Webhook subscriptions and delivery queue
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
	DeleteSubscription(ctx context.Context, id string) error
	GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error)
	EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
}

// validatePremise enforces the catalog invariants for premise writes.
func validatePremise(in model.PremiseInput) error {
	if in.Name == "" {
		return fmt.Errorf("%w: premise name required", ErrValidation)
	}
	if !model.ValidCategory(in.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrValidation, in.Category)
	}
	if !in.Location.InBounds() {
		return fmt.Errorf("%w: location (%v, %v) outside service area", ErrValidation, in.Location.Latitude, in.Location.Longitude)
	}
	if in.WeeklyDemand <= 0 {
		return fmt.Errorf("%w: weeklyDemand must be positive, got %d", ErrValidation, in.WeeklyDemand)
	}
	return nil
}

// validateVehicle enforces the catalog invariants for vehicle writes.
func validateVehicle(in model.VehicleInput) error {
	if in.Name == "" {
		return fmt.Errorf("%w: vehicle name required", ErrValidation)
	}
	if !model.ValidVehicleType(in.Type) {
		return fmt.Errorf("%w: unknown vehicle type %q", ErrValidation, in.Type)
	}
	if in.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrValidation, in.Capacity)
	}
	if in.FuelConsumptionRate < 0 || in.CO2EmissionRate < 0 || in.HourlyLaborCost < 0 || in.FixedCostPerDelivery < 0 {
		return fmt.Errorf("%w: vehicle rates must be non-negative", ErrValidation)
	}
	return nil
}

func validateWarehouse(w model.Warehouse) error {
	if !w.Location.InBounds() {
		return fmt.Errorf("%w: warehouse (%v, %v) outside service area", ErrValidation, w.Location.Latitude, w.Location.Longitude)
	}
	return nil
}
