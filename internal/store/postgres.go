package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"fleetroute/internal/model"
)

// Postgres persists the catalog and webhook queue. Selected when
// DATABASE_URL is set.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Migrate creates the schema. Dev helper; production uses managed migrations.
func (p *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS premises (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL,
			lat DOUBLE PRECISION NOT NULL,
			lng DOUBLE PRECISION NOT NULL,
			elevation_m DOUBLE PRECISION NOT NULL,
			weekly_demand INT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS vehicles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			capacity INT NOT NULL,
			fuel_rate DOUBLE PRECISION NOT NULL,
			co2_rate DOUBLE PRECISION NOT NULL,
			hourly_labor_cost DOUBLE PRECISION NOT NULL,
			fixed_cost DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS warehouse (
			singleton BOOL PRIMARY KEY DEFAULT TRUE CHECK (singleton),
			name TEXT NOT NULL,
			lat DOUBLE PRECISION NOT NULL,
			lng DOUBLE PRECISION NOT NULL,
			elevation_m DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			events TEXT[] NOT NULL,
			secret TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS webhook_deliveries (
			id TEXT PRIMARY KEY,
			subscription_id TEXT,
			event_type TEXT NOT NULL,
			url TEXT NOT NULL,
			secret TEXT NOT NULL DEFAULT '',
			payload BYTEA NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			attempts INT NOT NULL DEFAULT 0,
			next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_error TEXT NOT NULL DEFAULT '',
			response_code INT NOT NULL DEFAULT 0,
			latency_ms INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) CreatePremise(ctx context.Context, in model.PremiseInput) (model.Premise, error) {
	if err := validatePremise(in); err != nil {
		return model.Premise{}, err
	}
	id := "prm_" + uuid.New().String()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO premises (id, name, category, lat, lng, elevation_m, weekly_demand) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		id, in.Name, in.Category, in.Location.Latitude, in.Location.Longitude, in.Location.ElevationM, in.WeeklyDemand)
	if err != nil {
		return model.Premise{}, err
	}
	return model.Premise{ID: id, Name: in.Name, Category: in.Category, Location: in.Location, WeeklyDemand: in.WeeklyDemand}, nil
}

func (p *Postgres) GetPremise(ctx context.Context, id string) (model.Premise, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, name, category, lat, lng, elevation_m, weekly_demand FROM premises WHERE id=$1`, id)
	return scanPremise(row)
}

func scanPremise(row *sql.Row) (model.Premise, error) {
	var pr model.Premise
	err := row.Scan(&pr.ID, &pr.Name, &pr.Category, &pr.Location.Latitude, &pr.Location.Longitude, &pr.Location.ElevationM, &pr.WeeklyDemand)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Premise{}, ErrPremiseNotFound
	}
	return pr, err
}

func (p *Postgres) ListPremises(ctx context.Context) ([]model.Premise, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, name, category, lat, lng, elevation_m, weekly_demand FROM premises ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Premise{}
	for rows.Next() {
		var pr model.Premise
		if err := rows.Scan(&pr.ID, &pr.Name, &pr.Category, &pr.Location.Latitude, &pr.Location.Longitude, &pr.Location.ElevationM, &pr.WeeklyDemand); err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (p *Postgres) UpdatePremise(ctx context.Context, id string, in model.PremiseInput) (model.Premise, error) {
	if err := validatePremise(in); err != nil {
		return model.Premise{}, err
	}
	res, err := p.db.ExecContext(ctx,
		`UPDATE premises SET name=$2, category=$3, lat=$4, lng=$5, elevation_m=$6, weekly_demand=$7 WHERE id=$1`,
		id, in.Name, in.Category, in.Location.Latitude, in.Location.Longitude, in.Location.ElevationM, in.WeeklyDemand)
	if err != nil {
		return model.Premise{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Premise{}, ErrPremiseNotFound
	}
	return model.Premise{ID: id, Name: in.Name, Category: in.Category, Location: in.Location, WeeklyDemand: in.WeeklyDemand}, nil
}

func (p *Postgres) DeletePremise(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM premises WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPremiseNotFound
	}
	return nil
}

func (p *Postgres) CreateVehicle(ctx context.Context, in model.VehicleInput) (model.Vehicle, error) {
	if err := validateVehicle(in); err != nil {
		return model.Vehicle{}, err
	}
	id := "veh_" + uuid.New().String()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO vehicles (id, name, type, capacity, fuel_rate, co2_rate, hourly_labor_cost, fixed_cost) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		id, in.Name, in.Type, in.Capacity, in.FuelConsumptionRate, in.CO2EmissionRate, in.HourlyLaborCost, in.FixedCostPerDelivery)
	if err != nil {
		return model.Vehicle{}, err
	}
	return model.Vehicle{
		ID: id, Name: in.Name, Type: in.Type, Capacity: in.Capacity,
		FuelConsumptionRate: in.FuelConsumptionRate, CO2EmissionRate: in.CO2EmissionRate,
		HourlyLaborCost: in.HourlyLaborCost, FixedCostPerDelivery: in.FixedCostPerDelivery,
	}, nil
}

func (p *Postgres) GetVehicle(ctx context.Context, id string) (model.Vehicle, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, name, type, capacity, fuel_rate, co2_rate, hourly_labor_cost, fixed_cost FROM vehicles WHERE id=$1`, id)
	var v model.Vehicle
	err := row.Scan(&v.ID, &v.Name, &v.Type, &v.Capacity, &v.FuelConsumptionRate, &v.CO2EmissionRate, &v.HourlyLaborCost, &v.FixedCostPerDelivery)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Vehicle{}, ErrVehicleNotFound
	}
	return v, err
}

func (p *Postgres) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, name, type, capacity, fuel_rate, co2_rate, hourly_labor_cost, fixed_cost FROM vehicles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Vehicle{}
	for rows.Next() {
		var v model.Vehicle
		if err := rows.Scan(&v.ID, &v.Name, &v.Type, &v.Capacity, &v.FuelConsumptionRate, &v.CO2EmissionRate, &v.HourlyLaborCost, &v.FixedCostPerDelivery); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteVehicle(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM vehicles WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVehicleNotFound
	}
	return nil
}

func (p *Postgres) GetWarehouse(ctx context.Context) (model.Warehouse, error) {
	row := p.db.QueryRowContext(ctx, `SELECT name, lat, lng, elevation_m FROM warehouse`)
	var w model.Warehouse
	err := row.Scan(&w.Name, &w.Location.Latitude, &w.Location.Longitude, &w.Location.ElevationM)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Warehouse{}, ErrWarehouseNotSet
	}
	return w, err
}

func (p *Postgres) SetWarehouse(ctx context.Context, w model.Warehouse) error {
	if err := validateWarehouse(w); err != nil {
		return err
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO warehouse (singleton, name, lat, lng, elevation_m) VALUES (TRUE,$1,$2,$3,$4)
		ON CONFLICT (singleton) DO UPDATE SET name=$1, lat=$2, lng=$3, elevation_m=$4`,
		w.Name, w.Location.Latitude, w.Location.Longitude, w.Location.ElevationM)
	return err
}

// Snapshot resolves inside one repeatable-read transaction so a concurrent
// catalog write cannot produce a mixed view.
func (p *Postgres) Snapshot(ctx context.Context, premiseIDs []string, vehicleID string) (Snapshot, error) {
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return Snapshot{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var snap Snapshot
	row := tx.QueryRowContext(ctx, `SELECT name, lat, lng, elevation_m FROM warehouse`)
	if err := row.Scan(&snap.Warehouse.Name, &snap.Warehouse.Location.Latitude, &snap.Warehouse.Location.Longitude, &snap.Warehouse.Location.ElevationM); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, ErrWarehouseNotSet
		}
		return Snapshot{}, err
	}
	for _, id := range premiseIDs {
		var pr model.Premise
		row := tx.QueryRowContext(ctx,
			`SELECT id, name, category, lat, lng, elevation_m, weekly_demand FROM premises WHERE id=$1`, id)
		if err := row.Scan(&pr.ID, &pr.Name, &pr.Category, &pr.Location.Latitude, &pr.Location.Longitude, &pr.Location.ElevationM, &pr.WeeklyDemand); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return Snapshot{}, ErrPremiseNotFound
			}
			return Snapshot{}, err
		}
		snap.Premises = append(snap.Premises, pr)
	}
	row = tx.QueryRowContext(ctx,
		`SELECT id, name, type, capacity, fuel_rate, co2_rate, hourly_labor_cost, fixed_cost FROM vehicles WHERE id=$1`, vehicleID)
	if err := row.Scan(&snap.Vehicle.ID, &snap.Vehicle.Name, &snap.Vehicle.Type, &snap.Vehicle.Capacity, &snap.Vehicle.FuelConsumptionRate, &snap.Vehicle.CO2EmissionRate, &snap.Vehicle.HourlyLaborCost, &snap.Vehicle.FixedCostPerDelivery); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, ErrVehicleNotFound
		}
		return Snapshot{}, err
	}
	return snap, tx.Commit()
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	id := "sub_" + uuid.New().String()
	_, err := p.db.ExecContext(ctx, `INSERT INTO subscriptions (id, url, events, secret) VALUES ($1,$2,$3,$4)`,
		id, req.URL, pqStringArray(req.Events), req.Secret)
	if err != nil {
		return model.Subscription{}, err
	}
	return model.Subscription{ID: id, URL: req.URL, Events: req.Events}, nil
}

func (p *Postgres) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, url, events FROM subscriptions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		var s model.Subscription
		var events string
		if err := rows.Scan(&s.ID, &s.URL, &events); err != nil {
			return nil, err
		}
		s.Events = parsePqStringArray(events)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteSubscription(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, url, events, secret FROM subscriptions WHERE $1 = ANY(events) OR '*' = ANY(events) ORDER BY id`, eventType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		var s model.Subscription
		var events string
		if err := rows.Scan(&s.ID, &s.URL, &events, &s.Secret); err != nil {
			return nil, err
		}
		s.Events = parsePqStringArray(events)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := "whd_" + uuid.New().String()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO webhook_deliveries (id, subscription_id, event_type, url, secret, payload) VALUES ($1,$2,$3,$4,$5,$6)`,
		id, subscriptionID, eventType, url, secret, payload)
	return id, err
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, subscription_id, event_type, url, secret, payload, status, attempts
		 FROM webhook_deliveries WHERE status='pending' AND next_attempt_at <= now()
		 ORDER BY created_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	status := "pending"
	if success {
		status = "delivered"
	}
	var next any
	if nextAttemptAt != nil {
		next = *nextAttemptAt
	}
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries SET status=$2, attempts=attempts+1, next_attempt_at=COALESCE($3, next_attempt_at),
		 last_error=$4, response_code=$5, latency_ms=$6 WHERE id=$1`,
		id, status, next, lastError, responseCode, latencyMs)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries SET status='failed', attempts=attempts+1, last_error=$2, response_code=$3, latency_ms=$4 WHERE id=$1`,
		id, lastError, responseCode, latencyMs)
	return err
}

// pqStringArray renders a text[] literal without extra driver dependencies.
func pqStringArray(items []string) string {
	out := "{"
	for i, s := range items {
		if i > 0 {
			out += ","
		}
		out += `"` + s + `"`
	}
	return out + "}"
}

func parsePqStringArray(lit string) []string {
	lit = trimBraces(lit)
	if lit == "" {
		return []string{}
	}
	parts := []string{}
	for _, s := range splitCSV(lit) {
		if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
			s = s[1 : len(s)-1]
		}
		parts = append(parts, s)
	}
	return parts
}

func trimBraces(s string) string {
	if len(s) >= 2 && s[0] == '{' && s[len(s)-1] == '}' {
		return s[1 : len(s)-1]
	}
	return s
}

func splitCSV(s string) []string {
	out := []string{}
	cur := ""
	inQuote := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur += string(r)
		case r == ',' && !inQuote:
			out = append(out, cur)
			cur = ""
		default:
			cur += string(r)
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}
