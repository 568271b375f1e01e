package api

import (
	"context"
	"os"
	"strings"

	"fleetroute/internal/config"
	"fleetroute/internal/cost"
	"fleetroute/internal/geo"
	"fleetroute/internal/route"
	"fleetroute/internal/store"
	"fleetroute/internal/webhooks"
)

// Server bundles the HTTP surface's dependencies: catalog store, optimizer
// core, webhook publisher, and event broker.
type Server struct {
	Store  store.Store
	Cfg    config.Config
	Seq    *route.Sequencer
	Est    *geo.Estimator
	Costs  *cost.Model
	Pub    *webhooks.Publisher
	Broker EventBroker

	limiter *optimizeLimiter
}

// NewServer selects the store from DATABASE_URL (Postgres when set, seeded
// in-memory otherwise) and the broker from REDIS_URL.
func NewServer(cfg config.Config) (*Server, error) {
	dsn := os.Getenv("DATABASE_URL")
	var s store.Store
	if strings.TrimSpace(dsn) == "" {
		mem := store.NewMemory()
		if err := mem.SeedDemo(context.Background()); err != nil {
			return nil, err
		}
		s = mem
	} else {
		pg, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, err
		}
		if os.Getenv("DB_MIGRATE") != "false" {
			if err := pg.Migrate(context.Background()); err != nil {
				return nil, err
			}
		}
		s = pg
	}

	var broker EventBroker
	if os.Getenv("REDIS_URL") != "" {
		if rb, err := NewRedisBroker(); err == nil {
			broker = rb
		} else {
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}

	return &Server{
		Store:   s,
		Cfg:     cfg,
		Seq:     route.NewSequencer(cfg),
		Est:     geo.NewEstimator(cfg),
		Costs:   cost.NewModel(cfg),
		Pub:     webhooks.NewPublisher(s),
		Broker:  broker,
		limiter: newOptimizeLimiter(),
	}, nil
}

// NewWebhookWorker creates the background worker that drains the delivery queue.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store)
}
