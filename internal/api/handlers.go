package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"fleetroute/internal/buildinfo"
	"fleetroute/internal/cost"
	"fleetroute/internal/metrics"
	"fleetroute/internal/model"
	"fleetroute/internal/route"
	"fleetroute/internal/webhooks"
)

// CostHandler serves POST /v1/cost: price one delivery from the warehouse to a
// single premise with the given vehicle.
func (s *Server) CostHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "", r.URL.Path)
		return
	}
	var req model.CostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateCostRequest(req); err != nil {
		writeCoreError(w, err, r.URL.Path)
		return
	}

	snap, err := s.Store.Snapshot(r.Context(), []string{req.DestinationID}, req.VehicleID)
	if err != nil {
		writeCoreError(w, err, r.URL.Path)
		return
	}
	premise := snap.Premises[0]
	demand := req.Demand
	if demand <= 0 {
		demand = premise.WeeklyDemand
	}

	report, err := cost.ValidateCapacity(demand, snap.Vehicle)
	if err != nil {
		writeCoreError(w, err, r.URL.Path)
		return
	}
	leg := s.Est.Estimate(snap.Warehouse.Location, premise.Location)
	bd, err := s.Costs.Price(leg.DistanceKm, leg.DurationHours, demand, snap.Vehicle, leg.IsAlpine)
	if err != nil {
		writeCoreError(w, err, r.URL.Path)
		return
	}

	resp := map[string]any{
		"premiseId": premise.ID,
		"vehicleId": snap.Vehicle.ID,
		"demand":    demand,
		"cost":      bd,
		"capacity":  report,
	}
	s.Pub.Emit(r.Context(), webhooks.EventCostCalculated, resp)
	s.Broker.Publish(TopicOptimizations, SSEEvent{Type: webhooks.EventCostCalculated, Data: resp})
	writeJSON(w, http.StatusOK, resp)
}

// OptimizeHandler serves POST /v1/optimize: sequence a multi-stop route.
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "", r.URL.Path)
		return
	}
	if !s.limiter.Allow() {
		writeProblem(w, http.StatusTooManyRequests, "Rate limit exceeded", "optimization rate limit reached, retry shortly", r.URL.Path)
		return
	}
	var req model.OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	rt, err := s.optimize(r, req)
	if err != nil {
		writeCoreError(w, err, r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, rt)
}

// optimize resolves the catalog snapshot and runs the sequencer; shared by the
// HTTP handler and the websocket session.
func (s *Server) optimize(r *http.Request, req model.OptimizeRequest) (model.OptimizedRoute, error) {
	if err := validateOptimizeRequest(req); err != nil {
		metrics.Optimizations.WithLabelValues(modeLabel(req.Mode), "invalid").Inc()
		return model.OptimizedRoute{}, err
	}
	ids, overrides := stopSelection(req)
	snap, err := s.Store.Snapshot(r.Context(), ids, req.VehicleID)
	if err != nil {
		metrics.Optimizations.WithLabelValues(modeLabel(req.Mode), "error").Inc()
		return model.OptimizedRoute{}, err
	}
	stops := make([]route.Stop, len(snap.Premises))
	for i, p := range snap.Premises {
		stops[i] = route.Stop{Premise: p, Demand: overrides[p.ID]}
	}
	rt, err := s.Seq.Sequence(snap.Warehouse.Location, stops, snap.Vehicle, req.Mode)
	if err != nil {
		metrics.Optimizations.WithLabelValues(req.Mode, "error").Inc()
		return model.OptimizedRoute{}, err
	}
	metrics.Optimizations.WithLabelValues(req.Mode, "ok").Inc()
	metrics.OptimizationStops.Observe(float64(len(rt.Stops)))
	metrics.RouteTotalCost.WithLabelValues(req.Mode).Observe(rt.Totals.TotalCost)
	s.Pub.Emit(r.Context(), webhooks.EventRouteOptimized, rt)
	s.Broker.Publish(TopicOptimizations, SSEEvent{Type: webhooks.EventRouteOptimized, Data: map[string]any{
		"mode":      rt.Mode,
		"vehicleId": rt.VehicleID,
		"stops":     len(rt.Stops),
		"totalCost": rt.Totals.TotalCost,
	}})
	return rt, nil
}

func modeLabel(mode string) string {
	if route.ValidMode(mode) {
		return mode
	}
	return "unknown"
}

// PremisesHandler serves GET and POST /v1/premises.
func (s *Server) PremisesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ps, err := s.Store.ListPremises(r.Context())
		if err != nil {
			writeCoreError(w, err, r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"premises": ps})
	case http.MethodPost:
		var in model.PremiseInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		p, err := s.Store.CreatePremise(r.Context(), in)
		if err != nil {
			writeCoreError(w, err, r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	default:
		writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "", r.URL.Path)
	}
}

// PremiseByIDHandler serves GET/PUT/DELETE /v1/premises/{id}.
func (s *Server) PremiseByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/premises/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodGet:
		p, err := s.Store.GetPremise(r.Context(), id)
		if err != nil {
			writeCoreError(w, err, r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodPut:
		var in model.PremiseInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		p, err := s.Store.UpdatePremise(r.Context(), id, in)
		if err != nil {
			writeCoreError(w, err, r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodDelete:
		if err := s.Store.DeletePremise(r.Context(), id); err != nil {
			writeCoreError(w, err, r.URL.Path)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "", r.URL.Path)
	}
}

// VehiclesHandler serves GET and POST /v1/vehicles.
func (s *Server) VehiclesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		vs, err := s.Store.ListVehicles(r.Context())
		if err != nil {
			writeCoreError(w, err, r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"vehicles": vs})
	case http.MethodPost:
		var in model.VehicleInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		v, err := s.Store.CreateVehicle(r.Context(), in)
		if err != nil {
			writeCoreError(w, err, r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, v)
	default:
		writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "", r.URL.Path)
	}
}

// VehicleByIDHandler serves GET/DELETE /v1/vehicles/{id}.
func (s *Server) VehicleByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/vehicles/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodGet:
		v, err := s.Store.GetVehicle(r.Context(), id)
		if err != nil {
			writeCoreError(w, err, r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, v)
	case http.MethodDelete:
		if err := s.Store.DeleteVehicle(r.Context(), id); err != nil {
			writeCoreError(w, err, r.URL.Path)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "", r.URL.Path)
	}
}

// WarehouseHandler serves GET and PUT /v1/warehouse (singleton origin).
func (s *Server) WarehouseHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		wh, err := s.Store.GetWarehouse(r.Context())
		if err != nil {
			writeCoreError(w, err, r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, wh)
	case http.MethodPut:
		var wh model.Warehouse
		if err := json.NewDecoder(r.Body).Decode(&wh); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := s.Store.SetWarehouse(r.Context(), wh); err != nil {
			writeCoreError(w, err, r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, wh)
	default:
		writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "", r.URL.Path)
	}
}

// SubscriptionsHandler serves GET and POST /v1/subscriptions.
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		subs, err := s.Store.ListSubscriptions(r.Context())
		if err != nil {
			writeCoreError(w, err, r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"subscriptions": subs})
	case http.MethodPost:
		var req model.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		sub, err := s.Store.CreateSubscription(r.Context(), req)
		if err != nil {
			writeCoreError(w, err, r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	default:
		writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "", r.URL.Path)
	}
}

// SubscriptionByIDHandler serves DELETE /v1/subscriptions/{id}.
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodDelete {
		writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "", r.URL.Path)
		return
	}
	if err := s.Store.DeleteSubscription(r.Context(), id); err != nil {
		writeCoreError(w, err, r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EventsStreamHandler serves GET /v1/events/stream: SSE feed of completed
// optimizations and cost calculations.
func (s *Server) EventsStreamHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "", r.URL.Path)
		return
	}
	fl, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.Broker.Subscribe(TopicOptimizations)
	defer s.Broker.Unsubscribe(TopicOptimizations, ch)

	fmt.Fprintf(w, "event: connected\ndata: {}\n\n")
	fl.Flush()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			data, _ := json.Marshal(evt.Data)
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
			fl.Flush()
		}
	}
}

// HealthHandler serves GET /healthz.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyHandler serves GET /readyz: ready once a warehouse origin exists.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Store.GetWarehouse(r.Context()); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Not ready", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// VersionHandler serves GET /version.
func (s *Server) VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Info())
}
