package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"fleetroute/internal/cost"
	"fleetroute/internal/route"
	"fleetroute/internal/store"
)

// Problem represents an RFC7807 problem details response body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	// Capacity carries the load report on capacity failures; remaining may be
	// negative only here.
	Capacity any `json:"capacity,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	writeJSON(w, status, Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// writeCoreError maps the core's typed errors onto HTTP problems.
func writeCoreError(w http.ResponseWriter, err error, instance string) {
	switch {
	case errors.Is(err, cost.ErrCapacityExceeded):
		p := Problem{Type: "about:blank", Title: "Capacity exceeded", Status: http.StatusUnprocessableEntity, Detail: err.Error(), Instance: instance}
		var ce *cost.CapacityError
		if errors.As(err, &ce) {
			p.Capacity = ce.Report
		}
		writeJSON(w, p.Status, p)
	case errors.Is(err, store.ErrPremiseNotFound):
		writeProblem(w, http.StatusNotFound, "Premise not found", err.Error(), instance)
	case errors.Is(err, store.ErrVehicleNotFound):
		writeProblem(w, http.StatusNotFound, "Vehicle not found", err.Error(), instance)
	case errors.Is(err, store.ErrWarehouseNotSet):
		writeProblem(w, http.StatusNotFound, "Warehouse not set", err.Error(), instance)
	case errors.Is(err, store.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error(), instance)
	case errors.Is(err, route.ErrInvalidRequest), errors.Is(err, store.ErrValidation), errors.Is(err, cost.ErrInvalidInput):
		writeProblem(w, http.StatusBadRequest, "Invalid request", err.Error(), instance)
	default:
		writeProblem(w, http.StatusInternalServerError, "Internal error", err.Error(), instance)
	}
}
