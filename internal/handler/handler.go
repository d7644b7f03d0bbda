package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Dan9191/lease-service/internal/models"
	"github.com/Dan9191/lease-service/internal/repository"
	"github.com/Dan9191/lease-service/internal/service"
	"github.com/Dan9191/lease-service/internal/utils"
	"github.com/sirupsen/logrus"
)

// EngineRunner triggers rent engine runs
type EngineRunner interface {
	RunRentEngine(ctx context.Context, opts service.RunOptions) (*models.RunSummary, error)
}

type Handler struct {
	engine EngineRunner
	loc    *time.Location
	log    *logrus.Logger
}

// NewHandler creates a handler; as_of dates are read as calendar days in loc
func NewHandler(engine EngineRunner, loc *time.Location, log *logrus.Logger) *Handler {
	return &Handler{engine: engine, loc: loc, log: log}
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RunRentEngine handles an on-demand rent engine run.
// Optional query parameters: lease_id, historical_only, as_of (YYYY-MM-DD).
func (h *Handler) RunRentEngine(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := service.RunOptions{LeaseID: q.Get("lease_id")}

	if v := q.Get("historical_only"); v != "" {
		historicalOnly, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "historical_only must be a boolean", http.StatusBadRequest)
			return
		}
		opts.HistoricalOnly = historicalOnly
	}
	if v := q.Get("as_of"); v != "" {
		asOf, err := utils.ParseDate(v, h.loc)
		if err != nil {
			http.Error(w, "as_of must be formatted as YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		opts.AsOf = asOf
	}

	summary, err := h.engine.RunRentEngine(r.Context(), opts)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, summary)
	case errors.Is(err, service.ErrRunInProgress):
		writeJSON(w, http.StatusConflict, summary)
	case errors.Is(err, repository.ErrLeaseNotFound):
		writeJSON(w, http.StatusNotFound, summary)
	default:
		h.log.Errorf("Rent engine run failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, summary)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
