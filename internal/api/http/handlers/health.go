package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"swapstats/internal/service"
	"swapstats/internal/stores/ledger"
	"swapstats/pkg/httputil"

	"gitlab.com/nevasik7/alerting/logger"
)

type Handler struct {
	Log    logger.Logger
	Market *service.MarketService
}

func NewHandler(log logger.Logger, market *service.MarketService) *Handler {
	if market == nil {
		panic("market service cannot be nil")
	}

	return &Handler{Log: log, Market: market}
}

func (a *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	if err := httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"}, nil); err != nil {
		a.Log.Errorf("Healthz handler error: %s", err.Error())
	}
}

// Check health external services/clients
func (a *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if err := a.Market.CheckDependency(ctx); err != nil {
		a.Log.Warnf("Readiness check failed, error=%v", err)
		if err = httputil.Error(w, r, http.StatusServiceUnavailable, "dependencies_unhealthy", err.Error()); err != nil {
			a.Log.Errorf("Readiness handler error: %s", err.Error())
		}
		return
	}

	if err := httputil.JSON(w, http.StatusOK, map[string]string{"dependencies": "healthy"}, nil); err != nil {
		a.Log.Errorf("Readiness handler error: %s", err.Error())
	}
}

// ok writes v; name tags the log line of a failed write
func (a *Handler) ok(w http.ResponseWriter, name string, v any) {
	if err := httputil.JSON(w, http.StatusOK, v, nil); err != nil {
		a.Log.Errorf("%s handler error: %s", name, err.Error())
	}
}

// fail maps service errors onto the error envelope
func (a *Handler) fail(w http.ResponseWriter, r *http.Request, name string, err error) {
	status, code, msg := http.StatusInternalServerError, "internal", "internal error"
	switch {
	case errors.Is(err, service.ErrInvalidParam):
		status, code, msg = http.StatusBadRequest, "bad_request", err.Error()
	case errors.Is(err, ledger.ErrUUIDNotFound):
		status, code, msg = http.StatusNotFound, "not_found", err.Error()
	default:
		a.Log.Errorf("%s handler failed, error=%v", name, err)
	}

	if werr := httputil.Error(w, r, status, code, msg); werr != nil {
		a.Log.Errorf("%s handler error: %s", name, werr.Error())
	}
}
