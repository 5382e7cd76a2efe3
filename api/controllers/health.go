package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/pisakart/pisakart-backend/api/responses"
	"github.com/pisakart/pisakart-backend/pkg/config"
	"github.com/pisakart/pisakart-backend/pkg/docstore"
	pkgerrors "github.com/pisakart/pisakart-backend/pkg/errors"
	"github.com/pisakart/pisakart-backend/pkg/logger"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PisaKart-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness only when the document store answers a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, store docstore.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PisaKart-Env", cfg.App.Env)

		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "document store not wired"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "document store unreachable"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
