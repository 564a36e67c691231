package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/blogwatch/backend/api/responses"
	"github.com/blogwatch/backend/pkg/config"
	"github.com/blogwatch/backend/pkg/db"
	"github.com/blogwatch/backend/pkg/logger"
)

const envHeader = "X-Blogwatch-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database before reporting ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		checks := map[string]string{"db": "ok"}
		status := http.StatusOK

		if dbP != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := dbP.Ping(ctx); err != nil {
				if logg != nil {
					logg.Error(r.Context(), "readiness db ping failed", err)
				}
				checks["db"] = "unreachable"
				status = http.StatusServiceUnavailable
			}
		}

		state := "ready"
		if status != http.StatusOK {
			state = "degraded"
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"status": state,
			"checks": checks,
		})
	}
}
