package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/pushrelay-backend/api/responses"
	"github.com/angelmondragon/pushrelay-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/pushrelay-backend/pkg/errors"
	"github.com/angelmondragon/pushrelay-backend/pkg/logger"
)

const (
	envHeader         = "X-PushRelay-Env"
	readyCheckTimeout  = 2 * time.Second
)

// Pinger is any backing dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessCheck names a dependency probed by the ready endpoint.
type ReadinessCheck struct {
	Name   string
	Pinger Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every registered dependency and reports 503 when any fails.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks ...ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		failed := map[string]string{}
		for _, check := range checks {
			if check.Pinger == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
			err := check.Pinger.Ping(ctx)
			cancel()
			if err != nil {
				failed[check.Name] = err.Error()
			}
		}

		if len(failed) > 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(failed))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
