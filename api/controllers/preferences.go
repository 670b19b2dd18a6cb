package controllers

import (
	"net/http"

	"github.com/angelmondragon/pushrelay-backend/api/middleware"
	"github.com/angelmondragon/pushrelay-backend/api/responses"
	"github.com/angelmondragon/pushrelay-backend/api/validators"
	"github.com/angelmondragon/pushrelay-backend/internal/preferences"
	pkgerrors "github.com/angelmondragon/pushrelay-backend/pkg/errors"
	"github.com/angelmondragon/pushrelay-backend/pkg/logger"
)

// GetPreferences returns the caller's notification preferences, creating defaults on first read.
func GetPreferences(svc preferences.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "preferences service unavailable"))
			return
		}

		prefs, err := svc.Get(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPreferencesView(prefs))
	}
}

func UpdatePreferences(svc preferences.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "preferences service unavailable"))
			return
		}

		var body preferences.UpdateInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		prefs, err := svc.Update(r.Context(), middleware.UserIDFromContext(r.Context()), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPreferencesView(prefs))
	}
}
