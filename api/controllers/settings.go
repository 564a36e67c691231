package controllers

import (
	"net/http"

	"github.com/blogwatch/backend/api/middleware"
	"github.com/blogwatch/backend/api/responses"
	"github.com/blogwatch/backend/api/validators"
	"github.com/blogwatch/backend/internal/settings"
	pkgerrors "github.com/blogwatch/backend/pkg/errors"
	"github.com/blogwatch/backend/pkg/logger"
)

// GetSettings returns the caller's notification settings, defaults included.
func GetSettings(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		userKey := middleware.UserKeyFromContext(r.Context())
		result, err := svc.Get(r.Context(), userKey)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// UpdateSettings applies a partial settings update and returns the merged view.
func UpdateSettings(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		var params settings.UpdateParams
		if err := validators.DecodeJSONBody(r, &params); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userKey := middleware.UserKeyFromContext(r.Context())
		result, err := svc.Update(r.Context(), userKey, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
