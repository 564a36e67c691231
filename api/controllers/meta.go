package controllers

import (
	"net/http"

	"github.com/blogwatch/backend/api/responses"
	"github.com/blogwatch/backend/internal/posts"
	"github.com/blogwatch/backend/internal/settings"
	pkgerrors "github.com/blogwatch/backend/pkg/errors"
	"github.com/blogwatch/backend/pkg/logger"
)

// Locations lists the distinct post locations seen so far, for filter UIs.
func Locations(repo posts.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "posts repository unavailable"))
			return
		}

		locations, err := repo.DistinctLocations(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if locations == nil {
			locations = []string{}
		}
		responses.WriteSuccess(w, map[string][]string{"locations": locations})
	}
}

// Keywords lists the global keyword vocabulary, for filter UIs.
func Keywords(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		keywords, err := svc.AllKeywords(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if keywords == nil {
			keywords = []string{}
		}
		responses.WriteSuccess(w, map[string][]string{"keywords": keywords})
	}
}
