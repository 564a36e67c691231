package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/blogwatch/backend/api/responses"
	"github.com/blogwatch/backend/api/validators"
	"github.com/blogwatch/backend/internal/posts"
	pkgerrors "github.com/blogwatch/backend/pkg/errors"
	"github.com/blogwatch/backend/pkg/logger"
)

// ListPosts returns the most recently published posts.
func ListPosts(repo posts.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "posts repository unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 25, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := repo.ListLatest(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// GetPost returns a single post by its content-addressed id.
func GetPost(repo posts.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "posts repository unavailable"))
			return
		}

		post, err := repo.GetByID(r.Context(), chi.URLParam(r, "postId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, post)
	}
}
