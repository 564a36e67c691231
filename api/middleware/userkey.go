package middleware

import (
	"net/http"
	"strings"

	"github.com/blogwatch/backend/api/responses"
	pkgerrors "github.com/blogwatch/backend/pkg/errors"
	"github.com/blogwatch/backend/pkg/logger"
)

const userKeyHeader = "X-User-Key"

const maxUserKeyLen = 128

// UserKey extracts the caller identity from the X-User-Key header. Identity
// is self-asserted; real authentication lives in front of this service.
func UserKey(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userKey := strings.TrimSpace(r.Header.Get(userKeyHeader))
			if userKey == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "X-User-Key header required"))
				return
			}
			if len(userKey) > maxUserKeyLen {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "user key too long"))
				return
			}

			ctx := WithUserKey(r.Context(), userKey)
			if logg != nil {
				ctx = logg.WithUserKey(ctx, userKey)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
