package controllers

import (
	"net/http"

	"github.com/blogwatch/backend/api/middleware"
	"github.com/blogwatch/backend/api/responses"
	"github.com/blogwatch/backend/api/validators"
	"github.com/blogwatch/backend/internal/subscriptions"
	"github.com/blogwatch/backend/pkg/config"
	pkgerrors "github.com/blogwatch/backend/pkg/errors"
	"github.com/blogwatch/backend/pkg/logger"
)

type subscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
	Keys     struct {
		Auth   string `json:"auth" validate:"required"`
		P256dh string `json:"p256dh" validate:"required"`
	} `json:"keys" validate:"required"`
	DeviceID string `json:"device_id,omitempty"`
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
}

// PushPublicKey exposes the VAPID public key browsers need to subscribe.
func PushPublicKey(cfg config.PushConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.VAPIDPublicKey == "" {
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeDependency, "push delivery is not configured"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"public_key": cfg.VAPIDPublicKey})
	}
}

// Subscribe registers or refreshes the caller's push subscription.
func Subscribe(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscriptions service unavailable"))
			return
		}

		var req subscribeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userKey := middleware.UserKeyFromContext(r.Context())
		sub, err := svc.Subscribe(r.Context(), subscriptions.SubscribeParams{
			Endpoint: req.Endpoint,
			Auth:     req.Keys.Auth,
			P256dh:   req.Keys.P256dh,
			UserKey:  &userKey,
			DeviceID: req.DeviceID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"id":        sub.ID,
			"device_id": sub.DeviceID,
		})
	}
}

// Unsubscribe removes the subscription for the given endpoint.
func Unsubscribe(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscriptions service unavailable"))
			return
		}

		var req unsubscribeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Unsubscribe(r.Context(), req.Endpoint); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"unsubscribed": true})
	}
}
