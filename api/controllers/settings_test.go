package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/blogwatch/backend/api/middleware"
	"github.com/blogwatch/backend/internal/settings"
)

type testSettingsService struct {
	getFn         func(ctx context.Context, userKey string) (settings.Settings, error)
	updateFn      func(ctx context.Context, userKey string, params settings.UpdateParams) (settings.Settings, error)
	allKeywordsFn func(ctx context.Context) ([]string, error)
}

func (s *testSettingsService) Get(ctx context.Context, userKey string) (settings.Settings, error) {
	if s.getFn != nil {
		return s.getFn(ctx, userKey)
	}
	return settings.Defaults(userKey), nil
}

func (s *testSettingsService) GetAll(ctx context.Context) ([]settings.Settings, error) {
	return nil, nil
}

func (s *testSettingsService) Update(ctx context.Context, userKey string, params settings.UpdateParams) (settings.Settings, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, userKey, params)
	}
	return settings.Defaults(userKey), nil
}

func (s *testSettingsService) Keywords(ctx context.Context, userKey string) ([]string, error) {
	return nil, nil
}

func (s *testSettingsService) AllKeywords(ctx context.Context) ([]string, error) {
	if s.allKeywordsFn != nil {
		return s.allKeywordsFn(ctx)
	}
	return nil, nil
}

func TestGetSettingsReturnsDefaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
	req = req.WithContext(middleware.WithUserKey(req.Context(), "settings-user"))

	resp := httptest.NewRecorder()
	GetSettings(&testSettingsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data settings.Settings `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.UserKey != "settings-user" {
		t.Fatalf("unexpected user key %q", envelope.Data.UserKey)
	}
	if envelope.Data.Language != "en" {
		t.Fatalf("unexpected language %q", envelope.Data.Language)
	}
}

func TestUpdateSettingsForwardsPartialBody(t *testing.T) {
	var got settings.UpdateParams
	svc := &testSettingsService{
		updateFn: func(ctx context.Context, userKey string, params settings.UpdateParams) (settings.Settings, error) {
			got = params
			return settings.Defaults(userKey), nil
		},
	}

	body := `{"language":"hu","update_interval_minutes":30}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserKey(req.Context(), "settings-user"))

	resp := httptest.NewRecorder()
	UpdateSettings(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if got.Language == nil || *got.Language != "hu" {
		t.Fatalf("language not forwarded: %+v", got)
	}
	if got.UpdateIntervalMinutes == nil || *got.UpdateIntervalMinutes != 30 {
		t.Fatalf("interval not forwarded: %+v", got)
	}
	if got.Keywords != nil {
		t.Fatal("untouched fields must stay nil")
	}
}

func TestUpdateSettingsRejectsUnknownFields(t *testing.T) {
	body := `{"volume":11}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserKey(req.Context(), "settings-user"))

	resp := httptest.NewRecorder()
	UpdateSettings(&testSettingsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestUpdateSettingsRejectsBadLanguage(t *testing.T) {
	body := `{"language":"de"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserKey(req.Context(), "settings-user"))

	resp := httptest.NewRecorder()
	UpdateSettings(&testSettingsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestKeywordsEndpoint(t *testing.T) {
	svc := &testSettingsService{
		allKeywordsFn: func(ctx context.Context) ([]string, error) {
			return []string{"outage", "security"}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/keywords", nil)
	resp := httptest.NewRecorder()
	Keywords(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data map[string][]string `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(envelope.Data["keywords"]) != 2 {
		t.Fatalf("unexpected keywords %v", envelope.Data["keywords"])
	}
}
