package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/questboard/questboard-api/internal/domain/ledger"
	"github.com/questboard/questboard-api/internal/domain/quest"
	"github.com/questboard/questboard-api/internal/domain/treasury"
	"github.com/questboard/questboard-api/internal/middleware"
	"github.com/questboard/questboard-api/internal/pkg/jwt"
)

func testRouter() http.Handler {
	return newRouter(routes{
		auth:     middleware.Auth(jwt.NewService("test-secret", time.Minute)),
		origins:  []string{"http://localhost:3000"},
		quests:   quest.NewHandler(nil),
		treasury: treasury.NewHandler(nil),
		wallet:   ledger.NewHandler(nil),
	})
}

func TestHealthIsPublic(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	testRouter().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}

func TestAPIRoutesRequireToken(t *testing.T) {
	cases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/quests"},
		{http.MethodPost, "/api/v1/quests/7b0c6f4e-3f7e-4a52-9f0e-1d2a3b4c5d6e/approve"},
		{http.MethodPost, "/api/v1/submissions/7b0c6f4e-3f7e-4a52-9f0e-1d2a3b4c5d6e/review"},
		{http.MethodGet, "/api/v1/wallet"},
		{http.MethodGet, "/api/v1/admin/platform"},
	}

	router := testRouter()
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected status 401, got %d", rr.Code)
			}
		})
	}
}

func TestMetricsIsPublic(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	testRouter().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}
