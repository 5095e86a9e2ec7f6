package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-coursestore/internal/platform/logger"
)

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		pings  map[string]Pinger
		status int
		body   string
	}{
		{"no deps", nil, http.StatusOK, "ok"},
		{"db up", map[string]Pinger{"db": func(context.Context) error { return nil }}, http.StatusOK, "ok"},
		{"redis down", map[string]Pinger{"redis": func(context.Context) error { return errors.New("dial tcp: refused") }}, http.StatusServiceUnavailable, "redis unavailable"},
	}
	for _, tc := range cases {
		h := NewHealthHandler(logger.Nop(), tc.pings)
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Request = httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
		h.HealthCheck(c)
		if rec.Code != tc.status || rec.Body.String() != tc.body {
			t.Fatalf("%s: want=%d %q got=%d %q", tc.name, tc.status, tc.body, rec.Code, rec.Body.String())
		}
	}
}
