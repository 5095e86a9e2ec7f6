package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-coursestore/internal/observability"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/logger"
)

func actorEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	am := NewActorMiddleware(logger.Nop())
	r := gin.New()
	r.Use(AttachTraceContext(), am.AttachActor())
	r.GET("/open", func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		if rd == nil {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, rd.UserID.String()+"|"+rd.UserName)
	})
	r.GET("/closed", am.RequireActor(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestActorMiddleware(t *testing.T) {
	r := actorEngine()
	id := uuid.New()

	cases := []struct {
		name   string
		path   string
		userID string
		user   string
		status int
		body   string
	}{
		{"anonymous open", "/open", "", "", http.StatusOK, "anonymous"},
		{"identified", "/open", id.String(), "  Ada  ", http.StatusOK, id.String() + "|Ada"},
		{"malformed id", "/open", "not-a-uuid", "", http.StatusUnauthorized, "unauthorized"},
		{"nil id", "/open", uuid.Nil.String(), "", http.StatusUnauthorized, "unauthorized"},
		{"long name", "/open", id.String(), strings.Repeat("x", 121), http.StatusUnauthorized, "unauthorized"},
		{"closed anonymous", "/closed", "", "", http.StatusUnauthorized, "missing X-User-Id"},
		{"closed identified", "/closed", id.String(), "", http.StatusNoContent, ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.userID != "" {
			req.Header.Set(HeaderUserID, tc.userID)
		}
		if tc.user != "" {
			req.Header.Set(HeaderUserName, tc.user)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Fatalf("%s: status want=%d got=%d", tc.name, tc.status, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), tc.body) {
			t.Fatalf("%s: body want~=%q got=%q", tc.name, tc.body, rec.Body.String())
		}
	}
}

func TestAttachTraceContext_EchoesRequestID(t *testing.T) {
	r := actorEngine()
	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set(headerRequestID, "req-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get(headerRequestID); got != "req-123" {
		t.Fatalf("request id: want=req-123 got=%q", got)
	}
	if rec.Header().Get(headerTraceID) == "" {
		t.Fatalf("trace id header missing")
	}
}

func TestMetricsMiddleware_RouteLabels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.New()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/api/courses/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, p := range []string{"/api/courses/1", "/api/courses/2", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`coursestore_api_requests_total{method="GET",route="/api/courses/:id",status="200"} 2`,
		`coursestore_api_requests_total{method="GET",route="unmatched",status="404"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("exposition missing %s", want)
		}
	}
}
