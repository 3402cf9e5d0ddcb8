package middleware_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-attendance/internal/middleware"
	"go-attendance/internal/shared/apperror"
	"go-attendance/internal/shared/contextutil"
	"go-attendance/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func decodeEnvelope(t *testing.T, body string) response.ApiEnvelope {
	t.Helper()
	var env response.ApiEnvelope
	assert.NoError(t, json.Unmarshal([]byte(body), &env))
	return env
}

func TestContextLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(middleware.ContextLogger(zap.NewNop()))
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, contextutil.GetRequestID(c.Request.Context()))
	})

	t.Run("reuses caller request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(middleware.RequestIDHeader, "req-42")
		r.ServeHTTP(w, req)

		assert.Equal(t, "req-42", w.Body.String())
		assert.Equal(t, "req-42", w.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("generates one when missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

		assert.NotEmpty(t, w.Body.String())
		assert.Equal(t, w.Body.String(), w.Header().Get(middleware.RequestIDHeader))
	})
}

func TestRateLimitByIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	apperror.Init()

	r := gin.New()
	r.Use(middleware.RateLimitByIP(rate.Limit(0.001), 1))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(ip string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = ip + ":1234"
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)

	w := send("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	env := decodeEnvelope(t, w.Body.String())
	assert.False(t, env.Success)
	assert.Equal(t, apperror.CodeTooManyRequests, env.Code)

	assert.Equal(t, http.StatusOK, send("10.0.0.2").Code)
}

func TestRateLimitByIP_ExemptRoutesUseTheirOwnBucket(t *testing.T) {
	gin.SetMode(gin.TestMode)
	apperror.Init()

	writes := []string{"POST /api/attendance"}
	r := gin.New()
	r.Use(
		middleware.RateLimitByIP(rate.Limit(0.001), 1, writes...),
		middleware.RateLimitRoutesByIP(rate.Limit(0.001), 3, writes...),
	)
	r.GET("/api/students", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/attendance", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(method, path string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, nil)
		req.RemoteAddr = "10.0.0.9:1234"
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send(http.MethodGet, "/api/students"))
	assert.Equal(t, http.StatusTooManyRequests, send(http.MethodGet, "/api/students"))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, send(http.MethodPost, "/api/attendance"), "write %d", i)
	}
	assert.Equal(t, http.StatusTooManyRequests, send(http.MethodPost, "/api/attendance"))
}

func TestIPRateLimiter_GetLimiterIsStable(t *testing.T) {
	l := middleware.NewIPRateLimiter(rate.Limit(1), 1)
	assert.Same(t, l.GetLimiter("a"), l.GetLimiter("a"))
	assert.NotSame(t, l.GetLimiter("a"), l.GetLimiter("b"))
}

func newIdempotencyRouter(t *testing.T, calls *int) (*gin.Engine, redismock.ClientMock) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	apperror.Init()

	rdb, mock := redismock.NewClientMock()
	r := gin.New()
	r.POST("/batch", middleware.Idempotency(rdb), func(c *gin.Context) {
		*calls++
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r, mock
}

func postBatch(r *gin.Engine, key string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/batch", strings.NewReader(`{}`))
	req.RemoteAddr = "192.0.2.1:5000"
	if key != "" {
		req.Header.Set(middleware.IdempotencyHeader, key)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency(t *testing.T) {
	cacheKey := middleware.IdempotencyCacheKey("/batch", "192.0.2.1", "k1")
	lockKey := cacheKey + ":lock"

	t.Run("no header passes through", func(t *testing.T) {
		calls := 0
		r, mock := newIdempotencyRouter(t, &calls)

		w := postBatch(r, "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("first request stores the response", func(t *testing.T) {
		calls := 0
		r, mock := newIdempotencyRouter(t, &calls)
		mock.ExpectGet(cacheKey).RedisNil()
		mock.ExpectSetNX(lockKey, "locked", 30*time.Second).SetVal(true)
		mock.ExpectSet(cacheKey, []byte(`{"ok":true}`), 24*time.Hour).SetVal("OK")
		mock.ExpectDel(lockKey).SetVal(1)

		w := postBatch(r, "k1")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ok":true}`, w.Body.String())
		assert.Equal(t, 1, calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("repeat replays stored response", func(t *testing.T) {
		calls := 0
		r, mock := newIdempotencyRouter(t, &calls)
		mock.ExpectGet(cacheKey).SetVal(`{"ok":true}`)

		w := postBatch(r, "k1")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, `{"ok":true}`, w.Body.String())
		assert.Equal(t, "true", w.Header().Get("Idempotent-Replay"))
		assert.Equal(t, 0, calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("in-flight duplicate is rejected", func(t *testing.T) {
		calls := 0
		r, mock := newIdempotencyRouter(t, &calls)
		mock.ExpectGet(cacheKey).RedisNil()
		mock.ExpectSetNX(lockKey, "locked", 30*time.Second).SetVal(false)

		w := postBatch(r, "k1")

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, apperror.CodeProcessing, decodeEnvelope(t, w.Body.String()).Code)
		assert.Equal(t, 0, calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis failure fails open", func(t *testing.T) {
		calls := 0
		r, mock := newIdempotencyRouter(t, &calls)
		mock.ExpectGet(cacheKey).SetErr(errors.New("redis down"))
		mock.ExpectSetNX(lockKey, "locked", 30*time.Second).SetErr(errors.New("redis down"))

		w := postBatch(r, "k1")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestHTTPMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	metrics := middleware.NewHTTPMetrics(reg)

	r := gin.New()
	r.Use(metrics.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", middleware.MetricsHandler(reg))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `attendance_http_requests_total{method="GET",route="/ping",status="204"} 1`)
	assert.Contains(t, body, `attendance_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
	assert.Contains(t, body, `attendance_http_request_duration_seconds_count{method="GET",route="/ping"} 1`)
}
