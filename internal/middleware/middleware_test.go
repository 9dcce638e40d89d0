package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingcards/internal/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func okRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping/:id", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	return r
}

func get(r http.Handler, target, remote string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_PerClient(t *testing.T) {
	m := metrics.New("test")
	rl := NewRateLimiter(1, 2, m)
	r := okRouter(rl.Middleware())

	assert.Equal(t, http.StatusOK, get(r, "/ping/1", "10.0.0.1:1000", nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/ping/1", "10.0.0.1:1000", nil).Code)

	w := get(r, "/ping/1", "10.0.0.1:1000", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"too many requests"}`, w.Body.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitedTotal))

	assert.Equal(t, http.StatusOK, get(r, "/ping/1", "10.0.0.2:1000", nil).Code, "other clients have their own bucket")
}

func TestRateLimiter_Disabled(t *testing.T) {
	r := okRouter(NewRateLimiter(0, 0, nil).Middleware())
	for i := 0; i < 10; i++ {
		require.Equal(t, http.StatusOK, get(r, "/ping/1", "10.0.0.1:1000", nil).Code)
	}
}

func TestRateLimiter_Sweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(5, 5, nil)
	rl.now = func() time.Time { return now }

	rl.limiterFor("a")
	now = now.Add(2 * time.Minute)
	rl.limiterFor("b")
	now = now.Add(2 * time.Minute)

	assert.Equal(t, 1, rl.Sweep(3*time.Minute))
	assert.Len(t, rl.visitors, 1)
	assert.Contains(t, rl.visitors, "b")
}

func TestRequestID(t *testing.T) {
	r := okRouter(RequestID())

	w := get(r, "/ping/1", "", nil)
	id := w.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, w.Body.String())

	inbound := uuid.NewString()
	w = get(r, "/ping/1", "", http.Header{RequestIDHeader: {inbound}})
	assert.Equal(t, inbound, w.Header().Get(RequestIDHeader))

	w = get(r, "/ping/1", "", http.Header{RequestIDHeader: {"not-a-uuid"}})
	assert.NotEqual(t, "not-a-uuid", w.Header().Get(RequestIDHeader))
}

func TestInstrument(t *testing.T) {
	m := metrics.New("test")
	r := okRouter(Instrument(m))

	get(r, "/ping/1", "", nil)
	get(r, "/ping/2", "", nil)
	get(r, "/missing", "", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/ping/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestAccessLog_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := okRouter(RequestID(), AccessLog(logger))

	get(r, "/ping/1?x=1", "", nil)
	assert.Contains(t, buf.String(), "level=INFO")
	assert.Contains(t, buf.String(), "path=/ping/1")
	assert.Contains(t, buf.String(), "x=1")
	assert.Contains(t, buf.String(), "request_id=")

	buf.Reset()
	get(r, "/boom", "", nil)
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "status=500")
}
