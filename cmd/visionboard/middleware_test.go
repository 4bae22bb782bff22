package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"github.com/BaSui01/visionboard/config"
	"github.com/BaSui01/visionboard/internal/metrics"
	"github.com/BaSui01/visionboard/types"
)

var testNamespaceSeq uint64

func nextNamespace() string {
	return fmt.Sprintf("cmdtest_%d", atomic.AddUint64(&testNamespaceSeq, 1))
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var env struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &env))
	assert.False(t, env.Success)
	return env.Error.Code
}

// =============================================================================
// ✍️ statusRecorder
// =============================================================================

func TestStatusRecorder_PassesFlushThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newStatusRecorder(rec)

	_, err := rw.Write([]byte("line\n"))
	require.NoError(t, err)
	require.NoError(t, http.NewResponseController(rw).Flush())

	assert.True(t, rec.Flushed)
	assert.Equal(t, http.StatusOK, rw.statusCode)
	assert.EqualValues(t, 5, rw.bytesWritten)
	assert.Same(t, rec, rw.Unwrap())
}

func TestStatusRecorder_FirstWriteHeaderWins(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newStatusRecorder(rec)
	rw.WriteHeader(http.StatusAccepted)
	rw.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusAccepted, rw.statusCode)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

// 多层包装后仍能逐事件刷新
func TestChain_StreamingSurvivesWrappers(t *testing.T) {
	collector := metrics.NewCollector(nextNamespace(), nil)
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}\n"))
		w.(http.Flusher).Flush()
	}), RequestLogger(zap.NewNop()), MetricsMiddleware(collector), OTelTracing())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/boards/generate", nil))
	assert.True(t, rec.Flushed)
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	Chain(okHandler, mark("a"), mark("b"), mark("c")).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

// =============================================================================
// 🛡️ 基础中间件
// =============================================================================

func TestRecovery_WritesEnvelope(t *testing.T) {
	h := Recovery(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, string(types.ErrInternalError), errorCode(t, rec.Body.Bytes()))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = types.RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Regexp(t, `^req-[0-9a-f]{32}$`, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-42")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "client-42", seen)
	assert.Equal(t, "client-42", rec.Header().Get("X-Request-ID"))
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders()(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://app.example.com"})(okHandler)

	t.Run("allowed preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/boards/generate", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "X-Run-ID")
	})

	t.Run("unknown origin preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("same origin request", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

// =============================================================================
// 📊 指标与追踪
// =============================================================================

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/api/v1/boards/generate", "/api/v1/boards/generate"},
		{"/api/v1/boards/capabilities", "/api/v1/boards/capabilities"},
		{"/health", "/health"},
		{"/api/v1/boards/runs/5f0cbe9e-1a2b-4c3d-8e9f-0a1b2c3d4e5f/events", "/api/v1/boards/runs/:id/events"},
		{"/api/v1/boards/artifacts/12345", "/api/v1/boards/artifacts/:id"},
		{"/api/v1/boards/artifacts/nice-name", "/api/v1/boards/artifacts/nice-name"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizePath(tt.in), tt.in)
	}
}

func TestMetricsMiddleware_RecordsRequest(t *testing.T) {
	ns := nextNamespace()
	collector := metrics.NewCollector(ns, nil)
	h := MetricsMiddleware(collector)(okHandler)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/boards/artifacts/12345", nil))

	count, err := testutil.GatherAndCount(prometheus.DefaultGatherer, ns+"_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestOTelTracing_RecordsServerSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var traceID string
	h := OTelTracing()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID, _ = types.TraceID(r.Context())
		w.WriteHeader(http.StatusBadGateway)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/boards/runs/12345/events", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/v1/boards/runs/:id/events", spans[0].Name())
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), traceID)

	var status int64
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "http.response.status_code" {
			status = kv.Value.AsInt64()
		}
	}
	assert.EqualValues(t, http.StatusBadGateway, status)
}

// =============================================================================
// 🔐 认证
// =============================================================================

func TestAPIKeyAuth(t *testing.T) {
	h := APIKeyAuth([]string{"k1"}, []string{"/health"}, true, zap.NewNop())(okHandler)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"skip path", "/health", "", http.StatusOK},
		{"missing key", "/api/v1/boards/capabilities", "", http.StatusUnauthorized},
		{"wrong key", "/api/v1/boards/capabilities", "nope", http.StatusUnauthorized},
		{"header key", "/api/v1/boards/capabilities", "k1", http.StatusOK},
		{"query key", "/api/v1/boards/capabilities?api_key=k1", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Equal(t, string(types.ErrUnauthorized), errorCode(t, rec.Body.Bytes()))
			}
		})
	}
}

func TestAPIKeyAuth_QueryKeyDisabled(t *testing.T) {
	h := APIKeyAuth([]string{"k1"}, nil, false, zap.NewNop())(okHandler)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x?api_key=k1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWTAuth_SetsOwner(t *testing.T) {
	cfg := config.JWTConfig{Secret: "s3cret", Issuer: "visionboard"}
	var owner string
	var hasOwner bool
	h := JWTAuth(cfg, []string{"/health"}, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, hasOwner = types.OwnerID(r.Context())
	}))

	token := signHS256(t, "s3cret", jwt.MapClaims{
		"user_id": "alice",
		"iss":     "visionboard",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/boards/generate", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, hasOwner)
	assert.Equal(t, "alice", owner)
}

func TestJWTAuth_Rejects(t *testing.T) {
	cfg := config.JWTConfig{Secret: "s3cret", Issuer: "visionboard"}
	h := JWTAuth(cfg, []string{"/health"}, zap.NewNop())(okHandler)

	valid := jwt.MapClaims{"user_id": "alice", "iss": "visionboard", "exp": time.Now().Add(time.Hour).Unix()}
	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"skip path", "/health", "", http.StatusOK},
		{"missing header", "/api/v1/boards/generate", "", http.StatusUnauthorized},
		{"not bearer", "/api/v1/boards/generate", "Basic abc", http.StatusUnauthorized},
		{"wrong secret", "/api/v1/boards/generate", "Bearer " + signHS256(t, "other", valid), http.StatusUnauthorized},
		{"wrong issuer", "/api/v1/boards/generate", "Bearer " + signHS256(t, "s3cret", jwt.MapClaims{
			"user_id": "alice", "iss": "someone-else", "exp": time.Now().Add(time.Hour).Unix(),
		}), http.StatusUnauthorized},
		{"expired", "/api/v1/boards/generate", "Bearer " + signHS256(t, "s3cret", jwt.MapClaims{
			"user_id": "alice", "iss": "visionboard", "exp": time.Now().Add(-time.Hour).Unix(),
		}), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Equal(t, string(types.ErrAuthentication), errorCode(t, rec.Body.Bytes()))
			}
		})
	}
}

// =============================================================================
// 🚦 限流
// =============================================================================

func TestRateLimiter_PerIP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := RateLimiter(ctx, 0.001, 1, zap.NewNop())(okHandler)

	do := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("192.0.2.1:1000"))
	assert.Equal(t, http.StatusTooManyRequests, do("192.0.2.1:1001"))
	assert.Equal(t, http.StatusOK, do("192.0.2.2:1000"))
}
