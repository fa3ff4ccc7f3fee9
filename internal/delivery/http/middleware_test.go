package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestIsAllowedOrigin(t *testing.T) {
	tests := []struct {
		name           string
		origin         string
		allowedOrigins []string
		want           bool
	}{
		{
			name:           "exact match",
			origin:         "chrome-extension://abcdefg12345",
			allowedOrigins: []string{"chrome-extension://abcdefg12345"},
			want:           true,
		},
		{
			name:           "wildcard match",
			origin:         "chrome-extension://abcdefg12345",
			allowedOrigins: []string{"chrome-extension://*"},
			want:           true,
		},
		{
			name:           "multiple allowed origins - matches first",
			origin:         "chrome-extension://abcdefg12345",
			allowedOrigins: []string{"chrome-extension://*", "http://localhost:3000"},
			want:           true,
		},
		{
			name:           "multiple allowed origins - matches second",
			origin:         "http://localhost:3000",
			allowedOrigins: []string{"chrome-extension://*", "http://localhost:3000"},
			want:           true,
		},
		{
			name:           "no match",
			origin:         "http://evil.com",
			allowedOrigins: []string{"chrome-extension://*"},
			want:           false,
		},
		{
			name:           "empty origin",
			origin:         "",
			allowedOrigins: []string{"chrome-extension://*"},
			want:           false,
		},
		{
			name:           "empty allowed list",
			origin:         "chrome-extension://abcdefg12345",
			allowedOrigins: []string{},
			want:           false,
		},
		{
			name:           "subdomain wildcard match",
			origin:         "https://anipet.lionwheel.com",
			allowedOrigins: []string{"https://*.lionwheel.com"},
			want:           true,
		},
		{
			name:           "subdomain wildcard rejects other domain",
			origin:         "https://lionwheel.com.evil.io",
			allowedOrigins: []string{"https://*.lionwheel.com"},
			want:           false,
		},
		{
			name:           "empty wildcard run matches",
			origin:         "https://.lionwheel.com",
			allowedOrigins: []string{"https://*.lionwheel.com"},
			want:           true,
		},
		{
			name:           "partial wildcard match",
			origin:         "chrome-extension://abcdefg12345",
			allowedOrigins: []string{"chrome-*"},
			want:           true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isAllowedOrigin(tt.origin, tt.allowedOrigins)
			if got != tt.want {
				t.Errorf("isAllowedOrigin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		origin         string
		allowedOrigins []string
		method         string
		wantStatus     int
		checkHeaders   bool
		wantCORS       bool
	}{
		{
			name:           "allowed origin - GET request",
			origin:         "chrome-extension://abcdefg12345",
			allowedOrigins: []string{"chrome-extension://*"},
			method:         "GET",
			wantStatus:     http.StatusOK,
			checkHeaders:   true,
			wantCORS:       true,
		},
		{
			name:           "allowed origin - OPTIONS request",
			origin:         "chrome-extension://abcdefg12345",
			allowedOrigins: []string{"chrome-extension://*"},
			method:         "OPTIONS",
			wantStatus:     http.StatusNoContent,
			checkHeaders:   true,
			wantCORS:       true,
		},
		{
			name:           "disallowed origin",
			origin:         "http://evil.com",
			allowedOrigins: []string{"chrome-extension://*"},
			method:         "GET",
			wantStatus:     http.StatusOK,
			checkHeaders:   true,
			wantCORS:       false,
		},
		{
			name:           "dashboard origin - GET request",
			origin:         "https://anipet.lionwheel.com",
			allowedOrigins: []string{"chrome-extension://*", "https://*.lionwheel.com"},
			method:         "GET",
			wantStatus:     http.StatusOK,
			checkHeaders:   true,
			wantCORS:       true,
		},
		{
			name:           "dashboard origin - OPTIONS request",
			origin:         "https://anipet.lionwheel.com",
			allowedOrigins: []string{"chrome-extension://*", "https://*.lionwheel.com"},
			method:         "OPTIONS",
			wantStatus:     http.StatusNoContent,
			checkHeaders:   true,
			wantCORS:       true,
		},
		{
			name:           "dashboard lookalike host",
			origin:         "https://anipet.lionwheel.com.evil.io",
			allowedOrigins: []string{"chrome-extension://*", "https://*.lionwheel.com"},
			method:         "GET",
			wantStatus:     http.StatusOK,
			checkHeaders:   true,
			wantCORS:       false,
		},
		{
			name:           "dashboard over plain http",
			origin:         "http://anipet.lionwheel.com",
			allowedOrigins: []string{"chrome-extension://*", "https://*.lionwheel.com"},
			method:         "GET",
			wantStatus:     http.StatusOK,
			checkHeaders:   true,
			wantCORS:       false,
		},
		{
			name:           "no origin header",
			origin:         "",
			allowedOrigins: []string{"chrome-extension://*"},
			method:         "GET",
			wantStatus:     http.StatusOK,
			checkHeaders:   true,
			wantCORS:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup router
			router := gin.New()
			router.Use(CORSMiddleware(tt.allowedOrigins))
			router.GET("/test", func(c *gin.Context) {
				c.String(http.StatusOK, "OK")
			})

			// Create request
			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}

			// Record response
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			// Check status
			if w.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", w.Code, tt.wantStatus)
			}

			// Check CORS headers
			if tt.checkHeaders {
				corsHeader := w.Header().Get("Access-Control-Allow-Origin")
				if tt.wantCORS {
					if corsHeader != tt.origin {
						t.Errorf("Access-Control-Allow-Origin = %s, want %s", corsHeader, tt.origin)
					}
					if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
						t.Errorf("Access-Control-Allow-Credentials not set to true")
					}
				} else {
					if corsHeader != "" {
						t.Errorf("Access-Control-Allow-Origin should not be set for disallowed origin, got %s", corsHeader)
					}
				}
			}
		})
	}
}

func TestCORSMiddleware_PreflightRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(CORSMiddleware([]string{"chrome-extension://*"}))
	router.POST("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	// Create preflight request
	req := httptest.NewRequest("OPTIONS", "/test", nil)
	req.Header.Set("Origin", "chrome-extension://abcdefg12345")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Should return 204 No Content
	if w.Code != http.StatusNoContent {
		t.Errorf("Preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}

	// Check CORS headers
	if w.Header().Get("Access-Control-Allow-Origin") != "chrome-extension://abcdefg12345" {
		t.Errorf("Access-Control-Allow-Origin not set correctly")
	}
	if w.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Errorf("Access-Control-Allow-Methods not set")
	}
	if w.Header().Get("Access-Control-Allow-Headers") == "" {
		t.Errorf("Access-Control-Allow-Headers not set")
	}
	if w.Header().Get("Access-Control-Max-Age") == "" {
		t.Errorf("Access-Control-Max-Age not set")
	}
}

func TestCORSMiddleware_ExposesReportHeaders(t *testing.T) {
	router := gin.New()
	router.Use(CORSMiddleware([]string{"https://*.lionwheel.com"}))
	router.POST("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	req := httptest.NewRequest("POST", "/test", nil)
	req.Header.Set("Origin", "https://tasks.lionwheel.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if !strings.Contains(w.Header().Get("Access-Control-Expose-Headers"), "X-Imagefinder-Matched") {
		t.Errorf("Access-Control-Expose-Headers = %q, want report headers", w.Header().Get("Access-Control-Expose-Headers"))
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitMiddleware(60, 2))
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	send := func(ip string) int {
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("10.0.0.1"); code != http.StatusOK {
			t.Fatalf("request %d: Status = %d, want %d", i, code, http.StatusOK)
		}
	}
	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("Status = %d, want %d once the burst is spent", code, http.StatusTooManyRequests)
	}
	if code := send("10.0.0.2"); code != http.StatusOK {
		t.Errorf("other client Status = %d, want %d", code, http.StatusOK)
	}
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitMiddleware(0, 0))
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	for i := 0; i < 50; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: Status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}
}

func TestIPLimiter_ForgetsIdleClients(t *testing.T) {
	limiter := newIPLimiter(60, 1)
	now := time.Now()

	limiter.allow("10.0.0.1", now)
	limiter.allow("10.0.0.2", now.Add(11*time.Minute))

	if _, ok := limiter.limiters["10.0.0.1"]; ok {
		t.Error("idle client still tracked")
	}
	if len(limiter.limiters) != 1 {
		t.Errorf("tracked clients = %d, want 1", len(limiter.limiters))
	}
}

func TestLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(&buf), zap.InfoLevel)

	router := gin.New()
	router.Use(LoggerMiddleware(zap.New(core)))
	router.GET("/items/:id", func(c *gin.Context) {
		c.String(http.StatusNotFound, "missing")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/items/7", nil))

	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("log = %s, want warn level for 404", out)
	}
	if !strings.Contains(out, `"path":"/items/:id"`) {
		t.Errorf("log = %s, want route path", out)
	}
	if !strings.Contains(out, `"status":404`) {
		t.Errorf("log = %s, want status", out)
	}
}
