package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestKeyByIPAndJSONField(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader(`{"email":" Test@Example.com "}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.RemoteAddr = "1.2.3.4:5678"

	key := KeyByIPAndJSONField("email")(c)
	if key != "test@example.com|1.2.3.4" {
		t.Fatalf("key want test@example.com|1.2.3.4 got %s", key)
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		t.Fatalf("read body after key extraction failed: %v", err)
	}
	if !strings.Contains(string(body), "Test@Example.com") {
		t.Fatalf("request body should be restored after reading field")
	}
}

func TestRateLimitMiddlewareLocalFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimitMiddleware(nil, RateLimitRule{Prefix: "lookup", WindowSeconds: 60, MaxRequests: 2}, KeyByIPAndQuery("mobile")))
	r.GET("/lookup", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	do := func(mobile string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/lookup?mobile="+mobile, nil)
		req.RemoteAddr = "1.2.3.4:5678"
		r.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := do("0501234567"); w.Code != http.StatusOK {
			t.Fatalf("request %d want 200 got %d", i+1, w.Code)
		}
	}
	w := do("0501234567")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third request want 429 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"error":"rate_limited"`) {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
	if w := do("0559999999"); w.Code != http.StatusOK {
		t.Fatalf("different key should have its own bucket, got %d", w.Code)
	}
}

func TestRateLimitMiddlewareDisabledRule(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimitMiddleware(nil, RateLimitRule{}, KeyByIP))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("disabled rule should pass through, got %d", w.Code)
		}
	}
}

func TestLocalLimiterRefillsAfterWindow(t *testing.T) {
	now := time.Unix(1700000000, 0)
	limiter := newLocalLimiter(RateLimitRule{WindowSeconds: 10, MaxRequests: 1})
	limiter.now = func() time.Time { return now }

	if ok, _ := limiter.allow("k"); !ok {
		t.Fatalf("first request should pass")
	}
	ok, wait := limiter.allow("k")
	if ok || wait < 1 || wait > 10 {
		t.Fatalf("second request should be blocked with wait in (0,10], got ok=%v wait=%d", ok, wait)
	}
	now = now.Add(11 * time.Second)
	if ok, _ := limiter.allow("k"); !ok {
		t.Fatalf("bucket should refill after the window")
	}
}

func TestToInt64(t *testing.T) {
	cases := []struct {
		name  string
		input interface{}
		want  int64
		ok    bool
	}{
		{name: "int64", input: int64(10), want: 10, ok: true},
		{name: "int", input: int(11), want: 11, ok: true},
		{name: "uint8", input: uint8(12), want: 12, ok: true},
		{name: "float64", input: float64(13.9), want: 13, ok: true},
		{name: "string", input: "bad", want: 0, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := toInt64(tc.input)
			if ok != tc.ok {
				t.Fatalf("ok want %v got %v", tc.ok, ok)
			}
			if got != tc.want {
				t.Fatalf("value want %d got %d", tc.want, got)
			}
		})
	}
}
