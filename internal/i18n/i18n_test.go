package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestResolveLocale(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		url    string
		header string
		want   string
	}{
		{name: "default", url: "/x", want: LocaleEN},
		{name: "query", url: "/x?lang=ar", want: LocaleAR},
		{name: "accept_language", url: "/x", header: "ar-AE,ar;q=0.9,en;q=0.8", want: LocaleAR},
		{name: "unknown_falls_back", url: "/x", header: "fr-FR", want: LocaleEN},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, tc.url, nil)
			if tc.header != "" {
				c.Request.Header.Set("Accept-Language", tc.header)
			}
			if got := ResolveLocale(c); got != tc.want {
				t.Fatalf("locale want %s got %s", tc.want, got)
			}
		})
	}
}

func TestTFallsBackToEnglishThenKey(t *testing.T) {
	if got := T(LocaleAR, "error.stats_failed"); got != messages[LocaleEN]["error.stats_failed"] {
		t.Fatalf("missing arabic key should fall back to english, got %s", got)
	}
	if got := T(LocaleAR, "no.such.key"); got != "no.such.key" {
		t.Fatalf("unknown key should be returned as-is, got %s", got)
	}
	if got := Sprintf(LocaleEN, "error.rate_limited", 7); got != "Too many requests, please retry in 7 seconds" {
		t.Fatalf("unexpected formatted message: %s", got)
	}
}
