package shared

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

func TestParsePagination(t *testing.T) {
	c, _ := newTestContext("/x?page=0&limit=500")
	page, size := ParsePagination(c)
	if page != 1 || size != 100 {
		t.Fatalf("want 1/100 got %d/%d", page, size)
	}
	c, _ = newTestContext("/x?page=3&page_size=15")
	page, size = ParsePagination(c)
	if page != 3 || size != 15 {
		t.Fatalf("want 3/15 got %d/%d", page, size)
	}
}

func TestQueryIntPtrAliases(t *testing.T) {
	c, _ := newTestContext("/x?order_status=2")
	got := QueryIntPtr(c, "status", "order_status")
	if got == nil || *got != 2 {
		t.Fatalf("want 2 got %v", got)
	}
	c, _ = newTestContext("/x?status=abc")
	if QueryIntPtr(c, "status") != nil {
		t.Fatalf("invalid value should be nil")
	}
}

func TestQueryDateEndOfDay(t *testing.T) {
	c, _ := newTestContext("/x?end_date=2026-10-01")
	got, ok := QueryDate(c, "end_date", true)
	if !ok || got == nil {
		t.Fatalf("parse failed")
	}
	if got.Hour() != 23 || got.Day() != 1 {
		t.Fatalf("unexpected end of day: %v", got)
	}
	c, _ = newTestContext("/x?end_date=01/10/2026")
	if _, ok := QueryDate(c, "end_date", false); ok {
		t.Fatalf("invalid date should fail")
	}
}

func TestCanAccessOrder(t *testing.T) {
	c, _ := newTestContext("/x")
	if CanAccessOrder(c, 5) {
		t.Fatalf("anonymous request must not access orders")
	}
	c.Set(ContextOrderTokenID, uint(5))
	if !CanAccessOrder(c, 5) || CanAccessOrder(c, 6) {
		t.Fatalf("order token must only grant its own order")
	}
	c.Set(ContextAdminID, uint(1))
	if !CanAccessOrder(c, 6) {
		t.Fatalf("admin should access any order")
	}
}

func TestParseUintParamRejectsInvalid(t *testing.T) {
	c, w := newTestContext("/orders/abc")
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	if _, ok := ParseUintParam(c, "id", "error.order_id_invalid"); ok {
		t.Fatalf("expected parse failure")
	}
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status want 400 got %d", w.Code)
	}
}
