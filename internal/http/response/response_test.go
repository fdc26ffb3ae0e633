package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body failed: %v", err)
	}
	return body
}

func TestErrorUsesHTTPStatusAndEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	c.Set("request_id", "req-1")

	Error(c, CodeTooManyRequests, "slow down")

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status want 429 got %d", w.Code)
	}
	body := decode(t, w)
	if body["success"] != false || body["message"] != "slow down" || body["error"] != "rate_limited" {
		t.Fatalf("unexpected body: %v", body)
	}
	if body["request_id"] != "req-1" {
		t.Fatalf("request id missing: %v", body)
	}
	if _, ok := body["data"]; ok {
		t.Fatalf("data should be omitted: %v", body)
	}
}

func TestSuccessWithPage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

	SuccessWithPage(c, []int{1, 2}, NewPagination(2, 2, 5))

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	body := decode(t, w)
	if body["success"] != true {
		t.Fatalf("unexpected body: %v", body)
	}
	page := body["pagination"].(map[string]interface{})
	if page["total_page"].(float64) != 3 {
		t.Fatalf("total_page want 3 got %v", page["total_page"])
	}
}

func TestErrorCoercesNonErrorCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

	Error(c, 0, "boom")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status want 500 got %d", w.Code)
	}
}

func TestAppErrorNormalizesCode(t *testing.T) {
	cause := errors.New("db down")
	appErr := NewAppError(200, "error.internal", cause)
	if appErr.Code != CodeInternal || !appErr.Server() {
		t.Fatalf("non-error code should become 500, got %d", appErr.Code)
	}
	if !errors.Is(appErr, cause) {
		t.Fatalf("cause should be unwrapped")
	}
	if got := NewAppError(CodeConflict, "error.coupon_code_exists", nil); got.Server() || got.Name() != "conflict" {
		t.Fatalf("unexpected conflict error: %+v", got)
	}
}
