package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bazaar-next/internal/config"
)

type capturedGraphRequest struct {
	Path string
	Auth string
	Body map[string]interface{}
}

func newGraphServer(t *testing.T, status int, response string, captured *capturedGraphRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if captured != nil {
			captured.Path = r.URL.Path
			captured.Auth = r.Header.Get("Authorization")
			_ = json.Unmarshal(raw, &captured.Body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestWhatsAppService(url string, template string) *WhatsAppService {
	return NewWhatsAppService(&config.WhatsAppConfig{
		Enabled:        true,
		GraphURL:       url,
		APIVersion:     "v19.0",
		AccessToken:    "token-1",
		PhoneNumberID:  "12345",
		VerifyToken:    "verify-me",
		OrderTemplate:  template,
		DefaultCountry: "971",
	}, nil)
}

func TestWhatsAppSendTemplate(t *testing.T) {
	var captured capturedGraphRequest
	srv := newGraphServer(t, http.StatusOK, `{"messages":[{"id":"wamid.1"}]}`, &captured)
	svc := newTestWhatsAppService(srv.URL, "order_confirmation")

	result, err := svc.SendOrderConfirmation(context.Background(), "+971 50 123 4567", OrderWhatsAppData{
		CustomerName: "Amina", OrderNo: "BZ-000009", Total: "77.00",
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if result.MessageID != "wamid.1" || result.To != "971501234567" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if captured.Path != "/v19.0/12345/messages" {
		t.Fatalf("unexpected path: %s", captured.Path)
	}
	if captured.Auth != "Bearer token-1" {
		t.Fatalf("unexpected auth header: %s", captured.Auth)
	}
	if captured.Body["type"] != "template" || captured.Body["messaging_product"] != "whatsapp" {
		t.Fatalf("unexpected body: %+v", captured.Body)
	}
	tpl := captured.Body["template"].(map[string]interface{})
	if tpl["name"] != "order_confirmation" {
		t.Fatalf("unexpected template: %+v", tpl)
	}
	components := tpl["components"].([]interface{})
	params := components[0].(map[string]interface{})["parameters"].([]interface{})
	if len(params) != 3 || params[1].(map[string]interface{})["text"] != "BZ-000009" {
		t.Fatalf("unexpected params: %+v", params)
	}
}

func TestWhatsAppOrderConfirmationFallsBackToText(t *testing.T) {
	var captured capturedGraphRequest
	srv := newGraphServer(t, http.StatusOK, `{"messages":[{"id":"wamid.2"}]}`, &captured)
	svc := newTestWhatsAppService(srv.URL, "")

	if _, err := svc.SendOrderConfirmation(context.Background(), "971501234567", OrderWhatsAppData{
		CustomerName: "Omar", OrderNo: "BZ-000010", Total: "12.50",
	}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	text := captured.Body["text"].(map[string]interface{})
	if !strings.Contains(text["body"].(string), "BZ-000010") {
		t.Fatalf("text body missing order no: %v", text["body"])
	}
}

func TestWhatsAppSendErrors(t *testing.T) {
	srv := newGraphServer(t, http.StatusBadRequest, `{"error":{"message":"Invalid parameter","code":100}}`, nil)
	svc := newTestWhatsAppService(srv.URL, "")

	_, err := svc.SendText(context.Background(), "971501234567", "hello")
	if !errors.Is(err, ErrWhatsAppSendFailed) || !strings.Contains(err.Error(), "Invalid parameter") {
		t.Fatalf("expected graph error, got %v", err)
	}
	if _, err := svc.SendText(context.Background(), "123", "hello"); !errors.Is(err, ErrWhatsAppRecipientInvalid) {
		t.Fatalf("expected ErrWhatsAppRecipientInvalid, got %v", err)
	}

	disabled := NewWhatsAppService(&config.WhatsAppConfig{}, nil)
	if _, err := disabled.SendText(context.Background(), "971501234567", "hello"); !errors.Is(err, ErrWhatsAppDisabled) {
		t.Fatalf("expected ErrWhatsAppDisabled, got %v", err)
	}
	unconfigured := NewWhatsAppService(&config.WhatsAppConfig{Enabled: true}, nil)
	if _, err := unconfigured.SendText(context.Background(), "971501234567", "hello"); !errors.Is(err, ErrWhatsAppNotConfigured) {
		t.Fatalf("expected ErrWhatsAppNotConfigured, got %v", err)
	}
	if status := unconfigured.Status(); status.Configured || status.APIVersion != "v19.0" {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestWhatsAppVerifyWebhook(t *testing.T) {
	svc := newTestWhatsAppService("http://unused", "")
	challenge, err := svc.VerifyWebhook("subscribe", "verify-me", "abc")
	if err != nil || challenge != "abc" {
		t.Fatalf("expected challenge echo, got %q %v", challenge, err)
	}
	if _, err := svc.VerifyWebhook("subscribe", "wrong", "abc"); !errors.Is(err, ErrWebhookVerifyFailed) {
		t.Fatalf("expected ErrWebhookVerifyFailed, got %v", err)
	}
}

func TestWhatsAppHandleWebhook(t *testing.T) {
	svc := newTestWhatsAppService("http://unused", "")
	var event WebhookEvent
	raw := `{"object":"whatsapp_business_account","entry":[{"id":"1","changes":[{"field":"messages","value":{
		"messages":[{"from":"971501234567","id":"m1","type":"text"}],
		"statuses":[{"id":"wamid.1","status":"delivered","recipient_id":"971501234567"}]}}]}]}`
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		t.Fatalf("decode webhook: %v", err)
	}
	if got := svc.HandleWebhook(event); got != 2 {
		t.Fatalf("expected 2 handled entries, got %d", got)
	}
}
