package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bazaar-next/internal/config"
	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/i18n"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/metrics"

	"golang.org/x/time/rate"
)

const (
	defaultWhatsAppGraphURL   = "https://graph.facebook.com"
	defaultWhatsAppAPIVersion = "v19.0"
	defaultWhatsAppTimeout    = 15 * time.Second
	maxWhatsAppErrorBody      = 2048
)

// WhatsAppService WhatsApp Business Graph API 发送
type WhatsAppService struct {
	cfg     *config.WhatsAppConfig
	client  *http.Client
	limiter *rate.Limiter
	metrics *metrics.Metrics
}

// NewWhatsAppService 创建 WhatsApp 服务
func NewWhatsAppService(cfg *config.WhatsAppConfig, m *metrics.Metrics) *WhatsAppService {
	if cfg == nil {
		cfg = &config.WhatsAppConfig{}
	}
	timeout := defaultWhatsAppTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	limit := rate.Inf
	burst := 1
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if cfg.RateBurst > 0 {
		burst = cfg.RateBurst
	}
	return &WhatsAppService{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
		metrics: m,
	}
}

// WhatsAppStatus 配置状态（不含密钥）
type WhatsAppStatus struct {
	Enabled       bool   `json:"enabled"`
	Configured    bool   `json:"configured"`
	APIVersion    string `json:"api_version"`
	PhoneNumberID string `json:"phone_number_id,omitempty"`
	OrderTemplate string `json:"order_template,omitempty"`
}

// Status 返回当前配置状态
func (s *WhatsAppService) Status() WhatsAppStatus {
	return WhatsAppStatus{
		Enabled:       s.cfg.Enabled,
		Configured:    s.configured(),
		APIVersion:    s.apiVersion(),
		PhoneNumberID: s.cfg.PhoneNumberID,
		OrderTemplate: s.cfg.OrderTemplate,
	}
}

func (s *WhatsAppService) configured() bool {
	return strings.TrimSpace(s.cfg.AccessToken) != "" && strings.TrimSpace(s.cfg.PhoneNumberID) != ""
}

func (s *WhatsAppService) apiVersion() string {
	if v := strings.TrimSpace(s.cfg.APIVersion); v != "" {
		return v
	}
	return defaultWhatsAppAPIVersion
}

func (s *WhatsAppService) endpoint() string {
	base := strings.TrimRight(strings.TrimSpace(s.cfg.GraphURL), "/")
	if base == "" {
		base = defaultWhatsAppGraphURL
	}
	return fmt.Sprintf("%s/%s/%s/messages", base, s.apiVersion(), strings.TrimSpace(s.cfg.PhoneNumberID))
}

// Recipient 归一化收件号码
func (s *WhatsAppService) Recipient(countryCode, number string) string {
	return NormalizeMobile(countryCode, number, s.cfg.DefaultCountry)
}

// WhatsAppSendResult Graph API 返回的消息 ID
type WhatsAppSendResult struct {
	MessageID string `json:"message_id"`
	To        string `json:"to"`
}

type graphMessageRequest struct {
	MessagingProduct string         `json:"messaging_product"`
	RecipientType    string         `json:"recipient_type,omitempty"`
	To               string         `json:"to"`
	Type             string         `json:"type"`
	Text             *graphText     `json:"text,omitempty"`
	Template         *graphTemplate `json:"template,omitempty"`
}

type graphText struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type graphTemplate struct {
	Name       string              `json:"name"`
	Language   graphLanguage       `json:"language"`
	Components []TemplateComponent `json:"components,omitempty"`
}

type graphLanguage struct {
	Code string `json:"code"`
}

// TemplateComponent 模板组件
type TemplateComponent struct {
	Type       string              `json:"type"`
	Parameters []TemplateParameter `json:"parameters"`
}

// TemplateParameter 模板参数
type TemplateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type graphMessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendText 发送文本消息
func (s *WhatsAppService) SendText(ctx context.Context, to, body string) (*WhatsAppSendResult, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: empty body", ErrWhatsAppSendFailed)
	}
	return s.send(ctx, graphMessageRequest{
		To:   to,
		Type: constants.WhatsAppMessageText,
		Text: &graphText{Body: body},
	})
}

// SendTemplate 发送模板消息，language 为空时使用配置的模板语言
func (s *WhatsAppService) SendTemplate(ctx context.Context, to, name, language string, bodyParams []string) (*WhatsAppSendResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: template name required", ErrWhatsAppSendFailed)
	}
	if strings.TrimSpace(language) == "" {
		language = s.cfg.TemplateLanguage
	}
	if strings.TrimSpace(language) == "" {
		language = "en"
	}
	tpl := &graphTemplate{Name: name, Language: graphLanguage{Code: language}}
	if len(bodyParams) > 0 {
		params := make([]TemplateParameter, 0, len(bodyParams))
		for _, p := range bodyParams {
			params = append(params, TemplateParameter{Type: "text", Text: p})
		}
		tpl.Components = []TemplateComponent{{Type: "body", Parameters: params}}
	}
	return s.send(ctx, graphMessageRequest{
		To:       to,
		Type:     constants.WhatsAppMessageTemplate,
		Template: tpl,
	})
}

// OrderWhatsAppData 订单确认消息参数
type OrderWhatsAppData struct {
	CustomerName string
	OrderNo      string
	Total        string
	Locale       string
}

// SendOrderConfirmation 发送订单确认：配置了模板时走模板，否则发送文本
func (s *WhatsAppService) SendOrderConfirmation(ctx context.Context, to string, data OrderWhatsAppData) (*WhatsAppSendResult, error) {
	if tpl := strings.TrimSpace(s.cfg.OrderTemplate); tpl != "" {
		return s.SendTemplate(ctx, to, tpl, "", []string{data.CustomerName, data.OrderNo, data.Total})
	}
	body := i18n.Sprintf(data.Locale, "whatsapp.order.text", data.CustomerName, data.OrderNo, data.Total)
	return s.SendText(ctx, to, body)
}

// SendOrderStatus 发送订单状态变更文本
func (s *WhatsAppService) SendOrderStatus(ctx context.Context, to, customerName, orderNo string, status int, locale string) (*WhatsAppSendResult, error) {
	label := orderStatusLabel(i18n.Normalize(locale), status)
	body := i18n.Sprintf(locale, "whatsapp.order.status", customerName, orderNo, label)
	return s.SendText(ctx, to, body)
}

func (s *WhatsAppService) send(ctx context.Context, msg graphMessageRequest) (result *WhatsAppSendResult, err error) {
	defer func() {
		if !isNotificationDisabled(err) {
			s.metrics.IncNotification("whatsapp", err)
		}
	}()
	if !s.cfg.Enabled {
		return nil, ErrWhatsAppDisabled
	}
	if !s.configured() {
		return nil, ErrWhatsAppNotConfigured
	}
	msg.To = onlyDigits(msg.To)
	if len(msg.To) < 8 {
		return nil, ErrWhatsAppRecipientInvalid
	}
	msg.MessagingProduct = "whatsapp"
	msg.RecipientType = "individual"
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(s.cfg.AccessToken))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWhatsAppSendFailed, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWhatsAppSendFailed, err)
	}

	var parsed graphMessageResponse
	_ = json.Unmarshal(raw, &parsed)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := strings.TrimSpace(string(raw))
		if parsed.Error != nil && parsed.Error.Message != "" {
			detail = parsed.Error.Message
		}
		if len(detail) > maxWhatsAppErrorBody {
			detail = detail[:maxWhatsAppErrorBody]
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrWhatsAppSendFailed, resp.StatusCode, detail)
	}
	result = &WhatsAppSendResult{To: msg.To}
	if len(parsed.Messages) > 0 {
		result.MessageID = parsed.Messages[0].ID
	}
	logger.Debugw("whatsapp_message_sent", "to", msg.To, "type", msg.Type, "message_id", result.MessageID)
	return result, nil
}

// VerifyWebhook 校验 Meta 订阅请求，成功时返回 challenge
func (s *WhatsAppService) VerifyWebhook(mode, token, challenge string) (string, error) {
	expected := strings.TrimSpace(s.cfg.VerifyToken)
	if mode != "subscribe" || expected == "" || token != expected {
		return "", ErrWebhookVerifyFailed
	}
	return challenge, nil
}

// WebhookEvent 入站事件（仅记录日志）
type WebhookEvent struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				Messages []struct {
					From string `json:"from"`
					ID   string `json:"id"`
					Type string `json:"type"`
				} `json:"messages"`
				Statuses []struct {
					ID          string `json:"id"`
					Status      string `json:"status"`
					RecipientID string `json:"recipient_id"`
				} `json:"statuses"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// HandleWebhook 记录入站消息与投递状态，返回处理的条目数
func (s *WhatsAppService) HandleWebhook(event WebhookEvent) int {
	count := 0
	for _, entry := range event.Entry {
		for _, change := range entry.Changes {
			for _, m := range change.Value.Messages {
				logger.Infow("whatsapp_inbound_message", "from", m.From, "message_id", m.ID, "type", m.Type)
				count++
			}
			for _, st := range change.Value.Statuses {
				logger.Infow("whatsapp_delivery_status", "message_id", st.ID, "status", st.Status, "recipient", st.RecipientID)
				count++
			}
		}
	}
	return count
}
