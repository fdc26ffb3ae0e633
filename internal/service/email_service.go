package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"mime"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/bazaar-next/internal/config"
	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/i18n"
	"github.com/bazaar-next/internal/metrics"
	"github.com/bazaar-next/internal/models"

	"github.com/shopspring/decimal"
)

const defaultEmailTimeout = 30 * time.Second

type smtpDeliverFunc func(addr string, auth smtp.Auth, host, from string, to []string, msg []byte) error

// EmailService 邮件发送服务
type EmailService struct {
	cfg     *config.EmailConfig
	metrics *metrics.Metrics
	deliver smtpDeliverFunc
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig, m *metrics.Metrics) *EmailService {
	return &EmailService{cfg: cfg, metrics: m}
}

// OrderEmailLine 邮件中的商品行
type OrderEmailLine struct {
	Name     string       `json:"name"`
	Quantity int          `json:"quantity"`
	Price    models.Money `json:"price"`
	Total    models.Money `json:"total"`
}

// OrderEmailData 订单确认邮件数据，也是 /api/send-order-email 的 orderData
type OrderEmailData struct {
	OrderNo        string           `json:"order_no"`
	CustomerName   string           `json:"customer_name"`
	Items          []OrderEmailLine `json:"items"`
	Subtotal       models.Money     `json:"subtotal"`
	Shipping       models.Money     `json:"shipping"`
	OverweightFee  models.Money     `json:"over_weight_fee"`
	CouponCode     string           `json:"coupon_code,omitempty"`
	CouponDiscount models.Money     `json:"coupon_discount"`
	RedeemValue    models.Money     `json:"redeem_value"`
	Total          models.Money     `json:"total"`
	Address        string           `json:"address"`
	PaymentType    int              `json:"payment_type"`
	EarnPoints     int64            `json:"earn_points"`
	Locale         string           `json:"locale,omitempty"`
}

// BuildOrderEmailData 由订单行与快照构建邮件数据，金额与订单行保持一致
func BuildOrderEmailData(order *models.GuestOrder, lines models.LineSnapshots, earnPoints int64) OrderEmailData {
	data := OrderEmailData{
		OrderNo:        order.OrderNo,
		CustomerName:   order.UserName,
		Subtotal:       order.Amount,
		Shipping:       order.ShippingCharges,
		OverweightFee:  order.DeliveryCharges,
		CouponCode:     order.CouponCode,
		CouponDiscount: order.Discount,
		RedeemValue:    order.RedeemAmount,
		Total:          order.Total,
		Address:        joinAddress(order.Address, order.Area, order.City),
		PaymentType:    order.PaymentType,
		EarnPoints:     earnPoints,
		Locale:         order.Locale,
	}
	for _, line := range lines {
		total := line.Price.Decimal.Mul(decimal.NewFromInt(int64(line.Quantity)))
		data.Items = append(data.Items, OrderEmailLine{
			Name:     line.Name,
			Quantity: line.Quantity,
			Price:    line.Price,
			Total:    models.NewMoneyFromDecimal(total),
		})
	}
	return data
}

func joinAddress(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

// SendOrderConfirmation 发送 HTML 订单确认邮件，超过超时时间返回 ErrEmailTimeout
func (s *EmailService) SendOrderConfirmation(ctx context.Context, toEmail string, data OrderEmailData) error {
	subject, body, err := buildOrderConfirmationContent(data, s.storeName(), s.supportPhone())
	if err != nil {
		return err
	}
	err = s.sendWithTimeout(ctx, toEmail, subject, body, "text/html")
	s.metrics.IncNotification("email", err)
	return err
}

// OrderStatusEmailInput 订单状态邮件输入
type OrderStatusEmailInput struct {
	OrderNo string
	Status  int
	Amount  models.Money
}

// SendOrderStatusEmail 发送订单状态通知
func (s *EmailService) SendOrderStatusEmail(ctx context.Context, toEmail string, input OrderStatusEmailInput, locale string) error {
	subject, body := buildOrderStatusContent(input, locale)
	err := s.sendWithTimeout(ctx, toEmail, subject, body, "text/plain")
	s.metrics.IncNotification("email", err)
	return err
}

func (s *EmailService) storeName() string {
	if s.cfg == nil || strings.TrimSpace(s.cfg.StoreName) == "" {
		return "Bazaar"
	}
	return strings.TrimSpace(s.cfg.StoreName)
}

func (s *EmailService) supportPhone() string {
	if s.cfg == nil {
		return ""
	}
	return strings.TrimSpace(s.cfg.SupportPhone)
}

func (s *EmailService) timeout() time.Duration {
	if s.cfg == nil || s.cfg.TimeoutSeconds <= 0 {
		return defaultEmailTimeout
	}
	return time.Duration(s.cfg.TimeoutSeconds) * time.Second
}

// sendWithTimeout SMTP 调用不支持 context，超时后放弃等待，后台发送自行结束
func (s *EmailService) sendWithTimeout(ctx context.Context, toEmail, subject, body, contentType string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	timer := time.NewTimer(s.timeout())
	defer timer.Stop()

	done := make(chan error, 1)
	go func() {
		done <- s.sendEmail(toEmail, subject, body, contentType)
	}()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		return ErrEmailTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *EmailService) sendEmail(toEmail, subject, body, contentType string) error {
	if s.cfg == nil || !s.cfg.Enabled {
		return ErrEmailServiceDisabled
	}
	if s.cfg.Host == "" || s.cfg.Port == 0 || s.cfg.From == "" {
		return ErrEmailServiceNotConfigured
	}
	if _, err := mail.ParseAddress(toEmail); err != nil {
		return ErrInvalidEmail
	}

	from := buildFromAddress(s.cfg.From, s.cfg.FromName)
	msg := buildEmailMessage(from, toEmail, subject, body, contentType)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" || s.cfg.Password != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	deliver := s.deliver
	if deliver == nil {
		switch {
		case s.cfg.UseSSL:
			deliver = sendMailWithSSL
		case s.cfg.UseTLS:
			deliver = sendMailWithStartTLS
		default:
			deliver = sendMailPlain
		}
	}
	return normalizeEmailSendError(deliver(addr, auth, s.cfg.Host, s.cfg.From, []string{toEmail}, []byte(msg)))
}

var orderEmailTemplate = template.Must(template.New("order").Parse(`<!DOCTYPE html>
<html dir="{{.Dir}}"><body style="font-family:Arial,sans-serif;color:#222">
<h2>{{.Store}}</h2>
<p>{{.Greeting}}</p>
<table cellpadding="6" cellspacing="0" border="1" style="border-collapse:collapse;width:100%">
<tr><th align="left">{{.Labels.Items}}</th><th>Qty</th><th align="right">AED</th></tr>
{{range .Items}}<tr><td>{{.Name}}</td><td align="center">{{.Quantity}}</td><td align="right">{{.Total}}</td></tr>
{{end}}</table>
<table cellpadding="4" style="margin-top:12px">
<tr><td>{{.Labels.Subtotal}}</td><td align="right">{{.Subtotal}}</td></tr>
<tr><td>{{.Labels.Shipping}}</td><td align="right">{{.Shipping}}</td></tr>
{{if .ShowOverweight}}<tr><td>{{.Labels.Overweight}}</td><td align="right">{{.Overweight}}</td></tr>{{end}}
{{if .ShowCoupon}}<tr><td>{{.Labels.Coupon}}{{if .CouponCode}} ({{.CouponCode}}){{end}}</td><td align="right">-{{.Coupon}}</td></tr>{{end}}
{{if .ShowRedeemed}}<tr><td>{{.Labels.Redeemed}}</td><td align="right">-{{.Redeemed}}</td></tr>{{end}}
<tr><td><strong>{{.Labels.Total}}</strong></td><td align="right"><strong>{{.Total}} AED</strong></td></tr>
</table>
<p>{{.Labels.Address}}: {{.Address}}</p>
<p>{{.Labels.Payment}}: {{.Payment}}</p>
{{if .PointsLine}}<p>{{.PointsLine}}</p>{{end}}
{{if .Footer}}<p style="color:#777">{{.Footer}}</p>{{end}}
</body></html>`))

type orderEmailLabels struct {
	Items, Subtotal, Shipping, Overweight, Coupon, Redeemed, Total, Address, Payment string
}

type orderEmailView struct {
	Dir            string
	Store          string
	Greeting       string
	Labels         orderEmailLabels
	Items          []OrderEmailLine
	Subtotal       string
	Shipping       string
	Overweight     string
	ShowOverweight bool
	Coupon         string
	CouponCode     string
	ShowCoupon     bool
	Redeemed       string
	ShowRedeemed   bool
	Total          string
	Address        string
	Payment        string
	PointsLine     string
	Footer         string
}

func buildOrderConfirmationContent(data OrderEmailData, store, supportPhone string) (string, string, error) {
	locale := i18n.Normalize(data.Locale)
	view := orderEmailView{
		Dir:      "ltr",
		Store:    store,
		Greeting: i18n.Sprintf(locale, "email.order.greeting", data.CustomerName),
		Labels: orderEmailLabels{
			Items:      i18n.T(locale, "email.order.items"),
			Subtotal:   i18n.T(locale, "email.order.subtotal"),
			Shipping:   i18n.T(locale, "email.order.shipping"),
			Overweight: i18n.T(locale, "email.order.overweight"),
			Coupon:     i18n.T(locale, "email.order.coupon"),
			Redeemed:   i18n.T(locale, "email.order.redeemed"),
			Total:      i18n.T(locale, "email.order.total"),
			Address:    i18n.T(locale, "email.order.address"),
			Payment:    i18n.T(locale, "email.order.payment"),
		},
		Items:          data.Items,
		Subtotal:       data.Subtotal.String(),
		Shipping:       data.Shipping.String(),
		Overweight:     data.OverweightFee.String(),
		ShowOverweight: data.OverweightFee.Decimal.Sign() > 0,
		Coupon:         data.CouponDiscount.String(),
		CouponCode:     data.CouponCode,
		ShowCoupon:     data.CouponDiscount.Decimal.Sign() > 0,
		Redeemed:       data.RedeemValue.String(),
		ShowRedeemed:   data.RedeemValue.Decimal.Sign() > 0,
		Total:          data.Total.String(),
		Address:        data.Address,
		Payment:        i18n.T(locale, fmt.Sprintf("order.payment.%d", paymentTypeOrCash(data.PaymentType))),
	}
	if locale == i18n.LocaleAR {
		view.Dir = "rtl"
	}
	if data.EarnPoints > 0 {
		view.PointsLine = i18n.Sprintf(locale, "email.order.points_earned", data.EarnPoints)
	}
	if supportPhone != "" {
		view.Footer = i18n.Sprintf(locale, "email.order.footer", supportPhone)
	}

	var buf bytes.Buffer
	if err := orderEmailTemplate.Execute(&buf, view); err != nil {
		return "", "", err
	}
	subject := i18n.Sprintf(locale, "email.order.subject", data.OrderNo)
	return subject, buf.String(), nil
}

func paymentTypeOrCash(paymentType int) int {
	if paymentType == constants.PaymentTypeCard {
		return constants.PaymentTypeCard
	}
	return constants.PaymentTypeCash
}

func buildOrderStatusContent(input OrderStatusEmailInput, locale string) (string, string) {
	normalized := i18n.Normalize(locale)
	statusLabel := orderStatusLabel(normalized, input.Status)
	subject := i18n.Sprintf(normalized, "email.order_status.subject", input.OrderNo, statusLabel)
	body := i18n.Sprintf(normalized, "email.order_status.body", input.OrderNo, statusLabel, input.Amount.String())
	return subject, body
}

func orderStatusLabel(locale string, status int) string {
	key := fmt.Sprintf("order.status.%d", status)
	label := i18n.T(locale, key)
	if label == key {
		return fmt.Sprintf("%d", status)
	}
	return label
}

func buildFromAddress(from, name string) string {
	if strings.TrimSpace(name) == "" {
		return from
	}
	encoded := mime.QEncoding.Encode("UTF-8", name)
	return (&mail.Address{Name: encoded, Address: from}).String()
}

func buildEmailMessage(from, to, subject, body, contentType string) string {
	if contentType == "" {
		contentType = "text/plain"
	}
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("From: %s\r\n", from))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", to))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", subject)))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString(fmt.Sprintf("Content-Type: %s; charset=UTF-8\r\n", contentType))
	buf.WriteString("\r\n")
	buf.WriteString(body)
	return buf.String()
}

func sendMailWithSSL(addr string, auth smtp.Auth, host, from string, to []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := authenticate(client, auth); err != nil {
		return err
	}
	return sendSMTPData(client, from, to, msg)
}

func sendMailWithStartTLS(addr string, auth smtp.Auth, host, from string, to []string, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
		return err
	}
	if err := authenticate(client, auth); err != nil {
		return err
	}
	return sendSMTPData(client, from, to, msg)
}

func sendMailPlain(addr string, auth smtp.Auth, host, from string, to []string, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := authenticate(client, auth); err != nil {
		return err
	}
	return sendSMTPData(client, from, to, msg)
}

func authenticate(client *smtp.Client, auth smtp.Auth) error {
	if auth == nil {
		return nil
	}
	if ok, _ := client.Extension("AUTH"); ok {
		return client.Auth(auth)
	}
	return nil
}

func sendSMTPData(client *smtp.Client, from string, to []string, msg []byte) error {
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func normalizeEmailSendError(err error) error {
	if err == nil {
		return nil
	}
	if isEmailRecipientRejected(err) {
		return ErrEmailRecipientRejected
	}
	return err
}

func isEmailRecipientRejected(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	if message == "" {
		return false
	}
	directKeywords := []string{
		"no such recipient",
		"no such user",
		"recipient not found",
		"recipient address rejected",
		"invalid recipient",
		"user unknown",
		"unknown user",
		"unknown mailbox",
		"mailbox unavailable",
	}
	for _, keyword := range directKeywords {
		if strings.Contains(message, keyword) {
			return true
		}
	}
	if strings.Contains(message, "550") {
		hints := []string{"recipient", "user", "mailbox", "address", "rcpt"}
		for _, hint := range hints {
			if strings.Contains(message, hint) {
				return true
			}
		}
	}
	return false
}
