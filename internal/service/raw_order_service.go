package service

import (
	"strings"
	"time"

	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/pricing"
	"github.com/bazaar-next/internal/repository"

	"github.com/shopspring/decimal"
)

// RawOrderService 下单意图审计
type RawOrderService struct {
	repo           repository.RawOrderRepository
	defaultCountry string
}

// NewRawOrderService 创建审计服务
func NewRawOrderService(repo repository.RawOrderRepository, defaultCountry string) *RawOrderService {
	return &RawOrderService{repo: repo, defaultCountry: defaultCountry}
}

// RawOrderInput 审计记录输入
type RawOrderInput struct {
	OrderID             *uint           `json:"order_id"`
	ClientRef           string          `json:"client_ref"`
	SessionID           string          `json:"session_id"`
	UserName            string          `json:"user_name"`
	Email               string          `json:"email"`
	MobileCountryCode   string          `json:"mobile_country_code"`
	Mobile              string          `json:"mobile"`
	WhatsappCountryCode string          `json:"whatsapp_country_code"`
	Whatsapp            string          `json:"whatsapp"`
	City                string          `json:"city"`
	Area                string          `json:"area"`
	Address             string          `json:"address"`
	Items               []SubmitItem    `json:"items" binding:"required,min=1,dive"`
	Total               decimal.Decimal `json:"total"`
}

// Create 写入审计记录；未提供总额时按小计记录
func (s *RawOrderService) Create(input RawOrderInput) (*models.RawOrder, error) {
	if len(input.Items) == 0 {
		return nil, ErrOrderItemsRequired
	}
	lines := make(models.LineSnapshots, 0, len(input.Items))
	subtotal := decimal.Zero
	for _, item := range input.Items {
		if item.ID == 0 || item.Quantity <= 0 || item.Price.Sign() < 0 {
			return nil, ErrInvalidOrderItem
		}
		subtotal = subtotal.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		lines = append(lines, models.LineSnapshot{
			ProductID: item.ID,
			Name:      strings.TrimSpace(item.Name),
			Price:     models.NewMoneyFromDecimal(item.Price),
			Quantity:  item.Quantity,
			Weight:    pricing.NormalizeWeight(item.Weight),
			Unit:      item.Unit,
			DubaiOnly: item.DubaiOnly,
		})
	}
	total := input.Total
	if total.Sign() <= 0 {
		total = subtotal
	}
	record := &models.RawOrder{
		OrderID:   input.OrderID,
		ClientRef: strings.TrimSpace(input.ClientRef),
		SessionID: strings.TrimSpace(input.SessionID),
		UserName:  strings.TrimSpace(input.UserName),
		Email:     strings.TrimSpace(input.Email),
		Mobile:    NormalizeMobile(input.MobileCountryCode, input.Mobile, s.defaultCountry),
		Whatsapp:  NormalizeMobile(input.WhatsappCountryCode, input.Whatsapp, s.defaultCountry),
		City:      strings.TrimSpace(input.City),
		Area:      strings.TrimSpace(input.Area),
		Address:   strings.TrimSpace(input.Address),
		Items:     lines,
		Subtotal:  models.NewMoneyFromDecimal(subtotal),
		Total:     models.NewMoneyFromDecimal(total),
	}
	if err := s.repo.Create(record); err != nil {
		logger.Errorw("raw_order_create_failed", "client_ref", record.ClientRef, "error", err)
		return nil, ErrOrderCreateFailed
	}
	return record, nil
}

// RawOrderListInput 审计列表查询
type RawOrderListInput struct {
	Page              int
	PageSize          int
	MobileCountryCode string
	Mobile            string
	OrderID           uint
	StartDate         *time.Time
	EndDate           *time.Time
}

// List 审计记录列表
func (s *RawOrderService) List(input RawOrderListInput) ([]models.RawOrder, int64, error) {
	mobile := ""
	if strings.TrimSpace(input.Mobile) != "" {
		mobile = NormalizeMobile(input.MobileCountryCode, input.Mobile, s.defaultCountry)
	}
	records, total, err := s.repo.List(repository.RawOrderListFilter{
		Page:        input.Page,
		PageSize:    input.PageSize,
		Mobile:      mobile,
		OrderID:     input.OrderID,
		CreatedFrom: input.StartDate,
		CreatedTo:   input.EndDate,
	})
	if err != nil {
		logger.Errorw("raw_order_list_failed", "error", err)
		return nil, 0, ErrOrderFetchFailed
	}
	return records, total, nil
}
