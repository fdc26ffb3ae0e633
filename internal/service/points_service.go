package service

import (
	"strings"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/pricing"
	"github.com/bazaar-next/internal/repository"

	"github.com/shopspring/decimal"
)

// PointsService 积分余额与流水
type PointsService struct {
	repo           repository.PointsRepository
	policy         pricing.Policy
	defaultCountry string
}

// NewPointsService 创建积分服务
func NewPointsService(repo repository.PointsRepository, policy pricing.Policy, defaultCountry string) *PointsService {
	return &PointsService{repo: repo, policy: policy, defaultCountry: defaultCountry}
}

// PointsBalance 积分余额
type PointsBalance struct {
	Mobile string          `json:"mobile"`
	Points int64           `json:"points"`
	Value  decimal.Decimal `json:"value"`
}

// Normalize 按默认国家码归一化手机号
func (s *PointsService) Normalize(countryCode, mobile string) string {
	return NormalizeMobile(countryCode, mobile, s.defaultCountry)
}

// Balance 查询余额，余额小于 0 时按 0 返回
func (s *PointsService) Balance(countryCode, mobile string) (*PointsBalance, error) {
	normalized := s.Normalize(countryCode, mobile)
	if normalized == "" {
		return nil, ErrMobileRequired
	}
	points, err := s.repo.Balance(normalized)
	if err != nil {
		return nil, err
	}
	if points < 0 {
		points = 0
	}
	return &PointsBalance{
		Mobile: normalized,
		Points: points,
		Value:  s.policy.RewardValue(points),
	}, nil
}

// History 流水列表
func (s *PointsService) History(countryCode, mobile string, page, pageSize int) ([]models.PointsLedger, int64, error) {
	normalized := s.Normalize(countryCode, mobile)
	if normalized == "" {
		return nil, 0, ErrMobileRequired
	}
	return s.repo.List(repository.PointsListFilter{Mobile: normalized, Page: page, PageSize: pageSize})
}

// AppendInput 追加流水输入；Points 取绝对值，符号由 Status 决定
type AppendInput struct {
	CountryCode string
	Mobile      string
	OrderID     *uint
	Points      int64
	Status      int
	Note        string
}

// Append 追加一条流水：获得记为负数，消耗记为正数
func (s *PointsService) Append(input AppendInput) (*models.PointsLedger, error) {
	normalized := s.Normalize(input.CountryCode, input.Mobile)
	if normalized == "" {
		return nil, ErrMobileRequired
	}
	points := input.Points
	if points < 0 {
		points = -points
	}
	if points == 0 {
		return nil, ErrPointsEntryInvalid
	}
	entry := &models.PointsLedger{
		Mobile:  normalized,
		OrderID: input.OrderID,
		Status:  input.Status,
		Note:    strings.TrimSpace(input.Note),
	}
	switch input.Status {
	case constants.PointsStatusEarned:
		entry.RedeemPoints = -points
	case constants.PointsStatusSpent:
		balance, err := s.repo.Balance(normalized)
		if err != nil {
			return nil, err
		}
		if balance < points {
			return nil, ErrPointsInsufficient
		}
		entry.RedeemPoints = points
	default:
		return nil, ErrPointsEntryInvalid
	}
	if err := s.repo.Create(entry); err != nil {
		return nil, err
	}
	return entry, nil
}
