package service

import (
	"strings"
	"time"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/repository"

	"github.com/shopspring/decimal"
)

// CouponService 优惠券服务
type CouponService struct {
	couponRepo repository.CouponRepository
	now        func() time.Time
}

// NewCouponService 创建优惠券服务
func NewCouponService(couponRepo repository.CouponRepository) *CouponService {
	return &CouponService{
		couponRepo: couponRepo,
		now:        time.Now,
	}
}

// Validate 校验优惠码是否可用
func (s *CouponService) Validate(code string) (*models.Coupon, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, ErrCouponInvalid
	}
	coupon, err := s.couponRepo.GetByCode(trimmed)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	if err := checkCoupon(coupon, s.now()); err != nil {
		return coupon, err
	}
	return coupon, nil
}

func checkCoupon(coupon *models.Coupon, now time.Time) error {
	if coupon.Status != constants.CouponStatusActive {
		return ErrCouponInactive
	}
	if coupon.Expired(now) {
		return ErrCouponExpired
	}
	if coupon.Exhausted() {
		return ErrCouponExhausted
	}
	return nil
}

// MarkUsed 记录一次使用（条件自增，并发下不会超过次数上限）
func (s *CouponService) MarkUsed(couponID uint) (*models.Coupon, error) {
	coupon, err := s.couponRepo.GetByID(couponID)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	now := s.now()
	ok, err := s.couponRepo.ReserveUse(couponID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := checkCoupon(coupon, now); err != nil {
			return coupon, err
		}
		return coupon, ErrCouponExhausted
	}
	return s.couponRepo.GetByID(couponID)
}

// CouponInput 创建与更新优惠券输入
type CouponInput struct {
	Code         string
	Discount     decimal.Decimal
	NumberOfTime int
	ExpireDate   *time.Time
	Status       *int
}

func (in CouponInput) validate() (string, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code == "" {
		return "", ErrCouponInvalid
	}
	if in.Discount.LessThanOrEqual(decimal.Zero) || in.Discount.GreaterThan(decimal.NewFromInt(100)) {
		return "", ErrCouponInvalid
	}
	if in.NumberOfTime < 0 {
		return "", ErrCouponInvalid
	}
	if in.Status != nil && *in.Status != constants.CouponStatusActive && *in.Status != constants.CouponStatusInactive {
		return "", ErrCouponInvalid
	}
	return code, nil
}

// Create 创建优惠券
func (s *CouponService) Create(input CouponInput) (*models.Coupon, error) {
	code, err := input.validate()
	if err != nil {
		return nil, err
	}
	exist, err := s.couponRepo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, ErrCouponCodeExists
	}
	coupon := &models.Coupon{
		CouponCode:   code,
		Discount:     models.NewMoneyFromDecimal(input.Discount),
		NumberOfTime: input.NumberOfTime,
		ExpireDate:   input.ExpireDate,
		Status:       constants.CouponStatusActive,
	}
	if input.Status != nil {
		coupon.Status = *input.Status
	}
	if err := s.couponRepo.Create(coupon); err != nil {
		return nil, err
	}
	// status 列默认值为 1，停用状态需要显式写回
	if coupon.Status == constants.CouponStatusInactive {
		if err := s.couponRepo.Update(coupon); err != nil {
			return nil, err
		}
	}
	return coupon, nil
}

// Update 更新优惠券
func (s *CouponService) Update(id uint, input CouponInput) (*models.Coupon, error) {
	code, err := input.validate()
	if err != nil {
		return nil, err
	}
	coupon, err := s.couponRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	if !strings.EqualFold(code, coupon.CouponCode) {
		exist, err := s.couponRepo.GetByCode(code)
		if err != nil {
			return nil, err
		}
		if exist != nil && exist.CouponID != id {
			return nil, ErrCouponCodeExists
		}
	}
	coupon.CouponCode = code
	coupon.Discount = models.NewMoneyFromDecimal(input.Discount)
	coupon.NumberOfTime = input.NumberOfTime
	coupon.ExpireDate = input.ExpireDate
	if input.Status != nil {
		coupon.Status = *input.Status
	}
	if err := s.couponRepo.Update(coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// Delete 删除优惠券
func (s *CouponService) Delete(id uint) error {
	coupon, err := s.couponRepo.GetByID(id)
	if err != nil {
		return err
	}
	if coupon == nil {
		return ErrCouponNotFound
	}
	return s.couponRepo.Delete(id)
}

// Get 获取优惠券
func (s *CouponService) Get(id uint) (*models.Coupon, error) {
	coupon, err := s.couponRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	return coupon, nil
}

// List 优惠券列表
func (s *CouponService) List(filter repository.CouponListFilter) ([]models.Coupon, int64, error) {
	return s.couponRepo.List(filter)
}
