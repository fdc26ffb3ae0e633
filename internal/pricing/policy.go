// Package pricing 购物车金额计算：运费阶梯、超重费、积分与优惠券抵扣
package pricing

import (
	"github.com/bazaar-next/internal/config"

	"github.com/shopspring/decimal"
)

// 默认策略参数（AED）
var (
	defaultStandardShippingFee = decimal.NewFromInt(10)
	defaultReducedShippingFee  = decimal.NewFromInt(5)
	defaultReducedThreshold    = decimal.NewFromInt(75)
	defaultFreeThreshold       = decimal.NewFromInt(150)
	defaultOverweightFeePerKg  = decimal.NewFromInt(1)
	defaultPointsPerUnit       = decimal.NewFromInt(3)
	defaultPointValue          = decimal.NewFromFloat(0.01)
	defaultGroundFloorFactor   = decimal.NewFromFloat(0.5)
)

const defaultWeightThresholdKg = 10.0

// Policy 定价策略，所有运费与积分计算都经由同一个实例
type Policy struct {
	StandardShippingFee decimal.Decimal // 小计 <= ReducedThreshold 时的运费
	ReducedShippingFee  decimal.Decimal // ReducedThreshold < 小计 <= FreeThreshold 时的运费
	ReducedThreshold    decimal.Decimal
	FreeThreshold       decimal.Decimal
	WeightThresholdKg   float64 // 超出部分按整千克计费
	OverweightFeePerKg  decimal.Decimal
	PointsPerUnit       decimal.Decimal // 每 1 AED 获得的积分
	PointValue          decimal.Decimal // 每积分可抵扣金额
	GroundFloorFactor   decimal.Decimal // 一楼自提运费系数
}

// DefaultPolicy 返回默认策略
func DefaultPolicy() Policy {
	return Policy{
		StandardShippingFee: defaultStandardShippingFee,
		ReducedShippingFee:  defaultReducedShippingFee,
		ReducedThreshold:    defaultReducedThreshold,
		FreeThreshold:       defaultFreeThreshold,
		WeightThresholdKg:   defaultWeightThresholdKg,
		OverweightFeePerKg:  defaultOverweightFeePerKg,
		PointsPerUnit:       defaultPointsPerUnit,
		PointValue:          defaultPointValue,
		GroundFloorFactor:   defaultGroundFloorFactor,
	}
}

// NewPolicy 从配置构造策略，未配置（<=0）的字段使用默认值
func NewPolicy(cfg config.PricingConfig) Policy {
	p := DefaultPolicy()
	override := func(target *decimal.Decimal, value float64) {
		if value > 0 {
			*target = decimal.NewFromFloat(value)
		}
	}
	override(&p.StandardShippingFee, cfg.StandardShippingFee)
	override(&p.ReducedShippingFee, cfg.ReducedShippingFee)
	override(&p.ReducedThreshold, cfg.ReducedThreshold)
	override(&p.FreeThreshold, cfg.FreeThreshold)
	override(&p.OverweightFeePerKg, cfg.OverweightFeePerKg)
	override(&p.PointsPerUnit, cfg.PointsPerUnit)
	override(&p.PointValue, cfg.PointValue)
	override(&p.GroundFloorFactor, cfg.GroundFloorFactor)
	if cfg.WeightThresholdKg > 0 {
		p.WeightThresholdKg = cfg.WeightThresholdKg
	}
	return p
}
