package pricing

import (
	"encoding/json"
	"math"

	"github.com/shopspring/decimal"
)

// gramHeuristicLimit 单件重量超过该值时视为以克录入
const gramHeuristicLimit = 25.0

// NormalizeWeight 把可能以克录入的单件重量换算为千克
// 只在接收外部录入的重量时调用一次，换算后的值不得再次传入
func NormalizeWeight(weight float64) float64 {
	if weight > gramHeuristicLimit {
		return weight / 1000
	}
	return weight
}

// Line 参与计价的商品行
type Line struct {
	Price    decimal.Decimal
	Quantity int
	Weight   float64 // 单件重量（kg，已换算），未知时为 0
}

// Charges 运费与超重费
type Charges struct {
	Shipping      decimal.Decimal
	OverWeightFee decimal.Decimal
}

// Totals 购物车汇总
type Totals struct {
	Count         int
	Subtotal      decimal.Decimal
	Shipping      decimal.Decimal
	OverWeightFee decimal.Decimal
	Discount      decimal.Decimal // 仅积分抵扣，不含优惠券
	Total         decimal.Decimal
	RewardPoints  int64
	RewardValue   decimal.Decimal
	TotalWeight   float64
}

// MarshalJSON 金额统一输出 2 位小数
func (t Totals) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Count         int     `json:"count"`
		Subtotal      string  `json:"subtotal"`
		Shipping      string  `json:"shipping"`
		OverWeightFee string  `json:"over_weight_fee"`
		Discount      string  `json:"discount"`
		Total         string  `json:"total"`
		RewardPoints  int64   `json:"reward_points"`
		RewardValue   string  `json:"reward_value"`
		TotalWeight   float64 `json:"total_weight"`
	}{
		Count:         t.Count,
		Subtotal:      Format(t.Subtotal),
		Shipping:      Format(t.Shipping),
		OverWeightFee: Format(t.OverWeightFee),
		Discount:      Format(t.Discount),
		Total:         Format(t.Total),
		RewardPoints:  t.RewardPoints,
		RewardValue:   Format(t.RewardValue),
		TotalWeight:   RoundWeight(t.TotalWeight),
	})
}

// Format 金额格式化为 2 位小数
func Format(amount decimal.Decimal) string {
	return amount.Round(2).StringFixed(2)
}

// RoundWeight 重量保留 3 位小数
func RoundWeight(weight float64) float64 {
	return math.Round(weight*1000) / 1000
}

// Shipping 按小计阶梯计算运费
func (p Policy) Shipping(subtotal decimal.Decimal) decimal.Decimal {
	switch {
	case subtotal.LessThanOrEqual(p.ReducedThreshold):
		return p.StandardShippingFee
	case subtotal.LessThanOrEqual(p.FreeThreshold):
		return p.ReducedShippingFee
	default:
		return decimal.Zero
	}
}

// OverweightFee 超出阈值的整千克数乘以单价
func (p Policy) OverweightFee(totalWeight float64) decimal.Decimal {
	over := math.Floor(math.Max(0, totalWeight-p.WeightThresholdKg))
	return decimal.NewFromFloat(over).Mul(p.OverweightFeePerKg).Round(2)
}

// Charges 唯一的运费计算入口，一楼自提只减免运费不减免超重费
func (p Policy) Charges(subtotal decimal.Decimal, totalWeight float64, groundFloorPickup bool) Charges {
	shipping := p.Shipping(subtotal)
	if groundFloorPickup {
		shipping = shipping.Mul(p.GroundFloorFactor).Round(2)
	}
	return Charges{
		Shipping:      shipping,
		OverWeightFee: p.OverweightFee(totalWeight),
	}
}

// Calculate 从商品行完整重算汇总
func (p Policy) Calculate(lines []Line, discount decimal.Decimal, groundFloorPickup bool) Totals {
	if len(lines) == 0 {
		return Totals{
			Subtotal:      decimal.Zero,
			Shipping:      decimal.Zero,
			OverWeightFee: decimal.Zero,
			Discount:      decimal.Zero,
			Total:         decimal.Zero,
			RewardValue:   decimal.Zero,
		}
	}

	var (
		count       int
		subtotal    = decimal.Zero
		totalWeight float64
	)
	for _, line := range lines {
		qty := decimal.NewFromInt(int64(line.Quantity))
		count += line.Quantity
		subtotal = subtotal.Add(line.Price.Mul(qty))
		totalWeight += line.Weight * float64(line.Quantity)
	}
	subtotal = subtotal.Round(2)
	charges := p.Charges(subtotal, totalWeight, groundFloorPickup)
	points := p.RewardPoints(subtotal)

	return Totals{
		Count:         count,
		Subtotal:      subtotal,
		Shipping:      charges.Shipping,
		OverWeightFee: charges.OverWeightFee,
		Discount:      discount.Round(2),
		Total:         subtotal.Add(charges.Shipping).Add(charges.OverWeightFee).Sub(discount).Round(2),
		RewardPoints:  points,
		RewardValue:   p.RewardValue(points),
		TotalWeight:   totalWeight,
	}
}

// RewardPoints 金额可获得的积分（向下取整）
func (p Policy) RewardPoints(amount decimal.Decimal) int64 {
	if amount.Sign() <= 0 {
		return 0
	}
	return amount.Mul(p.PointsPerUnit).Floor().IntPart()
}

// RewardValue 积分折算金额
func (p Policy) RewardValue(points int64) decimal.Decimal {
	return decimal.NewFromInt(points).Mul(p.PointValue).Round(2)
}

// EarnedPoints 按实付商品金额（小计减积分抵扣，最低为 0）计算获得积分
func (p Policy) EarnedPoints(subtotal, redeemedValue decimal.Decimal) int64 {
	paid := subtotal.Sub(redeemedValue)
	if paid.Sign() < 0 {
		paid = decimal.Zero
	}
	return p.RewardPoints(paid)
}

// CouponDiscount 优惠券抵扣金额 = 小计 × 百分比
func (p Policy) CouponDiscount(subtotal, percent decimal.Decimal) decimal.Decimal {
	if percent.Sign() <= 0 {
		return decimal.Zero
	}
	return subtotal.Mul(percent).Div(decimal.NewFromInt(100)).Round(2)
}

// Payable 应付金额 = 汇总总额 - 优惠券抵扣
func (p Policy) Payable(totals Totals, couponPercent decimal.Decimal) decimal.Decimal {
	return totals.Total.Sub(p.CouponDiscount(totals.Subtotal, couponPercent)).Round(2)
}
