package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// LineSnapshot 下单时的商品行快照
type LineSnapshot struct {
	ProductID uint    `json:"id"`
	Name      string  `json:"name"`
	Price     Money   `json:"price"`
	Quantity  int     `json:"quantity"`
	Weight    float64 `json:"weight,omitempty"`
	Unit      string  `json:"unit,omitempty"`
	DubaiOnly bool    `json:"dubai_only,omitempty"`
}

// LineSnapshots 商品行快照列表（JSON 存储）
type LineSnapshots []LineSnapshot

// Value 实现 driver.Valuer
func (l LineSnapshots) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner
func (l *LineSnapshots) Scan(value interface{}) error {
	return scanJSON(value, l)
}

// SubmissionPayload 重放下单后续步骤所需的数据
type SubmissionPayload struct {
	Items          LineSnapshots `json:"items"`
	CustomerEmail  string        `json:"customer_email,omitempty"`
	Whatsapp       string        `json:"whatsapp,omitempty"`
	Locale         string        `json:"locale,omitempty"`
	CouponID       uint          `json:"coupon_id,omitempty"`
	CouponCode     string        `json:"coupon_code,omitempty"`
	CouponPercent  Money         `json:"coupon_percent"`
	RedeemPoints   int64         `json:"redeem_points"`
	RedeemValue    Money         `json:"redeem_value"`
	EarnPoints     int64         `json:"earn_points"`
	PaymentMethod  string        `json:"payment_method,omitempty"`
	GroundFloor    bool          `json:"ground_floor_pickup,omitempty"`
	CheckoutSessID string        `json:"checkout_session_id,omitempty"`
}

// Value 实现 driver.Valuer
func (p SubmissionPayload) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner
func (p *SubmissionPayload) Scan(value interface{}) error {
	return scanJSON(value, p)
}

func scanJSON(value interface{}, target interface{}) error {
	if value == nil {
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("unsupported json column type")
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, target)
}
