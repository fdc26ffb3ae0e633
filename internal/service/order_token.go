package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const orderTokenIssuer = "bazaar-order"

// OrderTokenClaims 订单访问令牌声明
type OrderTokenClaims struct {
	OrderID uint `json:"order_id"`
	jwt.RegisteredClaims
}

// OrderTokenService 签发与校验订单访问令牌，替代客户端自行保存订单号
type OrderTokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewOrderTokenService 创建订单令牌服务
func NewOrderTokenService(secret string, expireHours int) *OrderTokenService {
	if expireHours <= 0 {
		expireHours = 72
	}
	return &OrderTokenService{
		secret: []byte(secret),
		ttl:    time.Duration(expireHours) * time.Hour,
		now:    time.Now,
	}
}

// Issue 为订单签发令牌
func (s *OrderTokenService) Issue(orderID uint) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("order token secret not configured")
	}
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := OrderTokenClaims{
		OrderID: orderID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    orderTokenIssuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse 解析令牌
func (s *OrderTokenService) Parse(tokenString string) (*OrderTokenClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" || len(s.secret) == 0 {
		return nil, ErrOrderTokenInvalid
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(orderTokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	token, err := parser.ParseWithClaims(tokenString, &OrderTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrOrderTokenInvalid
	}
	claims, ok := token.Claims.(*OrderTokenClaims)
	if !ok || !token.Valid || claims.OrderID == 0 {
		return nil, ErrOrderTokenInvalid
	}
	return claims, nil
}

// Verify 校验令牌是否属于指定订单
func (s *OrderTokenService) Verify(tokenString string, orderID uint) error {
	claims, err := s.Parse(tokenString)
	if err != nil {
		return err
	}
	if claims.OrderID != orderID {
		return ErrOrderTokenInvalid
	}
	return nil
}
