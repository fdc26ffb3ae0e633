package checkout

import (
	"errors"
	"fmt"
)

// 结账错误
var (
	ErrStepInvalid           = errors.New("checkout step invalid")
	ErrFieldRequired         = errors.New("checkout field required")
	ErrEmailInvalid          = errors.New("checkout email invalid")
	ErrMobileInvalid         = errors.New("checkout mobile invalid")
	ErrCityRestricted        = errors.New("city not allowed for cart items")
	ErrPaymentMethodRequired = errors.New("payment method required")
	ErrCaptchaRequired       = errors.New("captcha not generated")
	ErrNoPoints              = errors.New("no points to redeem")
	ErrCartEmpty             = errors.New("cart is empty")
)

// FieldError 缺失字段
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", ErrFieldRequired.Error(), e.Field)
}

// Unwrap 支持 errors.Is(err, ErrFieldRequired)
func (e *FieldError) Unwrap() error {
	return ErrFieldRequired
}
