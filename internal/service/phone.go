package service

import "strings"

// NormalizeMobile 归一化手机号：仅保留数字，去掉国内前导 0，并补齐国家码
// 积分流水与订单都以该结果为键
func NormalizeMobile(countryCode, number, defaultCountry string) string {
	digits := onlyDigits(number)
	if digits == "" {
		return ""
	}
	code := onlyDigits(countryCode)
	if code == "" {
		code = onlyDigits(defaultCountry)
	}
	// 00971... 国际前缀
	if strings.HasPrefix(digits, "00") {
		return strings.TrimLeft(digits, "0")
	}
	if code != "" && strings.HasPrefix(digits, code) && len(digits) > len(code)+6 {
		return digits
	}
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return ""
	}
	return code + digits
}

func onlyDigits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
