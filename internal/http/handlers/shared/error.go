package shared

import (
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/i18n"
	"github.com/bazaar-next/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 携带 request_id 的日志实例，字段由 RequestIDMiddleware 写入请求上下文
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil || c.Request == nil {
		return logger.S()
	}
	return logger.FromContext(c.Request.Context())
}

// RespondError 返回本地化错误响应；5xx 以 error 级别记录原因，4xx 带原因时记 warn
func RespondError(c *gin.Context, code int, key string, err error) {
	appErr := response.NewAppError(code, key, err)
	if err != nil {
		log := RequestLog(c).With("code", appErr.Code, "key", appErr.Key, "error", err)
		if appErr.Server() {
			log.Errorw("handler_error")
		} else {
			log.Warnw("handler_rejected")
		}
	}
	response.Error(c, appErr.Code, i18n.T(i18n.ResolveLocale(c), appErr.Key))
}
