package router

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/bazaar-next/internal/authz"
	"github.com/bazaar-next/internal/cache"
	"github.com/bazaar-next/internal/config"
	adminhandlers "github.com/bazaar-next/internal/http/handlers/admin"
	publichandlers "github.com/bazaar-next/internal/http/handlers/public"
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const apiPrefix = "/api"

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "bz"
	}
	redisClient := cache.Client()
	loginRule := NewRateLimitRule(fmt.Sprintf("%s:rate:admin_login", redisPrefix), cfg.Security.LoginRateLimit, "error.login_too_many")
	lookupRule := NewRateLimitRule(fmt.Sprintf("%s:rate:lookup", redisPrefix), cfg.Security.LookupRateLimit, "error.rate_limited")
	captchaRule := NewRateLimitRule(fmt.Sprintf("%s:rate:captcha", redisPrefix), cfg.Security.CaptchaRateLimit, "error.rate_limited")
	couponRule := NewRateLimitRule(fmt.Sprintf("%s:rate:coupon", redisPrefix), cfg.Security.CouponRateLimit, "error.rate_limited")

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(MetricsMiddleware(c.Metrics))
	r.Use(CORSMiddleware(cfg.CORS))

	api := r.Group(apiPrefix)
	api.Use(OptionalAuthMiddleware(cfg.AdminJWT.SecretKey, c.AdminRepo, c.OrderTokenService))

	// 后台接口可分散在各业务路径下，统一登记以生成权限目录
	admin := newAdminRoutes(AdminOnlyMiddleware(), AdminRBACMiddleware(c.AuthzService))

	// 购物车
	cart := api.Group("/cart")
	{
		cart.POST("/sessions", publicHandler.CreateCartSession)
		cart.POST("/quote", publicHandler.QuoteCart)
		cart.GET("/:session", publicHandler.GetCart)
		cart.POST("/:session/actions", publicHandler.DispatchCartAction)
	}

	// 结账流程
	checkout := api.Group("/checkout/sessions")
	{
		checkout.POST("", publicHandler.StartCheckout)
		checkout.GET("/:id", publicHandler.GetCheckout)
		checkout.POST("/:id/delivery", publicHandler.SubmitCheckoutDelivery)
		checkout.POST("/:id/city", publicHandler.SelectCheckoutCity)
		checkout.POST("/:id/place", publicHandler.PlaceCheckoutOrder)
		checkout.POST("/:id/captcha", RateLimitMiddleware(redisClient, captchaRule, KeyByIP), publicHandler.AnswerCheckoutCaptcha)
		checkout.POST("/:id/back", publicHandler.CheckoutBack)
		checkout.POST("/:id/coupon", RateLimitMiddleware(redisClient, couponRule, KeyByIP), publicHandler.ApplyCheckoutCoupon)
		checkout.DELETE("/:id/coupon", publicHandler.RemoveCheckoutCoupon)
		checkout.POST("/:id/redeem", publicHandler.ToggleCheckoutRedeem)
	}

	// 订单
	orders := api.Group("/orders")
	{
		orders.POST("/guest", publicHandler.CreateGuestOrder)
		admin.GET(orders, "/guest", adminHandler.AdminListOrders)
		orders.GET("/lookup", RateLimitMiddleware(redisClient, lookupRule, KeyByIPAndQuery("mobile")), publicHandler.LookupOrderContact)
		orders.POST("/add-items", publicHandler.AddOrderItems)
		admin.GET(orders, "/stats", adminHandler.AdminGetStats)

		orders.GET("/items", publicHandler.ListOrderItems)
		admin.POST(orders, "/items", adminHandler.AdminCreateOrderItem)
		orders.GET("/items/:id", publicHandler.GetOrderItem)
		admin.PUT(orders, "/items/:id", adminHandler.AdminUpdateOrderItem)
		admin.DELETE(orders, "/items/:id", adminHandler.AdminDeleteOrderItem)

		orders.GET("/:id", publicHandler.GetOrder)
		admin.PUT(orders, "/:id", adminHandler.AdminUpdateOrder)
		admin.DELETE(orders, "/:id", adminHandler.AdminDeleteOrder)
		orders.GET("/:id/submission", publicHandler.GetOrderSubmission)
		admin.POST(orders, "/:id/reconcile", adminHandler.AdminReconcileOrder)
		admin.POST(orders, "/:id/submission/:step/retry", adminHandler.AdminRetrySubmissionStep)
	}

	api.POST("/raw-orders", publicHandler.CreateRawOrder)
	admin.GET(api, "/raw-orders", adminHandler.AdminListRawOrders)

	// 积分
	api.GET("/points", publicHandler.GetPointsBalance)
	api.GET("/points/history", publicHandler.GetPointsHistory)
	admin.POST(api, "/points", adminHandler.AdminAppendPoints)

	// 优惠券
	coupons := api.Group("/coupons")
	coupons.Use(RateLimitMiddleware(redisClient, couponRule, KeyByIP))
	{
		coupons.POST("/validate", publicHandler.ValidateCoupon)
		admin.POST(coupons, "/use", adminHandler.AdminUseCoupon)
	}

	// 商品
	api.GET("/products/top-sellers", publicHandler.GetTopSellers)
	api.GET("/products/updates", publicHandler.StreamProductUpdates)
	admin.POST(api, "/products/updates", adminHandler.AdminInvalidateProducts)

	// 通知
	admin.POST(api, "/send-order-email", adminHandler.AdminSendOrderEmail)
	admin.POST(api, "/whatsapp/send", adminHandler.AdminSendWhatsApp)
	admin.GET(api, "/whatsapp/send", adminHandler.AdminWhatsAppStatus)
	api.GET("/whatsapp/webhook", publicHandler.VerifyWhatsAppWebhook)
	api.POST("/whatsapp/webhook", publicHandler.ReceiveWhatsAppWebhook)

	// 管理员接口
	adminGroup := api.Group("/admin")
	{
		// 登录接口（无需鉴权）
		adminGroup.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("username")), adminHandler.AdminLogin)

		admin.GET(adminGroup, "/me", adminHandler.GetAdminProfile)
		admin.GET(adminGroup, "/coupons", adminHandler.GetAdminCoupons)
		admin.POST(adminGroup, "/coupons", adminHandler.CreateCoupon)
		admin.GET(adminGroup, "/coupons/:id", adminHandler.GetCoupon)
		admin.PUT(adminGroup, "/coupons/:id", adminHandler.UpdateCoupon)
		admin.DELETE(adminGroup, "/coupons/:id", adminHandler.DeleteCoupon)
		admin.GET(adminGroup, "/permissions", func(ctx *gin.Context) {
			response.Success(ctx, buildAdminPermissionCatalog(r, admin.paths))
		})
	}

	if cfg.Metrics.Enabled && c.Registry != nil {
		path := strings.TrimSpace(cfg.Metrics.Path)
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{Registry: c.Registry})))
	}

	// 健康检查
	r.GET("/healthz", func(ctx *gin.Context) {
		status := gin.H{"status": "ok", "sse_clients": 0}
		if c.Hub != nil {
			status["sse_clients"] = c.Hub.ClientCount()
		}
		if cache.Enabled() {
			if err := cache.Ping(ctx.Request.Context()); err != nil {
				status["redis"] = "down"
			} else {
				status["redis"] = "ok"
			}
		}
		ctx.JSON(http.StatusOK, status)
	})

	return r
}

// adminRoutes 在任意分组下注册需要管理员令牌与 RBAC 的路由
type adminRoutes struct {
	guard []gin.HandlerFunc
	paths map[string]struct{}
}

func newAdminRoutes(guard ...gin.HandlerFunc) *adminRoutes {
	return &adminRoutes{guard: guard, paths: make(map[string]struct{})}
}

func (a *adminRoutes) handle(group *gin.RouterGroup, method, path string, handler gin.HandlerFunc) {
	handlers := make([]gin.HandlerFunc, 0, len(a.guard)+1)
	handlers = append(handlers, a.guard...)
	handlers = append(handlers, handler)
	group.Handle(method, path, handlers...)
	a.paths[method+" "+joinRoutePath(group.BasePath(), path)] = struct{}{}
}

func (a *adminRoutes) GET(group *gin.RouterGroup, path string, handler gin.HandlerFunc) {
	a.handle(group, http.MethodGet, path, handler)
}

func (a *adminRoutes) POST(group *gin.RouterGroup, path string, handler gin.HandlerFunc) {
	a.handle(group, http.MethodPost, path, handler)
}

func (a *adminRoutes) PUT(group *gin.RouterGroup, path string, handler gin.HandlerFunc) {
	a.handle(group, http.MethodPut, path, handler)
}

func (a *adminRoutes) DELETE(group *gin.RouterGroup, path string, handler gin.HandlerFunc) {
	a.handle(group, http.MethodDelete, path, handler)
}

func joinRoutePath(base, path string) string {
	if path == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine, adminPaths map[string]struct{}) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(adminPaths))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if _, ok := adminPaths[method+" "+item.Path]; !ok {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	return segments[1]
}
