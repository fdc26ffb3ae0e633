package provider

import (
	"time"

	"github.com/bazaar-next/internal/authz"
	"github.com/bazaar-next/internal/broadcast"
	"github.com/bazaar-next/internal/cache"
	"github.com/bazaar-next/internal/checkout"
	"github.com/bazaar-next/internal/config"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/metrics"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/pricing"
	"github.com/bazaar-next/internal/queue"
	"github.com/bazaar-next/internal/repository"
	"github.com/bazaar-next/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
)

const (
	cartSessionTTL     = 7 * 24 * time.Hour
	checkoutSessionTTL = 2 * time.Hour
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Policy      pricing.Policy
	Registry    *prometheus.Registry
	Metrics     *metrics.Metrics
	Hub         *broadcast.Hub
	Relay       *broadcast.RedisRelay

	// Repositories
	AdminRepo      repository.AdminRepository
	ProductRepo    repository.ProductRepository
	CouponRepo     repository.CouponRepository
	OrderRepo      repository.GuestOrderRepository
	OrderItemRepo  repository.OrderItemRepository
	PointsRepo     repository.PointsRepository
	RawOrderRepo   repository.RawOrderRepository
	SubmissionRepo repository.SubmissionRepository
	StatsRepo      repository.StatsRepository

	// Services
	AuthzService      *authz.Service
	AuthService       *service.AuthService
	OrderTokenService *service.OrderTokenService
	EmailService      *service.EmailService
	WhatsAppService   *service.WhatsAppService
	ProductService    *service.ProductService
	CartService       *service.CartService
	CouponService     *service.CouponService
	PointsService     *service.PointsService
	RawOrderService   *service.RawOrderService
	SubmissionService *service.SubmissionService
	CheckoutService   *service.CheckoutService
	OrderService      *service.OrderService
	StatsService      *service.StatsService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient, _ = queue.NewClient(nil)
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Policy:      pricing.NewPolicy(cfg.Pricing),
	}
	c.initMetrics()

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initMetrics() {
	if !c.Config.Metrics.Enabled {
		c.Metrics = metrics.New(nil, "")
		return
	}
	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.Metrics = metrics.New(c.Registry, c.Config.Metrics.Namespace)
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.CouponRepo = repository.NewCouponRepository(db)
	c.OrderRepo = repository.NewGuestOrderRepository(db)
	c.OrderItemRepo = repository.NewOrderItemRepository(db)
	c.PointsRepo = repository.NewPointsRepository(db)
	c.RawOrderRepo = repository.NewRawOrderRepository(db)
	c.SubmissionRepo = repository.NewSubmissionRepository(db)
	c.StatsRepo = repository.NewStatsRepository(db)
}

func (c *Container) initServices() {
	cfg := c.Config
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.SeedRoles(); err != nil {
		logger.Errorw("provider_seed_roles_failed", "error", err)
		panic(err)
	}

	country := cfg.WhatsApp.DefaultCountry

	c.Hub = broadcast.NewHub(cfg.Broadcast.BufferSize, c.Metrics)
	if cfg.Broadcast.RelayEnabled && cache.Enabled() {
		c.Relay = broadcast.NewRedisRelay(c.Hub, cfg.Broadcast.RedisChannel)
	}

	c.AuthService = service.NewAuthService(cfg.AdminJWT, c.AdminRepo)
	c.OrderTokenService = service.NewOrderTokenService(cfg.Order.TokenSecret, cfg.Order.TokenExpireHours)
	c.EmailService = service.NewEmailService(&cfg.Email, c.Metrics)
	c.WhatsAppService = service.NewWhatsAppService(&cfg.WhatsApp, c.Metrics)
	c.ProductService = service.NewProductService(c.ProductRepo, c.Hub, 0)
	c.CartService = service.NewCartService(c.Policy, cache.NewSessionStore("cart", cartSessionTTL), c.ProductRepo)
	c.CouponService = service.NewCouponService(c.CouponRepo)
	c.PointsService = service.NewPointsService(c.PointsRepo, c.Policy, country)
	c.RawOrderService = service.NewRawOrderService(c.RawOrderRepo, country)
	c.StatsService = service.NewStatsService(c.StatsRepo)

	c.SubmissionService = service.NewSubmissionService(service.SubmissionDeps{
		Policy:     c.Policy,
		OrderRepo:  c.OrderRepo,
		ItemRepo:   c.OrderItemRepo,
		RawRepo:    c.RawOrderRepo,
		PointsRepo: c.PointsRepo,
		CouponRepo: c.CouponRepo,
		SubRepo:    c.SubmissionRepo,
		Email:      c.EmailService,
		WhatsApp:   c.WhatsAppService,
		Tokens:     c.OrderTokenService,
		Queue:      c.QueueClient,
		Metrics:    c.Metrics,
	}, service.SubmissionOptions{
		CreateTimeout:  time.Duration(cfg.Order.CreateTimeoutSeconds) * time.Second,
		MaxAttempts:    cfg.Submission.MaxAttempts,
		RetryBase:      time.Duration(cfg.Submission.RetryBaseSeconds) * time.Second,
		ReconcileGrace: time.Duration(cfg.Submission.ReconcileGraceSeconds) * time.Second,
		ReconcileBatch: cfg.Submission.ReconcileBatchSize,
		NumberPrefix:   cfg.Order.NumberPrefix,
		DefaultCountry: country,
	})

	captchaStore := cache.NewCaptchaStore("captcha", time.Duration(cfg.Captcha.ExpireSeconds)*time.Second, cfg.Captcha.MaxStore)
	machine := checkout.NewMachine(c.Policy, captchaStore, checkout.Options{
		RestrictedCity: cfg.Pricing.RestrictedCity,
		ErrorDisplay:   time.Duration(cfg.Pricing.CityErrorDisplaySecs) * time.Second,
	})
	c.CheckoutService = service.NewCheckoutService(
		machine,
		cache.NewSessionStore("checkout", checkoutSessionTTL),
		c.CartService,
		c.CouponService,
		c.PointsService,
		c.RawOrderRepo,
		c.SubmissionService,
	)

	c.OrderService = service.NewOrderService(service.OrderDeps{
		Policy:         c.Policy,
		OrderRepo:      c.OrderRepo,
		ItemRepo:       c.OrderItemRepo,
		PointsRepo:     c.PointsRepo,
		SubRepo:        c.SubmissionRepo,
		Email:          c.EmailService,
		WhatsApp:       c.WhatsAppService,
		Queue:          c.QueueClient,
		DefaultCountry: country,
	})
}

// Close 释放队列客户端、推送连接与 Redis 连接
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.Hub != nil {
		c.Hub.CloseAll()
	}
	return multierr.Combine(c.QueueClient.Close(), cache.Close())
}
