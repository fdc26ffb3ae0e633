package config

import (
	"fmt"
	"strings"

	"github.com/bazaar-next/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Database   DatabaseConfig   `mapstructure:"database"`
	AdminJWT   JWTConfig        `mapstructure:"admin_jwt"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Queue      QueueConfig      `mapstructure:"queue"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Security   SecurityConfig   `mapstructure:"security"`
	Email      EmailConfig      `mapstructure:"email"`
	WhatsApp   WhatsAppConfig   `mapstructure:"whatsapp"`
	Captcha    CaptchaConfig    `mapstructure:"captcha"`
	Pricing    PricingConfig    `mapstructure:"pricing"`
	Order      OrderConfig      `mapstructure:"order"`
	Submission SubmissionConfig `mapstructure:"submission"`
	Broadcast  BroadcastConfig  `mapstructure:"broadcast"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Level:      c.Level,
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseRetryConfig 瞬时故障重试配置
type DatabaseRetryConfig struct {
	MaxRetries int `mapstructure:"max_retries"`
	BaseMS     int `mapstructure:"base_ms"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string              `mapstructure:"driver"` // 数据库驱动（sqlite/postgres/mysql）
	DSN    string              `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig  `mapstructure:"pool"`
	Retry  DatabaseRetryConfig `mapstructure:"retry"`
}

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// EmailConfig 邮件服务配置
type EmailConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	From           string `mapstructure:"from"`
	FromName       string `mapstructure:"from_name"`
	UseTLS         bool   `mapstructure:"use_tls"`
	UseSSL         bool   `mapstructure:"use_ssl"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	StoreName      string `mapstructure:"store_name"`
	SupportPhone   string `mapstructure:"support_phone"`
}

// WhatsAppConfig WhatsApp Business 配置
type WhatsAppConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	GraphURL         string  `mapstructure:"graph_url"`
	APIVersion       string  `mapstructure:"api_version"`
	AccessToken      string  `mapstructure:"access_token"`
	PhoneNumberID    string  `mapstructure:"phone_number_id"`
	VerifyToken      string  `mapstructure:"verify_token"`
	OrderTemplate    string  `mapstructure:"order_template"`
	TemplateLanguage string  `mapstructure:"template_language"`
	DefaultCountry   string  `mapstructure:"default_country"`
	TimeoutSeconds   int     `mapstructure:"timeout_seconds"`
	RatePerSecond    float64 `mapstructure:"rate_per_second"`
	RateBurst        int     `mapstructure:"rate_burst"`
}

// CaptchaConfig 算术验证码配置
type CaptchaConfig struct {
	ExpireSeconds int `mapstructure:"expire_seconds"`
	MaxStore      int `mapstructure:"max_store"`
}

// PricingConfig 运费与积分策略配置
type PricingConfig struct {
	StandardShippingFee  float64 `mapstructure:"standard_shipping_fee"`
	ReducedShippingFee   float64 `mapstructure:"reduced_shipping_fee"`
	ReducedThreshold     float64 `mapstructure:"reduced_threshold"`
	FreeThreshold        float64 `mapstructure:"free_threshold"`
	WeightThresholdKg    float64 `mapstructure:"weight_threshold_kg"`
	OverweightFeePerKg   float64 `mapstructure:"overweight_fee_per_kg"`
	PointsPerUnit        float64 `mapstructure:"points_per_unit"`
	PointValue           float64 `mapstructure:"point_value"`
	GroundFloorFactor    float64 `mapstructure:"ground_floor_factor"`
	RestrictedCity       string  `mapstructure:"restricted_city"`
	CityErrorDisplaySecs int     `mapstructure:"city_error_display_seconds"`
}

// OrderConfig 订单配置
type OrderConfig struct {
	TokenSecret          string `mapstructure:"token_secret"`
	TokenExpireHours     int    `mapstructure:"token_expire_hours"`
	CreateTimeoutSeconds int    `mapstructure:"create_timeout_seconds"`
	NumberPrefix         string `mapstructure:"number_prefix"`
}

// SubmissionConfig 下单后续步骤配置
type SubmissionConfig struct {
	MaxAttempts              int `mapstructure:"max_attempts"`
	RetryBaseSeconds         int `mapstructure:"retry_base_seconds"`
	ReconcileIntervalSeconds int `mapstructure:"reconcile_interval_seconds"`
	ReconcileGraceSeconds    int `mapstructure:"reconcile_grace_seconds"`
	ReconcileBatchSize       int `mapstructure:"reconcile_batch_size"`
}

// BroadcastConfig 商品变更推送配置
type BroadcastConfig struct {
	BufferSize       int    `mapstructure:"buffer_size"`
	HeartbeatSeconds int    `mapstructure:"heartbeat_seconds"`
	RedisChannel     string `mapstructure:"redis_channel"`
	RelayEnabled     bool   `mapstructure:"relay_enabled"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	LoginRateLimit   RateLimitConfig `mapstructure:"login_rate_limit"`
	LookupRateLimit  RateLimitConfig `mapstructure:"lookup_rate_limit"`
	CaptchaRateLimit RateLimitConfig `mapstructure:"captcha_rate_limit"`
	CouponRateLimit  RateLimitConfig `mapstructure:"coupon_rate_limit"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxAttempts   int `mapstructure:"max_attempts"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")     // 从当前目录查找
	viper.AddConfigPath("../")   // 如果从 cmd/server 运行
	viper.AddConfigPath("./etc") // etc 文件夹

	setDefaults(viper.GetViper())

	// 环境变量支持
	viper.AutomaticEnv()                                   // 自动读取环境变量
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 将 . 替换为 _ (例如 server.port -> SERVER_PORT)

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}

	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.level", "")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "app.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/bazaar.db")
	v.SetDefault("database.pool.max_open_conns", 10)
	v.SetDefault("database.pool.max_idle_conns", 5)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("database.retry.max_retries", 3)
	v.SetDefault("database.retry.base_ms", 100)
	v.SetDefault("admin_jwt.secret", "change-me-in-production")
	v.SetDefault("admin_jwt.expire_hours", 24)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "bz")
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
		"X-Order-Token",
		"Accept-Language",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("security.login_rate_limit.window_seconds", 300)
	v.SetDefault("security.login_rate_limit.max_attempts", 5)
	v.SetDefault("security.lookup_rate_limit.window_seconds", 60)
	v.SetDefault("security.lookup_rate_limit.max_attempts", 10)
	v.SetDefault("security.captcha_rate_limit.window_seconds", 60)
	v.SetDefault("security.captcha_rate_limit.max_attempts", 20)
	v.SetDefault("security.coupon_rate_limit.window_seconds", 60)
	v.SetDefault("security.coupon_rate_limit.max_attempts", 15)
	v.SetDefault("email.enabled", false)
	v.SetDefault("email.host", "")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.from", "")
	v.SetDefault("email.from_name", "")
	v.SetDefault("email.use_tls", true)
	v.SetDefault("email.use_ssl", false)
	v.SetDefault("email.timeout_seconds", 30)
	v.SetDefault("email.store_name", "Bazaar")
	v.SetDefault("email.support_phone", "")
	v.SetDefault("whatsapp.enabled", false)
	v.SetDefault("whatsapp.graph_url", "https://graph.facebook.com")
	v.SetDefault("whatsapp.api_version", "v21.0")
	v.SetDefault("whatsapp.access_token", "")
	v.SetDefault("whatsapp.phone_number_id", "")
	v.SetDefault("whatsapp.verify_token", "")
	v.SetDefault("whatsapp.order_template", "order_confirmation")
	v.SetDefault("whatsapp.template_language", "en")
	v.SetDefault("whatsapp.default_country", "971")
	v.SetDefault("whatsapp.timeout_seconds", 15)
	v.SetDefault("whatsapp.rate_per_second", 10)
	v.SetDefault("whatsapp.rate_burst", 5)
	v.SetDefault("captcha.expire_seconds", 300)
	v.SetDefault("captcha.max_store", 10240)
	v.SetDefault("pricing.standard_shipping_fee", 10)
	v.SetDefault("pricing.reduced_shipping_fee", 5)
	v.SetDefault("pricing.reduced_threshold", 75)
	v.SetDefault("pricing.free_threshold", 150)
	v.SetDefault("pricing.weight_threshold_kg", 10)
	v.SetDefault("pricing.overweight_fee_per_kg", 1)
	v.SetDefault("pricing.points_per_unit", 3)
	v.SetDefault("pricing.point_value", 0.01)
	v.SetDefault("pricing.ground_floor_factor", 0.5)
	v.SetDefault("pricing.restricted_city", "Dubai")
	v.SetDefault("pricing.city_error_display_seconds", 5)
	v.SetDefault("order.token_secret", "order-change-me-in-production")
	v.SetDefault("order.token_expire_hours", 720)
	v.SetDefault("order.create_timeout_seconds", 10)
	v.SetDefault("order.number_prefix", "BZ")
	v.SetDefault("submission.max_attempts", 5)
	v.SetDefault("submission.retry_base_seconds", 30)
	v.SetDefault("submission.reconcile_interval_seconds", 300)
	v.SetDefault("submission.reconcile_grace_seconds", 120)
	v.SetDefault("submission.reconcile_batch_size", 50)
	v.SetDefault("broadcast.buffer_size", 16)
	v.SetDefault("broadcast.heartbeat_seconds", 25)
	v.SetDefault("broadcast.redis_channel", "products:updates")
	v.SetDefault("broadcast.relay_enabled", true)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "bazaar")
}
