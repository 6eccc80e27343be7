package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	OSS      OSSConfig      `mapstructure:"oss"`
	Email    EmailConfig    `mapstructure:"email"`
	Queue    QueueConfig    `mapstructure:"queue"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Review   ReviewConfig   `mapstructure:"review"`
	Stripe   StripeConfig   `mapstructure:"stripe"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql / postgres / sqlite
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SSLMode      string `mapstructure:"ssl_mode"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	CDNDomain       string `mapstructure:"cdn_domain"`
}

type EmailConfig struct {
	SMTPHost       string `mapstructure:"smtp_host"`
	SMTPPort       int    `mapstructure:"smtp_port"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	From           string `mapstructure:"from"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout 单次发送的超时时间
func (c *EmailConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type QueueConfig struct {
	NotificationQueue string `mapstructure:"notification_queue"`
	MaxWorkers        int    `mapstructure:"max_workers"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type ReviewConfig struct {
	VerifyBaseURL        string  `mapstructure:"verify_base_url"`        // 验证链接前缀，token 拼接在末尾
	PendingTTLHours      int     `mapstructure:"pending_ttl_hours"`      // 0 表示待验证评价永不过期
	SweepIntervalMinutes int     `mapstructure:"sweep_interval_minutes"` // 过期清理间隔
	SubmitRatePerMinute  float64 `mapstructure:"submit_rate_per_minute"` // 匿名提交限流
	SubmitBurst          int     `mapstructure:"submit_burst"`
}

// PendingTTL 待验证评价的有效期，0 表示不过期
func (c *ReviewConfig) PendingTTL() time.Duration {
	if c.PendingTTLHours <= 0 {
		return 0
	}
	return time.Duration(c.PendingTTLHours) * time.Hour
}

type StripeConfig struct {
	SecretKey     string   `mapstructure:"secret_key"`
	WebhookSecret string   `mapstructure:"webhook_secret"`
	PriceID       string   `mapstructure:"price_id"`
	PlanName      string   `mapstructure:"plan_name"`
	Amount        int64    `mapstructure:"amount"` // 单位：分
	PeriodDays    int      `mapstructure:"period_days"`
	Features      []string `mapstructure:"features"`
	SuccessURL    string   `mapstructure:"success_url"`
	CancelURL     string   `mapstructure:"cancel_url"`
}

type UploadConfig struct {
	MaxPhotoSize int64 `mapstructure:"max_photo_size"` // 最大头像/照片大小（字节）
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug / info / warn / error
	Format string `mapstructure:"format"` // text / json
}

func Load(configPath string) (*Config, error) {
	// .env 只用于本地开发，不存在时忽略
	_ = godotenv.Load()

	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")
	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	setDefaults(v)

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("jwt.expire_hours", 168)

	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.timeout_seconds", 10)

	v.SetDefault("queue.notification_queue", "yardconnect:notifications")
	v.SetDefault("queue.max_workers", 2)

	v.SetDefault("review.verify_base_url", "http://localhost:8080/api/v1/reviews/verify")
	v.SetDefault("review.pending_ttl_hours", 0)
	v.SetDefault("review.sweep_interval_minutes", 60)
	v.SetDefault("review.submit_rate_per_minute", 6)
	v.SetDefault("review.submit_burst", 3)

	v.SetDefault("stripe.plan_name", "YardConnect Subscription")
	v.SetDefault("stripe.amount", 1000)
	v.SetDefault("stripe.period_days", 30)
	v.SetDefault("stripe.features", []string{
		"Appear in search results",
		"Complete profile with photo",
		"Contact information displayed",
		"Review system access",
		"Direct client contact",
	})

	v.SetDefault("upload.max_photo_size", 5*1024*1024)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
