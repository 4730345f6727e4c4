package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	envPrefix       = "LINKLY"
)

// Config 应用配置，对应 config.yaml
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	DB        DBConfig        `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	ShortLink ShortLinkConfig `mapstructure:"shortlink"`
	Store     StoreConfig     `mapstructure:"store"`
	Click     ClickConfig     `mapstructure:"click"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Links     LinksConfig     `mapstructure:"links"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	BaseURL         string        `mapstructure:"base_url"` // 为空时按请求的 Host 生成短链地址
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowOrigins    []string      `mapstructure:"allow_origins"`
}

type DBConfig struct {
	Driver          string        `mapstructure:"driver"` // mysql | sqlite
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	MaxIdle     int           `mapstructure:"max_idle"`
	MaxActive   int           `mapstructure:"max_active"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type CacheConfig struct {
	Driver      string        `mapstructure:"driver"` // redis | memory | none
	Timeout     time.Duration `mapstructure:"timeout"`
	NegativeTTL time.Duration `mapstructure:"negative_ttl"`
}

// ShortLinkConfig 短链核心参数
type ShortLinkConfig struct {
	ShortKeyLength          int    `mapstructure:"short_key_length"`
	ShortKeyAlphabet        string `mapstructure:"short_key_alphabet"`
	CacheTTLSeconds         int    `mapstructure:"cache_ttl_seconds"`
	MaxKeyGenerationRetries int    `mapstructure:"max_key_generation_retries"`
}

// CacheTTL 缓存过期时间
func (c ShortLinkConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

type StoreConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

type ClickConfig struct {
	Async         bool          `mapstructure:"async"`
	Workers       int           `mapstructure:"workers"`
	QueueSize     int           `mapstructure:"queue_size"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RetentionDays int           `mapstructure:"retention_days"`
	RetentionCron string        `mapstructure:"retention_cron"`
}

type AuthConfig struct {
	JWTSecret      string `mapstructure:"jwt_secret"`
	AllowAnonymous bool   `mapstructure:"allow_anonymous"`
}

type LinksConfig struct {
	MaxURLLength   int      `mapstructure:"max_url_length"`
	BlockedDomains []string `mapstructure:"blocked_domains"`
	ReuseExisting  bool     `mapstructure:"reuse_existing"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.base_url", "")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("db.driver", "mysql")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 50)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("db.slow_threshold", 200*time.Millisecond)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_idle", 10)
	v.SetDefault("redis.max_active", 100)
	v.SetDefault("redis.idle_timeout", 240*time.Second)
	v.SetDefault("redis.dial_timeout", 2*time.Second)

	v.SetDefault("cache.driver", "redis")
	v.SetDefault("cache.timeout", 100*time.Millisecond)
	v.SetDefault("cache.negative_ttl", time.Duration(0))

	v.SetDefault("shortlink.short_key_length", 7)
	v.SetDefault("shortlink.short_key_alphabet", DefaultAlphabet)
	v.SetDefault("shortlink.cache_ttl_seconds", 3600)
	v.SetDefault("shortlink.max_key_generation_retries", 5)

	v.SetDefault("store.timeout", 2*time.Second)
	v.SetDefault("store.retry_backoff", 50*time.Millisecond)

	v.SetDefault("click.async", false)
	v.SetDefault("click.workers", 4)
	v.SetDefault("click.queue_size", 1024)
	v.SetDefault("click.timeout", time.Second)
	v.SetDefault("click.retention_days", 0)
	v.SetDefault("click.retention_cron", "0 3 * * *")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.allow_anonymous", true)

	v.SetDefault("links.max_url_length", 2048)
	v.SetDefault("links.blocked_domains", []string{})
	v.SetDefault("links.reuse_existing", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "logs/linkly.log")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 7)
	v.SetDefault("log.compress", false)
}

// Load 读取配置文件并叠加环境变量（LINKLY_SERVER_ADDR 覆盖 server.addr）
// path 为空时只使用默认值和环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	var errs []error

	switch c.DB.Driver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("db.driver: unsupported driver %q", c.DB.Driver))
	}
	if c.DB.DSN == "" {
		errs = append(errs, errors.New("db.dsn is required"))
	}

	switch c.Cache.Driver {
	case "redis", "memory", "none":
	default:
		errs = append(errs, fmt.Errorf("cache.driver: unsupported driver %q", c.Cache.Driver))
	}

	sl := c.ShortLink
	if sl.ShortKeyLength < 1 || sl.ShortKeyLength > 32 {
		errs = append(errs, fmt.Errorf("shortlink.short_key_length must be in [1, 32], got %d", sl.ShortKeyLength))
	}
	if len(sl.ShortKeyAlphabet) < 2 {
		errs = append(errs, errors.New("shortlink.short_key_alphabet needs at least 2 characters"))
	}
	if sl.CacheTTLSeconds <= 0 {
		errs = append(errs, errors.New("shortlink.cache_ttl_seconds must be positive"))
	}
	if sl.MaxKeyGenerationRetries < 1 {
		errs = append(errs, errors.New("shortlink.max_key_generation_retries must be at least 1"))
	}

	if c.Store.Timeout <= 0 {
		errs = append(errs, errors.New("store.timeout must be positive"))
	}
	if c.Click.Async && (c.Click.Workers < 1 || c.Click.QueueSize < 1) {
		errs = append(errs, errors.New("click.workers and click.queue_size must be positive in async mode"))
	}
	if c.Links.MaxURLLength <= 0 {
		errs = append(errs, errors.New("links.max_url_length must be positive"))
	}

	return errors.Join(errs...)
}
