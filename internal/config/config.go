// Package config предоставляет структуры и функции для парсинга и загрузки конфига.
//
// Конфиг читается из YAML-файла, путь к которому передаётся в CONFIG_PATH;
// любое поле можно переопределить переменной окружения.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	// EnvLocal — локальный запуск, текстовые логи уровня debug.
	EnvLocal = "local"
	// EnvDev — стенд разработки.
	EnvDev = "dev"
	// EnvProd — продакшен.
	EnvProd = "prod"

	// QuotaAtomic — лимит проверяется и вставка выполняется в одной транзакции.
	QuotaAtomic = "atomic"
	// QuotaAdvisory — подсчёт, решение и вставка выполняются отдельными запросами.
	QuotaAdvisory = "advisory"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string          `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string          `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING" env-required:"true"`
	MigrationsPath          string          `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	HTTPServer              HTTPServer      `yaml:"http_server"`
	GRPCServer              GRPCServer      `yaml:"grpc_server"`
	Redis                   RedisConnection `yaml:"redis_connection"`
	RabbitMQ                RabbitMQ        `yaml:"rabbitmq"`
	Auth                    Auth            `yaml:"auth"`
	Webhook                 Webhook         `yaml:"webhook"`
	Quota                   Quota           `yaml:"quota"`
	RateLimit               RateLimit       `yaml:"rate_limit"`
}

// HTTPServer структура для настройки HTTP-сервера
type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	Timeout     time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// GRPCServer структура для настройки gRPC-сервера проверки здоровья
type GRPCServer struct {
	Address        string        `yaml:"address" env:"GRPC_ADDRESS" env-default:":9090"`
	HealthInterval time.Duration `yaml:"health_interval" env:"GRPC_HEALTH_INTERVAL" env-default:"15s"`
}

// RedisConnection структура для настройки подключения к redis.
// Пустой Address отключает кеш.
type RedisConnection struct {
	Address     string        `yaml:"address" env:"REDIS_ADDRESS"`
	Password    string        `yaml:"password" env:"REDIS_PASSWORD"`
	User        string        `yaml:"user" env:"REDIS_USER"`
	DB          int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	MaxRetries  int           `yaml:"max_retries" env:"REDIS_MAX_RETRIES" env-default:"3"`
	DialTimeout time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`
	Timeout     time.Duration `yaml:"timeout" env:"REDIS_TIMEOUT" env-default:"3s"`
	UserTTL     time.Duration `yaml:"user_ttl" env:"REDIS_USER_TTL" env-default:"10m"`
}

// RabbitMQ структура для настройки брокера. Пустой URL отключает публикацию событий.
type RabbitMQ struct {
	URL               string        `yaml:"url" env:"RABBITMQ_URL"`
	Retries           int           `yaml:"retries" env:"RABBITMQ_RETRIES" env-default:"5"`
	RetryDelay        time.Duration `yaml:"retry_delay" env:"RABBITMQ_RETRY_DELAY" env-default:"2s"`
	Exchange          string        `yaml:"exchange" env:"RABBITMQ_EXCHANGE" env-default:"todos.events"`
	ProvisioningQueue string        `yaml:"provisioning_queue" env:"RABBITMQ_PROVISIONING_QUEUE" env-default:"users.provisioning"`
	ProvisioningKey   string        `yaml:"provisioning_key" env:"RABBITMQ_PROVISIONING_KEY" env-default:"user.created"`
	EventsRoutingKey  string        `yaml:"events_routing_key" env:"RABBITMQ_EVENTS_ROUTING_KEY" env-default:"subscription"`
	Workers           int           `yaml:"workers" env:"RABBITMQ_WORKERS" env-default:"10"`
}

// Auth структура для проверки JWT провайдера идентичности
type Auth struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY" env-required:"true"`
	Issuer       string        `yaml:"issuer" env:"JWT_ISSUER"`
	TokenTTL     time.Duration `yaml:"token_ttl" env:"JWT_TOKEN_TTL" env-default:"1h"`
}

// Webhook структура для проверки подписи вебхуков провайдера идентичности
type Webhook struct {
	Secret    string        `yaml:"secret" env:"WEBHOOK_SECRET" env-required:"true"`
	Tolerance time.Duration `yaml:"tolerance" env:"WEBHOOK_TOLERANCE" env-default:"5m"`
}

// Quota структура для настройки лимита пользователей без подписки
type Quota struct {
	FreeLimit   int    `yaml:"free_limit" env:"QUOTA_FREE_LIMIT" env-default:"3"`
	Enforcement string `yaml:"enforcement" env:"QUOTA_ENFORCEMENT" env-default:"atomic"`
}

// RateLimit структура для ограничения частоты запросов одного пользователя
type RateLimit struct {
	RPS   float64 `yaml:"rps" env:"RATE_LIMIT_RPS" env-default:"5"`
	Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"10"`

	// IdleTTL время простоя, после которого ограничитель ключа удаляется.
	IdleTTL       time.Duration `yaml:"idle_ttl" env:"RATE_LIMIT_IDLE_TTL" env-default:"10m"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"RATE_LIMIT_SWEEP_INTERVAL" env-default:"1m"`
}

// Load читает конфиг из файла path и проверяет его.
func Load(path string) (*Config, error) {
	const op = "config.Load"
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad загружает конфиг из CONFIG_PATH и завершает процесс при ошибке.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Validate проверяет значения, которые cleanenv проверить не может.
func (c *Config) Validate() error {
	var errs []error
	switch c.Quota.Enforcement {
	case QuotaAtomic, QuotaAdvisory:
	default:
		errs = append(errs, fmt.Errorf("quota.enforcement must be %q or %q, got %q", QuotaAtomic, QuotaAdvisory, c.Quota.Enforcement))
	}
	if c.Quota.FreeLimit < 0 {
		errs = append(errs, fmt.Errorf("quota.free_limit must not be negative"))
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit.rps and rate_limit.burst must be positive"))
	}
	if c.RateLimit.IdleTTL <= 0 || c.RateLimit.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit.idle_ttl and rate_limit.sweep_interval must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"MigrationsPath: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"GRPCServer:\n"+
			"  Address: %s\n"+
			"RedisConnection:\n"+
			"  Address: %s\n"+
			"  Password: %s\n"+
			"  DB: %d\n"+
			"  UserTTL: %s\n"+
			"RabbitMQ:\n"+
			"  URL: %s\n"+
			"  Exchange: %s\n"+
			"Auth:\n"+
			"  JWTSecretKey: %s\n"+
			"  Issuer: %s\n"+
			"Webhook:\n"+
			"  Secret: %s\n"+
			"Quota:\n"+
			"  FreeLimit: %d\n"+
			"  Enforcement: %s\n",
		c.Env,
		redact(c.StorageConnectionString),
		c.MigrationsPath,
		c.HTTPServer.Address,
		c.HTTPServer.Timeout,
		c.HTTPServer.IdleTimeout,
		c.GRPCServer.Address,
		c.Redis.Address,
		redact(c.Redis.Password),
		c.Redis.DB,
		c.Redis.UserTTL,
		redact(c.RabbitMQ.URL),
		c.RabbitMQ.Exchange,
		redact(c.Auth.JWTSecretKey),
		c.Auth.Issuer,
		redact(c.Webhook.Secret),
		c.Quota.FreeLimit,
		c.Quota.Enforcement,
	)
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
