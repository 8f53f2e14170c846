// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                 string   `yaml:"env" env:"ENV" env-default:"local"`
	ProtectedPrincipals []string `yaml:"protected_principals" env:"PROTECTED_PRINCIPALS" env-separator:","`
	HTTPServer          `yaml:"http_server"`
	Storage             `yaml:"storage"`
	RedisConnection     `yaml:"redis_connection"`
	Postgres            `yaml:"postgres"`
	Session             `yaml:"session"`
	Credentials         `yaml:"credentials"`
	RabbitMQ            `yaml:"rabbitmq"`
	SMTP                `yaml:"smtp"`
	RateLimit           `yaml:"rate_limit"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// Storage выбирает хранилище и параметры оптимистичной записи
type Storage struct {
	Backend      string        `yaml:"backend" env:"STORAGE_BACKEND" env-default:"redis"`
	MaxRetries   int           `yaml:"max_retries" env-default:"10"`
	RetryBackoff time.Duration `yaml:"retry_backoff" env-default:"5ms"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// Postgres настройки альтернативного хранилища
type Postgres struct {
	DSN string `yaml:"dsn" env:"POSTGRES_DSN"`
}

// Session настройки сессий
type Session struct {
	TTL time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"1h"`
}

// Credentials настройки кодов подтверждения и паролей
type Credentials struct {
	CodeTTL           time.Duration `yaml:"code_ttl" env-default:"15m"`
	CodeLength        int           `yaml:"code_length" env-default:"6"`
	MaxAttempts       int           `yaml:"max_attempts" env-default:"5"`
	MinPasswordLength int           `yaml:"min_password_length" env-default:"8"`
}

// RabbitMQ настройки очереди писем
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	Exchange   string        `yaml:"exchange" env-default:"notifications"`
	Queue      string        `yaml:"queue" env-default:"notification.credentials"`
	RoutingKey string        `yaml:"routing_key" env-default:"credentials"`
	Retries    int           `yaml:"retries" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// SMTP настройки отправки писем
type SMTP struct {
	SMTPHost string `yaml:"host" env:"SMTP_HOST"`
	SMTPPort string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser string `yaml:"user" env:"SMTP_USER"`
	SMTPPass string `yaml:"password" env:"SMTP_PASSWORD"`
}

// RateLimit ограничение запросов на клиента
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"5"`
	Burst int     `yaml:"burst" env-default:"10"`
}

// MustLoad функция для загрузки конфига из файла CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load читает конфиг из файла и проверяет его
func Load(path string) (*Config, error) {
	const op = "config.Load"
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for i, p := range cfg.ProtectedPrincipals {
		cfg.ProtectedPrincipals[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case "redis":
		if c.AddressRedis == "" {
			return fmt.Errorf("redis_connection.addressredis is required for redis backend")
		}
	case "postgres":
		if c.DSN == "" {
			return fmt.Errorf("postgres.dsn is required for postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Backend)
	}
	if c.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	if c.CodeLength <= 0 || c.CodeTTL <= 0 {
		return fmt.Errorf("credentials.code_length and credentials.code_ttl must be positive")
	}
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"ProtectedPrincipals: %v\n"+
			"Storage: %s (max_retries=%d)\n"+
			"Redis: %s db=%d\n"+
			"HTTPServer: %s timeout=%s idle=%s\n"+
			"Session TTL: %s\n"+
			"Credentials: code_ttl=%s length=%d attempts=%d min_password=%d\n"+
			"RabbitMQ: exchange=%s routing_key=%s\n",
		c.Env,
		c.ProtectedPrincipals,
		c.Backend, c.Storage.MaxRetries,
		c.AddressRedis, c.DB,
		c.AddressHTTP, c.TimeoutHTTP, c.IdleTimeout,
		c.TTL,
		c.CodeTTL, c.CodeLength, c.MaxAttempts, c.MinPasswordLength,
		c.Exchange, c.RoutingKey,
	)
}
