// Package config описывает настройки приложения и загружает их из YAML-файла и окружения.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек всех бинарников.
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	PublicURL               string `yaml:"public_url" env-default:"http://localhost:8080"`
	MetricsAddress          string `yaml:"metrics_address" env:"METRICS_ADDRESS"` // Адрес /metrics фоновых воркеров, пустой отключает
	HTTPServer              `yaml:"http_server"`
	RedisConnection         `yaml:"redis_connection"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	SMTP                    `yaml:"smtp"`
	Stripe                  `yaml:"stripe"`
	Captcha                 `yaml:"captcha"`
	Scripts                 `yaml:"scripts"`
	Scheduler               `yaml:"scheduler"`
	Seed                    `yaml:"seed"`
}

// HTTPServer настройки HTTP-сервера.
type HTTPServer struct {
	AddressHTTP    string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP    time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env-default:"60s"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RateLimit      float64       `yaml:"rate_limit" env-default:"5"` // Запросов в секунду на клиента
	RateBurst      int           `yaml:"rate_burst" env-default:"10"`
}

// RedisConnection настройки подключения к redis. Пустой адрес включает кеш в памяти процесса.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// JWTToken настройки токенов доступа.
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// RabbitMQ настройки брокера сообщений.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// SMTP настройки почтового сервера.
type SMTP struct {
	SMTPHost     string `yaml:"host"`
	SMTPPort     string `yaml:"port" env-default:"587"`
	SMTPUser     string `yaml:"user"`
	SMTPPassword string `yaml:"password" env:"SMTP_PASSWORD"`
	SMTPFrom     string `yaml:"from"`
}

// Stripe настройки платёжного шлюза.
type Stripe struct {
	StripeSecretKey     string `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
	BasicPriceID        string `yaml:"basic_price_id"`
	PremiumPriceID      string `yaml:"premium_price_id"`
	EnterprisePriceID   string `yaml:"enterprise_price_id"`
	SuccessURL          string `yaml:"success_url"`
	CancelURL           string `yaml:"cancel_url"`
}

// Captcha настройки проверки reCAPTCHA. Пустой секрет отключает проверку.
type Captcha struct {
	CaptchaSecretKey string  `yaml:"secret_key" env:"CAPTCHA_SECRET_KEY"`
	MinScore         float64 `yaml:"min_score" env-default:"0.5"`
	VerifyURL        string  `yaml:"verify_url" env-default:"https://www.google.com/recaptcha/api/siteverify"`
}

// Scripts настройки запуска служебных скриптов.
type Scripts struct {
	ScriptsDir    string        `yaml:"dir" env-default:"./Scripts"`
	ScriptTimeout time.Duration `yaml:"timeout" env-default:"60s"`
}

// Scheduler настройки планировщика напоминаний.
type Scheduler struct {
	AlarmInterval time.Duration `yaml:"alarm_interval" env-default:"1m"`
}

// Seed учётная запись супер-администратора, создаваемая при старте.
type Seed struct {
	SuperAdminEmail    string `yaml:"super_admin_email"`
	SuperAdminPassword string `yaml:"super_admin_password" env:"SUPER_ADMIN_PASSWORD"`
}

// MustLoad загружает конфиг по пути из CONFIG_PATH и завершает процесс при ошибке.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

// String выводит конфиг без секретов.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"MigrationsPath: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"RabbitMQ:\n"+
			"  MaxRetries: %d\n"+
			"  RetryDelay: %s\n"+
			"SMTP:\n"+
			"  Host: %s\n"+
			"  Port: %s\n"+
			"Scripts:\n"+
			"  Dir: %s\n"+
			"  Timeout: %s\n"+
			"JWTToken:\n"+
			"  TokenTTL: %s\n",
		c.Env,
		c.MigrationsPath,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.AddressRedis,
		c.DB,
		c.RabbitMQMaxRetries,
		c.RabbitMQRetryDelay,
		c.SMTPHost,
		c.SMTPPort,
		c.ScriptsDir,
		c.ScriptTimeout,
		c.TokenTTL,
	)
}
