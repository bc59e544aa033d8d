// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	RabbitMQ                `yaml:"rabbitmq"`
	Telegram                `yaml:"telegram"`
	Payment                 `yaml:"payment"`
	Analyzer                `yaml:"analyzer"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"30s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// RabbitMQ структура для настройки подключения к брокеру уведомлений
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// Telegram структура для настройки чат-транспорта
type Telegram struct {
	BotToken        string `yaml:"bot_token" env:"BOT_TOKEN"`
	OperatorID      int64  `yaml:"operator_id" env:"OPERATOR_ID"`
	DefaultLanguage string `yaml:"default_language" env-default:"ar"`
}

// Payment структура для работы с платёжным провайдером
type Payment struct {
	APIKey        string        `yaml:"api_key" env:"PAYMENT_API_KEY"`
	IPNSecret     string        `yaml:"ipn_secret" env:"PAYMENT_IPN_SECRET"`
	CallbackURL   string        `yaml:"callback_url"`
	PriceAmount   float64       `yaml:"price_amount" env-default:"10"`
	PriceCurrency string        `yaml:"price_currency" env-default:"usd"`
	Timeout       time.Duration `yaml:"timeout" env-default:"10s"`
}

// Analyzer структура для клиента LLM-анализа
type Analyzer struct {
	GroqAPIKey  string        `yaml:"groq_api_key" env:"GROQ_API_KEY"`
	GroqModel   string        `yaml:"groq_model" env-default:"mixtral-8x7b-32768"`
	GroqURL     string        `yaml:"groq_url" env-default:"https://api.groq.com/openai/v1/chat/completions"`
	GroqTimeout time.Duration `yaml:"groq_timeout" env-default:"60s"`
}

// MustLoad функция для загрузки конфига, путь берётся из CONFIG_PATH
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

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  User: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"RabbitMQ:\n"+
			"  URL: %s\n"+
			"Telegram:\n"+
			"  OperatorID: %d\n"+
			"  DefaultLanguage: %s\n"+
			"Payment:\n"+
			"  CallbackURL: %s\n"+
			"  Price: %.2f %s\n",
		c.Env,
		c.StorageConnectionString,
		c.AddressRedis,
		c.User,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.RabbitMQURL,
		c.OperatorID,
		c.DefaultLanguage,
		c.CallbackURL,
		c.PriceAmount, c.PriceCurrency,
	)
}
