package config

import (
	"fmt"
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/NathanielJL/polsim-sub002/internal/utils"
)

// Config содержит конфигурацию для Simulation Engine.
type Config struct {
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`

	// Настройки PostgreSQL
	DBHost        string        `envconfig:"DB_HOST" required:"true"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" required:"true"`
	DBName        string        `envconfig:"DB_NAME" required:"true"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_MINUTES" default:"5m"`
	// Секретное поле БЕЗ envconfig тега
	DBPassword string

	// Настройки Redis (кэш состава когорт по провинциям)
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	RedisCacheTTL time.Duration `envconfig:"REDIS_CACHE_TTL" default:"6h"`

	// Настройки RabbitMQ
	RabbitMQURL          string `envconfig:"RABBITMQ_URL" required:"true"`
	SessionUpdatesQueue  string `envconfig:"SESSION_UPDATES_QUEUE" default:"session_updates"`
	ElectionResultsQueue string `envconfig:"ELECTION_RESULTS_QUEUE" default:"election_results"`
	NewsEventsQueue      string `envconfig:"NEWS_EVENTS_QUEUE" default:"news_events"`

	// Настройки AI-коллаборатора (OpenAI-совместимый endpoint)
	AIBaseURL string        `envconfig:"AI_BASE_URL" default:"https://api.openai.com/v1"`
	AIModel   string        `envconfig:"AI_MODEL" default:"gpt-4o-mini"`
	AITimeout time.Duration `envconfig:"AI_TIMEOUT" default:"60s"`
	// Секретное поле БЕЗ envconfig тега
	AIAPIKey string

	// Параметры симуляции
	TurnDuration    time.Duration `envconfig:"TURN_DURATION" default:"24h"`
	DecayRate       float64       `envconfig:"REPUTATION_DECAY_RATE" default:"0.02"`
	ElectionCadence int           `envconfig:"ELECTION_CADENCE_YEARS" default:"3"`
}

// GetDSN возвращает строку подключения (DSN) для PostgreSQL.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig загружает конфигурацию из переменных окружения и секретов.
func LoadConfig() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации simulation engine: %w", err)
	}

	// Загружаем ОБЯЗАТЕЛЬНЫЕ секреты
	var loadErr error
	cfg.DBPassword, loadErr = utils.ReadSecret("db_password")
	if loadErr != nil {
		return nil, loadErr
	}

	cfg.AIAPIKey, loadErr = utils.ReadSecret("ai_api_key")
	if loadErr != nil {
		return nil, loadErr
	}

	log.Printf("Конфигурация Simulation Engine загружена (секреты из файлов):")
	log.Printf("  LogLevel: %s", cfg.LogLevel)
	log.Printf("  DB DSN: postgres://%s:***@%s:%s/%s?sslmode=%s", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode)
	log.Printf("  Redis: %s (db %d)", cfg.RedisAddr, cfg.RedisDB)
	log.Printf("  RabbitMQ URL: %s", cfg.RabbitMQURL)
	log.Printf("  Session Updates Queue: %s", cfg.SessionUpdatesQueue)
	log.Printf("  AI Model: %s", cfg.AIModel)
	log.Printf("  Turn Duration: %v", cfg.TurnDuration)
	log.Println("  AI API Key: [ЗАГРУЖЕН]")

	return &cfg, nil
}
