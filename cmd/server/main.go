package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/NathanielJL/polsim-sub002/internal/clients"
	"github.com/NathanielJL/polsim-sub002/internal/config"
	"github.com/NathanielJL/polsim-sub002/internal/database"
	"github.com/NathanielJL/polsim-sub002/internal/logger"
	"github.com/NathanielJL/polsim-sub002/internal/messaging"
	"github.com/NathanielJL/polsim-sub002/internal/repository"
	"github.com/NathanielJL/polsim-sub002/internal/service"
)

func main() {
	_ = godotenv.Load()
	log.Println("Запуск Simulation Engine...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("Не удалось инициализировать логгер: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("Logger initialized", zap.String("logLevel", cfg.LogLevel))

	// PostgreSQL
	dbPool, err := setupDatabase(cfg)
	if err != nil {
		zapLogger.Fatal("Не удалось подключиться к БД", zap.Error(err))
	}
	defer dbPool.Close()
	zapLogger.Info("Успешное подключение к PostgreSQL")

	if err := database.ApplyMigrations(dbPool); err != nil {
		zapLogger.Fatal("Не удалось применить миграции", zap.Error(err))
	}
	zapLogger.Info("Миграции применены")

	// Redis (кэш состава когорт по провинциям)
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	defer redisClient.Close()
	{
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			cancel()
			zapLogger.Fatal("Не удалось подключиться к Redis", zap.Error(err))
		}
		cancel()
	}
	zapLogger.Info("Успешное подключение к Redis", zap.String("addr", cfg.RedisAddr))

	// RabbitMQ
	rabbitConn, err := connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("Не удалось подключиться к RabbitMQ", zap.Error(err))
	}
	defer rabbitConn.Close()
	zapLogger.Info("Успешное подключение к RabbitMQ")

	sessionPublisher, err := messaging.NewRabbitMQSessionUpdatePublisher(rabbitConn, cfg.SessionUpdatesQueue, zapLogger)
	if err != nil {
		zapLogger.Fatal("Не удалось создать SessionUpdatePublisher", zap.Error(err))
	}
	electionPublisher, err := messaging.NewRabbitMQElectionResultPublisher(rabbitConn, cfg.ElectionResultsQueue, zapLogger)
	if err != nil {
		zapLogger.Fatal("Не удалось создать ElectionResultPublisher", zap.Error(err))
	}
	newsPublisher, err := messaging.NewRabbitMQNewsEventPublisher(rabbitConn, cfg.NewsEventsQueue, zapLogger)
	if err != nil {
		zapLogger.Fatal("Не удалось создать NewsEventPublisher", zap.Error(err))
	}

	// Репозитории и инфраструктура
	txRunner := repository.NewPgxTxRunner(dbPool, zapLogger)
	cohortRepo := repository.NewPgCohortRepository(zapLogger)
	repRepo := repository.NewPgReputationRepository(zapLogger)
	policyRepo := repository.NewPgPolicyRepository(zapLogger)
	campaignRepo := repository.NewPgCampaignRepository(zapLogger)
	sessionRepo := repository.NewPgSessionRepository(zapLogger)
	electionRepo := repository.NewPgElectionRepository(zapLogger)
	provinceCache := repository.NewRedisProvinceCohortCache(redisClient, cfg.RedisCacheTTL, zapLogger)

	textGen := clients.NewOpenAITextGenClient(cfg, zapLogger)

	// Сервисы
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	reputationSvc := service.NewReputationService(dbPool, txRunner, repRepo, cohortRepo, cfg.DecayRate, rng, zapLogger)
	policySvc := service.NewPolicyService(txRunner, policyRepo, zapLogger)
	electionSvc := service.NewElectionService(dbPool, txRunner, cohortRepo, repRepo, electionRepo, provinceCache, electionPublisher, zapLogger)
	turnSvc := service.NewTurnService(
		dbPool, txRunner, sessionRepo, campaignRepo, cohortRepo, electionRepo,
		reputationSvc, policySvc, electionSvc,
		textGen, sessionPublisher, newsPublisher, provinceCache,
		cfg.TurnDuration, cfg.ElectionCadence, zapLogger,
	)

	// Восстановление таймеров активных сессий
	scheduler := service.NewTurnScheduler(turnSvc, zapLogger)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		sessions, err := sessionRepo.ListActive(ctx, dbPool)
		cancel()
		if err != nil {
			zapLogger.Fatal("Не удалось загрузить активные сессии", zap.Error(err))
		}
		for _, session := range sessions {
			if err := scheduler.Schedule(session.ID, session.TurnEndsAt); err != nil {
				zapLogger.Error("Не удалось взвести таймер сессии",
					zap.String("sessionID", session.ID.String()), zap.Error(err))
			}
		}
		zapLogger.Info("Таймеры сессий восстановлены", zap.Int("sessions", len(sessions)))
	}

	// Метрики и health-check
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsServer := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: mux}
	go func() {
		zapLogger.Info("Metrics server listening", zap.String("port", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Ошибка запуска metrics сервера", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Получен сигнал завершения, начинаем graceful shutdown...")

	scheduler.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(ctx); err != nil {
		zapLogger.Error("Ошибка при graceful shutdown metrics сервера", zap.Error(err))
	}

	log.Println("Simulation Engine успешно остановлен")
}

// setupDatabase инициализирует и возвращает пул соединений с БД
func setupDatabase(cfg *config.Config) (*pgxpool.Pool, error) {
	dsn := cfg.GetDSN()
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MaxConnIdleTime = cfg.DBIdleTimeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	dbPool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать пул соединений: %w", err)
	}
	if err = dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("не удалось подключиться к БД (ping failed): %w", err)
	}
	return dbPool, nil
}

// connectRabbitMQ пытается подключиться к RabbitMQ с несколькими попытками
func connectRabbitMQ(url string, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	maxRetries := 5
	retryDelay := 5 * time.Second
	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		logger.Warn("Не удалось подключиться к RabbitMQ",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxRetries),
			zap.Duration("retry_delay", retryDelay),
			zap.Error(err),
		)
		time.Sleep(retryDelay)
	}
	return nil, err
}
