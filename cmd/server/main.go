package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"

	"fable-server/internal/api"
	"fable-server/internal/config"
	"fable-server/internal/logger"
	"fable-server/internal/messaging"
	"fable-server/internal/prompt"
	"fable-server/internal/repository"
	"fable-server/internal/service"
	"fable-server/internal/storage"
	"fable-server/internal/tts"
	"fable-server/internal/worker"
	"fable-server/migrations"
	"fable-server/pkg/database"
	"fable-server/pkg/migration"
)

const (
	dlxName       = "story_tasks_dlx" // Dead Letter Exchange
	dlqSuffix     = "_dlq"
	dlqRoutingKey = "dlq"

	rabbitConnectRetries = 5
	dbConnectRetries     = 5
)

func main() {
	log.Println("Запуск сервиса генерации детских историй...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    os.Getenv("LOG_LEVEL"),
		Encoding: os.Getenv("LOG_ENCODING"),
	})
	if err != nil {
		log.Fatalf("Ошибка инициализации логгера: %v", err)
	}
	defer zapLogger.Sync()

	// HTTP-сервер метрик Prometheus на отдельном порту
	go startMetricsServer(cfg.MetricsPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- PostgreSQL + миграции ---
	log.Println("Подключение к PostgreSQL...")
	db, err := database.New(ctx, database.Config{
		DSN:            cfg.GetDSN(),
		MaxConns:       cfg.DBMaxConns,
		IdleTimeout:    cfg.DBIdleTimeout,
		ConnectRetries: dbConnectRetries,
		RetryDelay:     3 * time.Second,
	})
	if err != nil {
		log.Fatalf("Не удалось подключиться к базе данных: %v", err)
	}
	defer db.Close()

	migrator := migration.NewMigrator(migration.Config{
		MigrationsPath: ".",
		MigrationsFS:   migrations.FS,
	}, db.Pool)
	if err := migrator.Up(); err != nil {
		log.Fatalf("Ошибка применения миграций: %v", err)
	}

	// --- Шаблоны промтов ---
	templates := prompt.NewTemplateProvider(cfg.TemplatesDir, zapLogger)
	if err := templates.LoadTemplates(); err != nil {
		log.Fatalf("Ошибка загрузки шаблонов промтов: %v", err)
	}
	log.Printf("Шаблоны промтов загружены, языки: %s", strings.Join(templates.Languages(), ", "))
	builder := prompt.NewBuilder(templates)

	// --- AI клиент и сервис генерации ---
	log.Println("Инициализация AI клиента...")
	aiClient, err := service.NewAIClient(cfg)
	if err != nil {
		log.Fatalf("Ошибка инициализации AI клиента: %v", err)
	}

	profileRepo := repository.NewPostgresProfileRepository(db.Pool)
	storyRepo := repository.NewPostgresStoryRepository(db.Pool)
	generationRepo := repository.NewPostgresGenerationRepository(db.Pool)

	textGen := service.NewTextGenerationService(aiClient, generationRepo, cfg, zapLogger)
	assembler := service.NewStoryAssembler()

	// --- Реестр провайдеров озвучки ---
	registry := tts.NewRegistry()
	registry.Register(tts.NewGoogleProvider(cfg.TTSGoogleVoice, 0))
	registry.Register(tts.NewOpenAIProvider(cfg.TTSOpenAIKey, cfg.TTSOpenAIVoice))
	registry.SetDefault(cfg.TTSDefaultProvider)
	registry.SetFallbackOrder(cfg.TTSFallbackOrder)

	narration := service.NewNarrationService(registry, zapLogger)

	publisher, err := storage.NewLocalPublisher(cfg.ArtifactsDir, cfg.ArtifactsBaseURL, zapLogger)
	if err != nil {
		log.Fatalf("Ошибка инициализации хранилища артефактов: %v", err)
	}

	orchestrator := worker.NewOrchestrator(
		profileRepo, storyRepo, builder, textGen, assembler, narration, publisher, zapLogger)

	// --- RabbitMQ ---
	conn, err := connectRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Не удалось подключиться к RabbitMQ: %v", err)
	}
	defer conn.Close()
	log.Println("Успешное подключение к RabbitMQ")

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("Не удалось открыть канал: %v", err)
	}
	defer ch.Close()

	if err := setupQueues(ch, cfg.TaskQueueName); err != nil {
		log.Fatalf("Ошибка настройки очередей RabbitMQ: %v", err)
	}

	// Обрабатываем по одной задаче за раз: генерация длинная и дорогая
	if err := ch.Qos(1, 0, false); err != nil {
		log.Fatalf("Не удалось установить QoS: %v", err)
	}

	notifier, err := messaging.NewRabbitMQNotifier(ch, cfg.InternalUpdatesQueueName)
	if err != nil {
		log.Fatalf("Ошибка инициализации Notifier: %v", err)
	}

	taskHandler := worker.NewTaskHandler(orchestrator, notifier, zapLogger)

	msgs, err := ch.Consume(cfg.TaskQueueName, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("Не удалось зарегистрировать консьюмера: %v", err)
	}

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		taskHandler.ConsumeLoop(ctx, msgs)
	}()

	// --- HTTP API ---
	mux := http.NewServeMux()
	apiHandler := api.NewHandler(orchestrator, storyRepo, cfg.ArtifactsDir, zapLogger)
	apiHandler.Register(mux)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPServerPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AITimeout + cfg.TTSTimeout + 30*time.Second,
	}
	go func() {
		log.Printf("HTTP API сервер запущен на порту %s", cfg.HTTPServerPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Ошибка HTTP сервера: %v", err)
		}
	}()

	log.Println(" [*] Ожидание сообщений и API запросов. Для выхода нажмите CTRL+C")

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)
	<-stopChan

	log.Println("Получен сигнал завершения. Завершение работы...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Ошибка при остановке HTTP сервера: %v", err)
	} else {
		log.Println("HTTP API сервер успешно остановлен.")
	}

	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		log.Println("Таймаут ожидания завершения консьюмера")
	}

	log.Println("Сервис генерации историй остановлен.")
}

// setupQueues объявляет DLX, DLQ и основную очередь задач.
func setupQueues(ch *amqp.Channel, taskQueueName string) error {
	dlqName := taskQueueName + dlqSuffix

	if err := ch.ExchangeDeclare(dlxName, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(dlqName, dlqRoutingKey, dlxName, false, nil); err != nil {
		return err
	}
	log.Printf("DLQ '%s' связана с DLX '%s' (ключ '%s')", dlqName, dlxName, dlqRoutingKey)

	// Lazy queue для экономии памяти, упавшие задачи уходят в DLX
	args := amqp.Table{
		"x-queue-mode":              "lazy",
		"x-dead-letter-exchange":    dlxName,
		"x-dead-letter-routing-key": dlqRoutingKey,
	}
	if _, err := ch.QueueDeclare(taskQueueName, true, false, false, false, args); err != nil {
		return err
	}
	log.Printf("Очередь задач '%s' успешно объявлена", taskQueueName)
	return nil
}

// connectRabbitMQ подключается к RabbitMQ с повторными попытками.
func connectRabbitMQ(url string) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	for attempt := 1; attempt <= rabbitConnectRetries; attempt++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		log.Printf("Попытка подключения к RabbitMQ %d/%d не удалась: %v", attempt, rabbitConnectRetries, err)
		time.Sleep(time.Duration(attempt) * 2 * time.Second)
	}
	return nil, err
}

// startMetricsServer запускает HTTP-сервер для эндпоинта /metrics
func startMetricsServer(metricsPort string) {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	log.Printf("Сервер метрик запущен на порту %s", metricsPort)
	if err := http.ListenAndServe(":"+metricsPort, metricsMux); err != nil {
		log.Printf("Ошибка сервера метрик: %v", err)
	}
}
