package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Database представляет подключение к базе данных
type Database struct {
	Pool *pgxpool.Pool
}

// Config содержит настройки пула подключений
type Config struct {
	DSN            string
	MaxConns       int32
	IdleTimeout    time.Duration
	ConnectRetries int           // Количество попыток подключения при старте
	RetryDelay     time.Duration // Пауза между попытками
}

// New создает пул подключений к PostgreSQL с ретраями при старте:
// сервис может подняться раньше базы, поэтому несколько первых
// неудачных Ping не считаются фатальными.
func New(ctx context.Context, cfg Config) (*Database, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("ошибка при разборе строки подключения: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.IdleTimeout > 0 {
		poolConfig.MaxConnIdleTime = cfg.IdleTimeout
	}

	retries := cfg.ConnectRetries
	if retries < 1 {
		retries = 1
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 3 * time.Second
	}

	var pool *pgxpool.Pool
	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		pool, lastErr = pgxpool.NewWithConfig(attemptCtx, poolConfig)
		if lastErr == nil {
			lastErr = pool.Ping(attemptCtx)
			if lastErr == nil {
				cancel()
				log.Println("Успешное подключение к базе данных PostgreSQL")
				return &Database{Pool: pool}, nil
			}
			pool.Close()
		}
		cancel()

		log.Printf("Попытка подключения к БД %d/%d не удалась: %v", attempt, retries, lastErr)
		if attempt < retries {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("подключение к БД прервано: %w", ctx.Err())
			case <-time.After(retryDelay):
			}
		}
	}

	return nil, fmt.Errorf("не удалось подключиться к базе данных после %d попыток: %w", retries, lastErr)
}

// Close закрывает подключение к базе данных
func (db *Database) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		log.Println("Подключение к базе данных закрыто")
	}
}
