package repository

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"fable-server/internal/model"
)

// postgresGenerationRepository реализует GenerationRepository для PostgreSQL.
type postgresGenerationRepository struct {
	db *pgxpool.Pool
}

// NewPostgresGenerationRepository создает новый экземпляр журнала попыток.
func NewPostgresGenerationRepository(db *pgxpool.Pool) GenerationRepository {
	return &postgresGenerationRepository{db: db}
}

// Save создает pending-запись о попытке генерации. Запись только
// вставляется: уникальность пары (generation_id, attempt_number)
// гарантирует схема.
func (r *postgresGenerationRepository) Save(ctx context.Context, attempt *model.GenerationAttempt) error {
	query := `
        INSERT INTO generation_attempts
        (id, generation_id, attempt_number, story_type, language, moral,
         length_minutes, provider, model, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
    `
	_, err := r.db.Exec(ctx, query,
		attempt.ID,
		attempt.GenerationID,
		attempt.AttemptNumber,
		attempt.StoryType,
		attempt.Language,
		attempt.Moral,
		attempt.LengthMinutes,
		attempt.Provider,
		attempt.Model,
		attempt.Status,
		attempt.CreatedAt,
	)
	if err != nil {
		log.Printf("[GenerationID: %s] Ошибка записи попытки %d в БД: %v",
			attempt.GenerationID, attempt.AttemptNumber, err)
		return fmt.Errorf("ошибка записи попытки '%s' в БД: %w", attempt.ID, err)
	}
	return nil
}

// Complete переводит pending-попытку в терминальный статус. Уже
// завершенная попытка не перезаписывается.
func (r *postgresGenerationRepository) Complete(ctx context.Context, id string, status model.AttemptStatus, rawResponse string, errMsg string, promptTokens int, outputTokens int) error {
	query := `
        UPDATE generation_attempts
        SET status = $2, raw_response = $3, error = $4,
            prompt_tokens = $5, output_tokens = $6, completed_at = now()
        WHERE id = $1 AND status = 'pending';
    `
	tag, err := r.db.Exec(ctx, query, id, status, rawResponse, errMsg, promptTokens, outputTokens)
	if err != nil {
		log.Printf("[AttemptID: %s] Ошибка завершения попытки в БД: %v", id, err)
		return fmt.Errorf("ошибка завершения попытки '%s' в БД: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("попытка '%s' не найдена или уже завершена", id)
	}
	return nil
}
