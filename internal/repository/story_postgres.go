package repository

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fable-server/internal/model"
)

// postgresStoryRepository реализует StoryRepository для PostgreSQL.
type postgresStoryRepository struct {
	db *pgxpool.Pool
}

// NewPostgresStoryRepository создает новый экземпляр репозитория историй.
func NewPostgresStoryRepository(db *pgxpool.Pool) StoryRepository {
	return &postgresStoryRepository{db: db}
}

// Пустые строки в Go-модели соответствуют NULL в опциональных uuid-колонках.
// Каст ::uuid обязателен: без него NULLIF двух нетипизированных параметров
// резолвится в text, и Postgres отклоняет вставку в uuid-колонку.
const insertStoryQuery = `
        INSERT INTO stories
        (id, title, content, summary, language, story_type, moral, length_minutes,
         word_count, child_id, child_name, hero_id, hero_name, rating,
         audio_url, audio_provider, audio_meta, status, generation_attempt_id,
         parent_story_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9,
                NULLIF($10, '')::uuid, $11, NULLIF($12, '')::uuid, $13, $14,
                $15, $16, $17, $18, $19, NULLIF($20, '')::uuid, $21);
    `

// Save сохраняет историю в базу данных.
func (r *postgresStoryRepository) Save(ctx context.Context, story *model.Story) error {
	_, err := r.db.Exec(ctx, insertStoryQuery,
		story.ID,
		story.Title,
		story.Content,
		story.Summary,
		story.Language,
		story.StoryType,
		story.Moral,
		story.LengthMinutes,
		story.WordCount,
		story.ChildID,
		story.ChildName,
		story.HeroID,
		story.HeroName,
		story.Rating,
		story.AudioURL,
		story.AudioProvider,
		story.AudioMeta,
		story.Status,
		story.GenerationAttemptID,
		story.ParentStoryID,
		story.CreatedAt,
	)
	if err != nil {
		log.Printf("[StoryID: %s] Ошибка сохранения истории в БД: %v", story.ID, err)
		return fmt.Errorf("ошибка сохранения истории '%s' в БД: %w", story.ID, err)
	}

	log.Printf("[StoryID: %s] История успешно сохранена в БД.", story.ID)
	return nil
}

// GetByID возвращает историю по идентификатору.
func (r *postgresStoryRepository) GetByID(ctx context.Context, id string) (*model.Story, error) {
	query := `
        SELECT id, title, content, summary, language, story_type, moral,
               length_minutes, word_count,
               COALESCE(child_id::text, '') AS child_id, child_name,
               COALESCE(hero_id::text, '') AS hero_id, hero_name,
               rating, audio_url, audio_provider, audio_meta, status,
               generation_attempt_id,
               COALESCE(parent_story_id::text, '') AS parent_story_id,
               created_at
        FROM stories
        WHERE id = $1;
    `
	var story model.Story
	err := pgxscan.Get(ctx, r.db, &story, query, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения истории '%s' из БД: %w", id, err)
	}
	return &story, nil
}
