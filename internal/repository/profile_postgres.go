package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fable-server/internal/model"
)

// postgresProfileRepository реализует ProfileRepository для PostgreSQL.
type postgresProfileRepository struct {
	db *pgxpool.Pool
}

// NewPostgresProfileRepository создает новый экземпляр репозитория профилей.
func NewPostgresProfileRepository(db *pgxpool.Pool) ProfileRepository {
	return &postgresProfileRepository{db: db}
}

// FindExactMatch ищет профиль с полностью совпадающими атрибутами.
// Интересы сравниваются как упорядоченный массив целиком.
func (r *postgresProfileRepository) FindExactMatch(ctx context.Context, attrs model.ProfileAttrs) (*model.ProfileSnapshot, error) {
	query := `
        SELECT id, kind, name, age_category, gender, interests
        FROM profiles
        WHERE kind = $1 AND name = $2 AND age_category = $3 AND gender = $4
          AND interests = $5
        ORDER BY created_at
        LIMIT 1;
    `
	interests := attrs.Interests
	if interests == nil {
		interests = []string{}
	}

	var profile model.ProfileSnapshot
	err := pgxscan.Get(ctx, r.db, &profile, query,
		attrs.Kind, attrs.Name, attrs.AgeCategory, attrs.Gender, interests)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка поиска профиля '%s': %w", attrs.Name, err)
	}
	return &profile, nil
}

// Create сохраняет новый снимок профиля.
func (r *postgresProfileRepository) Create(ctx context.Context, attrs model.ProfileAttrs) (*model.ProfileSnapshot, error) {
	query := `
        INSERT INTO profiles (id, kind, name, age_category, gender, interests, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7);
    `
	interests := attrs.Interests
	if interests == nil {
		interests = []string{}
	}
	profile := &model.ProfileSnapshot{
		ID:          uuid.NewString(),
		Kind:        attrs.Kind,
		Name:        attrs.Name,
		AgeCategory: attrs.AgeCategory,
		Gender:      attrs.Gender,
		Interests:   interests,
	}

	_, err := r.db.Exec(ctx, query,
		profile.ID, profile.Kind, profile.Name, profile.AgeCategory,
		profile.Gender, profile.Interests, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("ошибка создания профиля '%s': %w", attrs.Name, err)
	}

	log.Printf("Создан новый профиль %s (kind=%s, name=%s)", profile.ID, profile.Kind, profile.Name)
	return profile, nil
}
