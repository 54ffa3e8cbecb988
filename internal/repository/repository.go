package repository

import (
	"context"

	"fable-server/internal/model"
)

// ProfileRepository управляет снимками профилей детей и героев.
type ProfileRepository interface {
	// FindExactMatch ищет профиль с полностью совпадающими атрибутами,
	// включая набор интересов. Возвращает model.ErrNotFound, если совпадения нет.
	FindExactMatch(ctx context.Context, attrs model.ProfileAttrs) (*model.ProfileSnapshot, error)
	// Create сохраняет новый снимок профиля и возвращает его с присвоенным ID.
	Create(ctx context.Context, attrs model.ProfileAttrs) (*model.ProfileSnapshot, error)
}

// StoryRepository управляет собранными историями.
type StoryRepository interface {
	Save(ctx context.Context, story *model.Story) error
	// GetByID возвращает историю или model.ErrNotFound.
	GetByID(ctx context.Context, id string) (*model.Story, error)
}

// GenerationRepository ведет журнал попыток генерации текста.
// Записи не обновляются задним числом: Save создает pending-запись,
// Complete один раз переводит ее в терминальный статус.
type GenerationRepository interface {
	Save(ctx context.Context, attempt *model.GenerationAttempt) error
	Complete(ctx context.Context, id string, status model.AttemptStatus, rawResponse string, errMsg string, promptTokens int, outputTokens int) error
}
