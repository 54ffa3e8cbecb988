package model

import "time"

// AttemptStatus - статус отдельной попытки генерации текста.
// Переход только pending -> success/failed/timeout, терминальный статус не меняется.
type AttemptStatus string

const (
	AttemptStatusPending AttemptStatus = "pending"
	AttemptStatusSuccess AttemptStatus = "success"
	AttemptStatusFailed  AttemptStatus = "failed"
	AttemptStatusTimeout AttemptStatus = "timeout"
)

// GenerationAttempt - запись об одном обращении к AI-провайдеру.
// Пара (generation_id, attempt_number) уникальна, нумерация с 1.
// Попытки сохраняются даже если генерация в итоге провалилась.
type GenerationAttempt struct {
	ID            string        `db:"id" json:"id"`
	GenerationID  string        `db:"generation_id" json:"generation_id"`
	AttemptNumber int           `db:"attempt_number" json:"attempt_number"`
	StoryType     StoryType     `db:"story_type" json:"story_type"`
	Language      string        `db:"language" json:"language"`
	Moral         string        `db:"moral" json:"moral"`
	LengthMinutes int           `db:"length_minutes" json:"length_minutes"`
	Provider      string        `db:"provider" json:"provider"`
	Model         string        `db:"model" json:"model"`
	RawResponse   string        `db:"raw_response" json:"raw_response,omitempty"`
	Status        AttemptStatus `db:"status" json:"status"`
	Error         string        `db:"error" json:"error,omitempty"`
	PromptTokens  int           `db:"prompt_tokens" json:"prompt_tokens"`
	OutputTokens  int           `db:"output_tokens" json:"output_tokens"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	CompletedAt   *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
}
