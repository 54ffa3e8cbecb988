package model

import "time"

// StoryStatus - статус жизненного цикла истории.
type StoryStatus string

const (
	StoryStatusDraft     StoryStatus = "draft"
	StoryStatusPublished StoryStatus = "published"
	StoryStatusArchived  StoryStatus = "archived"
)

// StoryType - сценарий генерации: про выбранную тему, про героя или комбинированный.
type StoryType string

const (
	StoryTypeSubject  StoryType = "subject"
	StoryTypeHero     StoryType = "hero"
	StoryTypeCombined StoryType = "combined"
)

// Story - собранная история. Каждая история ссылается ровно на одну
// успешную попытку генерации. Поля озвучки (AudioURL, AudioProvider,
// AudioMeta) заполняются все вместе или не заполняются вовсе.
type Story struct {
	ID                  string            `db:"id" json:"id"`
	Title               string            `db:"title" json:"title"`
	Content             string            `db:"content" json:"content"`
	Summary             string            `db:"summary" json:"summary,omitempty"`
	Language            string            `db:"language" json:"language"`
	StoryType           StoryType         `db:"story_type" json:"story_type"`
	Moral               string            `db:"moral" json:"moral"`
	LengthMinutes       int               `db:"length_minutes" json:"length_minutes"`
	WordCount           int               `db:"word_count" json:"word_count"`
	ChildID             string            `db:"child_id" json:"child_id,omitempty"`
	ChildName           string            `db:"child_name" json:"child_name,omitempty"`
	HeroID              string            `db:"hero_id" json:"hero_id,omitempty"`
	HeroName            string            `db:"hero_name" json:"hero_name,omitempty"`
	Rating              *int              `db:"rating" json:"rating,omitempty"`
	AudioURL            string            `db:"audio_url" json:"audio_url,omitempty"`
	AudioProvider       string            `db:"audio_provider" json:"audio_provider,omitempty"`
	AudioMeta           map[string]string `db:"audio_meta" json:"audio_meta,omitempty"`
	Status              StoryStatus       `db:"status" json:"status"`
	GenerationAttemptID string            `db:"generation_attempt_id" json:"generation_attempt_id"`
	ParentStoryID       string            `db:"parent_story_id" json:"parent_story_id,omitempty"`
	CreatedAt           time.Time         `db:"created_at" json:"created_at"`
}

// HasNarration сообщает, есть ли у истории готовая озвучка.
func (s *Story) HasNarration() bool {
	return s.AudioURL != "" && s.AudioProvider != ""
}
