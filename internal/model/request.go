package model

// StoryRequest - входящий запрос на генерацию истории.
// Subject обязателен для типов subject и combined, Hero - для hero и combined.
// VoiceOptions - непрозрачные настройки озвучки, интерпретируются
// провайдером; известные ключи: "voice" (имя голоса) и "speed" (темп речи).
type StoryRequest struct {
	Subject       ProfileAttrs      `json:"subject"`
	Hero          *ProfileAttrs     `json:"hero,omitempty"`
	StoryType     StoryType         `json:"story_type"`
	Language      string            `json:"language"`
	Moral         string            `json:"moral"`
	LengthMinutes int               `json:"length_minutes"`
	ParentStoryID string            `json:"parent_story_id,omitempty"`
	Narrate       bool              `json:"narrate"`
	VoiceProvider string            `json:"voice_provider,omitempty"`
	VoiceOptions  map[string]string `json:"voice_options,omitempty"`
}
