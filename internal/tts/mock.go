package tts

import (
	"context"
	"sync"
)

// MockProvider - настраиваемый провайдер для тестов.
type MockProvider struct {
	Name          string
	MaxTextLength int
	ValidateErr   error
	GenerateErr   error
	Audio         []byte
	Meta          map[string]string

	mu            sync.Mutex
	generateCalls int
	lastOpts      SynthesisOptions
}

// Metadata возвращает дескриптор мок-провайдера.
func (m *MockProvider) Metadata() Descriptor {
	return Descriptor{
		Name:          m.Name,
		DisplayName:   "Mock " + m.Name,
		MaxTextLength: m.MaxTextLength,
		OutputFormats: []string{"mp3"},
	}
}

// ValidateConfiguration возвращает настроенную ошибку валидации.
func (m *MockProvider) ValidateConfiguration() error {
	return m.ValidateErr
}

// GenerateAudio возвращает настроенные аудио и метаданные или ошибку.
func (m *MockProvider) GenerateAudio(ctx context.Context, text string, language string, opts SynthesisOptions) ([]byte, map[string]string, error) {
	m.mu.Lock()
	m.generateCalls++
	m.lastOpts = opts
	m.mu.Unlock()
	if m.GenerateErr != nil {
		return nil, nil, m.GenerateErr
	}
	audio := m.Audio
	if audio == nil {
		audio = []byte("mock audio")
	}
	return audio, m.Meta, nil
}

// GenerateCalls возвращает количество вызовов GenerateAudio.
func (m *MockProvider) GenerateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generateCalls
}

// LastOptions возвращает параметры синтеза последнего вызова GenerateAudio.
func (m *MockProvider) LastOptions() SynthesisOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastOpts
}
