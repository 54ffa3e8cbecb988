package tts

import (
	"context"
	"fmt"
	"io"
	"log"

	openaigo "github.com/sashabaranov/go-openai"
)

// OpenAI TTS API принимает до 4096 символов за запрос.
const openAIMaxInputRunes = 4096

// OpenAIProvider - адаптер OpenAI Text-to-Speech (модель tts-1).
type OpenAIProvider struct {
	client *openaigo.Client
	apiKey string
	voice  string
}

// NewOpenAIProvider создает адаптер OpenAI TTS.
func NewOpenAIProvider(apiKey string, voice string) *OpenAIProvider {
	if voice == "" {
		voice = string(openaigo.VoiceAlloy)
	}
	return &OpenAIProvider{
		client: openaigo.NewClient(apiKey),
		apiKey: apiKey,
		voice:  voice,
	}
}

// Metadata возвращает дескриптор возможностей OpenAI TTS.
func (o *OpenAIProvider) Metadata() Descriptor {
	return Descriptor{
		Name:              "openai",
		DisplayName:       "OpenAI Text-to-Speech",
		SupportsStreaming: true,
		MaxTextLength:     openAIMaxInputRunes,
		OutputFormats:     []string{"mp3"},
		// OpenAI TTS мультиязычный, список не ограничиваем
		Languages: nil,
	}
}

// ValidateConfiguration проверяет наличие API-ключа.
func (o *OpenAIProvider) ValidateConfiguration() error {
	if o.apiKey == "" {
		return fmt.Errorf("API-ключ OpenAI не задан")
	}
	return nil
}

// GenerateAudio синтезирует MP3 через OpenAI TTS.
func (o *OpenAIProvider) GenerateAudio(ctx context.Context, text string, language string, opts SynthesisOptions) ([]byte, map[string]string, error) {
	voice := opts.Voice
	if voice == "" {
		voice = o.voice
	}

	req := openaigo.CreateSpeechRequest{
		Model:          openaigo.TTSModel1,
		Input:          text,
		Voice:          openaigo.SpeechVoice(voice),
		ResponseFormat: openaigo.SpeechResponseFormatMp3,
	}
	if opts.Speed != 0 {
		req.Speed = opts.Speed
	}

	resp, err := o.client.CreateSpeech(ctx, req)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка запроса к OpenAI TTS: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка чтения аудио из ответа OpenAI TTS: %w", err)
	}
	if len(audio) == 0 {
		return nil, nil, fmt.Errorf("OpenAI TTS вернул пустое аудио")
	}

	log.Printf("OpenAI TTS: синтезировано %d байт аудио (голос %s)", len(audio), voice)

	meta := map[string]string{
		"voice":  voice,
		"model":  string(openaigo.TTSModel1),
		"format": "mp3",
	}
	return audio, meta, nil
}
