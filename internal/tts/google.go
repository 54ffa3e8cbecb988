package tts

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"
)

// Google Cloud TTS принимает до 5000 символов за запрос, берем с запасом.
const googleChunkLimit = 4800

// Дефолтные голоса по языкам.
var googleDefaultVoices = map[string]string{
	"en": "en-US-Chirp3-HD-Charon",
	"ru": "ru-RU-Wavenet-C",
}

var googleLanguageCodes = map[string]string{
	"en": "en-US",
	"ru": "ru-RU",
}

// GoogleProvider - адаптер Google Cloud Text-to-Speech.
// Клиент создается лениво при первом синтезе: конструктор не должен
// требовать учетных данных, их наличие проверяет ValidateConfiguration.
type GoogleProvider struct {
	voice string
	speed float64

	mu        sync.Mutex
	client    *texttospeech.Client
	newClient func(ctx context.Context) (*texttospeech.Client, error)
}

// NewGoogleProvider создает адаптер Google TTS. voice переопределяет
// дефолтный голос для всех языков; пустая строка - голос по языку запроса.
func NewGoogleProvider(voice string, speed float64) *GoogleProvider {
	return &GoogleProvider{
		voice: voice,
		speed: speed,
		newClient: func(ctx context.Context) (*texttospeech.Client, error) {
			return texttospeech.NewClient(ctx)
		},
	}
}

// Metadata возвращает дескриптор возможностей Google TTS.
func (g *GoogleProvider) Metadata() Descriptor {
	return Descriptor{
		Name:              "google",
		DisplayName:       "Google Cloud Text-to-Speech",
		SupportsStreaming: false,
		MaxTextLength:     50000,
		OutputFormats:     []string{"mp3"},
		Languages:         []string{"en", "ru"},
	}
}

// ValidateConfiguration проверяет наличие учетных данных Google Cloud.
func (g *GoogleProvider) ValidateConfiguration() error {
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		return fmt.Errorf("переменная GOOGLE_APPLICATION_CREDENTIALS не установлена")
	}
	return nil
}

// ensureClient лениво создает клиент. Ошибка инициализации не кэшируется:
// неудача (в том числе из-за отмененного контекста первого запроса) не
// должна выводить провайдера из строя до рестарта процесса.
func (g *GoogleProvider) ensureClient(ctx context.Context) (*texttospeech.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}
	client, err := g.newClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания клиента Google TTS: %w", err)
	}
	g.client = client
	return g.client, nil
}

// GenerateAudio синтезирует MP3 через Google Cloud TTS. Длинный текст
// режется на чанки до googleChunkLimit рун, аудио чанков конкатенируется.
func (g *GoogleProvider) GenerateAudio(ctx context.Context, text string, language string, opts SynthesisOptions) ([]byte, map[string]string, error) {
	client, err := g.ensureClient(ctx)
	if err != nil {
		return nil, nil, err
	}

	voice := opts.Voice
	if voice == "" {
		voice = g.voice
	}
	if voice == "" {
		voice = googleDefaultVoices[language]
	}
	if voice == "" {
		return nil, nil, fmt.Errorf("нет голоса Google TTS для языка '%s'", language)
	}

	languageCode, ok := googleLanguageCodes[language]
	if !ok {
		return nil, nil, fmt.Errorf("язык '%s' не поддерживается Google TTS адаптером", language)
	}

	audioCfg := &texttospeechpb.AudioConfig{
		AudioEncoding: texttospeechpb.AudioEncoding_MP3,
	}
	// Chirp-голоса не поддерживают speakingRate/pitch/SSML
	speed := opts.Speed
	if speed == 0 {
		speed = g.speed
	}
	if speed != 0 && !strings.Contains(strings.ToLower(voice), "chirp") {
		audioCfg.SpeakingRate = speed
	}

	chunks := splitIntoChunks(text, googleChunkLimit)
	var audio []byte
	for chunkIndex, chunk := range chunks {
		req := &texttospeechpb.SynthesizeSpeechRequest{
			Input: &texttospeechpb.SynthesisInput{
				InputSource: &texttospeechpb.SynthesisInput_Text{Text: chunk},
			},
			Voice: &texttospeechpb.VoiceSelectionParams{
				LanguageCode: languageCode,
				Name:         voice,
			},
			AudioConfig: audioCfg,
		}
		resp, err := client.SynthesizeSpeech(ctx, req)
		if err != nil {
			return nil, nil, fmt.Errorf("ошибка синтеза чанка %d/%d: %w", chunkIndex+1, len(chunks), err)
		}
		audio = append(audio, resp.AudioContent...)
	}

	log.Printf("Google TTS: синтезировано %d байт аудио (%d чанков, голос %s)", len(audio), len(chunks), voice)

	meta := map[string]string{
		"voice":         voice,
		"language_code": languageCode,
		"format":        "mp3",
	}
	return audio, meta, nil
}

// splitIntoChunks режет текст на куски не длиннее limit рун.
func splitIntoChunks(text string, limit int) []string {
	var chunks []string
	runes := []rune(text)
	for i := 0; i < len(runes); i += limit {
		end := i + limit
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
