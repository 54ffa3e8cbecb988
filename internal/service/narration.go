package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	zlog "github.com/rs/zerolog/log"
	"go.uber.org/zap"

	"fable-server/internal/tts"
)

var (
	narrationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fable_server_narration_requests_total",
			Help: "Total number of narration attempts per provider.",
		},
		[]string{"provider", "status"},
	)
	narrationExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fable_server_narration_exhausted_total",
			Help: "Number of narration requests where every provider failed.",
		},
	)
)

// NarrationService - фасад над реестром провайдеров озвучки.
// Разрешение провайдера целиком делегируется реестру; один провайдер
// никогда не ретраится, ретрай - это переход к следующему в цепочке.
type NarrationService struct {
	registry *tts.Registry
	logger   *zap.Logger
}

// NewNarrationService создает новый сервис озвучки.
func NewNarrationService(registry *tts.Registry, logger *zap.Logger) *NarrationService {
	if registry == nil {
		zlog.Fatal().Msg("NarrationService: registry не может быть nil")
	}
	if logger == nil {
		zlog.Fatal().Msg("NarrationService: logger не может быть nil")
	}
	return &NarrationService{registry: registry, logger: logger}
}

// Narrate озвучивает текст, перебирая цепочку провайдеров из реестра.
// Текст длиннее maxTextLength провайдера не обрезается: такой провайдер
// пропускается с ошибкой, слушатель не должен получить усеченную историю.
// При полном исчерпании возвращается результат с перечислением всех
// опробованных провайдеров по порядку.
func (s *NarrationService) Narrate(ctx context.Context, text string, language string, providerName string, opts tts.SynthesisOptions) tts.NarrationResult {
	chain := s.registry.ResolveChain(providerName)
	if len(chain) == 0 {
		narrationExhaustedTotal.Inc()
		msg := "нет ни одного валидного провайдера озвучки"
		if providerName != "" {
			msg = fmt.Sprintf("%s (запрошен '%s')", msg, providerName)
		}
		s.logger.Warn("Озвучка невозможна", zap.String("requested", providerName))
		return tts.NarrationResult{Success: false, Error: msg}
	}

	textLen := utf8.RuneCountInString(text)
	var attempted []string
	var failures []string

	for _, p := range chain {
		desc := p.Metadata()
		attempted = append(attempted, desc.Name)

		if !desc.SupportsLanguage(language) {
			failures = append(failures, fmt.Sprintf("%s: язык '%s' не поддерживается", desc.Name, language))
			narrationRequestsTotal.With(prometheus.Labels{"provider": desc.Name, "status": "unsupported_language"}).Inc()
			continue
		}
		if desc.MaxTextLength > 0 && textLen > desc.MaxTextLength {
			failures = append(failures, fmt.Sprintf("%s: текст %d рун превышает лимит %d", desc.Name, textLen, desc.MaxTextLength))
			narrationRequestsTotal.With(prometheus.Labels{"provider": desc.Name, "status": "text_too_long"}).Inc()
			s.logger.Warn("Текст превышает лимит провайдера, провайдер пропущен",
				zap.String("provider", desc.Name), zap.Int("text_runes", textLen), zap.Int("limit", desc.MaxTextLength))
			continue
		}

		audio, meta, err := p.GenerateAudio(ctx, text, language, opts)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", desc.Name, err))
			narrationRequestsTotal.With(prometheus.Labels{"provider": desc.Name, "status": "error"}).Inc()
			s.logger.Warn("Провайдер озвучки вернул ошибку, переход к следующему",
				zap.String("provider", desc.Name), zap.Error(err))
			continue
		}

		narrationRequestsTotal.With(prometheus.Labels{"provider": desc.Name, "status": "success"}).Inc()
		s.logger.Info("Озвучка выполнена",
			zap.String("provider", desc.Name), zap.Int("audio_bytes", len(audio)))
		format := "mp3"
		if meta != nil && meta["format"] != "" {
			format = meta["format"]
		}
		return tts.NarrationResult{
			Success:  true,
			Audio:    audio,
			Provider: desc.Name,
			Format:   format,
			Meta:     meta,
		}
	}

	narrationExhaustedTotal.Inc()
	msg := fmt.Sprintf("все провайдеры озвучки отказали (по порядку: %s): %s",
		strings.Join(attempted, ", "), strings.Join(failures, "; "))
	s.logger.Error("Озвучка исчерпала все провайдеры",
		zap.Strings("attempted", attempted))
	return tts.NarrationResult{Success: false, Error: msg}
}
