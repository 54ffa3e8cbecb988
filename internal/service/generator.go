package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkoukk/tiktoken-go"
	zlog "github.com/rs/zerolog/log"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"fable-server/internal/config"
	"fable-server/internal/model"
	"fable-server/internal/repository"
)

// maxRawResponseRunes ограничивает размер сырого ответа в журнале попыток.
const maxRawResponseRunes = 20000

// GenerationRequest - запрос на генерацию текста истории.
type GenerationRequest struct {
	GenerationID  string
	StoryType     model.StoryType
	Language      string
	Moral         string
	LengthMinutes int
	SystemPrompt  string
	UserInput     string
	Params        GenerationParams
}

// GenerationResult - результат успешной генерации.
type GenerationResult struct {
	Text      string
	Usage     UsageInfo
	AttemptID string // ID успешной попытки
	Attempts  int    // Сколько попыток понадобилось
}

// TextGenerationService оборачивает AIClient ретраями с экспоненциальной
// задержкой и ведет журнал попыток. Каждое обращение к провайдеру
// фиксируется в GenerationRepository до возврата результата.
type TextGenerationService struct {
	aiClient AIClient
	attempts repository.GenerationRepository
	cfg      *config.Config
	logger   *zap.Logger
}

// NewTextGenerationService создает новый сервис генерации текста.
func NewTextGenerationService(aiClient AIClient, attempts repository.GenerationRepository, cfg *config.Config, logger *zap.Logger) *TextGenerationService {
	if aiClient == nil {
		zlog.Fatal().Msg("TextGenerationService: aiClient не может быть nil")
	}
	if attempts == nil {
		zlog.Fatal().Msg("TextGenerationService: attempts repository не может быть nil")
	}
	if cfg == nil {
		zlog.Fatal().Msg("TextGenerationService: cfg не может быть nil")
	}
	if logger == nil {
		zlog.Fatal().Msg("TextGenerationService: logger не может быть nil")
	}
	return &TextGenerationService{
		aiClient: aiClient,
		attempts: attempts,
		cfg:      cfg,
		logger:   logger,
	}
}

// Generate выполняет генерацию текста с ретраями. Транзиентные ошибки
// (таймауты, 429, 5xx) ретраятся до AIMaxAttempts, постоянные (4xx)
// возвращаются сразу. Все попытки записываются в журнал независимо от исхода.
func (s *TextGenerationService) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	maxAttempts := s.cfg.AIMaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	baseDelay := s.cfg.AIBaseRetryDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		s.logger.Info("Вызов AI API",
			zap.String("generation_id", req.GenerationID),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts))

		attemptID := uuid.NewString()
		record := &model.GenerationAttempt{
			ID:            attemptID,
			GenerationID:  req.GenerationID,
			AttemptNumber: attempt,
			StoryType:     req.StoryType,
			Language:      req.Language,
			Moral:         req.Moral,
			LengthMinutes: req.LengthMinutes,
			Provider:      s.cfg.AIClientType,
			Model:         s.aiClient.ModelName(),
			Status:        model.AttemptStatusPending,
			CreatedAt:     time.Now().UTC(),
		}
		// Попытка фиксируется в журнале до обращения к провайдеру;
		// без audit-записи вызов AI не выполняется
		if err := s.attempts.Save(ctx, record); err != nil {
			s.logger.Error("Не удалось записать попытку генерации",
				zap.String("attempt_id", attemptID), zap.Error(err))
			return nil, fmt.Errorf("%w: запись попытки генерации: %w", model.ErrDatabase, err)
		}

		text, usage, err := s.aiClient.GenerateText(ctx, req.GenerationID, req.SystemPrompt, req.UserInput, req.Params)
		if err == nil {
			if usage.TotalTokens == 0 {
				usage = s.estimateUsage(req.SystemPrompt, req.UserInput, text)
			}
			if completeErr := s.attempts.Complete(ctx, attemptID, model.AttemptStatusSuccess, TrimRawResponse(text, maxRawResponseRunes), "", usage.PromptTokens, usage.CompletionTokens); completeErr != nil {
				s.logger.Error("Не удалось закрыть успешную попытку генерации",
					zap.String("attempt_id", attemptID), zap.Error(completeErr))
			}
			return &GenerationResult{
				Text:      text,
				Usage:     usage,
				AttemptID: attemptID,
				Attempts:  attempt,
			}, nil
		}

		lastErr = err
		status := model.AttemptStatusFailed
		if errors.Is(err, context.DeadlineExceeded) {
			status = model.AttemptStatusTimeout
		}
		if completeErr := s.attempts.Complete(ctx, attemptID, status, "", err.Error(), usage.PromptTokens, usage.CompletionTokens); completeErr != nil {
			s.logger.Error("Не удалось закрыть неудачную попытку генерации",
				zap.String("attempt_id", attemptID), zap.Error(completeErr))
		}

		if !isTransientError(err) {
			s.logger.Warn("Постоянная ошибка AI, ретрай не выполняется",
				zap.String("generation_id", req.GenerationID), zap.Error(err))
			return nil, fmt.Errorf("%w: %w", model.ErrExternalService, err)
		}

		if attempt == maxAttempts {
			s.logger.Warn("Достигнуто максимальное количество попыток вызова AI",
				zap.String("generation_id", req.GenerationID), zap.Int("max_attempts", maxAttempts))
			break
		}

		delay := float64(baseDelay) * math.Pow(2, float64(attempt-1))
		jitter := delay * 0.1
		delay += jitter * (rand.Float64()*2 - 1)
		waitDuration := time.Duration(delay)
		if waitDuration < baseDelay {
			waitDuration = baseDelay
		}
		s.logger.Info("Ожидание перед следующей попыткой",
			zap.String("generation_id", req.GenerationID), zap.Duration("wait", waitDuration))
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: контекст отменен во время ожидания ретрая: %w", model.ErrExternalService, ctx.Err())
		case <-time.After(waitDuration):
		}
	}

	return nil, fmt.Errorf("%w: все %d попыток генерации исчерпаны: %w", model.ErrExternalService, maxAttempts, lastErr)
}

// isTransientError определяет, имеет ли смысл ретраить ошибку провайдера.
// Таймауты, 429 и 5xx считаются транзиентными, остальные 4xx - постоянными.
func isTransientError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr *openaigo.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500 {
			return true
		}
		return false
	}
	// Сетевые и прочие неклассифицированные ошибки ретраим
	return true
}

// estimateUsage оценивает расход токенов, когда провайдер не вернул Usage.
// Для не-OpenAI моделей используется кодировка cl100k_base.
func (s *TextGenerationService) estimateUsage(systemPrompt, userInput, output string) UsageInfo {
	tke, err := tiktoken.EncodingForModel(s.aiClient.ModelName())
	if err != nil {
		tke, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			s.logger.Warn("Не удалось получить токенизатор для оценки расхода", zap.Error(err))
			return UsageInfo{}
		}
	}
	promptTokens := len(tke.Encode(systemPrompt, nil, nil)) + len(tke.Encode(userInput, nil, nil))
	completionTokens := len(tke.Encode(output, nil, nil))
	return UsageInfo{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		EstimatedCostUSD: calculateCost(promptTokens, completionTokens),
	}
}

// TrimRawResponse обрезает сырой ответ для хранения в журнале попыток.
func TrimRawResponse(raw string, maxRunes int) string {
	raw = strings.TrimSpace(raw)
	runes := []rune(raw)
	if len(runes) <= maxRunes {
		return raw
	}
	return string(runes[:maxRunes])
}
