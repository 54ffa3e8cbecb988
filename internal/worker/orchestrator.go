package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	"go.uber.org/zap"

	"fable-server/internal/model"
	"fable-server/internal/prompt"
	"fable-server/internal/repository"
	"fable-server/internal/service"
	"fable-server/internal/storage"
	"fable-server/internal/tts"
)

// Состояния конвейера генерации. FAILED достижим из любого шага.
type pipelineState string

const (
	stateResolvingSubject pipelineState = "RESOLVING_SUBJECT"
	stateBuildingPrompt   pipelineState = "BUILDING_PROMPT"
	stateGeneratingText   pipelineState = "GENERATING_TEXT"
	stateAssemblingStory  pipelineState = "ASSEMBLING_STORY"
	stateNarrating        pipelineState = "NARRATING"
	statePersisting       pipelineState = "PERSISTING"
	stateDone             pipelineState = "DONE"
)

// Orchestrator проводит запрос через весь конвейер генерации истории.
type Orchestrator struct {
	profiles  repository.ProfileRepository
	stories   repository.StoryRepository
	builder   *prompt.Builder
	textGen   *service.TextGenerationService
	assembler *service.StoryAssembler
	narration *service.NarrationService
	publisher storage.ArtifactPublisher
	logger    *zap.Logger
}

// NewOrchestrator создает новый оркестратор генерации.
func NewOrchestrator(
	profiles repository.ProfileRepository,
	stories repository.StoryRepository,
	builder *prompt.Builder,
	textGen *service.TextGenerationService,
	assembler *service.StoryAssembler,
	narration *service.NarrationService,
	publisher storage.ArtifactPublisher,
	logger *zap.Logger,
) *Orchestrator {
	if profiles == nil || stories == nil || builder == nil || textGen == nil ||
		assembler == nil || narration == nil || publisher == nil {
		zlog.Fatal().Msg("Orchestrator: все зависимости обязательны")
	}
	if logger == nil {
		zlog.Fatal().Msg("Orchestrator: logger не может быть nil")
	}
	return &Orchestrator{
		profiles:  profiles,
		stories:   stories,
		builder:   builder,
		textGen:   textGen,
		assembler: assembler,
		narration: narration,
		publisher: publisher,
		logger:    logger,
	}
}

// Execute выполняет полный цикл генерации: разрешение профилей, сборку
// промта, генерацию текста, сборку истории, опциональную озвучку и
// сохранение. Валидация идет до любых обращений к провайдерам: невалидный
// запрос не оставляет ни одной записи о попытке.
func (o *Orchestrator) Execute(ctx context.Context, req *model.StoryRequest) (*model.Story, error) {
	started := time.Now()
	generationID := uuid.NewString()
	log := o.logger.With(zap.String("generation_id", generationID))

	if err := o.assembler.ValidateRequest(req); err != nil {
		log.Warn("Запрос отклонен валидацией", zap.Error(err))
		MetricsIncrementTaskFailed("validation")
		return nil, err
	}

	// RESOLVING_SUBJECT: для hero-историй ребенок опционален, история
	// может быть привязана только к герою
	log.Info("Переход состояния", zap.String("state", string(stateResolvingSubject)))
	var subject *model.ProfileSnapshot
	var err error
	if strings.TrimSpace(req.Subject.Name) != "" {
		subject, err = o.resolveProfile(ctx, req.Subject)
		if err != nil {
			return nil, o.fail(log, stateResolvingSubject, err)
		}
	}
	var hero *model.ProfileSnapshot
	if req.Hero != nil {
		hero, err = o.resolveProfile(ctx, *req.Hero)
		if err != nil {
			return nil, o.fail(log, stateResolvingSubject, err)
		}
	}

	// BUILDING_PROMPT
	log.Info("Переход состояния", zap.String("state", string(stateBuildingPrompt)))
	buildInput := prompt.BuildInput{
		Subject:       subject,
		Hero:          hero,
		StoryType:     req.StoryType,
		Language:      req.Language,
		Moral:         req.Moral,
		LengthMinutes: req.LengthMinutes,
	}
	if req.ParentStoryID != "" {
		parent, err := o.stories.GetByID(ctx, req.ParentStoryID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return nil, o.fail(log, stateBuildingPrompt,
					model.ValidationErrorf("родительская история '%s' не найдена", req.ParentStoryID))
			}
			return nil, o.fail(log, stateBuildingPrompt, fmt.Errorf("%w: %w", model.ErrDatabase, err))
		}
		buildInput.ParentSummary = parent.Summary
		buildInput.ParentContent = parent.Content
	}
	systemPrompt, err := o.builder.Build(buildInput)
	if err != nil {
		return nil, o.fail(log, stateBuildingPrompt, err)
	}

	// GENERATING_TEXT: провал здесь фатален для всего запроса,
	// история без успешно сгенерированного текста не записывается.
	log.Info("Переход состояния", zap.String("state", string(stateGeneratingText)))
	genResult, err := o.textGen.Generate(ctx, service.GenerationRequest{
		GenerationID:  generationID,
		StoryType:     req.StoryType,
		Language:      req.Language,
		Moral:         req.Moral,
		LengthMinutes: req.LengthMinutes,
		SystemPrompt:  systemPrompt,
	})
	if err != nil {
		return nil, o.fail(log, stateGeneratingText, err)
	}

	// ASSEMBLING_STORY
	log.Info("Переход состояния", zap.String("state", string(stateAssemblingStory)))
	story := o.assembler.Assemble(genResult.Text, req, subject, hero, genResult.AttemptID)

	// NARRATING: опционально и best-effort. Провал озвучки или публикации
	// логируется, история сохраняется без аудио.
	if req.Narrate {
		log.Info("Переход состояния", zap.String("state", string(stateNarrating)))
		o.narrate(ctx, log, req, story)
	} else {
		MetricsRecordNarration("skipped")
	}

	// PERSISTING
	log.Info("Переход состояния", zap.String("state", string(statePersisting)))
	if err := o.stories.Save(ctx, story); err != nil {
		// Успешная попытка генерации остается в журнале как audit-запись
		return nil, o.fail(log, statePersisting, fmt.Errorf("%w: %w", model.ErrDatabase, err))
	}

	log.Info("Переход состояния", zap.String("state", string(stateDone)),
		zap.String("story_id", story.ID),
		zap.Int("attempts", genResult.Attempts),
		zap.Int("word_count", story.WordCount),
		zap.Bool("narrated", story.HasNarration()),
		zap.Duration("duration", time.Since(started)))
	return story, nil
}

// resolveProfile ищет профиль с полностью совпадающими атрибутами и
// создает новый только при отсутствии совпадения. Совпавший профиль
// никогда не обновляется и не мержится.
func (o *Orchestrator) resolveProfile(ctx context.Context, attrs model.ProfileAttrs) (*model.ProfileSnapshot, error) {
	existing, err := o.profiles.FindExactMatch(ctx, attrs)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("%w: поиск профиля: %w", model.ErrDatabase, err)
	}
	created, err := o.profiles.Create(ctx, attrs)
	if err != nil {
		return nil, fmt.Errorf("%w: создание профиля: %w", model.ErrDatabase, err)
	}
	return created, nil
}

// narrate выполняет озвучку и публикацию аудио. Поля озвучки выставляются
// только при полном успехе обоих шагов.
func (o *Orchestrator) narrate(ctx context.Context, log *zap.Logger, req *model.StoryRequest, story *model.Story) {
	result := o.narration.Narrate(ctx, story.Content, req.Language, req.VoiceProvider, o.synthesisOptions(log, req))
	if !result.Success {
		MetricsRecordNarration("failed")
		log.Warn("Озвучка не удалась, история будет сохранена без аудио",
			zap.String("story_id", story.ID), zap.String("narration_error", result.Error))
		return
	}

	objectName := fmt.Sprintf("%s.%s", story.ID, result.Format)
	url, err := o.publisher.Upload(ctx, objectName, result.Audio)
	if err != nil {
		MetricsRecordNarration("failed")
		log.Warn("Публикация аудио не удалась, история будет сохранена без аудио",
			zap.String("story_id", story.ID), zap.Error(err))
		return
	}

	story.AudioURL = url
	story.AudioProvider = result.Provider
	story.AudioMeta = result.Meta
	MetricsRecordNarration("success")
}

// synthesisOptions переносит непрозрачные настройки озвучки из запроса в
// параметры синтеза. Неизвестные ключи игнорируются, нечисловой speed
// логируется и пропускается.
func (o *Orchestrator) synthesisOptions(log *zap.Logger, req *model.StoryRequest) tts.SynthesisOptions {
	opts := tts.SynthesisOptions{Voice: req.VoiceOptions["voice"]}
	if raw := req.VoiceOptions["speed"]; raw != "" {
		speed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			log.Warn("Невалидное значение speed в voice_options, игнорируется",
				zap.String("speed", raw))
		} else {
			opts.Speed = speed
		}
	}
	return opts
}

// fail логирует провал шага конвейера и возвращает ошибку дальше.
func (o *Orchestrator) fail(log *zap.Logger, state pipelineState, err error) error {
	log.Error("Шаг конвейера завершился ошибкой",
		zap.String("state", string(state)), zap.Error(err))
	MetricsIncrementTaskFailed(failureReason(err))
	return err
}

// failureReason сопоставляет ошибку с меткой причины для метрик.
func failureReason(err error) string {
	switch {
	case errors.Is(err, model.ErrValidation):
		return "validation"
	case errors.Is(err, model.ErrTemplateNotFound):
		return "template_not_found"
	case errors.Is(err, model.ErrExternalService):
		return "ai_error"
	case errors.Is(err, model.ErrDatabase):
		return "db_error"
	default:
		return "internal"
	}
}
