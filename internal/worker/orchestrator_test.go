package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fable-server/internal/config"
	"fable-server/internal/mocks"
	"fable-server/internal/model"
	"fable-server/internal/prompt"
	"fable-server/internal/service"
	"fable-server/internal/tts"
)

// fakeProfileRepo хранит профили в памяти с дедупликацией по точному
// совпадению атрибутов.
type fakeProfileRepo struct {
	profiles map[string]*model.ProfileSnapshot
	created  int
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[string]*model.ProfileSnapshot)}
}

func attrsKey(attrs model.ProfileAttrs) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s",
		attrs.Kind, attrs.Name, attrs.AgeCategory, attrs.Gender, strings.Join(attrs.Interests, ","))
}

func (r *fakeProfileRepo) FindExactMatch(ctx context.Context, attrs model.ProfileAttrs) (*model.ProfileSnapshot, error) {
	if p, ok := r.profiles[attrsKey(attrs)]; ok {
		return p, nil
	}
	return nil, model.ErrNotFound
}

func (r *fakeProfileRepo) Create(ctx context.Context, attrs model.ProfileAttrs) (*model.ProfileSnapshot, error) {
	r.created++
	p := &model.ProfileSnapshot{
		ID:          fmt.Sprintf("profile-%d", r.created),
		Kind:        attrs.Kind,
		Name:        attrs.Name,
		AgeCategory: attrs.AgeCategory,
		Gender:      attrs.Gender,
		Interests:   attrs.Interests,
	}
	r.profiles[attrsKey(attrs)] = p
	return p, nil
}

// fakeStoryRepo хранит истории в памяти.
type fakeStoryRepo struct {
	stories map[string]*model.Story
	saveErr error
}

func newFakeStoryRepo() *fakeStoryRepo {
	return &fakeStoryRepo{stories: make(map[string]*model.Story)}
}

func (r *fakeStoryRepo) Save(ctx context.Context, story *model.Story) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	copied := *story
	r.stories[story.ID] = &copied
	return nil
}

func (r *fakeStoryRepo) GetByID(ctx context.Context, id string) (*model.Story, error) {
	if s, ok := r.stories[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, model.ErrNotFound
}

// fakeJournal считает записи попыток.
type fakeJournal struct {
	saved     []*model.GenerationAttempt
	completed []model.AttemptStatus
}

func (j *fakeJournal) Save(ctx context.Context, attempt *model.GenerationAttempt) error {
	copied := *attempt
	j.saved = append(j.saved, &copied)
	return nil
}

func (j *fakeJournal) Complete(ctx context.Context, id string, status model.AttemptStatus, rawResponse string, errMsg string, promptTokens int, outputTokens int) error {
	j.completed = append(j.completed, status)
	return nil
}

type orchestratorFixture struct {
	orchestrator *Orchestrator
	profiles     *fakeProfileRepo
	stories      *fakeStoryRepo
	journal      *fakeJournal
	aiClient     *mocks.MockAIClient
	publisher    *mocks.MockArtifactPublisher
	registry     *tts.Registry
}

func newFixture(t *testing.T) *orchestratorFixture {
	t.Helper()

	templates := prompt.NewTemplateProvider("../../prompts", zap.NewNop())
	require.NoError(t, templates.LoadTemplates())
	builder := prompt.NewBuilder(templates)

	cfg := &config.Config{
		AIClientType:     "openai",
		AIModel:          "test-model",
		AIMaxAttempts:    2,
		AIBaseRetryDelay: time.Millisecond,
	}

	profiles := newFakeProfileRepo()
	stories := newFakeStoryRepo()
	journal := &fakeJournal{}
	aiClient := mocks.NewMockAIClient(t)
	aiClient.On("ModelName").Return("test-model").Maybe()

	textGen := service.NewTextGenerationService(aiClient, journal, cfg, zap.NewNop())
	assembler := service.NewStoryAssembler()

	registry := tts.NewRegistry()
	narration := service.NewNarrationService(registry, zap.NewNop())

	publisher := mocks.NewMockArtifactPublisher(t)

	orchestrator := NewOrchestrator(
		profiles, stories, builder, textGen, assembler, narration, publisher, zap.NewNop())

	return &orchestratorFixture{
		orchestrator: orchestrator,
		profiles:     profiles,
		stories:      stories,
		journal:      journal,
		aiClient:     aiClient,
		publisher:    publisher,
		registry:     registry,
	}
}

func miaRequest() *model.StoryRequest {
	return &model.StoryRequest{
		Subject: model.ProfileAttrs{
			Kind:        model.ProfileKindChild,
			Name:        "Mia",
			AgeCategory: "5-7",
			Gender:      "female",
			Interests:   []string{"dinosaurs"},
		},
		StoryType:     model.StoryTypeSubject,
		Language:      "en",
		Moral:         "kindness",
		LengthMinutes: 5,
	}
}

func generatedStory(words int) string {
	return "Mia and the Dinosaur\n\n" + strings.TrimSpace(strings.Repeat("word ", words))
}

func okUsage() service.UsageInfo {
	return service.UsageInfo{PromptTokens: 100, CompletionTokens: 700, TotalTokens: 800}
}

func TestExecute_MiaScenario(t *testing.T) {
	f := newFixture(t)
	targetWords := 5 * prompt.WordsPerMinute
	f.aiClient.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(generatedStory(targetWords), okUsage(), nil).Once()

	story, err := f.orchestrator.Execute(context.Background(), miaRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, story.Title)
	assert.InDelta(t, targetWords, story.WordCount, float64(targetWords)*0.3)
	assert.False(t, story.HasNarration())
	assert.Empty(t, story.AudioURL)

	// Ровно одна попытка со статусом success
	require.Len(t, f.journal.saved, 1)
	require.Len(t, f.journal.completed, 1)
	assert.Equal(t, model.AttemptStatusSuccess, f.journal.completed[0])

	// История сохранена
	saved, err := f.stories.GetByID(context.Background(), story.ID)
	require.NoError(t, err)
	assert.Equal(t, story.Title, saved.Title)
}

func TestExecute_LengthOutOfBoundsRejectedBeforeAICall(t *testing.T) {
	f := newFixture(t)

	req := miaRequest()
	req.LengthMinutes = 45
	_, err := f.orchestrator.Execute(context.Background(), req)

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrValidation)
	f.aiClient.AssertNotCalled(t, "GenerateText",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.journal.saved, "невалидный запрос не порождает попыток")
	assert.Empty(t, f.stories.stories)
}

func TestExecute_ProfileDedupIdempotent(t *testing.T) {
	f := newFixture(t)
	f.aiClient.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(generatedStory(100), okUsage(), nil).Twice()

	first, err := f.orchestrator.Execute(context.Background(), miaRequest())
	require.NoError(t, err)
	second, err := f.orchestrator.Execute(context.Background(), miaRequest())
	require.NoError(t, err)

	assert.Equal(t, first.ChildID, second.ChildID, "одинаковые атрибуты дают один и тот же профиль")
	assert.Equal(t, 1, f.profiles.created, "повторный запрос не создает дубликат профиля")
}

func TestExecute_GenerationFailureFailsWholeRequest(t *testing.T) {
	f := newFixture(t)
	f.aiClient.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", service.UsageInfo{}, errors.New("provider down"))

	_, err := f.orchestrator.Execute(context.Background(), miaRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrExternalService)
	assert.Empty(t, f.stories.stories, "история без успешной генерации не записывается")
	// Но все попытки остались в журнале
	assert.Len(t, f.journal.saved, 2)
}

func TestExecute_NarrationExhaustionStillSucceeds(t *testing.T) {
	f := newFixture(t)
	f.aiClient.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(generatedStory(100), okUsage(), nil).Once()
	f.registry.Register(&tts.MockProvider{Name: "down", GenerateErr: errors.New("api down")})

	req := miaRequest()
	req.Narrate = true
	story, err := f.orchestrator.Execute(context.Background(), req)

	require.NoError(t, err, "провал озвучки не валит запрос")
	assert.False(t, story.HasNarration())
	assert.Empty(t, story.AudioURL)
	assert.Empty(t, story.AudioProvider)

	saved, err := f.stories.GetByID(context.Background(), story.ID)
	require.NoError(t, err)
	assert.False(t, saved.HasNarration())
}

func TestExecute_NarrationSuccessAttachesAudio(t *testing.T) {
	f := newFixture(t)
	f.aiClient.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(generatedStory(100), okUsage(), nil).Once()
	f.registry.Register(&tts.MockProvider{Name: "voice", Audio: []byte("mp3 bytes"), Meta: map[string]string{"format": "mp3"}})
	f.publisher.On("Upload", mock.Anything, mock.AnythingOfType("string"), []byte("mp3 bytes")).
		Return("http://localhost/audio/story.mp3", nil).Once()

	req := miaRequest()
	req.Narrate = true
	story, err := f.orchestrator.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, story.HasNarration())
	assert.Equal(t, "http://localhost/audio/story.mp3", story.AudioURL)
	assert.Equal(t, "voice", story.AudioProvider)
}

func TestExecute_PublishFailureLeavesStoryTextOnly(t *testing.T) {
	f := newFixture(t)
	f.aiClient.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(generatedStory(100), okUsage(), nil).Once()
	f.registry.Register(&tts.MockProvider{Name: "voice", Audio: []byte("mp3 bytes")})
	f.publisher.On("Upload", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return("", errors.New("disk full")).Once()

	req := miaRequest()
	req.Narrate = true
	story, err := f.orchestrator.Execute(context.Background(), req)

	require.NoError(t, err)
	assert.False(t, story.HasNarration(), "поля озвучки либо все, либо ни одного")
}

func TestExecute_ContinuationLoadsParent(t *testing.T) {
	f := newFixture(t)

	parent := &model.Story{
		ID:       "parent-1",
		Title:    "Part One",
		Content:  "Mia met a dinosaur and they became friends.",
		Summary:  "Mia befriended a dinosaur.",
		Language: "en",
	}
	require.NoError(t, f.stories.Save(context.Background(), parent))

	var capturedPrompt string
	f.aiClient.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			capturedPrompt = args.String(2)
		}).
		Return(generatedStory(100), okUsage(), nil).Once()

	req := miaRequest()
	req.ParentStoryID = "parent-1"
	story, err := f.orchestrator.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "parent-1", story.ParentStoryID)
	assert.Contains(t, capturedPrompt, "Mia befriended a dinosaur.")
}

func TestExecute_ContinuationUnknownParentRejected(t *testing.T) {
	f := newFixture(t)

	req := miaRequest()
	req.ParentStoryID = "ghost"
	_, err := f.orchestrator.Execute(context.Background(), req)

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrValidation)
	f.aiClient.AssertNotCalled(t, "GenerateText",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecute_RoundTrip(t *testing.T) {
	f := newFixture(t)
	raw := "The Gentle Giant\n\nA calm bedtime story about kindness."
	f.aiClient.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(raw, okUsage(), nil).Once()

	story, err := f.orchestrator.Execute(context.Background(), miaRequest())
	require.NoError(t, err)

	reread, err := f.stories.GetByID(context.Background(), story.ID)
	require.NoError(t, err)
	assert.Equal(t, story.Title, reread.Title)
	assert.Equal(t, story.Content, reread.Content)
	assert.Equal(t, story.Language, reread.Language)
}

func TestExecute_HeroOnlyStoryWithoutSubject(t *testing.T) {
	f := newFixture(t)
	f.aiClient.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("Drago the Brave\n\nOnce there was a dragon who guarded a mountain.", okUsage(), nil).Once()

	req := &model.StoryRequest{
		Hero: &model.ProfileAttrs{
			Kind:      model.ProfileKindHero,
			Name:      "Drago",
			Interests: []string{"flying"},
		},
		StoryType:     model.StoryTypeHero,
		Language:      "en",
		Moral:         "courage",
		LengthMinutes: 5,
	}
	story, err := f.orchestrator.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "Drago the Brave", story.Title)
	assert.Empty(t, story.ChildID, "hero-история не привязывается к ребенку")
	assert.NotEmpty(t, story.HeroID)
	assert.Equal(t, "Drago", story.HeroName)
	assert.Equal(t, 1, f.profiles.created, "создается только профиль героя")
}

func TestExecute_VoiceOptionsReachProvider(t *testing.T) {
	f := newFixture(t)
	f.aiClient.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(generatedStory(100), okUsage(), nil).Once()
	provider := &tts.MockProvider{Name: "voice", Audio: []byte("mp3 bytes")}
	f.registry.Register(provider)
	f.publisher.On("Upload", mock.Anything, mock.Anything, mock.Anything).
		Return("http://localhost/audio/story.mp3", nil).Once()

	req := miaRequest()
	req.Narrate = true
	req.VoiceOptions = map[string]string{"voice": "en-US-Custom", "speed": "1.25"}
	_, err := f.orchestrator.Execute(context.Background(), req)
	require.NoError(t, err)

	opts := provider.LastOptions()
	assert.Equal(t, "en-US-Custom", opts.Voice)
	assert.Equal(t, 1.25, opts.Speed)
}

func TestExecute_InvalidSpeedIgnored(t *testing.T) {
	f := newFixture(t)
	f.aiClient.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(generatedStory(100), okUsage(), nil).Once()
	provider := &tts.MockProvider{Name: "voice", Audio: []byte("mp3 bytes")}
	f.registry.Register(provider)
	f.publisher.On("Upload", mock.Anything, mock.Anything, mock.Anything).
		Return("http://localhost/audio/story.mp3", nil).Once()

	req := miaRequest()
	req.Narrate = true
	req.VoiceOptions = map[string]string{"speed": "fast"}
	_, err := f.orchestrator.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Zero(t, provider.LastOptions().Speed, "нечисловой speed не передается провайдеру")
}

func TestExecute_UnknownParentCountedAsValidationFailure(t *testing.T) {
	f := newFixture(t)

	before := testutil.ToFloat64(tasksFailed.WithLabelValues("validation"))

	req := miaRequest()
	req.ParentStoryID = "ghost"
	_, err := f.orchestrator.Execute(context.Background(), req)
	require.Error(t, err)
	require.ErrorIs(t, err, model.ErrValidation)

	after := testutil.ToFloat64(tasksFailed.WithLabelValues("validation"))
	assert.Equal(t, before+1, after, "провал из-за ненайденного родителя учитывается в метриках")
}

func TestExecute_PersistFailureReturnsDatabaseError(t *testing.T) {
	f := newFixture(t)
	f.aiClient.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(generatedStory(100), okUsage(), nil).Once()
	f.stories.saveErr = errors.New("connection lost")

	_, err := f.orchestrator.Execute(context.Background(), miaRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrDatabase)

	// Успешная попытка остается в журнале как audit-запись
	require.Len(t, f.journal.completed, 1)
	assert.Equal(t, model.AttemptStatusSuccess, f.journal.completed[0])
}
