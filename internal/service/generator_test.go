package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	openaigo "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fable-server/internal/config"
	"fable-server/internal/model"
)

// attemptJournal - фейковый журнал попыток, записывающий все вызовы.
type attemptJournal struct {
	saved     []*model.GenerationAttempt
	completed []completedCall
	saveErr   error
}

type completedCall struct {
	id     string
	status model.AttemptStatus
}

func (j *attemptJournal) Save(ctx context.Context, attempt *model.GenerationAttempt) error {
	if j.saveErr != nil {
		return j.saveErr
	}
	copied := *attempt
	j.saved = append(j.saved, &copied)
	return nil
}

func (j *attemptJournal) Complete(ctx context.Context, id string, status model.AttemptStatus, rawResponse string, errMsg string, promptTokens int, outputTokens int) error {
	j.completed = append(j.completed, completedCall{id: id, status: status})
	return nil
}

// fakeAIClient отдает заранее заданную последовательность ответов.
type fakeAIClient struct {
	responses []fakeResponse
	calls     int
}

type fakeResponse struct {
	text  string
	usage UsageInfo
	err   error
}

func (f *fakeAIClient) GenerateText(ctx context.Context, generationID string, systemPrompt string, userInput string, params GenerationParams) (string, UsageInfo, error) {
	idx := f.calls
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	f.calls++
	resp := f.responses[idx]
	return resp.text, resp.usage, resp.err
}

func (f *fakeAIClient) ModelName() string { return "test-model" }

func testGenConfig() *config.Config {
	return &config.Config{
		AIClientType:     "openai",
		AIModel:          "test-model",
		AIMaxAttempts:    3,
		AIBaseRetryDelay: time.Millisecond,
	}
}

func testGenRequest() GenerationRequest {
	return GenerationRequest{
		GenerationID:  "gen-1",
		StoryType:     model.StoryTypeSubject,
		Language:      "en",
		Moral:         "kindness",
		LengthMinutes: 5,
		SystemPrompt:  "tell a story",
	}
}

func apiError(status int) error {
	return fmt.Errorf("%w: %w", ErrAIGenerationFailed, &openaigo.APIError{HTTPStatusCode: status, Message: "boom"})
}

func okUsage() UsageInfo {
	return UsageInfo{PromptTokens: 100, CompletionTokens: 400, TotalTokens: 500}
}

func TestGenerate_SuccessFirstAttempt(t *testing.T) {
	journal := &attemptJournal{}
	client := &fakeAIClient{responses: []fakeResponse{
		{text: "Once upon a time...", usage: okUsage()},
	}}
	svc := NewTextGenerationService(client, journal, testGenConfig(), zap.NewNop())

	result, err := svc.Generate(context.Background(), testGenRequest())
	require.NoError(t, err)

	assert.Equal(t, "Once upon a time...", result.Text)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 500, result.Usage.TotalTokens)

	require.Len(t, journal.saved, 1)
	assert.Equal(t, 1, journal.saved[0].AttemptNumber)
	assert.Equal(t, "gen-1", journal.saved[0].GenerationID)
	assert.Equal(t, model.AttemptStatusPending, journal.saved[0].Status)
	assert.Equal(t, "test-model", journal.saved[0].Model)

	require.Len(t, journal.completed, 1)
	assert.Equal(t, journal.saved[0].ID, journal.completed[0].id)
	assert.Equal(t, model.AttemptStatusSuccess, journal.completed[0].status)
	assert.Equal(t, result.AttemptID, journal.completed[0].id)
}

func TestGenerate_TransientErrorRetried(t *testing.T) {
	journal := &attemptJournal{}
	client := &fakeAIClient{responses: []fakeResponse{
		{err: apiError(503)},
		{text: "recovered story", usage: okUsage()},
	}}
	svc := NewTextGenerationService(client, journal, testGenConfig(), zap.NewNop())

	result, err := svc.Generate(context.Background(), testGenRequest())
	require.NoError(t, err)

	assert.Equal(t, 2, client.calls)
	assert.Equal(t, 2, result.Attempts)

	require.Len(t, journal.saved, 2)
	assert.Equal(t, 1, journal.saved[0].AttemptNumber)
	assert.Equal(t, 2, journal.saved[1].AttemptNumber)

	require.Len(t, journal.completed, 2)
	assert.Equal(t, model.AttemptStatusFailed, journal.completed[0].status)
	assert.Equal(t, model.AttemptStatusSuccess, journal.completed[1].status)
}

func TestGenerate_PermanentErrorNotRetried(t *testing.T) {
	journal := &attemptJournal{}
	client := &fakeAIClient{responses: []fakeResponse{
		{err: apiError(400)},
	}}
	svc := NewTextGenerationService(client, journal, testGenConfig(), zap.NewNop())

	_, err := svc.Generate(context.Background(), testGenRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrExternalService)

	assert.Equal(t, 1, client.calls, "постоянная ошибка не ретраится")
	require.Len(t, journal.completed, 1)
	assert.Equal(t, model.AttemptStatusFailed, journal.completed[0].status)
}

func TestGenerate_Exhaustion(t *testing.T) {
	journal := &attemptJournal{}
	client := &fakeAIClient{responses: []fakeResponse{
		{err: apiError(500)},
	}}
	svc := NewTextGenerationService(client, journal, testGenConfig(), zap.NewNop())

	_, err := svc.Generate(context.Background(), testGenRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrExternalService)

	assert.Equal(t, 3, client.calls)
	require.Len(t, journal.saved, 3)
	require.Len(t, journal.completed, 3)
	for _, c := range journal.completed {
		assert.Equal(t, model.AttemptStatusFailed, c.status)
	}
}

func TestGenerate_JournalSaveFailureAbortsBeforeAICall(t *testing.T) {
	journal := &attemptJournal{saveErr: fmt.Errorf("connection refused")}
	client := &fakeAIClient{responses: []fakeResponse{
		{text: "should never be generated", usage: okUsage()},
	}}
	svc := NewTextGenerationService(client, journal, testGenConfig(), zap.NewNop())

	_, err := svc.Generate(context.Background(), testGenRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrDatabase)

	assert.Equal(t, 0, client.calls, "без записи в журнале AI не вызывается")
	assert.Empty(t, journal.completed)
}

func TestGenerate_TimeoutRecordedAsTimeout(t *testing.T) {
	journal := &attemptJournal{}
	client := &fakeAIClient{responses: []fakeResponse{
		{err: fmt.Errorf("%w: %w", ErrAIGenerationFailed, context.DeadlineExceeded)},
		{text: "late but fine", usage: okUsage()},
	}}
	svc := NewTextGenerationService(client, journal, testGenConfig(), zap.NewNop())

	_, err := svc.Generate(context.Background(), testGenRequest())
	require.NoError(t, err)

	require.Len(t, journal.completed, 2)
	assert.Equal(t, model.AttemptStatusTimeout, journal.completed[0].status)
}

func TestIsTransientError(t *testing.T) {
	assert.True(t, isTransientError(apiError(429)))
	assert.True(t, isTransientError(apiError(500)))
	assert.True(t, isTransientError(context.DeadlineExceeded))
	assert.True(t, isTransientError(fmt.Errorf("connection refused")))
	assert.False(t, isTransientError(apiError(400)))
	assert.False(t, isTransientError(apiError(422)))
	assert.False(t, isTransientError(context.Canceled))
}
