package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"fable-server/internal/model"
	"fable-server/internal/repository"
)

// MockProfileRepository is a mock type for the ProfileRepository type
type MockProfileRepository struct {
	mock.Mock
}

// FindExactMatch provides a mock function with given fields: ctx, attrs
func (_m *MockProfileRepository) FindExactMatch(ctx context.Context, attrs model.ProfileAttrs) (*model.ProfileSnapshot, error) {
	ret := _m.Called(ctx, attrs)

	var r0 *model.ProfileSnapshot
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.ProfileSnapshot)
	}
	return r0, ret.Error(1)
}

// Create provides a mock function with given fields: ctx, attrs
func (_m *MockProfileRepository) Create(ctx context.Context, attrs model.ProfileAttrs) (*model.ProfileSnapshot, error) {
	ret := _m.Called(ctx, attrs)

	var r0 *model.ProfileSnapshot
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.ProfileSnapshot)
	}
	return r0, ret.Error(1)
}

// NewMockProfileRepository creates a new instance of MockProfileRepository.
func NewMockProfileRepository(t interface {
	mock.TestingT
	Helper()
}) *MockProfileRepository {
	m := &MockProfileRepository{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ repository.ProfileRepository = (*MockProfileRepository)(nil)

// MockStoryRepository is a mock type for the StoryRepository type
type MockStoryRepository struct {
	mock.Mock
}

// Save provides a mock function with given fields: ctx, story
func (_m *MockStoryRepository) Save(ctx context.Context, story *model.Story) error {
	ret := _m.Called(ctx, story)
	return ret.Error(0)
}

// GetByID provides a mock function with given fields: ctx, id
func (_m *MockStoryRepository) GetByID(ctx context.Context, id string) (*model.Story, error) {
	ret := _m.Called(ctx, id)

	var r0 *model.Story
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Story)
	}
	return r0, ret.Error(1)
}

// NewMockStoryRepository creates a new instance of MockStoryRepository.
func NewMockStoryRepository(t interface {
	mock.TestingT
	Helper()
}) *MockStoryRepository {
	m := &MockStoryRepository{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ repository.StoryRepository = (*MockStoryRepository)(nil)

// MockGenerationRepository is a mock type for the GenerationRepository type
type MockGenerationRepository struct {
	mock.Mock
}

// Save provides a mock function with given fields: ctx, attempt
func (_m *MockGenerationRepository) Save(ctx context.Context, attempt *model.GenerationAttempt) error {
	ret := _m.Called(ctx, attempt)
	return ret.Error(0)
}

// Complete provides a mock function with given fields
func (_m *MockGenerationRepository) Complete(ctx context.Context, id string, status model.AttemptStatus, rawResponse string, errMsg string, promptTokens int, outputTokens int) error {
	ret := _m.Called(ctx, id, status, rawResponse, errMsg, promptTokens, outputTokens)
	return ret.Error(0)
}

// NewMockGenerationRepository creates a new instance of MockGenerationRepository.
func NewMockGenerationRepository(t interface {
	mock.TestingT
	Helper()
}) *MockGenerationRepository {
	m := &MockGenerationRepository{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ repository.GenerationRepository = (*MockGenerationRepository)(nil)
