package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"fable-server/internal/messaging"
	"fable-server/internal/storage"
)

// MockNotifier is a mock type for the Notifier type
type MockNotifier struct {
	mock.Mock
}

// Notify provides a mock function with given fields: ctx, payload
func (_m *MockNotifier) Notify(ctx context.Context, payload messaging.NotificationPayload) error {
	ret := _m.Called(ctx, payload)
	return ret.Error(0)
}

// NewMockNotifier creates a new instance of MockNotifier.
func NewMockNotifier(t interface {
	mock.TestingT
	Helper()
}) *MockNotifier {
	m := &MockNotifier{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ messaging.Notifier = (*MockNotifier)(nil)

// MockArtifactPublisher is a mock type for the ArtifactPublisher type
type MockArtifactPublisher struct {
	mock.Mock
}

// Upload provides a mock function with given fields: ctx, objectName, data
func (_m *MockArtifactPublisher) Upload(ctx context.Context, objectName string, data []byte) (string, error) {
	ret := _m.Called(ctx, objectName, data)
	return ret.String(0), ret.Error(1)
}

// NewMockArtifactPublisher creates a new instance of MockArtifactPublisher.
func NewMockArtifactPublisher(t interface {
	mock.TestingT
	Helper()
}) *MockArtifactPublisher {
	m := &MockArtifactPublisher{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ storage.ArtifactPublisher = (*MockArtifactPublisher)(nil)
