package messaging

import "fable-server/internal/model"

// GenerationTaskPayload - данные, передаваемые в очередь задач генерации.
type GenerationTaskPayload struct {
	TaskID  string             `json:"taskId"`
	UserID  string             `json:"userId"`
	Request model.StoryRequest `json:"request"`
}

// NotificationStatus - статус завершения задачи для уведомления
type NotificationStatus string

const (
	NotificationStatusSuccess NotificationStatus = "success"
	NotificationStatusError   NotificationStatus = "error"
)

// NotificationPayload - данные, отправляемые в очередь уведомлений
type NotificationPayload struct {
	TaskID       string             `json:"taskId"`
	UserID       string             `json:"userId"`
	Status       NotificationStatus `json:"status"`
	StoryID      string             `json:"storyId,omitempty"`
	Title        string             `json:"title,omitempty"`
	AudioURL     string             `json:"audioUrl,omitempty"`
	ErrorCode    model.ErrorCode    `json:"errorCode,omitempty"`
	ErrorDetails string             `json:"errorDetails,omitempty"`
}
