package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	zlog "github.com/rs/zerolog/log"
	"go.uber.org/zap"

	"fable-server/internal/messaging"
	"fable-server/internal/model"
)

// TaskHandler обрабатывает задачи генерации из очереди RabbitMQ.
type TaskHandler struct {
	orchestrator *Orchestrator
	notifier     messaging.Notifier
	logger       *zap.Logger
}

// NewTaskHandler создает новый экземпляр обработчика задач.
func NewTaskHandler(orchestrator *Orchestrator, notifier messaging.Notifier, logger *zap.Logger) *TaskHandler {
	if orchestrator == nil {
		zlog.Fatal().Msg("TaskHandler: orchestrator не может быть nil")
	}
	if notifier == nil {
		zlog.Fatal().Msg("TaskHandler: notifier не может быть nil")
	}
	if logger == nil {
		zlog.Fatal().Msg("TaskHandler: logger не может быть nil")
	}
	return &TaskHandler{orchestrator: orchestrator, notifier: notifier, logger: logger}
}

// Handle обрабатывает одну задачу генерации.
func (h *TaskHandler) Handle(ctx context.Context, payload messaging.GenerationTaskPayload) error {
	MetricsIncrementTaskReceived()
	taskStartTime := time.Now()
	log.Printf("[TaskID: %s] Обработка задачи: UserID=%s, StoryType=%s, Language=%s",
		payload.TaskID, payload.UserID, payload.Request.StoryType, payload.Request.Language)

	story, err := h.orchestrator.Execute(ctx, &payload.Request)

	duration := time.Since(taskStartTime)
	MetricsObserveTaskDuration(duration.Seconds())

	notification := messaging.NotificationPayload{
		TaskID: payload.TaskID,
		UserID: payload.UserID,
	}
	if err != nil {
		notification.Status = messaging.NotificationStatusError
		notification.ErrorCode = model.CodeForError(err)
		notification.ErrorDetails = err.Error()
		log.Printf("[TaskID: %s] Задача завершилась ошибкой за %v: %v", payload.TaskID, duration, err)
	} else {
		MetricsIncrementTaskSucceeded()
		notification.Status = messaging.NotificationStatusSuccess
		notification.StoryID = story.ID
		notification.Title = story.Title
		notification.AudioURL = story.AudioURL
		log.Printf("[TaskID: %s] Задача успешно обработана за %v. StoryID: %s", payload.TaskID, duration, story.ID)
	}

	if notifyErr := h.notifier.Notify(ctx, notification); notifyErr != nil {
		h.logger.Error("Не удалось отправить уведомление о задаче",
			zap.String("task_id", payload.TaskID), zap.Error(notifyErr))
	}

	return err
}

// ConsumeLoop читает сообщения из канала доставки до его закрытия или
// отмены контекста. Невалидный JSON уходит в DLQ через nack без requeue;
// ошибки обработки тоже не ретраятся очередью, попытки генерации
// управляются внутри конвейера.
func (h *TaskHandler) ConsumeLoop(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Остановка потребителя задач: контекст отменен")
			return
		case d, ok := <-deliveries:
			if !ok {
				h.logger.Warn("Канал доставки RabbitMQ закрыт")
				return
			}
			h.handleDelivery(ctx, d)
		}
	}
}

func (h *TaskHandler) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var payload messaging.GenerationTaskPayload
	if err := json.Unmarshal(d.Body, &payload); err != nil {
		h.logger.Error("Невалидное тело сообщения, отправка в DLQ", zap.Error(err))
		MetricsIncrementTaskFailed("bad_payload")
		if nackErr := d.Nack(false, false); nackErr != nil {
			h.logger.Error("Ошибка Nack для невалидного сообщения", zap.Error(nackErr))
		}
		return
	}

	if err := h.Handle(ctx, payload); err != nil {
		// Ошибка уже зафиксирована и клиент уведомлен, сообщение
		// в очередь не возвращаем
		if nackErr := d.Nack(false, false); nackErr != nil {
			h.logger.Error("Ошибка Nack сообщения",
				zap.String("task_id", payload.TaskID), zap.Error(nackErr))
		}
		return
	}

	if ackErr := d.Ack(false); ackErr != nil {
		h.logger.Error("Ошибка Ack сообщения",
			zap.String("task_id", payload.TaskID), zap.Error(ackErr))
	}
}
