package model

import (
	"errors"
	"fmt"
)

// Сентинельные ошибки, общие для всех слоев сервиса.
var (
	// ErrNotFound возвращается репозиториями, когда запись не найдена.
	ErrNotFound = errors.New("record not found")
	// ErrValidation - некорректный ввод, перехватывается до любых внешних вызовов.
	ErrValidation = errors.New("validation error")
	// ErrTemplateNotFound - для пары (тип истории, язык) нет шаблона промта.
	// Это ошибка конфигурации, а не повод для ретрая.
	ErrTemplateNotFound = errors.New("prompt template not found")
	// ErrExternalService - внешний AI-провайдер исчерпал все попытки.
	ErrExternalService = errors.New("external service error")
	// ErrDatabase - ошибка персистентности после успешной генерации.
	ErrDatabase = errors.New("database error")
)

// ErrorCode - машиночитаемый код ошибки для API-слоя.
type ErrorCode string

const (
	CodeNotFound         ErrorCode = "not_found"
	CodeValidation       ErrorCode = "validation_error"
	CodeTemplateNotFound ErrorCode = "template_not_found"
	CodeExternalService  ErrorCode = "external_service_error"
	CodeDatabase         ErrorCode = "database_error"
	CodeInternal         ErrorCode = "internal_error"
)

// CodeForError сопоставляет ошибку пайплайна с машиночитаемым кодом.
// HTTP-маппинг (4xx/5xx) - зона ответственности API-слоя.
func CodeForError(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrTemplateNotFound):
		return CodeTemplateNotFound
	case errors.Is(err, ErrExternalService):
		return CodeExternalService
	case errors.Is(err, ErrDatabase):
		return CodeDatabase
	default:
		return CodeInternal
	}
}

// ValidationErrorf оборачивает ErrValidation с форматированным сообщением.
func ValidationErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
