package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	zlog "github.com/rs/zerolog/log"
	"go.uber.org/zap"
)

// ArtifactPublisher загружает аудио-артефакты в долговременное хранилище
// и возвращает публичную ссылку. Узкий интерфейс: вызывающему не нужно
// знать, локальный это диск или объектное хранилище.
type ArtifactPublisher interface {
	Upload(ctx context.Context, objectName string, data []byte) (string, error)
}

// localPublisher складывает артефакты на локальный диск и строит ссылку
// от настроенного базового URL. Подходит для одного инстанса; для
// масштабирования интерфейс позволяет подменить реализацию на S3/GCS.
type localPublisher struct {
	dir     string
	baseURL string
	logger  *zap.Logger
}

// NewLocalPublisher создает публикатор артефактов на локальном диске.
func NewLocalPublisher(dir string, baseURL string, logger *zap.Logger) (ArtifactPublisher, error) {
	if logger == nil {
		zlog.Fatal().Msg("localPublisher: logger не может быть nil")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать каталог артефактов '%s': %w", dir, err)
	}
	return &localPublisher{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}, nil
}

// Upload записывает артефакт на диск и возвращает публичный URL.
func (p *localPublisher) Upload(ctx context.Context, objectName string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	// objectName приходит из кода, а не от пользователя, но путь все равно нормализуем
	objectName = filepath.Base(objectName)
	path := filepath.Join(p.dir, objectName)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("не удалось записать артефакт '%s': %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("не удалось переименовать артефакт '%s': %w", path, err)
	}

	url := p.baseURL + "/" + objectName
	p.logger.Info("Артефакт опубликован",
		zap.String("path", path), zap.Int("bytes", len(data)), zap.String("url", url))
	return url, nil
}
