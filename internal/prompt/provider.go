package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"go.uber.org/zap"

	"fable-server/internal/model"
)

// TemplateProvider загружает шаблоны промтов из директории и кэширует их в
// памяти. Файлы именуются как story_<type>_<lang>.md, например
// story_subject_en.md. Кэш заполняется один раз при старте процесса.
type TemplateProvider struct {
	templatesDir string
	cacheLock    sync.RWMutex
	cacheMap     map[string]map[string]string // map[language]map[storyType]content
	logger       *zap.Logger
}

const templateFilePrefix = "story_"

// NewTemplateProvider создает новый TemplateProvider.
func NewTemplateProvider(templatesDir string, logger *zap.Logger) *TemplateProvider {
	if logger == nil {
		log.Fatal().Msg("Logger is nil for TemplateProvider")
	}
	return &TemplateProvider{
		templatesDir: templatesDir,
		cacheMap:     make(map[string]map[string]string),
		logger:       logger.Named("TemplateProvider"),
	}
}

// LoadTemplates читает все файлы шаблонов из директории в кэш.
// Вызывается один раз при запуске сервиса.
func (p *TemplateProvider) LoadTemplates() error {
	p.logger.Info("Loading prompt templates into cache...", zap.String("dir", p.templatesDir))

	entries, err := os.ReadDir(p.templatesDir)
	if err != nil {
		return fmt.Errorf("failed to read templates dir %s: %w", p.templatesDir, err)
	}

	newCache := make(map[string]map[string]string)
	count := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		// story_subject_en.md -> тип "subject", язык "en"
		base := strings.TrimSuffix(entry.Name(), ".md")
		if !strings.HasPrefix(base, templateFilePrefix) {
			continue
		}
		parts := strings.Split(strings.TrimPrefix(base, templateFilePrefix), "_")
		if len(parts) != 2 {
			p.logger.Warn("Skipping template file with unexpected name", zap.String("file", entry.Name()))
			continue
		}
		storyType, language := parts[0], parts[1]

		contentBytes, err := os.ReadFile(filepath.Join(p.templatesDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read template file %s: %w", entry.Name(), err)
		}
		if _, ok := newCache[language]; !ok {
			newCache[language] = make(map[string]string)
		}
		newCache[language][storyType] = string(contentBytes)
		count++
	}

	p.cacheLock.Lock()
	p.cacheMap = newCache
	p.cacheLock.Unlock()

	p.logger.Info("Prompt templates loaded successfully into cache", zap.Int("count", count))
	return nil
}

// GetTemplate возвращает шаблон для пары (тип истории, язык).
// Отсутствие шаблона - ошибка конфигурации (ErrTemplateNotFound),
// без фолбэка на другой язык: промт на неожиданном языке хуже явного отказа.
func (p *TemplateProvider) GetTemplate(storyType model.StoryType, language string) (string, error) {
	p.cacheLock.RLock()
	langCache, langOk := p.cacheMap[language]
	var content string
	var keyOk bool
	if langOk {
		content, keyOk = langCache[string(storyType)]
	}
	p.cacheLock.RUnlock()

	if !langOk || !keyOk {
		p.logger.Error("Prompt template not found in cache",
			zap.String("story_type", string(storyType)),
			zap.String("language", language))
		return "", fmt.Errorf("%w: type='%s', lang='%s'", model.ErrTemplateNotFound, storyType, language)
	}
	return content, nil
}

// Languages возвращает отсортированный список языков, для которых загружен
// хотя бы один шаблон.
func (p *TemplateProvider) Languages() []string {
	p.cacheLock.RLock()
	defer p.cacheLock.RUnlock()
	languages := make([]string, 0, len(p.cacheMap))
	for lang := range p.cacheMap {
		languages = append(languages, lang)
	}
	sort.Strings(languages)
	return languages
}
