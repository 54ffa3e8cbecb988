package prompt

import (
	"strconv"
	"strings"

	"fable-server/internal/model"
)

// Максимальная длина отрывка родительской истории, подставляемого в промт
// продолжения, когда у истории нет сохраненного краткого содержания.
const maxParentExcerptRunes = 600

// BuildInput - входные данные для сборки промта. Все поля уже провалидированы
// оркестратором; сборка не выполняет I/O и детерминирована.
type BuildInput struct {
	Subject       *model.ProfileSnapshot // Ребенок (для типов subject и combined)
	Hero          *model.ProfileSnapshot // Герой (для типов hero и combined)
	StoryType     model.StoryType
	Language      string
	Moral         string
	LengthMinutes int
	ParentSummary string // Краткое содержание родительской истории (для продолжений)
	ParentContent string // Полный текст родительской истории (фолбэк, будет усечен)
}

// Builder рендерит промт из шаблона, подставляя переведенные поля профиля.
type Builder struct {
	templates *TemplateProvider
}

// NewBuilder создает новый Builder.
func NewBuilder(templates *TemplateProvider) *Builder {
	return &Builder{templates: templates}
}

// Build выбирает шаблон по паре (тип истории, язык) и подставляет плейсхолдеры.
// Целевое число слов выводится из минут здесь, а не вызывающим кодом.
func (b *Builder) Build(in BuildInput) (string, error) {
	tpl, err := b.templates.GetTemplate(in.StoryType, in.Language)
	if err != nil {
		return "", err
	}

	wordCount := in.LengthMinutes * WordsPerMinute

	text := tpl
	if in.Subject != nil {
		text = strings.ReplaceAll(text, "{{CHILD_NAME}}", in.Subject.Name)
		text = strings.ReplaceAll(text, "{{AGE_CATEGORY}}", FormatAgeCategory(in.Subject.AgeCategory, in.Language))
		text = strings.ReplaceAll(text, "{{GENDER}}", TranslateGender(in.Subject.Gender, in.Language))
		text = strings.ReplaceAll(text, "{{INTERESTS}}",
			strings.Join(TranslateInterests(in.Subject.Interests, in.Language), ", "))
	}
	if in.Hero != nil {
		text = strings.ReplaceAll(text, "{{HERO_NAME}}", in.Hero.Name)
		text = strings.ReplaceAll(text, "{{HERO_TRAITS}}",
			strings.Join(TranslateInterests(in.Hero.Interests, in.Language), ", "))
	}
	text = strings.ReplaceAll(text, "{{MORAL}}", TranslateMoral(in.Moral, in.Language))
	text = strings.ReplaceAll(text, "{{WORD_COUNT}}", strconv.Itoa(wordCount))
	text = strings.ReplaceAll(text, "{{CONTINUATION}}", b.continuationBlock(in))

	return text, nil
}

// continuationBlock формирует блок контекста продолжения: сохраненное краткое
// содержание, либо усеченный отрывок родительской истории, плюс инструкция
// продолжить повествование. Для обычных историй возвращает пустую строку.
func (b *Builder) continuationBlock(in BuildInput) string {
	if in.ParentSummary == "" && in.ParentContent == "" {
		return ""
	}

	context := in.ParentSummary
	if context == "" {
		context = truncateRunes(in.ParentContent, maxParentExcerptRunes)
	}

	var sb strings.Builder
	switch in.Language {
	case "ru":
		sb.WriteString("Это продолжение предыдущей истории. Вот что было раньше:\n")
		sb.WriteString(context)
		sb.WriteString("\nПродолжи повествование с того места, где оно остановилось.")
	default:
		sb.WriteString("This is a continuation of a previous story. Here is what happened before:\n")
		sb.WriteString(context)
		sb.WriteString("\nContinue the narrative from where it left off.")
	}
	return sb.String()
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
