package service

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"fable-server/internal/model"
	"fable-server/internal/prompt"
)

// Границы допустимой длины истории в минутах.
const (
	MinLengthMinutes = 1
	MaxLengthMinutes = 30
)

// Ограничения эвристики выбора заголовка.
const (
	maxTitleRunes = 80
	maxTitleWords = 12
)

// StoryAssembler собирает сущность Story из сырого текста генерации.
// Не выполняет I/O, вся работа детерминирована.
type StoryAssembler struct{}

// NewStoryAssembler создает новый сборщик историй.
func NewStoryAssembler() *StoryAssembler {
	return &StoryAssembler{}
}

// ValidateRequest проверяет входящий запрос до любых обращений к провайдерам.
// Невалидный запрос не должен породить ни одной записи о попытке генерации.
func (a *StoryAssembler) ValidateRequest(req *model.StoryRequest) error {
	if req.LengthMinutes < MinLengthMinutes || req.LengthMinutes > MaxLengthMinutes {
		return model.ValidationErrorf("длина истории %d минут вне допустимого диапазона [%d, %d]",
			req.LengthMinutes, MinLengthMinutes, MaxLengthMinutes)
	}
	switch req.StoryType {
	case model.StoryTypeSubject, model.StoryTypeHero, model.StoryTypeCombined:
	default:
		return model.ValidationErrorf("неизвестный тип истории '%s'", req.StoryType)
	}
	if strings.TrimSpace(req.Language) == "" {
		return model.ValidationErrorf("язык не указан")
	}
	// Для hero-историй ребенок не обязателен: шаблоны hero не используют
	// плейсхолдеры ребенка, протагонист - сам герой
	if req.StoryType != model.StoryTypeHero && strings.TrimSpace(req.Subject.Name) == "" {
		return model.ValidationErrorf("имя ребенка не указано")
	}
	if req.StoryType != model.StoryTypeSubject && (req.Hero == nil || strings.TrimSpace(req.Hero.Name) == "") {
		return model.ValidationErrorf("для типа истории '%s' требуется профиль героя", req.StoryType)
	}
	return nil
}

// Assemble строит несохраненную Story из ответа AI. subject может быть nil
// для hero-историй; хотя бы одна из привязок (ребенок или герой) присутствует
// всегда, это гарантирует ValidateRequest.
// Rating остается пустым: он выставляется позже отдельным CRUD-потоком.
func (a *StoryAssembler) Assemble(rawText string, req *model.StoryRequest, subject *model.ProfileSnapshot, hero *model.ProfileSnapshot, attemptID string) *model.Story {
	title, content := extractTitle(rawText)
	if title == "" {
		protagonist := ""
		if subject != nil {
			protagonist = subject.Name
		} else if hero != nil {
			protagonist = hero.Name
		}
		title = synthesizeTitle(protagonist, req.Moral, req.Language)
	}

	story := &model.Story{
		ID:                  uuid.NewString(),
		Title:               title,
		Content:             content,
		Language:            req.Language,
		StoryType:           req.StoryType,
		Moral:               req.Moral,
		LengthMinutes:       req.LengthMinutes,
		WordCount:           len(strings.Fields(content)),
		Status:              model.StoryStatusDraft,
		GenerationAttemptID: attemptID,
		ParentStoryID:       req.ParentStoryID,
		CreatedAt:           time.Now().UTC(),
	}
	if subject != nil {
		story.ChildID = subject.ID
		story.ChildName = subject.Name
	}
	if hero != nil {
		story.HeroID = hero.ID
		story.HeroName = hero.Name
	}
	return story
}

// extractTitle пытается взять заголовок из первой непустой строки текста.
// Строка подходит, если она короткая и не обрывается на середине фразы.
// Возвращает пустой заголовок, если эвристика не сработала; content
// в этом случае остается нетронутым.
func extractTitle(rawText string) (title string, content string) {
	text := strings.TrimSpace(rawText)
	lines := strings.Split(text, "\n")

	firstIdx := -1
	var candidate string
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			firstIdx = i
			candidate = strings.TrimSpace(line)
			break
		}
	}
	if firstIdx < 0 {
		return "", text
	}

	candidate = stripMarkdown(candidate)
	if !titleAcceptable(candidate) {
		return "", text
	}

	rest := strings.TrimSpace(strings.Join(lines[firstIdx+1:], "\n"))
	if rest == "" {
		// Весь текст состоял из одной строки, заголовок из нее не вырезаем
		return "", text
	}
	return candidate, rest
}

// stripMarkdown убирает markdown-обрамление и кавычки вокруг заголовка.
func stripMarkdown(s string) string {
	s = strings.TrimLeft(s, "#> ")
	s = strings.Trim(s, "*_ ")
	s = strings.Trim(s, `"«»“”'`)
	return strings.TrimSpace(s)
}

// titleAcceptable проверяет, похожа ли строка на законченный заголовок.
func titleAcceptable(s string) bool {
	if s == "" {
		return false
	}
	if utf8.RuneCountInString(s) > maxTitleRunes {
		return false
	}
	if len(strings.Fields(s)) > maxTitleWords {
		return false
	}
	// Заголовок не должен обрываться посреди фразы
	switch {
	case strings.HasSuffix(s, ","), strings.HasSuffix(s, ";"),
		strings.HasSuffix(s, ":"), strings.HasSuffix(s, "-"):
		return false
	}
	return true
}

// synthesizeTitle строит запасной заголовок из имени протагониста и морали.
func synthesizeTitle(name, moral, language string) string {
	moralText := prompt.TranslateMoral(moral, language)
	if language == "ru" {
		switch {
		case name != "" && moralText != "":
			return "История для " + name + " о том, что такое " + moralText
		case name != "":
			return "История для " + name
		case moralText != "":
			return "История о том, что такое " + moralText
		default:
			return "Новая история"
		}
	}
	switch {
	case name != "" && moralText != "":
		return "A Story for " + name + " About " + capitalize(moralText)
	case name != "":
		return "A Story for " + name
	case moralText != "":
		return "A Story About " + capitalize(moralText)
	default:
		return "A New Story"
	}
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
