package prompt

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fable-server/internal/model"
)

func loadTestProvider(t *testing.T) *TemplateProvider {
	t.Helper()
	provider := NewTemplateProvider("../../prompts", zap.NewNop())
	require.NoError(t, provider.LoadTemplates())
	return provider
}

func miaSnapshot() *model.ProfileSnapshot {
	return &model.ProfileSnapshot{
		ID:          "profile-mia",
		Kind:        model.ProfileKindChild,
		Name:        "Mia",
		AgeCategory: "5-7",
		Gender:      "female",
		Interests:   []string{"dinosaurs"},
	}
}

func TestBuild_AllTemplatePairs(t *testing.T) {
	provider := loadTestProvider(t)
	builder := NewBuilder(provider)

	hero := &model.ProfileSnapshot{
		ID:        "profile-hero",
		Kind:      model.ProfileKindHero,
		Name:      "Drago",
		Interests: []string{"brave"},
	}

	types := []model.StoryType{model.StoryTypeSubject, model.StoryTypeHero, model.StoryTypeCombined}
	for _, lang := range []string{"en", "ru"} {
		for _, storyType := range types {
			in := BuildInput{
				Subject:       miaSnapshot(),
				Hero:          hero,
				StoryType:     storyType,
				Language:      lang,
				Moral:         "kindness",
				LengthMinutes: 5,
			}
			text, err := builder.Build(in)
			require.NoError(t, err, "pair (%s, %s)", storyType, lang)
			assert.NotEmpty(t, text)
			assert.NotContains(t, text, "{{", "pair (%s, %s): unrendered placeholder", storyType, lang)
		}
	}
}

func TestBuild_SubstitutesProfileFields(t *testing.T) {
	provider := loadTestProvider(t)
	builder := NewBuilder(provider)

	text, err := builder.Build(BuildInput{
		Subject:       miaSnapshot(),
		StoryType:     model.StoryTypeSubject,
		Language:      "en",
		Moral:         "kindness",
		LengthMinutes: 5,
	})
	require.NoError(t, err)

	assert.Contains(t, text, "Mia")
	assert.Contains(t, text, "dinosaurs")
	assert.Contains(t, text, "kindness")
	// Целевое число слов выводится из минут внутри билдера
	assert.Contains(t, text, strconv.Itoa(5*WordsPerMinute))
}

func TestBuild_RussianTranslations(t *testing.T) {
	provider := loadTestProvider(t)
	builder := NewBuilder(provider)

	text, err := builder.Build(BuildInput{
		Subject:       miaSnapshot(),
		StoryType:     model.StoryTypeSubject,
		Language:      "ru",
		Moral:         "kindness",
		LengthMinutes: 3,
	})
	require.NoError(t, err)

	// Пол и интересы переводятся, сырые английские значения не утекают в промт
	assert.NotContains(t, text, "female")
	assert.Contains(t, text, TranslateGender("female", "ru"))
	assert.Contains(t, text, TranslateInterests([]string{"dinosaurs"}, "ru")[0])
	assert.Contains(t, text, TranslateMoral("kindness", "ru"))
}

func TestBuild_Determinism(t *testing.T) {
	provider := loadTestProvider(t)
	builder := NewBuilder(provider)

	in := BuildInput{
		Subject:       miaSnapshot(),
		StoryType:     model.StoryTypeSubject,
		Language:      "en",
		Moral:         "honesty",
		LengthMinutes: 7,
	}
	first, err := builder.Build(in)
	require.NoError(t, err)
	second, err := builder.Build(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuild_ContinuationUsesSummary(t *testing.T) {
	provider := loadTestProvider(t)
	builder := NewBuilder(provider)

	text, err := builder.Build(BuildInput{
		Subject:       miaSnapshot(),
		StoryType:     model.StoryTypeSubject,
		Language:      "en",
		Moral:         "kindness",
		LengthMinutes: 5,
		ParentSummary: "Mia befriended a lost triceratops.",
		ParentContent: "full parent text that should not be used",
	})
	require.NoError(t, err)

	assert.Contains(t, text, "Mia befriended a lost triceratops.")
	assert.NotContains(t, text, "full parent text that should not be used")
	assert.Contains(t, text, "Continue the narrative")
}

func TestBuild_ContinuationTruncatesExcerpt(t *testing.T) {
	provider := loadTestProvider(t)
	builder := NewBuilder(provider)

	longParent := strings.Repeat("я", maxParentExcerptRunes+500)
	text, err := builder.Build(BuildInput{
		Subject:       miaSnapshot(),
		StoryType:     model.StoryTypeSubject,
		Language:      "en",
		Moral:         "kindness",
		LengthMinutes: 5,
		ParentContent: longParent,
	})
	require.NoError(t, err)

	assert.NotContains(t, text, longParent)
	assert.Contains(t, text, strings.Repeat("я", maxParentExcerptRunes))
}

func TestGetTemplate_UnknownPair(t *testing.T) {
	provider := loadTestProvider(t)

	_, err := provider.GetTemplate(model.StoryTypeSubject, "fr")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrTemplateNotFound)

	// Фолбэка на другой язык нет
	_, err = provider.GetTemplate("unknown", "en")
	assert.ErrorIs(t, err, model.ErrTemplateNotFound)
}

func TestLanguages_SortedLoadedLanguages(t *testing.T) {
	provider := loadTestProvider(t)

	assert.Equal(t, []string{"en", "ru"}, provider.Languages())
}
