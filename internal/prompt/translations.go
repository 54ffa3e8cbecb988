package prompt

import "strings"

// WordsPerMinute - скорость чтения вслух, используется для расчета целевого
// объема истории из запрошенной длительности в минутах.
const WordsPerMinute = 150

// Словари перевода полей профиля. Возраст и пол никогда не передаются в
// промт сырыми значениями: возраст - только категорией, пол - переведенным
// словом на целевом языке. Неизвестные значения возвращаются как есть.

var genderTranslations = map[string]map[string]string{
	"en": {
		"male":   "boy",
		"female": "girl",
	},
	"ru": {
		"male":   "мальчик",
		"female": "девочка",
	},
}

var interestTranslations = map[string]map[string]string{
	"ru": {
		"dinosaurs":  "динозавры",
		"space":      "космос",
		"princesses": "принцессы",
		"cars":       "машины",
		"animals":    "животные",
		"pirates":    "пираты",
		"robots":     "роботы",
		"football":   "футбол",
		"drawing":    "рисование",
		"magic":      "волшебство",
	},
}

var moralTranslations = map[string]map[string]string{
	"ru": {
		"kindness":   "доброта",
		"honesty":    "честность",
		"courage":    "смелость",
		"friendship": "дружба",
		"patience":   "терпение",
		"sharing":    "умение делиться",
	},
}

// Локализованные суффиксы возрастной категории: "5-7" -> "5-7 years old".
var ageCategorySuffix = map[string]string{
	"en": " years old",
	"ru": " лет",
}

// TranslateGender переводит пол на целевой язык. Пустой или неизвестный
// пол возвращается без изменений.
func TranslateGender(gender, language string) string {
	if byLang, ok := genderTranslations[language]; ok {
		if translated, ok := byLang[strings.ToLower(gender)]; ok {
			return translated
		}
	}
	return gender
}

// TranslateInterests переводит список интересов на целевой язык.
// Для неизвестных слов остается исходное значение, чтобы промт не терял данные.
func TranslateInterests(interests []string, language string) []string {
	byLang, ok := interestTranslations[language]
	if !ok {
		return interests
	}
	translated := make([]string, 0, len(interests))
	for _, interest := range interests {
		if tr, ok := byLang[strings.ToLower(interest)]; ok {
			translated = append(translated, tr)
		} else {
			translated = append(translated, interest)
		}
	}
	return translated
}

// TranslateMoral переводит тег морали на целевой язык.
func TranslateMoral(moral, language string) string {
	if byLang, ok := moralTranslations[language]; ok {
		if translated, ok := byLang[strings.ToLower(moral)]; ok {
			return translated
		}
	}
	return moral
}

// FormatAgeCategory форматирует возрастную категорию для промта.
func FormatAgeCategory(category, language string) string {
	suffix, ok := ageCategorySuffix[language]
	if !ok {
		return category
	}
	return category + suffix
}
