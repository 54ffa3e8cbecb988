package model

// ProfileKind - вид профиля: ребенок-слушатель или герой истории.
type ProfileKind string

const (
	ProfileKindChild ProfileKind = "child"
	ProfileKindHero  ProfileKind = "hero"
)

// ProfileSnapshot - неизменяемый снимок профиля на момент генерации.
// Дедупликация идет по полному совпадению атрибутов, включая интересы.
type ProfileSnapshot struct {
	ID          string      `db:"id" json:"id"`
	Kind        ProfileKind `db:"kind" json:"kind"`
	Name        string      `db:"name" json:"name"`
	AgeCategory string      `db:"age_category" json:"age_category"`
	Gender      string      `db:"gender" json:"gender"`
	Interests   []string    `db:"interests" json:"interests"`
}

// ProfileAttrs - атрибуты профиля из входящего запроса, до дедупликации.
type ProfileAttrs struct {
	Kind        ProfileKind `json:"kind"`
	Name        string      `json:"name"`
	AgeCategory string      `json:"age_category"`
	Gender      string      `json:"gender"`
	Interests   []string    `json:"interests"`
}
