package tts

import "context"

// Descriptor описывает возможности провайдера озвучки.
// Регистрируется один раз при старте процесса.
type Descriptor struct {
	Name              string   `json:"name"`
	DisplayName       string   `json:"display_name"`
	SupportsStreaming bool     `json:"supports_streaming"`
	MaxTextLength     int      `json:"max_text_length"` // в рунах, 0 = без ограничения
	OutputFormats     []string `json:"output_formats"`
	Languages         []string `json:"languages"`
}

// SupportsLanguage проверяет поддержку кода языка. Пустой список означает
// поддержку любых языков.
func (d Descriptor) SupportsLanguage(language string) bool {
	if len(d.Languages) == 0 {
		return true
	}
	for _, l := range d.Languages {
		if l == language {
			return true
		}
	}
	return false
}

// SynthesisOptions - параметры синтеза речи. Нулевые значения означают
// дефолты провайдера.
type SynthesisOptions struct {
	Voice string
	Speed float64
}

// NarrationResult - итог попытки озвучки. Ephemeral-значение: сразу
// передается в ArtifactPublisher или отбрасывается, никогда не персистится.
type NarrationResult struct {
	Success  bool
	Audio    []byte
	Provider string
	Format   string
	Meta     map[string]string
	Error    string
}

// VoiceProvider - интерфейс адаптера вендора озвучки. Реестр хранит
// только значения этого интерфейса, конкретные типы вендоров наружу
// не выходят.
type VoiceProvider interface {
	// Metadata возвращает дескриптор возможностей провайдера.
	Metadata() Descriptor
	// ValidateConfiguration - дешевая проверка без побочных эффектов
	// (например, наличие учетных данных). Вызывается до каждого выбора
	// провайдера: зарегистрированный, но не настроенный адаптер не
	// должен быть выбран.
	ValidateConfiguration() error
	// GenerateAudio синтезирует аудио для текста. Возвращает байты аудио
	// и метаданные провайдера (голос, модель и т.п.).
	GenerateAudio(ctx context.Context, text string, language string, opts SynthesisOptions) ([]byte, map[string]string, error)
}
