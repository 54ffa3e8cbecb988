package tts

import (
	"log"
	"sync"
)

// Registry - потокобезопасный реестр провайдеров озвучки.
// Заполняется один раз при старте процесса из конфигурации; default и
// порядок фолбэка меняются только административными вызовами, никогда
// из обработчиков запросов.
type Registry struct {
	mu            sync.RWMutex
	providers     map[string]VoiceProvider
	order         []string // порядок регистрации
	defaultName   string
	fallbackOrder []string
}

// NewRegistry создает пустой реестр провайдеров.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]VoiceProvider),
	}
}

// Register добавляет провайдера в реестр. Повторная регистрация того же
// имени заменяет адаптер, сохраняя исходную позицию в порядке регистрации.
func (r *Registry) Register(p VoiceProvider) {
	name := p.Metadata().Name
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[name]; !exists {
		r.order = append(r.order, name)
	} else {
		log.Printf("Провайдер озвучки '%s' перерегистрирован", name)
	}
	r.providers[name] = p
}

// GetProvider возвращает провайдера по имени или nil, если имя неизвестно.
// Никогда не паникует: отсутствие провайдера обрабатывает вызывающий.
func (r *Registry) GetProvider(name string) VoiceProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[name]
}

// SetDefault назначает провайдера по умолчанию.
func (r *Registry) SetDefault(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultName = name
}

// SetFallbackOrder задает упорядоченный список фолбэк-провайдеров.
func (r *Registry) SetFallbackOrder(names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbackOrder = append([]string(nil), names...)
}

// Names возвращает имена провайдеров в порядке регистрации.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// ResolveChain строит упорядоченную цепочку валидных провайдеров для
// запроса: (1) явно запрошенный, (2) default, (3) фолбэк-список по
// порядку, (4) остальные зарегистрированные в порядке регистрации.
// Каждый провайдер входит в цепочку не более одного раза; провайдеры,
// не прошедшие ValidateConfiguration, пропускаются.
func (r *Registry) ResolveChain(requested string) []VoiceProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := make([]string, 0, 2+len(r.fallbackOrder)+len(r.order))
	if requested != "" {
		candidates = append(candidates, requested)
	}
	if r.defaultName != "" {
		candidates = append(candidates, r.defaultName)
	}
	candidates = append(candidates, r.fallbackOrder...)
	candidates = append(candidates, r.order...)

	seen := make(map[string]bool, len(candidates))
	var chain []VoiceProvider
	for _, name := range candidates {
		if seen[name] {
			continue
		}
		seen[name] = true
		p, ok := r.providers[name]
		if !ok {
			continue
		}
		if err := p.ValidateConfiguration(); err != nil {
			log.Printf("Провайдер озвучки '%s' пропущен: некорректная конфигурация: %v", name, err)
			continue
		}
		chain = append(chain, p)
	}
	return chain
}

// GetProviderWithFallback возвращает первого валидного провайдера по
// алгоритму ResolveChain или nil, если ни один провайдер не валиден.
func (r *Registry) GetProviderWithFallback(requested string) VoiceProvider {
	chain := r.ResolveChain(requested)
	if len(chain) == 0 {
		return nil
	}
	return chain[0]
}

// Reset очищает реестр. Используется в тестах.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = make(map[string]VoiceProvider)
	r.order = nil
	r.defaultName = ""
	r.fallbackOrder = nil
}
