// Package controls операторские переключатели мира: пауза рендера и скрытые игроки.
package controls

import (
	"sort"
	"sync"
)

// RenderController то, что планировщик рендера проверяет перед каждой выдачей работы
type RenderController interface {
	RendersPaused() bool
	// Changed закрывается при следующем изменении состояния паузы
	Changed() <-chan struct{}
}

// World переключатели одного мира. Безопасен для конкурентного использования.
type World struct {
	name string

	mu      sync.RWMutex
	paused  bool
	changed chan struct{}
	hidden  map[string]struct{}
}

// NewWorld создаёт контроллер мира (рендер не на паузе, скрытых игроков нет)
func NewWorld(name string) *World {
	return &World{
		name:    name,
		changed: make(chan struct{}),
		hidden:  make(map[string]struct{}),
	}
}

func (w *World) Name() string { return w.name }

// PauseRenders ставит или снимает паузу рендера
func (w *World) PauseRenders(paused bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.paused == paused {
		return
	}
	w.paused = paused
	close(w.changed)
	w.changed = make(chan struct{})
}

// TogglePause переключает паузу и возвращает новое состояние
func (w *World) TogglePause() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.paused = !w.paused
	close(w.changed)
	w.changed = make(chan struct{})
	return w.paused
}

// RendersPaused реализует RenderController
func (w *World) RendersPaused() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.paused
}

// Changed реализует RenderController
func (w *World) Changed() <-chan struct{} {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.changed
}

// Hide скрывает игрока с карты; false если он уже скрыт
func (w *World) Hide(playerID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.hidden[playerID]; ok {
		return false
	}
	w.hidden[playerID] = struct{}{}
	return true
}

// Show возвращает игрока на карту; false если он не был скрыт
func (w *World) Show(playerID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.hidden[playerID]; !ok {
		return false
	}
	delete(w.hidden, playerID)
	return true
}

// IsHidden проверяет, скрыт ли игрок
func (w *World) IsHidden(playerID string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.hidden[playerID]
	return ok
}

// Hidden отсортированный список скрытых игроков
func (w *World) Hidden() []string {
	w.mu.RLock()
	out := make([]string, 0, len(w.hidden))
	for id := range w.hidden {
		out = append(out, id)
	}
	w.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Registry контроллеры всех миров
type Registry struct {
	mu     sync.RWMutex
	worlds map[string]*World
}

// NewRegistry создаёт пустой реестр
func NewRegistry() *Registry {
	return &Registry{worlds: make(map[string]*World)}
}

// World возвращает контроллер мира, создавая его при первом обращении
func (r *Registry) World(name string) *World {
	r.mu.RLock()
	w, ok := r.worlds[name]
	r.mu.RUnlock()
	if ok {
		return w
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.worlds[name]; ok {
		return w
	}
	w = NewWorld(name)
	r.worlds[name] = w
	return w
}

// Lookup возвращает контроллер только если мир уже зарегистрирован
func (r *Registry) Lookup(name string) (*World, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.worlds[name]
	return w, ok
}

// Names имена зарегистрированных миров по алфавиту
func (r *Registry) Names() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.worlds))
	for name := range r.worlds {
		out = append(out, name)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}
