// Package overlay собирает слои маркеров мира для веб-клиента: пользовательские
// наборы маркеров и слой игроков.
package overlay

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/annel0/blockmap/internal/controls"
	"github.com/annel0/blockmap/internal/marker"
	"github.com/annel0/blockmap/internal/storage"
)

// PlayersLayerKey ключ слоя игроков
const PlayersLayerKey = "players"

// Manager хранит слои маркеров по мирам
type Manager struct {
	players  storage.PlayerRepo // может быть nil: слой игроков не строится
	controls *controls.Registry
	style    marker.Options
	radius   float64

	mu     sync.RWMutex
	layers map[string]map[string]*marker.Layer
}

// NewManager создаёт менеджер. players может быть nil.
func NewManager(players storage.PlayerRepo, reg *controls.Registry) *Manager {
	if reg == nil {
		reg = controls.NewRegistry()
	}
	return &Manager{
		players:  players,
		controls: reg,
		style: marker.Builder().
			StrokeColor(0xFFFFFF).
			StrokeWeight(2).
			Fill(true).
			FillColor(0x3388FF).
			FillOpacity(0.8).
			Build(),
		radius: 2,
		layers: make(map[string]map[string]*marker.Layer),
	}
}

// SetPlayerStyle стиль маркеров игроков
func (m *Manager) SetPlayerStyle(o marker.Options, radius float64) {
	m.mu.Lock()
	m.style = o
	if radius > 0 {
		m.radius = radius
	}
	m.mu.Unlock()
}

// AddLayer регистрирует слой в мире, заменяя слой с тем же ключом
func (m *Manager) AddLayer(world string, l *marker.Layer) error {
	if l.Key() == PlayersLayerKey {
		return fmt.Errorf("layer key %q is reserved", PlayersLayerKey)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byKey, ok := m.layers[world]
	if !ok {
		byKey = make(map[string]*marker.Layer)
		m.layers[world] = byKey
	}
	byKey[l.Key()] = l
	return nil
}

// Layer возвращает пользовательский слой
func (m *Manager) Layer(world, key string) (*marker.Layer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.layers[world][key]
	return l, ok
}

// RemoveLayer удаляет слой
func (m *Manager) RemoveLayer(world, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.layers[world][key]; !ok {
		return false
	}
	delete(m.layers[world], key)
	return true
}

// sortedLayers слои мира по ключу; порядок в клиенте задаёт order слоя
func (m *Manager) sortedLayers(world string) []*marker.Layer {
	m.mu.RLock()
	out := make([]*marker.Layer, 0, len(m.layers[world]))
	for _, l := range m.layers[world] {
		out = append(out, l)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// PlayersLayer строит слой игроков мира по последним известным позициям
func (m *Manager) PlayersLayer(ctx context.Context, world string) (*marker.Layer, error) {
	l := marker.NewLayer(PlayersLayerKey, "Players").SetPriority(-1, 100)
	if m.players == nil {
		return l, nil
	}
	players, err := m.players.List(ctx, world)
	if err != nil {
		return nil, fmt.Errorf("list players of %s: %w", world, err)
	}

	m.mu.RLock()
	style, radius := m.style, m.radius
	m.mu.RUnlock()

	for _, p := range players {
		opts := style.AsBuilder().
			HoverTooltip(p.Name).
			ClickTooltip(fmt.Sprintf("%s (%.0f, %.0f)", p.Name, p.Pos.X, p.Pos.Z)).
			Build()
		if err := l.Add(p.ID, marker.NewCircle(p.Pos, radius).WithOptions(opts)); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Export JSON-массив слоёв мира. Скрытые оператором игроки не экспортируются.
func (m *Manager) Export(ctx context.Context, world string) ([]byte, error) {
	hidden := m.controls.World(world)

	out := []json.RawMessage{}
	players, err := m.PlayersLayer(ctx, world)
	if err != nil {
		return nil, err
	}
	raw, err := players.Export(hidden.IsHidden)
	if err != nil {
		return nil, err
	}
	out = append(out, raw)

	for _, l := range m.sortedLayers(world) {
		raw, err := l.Export(nil)
		if err != nil {
			return nil, fmt.Errorf("export layer %q: %w", l.Key(), err)
		}
		out = append(out, raw)
	}
	return json.Marshal(out)
}
