package marker

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Layer группа маркеров с общей подписью в списке слоёв клиента.
// Безопасен для конкурентного использования.
type Layer struct {
	key           string
	label         string
	priority      int
	zIndex        int
	showControls  bool
	defaultHidden bool

	mu      sync.RWMutex
	markers map[string]Marker
}

// NewLayer создаёт пустой слой
func NewLayer(key, label string) *Layer {
	return &Layer{
		key:          key,
		label:        label,
		showControls: true,
		markers:      make(map[string]Marker),
	}
}

func (l *Layer) Key() string   { return l.key }
func (l *Layer) Label() string { return l.label }

// SetPriority порядок в списке слоёв и z-index на карте
func (l *Layer) SetPriority(priority, zIndex int) *Layer {
	l.priority = priority
	l.zIndex = zIndex
	return l
}

// SetControls управляет видимостью переключателя слоя и начальным состоянием
func (l *Layer) SetControls(show, defaultHidden bool) *Layer {
	l.showControls = show
	l.defaultHidden = defaultHidden
	return l
}

// Add добавляет или заменяет маркер. Некорректная геометрия отклоняется.
func (l *Layer) Add(id string, m Marker) error {
	if id == "" {
		return fmt.Errorf("marker id is empty")
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("marker %q: %w", id, err)
	}
	l.mu.Lock()
	l.markers[id] = m
	l.mu.Unlock()
	return nil
}

// Remove удаляет маркер; false если его не было
func (l *Layer) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.markers[id]; !ok {
		return false
	}
	delete(l.markers, id)
	return true
}

// Get возвращает маркер по id
func (l *Layer) Get(id string) (Marker, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.markers[id]
	return m, ok
}

// Len количество маркеров
func (l *Layer) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.markers)
}

// IDs отсортированный список id
func (l *Layer) IDs() []string {
	l.mu.RLock()
	ids := make([]string, 0, len(l.markers))
	for id := range l.markers {
		ids = append(ids, id)
	}
	l.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Clear удаляет все маркеры
func (l *Layer) Clear() {
	l.mu.Lock()
	l.markers = make(map[string]Marker)
	l.mu.Unlock()
}

type layerJSON struct {
	Key           string             `json:"key"`
	Name          string             `json:"name"`
	Priority      int                `json:"order"`
	ZIndex        int                `json:"z_index"`
	Control       bool               `json:"control"`
	DefaultHidden bool               `json:"hide"`
	Markers       []json.RawMessage  `json:"markers"`
}

// Export сериализует слой для клиента. Маркеры, для которых skip вернёт true, не попадают
// в вывод (например, скрытые игроки). skip может быть nil.
func (l *Layer) Export(skip func(id string) bool) ([]byte, error) {
	out := layerJSON{
		Key:           l.key,
		Name:          l.label,
		Priority:      l.priority,
		ZIndex:        l.zIndex,
		Control:       l.showControls,
		DefaultHidden: l.defaultHidden,
		Markers:       []json.RawMessage{},
	}

	for _, id := range l.IDs() {
		if skip != nil && skip(id) {
			continue
		}
		m, ok := l.Get(id)
		if !ok {
			continue
		}
		raw, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("marshal marker %q: %w", id, err)
		}
		// id добавляется в объект маркера первым полем
		withID, err := prependID(id, raw)
		if err != nil {
			return nil, err
		}
		out.Markers = append(out.Markers, withID)
	}
	return json.Marshal(out)
}

// MarshalJSON экспорт без фильтра
func (l *Layer) MarshalJSON() ([]byte, error) {
	return l.Export(nil)
}

func prependID(id string, raw []byte) (json.RawMessage, error) {
	if len(raw) < 2 || raw[0] != '{' {
		return nil, fmt.Errorf("marker %q: expected JSON object", id)
	}
	idJSON, err := json.Marshal(id)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, len(raw)+len(idJSON)+8)
	buf = append(buf, `{"id":`...)
	buf = append(buf, idJSON...)
	if len(raw) > 2 {
		buf = append(buf, ',')
	}
	buf = append(buf, raw[1:]...)
	return buf, nil
}
