package marker

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/annel0/blockmap/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(x, z, size float64) []vec.Point {
	return []vec.Point{vec.Pt(x, z), vec.Pt(x+size, z), vec.Pt(x+size, z+size), vec.Pt(x, z+size)}
}

func TestPolygonDefensiveCopy(t *testing.T) {
	main := square(0, 0, 10)
	hole := square(2, 2, 2)
	p := NewPolygon(main, hole)

	main[0] = vec.Pt(-100, -100)
	hole[1] = vec.Pt(-100, -100)
	assert.Equal(t, vec.Pt(0, 0), p.MainPolygon()[0])
	assert.Equal(t, vec.Pt(4, 2), p.NegativeSpace()[0][1])

	// Изменение результата геттера тоже не влияет на полигон
	got := p.MainPolygon()
	got[2] = vec.Pt(1, 1)
	assert.Equal(t, vec.Pt(10, 10), p.MainPolygon()[2])
}

func TestPolygonEquality(t *testing.T) {
	h1, h2 := square(1, 1, 1), square(5, 5, 1)
	a := NewPolygon(square(0, 0, 10), h1, h2)
	b := NewPolygon(square(0, 0, 10), h1, h2)
	swapped := NewPolygon(square(0, 0, 10), h2, h1)
	styled := a.WithOptions(Builder().Fill(false).Build())

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(swapped), "порядок дыр важен")
	assert.False(t, a.Equal(styled), "стиль важен")
	assert.False(t, a.Equal(NewPolygon(square(0, 0, 9), h1, h2)))
	assert.True(t, styled.Equal(styled.WithOptions(styled.Options())))
}

func TestPolygonHash(t *testing.T) {
	h1, h2 := square(1, 1, 1), square(5, 5, 1)
	a := NewPolygon(square(0, 0, 10), h1, h2)
	b := NewPolygon(square(0, 0, 10), h1, h2)
	assert.Equal(t, a.Hash(), b.Hash())

	assert.NotEqual(t, a.Hash(), NewPolygon(square(0, 0, 10), h2, h1).Hash())
	assert.NotEqual(t, a.Hash(), NewPolygon(square(0, 0, 10), h1).Hash())
	assert.NotEqual(t, a.Hash(), a.WithOptions(Builder().Fill(false).Build()).Hash())
	assert.NotEqual(t, a.Hash(), NewPolygon(square(0, 0, 9), h1, h2).Hash())

	// Дыра не сливается с внешним контуром
	merged := NewPolygon(append(square(0, 0, 10), h1...), h2)
	assert.False(t, a.Equal(merged))
	assert.NotEqual(t, a.Hash(), merged.Hash())
}

func TestPolygonNoValidationOnConstruction(t *testing.T) {
	p := NewPolygon(nil)
	assert.Empty(t, p.MainPolygon())

	err := p.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGeometryMalformed))

	withEmptyHole := NewPolygon(square(0, 0, 4), []vec.Point{})
	assert.ErrorIs(t, withEmptyHole.Validate(), ErrGeometryMalformed)

	// Незамкнутый контур принимается как есть
	open := NewPolygon([]vec.Point{vec.Pt(0, 0), vec.Pt(1, 0)})
	assert.NoError(t, open.Validate())
}

func TestPolygonJSON(t *testing.T) {
	p := NewPolygon(square(0, 0, 1), square(0.25, 0.25, 0.5))
	data, err := json.Marshal(p)
	require.NoError(t, err)

	var out struct {
		Type    string                 `json:"type"`
		Points  []vec.Point            `json:"points"`
		Holes   [][]vec.Point          `json:"holes"`
		Options map[string]interface{} `json:"options"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, TypePolygon, out.Type)
	assert.Len(t, out.Points, 4)
	assert.Len(t, out.Holes, 1)
	assert.Equal(t, "evenodd", out.Options["fillRule"])
}
