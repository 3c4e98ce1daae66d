package tilestore

import (
	"context"
	"image"
	stdcolor "image/color"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/annel0/blockmap/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTile() *image.RGBA {
	img := Blank(16)
	img.SetRGBA(3, 4, stdcolor.RGBA{R: 10, G: 20, B: 30, A: 255})
	return img
}

func TestKey(t *testing.T) {
	assert.Equal(t, "0_0.png", Key(vec.RegionCoord{}))
	assert.Equal(t, "-3_12.png", Key(vec.RegionCoord{X: -3, Z: 12}))

	r, err := ParseKey("-3_12.png")
	require.NoError(t, err)
	assert.Equal(t, vec.RegionCoord{X: -3, Z: 12}, r)

	for _, bad := range []string{"3_4.jpg", "34.png", "a_1.png", "1_b.png"} {
		_, err := ParseKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestEncodeDecode(t *testing.T) {
	data, err := Encode(testTile())
	require.NoError(t, err)

	img, err := Decode(data)
	require.NoError(t, err)
	r, g, b, a := img.At(3, 4).RGBA()
	assert.Equal(t, []uint32{10, 20, 30, 255}, []uint32{r >> 8, g >> 8, b >> 8, a >> 8})
	_, _, _, a = img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0), a)
}

// exerciseStore общий сценарий для всех реализаций Store
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	region := vec.RegionCoord{X: -1, Z: 2}

	_, err := s.Load(ctx, region)
	assert.ErrorIs(t, err, ErrTileNotFound)

	require.NoError(t, s.Save(ctx, region, testTile()))
	data, err := s.Load(ctx, region)
	require.NoError(t, err)
	img, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())

	// Перезапись
	require.NoError(t, s.Save(ctx, region, Blank(8)))
	data, err = s.Load(ctx, region)
	require.NoError(t, err)
	img, err = Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())

	require.NoError(t, s.Delete(ctx, region))
	require.NoError(t, s.Delete(ctx, region), "повторное удаление не ошибка")
	_, err = s.Load(ctx, region)
	assert.ErrorIs(t, err, ErrTileNotFound)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	exerciseStore(t, s)
	assert.Equal(t, 2, s.Saves(vec.RegionCoord{X: -1, Z: 2}))
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tiles")
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	exerciseStore(t, s)

	require.NoError(t, s.Save(context.Background(), vec.RegionCoord{X: 5, Z: -6}, testTile()))
	_, err = os.Stat(filepath.Join(dir, "5_-6.png"))
	assert.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "временные файлы не остаются")
}

func TestBadgerStore(t *testing.T) {
	s, err := NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)

	ctx := context.Background()
	require.NoError(t, s.Save(ctx, vec.RegionCoord{X: 1, Z: 1}, testTile()))
	require.NoError(t, s.Save(ctx, vec.RegionCoord{X: -2, Z: 0}, testTile()))

	regions, err := s.Regions()
	require.NoError(t, err)
	sort.Slice(regions, func(i, j int) bool { return regions[i].X < regions[j].X })
	assert.Equal(t, []vec.RegionCoord{{X: -2, Z: 0}, {X: 1, Z: 1}}, regions)

	require.NoError(t, s.Close())
	assert.Error(t, s.Save(ctx, vec.RegionCoord{}, testTile()), "закрытое хранилище")
	assert.NoError(t, s.Close())
}
