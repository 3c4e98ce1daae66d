package storage

import (
	"context"
	"os"
	"testing"

	"github.com/annel0/blockmap/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exercisePlayerRepo(t *testing.T, repo PlayerRepo) {
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, PlayerPosition{ID: "p1", Name: "bob", World: "overworld", Pos: vec.Pt(10, -4)}))
		p, found, err := repo.Load(ctx, "p1")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "bob", p.Name)
		assert.Equal(t, vec.Pt(10, -4), p.Pos)
	})

	t.Run("Load Unknown", func(t *testing.T) {
		_, found, err := repo.Load(ctx, "nobody")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("List By World", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, PlayerPosition{ID: "p2", Name: "alice", World: "overworld", Pos: vec.Pt(1, 1)}))
		require.NoError(t, repo.Save(ctx, PlayerPosition{ID: "p3", Name: "carol", World: "nether", Pos: vec.Pt(2, 2)}))

		ps, err := repo.List(ctx, "overworld")
		require.NoError(t, err)
		require.Len(t, ps, 2)
		assert.Equal(t, "alice", ps[0].Name)
		assert.Equal(t, "bob", ps[1].Name)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "p3"))
		assert.Error(t, repo.Delete(ctx, "p3"))
	})

	t.Run("Invalid ID", func(t *testing.T) {
		assert.Error(t, repo.Save(ctx, PlayerPosition{Name: "ghost"}))
	})
}

func TestMemoryPlayerRepo(t *testing.T) {
	exercisePlayerRepo(t, NewMemoryPlayerRepo())
}

// Требует MariaDB: BLOCKMAP_TEST_MARIADB_DSN="user:pass@tcp(localhost:3306)/blockmap_test?parseTime=true"
func TestMariaPlayerRepo(t *testing.T) {
	dsn := os.Getenv("BLOCKMAP_TEST_MARIADB_DSN")
	if dsn == "" {
		t.Skip("BLOCKMAP_TEST_MARIADB_DSN not set")
	}
	repo, err := NewMariaPlayerRepo(dsn)
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	for _, id := range []string{"p1", "p2", "p3"} {
		_ = repo.Delete(ctx, id)
	}
	exercisePlayerRepo(t, repo)
}
