package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryLookup(t *testing.T) {
	p, ok := Get(Water)
	assert.True(t, ok)
	assert.True(t, p.Translucent())
	assert.False(t, p.Transparent())

	p, ok = Get(Air)
	assert.True(t, ok)
	assert.True(t, p.Transparent())

	_, ok = Get(ID(9999))
	assert.False(t, ok)
	assert.False(t, IsValid(ID(9999)))
}

func TestByName(t *testing.T) {
	id, ok := ByName("wheat")
	assert.True(t, ok)
	assert.Equal(t, Wheat, id)

	_, ok = ByName("unobtainium")
	assert.False(t, ok)
}

func TestAllSorted(t *testing.T) {
	ids := All()
	assert.Equal(t, Air, ids[0])
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i])
	}
}
