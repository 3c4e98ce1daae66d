package color

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannels(t *testing.T) {
	c := FromChannels(0x12, 0x34, 0x56)
	assert.Equal(t, RGB(0x123456), c)
	assert.Equal(t, uint8(0x12), c.R())
	assert.Equal(t, uint8(0x34), c.G())
	assert.Equal(t, uint8(0x56), c.B())

	n := c.NRGBA(128)
	assert.Equal(t, uint8(0x12), n.R)
	assert.Equal(t, uint8(128), n.A)
}

func TestMix(t *testing.T) {
	assert.Equal(t, Black, Mix(Black, White, 0))
	assert.Equal(t, White, Mix(Black, White, 1))
	assert.Equal(t, White, Mix(Black, White, 2))
	assert.Equal(t, RGB(0x7F7F7F), Mix(Black, White, 0.5))
}

func TestScale(t *testing.T) {
	assert.Equal(t, RGB(0xFFFFFF), Scale(0xF0F0F0, 1.5))
	assert.Equal(t, RGB(0x404040), Scale(0x808080, 0.5))
	assert.Equal(t, Black, Scale(0x808080, -1))
}

func TestHex(t *testing.T) {
	assert.Equal(t, "#0000ff", Blue.Hex())

	c, err := ParseHex("#DCBB65")
	require.NoError(t, err)
	assert.Equal(t, RGB(0xDCBB65), c)

	c, err = ParseHex("fff")
	require.NoError(t, err)
	assert.Equal(t, White, c)

	_, err = ParseHex("#nothex")
	assert.Error(t, err)
}

func TestJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		C RGB `json:"c"`
	}{C: 0x00FF00})
	require.NoError(t, err)
	assert.JSONEq(t, `{"c":"#00ff00"}`, string(data))

	var out struct {
		C RGB `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"c":"#102030"}`), &out))
	assert.Equal(t, RGB(0x102030), out.C)
}
