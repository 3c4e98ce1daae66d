package storage

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/annel0/blockmap/internal/vec"
	"github.com/annel0/blockmap/internal/world"
	"github.com/annel0/blockmap/internal/world/block"
	"github.com/klauspost/compress/zstd"
)

// Формат записи чанка:
//
//	magic "BMC1" | x int32 | z int32 | height uint16 | version uint64 | zstd(voxels)
//
// voxels: на каждый воксел uint16 ID + uint8 стадия роста, порядок индексов чанка.
const (
	chunkMagic      = "BMC1"
	chunkHeaderSize = 4 + 4 + 4 + 2 + 8
	voxelSize       = 3
)

// ErrCorruptChunk запись чанка не читается
var ErrCorruptChunk = errors.New("corrupt chunk record")

// Codec сериализует чанки. Безопасен для конкурентного использования.
type Codec struct {
	compressor   *zstd.Encoder
	decompressor *zstd.Decoder
}

// NewCodec создаёт кодек со сжатием zstd
func NewCodec() (*Codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Codec{compressor: enc, decompressor: dec}, nil
}

// Encode сериализует чанк
func (c *Codec) Encode(ch *world.Chunk) []byte {
	voxels := ch.Voxels()
	raw := make([]byte, len(voxels)*voxelSize)
	for i, v := range voxels {
		off := i * voxelSize
		binary.LittleEndian.PutUint16(raw[off:], uint16(v.ID))
		raw[off+2] = uint8(v.State.Age)
	}

	out := make([]byte, chunkHeaderSize, chunkHeaderSize+len(raw)/4)
	copy(out, chunkMagic)
	binary.LittleEndian.PutUint32(out[4:], uint32(int32(ch.Coord.X)))
	binary.LittleEndian.PutUint32(out[8:], uint32(int32(ch.Coord.Z)))
	binary.LittleEndian.PutUint16(out[12:], uint16(ch.Height))
	binary.LittleEndian.PutUint64(out[14:], ch.Version)
	return c.compressor.EncodeAll(raw, out)
}

// Decode восстанавливает чанк из записи
func (c *Codec) Decode(data []byte) (*world.Chunk, error) {
	if len(data) < chunkHeaderSize || string(data[:4]) != chunkMagic {
		return nil, fmt.Errorf("%w: bad header", ErrCorruptChunk)
	}
	coord := vec.ChunkCoord{
		X: int(int32(binary.LittleEndian.Uint32(data[4:]))),
		Z: int(int32(binary.LittleEndian.Uint32(data[8:]))),
	}
	height := int(binary.LittleEndian.Uint16(data[12:]))
	version := binary.LittleEndian.Uint64(data[14:])

	raw, err := c.decompressor.DecodeAll(data[chunkHeaderSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptChunk, err)
	}

	ch := world.NewChunk(coord, height)
	voxels := make([]world.Voxel, len(raw)/voxelSize)
	for i := range voxels {
		off := i * voxelSize
		voxels[i] = world.Voxel{
			ID:    block.ID(binary.LittleEndian.Uint16(raw[off:])),
			State: block.State{Age: int(raw[off+2])},
		}
	}
	if len(raw)%voxelSize != 0 || !ch.LoadVoxels(voxels) {
		return nil, fmt.Errorf("%w: %d voxel bytes for height %d", ErrCorruptChunk, len(raw), height)
	}
	ch.Version = version
	return ch, nil
}

// Close освобождает ресурсы zstd
func (c *Codec) Close() {
	c.compressor.Close()
	c.decompressor.Close()
}
