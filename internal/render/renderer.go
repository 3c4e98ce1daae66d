package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/annel0/blockmap/internal/color"
	"github.com/annel0/blockmap/internal/logging"
	"github.com/annel0/blockmap/internal/vec"
	"github.com/annel0/blockmap/internal/world"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultChunksPerRegion тайл 32x32 чанка = 512x512 пикселей
const DefaultChunksPerRegion = 32

// Config параметры рендера
type Config struct {
	ChunksPerRegion int  // чанков на сторону тайла
	ScanTop         int  // верхняя высота сканирования; <0 - верх мира
	ScanBottom      int  // нижняя высота сканирования
	Shading         bool // рельефное затенение
}

// DefaultConfig конфигурация по умолчанию
func DefaultConfig() Config {
	return Config{
		ChunksPerRegion: DefaultChunksPerRegion,
		ScanTop:         -1,
		ScanBottom:      0,
		Shading:         true,
	}
}

// Renderer превращает чанки мира в растровые тайлы. Состояния между вызовами не хранит,
// поэтому один Renderer используют все воркеры.
type Renderer struct {
	cfg      Config
	source   world.Source
	resolver *color.Resolver
	tracer   trace.Tracer
	logger   *logging.Logger
}

// NewRenderer создаёт рендерер
func NewRenderer(source world.Source, resolver *color.Resolver, cfg Config) *Renderer {
	if cfg.ChunksPerRegion <= 0 {
		cfg.ChunksPerRegion = DefaultChunksPerRegion
	}
	if cfg.ScanBottom < 0 {
		cfg.ScanBottom = 0
	}
	return &Renderer{
		cfg:      cfg,
		source:   source,
		resolver: resolver,
		tracer:   otel.Tracer("blockmap/render"),
		logger:   logging.Default(),
	}
}

// SetLogger заменяет логгер рендерера
func (r *Renderer) SetLogger(l *logging.Logger) {
	r.logger = l
}

// Config возвращает используемые параметры
func (r *Renderer) Config() Config {
	return r.cfg
}

// RegionSize размер стороны тайла в пикселях
func (r *Renderer) RegionSize() int {
	return r.cfg.ChunksPerRegion * vec.ChunkSize
}

// Render рисует тайл региона, 1 пиксель на блок. Отсутствующие чанки остаются
// прозрачными; если не загружен ни один чанк региона, возвращается ошибка,
// оборачивающая world.ErrChunkUnavailable.
func (r *Renderer) Render(ctx context.Context, region vec.RegionCoord) (*image.RGBA, error) {
	ctx, span := r.tracer.Start(ctx, "render.tile", trace.WithAttributes(
		attribute.Int("region.x", region.X),
		attribute.Int("region.z", region.Z),
	))
	defer span.End()

	start := time.Now()
	n := r.cfg.ChunksPerRegion
	size := r.RegionSize()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	first := region.FirstChunk(n)

	// Высоты нижней строки блоков у чанков предыдущего ряда; nil - чанк отсутствует
	prevRow := make([][]int, n)
	rendered := 0

	for dz := 0; dz < n; dz++ {
		row := make([][]int, n)
		for dx := 0; dx < n; dx++ {
			if err := ctx.Err(); err != nil {
				span.SetStatus(codes.Error, err.Error())
				return nil, &TileError{Region: region, Err: err}
			}

			coord := vec.ChunkCoord{X: first.X + dx, Z: first.Z + dz}
			chunk, err := r.source.Chunk(ctx, coord)
			if err != nil {
				if errors.Is(err, world.ErrChunkUnavailable) {
					continue
				}
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, &TileError{Region: region, Err: err}
			}

			north := prevRow[dx]
			if dz == 0 {
				north = r.northEdge(ctx, coord)
			}
			row[dx] = r.drawChunk(img, chunk, dx*vec.ChunkSize, dz*vec.ChunkSize, north)
			rendered++
		}
		prevRow = row
	}

	span.SetAttributes(attribute.Int("chunks.rendered", rendered))
	if rendered == 0 {
		err := fmt.Errorf("no chunks loaded in region: %w", world.ErrChunkUnavailable)
		span.SetStatus(codes.Error, err.Error())
		return nil, &TileError{Region: region, Err: err}
	}

	logging.LogTileRender(region.X, region.Z, rendered, time.Since(start))
	return img, nil
}

// RenderChunk рисует один чанк (16x16). Отсутствующий чанк - ошибка.
func (r *Renderer) RenderChunk(ctx context.Context, coord vec.ChunkCoord) (*image.RGBA, error) {
	chunk, err := r.source.Chunk(ctx, coord)
	if err != nil {
		return nil, fmt.Errorf("render chunk %s: %w", coord, err)
	}
	img := image.NewRGBA(image.Rect(0, 0, vec.ChunkSize, vec.ChunkSize))
	r.drawChunk(img, chunk, 0, 0, r.northEdge(ctx, coord))
	return img, nil
}

// northEdge высоты южной строки чанка с севера; nil если он недоступен
func (r *Renderer) northEdge(ctx context.Context, coord vec.ChunkCoord) []int {
	if !r.cfg.Shading {
		return nil
	}
	north, err := r.source.Chunk(ctx, coord.North())
	if err != nil {
		r.logger.Trace("north neighbour %s unavailable: %v", coord.North(), err)
		return nil
	}
	edge := make([]int, vec.ChunkSize)
	for x := 0; x < vec.ChunkSize; x++ {
		edge[x] = r.surfaceHeight(north, x, vec.ChunkSize-1)
	}
	return edge
}

// drawChunk рисует чанк в img со смещением (ox, oz) и возвращает высоты его южной строки.
func (r *Renderer) drawChunk(img *image.RGBA, c *world.Chunk, ox, oz int, north []int) []int {
	prev := north
	for z := 0; z < vec.ChunkSize; z++ {
		cur := make([]int, vec.ChunkSize)
		for x := 0; x < vec.ChunkSize; x++ {
			col := r.scanColumn(c, x, z)
			cur[x] = col.height
			if col.empty() {
				continue
			}

			rgb := col.color()
			if r.cfg.Shading && prev != nil {
				rgb = color.Scale(rgb, shade(col.height, prev[x]))
			}
			img.Set(ox+x, oz+z, rgb.NRGBA(clampByte(col.alpha*255)))
		}
		prev = cur
	}
	return prev
}
