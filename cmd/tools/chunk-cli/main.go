package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/annel0/blockmap/internal/eventbus"
	"github.com/annel0/blockmap/internal/iterator"
	"github.com/annel0/blockmap/internal/storage"
	"github.com/annel0/blockmap/internal/vec"
	"github.com/annel0/blockmap/internal/world"
)

const eventSource = "chunk-cli"

func main() {
	var (
		command  = flag.String("cmd", "seed", "Command: seed, touch, list")
		dataPath = flag.String("data", "data", "Badger data path")
		natsURL  = flag.String("nats", "", "NATS URL for chunk-modified events (empty: no events)")
		stream   = flag.String("stream", "BLOCKMAP", "JetStream stream name")
		worldID  = flag.String("world", "overworld", "World name in events")
		seed     = flag.Int64("seed", 1, "Generator seed")
		height   = flag.Int("height", 128, "World height")
		radius   = flag.Int("radius", 8, "Seed radius in chunks around (x, z)")
		cx       = flag.Int("x", 0, "Chunk X")
		cz       = flag.Int("z", 0, "Chunk Z")
		batch    = flag.Int("batch", 64, "Chunks per badger write batch")
	)
	flag.Parse()

	ctx := context.Background()

	var bus eventbus.EventBus
	if *natsURL != "" {
		jb, err := eventbus.NewJetStreamBus(eventbus.JetStreamConfig{URL: *natsURL, Stream: *stream, Retention: 24 * time.Hour})
		if err != nil {
			log.Fatalf("❌ Failed to connect to NATS: %v", err)
		}
		defer jb.Close()
		bus = jb
	}

	switch *command {
	case "seed":
		store := openStore(*dataPath)
		defer store.Close()
		if bus != nil {
			defer eventbus.Forward(store, bus, eventSource, *worldID)()
		}
		if err := seedWorld(ctx, store, *seed, *height, vec.ChunkCoord{X: *cx, Z: *cz}, *radius, *batch); err != nil {
			log.Fatalf("❌ Seed failed: %v", err)
		}

	case "touch":
		if bus == nil {
			log.Fatalf("❌ touch requires -nats")
		}
		coord := vec.ChunkCoord{X: *cx, Z: *cz}
		if err := eventbus.PublishChunkModified(ctx, bus, eventSource, *worldID, coord); err != nil {
			log.Fatalf("❌ Publish failed: %v", err)
		}
		fmt.Printf("📨 chunk %s of %s marked modified\n", coord, *worldID)

	case "list":
		store := openStore(*dataPath)
		defer store.Close()
		if err := listChunks(store); err != nil {
			log.Fatalf("❌ List failed: %v", err)
		}

	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: seed, touch, list")
		os.Exit(1)
	}
}

func openStore(dataPath string) *storage.ChunkStore {
	store, err := storage.NewChunkStore(dataPath)
	if err != nil {
		log.Fatalf("❌ Failed to open chunk store: %v", err)
	}
	return store
}

// seedWorld генерирует чанки спиралью от центра и пишет их пачками
func seedWorld(ctx context.Context, store *storage.ChunkStore, seed int64, height int, center vec.ChunkCoord, radius, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 1
	}
	gen := world.NewGenerator(seed, height)
	spiral := iterator.NewChunkSpiral(center.X, center.Z, radius)
	start := time.Now()

	fmt.Printf("🌱 Seeding %d chunks around %s (seed %d)\n", spiral.Len(), center, seed)

	batch := make([]*world.Chunk, 0, batchSize)
	written := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := store.SaveBatch(ctx, batch); err != nil {
			return err
		}
		written += len(batch)
		batch = batch[:0]
		fmt.Printf("   %d/%d\n", written, spiral.Len())
		return nil
	}

	for spiral.Next() {
		batch = append(batch, gen.GenerateChunk(spiral.Value()))
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	fmt.Printf("✅ %d chunks written in %s\n", written, time.Since(start).Round(time.Millisecond))
	return nil
}

func listChunks(store *storage.ChunkStore) error {
	coords, err := store.Coords()
	if err != nil {
		return err
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].Z != coords[j].Z {
			return coords[i].Z < coords[j].Z
		}
		return coords[i].X < coords[j].X
	})
	for _, c := range coords {
		fmt.Println(c)
	}
	fmt.Printf("📦 %d chunks\n", len(coords))
	return nil
}
