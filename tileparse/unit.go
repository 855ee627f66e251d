// Package tileparse provides the tile-parsing benchmark unit: setup
// acquires a style document and raw tile for one coordinate and warms
// glyph/icon caches, bench parses the tile into renderable buffers
// through an actor channel.
package tileparse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mapward/tilebench/bench"
	"github.com/mapward/tilebench/fixture"
	"github.com/mapward/tilebench/mvt"
	"github.com/mapward/tilebench/style"
)

// Unit benchmarks parsing one tile coordinate. Setup populates all
// mutable state; Bench treats it as read-only.
type Unit struct {
	coord  fixture.Coordinate
	client *fixture.Client
	logger *slog.Logger

	tileRaw []byte
	engine  *style.Engine
	index   *style.LayerIndex

	// Caches are written by the intercepting providers (setup's
	// warm-up pass) and only read afterwards. The mutex exists
	// because one warm-up pass can fan out to several concurrent
	// actor round-trips.
	mu         sync.RWMutex
	glyphCache map[string]any
	iconCache  map[string]any
	fetches    int
}

// NewUnit creates a Unit for coord, fetching fixtures through client.
func NewUnit(
	coord fixture.Coordinate, client *fixture.Client, logger *slog.Logger,
) *Unit {
	return &Unit{
		coord:      coord,
		client:     client,
		logger:     logger.With(slog.String("coord", coord.String())),
		glyphCache: make(map[string]any),
		iconCache:  make(map[string]any),
	}
}

// Setup acquires the style document and tile buffer concurrently,
// builds the layer index, waits for the style engine to become ready,
// then runs one full bench pass with intercepting providers purely to
// warm the glyph/icon caches. Only then does Setup return.
func (u *Unit) Setup(ctx context.Context) error {
	var styleRaw []byte

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		styleRaw, err = u.client.FetchStyle(gctx)

		return err
	})

	g.Go(func() error {
		var err error
		u.tileRaw, err = u.client.FetchTile(gctx, u.coord)

		return err
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("acquire fixtures: %w", err)
	}

	engine, err := style.Load(ctx, styleRaw, u.client, style.LoadOptions{}, u.logger)
	if err != nil {
		return fmt.Errorf("load style: %w", err)
	}

	select {
	case <-engine.Ready():
	case err := <-engine.Err():
		return fmt.Errorf("style engine: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}

	u.engine = engine
	u.index = engine.Index()

	warm := bench.Providers{
		Glyphs: u.interceptGlyphs(ctx),
		Images: u.interceptImages(ctx),
	}

	if err := u.Bench(ctx, warm); err != nil {
		return fmt.Errorf("warm caches: %w", err)
	}

	u.logger.DebugContext(ctx, "setup complete",
		slog.Int("tile_bytes", len(u.tileRaw)),
		slog.Int("styled_layers", u.index.Len()),
		slog.Int("cached_glyph_sets", len(u.glyphCache)),
		slog.Int("cached_icon_sets", len(u.iconCache)),
	)

	return nil
}

// Bench parses the tile once. Providers default to cache-only
// lookups; a cache miss after warm-up is a bug and surfaces as an
// error. Bench returns only after every actor round-trip the parse
// issued has settled.
func (u *Unit) Bench(_ context.Context, p bench.Providers) error {
	glyphs := p.Glyphs
	if glyphs == nil {
		glyphs = u.cachedGlyphs
	}

	images := p.Images
	if images == nil {
		images = u.cachedImages
	}

	actor := bench.NewActor(map[string]bench.Handler{
		mvt.ActionGetGlyphs: bench.Handler(glyphs),
		mvt.ActionGetImages: bench.Handler(images),
	})

	if _, err := mvt.Parse(u.tileRaw, u.index, actorSender{actor}); err != nil {
		return fmt.Errorf("parse tile %s: %w", u.coord, err)
	}

	return nil
}

// interceptGlyphs delegates to the style engine and memoizes the
// payload under the serialized request parameters.
func (u *Unit) interceptGlyphs(ctx context.Context) bench.ResourceFunc {
	return func(params any, cb bench.Callback) {
		gp, ok := params.(style.GlyphParams)
		if !ok {
			cb(fmt.Errorf("getGlyphs: unexpected params %T", params), nil)

			return
		}

		key, err := paramsKey(gp)
		if err != nil {
			cb(err, nil)

			return
		}

		u.engine.GetGlyphs(ctx, gp, func(err error, result any) {
			if err != nil {
				cb(err, nil)

				return
			}

			u.mu.Lock()
			u.glyphCache[key] = result
			u.fetches++
			u.mu.Unlock()

			cb(nil, result)
		})
	}
}

func (u *Unit) interceptImages(ctx context.Context) bench.ResourceFunc {
	return func(params any, cb bench.Callback) {
		ip, ok := params.(style.IconParams)
		if !ok {
			cb(fmt.Errorf("getImages: unexpected params %T", params), nil)

			return
		}

		key, err := paramsKey(ip)
		if err != nil {
			cb(err, nil)

			return
		}

		u.engine.GetImages(ctx, ip, func(err error, result any) {
			if err != nil {
				cb(err, nil)

				return
			}

			u.mu.Lock()
			u.iconCache[key] = result
			u.fetches++
			u.mu.Unlock()

			cb(nil, result)
		})
	}
}

func (u *Unit) cachedGlyphs(params any, cb bench.Callback) {
	u.cachedLookup(u.glyphCache, "glyphs", params, cb)
}

func (u *Unit) cachedImages(params any, cb bench.Callback) {
	u.cachedLookup(u.iconCache, "icons", params, cb)
}

func (u *Unit) cachedLookup(
	cache map[string]any, kind string, params any, cb bench.Callback,
) {
	key, err := paramsKey(params)
	if err != nil {
		cb(err, nil)

		return
	}

	u.mu.RLock()
	payload, ok := cache[key]
	u.mu.RUnlock()

	if !ok {
		cb(fmt.Errorf("%s not cached for params %s", kind, key), nil)

		return
	}

	cb(nil, payload)
}

// paramsKey serializes request parameters into a canonical cache key.
// Parse sorts ranges and icon names, so equal requests always
// serialize equally.
func paramsKey(params any) (string, error) {
	b, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("serialize params: %w", err)
	}

	return string(b), nil
}

// actorSender adapts bench.Actor to the decoder's Sender interface.
type actorSender struct {
	actor *bench.Actor
}

func (s actorSender) Send(action string, params any, cb mvt.Callback) {
	s.actor.Send(action, params, bench.Callback(cb))
}
