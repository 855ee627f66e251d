package style

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Fetcher retrieves a remote resource as raw bytes. fixture.Client
// satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Callback delivers the outcome of a glyph or icon request.
type Callback func(err error, result any)

// GlyphParams identifies a glyph request: one font stack and the
// unicode ranges to load.
type GlyphParams struct {
	Stack  string   `json:"stack"`
	Ranges []string `json:"ranges"`
}

// GlyphSet is the payload of a successful glyph request.
type GlyphSet struct {
	Stack  string
	Ranges map[string][]byte
}

// IconParams identifies an icon request by sprite entry names.
type IconParams struct {
	Icons []string `json:"icons"`
}

// IconSet is the payload of a successful icon request.
type IconSet struct {
	Icons map[string]SpriteEntry
}

// SpriteEntry locates one icon inside the sprite image.
type SpriteEntry struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	PixelRatio float64 `json:"pixelRatio,omitempty"`
}

// LoadOptions adjust engine construction.
type LoadOptions struct {
	// TransformRequest, when set, rewrites every URL the engine
	// fetches before the request is made.
	TransformRequest func(url string) string
}

// Engine serves glyph and icon requests for one style document. It
// becomes ready once its sprite assets have loaded; a load failure is
// delivered on Err instead.
type Engine struct {
	doc    *Document
	index  *LayerIndex
	fetch  Fetcher
	opts   LoadOptions
	logger *slog.Logger

	ready chan struct{}
	errc  chan error

	spriteMeta  map[string]SpriteEntry
	spriteImage []byte
}

// Load parses raw as a style document, flattens its layers, builds
// the source-layer index and starts loading sprite assets in the
// background. Callers must wait on Ready or Err before issuing
// requests.
func Load(
	ctx context.Context,
	raw []byte,
	fetch Fetcher,
	opts LoadOptions,
	logger *slog.Logger,
) (*Engine, error) {
	doc, err := ParseDocument(raw)
	if err != nil {
		return nil, err
	}

	flat, err := FlattenLayers(doc.Layers)
	if err != nil {
		return nil, fmt.Errorf("flatten layers: %w", err)
	}

	e := &Engine{
		doc:    doc,
		index:  BuildIndex(flat),
		fetch:  fetch,
		opts:   opts,
		logger: logger.With(slog.String("component", "style")),
		ready:  make(chan struct{}),
		errc:   make(chan error, 1),
	}

	go e.loadSprite(ctx)

	return e, nil
}

// Ready is closed once the engine can serve requests.
func (e *Engine) Ready() <-chan struct{} { return e.ready }

// Err delivers at most one load failure. A engine that failed to load
// never becomes ready.
func (e *Engine) Err() <-chan error { return e.errc }

// Index returns the source-layer index built from the document.
func (e *Engine) Index() *LayerIndex { return e.index }

func (e *Engine) loadSprite(ctx context.Context) {
	if e.doc.Sprite == "" {
		close(e.ready)

		return
	}

	var (
		metaRaw []byte
		img     []byte
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		metaRaw, err = e.fetch.Fetch(gctx, e.resolveURL(e.doc.Sprite+".json"))

		return err
	})

	g.Go(func() error {
		var err error
		img, err = e.fetch.Fetch(gctx, e.resolveURL(e.doc.Sprite+".png"))

		return err
	})

	if err := g.Wait(); err != nil {
		e.errc <- fmt.Errorf("load sprite: %w", err)

		return
	}

	meta := make(map[string]SpriteEntry)
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		e.errc <- fmt.Errorf("decode sprite metadata: %w", err)

		return
	}

	e.spriteMeta = meta
	e.spriteImage = img

	e.logger.Debug("sprite loaded",
		slog.Int("icons", len(meta)),
		slog.Int("image_bytes", len(img)),
	)

	close(e.ready)
}

// GetGlyphs fetches the glyph ranges named by params and delivers a
// GlyphSet through cb. The callback is invoked exactly once.
func (e *Engine) GetGlyphs(ctx context.Context, params GlyphParams, cb Callback) {
	if e.doc.Glyphs == "" {
		cb(fmt.Errorf("style document declares no glyph endpoint"), nil)

		return
	}

	set := GlyphSet{
		Stack:  params.Stack,
		Ranges: make(map[string][]byte, len(params.Ranges)),
	}

	for _, rng := range params.Ranges {
		url := strings.NewReplacer(
			"{fontstack}", params.Stack,
			"{range}", rng,
		).Replace(e.doc.Glyphs)

		pbf, err := e.fetch.Fetch(ctx, e.resolveURL(url))
		if err != nil {
			cb(fmt.Errorf("fetch glyphs %s/%s: %w", params.Stack, rng, err), nil)

			return
		}

		set.Ranges[rng] = pbf
	}

	cb(nil, set)
}

// GetImages resolves the icons named by params against the loaded
// sprite and delivers an IconSet through cb. Unknown icon names are
// skipped, matching how a renderer degrades on a missing sprite
// entry.
func (e *Engine) GetImages(_ context.Context, params IconParams, cb Callback) {
	set := IconSet{Icons: make(map[string]SpriteEntry, len(params.Icons))}

	for _, name := range params.Icons {
		entry, ok := e.spriteMeta[name]
		if !ok {
			e.logger.Warn("icon not in sprite", slog.String("icon", name))

			continue
		}

		set.Icons[name] = entry
	}

	cb(nil, set)
}

func (e *Engine) resolveURL(url string) string {
	if e.opts.TransformRequest != nil {
		return e.opts.TransformRequest(url)
	}

	return url
}
