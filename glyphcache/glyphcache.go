// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package glyphcache provides a per-share-group cache of shaped text runs
// and rasterized glyph masks. Contexts in the same share group see the same
// cache instance, so glyph atlases uploaded by one context are reused by
// all of them; the cache is torn down with its group.
package glyphcache

import (
	"errors"
	"sync"

	"github.com/gogpu/glctx"
	"golang.org/x/image/math/fixed"
)

// ErrNoGlyph is returned when a font has no glyph for a rune.
var ErrNoGlyph = errors.New("glyphcache: no glyph for rune")

// registry maps share groups to their cache instance.
var registry = glctx.NewMultiGroupResource()

// For returns the glyph cache of ctx's share group, creating it on first
// use. Returns nil if ctx has not been created yet.
func For(ctx *glctx.Context) *Cache {
	return ForConfig(ctx, DefaultConfig())
}

// ForConfig is For with an explicit configuration. The configuration is
// applied only when this call creates the cache; an existing instance keeps
// its original settings.
func ForConfig(ctx *glctx.Context, cfg Config) *Cache {
	return glctx.MultiGroupValue(registry, ctx, func(*glctx.Context) *Cache {
		return newCache(cfg)
	})
}

// CloseAll releases every per-group cache. Call at application shutdown;
// per-group instances are otherwise torn down with their share group.
func CloseAll() {
	registry.Close()
}

// Config controls cache capacity.
type Config struct {
	// MaxRuns bounds the shaped-run cache; least recently used runs are
	// evicted beyond it. Zero or negative means DefaultConfig's value.
	MaxRuns int
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{MaxRuns: 512}
}

type runKey struct {
	font *Font
	text string
	size fixed.Int26_6
	rtl  bool
}

type maskKey struct {
	font *Font
	r    rune
	size fixed.Int26_6
}

type runEntry struct {
	run  *ShapedRun
	node *lruNode[runKey]
}

// Cache shapes and rasterizes text, memoizing the results. It is safe for
// concurrent use.
//
// A Cache is owned by its share group; do not retain one across the
// destruction of the group's last context.
type Cache struct {
	mu      sync.Mutex
	cfg     Config
	runs    map[runKey]*runEntry
	order   lruList[runKey]
	masks   map[maskKey]Mask
	atlases []any
	dead    bool
}

func newCache(cfg Config) *Cache {
	if cfg.MaxRuns <= 0 {
		cfg.MaxRuns = DefaultConfig().MaxRuns
	}
	return &Cache{
		cfg:   cfg,
		runs:  make(map[runKey]*runEntry),
		masks: make(map[maskKey]Mask),
	}
}

// ShapeRun returns the shaped form of text in f at the given pixel size,
// computing and caching it on first request. Set rtl for a right-to-left
// base paragraph direction.
func (c *Cache) ShapeRun(f *Font, text string, size fixed.Int26_6, rtl bool) *ShapedRun {
	key := runKey{font: f, text: text, size: size, rtl: rtl}

	c.mu.Lock()
	if e, ok := c.runs[key]; ok {
		c.order.moveToFront(e.node)
		run := e.run
		c.mu.Unlock()
		return run
	}
	c.mu.Unlock()

	// Shaping happens outside the lock; concurrent misses on the same key
	// shape twice and the second insert wins, which is harmless.
	run := shapeText(f, text, size, rtl)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dead {
		return run
	}
	if e, ok := c.runs[key]; ok {
		c.order.moveToFront(e.node)
		return e.run
	}
	c.runs[key] = &runEntry{run: run, node: c.order.pushFront(key)}
	for c.order.len > c.cfg.MaxRuns {
		old, ok := c.order.popOldest()
		if !ok {
			break
		}
		delete(c.runs, old)
	}
	return run
}

// GlyphMask returns the alpha mask for r in f at the given pixel size,
// rasterizing and caching it on first request.
func (c *Cache) GlyphMask(f *Font, r rune, size fixed.Int26_6) (Mask, error) {
	key := maskKey{font: f, r: r, size: size}

	c.mu.Lock()
	if m, ok := c.masks[key]; ok {
		c.mu.Unlock()
		return m, nil
	}
	c.mu.Unlock()

	m, err := rasterize(f, r, size)
	if err != nil {
		return Mask{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dead {
		c.masks[key] = m
	}
	return m, nil
}

// RegisterAtlas ties a GPU atlas texture to the cache's lifetime. When the
// cache is freed with a live context, every registered atlas exposing a
// Destroy method is destroyed; when the owning group dies first, atlases
// are dropped without device calls.
func (c *Cache) RegisterAtlas(tex any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dead {
		if d, ok := tex.(interface{ Destroy() }); ok {
			d.Destroy()
		}
		return
	}
	c.atlases = append(c.atlases, tex)
}

// Len returns the number of cached shaped runs. Diagnostic.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.len
}

// FreeResource implements glctx.ResourceCleanup: a context of the owning
// group is live, so atlas textures are destroyed on the device.
func (c *Cache) FreeResource(ctx *glctx.Context) {
	c.mu.Lock()
	atlases := c.atlases
	c.reset()
	c.mu.Unlock()

	for _, a := range atlases {
		if d, ok := a.(interface{ Destroy() }); ok {
			d.Destroy()
		}
	}
}

// InvalidateResource implements glctx.ResourceCleanup: the owning group is
// gone, so references are dropped without touching the device.
func (c *Cache) InvalidateResource() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *Cache) reset() {
	c.dead = true
	c.runs = nil
	c.masks = nil
	c.atlases = nil
	c.order = lruList[runKey]{}
}

var _ glctx.ResourceCleanup = (*Cache)(nil)
