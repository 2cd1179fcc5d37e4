// Package cache keeps loaded grids in process memory, keyed by level and mode, for as long as the epoch
// does not change.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/pdok/rastercache/epoch"
	"github.com/pdok/rastercache/mapslicehelp"
	"github.com/pdok/rastercache/metrics"
	"github.com/pdok/rastercache/raster"
)

type Key struct {
	Level int
	Mode  string
}

// Loader loads a grid from storage, a *levelstore.Store in production.
type Loader[T raster.Cell] interface {
	Load(level int, mode string) (*raster.Grid[T], error)
}

// Cache hands out shared grids. Callers must not modify them.
// One mutex guards the epoch check, the lookup and the load, so a grid is loaded at most once per epoch.
type Cache[T raster.Cell] struct {
	loader  Loader[T]
	epochs  epoch.Source
	log     logrus.FieldLogger
	metrics *metrics.Metrics

	mu    sync.Mutex
	epoch epoch.Epoch
	grids *orderedmap.OrderedMap[Key, *raster.Grid[T]]
}

// New creates an empty cache. m may be nil.
func New[T raster.Cell](loader Loader[T], epochs epoch.Source, log logrus.FieldLogger, m *metrics.Metrics) *Cache[T] {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &Cache[T]{
		loader:  loader,
		epochs:  epochs,
		log:     log,
		metrics: m,
		grids:   orderedmap.New[Key, *raster.Grid[T]](),
	}
}

// Get returns the grid for a level and mode. When the epoch moved on every cached grid is dropped first.
// Failed loads are not cached, the next Get tries again. A failing epoch source leaves the cache as is.
func (c *Cache[T]) Get(ctx context.Context, level int, mode string) (*raster.Grid[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.epochs.CurrentEpoch(ctx)
	if err != nil {
		return nil, fmt.Errorf("current epoch: %w", err)
	}
	if current != c.epoch {
		if c.grids.Len() > 0 {
			c.log.WithFields(logrus.Fields{"old": c.epoch, "new": current, "grids": c.grids.Len()}).Info("epoch changed, dropping cached grids")
			c.metrics.Invalidations.Inc()
			c.grids = orderedmap.New[Key, *raster.Grid[T]]()
		}
		c.epoch = current
	}

	key := Key{Level: level, Mode: mode}
	if g, ok := c.grids.Get(key); ok {
		c.metrics.Hits.Inc()
		return g, nil
	}

	start := time.Now()
	g, err := c.loader.Load(level, mode)
	c.metrics.ObserveLoad(start, err)
	if err != nil {
		return nil, err
	}
	c.grids.Set(key, g)
	c.log.WithFields(logrus.Fields{"level": level, "mode": mode, "epoch": current}).Debug("loaded grid")
	return g, nil
}

// Keys returns the cached keys in load order.
func (c *Cache[T]) Keys() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	return mapslicehelp.OrderedMapKeys(c.grids)
}

func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grids.Len()
}

// Epoch returns the epoch the cached grids belong to.
func (c *Cache[T]) Epoch() epoch.Epoch {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}
