package roster

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/petermalak/khoras-attendance-thanwy/pkg/sheets"
)

var cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "khoras_roster_cache_lookups_total",
	Help: "Roster cache lookups by result",
}, []string{"result"})

// DefaultTTL bounds how stale a cached roster may be. Writes made outside
// this process are not seen until the snapshot expires.
const DefaultTTL = 5 * time.Minute

// Cache holds a snapshot of the roster table for a bounded time.
type Cache struct {
	client sheets.GridClient
	table  string
	rng    string
	ttl    time.Duration
	now    func() time.Time

	mu        sync.RWMutex
	grid      sheets.Grid
	fetchedAt time.Time
	// gen counts patches and invalidations. A fill that started under an
	// older gen does not replace the snapshot.
	gen uint64

	fill singleflight.Group
}

type CacheOption func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// WithTTL replaces DefaultTTL.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) { c.ttl = ttl }
}

func NewCache(client sheets.GridClient, table, rng string, opts ...CacheOption) *Cache {
	c := &Cache{
		client: client,
		table:  table,
		rng:    rng,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Table is the roster sheet name.
func (c *Cache) Table() string { return c.table }

// Roster returns a copy of the roster grid, reading it from the remote
// store when there is no snapshot younger than the TTL. An empty table is
// returned but not cached. Concurrent misses share one remote read, which
// is not cancelled when the caller that started it goes away.
func (c *Cache) Roster(ctx context.Context) (sheets.Grid, error) {
	if g, ok := c.fresh(); ok {
		cacheLookups.WithLabelValues("hit").Inc()
		return g, nil
	}
	cacheLookups.WithLabelValues("miss").Inc()

	fillCtx := context.WithoutCancel(ctx)
	ch := c.fill.DoChan(c.table, func() (interface{}, error) {
		return c.load(fillCtx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(sheets.Grid).Clone(), nil
	}
}

// fresh returns a copy of the snapshot if it is still within the TTL.
func (c *Cache) fresh() (sheets.Grid, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.grid != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.grid.Clone(), true
	}
	return nil, false
}

func (c *Cache) load(ctx context.Context) (sheets.Grid, error) {
	// A fill that just finished may have stored a snapshot since the miss.
	if g, ok := c.fresh(); ok {
		return g, nil
	}
	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	grid, err := c.client.ReadRange(ctx, c.table, c.rng)
	if err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		return grid, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		log.Debugf("Roster %s changed during fill, keeping the patched snapshot", c.table)
		if c.grid != nil {
			return c.grid.Clone(), nil
		}
		return grid, nil
	}
	c.grid = grid.Clone()
	c.fetchedAt = c.now()
	log.Debugf("Cached %d roster rows from %s", len(grid), c.table)
	return grid, nil
}

// PatchScore overwrites the score of a cached row in place. rowNumber is the
// one-based sheet row. Without a snapshot only a fill in flight is affected:
// it will not be stored.
func (c *Cache) PatchScore(rowNumber, score int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	i := rowNumber - 1
	if c.grid == nil || i < 0 || i >= len(c.grid) {
		return
	}
	row := c.grid[i]
	for len(row) <= int(ColumnScore) {
		row = append(row, "")
	}
	row[ColumnScore] = strconv.Itoa(score)
	c.grid[i] = row
}

// Invalidate drops the snapshot so the next read goes to the remote store.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.grid = nil
	c.fetchedAt = time.Time{}
	c.gen++
	c.mu.Unlock()
}
