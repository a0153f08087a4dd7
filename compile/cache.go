// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package compile

import (
	"context"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/open-policy-agent/fastpeg/ast"
	"github.com/open-policy-agent/fastpeg/logging"
	"github.com/open-policy-agent/fastpeg/metrics"
)

// Cache metric names.
const (
	CacheHit  = "compile_cache_hit"
	CacheMiss = "compile_cache_miss"
)

// DefaultCacheSize is the number of prepared grammars kept by NewCache when
// size is not positive.
const DefaultCacheSize = 16

// Cache keeps prepared grammars keyed by the hash of the grammar document.
type Cache struct {
	prepared *lru.Cache[uint64, *Prepared]
	logger   logging.Logger
	metrics  metrics.Metrics
}

// NewCache returns a cache holding at most size prepared grammars.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	prepared, err := lru.New[uint64, *Prepared](size)
	if err != nil {
		return nil, err
	}
	return &Cache{
		prepared: prepared,
		logger:   logging.NewNoOpLogger(),
		metrics:  metrics.NoOp(),
	}, nil
}

// WithLogger sets the logger used by the cache and the compilers it runs.
func (c *Cache) WithLogger(l logging.Logger) *Cache {
	c.logger = l
	return c
}

// WithMetrics sets the metrics hits and misses are recorded into.
func (c *Cache) WithMetrics(m metrics.Metrics) *Cache {
	c.metrics = m
	return c
}

// Prepare returns the prepared grammar for the document bs, decoding and
// compiling it when the document has not been seen before. Failed
// compilations are not cached.
func (c *Cache) Prepare(ctx context.Context, filename string, bs []byte) (*Prepared, error) {
	key := xxhash.Sum64(bs)
	if p, ok := c.prepared.Get(key); ok {
		c.metrics.Counter(CacheHit).Incr()
		return p, nil
	}
	c.metrics.Counter(CacheMiss).Incr()
	c.logger.WithFields(map[string]any{"file": filename}).Debug("Compiling grammar.")

	g, err := ast.ParseGrammar(filename, bs)
	if err != nil {
		return nil, err
	}
	p, err := New().
		WithGrammar(g).
		WithTarget(TargetClosure).
		WithLogger(c.logger).
		WithMetrics(c.metrics).
		Prepare(ctx)
	if err != nil {
		return nil, err
	}
	c.prepared.Add(key, p)
	return p, nil
}

// Len returns the number of cached grammars.
func (c *Cache) Len() int {
	return c.prepared.Len()
}
