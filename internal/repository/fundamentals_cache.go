package repository

import (
	"context"
	"errors"
	"fmt"

	"ChartVerdict/internal/domain/models"
	domrepo "ChartVerdict/internal/domain/repository"
	"ChartVerdict/pkg/cache"
)

const fundamentalsKeyPrefix = "fundamentals"

// FundamentalsCache stores one snapshot per symbol in a cache.Service.
// Entries never expire on their own; staleness is judged by FetchedAt.
type FundamentalsCache struct {
	store cache.Service
}

// NewFundamentalsCache wraps a cache backend (memory, redis or layered).
func NewFundamentalsCache(store cache.Service) *FundamentalsCache {
	return &FundamentalsCache{store: store}
}

// Get returns the snapshot for symbol. The bool is false on a miss.
func (c *FundamentalsCache) Get(ctx context.Context, symbol string) (models.FundamentalsSnapshot, bool, error) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return models.FundamentalsSnapshot{}, false, domrepo.ErrNoSymbol
	}

	var snap models.FundamentalsSnapshot
	if err := c.store.Get(ctx, FundamentalsKey(symbol), &snap); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return models.FundamentalsSnapshot{}, false, nil
		}
		return models.FundamentalsSnapshot{}, false, fmt.Errorf("fundamentals cache get %s: %w", symbol, err)
	}
	return snap, true, nil
}

// Put replaces any prior snapshot for symbol.
func (c *FundamentalsCache) Put(ctx context.Context, symbol string, snap models.FundamentalsSnapshot) error {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return domrepo.ErrNoSymbol
	}
	snap.Symbol = symbol
	if err := c.store.Set(ctx, FundamentalsKey(symbol), snap, 0); err != nil {
		return fmt.Errorf("fundamentals cache put %s: %w", symbol, err)
	}
	return nil
}

// FundamentalsKey is the cache key for symbol's snapshot.
func FundamentalsKey(symbol string) string {
	return cache.GenerateKey(fundamentalsKeyPrefix, symbol)
}

// FundamentalsLockKey is the refresh lock key for symbol.
func FundamentalsLockKey(symbol string) string {
	return cache.GenerateKeyWithParams("lock", fundamentalsKeyPrefix, symbol)
}

var _ domrepo.FundamentalsCache = (*FundamentalsCache)(nil)
