// Package cache keeps dropdown option lists loaded from the backend for a short time so concurrent
// page renders share one fetch per source.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/singleflight"

	"github.com/MarkoPoloResearchLab/acquisition_console/internal/form"
)

const (
	scopeSeparator       = "/"
	errorMessageNewCache = "cache: create ristretto store"
	errorMessageLoader   = "cache: option loader is nil"
)

// ErrNilLoader indicates Load was called without a loader.
var ErrNilLoader = errors.New(errorMessageLoader)

// Loader fetches the options for one key.
type Loader func(ctx context.Context) ([]form.Option, error)

// Config sizes the underlying store.
type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	DefaultTTL  time.Duration
}

// DefaultConfig fits a console with a few dozen option sources.
func DefaultConfig() Config {
	return Config{
		NumCounters: 1e4,
		MaxCost:     1 << 12,
		BufferItems: 64,
		DefaultTTL:  5 * time.Minute,
	}
}

// OptionCache memoizes option lists by key. A key is either a source name such as "profiles" or a
// scoped form "installations/jdoe"; invalidating a source drops every scope under it.
type OptionCache struct {
	store       *ristretto.Cache
	loads       singleflight.Group
	defaultTTL  time.Duration
	mutex       sync.Mutex
	generations map[string]uint64
}

// NewOptionCache builds the cache.
func NewOptionCache(configuration Config) (*OptionCache, error) {
	defaults := DefaultConfig()
	if configuration.NumCounters <= 0 {
		configuration.NumCounters = defaults.NumCounters
	}
	if configuration.MaxCost <= 0 {
		configuration.MaxCost = defaults.MaxCost
	}
	if configuration.BufferItems <= 0 {
		configuration.BufferItems = defaults.BufferItems
	}
	if configuration.DefaultTTL <= 0 {
		configuration.DefaultTTL = defaults.DefaultTTL
	}
	store, storeErr := ristretto.NewCache(&ristretto.Config{
		NumCounters:        configuration.NumCounters,
		MaxCost:            configuration.MaxCost,
		BufferItems:        configuration.BufferItems,
		IgnoreInternalCost: true,
	})
	if storeErr != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageNewCache, storeErr)
	}
	return &OptionCache{
		store:       store,
		defaultTTL:  configuration.DefaultTTL,
		generations: make(map[string]uint64),
	}, nil
}

// ScopedKey joins a source and a scope such as a username.
func ScopedKey(source string, scope string) string {
	return source + scopeSeparator + scope
}

// Load returns cached options for key or runs loader once for all concurrent callers.
// A non-positive ttl uses the configured default. Failed loads are not cached.
func (optionCache *OptionCache) Load(ctx context.Context, key string, ttl time.Duration, loader Loader) ([]form.Option, error) {
	if loader == nil {
		return nil, ErrNilLoader
	}
	if ttl <= 0 {
		ttl = optionCache.defaultTTL
	}
	storeKey := optionCache.storeKey(key)
	if cached, found := optionCache.store.Get(storeKey); found {
		return cached.([]form.Option), nil
	}

	loaded, loadErr, _ := optionCache.loads.Do(storeKey, func() (any, error) {
		if cached, found := optionCache.store.Get(storeKey); found {
			return cached, nil
		}
		if contextErr := ctx.Err(); contextErr != nil {
			return nil, contextErr
		}
		options, loaderErr := loader(ctx)
		if loaderErr != nil {
			return nil, loaderErr
		}
		if options == nil {
			options = []form.Option{}
		}
		if optionCache.store.SetWithTTL(storeKey, options, 1, ttl) {
			optionCache.store.Wait()
		}
		return options, nil
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return loaded.([]form.Option), nil
}

// Invalidate drops the given sources, including every scoped key beneath them.
func (optionCache *OptionCache) Invalidate(sources ...string) {
	optionCache.mutex.Lock()
	defer optionCache.mutex.Unlock()
	for _, source := range sources {
		optionCache.generations[source]++
		optionCache.store.Del(fmt.Sprintf("%s#%d", source, optionCache.generations[source]-1))
	}
}

// Purge empties the cache.
func (optionCache *OptionCache) Purge() {
	optionCache.store.Clear()
}

// Close releases the store's goroutines.
func (optionCache *OptionCache) Close() {
	optionCache.store.Close()
}

func (optionCache *OptionCache) storeKey(key string) string {
	source, scope, scoped := strings.Cut(key, scopeSeparator)
	optionCache.mutex.Lock()
	generation := optionCache.generations[source]
	optionCache.mutex.Unlock()
	storeKey := fmt.Sprintf("%s#%d", source, generation)
	if scoped {
		storeKey += scopeSeparator + scope
	}
	return storeKey
}
