// Package cache provides keyed memoization for objects parsed from
// their canonical string form, such as securities and identifiers.
package cache

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var ErrBlankKey = errors.New("cache key cannot be empty or whitespace")

// ObjectCache memoizes values produced by a deterministic parse
// function. Each distinct key is constructed at most once for the
// lifetime of the cache; every later Get returns the identical
// instance, so pointer values keep reference identity across lookups.
//
// The zero value is not usable; construct with New.
type ObjectCache[V any] struct {
	parse func(string) (V, error)

	mu    sync.RWMutex
	items map[string]V
	keys  []string
}

// New returns a cache backed by the given parse function.
func New[V any](parse func(string) (V, error)) *ObjectCache[V] {
	return &ObjectCache[V]{
		parse: parse,
		items: make(map[string]V),
	}
}

// Get returns the value for key, constructing and memoizing it on
// first access. Empty and whitespace-only keys are rejected.
func (c *ObjectCache[V]) Get(key string) (V, error) {
	var zero V
	if strings.TrimSpace(key) == "" {
		return zero, fmt.Errorf("%w: %q", ErrBlankKey, key)
	}

	c.mu.RLock()
	v, ok := c.items[key]
	c.mu.RUnlock()
	if ok {
		return v, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.items[key]; ok {
		return v, nil
	}
	v, err := c.parse(key)
	if err != nil {
		return zero, fmt.Errorf("construct %q: %w", key, err)
	}
	c.items[key] = v
	c.keys = append(c.keys, key)
	return v, nil
}

// Keys returns the cached keys in first-insertion order.
func (c *ObjectCache[V]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len reports the number of cached values.
func (c *ObjectCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Clear drops every cached value. Subsequent Gets reconstruct.
func (c *ObjectCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]V)
	c.keys = c.keys[:0]
}
