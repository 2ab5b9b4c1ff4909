package photoproof

import (
	"context"
	"reflect"
	"sync"
)

// MemoryCache is the default Cache implementation: a process-lifetime map
// with no eviction. Safe for concurrent use.
type MemoryCache struct {
	m sync.Map
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache { return &MemoryCache{} }

// Key joins prefix and value into a namespaced cache key.
func (c *MemoryCache) Key(prefix, value string) string { return prefix + ":" + value }

// Get loads the value stored under key into dest, which must be a non-nil
// pointer to a type assignable from the stored value. Returns false on a
// miss or a type mismatch.
func (c *MemoryCache) Get(_ context.Context, key string, dest any) bool {
	v, ok := c.m.Load(key)
	if !ok {
		return false
	}
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return false
	}
	sv := reflect.ValueOf(v)
	if !sv.Type().AssignableTo(rv.Elem().Type()) {
		return false
	}
	rv.Elem().Set(sv)
	return true
}

// Set stores value under key, replacing any previous entry.
func (c *MemoryCache) Set(_ context.Context, key string, value any) { c.m.Store(key, value) }
