/*
Copyright The Smol Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package cache holds in-session memoization tables.
package cache // import "smol.sh/smol/pkg/cache"

import "sync"

// Cache interface defines the methods for a cache
type Cache[K comparable, V any] interface {
	// Set adds an item to the cache
	Set(key K, value V)

	// Get retrieves an item from the cache
	// The boolean return value indicates whether the key was found
	Get(key K) (V, bool)

	// Delete removes an item from the cache
	Delete(key K)
}

// ConcurrentMapCache implements Cache interface using a concurrent map
type ConcurrentMapCache[K comparable, V any] struct {
	items map[K]V
	mu    sync.RWMutex
}

func NewConcurrentMapCache[K comparable, V any]() *ConcurrentMapCache[K, V] {
	return &ConcurrentMapCache[K, V]{
		items: make(map[K]V),
	}
}

func (c *ConcurrentMapCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
}

func (c *ConcurrentMapCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, exists := c.items[key]
	return value, exists
}

func (c *ConcurrentMapCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Len returns the number of cached items.
func (c *ConcurrentMapCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
