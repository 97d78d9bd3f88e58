/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package cache

import (
	"sync"
	"time"
)

// Memo is a single in-process cached value with a TTL. It backs the hot
// filter and weight lookups on the vote path, where a Redis round trip per
// draw would dominate the work.
type Memo[T any] struct {
	ttl time.Duration

	mu        sync.Mutex
	value     T
	fetchedAt time.Time
	valid     bool
}

// NewMemo creates an empty memo with the given TTL.
func NewMemo[T any](ttl time.Duration) *Memo[T] {
	return &Memo[T]{ttl: ttl}
}

// Get returns the memoized value, refreshing it through fetch when the entry
// is missing or expired. A failed refresh leaves the memo empty and returns
// the fetch error.
func (m *Memo[T]) Get(fetch func() (T, error)) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid && time.Since(m.fetchedAt) < m.ttl {
		return m.value, nil
	}

	value, err := fetch()
	if err != nil {
		var zero T
		m.valid = false
		return zero, err
	}

	m.value = value
	m.fetchedAt = time.Now()
	m.valid = true
	return value, nil
}

// Invalidate drops the memoized value so the next Get refreshes.
func (m *Memo[T]) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.valid = false
}

// Peek returns the current value without refreshing, and whether it is
// still fresh.
func (m *Memo[T]) Peek() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.valid || time.Since(m.fetchedAt) >= m.ttl {
		var zero T
		return zero, false
	}
	return m.value, true
}
