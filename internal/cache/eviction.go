// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package cache

import (
	"context"
	"slices"
	"time"
)

// Evict frees space by removing other collections: every stale one, or, when
// none is stale, the oldest. The scope named by exclude is never touched.
// It returns the number of scopes removed.
func (s *Store[T]) Evict(ctx context.Context, exclude string) int {
	return s.evict(ctx, exclude)
}

type scopeAge struct {
	scope string
	ts    time.Time
}

func (s *Store[T]) evict(ctx context.Context, exclude string) int {
	var candidates []scopeAge
	for _, scope := range s.Scopes(ctx) {
		if scope == exclude {
			continue
		}
		meta, ok := s.readMeta(ctx, scope)
		if !ok {
			continue
		}
		candidates = append(candidates, scopeAge{scope: scope, ts: meta.Timestamp})
	}
	if len(candidates) == 0 {
		return 0
	}

	victims := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if !s.IsFresh(c.ts) {
			victims = append(victims, c.scope)
		}
	}

	if len(victims) == 0 {
		oldest := slices.MinFunc(candidates, func(a, b scopeAge) int {
			return a.ts.Compare(b.ts)
		})
		victims = append(victims, oldest.scope)
	}

	evicted := 0
	for _, scope := range victims {
		l := s.lock(scope)
		// a scope being written right now is skipped rather than waited for
		if !l.TryLock() {
			continue
		}
		err := s.clear(ctx, scope)
		l.Unlock()

		if err == nil {
			evicted++
		}
	}

	s.logger.Info().
		Str("func", "Store.evict").
		Str("exclude", exclude).
		Strs("victims", victims).
		Int("evicted", evicted).
		Msg("cache eviction pass finished")

	return evicted
}
