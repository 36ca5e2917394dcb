// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package cache

import (
	"strconv"
	"strings"
)

// keyPrefix namespaces every cache record in the key/value store.
const keyPrefix = "@checkin_cache:"

// scopeKeys derives the storage keys of one cached collection:
//
//	@checkin_cache:<collection>:<scope>:meta
//	@checkin_cache:<collection>:<scope>:blob
//	@checkin_cache:<collection>:<scope>:chunk:<i>
//	@checkin_cache:<collection>:<scope>:index
type scopeKeys struct {
	base string
}

func newScopeKeys(collection, scope string) scopeKeys {
	return scopeKeys{base: collectionPrefix(collection) + scope}
}

func collectionPrefix(collection string) string {
	return keyPrefix + collection + ":"
}

func (k scopeKeys) meta() string  { return k.base + ":meta" }
func (k scopeKeys) blob() string  { return k.base + ":blob" }
func (k scopeKeys) index() string { return k.base + ":index" }

func (k scopeKeys) chunk(i int) string {
	return k.base + ":chunk:" + strconv.Itoa(i)
}

// owns reports whether key is one of this scope's records. Scopes may
// contain ':' themselves, so the remainder must be an exact record suffix.
func (k scopeKeys) owns(key string) bool {
	rest, ok := strings.CutPrefix(key, k.base+":")
	if !ok {
		return false
	}

	switch rest {
	case "meta", "blob", "index":
		return true
	}

	n, ok := strings.CutPrefix(rest, "chunk:")
	if !ok || n == "" {
		return false
	}
	_, err := strconv.Atoi(n)
	return err == nil
}

// scopeFromMetaKey extracts the scope from a metadata key of collection.
func scopeFromMetaKey(collection, key string) (string, bool) {
	prefix := collectionPrefix(collection)
	if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, ":meta") {
		return "", false
	}
	scope := strings.TrimSuffix(strings.TrimPrefix(key, prefix), ":meta")
	return scope, scope != ""
}
