// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package cache

import (
	"bytes"
	"encoding/json"
)

// FieldEquals returns a [LoadOptions] filter matching entities whose JSON
// field equals value, compared by JSON encoding.
func FieldEquals[T any](field string, value any) func(T) bool {
	want, err := json.Marshal(value)
	if err != nil {
		return func(T) bool { return false }
	}

	return func(item T) bool {
		data, err := json.Marshal(item)
		if err != nil {
			return false
		}

		var fields map[string]json.RawMessage
		if err = json.Unmarshal(data, &fields); err != nil {
			return false
		}

		got, ok := fields[field]
		return ok && bytes.Equal(got, want)
	}
}
