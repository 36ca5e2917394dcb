// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package cache

// splitChunks partitions items into consecutive slices of at most size
// elements. The slices share items' backing array.
func splitChunks[T any](items []T, size int) [][]T {
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}

// chunkSpan returns the first and last chunk index covering positions
// [start, end) of a collection chunked by size. end must be > start.
func chunkSpan(start, end, size int) (first, last int) {
	return start / size, (end - 1) / size
}

// window clamps [offset, offset+limit) to a collection of total items.
// A non-positive limit means "to the end".
func window(total, offset, limit int) (start, end int) {
	start = max(offset, 0)
	if start > total {
		start = total
	}
	end = total
	if limit > 0 && start+limit < total {
		end = start + limit
	}
	return start, end
}
