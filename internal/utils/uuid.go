// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces queue item identifiers of the form
// <prefix>_<unix millis>_<random suffix>.
//
// The random suffix is taken from a UUIDv7, so identifiers stay unique even
// when two items of the same type are created within the same millisecond.
type IDGenerator struct {
	now func() time.Time
}

// NewIDGenerator returns an IDGenerator backed by the wall clock.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

// NewIDGeneratorWithClock returns an IDGenerator that reads time from now.
func NewIDGeneratorWithClock(now func() time.Time) *IDGenerator {
	return &IDGenerator{now: now}
}

// Generate returns a new identifier for the given prefix.
func (g *IDGenerator) Generate(prefix string) string {
	var b strings.Builder
	b.Grow(len(prefix) + 32)
	b.WriteString(prefix)
	b.WriteByte('_')
	b.WriteString(strconv.FormatInt(g.now().UnixMilli(), 10))
	b.WriteByte('_')
	b.WriteString(randomSuffix())
	return b.String()
}

// randomSuffix returns the random tail of a UUIDv7 (the last 12 hex digits).
func randomSuffix() string {
	v7, err := uuid.NewV7()
	if err != nil {
		v7 = uuid.New()
	}
	s := v7.String()
	return s[len(s)-12:]
}
