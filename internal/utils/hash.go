// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"sync"
)

// Signer computes HMAC-SHA256 signatures of request bodies so the server can
// verify that a replayed mutation was not altered while it sat in the queue.
//
// Hash instances are pooled per Signer to avoid an allocation per request.
type Signer struct {
	pool sync.Pool
	key  []byte
}

// NewSigner returns a Signer for hashKey. An empty key yields a Signer whose
// Sign method returns an empty string, which disables the signature header.
func NewSigner(hashKey string) *Signer {
	key := []byte(hashKey)
	s := &Signer{key: key}
	s.pool.New = func() any {
		return hmac.New(sha256.New, key)
	}
	return s
}

// Enabled reports whether the signer has a key.
func (s *Signer) Enabled() bool {
	return s != nil && len(s.key) > 0
}

// Sign returns the hex-encoded HMAC-SHA256 of data.
func (s *Signer) Sign(data []byte) string {
	if !s.Enabled() {
		return ""
	}

	h := s.pool.Get().(hash.Hash)
	h.Reset()
	h.Write(data)
	sum := h.Sum(nil)
	h.Reset()
	s.pool.Put(h)

	return hex.EncodeToString(sum)
}

// HashString computes a one-off hex HMAC-SHA256 of data with hashKey.
func HashString(data string, hashKey string) string {
	h := hmac.New(sha256.New, []byte(hashKey))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}
