// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package cache

import (
	"encoding/base64"
	"fmt"

	"github.com/golang/snappy"
)

// Codec turns encoded JSON into the string stored for blobs and chunks.
type Codec interface {
	Encode(data []byte) string
	Decode(value string) ([]byte, error)
}

// PlainCodec stores JSON as is.
type PlainCodec struct{}

func (PlainCodec) Encode(data []byte) string { return string(data) }

func (PlainCodec) Decode(value string) ([]byte, error) { return []byte(value), nil }

// SnappyCodec stores snappy-compressed JSON, base64 encoded so every backend
// can keep it in a text column. Values that are still plain JSON (written
// before compression was enabled) decode unchanged.
type SnappyCodec struct{}

func (SnappyCodec) Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(snappy.Encode(nil, data))
}

func (SnappyCodec) Decode(value string) ([]byte, error) {
	if len(value) > 0 && (value[0] == '{' || value[0] == '[') {
		return []byte(value), nil
	}

	compressed, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}

	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("decode snappy: %w", err)
	}
	return data, nil
}
