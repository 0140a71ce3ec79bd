package cache

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Encoded values start with a one-byte header.
const (
	headerRaw  byte = 0
	headerZstd byte = 1
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// encode marshals v as JSON and compresses it when it is larger than
// threshold bytes. A threshold of zero or less never compresses.
func encode(v any, threshold int) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cache encode: %w", err)
	}
	if threshold > 0 && len(raw) > threshold {
		out := make([]byte, 1, len(raw)/2)
		out[0] = headerZstd
		return zstdEncoder.EncodeAll(raw, out), nil
	}
	out := make([]byte, 0, len(raw)+1)
	out = append(out, headerRaw)
	return append(out, raw...), nil
}

// decode reverses encode into dst.
func decode(b []byte, dst any) error {
	if len(b) == 0 {
		return errors.New("cache decode: empty value")
	}
	raw := b[1:]
	switch b[0] {
	case headerRaw:
	case headerZstd:
		var err error
		raw, err = zstdDecoder.DecodeAll(raw, nil)
		if err != nil {
			return fmt.Errorf("cache decode: %w", err)
		}
	default:
		return fmt.Errorf("cache decode: unknown header %d", b[0])
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("cache decode: %w", err)
	}
	return nil
}
