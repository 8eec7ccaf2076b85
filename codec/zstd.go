// Package codec provides production Compressor implementations for the
// cold-tier CompressedStore.
package codec

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

/*
ZSTD wraps klauspost/compress/zstd behind the cache.Compressor interface.
zstd was chosen over stdlib compress/gzip or compress/flate as a modern,
allocation-conscious general-purpose compressor with a pure-Go
implementation.

A single encoder/decoder pair is reused across calls -- zstd's encoder and
decoder are safe for concurrent use once constructed, so CompressedStore
does not need to build one per entry.
*/
type ZSTD struct {
	mu  sync.Mutex
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewZSTD builds a ready-to-use ZSTD compressor at the default speed/ratio
// tradeoff.
func NewZSTD() (*ZSTD, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("codec: new zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("codec: new zstd decoder: %w", err)
	}
	return &ZSTD{enc: enc, dec: dec}, nil
}

func (z *ZSTD) Compress(data []byte) ([]byte, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.enc.EncodeAll(data, make([]byte, 0, len(data))), nil
}

func (z *ZSTD) Decompress(data []byte) ([]byte, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	out, err := z.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("codec: zstd decode: %w", err)
	}
	return out, nil
}

// Close releases the encoder's background resources. The decoder has none.
func (z *ZSTD) Close() {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.enc.Close()
}
