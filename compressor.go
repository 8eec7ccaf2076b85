package cache

/*
Compressor abstracts the general-purpose lossless codec used by the cold
tier's CompressedStore. Keeping it as an interface -- rather than
importing klauspost/compress/zstd directly from multitier -- means:

  - tests can substitute a trivial identity codec and assert byte-for-byte
    round trips without paying zstd's setup cost;
  - swapping codecs later (snappy, gzip) touches one constructor, not every
    call site.

The production implementation lives in cache/codec.
*/
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}
