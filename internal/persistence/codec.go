package persistence

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"
)

// Codec names the compression applied to a stored snapshot.
type Codec string

const (
	CodecNone Codec = "none"
	CodecZstd Codec = "zstd"
	CodecLZ4  Codec = "lz4"
)

// ParseCodec validates a codec name. The empty string selects zstd.
func ParseCodec(name string) (Codec, error) {
	switch Codec(name) {
	case "":
		return CodecZstd, nil
	case CodecNone, CodecZstd, CodecLZ4:
		return Codec(name), nil
	}
	return "", fmt.Errorf("unknown save codec %q", name)
}

var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
	zstdErr  error
)

// zstdCodecs returns the shared stateless encoder and decoder.
// EncodeAll and DecodeAll are safe for concurrent use.
func zstdCodecs() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEnc, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if zstdErr != nil {
			return
		}
		zstdDec, zstdErr = zstd.NewReader(nil)
	})
	return zstdEnc, zstdDec, zstdErr
}

// Encode compresses data.
func (c Codec) Encode(data []byte) ([]byte, error) {
	switch c {
	case CodecNone:
		return append([]byte(nil), data...), nil
	case CodecZstd:
		enc, _, err := zstdCodecs()
		if err != nil {
			return nil, err
		}
		return enc.EncodeAll(data, nil), nil
	case CodecLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, fmt.Errorf("lz4 write: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("lz4 close: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown save codec %q", c)
}

// Decode reverses Encode.
func (c Codec) Decode(data []byte) ([]byte, error) {
	switch c {
	case CodecNone:
		return append([]byte(nil), data...), nil
	case CodecZstd:
		_, dec, err := zstdCodecs()
		if err != nil {
			return nil, err
		}
		return dec.DecodeAll(data, nil)
	case CodecLZ4:
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("lz4 read: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown save codec %q", c)
}

// Checksum is the hex BLAKE3-256 digest of data.
func Checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
