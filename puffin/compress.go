package puffin

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Encoder/decoder pools: zstd contexts are expensive to create and safe to
// reuse serially.
var (
	zstdEncPool = sync.Pool{
		New: func() any {
			enc, err := zstd.NewWriter(nil,
				zstd.WithEncoderLevel(zstd.SpeedDefault),
				zstd.WithEncoderConcurrency(1),
			)
			if err != nil {
				panic(fmt.Sprintf("puffin: zstd encoder init: %v", err))
			}
			return enc
		},
	}
	zstdDecPool = sync.Pool{
		New: func() any {
			dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
			if err != nil {
				panic(fmt.Sprintf("puffin: zstd decoder init: %v", err))
			}
			return dec
		},
	}
)

// compress encodes data with the given codec. Both codecs emit
// self-describing frames, so decompression needs no stored original size.
func compress(codec CompressionCodec, data []byte) ([]byte, error) {
	switch codec {
	case CompressionNone:
		return data, nil

	case CompressionZstd:
		enc := zstdEncPool.Get().(*zstd.Encoder)
		defer zstdEncPool.Put(enc)
		return enc.EncodeAll(data, nil), nil

	case CompressionLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, fmt.Errorf("puffin: lz4 compress: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("puffin: lz4 compress: %w", err)
		}
		return buf.Bytes(), nil

	default:
		return nil, fmt.Errorf("puffin: %w: %q", ErrUnsupportedCodec, codec)
	}
}

// decompress decodes data written by compress.
func decompress(codec CompressionCodec, data []byte) ([]byte, error) {
	switch codec {
	case CompressionNone:
		return data, nil

	case CompressionZstd:
		dec := zstdDecPool.Get().(*zstd.Decoder)
		defer zstdDecPool.Put(dec)
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("puffin: zstd decompress: %w", err)
		}
		return out, nil

	case CompressionLZ4:
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("puffin: lz4 decompress: %w", err)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("puffin: %w: %q", ErrUnsupportedCodec, codec)
	}
}
