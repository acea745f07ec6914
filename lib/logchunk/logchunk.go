// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logchunk

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies how a chunk's bytes are encoded. The values
// are wire constants.
type Compression uint8

const (
	None Compression = 0
	LZ4  Compression = 1
	Zstd Compression = 2
)

// String returns the configuration name of the algorithm.
func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a configuration name.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return 0, fmt.Errorf("unknown log compression %q (want none, lz4, or zstd)", name)
	}
}

// Chunk is one packed piece of a build log.
type Chunk struct {
	Compression Compression `cbor:"compression"`
	Size        int         `cbor:"size"`
	Data        []byte      `cbor:"data"`
}

// errIncompressible means compression did not shrink the input.
var errIncompressible = errors.New("log chunk is incompressible")

// Pack compresses text with the preferred algorithm, falling back to
// None when the result would not be smaller.
func Pack(text string, preferred Compression) (Chunk, error) {
	data := []byte(text)
	var (
		packed []byte
		err    error
	)
	switch preferred {
	case None:
		return Chunk{Compression: None, Size: len(data), Data: data}, nil
	case LZ4:
		packed, err = compressLZ4(data)
	case Zstd:
		packed, err = compressZstd(data)
	default:
		return Chunk{}, fmt.Errorf("packing log chunk: unsupported compression %s", preferred)
	}
	if errors.Is(err, errIncompressible) {
		return Chunk{Compression: None, Size: len(data), Data: data}, nil
	}
	if err != nil {
		return Chunk{}, err
	}
	return Chunk{Compression: preferred, Size: len(data), Data: packed}, nil
}

// Unpack returns the chunk's text. The decoded length must equal
// Size.
func (c Chunk) Unpack() (string, error) {
	if c.Size < 0 {
		return "", fmt.Errorf("log chunk: negative size %d", c.Size)
	}
	switch c.Compression {
	case None:
		if len(c.Data) != c.Size {
			return "", fmt.Errorf("uncompressed log chunk: size %d does not match expected %d", len(c.Data), c.Size)
		}
		return string(c.Data), nil
	case LZ4:
		data, err := decompressLZ4(c.Data, c.Size)
		return string(data), err
	case Zstd:
		data, err := decompressZstd(c.Data, c.Size)
		return string(data), err
	default:
		return "", fmt.Errorf("log chunk: unsupported compression %s", c.Compression)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock returns 0 for incompressible input.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(compressed []byte, size int) ([]byte, error) {
	destination := make([]byte, size)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if read != size {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, size)
	}
	return destination, nil
}

// Shared codec instances; both are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("logchunk: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("logchunk: zstd decoder initialization failed: " + err.Error())
	}
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

func decompressZstd(compressed []byte, size int) ([]byte, error) {
	result, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, size))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(result) != size {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), size)
	}
	return result, nil
}
