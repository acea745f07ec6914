// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logchunk compresses trove build-log chunks for the
// coordinator wire.
//
// Build logs are text and compress well, so the coordinator packs
// each get-trove-build-log response with zstd by default. lz4 is
// available for coordinators that favour CPU over size. A chunk that
// does not shrink is sent uncompressed. The uncompressed size travels
// with every chunk and is checked on unpack, so a truncated or
// corrupted frame is an error rather than a garbled log line.
package logchunk
