// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package failure is the closed taxonomy of reasons a trove or job can
// fail, together with the compact wire form used to carry a reason
// from the coordinator to a monitor.
//
// Every variant has a stable integer [Tag]. The tag is part of the
// wire contract: tags are never renumbered or reused, and a new
// variant gets a new tag. A reason travels as a [Frozen] pair of
// (decimal tag, payload string); the payload layout is specific to the
// variant:
//
//   - [Failed], [Stopped]: the message verbatim.
//   - [BuildFailed], [ChrootFailed], [LoadFailed], [InternalError]:
//     message and traceback joined by a NUL byte.
//   - [CommandFailed]: message, traceback and command id joined by NUL.
//   - [MissingBuildReqs]: NUL-joined "name=version[flavor]" specs.
//   - [MissingDependencies]: NUL-joined records, each a spec and a
//     frozen dependency set joined by a 0x01 byte.
//
// [Freeze] and [Thaw] are inverse: Thaw(Freeze(r)) is [Equal] to r
// for every reason, and the nil reason freezes to ("", "").
//
// The decoder registry is built once during package initialization and
// is read-only afterwards. Thawing a tag the registry does not know is
// a protocol mismatch between coordinator and monitor and returns
// [*UnknownTagError]; there is no placeholder variant.
package failure
