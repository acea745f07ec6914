// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package failure

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/bureau-foundation/trovewatch/lib/trove"
)

// Frozen is the wire form of a Reason: the decimal tag and the
// variant's payload. It encodes as a two-element CBOR array. The zero
// value represents "no failure".
type Frozen struct {
	_       struct{} `cbor:",toarray"`
	Tag     string
	Payload string
}

// IsZero reports whether f carries no failure.
func (f Frozen) IsZero() bool { return f.Tag == "" }

// UnknownTagError is returned by Thaw for a tag with no registered
// variant. It means the two ends of the connection disagree about the
// taxonomy.
type UnknownTagError struct {
	Tag Tag
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("unknown failure tag %d", int(e.Tag))
}

// DecodeError is returned by Thaw when the tag is not a decimal
// integer or the payload does not match its variant's layout.
type DecodeError struct {
	TagText string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding failure with tag %q: %v", e.TagText, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type decodeFunc func(payload string) (Reason, error)

// registry maps every tag to its payload decoder. Written only by init.
var registry map[Tag]decodeFunc

// knownTags lists every variant. init panics if any of them lacks a
// decoder, so a variant added here without a decoder fails at startup
// rather than at first use.
var knownTags = []Tag{
	TagFailed,
	TagBuildFailed,
	TagMissingBuildReqs,
	TagMissingDependencies,
	TagChrootFailed,
	TagLoadFailed,
	TagInternalError,
	TagStopped,
	TagCommandFailed,
}

func init() {
	registry = make(map[Tag]decodeFunc, len(knownTags))

	register(TagFailed, func(payload string) (Reason, error) {
		return Failed{Message: payload}, nil
	})
	register(TagStopped, func(payload string) (Reason, error) {
		return Stopped{Message: payload}, nil
	})
	register(TagBuildFailed, func(payload string) (Reason, error) {
		exception, err := thawException(payload)
		return BuildFailed{exception}, err
	})
	register(TagChrootFailed, func(payload string) (Reason, error) {
		exception, err := thawException(payload)
		return ChrootFailed{exception}, err
	})
	register(TagLoadFailed, func(payload string) (Reason, error) {
		exception, err := thawException(payload)
		return LoadFailed{exception}, err
	})
	register(TagInternalError, func(payload string) (Reason, error) {
		exception, err := thawException(payload)
		return InternalError{exception}, err
	})
	register(TagCommandFailed, thawCommandFailed)
	register(TagMissingBuildReqs, thawMissingBuildReqs)
	register(TagMissingDependencies, thawMissingDependencies)

	for _, tag := range knownTags {
		if _, ok := registry[tag]; !ok {
			panic(fmt.Sprintf("failure: tag %d has no registered decoder", int(tag)))
		}
	}
}

func register(tag Tag, decode decodeFunc) {
	if _, exists := registry[tag]; exists {
		panic(fmt.Sprintf("failure: duplicate decoder for tag %d", int(tag)))
	}
	registry[tag] = decode
}

// Tags returns every registered tag in ascending order.
func Tags() []Tag {
	tags := make([]Tag, 0, len(registry))
	for tag := range registry {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

// Freeze encodes reason for the wire. A nil reason freezes to the zero
// Frozen.
func Freeze(reason Reason) Frozen {
	if reason == nil {
		return Frozen{}
	}
	return Frozen{Tag: strconv.Itoa(int(reason.Tag())), Payload: reason.payload()}
}

// Thaw reconstructs the Reason encoded in frozen. An empty tag thaws
// to nil regardless of the payload.
func Thaw(frozen Frozen) (Reason, error) {
	if frozen.Tag == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(frozen.Tag)
	if err != nil {
		return nil, &DecodeError{TagText: frozen.Tag, Err: err}
	}
	decode, ok := registry[Tag(value)]
	if !ok {
		return nil, &UnknownTagError{Tag: Tag(value)}
	}
	reason, err := decode(frozen.Payload)
	if err != nil {
		return nil, &DecodeError{TagText: frozen.Tag, Err: err}
	}
	return reason, nil
}

// Equal reports whether a and b are the same variant with the same
// data. The payload is a lossless rendering of the data, so comparing
// payloads compares data.
func Equal(a, b Reason) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Tag() == b.Tag() && a.payload() == b.payload()
}

func thawException(payload string) (Exception, error) {
	message, traceback, found := strings.Cut(payload, fieldSeparator)
	if !found {
		return Exception{}, fmt.Errorf("missing traceback field")
	}
	return Exception{Message: message, Trace: traceback}, nil
}

func thawCommandFailed(payload string) (Reason, error) {
	fields := strings.SplitN(payload, fieldSeparator, 3)
	if len(fields) != 3 {
		return nil, fmt.Errorf("command failure has %d fields, want 3", len(fields))
	}
	return NewCommandFailed(fields[2], fields[0], fields[1]), nil
}

func thawMissingBuildReqs(payload string) (Reason, error) {
	requirements := []trove.Tuple{}
	if payload == "" {
		return MissingBuildReqs{Requirements: requirements}, nil
	}
	for _, spec := range strings.Split(payload, fieldSeparator) {
		requirement, err := trove.ParseSpec(spec)
		if err != nil {
			return nil, err
		}
		requirements = append(requirements, requirement)
	}
	return MissingBuildReqs{Requirements: requirements}, nil
}

func thawMissingDependencies(payload string) (Reason, error) {
	entries := []DependencyFailure{}
	if payload == "" {
		return MissingDependencies{Entries: entries}, nil
	}
	for _, record := range strings.Split(payload, fieldSeparator) {
		spec, requires, found := strings.Cut(record, recordSeparator)
		if !found {
			return nil, fmt.Errorf("dependency record %q has no dependency set", record)
		}
		tuple, err := trove.ParseSpec(spec)
		if err != nil {
			return nil, err
		}
		entries = append(entries, DependencyFailure{Trove: tuple, Requires: DependencySet(requires)})
	}
	return MissingDependencies{Entries: entries}, nil
}
