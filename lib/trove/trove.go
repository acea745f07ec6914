// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trove

import (
	"fmt"
	"strconv"
	"strings"
)

// JobID identifies one build request. It scopes every trove and log
// line belonging to that request.
type JobID int64

// String returns the decimal form used in status lines.
func (id JobID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseJobID parses a decimal job id.
func ParseJobID(text string) (JobID, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid job id %q: %w", text, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("invalid job id %q: must not be negative", text)
	}
	return JobID(value), nil
}

// Tuple is the (name, version, flavor) identity of a buildable unit.
// Version and flavor are frozen strings from the package model; an
// empty string means "unspecified".
type Tuple struct {
	_       struct{} `cbor:",toarray"`
	Name    string
	Version string
	Flavor  string
}

// NewTuple returns a Tuple.
func NewTuple(name, version, flavor string) Tuple {
	return Tuple{Name: name, Version: version, Flavor: flavor}
}

// Spec renders the tuple as "name=version[flavor]". Blank fields stay
// blank, so a bare name renders as "name=[]".
func (t Tuple) Spec() string {
	return t.Name + "=" + t.Version + "[" + t.Flavor + "]"
}

// String returns Spec.
func (t Tuple) String() string { return t.Spec() }

// ParseSpec parses a trove spec of the form name[=version][[flavor]].
// A missing version or flavor yields an empty string.
func ParseSpec(spec string) (Tuple, error) {
	rest := spec
	var flavor string
	if open := strings.IndexByte(rest, '['); open >= 0 {
		if !strings.HasSuffix(rest, "]") {
			return Tuple{}, fmt.Errorf("trove spec %q: unterminated flavor", spec)
		}
		flavor = rest[open+1 : len(rest)-1]
		rest = rest[:open]
	}

	name, version, _ := strings.Cut(rest, "=")
	if name == "" {
		return Tuple{}, fmt.Errorf("trove spec %q: missing name", spec)
	}
	return NewTuple(name, version, flavor), nil
}

// Key identifies a trove within a job. It is comparable and used as a
// map key for per-trove state such as log tail cursors.
type Key struct {
	_     struct{} `cbor:",toarray"`
	Job   JobID
	Trove Tuple
}

// NewKey returns the key for trove within job.
func NewKey(job JobID, trove Tuple) Key {
	return Key{Job: job, Trove: trove}
}

// String renders the key for log attributes.
func (k Key) String() string {
	return k.Job.String() + "/" + k.Trove.Spec()
}
