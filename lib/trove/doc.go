// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package trove defines the identities and states shared by every
// part of the monitor: job ids, trove tuples, the composite (job,
// trove) key, and the job and trove state enumerations with their
// canonical display names.
//
// A trove tuple belongs to the external package model. The monitor
// treats it as an opaque comparable key and only looks inside it to
// print the trove name or to render the "name=version[flavor]" spec
// used by the failure wire format.
package trove
