// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package event defines the coordinator's event kinds and dispatches
// them to a [Subscriber].
//
// An [Event] is a kind name plus positional arguments, each carried as
// raw CBOR until dispatch. The registry in this package knows, for
// every kind, how many arguments it carries and which Go type each
// position decodes to. [Dispatch] decodes the arguments and calls the
// matching Subscriber method. Kinds the registry does not know are
// ignored, so an older monitor keeps working against a coordinator
// that has grown new events.
//
// Dispatch is not safe for concurrent use on one subscriber. The
// listen loop in lib/coordinator is the only caller and delivers
// events strictly one at a time.
package event
