// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"fmt"
	"slices"

	"github.com/bureau-foundation/trovewatch/lib/codec"
)

// ArgumentError reports an event whose arguments do not match the
// registered signature for its kind.
type ArgumentError struct {
	Kind Kind

	// Position is the index of the argument that failed to decode,
	// or -1 when the argument count was wrong.
	Position int

	Err error
}

func (e *ArgumentError) Error() string {
	if e.Position < 0 {
		return fmt.Sprintf("event %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("event %s: argument %d: %v", e.Kind, e.Position, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

type handler func(subscriber Subscriber, kind Kind, args []codec.RawMessage) error

// handlers is the dispatch table. It is read-only after package
// initialization.
var handlers = map[Kind]handler{
	JobStateUpdated:      bind3(Subscriber.JobStateUpdated),
	JobLogUpdated:        bind3(Subscriber.JobLogUpdated),
	JobTrovesSet:         bind2(Subscriber.JobTrovesSet),
	TroveStateUpdated:    bind3(Subscriber.TroveStateUpdated),
	TroveLogUpdated:      bind3(Subscriber.TroveLogUpdated),
	TrovePreparingChroot: bind3(Subscriber.TrovePreparingChroot),
}

// Dispatch decodes event's arguments and calls the matching method on
// subscriber. Unknown kinds are ignored and return nil. A known kind
// with the wrong number of arguments, or an argument that does not
// decode to the registered type, returns an *ArgumentError without
// calling the subscriber.
func Dispatch(subscriber Subscriber, event Event) error {
	handle, ok := handlers[event.Kind]
	if !ok {
		return nil
	}
	return handle(subscriber, event.Kind, event.Args)
}

// Known reports whether kind has a registered handler.
func Known(kind Kind) bool {
	_, ok := handlers[kind]
	return ok
}

// Kinds returns every registered kind in sorted order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(handlers))
	for kind := range handlers {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	return kinds
}

func bind2[A, B any](method func(Subscriber, A, B)) handler {
	return func(subscriber Subscriber, kind Kind, args []codec.RawMessage) error {
		var a A
		var b B
		if err := decodeArgs(kind, args, &a, &b); err != nil {
			return err
		}
		method(subscriber, a, b)
		return nil
	}
}

func bind3[A, B, C any](method func(Subscriber, A, B, C)) handler {
	return func(subscriber Subscriber, kind Kind, args []codec.RawMessage) error {
		var a A
		var b B
		var c C
		if err := decodeArgs(kind, args, &a, &b, &c); err != nil {
			return err
		}
		method(subscriber, a, b, c)
		return nil
	}
}

func decodeArgs(kind Kind, args []codec.RawMessage, targets ...any) error {
	if len(args) != len(targets) {
		return &ArgumentError{
			Kind:     kind,
			Position: -1,
			Err:      fmt.Errorf("got %d arguments, want %d", len(args), len(targets)),
		}
	}
	for i, target := range targets {
		if err := codec.Unmarshal(args[i], target); err != nil {
			return &ArgumentError{Kind: kind, Position: i, Err: err}
		}
	}
	return nil
}
