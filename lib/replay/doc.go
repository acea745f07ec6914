// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package replay serves a recorded build job as if it were a live
// coordinator.
//
// A recording is a YAML file describing a job: its starting state, its
// job log, its troves with their build logs, and the events the
// coordinator sent while it built. [Parse] and [LoadFile] turn it into
// a [Script]; a [Coordinator] answers the query protocol from the
// script's state and plays its events to every monitor that
// subscribes (or dials a hosted endpoint).
//
// Each monitor hears the whole recording from the first event. The
// state served to queries only moves forward: it reflects the furthest
// event any monitor has been sent, so a monitor that joins late primes
// from an advanced job and then hears the history again.
//
// A minimal recording:
//
//	job:
//	  id: 42
//	  state: loaded
//	troves:
//	  - spec: tmpwatch:source=/conary.rpath.com@rpl:1/2.9.1-1[]
//	    build_log: |
//	      + make
//	events:
//	  - {kind: JOB_STATE_UPDATED, state: building}
//	  - {kind: TROVE_STATE_UPDATED, trove: "tmpwatch:source=/conary.rpath.com@rpl:1/2.9.1-1[]", state: building}
//	  - {kind: TROVE_STATE_UPDATED, trove: "tmpwatch:source=/conary.rpath.com@rpl:1/2.9.1-1[]", state: built}
//	  - {kind: JOB_STATE_UPDATED, state: built}
package replay
