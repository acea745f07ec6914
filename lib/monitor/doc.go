// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package monitor follows a build job and reports its progress.
//
// A session ([MonitorJob] or [WaitForJob]) resolves an event endpoint,
// builds a display, primes it from the coordinator's current view of
// the job, and hands it to the coordinator client's listen loop until
// the job finishes or the stream ends. The temporary endpoint and the
// display are released on every exit path.
//
// [JobLogDisplay] prints one timestamped line per status event and
// optionally tails the build logs of troves that are building. Tailing
// is incremental: each trove has a cursor (the mark, an offset into
// its remote log) and a tailing flag. Cursors survive a pause in
// tailing, so a trove that goes back to building resumes where it
// left off. The log poller runs only when the listen loop calls Poll,
// at most once per poll interval, and a failed fetch is retried on
// the next tick without losing the cursor.
//
// [SilentDisplay] prints nothing and only tracks whether the job has
// finished.
//
// A display is driven by exactly one listen loop and is not safe for
// concurrent use.
package monitor
