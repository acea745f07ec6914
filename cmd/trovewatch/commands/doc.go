// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands assembles the trovewatch command tree.
//
//   - watch: print a job's progress until it finishes
//   - wait: block until a job finishes and exit with its outcome
//   - failure show: decode a frozen failure reason
//   - replay: serve a recorded job as a stand-in coordinator
//   - version: print build information
//
// Session defaults come from the configuration file (see lib/config);
// flags override them.
package commands
