// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads trovewatch configuration.
//
// Configuration comes from a single file named by either the
// TROVEWATCH_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). [Open] picks between the two and falls back
// to [Default] when neither names a file. There is no ~/.config
// discovery and no per-field environment override: the file is the
// single source of truth.
//
// Files ending in .json or .jsonc are JSON with comments and trailing
// commas; anything else is YAML. Both map onto the same keys.
//
// Variable expansion is performed on path fields after loading:
// ${HOME} and ${VAR:-default} patterns are expanded.
//
// This package depends on no other trovewatch packages.
package config
