// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the provider client configuration file.
//
// Configuration comes from a single file named either by the
// TII_PROVIDER_CONFIG environment variable (via [Load]) or by the
// embedding application (via [LoadFile]). YAML is the primary format;
// files ending in .json or .jsonc are accepted as JSON with comments and
// trailing commas. There is no discovery and no per-value environment
// override.
//
// The file may contain development, staging and production sections
// that override base values when [Config].Environment matches, which is
// how a single file points at a local mock server in development and at
// the real cluster in production.
//
// ${HOME}, ${TII_PROVIDER_ROOT} and ${VAR:-default} patterns are expanded
// in path fields after loading.
//
// This package depends on no other provider packages.
package config
