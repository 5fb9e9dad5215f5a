// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration used for files
// the client writes for itself, such as the job receipt stored next to
// extracted results.
//
// JSON stays the format of the HTTP contract with the job service. CBOR
// is used only for local state, where deterministic bytes make receipts
// comparable across runs: the encoder uses Core Deterministic Encoding
// (RFC 8949 §4.2) with RFC 3339 timestamps.
//
//	data, err := codec.Marshal(receipt)
//	err = codec.Unmarshal(data, &receipt)
package codec
