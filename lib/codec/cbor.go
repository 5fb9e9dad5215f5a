// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// receiptEncoding writes the same bytes for the same receipt on every
// run, so two receipts for one archive compare equal with cmp(1).
var receiptEncoding = mustEncMode(func() cbor.EncOptions {
	options := cbor.CoreDetEncOptions()
	options.Time = cbor.TimeRFC3339Nano
	return options
}())

// receiptDecoding skips fields it does not know, so a receipt written
// by a newer client still loads, but refuses a map that names the same
// key twice: a receipt is an audit record and must not be ambiguous.
var receiptDecoding = mustDecMode(cbor.DecOptions{
	DupMapKey:      cbor.DupMapKeyEnforcedAPF,
	DefaultMapType: reflect.TypeOf(map[string]any(nil)),
})

func mustEncMode(options cbor.EncOptions) cbor.EncMode {
	mode, err := options.EncMode()
	if err != nil {
		panic("codec: invalid CBOR encoding options: " + err.Error())
	}
	return mode
}

func mustDecMode(options cbor.DecOptions) cbor.DecMode {
	mode, err := options.DecMode()
	if err != nil {
		panic("codec: invalid CBOR decoding options: " + err.Error())
	}
	return mode
}

// Marshal encodes v deterministically.
func Marshal(v any) ([]byte, error) {
	return receiptEncoding.Marshal(v)
}

// Unmarshal decodes data into v. Untyped maps decode with string keys.
func Unmarshal(data []byte, v any) error {
	return receiptDecoding.Unmarshal(data, v)
}
