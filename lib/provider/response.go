// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"encoding/json"
	"errors"
	"fmt"
)

// CheckResponseHasKeys decodes body as a JSON object and verifies that
// every key in keys is present. A key whose value is null counts as
// present. On success it returns the decoded fields for the caller to
// destructure; every JSON body the client reads goes through here first.
func CheckResponseHasKeys(body []byte, keys ...string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, &MalformedResponseError{Err: fmt.Errorf("body is not a JSON object: %w", err)}
	}
	if fields == nil {
		// The literal null decodes without error into a nil map.
		return nil, &MalformedResponseError{Err: errors.New("body is not a JSON object: null")}
	}

	var missing []string
	for _, key := range keys {
		if _, ok := fields[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &MalformedResponseError{Missing: missing}
	}
	return fields, nil
}

// isNull reports whether a raw field is absent or the JSON literal null.
func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
