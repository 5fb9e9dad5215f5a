// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"context"
	"fmt"
	"os"
)

// ResultLoader turns an extracted artifact file into a result value.
// Decoding the numeric result format is the caller's concern; the
// client only hands over the path.
type ResultLoader interface {
	LoadResult(ctx context.Context, path string) (any, error)
}

// ResultLoaderFunc adapts a function to ResultLoader.
type ResultLoaderFunc func(ctx context.Context, path string) (any, error)

// LoadResult calls f(ctx, path).
func (f ResultLoaderFunc) LoadResult(ctx context.Context, path string) (any, error) {
	return f(ctx, path)
}

// PathLoader returns the artifact path itself after checking that it
// names a regular file.
var PathLoader ResultLoader = ResultLoaderFunc(func(_ context.Context, path string) (any, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}
	return path, nil
})
