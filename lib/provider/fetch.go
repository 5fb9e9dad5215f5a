// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	"github.com/qibo-tii/provider/lib/archive"
)

// copyBufferSize is the chunk size used when spooling an archive.
const copyBufferSize = 32 << 10

// Result is a successfully retrieved and extracted job result.
type Result struct {
	JobID string

	// Directory holds the extracted members and nothing else.
	Directory string

	// ReceiptPath is the receipt written beside Directory.
	ReceiptPath string

	// ArtifactPath is the member passed to the ResultLoader.
	ArtifactPath string

	// Members are the slash-separated names of the extracted files.
	Members []string

	// Digest is the hex BLAKE3 digest of the archive as received.
	Digest string

	// Value is what the ResultLoader returned.
	Value any
}

// spooledArchive describes a result stream written to local disk.
type spooledArchive struct {
	path   string
	digest string
	size   int64
}

// writeStreamToTempFile copies source into a new spool file chunk by
// chunk, hashing as it goes. The file is closed before returning, and
// its path is returned even on failure so the caller can remove it.
func (client *Client) writeStreamToTempFile(source io.Reader) (spooledArchive, error) {
	file, err := client.tempFiles()
	if err != nil {
		return spooledArchive{}, fmt.Errorf("provider: creating spool file: %w", err)
	}
	spooled := spooledArchive{path: file.Name()}

	hasher := blake3.New()
	written, copyErr := io.CopyBuffer(io.MultiWriter(file, hasher), source, make([]byte, copyBufferSize))
	closeErr := file.Close()
	spooled.size = written

	if copyErr != nil {
		return spooled, fmt.Errorf("provider: spooling result to %s: %w", spooled.path, copyErr)
	}
	if closeErr != nil {
		return spooled, fmt.Errorf("provider: closing spool file %s: %w", spooled.path, closeErr)
	}
	spooled.digest = hex.EncodeToString(hasher.Sum(nil))
	return spooled, nil
}

// FetchResult consumes a Completion. The archive is always spooled to a
// temporary file, which is removed before FetchResult returns on every
// path. A job the service reports as errored yields a nil Result and a
// nil error, and the loader is not called. For a successful job the
// archive is extracted into ResultsDir/<job id>, a receipt is written
// to ResultsDir/<job id>.receipt.cbor, and the configured artifact is
// handed to the ResultLoader.
func (client *Client) FetchResult(ctx context.Context, completion *Completion) (*Result, error) {
	if completion == nil || completion.body == nil {
		return nil, errors.New("provider: completion has no response body")
	}
	defer completion.Close()

	spooled, err := client.writeStreamToTempFile(completion.body)
	if spooled.path != "" {
		defer client.removeSpool(spooled.path)
	}
	if err != nil {
		return nil, err
	}

	logger := client.logger.With("job_id", completion.JobID)

	if completion.Status == StatusError {
		logger.Warn("job failed on the service, no result to load",
			"bytes", spooled.size,
		)
		return nil, nil
	}
	if completion.Status != StatusSuccess {
		return nil, fmt.Errorf("provider: job %s is not finished (status %q)", completion.JobID, completion.Status)
	}

	directory := filepath.Join(client.resultsDir, completion.JobID)
	members, err := archive.ExtractTarGzFile(spooled.path, directory, archive.Options{
		MaxBytes: client.maxExtractBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("provider: extracting result of job %s: %w", completion.JobID, err)
	}

	logger.Info("result extracted",
		"path", directory,
		"members", len(members),
		"bytes", spooled.size,
	)

	receipt := Receipt{
		JobID:         completion.JobID,
		Status:        completion.Status,
		BaseURL:       client.baseURL,
		ArchiveDigest: spooled.digest,
		ArchiveBytes:  spooled.size,
		Members:       members,
		Attempts:      completion.Attempts,
		FetchedAt:     client.clock.Now().UTC(),
	}
	receiptPath := ReceiptPath(directory)
	if err := writeReceipt(receiptPath, receipt); err != nil {
		return nil, err
	}

	artifactPath := filepath.Join(directory, client.artifactName)
	value, err := client.loader.LoadResult(ctx, artifactPath)
	if err != nil {
		return nil, fmt.Errorf("provider: loading result of job %s: %w", completion.JobID, err)
	}

	return &Result{
		JobID:        completion.JobID,
		Directory:    directory,
		ReceiptPath:  receiptPath,
		ArtifactPath: artifactPath,
		Members:      members,
		Digest:       spooled.digest,
		Value:        value,
	}, nil
}

func (client *Client) removeSpool(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		client.logger.Warn("removing spool file failed", "path", path, "error", err)
	}
}
