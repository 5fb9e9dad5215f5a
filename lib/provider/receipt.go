// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/qibo-tii/provider/lib/codec"
)

// ReceiptSuffix is appended to a job's result directory to name its
// receipt. The receipt is a sibling of the directory rather than a file
// inside it, so no archive member can overwrite it or be overwritten by
// it: ResultsDir/123/ holds exactly what the archive held and
// ResultsDir/123.receipt.cbor describes it.
const ReceiptSuffix = ".receipt.cbor"

// ReceiptPath returns where the receipt for the result directory
// directory is stored.
func ReceiptPath(directory string) string {
	return filepath.Clean(directory) + ReceiptSuffix
}

// Receipt records where an extracted result came from, so a results
// directory can be audited without the service.
type Receipt struct {
	JobID   string    `cbor:"job_id"`
	Status  JobStatus `cbor:"status"`
	BaseURL string    `cbor:"base_url"`

	// ArchiveDigest is the hex BLAKE3 digest of the archive as
	// received.
	ArchiveDigest string `cbor:"archive_digest"`
	ArchiveBytes  int64  `cbor:"archive_bytes"`

	Members   []string  `cbor:"members"`
	Attempts  int       `cbor:"attempts"`
	FetchedAt time.Time `cbor:"fetched_at"`
}

func writeReceipt(path string, receipt Receipt) error {
	data, err := codec.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("provider: encoding receipt: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("provider: writing receipt: %w", err)
	}
	return nil
}

// writeFileAtomic writes data beside path, syncs it and renames it into
// place, so a reader sees either no receipt or a complete one.
func writeFileAtomic(path string, data []byte) error {
	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return err
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return err
	}
	return nil
}

// ReadReceipt decodes the receipt stored beside a job's result
// directory, as returned in Result.Directory.
func ReadReceipt(directory string) (*Receipt, error) {
	data, err := os.ReadFile(ReceiptPath(directory))
	if err != nil {
		return nil, fmt.Errorf("provider: reading receipt: %w", err)
	}
	var receipt Receipt
	if err := codec.Unmarshal(data, &receipt); err != nil {
		return nil, fmt.Errorf("provider: decoding receipt: %w", err)
	}
	return &receipt, nil
}
