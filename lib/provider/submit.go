// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
)

const (
	// DefaultShots is used when RunOptions.Shots is zero.
	DefaultShots = 1000

	// DefaultDevice is used when RunOptions.Device is empty.
	DefaultDevice = "sim"
)

// Circuit is anything that can produce the serialized form the job
// service executes. Circuit construction lives outside this package.
type Circuit interface {
	Serialize() ([]byte, error)
}

// RawCircuit is an already-serialized circuit.
type RawCircuit []byte

// Serialize returns the circuit bytes unchanged.
func (circuit RawCircuit) Serialize() ([]byte, error) {
	if len(circuit) == 0 {
		return nil, errors.New("empty circuit")
	}
	return []byte(circuit), nil
}

// RunOptions carries the per-submission execution parameters.
type RunOptions struct {
	// Shots is the number of circuit executions. Zero selects
	// DefaultShots.
	Shots int

	// Device names the backend device. Empty selects DefaultDevice.
	Device string
}

func (options RunOptions) normalize() (RunOptions, error) {
	if options.Shots < 0 {
		return options, fmt.Errorf("provider: shots must be positive (got %d)", options.Shots)
	}
	if options.Shots == 0 {
		options.Shots = DefaultShots
	}
	options.Device = strings.TrimSpace(options.Device)
	if options.Device == "" {
		options.Device = DefaultDevice
	}
	return options, nil
}

// submissionPayload is the run_circuit request body. The circuit bytes
// are sent base64-encoded, which is how encoding/json renders []byte.
type submissionPayload struct {
	Circuit []byte `json:"circuit"`
	Shots   int    `json:"nshots"`
	Device  string `json:"device"`
}

// PostCircuit submits a circuit for execution and returns the job id the
// service assigned. When the service answers without an id it returns a
// *JobPostServerError carrying the service's message.
func (client *Client) PostCircuit(ctx context.Context, circuit Circuit, options RunOptions) (string, error) {
	if circuit == nil {
		return "", errors.New("provider: circuit is required")
	}
	options, err := options.normalize()
	if err != nil {
		return "", err
	}
	serialized, err := circuit.Serialize()
	if err != nil {
		return "", fmt.Errorf("provider: serializing circuit: %w", err)
	}

	payload := submissionPayload{
		Circuit: serialized,
		Shots:   options.Shots,
		Device:  options.Device,
	}
	fields, err := client.doJSON(ctx, http.MethodPost, runCircuitPath, payload, "pid", "message")
	if err != nil {
		return "", err
	}

	message := decodeMessage(fields["message"])
	jobID, err := decodeJobID(fields["pid"])
	if err != nil {
		return "", &MalformedResponseError{Endpoint: runCircuitPath, Err: err}
	}
	if jobID == "" {
		return "", &JobPostServerError{Message: message}
	}
	if err := ValidateJobID(jobID); err != nil {
		return "", &MalformedResponseError{Endpoint: runCircuitPath, Err: err}
	}

	client.logger.Info("job submitted",
		"job_id", jobID,
		"shots", options.Shots,
		"device", options.Device,
		"message", message,
	)
	return jobID, nil
}

// decodeJobID accepts a string or a JSON number. Null and the empty
// string both mean the service declined the job.
func decodeJobID(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return "", fmt.Errorf("pid: %w", err)
	}
	switch typed := value.(type) {
	case string:
		return typed, nil
	case json.Number:
		return typed.String(), nil
	default:
		return "", fmt.Errorf("pid has unsupported JSON type %T", value)
	}
}

// decodeMessage renders the service's message field as text. Non-string
// messages are kept in their JSON form rather than dropped.
func decodeMessage(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var message string
	if err := json.Unmarshal(raw, &message); err == nil {
		return message
	}
	return string(raw)
}

// ValidateJobID checks that a job id can name a single directory under
// the results root. Ids come from the service and are used as path
// components, so separators and dot segments are refused, as are ids
// that would land on another job's receipt.
func ValidateJobID(jobID string) error {
	if jobID == "" {
		return errors.New("job id is empty")
	}
	if strings.ContainsAny(jobID, `/\`) || jobID == "." || jobID == ".." || !filepath.IsLocal(jobID) {
		return fmt.Errorf("job id %q is not a plain identifier", jobID)
	}
	if strings.HasSuffix(jobID, ReceiptSuffix) || strings.HasSuffix(jobID, ReceiptSuffix+".tmp") {
		return fmt.Errorf("job id %q collides with a receipt name", jobID)
	}
	return nil
}
