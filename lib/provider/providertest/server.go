// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

// Package providertest implements the job service's HTTP contract as a
// scripted fake, for tests and for manual end-to-end runs.
//
// Every accepted job follows the same Script: a fixed number of pending
// status responses, then a terminal status carrying an archive body.
// The handler records submissions and per-job poll counts so tests can
// assert on exactly what the client sent.
package providertest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Script describes how every accepted job behaves.
type Script struct {
	// PendingPolls is how many status checks answer pending before the
	// terminal status is returned.
	PendingPolls int

	// Status is the terminal Job-Status header value, normally
	// "success" or "error". Defaults to "success".
	Status string

	// Archive is the body sent with the terminal status.
	Archive []byte

	// OmitPendingHeader leaves the Job-Status header off pending
	// responses instead of sending "pending".
	OmitPendingHeader bool

	// Stall holds every status check open without answering until the
	// client gives up on the request.
	Stall bool
}

// Options configures a Handler.
type Options struct {
	// QiboVersion is reported by the version endpoint.
	QiboVersion string

	// Token, if set, must appear as the bearer token on submissions and
	// status checks. Mismatches get a 404, as the real service answers.
	Token string

	// NextPID generates job ids. Defaults to random UUIDs.
	NextPID func() string

	// RejectMessage, if set, makes every submission answer with a null
	// pid and this message.
	RejectMessage string

	// OmitVersionKey drops qibo_version from the version response.
	OmitVersionKey bool

	Script Script

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Submission is one accepted or rejected run_circuit request.
type Submission struct {
	PID     string
	Circuit []byte
	Shots   int
	Device  string
}

// Handler serves qibo_version/, run_circuit/ and get_result/{pid}/.
type Handler struct {
	options Options
	logger  *slog.Logger
	mux     *http.ServeMux

	mu          sync.Mutex
	submissions []Submission
	polls       map[string]int
	authHeaders []string
}

// NewHandler returns a Handler for options.
func NewHandler(options Options) *Handler {
	if options.NextPID == nil {
		options.NextPID = uuid.NewString
	}
	if options.Script.Status == "" {
		options.Script.Status = "success"
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	handler := &Handler{
		options: options,
		logger:  logger,
		mux:     http.NewServeMux(),
		polls:   make(map[string]int),
	}
	handler.mux.HandleFunc("GET /qibo_version/", handler.handleVersion)
	handler.mux.HandleFunc("POST /run_circuit/", handler.handleRunCircuit)
	handler.mux.HandleFunc("GET /get_result/{pid}/", handler.handleGetResult)
	return handler
}

// FixedPID returns a NextPID function that always yields pid.
func FixedPID(pid string) func() string {
	return func() string { return pid }
}

func (handler *Handler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	handler.mu.Lock()
	handler.authHeaders = append(handler.authHeaders, request.Header.Get("Authorization"))
	handler.mu.Unlock()
	handler.mux.ServeHTTP(writer, request)
}

func (handler *Handler) handleVersion(writer http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"qibo_version": handler.options.QiboVersion}
	if handler.options.OmitVersionKey {
		body = map[string]any{"version": handler.options.QiboVersion}
	}
	writeJSON(writer, http.StatusOK, body)
}

func (handler *Handler) handleRunCircuit(writer http.ResponseWriter, request *http.Request) {
	if !handler.authorized(request) {
		http.NotFound(writer, request)
		return
	}

	var payload struct {
		Circuit []byte `json:"circuit"`
		Shots   int    `json:"nshots"`
		Device  string `json:"device"`
	}
	if err := json.NewDecoder(request.Body).Decode(&payload); err != nil {
		http.Error(writer, "invalid submission: "+err.Error(), http.StatusBadRequest)
		return
	}

	submission := Submission{
		Circuit: payload.Circuit,
		Shots:   payload.Shots,
		Device:  payload.Device,
	}
	if handler.options.RejectMessage != "" {
		handler.record(submission)
		writeJSON(writer, http.StatusOK, map[string]any{
			"pid":     nil,
			"message": handler.options.RejectMessage,
		})
		return
	}

	submission.PID = handler.options.NextPID()
	handler.record(submission)
	handler.logger.Info("job accepted", "job_id", submission.PID, "shots", submission.Shots, "device", submission.Device)
	writeJSON(writer, http.StatusOK, map[string]any{
		"pid":     submission.PID,
		"message": "Success. Job posted",
	})
}

func (handler *Handler) handleGetResult(writer http.ResponseWriter, request *http.Request) {
	if !handler.authorized(request) {
		http.NotFound(writer, request)
		return
	}
	pid := request.PathValue("pid")

	handler.mu.Lock()
	known := false
	for _, submission := range handler.submissions {
		if submission.PID == pid {
			known = true
			break
		}
	}
	handler.polls[pid]++
	polls := handler.polls[pid]
	handler.mu.Unlock()

	if !known {
		http.NotFound(writer, request)
		return
	}

	script := handler.options.Script
	if script.Stall {
		<-request.Context().Done()
		return
	}
	if polls <= script.PendingPolls {
		if !script.OmitPendingHeader {
			writer.Header().Set("Job-Status", "pending")
		}
		writer.Header().Set("Content-Type", "text/plain")
		writer.WriteHeader(http.StatusOK)
		writer.Write([]byte("job still in progress\n"))
		return
	}

	writer.Header().Set("Job-Status", script.Status)
	writer.Header().Set("Content-Type", "application/gzip")
	writer.WriteHeader(http.StatusOK)
	writer.Write(script.Archive)
}

func (handler *Handler) authorized(request *http.Request) bool {
	if handler.options.Token == "" {
		return true
	}
	token, ok := strings.CutPrefix(request.Header.Get("Authorization"), "Bearer ")
	return ok && token == handler.options.Token
}

func (handler *Handler) record(submission Submission) {
	handler.mu.Lock()
	defer handler.mu.Unlock()
	handler.submissions = append(handler.submissions, submission)
}

// Submissions returns every run_circuit request received, in order.
func (handler *Handler) Submissions() []Submission {
	handler.mu.Lock()
	defer handler.mu.Unlock()
	return append([]Submission(nil), handler.submissions...)
}

// Polls returns how many status checks pid has received.
func (handler *Handler) Polls(pid string) int {
	handler.mu.Lock()
	defer handler.mu.Unlock()
	return handler.polls[pid]
}

// AuthorizationHeaders returns the Authorization header of every
// request received, in order.
func (handler *Handler) AuthorizationHeaders() []string {
	handler.mu.Lock()
	defer handler.mu.Unlock()
	return append([]string(nil), handler.authHeaders...)
}

func writeJSON(writer http.ResponseWriter, status int, body any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	json.NewEncoder(writer).Encode(body)
}

// Server is a Handler behind an httptest.Server.
type Server struct {
	*Handler
	*httptest.Server
}

// NewServer starts a Server. The caller must Close it.
func NewServer(options Options) *Server {
	handler := NewHandler(options)
	return &Server{Handler: handler, Server: httptest.NewServer(handler)}
}

// BaseURL returns the server's root URL with a trailing slash.
func (server *Server) BaseURL() string {
	return server.URL + "/"
}
