// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qibo-tii/provider/lib/clock"
	"github.com/qibo-tii/provider/lib/netutil"
	"github.com/qibo-tii/provider/lib/secret"
	"github.com/qibo-tii/provider/lib/version"
)

// Endpoint paths relative to the base URL. The service requires the
// trailing slashes.
const (
	versionPath    = "qibo_version/"
	runCircuitPath = "run_circuit/"
	resultPathBase = "get_result/"
)

const (
	// DefaultPollInterval is the pause between status checks.
	DefaultPollInterval = 2 * time.Second

	// DefaultArtifactName is the archive member handed to the
	// ResultLoader.
	DefaultArtifactName = "results.npy"
)

// HTTPDoer is the transport the client sends requests through.
// *http.Client satisfies it; tests substitute their own.
type HTTPDoer interface {
	Do(request *http.Request) (*http.Response, error)
}

// TempFileFactory creates the file a result archive is spooled into.
// The returned file must be open for writing. The client closes and
// removes it.
type TempFileFactory func() (*os.File, error)

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL is the root URL of the job service, for example
	// "http://localhost:8000/". A missing trailing slash is added.
	// Required.
	BaseURL string

	// Token is the bearer token sent on every request. Required. The
	// client reads it on each request and never copies it into a Go
	// string it keeps; the caller owns the buffer and must not Close it
	// while the client is in use.
	Token *secret.Buffer

	// LibraryVersion is the circuit library version this process was
	// built against. The service must report exactly this version.
	// Defaults to version.QiboVersion.
	LibraryVersion string

	// ResultsDir is the root under which each job's archive is
	// extracted into a subdirectory named by job id. Defaults to
	// "tii-provider/results" under os.TempDir().
	ResultsDir string

	// ArtifactName is the extracted member passed to Loader.
	// Defaults to DefaultArtifactName.
	ArtifactName string

	// PollInterval is the constant pause between status checks.
	// Defaults to DefaultPollInterval.
	PollInterval time.Duration

	// PollTimeout bounds how long WaitForCompletion waits for a job,
	// including a status check the service never answers. Zero waits
	// until the context is done.
	PollTimeout time.Duration

	// MaxExtractBytes caps the total size of extracted members. Zero
	// means unlimited.
	MaxExtractBytes int64

	// TempDir is where result archives are spooled when TempFiles is
	// nil. Defaults to os.TempDir().
	TempDir string

	// TempFiles overrides how spool files are created.
	TempFiles TempFileFactory

	// Loader turns the extracted artifact into the caller's result
	// value. Defaults to PathLoader.
	Loader ResultLoader

	// HTTPClient sends every request. Defaults to http.DefaultClient.
	HTTPClient HTTPDoer

	// Clock provides time operations. Defaults to clock.Real().
	// Inject clock.Fake() in tests for deterministic polling.
	Clock clock.Clock

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client talks to one job service. It is immutable after NewClient and
// safe for concurrent use by multiple goroutines.
type Client struct {
	baseURL         string
	token           *secret.Buffer
	libraryVersion  string
	resultsDir      string
	artifactName    string
	pollInterval    time.Duration
	pollTimeout     time.Duration
	maxExtractBytes int64
	tempFiles       TempFileFactory
	loader          ResultLoader
	httpClient      HTTPDoer
	clock           clock.Clock
	logger          *slog.Logger
}

// NewClient validates the configuration and checks that the service
// runs the same circuit library version as this process. A mismatch
// returns a *VersionMismatchError and no client; a malformed version
// response returns a *MalformedResponseError.
func NewClient(ctx context.Context, config Config) (*Client, error) {
	baseURL, err := normalizeBaseURL(config.BaseURL)
	if err != nil {
		return nil, err
	}
	if config.Token == nil || config.Token.Len() == 0 {
		return nil, fmt.Errorf("provider: Token is required")
	}
	if config.PollInterval < 0 {
		return nil, fmt.Errorf("provider: PollInterval must not be negative (got %s)", config.PollInterval)
	}
	if config.PollTimeout < 0 {
		return nil, fmt.Errorf("provider: PollTimeout must not be negative (got %s)", config.PollTimeout)
	}
	if config.MaxExtractBytes < 0 {
		return nil, fmt.Errorf("provider: MaxExtractBytes must not be negative (got %d)", config.MaxExtractBytes)
	}

	libraryVersion := config.LibraryVersion
	if libraryVersion == "" {
		libraryVersion = version.QiboVersion
	}

	resultsDir := config.ResultsDir
	if resultsDir == "" {
		resultsDir = filepath.Join(os.TempDir(), "tii-provider", "results")
	}

	artifactName := config.ArtifactName
	if artifactName == "" {
		artifactName = DefaultArtifactName
	}
	if !filepath.IsLocal(artifactName) {
		return nil, fmt.Errorf("provider: ArtifactName %q must be a relative path inside the result directory", artifactName)
	}

	pollInterval := config.PollInterval
	if pollInterval == 0 {
		pollInterval = DefaultPollInterval
	}

	tempFiles := config.TempFiles
	if tempFiles == nil {
		tempDir := config.TempDir
		tempFiles = func() (*os.File, error) {
			return os.CreateTemp(tempDir, "tii-result-*.tar.gz")
		}
	}

	loader := config.Loader
	if loader == nil {
		loader = PathLoader
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := &Client{
		baseURL:         baseURL,
		token:           config.Token,
		libraryVersion:  libraryVersion,
		resultsDir:      resultsDir,
		artifactName:    artifactName,
		pollInterval:    pollInterval,
		pollTimeout:     config.PollTimeout,
		maxExtractBytes: config.MaxExtractBytes,
		tempFiles:       tempFiles,
		loader:          loader,
		httpClient:      httpClient,
		clock:           clk,
		logger:          logger,
	}

	if err := client.checkVersion(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// normalizeBaseURL requires an absolute http(s) URL and guarantees a
// trailing slash so endpoint paths can be appended directly.
func normalizeBaseURL(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("provider: BaseURL is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("provider: parsing BaseURL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("provider: BaseURL must use http or https (got %q)", raw)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("provider: BaseURL %q has no host", raw)
	}
	if parsed.RawQuery != "" || parsed.Fragment != "" {
		return "", fmt.Errorf("provider: BaseURL %q must not carry a query or fragment", raw)
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	return raw, nil
}

// checkVersion fetches the service's circuit library version and
// compares it to the local one by exact string equality.
func (client *Client) checkVersion(ctx context.Context) error {
	fields, err := client.doJSON(ctx, http.MethodGet, versionPath, nil, "qibo_version")
	if err != nil {
		return err
	}

	var remote string
	if err := json.Unmarshal(fields["qibo_version"], &remote); err != nil {
		return &MalformedResponseError{
			Endpoint: versionPath,
			Err:      fmt.Errorf("qibo_version is not a string: %w", err),
		}
	}

	if remote != client.libraryVersion {
		return &VersionMismatchError{Local: client.libraryVersion, Remote: remote}
	}

	client.logger.Debug("job service version verified",
		"base_url", client.baseURL,
		"qibo_version", remote,
	)
	return nil
}

// BaseURL returns the normalized service root, always ending in "/".
func (client *Client) BaseURL() string { return client.baseURL }

// ResultsDir returns the directory job results are extracted under.
func (client *Client) ResultsDir() string { return client.resultsDir }

// doJSON sends a request whose response is a JSON object and checks
// that every key in keys is present. The body is bounded by
// netutil.MaxResponseSize.
func (client *Client) doJSON(ctx context.Context, method, path string, requestBody any, keys ...string) (map[string]json.RawMessage, error) {
	response, err := client.send(ctx, method, path, "application/json", requestBody)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	body, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("provider: reading %s response: %w", path, err)
	}

	fields, err := CheckResponseHasKeys(body, keys...)
	if err != nil {
		var malformed *MalformedResponseError
		if errors.As(err, &malformed) {
			malformed.Endpoint = path
		}
		return nil, err
	}
	return fields, nil
}

// send executes an authenticated request and converts non-2xx responses
// into *APIError. On success the caller owns the response body.
func (client *Client) send(ctx context.Context, method, path, accept string, requestBody any) (*http.Response, error) {
	response, err := client.doRaw(ctx, method, path, accept, requestBody)
	if err != nil {
		return nil, err
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		body := netutil.ErrorBody(response.Body)
		response.Body.Close()
		return nil, &APIError{
			StatusCode: response.StatusCode,
			Method:     method,
			Endpoint:   path,
			Body:       body,
		}
	}
	return response, nil
}

// doRaw builds and sends one request without interpreting the response.
// The path is relative to the base URL. A non-nil requestBody is
// JSON-encoded.
func (client *Client) doRaw(ctx context.Context, method, path, accept string, requestBody any) (*http.Response, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("provider: encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, client.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("provider: creating request: %w", err)
	}

	request.Header.Set("Authorization", client.token.HeaderValue("Bearer"))
	request.Header.Set("User-Agent", version.UserAgent())
	request.Header.Set("X-Request-Id", uuid.NewString())
	if accept != "" {
		request.Header.Set("Accept", accept)
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		// *url.Error carries the request URL, which holds no credentials.
		return nil, fmt.Errorf("provider: %s %s: %w", method, path, err)
	}
	return response, nil
}
