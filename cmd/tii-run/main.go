// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

// tii-run submits one serialized circuit to a TII job service, waits
// for it, and prints where the result was extracted.
//
// Configuration comes from --config, else the file named by
// TII_PROVIDER_CONFIG, else built-in defaults. The bearer token is read
// from --token-file or the configured token_file.
//
// Exit status is 0 when a result was retrieved, 3 when the service
// declined the submission or reported the job as failed, and 1 for any
// other error.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/qibo-tii/provider/lib/config"
	"github.com/qibo-tii/provider/lib/process"
	"github.com/qibo-tii/provider/lib/provider"
	"github.com/qibo-tii/provider/lib/secret"
	"github.com/qibo-tii/provider/lib/version"
)

// exitNoResult is the status for a run that finished without a result.
const exitNoResult = 3

// errNoResult reports a declined submission or a failed job.
var errNoResult = noResultError{}

type noResultError struct{}

func (noResultError) Error() string { return "job produced no result" }
func (noResultError) ExitCode() int { return exitNoResult }

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		process.Fatal(err)
	}
}

type options struct {
	configPath  string
	tokenFile   string
	circuitPath string
	resumeID    string
	baseURL     string
	shots       int
	device      string
	timeout     time.Duration
	verbose     bool
}

func run(args []string, stdout io.Writer) error {
	var opts options
	flagSet := pflag.NewFlagSet("tii-run", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", "", "configuration file (default: $TII_PROVIDER_CONFIG)")
	flagSet.StringVar(&opts.tokenFile, "token-file", "", "file holding the bearer token (default: token_file from config)")
	flagSet.StringVar(&opts.circuitPath, "circuit", "", "serialized circuit file to submit")
	flagSet.StringVar(&opts.resumeID, "resume", "", "wait for an already-submitted job id instead of submitting")
	flagSet.StringVar(&opts.baseURL, "base-url", "", "job service URL (overrides server.base_url)")
	flagSet.IntVar(&opts.shots, "nshots", provider.DefaultShots, "number of circuit executions")
	flagSet.StringVar(&opts.device, "device", provider.DefaultDevice, "target device")
	flagSet.DurationVar(&opts.timeout, "timeout", 0, "give up waiting after this long (0: polling.timeout from config)")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output")
	showVersion := flagSet.Bool("version", false, "print version information and exit")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.Full())
		return nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}
	if (opts.circuitPath == "") == (opts.resumeID == "") {
		return errors.New("exactly one of --circuit or --resume is required")
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.baseURL != "" {
		cfg.Server.BaseURL = opts.baseURL
	}
	if opts.timeout > 0 {
		cfg.Polling.Timeout = opts.timeout.String()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	tokenFile := opts.tokenFile
	if tokenFile == "" {
		tokenFile = cfg.TokenFile
	}
	if tokenFile == "" {
		return errors.New("no token file configured (set --token-file or token_file)")
	}
	token, err := secret.ReadFile(tokenFile)
	if err != nil {
		return fmt.Errorf("reading token: %w", err)
	}
	defer token.Close()

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := newCommandLogger(level).With("command", "tii-run")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := provider.NewClient(ctx, providerConfig(cfg, token, logger))
	if err != nil {
		return err
	}

	var result *provider.Result
	if opts.resumeID != "" {
		result, err = client.ResumeJob(ctx, opts.resumeID)
	} else {
		circuit, readErr := os.ReadFile(opts.circuitPath)
		if readErr != nil {
			return fmt.Errorf("reading circuit: %w", readErr)
		}
		result, err = client.RunJob(ctx, provider.RawCircuit(circuit), provider.RunOptions{
			Shots:  opts.shots,
			Device: opts.device,
		})
	}
	if err != nil {
		return err
	}
	if result == nil {
		return errNoResult
	}

	fmt.Fprintf(stdout, "job %s: %s\n", result.JobID, result.ArtifactPath)
	return nil
}

// loadConfig prefers an explicit path, then TII_PROVIDER_CONFIG, then
// defaults.
func loadConfig(path string) (*config.Config, error) {
	switch {
	case path != "":
		return config.LoadFile(path)
	case os.Getenv("TII_PROVIDER_CONFIG") != "":
		return config.Load()
	default:
		return config.Default(), nil
	}
}

// providerConfig maps file configuration onto the library's Config.
// The request timeout bounds the wait for response headers only, so a
// large result archive can stream for as long as it needs.
func providerConfig(cfg *config.Config, token *secret.Buffer, logger *slog.Logger) provider.Config {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.RequestTimeout()

	return provider.Config{
		BaseURL:         cfg.Server.BaseURL,
		Token:           token,
		LibraryVersion:  cfg.Server.QiboVersion,
		ResultsDir:      cfg.Results.Directory,
		TempDir:         cfg.Results.TempDirectory,
		ArtifactName:    cfg.Results.ArtifactName,
		PollInterval:    cfg.PollInterval(),
		PollTimeout:     cfg.PollTimeout(),
		MaxExtractBytes: cfg.Results.MaxExtractBytes,
		HTTPClient:      &http.Client{Transport: transport},
		Logger:          logger,
	}
}
