// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

// tii-mock-server serves the TII job service HTTP contract from a
// script, for running tii-run or other clients end to end without the
// real service.
//
// Every accepted job answers pending for --pending status checks and
// then --status. A successful job's body is the archive named by
// --archive, or a generated archive holding one --artifact member.
package main

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/pflag"

	"github.com/qibo-tii/provider/lib/process"
	"github.com/qibo-tii/provider/lib/provider/providertest"
	"github.com/qibo-tii/provider/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	var (
		listenAddress string
		qiboVersion   string
		token         string
		archivePath   string
		artifactName  string
		status        string
		reject        string
		pending       int
	)
	flagSet := pflag.NewFlagSet("tii-mock-server", pflag.ContinueOnError)
	flagSet.StringVar(&listenAddress, "listen", "127.0.0.1:8000", "address to listen on")
	flagSet.StringVar(&qiboVersion, "qibo-version", version.QiboVersion, "circuit library version to report")
	flagSet.StringVar(&token, "token", "", "bearer token to require (empty accepts any)")
	flagSet.StringVar(&archivePath, "archive", "", "tar.gz file served as every job's result")
	flagSet.StringVar(&artifactName, "artifact", "results.npy", "member name of the generated archive when --archive is unset")
	flagSet.StringVar(&status, "status", "success", "terminal Job-Status value")
	flagSet.StringVar(&reject, "reject", "", "decline every submission with this message")
	flagSet.IntVar(&pending, "pending", 2, "pending status checks before the terminal status")
	showVersion := flagSet.Bool("version", false, "print version information and exit")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Println(version.Full())
		return nil
	}

	archive, err := loadArchive(archivePath, artifactName)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	handler := providertest.NewHandler(providertest.Options{
		QiboVersion:   qiboVersion,
		Token:         token,
		RejectMessage: reject,
		Script: providertest.Script{
			PendingPolls: pending,
			Status:       status,
			Archive:      archive,
		},
		Logger: logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", listenAddress)
	if err != nil {
		return err
	}
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.Serve(listener)
	}()
	logger.Info("mock job service running",
		"address", listener.Addr().String(),
		"qibo_version", qiboVersion,
		"pending", pending,
		"status", status,
	)

	select {
	case <-ctx.Done():
	case err := <-serveDone:
		return err
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// loadArchive reads path, or builds a single-member archive when path
// is empty.
func loadArchive(path, artifactName string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading archive: %w", err)
		}
		return data, nil
	}
	return buildArchive(artifactName, []byte("mock result\n"))
}

func buildArchive(name string, content []byte) ([]byte, error) {
	var buffer bytes.Buffer
	gzipWriter := gzip.NewWriter(&buffer)
	tarWriter := tar.NewWriter(gzipWriter)
	header := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		Typeflag: tar.TypeReg,
		ModTime:  time.Now(),
	}
	if err := tarWriter.WriteHeader(header); err != nil {
		return nil, err
	}
	if _, err := tarWriter.Write(content); err != nil {
		return nil, err
	}
	if err := tarWriter.Close(); err != nil {
		return nil, err
	}
	if err := gzipWriter.Close(); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
