// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ExitCoder is implemented by errors that select their own exit status.
type ExitCoder interface {
	ExitCode() int
}

// ExitCode returns the status a binary should exit with for err: 0 for
// nil, the code of the first ExitCoder in err's chain, or 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}

// Fatal writes "error: err" to stderr and exits with ExitCode(err). Use
// it in main() for errors from run() where the structured logger may
// not be initialized.
func Fatal(err error) {
	report(os.Stderr, err)
	os.Exit(ExitCode(err))
}

func report(writer io.Writer, err error) {
	fmt.Fprintf(writer, "error: %v\n", err)
}
