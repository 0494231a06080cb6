// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ExitCoder is an error that selects the process exit code.
type ExitCoder interface {
	ExitCode() int
}

// Fatal reports err from run() and exits. Use it in main() where the
// structured logger may not be initialized.
func Fatal(err error) {
	os.Exit(Report(os.Stderr, err))
}

// Report writes "error: err" to w and returns the exit code for err:
// the error's own code if it implements ExitCoder, otherwise 1.
func Report(w io.Writer, err error) int {
	fmt.Fprintf(w, "error: %v\n", err)
	var coder ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}

// UsageError is a command-line mistake. It exits with code 2.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string { return e.Message }

// ExitCode implements ExitCoder.
func (e *UsageError) ExitCode() int { return 2 }

// Usage returns a UsageError with a formatted message.
func Usage(format string, args ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}
