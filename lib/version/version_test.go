// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestInfoUsesInjectedValues(t *testing.T) {
	defer func(commit, built, version string) {
		GitCommit, BuildTime, Version = commit, built, version
	}(GitCommit, BuildTime, Version)

	GitCommit = "abc1234"
	BuildTime = "2026-03-01T10:00:00Z"
	Version = "1.2.0"

	if got, want := Info(), "1.2.0 (abc1234, 2026-03-01T10:00:00Z)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}
}

func TestFullIncludesPlatform(t *testing.T) {
	full := Full()
	if !strings.HasPrefix(full, Info()) {
		t.Errorf("Full() = %q does not start with Info()", full)
	}
	if !strings.Contains(full, runtime.GOOS+"/"+runtime.GOARCH) {
		t.Errorf("Full() = %q missing platform", full)
	}
}
