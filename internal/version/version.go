// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package version holds the release version of the commands in this
// repository.
package version

import (
	"fmt"
	"strings"
)

// Release version, following semantic versioning 2.0.0.
const (
	Major uint = 0
	Minor uint = 1
	Patch uint = 0
)

// PreRelease and BuildMetadata can be set at link time, for example
//
//	-ldflags "-X github.com/ringstake/stakeinput/internal/version.PreRelease=rc1"
//
// Characters semantic versioning does not allow in them are dropped by
// String.
var (
	PreRelease    = "pre"
	BuildMetadata = "dev"
)

// String returns the full version string.
func String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", Major, Minor, Patch)
	if pre := sanitize(PreRelease, false); pre != "" {
		b.WriteString("-" + pre)
	}
	if build := sanitize(BuildMetadata, true); build != "" {
		b.WriteString("+" + build)
	}
	return b.String()
}

// sanitize drops every rune of s outside [0-9A-Za-z-].  Dots are kept too
// when dots is set, as build metadata allows them.
func sanitize(s string, dots bool) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r >= 'A' && r <= 'Z',
			r >= 'a' && r <= 'z', r == '-':
			return r
		case r == '.' && dots:
			return r
		}
		return -1
	}, s)
}
