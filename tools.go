//go:build tools

// Package tools pins the versions of the development tools used by the
// lint and vulnerability checks.
package tools

import (
	_ "github.com/golangci/golangci-lint/cmd/golangci-lint"
	_ "golang.org/x/vuln/cmd/govulncheck"
)
