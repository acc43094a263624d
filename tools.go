//go:build tools
// +build tools

// Package tools declares tool dependencies for this module.
//
// These imports are not used at runtime. They exist solely to ensure
// that Go-based tools (invoked via `go generate`, e.g. mockgen) are
// tracked as explicit module dependencies.
package chat_core

import (
	_ "go.uber.org/mock/mockgen"
)
