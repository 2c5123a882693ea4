//go:build !linux

// File: poller/backend_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub backend for unsupported platforms.

package poller

import (
	"fmt"

	"github.com/momentics/hioload-netcore/api"
)

// newBackend returns an error for platforms without a readiness backend.
func newBackend(maxEvents int) (backend, error) {
	return nil, fmt.Errorf("%w: no readiness backend for this platform", api.ErrNotSupported)
}
