// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package api defines the shared contracts of hioload-netcore: the one-shot
// closure type used for readiness and completion notification, the transport
// abstraction returned by a successful connect, and the common error set.
package api
