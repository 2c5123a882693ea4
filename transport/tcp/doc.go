// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp implements the asynchronous TCP connector: a non-blocking
// connect state machine driven by pollset readiness callbacks and a deadline
// alarm, resolving each attempt to a transport or a failure exactly once.
// Unix-domain targets are supported through the same entry points. A thin
// accept-side listener is included for examples and tests; the serving path
// proper is out of scope here.
package tcp
