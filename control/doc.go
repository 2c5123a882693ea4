// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics, configuration control, and debug introspection layer
// for the hioload-netcore transport-establishment core.
//
// Provides concurrent-safe state handling primitives including:
//   - Immutable snapshot config reads and atomic updates
//   - Runtime observers for hot-reload
//   - Counter telemetry for pollset work loops and connect attempts
//   - State export, debug hooks, and probe registration
package control
