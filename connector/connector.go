// File: connector/connector.go
// Author: momentics <momentics@gmail.com>
//
// The polymorphic connect capability consumed by channel construction.

package connector

import (
	"time"

	"github.com/momentics/hioload-netcore/api"
	"github.com/momentics/hioload-netcore/poller"
)

// In is the immutable input bundle of one connect attempt. Implementations
// consume it fully before Connect returns; callers may drop their reference
// to it immediately afterwards.
type In struct {
	// Interest is the group of pollsets interested in this connection.
	Interest *poller.PollsetSet

	// Network selects the address family ("tcp", "tcp4", "tcp6", "unix").
	Network string

	// Addr is the target address in the network's notation.
	Addr string

	// Deadline bounds the attempt. Zero means the implementation default.
	Deadline time.Time

	// ChannelArgs are opaque channel construction arguments passed through
	// to the transport layer.
	ChannelArgs map[string]any
}

// Out receives the result of a successful connect. Ownership of the
// transport and the filter list transfers to the caller when notify runs
// with ok=true.
type Out struct {
	// Transport is the established byte stream.
	Transport api.Transport

	// Filters names additional protocol filters to layer above the
	// transport, in order.
	Filters []string
}

// Connector turns a target address into a connected transport without the
// caller knowing the concrete connection mechanism. Connect is asynchronous:
// it returns immediately and resolves notify exactly once, with ok=true and
// out populated, or ok=false and no transport. Implementations hold whatever
// references they need for the duration of an in-flight attempt.
type Connector interface {
	Connect(in *In, out *Out, notify api.Closure)
}
