// File: transport/tcp/connector.go
// Author: momentics <momentics@gmail.com>
//
// Asynchronous TCP connect state machine and the connector.Connector
// implementation built on it.
//
// A deferred connect is shared between two callback paths: the deadline
// alarm and the write-readiness closure. Both hold one reference to the
// attempt record; exactly one of them performs the final resolution and
// invokes the caller's callback, the other only drops its reference.

package tcp

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-netcore/api"
	"github.com/momentics/hioload-netcore/connector"
	"github.com/momentics/hioload-netcore/control"
	"github.com/momentics/hioload-netcore/poller"
	"github.com/momentics/hioload-netcore/pool"
	"github.com/momentics/hioload-netcore/transport"
)

// Connector dials TCP and unix-domain targets through a pollset reactor.
// It implements connector.Connector.
type Connector struct {
	ps       *poller.Pollset // drives deadline alarms for pending attempts
	log      zerolog.Logger
	metrics  *control.MetricsRegistry
	bp       *pool.BytePool
	defDL    time.Duration
	inflight atomic.Int64 // deferred attempts not yet released
}

// Option customizes connector construction.
type Option func(*Connector)

// WithLogger attaches a structured logger; default is a no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Connector) { c.log = log }
}

// WithMetrics attaches a shared metrics registry.
func WithMetrics(mr *control.MetricsRegistry) Option {
	return func(c *Connector) { c.metrics = mr }
}

// WithBufferPool sets the read-buffer pool handed to created transports.
func WithBufferPool(bp *pool.BytePool) Option {
	return func(c *Connector) { c.bp = bp }
}

// WithConfig reads connector tunables from a config store snapshot.
func WithConfig(cs *control.ConfigStore) Option {
	return func(c *Connector) {
		c.defDL = cs.GetDuration(control.KeyConnectDeadline, control.DefaultConnectDeadline)
	}
}

// NewConnector creates a connector whose deadline alarms run on ps.
func NewConnector(ps *poller.Pollset, opts ...Option) *Connector {
	c := &Connector{
		ps:      ps,
		log:     zerolog.Nop(),
		metrics: control.NewMetricsRegistry(),
		bp:      pool.NewBytePool(pool.DefaultReadSliceSize),
		defDL:   control.DefaultConnectDeadline,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterProbes exposes connector internals on a debug probe registry.
func (c *Connector) RegisterProbes(dp *control.DebugProbes) {
	dp.RegisterProbe("connector.inflight", func() any {
		return int(c.inflight.Load())
	})
	dp.RegisterProbe("connector.default_deadline", func() any {
		return c.defDL.String()
	})
}

// Connect implements connector.Connector. It consumes in fully before
// returning and resolves notify exactly once, never from within this call's
// readiness registration itself.
func (c *Connector) Connect(in *connector.In, out *connector.Out, notify api.Closure) {
	c.ConnectTo(in.Interest, in.Network, in.Addr, in.Deadline, func(tp api.Transport) {
		if tp == nil {
			notify(false)
			return
		}
		out.Transport = tp
		out.Filters = nil
		notify(true)
	})
}

// ConnectTo starts one asynchronous connect attempt. cb is invoked exactly
// once with the established transport, or with nil on configuration failure,
// peer failure, or deadline expiry. A zero deadline selects the connector's
// default.
//
// interest should contain at least one pollset: a deferred attempt learns of
// writability only through a member pollset, so with an empty group the
// attempt can resolve only through its deadline alarm, and the resolution
// callback then runs on a detached goroutine rather than from a Work call.
func (c *Connector) ConnectTo(interest *poller.PollsetSet, network, address string, deadline time.Time, cb func(api.Transport)) {
	c.metrics.Inc(control.MetricConnectStarted)
	if deadline.IsZero() {
		deadline = time.Now().Add(c.defDL)
	}

	t, err := resolveTarget(network, address)
	if err != nil {
		c.log.Error().Err(err).Str("addr", address).Msg("unable to resolve target")
		c.metrics.Inc(control.MetricConnectFailed)
		cb(nil)
		return
	}
	raw, sa, err := openSocket(t)
	if err != nil {
		c.log.Error().Err(err).Str("addr", t.str).Msg("unable to create socket")
		c.metrics.Inc(control.MetricConnectFailed)
		cb(nil)
		return
	}
	if err := prepareSocket(raw, sa); err != nil {
		unix.Close(raw)
		c.log.Error().Err(err).Str("addr", t.str).Msg("unable to configure socket")
		c.metrics.Inc(control.MetricConnectFailed)
		cb(nil)
		return
	}

	var cerr error
	for {
		cerr = unix.Connect(raw, sa)
		if cerr != unix.EINTR {
			break
		}
	}

	fd := poller.NewFD(raw, "tcp-client:"+t.str)

	if cerr == nil {
		// Synchronous success: no alarm, no interest registration needed.
		c.metrics.Inc(control.MetricConnectOK)
		cb(transport.NewConn(fd, t.str, c.bp))
		return
	}
	if cerr != unix.EINPROGRESS && cerr != unix.EAGAIN {
		c.log.Error().Err(cerr).Str("addr", t.str).Msg("connect error")
		fd.Orphan(nil, "tcp_client_connect_error")
		c.metrics.Inc(control.MetricConnectFailed)
		cb(nil)
		return
	}

	// Deferred: the alarm path and the write path each own one reference.
	interest.AddFD(fd)
	c.inflight.Add(1)
	ac := &asyncConnect{
		c:        c,
		fd:       fd,
		refs:     2,
		interest: interest,
		addrStr:  t.str,
		cb:       cb,
	}
	ac.mu.Lock()
	ac.alarm = c.ps.NewAlarm(deadline, ac.onAlarm)
	fd.NotifyOnWrite(ac.onWritable)
	ac.mu.Unlock()
}

// asyncConnect is the shared record of one deferred connect attempt. The
// mutex guards fd and refs; fd is nil once a path has detached it.
type asyncConnect struct {
	c        *Connector
	mu       sync.Mutex
	fd       *poller.FD
	refs     int
	interest *poller.PollsetSet
	alarm    *poller.Alarm
	addrStr  string
	cb       func(api.Transport)
}

// onAlarm runs when the connect deadline elapses (ok=true) or the write path
// cancelled the alarm (ok=false). On expiry it shuts the descriptor down so
// the pending write closure wakes with failure; it never resolves the
// caller's callback itself.
func (ac *asyncConnect) onAlarm(ok bool) {
	ac.mu.Lock()
	if ok && ac.fd != nil {
		ac.c.metrics.Inc(control.MetricConnectDeadline)
		ac.c.log.Warn().Err(api.ErrOperationTimeout).Str("addr", ac.addrStr).Msg("connect deadline elapsed")
		ac.fd.Shutdown()
	}
	ac.refs--
	done := ac.refs == 0
	ac.mu.Unlock()
	if done {
		ac.release()
	}
}

// onWritable resolves the attempt when the socket reports writability or the
// descriptor was shut down (ok=false). The descriptor is detached under the
// lock before the alarm is cancelled and the socket error inspected, so a
// late alarm firing can never touch an attempt that is already resolving.
func (ac *asyncConnect) onWritable(ok bool) {
	ac.mu.Lock()
	if ac.fd == nil {
		panic("tcp: writable closure ran without a descriptor")
	}
	fd := ac.fd
	ac.fd = nil
	ac.mu.Unlock()

	// Idempotent: cancelling after the alarm fired is a no-op.
	ac.alarm.Cancel()

	ac.mu.Lock()
	var ep api.Transport
	if ok {
		switch errno, err := soError(fd.Raw()); {
		case err != nil:
			ac.c.log.Error().Err(err).Str("addr", ac.addrStr).Msg("getsockopt(SO_ERROR) failed")
		case errno == int(unix.ENOBUFS):
			// The kernel ran out of connection bookkeeping memory. A local,
			// very likely transient condition, not a peer failure: keep the
			// descriptor and wait for writability again.
			ac.c.log.Warn().Err(api.ErrResourceExhausted).Str("addr", ac.addrStr).Msg("kernel out of buffers, retrying")
			ac.c.metrics.Inc(control.MetricConnectRetried)
			ac.fd = fd
			ac.mu.Unlock()
			fd.NotifyOnWrite(ac.onWritable)
			return
		case errno != 0:
			ferr := api.NewError(api.ErrCodeInternal, "connect failed").
				WithContext("so_error", errno).
				WithContext("addr", ac.addrStr)
			ac.c.log.Error().Err(ferr).Msg("connect failed")
		default:
			ac.interest.DelFD(fd)
			ep = transport.NewConn(fd, ac.addrStr, ac.c.bp)
			fd = nil
		}
	} else {
		ac.c.log.Error().Str("addr", ac.addrStr).Msg("writable closure failed during connect")
	}

	// Terminal outcome: release whatever is left, then resolve the caller
	// outside the lock.
	if fd != nil {
		ac.interest.DelFD(fd)
		fd.Orphan(nil, "tcp_client_orphan")
	}
	ac.refs--
	done := ac.refs == 0
	cb := ac.cb
	ac.mu.Unlock()
	if done {
		ac.release()
	}
	if ep != nil {
		ac.c.metrics.Inc(control.MetricConnectOK)
	} else {
		ac.c.metrics.Inc(control.MetricConnectFailed)
	}
	cb(ep)
}

// release drops the attempt's remaining interior state once both paths have
// retired their references.
func (ac *asyncConnect) release() {
	ac.mu.Lock()
	ac.fd = nil
	ac.alarm = nil
	ac.cb = nil
	ac.mu.Unlock()
	ac.c.inflight.Add(-1)
	ac.c.metrics.Inc(control.MetricAttemptsReleased)
}
