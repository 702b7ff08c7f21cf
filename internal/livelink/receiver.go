package livelink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"
)

// DefaultReadTimeout bounds how long the listening loop blocks in a read
// before it rechecks the stop signal.
const DefaultReadTimeout = 500 * time.Millisecond

// State is the receiver lifecycle state.
type State int

const (
	StateIdle State = iota
	StateBound
	StateListening
	StateStopping
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBound:
		return "bound"
	case StateListening:
		return "listening"
	case StateStopping:
		return "stopping"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ReceiverConfig holds the socket parameters for a Receiver.
type ReceiverConfig struct {
	Address string // bind address, e.g. "0.0.0.0"
	Port    int    // 0 selects an ephemeral port

	// ReadTimeout bounds stop latency. Zero means DefaultReadTimeout.
	ReadTimeout time.Duration
}

// Addr returns the host:port the receiver binds to.
func (c ReceiverConfig) Addr() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(c.Port))
}

// BindError is returned by Start when the socket cannot be opened or bound.
// It is fatal to that start attempt; the receiver does not retry.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("livelink: bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// ErrReceiverUsed is returned when Start is called on a receiver that has
// already been started. A Receiver covers exactly one start/stop cycle.
var ErrReceiverUsed = errors.New("livelink: receiver already started")

// Receiver owns a UDP socket and a goroutine that decodes every datagram and
// publishes it into a FrameSlot. It is the slot's only writer.
//
// Lifecycle: Idle -> Bound -> Listening -> Stopping -> Closed. Stop is
// cooperative: the goroutine notices it within one ReadTimeout.
type Receiver struct {
	cfg     ReceiverConfig
	slot    *FrameSlot
	logger  *slog.Logger
	metrics *Metrics

	mu    sync.Mutex
	state State
	conn  net.PacketConn

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	doneOnce sync.Once
}

// NewReceiver returns an idle receiver publishing into slot. logger and
// metrics may be nil.
func NewReceiver(cfg ReceiverConfig, slot *FrameSlot, logger *slog.Logger, metrics *Metrics) *Receiver {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Receiver{
		cfg:     cfg,
		slot:    slot,
		logger:  logger,
		metrics: metrics,
		state:   StateIdle,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (r *Receiver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Receiver) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// LocalAddr returns the bound address, or nil before a successful Start.
func (r *Receiver) LocalAddr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

// Start binds the socket and launches the listening goroutine. Binding
// happens synchronously so a *BindError reaches the caller. Canceling ctx
// has the same effect as Stop.
func (r *Receiver) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return ErrReceiverUsed
	}

	addr := r.cfg.Addr()
	lc := net.ListenConfig{Control: reuseAddrControl}
	conn, err := lc.ListenPacket(ctx, "udp", addr)
	if err != nil {
		r.state = StateClosed
		r.mu.Unlock()
		r.markDone()
		return &BindError{Addr: addr, Err: err}
	}
	r.conn = conn
	r.state = StateBound
	r.mu.Unlock()

	r.logger.Info("livelink listening", "addr", conn.LocalAddr().String())
	go r.listen(ctx, conn)
	return nil
}

// Stop asserts the stop signal. It is safe to call more than once and from
// any goroutine; it does not wait for the goroutine to exit (see Wait).
func (r *Receiver) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })

	// Never started: nothing will close done for us.
	r.mu.Lock()
	idle := r.state == StateIdle
	if idle {
		r.state = StateClosed
	}
	r.mu.Unlock()
	if idle {
		r.markDone()
	}
}

// Done is closed once the receiver reaches StateClosed.
func (r *Receiver) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the receiver has released its socket.
func (r *Receiver) Wait() {
	<-r.done
}

func (r *Receiver) markDone() {
	r.doneOnce.Do(func() { close(r.done) })
}

func (r *Receiver) stopRequested(ctx context.Context) bool {
	select {
	case <-r.stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (r *Receiver) listen(ctx context.Context, conn net.PacketConn) {
	defer r.markDone()

	r.setState(StateListening)
	r.metrics.setListening(true)

	buf := make([]byte, MaxDatagramSize)
	var lastSession, lastDevice string

	for !r.stopRequested(ctx) {
		_ = conn.SetReadDeadline(time.Now().Add(r.cfg.ReadTimeout))
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				r.logger.Warn("livelink socket closed underneath receiver")
				break
			}
			r.metrics.readError()
			r.logger.Warn("livelink read error", "error", err)
			continue
		}
		r.metrics.datagram(n)

		frame, err := Decode(buf[:n])
		if err != nil {
			var de *DecodeError
			if errors.As(err, &de) {
				r.metrics.decodeError(de.Reason)
			}
			r.logger.Debug("livelink dropping datagram", "from", from.String(), "bytes", n, "error", err)
			continue
		}

		if frame.SessionID != lastSession || frame.DeviceName != lastDevice {
			lastSession, lastDevice = frame.SessionID, frame.DeviceName
			_, uerr := frame.SessionUUID()
			r.logger.Info("livelink source",
				"from", from.String(),
				"device", frame.DeviceName,
				"session", frame.SessionID,
				"session_uuid_valid", uerr == nil,
				"kind", frame.Kind,
				"values", len(frame.Values))
		}

		r.slot.Publish(frame)
	}

	r.setState(StateStopping)
	r.metrics.setListening(false)
	_ = conn.Close()
	r.setState(StateClosed)
	r.logger.Info("livelink receiver exiting")
}
