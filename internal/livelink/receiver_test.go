package livelink

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout: %s", msg)
}

func startTestReceiver(t *testing.T, slot *FrameSlot) *Receiver {
	t.Helper()
	r := NewReceiver(ReceiverConfig{
		Address:     "127.0.0.1",
		Port:        0,
		ReadTimeout: 50 * time.Millisecond,
	}, slot, quietLogger(), NewMetrics())
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		r.Stop()
		r.Wait()
	})
	return r
}

func dialReceiver(t *testing.T, r *Receiver) net.Conn {
	t.Helper()
	conn, err := net.Dial("udp", r.LocalAddr().String())
	if err != nil {
		t.Fatalf("dial receiver: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestReceiver_PublishesDecodedFrames(t *testing.T) {
	slot := NewFrameSlot()
	r := startTestReceiver(t, slot)

	waitUntil(t, time.Second, func() bool { return r.State() == StateListening }, "receiver not listening")

	conn := dialReceiver(t, r)
	want := testFrame(52)
	want.Values[0] = 0.75
	if _, err := conn.Write(Encode(want)); err != nil {
		t.Fatalf("write: %v", err)
	}

	waitUntil(t, 2*time.Second, func() bool {
		_, ok := slot.Latest()
		return ok
	}, "frame not published")

	got, _ := slot.Latest()
	if got.DeviceName != "iPhone" || got.Values[0] != 0.75 || len(got.Values) != 52 {
		t.Fatalf("unexpected frame: device=%q v0=%v n=%d", got.DeviceName, got.Values[0], len(got.Values))
	}
}

func TestReceiver_DecodeErrorIsNotFatal(t *testing.T) {
	slot := NewFrameSlot()
	r := startTestReceiver(t, slot)
	conn := dialReceiver(t, r)

	if _, err := conn.Write([]byte{1, 2, 3}); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if _, err := conn.Write(Encode(testFrame(4))); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	waitUntil(t, 2*time.Second, func() bool {
		_, ok := slot.Latest()
		return ok
	}, "valid frame after garbage not published")

	if r.State() != StateListening {
		t.Errorf("expected receiver to keep listening, got %s", r.State())
	}
	if st := slot.Stats(); st.Published != 1 {
		t.Errorf("expected exactly 1 published frame, got %d", st.Published)
	}
}

func TestReceiver_StopIsObservedWithinReadTimeout(t *testing.T) {
	slot := NewFrameSlot()
	r := NewReceiver(ReceiverConfig{Address: "127.0.0.1", ReadTimeout: 50 * time.Millisecond}, slot, quietLogger(), nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	r.Stop()
	r.Stop() // idempotent

	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatalf("receiver did not exit after Stop")
	}
	if r.State() != StateClosed {
		t.Errorf("expected closed, got %s", r.State())
	}
}

func TestReceiver_ContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewReceiver(ReceiverConfig{Address: "127.0.0.1", ReadTimeout: 50 * time.Millisecond}, NewFrameSlot(), quietLogger(), nil)
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	cancel()

	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatalf("receiver did not exit after context cancel")
	}
}

func TestReceiver_StartTwiceRejected(t *testing.T) {
	r := startTestReceiver(t, NewFrameSlot())
	if err := r.Start(context.Background()); !errors.Is(err, ErrReceiverUsed) {
		t.Fatalf("expected ErrReceiverUsed, got %v", err)
	}
}

func TestReceiver_BindErrorClosesReceiver(t *testing.T) {
	// 192.0.2.0/24 is reserved for documentation and is never a local address.
	r := NewReceiver(ReceiverConfig{Address: "192.0.2.1", Port: 11111}, NewFrameSlot(), quietLogger(), nil)

	err := r.Start(context.Background())
	var be *BindError
	if !errors.As(err, &be) {
		t.Fatalf("expected *BindError, got %v", err)
	}
	if be.Addr != "192.0.2.1:11111" {
		t.Errorf("expected addr 192.0.2.1:11111, got %s", be.Addr)
	}
	if r.State() != StateClosed {
		t.Errorf("expected closed after bind failure, got %s", r.State())
	}
	select {
	case <-r.Done():
	default:
		t.Errorf("expected Done to be closed after bind failure")
	}
}

func TestReceiver_StopBeforeStart(t *testing.T) {
	r := NewReceiver(ReceiverConfig{Address: "127.0.0.1"}, NewFrameSlot(), quietLogger(), nil)
	r.Stop()
	r.Wait()
	if r.State() != StateClosed {
		t.Errorf("expected closed, got %s", r.State())
	}
	if err := r.Start(context.Background()); !errors.Is(err, ErrReceiverUsed) {
		t.Errorf("expected ErrReceiverUsed after stop, got %v", err)
	}
}

func TestReceiver_RebindSamePortAfterStop(t *testing.T) {
	first := NewReceiver(ReceiverConfig{Address: "127.0.0.1", ReadTimeout: 50 * time.Millisecond}, NewFrameSlot(), quietLogger(), nil)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	port := first.LocalAddr().(*net.UDPAddr).Port
	first.Stop()
	first.Wait()

	second := NewReceiver(ReceiverConfig{Address: "127.0.0.1", Port: port, ReadTimeout: 50 * time.Millisecond}, NewFrameSlot(), quietLogger(), nil)
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("rebind on port %d failed: %v", port, err)
	}
	second.Stop()
	second.Wait()
}

func TestState_String(t *testing.T) {
	if StateListening.String() != "listening" || State(42).String() != "unknown" {
		t.Errorf("unexpected state names")
	}
}
