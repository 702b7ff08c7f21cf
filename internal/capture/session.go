// Package capture ties the LiveLink receiver to host targets: it owns the
// receiver lifecycle, runs the consumer loop on the host scheduler, and
// exposes the recording and cleanup operations.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"facecap/internal/arkit"
	"facecap/internal/keyframe"
	"facecap/internal/livelink"
)

const (
	DefaultRateHz            = 60
	DefaultTimeLapseInterval = 10

	// ConsumerTask is the scheduler name of the consumer loop.
	ConsumerTask = "livelink-consumer"
)

// Target is a bound animation target: writable for the consumer loop,
// readable for the recorder.
type Target interface {
	Name() string
	arkit.ChannelSink
	arkit.ChannelSource
}

// Timeline is the host's current-frame cursor.
type Timeline interface {
	CurrentFrame() int
	SetFrame(frame int)
}

// TimeLapse controls periodic keyframe insertion from the consumer loop.
type TimeLapse struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Interval is both the number of ticks between insertions and the number
	// of timeline frames advanced after each one.
	Interval int `json:"interval" yaml:"interval"`
}

// Config holds the plain session parameters.
type Config struct {
	Receiver  livelink.ReceiverConfig
	RateHz    int
	Threshold float64
	TimeLapse TimeLapse
}

// DefaultConfig returns the defaults used by the daemon.
func DefaultConfig() Config {
	return Config{
		Receiver: livelink.ReceiverConfig{
			Address:     "0.0.0.0",
			Port:        11111,
			ReadTimeout: livelink.DefaultReadTimeout,
		},
		RateHz:    DefaultRateHz,
		Threshold: keyframe.DefaultThreshold,
		TimeLapse: TimeLapse{Interval: DefaultTimeLapseInterval},
	}
}

// Period returns the consumer loop interval.
func (c Config) Period() time.Duration {
	return time.Second / time.Duration(c.RateHz)
}

// Host bundles the host capabilities a Session needs.
type Host struct {
	Scheduler Registrar
	Timeline  Timeline
	Store     keyframe.Store
}

// Options are optional Session collaborators. Zero values are valid.
type Options struct {
	Logger          *slog.Logger
	Metrics         *Metrics
	ReceiverMetrics *livelink.Metrics
}

// TargetPose reports how many channels one target received on a tick.
type TargetPose struct {
	Name    string `json:"name"`
	Applied int    `json:"applied"`
}

// Pose is what observers see each time a newly received frame is applied.
type Pose struct {
	At            time.Time
	Frame         livelink.Frame
	Seq           uint64
	TimelineFrame int
	Targets       []TargetPose
}

// PoseObserver is notified from the scheduler goroutine. Implementations
// must not block.
type PoseObserver interface {
	ObservePose(p Pose)
}

// Status is a snapshot of the session for control clients.
type Status struct {
	Running           bool      `json:"running"`
	ReceiverState     string    `json:"receiver_state"`
	ListenAddr        string    `json:"listen_addr,omitempty"`
	Targets           []string  `json:"targets"`
	Frame             int       `json:"frame"`
	Threshold         float64   `json:"threshold"`
	TimeLapse         TimeLapse `json:"timelapse"`
	FramesPublished   uint64    `json:"frames_published"`
	FramesOverwritten uint64    `json:"frames_overwritten"`
	Device            string    `json:"device,omitempty"`
	SessionID         string    `json:"session_id,omitempty"`
}

// Session owns one receiver at a time, the frame slot it feeds, the target
// bindings, and the recorder cache.
//
// A Session is not safe for concurrent use. The daemon calls every method
// from the scheduler goroutine (Scheduler.Do and the consumer task).
type Session struct {
	cfg      Config
	sched    Registrar
	timeline Timeline
	store    keyframe.Store
	recorder *keyframe.Recorder

	logger   *slog.Logger
	metrics  *Metrics
	rmetrics *livelink.Metrics

	slot     *livelink.FrameSlot
	receiver *livelink.Receiver
	prev     *livelink.Receiver // stopped, possibly still releasing its socket

	running bool
	gen     uint64 // bumped on every Start; stale consumer tasks terminate
	lastSeq uint64

	targets   []Target
	observers []PoseObserver
	ticks     int // time-lapse tick counter
}

// NewSession validates cfg and returns an idle session.
func NewSession(cfg Config, host Host, opts Options) (*Session, error) {
	if host.Scheduler == nil || host.Timeline == nil || host.Store == nil {
		return nil, errors.New("capture: host scheduler, timeline and store are required")
	}
	if cfg.RateHz <= 0 {
		cfg.RateHz = DefaultRateHz
	}
	if cfg.TimeLapse.Interval <= 0 {
		if cfg.TimeLapse.Enabled {
			return nil, ErrInvalidInterval
		}
		cfg.TimeLapse.Interval = DefaultTimeLapseInterval
	}
	rec, err := keyframe.NewRecorder(host.Store, cfg.Threshold)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		cfg:      cfg,
		sched:    host.Scheduler,
		timeline: host.Timeline,
		store:    host.Store,
		recorder: rec,
		logger:   logger,
		metrics:  opts.Metrics,
		rmetrics: opts.ReceiverMetrics,
		slot:     livelink.NewFrameSlot(),
	}, nil
}

// Observe adds a pose observer.
func (s *Session) Observe(o PoseObserver) {
	if o != nil {
		s.observers = append(s.observers, o)
	}
}

// Running reports whether the session is capturing.
func (s *Session) Running() bool { return s.running }

// Start binds a new receiver and registers the consumer loop. The receiver
// runs until Stop or until ctx is canceled.
func (s *Session) Start(ctx context.Context) error {
	if s.running {
		s.logger.Warn("capture already running")
		return ErrAlreadyRunning
	}

	// A just-stopped receiver keeps its socket for up to one read timeout.
	if s.prev != nil {
		s.prev.Wait()
		s.prev = nil
	}

	s.slot.Reset()
	rcv := livelink.NewReceiver(s.cfg.Receiver, s.slot, s.logger, s.rmetrics)
	if err := rcv.Start(ctx); err != nil {
		s.logger.Error("capture start failed", "error", err)
		return err
	}

	s.receiver = rcv
	s.running = true
	s.gen++
	s.lastSeq = 0
	s.ticks = 0
	s.metrics.setRunning(true)

	gen := s.gen
	s.sched.Register(ConsumerTask, func(now time.Time) Schedule {
		return s.tick(gen, now)
	}, 0)

	s.logger.Info("capture started", "addr", rcv.LocalAddr().String(), "rate_hz", s.cfg.RateHz)
	return nil
}

// Stop signals the receiver to exit and deactivates the consumer loop, which
// terminates on its next invocation. It does not wait for the socket to close.
func (s *Session) Stop() error {
	if !s.running {
		s.logger.Warn("capture not running")
		return ErrNotRunning
	}
	s.running = false
	s.receiver.Stop()
	s.prev = s.receiver
	s.receiver = nil
	s.metrics.setRunning(false)
	s.logger.Info("capture stopped")
	return nil
}

// Wait blocks until the most recent receiver has released its socket.
func (s *Session) Wait() {
	switch {
	case s.receiver != nil:
		s.receiver.Wait()
	case s.prev != nil:
		s.prev.Wait()
	}
}

// Tick runs one consumer loop iteration for the current session.
func (s *Session) Tick(now time.Time) Schedule {
	return s.tick(s.gen, now)
}

func (s *Session) tick(gen uint64, now time.Time) Schedule {
	if !s.running || gen != s.gen {
		return Terminate
	}

	select {
	case <-s.receiver.Done():
		// Context canceled or socket closed underneath us.
		s.running = false
		s.prev = s.receiver
		s.receiver = nil
		s.metrics.setRunning(false)
		s.logger.Warn("capture receiver exited, stopping consumer loop")
		return Terminate
	default:
	}

	frame, seq, ok := s.slot.LatestSeq()
	fresh := ok && seq != s.lastSeq
	s.lastSeq = seq

	applied := 0
	var poses []TargetPose
	if ok {
		for _, t := range s.targets {
			n := arkit.Apply(frame.Values, t)
			applied += n
			if fresh {
				poses = append(poses, TargetPose{Name: t.Name(), Applied: n})
			}
		}
	}
	s.metrics.tick(fresh, applied)

	if fresh && len(s.observers) > 0 {
		p := Pose{
			At:            now,
			Frame:         frame,
			Seq:           seq,
			TimelineFrame: s.timeline.CurrentFrame(),
			Targets:       poses,
		}
		for _, o := range s.observers {
			o.ObservePose(p)
		}
	}

	if s.cfg.TimeLapse.Enabled {
		s.ticks++
		if s.ticks >= s.cfg.TimeLapse.Interval {
			s.ticks = 0
			s.timeLapseStep()
		}
	}

	return Again(s.cfg.Period())
}

func (s *Session) timeLapseStep() {
	cur := s.timeline.CurrentFrame()
	n := s.recorder.InsertAll(s.keyframeTargets(), float64(cur))
	s.timeline.SetFrame(cur + s.cfg.TimeLapse.Interval)
	s.metrics.inserted("timelapse", n)
	s.logger.Debug("time-lapse keyframes", "frame", cur, "keyframes", n)
}

// Clear zeroes every catalogue channel on every bound target. It is rejected
// while the receiver is running.
func (s *Session) Clear() (int, error) {
	if s.running {
		s.logger.Warn("cannot clear channels while running")
		return 0, ErrClearWhileRunning
	}
	cleared := 0
	for _, t := range s.targets {
		cleared += arkit.Clear(t)
	}
	s.logger.Info("channels cleared", "channels", cleared, "targets", len(s.targets))
	return cleared, nil
}

// Record inserts keyframes at the current timeline frame. With force every
// present channel is recorded; otherwise only channels that moved more than
// the threshold since they were last recorded.
func (s *Session) Record(force bool) int {
	frame := float64(s.timeline.CurrentFrame())
	targets := s.keyframeTargets()

	var n int
	mode := "optimized"
	if force {
		mode = "force"
		n = s.recorder.Force(targets, frame)
	} else {
		n = s.recorder.Optimized(targets, frame)
	}
	s.metrics.inserted(mode, n)
	s.logger.Info("keyframes recorded", "mode", mode, "frame", frame, "keyframes", n)
	return n
}

// Cleanup removes redundant keyframes from every bound target's curves.
func (s *Session) Cleanup(threshold float64) (keyframe.CleanupResult, error) {
	res, err := keyframe.Cleanup(s.store, s.TargetNames(), threshold)
	if err != nil {
		return res, err
	}
	s.metrics.removed(res.Removed)
	s.logger.Info("keyframes cleaned", "threshold", threshold, "curves", res.Curves, "removed", res.Removed, "kept", res.Kept)
	return res, nil
}

// DeleteKeysAt removes the keyframes at frame from every bound target.
// The recorder cache is reset so the next optimized record starts fresh.
func (s *Session) DeleteKeysAt(frame int) int {
	n := keyframe.DeleteAt(s.store, s.TargetNames(), float64(frame))
	s.recorder.Reset()
	s.metrics.removed(n)
	s.logger.Info("keyframes deleted", "frame", frame, "keyframes", n)
	return n
}

// DeleteAllKeys removes every catalogue keyframe from every bound target.
func (s *Session) DeleteAllKeys() int {
	n := keyframe.DeleteAll(s.store, s.TargetNames())
	s.recorder.Reset()
	s.metrics.removed(n)
	s.logger.Info("all keyframes deleted", "keyframes", n)
	return n
}

// AddTarget binds t. Names are unique.
func (s *Session) AddTarget(t Target) error {
	if t == nil {
		return fmt.Errorf("%w: nil target", ErrUnknownTarget)
	}
	for _, cur := range s.targets {
		if cur.Name() == t.Name() {
			return fmt.Errorf("%w: %q", ErrDuplicateTarget, t.Name())
		}
	}
	s.targets = append(s.targets, t)
	s.metrics.setTargets(len(s.targets))
	s.logger.Info("target bound", "target", t.Name())
	return nil
}

// RemoveTarget unbinds the target called name.
func (s *Session) RemoveTarget(name string) error {
	for i, cur := range s.targets {
		if cur.Name() != name {
			continue
		}
		s.targets = append(s.targets[:i], s.targets[i+1:]...)
		s.recorder.ResetTarget(name)
		s.metrics.setTargets(len(s.targets))
		s.logger.Info("target unbound", "target", name)
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownTarget, name)
}

// TargetNames returns the bound target names in binding order.
func (s *Session) TargetNames() []string {
	names := make([]string, len(s.targets))
	for i, t := range s.targets {
		names[i] = t.Name()
	}
	return names
}

func (s *Session) keyframeTargets() []keyframe.Target {
	out := make([]keyframe.Target, len(s.targets))
	for i, t := range s.targets {
		out[i] = t
	}
	return out
}

// SetTimeLapse changes time-lapse recording. The tick counter restarts.
func (s *Session) SetTimeLapse(tl TimeLapse) error {
	if tl.Interval < 1 {
		return ErrInvalidInterval
	}
	s.cfg.TimeLapse = tl
	s.ticks = 0
	s.logger.Info("time-lapse updated", "enabled", tl.Enabled, "interval", tl.Interval)
	return nil
}

// SetThreshold changes the optimized recording threshold.
func (s *Session) SetThreshold(threshold float64) error {
	if err := s.recorder.SetThreshold(threshold); err != nil {
		return err
	}
	s.cfg.Threshold = threshold
	return nil
}

// Status returns a snapshot for control clients.
func (s *Session) Status() Status {
	st := Status{
		Running:       s.running,
		ReceiverState: livelink.StateIdle.String(),
		Targets:       s.TargetNames(),
		Frame:         s.timeline.CurrentFrame(),
		Threshold:     s.recorder.Threshold(),
		TimeLapse:     s.cfg.TimeLapse,
	}
	switch {
	case s.receiver != nil:
		st.ReceiverState = s.receiver.State().String()
		if addr := s.receiver.LocalAddr(); addr != nil {
			st.ListenAddr = addr.String()
		}
	case s.prev != nil:
		st.ReceiverState = s.prev.State().String()
	}

	stats := s.slot.Stats()
	st.FramesPublished = stats.Published
	st.FramesOverwritten = stats.Overwritten
	if f, ok := s.slot.Latest(); ok {
		st.Device = f.DeviceName
		st.SessionID = f.SessionID
	}
	return st
}
