package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"facecap/internal/capture"
	"facecap/internal/keyframe"
	"facecap/internal/scene"
)

// ============================================================================
// Daemon - command execution on the scheduler goroutine
// ============================================================================
//
// Design rules enforced here:
//   - The Session is owned by the scheduler goroutine; every command runs
//     there via Scheduler.Do, serialized with the consumer loop.
//   - Receivers are bound to the daemon lifetime context, not to the
//     request that started them.
//
// ============================================================================

// Dispatcher executes control commands. The IPC server and the websocket
// snapshot path depend on this rather than on the daemon itself.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd Command) (any, error)
}

// startResult is returned by "start".
type startResult struct {
	ListenAddr string `json:"listen_addr"`
}

// countResult is returned by commands that report a number of channels or
// keyframes.
type countResult struct {
	Count int `json:"count"`
}

// curvesResult is returned by "dump_curves": target -> channel -> keyframes.
type curvesResult map[string]map[string][]keyframe.Keyframe

type daemon struct {
	// life is the daemon lifetime; receivers stop when it is canceled.
	life context.Context

	sched   *capture.Scheduler
	session *capture.Session
	scene   *scene.Scene
	logger  *slog.Logger
}

func newDaemon(life context.Context, sched *capture.Scheduler, session *capture.Session, sc *scene.Scene, logger *slog.Logger) *daemon {
	return &daemon{
		life:    life,
		sched:   sched,
		session: session,
		scene:   sc,
		logger:  logger,
	}
}

// Dispatch implements Dispatcher.
func (d *daemon) Dispatch(ctx context.Context, cmd Command) (any, error) {
	var (
		res any
		err error
	)
	if doErr := d.sched.Do(ctx, func() { res, err = d.execute(cmd) }); doErr != nil {
		return nil, doErr
	}
	return res, err
}

// bindTargets binds the named objects, or the active object when names is
// empty. Call before the scheduler starts or from the scheduler goroutine.
func (d *daemon) bindTargets(names []string) error {
	if len(names) == 0 {
		active, ok := d.scene.Active()
		if !ok {
			return errors.New("scene has no objects to bind")
		}
		d.logger.Info("no targets configured, using active object", "target", active.Name())
		return d.session.AddTarget(active)
	}
	for _, name := range names {
		obj, err := d.scene.Object(name)
		if err != nil {
			return err
		}
		if err := d.session.AddTarget(obj); err != nil {
			return err
		}
	}
	return nil
}

// execute runs on the scheduler goroutine.
func (d *daemon) execute(cmd Command) (any, error) {
	s := d.session

	switch c := cmd.(type) {
	case CmdStart:
		if err := s.Start(d.life); err != nil {
			return nil, err
		}
		return startResult{ListenAddr: s.Status().ListenAddr}, nil

	case CmdStop:
		return nil, s.Stop()

	case CmdClear:
		n, err := s.Clear()
		if err != nil {
			return nil, err
		}
		return countResult{Count: n}, nil

	case CmdRecord:
		return countResult{Count: s.Record(c.Mode == "force")}, nil

	case CmdCleanup:
		threshold := s.Status().Threshold
		if c.Threshold != nil {
			threshold = *c.Threshold
		}
		return s.Cleanup(threshold)

	case CmdDeleteKeysAt:
		frame := d.scene.Timeline().CurrentFrame()
		if c.Frame != nil {
			frame = *c.Frame
		}
		return countResult{Count: s.DeleteKeysAt(frame)}, nil

	case CmdDeleteAllKeys:
		return countResult{Count: s.DeleteAllKeys()}, nil

	case CmdAddTarget:
		obj, err := d.scene.Object(c.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", capture.ErrUnknownTarget, err)
		}
		return nil, s.AddTarget(obj)

	case CmdRemoveTarget:
		return nil, s.RemoveTarget(c.Name)

	case CmdSetTimeLapse:
		return nil, s.SetTimeLapse(capture.TimeLapse{Enabled: c.Enabled, Interval: c.Interval})

	case CmdSetFrame:
		d.scene.Timeline().SetFrame(c.Frame)
		return nil, nil

	case CmdSetThreshold:
		return nil, s.SetThreshold(c.Threshold)

	case CmdStatus:
		return s.Status(), nil

	case CmdDumpCurves:
		return d.dumpCurves(c.Target)

	default:
		return nil, fmt.Errorf("unsupported command type: %T", cmd)
	}
}

func (d *daemon) dumpCurves(target string) (curvesResult, error) {
	names := d.session.TargetNames()
	if target != "" {
		if _, err := d.scene.Object(target); err != nil {
			return nil, err
		}
		names = []string{target}
	}
	out := make(curvesResult, len(names))
	for _, name := range names {
		out[name] = d.scene.Store().Snapshot(name)
	}
	return out, nil
}
