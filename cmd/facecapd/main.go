package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"facecap/internal/arkit"
	"facecap/internal/capture"
	"facecap/internal/livelink"
	"facecap/internal/scene"
)

const version = "0.3.0"

func printVersion() {
	fmt.Printf("facecapd v%s\n", version)
	fmt.Println("LiveLink Face (ARKit) capture daemon")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  facecapd [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Receives LiveLink Face datagrams over UDP, applies the 52 ARKit blendshape")
	fmt.Println("  values to scene objects at a fixed rate, and records keyframes on request")
	fmt.Println("  or by time-lapse. Controlled over a Unix socket (see facecap-ctl).")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to YAML config file (defaults apply when omitted)")
	fmt.Println()
	fmt.Println("  -address string")
	fmt.Println("        UDP bind address (default \"0.0.0.0\")")
	fmt.Println()
	fmt.Println("  -port int")
	fmt.Println("        UDP bind port, 1024-65535 (default 11111)")
	fmt.Println()
	fmt.Println("  -read-timeout-ms int")
	fmt.Println("        Receiver read timeout in ms (default 500)")
	fmt.Println()
	fmt.Println("  -auto-start")
	fmt.Println("        Start capturing immediately")
	fmt.Println()
	fmt.Println("  -rate-hz int")
	fmt.Printf("        Consumer loop rate in Hz (default %d)\n", capture.DefaultRateHz)
	fmt.Println()
	fmt.Println("  -threshold float")
	fmt.Println("        Keyframe change threshold (default 0.001)")
	fmt.Println()
	fmt.Println("  -timelapse")
	fmt.Println("        Enable time-lapse recording")
	fmt.Println()
	fmt.Println("  -timelapse-interval int")
	fmt.Printf("        Ticks between time-lapse keyframes and frames advanced (default %d)\n", capture.DefaultTimeLapseInterval)
	fmt.Println()
	fmt.Println("  -targets string")
	fmt.Println("        Comma-separated scene objects to bind (default: the active object)")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Println("        Unix domain socket path for IPC (default \"/tmp/facecapd.sock\")")
	fmt.Println()
	fmt.Println("  -http / -http-port int")
	fmt.Println("        Serve /metrics, /healthz and /ws/pose (default true, port 3002)")
	fmt.Println()
	fmt.Println("  -redis-addr string / -redis-channel string")
	fmt.Println("        Publish poses to Redis when an address is set (default channel \"facecap:pose\")")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start capturing on the default port")
	fmt.Println("  facecapd -auto-start")
	fmt.Println()
	fmt.Println("  # Record a keyframe every 5 ticks")
	fmt.Println("  facecapd -auto-start -timelapse -timelapse-interval 5")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Flags override values from -config")
	fmt.Println("  - Point the LiveLink Face app at this host and port")
	fmt.Println()
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	var (
		configPath = flag.String("config", "", "Path to YAML config file")

		address       = flag.String("address", "", "UDP bind address")
		port          = flag.Int("port", 0, "UDP bind port")
		readTimeoutMS = flag.Int("read-timeout-ms", 0, "Receiver read timeout in milliseconds")
		autoStart     = flag.Bool("auto-start", false, "Start capturing immediately")

		rateHz            = flag.Int("rate-hz", 0, "Consumer loop rate in Hz")
		threshold         = flag.Float64("threshold", 0, "Keyframe change threshold")
		timeLapse         = flag.Bool("timelapse", false, "Enable time-lapse recording")
		timeLapseInterval = flag.Int("timelapse-interval", 0, "Time-lapse interval in ticks and frames")
		targets           = flag.String("targets", "", "Comma-separated scene objects to bind")

		ipcSocket    = flag.String("ipc-socket", "", "Unix domain socket path for IPC")
		httpEnabled  = flag.Bool("http", true, "Serve metrics and the pose websocket")
		httpPort     = flag.Int("http-port", 0, "HTTP listener port")
		redisAddr    = flag.String("redis-addr", "", "Redis address for pose publishing")
		redisChannel = flag.String("redis-channel", "", "Redis pub/sub channel for poses")

		logLevelStr = flag.String("log-level", "", "Log level: error, warn, info, debug")
	)

	flag.Usage = printUsage
	flag.Parse()

	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	}

	// Only explicitly set flags override the file.
	var o FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "address":
			o.ReceiverAddress = address
		case "port":
			o.ReceiverPort = port
		case "read-timeout-ms":
			o.ReceiverTimeoutMS = readTimeoutMS
		case "auto-start":
			o.AutoStart = autoStart
		case "rate-hz":
			o.RateHz = rateHz
		case "threshold":
			o.Threshold = threshold
		case "timelapse":
			o.TimeLapseEnabled = timeLapse
		case "timelapse-interval":
			o.TimeLapseInterval = timeLapseInterval
		case "targets":
			names := splitList(*targets)
			o.Targets = &names
		case "ipc-socket":
			o.IPCSocketPath = ipcSocket
		case "http":
			o.HTTPEnabled = httpEnabled
		case "http-port":
			o.HTTPPort = httpPort
		case "redis-addr":
			o.RedisAddr = redisAddr
		case "redis-channel":
			o.RedisChannel = redisChannel
		case "log-level":
			o.LogLevel = logLevelStr
		}
	})
	o.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, _ := parseLogLevel(cfg.Logging.Level)
	logger := setupLogger(logLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Debug("starting facecapd", "version", version)
	logger.Debug("configuration",
		"address", cfg.Receiver.Address,
		"port", cfg.Receiver.Port,
		"read_timeout_ms", cfg.Receiver.ReadTimeoutMS,
		"auto_start", cfg.Receiver.AutoStart,
		"rate_hz", cfg.Consumer.RateHz,
		"threshold", cfg.Recording.Threshold,
		"timelapse", cfg.Recording.TimeLapse.Enabled,
		"timelapse_interval", cfg.Recording.TimeLapse.Interval,
		"targets", cfg.Targets,
		"ipc_socket", cfg.IPC.SocketPath,
		"http", cfg.HTTP.Enabled,
		"http_port", cfg.HTTP.Port,
		"redis_addr", cfg.Redis.Addr,
	)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("facecapd exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// buildScene creates the scene objects named in cfg.
func buildScene(cfg SceneConfig) (*scene.Scene, error) {
	sc := scene.New(cfg.StartFrame)
	for _, oc := range cfg.Objects {
		channels := oc.Channels
		if len(channels) == 0 {
			channels = arkit.Channels[:]
		}
		if err := sc.Add(scene.NewObject(oc.Name, channels...)); err != nil {
			return nil, err
		}
	}
	return sc, nil
}

// run wires the components and blocks until ctx is canceled or one of them
// fails.
func run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	sc, err := buildScene(cfg.Scene)
	if err != nil {
		return fmt.Errorf("build scene: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rmetrics := livelink.NewMetrics()
	cmetrics := capture.NewMetrics()
	registry.MustRegister(rmetrics, cmetrics)

	sched := capture.NewScheduler(logger)

	session, err := capture.NewSession(cfg.SessionConfig(), capture.Host{
		Scheduler: sched,
		Timeline:  sc.Timeline(),
		Store:     sc.Store(),
	}, capture.Options{
		Logger:          logger,
		Metrics:         cmetrics,
		ReceiverMetrics: rmetrics,
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	d := newDaemon(ctx, sched, session, sc, logger)
	if err := d.bindTargets(cfg.Targets); err != nil {
		return fmt.Errorf("bind targets: %w", err)
	}

	// Optional pose sinks must be attached before the scheduler runs.
	var publisher *RedisPublisher
	if cfg.Redis.Addr != "" {
		publisher, err = NewRedisPublisher(ctx, cfg.Redis, logger)
		if err != nil {
			return err
		}
		session.Observe(publisher)
	}

	var (
		poses *PoseServer
		feed  *poseFeed
	)
	if cfg.HTTP.Enabled {
		poses = NewPoseServer(logger, d, HubConfig{})
		feed = newPoseFeed()
		session.Observe(feed)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := sched.Run(gctx)
		// The consumer loop is gone; let the receiver go too.
		if session.Running() {
			_ = session.Stop()
		}
		session.Wait()
		return err
	})

	g.Go(func() error {
		return runIPCServer(gctx, ExpandPath(cfg.IPC.SocketPath), d, logger)
	})

	if poses != nil {
		g.Go(func() error {
			poses.Hub().Run(gctx)
			return nil
		})
		g.Go(func() error {
			RunBroadcaster(gctx, poses.Hub(), feed.C(), logger)
			return nil
		})
		g.Go(func() error {
			return runHTTPServer(gctx, cfg.HTTP.Port, newHTTPMux(registry, poses), logger)
		})
	} else {
		logger.Info("HTTP server disabled")
	}

	if publisher != nil {
		g.Go(func() error {
			return publisher.Run(gctx)
		})
	}

	if cfg.Receiver.AutoStart {
		g.Go(func() error {
			res, err := d.Dispatch(gctx, CmdStart{})
			if err != nil {
				if errors.Is(err, capture.ErrSchedulerStopped) || gctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("auto start: %w", err)
			}
			logger.Info("capture auto-started", "listen_addr", res.(startResult).ListenAddr)
			return nil
		})
	}

	return g.Wait()
}
