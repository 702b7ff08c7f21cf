package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"facecap/internal/capture"
	"facecap/internal/keyframe"
	"facecap/internal/livelink"
)

// Config is the top-level YAML configuration for the facecapd daemon.
//
// Keep defaults and validation centralized so the rest of the code can assume
// a well-formed config. The file is the primary surface; flags override it.
type Config struct {
	// LiveLink UDP receiver
	Receiver ReceiverConfig `yaml:"receiver"`

	// Consumer loop cadence
	Consumer ConsumerConfig `yaml:"consumer"`

	// Keyframe recording
	Recording RecordingConfig `yaml:"recording"`

	// In-memory scene the daemon drives
	Scene SceneConfig `yaml:"scene"`

	// Objects bound as targets at startup. Empty means the active object.
	Targets []string `yaml:"targets"`

	IPC     IPCConfig     `yaml:"ipc"`
	HTTP    HTTPConfig    `yaml:"http"`
	Redis   RedisConfig   `yaml:"redis"`
	Logging LoggingConfig `yaml:"logging"`
}

type ReceiverConfig struct {
	Address       string `yaml:"address"`
	Port          int    `yaml:"port"`
	ReadTimeoutMS int    `yaml:"read_timeout_ms"`
	AutoStart     bool   `yaml:"auto_start"`
}

type ConsumerConfig struct {
	RateHz int `yaml:"rate_hz"`
}

type RecordingConfig struct {
	Threshold float64           `yaml:"threshold"`
	TimeLapse capture.TimeLapse `yaml:"timelapse"`
}

type SceneConfig struct {
	StartFrame int            `yaml:"start_frame"`
	Objects    []ObjectConfig `yaml:"objects"`
}

// ObjectConfig declares one scene object. An empty channel list gives the
// object the full ARKit catalogue.
type ObjectConfig struct {
	Name     string   `yaml:"name"`
	Channels []string `yaml:"channels,omitempty"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type HTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// RedisConfig enables the pose publisher when Addr is set.
type RedisConfig struct {
	Addr    string `yaml:"addr"`
	Channel string `yaml:"channel"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

const (
	minPort = 1024
	maxPort = 65535
)

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Receiver: ReceiverConfig{
			Address:       "0.0.0.0",
			Port:          11111,
			ReadTimeoutMS: int(livelink.DefaultReadTimeout / time.Millisecond),
		},
		Consumer: ConsumerConfig{
			RateHz: capture.DefaultRateHz,
		},
		Recording: RecordingConfig{
			Threshold: keyframe.DefaultThreshold,
			TimeLapse: capture.TimeLapse{
				Enabled:  false,
				Interval: capture.DefaultTimeLapseInterval,
			},
		},
		Scene: SceneConfig{
			StartFrame: 1,
			Objects:    []ObjectConfig{{Name: "Face"}},
		},
		IPC: IPCConfig{
			SocketPath: "/tmp/facecapd.sock",
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Port:    3002,
		},
		Redis: RedisConfig{
			Channel: "facecap:pose",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of the defaults.
//
// Unknown fields are rejected via KnownFields(true), which catches typos.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace/comments are allowed after the document.
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides holds values from flags that were explicitly set. A nil
// pointer means the flag was not given; a non-nil one is applied even when
// it holds the zero value.
type FlagOverrides struct {
	ReceiverAddress   *string
	ReceiverPort      *int
	ReceiverTimeoutMS *int
	AutoStart         *bool

	RateHz    *int
	Threshold *float64

	TimeLapseEnabled  *bool
	TimeLapseInterval *int

	Targets *[]string

	IPCSocketPath *string
	HTTPEnabled   *bool
	HTTPPort      *int
	RedisAddr     *string
	RedisChannel  *string

	LogLevel *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}

	if o.ReceiverAddress != nil {
		cfg.Receiver.Address = *o.ReceiverAddress
	}
	if o.ReceiverPort != nil {
		cfg.Receiver.Port = *o.ReceiverPort
	}
	if o.ReceiverTimeoutMS != nil {
		cfg.Receiver.ReadTimeoutMS = *o.ReceiverTimeoutMS
	}
	if o.AutoStart != nil {
		cfg.Receiver.AutoStart = *o.AutoStart
	}

	if o.RateHz != nil {
		cfg.Consumer.RateHz = *o.RateHz
	}
	if o.Threshold != nil {
		cfg.Recording.Threshold = *o.Threshold
	}
	if o.TimeLapseEnabled != nil {
		cfg.Recording.TimeLapse.Enabled = *o.TimeLapseEnabled
	}
	if o.TimeLapseInterval != nil {
		cfg.Recording.TimeLapse.Interval = *o.TimeLapseInterval
	}

	if o.Targets != nil {
		cfg.Targets = append([]string(nil), (*o.Targets)...)
	}

	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.HTTPEnabled != nil {
		cfg.HTTP.Enabled = *o.HTTPEnabled
	}
	if o.HTTPPort != nil {
		cfg.HTTP.Port = *o.HTTPPort
	}
	if o.RedisAddr != nil {
		cfg.Redis.Addr = *o.RedisAddr
	}
	if o.RedisChannel != nil {
		cfg.Redis.Channel = *o.RedisChannel
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// Call it after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	// Receiver
	if c.Receiver.Address == "" {
		return errors.New("receiver.address must not be empty")
	}
	if net.ParseIP(c.Receiver.Address) == nil {
		return fmt.Errorf("receiver.address %q is not an IP address", c.Receiver.Address)
	}
	if c.Receiver.Port < minPort || c.Receiver.Port > maxPort {
		return fmt.Errorf("receiver.port must be between %d and %d", minPort, maxPort)
	}
	if c.Receiver.ReadTimeoutMS <= 0 {
		return errors.New("receiver.read_timeout_ms must be > 0")
	}

	// Consumer
	if c.Consumer.RateHz <= 0 || c.Consumer.RateHz > 1000 {
		return errors.New("consumer.rate_hz must be between 1 and 1000")
	}

	// Recording
	if c.Recording.Threshold < 0 {
		return errors.New("recording.threshold must be >= 0")
	}
	if c.Recording.TimeLapse.Interval < 1 {
		return errors.New("recording.timelapse.interval must be >= 1")
	}

	// Scene
	if len(c.Scene.Objects) == 0 {
		return errors.New("scene.objects must not be empty")
	}
	seen := make(map[string]bool, len(c.Scene.Objects))
	for i, o := range c.Scene.Objects {
		if o.Name == "" {
			return fmt.Errorf("scene.objects[%d].name is empty", i)
		}
		if seen[o.Name] {
			return fmt.Errorf("scene.objects[%d].name %q is duplicated", i, o.Name)
		}
		seen[o.Name] = true
	}

	// Targets
	for i, name := range c.Targets {
		if !seen[name] {
			return fmt.Errorf("targets[%d] %q is not a scene object", i, name)
		}
	}

	// IPC
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	// HTTP
	if c.HTTP.Enabled && (c.HTTP.Port <= 0 || c.HTTP.Port > maxPort) {
		return fmt.Errorf("http.port must be between 1 and %d", maxPort)
	}

	// Redis
	if c.Redis.Addr != "" && c.Redis.Channel == "" {
		return errors.New("redis.addr is set but redis.channel is empty")
	}

	// Logging
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

// SessionConfig converts the file config into the capture session config.
func (c *Config) SessionConfig() capture.Config {
	return capture.Config{
		Receiver: livelink.ReceiverConfig{
			Address:     c.Receiver.Address,
			Port:        c.Receiver.Port,
			ReadTimeout: time.Duration(c.Receiver.ReadTimeoutMS) * time.Millisecond,
		},
		RateHz:    c.Consumer.RateHz,
		Threshold: c.Recording.Threshold,
		TimeLapse: c.Recording.TimeLapse,
	}
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
