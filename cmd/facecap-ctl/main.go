package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

// ============================================================================
// facecap-ctl - Command-line IPC Client
// ============================================================================
// This tool sends commands to the facecapd daemon via IPC.
//
// Usage:
//   facecap-ctl start
//   facecap-ctl record force
//   facecap-ctl cleanup 0.002
//   facecap-ctl timelapse on 5
//   facecap-ctl status
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/facecapd.sock)
// ============================================================================

// Command payloads (duplicated from the daemon for a standalone binary)

type recordData struct {
	Mode string `json:"mode"`
}

type cleanupData struct {
	Threshold *float64 `json:"threshold,omitempty"`
}

type frameData struct {
	Frame *int `json:"frame,omitempty"`
}

type setFrameData struct {
	Frame int `json:"frame"`
}

type nameData struct {
	Name string `json:"name"`
}

type timeLapseData struct {
	Enabled  bool `json:"enabled"`
	Interval int  `json:"interval"`
}

type thresholdData struct {
	Threshold float64 `json:"threshold"`
}

type targetData struct {
	Target string `json:"target,omitempty"`
}

// request is one command envelope.
type request struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

const defaultTimeLapseInterval = 10

func main() {
	socketPath := "/tmp/facecapd.sock"

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage()
		os.Exit(0)
	}

	req, err := parseCommand(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		printUsage()
		os.Exit(1)
	}

	data, err := sendRequest(socketPath, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if len(data) == 0 {
		fmt.Println("ok")
		return
	}
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		fmt.Println(string(data))
		return
	}
	fmt.Println(out.String())
}

// parseCommand maps command-line words to a daemon request.
func parseCommand(args []string) (request, error) {
	arg := func(i int) (string, bool) {
		if i < len(args) {
			return args[i], true
		}
		return "", false
	}

	switch args[0] {
	case "start":
		return request{Type: "start"}, nil
	case "stop":
		return request{Type: "stop"}, nil
	case "clear":
		return request{Type: "clear"}, nil
	case "status":
		return request{Type: "status"}, nil

	case "record":
		mode := "optimized"
		if m, ok := arg(1); ok {
			mode = m
		}
		if mode != "force" && mode != "optimized" {
			return request{}, fmt.Errorf("record mode must be force or optimized, got %q", mode)
		}
		return request{Type: "record", Data: recordData{Mode: mode}}, nil

	case "cleanup":
		var d cleanupData
		if s, ok := arg(1); ok {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return request{}, fmt.Errorf("invalid threshold: %w", err)
			}
			d.Threshold = &v
		}
		return request{Type: "cleanup", Data: d}, nil

	case "delete-keys", "delete-keys-at":
		var d frameData
		if s, ok := arg(1); ok {
			v, err := strconv.Atoi(s)
			if err != nil {
				return request{}, fmt.Errorf("invalid frame: %w", err)
			}
			d.Frame = &v
		}
		return request{Type: "delete_keys_at", Data: d}, nil

	case "delete-all-keys":
		return request{Type: "delete_all_keys"}, nil

	case "add-target", "remove-target":
		name, ok := arg(1)
		if !ok || name == "" {
			return request{}, fmt.Errorf("%s requires an object name", args[0])
		}
		typ := "add_target"
		if args[0] == "remove-target" {
			typ = "remove_target"
		}
		return request{Type: typ, Data: nameData{Name: name}}, nil

	case "timelapse":
		state, ok := arg(1)
		if !ok {
			return request{}, fmt.Errorf("timelapse requires on or off")
		}
		d := timeLapseData{Interval: defaultTimeLapseInterval}
		switch state {
		case "on":
			d.Enabled = true
		case "off":
		default:
			return request{}, fmt.Errorf("timelapse state must be on or off, got %q", state)
		}
		if s, ok := arg(2); ok {
			v, err := strconv.Atoi(s)
			if err != nil {
				return request{}, fmt.Errorf("invalid interval: %w", err)
			}
			d.Interval = v
		}
		return request{Type: "set_timelapse", Data: d}, nil

	case "frame", "set-frame":
		s, ok := arg(1)
		if !ok {
			return request{}, fmt.Errorf("%s requires a frame number", args[0])
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return request{}, fmt.Errorf("invalid frame: %w", err)
		}
		return request{Type: "set_frame", Data: setFrameData{Frame: v}}, nil

	case "threshold", "set-threshold":
		s, ok := arg(1)
		if !ok {
			return request{}, fmt.Errorf("%s requires a value", args[0])
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return request{}, fmt.Errorf("invalid threshold: %w", err)
		}
		return request{Type: "set_threshold", Data: thresholdData{Threshold: v}}, nil

	case "curves", "dump-curves":
		var d targetData
		if s, ok := arg(1); ok {
			d.Target = s
		}
		return request{Type: "dump_curves", Data: d}, nil

	default:
		return request{}, fmt.Errorf("unknown command: %s", args[0])
	}
}

func sendRequest(socketPath string, req request) (json.RawMessage, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	// Line-delimited JSON
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	var response IPCResponse
	if err := json.NewDecoder(conn).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if response.Status == "error" {
		return nil, fmt.Errorf("daemon error: %s", response.Error)
	}

	return response.Data, nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `facecap-ctl - Control the facecapd daemon via IPC

Usage:
  facecap-ctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: /tmp/facecapd.sock)

Commands:
  start                           Bind the LiveLink receiver and start capturing
  stop                            Stop capturing
  clear                           Zero all ARKit channels on bound targets (stopped only)
  record [force|optimized]        Insert keyframes at the current frame (default optimized)
  cleanup [threshold]             Remove redundant keyframes
  delete-keys [frame]             Delete keyframes at a frame (default current)
  delete-all-keys                 Delete every ARKit keyframe on bound targets
  add-target <name>               Bind a scene object
  remove-target <name>            Unbind a scene object
  timelapse on|off [interval]     Configure time-lapse recording
  frame <n>                       Set the current timeline frame
  threshold <value>               Set the recording threshold
  curves [target]                 Dump recorded keyframes as JSON
  status                          Show session status
  help, -h, --help                Show this help message

Examples:
  facecap-ctl start
  facecap-ctl record force
  facecap-ctl timelapse on 5
  facecap-ctl -socket /run/facecapd.sock status
`)
}
