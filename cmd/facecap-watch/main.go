package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// message is the facecapd websocket envelope.
type message struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

type pose struct {
	Seq           uint64             `json:"seq"`
	Device        string             `json:"device"`
	FrameIndex    int32              `json:"frame_index"`
	TimelineFrame int                `json:"timeline_frame"`
	Channels      map[string]float32 `json:"channels"`
}

func main() {
	var (
		wsURL    = flag.String("ws", "ws://127.0.0.1:3002/ws/pose", "facecapd pose websocket URL")
		channels = flag.String("channels", "jawOpen,eyeBlinkLeft,eyeBlinkRight", "Comma-separated channels to print (empty prints all)")
		minDelta = flag.Float64("min-delta", 0.01, "Only print a channel when it moved at least this much")
		raw      = flag.Bool("raw", false, "Print raw JSON messages")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	// Mutex to protect concurrent writes to websocket
	var writeMu sync.Mutex

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	go func() {
		for range pingTicker.C {
			writeMu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, nil)
			writeMu.Unlock()
			if err != nil {
				log.Printf("ping failed: %v", err)
				return
			}
		}
	}()

	p := newPrinter(splitList(*channels), float32(*minDelta))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			// Server pings keep the read deadline moving too.
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			if messageType != websocket.TextMessage {
				continue
			}
			if *raw {
				fmt.Println(string(data))
				continue
			}
			p.handle(data)
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
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

// printer prints channel changes above a minimum delta.
type printer struct {
	channels []string // empty means all
	minDelta float32
	last     map[string]float32
}

func newPrinter(channels []string, minDelta float32) *printer {
	return &printer{channels: channels, minDelta: minDelta, last: make(map[string]float32)}
}

func (p *printer) handle(data []byte) {
	var m message
	if err := json.Unmarshal(data, &m); err != nil {
		fmt.Printf("[TEXT] %s\n", string(data))
		return
	}

	switch m.Type {
	case "pose":
		var ps pose
		if err := json.Unmarshal(m.Data, &ps); err != nil {
			log.Printf("bad pose: %v", err)
			return
		}
		if line := p.changes(ps); line != "" {
			fmt.Printf("[POSE] #%d frame=%d %s\n", ps.Seq, ps.TimelineFrame, line)
		}

	case "source_changed":
		fmt.Printf("[SOURCE] %s\n", string(m.Data))

	default:
		var v any
		if err := json.Unmarshal(m.Data, &v); err != nil {
			fmt.Printf("[%s] %s\n", strings.ToUpper(m.Type), string(m.Data))
			return
		}
		pretty, _ := json.MarshalIndent(v, "", "  ")
		fmt.Printf("[%s]\n%s\n\n", strings.ToUpper(m.Type), string(pretty))
	}
}

// changes formats the watched channels that moved at least minDelta since
// they were last printed.
func (p *printer) changes(ps pose) string {
	names := p.channels
	if len(names) == 0 {
		names = make([]string, 0, len(ps.Channels))
		for name := range ps.Channels {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	var parts []string
	for _, name := range names {
		v, ok := ps.Channels[name]
		if !ok {
			continue
		}
		prev, seen := p.last[name]
		if seen && float32(math.Abs(float64(v-prev))) < p.minDelta {
			continue
		}
		p.last[name] = v
		parts = append(parts, fmt.Sprintf("%s=%.3f", name, v))
	}
	return strings.Join(parts, " ")
}
