// Command facecap-send streams synthetic LiveLink Face datagrams, for testing
// facecapd without a phone.
package main

import (
	"flag"
	"log"
	"math"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"facecap/internal/arkit"
	"facecap/internal/livelink"
)

func main() {
	var (
		addr     = flag.String("addr", "127.0.0.1:11111", "facecapd UDP address")
		rate     = flag.Int("rate", 60, "Datagrams per second")
		device   = flag.String("device", "facecap-send", "Device name to report")
		period   = flag.Duration("period", 2*time.Second, "Period of the synthetic motion")
		count    = flag.Int("count", 0, "Stop after this many datagrams (0 = until interrupted)")
		channels = flag.Int("channels", arkit.Count, "Number of values per datagram")
	)
	flag.Parse()

	if *rate <= 0 || *rate > 1000 {
		log.Fatalf("-rate must be between 1 and 1000")
	}
	if *channels < 0 {
		log.Fatalf("-channels must be >= 0")
	}

	conn, err := net.Dial("udp", *addr)
	if err != nil {
		log.Fatalf("dial %s: %v", *addr, err)
	}
	defer conn.Close()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	session := uuid.New().String()
	log.Printf("sending to %s at %d Hz (session %s)", *addr, *rate, session)

	ticker := time.NewTicker(time.Second / time.Duration(*rate))
	defer ticker.Stop()

	start := time.Now()
	for i := 0; *count == 0 || i < *count; i++ {
		select {
		case <-sigc:
			log.Printf("stopping after %d datagrams", i)
			return
		case now := <-ticker.C:
			f := synthFrame(now.Sub(start), *period, *channels)
			f.SessionID = session
			f.DeviceName = *device
			f.FrameIndex = int32(i)
			f.RateNumerator = int32(*rate)
			f.RateDenominator = 1
			if _, err := conn.Write(livelink.Encode(f)); err != nil {
				// UDP reports unreachable ports asynchronously; keep going.
				log.Printf("write: %v", err)
			}
		}
	}
	log.Printf("sent %d datagrams", *count)
}

// synthFrame returns a frame whose i-th value follows a sine of the given
// period, phase-shifted per channel and mapped into [0, 1].
func synthFrame(elapsed, period time.Duration, n int) livelink.Frame {
	values := make([]float32, n)
	if period <= 0 {
		return livelink.Frame{Values: values}
	}
	phase := 2 * math.Pi * elapsed.Seconds() / period.Seconds()
	for i := range values {
		off := 2 * math.Pi * float64(i) / float64(arkit.Count)
		values[i] = float32(0.5 + 0.5*math.Sin(phase+off))
	}
	return livelink.Frame{Values: values}
}
