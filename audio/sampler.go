package audio

import (
	"math"
	"sync"
	"time"

	"github.com/pion/rtp"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// minRMS floors the rms term before the log10 so a silent packet never
// produces -Inf dBFS (§4.7).
const minRMS = 1e-5

// DefaultWindow is the sampler's default sampling-window length.
const DefaultWindow = 2 * time.Second

// Level is one emitted audio-level sample (§6 "Audio output").
type Level struct {
	DBFS     float64
	DBStdDev float64
}

// Sampler consumes 8 kHz mono 8-bit PCM (µ-law family, "pcm_u8") RTP
// packets and emits windowed dBFS statistics (§4.7). It is driven
// synchronously, one packet at a time, by the host's packet source — it
// never starts its own goroutine to read packets (§5 "the Sampler path is
// also synchronous per packet").
type Sampler struct {
	log    *zap.Logger
	window time.Duration
	emit   func(Level)

	mu          sync.Mutex
	running     bool
	windowStart time.Time
	buffer      []float64
}

// NewSampler creates a Sampler. window <= 0 uses DefaultWindow. emit is
// called synchronously from OnPacket whenever a window elapses with a
// non-empty buffer; it must not block.
func NewSampler(window time.Duration, emit func(Level), log *zap.Logger) *Sampler {
	if window <= 0 {
		window = DefaultWindow
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sampler{
		log:    log.With(zap.String("component", "audio.sampler")),
		window: window,
		emit:   emit,
	}
}

// Start opens the sampling window. Calling Start on an already-running
// Sampler is a no-op.
func (s *Sampler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.windowStart = time.Now()
	s.buffer = s.buffer[:0]
}

// Stop releases all resources and clears the buffer (§4.7). No further
// emissions occur until Start is called again.
func (s *Sampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.buffer = nil
}

// OnPacket processes one RTP packet. Packets no longer than the RTP header
// (12 bytes) are skipped. Returns a wrapped error only if the packet could
// not be parsed as RTP at all — a parse failure is not fatal to the
// sampler, the caller may simply drop it and continue.
func (s *Sampler) OnPacket(raw []byte) error {
	if len(raw) <= 12 {
		return nil
	}

	var pkt rtp.Packet
	if err := pkt.Unmarshal(raw); err != nil {
		return errors.Wrap(err, "audio: unmarshal rtp packet")
	}

	db := dbfs(pkt.Payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}

	// Check the window against what it accumulated *before* this packet —
	// appending first would make the starvation branch below unreachable,
	// since a just-arrived packet always leaves the buffer non-empty.
	if time.Since(s.windowStart) >= s.window {
		if len(s.buffer) == 0 {
			// SampleStarvation (§7): window elapsed with nothing
			// accumulated. Suppress emission and restart the window; this
			// packet belongs to the new window, pushed below.
			s.windowStart = time.Now()
		} else {
			level := summarize(s.buffer)
			s.buffer = s.buffer[:0]
			s.windowStart = time.Now()
			s.log.Debug("window emitted", zap.Float64("dbfs", level.DBFS), zap.Float64("stddev", level.DBStdDev))
			if s.emit != nil {
				s.emit(level)
			}
		}
	}

	s.buffer = append(s.buffer, db)
	return nil
}

// dbfs computes the §4.7 per-packet dBFS value from raw 8-bit unsigned PCM.
func dbfs(payload []byte) float64 {
	if len(payload) == 0 {
		return 20 * math.Log10(minRMS)
	}
	var sumSq float64
	for _, b := range payload {
		v := (float64(b) - 128) / 128
		sumSq += v * v
	}
	rms := math.Sqrt(sumSq / float64(len(payload)))
	return 20 * math.Log10(math.Max(rms, minRMS))
}

// summarize folds a window's per-packet dB readings into the log-domain
// mean and population standard deviation (§4.7).
func summarize(readings []float64) Level {
	var sumPower float64
	for _, d := range readings {
		sumPower += math.Pow(10, d/10)
	}
	meanDb := 10 * math.Log10(sumPower/float64(len(readings)))

	// gonum's population mean/stddev is computed over the raw dB readings
	// (not the log-power domain) per §4.7's stddev formula, which takes the
	// arithmetic mean as its center.
	_, stddev := stat.PopMeanStdDev(readings, nil)

	return Level{DBFS: meanDb, DBStdDev: stddev}
}
