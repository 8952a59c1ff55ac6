package audio

import (
	"math"
	"testing"
	"time"

	"github.com/pion/rtp"
)

func rtpPacket(t *testing.T, payload []byte) []byte {
	t.Helper()
	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    0,
			SequenceNumber: 1,
			Timestamp:      0,
			SSRC:           1,
		},
		Payload: payload,
	}
	raw, err := pkt.Marshal()
	if err != nil {
		t.Fatalf("marshal test rtp packet: %v", err)
	}
	return raw
}

// S7 — silence: 160 bytes all 128 must read rms=0, db=-100 dBFS.
func TestS7SilenceIsMinus100DBFS(t *testing.T) {
	payload := make([]byte, 160)
	for i := range payload {
		payload[i] = 128
	}
	got := dbfs(payload)
	want := 20 * math.Log10(minRMS)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %v dBFS for silence, got %v", want, got)
	}
	if want != -100 {
		t.Fatalf("sanity check failed: expected -100 dBFS constant, got %v", want)
	}
}

func TestDBFSFullScale(t *testing.T) {
	payload := make([]byte, 160)
	for i := range payload {
		if i%2 == 0 {
			payload[i] = 0
		} else {
			payload[i] = 255
		}
	}
	got := dbfs(payload)
	if got <= -1 {
		t.Fatalf("expected near-0 dBFS for a full-scale square wave, got %v", got)
	}
}

// Property 8: for any non-empty buffer, min(di) <= meanDb <= max(di).
func TestLogMeanBound(t *testing.T) {
	readings := []float64{-40, -30, -35, -20, -60}
	level := summarize(readings)

	min, max := readings[0], readings[0]
	for _, d := range readings {
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	if level.DBFS < min || level.DBFS > max {
		t.Fatalf("expected meanDb within [%v, %v], got %v", min, max, level.DBFS)
	}
}

func TestSamplerEmitsOnWindowElapse(t *testing.T) {
	var got []Level
	s := NewSampler(20*time.Millisecond, func(l Level) { got = append(got, l) }, nil)
	s.Start()
	defer s.Stop()

	payload := make([]byte, 160)
	for i := range payload {
		payload[i] = 128
	}
	raw := rtpPacket(t, payload)

	if err := s.OnPacket(raw); err != nil {
		t.Fatalf("OnPacket: %v", err)
	}
	time.Sleep(25 * time.Millisecond)
	if err := s.OnPacket(raw); err != nil {
		t.Fatalf("OnPacket: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("expected exactly one emission after the window elapsed, got %d", len(got))
	}
	if got[0].DBFS != -100 {
		t.Fatalf("expected -100 dBFS for an all-silence window, got %v", got[0].DBFS)
	}
}

// A packet arriving after the window has sat idle (nothing buffered) must
// not be treated as having filled that stale window — it starts the next
// one instead. §7 SampleStarvation: an elapsed, empty window is suppressed,
// never emitted.
func TestSamplerSuppressesStaleEmptyWindow(t *testing.T) {
	var got []Level
	s := NewSampler(20*time.Millisecond, func(l Level) { got = append(got, l) }, nil)
	s.Start()
	defer s.Stop()

	payload := make([]byte, 160)
	for i := range payload {
		payload[i] = 128
	}
	raw := rtpPacket(t, payload)

	time.Sleep(30 * time.Millisecond) // window elapses with nothing buffered

	if err := s.OnPacket(raw); err != nil {
		t.Fatalf("OnPacket: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected the stale empty window to be suppressed, not emitted, got %d emissions", len(got))
	}

	time.Sleep(25 * time.Millisecond)
	if err := s.OnPacket(raw); err != nil {
		t.Fatalf("OnPacket: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly one emission once the new window elapsed, got %d", len(got))
	}
}

func TestSamplerSkipsShortPackets(t *testing.T) {
	emitted := false
	s := NewSampler(time.Millisecond, func(Level) { emitted = true }, nil)
	s.Start()
	defer s.Stop()

	if err := s.OnPacket(make([]byte, 12)); err != nil {
		t.Fatalf("OnPacket: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if emitted {
		t.Fatalf("a header-only packet must not contribute to the buffer or trigger emission")
	}
}

func TestSamplerStopClearsBuffer(t *testing.T) {
	s := NewSampler(time.Hour, func(Level) {}, nil)
	s.Start()
	payload := make([]byte, 160)
	raw := rtpPacket(t, payload)
	if err := s.OnPacket(raw); err != nil {
		t.Fatalf("OnPacket: %v", err)
	}
	s.Stop()
	if len(s.buffer) != 0 {
		t.Fatalf("expected Stop to clear the buffer, got %d entries", len(s.buffer))
	}
}
