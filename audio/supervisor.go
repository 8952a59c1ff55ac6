package audio

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultReconnectInterval is the §4.7 "periodic supervisor (default every
// 60 min)" period.
const DefaultReconnectInterval = 60 * time.Minute

// Forwarder is one live connection to the audio source (e.g. an RTP
// listener). The supervisor owns its lifecycle: Start begins delivering
// packets to onPacket until Stop is called. The interface has no
// completion notification, so a connection that ends on its own is not
// reported to the supervisor; it stays in the slot until the next tick
// stops it and starts a replacement.
type Forwarder interface {
	Start(onPacket func([]byte)) error
	Stop()
}

// Supervisor restarts a Forwarder on a timer, guarding against overlap
// between an old forwarder's termination and the new one's start via a
// currentForwarder sentinel (§5): clearIfCurrent, run after a forwarder is
// stopped or fails to start, clears the sentinel only if it still refers
// to that forwarder.
type Supervisor struct {
	log      *zap.Logger
	sampler  *Sampler
	newFwd   func() (Forwarder, error)
	interval time.Duration

	mu        sync.Mutex
	current   Forwarder
	currentID uuid.UUID

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSupervisor creates a Supervisor driving sampler's packet feed through
// forwarders produced by newFwd, reconnecting every interval (<=0 uses
// DefaultReconnectInterval).
func NewSupervisor(sampler *Sampler, newFwd func() (Forwarder, error), interval time.Duration, log *zap.Logger) *Supervisor {
	if interval <= 0 {
		interval = DefaultReconnectInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Supervisor{
		log:      log.With(zap.String("component", "audio.supervisor")),
		sampler:  sampler,
		newFwd:   newFwd,
		interval: interval,
	}
}

// Run starts the sampler, connects the first forwarder, and reconnects on
// the configured interval until ctx is cancelled. Run blocks until ctx is
// done and the final forwarder has stopped.
func (sv *Supervisor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	sv.mu.Lock()
	sv.cancel = cancel
	sv.done = make(chan struct{})
	sv.mu.Unlock()
	defer close(sv.done)

	sv.sampler.Start()
	defer sv.sampler.Stop()

	if err := sv.reconnect(); err != nil {
		return errors.Wrap(err, "audio: initial connect")
	}

	ticker := time.NewTicker(sv.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sv.stopCurrent()
			return nil
		case <-ticker.C:
			if err := sv.reconnect(); err != nil {
				sv.log.Warn("reconnect failed, keeping previous forwarder", zap.Error(err))
			}
		}
	}
}

// Stop cancels a running Supervisor and waits for it to finish tearing
// down the current forwarder.
func (sv *Supervisor) Stop() {
	sv.mu.Lock()
	cancel := sv.cancel
	done := sv.done
	sv.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		<-done
	}
}

// reconnect implements §5's ordering: stop the current forwarder (await
// its termination), then start a new one under a fresh sentinel.
func (sv *Supervisor) reconnect() error {
	sv.stopCurrent()

	fwd, err := sv.newFwd()
	if err != nil {
		return err
	}

	id := uuid.New()
	sv.mu.Lock()
	sv.current = fwd
	sv.currentID = id
	sv.mu.Unlock()

	if err := fwd.Start(func(pkt []byte) {
		if perr := sv.sampler.OnPacket(pkt); perr != nil {
			sv.log.Warn("dropping malformed packet", zap.Error(perr))
		}
	}); err != nil {
		sv.clearIfCurrent(id)
		return errors.Wrap(err, "audio: start forwarder")
	}

	sv.log.Info("forwarder connected", zap.String("forwarder_id", id.String()))
	return nil
}

// stopCurrent tears down the active forwarder, if any, and clears the
// sentinel only if it still refers to the forwarder being stopped —
// guarding against a late completion callback from an even older
// forwarder clobbering a newer one's slot.
func (sv *Supervisor) stopCurrent() {
	sv.mu.Lock()
	fwd := sv.current
	id := sv.currentID
	sv.mu.Unlock()

	if fwd == nil {
		return
	}
	fwd.Stop()
	sv.clearIfCurrent(id)
}

func (sv *Supervisor) clearIfCurrent(id uuid.UUID) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if sv.currentID == id {
		sv.current = nil
	}
}
