// Package sweeper periodically deletes rooms whose members have all been
// disconnected for longer than the idle TTL. Each deletion is an ordinary
// atomic store operation, so the sweep itself has no concurrency hazard.
package sweeper

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/partyroom/go/internal/party/room"
)

// Sweeper scans the store on an interval.
type Sweeper struct {
	store    *room.Store
	clock    clockwork.Clock
	interval time.Duration
	idleTTL  time.Duration
}

// New creates a Sweeper. interval is the scan period; idleTTL is how long
// a fully disconnected room survives before deletion.
func New(store *room.Store, clock clockwork.Clock, interval, idleTTL time.Duration) *Sweeper {
	return &Sweeper{store: store, clock: clock, interval: interval, idleTTL: idleTTL}
}

// Run loops until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	log.Info().
		Dur("interval", s.interval).
		Dur("idle_ttl", s.idleTTL).
		Msg("room sweeper started")

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("room sweeper stopped")
			return
		case <-ticker.Chan():
			s.Sweep()
		}
	}
}

// Sweep runs one scan pass and returns how many rooms were deleted.
func (s *Sweeper) Sweep() int {
	now := s.clock.Now()
	deleted := 0

	for _, snap := range s.store.ListAll() {
		if anyConnected(snap) {
			continue
		}
		lastActive, ok := s.store.LastActive(snap.Code)
		if !ok {
			continue
		}
		if now.Sub(lastActive) < s.idleTTL {
			continue
		}
		if s.store.Delete(snap.Code) {
			deleted++
			log.Info().
				Str("room_code", snap.Code).
				Time("last_active", lastActive).
				Msg("idle room swept")
		}
	}
	return deleted
}

func anyConnected(snap room.Snapshot) bool {
	for _, p := range snap.Players {
		if p.Connected {
			return true
		}
	}
	return false
}
