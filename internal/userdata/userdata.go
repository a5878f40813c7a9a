// Package userdata keeps the signed-in user's profile, loyalty account and
// role flags as one snapshot.  The four rows are fetched concurrently and
// published together; a result is published only if no newer request (or
// Clear) was issued while it was in flight.
package userdata

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iliyamo/loyalty-rewards/internal/gateway"
	"github.com/iliyamo/loyalty-rewards/internal/logger"
	"github.com/iliyamo/loyalty-rewards/internal/model"
	"github.com/iliyamo/loyalty-rewards/internal/notify"
)

// DefaultProfileRetryDelay is how long to wait before asking again for a
// profile that was not found right after signup.
const DefaultProfileRetryDelay = 500 * time.Millisecond

// LoyaltyStatus tells "never activated" apart from "could not load".
type LoyaltyStatus int

const (
	LoyaltyUnknown LoyaltyStatus = iota
	LoyaltyNotActivated
	LoyaltyActive
)

func (s LoyaltyStatus) String() string {
	switch s {
	case LoyaltyNotActivated:
		return "not-activated"
	case LoyaltyActive:
		return "active"
	}
	return "unknown"
}

// Snapshot is the published user data.  Nil fields are absent: not loaded,
// failed, or cleared.  Role flags are pointers so a failed lookup is not
// mistaken for false.
type Snapshot struct {
	UserID         string
	Profile        *model.Profile
	Loyalty        *model.LoyaltyAccount
	IsAdmin        *bool
	IsStaff        *bool
	LoyaltyStatus  LoyaltyStatus
	ProfilePending bool // profile still missing after the retry
}

// Empty reports whether nothing is published.
func (s Snapshot) Empty() bool {
	return s.UserID == "" && s.Profile == nil && s.Loyalty == nil && s.IsAdmin == nil && s.IsStaff == nil
}

// Synchronizer is the only writer of the snapshot.
type Synchronizer struct {
	data gateway.Data
	log  logger.Logger

	// ProfileRetryDelay is read when a sync starts.
	ProfileRetryDelay time.Duration

	seq atomic.Uint64

	mu   sync.RWMutex
	snap Snapshot
	// fan is pushed to under mu so delivery follows publication order.
	fan  notify.Fanout[Snapshot]
}

func New(data gateway.Data, log logger.Logger) *Synchronizer {
	return &Synchronizer{
		data:              data,
		log:               log,
		ProfileRetryDelay: DefaultProfileRetryDelay,
	}
}

// Snapshot returns the published snapshot.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Subscribe calls fn after every publish and every Clear, in that order,
// on a delivery goroutine.  fn may call back into the Synchronizer.  The
// returned func removes it.
func (s *Synchronizer) Subscribe(fn func(Snapshot)) func() {
	return s.fan.Subscribe(fn)
}

// Sync fetches the rows for userID and blocks until they are published or
// discarded.  It reports whether this call's result was published.
func (s *Synchronizer) Sync(ctx context.Context, userID string) bool {
	seq := s.seq.Add(1)
	return s.publish(seq, s.fetch(ctx, userID))
}

// Trigger starts a sync in the background.  Its place in the request order
// is fixed before Trigger returns.  The channel closes when the sync has
// settled.
func (s *Synchronizer) Trigger(ctx context.Context, userID string) <-chan struct{} {
	seq := s.seq.Add(1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.publish(seq, s.fetch(ctx, userID))
	}()
	return done
}

// Clear empties the snapshot before returning.  Syncs still in flight are
// discarded when they finish.
func (s *Synchronizer) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq.Add(1)
	s.snap = Snapshot{}
	s.fan.Push(Snapshot{})
}

func (s *Synchronizer) publish(seq uint64, snap Snapshot) bool {
	s.mu.Lock()
	if seq != s.seq.Load() {
		s.mu.Unlock()
		s.log.Debug().Uint64("seq", seq).Str("user_id", snap.UserID).Msg("stale user data discarded")
		return false
	}
	s.snap = snap
	s.fan.Push(snap)
	s.mu.Unlock()
	return true
}

// fetch gathers all four rows.  Failures are logged and leave their field
// nil; nothing is carried over from an earlier snapshot.
func (s *Synchronizer) fetch(ctx context.Context, userID string) Snapshot {
	snap := Snapshot{UserID: userID}
	log := s.log.With().Str("user_id", userID).Logger()
	delay := s.ProfileRetryDelay

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		p, err := s.data.ProfileByID(ctx, userID)
		if errors.Is(err, gateway.ErrNotFound) {
			log.Info().Dur("delay", delay).Msg("profile not found yet, retrying once")
			if sleep(ctx, delay) {
				p, err = s.data.ProfileByID(ctx, userID)
			}
		}
		switch {
		case errors.Is(err, gateway.ErrNotFound):
			snap.ProfilePending = true
		case err != nil:
			log.Warn().Err(err).Str("field", "profile").Msg("user data fetch failed")
		default:
			snap.Profile = p
		}
	}()
	go func() {
		defer wg.Done()
		acc, err := s.data.LoyaltyAccountByUserID(ctx, userID)
		switch {
		case errors.Is(err, gateway.ErrNotFound):
			snap.LoyaltyStatus = LoyaltyNotActivated
		case err != nil:
			log.Warn().Err(err).Str("field", "loyalty_account").Msg("user data fetch failed")
		default:
			snap.Loyalty = acc
			snap.LoyaltyStatus = LoyaltyNotActivated
			if acc.IsActive {
				snap.LoyaltyStatus = LoyaltyActive
			}
		}
	}()
	go func() {
		defer wg.Done()
		snap.IsAdmin = s.role(ctx, log, userID, model.RoleAdmin)
	}()
	go func() {
		defer wg.Done()
		snap.IsStaff = s.role(ctx, log, userID, model.RoleStaff)
	}()
	wg.Wait()
	return snap
}

func (s *Synchronizer) role(ctx context.Context, log logger.Logger, userID, role string) *bool {
	has, err := s.data.HasRole(ctx, userID, role)
	if err != nil {
		log.Warn().Err(err).Str("field", "role_"+role).Msg("user data fetch failed")
		return nil
	}
	return &has
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
