// Package session owns the process-wide auth session.  It follows the
// gateway's auth events, keeps the user-data snapshot in step with the
// signed-in identity and clears everything locally on sign-out.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/loyalty-rewards/internal/gateway"
	"github.com/iliyamo/loyalty-rewards/internal/logger"
	"github.com/iliyamo/loyalty-rewards/internal/notify"
)

// DefaultInitTimeout bounds the session check at startup.
const DefaultInitTimeout = 10 * time.Second

// State distinguishes "still checking" from "checked".  A Ready store may
// hold no session.
type State int

const (
	Loading State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "loading"
}

// Syncer is implemented by *userdata.Synchronizer.
type Syncer interface {
	Trigger(ctx context.Context, userID string) <-chan struct{}
	Clear()
}

// Store holds zero or one session.
type Store struct {
	auth gateway.Auth
	data Syncer
	log  logger.Logger

	// InitTimeout is read by Init.
	InitTimeout time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	authSub gateway.Subscription

	// applyMu orders session changes with the user-data calls they cause.
	applyMu sync.Mutex
	mu      sync.RWMutex
	state   State
	session *gateway.Session
	settled <-chan struct{}
	fan     notify.Fanout[*gateway.Session]
}

var settledNow = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// New creates the store and starts following auth events.  Call Close to
// stop.
func New(auth gateway.Auth, data Syncer, log logger.Logger) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		auth:        auth,
		data:        data,
		log:         log,
		InitTimeout: DefaultInitTimeout,
		ctx:         ctx,
		cancel:      cancel,
	}
	s.authSub = auth.OnAuthStateChange(s.handle)
	return s
}

// Init performs the startup session check.  A failure or timeout leaves
// the store Ready with no session.  An auth event that lands first wins.
func (s *Store) Init(ctx context.Context) *gateway.Session {
	ctx, cancel := context.WithTimeout(ctx, s.InitTimeout)
	defer cancel()

	sess, err := s.auth.GetSession(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("initial session check failed, continuing signed out")
		sess = nil
	}

	s.applyMu.Lock()
	defer s.applyMu.Unlock()
	s.mu.Lock()
	if s.state == Ready {
		cur := s.session
		s.mu.Unlock()
		return cur
	}
	s.mu.Unlock()
	s.apply(sess)
	return sess
}

// Current returns the held session without a network call.
func (s *Store) Current() *gateway.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Settled returns a channel that closes once the user-data sync started by
// the latest session change has finished, published or discarded.
func (s *Store) Settled() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settled == nil {
		return settledNow
	}
	return s.settled
}

// Subscribe calls fn with the new session after every change, in order,
// on a delivery goroutine.  fn may call SignOut.  The returned func
// removes it.
func (s *Store) Subscribe(fn func(*gateway.Session)) func() {
	return s.fan.Subscribe(fn)
}

// SignOut clears the session and the user data before returning, then
// revokes the token at the gateway in the background.  The channel yields
// the revocation result and is closed.
func (s *Store) SignOut(ctx context.Context) <-chan error {
	s.applyMu.Lock()
	s.apply(nil)
	s.applyMu.Unlock()

	done := make(chan error, 1)
	go func() {
		defer close(done)
		err := s.auth.SignOut(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("sign-out at gateway failed")
		}
		done <- err
	}()
	return done
}

// Close stops following auth events and abandons background syncs.
func (s *Store) Close() {
	if s.authSub != nil {
		s.authSub.Unsubscribe()
	}
	s.cancel()
}

func (s *Store) handle(ev gateway.Event) {
	if s.ctx.Err() != nil {
		return
	}
	s.log.Debug().Str("event", string(ev.Kind)).Bool("session", ev.Session != nil).Msg("auth state changed")
	s.applyMu.Lock()
	defer s.applyMu.Unlock()
	s.apply(ev.Session)
}

// apply installs sess, re-derives the user data and queues sess for
// subscribers.  applyMu must be held.
func (s *Store) apply(sess *gateway.Session) {
	s.mu.Lock()
	s.state = Ready
	s.session = sess
	s.fan.Push(sess)
	s.mu.Unlock()

	var settled <-chan struct{} = settledNow
	if sess == nil {
		s.data.Clear()
	} else {
		settled = s.data.Trigger(s.ctx, sess.User.ID)
	}
	s.mu.Lock()
	s.settled = settled
	s.mu.Unlock()
}
