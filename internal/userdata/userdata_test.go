package userdata

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/loyalty-rewards/internal/gateway"
	"github.com/iliyamo/loyalty-rewards/internal/logger"
	"github.com/iliyamo/loyalty-rewards/internal/model"
	"github.com/iliyamo/loyalty-rewards/internal/tier"
)

// fakeData serves rows per user.  A gate, when set, holds every fetch for
// that user until it is closed.
type fakeData struct {
	mu           sync.Mutex
	gates        map[string]chan struct{}
	profiles     map[string]*model.Profile
	accounts     map[string]*model.LoyaltyAccount
	roles        map[string]bool
	roleErr      error
	loyaltyErr   error
	profileCalls int
	profileAfter int // profile is NotFound for the first n calls
}

func newFakeData() *fakeData {
	return &fakeData{
		gates:    map[string]chan struct{}{},
		profiles: map[string]*model.Profile{},
		accounts: map[string]*model.LoyaltyAccount{},
		roles:    map[string]bool{},
	}
}

func (f *fakeData) add(id string, admin bool) {
	f.profiles[id] = &model.Profile{ID: id, UserID: id, FullName: "User " + id}
	f.accounts[id] = &model.LoyaltyAccount{ID: "acc-" + id, UserID: id, CurrentTier: tier.Silver, IsActive: true}
	f.roles[id+"/admin"] = admin
}

func (f *fakeData) wait(ctx context.Context, id string) {
	f.mu.Lock()
	g := f.gates[id]
	f.mu.Unlock()
	if g != nil {
		select {
		case <-g:
		case <-ctx.Done():
		}
	}
}

func (f *fakeData) ProfileByID(ctx context.Context, id string) (*model.Profile, error) {
	f.wait(ctx, id)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profileCalls++
	if f.profileCalls <= f.profileAfter {
		return nil, gateway.ErrNotFound
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	return p, nil
}

func (f *fakeData) LoyaltyAccountByUserID(ctx context.Context, id string) (*model.LoyaltyAccount, error) {
	f.wait(ctx, id)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loyaltyErr != nil {
		return nil, f.loyaltyErr
	}
	a, ok := f.accounts[id]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	return a, nil
}

func (f *fakeData) HasRole(ctx context.Context, id, role string) (bool, error) {
	f.wait(ctx, id)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.roleErr != nil {
		return false, f.roleErr
	}
	return f.roles[id+"/"+role], nil
}

func (f *fakeData) gate(id string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := make(chan struct{})
	f.gates[id] = g
	return g
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sync did not settle")
	}
}

func flushed(t *testing.T, s *Synchronizer) {
	t.Helper()
	select {
	case <-s.fan.Flushed():
	case <-time.After(2 * time.Second):
		t.Fatal("subscribers were not reached")
	}
}

func TestSyncPublishesAllFields(t *testing.T) {
	data := newFakeData()
	data.add("u1", true)
	s := New(data, logger.Nop())

	var published []Snapshot
	s.Subscribe(func(snap Snapshot) { published = append(published, snap) })

	require.True(t, s.Sync(context.Background(), "u1"))
	snap := s.Snapshot()
	assert.Equal(t, "u1", snap.UserID)
	require.NotNil(t, snap.Profile)
	require.NotNil(t, snap.Loyalty)
	require.NotNil(t, snap.IsAdmin)
	require.NotNil(t, snap.IsStaff)
	assert.True(t, *snap.IsAdmin)
	assert.False(t, *snap.IsStaff)
	assert.Equal(t, LoyaltyActive, snap.LoyaltyStatus)
	flushed(t, s)
	assert.Len(t, published, 1)
}

func TestLastRequestedSyncWins(t *testing.T) {
	data := newFakeData()
	data.add("u1", false)
	data.add("u2", false)
	s := New(data, logger.Nop())

	release := data.gate("u1")
	first := s.Trigger(context.Background(), "u1")
	require.True(t, s.Sync(context.Background(), "u2"))
	assert.Equal(t, "u2", s.Snapshot().UserID)

	close(release)
	waitDone(t, first)
	assert.Equal(t, "u2", s.Snapshot().UserID)
	assert.Equal(t, "User u2", s.Snapshot().Profile.FullName)
}

func TestManyTriggersSettleOnTheLast(t *testing.T) {
	data := newFakeData()
	ids := []string{"a", "b", "c", "d", "e"}
	gates := map[string]chan struct{}{}
	for _, id := range ids {
		data.add(id, false)
		gates[id] = data.gate(id)
	}
	s := New(data, logger.Nop())

	var done []<-chan struct{}
	for _, id := range ids {
		done = append(done, s.Trigger(context.Background(), id))
	}
	// Release in reverse so the newest request finishes first.
	for i := len(ids) - 1; i >= 0; i-- {
		close(gates[ids[i]])
		waitDone(t, done[i])
	}
	assert.Equal(t, "e", s.Snapshot().UserID)
}

func TestClearBeatsStaleSync(t *testing.T) {
	data := newFakeData()
	data.add("u1", true)
	s := New(data, logger.Nop())
	require.True(t, s.Sync(context.Background(), "u1"))

	release := data.gate("u1")
	inflight := s.Trigger(context.Background(), "u1")
	s.Clear()
	assert.True(t, s.Snapshot().Empty())

	close(release)
	waitDone(t, inflight)
	assert.True(t, s.Snapshot().Empty())
}

func TestClearNotifiesSubscribers(t *testing.T) {
	data := newFakeData()
	data.add("u1", false)
	s := New(data, logger.Nop())
	require.True(t, s.Sync(context.Background(), "u1"))
	flushed(t, s)

	var got []Snapshot
	unsub := s.Subscribe(func(snap Snapshot) { got = append(got, snap) })
	s.Clear()
	flushed(t, s)
	require.Len(t, got, 1)
	assert.True(t, got[0].Empty())

	unsub()
	s.Clear()
	flushed(t, s)
	assert.Len(t, got, 1)
}

func TestSubscriberMayClearAndSync(t *testing.T) {
	data := newFakeData()
	data.add("u1", false)
	data.add("u2", false)
	s := New(data, logger.Nop())

	var mu sync.Mutex
	var seen []string
	s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		seen = append(seen, snap.UserID)
		mu.Unlock()
		switch snap.UserID {
		case "u1":
			s.Clear()
		case "":
			<-s.Trigger(context.Background(), "u2")
		}
	})

	synced := make(chan bool, 1)
	go func() { synced <- s.Sync(context.Background(), "u1") }()
	select {
	case ok := <-synced:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("Sync hung behind its own subscriber")
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, 2*time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{"u1", "", "u2"}, seen)
	mu.Unlock()
	assert.Equal(t, "u2", s.Snapshot().UserID)
}

func TestNewSignupWithoutLoyaltyAccount(t *testing.T) {
	data := newFakeData()
	data.add("u1", false)
	delete(data.accounts, "u1")
	s := New(data, logger.Nop())

	require.True(t, s.Sync(context.Background(), "u1"))
	snap := s.Snapshot()
	require.NotNil(t, snap.Profile)
	assert.Nil(t, snap.Loyalty)
	assert.Equal(t, LoyaltyNotActivated, snap.LoyaltyStatus)
	assert.False(t, snap.ProfilePending)
}

func TestPartialFailureReplacesWholeSnapshot(t *testing.T) {
	data := newFakeData()
	data.add("u1", false)
	var buf bytes.Buffer
	s := New(data, zerolog.New(&buf))
	require.True(t, s.Sync(context.Background(), "u1"))
	require.NotNil(t, s.Snapshot().Loyalty)

	data.roleErr = errors.New("connection reset")
	data.loyaltyErr = errors.New("connection reset")
	require.True(t, s.Sync(context.Background(), "u1"))

	snap := s.Snapshot()
	require.NotNil(t, snap.Profile)
	assert.Nil(t, snap.IsAdmin)
	assert.Nil(t, snap.IsStaff)
	assert.Nil(t, snap.Loyalty)
	assert.Equal(t, LoyaltyUnknown, snap.LoyaltyStatus)
	assert.Contains(t, buf.String(), "role_admin")
	assert.Contains(t, buf.String(), "loyalty_account")
}

func TestProfileRetriedOnceAfterSignup(t *testing.T) {
	data := newFakeData()
	data.add("u1", false)
	data.profileAfter = 1
	s := New(data, logger.Nop())
	s.ProfileRetryDelay = time.Millisecond

	require.True(t, s.Sync(context.Background(), "u1"))
	assert.NotNil(t, s.Snapshot().Profile)
	assert.False(t, s.Snapshot().ProfilePending)
	assert.Equal(t, 2, data.profileCalls)
}

func TestProfileStillMissingIsPending(t *testing.T) {
	data := newFakeData()
	data.add("u1", false)
	data.profileAfter = 5
	s := New(data, logger.Nop())
	s.ProfileRetryDelay = time.Millisecond

	require.True(t, s.Sync(context.Background(), "u1"))
	snap := s.Snapshot()
	assert.Nil(t, snap.Profile)
	assert.True(t, snap.ProfilePending)
	assert.Equal(t, 2, data.profileCalls)
}
