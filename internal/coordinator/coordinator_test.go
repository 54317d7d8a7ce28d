package coordinator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/storeready/internal/pending"
	"github.com/tamzrod/storeready/internal/poller"
	"github.com/tamzrod/storeready/internal/site"
)

// ---- fakes ----

type memStore struct {
	mu    sync.Mutex
	rec   *pending.Record
	saves int
}

func (m *memStore) Save(_ context.Context, r pending.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.rec = &r
	return nil
}

func (m *memStore) Load(context.Context) (pending.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec == nil {
		return pending.Record{}, false, nil
	}
	return *m.rec, true, nil
}

func (m *memStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = nil
	return nil
}

func (m *memStore) current() *pending.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec
}

type instantClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *instantClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *instantClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func readySite(id int64, name string) site.Snapshot {
	return site.Snapshot{
		SiteID:                 id,
		Name:                   name,
		IsConnected:            true,
		IsRequiredPluginActive: true,
		IsWooCommerceActive:    true,
		IsWordPressComStore:    true,
	}
}

var settings = poller.Settings{Interval: 5 * time.Second, MaxAttempts: 3}

func newCoordinator(t *testing.T, q site.Querier, store PendingStore) *Coordinator {
	t.Helper()
	c, err := New(q, store, settings,
		WithPollerOptions(poller.WithClock(&instantClock{now: time.Unix(1_700_000_000, 0)})),
	)
	require.NoError(t, err)
	return c
}

// ---- tests ----

func TestNew_Validates(t *testing.T) {
	q := site.QuerierFunc(func(context.Context, int64) (site.Snapshot, error) { return site.Snapshot{}, nil })

	_, err := New(nil, &memStore{}, settings)
	assert.Error(t, err)
	_, err = New(q, nil, settings)
	assert.Error(t, err)
	_, err = New(q, &memStore{}, poller.Settings{Interval: time.Second})
	assert.Error(t, err)
}

func TestStart_ReadyClearsPendingRecord(t *testing.T) {
	store := &memStore{}
	var sawRecord bool
	q := site.QuerierFunc(func(_ context.Context, id int64) (site.Snapshot, error) {
		sawRecord = store.current() != nil
		return readySite(id, "My Shop"), nil
	})
	c := newCoordinator(t, q, store)

	res, err := c.Start(context.Background(), 10, "My Shop")
	require.NoError(t, err)

	assert.Equal(t, poller.OutcomeReady, res.Outcome.Kind)
	assert.True(t, res.InSync)
	assert.True(t, sawRecord, "record is persisted before polling")
	assert.Nil(t, store.current())
	assert.Equal(t, 1, store.saves)
}

func TestStart_ReadyButOutOfSync(t *testing.T) {
	store := &memStore{}
	q := site.QuerierFunc(func(_ context.Context, id int64) (site.Snapshot, error) {
		s := readySite(id, "Site Title")
		s.IsWordPressComStore = false
		return s, nil
	})
	c := newCoordinator(t, q, store)

	res, err := c.Start(context.Background(), 10, "My Shop")
	require.NoError(t, err)
	assert.Equal(t, poller.OutcomeReady, res.Outcome.Kind)
	assert.False(t, res.InSync)
	assert.Nil(t, store.current())
}

func TestStart_ExhaustedKeepsRecordThenRetry(t *testing.T) {
	store := &memStore{}
	var (
		mu    sync.Mutex
		calls int
	)
	q := site.QuerierFunc(func(_ context.Context, id int64) (site.Snapshot, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls <= settings.MaxAttempts {
			return site.Snapshot{}, errors.New("timeout")
		}
		return readySite(id, "Shop"), nil
	})
	c := newCoordinator(t, q, store)
	ctx := context.Background()

	res, err := c.Start(ctx, 11, "Shop")
	require.NoError(t, err)
	assert.Equal(t, poller.OutcomeExhausted, res.Outcome.Kind)
	assert.Equal(t, settings.MaxAttempts, res.Outcome.Attempts)
	require.NotNil(t, store.current())
	assert.Equal(t, int64(11), store.current().SiteID)

	res, err = c.Retry(ctx)
	require.NoError(t, err)
	assert.Equal(t, poller.OutcomeReady, res.Outcome.Kind)
	assert.Equal(t, 1, res.Outcome.Attempts)
	assert.Nil(t, store.current())
	assert.Equal(t, 1, store.saves, "retry does not re-persist")
}

func TestRetry_NothingToRetry(t *testing.T) {
	c := newCoordinator(t, site.QuerierFunc(func(context.Context, int64) (site.Snapshot, error) {
		return site.Snapshot{}, nil
	}), &memStore{})

	_, err := c.Retry(context.Background())
	assert.Error(t, err)
}

func TestResume(t *testing.T) {
	store := &memStore{}
	q := site.QuerierFunc(func(_ context.Context, id int64) (site.Snapshot, error) {
		return readySite(id, "Resumed"), nil
	})
	c := newCoordinator(t, q, store)
	ctx := context.Background()

	_, ok, err := c.Resume(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, pending.Record{SiteID: 12, ExpectedName: "Resumed"}))

	res, ok, err := c.Resume(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, poller.OutcomeReady, res.Outcome.Kind)
	assert.Equal(t, int64(12), res.Outcome.Site.SiteID)
	assert.True(t, res.InSync)
	assert.Nil(t, store.current())
}

func TestStart_FatalErrorClearsRecord(t *testing.T) {
	store := &memStore{}
	q := site.QuerierFunc(func(_ context.Context, id int64) (site.Snapshot, error) {
		return site.Snapshot{}, fmt.Errorf("site %d: %w", id, site.ErrNotFound)
	})
	c := newCoordinator(t, q, store)

	res, err := c.Start(context.Background(), 13, "Gone")
	require.Error(t, err)
	assert.ErrorIs(t, err, site.ErrNotFound)
	assert.Equal(t, poller.OutcomeFailed, res.Outcome.Kind)
	assert.Nil(t, store.current())
}

func TestStart_InvalidSite(t *testing.T) {
	c := newCoordinator(t, site.QuerierFunc(func(context.Context, int64) (site.Snapshot, error) {
		return site.Snapshot{}, nil
	}), &memStore{})

	_, err := c.Start(context.Background(), 0, "x")
	assert.Error(t, err)
}

// blockingQuerier blocks site 1 until its context ends; other sites are ready.
type blockingQuerier struct {
	started chan struct{}
	once    sync.Once
}

func (b *blockingQuerier) FetchSite(ctx context.Context, id int64) (site.Snapshot, error) {
	if id != 1 {
		return readySite(id, "Second"), nil
	}
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	return site.Snapshot{}, ctx.Err()
}

func TestStart_NewSessionCancelsOutstanding(t *testing.T) {
	store := &memStore{}
	q := &blockingQuerier{started: make(chan struct{})}
	c := newCoordinator(t, q, store)
	ctx := context.Background()

	first := make(chan Result, 1)
	go func() {
		res, err := c.Start(ctx, 1, "First")
		assert.NoError(t, err)
		first <- res
	}()

	select {
	case <-q.started:
	case <-time.After(time.Second):
		t.Fatal("first session never queried")
	}

	res, err := c.Start(ctx, 2, "Second")
	require.NoError(t, err)
	assert.Equal(t, poller.OutcomeReady, res.Outcome.Kind)
	assert.Equal(t, int64(2), res.Outcome.Site.SiteID)

	select {
	case r := <-first:
		assert.Equal(t, poller.OutcomeCancelled, r.Outcome.Kind)
		assert.Equal(t, 1, r.Outcome.Attempts)
	case <-time.After(time.Second):
		t.Fatal("first session did not finish")
	}
}

func TestCancel(t *testing.T) {
	store := &memStore{}
	q := &blockingQuerier{started: make(chan struct{})}
	c := newCoordinator(t, q, store)

	done := make(chan Result, 1)
	go func() {
		res, err := c.Start(context.Background(), 1, "First")
		assert.NoError(t, err)
		done <- res
	}()

	<-q.started
	c.Cancel()

	select {
	case r := <-done:
		assert.Equal(t, poller.OutcomeCancelled, r.Outcome.Kind)
	case <-time.After(time.Second):
		t.Fatal("session did not observe Cancel")
	}
	require.NotNil(t, store.current(), "cancelled session keeps the pending record")

	c.Cancel() // no session: no-op
}

func TestStart_CancelledContextYieldsCancelledOutcome(t *testing.T) {
	store, err := pending.Open(filepath.Join(t.TempDir(), "state.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	var calls int
	q := site.QuerierFunc(func(_ context.Context, id int64) (site.Snapshot, error) {
		calls++
		return readySite(id, "x"), nil
	})
	c := newCoordinator(t, q, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := c.Start(ctx, 7, "x")
	require.NoError(t, err)
	assert.Equal(t, poller.OutcomeCancelled, res.Outcome.Kind)
	assert.Equal(t, 0, calls)

	// The coordinator is free for the next session.
	res, err = c.Start(context.Background(), 7, "x")
	require.NoError(t, err)
	assert.Equal(t, poller.OutcomeReady, res.Outcome.Kind)

	_, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStart_CancelledWhileWaitingForPreviousSession(t *testing.T) {
	store := &memStore{}
	q := &blockingQuerier{started: make(chan struct{})}
	c := newCoordinator(t, q, store)

	first := make(chan Result, 1)
	go func() {
		res, _ := c.Start(context.Background(), 1, "First")
		first <- res
	}()
	<-q.started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := c.Start(ctx, 2, "Second")
	require.NoError(t, err)
	assert.Equal(t, poller.OutcomeCancelled, res.Outcome.Kind)

	select {
	case r := <-first:
		assert.Equal(t, poller.OutcomeCancelled, r.Outcome.Kind)
	case <-time.After(time.Second):
		t.Fatal("previous session was not cancelled")
	}
}
