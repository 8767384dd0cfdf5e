package detail

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-resource-query/apierr"
	"github.com/goliatone/go-resource-query/cache"
	"github.com/goliatone/go-resource-query/query"
)

type vehicle struct {
	ID    string
	Plate string
}

type mockLoader struct {
	mu    sync.Mutex
	calls []string
	err   error
	hold  map[string]chan struct{}
}

func (m *mockLoader) load(ctx context.Context, id string) (vehicle, error) {
	m.mu.Lock()
	m.calls = append(m.calls, id)
	err := m.err
	hold := m.hold[id]
	m.mu.Unlock()
	if hold != nil {
		<-hold
	}
	if err != nil {
		return vehicle{}, err
	}
	return vehicle{ID: id, Plate: "KDA-" + id}, nil
}

func (m *mockLoader) getCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockLoader) setErr(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func newCachedFetcher(t *testing.T, loader *mockLoader) *Fetcher[vehicle] {
	t.Helper()
	client := query.New()
	require.NoError(t, client.Register("vehicles", cache.DefaultConfig().WithStaleAfter(time.Minute)))
	return New(loader.load, WithCache(client, "vehicles"))
}

func TestSelect_EmptyIDIsIdle(t *testing.T) {
	loader := &mockLoader{}
	f := newCachedFetcher(t, loader)

	st := f.Select(context.Background(), "")

	assert.Equal(t, StatusIdle, st.Status)
	assert.Empty(t, loader.getCalls())
}

func TestSelect_LoadingThenReady(t *testing.T) {
	loader := &mockLoader{}
	f := newCachedFetcher(t, loader)

	var seen []Status
	f.OnChange(func(st State[vehicle]) { seen = append(seen, st.Status) })

	st := f.Select(context.Background(), "4")

	assert.Equal(t, StatusReady, st.Status)
	assert.Equal(t, "KDA-4", st.Data.Plate)
	assert.Equal(t, []Status{StatusLoading, StatusReady}, seen)
	assert.Equal(t, st, f.State())
}

func TestSelect_SameIDWhileReadyRefetches(t *testing.T) {
	loader := &mockLoader{}
	f := newCachedFetcher(t, loader)
	ctx := context.Background()

	f.Select(ctx, "4")
	st := f.Select(ctx, "4")

	assert.Equal(t, StatusReady, st.Status)
	assert.Equal(t, []string{"4", "4"}, loader.getCalls())
}

func TestSelect_ReopenAfterCloseUsesCache(t *testing.T) {
	loader := &mockLoader{}
	f := newCachedFetcher(t, loader)
	ctx := context.Background()

	f.Select(ctx, "4")
	f.Select(ctx, "")
	st := f.Select(ctx, "4")

	assert.Equal(t, StatusReady, st.Status)
	assert.Equal(t, []string{"4"}, loader.getCalls())
}

func TestSelect_SwitchingDiscardsPrevious(t *testing.T) {
	loader := &mockLoader{hold: map[string]chan struct{}{"9": make(chan struct{})}}
	f := newCachedFetcher(t, loader)
	ctx := context.Background()

	f.Select(ctx, "4")

	var loading State[vehicle]
	var once sync.Once
	gotLoading := make(chan struct{})
	f.OnChange(func(st State[vehicle]) {
		if st.Status == StatusLoading {
			once.Do(func() {
				loading = st
				close(gotLoading)
			})
		}
	})

	done := make(chan State[vehicle])
	go func() { done <- f.Select(ctx, "9") }()
	<-gotLoading

	assert.Equal(t, "9", loading.ID)
	assert.False(t, loading.HasData)

	close(loader.hold["9"])
	st := <-done
	assert.Equal(t, "KDA-9", st.Data.Plate)
}

func TestSelect_SupersededResponseIsDiscarded(t *testing.T) {
	loader := &mockLoader{hold: map[string]chan struct{}{"slow": make(chan struct{})}}
	f := newCachedFetcher(t, loader)
	ctx := context.Background()

	started := make(chan struct{})
	f.OnChange(func(st State[vehicle]) {
		if st.ID == "slow" && st.Status == StatusLoading {
			close(started)
		}
	})

	done := make(chan State[vehicle])
	go func() { done <- f.Select(ctx, "slow") }()
	<-started
	f.OnChange(nil)

	fast := f.Select(ctx, "fast")
	require.Equal(t, StatusReady, fast.Status)

	close(loader.hold["slow"])
	returned := <-done

	assert.Equal(t, "fast", returned.ID)
	assert.Equal(t, "fast", f.State().ID)
	assert.Equal(t, "KDA-fast", f.State().Data.Plate)
}

func TestSelect_ErrorThenRetry(t *testing.T) {
	loader := &mockLoader{}
	loader.setErr(apierr.General(http.StatusNotFound, "vehicle not found"))
	f := newCachedFetcher(t, loader)
	ctx := context.Background()

	st := f.Select(ctx, "3")
	assert.Equal(t, StatusError, st.Status)
	assert.False(t, st.HasData)
	assert.Equal(t, "vehicle not found", apierr.Message(st.Err))

	loader.setErr(nil)
	st = f.Retry(ctx)
	assert.Equal(t, StatusReady, st.Status)
	assert.NoError(t, st.Err)
	assert.Equal(t, []string{"3", "3"}, loader.getCalls())
}

func TestRefreshFailureKeepsData(t *testing.T) {
	loader := &mockLoader{}
	f := New(loader.load)
	ctx := context.Background()

	f.Select(ctx, "5")
	loader.setErr(errors.New("connection reset"))
	st := f.Select(ctx, "5")

	assert.Equal(t, StatusError, st.Status)
	assert.True(t, st.HasData)
	assert.Equal(t, "KDA-5", st.Data.Plate)
}

func TestRetry_Idle(t *testing.T) {
	loader := &mockLoader{}
	f := New(loader.load)

	st := f.Retry(context.Background())
	assert.Equal(t, StatusIdle, st.Status)
	assert.Empty(t, loader.getCalls())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "idle", StatusIdle.String())
	assert.Equal(t, "loading", StatusLoading.String())
	assert.Equal(t, "ready", StatusReady.String())
	assert.Equal(t, "error", StatusError.String())
	assert.Equal(t, "unknown", Status(42).String())
}
