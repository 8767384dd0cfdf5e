package debounce

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mock timers run their callback on a new goroutine, so commits are read from a channel
func newMockDebouncer(opts ...Option) (*Debouncer, *clock.Mock, chan string) {
	mock := clock.NewMock()
	commits := make(chan string, 16)
	d := New(func(v string) { commits <- v }, append([]Option{WithClock(mock)}, opts...)...)
	return d, mock, commits
}

func waitCommit(t *testing.T, commits <-chan string) string {
	t.Helper()
	select {
	case v := <-commits:
		return v
	case <-time.After(time.Second):
		t.Fatal("expected a commit")
		return ""
	}
}

func assertNoCommit(t *testing.T, commits <-chan string) {
	t.Helper()
	select {
	case v := <-commits:
		t.Fatalf("unexpected commit %q", v)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestInput_TypedFollowsImmediately(t *testing.T) {
	d, _, commits := newMockDebouncer()

	d.Input("a")
	d.Input("ab")

	assert.Equal(t, "ab", d.Typed())
	assert.Equal(t, "", d.Committed())
	assert.True(t, d.Pending())
	assertNoCommit(t, commits)
}

func TestInput_CommitsAfterQuietInterval(t *testing.T) {
	d, mock, commits := newMockDebouncer()

	d.Input("mar")
	mock.Add(200 * time.Millisecond)
	d.Input("maria")
	mock.Add(200 * time.Millisecond)
	assertNoCommit(t, commits)

	mock.Add(150 * time.Millisecond)
	assert.Equal(t, "maria", waitCommit(t, commits))
	assert.Equal(t, "maria", d.Committed())
	assert.False(t, d.Pending())
}

func TestInput_ShortValueCommitsEmpty(t *testing.T) {
	d, mock, commits := newMockDebouncer(WithDelay(time.Second))

	d.Input("toyota")
	mock.Add(time.Second)
	require.Equal(t, "toyota", waitCommit(t, commits))

	d.Input("t")
	mock.Add(time.Second)
	assert.Equal(t, "", waitCommit(t, commits))
	assert.Equal(t, "t", d.Typed())
}

func TestInput_ShortValueFromEmptyDoesNotFire(t *testing.T) {
	d, mock, commits := newMockDebouncer()

	d.Input("a")
	mock.Add(time.Second)
	assertNoCommit(t, commits)
	assert.Equal(t, "", d.Committed())
}

func TestInput_UnchangedValueDoesNotFire(t *testing.T) {
	d, mock, commits := newMockDebouncer()

	d.Input("abc")
	mock.Add(time.Second)
	waitCommit(t, commits)

	d.Input("abcd")
	d.Input(" abc ")
	mock.Add(time.Second)
	assertNoCommit(t, commits)
}

func TestFlush(t *testing.T) {
	d, mock, commits := newMockDebouncer()

	d.Input("plate 42")
	d.Flush()
	assert.Equal(t, "plate 42", waitCommit(t, commits))
	assert.False(t, d.Pending())

	mock.Add(time.Second)
	assertNoCommit(t, commits)
}

func TestCancel(t *testing.T) {
	d, mock, commits := newMockDebouncer()

	d.Input("pending")
	d.Cancel()
	mock.Add(time.Second)

	assertNoCommit(t, commits)
	assert.Equal(t, "pending", d.Typed())
	assert.Equal(t, "", d.Committed())
}

func TestReset(t *testing.T) {
	d, mock, commits := newMockDebouncer()

	d.Input("bus")
	mock.Add(time.Second)
	waitCommit(t, commits)

	d.Input("buses")
	d.Reset()
	mock.Add(time.Second)

	assertNoCommit(t, commits)
	assert.Equal(t, "", d.Typed())
	assert.Equal(t, "", d.Committed())
}

func TestWithMinLength(t *testing.T) {
	d, mock, commits := newMockDebouncer(WithMinLength(4))

	d.Input("abc")
	mock.Add(time.Second)
	assertNoCommit(t, commits)

	d.Input("abcd")
	mock.Add(time.Second)
	assert.Equal(t, "abcd", waitCommit(t, commits))
}
