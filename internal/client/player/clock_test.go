package player

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncbeats/server/pkg/ytmedia"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func TestClockPlayer(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	p := NewClockPlayer(clock.Now)

	require.ErrorIs(t, p.Play(), ErrNothingLoaded)
	assert.False(t, p.HasMinimumBuffer())

	ready, err := p.Load(context.Background(), ytmedia.Stream{URL: "https://stream/1"})
	require.NoError(t, err)
	select {
	case <-ready:
	default:
		t.Fatal("expected ready")
	}
	assert.True(t, p.HasMinimumBuffer())
	assert.Equal(t, "https://stream/1", p.Source())

	p.Seek(10)
	require.NoError(t, p.Play())
	clock.Advance(2500 * time.Millisecond)
	assert.InDelta(t, 12.5, p.Position(), 1e-9)

	p.Pause()
	clock.Advance(time.Minute)
	assert.InDelta(t, 12.5, p.Position(), 1e-9)
	assert.False(t, p.IsPlaying())

	p.Seek(-3)
	assert.Equal(t, 0.0, p.Position())

	_, err = p.Load(context.Background(), ytmedia.Stream{URL: "https://stream/2", DurationSeconds: 30})
	require.NoError(t, err)
	assert.False(t, p.IsPlaying())
	assert.Equal(t, 0.0, p.Position())

	p.Seek(45)
	assert.Equal(t, 30.0, p.Position())
}

func receiveEnd(t *testing.T, p *ClockPlayer) {
	t.Helper()

	select {
	case <-p.Ended():
	case <-time.After(time.Second):
		t.Fatal("expected the stream to end")
	}
}

func noEnd(t *testing.T, p *ClockPlayer, wait time.Duration) {
	t.Helper()

	select {
	case <-p.Ended():
		t.Fatal("unexpected end")
	case <-time.After(wait):
	}
}

func TestClockPlayerEnds(t *testing.T) {
	p := NewClockPlayer(nil)
	ctx := context.Background()

	_, err := p.Load(ctx, ytmedia.Stream{URL: "https://stream/1", DurationSeconds: 0.05})
	require.NoError(t, err)
	noEnd(t, p, 80*time.Millisecond)

	require.NoError(t, p.Play())
	receiveEnd(t, p)
	assert.False(t, p.IsPlaying())
	assert.Equal(t, 0.05, p.Position())

	// Pausing before the end cancels it; resuming schedules the rest.
	p.Seek(0)
	require.NoError(t, p.Play())
	p.Pause()
	noEnd(t, p, 80*time.Millisecond)
	require.NoError(t, p.Play())
	receiveEnd(t, p)

	// A new stream drops the old one's timer.
	_, err = p.Load(ctx, ytmedia.Stream{URL: "https://stream/2", DurationSeconds: 0.05})
	require.NoError(t, err)
	require.NoError(t, p.Play())
	_, err = p.Load(ctx, ytmedia.Stream{URL: "https://stream/3"})
	require.NoError(t, err)
	require.NoError(t, p.Play())
	noEnd(t, p, 80*time.Millisecond)
	assert.True(t, p.IsPlaying())
}
