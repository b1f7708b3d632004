package playsync_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncbeats/server/internal/client/player"
	"github.com/syncbeats/server/internal/client/playsync"
	"github.com/syncbeats/server/pkg/ytmedia"
)

type fakeResolver struct {
	err     error
	calls   chan string
	release map[string]chan struct{}
}

func (r *fakeResolver) ResolveStream(_ context.Context, mediaRef string) (ytmedia.Stream, error) {
	if r.calls != nil {
		r.calls <- mediaRef
	}
	if wait, ok := r.release[mediaRef]; ok {
		<-wait
	}
	if r.err != nil {
		return ytmedia.Stream{}, r.err
	}
	return ytmedia.Stream{URL: "stream://" + mediaRef}, nil
}

// stalledPlayer never signals readiness.
type stalledPlayer struct {
	*player.ClockPlayer
	buffered bool
}

func (p *stalledPlayer) Load(ctx context.Context, stream ytmedia.Stream) (<-chan struct{}, error) {
	if _, err := p.ClockPlayer.Load(ctx, stream); err != nil {
		return nil, err
	}
	return make(chan struct{}), nil
}

func (p *stalledPlayer) HasMinimumBuffer() bool {
	return p.buffered
}

func TestShouldCorrect(t *testing.T) {
	assert.False(t, playsync.ShouldCorrect(10, 12))
	assert.False(t, playsync.ShouldCorrect(10, 8))
	assert.True(t, playsync.ShouldCorrect(10, 12.5))
	assert.True(t, playsync.ShouldCorrect(12.5, 10))
}

func TestHardSync(t *testing.T) {
	p := player.NewClockPlayer(nil)
	s := playsync.NewSyncer(p, &fakeResolver{}, nil)

	err := s.HardSync(context.Background(), playsync.Target{MediaRef: "m1", Position: 30, IsPlaying: true})
	require.NoError(t, err)
	assert.Equal(t, "stream://m1", p.Source())
	assert.True(t, p.IsPlaying())
	assert.InDelta(t, 30, p.Position(), 0.5)

	err = s.HardSync(context.Background(), playsync.Target{MediaRef: "m2", Position: 12})
	require.NoError(t, err)
	assert.Equal(t, "stream://m2", p.Source())
	assert.False(t, p.IsPlaying())
	assert.Equal(t, 12.0, p.Position())
}

func TestHardSyncResolveError(t *testing.T) {
	resolveErr := errors.New("no formats")
	p := player.NewClockPlayer(nil)
	s := playsync.NewSyncer(p, &fakeResolver{err: resolveErr}, nil)

	err := s.HardSync(context.Background(), playsync.Target{MediaRef: "m1", IsPlaying: true})
	require.ErrorIs(t, err, resolveErr)
	assert.Empty(t, p.Source())
}

func TestNewerSyncSupersedesSlowResolve(t *testing.T) {
	resolver := &fakeResolver{
		calls:   make(chan string, 2),
		release: map[string]chan struct{}{"slow": make(chan struct{})},
	}
	p := player.NewClockPlayer(nil)
	s := playsync.NewSyncer(p, resolver, nil)

	done := make(chan error, 1)
	go func() {
		done <- s.HardSync(context.Background(), playsync.Target{MediaRef: "slow", IsPlaying: true})
	}()
	require.Equal(t, "slow", <-resolver.calls)

	require.NoError(t, s.HardSync(context.Background(), playsync.Target{MediaRef: "fast", Position: 5, IsPlaying: true}))
	require.Equal(t, "fast", <-resolver.calls)

	close(resolver.release["slow"])
	require.ErrorIs(t, <-done, playsync.ErrSuperseded)
	assert.Equal(t, "stream://fast", p.Source())
	assert.True(t, p.IsPlaying())
}

func TestHardSyncFallsBackToMinimumBuffer(t *testing.T) {
	cfg := &playsync.Config{ReadyTimeout: 20 * time.Millisecond, PollInterval: 5 * time.Millisecond}

	buffered := &stalledPlayer{ClockPlayer: player.NewClockPlayer(nil), buffered: true}
	s := playsync.NewSyncer(buffered, &fakeResolver{}, cfg)
	require.NoError(t, s.HardSync(context.Background(), playsync.Target{MediaRef: "m1", IsPlaying: true}))
	assert.True(t, buffered.IsPlaying())

	empty := &stalledPlayer{ClockPlayer: player.NewClockPlayer(nil)}
	s = playsync.NewSyncer(empty, &fakeResolver{}, cfg)
	err := s.HardSync(context.Background(), playsync.Target{MediaRef: "m1", IsPlaying: true})
	require.ErrorIs(t, err, playsync.ErrNotReady)
	assert.False(t, empty.IsPlaying())
}

func TestHardSyncHonorsContext(t *testing.T) {
	p := &stalledPlayer{ClockPlayer: player.NewClockPlayer(nil)}
	s := playsync.NewSyncer(p, &fakeResolver{}, &playsync.Config{ReadyTimeout: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.HardSync(ctx, playsync.Target{MediaRef: "m1", IsPlaying: true})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestApplyTimeSync(t *testing.T) {
	p := player.NewClockPlayer(nil)
	s := playsync.NewSyncer(p, &fakeResolver{}, nil)
	require.NoError(t, s.HardSync(context.Background(), playsync.Target{MediaRef: "m1", Position: 10}))

	assert.False(t, s.ApplyTimeSync(11.5))
	assert.Equal(t, 10.0, p.Position())

	assert.True(t, s.ApplyTimeSync(20))
	assert.Equal(t, 20.0, p.Position())
}

func TestApplyPlaybackState(t *testing.T) {
	p := player.NewClockPlayer(nil)
	s := playsync.NewSyncer(p, &fakeResolver{}, nil)
	require.NoError(t, s.HardSync(context.Background(), playsync.Target{MediaRef: "m1", Position: 10}))

	require.NoError(t, s.ApplyPlaybackState(true, 40))
	assert.True(t, p.IsPlaying())
	assert.InDelta(t, 40, p.Position(), 0.5)

	require.NoError(t, s.ApplyPlaybackState(false, 0))
	assert.False(t, p.IsPlaying())

	s.Stop()
	assert.False(t, p.IsPlaying())
}

func TestPlaybackStateDuringLoadIsKept(t *testing.T) {
	resolver := &fakeResolver{
		calls:   make(chan string, 1),
		release: map[string]chan struct{}{"m1": make(chan struct{})},
	}
	p := player.NewClockPlayer(nil)
	s := playsync.NewSyncer(p, resolver, nil)

	done := make(chan error, 1)
	go func() {
		done <- s.HardSync(context.Background(), playsync.Target{MediaRef: "m1"})
	}()
	require.Equal(t, "m1", <-resolver.calls)

	require.NoError(t, s.ApplyPlaybackState(true, 7))
	assert.False(t, s.ApplyTimeSync(9))
	assert.False(t, p.IsPlaying())

	close(resolver.release["m1"])
	require.NoError(t, <-done)
	assert.True(t, p.IsPlaying())
	assert.InDelta(t, 9, p.Position(), 0.5)
}
