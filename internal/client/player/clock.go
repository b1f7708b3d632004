// Package player provides a headless playsync.Player that advances with the
// wall clock instead of decoding audio.
package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/syncbeats/server/pkg/ytmedia"
)

var ErrNothingLoaded = errors.New("nothing loaded")

// ClockPlayer stops at the end of a stream with a known duration and reports
// it on Ended. The end timer always runs on real time, whatever now says.
type ClockPlayer struct {
	mu        sync.Mutex
	now       func() time.Time
	source    string
	duration  float64
	isPlaying bool
	position  float64
	updatedAt time.Time

	ended    chan struct{}
	endTimer *time.Timer
	// endSeq invalidates end timers scheduled before the last state change.
	endSeq uint64
}

// NewClockPlayer uses time.Now when now is nil.
func NewClockPlayer(now func() time.Time) *ClockPlayer {
	if now == nil {
		now = time.Now
	}

	return &ClockPlayer{
		now:   now,
		ended: make(chan struct{}, 1),
	}
}

// Load is ready immediately.
func (p *ClockPlayer) Load(_ context.Context, stream ytmedia.Stream) (<-chan struct{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.source = stream.URL
	p.duration = stream.DurationSeconds
	p.isPlaying = false
	p.position = 0
	p.updatedAt = p.now()
	p.scheduleEnd()

	// An end nobody read yet belongs to the previous stream.
	select {
	case <-p.ended:
	default:
	}

	ready := make(chan struct{})
	close(ready)
	return ready, nil
}

// Ended receives when playback reaches the duration of the loaded stream.
// At most one end is buffered.
func (p *ClockPlayer) Ended() <-chan struct{} {
	return p.ended
}

func (p *ClockPlayer) HasMinimumBuffer() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.source != ""
}

func (p *ClockPlayer) Source() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.source
}

func (p *ClockPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isPlaying
}

func (p *ClockPlayer) Seek(position float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.position = p.clamp(position)
	p.updatedAt = p.now()
	p.scheduleEnd()
}

func (p *ClockPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.source == "" {
		return ErrNothingLoaded
	}

	p.position = p.livePosition()
	p.isPlaying = true
	p.updatedAt = p.now()
	p.scheduleEnd()
	return nil
}

func (p *ClockPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.position = p.livePosition()
	p.isPlaying = false
	p.updatedAt = p.now()
	p.scheduleEnd()
}

func (p *ClockPlayer) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.livePosition()
}

func (p *ClockPlayer) livePosition() float64 {
	if !p.isPlaying {
		return p.position
	}
	return p.clamp(p.position + p.now().Sub(p.updatedAt).Seconds())
}

func (p *ClockPlayer) clamp(position float64) float64 {
	position = max(position, 0)
	if p.duration > 0 {
		position = min(position, p.duration)
	}
	return position
}

// scheduleEnd replaces the pending end timer. p.mu must be held.
func (p *ClockPlayer) scheduleEnd() {
	p.endSeq++
	if p.endTimer != nil {
		p.endTimer.Stop()
		p.endTimer = nil
	}

	if !p.isPlaying || p.duration <= 0 {
		return
	}

	remaining := time.Duration((p.duration - p.livePosition()) * float64(time.Second))
	seq := p.endSeq
	p.endTimer = time.AfterFunc(max(remaining, 0), func() { p.finish(seq) })
}

func (p *ClockPlayer) finish(seq uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if seq != p.endSeq {
		return
	}

	p.position = p.duration
	p.isPlaying = false
	p.updatedAt = p.now()
	p.endTimer = nil

	select {
	case p.ended <- struct{}{}:
	default:
	}
}
