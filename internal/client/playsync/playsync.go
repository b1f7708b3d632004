// Package playsync brings a local player in line with the room's playback
// state.
package playsync

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/syncbeats/server/pkg/ytmedia"
)

const (
	// DriftThreshold is the largest tolerated gap, in seconds, between the
	// local position and a time-sync report.
	DriftThreshold = 2.0

	defaultReadyTimeout = 5 * time.Second
	defaultPollInterval = 100 * time.Millisecond
)

var (
	// ErrSuperseded is returned by a sync that a newer sync replaced.
	ErrSuperseded = errors.New("superseded by a newer sync")
	ErrNotReady   = errors.New("player never became ready")
)

// Player is the local playback device.
type Player interface {
	// Load replaces the source. The channel closes once the new source can
	// play through without stalling.
	Load(ctx context.Context, stream ytmedia.Stream) (<-chan struct{}, error)
	// Ended receives once each time the loaded source plays to its end.
	Ended() <-chan struct{}
	// HasMinimumBuffer reports whether enough is buffered to start playing.
	HasMinimumBuffer() bool
	Seek(position float64)
	Play() error
	Pause()
	Position() float64
}

// Resolver turns a media reference into a playable stream.
type Resolver interface {
	ResolveStream(ctx context.Context, mediaRef string) (ytmedia.Stream, error)
}

type Target struct {
	MediaRef  string
	Position  float64
	IsPlaying bool
}

type Config struct {
	ReadyTimeout time.Duration
	PollInterval time.Duration
}

// Syncer serializes hard syncs: each call to HardSync supersedes the ones
// still in flight, so a slow resolve can never override a newer target.
// Play, pause and time reports arriving during a hard sync update its target
// instead of the player.
type Syncer struct {
	player       Player
	resolver     Resolver
	readyTimeout time.Duration
	pollInterval time.Duration

	generation atomic.Uint64
	mu         sync.Mutex
	pending    *Target
}

func NewSyncer(player Player, resolver Resolver, cfg *Config) *Syncer {
	s := &Syncer{
		player:       player,
		resolver:     resolver,
		readyTimeout: defaultReadyTimeout,
		pollInterval: defaultPollInterval,
	}

	if cfg != nil {
		if cfg.ReadyTimeout > 0 {
			s.readyTimeout = cfg.ReadyTimeout
		}
		if cfg.PollInterval > 0 {
			s.pollInterval = cfg.PollInterval
		}
	}

	return s
}

// ShouldCorrect reports whether local has drifted too far from reported.
func ShouldCorrect(local, reported float64) bool {
	return math.Abs(local-reported) > DriftThreshold
}

// ApplyTimeSync seeks to reported when the player drifted. It reports
// whether a seek happened.
func (s *Syncer) ApplyTimeSync(reported float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		s.pending.Position = reported
		return false
	}

	if !ShouldCorrect(s.player.Position(), reported) {
		return false
	}

	s.player.Seek(reported)
	return true
}

// ApplyPlaybackState follows a play or pause from the room.
func (s *Syncer) ApplyPlaybackState(isPlaying bool, position float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		s.pending.IsPlaying = isPlaying
		s.pending.Position = position
		return nil
	}

	if !isPlaying {
		s.player.Pause()
		return nil
	}

	if ShouldCorrect(s.player.Position(), position) {
		s.player.Seek(position)
	}
	return s.player.Play()
}

// Stop supersedes every sync in flight and pauses the player.
func (s *Syncer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation.Add(1)
	s.pending = nil
	s.player.Pause()
}

// HardSync loads target, waits for the player to be ready, then seeks and
// resumes or pauses. Readiness falls back to HasMinimumBuffer when the
// player is not ready within the ready timeout.
func (s *Syncer) HardSync(ctx context.Context, target Target) error {
	s.mu.Lock()
	gen := s.generation.Add(1)
	s.pending = &target
	s.mu.Unlock()

	if err := s.hardSync(ctx, gen, target.MediaRef); err != nil {
		s.mu.Lock()
		if s.current(gen) {
			s.pending = nil
		}
		s.mu.Unlock()
		return err
	}

	return nil
}

func (s *Syncer) hardSync(ctx context.Context, gen uint64, mediaRef string) error {
	stream, err := s.resolver.ResolveStream(ctx, mediaRef)
	if err != nil {
		return fmt.Errorf("failed to resolve %q: %w", mediaRef, err)
	}

	s.mu.Lock()
	if !s.current(gen) {
		s.mu.Unlock()
		return ErrSuperseded
	}
	ready, err := s.player.Load(ctx, stream)
	shouldWait := s.pending.IsPlaying
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to load %q: %w", mediaRef, err)
	}

	if shouldWait {
		if err := s.waitReady(ctx, gen, ready); err != nil {
			return err
		}
	}

	return s.apply(gen)
}

// apply moves the player to the pending target.
func (s *Syncer) apply(gen uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current(gen) {
		return ErrSuperseded
	}

	target := *s.pending
	s.pending = nil

	s.player.Seek(target.Position)
	if !target.IsPlaying {
		s.player.Pause()
		return nil
	}

	if err := s.player.Play(); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}
	return nil
}

func (s *Syncer) waitReady(ctx context.Context, gen uint64, ready <-chan struct{}) error {
	timeout := time.NewTimer(s.readyTimeout)
	defer timeout.Stop()
	poll := time.NewTicker(s.pollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ready:
			return nil
		case <-poll.C:
			if !s.current(gen) {
				return ErrSuperseded
			}
		case <-timeout.C:
			if s.player.HasMinimumBuffer() {
				return nil
			}
			return ErrNotReady
		}
	}
}

func (s *Syncer) current(gen uint64) bool {
	return s.generation.Load() == gen
}
