// Package autoqueue proposes and adds songs by the artist of the current
// track when the host's queue is about to run out.
package autoqueue

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/syncbeats/server/internal/domain"
	"github.com/syncbeats/server/internal/protocol"
	"github.com/syncbeats/server/pkg/ytmedia"
)

const (
	// Threshold is how many tracks, counting the current one, may remain
	// before a top up starts.
	Threshold = 2
	// AddedBy marks tracks added by the advisor.
	AddedBy = "AutoQueue"

	defaultMaxAdd   = 5
	defaultAddDelay = 100 * time.Millisecond
)

var (
	ErrBusy        = errors.New("auto queue already running")
	ErrEmptyQueue  = errors.New("queue is empty")
	ErrNoSeed      = errors.New("current track has no usable title")
	ErrNoCandidate = errors.New("no new songs found")
)

type Searcher interface {
	Search(ctx context.Context, query string) ([]ytmedia.SearchResult, error)
}

// AddFunc submits one song to the room.
type AddFunc func(ctx context.Context, input protocol.AddSongInput) error

type Config struct {
	Scorer   Scorer
	MaxAdd   int
	AddDelay time.Duration
}

type Advisor struct {
	searcher Searcher
	scorer   Scorer
	maxAdd   int
	addDelay time.Duration
	running  atomic.Bool
}

func NewAdvisor(searcher Searcher, cfg *Config) *Advisor {
	a := &Advisor{
		searcher: searcher,
		scorer:   DefaultScorer,
		maxAdd:   defaultMaxAdd,
		addDelay: defaultAddDelay,
	}

	if cfg == nil {
		return a
	}
	if cfg.Scorer != nil {
		a.scorer = cfg.Scorer
	}
	if cfg.MaxAdd > 0 {
		a.maxAdd = cfg.MaxAdd
	}
	if cfg.AddDelay > 0 {
		a.addDelay = cfg.AddDelay
	}

	return a
}

// ShouldRun reports whether the queue is close enough to its end.
func ShouldRun(queueLen, currentIndex int) bool {
	return queueLen > 0 && queueLen-currentIndex <= Threshold
}

// Running reports whether a top up is in flight.
func (a *Advisor) Running() bool {
	return a.running.Load()
}

// Propose searches for songs by the artist of the current track and drops
// candidates that are already queued or only differ from a queued track by
// qualifiers such as "(Official Video)".
func (a *Advisor) Propose(ctx context.Context, queue []domain.Track, currentIndex int) ([]protocol.AddSongInput, error) {
	if len(queue) == 0 {
		return nil, ErrEmptyQueue
	}

	base := queue[len(queue)-1]
	if currentIndex >= 0 && currentIndex < len(queue) {
		base = queue[currentIndex]
	}

	seed := SearchSeed(base.Title)
	if seed == "" {
		return nil, ErrNoSeed
	}

	results, err := a.searcher.Search(ctx, seed+" songs")
	if err != nil {
		return nil, fmt.Errorf("failed to search for %q: %w", seed, err)
	}

	queuedIDs := make(map[string]struct{}, len(queue))
	queuedTitles := make([]string, 0, len(queue))
	for _, track := range queue {
		queuedIDs[track.MediaRef] = struct{}{}
		queuedTitles = append(queuedTitles, Normalize(track.Title))
	}

	proposals := make([]protocol.AddSongInput, 0, a.maxAdd)
	for _, result := range results {
		if len(proposals) == a.maxAdd {
			break
		}
		if _, ok := queuedIDs[result.MediaRef]; ok {
			continue
		}
		if a.isDuplicate(Normalize(result.Title), queuedTitles) {
			continue
		}

		thumbnail := result.ThumbnailRef
		if thumbnail == "" {
			thumbnail = ytmedia.DefaultThumbnail(result.MediaRef)
		}
		proposals = append(proposals, protocol.AddSongInput{
			MediaRef:     result.MediaRef,
			Title:        result.Title,
			ThumbnailRef: thumbnail,
			AddedBy:      AddedBy,
		})
	}

	if len(proposals) == 0 {
		return nil, ErrNoCandidate
	}

	return proposals, nil
}

func (a *Advisor) isDuplicate(title string, queued []string) bool {
	for _, q := range queued {
		if a.scorer.Similar(title, q) {
			return true
		}
	}
	return false
}

// Run proposes songs and submits them one by one. Only one run is active at
// a time; a concurrent call returns ErrBusy.
func (a *Advisor) Run(ctx context.Context, queue []domain.Track, currentIndex int, add AddFunc) (int, error) {
	if !a.running.CompareAndSwap(false, true) {
		return 0, ErrBusy
	}
	defer a.running.Store(false)

	proposals, err := a.Propose(ctx, queue, currentIndex)
	if err != nil {
		return 0, err
	}

	added := 0
	for i, input := range proposals {
		if i > 0 {
			select {
			case <-ctx.Done():
				return added, ctx.Err()
			case <-time.After(a.addDelay):
			}
		}

		if err := add(ctx, input); err != nil {
			return added, fmt.Errorf("failed to add %q: %w", input.MediaRef, err)
		}
		added++
	}

	return added, nil
}
