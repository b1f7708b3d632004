package domain

import "time"

// Player anchors a playback position to the instant it was last updated so
// the live position can be derived at any time.
type Player struct {
	IsPlaying bool
	Position  float64
	UpdatedAt time.Time
}

func NewPlayer(now time.Time) *Player {
	return &Player{
		IsPlaying: false,
		Position:  0,
		UpdatedAt: now,
	}
}

func (p Player) LivePosition(now time.Time) float64 {
	if !p.IsPlaying {
		return p.Position
	}

	elapsed := now.Sub(p.UpdatedAt).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	return p.Position + elapsed
}

func (p *Player) Play(now time.Time) {
	p.Position = p.LivePosition(now)
	p.IsPlaying = true
	p.UpdatedAt = now
}

func (p *Player) Pause(now time.Time) {
	p.Position = p.LivePosition(now)
	p.IsPlaying = false
	p.UpdatedAt = now
}

func (p *Player) Seek(position float64, now time.Time) {
	p.Position = position
	p.UpdatedAt = now
}

func (p *Player) Rewind(now time.Time) {
	p.Seek(0, now)
}
