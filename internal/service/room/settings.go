package room

import (
	"context"

	"github.com/syncbeats/server/internal/domain"
	"github.com/syncbeats/server/internal/repository/connection"
	"github.com/syncbeats/server/pkg/wsconn"
)

type ToggleParams struct {
	Session connection.Session
	Enabled bool
}

type SettingsResponse struct {
	Settings domain.Settings
	Conns    []*wsconn.Conn
}

func (SettingsResponse) roomEvent() {}

func (s service) SetRepeat(ctx context.Context, params *ToggleParams) (SettingsResponse, error) {
	return s.updateSettings(ctx, params.Session, func(settings *domain.Settings) {
		settings.Repeat = params.Enabled
	})
}

func (s service) SetAutoQueue(ctx context.Context, params *ToggleParams) (SettingsResponse, error) {
	return s.updateSettings(ctx, params.Session, func(settings *domain.Settings) {
		settings.AutoQueue = params.Enabled
	})
}

// Toggles are host-only like every other playback command.
func (s service) updateSettings(ctx context.Context, session connection.Session, update func(*domain.Settings)) (SettingsResponse, error) {
	r, err := s.lockHostRoom(session)
	if err != nil {
		return SettingsResponse{}, err
	}

	settings := r.Settings
	update(&settings)
	r.UpdateSettings(settings)

	snap := r.Snapshot(s.now())
	resp := SettingsResponse{
		Settings: settings,
		Conns:    s.getConns(r, ""),
	}
	s.release(ctx, r, s.mirrorAndPublish(snap, resp))

	return resp, nil
}
