package controller

import (
	"github.com/syncbeats/server/internal/protocol"
	"github.com/syncbeats/server/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.wsRequestIdMw(), c.wsSessionMw(), c.loggerWSMw())
	mux.HandleError(c.handleWSError)

	// room
	wsrouter.Handle(mux, protocol.CreateRoom, c.handleCreateRoom)
	wsrouter.Handle(mux, protocol.JoinRoom, c.handleJoinRoom)
	wsrouter.Handle(mux, protocol.LeaveRoom, c.handleLeaveRoom)
	wsrouter.Handle(mux, protocol.RequestSync, c.handleRequestSync)
	wsrouter.Handle(mux, protocol.PingKeepAlive, c.handlePingKeepAlive)

	// queue
	wsrouter.Handle(mux, protocol.AddSong, c.handleAddSong)
	wsrouter.Handle(mux, protocol.RemoveSong, c.handleRemoveSong)
	wsrouter.Handle(mux, protocol.ReorderQueue, c.handleReorderQueue)

	// player
	wsrouter.Handle(mux, protocol.Play, c.handlePlay)
	wsrouter.Handle(mux, protocol.Pause, c.handlePause)
	wsrouter.Handle(mux, protocol.NextSong, c.handleNextSong)
	wsrouter.Handle(mux, protocol.PrevSong, c.handlePrevSong)
	wsrouter.Handle(mux, protocol.PlaySong, c.handlePlaySong)
	wsrouter.Handle(mux, protocol.SongEnded, c.handleSongEnded)
	wsrouter.Handle(mux, protocol.SyncTime, c.handleSyncTime)

	// settings
	wsrouter.Handle(mux, protocol.SetRepeat, c.handleSetRepeat)
	wsrouter.Handle(mux, protocol.SetAutoQueue, c.handleSetAutoQueue)

	return mux
}
