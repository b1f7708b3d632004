package room_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncbeats/server/internal/domain"
	"github.com/syncbeats/server/internal/repository/connection"
	conninmemory "github.com/syncbeats/server/internal/repository/connection/inmemory"
	roomrepo "github.com/syncbeats/server/internal/repository/room"
	roominmemory "github.com/syncbeats/server/internal/repository/room/inmemory"
	snapshotredis "github.com/syncbeats/server/internal/repository/snapshot/redis"
	"github.com/syncbeats/server/internal/service/room"
	"github.com/syncbeats/server/pkg/randstr"
	"github.com/syncbeats/server/pkg/wsconn"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type snapshotStore interface {
	Save(context.Context, domain.Snapshot) error
	Get(context.Context, string) (domain.Snapshot, error)
	Delete(context.Context, string) error
	Codes(context.Context) ([]string, error)
}

// saveGate parks one Save until release is closed.
type saveGate struct {
	entered chan struct{}
	release chan struct{}
}

type gatedSnapshots struct {
	snapshotStore
	mu   sync.Mutex
	gate *saveGate
}

func (g *gatedSnapshots) holdNextSave() *saveGate {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.gate = &saveGate{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	return g.gate
}

func (g *gatedSnapshots) Save(ctx context.Context, snap domain.Snapshot) error {
	g.mu.Lock()
	gate := g.gate
	g.gate = nil
	g.mu.Unlock()

	if gate != nil {
		close(gate.entered)
		<-gate.release
	}

	return g.snapshotStore.Save(ctx, snap)
}

type recorder struct {
	mu     sync.Mutex
	events []room.Event
}

func (r *recorder) Publish(_ context.Context, event room.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// queueLengths lists the queue length of every published queue update, in
// publish order.
func (r *recorder) queueLengths() []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lengths []int
	for _, event := range r.events {
		if queue, ok := event.(room.QueueResponse); ok {
			lengths = append(lengths, len(queue.Queue))
		}
	}
	return lengths
}

func (r *recorder) fullSyncs() []domain.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	var snaps []domain.Snapshot
	for _, event := range r.events {
		if resp, ok := event.(room.RequestSyncResponse); ok {
			snaps = append(snaps, resp.Snapshot)
		}
	}
	return snaps
}

type testEnv struct {
	clock     *fakeClock
	mr        *miniredis.Miniredis
	snapshots *gatedSnapshots
	events    *recorder
	svc       interface {
		CreateRoom(context.Context, *room.CreateRoomParams) (room.CreateRoomResponse, error)
		JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
		LeaveRoom(context.Context, *room.LeaveRoomParams) (room.LeaveRoomResponse, error)
		RequestSync(context.Context, *room.RequestSyncParams) (room.RequestSyncResponse, error)
		GetRoomPreview(context.Context, string) (domain.Snapshot, error)
		GetStats(context.Context) (room.Stats, error)
		AddTrack(context.Context, *room.AddTrackParams) (room.QueueResponse, error)
		RemoveTrack(context.Context, *room.RemoveTrackParams) (room.QueueResponse, error)
		ReorderQueue(context.Context, *room.ReorderQueueParams) (room.QueueResponse, error)
		Play(context.Context, *room.PlayerParams) (room.PlaybackStateResponse, error)
		Pause(context.Context, *room.PlayerParams) (room.PlaybackStateResponse, error)
		Next(context.Context, *room.PlayerParams) (room.SongChangedResponse, error)
		Prev(context.Context, *room.PlayerParams) (room.SongChangedResponse, error)
		PlayAt(context.Context, *room.PlayAtParams) (room.SongChangedResponse, error)
		TrackEnded(context.Context, *room.PlayerParams) (room.TrackEndedResponse, error)
		SyncTime(context.Context, *room.SyncTimeParams) (room.SyncTimeResponse, error)
		SetRepeat(context.Context, *room.ToggleParams) (room.SettingsResponse, error)
		SetAutoQueue(context.Context, *room.ToggleParams) (room.SettingsResponse, error)
	}
}

func newTestEnv(t *testing.T, cfg room.Config) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rc.Close() })

	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	cfg.Clock = clock.Now
	snapshots := &gatedSnapshots{snapshotStore: snapshotredis.NewRepo(rc, time.Hour)}
	publisher := &recorder{}

	svc := room.NewService(
		roominmemory.NewRepo(randstr.New([]byte(roomrepo.CodeAlphabet))),
		conninmemory.NewRepo(),
		snapshots,
		publisher,
		&cfg,
	)

	return &testEnv{clock: clock, mr: mr, snapshots: snapshots, events: publisher, svc: svc}
}

func newConn() *wsconn.Conn {
	return wsconn.New(&websocket.Conn{})
}

func (e *testEnv) createRoom(t *testing.T, name string) (*wsconn.Conn, connection.Session) {
	t.Helper()

	conn := newConn()
	resp, err := e.svc.CreateRoom(context.Background(), &room.CreateRoomParams{
		Conn:        conn,
		DisplayName: name,
	})
	require.NoError(t, err)

	return conn, resp.Session
}

func (e *testEnv) joinRoom(t *testing.T, code, name string) (*wsconn.Conn, connection.Session) {
	t.Helper()

	conn := newConn()
	resp, err := e.svc.JoinRoom(context.Background(), &room.JoinRoomParams{
		Conn:        conn,
		RoomCode:    code,
		DisplayName: name,
	})
	require.NoError(t, err)

	return conn, resp.Session
}

func (e *testEnv) addTrack(t *testing.T, session connection.Session, mediaRef string) room.QueueResponse {
	t.Helper()

	resp, err := e.svc.AddTrack(context.Background(), &room.AddTrackParams{
		Session:  session,
		MediaRef: mediaRef,
		Title:    "Track " + mediaRef,
	})
	require.NoError(t, err)

	return resp
}

func TestCreateRoom(t *testing.T) {
	e := newTestEnv(t, room.Config{})
	ctx := context.Background()

	conn := newConn()
	resp, err := e.svc.CreateRoom(ctx, &room.CreateRoomParams{Conn: conn, DisplayName: "Alice"})
	require.NoError(t, err)

	assert.Len(t, resp.Session.RoomCode, roomrepo.CodeLength)
	assert.True(t, resp.Session.IsHost)
	assert.Equal(t, resp.Session.UserID, resp.Snapshot.HostID)
	assert.Empty(t, resp.Snapshot.Queue)
	assert.False(t, resp.Snapshot.IsPlaying)
	require.Len(t, resp.Snapshot.Users, 1)
	assert.True(t, resp.Snapshot.Users[0].IsHost)
	assert.True(t, e.mr.Exists("room:"+resp.Session.RoomCode+":state"))

	_, err = e.svc.CreateRoom(ctx, &room.CreateRoomParams{Conn: conn, DisplayName: "Alice"})
	assert.ErrorIs(t, err, room.ErrAlreadyInRoom)

	_, err = e.svc.CreateRoom(ctx, &room.CreateRoomParams{Conn: newConn(), DisplayName: ""})
	assert.Error(t, err)
}

func TestJoinRoom(t *testing.T) {
	e := newTestEnv(t, room.Config{MembersLimit: 2})
	ctx := context.Background()

	_, host := e.createRoom(t, "Alice")
	e.addTrack(t, host, "dQw4w9WgXcQ")

	conn := newConn()
	resp, err := e.svc.JoinRoom(ctx, &room.JoinRoomParams{
		Conn:        conn,
		RoomCode:    toLower(host.RoomCode),
		DisplayName: "Bob",
	})
	require.NoError(t, err)

	assert.False(t, resp.Session.IsHost)
	assert.Equal(t, host.RoomCode, resp.Session.RoomCode)
	assert.Equal(t, "Bob", resp.JoinedUser.DisplayName)
	assert.Len(t, resp.Users, 2)
	assert.Len(t, resp.Conns, 2)
	assert.Len(t, resp.Snapshot.Queue, 1)

	_, err = e.svc.JoinRoom(ctx, &room.JoinRoomParams{Conn: conn, RoomCode: host.RoomCode, DisplayName: "Bob"})
	assert.ErrorIs(t, err, room.ErrAlreadyInRoom)

	_, err = e.svc.JoinRoom(ctx, &room.JoinRoomParams{Conn: newConn(), RoomCode: host.RoomCode, DisplayName: "Carol"})
	assert.ErrorIs(t, err, room.ErrRoomFull)

	_, err = e.svc.JoinRoom(ctx, &room.JoinRoomParams{Conn: newConn(), RoomCode: "??????", DisplayName: "Dave"})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

func TestHostLeaveClosesRoom(t *testing.T) {
	e := newTestEnv(t, room.Config{})
	ctx := context.Background()

	hostConn, host := e.createRoom(t, "Alice")
	guestConn, _ := e.joinRoom(t, host.RoomCode, "Bob")

	resp, err := e.svc.LeaveRoom(ctx, &room.LeaveRoomParams{Conn: hostConn})
	require.NoError(t, err)
	assert.True(t, resp.RoomClosed)
	require.Len(t, resp.Conns, 1)
	assert.Same(t, guestConn, resp.Conns[0])

	_, err = e.svc.GetRoomPreview(ctx, host.RoomCode)
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
	assert.False(t, e.mr.Exists("room:"+host.RoomCode+":state"))

	_, err = e.svc.LeaveRoom(ctx, &room.LeaveRoomParams{Conn: guestConn})
	assert.ErrorIs(t, err, room.ErrNotInRoom)

	_, err = e.svc.JoinRoom(ctx, &room.JoinRoomParams{Conn: newConn(), RoomCode: host.RoomCode, DisplayName: "Carol"})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)

	stats, err := e.svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Rooms)
	require.NotNil(t, stats.MirroredRooms)
	assert.Zero(t, *stats.MirroredRooms)
}

func TestGuestLeave(t *testing.T) {
	e := newTestEnv(t, room.Config{})
	ctx := context.Background()

	hostConn, host := e.createRoom(t, "Alice")
	guestConn, guest := e.joinRoom(t, host.RoomCode, "Bob")

	resp, err := e.svc.LeaveRoom(ctx, &room.LeaveRoomParams{Conn: guestConn})
	require.NoError(t, err)
	assert.False(t, resp.RoomClosed)
	assert.Equal(t, guest.UserID, resp.User.ID)
	assert.Len(t, resp.Users, 1)
	require.Len(t, resp.Conns, 1)
	assert.Same(t, hostConn, resp.Conns[0])

	// A second guest may take the same name again.
	e.joinRoom(t, host.RoomCode, "Bob")
}

func TestGuestCannotControlPlayback(t *testing.T) {
	e := newTestEnv(t, room.Config{})
	ctx := context.Background()

	_, host := e.createRoom(t, "Alice")
	_, guest := e.joinRoom(t, host.RoomCode, "Bob")

	added := e.addTrack(t, guest, "dQw4w9WgXcQ")
	require.Len(t, added.Queue, 1)
	assert.Equal(t, "Bob", added.Queue[0].AddedBy)

	_, err := e.svc.Play(ctx, &room.PlayerParams{Session: guest})
	assert.ErrorIs(t, err, room.ErrPermissionDenied)
	_, err = e.svc.Next(ctx, &room.PlayerParams{Session: guest})
	assert.ErrorIs(t, err, room.ErrPermissionDenied)
	_, err = e.svc.RemoveTrack(ctx, &room.RemoveTrackParams{Session: guest, TrackID: added.Queue[0].ID})
	assert.ErrorIs(t, err, room.ErrPermissionDenied)
	_, err = e.svc.SyncTime(ctx, &room.SyncTimeParams{Session: guest, Position: 10})
	assert.ErrorIs(t, err, room.ErrPermissionDenied)
	_, err = e.svc.SetRepeat(ctx, &room.ToggleParams{Session: guest, Enabled: true})
	assert.ErrorIs(t, err, room.ErrPermissionDenied)

	sync, err := e.svc.RequestSync(ctx, &room.RequestSyncParams{Session: guest})
	require.NoError(t, err)
	assert.False(t, sync.Snapshot.IsPlaying)
	assert.False(t, sync.Snapshot.Repeat)
}

func TestPlaybackPositionFollowsClock(t *testing.T) {
	e := newTestEnv(t, room.Config{})
	ctx := context.Background()

	_, host := e.createRoom(t, "Alice")
	_, guest := e.joinRoom(t, host.RoomCode, "Bob")
	e.addTrack(t, host, "dQw4w9WgXcQ")

	played, err := e.svc.Play(ctx, &room.PlayerParams{Session: host})
	require.NoError(t, err)
	assert.True(t, played.IsPlaying)
	assert.Len(t, played.Conns, 2)

	e.clock.Advance(3 * time.Second)
	synced, err := e.svc.SyncTime(ctx, &room.SyncTimeParams{Session: host, Position: 3.5})
	require.NoError(t, err)
	assert.InDelta(t, 3.5, synced.Position, 1e-9)
	assert.Len(t, synced.Conns, 1)

	e.clock.Advance(2 * time.Second)
	sync, err := e.svc.RequestSync(ctx, &room.RequestSyncParams{Session: guest})
	require.NoError(t, err)
	assert.InDelta(t, 5.5, sync.Snapshot.Position, 1e-9)

	preview, err := e.svc.GetRoomPreview(ctx, host.RoomCode)
	require.NoError(t, err)
	assert.InDelta(t, 5.5, preview.Position, 1e-9)

	e.clock.Advance(time.Second)
	paused, err := e.svc.Pause(ctx, &room.PlayerParams{Session: host})
	require.NoError(t, err)
	assert.False(t, paused.IsPlaying)
	assert.InDelta(t, 6.5, paused.Position, 1e-9)

	e.clock.Advance(10 * time.Second)
	sync, err = e.svc.RequestSync(ctx, &room.RequestSyncParams{Session: guest})
	require.NoError(t, err)
	assert.InDelta(t, 6.5, sync.Snapshot.Position, 1e-9)

	_, err = e.svc.SyncTime(ctx, &room.SyncTimeParams{Session: host, Position: -1})
	assert.Error(t, err)
}

func TestNavigation(t *testing.T) {
	e := newTestEnv(t, room.Config{})
	ctx := context.Background()

	_, host := e.createRoom(t, "Alice")
	for _, ref := range []string{"aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc"} {
		e.addTrack(t, host, ref)
	}
	hostOnly := &room.PlayerParams{Session: host}

	_, err := e.svc.Prev(ctx, hostOnly)
	assert.ErrorIs(t, err, room.ErrNoChange)

	next, err := e.svc.Next(ctx, hostOnly)
	require.NoError(t, err)
	assert.Equal(t, 1, next.CurrentIndex)
	assert.Zero(t, next.Position)

	at, err := e.svc.PlayAt(ctx, &room.PlayAtParams{Session: host, Index: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, at.CurrentIndex)
	assert.True(t, at.IsPlaying)

	_, err = e.svc.PlayAt(ctx, &room.PlayAtParams{Session: host, Index: 3})
	assert.ErrorIs(t, err, room.ErrIndexOutOfRange)

	_, err = e.svc.Next(ctx, hostOnly)
	assert.ErrorIs(t, err, room.ErrNoChange)

	settings, err := e.svc.SetRepeat(ctx, &room.ToggleParams{Session: host, Enabled: true})
	require.NoError(t, err)
	assert.True(t, settings.Settings.Repeat)

	next, err = e.svc.Next(ctx, hostOnly)
	require.NoError(t, err)
	assert.Equal(t, 0, next.CurrentIndex)

	prev, err := e.svc.Prev(ctx, hostOnly)
	require.NoError(t, err)
	assert.Equal(t, 2, prev.CurrentIndex)
}

func TestTrackEnded(t *testing.T) {
	e := newTestEnv(t, room.Config{})
	ctx := context.Background()

	_, host := e.createRoom(t, "Alice")
	hostOnly := &room.PlayerParams{Session: host}

	_, err := e.svc.TrackEnded(ctx, hostOnly)
	assert.ErrorIs(t, err, room.ErrNoChange)

	e.addTrack(t, host, "aaaaaaaaaaa")
	e.addTrack(t, host, "bbbbbbbbbbb")

	ended, err := e.svc.TrackEnded(ctx, hostOnly)
	require.NoError(t, err)
	assert.False(t, ended.Stopped)
	assert.Equal(t, 1, ended.CurrentIndex)
	assert.True(t, ended.IsPlaying)

	e.clock.Advance(4 * time.Second)
	ended, err = e.svc.TrackEnded(ctx, hostOnly)
	require.NoError(t, err)
	assert.True(t, ended.Stopped)
	assert.Equal(t, 1, ended.CurrentIndex)
	assert.False(t, ended.IsPlaying)

	_, err = e.svc.SetRepeat(ctx, &room.ToggleParams{Session: host, Enabled: true})
	require.NoError(t, err)

	ended, err = e.svc.TrackEnded(ctx, hostOnly)
	require.NoError(t, err)
	assert.False(t, ended.Stopped)
	assert.Equal(t, 0, ended.CurrentIndex)
	assert.True(t, ended.IsPlaying)
	assert.Zero(t, ended.Position)
}

func TestQueueEditing(t *testing.T) {
	e := newTestEnv(t, room.Config{QueueLimit: 3})
	ctx := context.Background()

	_, host := e.createRoom(t, "Alice")
	e.addTrack(t, host, "aaaaaaaaaaa")
	e.addTrack(t, host, "bbbbbbbbbbb")
	queue := e.addTrack(t, host, "ccccccccccc").Queue

	_, err := e.svc.AddTrack(ctx, &room.AddTrackParams{Session: host, MediaRef: "ddddddddddd"})
	assert.ErrorIs(t, err, room.ErrQueueFull)

	_, err = e.svc.PlayAt(ctx, &room.PlayAtParams{Session: host, Index: 1})
	require.NoError(t, err)

	reordered, err := e.svc.ReorderQueue(ctx, &room.ReorderQueueParams{
		Session:  host,
		TrackIDs: []string{queue[1].ID, queue[2].ID, queue[0].ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, reordered.CurrentIndex)
	assert.Equal(t, queue[1].ID, reordered.Queue[0].ID)

	_, err = e.svc.ReorderQueue(ctx, &room.ReorderQueueParams{
		Session:  host,
		TrackIDs: []string{queue[1].ID, queue[2].ID},
	})
	assert.ErrorIs(t, err, room.ErrInvalidOrder)

	removed, err := e.svc.RemoveTrack(ctx, &room.RemoveTrackParams{Session: host, TrackID: queue[1].ID})
	require.NoError(t, err)
	assert.Len(t, removed.Queue, 2)
	assert.Equal(t, 0, removed.CurrentIndex)

	_, err = e.svc.RemoveTrack(ctx, &room.RemoveTrackParams{Session: host, TrackID: queue[1].ID})
	assert.ErrorIs(t, err, room.ErrTrackNotFound)

	for _, track := range removed.Queue {
		_, err = e.svc.RemoveTrack(ctx, &room.RemoveTrackParams{Session: host, TrackID: track.ID})
		require.NoError(t, err)
	}

	sync, err := e.svc.RequestSync(ctx, &room.RequestSyncParams{Session: host})
	require.NoError(t, err)
	assert.Empty(t, sync.Snapshot.Queue)
	assert.False(t, sync.Snapshot.IsPlaying)
	assert.Zero(t, sync.Snapshot.Position)
}

func TestAddTrackDefaults(t *testing.T) {
	e := newTestEnv(t, room.Config{})
	ctx := context.Background()

	_, host := e.createRoom(t, "Alice")
	resp, err := e.svc.AddTrack(ctx, &room.AddTrackParams{
		Session:  host,
		MediaRef: "dQw4w9WgXcQ",
		AddedBy:  "AutoQueue",
	})
	require.NoError(t, err)
	require.Len(t, resp.Queue, 1)
	assert.Equal(t, domain.DefaultTrackTitle, resp.Queue[0].Title)
	assert.Equal(t, "AutoQueue", resp.Queue[0].AddedBy)
	assert.NotEmpty(t, resp.Queue[0].ID)

	_, err = e.svc.AddTrack(ctx, &room.AddTrackParams{Session: host})
	assert.Error(t, err)
}

func TestSetAutoQueue(t *testing.T) {
	e := newTestEnv(t, room.Config{})
	ctx := context.Background()

	_, host := e.createRoom(t, "Alice")
	_, guest := e.joinRoom(t, host.RoomCode, "Bob")

	resp, err := e.svc.SetAutoQueue(ctx, &room.ToggleParams{Session: host, Enabled: true})
	require.NoError(t, err)
	assert.True(t, resp.Settings.AutoQueue)
	assert.False(t, resp.Settings.Repeat)
	assert.Len(t, resp.Conns, 2)

	sync, err := e.svc.RequestSync(ctx, &room.RequestSyncParams{Session: guest})
	require.NoError(t, err)
	assert.True(t, sync.Snapshot.AutoQueue)
}

func TestConcurrentAddsPublishInOrder(t *testing.T) {
	e := newTestEnv(t, room.Config{})
	ctx := context.Background()

	_, host := e.createRoom(t, "Alice")
	_, guest := e.joinRoom(t, host.RoomCode, "Bob")

	// The host's mirror write stalls, so the guest's add is applied while
	// the host's update is still on its way out.
	gate := e.snapshots.holdNextSave()
	hostDone := make(chan struct{})
	go func() {
		defer close(hostDone)
		_, err := e.svc.AddTrack(ctx, &room.AddTrackParams{Session: host, MediaRef: "aaaaaaaaaaa"})
		assert.NoError(t, err)
	}()
	<-gate.entered

	e.addTrack(t, guest, "bbbbbbbbbbb")
	close(gate.release)
	<-hostDone

	assert.Equal(t, []int{1, 2}, e.events.queueLengths())

	sync, err := e.svc.RequestSync(ctx, &room.RequestSyncParams{Session: guest})
	require.NoError(t, err)
	require.Len(t, sync.Snapshot.Queue, 2)

	preview, err := e.svc.GetRoomPreview(ctx, host.RoomCode)
	require.NoError(t, err)
	assert.Len(t, preview.Queue, 2)
}

func TestLateMirrorWriteDoesNotReviveClosedRoom(t *testing.T) {
	e := newTestEnv(t, room.Config{})
	ctx := context.Background()

	hostConn, host := e.createRoom(t, "Alice")
	_, guest := e.joinRoom(t, host.RoomCode, "Bob")

	gate := e.snapshots.holdNextSave()
	guestDone := make(chan struct{})
	go func() {
		defer close(guestDone)
		_, err := e.svc.AddTrack(ctx, &room.AddTrackParams{Session: guest, MediaRef: "aaaaaaaaaaa"})
		assert.NoError(t, err)
	}()
	<-gate.entered

	resp, err := e.svc.LeaveRoom(ctx, &room.LeaveRoomParams{Conn: hostConn})
	require.NoError(t, err)
	require.True(t, resp.RoomClosed)

	close(gate.release)
	<-guestDone

	_, err = e.svc.GetRoomPreview(ctx, host.RoomCode)
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
	assert.False(t, e.mr.Exists("room:"+host.RoomCode+":state"))

	stats, err := e.svc.GetStats(ctx)
	require.NoError(t, err)
	require.NotNil(t, stats.MirroredRooms)
	assert.Zero(t, *stats.MirroredRooms)
}

func TestRequestSyncIsIdempotent(t *testing.T) {
	e := newTestEnv(t, room.Config{})
	ctx := context.Background()

	_, host := e.createRoom(t, "Alice")
	_, guest := e.joinRoom(t, host.RoomCode, "Bob")
	e.addTrack(t, host, "aaaaaaaaaaa")
	_, err := e.svc.Play(ctx, &room.PlayerParams{Session: host})
	require.NoError(t, err)
	e.clock.Advance(1500 * time.Millisecond)

	first, err := e.svc.RequestSync(ctx, &room.RequestSyncParams{Session: guest})
	require.NoError(t, err)
	second, err := e.svc.RequestSync(ctx, &room.RequestSyncParams{Session: guest})
	require.NoError(t, err)

	assert.Equal(t, first.Snapshot, second.Snapshot)
	assert.InDelta(t, 1.5, first.Snapshot.Position, 1e-9)

	published := e.events.fullSyncs()
	require.Len(t, published, 2)
	assert.Equal(t, published[0], published[1])
}
