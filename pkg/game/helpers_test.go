package game

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cbodonnell/manhunt/pkg/game/types"
	"github.com/cbodonnell/manhunt/pkg/geo"
	"github.com/cbodonnell/manhunt/pkg/messages"
	"github.com/cbodonnell/manhunt/pkg/network"
	"github.com/cbodonnell/manhunt/pkg/rooms"
	"github.com/stretchr/testify/require"
)

var basecamp = geo.Point{Lat: 37.5665, Lng: 126.9780}

const metersPerDegreeLat = geo.EarthRadiusMeters * 3.141592653589793 / 180

func north(p geo.Point, meters float64) geo.Point {
	return geo.Point{Lat: p.Lat + meters/metersPerDegreeLat, Lng: p.Lng}
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type scheduledTask struct {
	after time.Duration
	fn    func()
}

// fakeScheduler only runs tasks when a test fires them.
type fakeScheduler struct {
	tasks map[string]scheduledTask
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{tasks: make(map[string]scheduledTask)}
}

func (s *fakeScheduler) Schedule(key string, after time.Duration, fn func()) {
	s.tasks[key] = scheduledTask{after: after, fn: fn}
}

func (s *fakeScheduler) Cancel(key string) {
	delete(s.tasks, key)
}

func (s *fakeScheduler) CancelPrefix(prefix string) {
	for key := range s.tasks {
		if strings.HasPrefix(key, prefix) {
			delete(s.tasks, key)
		}
	}
}

func (s *fakeScheduler) Fire(t *testing.T, key string) {
	task, ok := s.tasks[key]
	require.True(t, ok, "no task scheduled for %s", key)
	delete(s.tasks, key)
	task.fn()
}

type recordingConn struct {
	frames [][]byte
}

func (c *recordingConn) Send(b []byte) error {
	c.frames = append(c.frames, b)
	return nil
}

func (c *recordingConn) Close() error { return nil }

type frame struct {
	Type     string          `json:"type"`
	RoomID   string          `json:"roomId"`
	PlayerID string          `json:"playerId"`
	Success  *bool           `json:"success"`
	Error    string          `json:"error"`
	Data     json.RawMessage `json:"data"`
}

type testEngine struct {
	*Engine
	clock     *fakeClock
	scheduler *fakeScheduler
	clients   *network.ClientManager
	conns     map[string]*recordingConn
	// fixedCode, when set, is handed out for every new room
	fixedCode string
}

// newTestEngine builds an engine with deterministic room codes and a shuffle
// that keeps join order, so the earliest joined half becomes police.
func newTestEngine() *testEngine {
	clock := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	scheduler := newFakeScheduler()
	clients := network.NewClientManager()

	te := &testEngine{
		clock:     clock,
		scheduler: scheduler,
		clients:   clients,
		conns:     make(map[string]*recordingConn),
	}
	codes := 0
	roomManager := rooms.NewManager(rooms.NewManagerOptions{
		CodeGenerator: func() string {
			if te.fixedCode != "" {
				return te.fixedCode
			}
			codes++
			return fmt.Sprintf("ROOM%02d", codes)
		},
		Now: clock.Now,
	})

	te.Engine = NewEngine(NewEngineOptions{
		Rooms:          roomManager,
		ClientManager:  clients,
		Scheduler:      scheduler,
		Shuffle:        func(n int, swap func(i, j int)) {},
		MaxLocationAge: 20 * time.Second,
		Now:            clock.Now,
	})
	return te
}

func (te *testEngine) connect(playerIDs ...string) {
	for _, id := range playerIDs {
		conn := &recordingConn{}
		te.conns[id] = conn
		te.clients.Register(id, conn)
	}
}

func (te *testEngine) send(t *testing.T, playerID, roomID, msgType string, payload interface{}) {
	msg := &messages.Inbound{Type: msgType, RoomID: roomID, PlayerID: playerID}
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		msg.Payload = b
	}
	te.HandleMessage(msg)
}

func (te *testEngine) frames(t *testing.T, playerID, msgType string) []frame {
	conn, ok := te.conns[playerID]
	require.True(t, ok, "no connection for %s", playerID)
	var out []frame
	for _, b := range conn.frames {
		var fr frame
		require.NoError(t, json.Unmarshal(b, &fr))
		if msgType == "" || fr.Type == msgType {
			out = append(out, fr)
		}
	}
	return out
}

func (te *testEngine) last(t *testing.T, playerID, msgType string) frame {
	all := te.frames(t, playerID, msgType)
	require.NotEmpty(t, all, "no %s frame for %s", msgType, playerID)
	return all[len(all)-1]
}

func (te *testEngine) requireFailure(t *testing.T, playerID, msgType, reason string) {
	fr := te.last(t, playerID, msgType)
	require.NotNil(t, fr.Success)
	require.False(t, *fr.Success)
	require.Equal(t, reason, fr.Error)
}

func (te *testEngine) reset() {
	for _, c := range te.conns {
		c.frames = nil
	}
}

// lobby creates a room hosted by the first player with the others joined,
// all of them connected.
func (te *testEngine) lobby(t *testing.T, host string, guests ...string) *types.Room {
	te.connect(append([]string{host}, guests...)...)
	te.send(t, host, "", messages.MessageTypeRoomCreate, map[string]interface{}{"nickname": "nick-" + host})

	var created messages.RoomCreated
	require.NoError(t, json.Unmarshal(te.last(t, host, messages.MessageTypeRoomCreated).Data, &created))
	for _, g := range guests {
		te.send(t, g, created.RoomID, messages.MessageTypeRoomJoin, map[string]interface{}{"nickname": "nick-" + g})
	}
	room := te.rooms.GetRoom(created.RoomID)
	require.NotNil(t, room)
	return room
}

// chase shuffles and starts the room and fires the hiding timer.
func (te *testEngine) chase(t *testing.T, room *types.Room) {
	require.NoError(t, te.ShuffleTeams(room.ID))
	require.NoError(t, te.StartGame(room.ID, &basecamp))
	te.scheduler.Fire(t, hidingKey(room.ID))
	require.Equal(t, types.RoomStatusChase, room.Status)
}

func (te *testEngine) moveTo(t *testing.T, room *types.Room, playerID string, p geo.Point) {
	te.send(t, playerID, room.ID, messages.MessageTypeLocationUpdate, map[string]interface{}{"lat": p.Lat, "lng": p.Lng, "accuracy": 5})
}
