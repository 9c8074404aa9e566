package services

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cbodonnell/manhunt/pkg/game/types"
	"github.com/cbodonnell/manhunt/pkg/geo"
	"github.com/cbodonnell/manhunt/pkg/network"
	"github.com/cbodonnell/manhunt/pkg/rooms"
	"github.com/stretchr/testify/require"
)

// metersPerDegreeLat is the great-circle length of one degree along a meridian.
const metersPerDegreeLat = geo.EarthRadiusMeters * 3.141592653589793 / 180

var basecamp = geo.Point{Lat: 37.5665, Lng: 126.9780}

func north(p geo.Point, meters float64) geo.Point {
	return geo.Point{Lat: p.Lat + meters/metersPerDegreeLat, Lng: p.Lng}
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type frame struct {
	Type     string          `json:"type"`
	RoomID   string          `json:"roomId"`
	PlayerID string          `json:"playerId"`
	Success  *bool           `json:"success"`
	Error    string          `json:"error"`
	Data     json.RawMessage `json:"data"`
	Ts       int64           `json:"ts"`
}

type recordingConn struct {
	frames [][]byte
	fail   bool
}

func (c *recordingConn) Send(b []byte) error {
	if c.fail {
		return errors.New("broken pipe")
	}
	c.frames = append(c.frames, b)
	return nil
}

func (c *recordingConn) Close() error { return nil }

type fixture struct {
	clock       *fakeClock
	rooms       *rooms.Manager
	clients     *network.ClientManager
	conns       map[string]*recordingConn
	broadcaster *Broadcaster
}

func newFixture() *fixture {
	clock := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	clients := network.NewClientManager()
	return &fixture{
		clock:   clock,
		rooms:   rooms.NewManager(rooms.NewManagerOptions{Now: clock.Now}),
		clients: clients,
		conns:   make(map[string]*recordingConn),
		broadcaster: NewBroadcaster(NewBroadcasterOptions{
			Connections: clients,
			Now:         clock.Now,
		}),
	}
}

func (f *fixture) newRoom(t *testing.T, mode types.GameMode) *types.Room {
	room, err := f.rooms.CreateRoom("host", &types.SettingsPatch{GameMode: &mode})
	require.NoError(t, err)
	return room
}

// join adds a connected player with a team and, for thieves, a FREE status.
func (f *fixture) join(room *types.Room, id string, team types.Team) *types.Player {
	role := types.RoleGuest
	if len(room.Players) == 0 {
		role = types.RoleHost
	}
	p := types.NewPlayer(id, "nick-"+id, role, f.clock.Now().UnixMilli())
	p.Team = team
	if team == types.TeamThief {
		p.ThiefStatus = types.NewFreeThiefStatus()
	}
	room.AddPlayer(p)

	conn := &recordingConn{}
	f.conns[id] = conn
	f.clients.Register(id, conn)
	f.clients.SetRoom(id, room.ID)
	return p
}

func (f *fixture) place(p *types.Player, at geo.Point) {
	p.Location = &types.Location{Lat: at.Lat, Lng: at.Lng, UpdatedAt: f.clock.Now().UnixMilli()}
}

// startChase puts room in CHASE as if the game started at the current clock.
func (f *fixture) startChase(room *types.Room) {
	room.Basecamp = &types.Basecamp{Lat: basecamp.Lat, Lng: basecamp.Lng}
	room.Status = types.RoomStatusChase
	deadline := f.clock.Now().UnixMilli() + int64(room.Settings.TotalSeconds())*1000
	room.PhaseEndsAt = &deadline
}

func (f *fixture) frames(t *testing.T, playerID string) []frame {
	conn, ok := f.conns[playerID]
	require.True(t, ok, "no connection for %s", playerID)
	out := make([]frame, 0, len(conn.frames))
	for _, b := range conn.frames {
		var fr frame
		require.NoError(t, json.Unmarshal(b, &fr))
		out = append(out, fr)
	}
	return out
}

func (f *fixture) framesOfType(t *testing.T, playerID, msgType string) []frame {
	var out []frame
	for _, fr := range f.frames(t, playerID) {
		if fr.Type == msgType {
			out = append(out, fr)
		}
	}
	return out
}

func (f *fixture) reset() {
	for _, c := range f.conns {
		c.frames = nil
	}
}
