package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cbodonnell/manhunt/pkg/game/types"
	"github.com/cbodonnell/manhunt/pkg/messages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProximity(f *fixture) *ProximityService {
	return NewProximityService(NewProximityServiceOptions{
		Rooms:       f.rooms,
		Broadcaster: f.broadcaster,
		Now:         f.clock.Now,
	})
}

func alertDistances(t *testing.T, f *fixture, playerID string) []int {
	var out []int
	for _, fr := range f.framesOfType(t, playerID, messages.MessageTypeProximityNear) {
		var data messages.ProximityNear
		require.NoError(t, json.Unmarshal(fr.Data, &data))
		out = append(out, data.Distance)
	}
	return out
}

func TestProximity_cooldown(t *testing.T) {
	f := newFixture()
	prox := newProximity(f)
	room := f.newRoom(t, types.GameModeBasic)
	police := f.join(room, "p1", types.TeamPolice)
	thief := f.join(room, "t1", types.TeamThief)
	f.startChase(room)
	f.place(police, basecamp)
	f.place(thief, north(basecamp, 20))
	start := f.clock.Now()

	prox.Sweep()
	assert.Equal(t, []int{20}, alertDistances(t, f, "p1"))

	f.clock.t = start.Add(1999 * time.Millisecond)
	prox.Sweep()
	assert.Len(t, alertDistances(t, f, "p1"), 1)

	f.clock.t = start.Add(2000 * time.Millisecond)
	prox.Sweep()
	assert.Len(t, alertDistances(t, f, "p1"), 2)

	assert.Empty(t, f.frames(t, "t1"), "thieves are never alerted")
}

func TestProximity_nearestFreeThief(t *testing.T) {
	f := newFixture()
	prox := newProximity(f)
	room := f.newRoom(t, types.GameModeBasic)
	police := f.join(room, "p1", types.TeamPolice)
	far := f.join(room, "t1", types.TeamThief)
	near := f.join(room, "t2", types.TeamThief)
	captured := f.join(room, "t3", types.TeamThief)
	f.startChase(room)

	by, at := "p1", f.clock.Now().UnixMilli()
	captured.ThiefStatus = &types.ThiefStatus{State: types.ThiefStateCaptured, CapturedBy: &by, CapturedAt: &at}
	f.place(police, basecamp)
	f.place(far, north(basecamp, 25))
	f.place(near, north(basecamp, 12))
	f.place(captured, north(basecamp, 2))

	prox.Sweep()
	assert.Equal(t, []int{12}, alertDistances(t, f, "p1"))
}

func TestProximity_noAlert(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture, room *types.Room, police, thief *types.Player)
	}{
		{
			name: "out of range",
			setup: func(f *fixture, room *types.Room, police, thief *types.Player) {
				f.place(thief, north(basecamp, 40))
			},
		},
		{
			name: "hiding phase",
			setup: func(f *fixture, room *types.Room, police, thief *types.Player) {
				room.Status = types.RoomStatusHiding
			},
		},
		{
			name: "police without location",
			setup: func(f *fixture, room *types.Room, police, thief *types.Player) {
				police.Location = nil
			},
		},
		{
			name: "eliminated police",
			setup: func(f *fixture, room *types.Room, police, thief *types.Player) {
				at := f.clock.Now().UnixMilli()
				police.OutOfZoneAt = &at
			},
		},
		{
			name: "jailed thief",
			setup: func(f *fixture, room *types.Room, police, thief *types.Player) {
				thief.ThiefStatus.State = types.ThiefStateJailed
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			prox := newProximity(f)
			room := f.newRoom(t, types.GameModeBasic)
			police := f.join(room, "p1", types.TeamPolice)
			thief := f.join(room, "t1", types.TeamThief)
			f.startChase(room)
			f.place(police, basecamp)
			f.place(thief, north(basecamp, 10))
			tt.setup(f, room, police, thief)

			prox.Sweep()
			assert.Empty(t, alertDistances(t, f, "p1"))
		})
	}
}

func TestProximity_ClearRoom(t *testing.T) {
	f := newFixture()
	prox := newProximity(f)
	room := f.newRoom(t, types.GameModeBasic)
	police := f.join(room, "p1", types.TeamPolice)
	thief := f.join(room, "t1", types.TeamThief)
	f.startChase(room)
	f.place(police, basecamp)
	f.place(thief, north(basecamp, 5))

	prox.Sweep()
	prox.ClearRoom(room.ID)
	prox.Sweep()
	assert.Len(t, alertDistances(t, f, "p1"), 2)

	prox.ForgetPlayer(room.ID, "p1")
	prox.Sweep()
	assert.Len(t, alertDistances(t, f, "p1"), 3)
}
