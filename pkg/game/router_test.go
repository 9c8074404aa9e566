package game

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cbodonnell/manhunt/pkg/game/types"
	"github.com/cbodonnell/manhunt/pkg/messages"
	"github.com/cbodonnell/manhunt/pkg/rooms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleMessage_ignored(t *testing.T) {
	te := newTestEngine()
	room := te.lobby(t, "host", "guest")
	te.reset()

	te.send(t, "host", room.ID, "room:destroy", nil)
	te.HandleMessage(&messages.Inbound{Type: messages.MessageTypeTeamShuffle, RoomID: room.ID})

	assert.Empty(t, te.frames(t, "host", ""))
	host, _ := room.GetPlayer("host")
	assert.Equal(t, types.TeamNone, host.Team)
}

func TestHandleMessage_invalidPayload(t *testing.T) {
	te := newTestEngine()
	room := te.lobby(t, "host")
	te.connect("late")

	te.send(t, "late", room.ID, messages.MessageTypeRoomJoin, map[string]interface{}{"nickname": "   "})

	te.requireFailure(t, "late", messages.MessageTypeRoomJoin, "invalid payload: nickname is required")
	assert.Len(t, room.Players, 1)
}

func TestHandleRoomCreate(t *testing.T) {
	te := newTestEngine()
	te.connect("host")

	te.send(t, "host", "", messages.MessageTypeRoomCreate, map[string]interface{}{
		"nickname": "Alice",
		"settings": map[string]interface{}{"gameMode": "BATTLE", "maxPlayers": 4},
	})

	fr := te.last(t, "host", messages.MessageTypeRoomCreated)
	require.NotNil(t, fr.Success)
	assert.True(t, *fr.Success)
	var created messages.RoomCreated
	require.NoError(t, json.Unmarshal(fr.Data, &created))
	assert.Equal(t, "ROOM01", created.RoomID)
	assert.Equal(t, "ROOM01", fr.RoomID)
	assert.Equal(t, "policevsthieves://join/ROOM01", created.JoinURL)

	room := te.rooms.GetRoom(created.RoomID)
	require.NotNil(t, room)
	assert.Equal(t, types.GameModeBattle, room.Settings.GameMode)
	assert.Equal(t, 4, room.Settings.MaxPlayers)
	assert.True(t, IsHost(room, "host"))
	assert.Equal(t, room.ID, te.clients.RoomOf("host"))
	assert.NotEmpty(t, te.frames(t, "host", messages.MessageTypeGameState))
}

func TestHandleRoomCreate_leavesPreviousRoom(t *testing.T) {
	te := newTestEngine()
	first := te.lobby(t, "host", "guest")

	te.send(t, "guest", "", messages.MessageTypeRoomCreate, map[string]interface{}{"nickname": "again"})

	_, stillThere := first.GetPlayer("guest")
	assert.False(t, stillThere)
	assert.Equal(t, "ROOM02", te.clients.RoomOf("guest"))
}

func TestHandleRoomCreate_failureKeepsPreviousRoom(t *testing.T) {
	te := newTestEngine()
	first := te.lobby(t, "host", "guest")

	te.fixedCode = first.ID

	te.send(t, "guest", "", messages.MessageTypeRoomCreate, map[string]interface{}{"nickname": "again"})

	fr := te.last(t, "guest", messages.MessageTypeRoomCreated)
	require.NotNil(t, fr.Success)
	assert.False(t, *fr.Success)
	assert.Contains(t, fr.Error, rooms.ErrCodeExhausted.Error())
	_, stillThere := first.GetPlayer("guest")
	assert.True(t, stillThere)
	assert.Equal(t, first.ID, te.clients.RoomOf("guest"))
	assert.Len(t, te.rooms.GetAllRooms(), 1)
}

func TestHandleRoomJoin_errors(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T, te *testEngine, room *types.Room)
		roomID string
		want   string
	}{
		{
			name:   "unknown room",
			roomID: "NOPE00",
			want:   "Room not found",
		},
		{
			name: "game started",
			setup: func(t *testing.T, te *testEngine, room *types.Room) {
				require.NoError(t, te.ShuffleTeams(room.ID))
				require.NoError(t, te.StartGame(room.ID, &basecamp))
			},
			want: "Game already started",
		},
		{
			name: "room full",
			setup: func(t *testing.T, te *testEngine, room *types.Room) {
				room.Settings.MaxPlayers = 2
			},
			want: "Room is full",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := newTestEngine()
			room := te.lobby(t, "host", "guest")
			if tt.setup != nil {
				tt.setup(t, te, room)
			}
			roomID := tt.roomID
			if roomID == "" {
				roomID = room.ID
			}
			te.connect("late")

			te.send(t, "late", roomID, messages.MessageTypeRoomJoin, map[string]interface{}{"nickname": "late"})

			te.requireFailure(t, "late", messages.MessageTypeRoomJoin, tt.want)
			_, joined := room.GetPlayer("late")
			assert.False(t, joined)
		})
	}
}

func TestHandleRoomJoin_rejoinKeepsState(t *testing.T) {
	te := newTestEngine()
	room := te.lobby(t, "host", "guest")
	te.chase(t, room)
	te.HandleDisconnect("guest", room.ID)

	te.send(t, "guest", room.ID, messages.MessageTypeRoomJoin, map[string]interface{}{"nickname": "renamed"})

	guest, ok := room.GetPlayer("guest")
	require.True(t, ok)
	assert.True(t, guest.Connected)
	assert.Equal(t, "renamed", guest.Nickname)
	assert.Equal(t, types.TeamThief, guest.Team)
	assert.Equal(t, types.ThiefStateFree, guest.ThiefState())
	fr := te.last(t, "guest", messages.MessageTypeRoomJoin)
	require.NotNil(t, fr.Success)
	assert.True(t, *fr.Success)
}

func TestHostOnlyMessages(t *testing.T) {
	tests := []struct {
		msgType string
		payload interface{}
	}{
		{messages.MessageTypeTeamShuffle, nil},
		{messages.MessageTypeGameStart, nil},
		{messages.MessageTypeBasecampSet, map[string]interface{}{"lat": basecamp.Lat, "lng": basecamp.Lng}},
		{messages.MessageTypeRoomSettingsUpdate, map[string]interface{}{"settings": map[string]interface{}{"chaseSeconds": 600}}},
	}
	for _, tt := range tests {
		t.Run(tt.msgType, func(t *testing.T) {
			te := newTestEngine()
			room := te.lobby(t, "host", "guest")

			te.send(t, "guest", room.ID, tt.msgType, tt.payload)

			te.requireFailure(t, "guest", tt.msgType, "Permission denied")
			assert.Equal(t, types.RoomStatusLobby, room.Status)
			assert.Nil(t, room.Basecamp)
			assert.Equal(t, 300, room.Settings.ChaseSeconds)
		})
	}
}

func TestHandleMessage_notInRoom(t *testing.T) {
	te := newTestEngine()
	room := te.lobby(t, "host")
	te.connect("stranger")

	te.send(t, "stranger", room.ID, messages.MessageTypeChatSend, map[string]interface{}{"text": "hi"})

	te.requireFailure(t, "stranger", messages.MessageTypeChatSend, "Not in room")
	assert.Empty(t, room.ChatHistory)
}

func TestHandleRoomSettingsUpdate(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]interface{}
		want     string
	}{
		{
			name:     "below player count",
			settings: map[string]interface{}{"maxPlayers": 2},
			want:     "maxPlayers is below the current player count",
		},
		{
			name:     "out of bounds",
			settings: map[string]interface{}{"hidingSeconds": 1},
			want:     "invalid settings: hidingSeconds must be between 10 and 1800",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := newTestEngine()
			room := te.lobby(t, "host", "g1", "g2")

			te.send(t, "host", room.ID, messages.MessageTypeRoomSettingsUpdate, map[string]interface{}{"settings": tt.settings})

			te.requireFailure(t, "host", messages.MessageTypeRoomSettingsUpdate, tt.want)
			assert.Equal(t, types.DefaultSettings(), room.Settings)
		})
	}

	t.Run("applies patch", func(t *testing.T) {
		te := newTestEngine()
		room := te.lobby(t, "host", "guest")

		te.send(t, "host", room.ID, messages.MessageTypeRoomSettingsUpdate, map[string]interface{}{
			"settings": map[string]interface{}{"captureRadiusMeters": 25},
		})

		assert.Equal(t, 25.0, room.Settings.CaptureRadiusMeters)
		assert.Equal(t, 30.0, room.Settings.ProximityRadiusMeters)
	})

	t.Run("lobby only", func(t *testing.T) {
		te := newTestEngine()
		room := te.lobby(t, "host", "guest")
		te.chase(t, room)

		te.send(t, "host", room.ID, messages.MessageTypeRoomSettingsUpdate, map[string]interface{}{
			"settings": map[string]interface{}{"captureRadiusMeters": 25},
		})

		te.requireFailure(t, "host", messages.MessageTypeRoomSettingsUpdate, "Only allowed in LOBBY")
	})
}

func TestHandleChatSend(t *testing.T) {
	te := newTestEngine()
	room := te.lobby(t, "host", "guest")

	te.send(t, "guest", room.ID, messages.MessageTypeChatSend, map[string]interface{}{"text": "  hello  "})

	require.Len(t, room.ChatHistory, 1)
	chat := room.ChatHistory[0]
	assert.Equal(t, "hello", chat.Text)
	assert.Equal(t, "nick-guest", chat.Nickname)
	assert.NotEmpty(t, chat.MessageID)

	for _, id := range []string{"host", "guest"} {
		var got types.ChatMessage
		require.NoError(t, json.Unmarshal(te.last(t, id, messages.MessageTypeChatNew).Data, &got))
		assert.Equal(t, chat, got)
	}
}

func TestHandleGameStart_message(t *testing.T) {
	te := newTestEngine()
	room := te.lobby(t, "host", "guest")

	te.send(t, "host", room.ID, messages.MessageTypeGameStart, map[string]interface{}{
		"basecamp": map[string]interface{}{"lat": basecamp.Lat, "lng": basecamp.Lng},
	})
	te.requireFailure(t, "host", messages.MessageTypeGameStart, "Teams not assigned")

	te.send(t, "host", room.ID, messages.MessageTypeTeamShuffle, nil)
	te.send(t, "host", room.ID, messages.MessageTypeGameStart, nil)

	assert.Equal(t, types.RoomStatusHiding, room.Status)
	var assigned messages.TeamAssigned
	require.NoError(t, json.Unmarshal(te.last(t, "guest", messages.MessageTypeTeamAssigned).Data, &assigned))
	assert.Equal(t, types.TeamThief, assigned.YourTeam)
}

func TestChaseActions_errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, te *testEngine, room *types.Room)
		from    string
		msgType string
		thiefID string
		want    string
	}{
		{
			name:    "thief cannot capture",
			from:    "guest",
			msgType: messages.MessageTypeCaptureRequest,
			thiefID: "guest",
			want:    "You are not a police",
		},
		{
			name:    "unknown thief",
			from:    "host",
			msgType: messages.MessageTypeCaptureRequest,
			thiefID: "nobody",
			want:    "Invalid thief",
		},
		{
			name:    "police target",
			from:    "host",
			msgType: messages.MessageTypeCaptureRequest,
			thiefID: "host",
			want:    "Invalid thief",
		},
		{
			name:    "no locations",
			from:    "host",
			msgType: messages.MessageTypeCaptureRequest,
			thiefID: "guest",
			want:    "Police location outdated or missing",
		},
		{
			name: "stale thief location",
			setup: func(t *testing.T, te *testEngine, room *types.Room) {
				te.moveTo(t, room, "guest", basecamp)
				te.clock.Advance(21 * time.Second)
				te.moveTo(t, room, "host", basecamp)
			},
			from:    "host",
			msgType: messages.MessageTypeCaptureRequest,
			thiefID: "guest",
			want:    "Thief location outdated or missing",
		},
		{
			name: "too far",
			setup: func(t *testing.T, te *testEngine, room *types.Room) {
				te.moveTo(t, room, "host", basecamp)
				te.moveTo(t, room, "guest", north(basecamp, 50))
			},
			from:    "host",
			msgType: messages.MessageTypeCaptureRequest,
			thiefID: "guest",
			want:    "Too far: 50.0m",
		},
		{
			name: "eliminated police",
			setup: func(t *testing.T, te *testEngine, room *types.Room) {
				host, _ := room.GetPlayer("host")
				at := te.clock.Now().UnixMilli()
				host.OutOfZoneAt = &at
			},
			from:    "host",
			msgType: messages.MessageTypeCaptureRequest,
			thiefID: "guest",
			want:    "You are out of the zone",
		},
		{
			name:    "jail free thief",
			from:    "host",
			msgType: messages.MessageTypeJailRequest,
			thiefID: "guest",
			want:    "Thief not captured by you",
		},
		{
			name: "jail away from basecamp",
			setup: func(t *testing.T, te *testEngine, room *types.Room) {
				te.moveTo(t, room, "host", north(basecamp, 30))
				te.moveTo(t, room, "guest", north(basecamp, 30))
				te.send(t, "host", room.ID, messages.MessageTypeCaptureRequest, map[string]interface{}{"thiefId": "guest"})
			},
			from:    "host",
			msgType: messages.MessageTypeJailRequest,
			thiefID: "guest",
			want:    "Not at basecamp: 30.0m",
		},
		{
			name:    "release free thief",
			from:    "host",
			msgType: messages.MessageTypeReleaseRequest,
			thiefID: "guest",
			want:    "Thief is not captured",
		},
		{
			name: "capture captured thief",
			setup: func(t *testing.T, te *testEngine, room *types.Room) {
				te.moveTo(t, room, "host", basecamp)
				te.moveTo(t, room, "guest", basecamp)
				te.send(t, "host", room.ID, messages.MessageTypeCaptureRequest, map[string]interface{}{"thiefId": "guest"})
			},
			from:    "host",
			msgType: messages.MessageTypeCaptureRequest,
			thiefID: "guest",
			want:    "Thief already captured or jailed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := newTestEngine()
			room := te.lobby(t, "host", "guest")
			te.chase(t, room)
			if tt.setup != nil {
				tt.setup(t, te, room)
			}
			guest, _ := room.GetPlayer("guest")
			before := *guest.ThiefStatus
			te.reset()

			te.send(t, tt.from, room.ID, tt.msgType, map[string]interface{}{"thiefId": tt.thiefID})

			te.requireFailure(t, tt.from, resultType(tt.msgType), tt.want)
			assert.Equal(t, before, *guest.ThiefStatus)
			other := "guest"
			if tt.from == "guest" {
				other = "host"
			}
			assert.Empty(t, te.frames(t, other, resultType(tt.msgType)), "failures only reach the sender")
		})
	}
}

func TestChaseActions_chaseOnly(t *testing.T) {
	tests := map[string]string{
		messages.MessageTypeCaptureRequest: "Capture allowed only during CHASE phase",
		messages.MessageTypeJailRequest:    "Jail allowed only during CHASE phase",
		messages.MessageTypeReleaseRequest: "Release allowed only during CHASE phase",
	}
	for msgType, want := range tests {
		t.Run(msgType, func(t *testing.T) {
			te := newTestEngine()
			room := te.lobby(t, "host", "guest")
			require.NoError(t, te.ShuffleTeams(room.ID))
			require.NoError(t, te.StartGame(room.ID, &basecamp))

			te.send(t, "host", room.ID, msgType, map[string]interface{}{"thiefId": "guest"})

			te.requireFailure(t, "host", resultType(msgType), want)
		})
	}
}

func TestHandleReleaseRequest(t *testing.T) {
	te := newTestEngine()
	room := te.lobby(t, "host", "guest")
	te.chase(t, room)
	te.moveTo(t, room, "host", basecamp)
	te.moveTo(t, room, "guest", basecamp)
	te.send(t, "host", room.ID, messages.MessageTypeCaptureRequest, map[string]interface{}{"thiefId": "guest"})

	te.send(t, "host", room.ID, messages.MessageTypeReleaseRequest, map[string]interface{}{"thiefId": "guest"})

	guest, _ := room.GetPlayer("guest")
	assert.Equal(t, types.NewFreeThiefStatus(), guest.ThiefStatus)
	var released messages.ReleaseResult
	require.NoError(t, json.Unmarshal(te.last(t, "guest", messages.MessageTypeReleaseResult).Data, &released))
	assert.Equal(t, "host", released.PoliceID)
}

func TestHandleLocationUpdate(t *testing.T) {
	te := newTestEngine()
	room := te.lobby(t, "host", "guest")
	te.clock.Advance(3 * time.Second)

	te.moveTo(t, room, "guest", north(basecamp, 10))

	guest, _ := room.GetPlayer("guest")
	require.NotNil(t, guest.Location)
	assert.Equal(t, te.clock.Now().UnixMilli(), guest.Location.UpdatedAt)
	assert.Equal(t, 5.0, guest.Location.Accuracy)

	var got messages.LocationBroadcast
	fr := te.last(t, "host", messages.MessageTypeLocationUpdate)
	require.NoError(t, json.Unmarshal(fr.Data, &got))
	assert.Equal(t, "guest", got.PlayerID)
	assert.Equal(t, *guest.Location, got.Location)
}

func TestPushToTalk(t *testing.T) {
	te := newTestEngine()
	room := te.lobby(t, "p1", "p2", "p3", "p4")
	require.NoError(t, te.ShuffleTeams(room.ID))
	te.reset()

	te.send(t, "p3", room.ID, messages.MessageTypePTTRequest, nil)
	holder, ok := te.signaling.Holder(room.ID)
	require.True(t, ok)
	assert.Equal(t, "p3", holder)

	te.send(t, "p4", room.ID, messages.MessageTypePTTRequest, nil)
	holder, _ = te.signaling.Holder(room.ID)
	assert.Equal(t, "p3", holder)
	assert.Empty(t, te.frames(t, "p4", messages.MessageTypePTTRequest), "denials are silent")

	te.HandleDisconnect("p3", room.ID)
	_, ok = te.signaling.Holder(room.ID)
	assert.False(t, ok)
}
