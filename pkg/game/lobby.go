package game

import (
	"errors"

	"github.com/cbodonnell/manhunt/pkg/game/constants"
	"github.com/cbodonnell/manhunt/pkg/game/types"
	"github.com/cbodonnell/manhunt/pkg/geo"
	"github.com/cbodonnell/manhunt/pkg/log"
	"github.com/cbodonnell/manhunt/pkg/messages"
	"github.com/google/uuid"
)

func (e *Engine) handleRoomCreate(msg *messages.Inbound, payload messages.Payload) {
	p := payload.(*messages.RoomCreate)

	room, err := e.rooms.CreateRoom(msg.PlayerID, p.Settings)
	if err != nil {
		log.Error("Failed to create room for player %s: %v", msg.PlayerID, err)
		e.fail(msg, err.Error())
		return
	}
	e.leaveCurrentRoom(msg.PlayerID, room.ID)
	room.AddPlayer(types.NewPlayer(msg.PlayerID, p.Nickname, types.RoleHost, e.now().UnixMilli()))
	e.clients.SetRoom(msg.PlayerID, room.ID)
	log.Info("Room %s created by %s (%s)", room.ID, msg.PlayerID, room.Settings.GameMode)

	out := messages.NewSuccess(messages.MessageTypeRoomCreated, messages.RoomCreated{
		RoomID:  room.ID,
		JoinURL: constants.JoinURLPrefix + room.ID,
	})
	out.RoomID = room.ID
	e.reply(msg, out)
	e.broadcaster.BroadcastGameState(room)
}

func (e *Engine) handleRoomJoin(msg *messages.Inbound, payload messages.Payload) {
	p := payload.(*messages.RoomJoin)

	room := e.rooms.GetRoom(msg.RoomID)
	if room == nil {
		e.fail(msg, ErrRoomNotFound.Error())
		return
	}

	if existing, ok := room.GetPlayer(msg.PlayerID); ok {
		// rejoin keeps team, role and thief status
		existing.Nickname = p.Nickname
		e.clients.SetRoom(msg.PlayerID, room.ID)
		e.reconnect(room, existing)
		e.reply(msg, messages.NewSuccess(messages.MessageTypeRoomJoin, messages.RoomJoined{RoomID: room.ID}))
		e.broadcaster.BroadcastGameState(room)
		return
	}

	if room.Status != types.RoomStatusLobby {
		e.fail(msg, reasonGameStarted)
		return
	}
	if len(room.Players) >= room.Settings.MaxPlayers {
		e.fail(msg, reasonRoomFull)
		return
	}

	e.leaveCurrentRoom(msg.PlayerID, room.ID)
	room.AddPlayer(types.NewPlayer(msg.PlayerID, p.Nickname, types.RoleGuest, e.now().UnixMilli()))
	room.Touch(e.now().UnixMilli())
	e.clients.SetRoom(msg.PlayerID, room.ID)
	log.Info("Player %s joined room %s (%d/%d)", msg.PlayerID, room.ID, len(room.Players), room.Settings.MaxPlayers)

	e.reply(msg, messages.NewSuccess(messages.MessageTypeRoomJoin, messages.RoomJoined{RoomID: room.ID}))
	e.broadcaster.BroadcastGameState(room)
}

// leaveCurrentRoom removes playerID from the room they are mapped to, unless it is keep.
func (e *Engine) leaveCurrentRoom(playerID, keep string) {
	current := e.clients.RoomOf(playerID)
	if current == "" || current == keep {
		return
	}
	if _, err := e.RemovePlayer(current, playerID); err != nil && !errors.Is(err, ErrPlayerNotFound) && !errors.Is(err, ErrRoomNotFound) {
		log.Error("Failed to remove player %s from previous room %s: %v", playerID, current, err)
	}
}

func (e *Engine) handleRoomLeave(msg *messages.Inbound, _ messages.Payload) {
	if _, _, ok := e.member(msg); !ok {
		return
	}
	deleted, err := e.RemovePlayer(msg.RoomID, msg.PlayerID)
	if err != nil {
		e.fail(msg, err.Error())
		return
	}
	e.reply(msg, messages.NewSuccess(messages.MessageTypeRoomLeave, messages.RoomLeft{
		RoomID:      msg.RoomID,
		RoomDeleted: deleted,
	}))
}

func (e *Engine) handleRoomSettingsUpdate(msg *messages.Inbound, payload messages.Payload) {
	p := payload.(*messages.RoomSettingsUpdate)

	room, ok := e.host(msg)
	if !ok {
		return
	}
	if room.Status != types.RoomStatusLobby {
		e.fail(msg, reasonLobbyOnly)
		return
	}
	settings := room.Settings.Merge(p.Settings)
	if err := settings.Validate(); err != nil {
		e.fail(msg, err.Error())
		return
	}
	if settings.MaxPlayers < len(room.Players) {
		e.fail(msg, reasonMaxPlayersTooSmall)
		return
	}

	room.Settings = settings
	log.Info("Settings of room %s updated", room.ID)
	e.broadcaster.BroadcastGameState(room)
}

func (e *Engine) handlePlayerReady(msg *messages.Inbound, payload messages.Payload) {
	p := payload.(*messages.PlayerReady)

	room, player, ok := e.member(msg)
	if !ok {
		return
	}
	player.Ready = p.Ready
	e.broadcaster.BroadcastGameState(room)
}

func (e *Engine) handleChatSend(msg *messages.Inbound, payload messages.Payload) {
	p := payload.(*messages.ChatSend)

	room, player, ok := e.member(msg)
	if !ok {
		return
	}
	chat := types.ChatMessage{
		MessageID: uuid.NewString(),
		PlayerID:  player.ID,
		Nickname:  player.Nickname,
		Text:      p.Text,
		Timestamp: e.now().UnixMilli(),
	}
	room.ChatHistory = append(room.ChatHistory, chat)

	out := messages.NewEvent(messages.MessageTypeChatNew, chat)
	out.RoomID = room.ID
	e.broadcaster.BroadcastToRoom(room.ID, out)
}

func (e *Engine) handleBasecampSet(msg *messages.Inbound, payload messages.Payload) {
	p := payload.(*messages.BasecampSet)

	room, ok := e.host(msg)
	if !ok {
		return
	}
	if room.Status != types.RoomStatusLobby {
		e.fail(msg, reasonLobbyOnly)
		return
	}
	point := p.Point()
	room.Basecamp = &types.Basecamp{Lat: point.Lat, Lng: point.Lng, SetAt: e.now().UnixMilli()}
	log.Info("Basecamp of room %s set to %.6f,%.6f", room.ID, point.Lat, point.Lng)
	e.broadcaster.BroadcastGameState(room)
}

func (e *Engine) handleTeamShuffle(msg *messages.Inbound, _ messages.Payload) {
	room, ok := e.host(msg)
	if !ok {
		return
	}
	if err := e.ShuffleTeams(room.ID); err != nil {
		e.fail(msg, err.Error())
	}
}

func (e *Engine) handleGameStart(msg *messages.Inbound, payload messages.Payload) {
	p := payload.(*messages.GameStart)

	room, ok := e.host(msg)
	if !ok {
		return
	}
	var basecamp *geo.Point
	if p.Basecamp != nil {
		point := p.Basecamp.Point()
		basecamp = &point
	}
	if err := e.StartGame(room.ID, basecamp); err != nil {
		log.Warn("Failed to start game in room %s: %v", room.ID, err)
		e.fail(msg, err.Error())
	}
}
