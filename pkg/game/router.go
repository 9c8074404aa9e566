package game

import (
	"runtime/debug"

	"github.com/cbodonnell/manhunt/pkg/game/types"
	"github.com/cbodonnell/manhunt/pkg/log"
	"github.com/cbodonnell/manhunt/pkg/messages"
)

// Reasons sent back to the requesting player.
const (
	reasonNotInRoom          = "Not in room"
	reasonRoomFull           = "Room is full"
	reasonGameStarted        = "Game already started"
	reasonPermissionDenied   = "Permission denied"
	reasonLobbyOnly          = "Only allowed in LOBBY"
	reasonNotPolice          = "You are not a police"
	reasonOutOfZone          = "You are out of the zone"
	reasonInvalidThief       = "Invalid thief"
	reasonThiefNotFree       = "Thief already captured or jailed"
	reasonThiefNotYours      = "Thief not captured by you"
	reasonThiefNotCaptured   = "Thief is not captured"
	reasonCaptureChaseOnly   = "Capture allowed only during CHASE phase"
	reasonJailChaseOnly      = "Jail allowed only during CHASE phase"
	reasonReleaseChaseOnly   = "Release allowed only during CHASE phase"
	reasonMaxPlayersTooSmall = "maxPlayers is below the current player count"
)

type handlerFunc func(msg *messages.Inbound, payload messages.Payload)

func (e *Engine) handler(msgType string) handlerFunc {
	switch msgType {
	case messages.MessageTypeRoomCreate:
		return e.handleRoomCreate
	case messages.MessageTypeRoomJoin:
		return e.handleRoomJoin
	case messages.MessageTypeRoomLeave:
		return e.handleRoomLeave
	case messages.MessageTypeRoomSettingsUpdate:
		return e.handleRoomSettingsUpdate
	case messages.MessageTypePlayerReady:
		return e.handlePlayerReady
	case messages.MessageTypeChatSend:
		return e.handleChatSend
	case messages.MessageTypeBasecampSet:
		return e.handleBasecampSet
	case messages.MessageTypeTeamShuffle:
		return e.handleTeamShuffle
	case messages.MessageTypeGameStart:
		return e.handleGameStart
	case messages.MessageTypeLocationUpdate:
		return e.handleLocationUpdate
	case messages.MessageTypeCaptureRequest:
		return e.handleCaptureRequest
	case messages.MessageTypeJailRequest:
		return e.handleJailRequest
	case messages.MessageTypeReleaseRequest:
		return e.handleReleaseRequest
	case messages.MessageTypeWebRTCSignal:
		return e.handleWebRTCSignal
	case messages.MessageTypePTTRequest:
		return e.handlePTTRequest
	case messages.MessageTypePTTRelease:
		return e.handlePTTRelease
	default:
		return nil
	}
}

// HandleMessage routes one inbound message. Every message is handled in isolation:
// a panic is logged and the message has no further effect.
func (e *Engine) HandleMessage(msg *messages.Inbound) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic handling %s from player %s: %v\n%s", msg.Type, msg.PlayerID, r, debug.Stack())
		}
	}()

	if msg.PlayerID == "" {
		log.Warn("Dropping %s message without playerId", msg.Type)
		return
	}
	handle := e.handler(msg.Type)
	if handle == nil {
		log.Warn("Unknown message type %s from player %s", msg.Type, msg.PlayerID)
		return
	}
	log.Trace("Received %s from player %s in room %s", msg.Type, msg.PlayerID, msg.RoomID)

	payload, err := msg.DecodePayload()
	if err != nil {
		log.Warn("Invalid %s payload from player %s: %v", msg.Type, msg.PlayerID, err)
		e.fail(msg, err.Error())
		return
	}

	e.touch(msg)
	handle(msg, payload)
}

// touch records activity for a member of the addressed room, restores their
// broadcast mapping and brings them back if they were disconnected.
func (e *Engine) touch(msg *messages.Inbound) {
	room := e.rooms.GetRoom(msg.RoomID)
	if room == nil {
		return
	}
	player, ok := room.GetPlayer(msg.PlayerID)
	if !ok {
		return
	}
	room.Touch(e.now().UnixMilli())
	if e.clients.RoomOf(player.ID) != room.ID {
		e.clients.SetRoom(player.ID, room.ID)
	}
	e.reconnect(room, player)
}

// member resolves the room and player of msg, answering the sender on failure.
func (e *Engine) member(msg *messages.Inbound) (*types.Room, *types.Player, bool) {
	room := e.rooms.GetRoom(msg.RoomID)
	if room == nil {
		e.fail(msg, ErrRoomNotFound.Error())
		return nil, nil, false
	}
	player, ok := room.GetPlayer(msg.PlayerID)
	if !ok {
		e.fail(msg, reasonNotInRoom)
		return nil, nil, false
	}
	return room, player, true
}

// host is member plus the host check.
func (e *Engine) host(msg *messages.Inbound) (*types.Room, bool) {
	room, _, ok := e.member(msg)
	if !ok {
		return nil, false
	}
	if !IsHost(room, msg.PlayerID) {
		e.fail(msg, reasonPermissionDenied)
		return nil, false
	}
	return room, true
}

func (e *Engine) reply(msg *messages.Inbound, out *messages.Outbound) {
	if out.RoomID == "" {
		out.RoomID = msg.RoomID
	}
	out.PlayerID = msg.PlayerID
	e.broadcaster.SendToPlayer(msg.PlayerID, out)
}

func (e *Engine) fail(msg *messages.Inbound, reason string) {
	e.reply(msg, messages.NewFailure(resultType(msg.Type), reason))
}

// resultType is the outbound type answering an inbound request.
func resultType(inbound string) string {
	switch inbound {
	case messages.MessageTypeRoomCreate:
		return messages.MessageTypeRoomCreated
	case messages.MessageTypeCaptureRequest:
		return messages.MessageTypeCaptureResult
	case messages.MessageTypeJailRequest:
		return messages.MessageTypeJailResult
	case messages.MessageTypeReleaseRequest:
		return messages.MessageTypeReleaseResult
	default:
		return inbound
	}
}
