package services

import (
	"github.com/cbodonnell/manhunt/pkg/game/types"
	"github.com/cbodonnell/manhunt/pkg/log"
	"github.com/cbodonnell/manhunt/pkg/messages"
)

// SignalingService relays WebRTC signals between thieves and arbitrates the push-to-talk token.
type SignalingService struct {
	rooms       RoomSource
	broadcaster *Broadcaster
	pttHolders  map[string]string
}

type NewSignalingServiceOptions struct {
	Rooms       RoomSource
	Broadcaster *Broadcaster
}

func NewSignalingService(opts NewSignalingServiceOptions) *SignalingService {
	return &SignalingService{
		rooms:       opts.Rooms,
		broadcaster: opts.Broadcaster,
		pttHolders:  make(map[string]string),
	}
}

// RelaySignal forwards a signal from a thief to another thief, or to every other thief
// when the target is the broadcast target. Anything else is dropped.
func (s *SignalingService) RelaySignal(roomID, fromPlayerID string, signal *messages.WebRTCSignal) {
	room := s.rooms.GetRoom(roomID)
	if room == nil {
		return
	}
	sender, ok := room.GetPlayer(fromPlayerID)
	if !ok || !sender.IsThief() {
		log.Warn("Non-thief %s tried to send a WebRTC signal in room %s", fromPlayerID, roomID)
		return
	}

	relay := func(to string) {
		msg := messages.NewEvent(messages.MessageTypeWebRTCSignal, messages.Signal{Signal: signal.Signal})
		msg.RoomID = roomID
		msg.PlayerID = fromPlayerID
		s.broadcaster.SendToPlayer(to, msg)
	}

	if signal.TargetID == messages.SignalBroadcastTarget {
		for _, thief := range room.TeamMembers(types.TeamThief) {
			if thief.ID != fromPlayerID {
				relay(thief.ID)
			}
		}
		return
	}

	target, ok := room.GetPlayer(signal.TargetID)
	if !ok || !target.IsThief() {
		log.Warn("Dropping WebRTC signal from %s to non-thief %s in room %s", fromPlayerID, signal.TargetID, roomID)
		return
	}
	relay(target.ID)
}

// RequestPTT grants the room's talk token to playerID when it is free or already theirs,
// notifying every thief of the holder. A denied request changes nothing and notifies no one.
func (s *SignalingService) RequestPTT(roomID, playerID string) bool {
	room := s.rooms.GetRoom(roomID)
	if room == nil {
		return false
	}
	player, ok := room.GetPlayer(playerID)
	if !ok || !player.IsThief() {
		log.Warn("Non-thief %s requested push-to-talk in room %s", playerID, roomID)
		return false
	}
	if holder, held := s.pttHolders[roomID]; held && holder != playerID {
		return false
	}

	s.pttHolders[roomID] = playerID
	id, nickname := player.ID, player.Nickname
	s.notifyThieves(room, messages.PTTStatus{ActiveThiefID: &id, ActiveThiefNickname: &nickname})
	return true
}

// ReleasePTT frees the token if playerID holds it. Releasing a token you do not hold is a no-op.
func (s *SignalingService) ReleasePTT(roomID, playerID string) {
	if holder, held := s.pttHolders[roomID]; !held || holder != playerID {
		return
	}
	delete(s.pttHolders, roomID)

	if room := s.rooms.GetRoom(roomID); room != nil {
		s.notifyThieves(room, messages.PTTStatus{})
	}
}

// Holder returns the player holding the talk token of roomID.
func (s *SignalingService) Holder(roomID string) (string, bool) {
	holder, ok := s.pttHolders[roomID]
	return holder, ok
}

// ClearRoom drops the talk token of roomID without notifying anyone.
func (s *SignalingService) ClearRoom(roomID string) {
	delete(s.pttHolders, roomID)
}

func (s *SignalingService) notifyThieves(room *types.Room, status messages.PTTStatus) {
	for _, thief := range room.TeamMembers(types.TeamThief) {
		msg := messages.NewEvent(messages.MessageTypePTTStatus, status)
		msg.RoomID = room.ID
		msg.PlayerID = thief.ID
		s.broadcaster.SendToPlayer(thief.ID, msg)
	}
}
