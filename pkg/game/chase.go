package game

import (
	"math"

	"github.com/cbodonnell/manhunt/pkg/game/types"
	"github.com/cbodonnell/manhunt/pkg/log"
	"github.com/cbodonnell/manhunt/pkg/messages"
)

func (e *Engine) handleLocationUpdate(msg *messages.Inbound, payload messages.Payload) {
	p := payload.(*messages.LocationUpdate)

	room, player, ok := e.member(msg)
	if !ok {
		return
	}
	point := p.Point()
	player.Location = &types.Location{
		Lat:       point.Lat,
		Lng:       point.Lng,
		Accuracy:  p.Accuracy,
		UpdatedAt: e.now().UnixMilli(),
	}
	log.Trace("Player %s in room %s moved to %.6f,%.6f", player.ID, room.ID, point.Lat, point.Lng)

	out := messages.NewEvent(messages.MessageTypeLocationUpdate, messages.LocationBroadcast{
		PlayerID: player.ID,
		Location: *player.Location,
	})
	out.RoomID = room.ID
	out.PlayerID = player.ID
	e.broadcaster.BroadcastToRoom(room.ID, out)
}

// chaseAction resolves the police sender and the target thief of a capture, jail
// or release request, answering the sender with the first failed precondition.
func (e *Engine) chaseAction(msg *messages.Inbound, target *messages.ThiefTarget, chaseOnly string) (*types.Room, *types.Player, *types.Player, bool) {
	room := e.rooms.GetRoom(msg.RoomID)
	if room == nil || room.Status != types.RoomStatusChase {
		e.fail(msg, chaseOnly)
		return nil, nil, nil, false
	}
	police, ok := room.GetPlayer(msg.PlayerID)
	if !ok || !police.IsPolice() {
		e.fail(msg, reasonNotPolice)
		return nil, nil, nil, false
	}
	if police.Eliminated() {
		e.fail(msg, reasonOutOfZone)
		return nil, nil, nil, false
	}
	thief, ok := room.GetPlayer(target.ThiefID)
	if !ok || !thief.IsThief() {
		e.fail(msg, reasonInvalidThief)
		return nil, nil, nil, false
	}
	return room, police, thief, true
}

func (e *Engine) handleCaptureRequest(msg *messages.Inbound, payload messages.Payload) {
	room, police, thief, ok := e.chaseAction(msg, payload.(*messages.ThiefTarget), reasonCaptureChaseOnly)
	if !ok {
		return
	}
	if thief.ThiefState() != types.ThiefStateFree {
		e.fail(msg, reasonThiefNotFree)
		return
	}
	distance, err := e.validator.ValidateCapture(police.Location, thief.Location, room.Settings.CaptureRadiusMeters)
	if err != nil {
		e.fail(msg, err.Error())
		return
	}

	now := e.now().UnixMilli()
	by := police.ID
	thief.ThiefStatus = &types.ThiefStatus{
		State:      types.ThiefStateCaptured,
		CapturedBy: &by,
		CapturedAt: &now,
	}
	log.Info("Thief %s captured by %s in room %s at %.1fm", thief.ID, police.ID, room.ID, distance)

	out := messages.NewSuccess(messages.MessageTypeCaptureResult, messages.CaptureResult{
		ThiefID:        thief.ID,
		ThiefNickname:  thief.Nickname,
		PoliceID:       police.ID,
		PoliceNickname: police.Nickname,
		CapturedAt:     now,
		Distance:       int(math.Round(distance)),
	})
	out.RoomID = room.ID
	e.broadcaster.BroadcastToRoom(room.ID, out)
	e.broadcaster.BroadcastGameState(room)
}

func (e *Engine) handleJailRequest(msg *messages.Inbound, payload messages.Payload) {
	room, police, thief, ok := e.chaseAction(msg, payload.(*messages.ThiefTarget), reasonJailChaseOnly)
	if !ok {
		return
	}
	status := thief.ThiefStatus
	if status == nil || status.State != types.ThiefStateCaptured || status.CapturedBy == nil || *status.CapturedBy != police.ID {
		e.fail(msg, reasonThiefNotYours)
		return
	}
	if _, err := e.validator.ValidateJail(police.Location, room.Basecamp, room.Settings.JailRadiusMeters); err != nil {
		e.fail(msg, err.Error())
		return
	}

	now := e.now().UnixMilli()
	status.State = types.ThiefStateJailed
	status.JailedAt = &now
	log.Info("Thief %s jailed by %s in room %s", thief.ID, police.ID, room.ID)

	jailRoster := []messages.RosterEntry{}
	for _, t := range room.TeamMembers(types.TeamThief) {
		if t.ThiefState() == types.ThiefStateJailed {
			jailRoster = append(jailRoster, messages.RosterEntry{PlayerID: t.ID, Nickname: t.Nickname})
		}
	}
	out := messages.NewSuccess(messages.MessageTypeJailResult, messages.JailResult{
		ThiefID:       thief.ID,
		ThiefNickname: thief.Nickname,
		JailedAt:      now,
		JailRoster:    jailRoster,
	})
	out.RoomID = room.ID
	e.broadcaster.BroadcastToRoom(room.ID, out)
	e.broadcaster.BroadcastGameState(room)

	e.CheckWinCondition(room.ID)
}

func (e *Engine) handleReleaseRequest(msg *messages.Inbound, payload messages.Payload) {
	room, police, thief, ok := e.chaseAction(msg, payload.(*messages.ThiefTarget), reasonReleaseChaseOnly)
	if !ok {
		return
	}
	if thief.ThiefState() != types.ThiefStateCaptured {
		e.fail(msg, reasonThiefNotCaptured)
		return
	}

	thief.ThiefStatus = types.NewFreeThiefStatus()
	log.Info("Thief %s released by %s in room %s", thief.ID, police.ID, room.ID)

	out := messages.NewSuccess(messages.MessageTypeReleaseResult, messages.ReleaseResult{
		ThiefID:        thief.ID,
		ThiefNickname:  thief.Nickname,
		PoliceID:       police.ID,
		PoliceNickname: police.Nickname,
	})
	out.RoomID = room.ID
	e.broadcaster.BroadcastToRoom(room.ID, out)
	e.broadcaster.BroadcastGameState(room)
}
