package game

import (
	"github.com/cbodonnell/manhunt/pkg/log"
	"github.com/cbodonnell/manhunt/pkg/messages"
)

func (e *Engine) handleWebRTCSignal(msg *messages.Inbound, payload messages.Payload) {
	if _, _, ok := e.member(msg); !ok {
		return
	}
	e.signaling.RelaySignal(msg.RoomID, msg.PlayerID, payload.(*messages.WebRTCSignal))
}

func (e *Engine) handlePTTRequest(msg *messages.Inbound, _ messages.Payload) {
	if _, _, ok := e.member(msg); !ok {
		return
	}
	if !e.signaling.RequestPTT(msg.RoomID, msg.PlayerID) {
		log.Debug("Push-to-talk denied to %s in room %s", msg.PlayerID, msg.RoomID)
	}
}

func (e *Engine) handlePTTRelease(msg *messages.Inbound, _ messages.Payload) {
	if _, _, ok := e.member(msg); !ok {
		return
	}
	e.signaling.ReleasePTT(msg.RoomID, msg.PlayerID)
}
