package messages

import (
	"encoding/json"

	"github.com/cbodonnell/manhunt/pkg/game/types"
)

const (
	// MessageBufferSize represents the maximum size of an inbound message
	MessageBufferSize = 16 * 1024
)

// Inbound message types
const (
	MessageTypeRoomCreate         = "room:create"
	MessageTypeRoomJoin           = "room:join"
	MessageTypeRoomLeave          = "room:leave"
	MessageTypeRoomSettingsUpdate = "room:settings:update"
	MessageTypePlayerReady        = "player:ready"
	MessageTypeChatSend           = "chat:send"
	MessageTypeBasecampSet        = "basecamp:set"
	MessageTypeTeamShuffle        = "team:shuffle"
	MessageTypeGameStart          = "game:start"
	MessageTypeLocationUpdate     = "location:update"
	MessageTypeCaptureRequest     = "capture:request"
	MessageTypeJailRequest        = "jail:request"
	MessageTypeReleaseRequest     = "release:request"
	MessageTypeWebRTCSignal       = "webrtc:signal"
	MessageTypePTTRequest         = "ptt:request"
	MessageTypePTTRelease         = "ptt:release"
)

// Outbound message types. room:join, room:leave, webrtc:signal and
// location:update reuse the inbound names.
const (
	MessageTypeRoomCreated   = "room:created"
	MessageTypeGameState     = "game:state"
	MessageTypeTeamAssigned  = "team:assigned"
	MessageTypeCaptureResult = "capture:result"
	MessageTypeJailResult    = "jail:result"
	MessageTypeReleaseResult = "release:result"
	MessageTypeGameEnd       = "game:end"
	MessageTypeChatNew       = "chat:new"
	MessageTypeProximityNear = "proximity:near"
	MessageTypePTTStatus     = "ptt:status"
)

// Inbound is the envelope of every client message.
type Inbound struct {
	Type     string          `json:"type"`
	RoomID   string          `json:"roomId,omitempty"`
	PlayerID string          `json:"playerId"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Outbound is the envelope of every server message.
type Outbound struct {
	Type      string      `json:"type"`
	RoomID    string      `json:"roomId,omitempty"`
	PlayerID  string      `json:"playerId,omitempty"`
	Success   *bool       `json:"success,omitempty"`
	Error     string      `json:"error,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"ts"`
}

// NewSuccess builds a successful result message.
func NewSuccess(msgType string, data interface{}) *Outbound {
	success := true
	return &Outbound{Type: msgType, Success: &success, Data: data}
}

// NewFailure builds a failed result message carrying reason.
func NewFailure(msgType string, reason string) *Outbound {
	success := false
	return &Outbound{Type: msgType, Success: &success, Error: reason}
}

// NewEvent builds a message without a success flag.
func NewEvent(msgType string, data interface{}) *Outbound {
	return &Outbound{Type: msgType, Data: data}
}

type RoomCreated struct {
	RoomID  string `json:"roomId"`
	JoinURL string `json:"joinUrl"`
}

type RoomJoined struct {
	RoomID string `json:"roomId"`
}

type RoomLeft struct {
	RoomID      string `json:"roomId"`
	RoomDeleted bool   `json:"roomDeleted"`
}

type PlayerView struct {
	// ID mirrors PlayerID; mobile clients key player lists by "id" and match events by "playerId"
	ID          string             `json:"id"`
	PlayerID    string             `json:"playerId"`
	Nickname    string             `json:"nickname"`
	Role        types.Role         `json:"role"`
	Team        *types.Team        `json:"team"`
	Ready       bool               `json:"ready"`
	Connected   bool               `json:"connected"`
	ThiefStatus *types.ThiefStatus `json:"thiefStatus"`
	OutOfZoneAt *int64             `json:"outOfZoneAt"`
	Location    *types.Location    `json:"location"`
}

type GameState struct {
	Status      types.RoomStatus `json:"status"`
	PhaseEndsAt *int64           `json:"phaseEndsAt"`
	Basecamp    *types.Basecamp  `json:"basecamp"`
	Settings    types.Settings   `json:"settings"`
	Players     []PlayerView     `json:"players"`
	// ZoneRadiusMeters is the current safe zone radius while a BATTLE game runs
	ZoneRadiusMeters *float64 `json:"zoneRadiusMeters,omitempty"`
}

type RosterEntry struct {
	PlayerID string `json:"playerId"`
	Nickname string `json:"nickname"`
}

type Roster struct {
	Police  []RosterEntry `json:"police"`
	Thieves []RosterEntry `json:"thieves"`
}

type TeamAssigned struct {
	YourTeam types.Team `json:"yourTeam"`
	Roster   Roster     `json:"roster"`
}

type CaptureResult struct {
	ThiefID        string `json:"thiefId"`
	ThiefNickname  string `json:"thiefNickname"`
	PoliceID       string `json:"policeId"`
	PoliceNickname string `json:"policeNickname"`
	CapturedAt     int64  `json:"capturedAt"`
	Distance       int    `json:"distance"`
}

type JailResult struct {
	ThiefID       string        `json:"thiefId"`
	ThiefNickname string        `json:"thiefNickname"`
	JailedAt      int64         `json:"jailedAt"`
	JailRoster    []RosterEntry `json:"jailRoster"`
}

type ReleaseResult struct {
	ThiefID        string `json:"thiefId"`
	ThiefNickname  string `json:"thiefNickname"`
	PoliceID       string `json:"policeId"`
	PoliceNickname string `json:"policeNickname"`
}

type ProximityNear struct {
	Distance int `json:"distance"`
}

type PTTStatus struct {
	ActiveThiefID       *string `json:"activeThiefId"`
	ActiveThiefNickname *string `json:"activeThiefNickname"`
}

type Signal struct {
	Signal json.RawMessage `json:"signal"`
}

type LocationBroadcast struct {
	PlayerID string         `json:"playerId"`
	Location types.Location `json:"location"`
}
