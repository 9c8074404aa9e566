package messages

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/cbodonnell/manhunt/pkg/game/constants"
	"github.com/cbodonnell/manhunt/pkg/game/types"
	"github.com/cbodonnell/manhunt/pkg/geo"
)

var (
	ErrUnknownType     = errors.New("unknown message type")
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrMissingPlayerID = errors.New("missing playerId")
)

// Payload is implemented by every typed inbound payload.
type Payload interface {
	Validate() error
}

// Empty is the payload of messages that carry no data.
type Empty struct{}

func (Empty) Validate() error { return nil }

// Coordinates is a lat/lng pair in which both values are required.
type Coordinates struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (c *Coordinates) Validate() error {
	if c.Lat == nil || c.Lng == nil {
		return fmt.Errorf("%w: lat and lng are required", ErrInvalidPayload)
	}
	if !c.Point().Valid() {
		return fmt.Errorf("%w: coordinates out of range", ErrInvalidPayload)
	}
	return nil
}

// Point must only be called after Validate succeeded.
func (c *Coordinates) Point() geo.Point {
	return geo.Point{Lat: *c.Lat, Lng: *c.Lng}
}

type RoomCreate struct {
	Nickname string               `json:"nickname"`
	Settings *types.SettingsPatch `json:"settings,omitempty"`
}

func (p *RoomCreate) Validate() error {
	nickname, err := validateNickname(p.Nickname)
	if err != nil {
		return err
	}
	p.Nickname = nickname
	if err := types.DefaultSettings().Merge(p.Settings).Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

type RoomJoin struct {
	Nickname string `json:"nickname"`
}

func (p *RoomJoin) Validate() error {
	nickname, err := validateNickname(p.Nickname)
	if err != nil {
		return err
	}
	p.Nickname = nickname
	return nil
}

type RoomSettingsUpdate struct {
	Settings *types.SettingsPatch `json:"settings"`
}

func (p *RoomSettingsUpdate) Validate() error {
	if p.Settings == nil {
		return fmt.Errorf("%w: settings are required", ErrInvalidPayload)
	}
	return nil
}

type PlayerReady struct {
	Ready bool `json:"ready"`
}

func (p *PlayerReady) Validate() error { return nil }

type ChatSend struct {
	Text string `json:"text"`
}

func (p *ChatSend) Validate() error {
	p.Text = strings.TrimSpace(p.Text)
	if p.Text == "" {
		return fmt.Errorf("%w: text is required", ErrInvalidPayload)
	}
	if utf8.RuneCountInString(p.Text) > constants.MaxChatLength {
		return fmt.Errorf("%w: text exceeds %d characters", ErrInvalidPayload, constants.MaxChatLength)
	}
	return nil
}

type BasecampSet struct {
	Coordinates
}

type GameStart struct {
	Basecamp *Coordinates `json:"basecamp,omitempty"`
}

func (p *GameStart) Validate() error {
	if p.Basecamp == nil {
		return nil
	}
	return p.Basecamp.Validate()
}

type LocationUpdate struct {
	Coordinates
	Accuracy float64 `json:"accuracy"`
}

func (p *LocationUpdate) Validate() error {
	if err := p.Coordinates.Validate(); err != nil {
		return err
	}
	if p.Accuracy < 0 || math.IsNaN(p.Accuracy) || math.IsInf(p.Accuracy, 0) {
		return fmt.Errorf("%w: accuracy must be a non-negative number", ErrInvalidPayload)
	}
	return nil
}

// ThiefTarget is the payload of capture, jail and release requests.
type ThiefTarget struct {
	ThiefID string `json:"thiefId"`
}

func (p *ThiefTarget) Validate() error {
	if p.ThiefID == "" {
		return fmt.Errorf("%w: thiefId is required", ErrInvalidPayload)
	}
	return nil
}

// SignalBroadcastTarget addresses a signal to every other thief in the room.
const SignalBroadcastTarget = "broadcast"

type WebRTCSignal struct {
	TargetID string          `json:"targetId"`
	Signal   json.RawMessage `json:"signal"`
}

func (p *WebRTCSignal) Validate() error {
	if p.TargetID == "" {
		return fmt.Errorf("%w: targetId is required", ErrInvalidPayload)
	}
	if len(p.Signal) == 0 || string(p.Signal) == "null" {
		return fmt.Errorf("%w: signal is required", ErrInvalidPayload)
	}
	return nil
}

var payloadFactories = map[string]func() Payload{
	MessageTypeRoomCreate:         func() Payload { return &RoomCreate{} },
	MessageTypeRoomJoin:           func() Payload { return &RoomJoin{} },
	MessageTypeRoomLeave:          func() Payload { return &Empty{} },
	MessageTypeRoomSettingsUpdate: func() Payload { return &RoomSettingsUpdate{} },
	MessageTypePlayerReady:        func() Payload { return &PlayerReady{} },
	MessageTypeChatSend:           func() Payload { return &ChatSend{} },
	MessageTypeBasecampSet:        func() Payload { return &BasecampSet{} },
	MessageTypeTeamShuffle:        func() Payload { return &Empty{} },
	MessageTypeGameStart:          func() Payload { return &GameStart{} },
	MessageTypeLocationUpdate:     func() Payload { return &LocationUpdate{} },
	MessageTypeCaptureRequest:     func() Payload { return &ThiefTarget{} },
	MessageTypeJailRequest:        func() Payload { return &ThiefTarget{} },
	MessageTypeReleaseRequest:     func() Payload { return &ThiefTarget{} },
	MessageTypeWebRTCSignal:       func() Payload { return &WebRTCSignal{} },
	MessageTypePTTRequest:         func() Payload { return &Empty{} },
	MessageTypePTTRelease:         func() Payload { return &Empty{} },
}

// KnownType reports whether msgType is an inbound message type.
func KnownType(msgType string) bool {
	_, ok := payloadFactories[msgType]
	return ok
}

// DecodePayload parses and validates the payload of m according to its type.
func (m *Inbound) DecodePayload() (Payload, error) {
	factory, ok := payloadFactories[m.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	payload := factory()
	raw := m.Payload
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return payload, nil
}

func validateNickname(nickname string) (string, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return "", fmt.Errorf("%w: nickname is required", ErrInvalidPayload)
	}
	if utf8.RuneCountInString(nickname) > constants.MaxNicknameLength {
		return "", fmt.Errorf("%w: nickname exceeds %d characters", ErrInvalidPayload, constants.MaxNicknameLength)
	}
	return nickname, nil
}
