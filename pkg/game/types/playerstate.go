package types

import "github.com/cbodonnell/manhunt/pkg/geo"

type Role string

const (
	RoleHost  Role = "HOST"
	RoleGuest Role = "GUEST"
)

// Team is empty until teams are assigned.
type Team string

const (
	TeamNone   Team = ""
	TeamPolice Team = "POLICE"
	TeamThief  Team = "THIEF"
)

type ThiefState string

const (
	ThiefStateFree      ThiefState = "FREE"
	ThiefStateCaptured  ThiefState = "CAPTURED"
	ThiefStateJailed    ThiefState = "JAILED"
	ThiefStateOutOfZone ThiefState = "OUT_OF_ZONE"
)

// ThiefStatus tracks a thief through capture, jailing and elimination.
// CapturedBy and CapturedAt are set while CAPTURED or JAILED; JailedAt only while JAILED.
type ThiefStatus struct {
	State      ThiefState `json:"state"`
	CapturedBy *string    `json:"capturedBy"`
	CapturedAt *int64     `json:"capturedAt"`
	JailedAt   *int64     `json:"jailedAt"`
}

// NewFreeThiefStatus returns a status with no capture linkage.
func NewFreeThiefStatus() *ThiefStatus {
	return &ThiefStatus{State: ThiefStateFree}
}

// Location is the last position reported by a player. UpdatedAt is server time in milliseconds.
type Location struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Accuracy  float64 `json:"accuracy"`
	UpdatedAt int64   `json:"updatedAt"`
}

func (l *Location) Point() geo.Point {
	return geo.Point{Lat: l.Lat, Lng: l.Lng}
}

type Player struct {
	ID          string
	Nickname    string
	Role        Role
	Team        Team
	Ready       bool
	Connected   bool
	Location    *Location
	ThiefStatus *ThiefStatus
	// OutOfZoneAt is set once the player has been eliminated by the battle zone
	OutOfZoneAt *int64
	JoinedAt    int64

	joinSeq uint64
}

func NewPlayer(id, nickname string, role Role, now int64) *Player {
	return &Player{
		ID:        id,
		Nickname:  nickname,
		Role:      role,
		Ready:     role == RoleHost,
		Connected: true,
		JoinedAt:  now,
	}
}

func (p *Player) IsPolice() bool {
	return p.Team == TeamPolice
}

func (p *Player) IsThief() bool {
	return p.Team == TeamThief
}

// ThiefState returns the thief's state, or an empty state for players without one.
func (p *Player) ThiefState() ThiefState {
	if p.ThiefStatus == nil {
		return ""
	}
	return p.ThiefStatus.State
}

func (p *Player) Eliminated() bool {
	return p.OutOfZoneAt != nil
}
