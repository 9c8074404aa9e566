package types

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cbodonnell/manhunt/pkg/game/constants"
	"github.com/cbodonnell/manhunt/pkg/geo"
)

type RoomStatus string

const (
	RoomStatusLobby  RoomStatus = "LOBBY"
	RoomStatusHiding RoomStatus = "HIDING"
	RoomStatusChase  RoomStatus = "CHASE"
	RoomStatusEnd    RoomStatus = "END"
)

type GameMode string

const (
	GameModeBasic GameMode = "BASIC"
	// GameModeBattle shrinks a safe zone around the basecamp during the game
	GameModeBattle GameMode = "BATTLE"
	// GameModeItemFind currently plays like BASIC
	GameModeItemFind GameMode = "ITEM_FIND"
)

var ErrInvalidSettings = errors.New("invalid settings")

type Settings struct {
	MaxPlayers            int      `json:"maxPlayers"`
	GameMode              GameMode `json:"gameMode"`
	HidingSeconds         int      `json:"hidingSeconds"`
	ChaseSeconds          int      `json:"chaseSeconds"`
	ProximityRadiusMeters float64  `json:"proximityRadiusMeters"`
	CaptureRadiusMeters   float64  `json:"captureRadiusMeters"`
	JailRadiusMeters      float64  `json:"jailRadiusMeters"`
}

func DefaultSettings() Settings {
	return Settings{
		MaxPlayers:            constants.DefaultMaxPlayers,
		GameMode:              GameModeBasic,
		HidingSeconds:         constants.DefaultHidingSeconds,
		ChaseSeconds:          constants.DefaultChaseSeconds,
		ProximityRadiusMeters: constants.DefaultProximityRadiusMeters,
		CaptureRadiusMeters:   constants.DefaultCaptureRadiusMeters,
		JailRadiusMeters:      constants.DefaultJailRadiusMeters,
	}
}

// SettingsPatch carries a partial settings update. Nil fields keep their current value.
type SettingsPatch struct {
	MaxPlayers            *int      `json:"maxPlayers,omitempty"`
	GameMode              *GameMode `json:"gameMode,omitempty"`
	HidingSeconds         *int      `json:"hidingSeconds,omitempty"`
	ChaseSeconds          *int      `json:"chaseSeconds,omitempty"`
	ProximityRadiusMeters *float64  `json:"proximityRadiusMeters,omitempty"`
	CaptureRadiusMeters   *float64  `json:"captureRadiusMeters,omitempty"`
	JailRadiusMeters      *float64  `json:"jailRadiusMeters,omitempty"`
}

// Merge returns s with every non-nil field of p applied.
func (s Settings) Merge(p *SettingsPatch) Settings {
	if p == nil {
		return s
	}
	if p.MaxPlayers != nil {
		s.MaxPlayers = *p.MaxPlayers
	}
	if p.GameMode != nil {
		s.GameMode = *p.GameMode
	}
	if p.HidingSeconds != nil {
		s.HidingSeconds = *p.HidingSeconds
	}
	if p.ChaseSeconds != nil {
		s.ChaseSeconds = *p.ChaseSeconds
	}
	if p.ProximityRadiusMeters != nil {
		s.ProximityRadiusMeters = *p.ProximityRadiusMeters
	}
	if p.CaptureRadiusMeters != nil {
		s.CaptureRadiusMeters = *p.CaptureRadiusMeters
	}
	if p.JailRadiusMeters != nil {
		s.JailRadiusMeters = *p.JailRadiusMeters
	}
	return s
}

func (s Settings) Validate() error {
	switch s.GameMode {
	case GameModeBasic, GameModeBattle, GameModeItemFind:
	default:
		return fmt.Errorf("%w: unknown game mode %q", ErrInvalidSettings, s.GameMode)
	}
	if s.MaxPlayers < constants.MinPlayers || s.MaxPlayers > constants.MaxPlayers {
		return fmt.Errorf("%w: maxPlayers must be between %d and %d", ErrInvalidSettings, constants.MinPlayers, constants.MaxPlayers)
	}
	if s.HidingSeconds < constants.MinHidingSeconds || s.HidingSeconds > constants.MaxHidingSeconds {
		return fmt.Errorf("%w: hidingSeconds must be between %d and %d", ErrInvalidSettings, constants.MinHidingSeconds, constants.MaxHidingSeconds)
	}
	if s.ChaseSeconds < constants.MinChaseSeconds || s.ChaseSeconds > constants.MaxChaseSeconds {
		return fmt.Errorf("%w: chaseSeconds must be between %d and %d", ErrInvalidSettings, constants.MinChaseSeconds, constants.MaxChaseSeconds)
	}
	radii := []struct {
		name  string
		value float64
	}{
		{"proximityRadiusMeters", s.ProximityRadiusMeters},
		{"captureRadiusMeters", s.CaptureRadiusMeters},
		{"jailRadiusMeters", s.JailRadiusMeters},
	}
	for _, r := range radii {
		if r.value < constants.MinRadiusMeters || r.value > constants.MaxRadiusMeters {
			return fmt.Errorf("%w: %s must be between %g and %g", ErrInvalidSettings, r.name, constants.MinRadiusMeters, constants.MaxRadiusMeters)
		}
	}
	return nil
}

// TotalSeconds is the hiding plus chase duration.
func (s Settings) TotalSeconds() int {
	return s.HidingSeconds + s.ChaseSeconds
}

type Basecamp struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	SetAt int64   `json:"setAt"`
}

func (b *Basecamp) Point() geo.Point {
	return geo.Point{Lat: b.Lat, Lng: b.Lng}
}

type ChatMessage struct {
	MessageID string `json:"messageId"`
	PlayerID  string `json:"playerId"`
	Nickname  string `json:"nickname"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// Room is a single game session. Rooms are only mutated from the game loop.
type Room struct {
	ID             string
	HostID         string
	Status         RoomStatus
	CreatedAt      int64
	LastActivityAt int64
	// PhaseEndsAt is the deadline of the current phase in milliseconds, nil in LOBBY and END
	PhaseEndsAt *int64
	Settings    Settings
	Basecamp    *Basecamp
	Players     map[string]*Player
	ChatHistory []ChatMessage

	nextJoinSeq uint64
}

func NewRoom(id, hostID string, settings Settings, now int64) *Room {
	return &Room{
		ID:             id,
		HostID:         hostID,
		Status:         RoomStatusLobby,
		CreatedAt:      now,
		LastActivityAt: now,
		Settings:       settings,
		Players:        make(map[string]*Player),
	}
}

// AddPlayer adds p to the room, replacing any player with the same ID.
func (r *Room) AddPlayer(p *Player) {
	r.nextJoinSeq++
	p.joinSeq = r.nextJoinSeq
	r.Players[p.ID] = p
}

func (r *Room) RemovePlayer(id string) bool {
	if _, ok := r.Players[id]; !ok {
		return false
	}
	delete(r.Players, id)
	return true
}

func (r *Room) GetPlayer(id string) (*Player, bool) {
	p, ok := r.Players[id]
	return p, ok
}

// PlayerList returns the players in join order.
func (r *Room) PlayerList() []*Player {
	players := make([]*Player, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		return players[i].joinSeq < players[j].joinSeq
	})
	return players
}

// TeamMembers returns the players of a team in join order.
func (r *Room) TeamMembers(team Team) []*Player {
	var members []*Player
	for _, p := range r.PlayerList() {
		if p.Team == team {
			members = append(members, p)
		}
	}
	return members
}

// Touch records activity on the room for idle cleanup.
func (r *Room) Touch(now int64) {
	if now > r.LastActivityAt {
		r.LastActivityAt = now
	}
}
