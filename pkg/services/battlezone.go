package services

import (
	"math"
	"time"

	"github.com/cbodonnell/manhunt/pkg/game/constants"
	"github.com/cbodonnell/manhunt/pkg/game/types"
	"github.com/cbodonnell/manhunt/pkg/geo"
	"github.com/cbodonnell/manhunt/pkg/log"
)

// RadiusAt returns the safe zone radius after elapsed of total milliseconds of game time.
// The zone holds its initial radius for the first 40% and then shrinks linearly to the minimum.
func RadiusAt(elapsed, total int64) float64 {
	initial := constants.BattleZoneInitialRadiusMeters
	minimum := constants.BattleZoneMinRadiusMeters
	if elapsed <= 0 {
		return initial
	}
	if elapsed >= total {
		return minimum
	}
	shrinkStart := float64(total) * constants.BattleZoneShrinkStartRatio
	if float64(elapsed) < shrinkStart {
		return initial
	}
	progress := (float64(elapsed) - shrinkStart) / (float64(total) - shrinkStart)
	return math.Round(initial - (initial-minimum)*progress)
}

// ZoneRadius returns the current safe zone radius of room at now (milliseconds).
// It reports false when the room has no running phase.
func ZoneRadius(room *types.Room, now int64) (float64, bool) {
	if room.PhaseEndsAt == nil {
		return 0, false
	}
	total := int64(room.Settings.TotalSeconds()) * 1000
	if total <= 0 {
		return 0, false
	}
	if room.Status == types.RoomStatusHiding {
		return constants.BattleZoneInitialRadiusMeters, true
	}
	// the deadline of CHASE is start + hiding + chase, so the start falls out of it
	start := *room.PhaseEndsAt - total
	return RadiusAt(now-start, total), true
}

// BattleZoneService eliminates players who stay outside the shrinking safe zone.
type BattleZoneService struct {
	rooms        RoomSource
	broadcaster  *Broadcaster
	grace        time.Duration
	now          func() time.Time
	outsideSince map[string]map[string]int64
}

type NewBattleZoneServiceOptions struct {
	Rooms       RoomSource
	Broadcaster *Broadcaster
	Grace       time.Duration
	Now         func() time.Time
}

func NewBattleZoneService(opts NewBattleZoneServiceOptions) *BattleZoneService {
	s := &BattleZoneService{
		rooms:        opts.Rooms,
		broadcaster:  opts.Broadcaster,
		grace:        opts.Grace,
		now:          opts.Now,
		outsideSince: make(map[string]map[string]int64),
	}
	if s.grace <= 0 {
		s.grace = constants.OutOfZoneGrace
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Sweep checks every live room and returns the IDs of rooms where a player was eliminated.
func (s *BattleZoneService) Sweep() []string {
	var changed []string
	for _, room := range s.rooms.GetAllRooms() {
		if s.CheckRoom(room) > 0 {
			changed = append(changed, room.ID)
		}
	}
	return changed
}

// CheckRoom tracks players outside the zone and eliminates those past the grace window.
// It returns the number of players eliminated.
func (s *BattleZoneService) CheckRoom(room *types.Room) int {
	if room.Settings.GameMode != types.GameModeBattle || room.Basecamp == nil {
		return 0
	}
	if room.Status != types.RoomStatusHiding && room.Status != types.RoomStatusChase {
		return 0
	}
	now := s.now().UnixMilli()
	radius, ok := ZoneRadius(room, now)
	if !ok {
		return 0
	}

	tracking := s.outsideSince[room.ID]
	if tracking == nil {
		tracking = make(map[string]int64)
		s.outsideSince[room.ID] = tracking
	}
	center := room.Basecamp.Point()
	grace := s.grace.Milliseconds()
	eliminated := 0

	for _, p := range room.PlayerList() {
		if !eliminable(p) {
			delete(tracking, p.ID)
			continue
		}
		if p.Location == nil {
			continue
		}
		if geo.Distance(p.Location.Point(), center) <= radius {
			delete(tracking, p.ID)
			continue
		}
		since, ok := tracking[p.ID]
		if !ok {
			tracking[p.ID] = now
			log.Debug("Player %s left the zone in room %s", p.ID, room.ID)
			continue
		}
		if now-since < grace {
			continue
		}
		delete(tracking, p.ID)
		s.eliminate(room, p, now)
		s.broadcaster.BroadcastGameState(room)
		eliminated++
	}

	if len(tracking) == 0 {
		delete(s.outsideSince, room.ID)
	}
	return eliminated
}

func (s *BattleZoneService) eliminate(room *types.Room, p *types.Player, now int64) {
	at := now
	p.OutOfZoneAt = &at
	if p.IsThief() {
		p.ThiefStatus = &types.ThiefStatus{State: types.ThiefStateOutOfZone}
	}
	log.Info("Player %s (%s) eliminated outside the zone in room %s", p.ID, p.Team, room.ID)
}

// ClearRoom discards all tracking for roomID.
func (s *BattleZoneService) ClearRoom(roomID string) {
	delete(s.outsideSince, roomID)
}

// ForgetPlayer discards tracking for one player of roomID.
func (s *BattleZoneService) ForgetPlayer(roomID, playerID string) {
	if tracking, ok := s.outsideSince[roomID]; ok {
		delete(tracking, playerID)
		if len(tracking) == 0 {
			delete(s.outsideSince, roomID)
		}
	}
}

// Tracked returns the number of rooms with pending out of zone players.
func (s *BattleZoneService) Tracked() int {
	return len(s.outsideSince)
}

func eliminable(p *types.Player) bool {
	if p.Eliminated() {
		return false
	}
	switch p.Team {
	case types.TeamPolice:
		return true
	case types.TeamThief:
		state := p.ThiefState()
		return state == types.ThiefStateFree || state == types.ThiefStateCaptured
	default:
		return false
	}
}
