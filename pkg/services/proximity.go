package services

import (
	"math"
	"time"

	"github.com/cbodonnell/manhunt/pkg/game/constants"
	"github.com/cbodonnell/manhunt/pkg/game/types"
	"github.com/cbodonnell/manhunt/pkg/geo"
	"github.com/cbodonnell/manhunt/pkg/messages"
	"golang.org/x/time/rate"
)

// ProximityService alerts police when a free thief is within the proximity radius.
type ProximityService struct {
	rooms       RoomSource
	broadcaster *Broadcaster
	cooldown    time.Duration
	now         func() time.Time
	limiters    map[string]map[string]*rate.Limiter
}

type NewProximityServiceOptions struct {
	Rooms       RoomSource
	Broadcaster *Broadcaster
	Cooldown    time.Duration
	Now         func() time.Time
}

func NewProximityService(opts NewProximityServiceOptions) *ProximityService {
	s := &ProximityService{
		rooms:       opts.Rooms,
		broadcaster: opts.Broadcaster,
		cooldown:    opts.Cooldown,
		now:         opts.Now,
		limiters:    make(map[string]map[string]*rate.Limiter),
	}
	if s.cooldown <= 0 {
		s.cooldown = constants.ProximityAlertCooldown
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Sweep checks every live room.
func (s *ProximityService) Sweep() {
	for _, room := range s.rooms.GetAllRooms() {
		s.CheckRoom(room)
	}
}

// CheckRoom alerts each police player whose nearest free thief is within range.
func (s *ProximityService) CheckRoom(room *types.Room) {
	if room.Status != types.RoomStatusChase {
		return
	}

	var thieves []geo.Point
	for _, p := range room.TeamMembers(types.TeamThief) {
		if p.ThiefState() == types.ThiefStateFree && p.Location != nil {
			thieves = append(thieves, p.Location.Point())
		}
	}
	if len(thieves) == 0 {
		return
	}

	for _, police := range room.TeamMembers(types.TeamPolice) {
		if police.Location == nil || police.Eliminated() {
			continue
		}
		nearest := math.Inf(1)
		for _, thief := range thieves {
			if d := geo.Distance(police.Location.Point(), thief); d < nearest {
				nearest = d
			}
		}
		if nearest <= room.Settings.ProximityRadiusMeters {
			s.alert(room.ID, police.ID, nearest)
		}
	}
}

func (s *ProximityService) alert(roomID, policeID string, distance float64) {
	if !s.limiter(roomID, policeID).AllowN(s.now(), 1) {
		return
	}
	msg := messages.NewEvent(messages.MessageTypeProximityNear, messages.ProximityNear{
		Distance: int(math.Round(distance)),
	})
	msg.RoomID = roomID
	msg.PlayerID = policeID
	s.broadcaster.SendToPlayer(policeID, msg)
}

func (s *ProximityService) limiter(roomID, policeID string) *rate.Limiter {
	room := s.limiters[roomID]
	if room == nil {
		room = make(map[string]*rate.Limiter)
		s.limiters[roomID] = room
	}
	l := room[policeID]
	if l == nil {
		l = rate.NewLimiter(rate.Every(s.cooldown), 1)
		room[policeID] = l
	}
	return l
}

// ClearRoom drops the alert cooldowns of roomID.
func (s *ProximityService) ClearRoom(roomID string) {
	delete(s.limiters, roomID)
}

// ForgetPlayer drops the alert cooldown of one police player.
func (s *ProximityService) ForgetPlayer(roomID, playerID string) {
	if room, ok := s.limiters[roomID]; ok {
		delete(room, playerID)
		if len(room) == 0 {
			delete(s.limiters, roomID)
		}
	}
}
