package game

import (
	"fmt"
	"time"

	"github.com/cbodonnell/manhunt/pkg/game/constants"
	"github.com/cbodonnell/manhunt/pkg/game/types"
	"github.com/cbodonnell/manhunt/pkg/geo"
	"github.com/cbodonnell/manhunt/pkg/log"
	"github.com/cbodonnell/manhunt/pkg/network"
	"github.com/cbodonnell/manhunt/pkg/rooms"
	"github.com/cbodonnell/manhunt/pkg/services"
)

// Engine owns every room and runs the game on top of them. It is not safe for
// concurrent use: all calls must come from the game loop.
type Engine struct {
	rooms       *rooms.Manager
	clients     *network.ClientManager
	broadcaster *services.Broadcaster
	battleZone  *services.BattleZoneService
	proximity   *services.ProximityService
	signaling   *services.SignalingService
	teams       *TeamAssigner
	validator   *DistanceValidator
	scheduler   Scheduler

	disconnectGrace time.Duration
	roomMaxIdle     time.Duration
	now             func() time.Time
}

// NewEngineOptions contains options for creating a new Engine.
type NewEngineOptions struct {
	Rooms           *rooms.Manager
	ClientManager   *network.ClientManager
	Scheduler       Scheduler
	Shuffle         ShuffleFunc
	MaxLocationAge  time.Duration
	DisconnectGrace time.Duration
	RoomMaxIdle     time.Duration
	Now             func() time.Time
}

func NewEngine(opts NewEngineOptions) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	roomManager := opts.Rooms
	if roomManager == nil {
		roomManager = rooms.NewManager(rooms.NewManagerOptions{Now: now})
	}

	broadcaster := services.NewBroadcaster(services.NewBroadcasterOptions{
		Connections: opts.ClientManager,
		Now:         now,
	})

	e := &Engine{
		rooms:       roomManager,
		clients:     opts.ClientManager,
		broadcaster: broadcaster,
		battleZone: services.NewBattleZoneService(services.NewBattleZoneServiceOptions{
			Rooms:       roomManager,
			Broadcaster: broadcaster,
			Grace:       constants.OutOfZoneGrace,
			Now:         now,
		}),
		proximity: services.NewProximityService(services.NewProximityServiceOptions{
			Rooms:       roomManager,
			Broadcaster: broadcaster,
			Cooldown:    constants.ProximityAlertCooldown,
			Now:         now,
		}),
		signaling: services.NewSignalingService(services.NewSignalingServiceOptions{
			Rooms:       roomManager,
			Broadcaster: broadcaster,
		}),
		teams:           NewTeamAssigner(opts.Shuffle),
		validator:       NewDistanceValidator(opts.MaxLocationAge, now),
		scheduler:       opts.Scheduler,
		disconnectGrace: opts.DisconnectGrace,
		roomMaxIdle:     opts.RoomMaxIdle,
		now:             now,
	}
	if e.disconnectGrace <= 0 {
		e.disconnectGrace = time.Minute
	}
	if e.roomMaxIdle <= 0 {
		e.roomMaxIdle = 10 * time.Minute
	}
	return e
}

// ShuffleTeams assigns every player of a LOBBY room to a team and resets thieves to FREE.
func (e *Engine) ShuffleTeams(roomID string) error {
	room := e.rooms.GetRoom(roomID)
	if room == nil {
		return ErrRoomNotFound
	}
	if room.Status != types.RoomStatusLobby {
		return fmt.Errorf("%w: cannot shuffle teams", ErrNotInLobby)
	}

	police, thieves := e.teams.Assign(room.PlayerList())
	for _, p := range police {
		p.Team = types.TeamPolice
		p.ThiefStatus = nil
		p.OutOfZoneAt = nil
	}
	for _, p := range thieves {
		p.Team = types.TeamThief
		p.ThiefStatus = types.NewFreeThiefStatus()
		p.OutOfZoneAt = nil
	}

	e.broadcaster.BroadcastTeamAssignment(room)
	e.broadcaster.BroadcastGameState(room)
	log.Info("Teams shuffled in room %s: %d police, %d thieves", roomID, len(police), len(thieves))
	return nil
}

// StartGame moves a LOBBY room into HIDING and arms the hiding timer.
// A basecamp passed here replaces the one set in the lobby.
func (e *Engine) StartGame(roomID string, basecamp *geo.Point) error {
	room := e.rooms.GetRoom(roomID)
	if room == nil {
		return ErrRoomNotFound
	}
	if room.Status != types.RoomStatusLobby {
		return fmt.Errorf("%w: game already started", ErrNotInLobby)
	}

	if basecamp == nil && room.Basecamp == nil {
		return ErrBasecampNotSet
	}
	if len(room.Players) < constants.MinPlayersToStart {
		return ErrNotEnoughPlayers
	}
	for _, p := range room.Players {
		if p.Team == types.TeamNone {
			return ErrTeamsNotAssigned
		}
	}

	now := e.now()
	previous := room.Basecamp
	if basecamp != nil {
		room.Basecamp = &types.Basecamp{Lat: basecamp.Lat, Lng: basecamp.Lng, SetAt: now.UnixMilli()}
	}
	if err := Transition(room, types.RoomStatusHiding, now); err != nil {
		room.Basecamp = previous
		return err
	}
	if basecamp != nil {
		log.Info("Basecamp of room %s set from game start to %.6f,%.6f", roomID, basecamp.Lat, basecamp.Lng)
	}
	e.battleZone.ClearRoom(roomID)
	e.broadcaster.BroadcastGameState(room)

	e.scheduler.Schedule(hidingKey(roomID), time.Duration(room.Settings.HidingSeconds)*time.Second, func() {
		e.endHiding(roomID)
	})
	log.Info("Game started in room %s", roomID)
	return nil
}

func (e *Engine) endHiding(roomID string) {
	room := e.rooms.GetRoom(roomID)
	if room == nil || room.Status != types.RoomStatusHiding {
		return
	}
	if err := Transition(room, types.RoomStatusChase, e.now()); err != nil {
		log.Error("Failed to start chase in room %s: %v", roomID, err)
		return
	}
	e.broadcaster.BroadcastGameState(room)

	e.scheduler.Schedule(chaseKey(roomID), time.Duration(room.Settings.ChaseSeconds)*time.Second, func() {
		e.endChase(roomID)
	})
	log.Info("Chase started in room %s", roomID)
}

func (e *Engine) endChase(roomID string) {
	room := e.rooms.GetRoom(roomID)
	if room == nil || room.Status != types.RoomStatusChase {
		return
	}
	e.endGame(room, e.result(room))
}

// CheckWinCondition ends a CHASE room early once no thief is left to catch.
func (e *Engine) CheckWinCondition(roomID string) {
	room := e.rooms.GetRoom(roomID)
	if room == nil || room.Status != types.RoomStatusChase {
		return
	}
	if !allThievesCaught(room) {
		return
	}
	e.endGame(room, e.result(room))
}

// result settles a room without thieves as a police win.
func (e *Engine) result(room *types.Room) *types.GameResult {
	if len(room.TeamMembers(types.TeamThief)) == 0 {
		return &types.GameResult{
			Winner: types.TeamPolice,
			Reason: ReasonAllThievesCaptured,
			Stats:  buildStats(room, nil),
		}
	}
	return EvaluateWin(room)
}

func (e *Engine) endGame(room *types.Room, result *types.GameResult) {
	if err := Transition(room, types.RoomStatusEnd, e.now()); err != nil {
		log.Error("Failed to end game in room %s: %v", room.ID, err)
		return
	}
	e.scheduler.Cancel(hidingKey(room.ID))
	e.scheduler.Cancel(chaseKey(room.ID))
	e.battleZone.ClearRoom(room.ID)
	e.proximity.ClearRoom(room.ID)

	e.broadcaster.BroadcastGameEnd(room, result)
	e.broadcaster.BroadcastGameState(room)
	log.Info("Game ended in room %s: %s win (%s)", room.ID, result.Winner, result.Reason)
}

// Sweep runs the periodic proximity and battle zone checks over every room.
// Only rooms that lost a player to the zone are checked for an early win.
func (e *Engine) Sweep() {
	e.proximity.Sweep()
	for _, roomID := range e.battleZone.Sweep() {
		e.CheckWinCondition(roomID)
	}
}

// RemovePlayer takes playerID out of the room as a leave. The host role moves to the
// earliest joined remaining player and an empty room is deleted, which is reported.
func (e *Engine) RemovePlayer(roomID, playerID string) (bool, error) {
	room := e.rooms.GetRoom(roomID)
	if room == nil {
		return false, ErrRoomNotFound
	}
	if !room.RemovePlayer(playerID) {
		return false, ErrPlayerNotFound
	}

	e.scheduler.Cancel(disconnectKey(roomID, playerID))
	e.battleZone.ForgetPlayer(roomID, playerID)
	e.proximity.ForgetPlayer(roomID, playerID)
	if e.clients.RoomOf(playerID) == roomID {
		e.clients.SetRoom(playerID, "")
	}
	log.Info("Player %s left room %s", playerID, roomID)

	if len(room.Players) == 0 {
		e.DeleteRoom(roomID)
		return true, nil
	}

	e.signaling.ReleasePTT(roomID, playerID)
	if room.HostID == playerID {
		next := room.PlayerList()[0]
		next.Role = types.RoleHost
		room.HostID = next.ID
		log.Info("Host of room %s reassigned to %s", roomID, next.ID)
	}

	e.broadcaster.BroadcastGameState(room)
	e.CheckWinCondition(roomID)
	return false, nil
}

// DeleteRoom tears a room down along with its timers and per-room service state.
func (e *Engine) DeleteRoom(roomID string) bool {
	e.scheduler.CancelPrefix(roomKeyPrefix(roomID))
	e.battleZone.ClearRoom(roomID)
	e.proximity.ClearRoom(roomID)
	e.signaling.ClearRoom(roomID)
	e.clients.ClearRoom(roomID)
	deleted := e.rooms.DeleteRoom(roomID)
	if deleted {
		log.Info("Room %s deleted", roomID)
	}
	return deleted
}

// HandleDisconnect marks a player as disconnected and arms the timer that removes
// them unless they come back first.
func (e *Engine) HandleDisconnect(playerID, roomID string) {
	room := e.rooms.GetRoom(roomID)
	if room == nil {
		return
	}
	player, ok := room.GetPlayer(playerID)
	if !ok || !player.Connected {
		return
	}

	player.Connected = false
	e.signaling.ReleasePTT(roomID, playerID)
	e.broadcaster.BroadcastGameState(room)

	e.scheduler.Schedule(disconnectKey(roomID, playerID), e.disconnectGrace, func() {
		e.expireDisconnect(roomID, playerID)
	})
	log.Info("Player %s disconnected from room %s", playerID, roomID)
}

func (e *Engine) expireDisconnect(roomID, playerID string) {
	room := e.rooms.GetRoom(roomID)
	if room == nil {
		return
	}
	player, ok := room.GetPlayer(playerID)
	if !ok || player.Connected {
		return
	}
	log.Info("Player %s did not reconnect to room %s", playerID, roomID)
	if _, err := e.RemovePlayer(roomID, playerID); err != nil {
		log.Error("Failed to remove disconnected player %s from room %s: %v", playerID, roomID, err)
	}
}

// reconnect restores a disconnected player and cancels their removal.
func (e *Engine) reconnect(room *types.Room, player *types.Player) {
	if player.Connected {
		return
	}
	player.Connected = true
	e.scheduler.Cancel(disconnectKey(room.ID, player.ID))
	e.broadcaster.BroadcastGameState(room)
	log.Info("Player %s reconnected to room %s", player.ID, room.ID)
}

// CleanupIdleRooms deletes empty rooms and rooms without activity for longer than the idle limit.
func (e *Engine) CleanupIdleRooms() int {
	cutoff := e.now().Add(-e.roomMaxIdle).UnixMilli()
	deleted := 0
	for _, room := range e.rooms.GetAllRooms() {
		if len(room.Players) > 0 && room.LastActivityAt >= cutoff {
			continue
		}
		if e.DeleteRoom(room.ID) {
			deleted++
		}
	}
	if deleted > 0 {
		log.Info("Cleaned up %d idle rooms", deleted)
	}
	return deleted
}

// RoomSummary is the public view of a room.
type RoomSummary struct {
	RoomID     string           `json:"roomId"`
	Status     types.RoomStatus `json:"status"`
	GameMode   types.GameMode   `json:"gameMode"`
	Players    int              `json:"players"`
	MaxPlayers int              `json:"maxPlayers"`
	CreatedAt  int64            `json:"createdAt"`
}

// RoomSummaries lists every live room, oldest first.
func (e *Engine) RoomSummaries() []RoomSummary {
	all := e.rooms.GetAllRooms()
	summaries := make([]RoomSummary, 0, len(all))
	for _, room := range all {
		summaries = append(summaries, summarize(room))
	}
	return summaries
}

// RoomSummary returns the summary of one room.
func (e *Engine) RoomSummary(roomID string) (RoomSummary, bool) {
	room := e.rooms.GetRoom(roomID)
	if room == nil {
		return RoomSummary{}, false
	}
	return summarize(room), true
}

func summarize(room *types.Room) RoomSummary {
	return RoomSummary{
		RoomID:     room.ID,
		Status:     room.Status,
		GameMode:   room.Settings.GameMode,
		Players:    len(room.Players),
		MaxPlayers: room.Settings.MaxPlayers,
		CreatedAt:  room.CreatedAt,
	}
}
