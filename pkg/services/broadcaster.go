package services

import (
	"time"

	"github.com/cbodonnell/manhunt/pkg/game/types"
	"github.com/cbodonnell/manhunt/pkg/log"
	"github.com/cbodonnell/manhunt/pkg/messages"
	"github.com/cbodonnell/manhunt/pkg/network"
)

// ConnectionRegistry resolves players and rooms to live connections.
type ConnectionRegistry interface {
	GetConn(playerID string) (network.Conn, bool)
	GetClientsInRoom(roomID string) []*network.Client
}

// RoomSource gives read access to live rooms.
type RoomSource interface {
	GetRoom(roomID string) *types.Room
	GetAllRooms() []*types.Room
}

// Broadcaster fans outbound messages out to players and rooms.
// A failed delivery is logged and never stops the remaining recipients.
type Broadcaster struct {
	connections ConnectionRegistry
	now         func() time.Time
}

type NewBroadcasterOptions struct {
	Connections ConnectionRegistry
	Now         func() time.Time
}

func NewBroadcaster(opts NewBroadcasterOptions) *Broadcaster {
	b := &Broadcaster{
		connections: opts.Connections,
		now:         opts.Now,
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

// SendToPlayer delivers msg to a single player. Players without a connection are skipped silently.
func (b *Broadcaster) SendToPlayer(playerID string, msg *messages.Outbound) {
	conn, ok := b.connections.GetConn(playerID)
	if !ok {
		log.Trace("Player %s is not connected, dropping %s", playerID, msg.Type)
		return
	}
	payload, err := b.serialize(msg)
	if err != nil {
		log.Error("Failed to serialize %s for player %s: %v", msg.Type, playerID, err)
		return
	}
	if err := conn.Send(payload); err != nil {
		log.Error("Failed to send %s to player %s: %v", msg.Type, playerID, err)
	}
}

// BroadcastToRoom delivers msg to every player mapped to roomID.
func (b *Broadcaster) BroadcastToRoom(roomID string, msg *messages.Outbound) {
	if msg.RoomID == "" {
		msg.RoomID = roomID
	}
	payload, err := b.serialize(msg)
	if err != nil {
		log.Error("Failed to serialize %s for room %s: %v", msg.Type, roomID, err)
		return
	}

	clients := b.connections.GetClientsInRoom(roomID)
	for _, client := range clients {
		if err := client.Conn.Send(payload); err != nil {
			log.Error("Failed to send %s to player %s in room %s: %v", msg.Type, client.PlayerID, roomID, err)
			continue
		}
	}
	log.Trace("Broadcast %s to %d players in room %s", msg.Type, len(clients), roomID)
}

// BroadcastGameState sends the full room snapshot to the room.
func (b *Broadcaster) BroadcastGameState(room *types.Room) {
	msg := messages.NewEvent(messages.MessageTypeGameState, b.GameStateSnapshot(room))
	msg.RoomID = room.ID
	b.BroadcastToRoom(room.ID, msg)
}

// GameStateSnapshot serializes the room as clients see it.
func (b *Broadcaster) GameStateSnapshot(room *types.Room) messages.GameState {
	state := messages.GameState{
		Status:      room.Status,
		PhaseEndsAt: room.PhaseEndsAt,
		Basecamp:    room.Basecamp,
		Settings:    room.Settings,
		Players:     make([]messages.PlayerView, 0, len(room.Players)),
	}
	for _, p := range room.PlayerList() {
		view := messages.PlayerView{
			ID:          p.ID,
			PlayerID:    p.ID,
			Nickname:    p.Nickname,
			Role:        p.Role,
			Ready:       p.Ready,
			Connected:   p.Connected,
			ThiefStatus: p.ThiefStatus,
			OutOfZoneAt: p.OutOfZoneAt,
			Location:    p.Location,
		}
		if p.Team != types.TeamNone {
			team := p.Team
			view.Team = &team
		}
		state.Players = append(state.Players, view)
	}
	if room.Settings.GameMode == types.GameModeBattle {
		if radius, ok := ZoneRadius(room, b.now().UnixMilli()); ok {
			state.ZoneRadiusMeters = &radius
		}
	}
	return state
}

// BroadcastTeamAssignment privately tells each player their team along with both rosters.
func (b *Broadcaster) BroadcastTeamAssignment(room *types.Room) {
	roster := messages.Roster{
		Police:  rosterOf(room.TeamMembers(types.TeamPolice)),
		Thieves: rosterOf(room.TeamMembers(types.TeamThief)),
	}
	for _, p := range room.PlayerList() {
		msg := messages.NewEvent(messages.MessageTypeTeamAssigned, messages.TeamAssigned{
			YourTeam: p.Team,
			Roster:   roster,
		})
		msg.RoomID = room.ID
		msg.PlayerID = p.ID
		b.SendToPlayer(p.ID, msg)
	}
}

// BroadcastGameEnd announces the result to the room.
func (b *Broadcaster) BroadcastGameEnd(room *types.Room, result *types.GameResult) {
	msg := messages.NewEvent(messages.MessageTypeGameEnd, result)
	msg.RoomID = room.ID
	b.BroadcastToRoom(room.ID, msg)
}

func (b *Broadcaster) serialize(msg *messages.Outbound) ([]byte, error) {
	if msg.Timestamp == 0 {
		msg.Timestamp = b.now().UnixMilli()
	}
	return messages.SerializeOutbound(msg)
}

func rosterOf(players []*types.Player) []messages.RosterEntry {
	entries := make([]messages.RosterEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, messages.RosterEntry{PlayerID: p.ID, Nickname: p.Nickname})
	}
	return entries
}
