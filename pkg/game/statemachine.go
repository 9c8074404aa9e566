package game

import (
	"fmt"
	"time"

	"github.com/cbodonnell/manhunt/pkg/game/types"
	"github.com/cbodonnell/manhunt/pkg/log"
)

var transitions = map[types.RoomStatus]types.RoomStatus{
	types.RoomStatusLobby:  types.RoomStatusHiding,
	types.RoomStatusHiding: types.RoomStatusChase,
	types.RoomStatusChase:  types.RoomStatusEnd,
}

// CanTransition reports whether from → to is a legal phase change.
func CanTransition(from, to types.RoomStatus) bool {
	next, ok := transitions[from]
	return ok && next == to
}

// Transition moves room to the next phase and records the phase deadline.
// An illegal pair leaves the room untouched. No timers are armed here.
func Transition(room *types.Room, to types.RoomStatus, now time.Time) error {
	from := room.Status
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrIllegalTransition, from, to)
	}

	room.Status = to
	switch to {
	case types.RoomStatusHiding:
		deadline := now.Add(time.Duration(room.Settings.HidingSeconds) * time.Second).UnixMilli()
		room.PhaseEndsAt = &deadline
	case types.RoomStatusChase:
		deadline := now.Add(time.Duration(room.Settings.ChaseSeconds) * time.Second).UnixMilli()
		room.PhaseEndsAt = &deadline
	default:
		room.PhaseEndsAt = nil
	}

	log.Info("Room %s changed from %s to %s", room.ID, from, to)
	return nil
}
