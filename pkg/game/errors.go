package game

import (
	"errors"
	"fmt"
)

// Error strings are sent to clients verbatim.
var (
	ErrRoomNotFound        = errors.New("Room not found")
	ErrPlayerNotFound      = errors.New("Player not found")
	ErrIllegalTransition   = errors.New("illegal transition")
	ErrNotInLobby          = errors.New("Room is not in lobby")
	ErrNotEnoughPlayers    = errors.New("Not enough players")
	ErrTeamsNotAssigned    = errors.New("Teams not assigned")
	ErrBasecampNotSet      = errors.New("Basecamp not set")
	ErrLocationStale       = errors.New("location outdated or missing")
	ErrPoliceLocationStale = fmt.Errorf("Police %w", ErrLocationStale)
	ErrThiefLocationStale  = fmt.Errorf("Thief %w", ErrLocationStale)
)

// TooFarError reports a validated action that failed on distance.
type TooFarError struct {
	// Target is what the distance was measured to, e.g. the thief or the basecamp
	Target   string
	Distance float64
}

func (e *TooFarError) Error() string {
	if e.Target == targetBasecamp {
		return fmt.Sprintf("Not at basecamp: %.1fm", e.Distance)
	}
	return fmt.Sprintf("Too far: %.1fm", e.Distance)
}

const (
	targetThief    = "thief"
	targetBasecamp = "basecamp"
)
