package game

import (
	"time"

	"github.com/cbodonnell/manhunt/pkg/game/constants"
	"github.com/cbodonnell/manhunt/pkg/game/types"
	"github.com/cbodonnell/manhunt/pkg/geo"
)

// DistanceValidator checks that gameplay actions happen close enough, using
// locations no older than maxAge.
type DistanceValidator struct {
	maxAge time.Duration
	now    func() time.Time
}

func NewDistanceValidator(maxAge time.Duration, now func() time.Time) *DistanceValidator {
	if maxAge <= 0 {
		maxAge = constants.DefaultMaxLocationAge
	}
	if now == nil {
		now = time.Now
	}
	return &DistanceValidator{maxAge: maxAge, now: now}
}

// ValidateCapture returns the police to thief distance, or an error when either
// location is stale or the distance exceeds radius.
func (v *DistanceValidator) ValidateCapture(police, thief *types.Location, radius float64) (float64, error) {
	if !v.fresh(police) {
		return 0, ErrPoliceLocationStale
	}
	if !v.fresh(thief) {
		return 0, ErrThiefLocationStale
	}
	distance := geo.Distance(police.Point(), thief.Point())
	if distance > radius {
		return distance, &TooFarError{Target: targetThief, Distance: distance}
	}
	return distance, nil
}

// ValidateJail returns the police to basecamp distance, or an error when the
// police location is stale, there is no basecamp or the distance exceeds radius.
func (v *DistanceValidator) ValidateJail(police *types.Location, basecamp *types.Basecamp, radius float64) (float64, error) {
	if !v.fresh(police) {
		return 0, ErrPoliceLocationStale
	}
	if basecamp == nil {
		return 0, ErrBasecampNotSet
	}
	distance := geo.Distance(police.Point(), basecamp.Point())
	if distance > radius {
		return distance, &TooFarError{Target: targetBasecamp, Distance: distance}
	}
	return distance, nil
}

func (v *DistanceValidator) fresh(loc *types.Location) bool {
	if loc == nil {
		return false
	}
	return v.now().UnixMilli()-loc.UpdatedAt <= v.maxAge.Milliseconds()
}

// IsHost reports whether playerID is the host of room.
func IsHost(room *types.Room, playerID string) bool {
	player, ok := room.GetPlayer(playerID)
	return ok && room.HostID == playerID && player.Role == types.RoleHost
}
