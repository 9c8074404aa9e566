package constants

import "time"

const (

	// DefaultMaxPlayers is the room capacity when none is configured
	DefaultMaxPlayers int = 20
	// DefaultHidingSeconds is the length of the hiding phase
	DefaultHidingSeconds int = 60
	// DefaultChaseSeconds is the length of the chase phase
	DefaultChaseSeconds int = 300
	// DefaultProximityRadiusMeters is the distance at which police are alerted to a free thief
	DefaultProximityRadiusMeters float64 = 30
	// DefaultCaptureRadiusMeters is the maximum police to thief distance for a capture
	DefaultCaptureRadiusMeters float64 = 10
	// DefaultJailRadiusMeters is the maximum police to basecamp distance for a jailing
	DefaultJailRadiusMeters float64 = 15

	// Settings bounds
	MinPlayers       int     = 2
	MaxPlayers       int     = 50
	MinHidingSeconds int     = 10
	MaxHidingSeconds int     = 1800
	MinChaseSeconds  int     = 30
	MaxChaseSeconds  int     = 7200
	MinRadiusMeters  float64 = 1
	MaxRadiusMeters  float64 = 1000

	// MinPlayersToStart is the smallest roster a game can start with
	MinPlayersToStart int = 2

	// MaxNicknameLength is the maximum number of characters in a nickname
	MaxNicknameLength int = 20
	// MaxChatLength is the maximum number of characters in a chat message
	MaxChatLength int = 500

	// RoomCodeLength is the number of characters in a room code
	RoomCodeLength int = 6
	// RoomCodeAlphabet are the characters a room code is drawn from
	RoomCodeAlphabet string = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// RoomCodeMaxRetries bounds the attempts to find an unused room code
	RoomCodeMaxRetries int = 1024
	// JoinURLPrefix is the deep link scheme handed out with a new room code
	JoinURLPrefix string = "policevsthieves://join/"

	// DefaultMaxLocationAge is how old a location may be and still count for captures and jailings
	DefaultMaxLocationAge time.Duration = 20 * time.Second

	// ProximityAlertCooldown is the minimum time between two alerts to the same police player
	ProximityAlertCooldown time.Duration = 2 * time.Second

	// BattleZoneInitialRadiusMeters is the safe zone radius before shrinking starts
	BattleZoneInitialRadiusMeters float64 = 100
	// BattleZoneMinRadiusMeters is the final safe zone radius
	BattleZoneMinRadiusMeters float64 = 30
	// BattleZoneShrinkStartRatio is the share of the total game time before the zone shrinks
	BattleZoneShrinkStartRatio float64 = 0.4
	// OutOfZoneGrace is how long a player may stay outside the zone before elimination
	OutOfZoneGrace time.Duration = 5 * time.Second

	// SweepInterval is the cadence of the proximity and battle zone sweeps
	SweepInterval time.Duration = time.Second
)
