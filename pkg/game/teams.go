package game

import (
	"math/rand"

	"github.com/cbodonnell/manhunt/pkg/game/types"
)

// ShuffleFunc randomly permutes n elements through swap, like rand.Shuffle.
type ShuffleFunc func(n int, swap func(i, j int))

// TeamAssigner splits a roster into police and thieves.
type TeamAssigner struct {
	shuffle ShuffleFunc
}

// NewTeamAssigner returns an assigner using shuffle, or rand.Shuffle when nil.
func NewTeamAssigner(shuffle ShuffleFunc) *TeamAssigner {
	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	return &TeamAssigner{shuffle: shuffle}
}

// Assign shuffles players and returns the two teams. Police always get the
// larger half on an odd roster; the input slice is not modified.
func (a *TeamAssigner) Assign(players []*types.Player) (police, thieves []*types.Player) {
	shuffled := make([]*types.Player, len(players))
	copy(shuffled, players)
	a.shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	policeCount := (len(shuffled) + 1) / 2
	return shuffled[:policeCount], shuffled[policeCount:]
}
