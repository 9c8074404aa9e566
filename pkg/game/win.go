package game

import (
	"fmt"
	"sort"

	"github.com/cbodonnell/manhunt/pkg/game/types"
)

const ReasonAllThievesCaptured = "all thieves captured"

// EvaluateWin decides the outcome of room as it stands. Police win when every
// thief is captured or jailed and there is at least one thief; otherwise thieves win.
// A room without thieves must be settled by the caller.
func EvaluateWin(room *types.Room) *types.GameResult {
	thieves := room.TeamMembers(types.TeamThief)
	stats := buildStats(room, thieves)

	if stats.TotalThieves > 0 && stats.CapturedCount == stats.TotalThieves {
		return &types.GameResult{
			Winner: types.TeamPolice,
			Reason: ReasonAllThievesCaptured,
			Stats:  stats,
		}
	}

	free := 0
	for _, t := range thieves {
		if t.ThiefState() == types.ThiefStateFree {
			free++
		}
	}
	return &types.GameResult{
		Winner: types.TeamThief,
		Reason: fmt.Sprintf("%d thieves remain free", free),
		Stats:  stats,
	}
}

// allThievesCaught reports whether the game can end early for the police.
// A room without thieves counts as caught.
func allThievesCaught(room *types.Room) bool {
	for _, t := range room.TeamMembers(types.TeamThief) {
		if !caught(t) {
			return false
		}
	}
	return true
}

func caught(p *types.Player) bool {
	state := p.ThiefState()
	return state == types.ThiefStateCaptured || state == types.ThiefStateJailed
}

func buildStats(room *types.Room, thieves []*types.Player) types.GameStats {
	stats := types.GameStats{
		TotalThieves:    len(thieves),
		SurvivedThieves: []string{},
		CaptureHistory:  []types.CaptureRecord{},
	}

	for _, t := range thieves {
		switch t.ThiefState() {
		case types.ThiefStateFree:
			stats.SurvivedThieves = append(stats.SurvivedThieves, t.ID)
		case types.ThiefStateCaptured:
			stats.CapturedCount++
			stats.SurvivedThieves = append(stats.SurvivedThieves, t.ID)
			stats.CaptureHistory = append(stats.CaptureHistory, captureRecord(room, t))
		case types.ThiefStateJailed:
			stats.CapturedCount++
			stats.JailedCount++
			stats.CaptureHistory = append(stats.CaptureHistory, captureRecord(room, t))
		}
	}

	// thieves come in join order, so ties keep it
	sort.SliceStable(stats.CaptureHistory, func(i, j int) bool {
		return stats.CaptureHistory[i].CapturedAt < stats.CaptureHistory[j].CapturedAt
	})
	return stats
}

func captureRecord(room *types.Room, thief *types.Player) types.CaptureRecord {
	record := types.CaptureRecord{
		ThiefID:       thief.ID,
		ThiefNickname: thief.Nickname,
	}
	status := thief.ThiefStatus
	if status.CapturedAt != nil {
		record.CapturedAt = *status.CapturedAt
	}
	if status.JailedAt != nil {
		jailedAt := *status.JailedAt
		record.JailedAt = &jailedAt
	}
	if status.CapturedBy != nil {
		record.PoliceID = *status.CapturedBy
		if police, ok := room.GetPlayer(*status.CapturedBy); ok {
			record.PoliceNickname = police.Nickname
		}
	}
	return record
}
