package game

import (
	"strings"
	"sync"
	"time"
)

// Scheduler runs delayed one-shot tasks identified by key.
// Scheduling a key that is already pending replaces it.
type Scheduler interface {
	Schedule(key string, after time.Duration, fn func())
	Cancel(key string)
	CancelPrefix(prefix string)
}

// TimerScheduler arms a timer per key and, when it fires, hands the task to post
// so it runs on the game loop instead of the timer goroutine.
type TimerScheduler struct {
	post   func(fn func())
	timers map[string]*time.Timer
	mu     sync.Mutex
}

func NewTimerScheduler(post func(fn func())) *TimerScheduler {
	return &TimerScheduler{
		post:   post,
		timers: make(map[string]*time.Timer),
	}
}

func (s *TimerScheduler) Schedule(key string, after time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if previous, ok := s.timers[key]; ok {
		previous.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(after, func() {
		s.mu.Lock()
		current := s.timers[key] == timer
		if current {
			delete(s.timers, key)
		}
		s.mu.Unlock()

		if current {
			s.post(fn)
		}
	})
	s.timers[key] = timer
}

func (s *TimerScheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[key]; ok {
		timer.Stop()
		delete(s.timers, key)
	}
}

func (s *TimerScheduler) CancelPrefix(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, timer := range s.timers {
		if strings.HasPrefix(key, prefix) {
			timer.Stop()
			delete(s.timers, key)
		}
	}
}

// Pending returns the number of armed timers.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func hidingKey(roomID string) string {
	return roomID + "-hiding"
}

func chaseKey(roomID string) string {
	return roomID + "-chase"
}

func disconnectKey(roomID, playerID string) string {
	return roomID + "-disconnect-" + playerID
}

func roomKeyPrefix(roomID string) string {
	return roomID + "-"
}
