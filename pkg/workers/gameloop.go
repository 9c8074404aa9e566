package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cbodonnell/manhunt/pkg/game"
	"github.com/cbodonnell/manhunt/pkg/log"
	"github.com/cbodonnell/manhunt/pkg/messages"
	"github.com/cbodonnell/manhunt/pkg/network"
	"github.com/cbodonnell/manhunt/pkg/queue"
)

const (
	DefaultDispatchInterval = 20 * time.Millisecond
	DefaultSweepInterval    = time.Second
	DefaultCleanupInterval  = time.Minute
)

// ErrLoopStopped is returned by Query once the game loop has exited.
var ErrLoopStopped = errors.New("game loop stopped")

// Engine is the part of the game engine driven by the loop.
type Engine interface {
	HandleMessage(msg *messages.Inbound)
	HandleDisconnect(playerID, roomID string)
	Sweep()
	CleanupIdleRooms() int
	RoomSummaries() []game.RoomSummary
	RoomSummary(roomID string) (game.RoomSummary, bool)
}

// GameLoopWorker owns the engine. Inbound messages, disconnects, timer fires
// and queries all reach the engine through its queue, so the engine is only
// ever used from the goroutine running Start.
type GameLoopWorker struct {
	engine           Engine
	queue            queue.Queue
	dispatchInterval time.Duration
	sweepInterval    time.Duration
	cleanupInterval  time.Duration
	done             chan struct{}
}

type NewGameLoopWorkerOptions struct {
	Engine           Engine
	Queue            queue.Queue
	DispatchInterval time.Duration
	SweepInterval    time.Duration
	CleanupInterval  time.Duration
}

func NewGameLoopWorker(opts NewGameLoopWorkerOptions) *GameLoopWorker {
	w := &GameLoopWorker{
		engine:           opts.Engine,
		queue:            opts.Queue,
		dispatchInterval: opts.DispatchInterval,
		sweepInterval:    opts.SweepInterval,
		cleanupInterval:  opts.CleanupInterval,
		done:             make(chan struct{}),
	}
	if w.dispatchInterval <= 0 {
		w.dispatchInterval = DefaultDispatchInterval
	}
	if w.sweepInterval <= 0 {
		w.sweepInterval = DefaultSweepInterval
	}
	if w.cleanupInterval <= 0 {
		w.cleanupInterval = DefaultCleanupInterval
	}
	return w
}

// Start runs the game loop until ctx is canceled.
func (w *GameLoopWorker) Start(ctx context.Context) error {
	defer close(w.done)

	dispatch := time.NewTicker(w.dispatchInterval)
	defer dispatch.Stop()
	sweep := time.NewTicker(w.sweepInterval)
	defer sweep.Stop()
	cleanup := time.NewTicker(w.cleanupInterval)
	defer cleanup.Stop()

	log.Info("Game loop started")
	for {
		select {
		case <-ctx.Done():
			log.Info("Game loop stopped")
			return nil
		case <-dispatch.C:
			w.dispatch()
		case <-sweep.C:
			w.engine.Sweep()
		case <-cleanup.C:
			w.engine.CleanupIdleRooms()
		}
	}
}

// dispatch drains the queue and processes everything in arrival order.
func (w *GameLoopWorker) dispatch() {
	pending, err := w.queue.ReadAllMessages()
	if err != nil {
		log.Error("Failed to read from game loop queue: %v", err)
		return
	}
	for _, item := range pending {
		w.process(item)
	}
}

func (w *GameLoopWorker) process(item interface{}) {
	switch item := item.(type) {
	case *messages.Inbound:
		w.engine.HandleMessage(item)
	case *network.DisconnectEvent:
		w.engine.HandleDisconnect(item.PlayerID, item.RoomID)
	case func():
		item()
	default:
		log.Error("Unknown game loop item type: %T", item)
	}
}

// Post schedules fn to run on the game loop.
func (w *GameLoopWorker) Post(fn func()) {
	if err := w.queue.Enqueue(fn); err != nil {
		log.Error("Failed to post task to game loop: %v", err)
	}
}

// Query runs fn on the game loop and waits for it to finish.
func (w *GameLoopWorker) Query(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := w.queue.Enqueue(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return fmt.Errorf("failed to post query: %w", err)
	}

	select {
	case <-finished:
		return nil
	case <-w.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ListRooms returns the summaries of every live room.
func (w *GameLoopWorker) ListRooms(ctx context.Context) ([]game.RoomSummary, error) {
	var summaries []game.RoomSummary
	if err := w.Query(ctx, func() {
		summaries = w.engine.RoomSummaries()
	}); err != nil {
		return nil, err
	}
	return summaries, nil
}

// GetRoom returns the summary of one room.
func (w *GameLoopWorker) GetRoom(ctx context.Context, roomID string) (game.RoomSummary, bool, error) {
	var (
		summary game.RoomSummary
		found   bool
	)
	if err := w.Query(ctx, func() {
		summary, found = w.engine.RoomSummary(roomID)
	}); err != nil {
		return game.RoomSummary{}, false, err
	}
	return summary, found, nil
}
