package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cbodonnell/manhunt/pkg/game"
	"github.com/cbodonnell/manhunt/pkg/log"
	"github.com/gorilla/mux"
)

// RoomDirectory answers room queries from outside the game loop.
type RoomDirectory interface {
	ListRooms(ctx context.Context) ([]game.RoomSummary, error)
	GetRoom(ctx context.Context, roomID string) (game.RoomSummary, bool, error)
}

type Health struct {
	Status string `json:"status"`
	Rooms  int    `json:"rooms"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func HandleHealthz(rooms RoomDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summaries, err := rooms.ListRooms(r.Context())
		if err != nil {
			log.Error("failed to list rooms for health check: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, Health{Status: "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, Health{Status: "ok", Rooms: len(summaries)})
	}
}

func HandleListRooms(rooms RoomDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summaries, err := rooms.ListRooms(r.Context())
		if err != nil {
			log.Error("failed to list rooms: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Failed to list rooms"})
			return
		}
		writeJSON(w, http.StatusOK, summaries)
	}
}

func HandleGetRoom(rooms RoomDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := mux.Vars(r)["roomId"]
		summary, found, err := rooms.GetRoom(r.Context(), roomID)
		if err != nil {
			log.Error("failed to get room %s: %v", roomID, err)
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Failed to get room"})
			return
		}
		if !found {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: game.ErrRoomNotFound.Error()})
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response: %v", err)
	}
}
