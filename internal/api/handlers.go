package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"

	"github.com/manpreetbhatti/sketchsync/internal/store"
	"github.com/manpreetbhatti/sketchsync/internal/ws"
)

// API is the read-mostly admin surface over live rooms. Everything it
// reports comes from in-memory state; there is nothing behind it to persist.
type API struct {
	hub   *ws.Hub
	store *store.Store
}

func New(hub *ws.Hub, store *store.Store) *API {
	return &API{
		hub:   hub,
		store: store,
	}
}

// Routes registers all endpoints on the given router.
func (a *API) Routes(r *mux.Router) {
	r.HandleFunc("/health", a.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/stats", a.StatsHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/rooms", a.ListRoomsHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/rooms/{id}", a.GetRoomHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/rooms/{id}", a.DeleteRoomHandler).Methods(http.MethodDelete)
}

func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

func (a *API) HealthHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) StatsHandler(w http.ResponseWriter, r *http.Request) {
	totalOps := 0
	totalUndone := 0
	for _, room := range a.store.Snapshot() {
		ops, undone := room.State.Depth()
		totalOps += ops
		totalUndone += undone
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"active_rooms":     a.hub.RoomCount(),
		"active_clients":   a.hub.ClientCount(),
		"tracked_rooms":    a.store.Count(),
		"total_operations": totalOps,
		"total_undone":     totalUndone,
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
	})
}

type RoomResponse struct {
	ID             string `json:"id"`
	Users          int    `json:"users"`
	Connections    int    `json:"connections"`
	OperationCount int    `json:"operation_count"`
	UndoDepth      int    `json:"undo_depth"`
}

func (a *API) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	connections := a.hub.ActiveRooms()

	rooms := make([]RoomResponse, 0)
	for id, room := range a.store.Snapshot() {
		ops, undone := room.State.Depth()
		rooms = append(rooms, RoomResponse{
			ID:             id,
			Users:          room.State.UserCount(),
			Connections:    connections[id],
			OperationCount: ops,
			UndoDepth:      undone,
		})
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"rooms": rooms,
		"count": len(rooms),
	})
}

func (a *API) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]

	room, ok := a.store.Get(roomID)
	if !ok {
		errorResponse(w, http.StatusNotFound, "Room not found")
		return
	}

	ops, undone := room.State.Depth()
	jsonResponse(w, http.StatusOK, RoomResponse{
		ID:             roomID,
		Users:          room.State.UserCount(),
		Connections:    a.hub.ActiveRooms()[roomID],
		OperationCount: ops,
		UndoDepth:      undone,
	})
}

func (a *API) DeleteRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]

	if _, ok := a.store.Get(roomID); !ok {
		errorResponse(w, http.StatusNotFound, "Room not found")
		return
	}

	a.store.Delete(roomID)
	log.Printf("Room %s deleted via API", roomID)

	jsonResponse(w, http.StatusOK, map[string]string{"message": "Room deleted"})
}
