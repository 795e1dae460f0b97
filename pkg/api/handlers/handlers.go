package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/cbodonnell/skirmish/pkg/api/middleware"
	"github.com/cbodonnell/skirmish/pkg/game"
	gametypes "github.com/cbodonnell/skirmish/pkg/game/types"
	"github.com/cbodonnell/skirmish/pkg/log"
	"github.com/cbodonnell/skirmish/pkg/notifications"
	"github.com/gorilla/mux"
	"nhooyr.io/websocket"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9 ]+$`)

type createGameRequest struct {
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	JoinIfExists bool    `json:"joinIfExists"`
}

type joinGameRequest struct {
	Name      string  `json:"name"`
	Username  string  `json:"username"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type locationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type transferRequest struct {
	ZoneIndex int `json:"zoneIndex"`
	Amount    int `json:"amount"`
}

func HandleCreateGame(manager *game.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID, ok := middleware.PlayerID(r)
		if !ok {
			log.Error("failed to get player from context")
			http.Error(w, "Failed to get player from context", http.StatusInternalServerError)
			return
		}

		var req createGameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if len(req.Name) < 1 || len(req.Name) > 32 {
			http.Error(w, "Name must be between 1 and 32 characters", http.StatusBadRequest)
			return
		}

		if !nameRegex.MatchString(req.Name) {
			http.Error(w, "Name cannot contain special characters", http.StatusBadRequest)
			return
		}

		loc := gametypes.Coordinate{Lat: req.Latitude, Lon: req.Longitude}
		session, err := manager.CreateSession(r.Context(), req.Name, playerID, loc, req.JoinIfExists)
		if err != nil {
			writeGameError(w, "failed to create game", err)
			return
		}

		writeJSON(w, session)
	}
}

func HandleJoinGame(manager *game.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID, ok := middleware.PlayerID(r)
		if !ok {
			log.Error("failed to get player from context")
			http.Error(w, "Failed to get player from context", http.StatusInternalServerError)
			return
		}

		var req joinGameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if req.Name == "" && req.Username == "" {
			http.Error(w, "Either name or username is required", http.StatusBadRequest)
			return
		}

		loc := gametypes.Coordinate{Lat: req.Latitude, Lon: req.Longitude}
		var session *gametypes.Session
		var err error
		if req.Name != "" {
			session, err = manager.JoinSession(r.Context(), req.Name, playerID, loc)
		} else {
			session, err = manager.JoinSessionByUsername(r.Context(), req.Username, playerID, loc)
		}
		if err != nil {
			writeGameError(w, "failed to join game", err)
			return
		}

		writeJSON(w, session)
	}
}

func HandleLeaveGame(manager *game.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID, ok := middleware.PlayerID(r)
		if !ok {
			log.Error("failed to get player from context")
			http.Error(w, "Failed to get player from context", http.StatusInternalServerError)
			return
		}

		gameID := mux.Vars(r)["gameID"]
		if _, err := manager.LeaveSession(r.Context(), gameID, playerID); err != nil {
			writeGameError(w, "failed to leave game", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func HandleListGames(manager *game.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := manager.ListSessions(r.Context())
		if err != nil {
			writeGameError(w, "failed to list games", err)
			return
		}

		writeJSON(w, sessions)
	}
}

func HandleGetGame(manager *game.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := mux.Vars(r)["gameID"]
		session, err := manager.GetSession(r.Context(), gameID)
		if err != nil {
			writeGameError(w, "failed to get game", err)
			return
		}

		writeJSON(w, session)
	}
}

func HandleGetCurrentGame(manager *game.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID, ok := middleware.PlayerID(r)
		if !ok {
			log.Error("failed to get player from context")
			http.Error(w, "Failed to get player from context", http.StatusInternalServerError)
			return
		}

		session, err := manager.FindSessionOf(r.Context(), playerID)
		if err != nil {
			writeGameError(w, "failed to find game", err)
			return
		}

		writeJSON(w, session)
	}
}

func HandleUpdateLocation(manager *game.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID, ok := middleware.PlayerID(r)
		if !ok {
			log.Error("failed to get player from context")
			http.Error(w, "Failed to get player from context", http.StatusInternalServerError)
			return
		}

		var req locationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		gameID := mux.Vars(r)["gameID"]
		loc := gametypes.Coordinate{Lat: req.Latitude, Lon: req.Longitude}
		session, err := manager.UpdateGeolocation(r.Context(), gameID, playerID, loc)
		if err != nil {
			writeGameError(w, "failed to update location", err)
			return
		}

		writeJSON(w, session)
	}
}

func HandleTransferTroops(manager *game.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID, ok := middleware.PlayerID(r)
		if !ok {
			log.Error("failed to get player from context")
			http.Error(w, "Failed to get player from context", http.StatusInternalServerError)
			return
		}

		var req transferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		gameID := mux.Vars(r)["gameID"]
		session, err := manager.TransferTroops(r.Context(), gameID, playerID, req.ZoneIndex, req.Amount)
		if err != nil {
			writeGameError(w, "failed to transfer troops", err)
			return
		}

		writeJSON(w, session)
	}
}

// HandleStreamRegions upgrades the connection to a websocket and streams
// the game's region and session updates until the client goes away.
func HandleStreamRegions(manager *game.Manager, hub *notifications.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := mux.Vars(r)["gameID"]
		if _, err := manager.GetSession(r.Context(), gameID); err != nil {
			writeGameError(w, "failed to get game", err)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			log.Error("failed to accept websocket connection: %v", err)
			return
		}
		defer conn.Close(websocket.StatusInternalError, "subscription ended")

		if err := hub.Subscribe(r.Context(), gameID, conn); err != nil {
			log.Debug("subscription for game %s ended: %v", gameID, err)
		}
		conn.Close(websocket.StatusNormalClosure, "")
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// writeGameError maps the game error taxonomy onto HTTP status codes.
func writeGameError(w http.ResponseWriter, msg string, err error) {
	switch {
	case game.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case game.IsNotFound(err):
		http.Error(w, err.Error(), http.StatusNotFound)
	case game.IsConflict(err):
		http.Error(w, err.Error(), http.StatusConflict)
	case game.IsState(err):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case game.IsDependency(err):
		log.Error("%s: %v", msg, err)
		http.Error(w, "Upstream dependency failed", http.StatusBadGateway)
	default:
		log.Error("%s: %v", msg, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
