package ops

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/gamehub/internal/api/apierr"
	"github.com/mcoot/gamehub/internal/api/response"
	"github.com/mcoot/gamehub/internal/services/lobby"
	"github.com/mcoot/gamehub/internal/services/registry"
)

type gameViews struct {
	registry *registry.Service
}

// List handles GET /api/v1/games?author=
func (v *gameViews) List(w http.ResponseWriter, r *http.Request) {
	games := v.registry.ListGames(registry.ListOptions{Author: r.URL.Query().Get("author")})
	response.JSON(w, http.StatusOK, response.GameSummariesFromModel(games, false))
}

// Get handles GET /api/v1/games/{id}
func (v *gameViews) Get(w http.ResponseWriter, r *http.Request) {
	game, err := v.registry.GameDetail(mux.Vars(r)["id"])
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.GameDetailFromModel(game))
}

type roomViews struct {
	lobby *lobby.Controller
}

// List handles GET /api/v1/rooms
func (v *roomViews) List(w http.ResponseWriter, r *http.Request) {
	rooms, err := v.lobby.ListRooms(r.Context())
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, rooms)
}

// Get handles GET /api/v1/rooms/{id}
func (v *roomViews) Get(w http.ResponseWriter, r *http.Request) {
	room, err := v.lobby.RoomInfo(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, room)
}

// Players handles GET /api/v1/players
func (v *roomViews) Players(w http.ResponseWriter, _ *http.Request) {
	players := v.lobby.ListPlayers()
	out := make([]response.PlayerSummary, len(players))
	for i, p := range players {
		out[i] = response.PlayerSummaryFromModel(p)
	}
	response.JSON(w, http.StatusOK, out)
}
