package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Dosada05/rating-engine/models"
	"github.com/Dosada05/rating-engine/services"
)

var errInvalidModeParam = errors.New("invalid mode query parameter, expected solo, team or tournament")

type LeaderboardHandler struct {
	leaderboardService services.LeaderboardService
}

func NewLeaderboardHandler(ls services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: ls}
}

// GetLeaderboard godoc
// @Summary Лидерборд текущего сезона
// @Tags leaderboard
// @Produce json
// @Param game query string false "Фильтр по игре"
// @Param mode query string false "Фильтр по режиму (solo|team|tournament)"
// @Param limit query int false "Размер страницы (по умолчанию 50, максимум 200)"
// @Param offset query int false "Смещение"
// @Router /leaderboard [get]
func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	query := services.LeaderboardQuery{}

	if game := r.URL.Query().Get("game"); game != "" {
		query.Game = &game
	}
	if modeStr := r.URL.Query().Get("mode"); modeStr != "" {
		mode := models.GameMode(modeStr)
		if !mode.Valid() {
			badRequestResponse(w, r, errInvalidModeParam)
			return
		}
		query.Mode = &mode
	}
	query.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	query.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	rankings, err := h.leaderboardService.GetLeaderboard(r.Context(), query)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": rankings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetUserRatingProfile godoc
// @Summary Сводный рейтинговый профиль игрока за текущий сезон
// @Tags leaderboard
// @Produce json
// @Param userID path int true "User ID"
// @Router /users/{userID}/rating [get]
func (h *LeaderboardHandler) GetUserRatingProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	profile, err := h.leaderboardService.GetUserRatingProfile(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"profile": profile}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
