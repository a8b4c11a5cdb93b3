package handlers

import (
	"net/http"
	"time"

	"github.com/Dosada05/rating-engine/models"
	"github.com/Dosada05/rating-engine/services"
)

type MatchHandler struct {
	processor services.MatchProcessor
}

func NewMatchHandler(processor services.MatchProcessor) *MatchHandler {
	return &MatchHandler{processor: processor}
}

type processMatchRequest struct {
	MatchID      string     `json:"match_id"`
	WinnerID     int        `json:"winner_id"`
	LoserID      int        `json:"loser_id"`
	Game         string     `json:"game"`
	Mode         string     `json:"mode"`
	TournamentID *int       `json:"tournament_id,omitempty"`
	IsTournament bool       `json:"is_tournament,omitempty"`
	Importance   float64    `json:"importance,omitempty"`
	PlayedAt     *time.Time `json:"played_at,omitempty"`
}

// ProcessMatch godoc
// @Summary Обработать результат матча
// @Tags matches
// @Description Применяет исход матча к рейтингам обоих игроков. Идемпотентно по match_id.
// @Accept json
// @Produce json
// @Success 200 {object} models.MatchResult
// @Failure 400 {object} map[string]string "Невалидный результат матча"
// @Failure 409 {object} map[string]string "Конфликт записи, можно повторить"
// @Security BearerAuth
// @Router /matches [post]
func (h *MatchHandler) ProcessMatch(w http.ResponseWriter, r *http.Request) {
	var input processMatchRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	processInput := services.ProcessMatchInput{
		MatchID:      input.MatchID,
		WinnerID:     input.WinnerID,
		LoserID:      input.LoserID,
		Game:         input.Game,
		Mode:         models.GameMode(input.Mode),
		TournamentID: input.TournamentID,
		IsTournament: input.IsTournament,
		Importance:   input.Importance,
	}
	if input.PlayedAt != nil {
		processInput.PlayedAt = *input.PlayedAt
	}

	result, err := h.processor.ProcessMatch(r.Context(), processInput)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type processSimpleMatchRequest struct {
	MatchID      string `json:"match_id"`
	WinnerID     int    `json:"winner_id"`
	LoserID      int    `json:"loser_id"`
	Game         string `json:"game"`
	TournamentID int    `json:"tournament_id,omitempty"`
}

// ProcessRegularMatch godoc
// @Summary Обработать обычный матч (mode=solo, importance=1.0)
// @Tags matches
// @Security BearerAuth
// @Router /matches/regular [post]
func (h *MatchHandler) ProcessRegularMatch(w http.ResponseWriter, r *http.Request) {
	var input processSimpleMatchRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.processor.ProcessRegularMatch(r.Context(), input.WinnerID, input.LoserID, input.Game, input.MatchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ProcessTournamentMatch godoc
// @Summary Обработать турнирный матч (mode=tournament, importance=1.5)
// @Tags matches
// @Security BearerAuth
// @Router /matches/tournament [post]
func (h *MatchHandler) ProcessTournamentMatch(w http.ResponseWriter, r *http.Request) {
	var input processSimpleMatchRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.processor.ProcessTournamentMatch(r.Context(), input.WinnerID, input.LoserID, input.Game, input.MatchID, input.TournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
