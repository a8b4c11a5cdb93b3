package handlers

import (
	"net/http"

	"github.com/Dosada05/rating-engine/models"
	"github.com/Dosada05/rating-engine/services"
)

type AdminHandler struct {
	decayService    services.DecayService
	snapshotService services.SnapshotService
}

func NewAdminHandler(decayService services.DecayService, snapshotService services.SnapshotService) *AdminHandler {
	return &AdminHandler{
		decayService:    decayService,
		snapshotService: snapshotService,
	}
}

// RunDecay godoc
// @Summary Запустить decay неактивных игроков вне расписания
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Router /admin/decay [post]
func (h *AdminHandler) RunDecay(w http.ResponseWriter, r *http.Request) {
	decayed, err := h.decayService.ApplyInactivityDecay(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"decayed": decayed}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type exportSnapshotRequest struct {
	Game string `json:"game"`
	Mode string `json:"mode"`
}

// ExportSnapshot godoc
// @Summary Выгрузить снапшот лидерборда в объектное хранилище
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /admin/snapshots [post]
func (h *AdminHandler) ExportSnapshot(w http.ResponseWriter, r *http.Request) {
	var input exportSnapshotRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	mode := models.GameMode(input.Mode)
	if input.Game == "" || !mode.Valid() {
		badRequestResponse(w, r, errInvalidModeParam)
		return
	}

	result, err := h.snapshotService.ExportLeaderboard(r.Context(), input.Game, mode)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"snapshot": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
