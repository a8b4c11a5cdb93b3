package handlers

import (
	"log"
	"net/http"

	"github.com/Dosada05/rating-engine/live"
	"github.com/Dosada05/rating-engine/models"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// В продакшене здесь должна быть проверка Origin,
		// чтобы разрешать подключения только с доверенных доменов.
		return true
	},
}

type WebSocketHandler struct {
	hub *live.Hub
}

func NewWebSocketHandler(hub *live.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// ServeWs подписывает клиента на живые обновления лидерборда.
// Клиент подключается к /ws/leaderboard/{game}/{mode}.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	game := chi.URLParam(r, "game")
	mode := models.GameMode(chi.URLParam(r, "mode"))
	if game == "" || !mode.Valid() {
		http.Error(w, "Invalid game or mode", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader.Upgrade сам отправляет HTTP ошибку клиенту
		log.Printf("Failed to upgrade connection for %s/%s: %v", game, mode, err)
		return
	}

	client := &live.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256), // Буферизированный канал
		Room: live.LeaderboardRoom(game, mode),
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
