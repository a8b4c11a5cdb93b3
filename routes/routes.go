package routes

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/Dosada05/rating-engine/handlers"
	"github.com/Dosada05/rating-engine/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
)

func SetupRoutes(
	router *chi.Mux,
	dbConn *sql.DB,
	jwtSecret []byte,
	matchHandler *handlers.MatchHandler,
	leaderboardHandler *handlers.LeaderboardHandler,
	adminHandler *handlers.AdminHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := dbConn.PingContext(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Публичные маршруты для чтения рейтингов
	router.Get("/leaderboard", leaderboardHandler.GetLeaderboard)
	router.Get("/users/{userID}/rating", leaderboardHandler.GetUserRatingProfile)
	router.Get("/ws/leaderboard/{game}/{mode}", webSocketHandler.ServeWs)

	// Приём результатов матчей — только от доверенных сервисов (матчмейкер,
	// турнирный сервис)
	router.Route("/matches", func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))
		r.Use(middleware.Authorize(middleware.RoleService, middleware.RoleAdmin))

		r.Post("/", matchHandler.ProcessMatch)
		r.Post("/regular", matchHandler.ProcessRegularMatch)
		r.Post("/tournament", matchHandler.ProcessTournamentMatch)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))
		r.Use(middleware.Authorize(middleware.RoleAdmin))

		r.Post("/decay", adminHandler.RunDecay)
		r.Post("/snapshots", adminHandler.ExportSnapshot)
	})
}
