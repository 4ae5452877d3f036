package routes

import (
	"github.com/flightmode/competition-system/handlers"
	"github.com/flightmode/competition-system/middleware"
	"github.com/flightmode/competition-system/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes регистрирует все HTTP-маршруты приложения.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	competitionHandler *handlers.CompetitionHandler,
	entryHandler *handlers.EntryHandler,
	paymentHandler *handlers.PaymentHandler,
	dashboardHandler *handlers.DashboardHandler,
	adminHandler *handlers.AdminHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)

	// Live-обновления страницы конкурса доступны без авторизации.
	router.Get("/ws/competitions/{id}", webSocketHandler.Serve)

	router.Route("/api", func(r chi.Router) {
		// Публичный каталог конкурсов
		r.Get("/competitions", competitionHandler.List)
		r.Get("/competitions/{id}", competitionHandler.GetByID)

		// Маршруты для авторизованных пользователей
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))

			r.Get("/auth/user", authHandler.CurrentUser)

			r.Post("/entries", entryHandler.Create)
			r.Get("/entries/user", entryHandler.ListMine)

			r.Post("/create-payment-intent", paymentHandler.CreatePaymentIntent)

			r.Get("/dashboard/stats", dashboardHandler.Stats)
		})

		// Административные маршруты
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.Authorize(models.RoleAdmin))

			r.Post("/admin/competitions", adminHandler.CreateCompetition)
			r.Post("/admin/competitions/{id}/image", adminHandler.UploadImage)
			r.Post("/admin/competitions/{id}/close", adminHandler.CloseCompetition)
			r.Post("/admin/competitions/{id}/winner", adminHandler.RecordWinner)
		})
	})
}
