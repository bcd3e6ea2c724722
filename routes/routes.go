package routes

import (
	"github.com/Pandnak/dancers-matcher/handlers"
	"github.com/Pandnak/dancers-matcher/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func SetupRoutes(
	router *chi.Mux,
	auth *middleware.Authenticator,
	authHandler *handlers.AuthHandler,
	dancerHandler *handlers.DancerHandler,
	requestHandler *handlers.RequestHandler,
	pairHandler *handlers.PairHandler,
	recommendationHandler *handlers.RecommendationHandler,
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

	router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.Register)
		r.Post("/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Delete("/users/{id}", authHandler.DeleteUser)
		})
	})

	router.Route("/dancers", func(r chi.Router) {
		// Анкета создается до регистрации пользователя, поэтому POST публичный.
		r.Post("/", dancerHandler.Create)
		r.Get("/", dancerHandler.List)
		r.Get("/{id}", dancerHandler.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Put("/{id}", dancerHandler.Update)
			r.Delete("/{id}", dancerHandler.Delete)
			r.Post("/{id}/photo", dancerHandler.UploadPhoto)
			r.Delete("/{id}/photo", dancerHandler.DeletePhoto)
		})
	})

	router.Route("/requests", func(r chi.Router) {
		r.Get("/", requestHandler.List)
		r.Get("/{id}", requestHandler.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Post("/", requestHandler.Create)
			r.Put("/{id}", requestHandler.UpdateStatus)
			r.Delete("/{id}", requestHandler.Delete)
		})
	})

	router.Route("/pairs", func(r chi.Router) {
		r.Get("/", pairHandler.List)
		r.Get("/{id}", pairHandler.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Delete("/{id}", pairHandler.Delete)
		})
	})

	router.Route("/recommendations", func(r chi.Router) {
		r.Get("/base/{id}", recommendationHandler.Basic)
		r.Get("/knn/{id}", recommendationHandler.KNN)
	})

	router.Get("/ws/pairs", webSocketHandler.ServeWs)
}
