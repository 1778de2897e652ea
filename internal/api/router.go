package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/medrec/prescript-be/internal/api/handlers"
	"github.com/medrec/prescript-be/internal/auth"
	"github.com/medrec/prescript-be/internal/services"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(tokens *auth.TokenIssuer, userService services.UserServiceProvider, auditService services.AuditServiceProvider, corsOrigin string) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	auditHandler := handlers.NewAuditHandler(auditService)

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			// Public endpoints
			r.Post("/", userHandler.Register)
			r.Post("/login", userHandler.Login)

			// Endpoints for any authenticated account
			r.Group(func(r chi.Router) {
				r.Use(tokens.Middleware())
				r.Get("/profile", userHandler.GetProfile)
				r.Put("/profile", userHandler.UpdateProfile)
				r.Get("/prescriptions/{pfNo}", userHandler.GetPrescription)
				r.Put("/prescriptions/{pfNo}", userHandler.UpdatePrescription)
			})

			// Admin-only endpoints
			r.Group(func(r chi.Router) {
				r.Use(tokens.Middleware())
				r.Use(adminOnly(userService))
				r.Get("/", userHandler.GetAll)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", userHandler.Get)
					r.Put("/", userHandler.Update)
					r.Delete("/", userHandler.Delete)
				})
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(tokens.Middleware())
			r.Use(adminOnly(userService))
			r.Get("/events", auditHandler.GetRecent)
		})
	})

	return r
}

// adminOnly gates a route group on the admin flag of the authenticated
// account. The flag is read from the store on every request, so revoking it
// takes effect immediately rather than at token expiry.
func adminOnly(service services.UserServiceProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "Missing auth token", http.StatusUnauthorized)
				return
			}

			user, err := service.GetUser(userID)
			if err != nil || !user.IsAdmin {
				http.Error(w, "Not authorized as an admin", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
