package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/bybo/bybo-be/internal/api/handlers"
	"github.com/bybo/bybo-be/internal/auth"
	"github.com/bybo/bybo-be/internal/services"
	"github.com/bybo/bybo-be/internal/validation"
	"github.com/bybo/bybo-be/internal/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Dependencies are the collaborators the router hands to its handlers.
type Dependencies struct {
	Hub         *websocket.Hub
	DB          handlers.Pinger
	Users       services.UserServiceProvider
	Auth        services.AuthServiceProvider
	Listings    services.ListingServiceProvider
	Bookings    services.BookingServiceProvider
	Messages    services.MessageServiceProvider
	Events      services.EventServiceProvider
	UploadDir   string
	CORSOrigins []string
	Secure      bool // Set the Secure flag on auth cookies
	TokenTTL    time.Duration
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	v := validation.New()
	userHandler := handlers.NewUserHandler(deps.Users, deps.Auth, v, deps.Secure, deps.TokenTTL)
	listingHandler := handlers.NewListingHandler(deps.Listings, v)
	bookingHandler := handlers.NewBookingHandler(deps.Bookings)
	messageHandler := handlers.NewMessageHandler(deps.Messages, v)
	eventHandler := handlers.NewEventHandler(deps.Events)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.Bookings, deps.CORSOrigins)
	healthHandler := handlers.NewHealthHandler(deps.DB)

	requireAuth := auth.Middleware(deps.Auth)

	if deps.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", filesOnly(http.FileServer(http.Dir(deps.UploadDir)))))
	}

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.Get)
		r.Get("/ws/listings/{id}", wsHandler.Serve)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", userHandler.Register)
			r.Post("/login", userHandler.Login)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout", userHandler.Logout)
				r.Get("/me", userHandler.GetMe)
			})
		})

		r.Get("/users/{id}", userHandler.Get)

		r.Route("/listings", func(r chi.Router) {
			r.Get("/", listingHandler.GetAll)
			r.With(requireAuth).Post("/", listingHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", listingHandler.Get)
				r.With(requireAuth).Delete("/", listingHandler.Delete)

				// Booking mutations verify the token inside the booking service.
				r.Get("/bookings", bookingHandler.Availability)
				r.Post("/bookings", bookingHandler.Create)
				r.Delete("/bookings/{bookingId}", bookingHandler.Cancel)
			})
		})

		r.Get("/bookings/me", bookingHandler.Mine)

		r.Route("/messages", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", messageHandler.Inbox)
			r.Post("/", messageHandler.Send)
			r.Post("/{id}/read", messageHandler.MarkRead)
		})

		r.Get("/events", eventHandler.GetRecent)
	})

	return r
}

// filesOnly serves single files and answers 404 for directories, so uploads cannot be listed.
// A directory requested without a trailing slash is redirected by http.FileServer and lands here.
func filesOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
