package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bybo/bybo-be/internal/api"
	"github.com/bybo/bybo-be/internal/auth"
	"github.com/bybo/bybo-be/internal/config"
	"github.com/bybo/bybo-be/internal/database"
	"github.com/bybo/bybo-be/internal/logger"
	"github.com/bybo/bybo-be/internal/monitoring"
	"github.com/bybo/bybo-be/internal/services"
	"github.com/bybo/bybo-be/internal/storage"
	"github.com/bybo/bybo-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Environment, cfg.LogLevel)

	// Ensure the upload directory exists
	files, err := storage.NewLocalFileStore(cfg.UploadPath, cfg.PublicURL+"/uploads")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize file store")
	}

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	userService := services.NewUserService(db)
	authService := services.NewAuthService(db, userService, tokens)
	eventService := services.NewEventService(db)
	listingService := services.NewListingService(db, files, cfg.ListingCacheTTL)
	defer listingService.Stop()
	ledger := services.NewLedger(db)
	bookingService := services.NewBookingService(authService, listingService, userService, ledger, eventService, hub)
	messageService := services.NewMessageService(db)

	// Set up and run the maintenance scheduler
	scheduler, err := monitoring.NewScheduler(cfg.MaintenanceCron, authService, eventService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize maintenance scheduler")
	}
	scheduler.Start()

	// Set up router
	router := api.NewRouter(api.Dependencies{
		Hub:         hub,
		DB:          db,
		Users:       userService,
		Auth:        authService,
		Listings:    listingService,
		Bookings:    bookingService,
		Messages:    messageService,
		Events:      eventService,
		UploadDir:   files.Dir(),
		CORSOrigins: cfg.CORSOrigins,
		Secure:      cfg.IsProduction(),
		TokenTTL:    cfg.TokenTTL,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.Environment).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Stop()

	log.Info().Msg("Server exiting")
}
