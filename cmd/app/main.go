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

	"github.com/common-nighthawk/go-figure"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"essay-tutor-backend/internal/config"
	"essay-tutor-backend/internal/controller"
	"essay-tutor-backend/internal/db"
	"essay-tutor-backend/internal/llm"
	"essay-tutor-backend/internal/repository"
	"essay-tutor-backend/internal/service"
	"essay-tutor-backend/pkg/middleware"
	"essay-tutor-backend/utilities"
)

const version = "1.0.0"

func main() {
	printStartUpBanner()

	// Load XML configuration from file.
	cfg, err := config.LoadConfig("config.xml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := utilities.NewLogger(cfg.Logging, cfg.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Initialize DB using the loaded config; migrations run when DB/INITIALIZE is set.
	if err := db.InitDBFromConfig(cfg); err != nil {
		log.Fatal("failed to init database", "error", err)
	}
	conn := db.GetDB()

	// Create repositories.
	userRepo := repository.NewUserRepository(conn)
	essayRepo := repository.NewEssayRepository(conn)
	subscriptionRepo := repository.NewSubscriptionRepository(conn)

	bus := utilities.NewEventBus()
	service.InitAuditListeners(bus, log)

	// Create services.
	tokens := utilities.NewTokenIssuer(cfg.Authentication.TokenSecret, cfg.SessionDuration())
	authService := service.NewAuthService(userRepo, bcrypt.DefaultCost)
	essayService := service.NewEssayService(essayRepo, llm.NewHeuristicWriter(cfg.AI.Seed), bus)
	exportService := service.NewExportService(essayRepo, cfg.Export.FontPath)
	subscriptionService := service.NewSubscriptionService(subscriptionRepo)

	if cfg.Export.FontPath == "" {
		log.Warn("EXPORT/FONT_PATH not set, PDF export disabled")
	}

	gin.SetMode(cfg.Mode)
	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.RequestLogger(log), middleware.CORS())
	if cfg.RequestDump {
		r.Use(middleware.RequestDumpMiddleware(log))
	}

	authLimiter := middleware.NewIPRateLimiter(cfg.RateLimit.AuthPerMinute, cfg.RateLimit.AuthBurst)
	controller.RegisterRoutes(r,
		utilities.AuthMiddleware(tokens, userRepo),
		authLimiter.Middleware(),
		controller.NewAuthController(authService, tokens, log),
		controller.NewEssayController(essayService, exportService, log),
		controller.NewSubscriptionController(subscriptionService, log),
	)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server listening", "addr", srv.Addr, "mode", cfg.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	bus.Wait()
	if err := db.Close(conn); err != nil {
		log.Error("close database", "error", err)
	}
}

func printStartUpBanner() {
	myFigure := figure.NewFigure("ESSAY TUTOR", "", true)
	myFigure.Print()

	fmt.Println("======================================================")
	fmt.Printf("ESSAY TUTOR API (v%s)\n\n", version)
}
