package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/parrotlabs/voiceforge/internal/api"
	"github.com/parrotlabs/voiceforge/internal/auth"
	"github.com/parrotlabs/voiceforge/internal/config"
	"github.com/parrotlabs/voiceforge/internal/database"
	"github.com/parrotlabs/voiceforge/internal/fishaudio"
	"github.com/parrotlabs/voiceforge/internal/repository"
	"github.com/parrotlabs/voiceforge/internal/service"
	"github.com/parrotlabs/voiceforge/internal/storage"
	"github.com/parrotlabs/voiceforge/internal/whop"
	"github.com/parrotlabs/voiceforge/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	catalog, err := service.NewCatalog(cfg.Packages)
	if err != nil {
		log.Fatalf("package catalog: %v", err)
	}

	tokenResolver, err := auth.NewTokenResolver()
	if err != nil {
		log.Fatalf("auth: %v", err)
	}
	// Identity strategy is fixed at startup; the static resolver exists only
	// when a dev user is explicitly configured.
	var resolver auth.Resolver = tokenResolver
	if cfg.DevUserID != "" {
		logr.Warn("static dev identity enabled", "user_id", cfg.DevUserID)
		resolver = auth.NewStaticResolver(cfg.DevUserID, cfg.DevExperienceID, tokenResolver)
	}

	fishClient := fishaudio.NewClient(cfg, logr)
	whopClient := whop.NewClient(cfg, logr)

	uploader, err := storage.NewUploader(storage.Config{
		Endpoint:      cfg.S3Endpoint,
		Region:        cfg.S3Region,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		Bucket:        cfg.S3Bucket,
		PublicBaseURL: cfg.S3PublicBaseURL,
		UsePathStyle:  cfg.S3UsePathStyle,
		Prefix:        cfg.S3Prefix,
	})
	if err != nil {
		log.Fatalf("storage uploader: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	voiceRepo := repository.NewVoiceModelRepository(db)
	audioRepo := repository.NewAudioRepository(db)
	confirmationRepo := repository.NewConfirmationRepository(db)

	userService := service.NewUserService(userRepo, cfg.SignupBonusCredits)
	voiceService := service.NewVoiceModelService(logr, voiceRepo, fishClient)
	generationService := service.NewGenerationService(logr, userRepo, voiceRepo, audioRepo, fishClient, uploader)
	paymentService := service.NewPaymentService(cfg, logr, catalog, userRepo, confirmationRepo, whopClient)

	server := api.NewServer(cfg, logr, resolver, userService, voiceService, generationService, paymentService)
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("server stopped", "err", err)
	}
}
