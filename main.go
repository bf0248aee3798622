package main

import (
	"context"
	"flag"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/aiblog/auth"
	"github.com/cppla/aiblog/config"
	"github.com/cppla/aiblog/mailer"
	"github.com/cppla/aiblog/routes"
	"github.com/cppla/aiblog/services"
	"github.com/cppla/aiblog/storage"
	"github.com/cppla/aiblog/storage/memory"
	"github.com/cppla/aiblog/storage/postgres"
	"github.com/cppla/aiblog/telemetry"
	"github.com/cppla/aiblog/utils"
)

func main() {
	backend := flag.String("storage", "postgres", "storage backend: postgres or memory")
	seedAdmin := flag.Bool("seed-admin", false, "create the configured admin account and exit")
	flag.Parse()

	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	telemetry.Initialize(cfg.MetricsEnabled)

	var store storage.Store
	var closers []func(context.Context) error
	switch *backend {
	case "memory":
		utils.Logger.Warn("using in-memory storage, data is lost on exit")
		store = memory.New()
	case "postgres":
		db := config.InitDatabase()
		store = postgres.New(db)
		closers = append(closers, func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
	default:
		utils.Logger.Fatal("unknown storage backend", zap.String("storage", *backend))
	}

	rc := utils.NewRedisClient(cfg)
	if rc != nil {
		closers = append(closers, func(context.Context) error { return rc.Close() })
	}
	tokens := utils.NewTokenStore(rc)

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour)
	authenticator := auth.NewJWTAuthenticator(issuer, store, tokens)

	var sender mailer.Sender = mailer.LogSender{Logger: utils.Logger}
	if cfg.SMTPHost != "" {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
			StartTLS: cfg.SMTPTLS,
		})
	}
	mail := mailer.NewDispatcher(sender, mailer.Product{Name: "AIBlog", Link: cfg.BaseURL}, utils.Logger)

	authService := services.NewAuthService(store, issuer, authenticator, tokens, mail, cfg.BaseURL, utils.Logger)

	if *seedAdmin {
		runSeedAdmin(authService, cfg)
		return
	}

	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.GinPath != "" {
		gin.DefaultWriter = utils.NewRollingFileLogger(cfg.GinPath, cfg)
		gin.DefaultErrorWriter = gin.DefaultWriter
	}

	r := routes.SetupRouter(routes.Deps{
		Authenticator:  authenticator,
		Posts:          services.NewPostService(store),
		Comments:       services.NewCommentService(store),
		Auth:           authService,
		AllowedOrigins: cfg.AllowedOrigins,
		SecureCookie:   strings.HasPrefix(cfg.BaseURL, "https://"),
		Logger:         utils.Logger,
	})

	srv := utils.NewGraceServer(":"+cfg.AppPort, r)
	for _, fn := range closers {
		srv.OnShutdown(fn)
	}

	utils.Logger.Info("starting server", zap.String("port", cfg.AppPort), zap.String("storage", *backend))
	if err := srv.ListenAndServe(); err != nil {
		utils.Logger.Fatal("server stopped with error", zap.Error(err))
	}
}

func runSeedAdmin(svc *services.AuthService, cfg config.AppConfig) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		utils.Logger.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD must be set to seed an admin")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin, created, err := svc.SeedAdmin(ctx, services.SignUpInput{
		Name:     cfg.AdminName,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	})
	if err != nil {
		utils.Logger.Fatal("seeding admin failed", zap.Error(err))
	}
	if !created {
		utils.Logger.Info("admin already exists", zap.String("email", admin.Email))
		return
	}
	utils.Logger.Info("admin created", zap.String("id", admin.ID), zap.String("email", admin.Email))
}
