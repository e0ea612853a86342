package main

import (
	"log"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"astor/account"
	"astor/analytics"
	"astor/api"
	"astor/backoffice"
	"astor/cache"
	"astor/common"
	"astor/core"
	"astor/database"
	"astor/email"
	"astor/logger"
	"astor/site"
)

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	appLog := logger.New(cfg.LogLevel, cfg.Environment)

	db, err := common.ConnectDB(cfg.SQLitePath)
	if err != nil {
		appLog.Fatal().Err(err).Msg("connecting to database failed")
	}

	if err := database.RunMigrations(db, appLog); err != nil {
		appLog.Fatal().Err(err).Msg("running migrations failed")
	}

	registry := core.NewRegistry()
	core.RegisterDefaultTypes(registry)
	account.RegisterForms(registry)
	api.RegisterSerializers(registry)

	coreService := core.NewService(db, registry, appLog)
	analyticsModule := analytics.NewModule(db, appLog)
	emailService := email.NewEmailService(cfg)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	if cfg.SessionSecret == "" {
		appLog.Fatal().Msg("SESSION_SECRET environment variable not set")
	}

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   false,
	})

	router.Use(sessions.Sessions("astor-session", store))
	router.Use(common.SubdomainMiddleware())
	router.Use(cache.Middleware(10 * time.Minute))

	router.SetFuncMap(map[string]interface{}{
		"now": func() time.Time {
			return time.Now()
		},
		"domain": func() string {
			return cfg.Domain
		},
	})

	router.LoadHTMLGlob("*/views/*.html")

	router.Static("/public", "./public")

	account.NewModule(db, coreService, analyticsModule, emailService, cfg, appLog).RegisterRoutes(router)
	site.NewModule(db, coreService, analyticsModule, cfg, appLog).RegisterRoutes(router)
	api.NewModule(db, coreService, appLog).RegisterRoutes(router)
	backoffice.NewModule(db, cfg, appLog).RegisterRoutes(router)

	appLog.Info().Str("port", cfg.Port).Msg("starting server")
	if err := router.Run(":" + cfg.Port); err != nil {
		appLog.Fatal().Err(err).Msg("server stopped")
	}
}
