package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"Tempo/internal/auth"
	"Tempo/internal/cache"
	"Tempo/internal/config"
	"Tempo/internal/handlers"
	"Tempo/internal/repo"
	"Tempo/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"
)

// Setup registers all routes on the given engine.
func Setup(r *gin.Engine, log *slog.Logger, cfg config.Config, db *pgxpool.Pool, rdb *redis.Client) {
	r.GET("/", rootHandler(cfg))
	r.GET("/health", healthHandler(cfg, db, rdb))
	r.GET("/version", versionHandler(cfg))
	r.GET("/swagger-doc.json", swaggerDocHandler())
	r.GET("/swagger", func(c *gin.Context) { c.Redirect(302, "/swagger/index.html") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("/swagger-doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
		ginSwagger.PersistAuthorization(true),
	))

	api := r.Group("/api/v1")

	sessionStore := auth.NewStore(rdb, cfg.Session.TTL.Duration())
	userRepo := repo.NewPGUserRepo(db)
	userSvc := service.NewUserService(userRepo)
	authHandler := handlers.NewAuthHandler(sessionStore, userSvc, sessionStore.TTL())
	registerAuthRoutes(api, authHandler, auth.RequireBearer(sessionStore))

	syncSvc := service.NewSyncService(service.Repos{
		Projects: repo.NewPGProjectRepo(db),
		Tasks:    repo.NewPGTaskRepo(db),
		Logs:     repo.NewPGLogRepo(db),
		Settings: repo.NewPGSettingsRepo(db),
		Users:    userRepo,
	}, cache.NewSnapshotCache(rdb, cfg.Redis.DefaultTTL.Duration()), log)
	syncHandler := handlers.NewSyncHandler(syncSvc)
	registerSyncRoutes(api.Group("/sync", auth.RequireBearer(sessionStore)), syncHandler)
	api.POST("/legacy/sync", auth.RequireSession(sessionStore), syncHandler.Legacy)
}

func rootHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service": "Tempo Sync API",
			"version": cfg.App.Version,
			"env":     cfg.App.Env,
			"docs":    "/swagger/index.html",
			"spec":    "/swagger-doc.json",
			"health":  "/health",
			"api":     "/api/v1",
		})
	}
}

// healthHandler reports 503 when Postgres or Redis does not answer.
func healthHandler(cfg config.Config, db *pgxpool.Pool, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		checks := gin.H{"postgres": "ok", "redis": "ok"}
		ok := true
		if err := db.Ping(ctx); err != nil {
			checks["postgres"] = err.Error()
			ok = false
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			ok = false
		}
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"ok": ok, "env": cfg.App.Env, "checks": checks})
	}
}

func versionHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{"version": cfg.App.Version})
	}
}

func swaggerDocHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := swag.ReadDoc("swagger")
		if err != nil {
			c.JSON(500, gin.H{"error": err.Error()})
			return
		}
		c.Data(200, "application/json; charset=utf-8", []byte(doc))
	}
}

func registerSyncRoutes(g *gin.RouterGroup, h *handlers.SyncHandler) {
	g.POST("/projects", h.Projects)
	g.POST("/tasks", h.Tasks)
	g.POST("/logs", h.Logs)
	g.POST("/settings", h.Settings)
	g.GET("/load", h.Load)
	g.POST("/all", h.All)
}

func registerAuthRoutes(api *gin.RouterGroup, h *handlers.AuthHandler, bearer gin.HandlerFunc) {
	api.POST("/auth/login", h.Login)
	api.POST("/auth/register", h.Register)
	api.POST("/auth/logout", h.Logout)
	api.GET("/auth/me", bearer, h.Me)
}
