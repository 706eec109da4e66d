package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/sharecal/server/api/rest"
	"github.com/sharecal/server/audit"
	"github.com/sharecal/server/cache"
	"github.com/sharecal/server/config"
	dbadapter "github.com/sharecal/server/db"
	"github.com/sharecal/server/friendship"
	mw "github.com/sharecal/server/middleware"
	"github.com/sharecal/server/model"
	"github.com/sharecal/server/schedule"
	"github.com/sharecal/server/scheduler"
	"github.com/sharecal/server/token"
	"github.com/sharecal/server/user"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}

	// ---- Services ----
	tokens := token.New(cfg.Security.JWTSecret, cfg.Security.AccessTokenTTL, cfg.Security.RefreshTokenTTL)
	users := user.New(db, tokens, logger)
	friends := friendship.New(db, pubsub, logger)
	schedules := schedule.New(db, logger)

	// ---- Middleware ----
	rateLimiter, pruneLimiters := mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst)

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()
	sched.AddTicker("audit-prune", cfg.Audit.PruneInterval, func() {
		auditSvc.PruneBefore(time.Now().Add(-cfg.Audit.Retention))
	})
	sched.AddTicker("ratelimit-prune", 10*time.Minute, pruneLimiters)

	// ---- HTTP ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(mw.TraceID())
	r.Use(mw.Logger(logger))
	r.Use(mw.Recovery(logger))
	r.Use(rateLimiter)
	r.Use(mw.Authenticate(tokens, db, c, cfg.Security.IdentityCacheTTL, logger))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	authH := apirest.NewAuthHandler(users, tokens, auditSvc)
	friendH := apirest.NewFriendHandler(friends, auditSvc)
	schedH := apirest.NewScheduleHandler(schedules)

	api := r.Group("/api")
	{
		usersG := api.Group("/users")
		usersG.POST("/signup", authH.Signup)
		usersG.POST("/login", authH.Login)
		usersG.POST("/token/refresh", authH.Refresh)

		friendsG := usersG.Group("/friends", mw.RequireUser())
		friendsG.POST("/request", friendH.SendRequest)
		friendsG.POST("/accept", friendH.Accept)
		friendsG.POST("/reject", friendH.Reject)
		friendsG.GET("", friendH.List)
		friendsG.GET("/requests/received", friendH.PendingReceived)
		friendsG.DELETE("", friendH.Remove)

		schedG := api.Group("/schedules", mw.RequireUser())
		schedG.POST("", schedH.Create)
		schedG.GET("/user", schedH.ListMine)
		schedG.GET("/friend", schedH.FriendSchedules)
		schedG.GET("/:id", schedH.Get)
		schedG.PUT("/:id", schedH.Update)
		schedG.DELETE("/:id", schedH.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
