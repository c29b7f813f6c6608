package app

import (
	"context"
	"fmt"
	"time"

	"Gin_postgres_redis_tool_ledger/config"
	"Gin_postgres_redis_tool_ledger/db"
	"Gin_postgres_redis_tool_ledger/metrics"
	"Gin_postgres_redis_tool_ledger/session"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// short aliases for handlers
type Ctx = gin.Context
type H = gin.H

// App bundles the process-wide dependencies.
type App struct {
	Router *gin.Engine
	DB     *gorm.DB
	RDB    *redis.Client
	WA     *webauthn.WebAuthn
	Log    *zap.Logger
	Repo   *db.Repo
	Config Config

	appSess    *session.AppSessionStore
	ceremonies *session.Store
}

// Config is read from the environment.
type Config struct {
	Port           string
	Env            string
	RedisAddr      string
	RedisPwd       string
	WebOrigin      string
	RPID           string
	RPOrigins      []string
	SessionTTL     time.Duration
	CeremonyTTL    time.Duration
	RequestTimeout time.Duration
	SeedDemo       bool
}

func (c Config) Development() bool { return c.Env == "development" }

func LoadConfig() Config {
	return Config{
		Port:           config.Get("PORT", "3001"),
		Env:            config.Get("APP_ENV", "production"),
		RedisAddr:      config.Get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPwd:       config.Get("REDIS_PASSWORD", ""),
		WebOrigin:      config.Get("WEB_ORIGIN", "http://localhost:5173"),
		RPID:           config.Get("RP_ID", "localhost"),
		RPOrigins:      config.GetList("RP_ORIGINS", "http://localhost:5173"),
		SessionTTL:     time.Duration(config.GetInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		CeremonyTTL:    5 * time.Minute,
		RequestTimeout: time.Duration(config.GetInt("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,
		SeedDemo:       config.GetBool("SEED_DEMO", false),
	}
}

// NewLogger: console output in development, JSON otherwise.
func NewLogger(cfg Config) (*zap.Logger, error) {
	if cfg.Development() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func (a *App) AppSessions() *session.AppSessionStore { return a.appSess }
func (a *App) Ceremonies() *session.Store            { return a.ceremonies }

// MustNew connects Postgres and Redis and builds the router. Any failure is fatal.
func MustNew(cfg Config, log *zap.Logger) *App {
	dbConn := db.ConnectDB(log)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("redis ping failed", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	a, err := New(cfg, log, dbConn, rdb)
	if err != nil {
		log.Fatal("init app", zap.Error(err))
	}
	return a
}

// New wires an App around existing connections.
func New(cfg Config, log *zap.Logger, dbConn *gorm.DB, rdb *redis.Client) (*App, error) {
	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: "Tool Ledger",
		RPID:          cfg.RPID,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("webauthn: %w", err)
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		RequestID(),
		Recovery(log),
		RequestLogger(log),
		metrics.Middleware(),
		gzip.Gzip(gzip.DefaultCompression),
	)
	useCORS(r, cfg.WebOrigin)
	r.Use(Timeout(cfg.RequestTimeout))

	return &App{
		Router: r, DB: dbConn, RDB: rdb, WA: wa, Log: log, Config: cfg,
		Repo:       db.NewRepo(dbConn),
		appSess:    session.NewAppSessionStore(rdb, cfg.SessionTTL),
		ceremonies: session.NewStore(rdb, cfg.CeremonyTTL),
	}, nil
}

func (a *App) Close() {
	_ = a.RDB.Close()
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.Log.Sync()
}
