// Package testutil builds hermetic test environments: an in-memory SQLite database migrated
// with the production schema, a miniredis instance, and the full gin router.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"Gin_postgres_redis_tool_ledger/app"
	"Gin_postgres_redis_tool_ledger/db"
	"Gin_postgres_redis_tool_ledger/models"
	"Gin_postgres_redis_tool_ledger/routes"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// TestEnv holds test environment resources
type TestEnv struct {
	DB     *gorm.DB
	Repo   *db.Repo
	App    *app.App
	Router *gin.Engine
	Redis  *miniredis.Miniredis
	Clock  *Clock
	T      *testing.T
}

// Clock is a settable time source for Repo.Now.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{now: t.UTC()} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t.UTC()
	c.mu.Unlock()
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// DefaultNow is the starting time of every test clock.
var DefaultNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

// SetupTestDB opens a private in-memory SQLite database with the production migrations.
// A single connection keeps every statement on the same database and serialises transactions.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:ledger_test_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", dbSeq.Add(1))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

// SetupRepo returns a repository over a fresh database driven by a test clock.
func SetupRepo(t *testing.T) (*db.Repo, *Clock) {
	t.Helper()
	clock := NewClock(DefaultNow)
	repo := db.NewRepo(SetupTestDB(t))
	repo.Now = clock.Now
	return repo, clock
}

// SetupRouter creates a gin engine in test mode.
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// Setup builds the full application (database, redis, router, routes).
func Setup(t *testing.T) *TestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn := SetupTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := app.Config{
		Port:           "0",
		Env:            "test",
		RedisAddr:      mr.Addr(),
		WebOrigin:      "http://localhost:5173",
		RPID:           "localhost",
		RPOrigins:      []string{"http://localhost:5173"},
		SessionTTL:     time.Hour,
		CeremonyTTL:    time.Minute,
		RequestTimeout: 10 * time.Second,
	}
	a, err := app.New(cfg, zap.NewNop(), conn, rdb)
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })

	clock := NewClock(DefaultNow)
	a.Repo.Now = clock.Now
	routes.RegisterRoutes(a.Router, a)

	return &TestEnv{DB: conn, Repo: a.Repo, App: a, Router: a.Router, Redis: mr, Clock: clock, T: t}
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse decodes a JSON object body.
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// ParseList decodes a JSON array body.
func ParseList(w *httptest.ResponseRecorder) []map[string]interface{} {
	var result []map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// Login authenticates through the API and returns the bearer token.
func (e *TestEnv) Login(username, password string) string {
	e.T.Helper()
	w := DoRequest(e.Router, http.MethodPost, "/api/auth/login",
		map[string]string{"username": username, "password": password}, "")
	if w.Code != http.StatusOK {
		e.T.Fatalf("login %s: %d %s", username, w.Code, w.Body.String())
	}
	tok, _ := ParseResponse(w)["token"].(string)
	return tok
}

// SeedUser creates a user whose password equals its username.
func SeedUser(t *testing.T, repo *db.Repo, username, role string) *models.User {
	t.Helper()
	u := &models.User{Username: username, FullName: "Full " + username, Role: role}
	if err := repo.CreateUser(context.Background(), u, username); err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}

func SeedLocation(t *testing.T, repo *db.Repo, name string) *models.StorageLocation {
	t.Helper()
	l := &models.StorageLocation{Type: "Warehouse", Name: name}
	if err := repo.CreateLocation(context.Background(), l); err != nil {
		t.Fatalf("seed location %s: %v", name, err)
	}
	return l
}

func SeedTool(t *testing.T, repo *db.Repo, article, name string, locationID uint) *models.Tool {
	t.Helper()
	tool := &models.Tool{Article: article, Name: name, StorageLocationID: locationID}
	if err := repo.CreateTool(context.Background(), tool); err != nil {
		t.Fatalf("seed tool %s: %v", article, err)
	}
	return tool
}

// Fixture is the standard cast: one admin, one storekeeper, two workers, a location and a tool.
type Fixture struct {
	Admin, Storekeeper, Worker, Worker2 *models.User
	Location                            *models.StorageLocation
	Tool                                *models.Tool
}

func SeedFixture(t *testing.T, repo *db.Repo) *Fixture {
	t.Helper()
	f := &Fixture{
		Admin:       SeedUser(t, repo, "admin", models.RoleAdmin),
		Storekeeper: SeedUser(t, repo, "keeper", models.RoleStorekeeper),
		Worker:      SeedUser(t, repo, "worker", models.RoleWorker),
		Worker2:     SeedUser(t, repo, "worker2", models.RoleWorker),
		Location:    SeedLocation(t, repo, "Main warehouse"),
	}
	f.Tool = SeedTool(t, repo, "DR-001", "Drill", f.Location.ID)
	return f
}
