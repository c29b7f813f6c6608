package routes

import (
	"net/http"
	"time"

	"Gin_postgres_redis_tool_ledger/app"
	"Gin_postgres_redis_tool_ledger/controllers"
	"Gin_postgres_redis_tool_ledger/metrics"
	"Gin_postgres_redis_tool_ledger/models"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// controllers
	s := controllers.GetSrv(a)
	uc := controllers.GetUserController(s)
	opCtl := controllers.NewOperationsController(s)
	toolCtl := controllers.NewToolController(s)
	locCtl := controllers.NewLocationController(s)

	// shared middleware
	authMW := app.AuthRequired(s.AppSess, s.Repo)
	seenMW := app.TouchLastSeen(s.Repo, a.RDB, 5*time.Minute)
	staff := app.RequireRoles(models.RoleStorekeeper, models.RoleAdmin)
	adminOnly := app.RequireRoles(models.RoleAdmin)
	health := controllers.Health(a.DB, a.RDB)

	r.GET("/healthz", health)
	r.GET("/metrics", metrics.Handler())
	r.NoRoute(func(c *app.Ctx) { c.JSON(http.StatusNotFound, app.H{"error": "route not found"}) })

	api := r.Group("/api")

	// ------------------------------
	// auth (public and signed in)
	// ------------------------------
	auth := api.Group("/auth")
	{
		auth.POST("/login", s.Login)
		auth.GET("/health", health)
	}
	authed := auth.Group("", authMW, seenMW)
	{
		authed.POST("/logout", s.Logout)
		authed.GET("/me", s.Me)
	}

	wa := api.Group("/webauthn")
	{
		wa.POST("/login/begin", s.BeginLogin)
		wa.POST("/login/finish", s.FinishLogin)
	}

	// signed-in users add passkeys
	creds := api.Group("/credentials", authMW, seenMW)
	{
		creds.POST("/add/begin", s.BeginAddCredential)
		creds.POST("/add/finish", s.FinishAddCredential)
	}

	// ------------------------------
	// ledger operations
	// ------------------------------
	ops := api.Group("/operations", authMW, seenMW)
	{
		ops.POST("/issue", staff, opCtl.Issue)
		ops.POST("/return", staff, opCtl.Return)
		ops.POST("/receive", staff, opCtl.Receive)

		ops.GET("/active", opCtl.ActiveIssues)
		ops.GET("/stats", opCtl.Stats)
		ops.GET("/transactions/recent", opCtl.Recent) // ?limit=
		ops.GET("/user/:id/active", opCtl.UserActiveTools)
	}

	// ------------------------------
	// tools
	// ------------------------------
	tools := api.Group("/tools", authMW, seenMW)
	{
		tools.GET("", toolCtl.List) // ?q=&locationId=
		tools.GET("/:id", toolCtl.Get)
		tools.GET("/:id/history", toolCtl.History)

		tools.POST("", staff, toolCtl.Create)
		tools.PUT("/:id", staff, toolCtl.Update)
		tools.PATCH("/:id", staff, toolCtl.Update)
		tools.DELETE("/:id", staff, toolCtl.Delete)
		tools.POST("/:id/writeoff", staff, opCtl.WriteOff)
	}

	// ------------------------------
	// storage locations
	// ------------------------------
	locs := api.Group("/storagelocations", authMW, seenMW)
	{
		locs.GET("", locCtl.List)
		locs.GET("/types", locCtl.Types)
		locs.GET("/:id", locCtl.Get)

		locs.POST("", staff, locCtl.Create)
		locs.PUT("/:id", staff, locCtl.Update)
		locs.DELETE("/:id", staff, locCtl.Delete)
	}

	// ------------------------------
	// user admin
	// ------------------------------
	users := api.Group("/users", authMW, seenMW)
	{
		users.GET("", staff, uc.ListUsers) // ?q=&role=&page=&size=
		users.GET("/roles", staff, uc.Roles)
		users.GET("/:id", staff, uc.GetUser)

		users.POST("/register", adminOnly, uc.Register)
		users.PUT("/:id", adminOnly, uc.UpdateUser)
		users.DELETE("/:id", adminOnly, uc.DeleteUser)
	}
}
