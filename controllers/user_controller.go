package controllers

import (
	"net/http"
	"strconv"

	"Gin_postgres_redis_tool_ledger/app"
	"Gin_postgres_redis_tool_ledger/db"
	"Gin_postgres_redis_tool_ledger/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserController struct{ *Srv }

func GetUserController(s *Srv) *UserController { return &UserController{Srv: s} }

// GET /api/users?q=alice&role=Worker&page=1&size=20
func (uc *UserController) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "100"))

	role := c.Query("role")
	if role != "" && !models.ValidRole(role) {
		badRequest(c, "unknown role")
		return
	}
	res, err := uc.Repo.ListUsers(c.Request.Context(), c.Query("q"), role, page, size)
	if err != nil {
		respondError(c, uc.Log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/users/roles
func (uc *UserController) Roles(c *gin.Context) {
	c.JSON(http.StatusOK, []string{models.RoleAdmin, models.RoleStorekeeper, models.RoleWorker})
}

func (uc *UserController) GetUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	u, err := uc.Repo.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, uc.Log, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

type registerReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"omitempty,email"`
	Role     string `json:"role" binding:"required,oneof=Admin Storekeeper Worker"`
}

// POST /api/users/register
func (uc *UserController) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	u := &models.User{Username: req.Username, FullName: req.FullName, Email: req.Email, Role: req.Role}
	if err := uc.Repo.CreateUser(c.Request.Context(), u, req.Password); err != nil {
		respondError(c, uc.Log, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

type updateUserReq struct {
	FullName *string `json:"fullName"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	Password *string `json:"password" binding:"omitempty,min=6"`
}

// PUT /api/users/:id
func (uc *UserController) UpdateUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req updateUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	u, err := uc.Repo.UpdateUser(c.Request.Context(), id, db.UserPatch{
		FullName: req.FullName,
		Email:    req.Email,
		Role:     req.Role,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, uc.Log, err)
		return
	}
	// a new password invalidates old sessions
	if req.Password != nil && *req.Password != "" {
		if err := uc.AppSess.RevokeAllForUser(c.Request.Context(), id); err != nil {
			uc.Log.Warn("revoke sessions failed", zap.Uint("user_id", id), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, u)
}

// DELETE /api/users/:id
func (uc *UserController) DeleteUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	me, _ := app.ActorFrom(c)
	if err := uc.Repo.DeleteUserByID(c.Request.Context(), id, me.UserID); err != nil {
		respondError(c, uc.Log, err)
		return
	}
	// revoke every session of the deleted user
	if err := uc.AppSess.RevokeAllForUser(c.Request.Context(), id); err != nil {
		uc.Log.Warn("revoke sessions failed", zap.Uint("user_id", id), zap.Error(err))
	}
	c.Status(http.StatusNoContent)
}
