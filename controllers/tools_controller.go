package controllers

import (
	"net/http"
	"strconv"

	"Gin_postgres_redis_tool_ledger/app"
	"Gin_postgres_redis_tool_ledger/db"
	"Gin_postgres_redis_tool_ledger/models"

	"github.com/gin-gonic/gin"
)

type ToolController struct{ *Srv }

func NewToolController(s *Srv) *ToolController { return &ToolController{Srv: s} }

// GET /api/tools?q=&locationId=
func (tc *ToolController) List(c *gin.Context) {
	q := db.ListToolsQuery{Q: c.Query("q")}
	if v := c.Query("locationId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			badRequest(c, "invalid locationId")
			return
		}
		q.LocationID = uint(id)
	}
	tools, err := tc.Repo.ListTools(c.Request.Context(), q)
	if err != nil {
		respondError(c, tc.Log, err)
		return
	}
	c.JSON(http.StatusOK, tools)
}

func (tc *ToolController) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	t, err := tc.Repo.GetTool(c.Request.Context(), id)
	if err != nil {
		respondError(c, tc.Log, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type toolReq struct {
	Article           string `json:"article" binding:"required"`
	Name              string `json:"name" binding:"required"`
	Description       string `json:"description"`
	StorageLocationID uint   `json:"storageLocationId" binding:"required"`
}

func (tc *ToolController) Create(c *gin.Context) {
	var req toolReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	t := &models.Tool{
		Article:           req.Article,
		Name:              req.Name,
		Description:       req.Description,
		StorageLocationID: req.StorageLocationID,
	}
	if err := tc.Repo.CreateTool(c.Request.Context(), t); err != nil {
		respondError(c, tc.Log, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

type toolPatchReq struct {
	Article           *string `json:"article"`
	Name              *string `json:"name"`
	Description       *string `json:"description"`
	StorageLocationID *uint   `json:"storageLocationId"`
}

// PUT/PATCH /api/tools/:id, only the fields present are changed.
func (tc *ToolController) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req toolPatchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	t, err := tc.Repo.UpdateTool(c.Request.Context(), id, db.ToolPatch{
		Article:           req.Article,
		Name:              req.Name,
		Description:       req.Description,
		StorageLocationID: req.StorageLocationID,
	})
	if err != nil {
		respondError(c, tc.Log, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (tc *ToolController) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := tc.Repo.DeleteTool(c.Request.Context(), id); err != nil {
		respondError(c, tc.Log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/tools/:id/history
func (tc *ToolController) History(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	rows, err := tc.Repo.ToolHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, tc.Log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"toolId": id, "transactions": rows})
}
