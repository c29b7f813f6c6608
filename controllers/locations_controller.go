package controllers

import (
	"net/http"

	"Gin_postgres_redis_tool_ledger/models"

	"github.com/gin-gonic/gin"
)

type LocationController struct{ *Srv }

func NewLocationController(s *Srv) *LocationController { return &LocationController{Srv: s} }

type locationReq struct {
	Type    string `json:"type" binding:"required"`
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

func (r locationReq) model() models.StorageLocation {
	return models.StorageLocation{Type: r.Type, Name: r.Name, Address: r.Address}
}

func (lc *LocationController) List(c *gin.Context) {
	ls, err := lc.Repo.ListLocations(c.Request.Context())
	if err != nil {
		respondError(c, lc.Log, err)
		return
	}
	c.JSON(http.StatusOK, ls)
}

// GET /api/storagelocations/types
func (lc *LocationController) Types(c *gin.Context) {
	c.JSON(http.StatusOK, models.LocationTypes)
}

func (lc *LocationController) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	l, err := lc.Repo.GetLocation(c.Request.Context(), id)
	if err != nil {
		respondError(c, lc.Log, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (lc *LocationController) Create(c *gin.Context) {
	var req locationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	l := req.model()
	if err := lc.Repo.CreateLocation(c.Request.Context(), &l); err != nil {
		respondError(c, lc.Log, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

func (lc *LocationController) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req locationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	l, err := lc.Repo.UpdateLocation(c.Request.Context(), id, req.model())
	if err != nil {
		respondError(c, lc.Log, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

// DELETE /api/storagelocations/:id, 409 with toolsCount while tools are stored there.
func (lc *LocationController) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := lc.Repo.DeleteLocation(c.Request.Context(), id); err != nil {
		respondError(c, lc.Log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
