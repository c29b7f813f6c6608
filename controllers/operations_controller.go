// controllers/operations_controller.go
package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"Gin_postgres_redis_tool_ledger/app"
	"Gin_postgres_redis_tool_ledger/db"
	"Gin_postgres_redis_tool_ledger/metrics"
	"Gin_postgres_redis_tool_ledger/models"

	"github.com/gin-gonic/gin"
)

type OperationsController struct{ *Srv }

func NewOperationsController(s *Srv) *OperationsController { return &OperationsController{Srv: s} }

func recordOp(op string, err error) {
	switch {
	case err == nil:
		metrics.RecordOperation(op, metrics.ResultOK)
	case errors.Is(err, db.ErrValidation), errors.Is(err, db.ErrNotFound), errors.Is(err, db.ErrConflict):
		metrics.RecordOperation(op, metrics.ResultRejected)
	default:
		metrics.RecordOperation(op, metrics.ResultError)
	}
}

func defaultQuantity(q int) int {
	if q == 0 {
		return 1
	}
	return q
}

type IssueReq struct {
	ToolID             uint       `json:"toolId" binding:"required"`
	WorkerID           uint       `json:"workerId" binding:"required"`
	IssuedByID         *uint      `json:"issuedById"`
	Quantity           int        `json:"quantity"`
	Notes              string     `json:"notes"`
	ExpectedReturnDate *time.Time `json:"expectedReturnDate"`
}

// POST /api/operations/issue
func (oc *OperationsController) Issue(c *gin.Context) {
	var req IssueReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := oc.Repo.IssueTool(c.Request.Context(), db.IssueInput{
		ToolID:             req.ToolID,
		WorkerID:           req.WorkerID,
		IssuedByID:         actorOr(c, req.IssuedByID),
		Quantity:           defaultQuantity(req.Quantity),
		Notes:              req.Notes,
		ExpectedReturnDate: req.ExpectedReturnDate,
	})
	recordOp("issue", err)
	if err != nil {
		respondError(c, oc.Log, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{
		"transactionId": res.Transaction.ID,
		"toolName":      res.ToolName,
		"workerName":    res.WorkerName,
		"issuedByName":  res.IssuedByName,
	})
}

type ReturnReq struct {
	ToolID       uint   `json:"toolId" binding:"required"`
	WorkerID     uint   `json:"workerId" binding:"required"`
	ReturnedByID *uint  `json:"returnedById"`
	Condition    string `json:"condition" binding:"omitempty,oneof=good worn broken lost"`
	Notes        string `json:"notes"`
}

// POST /api/operations/return
func (oc *OperationsController) Return(c *gin.Context) {
	var req ReturnReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := oc.Repo.ReturnTool(c.Request.Context(), db.ReturnInput{
		ToolID:       req.ToolID,
		WorkerID:     req.WorkerID,
		ReturnedByID: actorOr(c, req.ReturnedByID),
		Condition:    req.Condition,
		Notes:        req.Notes,
	})
	recordOp("return", err)
	if err != nil {
		respondError(c, oc.Log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"transactionId": res.Transaction.ID,
		"returnedDate":  res.Issue.ReturnedDate,
	})
}

type ReceiveReq struct {
	ToolID            *uint  `json:"toolId"`
	Article           string `json:"article"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	StorageLocationID uint   `json:"storageLocationId"`
	ReceivedByID      *uint  `json:"receivedById"`
	Quantity          int    `json:"quantity"`
	Notes             string `json:"notes"`
}

// POST /api/operations/receive
func (oc *OperationsController) Receive(c *gin.Context) {
	var req ReceiveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := oc.Repo.ReceiveTool(c.Request.Context(), db.ReceiveInput{
		ToolID:            req.ToolID,
		Article:           req.Article,
		Name:              req.Name,
		Description:       req.Description,
		StorageLocationID: req.StorageLocationID,
		ReceivedByID:      actorOr(c, req.ReceivedByID),
		Quantity:          defaultQuantity(req.Quantity),
		Notes:             req.Notes,
	})
	recordOp("receive", err)
	if err != nil {
		respondError(c, oc.Log, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"transactionId": res.Transaction.ID, "tool": res.Tool})
}

type WriteOffReq struct {
	UserID             *uint  `json:"userId"`
	Quantity           int    `json:"quantity"`
	Reason             string `json:"reason"`
	Notes              string `json:"notes"`
	WriteOffCompletely *bool  `json:"writeOffCompletely"`
}

// POST /api/tools/:id/writeoff
func (oc *OperationsController) WriteOff(c *gin.Context) {
	toolID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req WriteOffReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	completely := true
	if req.WriteOffCompletely != nil {
		completely = *req.WriteOffCompletely
	}
	t, err := oc.Repo.WriteOffTool(c.Request.Context(), db.WriteOffInput{
		ToolID:     toolID,
		UserID:     actorOr(c, req.UserID),
		Quantity:   defaultQuantity(req.Quantity),
		Reason:     req.Reason,
		Notes:      req.Notes,
		Completely: completely,
	})
	recordOp("writeoff", err)
	if err != nil {
		respondError(c, oc.Log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"transactionId": t.ID})
}

// GET /api/operations/active
func (oc *OperationsController) ActiveIssues(c *gin.Context) {
	rows, err := oc.Repo.ActiveIssues(c.Request.Context())
	if err != nil {
		respondError(c, oc.Log, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GET /api/operations/stats
func (oc *OperationsController) Stats(c *gin.Context) {
	s, err := oc.Repo.Stats(c.Request.Context())
	if err != nil {
		respondError(c, oc.Log, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// GET /api/operations/transactions/recent?limit=N
func (oc *OperationsController) Recent(c *gin.Context) {
	limit := db.DefaultRecentLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			badRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}
	rows, err := oc.Repo.RecentTransactions(c.Request.Context(), limit)
	if err != nil {
		respondError(c, oc.Log, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GET /api/operations/user/:id/active
// workers only see their own tools
func (oc *OperationsController) UserActiveTools(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if a, _ := app.ActorFrom(c); a.Role == models.RoleWorker && a.UserID != userID {
		c.JSON(http.StatusForbidden, app.H{"error": "forbidden"})
		return
	}
	rows, err := oc.Repo.UserActiveTools(c.Request.Context(), userID)
	if err != nil {
		respondError(c, oc.Log, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
