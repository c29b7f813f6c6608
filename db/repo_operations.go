package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"Gin_postgres_redis_tool_ledger/ledger"
	"Gin_postgres_redis_tool_ledger/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userWithRole loads a user and checks the role; label names the check in the error.
func userWithRole(tx *gorm.DB, id uint, label string, roles ...string) (*models.User, error) {
	var u models.User
	if err := tx.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s %d not found", ErrValidation, label, id)
		}
		return nil, err
	}
	if !u.IsRole(roles...) {
		return nil, fmt.Errorf("%w: %s %d must have role %s", ErrValidation, label, id, strings.Join(roles, " or "))
	}
	return &u, nil
}

func lockTool(tx *gorm.DB, id uint) (*models.Tool, error) {
	var t models.Tool
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC().Truncate(time.Microsecond)
	return &u
}

// duplicateIssue maps a unique-index violation on the open-issue index to a conflict.
func duplicateIssue(err error, toolID, workerID uint) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: tool %d is already issued to worker %d", ErrConflict, toolID, workerID)
	}
	return err
}

// Issue

type IssueInput struct {
	ToolID             uint
	WorkerID           uint
	IssuedByID         uint
	Quantity           int
	Notes              string
	ExpectedReturnDate *time.Time
}

type IssueResult struct {
	Transaction  models.ToolTransaction `json:"transaction"`
	ToolName     string                 `json:"toolName"`
	WorkerName   string                 `json:"workerName"`
	IssuedByName string                 `json:"issuedByName"`
}

// IssueTool hands a tool to a worker: lock tool → check roles → check no open issue → insert.
func (r *Repo) IssueTool(ctx context.Context, in IssueInput) (*IssueResult, error) {
	if in.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}
	now := r.Now()
	var res IssueResult
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tool, err := lockTool(tx, in.ToolID)
		if err != nil {
			return missing(err, ErrValidation, "tool", in.ToolID)
		}
		worker, err := userWithRole(tx, in.WorkerID, "worker", models.RoleWorker)
		if err != nil {
			return err
		}
		issuer, err := userWithRole(tx, in.IssuedByID, "issuer", models.RoleStorekeeper, models.RoleAdmin)
		if err != nil {
			return err
		}

		open, err := findOpenIssue(tx, tool.ID, worker.ID, true)
		if err != nil {
			return err
		}
		if open != nil {
			return fmt.Errorf("%w: tool %d is already issued to worker %d (transaction %d)", ErrConflict, tool.ID, worker.ID, open.ID)
		}

		t := models.ToolTransaction{
			ToolID:             tool.ID,
			UserID:             issuer.ID,
			AssignedToUserID:   &worker.ID,
			TransactionType:    models.TxIssue,
			TransactionDate:    now,
			ExpectedReturnDate: utcPtr(in.ExpectedReturnDate),
			Quantity:           in.Quantity,
			Notes:              in.Notes,
			ToolArticle:        tool.Article,
			ToolName:           tool.Name,
			ActorName:          issuer.FullName,
			AssignedToName:     worker.FullName,
		}
		if err := tx.Create(&t).Error; err != nil {
			return duplicateIssue(err, tool.ID, worker.ID)
		}
		res = IssueResult{Transaction: t, ToolName: tool.Name, WorkerName: worker.FullName, IssuedByName: issuer.FullName}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Return

type ReturnInput struct {
	ToolID       uint
	WorkerID     uint
	ReturnedByID uint
	Condition    string
	Notes        string
}

type ReturnResult struct {
	Transaction models.ToolTransaction `json:"transaction"`
	Issue       models.ToolTransaction `json:"issue"`
}

// ReturnTool closes the worker's open issue in place and appends a Return row pointing at it.
func (r *Repo) ReturnTool(ctx context.Context, in ReturnInput) (*ReturnResult, error) {
	cond := strings.TrimSpace(in.Condition)
	if cond == "" {
		cond = models.ConditionGood
	}
	if !ledger.ValidCondition(cond) {
		return nil, fmt.Errorf("%w: unknown condition %q", ErrValidation, cond)
	}
	now := r.Now()
	var res ReturnResult
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		issue, err := findOpenIssue(tx, in.ToolID, in.WorkerID, true)
		if err != nil {
			return err
		}
		if issue == nil {
			return fmt.Errorf("%w: no open issue of tool %d to worker %d", ErrConflict, in.ToolID, in.WorkerID)
		}
		receiver, err := userWithRole(tx, in.ReturnedByID, "receiver", models.RoleStorekeeper, models.RoleAdmin)
		if err != nil {
			return err
		}

		// conditional update, only one concurrent return can win
		upd := tx.Model(&models.ToolTransaction{}).
			Where("id = ? AND returned_date IS NULL", issue.ID).
			Updates(map[string]any{
				"returned_date": now,
				"return_notes":  in.Notes,
				"condition":     cond,
			})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return fmt.Errorf("%w: issue %d was already closed", ErrConflict, issue.ID)
		}
		issue.ReturnedDate = &now
		issue.ReturnNotes = in.Notes
		issue.Condition = cond

		workerID := in.WorkerID
		ret := models.ToolTransaction{
			ToolID:               issue.ToolID,
			UserID:               receiver.ID,
			AssignedToUserID:     &workerID,
			TransactionType:      models.TxReturn,
			TransactionDate:      now,
			Quantity:             issue.Quantity,
			Notes:                ledger.ReturnNote(cond, in.Notes),
			ReturnNotes:          in.Notes,
			Condition:            cond,
			RelatedTransactionID: &issue.ID,
			ToolArticle:          issue.ToolArticle,
			ToolName:             issue.ToolName,
			ActorName:            receiver.FullName,
			AssignedToName:       issue.AssignedToName,
		}
		if err := tx.Create(&ret).Error; err != nil {
			return err
		}
		res = ReturnResult{Transaction: ret, Issue: *issue}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Write-off

type WriteOffInput struct {
	ToolID     uint
	UserID     uint
	Quantity   int
	Reason     string
	Notes      string
	Completely bool
}

// WriteOffTool logs a WriteOff and, when Completely, deletes the tool in the same transaction.
// The tool's history stays behind.
func (r *Repo) WriteOffTool(ctx context.Context, in WriteOffInput) (*models.ToolTransaction, error) {
	if in.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}
	now := r.Now()
	var t models.ToolTransaction
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tool, err := lockTool(tx, in.ToolID)
		if err != nil {
			return missing(err, ErrNotFound, "tool", in.ToolID)
		}
		actor, err := userWithRole(tx, in.UserID, "user", models.RoleStorekeeper, models.RoleAdmin)
		if err != nil {
			return err
		}
		if in.Completely {
			if err := ensureRemovable(tx, tool.ID); err != nil {
				return err
			}
		}

		t = models.ToolTransaction{
			ToolID:          tool.ID,
			UserID:          actor.ID,
			TransactionType: models.TxWriteOff,
			TransactionDate: now,
			Quantity:        in.Quantity,
			Notes:           ledger.WriteOffNote(in.Reason, in.Notes),
			ToolArticle:     tool.Article,
			ToolName:        tool.Name,
			ActorName:       actor.FullName,
		}
		if err := tx.Create(&t).Error; err != nil {
			return err
		}
		if in.Completely {
			return tx.Delete(&models.Tool{}, tool.ID).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Receive

type ReceiveInput struct {
	// ToolID restocks an existing tool; when nil a new tool is created from the fields below.
	ToolID            *uint
	Article           string
	Name              string
	Description       string
	StorageLocationID uint
	ReceivedByID      uint
	Quantity          int
	Notes             string
}

type ReceiveResult struct {
	Transaction models.ToolTransaction `json:"transaction"`
	Tool        models.Tool            `json:"tool"`
}

// ReceiveTool creates or restocks the tool and logs the Receipt as one unit. A restock with a
// StorageLocationID moves the tool to that location.
func (r *Repo) ReceiveTool(ctx context.Context, in ReceiveInput) (*ReceiveResult, error) {
	if in.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}
	now := r.Now()
	var res ReceiveResult
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		receiver, err := userWithRole(tx, in.ReceivedByID, "receiver", models.RoleStorekeeper, models.RoleAdmin)
		if err != nil {
			return err
		}

		var tool *models.Tool
		if in.ToolID != nil {
			if tool, err = lockTool(tx, *in.ToolID); err != nil {
				return missing(err, ErrNotFound, "tool", *in.ToolID)
			}
			// a restock into another location moves the tool there
			if in.StorageLocationID != 0 && in.StorageLocationID != tool.StorageLocationID {
				if err := locationExists(tx, in.StorageLocationID); err != nil {
					return err
				}
				if err := tx.Model(tool).Update("storage_location_id", in.StorageLocationID).Error; err != nil {
					return err
				}
				tool.StorageLocationID = in.StorageLocationID
			}
		} else {
			tool = &models.Tool{
				Article:           strings.TrimSpace(in.Article),
				Name:              strings.TrimSpace(in.Name),
				Description:       in.Description,
				StorageLocationID: in.StorageLocationID,
			}
			if err := createTool(tx, tool); err != nil {
				return err
			}
		}

		t := models.ToolTransaction{
			ToolID:          tool.ID,
			UserID:          receiver.ID,
			TransactionType: models.TxReceipt,
			TransactionDate: now,
			Quantity:        in.Quantity,
			Notes:           in.Notes,
			ToolArticle:     tool.Article,
			ToolName:        tool.Name,
			ActorName:       receiver.FullName,
		}
		if err := tx.Create(&t).Error; err != nil {
			return err
		}
		res = ReceiveResult{Transaction: t, Tool: *tool}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}
