package db

import (
	"context"
	"errors"
	"fmt"

	"Gin_postgres_redis_tool_ledger/ledger"
	"Gin_postgres_redis_tool_ledger/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// openIssues scopes a query to Issue rows that have not been returned.
func openIssues(tx *gorm.DB) *gorm.DB {
	return tx.Model(&models.ToolTransaction{}).
		Where("transaction_type = ? AND returned_date IS NULL", models.TxIssue)
}

// findOpenIssue returns the open issue for (tool, worker), or nil. With lock the candidate
// rows are held FOR UPDATE until the surrounding transaction ends.
func findOpenIssue(tx *gorm.DB, toolID, workerID uint, lock bool) (*models.ToolTransaction, error) {
	q := openIssues(tx).Where("tool_id = ? AND assigned_to_user_id = ?", toolID, workerID)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var rows []models.ToolTransaction
	if err := q.Order("transaction_date DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return ledger.LatestOpenIssue(rows, toolID, workerID), nil
}

// FindOpenIssue returns the worker's open issue of the tool, or nil when they do not hold it.
func (r *Repo) FindOpenIssue(ctx context.Context, toolID, workerID uint) (*models.ToolTransaction, error) {
	return findOpenIssue(r.DB.WithContext(ctx), toolID, workerID, false)
}

func countOpenIssuesForTool(tx *gorm.DB, toolID uint) (int64, error) {
	var n int64
	err := openIssues(tx).Where("tool_id = ?", toolID).Count(&n).Error
	return n, err
}

// ensureRemovable fails with ErrConflict while the tool is still issued. Both removal paths,
// DeleteTool and a complete WriteOffTool, go through it.
func ensureRemovable(tx *gorm.DB, toolID uint) error {
	n, err := countOpenIssuesForTool(tx, toolID)
	if err != nil {
		return err
	}
	if !ledger.CanRemoveTool(n) {
		return fmt.Errorf("%w: tool %d has %d open issue(s); return it first", ErrConflict, toolID, n)
	}
	return nil
}

// CanRemoveTool reports whether the tool may be deleted or fully written off.
func (r *Repo) CanRemoveTool(ctx context.Context, toolID uint) (bool, error) {
	err := ensureRemovable(r.DB.WithContext(ctx), toolID)
	if errors.Is(err, ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// listOpenIssues returns every open issue, optionally for one assignee, newest first.
func listOpenIssues(tx *gorm.DB, assigneeID *uint) ([]models.ToolTransaction, error) {
	q := openIssues(tx)
	if assigneeID != nil {
		q = q.Where("assigned_to_user_id = ?", *assigneeID)
	}
	var rows []models.ToolTransaction
	err := q.Order("transaction_date DESC, id DESC").Find(&rows).Error
	return rows, err
}
