// Package ledger holds the rules that derive tool state from transaction history.
// Nothing here touches the database; callers pass rows and the current time in.
package ledger

import (
	"fmt"
	"time"

	"Gin_postgres_redis_tool_ledger/models"
)

const day = 24 * time.Hour

// IsOverdue reports whether t is an open issue whose expected return date is strictly before now.
func IsOverdue(t *models.ToolTransaction, now time.Time) bool {
	if t == nil || !t.IsOpenIssue() || t.ExpectedReturnDate == nil {
		return false
	}
	return t.ExpectedReturnDate.Before(now)
}

// DaysHeld returns whole days elapsed since the transaction, floored, never negative.
func DaysHeld(t *models.ToolTransaction, now time.Time) int {
	d := now.Sub(t.TransactionDate)
	if d < 0 {
		return 0
	}
	return int(d / day)
}

// Newer orders ledger rows newest first: by transaction date, then by id.
func Newer(a, b *models.ToolTransaction) bool {
	if !a.TransactionDate.Equal(b.TransactionDate) {
		return a.TransactionDate.After(b.TransactionDate)
	}
	return a.ID > b.ID
}

// LatestOpenIssue picks the open issue for (toolID, workerID) among rows, or nil.
func LatestOpenIssue(rows []models.ToolTransaction, toolID, workerID uint) *models.ToolTransaction {
	var best *models.ToolTransaction
	for i := range rows {
		r := &rows[i]
		if r.ToolID != toolID || !r.IsOpenIssue() || r.AssignedToUserID == nil || *r.AssignedToUserID != workerID {
			continue
		}
		if best == nil || Newer(r, best) {
			best = r
		}
	}
	return best
}

// DayBounds returns the UTC calendar day [start, end) containing now.
func DayBounds(now time.Time) (time.Time, time.Time) {
	u := now.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(day)
}

// CanRemoveTool reports whether a tool with the given number of open issues may be removed.
func CanRemoveTool(openIssues int64) bool { return openIssues == 0 }

// ValidCondition reports whether c is a known return condition.
func ValidCondition(c string) bool {
	switch c {
	case models.ConditionGood, models.ConditionWorn, models.ConditionBroken, models.ConditionLost:
		return true
	}
	return false
}

// ReturnNote formats the notes of a Return row.
func ReturnNote(condition, notes string) string {
	return fmt.Sprintf("Return. Condition: %s. Notes: %s", condition, notes)
}

// WriteOffNote formats the notes of a WriteOff row.
func WriteOffNote(reason, notes string) string {
	return fmt.Sprintf("Reason: %s. %s", reason, notes)
}

// Stats is the aggregate snapshot served by the stats endpoint.
type Stats struct {
	TotalTransactions int64 `json:"totalTransactions"`
	IssuesToday       int64 `json:"issuesToday"`
	ReturnsToday      int64 `json:"returnsToday"`
	ActiveIssues      int64 `json:"activeIssues"`
	OverdueIssues     int64 `json:"overdueIssues"`
}

// CountOpen fills ActiveIssues and OverdueIssues from the open-issue set.
func (s *Stats) CountOpen(open []models.ToolTransaction, now time.Time) {
	s.ActiveIssues = int64(len(open))
	s.OverdueIssues = 0
	for i := range open {
		if IsOverdue(&open[i], now) {
			s.OverdueIssues++
		}
	}
}
