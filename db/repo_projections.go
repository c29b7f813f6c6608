package db

import (
	"context"
	"time"

	"Gin_postgres_redis_tool_ledger/ledger"
	"Gin_postgres_redis_tool_ledger/models"

	"gorm.io/gorm"
)

const (
	DefaultRecentLimit = 10
	MaxRecentLimit     = 1000
)

type ToolRef struct {
	ID      uint   `json:"id"`
	Article string `json:"article"`
	Name    string `json:"name"`
}

type UserRef struct {
	ID       uint   `json:"id"`
	FullName string `json:"fullName"`
}

// displayNames resolves tool and user names for a batch of ledger rows. Live rows win; rows
// whose tool or user is gone fall back to the snapshot taken at insert time.
type displayNames struct {
	tools map[uint]models.Tool
	users map[uint]models.User
}

func loadDisplayNames(tx *gorm.DB, rows []models.ToolTransaction) (*displayNames, error) {
	toolIDs := make([]uint, 0, len(rows))
	userIDs := make([]uint, 0, len(rows)*2)
	for _, t := range rows {
		toolIDs = append(toolIDs, t.ToolID)
		userIDs = append(userIDs, t.UserID)
		if t.AssignedToUserID != nil {
			userIDs = append(userIDs, *t.AssignedToUserID)
		}
	}
	n := &displayNames{tools: map[uint]models.Tool{}, users: map[uint]models.User{}}
	if len(rows) == 0 {
		return n, nil
	}

	var tools []models.Tool
	if err := tx.Where("id IN ?", toolIDs).Find(&tools).Error; err != nil {
		return nil, err
	}
	for _, t := range tools {
		n.tools[t.ID] = t
	}
	var users []models.User
	if err := tx.Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		n.users[u.ID] = u
	}
	return n, nil
}

func (n *displayNames) tool(t *models.ToolTransaction) ToolRef {
	if live, ok := n.tools[t.ToolID]; ok {
		return ToolRef{ID: live.ID, Article: live.Article, Name: live.Name}
	}
	return ToolRef{ID: t.ToolID, Article: t.ToolArticle, Name: t.ToolName}
}

func (n *displayNames) actor(t *models.ToolTransaction) UserRef {
	if live, ok := n.users[t.UserID]; ok {
		return UserRef{ID: live.ID, FullName: live.FullName}
	}
	return UserRef{ID: t.UserID, FullName: t.ActorName}
}

func (n *displayNames) assignee(t *models.ToolTransaction) *UserRef {
	if t.AssignedToUserID == nil {
		return nil
	}
	id := *t.AssignedToUserID
	if live, ok := n.users[id]; ok {
		return &UserRef{ID: live.ID, FullName: live.FullName}
	}
	return &UserRef{ID: id, FullName: t.AssignedToName}
}

// Active issues

type ActiveIssueRow struct {
	TransactionID      uint       `json:"transactionId"`
	Tool               ToolRef    `json:"tool"`
	Worker             UserRef    `json:"worker"`
	IssuedBy           UserRef    `json:"issuedBy"`
	TransactionDate    time.Time  `json:"transactionDate"`
	ExpectedReturnDate *time.Time `json:"expectedReturnDate,omitempty"`
	Quantity           int        `json:"quantity"`
	Notes              string     `json:"notes"`
	DaysIssued         int        `json:"daysIssued"`
	IsOverdue          bool       `json:"isOverdue"`
}

// ActiveIssues lists every open issue newest first.
func (r *Repo) ActiveIssues(ctx context.Context) ([]ActiveIssueRow, error) {
	now := r.Now()
	db := r.DB.WithContext(ctx)
	open, err := listOpenIssues(db, nil)
	if err != nil {
		return nil, err
	}
	names, err := loadDisplayNames(db, open)
	if err != nil {
		return nil, err
	}

	out := make([]ActiveIssueRow, 0, len(open))
	for i := range open {
		t := &open[i]
		row := ActiveIssueRow{
			TransactionID:      t.ID,
			Tool:               names.tool(t),
			IssuedBy:           names.actor(t),
			TransactionDate:    t.TransactionDate,
			ExpectedReturnDate: t.ExpectedReturnDate,
			Quantity:           t.Quantity,
			Notes:              t.Notes,
			DaysIssued:         ledger.DaysHeld(t, now),
			IsOverdue:          ledger.IsOverdue(t, now),
		}
		if w := names.assignee(t); w != nil {
			row.Worker = *w
		}
		out = append(out, row)
	}
	return out, nil
}

// Stats

func (r *Repo) Stats(ctx context.Context) (*ledger.Stats, error) {
	now := r.Now()
	start, end := ledger.DayBounds(now)
	db := r.DB.WithContext(ctx)

	var s ledger.Stats
	if err := db.Model(&models.ToolTransaction{}).Count(&s.TotalTransactions).Error; err != nil {
		return nil, err
	}
	today := func(kind string, n *int64) error {
		return db.Model(&models.ToolTransaction{}).
			Where("transaction_type = ? AND transaction_date >= ? AND transaction_date < ?", kind, start, end).
			Count(n).Error
	}
	if err := today(models.TxIssue, &s.IssuesToday); err != nil {
		return nil, err
	}
	if err := today(models.TxReturn, &s.ReturnsToday); err != nil {
		return nil, err
	}

	open, err := listOpenIssues(db, nil)
	if err != nil {
		return nil, err
	}
	s.CountOpen(open, now)
	return &s, nil
}

// Tools held by one worker

type UserActiveTool struct {
	TransactionID      uint       `json:"transactionId"`
	ToolID             uint       `json:"toolId"`
	ToolName           string     `json:"toolName"`
	Article            string     `json:"article"`
	Quantity           int        `json:"quantity"`
	IssueDate          time.Time  `json:"issueDate"`
	ExpectedReturnDate *time.Time `json:"expectedReturnDate,omitempty"`
	IsOverdue          bool       `json:"isOverdue"`
}

func (r *Repo) UserActiveTools(ctx context.Context, userID uint) ([]UserActiveTool, error) {
	now := r.Now()
	db := r.DB.WithContext(ctx)
	open, err := listOpenIssues(db, &userID)
	if err != nil {
		return nil, err
	}
	names, err := loadDisplayNames(db, open)
	if err != nil {
		return nil, err
	}
	out := make([]UserActiveTool, 0, len(open))
	for i := range open {
		t := &open[i]
		ref := names.tool(t)
		out = append(out, UserActiveTool{
			TransactionID:      t.ID,
			ToolID:             t.ToolID,
			ToolName:           ref.Name,
			Article:            ref.Article,
			Quantity:           t.Quantity,
			IssueDate:          t.TransactionDate,
			ExpectedReturnDate: t.ExpectedReturnDate,
			IsOverdue:          ledger.IsOverdue(t, now),
		})
	}
	return out, nil
}

// Ledger views

type TransactionView struct {
	ID                   uint       `json:"id"`
	TransactionType      string     `json:"transactionType"`
	TransactionDate      time.Time  `json:"transactionDate"`
	Tool                 ToolRef    `json:"tool"`
	User                 UserRef    `json:"user"`
	AssignedTo           *UserRef   `json:"assignedTo,omitempty"`
	Quantity             int        `json:"quantity"`
	Notes                string     `json:"notes"`
	ExpectedReturnDate   *time.Time `json:"expectedReturnDate,omitempty"`
	ReturnedDate         *time.Time `json:"returnedDate,omitempty"`
	ReturnNotes          string     `json:"returnNotes,omitempty"`
	Condition            string     `json:"condition,omitempty"`
	RelatedTransactionID *uint      `json:"relatedTransactionId,omitempty"`
}

func toViews(tx *gorm.DB, rows []models.ToolTransaction) ([]TransactionView, error) {
	names, err := loadDisplayNames(tx, rows)
	if err != nil {
		return nil, err
	}
	out := make([]TransactionView, 0, len(rows))
	for i := range rows {
		t := &rows[i]
		out = append(out, TransactionView{
			ID:                   t.ID,
			TransactionType:      t.TransactionType,
			TransactionDate:      t.TransactionDate,
			Tool:                 names.tool(t),
			User:                 names.actor(t),
			AssignedTo:           names.assignee(t),
			Quantity:             t.Quantity,
			Notes:                t.Notes,
			ExpectedReturnDate:   t.ExpectedReturnDate,
			ReturnedDate:         t.ReturnedDate,
			ReturnNotes:          t.ReturnNotes,
			Condition:            t.Condition,
			RelatedTransactionID: t.RelatedTransactionID,
		})
	}
	return out, nil
}

// ClampRecentLimit applies the default and the upper bound to a requested page size.
func ClampRecentLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		return MaxRecentLimit
	}
	return limit
}

// RecentTransactions returns the newest ledger rows, ties broken by id.
func (r *Repo) RecentTransactions(ctx context.Context, limit int) ([]TransactionView, error) {
	db := r.DB.WithContext(ctx)
	var rows []models.ToolTransaction
	if err := db.Order("transaction_date DESC, id DESC").Limit(ClampRecentLimit(limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toViews(db, rows)
}

// ToolHistory returns all rows for a tool, newest first. Works for removed tools as well.
func (r *Repo) ToolHistory(ctx context.Context, toolID uint) ([]TransactionView, error) {
	db := r.DB.WithContext(ctx)
	var rows []models.ToolTransaction
	if err := db.Where("tool_id = ?", toolID).Order("transaction_date DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toViews(db, rows)
}
