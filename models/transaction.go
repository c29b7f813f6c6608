// models/transaction.go
package models

import "time"

const TransactionTable = "tool_transactions"

// Transaction types
const (
	TxReceipt  = "Receipt"
	TxIssue    = "Issue"
	TxReturn   = "Return"
	TxWriteOff = "WriteOff"
)

// Return conditions
const (
	ConditionGood   = "good"
	ConditionWorn   = "worn"
	ConditionBroken = "broken"
	ConditionLost   = "lost"
)

// ToolTransaction is one ledger row. Rows are never deleted; an Issue row is the only one that
// is updated, once, when it gets closed by a Return.
//
// ToolID, UserID and AssignedToUserID are weak references: the referenced tool or user may
// have been removed since, so the display fields are snapshotted at insert time.
type ToolTransaction struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	ToolID               uint       `gorm:"index;not null" json:"toolId"`
	UserID               uint       `gorm:"index;not null" json:"userId"`
	AssignedToUserID     *uint      `gorm:"index" json:"assignedToUserId,omitempty"`
	TransactionType      string     `gorm:"size:50;index;not null" json:"transactionType"`
	TransactionDate      time.Time  `gorm:"index;not null" json:"transactionDate"`
	ExpectedReturnDate   *time.Time `json:"expectedReturnDate,omitempty"`
	ReturnedDate         *time.Time `gorm:"index" json:"returnedDate,omitempty"`
	Quantity             int        `gorm:"not null;default:1" json:"quantity"`
	Notes                string     `gorm:"size:1000" json:"notes"`
	ReturnNotes          string     `gorm:"size:1000" json:"returnNotes"`
	Condition            string     `gorm:"size:50" json:"condition"`
	RelatedTransactionID *uint      `json:"relatedTransactionId,omitempty"`

	ToolArticle    string `gorm:"size:50" json:"toolArticle"`
	ToolName       string `gorm:"size:100" json:"toolName"`
	ActorName      string `gorm:"size:200" json:"actorName"`
	AssignedToName string `gorm:"size:200" json:"assignedToName,omitempty"`
}

func (ToolTransaction) TableName() string { return TransactionTable }

// IsOpenIssue reports whether the row marks a tool as currently held.
func (t *ToolTransaction) IsOpenIssue() bool {
	return t.TransactionType == TxIssue && t.ReturnedDate == nil
}
