package models

import (
	"time"
)

const UserTable = "users"

// Roles
const (
	RoleAdmin       = "Admin"
	RoleStorekeeper = "Storekeeper"
	RoleWorker      = "Worker"
)

// User is an account of one of the three roles. PasswordHash is a bcrypt hash.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"uniqueIndex;size:100;not null" json:"username"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	FullName     string `gorm:"size:200;not null" json:"fullName"`
	Email        string `gorm:"size:255" json:"email,omitempty"`
	Role         string `gorm:"size:20;index;not null" json:"role"`

	LastLoginAt *time.Time `gorm:"index" json:"lastLoginAt,omitempty"`
	LastSeenAt  *time.Time `json:"lastSeenAt,omitempty"`
	CreatedAt   time.Time  `json:"createdDate"`
	UpdatedAt   time.Time  `json:"-"`

	Credentials []Credential `json:"-"`
}

func (User) TableName() string { return UserTable }

// IsRole reports whether the user has any of the given roles.
func (u *User) IsRole(roles ...string) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleStorekeeper || role == RoleWorker
}

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID   uint
	Username string
	FullName string
	Role     string
}

func (a Actor) Can(roles ...string) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// Credential is one registered passkey.
// CredentialID and PublicKey are raw bytes (bytea on Postgres).
type Credential struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"index;not null" json:"userId"`
	CredentialID    []byte    `gorm:"uniqueIndex" json:"credentialId"`
	PublicKey       []byte    `json:"publicKey"`
	AttestationType string    `gorm:"size:64" json:"attestationType"`
	AAGUID          []byte    `json:"aaguid"`
	SignCount       uint32    `json:"signCount"`
	CloneWarning    bool      `json:"cloneWarning"`
	BackupEligible  bool      `json:"backupEligible"`
	BackupState     bool      `json:"backupState"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`

	LastUsedAt *time.Time `gorm:"index" json:"lastUsedAt,omitempty"`
}

func (Credential) TableName() string { return "user_credentials" }
