package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"Gin_postgres_redis_tool_ledger/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Repo struct {
	DB *gorm.DB
	// Now is the ledger clock. Stored times are UTC with microsecond precision.
	Now func() time.Time
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{DB: db, Now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }}
}

// Users

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Repo) CreateUser(ctx context.Context, u *models.User, password string) error {
	u.Username = strings.TrimSpace(u.Username)
	if u.Username == "" || password == "" || strings.TrimSpace(u.FullName) == "" {
		return fmt.Errorf("%w: username, password and full name are required", ErrValidation)
	}
	if !models.ValidRole(u.Role) {
		return fmt.Errorf("%w: unknown role %q", ErrValidation, u.Role)
	}
	var n int64
	if err := r.DB.WithContext(ctx).Model(&models.User{}).Where("username = ?", u.Username).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: username %q is taken", ErrConflict, u.Username)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return r.DB.WithContext(ctx).Create(u).Error
}

// Authenticate checks a username/password pair.
func (r *Repo) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	u, err := r.FindUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (r *Repo) TouchUserLogin(ctx context.Context, userID uint) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_login_at", r.Now()).Error
}

func (r *Repo) TouchUserSeen(ctx context.Context, userID uint) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_seen_at", r.Now()).Error
}

func (r *Repo) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser is FindUserByID with not-found mapped to ErrNotFound.
func (r *Repo) GetUser(ctx context.Context, id uint) (*models.User, error) {
	u, err := r.FindUserByID(ctx, id)
	if err != nil {
		return nil, missing(err, ErrNotFound, "user", id)
	}
	return u, nil
}

func (r *Repo) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers pages through users filtered by keyword and role.
type ListUsersResult struct {
	Users []models.User `json:"users"`
	Total int64         `json:"total"`
}

func (r *Repo) ListUsers(ctx context.Context, q, role string, page, size int) (ListUsersResult, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 500 {
		size = 100
	}

	tx := r.DB.WithContext(ctx).Model(&models.User{})
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		tx = tx.Where("LOWER(username) LIKE ? OR LOWER(full_name) LIKE ?", like, like)
	}
	if role != "" {
		tx = tx.Where("role = ?", role)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return ListUsersResult{}, err
	}

	var users []models.User
	if err := tx.
		Order("full_name ASC, id ASC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&users).Error; err != nil {
		return ListUsersResult{}, err
	}
	return ListUsersResult{Users: users, Total: total}, nil
}

type UserPatch struct {
	FullName *string
	Email    *string
	Role     *string
	Password *string
}

func (r *Repo) UpdateUser(ctx context.Context, id uint, p UserPatch) (*models.User, error) {
	u, err := r.FindUserByID(ctx, id)
	if err != nil {
		return nil, missing(err, ErrNotFound, "user", id)
	}
	updates := map[string]any{}
	if p.FullName != nil && strings.TrimSpace(*p.FullName) != "" {
		updates["full_name"] = strings.TrimSpace(*p.FullName)
	}
	if p.Email != nil {
		updates["email"] = strings.TrimSpace(*p.Email)
	}
	if p.Role != nil && *p.Role != "" {
		if !models.ValidRole(*p.Role) {
			return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, *p.Role)
		}
		updates["role"] = *p.Role
	}
	if p.Password != nil && *p.Password != "" {
		hash, err := HashPassword(*p.Password)
		if err != nil {
			return nil, err
		}
		updates["password_hash"] = hash
	}
	if len(updates) == 0 {
		return u, nil
	}
	if err := r.DB.WithContext(ctx).Model(u).Updates(updates).Error; err != nil {
		return nil, err
	}
	return r.FindUserByID(ctx, id)
}

// DeleteUserByID removes an account. The acting user cannot delete itself, and a user who
// still holds tools cannot be deleted. Ledger rows keep their name snapshots.
func (r *Repo) DeleteUserByID(ctx context.Context, id, actingUserID uint) error {
	if id == actingUserID {
		return fmt.Errorf("%w: cannot delete yourself", ErrValidation)
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.First(&u, "id = ?", id).Error; err != nil {
			return missing(err, ErrNotFound, "user", id)
		}
		var held int64
		if err := openIssues(tx).Where("assigned_to_user_id = ?", id).Count(&held).Error; err != nil {
			return err
		}
		if held > 0 {
			return fmt.Errorf("%w: user %d still holds %d tool(s)", ErrConflict, id, held)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Credential{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	})
}

// Credentials

func (r *Repo) AddCredential(ctx context.Context, c *models.Credential) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *Repo) LoadUserCredentials(ctx context.Context, userID uint) ([]models.Credential, error) {
	var cs []models.Credential
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&cs).Error; err != nil {
		return nil, err
	}
	return cs, nil
}

func (r *Repo) UpdateCredentialCounter(ctx context.Context, credID []byte, newCount uint32, cloneWarn bool) error {
	return r.DB.WithContext(ctx).Model(&models.Credential{}).
		Where("credential_id = ?", credID).
		Updates(map[string]any{
			"sign_count":    newCount,
			"clone_warning": cloneWarn,
			"last_used_at":  r.Now(),
		}).Error
}

func (r *Repo) FindUserByCredentialID(ctx context.Context, credID []byte) (*models.User, *models.Credential, error) {
	var c models.Credential
	if err := r.DB.WithContext(ctx).Where("credential_id = ?", credID).First(&c).Error; err != nil {
		return nil, nil, err
	}
	u, err := r.FindUserByID(ctx, c.UserID)
	if err != nil {
		return nil, nil, err
	}
	return u, &c, nil
}
