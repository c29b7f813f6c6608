package db

import (
	"context"
	"fmt"
	"strings"

	"Gin_postgres_redis_tool_ledger/models"

	"gorm.io/gorm"
)

func locationExists(tx *gorm.DB, id uint) error {
	var n int64
	if err := tx.Model(&models.StorageLocation{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: storage location %d not found", ErrValidation, id)
	}
	return nil
}

// createTool validates and inserts t within tx.
func createTool(tx *gorm.DB, t *models.Tool) error {
	if t.Article == "" || t.Name == "" {
		return fmt.Errorf("%w: article and name are required", ErrValidation)
	}
	if err := locationExists(tx, t.StorageLocationID); err != nil {
		return err
	}
	return tx.Create(t).Error
}

type ListToolsQuery struct {
	Q          string // article / name
	LocationID uint
}

func (r *Repo) ListTools(ctx context.Context, q ListToolsQuery) ([]models.Tool, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Tool{})
	if s := strings.TrimSpace(q.Q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("LOWER(article) LIKE ? OR LOWER(name) LIKE ?", like, like)
	}
	if q.LocationID != 0 {
		tx = tx.Where("storage_location_id = ?", q.LocationID)
	}
	var tools []models.Tool
	if err := tx.Order("name ASC, id ASC").Find(&tools).Error; err != nil {
		return nil, err
	}
	return tools, nil
}

func (r *Repo) GetTool(ctx context.Context, id uint) (*models.Tool, error) {
	var t models.Tool
	if err := r.DB.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, missing(err, ErrNotFound, "tool", id)
	}
	return &t, nil
}

// CreateTool registers a tool without a Receipt row. Receiving stock goes through ReceiveTool.
func (r *Repo) CreateTool(ctx context.Context, t *models.Tool) error {
	t.Article = strings.TrimSpace(t.Article)
	t.Name = strings.TrimSpace(t.Name)
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createTool(tx, t)
	})
}

type ToolPatch struct {
	Article           *string
	Name              *string
	Description       *string
	StorageLocationID *uint
}

func (r *Repo) UpdateTool(ctx context.Context, id uint, p ToolPatch) (*models.Tool, error) {
	var out models.Tool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&out, "id = ?", id).Error; err != nil {
			return missing(err, ErrNotFound, "tool", id)
		}
		updates := map[string]any{}
		if p.Article != nil {
			if v := strings.TrimSpace(*p.Article); v != "" {
				updates["article"] = v
			} else {
				return fmt.Errorf("%w: article cannot be empty", ErrValidation)
			}
		}
		if p.Name != nil {
			if v := strings.TrimSpace(*p.Name); v != "" {
				updates["name"] = v
			} else {
				return fmt.Errorf("%w: name cannot be empty", ErrValidation)
			}
		}
		if p.Description != nil {
			updates["description"] = *p.Description
		}
		if p.StorageLocationID != nil {
			if err := locationExists(tx, *p.StorageLocationID); err != nil {
				return err
			}
			updates["storage_location_id"] = *p.StorageLocationID
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&out).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&out, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTool removes a tool that nobody holds. Its ledger rows stay.
func (r *Repo) DeleteTool(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockTool(tx, id); err != nil {
			return missing(err, ErrNotFound, "tool", id)
		}
		if err := ensureRemovable(tx, id); err != nil {
			return err
		}
		return tx.Delete(&models.Tool{}, id).Error
	})
}
