package db

import (
	"context"
	"fmt"
	"strings"

	"Gin_postgres_redis_tool_ledger/models"

	"gorm.io/gorm"
)

// LocationInUseError is returned when a location still owns tools.
type LocationInUseError struct {
	LocationID uint
	ToolsCount int64
}

func (e *LocationInUseError) Error() string {
	return fmt.Sprintf("storage location %d still holds %d tool(s)", e.LocationID, e.ToolsCount)
}

func (e *LocationInUseError) Unwrap() error { return ErrConflict }

func validLocation(l *models.StorageLocation) error {
	l.Type = strings.TrimSpace(l.Type)
	l.Name = strings.TrimSpace(l.Name)
	if l.Type == "" || l.Name == "" {
		return fmt.Errorf("%w: type and name are required", ErrValidation)
	}
	return nil
}

func (r *Repo) ListLocations(ctx context.Context) ([]models.StorageLocation, error) {
	var ls []models.StorageLocation
	if err := r.DB.WithContext(ctx).Order("name ASC, id ASC").Find(&ls).Error; err != nil {
		return nil, err
	}
	return ls, nil
}

func (r *Repo) GetLocation(ctx context.Context, id uint) (*models.StorageLocation, error) {
	var l models.StorageLocation
	if err := r.DB.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, missing(err, ErrNotFound, "storage location", id)
	}
	return &l, nil
}

func (r *Repo) CreateLocation(ctx context.Context, l *models.StorageLocation) error {
	if err := validLocation(l); err != nil {
		return err
	}
	return r.DB.WithContext(ctx).Create(l).Error
}

// UpdateLocation replaces type, name and address.
func (r *Repo) UpdateLocation(ctx context.Context, id uint, in models.StorageLocation) (*models.StorageLocation, error) {
	if err := validLocation(&in); err != nil {
		return nil, err
	}
	l, err := r.GetLocation(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.DB.WithContext(ctx).Model(l).Updates(map[string]any{
		"type":    in.Type,
		"name":    in.Name,
		"address": in.Address,
	}).Error; err != nil {
		return nil, err
	}
	return r.GetLocation(ctx, id)
}

// DeleteLocation refuses while any tool is stored there.
func (r *Repo) DeleteLocation(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var l models.StorageLocation
		if err := tx.First(&l, "id = ?", id).Error; err != nil {
			return missing(err, ErrNotFound, "storage location", id)
		}
		var n int64
		if err := tx.Model(&models.Tool{}).Where("storage_location_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return &LocationInUseError{LocationID: id, ToolsCount: n}
		}
		return tx.Delete(&models.StorageLocation{}, id).Error
	})
}
