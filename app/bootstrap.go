// app/bootstrap.go
package app

import (
	"context"
	"fmt"

	"Gin_postgres_redis_tool_ledger/db"
	"Gin_postgres_redis_tool_ledger/models"

	"go.uber.org/zap"
)

type demoUser struct {
	username, password, fullName, role string
}

var demoUsers = []demoUser{
	{"admin", "admin123", "System Administrator", models.RoleAdmin},
	{"storekeeper", "store123", "Anna Storekeeper", models.RoleStorekeeper},
	{"worker1", "worker123", "Ivan Worker", models.RoleWorker},
	{"worker2", "worker456", "Petr Worker", models.RoleWorker},
}

var demoLocations = []models.StorageLocation{
	{Type: "Warehouse", Name: "Main warehouse", Address: "Building A"},
	{Type: "Workshop", Name: "Assembly workshop", Address: "Building B, floor 1"},
	{Type: "Cabinet", Name: "Tool cabinet #1", Address: "Building B, room 12"},
}

type demoTool struct {
	article, name, description string
	location                   int // index into demoLocations
}

var demoTools = []demoTool{
	{"DR-001", "Cordless drill", "18V, two batteries", 0},
	{"GR-002", "Angle grinder", "125 mm disc", 0},
	{"WR-003", "Torque wrench", "20-100 Nm", 2},
	{"MM-004", "Multimeter", "True RMS", 2},
	{"SL-005", "Spirit level", "600 mm", 1},
}

// SeedDemo fills an empty database with demo accounts, locations and received tools.
// It does nothing when any user already exists.
func SeedDemo(ctx context.Context, repo *db.Repo, log *zap.Logger) error {
	var n int64
	if err := repo.DB.WithContext(ctx).Model(&models.User{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		log.Info("seed skipped, users already exist", zap.Int64("users", n))
		return nil
	}

	var storekeeper uint
	for _, du := range demoUsers {
		u := &models.User{Username: du.username, FullName: du.fullName, Role: du.role}
		if err := repo.CreateUser(ctx, u, du.password); err != nil {
			return fmt.Errorf("seed user %s: %w", du.username, err)
		}
		if du.role == models.RoleStorekeeper {
			storekeeper = u.ID
		}
	}

	locIDs := make([]uint, len(demoLocations))
	for i := range demoLocations {
		l := demoLocations[i]
		if err := repo.CreateLocation(ctx, &l); err != nil {
			return fmt.Errorf("seed location %s: %w", l.Name, err)
		}
		locIDs[i] = l.ID
	}

	for _, dt := range demoTools {
		if _, err := repo.ReceiveTool(ctx, db.ReceiveInput{
			Article:           dt.article,
			Name:              dt.name,
			Description:       dt.description,
			StorageLocationID: locIDs[dt.location],
			ReceivedByID:      storekeeper,
			Quantity:          1,
			Notes:             "Initial stock",
		}); err != nil {
			return fmt.Errorf("seed tool %s: %w", dt.article, err)
		}
	}

	log.Info("[BOOTSTRAP] demo data seeded",
		zap.Int("users", len(demoUsers)),
		zap.Int("locations", len(demoLocations)),
		zap.Int("tools", len(demoTools)))
	return nil
}
