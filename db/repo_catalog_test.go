package db_test

import (
	"context"
	"errors"
	"testing"

	"Gin_postgres_redis_tool_ledger/db"
	"Gin_postgres_redis_tool_ledger/models"
	"Gin_postgres_redis_tool_ledger/testutil"
)

func TestDeleteLocationGuard(t *testing.T) {
	repo, _ := testutil.SetupRepo(t)
	ctx := context.Background()

	busy := testutil.SeedLocation(t, repo, "Busy")
	testutil.SeedTool(t, repo, "A-1", "Pliers", busy.ID)
	testutil.SeedTool(t, repo, "A-2", "Clamp", busy.ID)
	empty := testutil.SeedLocation(t, repo, "Empty")

	err := repo.DeleteLocation(ctx, busy.ID)
	var inUse *db.LocationInUseError
	if !errors.As(err, &inUse) || inUse.ToolsCount != 2 {
		t.Fatalf("expected LocationInUseError with 2 tools, got %v", err)
	}
	if !errors.Is(err, db.ErrConflict) {
		t.Error("LocationInUseError must match ErrConflict")
	}

	if err := repo.DeleteLocation(ctx, empty.ID); err != nil {
		t.Fatalf("delete empty location: %v", err)
	}
	if _, err := repo.GetLocation(ctx, empty.ID); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("location still there: %v", err)
	}
	if err := repo.DeleteLocation(ctx, empty.ID); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestLocationValidationAndUpdate(t *testing.T) {
	repo, _ := testutil.SetupRepo(t)
	ctx := context.Background()

	if err := repo.CreateLocation(ctx, &models.StorageLocation{Type: " ", Name: "x"}); !errors.Is(err, db.ErrValidation) {
		t.Errorf("blank type accepted: %v", err)
	}
	l := testutil.SeedLocation(t, repo, "Old")
	got, err := repo.UpdateLocation(ctx, l.ID, models.StorageLocation{Type: "Rack", Name: "New", Address: "Row 4"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != "Rack" || got.Name != "New" || got.Address != "Row 4" {
		t.Errorf("update = %+v", got)
	}
}

func TestToolCRUD(t *testing.T) {
	repo, _ := testutil.SetupRepo(t)
	f := testutil.SeedFixture(t, repo)
	ctx := context.Background()

	if err := repo.CreateTool(ctx, &models.Tool{Article: "Z", Name: "Z", StorageLocationID: 999}); !errors.Is(err, db.ErrValidation) {
		t.Errorf("tool with missing location: %v", err)
	}

	other := testutil.SeedLocation(t, repo, "Cabinet")
	moved, err := repo.UpdateTool(ctx, f.Tool.ID, db.ToolPatch{StorageLocationID: &other.ID})
	if err != nil {
		t.Fatal(err)
	}
	if moved.StorageLocationID != other.ID {
		t.Errorf("tool not moved: %+v", moved)
	}
	blank := ""
	if _, err := repo.UpdateTool(ctx, f.Tool.ID, db.ToolPatch{Name: &blank}); !errors.Is(err, db.ErrValidation) {
		t.Errorf("blank name accepted: %v", err)
	}

	list, err := repo.ListTools(ctx, db.ListToolsQuery{Q: "dr"})
	if err != nil || len(list) != 1 {
		t.Fatalf("search = %v, %v", list, err)
	}
	if byLoc, _ := repo.ListTools(ctx, db.ListToolsQuery{LocationID: f.Location.ID}); len(byLoc) != 0 {
		t.Errorf("old location still lists %d tools", len(byLoc))
	}

	// held tools cannot be deleted
	if _, err := repo.IssueTool(ctx, db.IssueInput{ToolID: f.Tool.ID, WorkerID: f.Worker.ID, IssuedByID: f.Admin.ID, Quantity: 1}); err != nil {
		t.Fatal(err)
	}
	if ok, _ := repo.CanRemoveTool(ctx, f.Tool.ID); ok {
		t.Error("CanRemoveTool true for a held tool")
	}
	if err := repo.DeleteTool(ctx, f.Tool.ID); !errors.Is(err, db.ErrConflict) {
		t.Errorf("delete held tool: %v", err)
	}
	if _, err := repo.ReturnTool(ctx, db.ReturnInput{ToolID: f.Tool.ID, WorkerID: f.Worker.ID, ReturnedByID: f.Admin.ID}); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteTool(ctx, f.Tool.ID); err != nil {
		t.Fatalf("delete returned tool: %v", err)
	}
}

func TestUsers(t *testing.T) {
	repo, _ := testutil.SetupRepo(t)
	f := testutil.SeedFixture(t, repo)
	ctx := context.Background()

	if err := repo.CreateUser(ctx, &models.User{Username: "worker", FullName: "Dup", Role: models.RoleWorker}, "pw"); !errors.Is(err, db.ErrConflict) {
		t.Errorf("duplicate username: %v", err)
	}
	if err := repo.CreateUser(ctx, &models.User{Username: "x", FullName: "X", Role: "Boss"}, "pw"); !errors.Is(err, db.ErrValidation) {
		t.Errorf("unknown role: %v", err)
	}

	if _, err := repo.Authenticate(ctx, "worker", "worker"); err != nil {
		t.Errorf("authenticate: %v", err)
	}
	if _, err := repo.Authenticate(ctx, "worker", "nope"); !errors.Is(err, db.ErrInvalidCredentials) {
		t.Errorf("bad password: %v", err)
	}
	if _, err := repo.Authenticate(ctx, "ghost", "x"); !errors.Is(err, db.ErrInvalidCredentials) {
		t.Errorf("unknown user: %v", err)
	}

	workers, err := repo.ListUsers(ctx, "", models.RoleWorker, 1, 10)
	if err != nil || workers.Total != 2 {
		t.Errorf("list workers = %+v, %v", workers, err)
	}

	role := models.RoleStorekeeper
	u, err := repo.UpdateUser(ctx, f.Worker2.ID, db.UserPatch{Role: &role})
	if err != nil || u.Role != models.RoleStorekeeper {
		t.Errorf("update role = %+v, %v", u, err)
	}

	if err := repo.DeleteUserByID(ctx, f.Admin.ID, f.Admin.ID); !errors.Is(err, db.ErrValidation) {
		t.Errorf("self delete: %v", err)
	}
	if _, err := repo.IssueTool(ctx, db.IssueInput{ToolID: f.Tool.ID, WorkerID: f.Worker.ID, IssuedByID: f.Admin.ID, Quantity: 1}); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteUserByID(ctx, f.Worker.ID, f.Admin.ID); !errors.Is(err, db.ErrConflict) {
		t.Errorf("delete holder: %v", err)
	}
	if err := repo.DeleteUserByID(ctx, f.Worker2.ID, f.Admin.ID); err != nil {
		t.Errorf("delete: %v", err)
	}
	if err := repo.DeleteUserByID(ctx, 999, f.Admin.ID); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("delete missing: %v", err)
	}
}
