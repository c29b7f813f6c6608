package db_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"Gin_postgres_redis_tool_ledger/db"
	"Gin_postgres_redis_tool_ledger/models"
	"Gin_postgres_redis_tool_ledger/testutil"
)

func issueInput(f *testutil.Fixture, expected *time.Time) db.IssueInput {
	return db.IssueInput{
		ToolID:             f.Tool.ID,
		WorkerID:           f.Worker.ID,
		IssuedByID:         f.Storekeeper.ID,
		Quantity:           1,
		Notes:              "for line 3",
		ExpectedReturnDate: expected,
	}
}

func returnInput(f *testutil.Fixture) db.ReturnInput {
	return db.ReturnInput{ToolID: f.Tool.ID, WorkerID: f.Worker.ID, ReturnedByID: f.Storekeeper.ID, Condition: "good"}
}

func TestIssueRecordsSnapshots(t *testing.T) {
	repo, clock := testutil.SetupRepo(t)
	f := testutil.SeedFixture(t, repo)
	ctx := context.Background()

	expected := clock.Now().Add(7 * 24 * time.Hour)
	res, err := repo.IssueTool(ctx, issueInput(f, &expected))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if res.ToolName != "Drill" || res.WorkerName != f.Worker.FullName || res.IssuedByName != f.Storekeeper.FullName {
		t.Errorf("unexpected names %+v", res)
	}
	tx := res.Transaction
	if tx.TransactionType != models.TxIssue || tx.UserID != f.Storekeeper.ID || *tx.AssignedToUserID != f.Worker.ID {
		t.Errorf("unexpected row %+v", tx)
	}
	if tx.ToolArticle != "DR-001" || tx.AssignedToName != f.Worker.FullName {
		t.Errorf("snapshots not written: %+v", tx)
	}
	if !tx.TransactionDate.Equal(clock.Now()) {
		t.Errorf("transaction date %v, want %v", tx.TransactionDate, clock.Now())
	}
}

func TestIssueValidation(t *testing.T) {
	repo, _ := testutil.SetupRepo(t)
	f := testutil.SeedFixture(t, repo)
	ctx := context.Background()

	cases := []struct {
		name string
		mod  func(in *db.IssueInput)
	}{
		{"missing tool", func(in *db.IssueInput) { in.ToolID = 999 }},
		{"missing worker", func(in *db.IssueInput) { in.WorkerID = 999 }},
		{"worker is not a Worker", func(in *db.IssueInput) { in.WorkerID = f.Storekeeper.ID }},
		{"issuer is a Worker", func(in *db.IssueInput) { in.IssuedByID = f.Worker2.ID }},
		{"zero quantity", func(in *db.IssueInput) { in.Quantity = 0 }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			in := issueInput(f, nil)
			c.mod(&in)
			if _, err := repo.IssueTool(ctx, in); !errors.Is(err, db.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}

	var n int64
	repo.DB.Model(&models.ToolTransaction{}).Count(&n)
	if n != 0 {
		t.Errorf("rejected issues wrote %d rows", n)
	}
}

func TestIssueTwiceToSameWorkerConflicts(t *testing.T) {
	repo, _ := testutil.SetupRepo(t)
	f := testutil.SeedFixture(t, repo)
	ctx := context.Background()

	if _, err := repo.IssueTool(ctx, issueInput(f, nil)); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.IssueTool(ctx, issueInput(f, nil)); !errors.Is(err, db.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// a different worker may hold the same tool
	in := issueInput(f, nil)
	in.WorkerID = f.Worker2.ID
	if _, err := repo.IssueTool(ctx, in); err != nil {
		t.Fatalf("issue to second worker: %v", err)
	}
}

func TestIssueReturnIssueKeepsOneOpen(t *testing.T) {
	repo, clock := testutil.SetupRepo(t)
	f := testutil.SeedFixture(t, repo)
	ctx := context.Background()

	for round := 0; round < 3; round++ {
		if _, err := repo.IssueTool(ctx, issueInput(f, nil)); err != nil {
			t.Fatalf("round %d issue: %v", round, err)
		}
		var open int64
		repo.DB.Model(&models.ToolTransaction{}).
			Where("transaction_type = ? AND returned_date IS NULL AND tool_id = ? AND assigned_to_user_id = ?",
				models.TxIssue, f.Tool.ID, f.Worker.ID).
			Count(&open)
		if open != 1 {
			t.Fatalf("round %d: %d open issues", round, open)
		}
		clock.Advance(time.Hour)
		if _, err := repo.ReturnTool(ctx, returnInput(f)); err != nil {
			t.Fatalf("round %d return: %v", round, err)
		}
		clock.Advance(time.Hour)
	}

	got, err := repo.FindOpenIssue(ctx, f.Tool.ID, f.Worker.ID)
	if err != nil || got != nil {
		t.Fatalf("expected no open issue, got %+v, %v", got, err)
	}
}

func TestReturnClosesIssueAndLinksRow(t *testing.T) {
	repo, clock := testutil.SetupRepo(t)
	f := testutil.SeedFixture(t, repo)
	ctx := context.Background()

	iss, err := repo.IssueTool(ctx, issueInput(f, nil))
	if err != nil {
		t.Fatal(err)
	}
	clock.Advance(2 * time.Hour)
	res, err := repo.ReturnTool(ctx, db.ReturnInput{
		ToolID: f.Tool.ID, WorkerID: f.Worker.ID, ReturnedByID: f.Admin.ID,
		Condition: "worn", Notes: "handle cracked",
	})
	if err != nil {
		t.Fatalf("return: %v", err)
	}

	var closed models.ToolTransaction
	if err := repo.DB.First(&closed, iss.Transaction.ID).Error; err != nil {
		t.Fatal(err)
	}
	if closed.ReturnedDate == nil || !closed.ReturnedDate.Equal(clock.Now()) {
		t.Errorf("issue returned date = %v", closed.ReturnedDate)
	}
	if closed.Condition != "worn" || closed.ReturnNotes != "handle cracked" {
		t.Errorf("issue not annotated: %+v", closed)
	}

	ret := res.Transaction
	if ret.TransactionType != models.TxReturn || ret.RelatedTransactionID == nil || *ret.RelatedTransactionID != iss.Transaction.ID {
		t.Errorf("return row not linked: %+v", ret)
	}
	if ret.Notes != "Return. Condition: worn. Notes: handle cracked" {
		t.Errorf("notes = %q", ret.Notes)
	}
	if ret.Quantity != 1 || *ret.AssignedToUserID != f.Worker.ID || ret.UserID != f.Admin.ID {
		t.Errorf("unexpected return row %+v", ret)
	}
}

func TestReturnTwiceConflicts(t *testing.T) {
	repo, _ := testutil.SetupRepo(t)
	f := testutil.SeedFixture(t, repo)
	ctx := context.Background()

	if _, err := repo.IssueTool(ctx, issueInput(f, nil)); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.ReturnTool(ctx, returnInput(f)); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.ReturnTool(ctx, returnInput(f)); !errors.Is(err, db.ErrConflict) {
		t.Fatalf("second return: expected ErrConflict, got %v", err)
	}

	var returns int64
	repo.DB.Model(&models.ToolTransaction{}).Where("transaction_type = ?", models.TxReturn).Count(&returns)
	if returns != 1 {
		t.Errorf("%d Return rows, want 1", returns)
	}
}

func TestReturnValidation(t *testing.T) {
	repo, _ := testutil.SetupRepo(t)
	f := testutil.SeedFixture(t, repo)
	ctx := context.Background()
	if _, err := repo.IssueTool(ctx, issueInput(f, nil)); err != nil {
		t.Fatal(err)
	}

	in := returnInput(f)
	in.ReturnedByID = f.Worker.ID
	if _, err := repo.ReturnTool(ctx, in); !errors.Is(err, db.ErrValidation) {
		t.Errorf("worker as receiver: expected ErrValidation, got %v", err)
	}
	in = returnInput(f)
	in.Condition = "sparkling"
	if _, err := repo.ReturnTool(ctx, in); !errors.Is(err, db.ErrValidation) {
		t.Errorf("bad condition: expected ErrValidation, got %v", err)
	}

	// the issue must still be open after the rejected attempts
	if open, _ := repo.FindOpenIssue(ctx, f.Tool.ID, f.Worker.ID); open == nil {
		t.Error("rejected return closed the issue")
	}

	in = returnInput(f)
	in.Condition = ""
	res, err := repo.ReturnTool(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	if res.Transaction.Condition != models.ConditionGood {
		t.Errorf("default condition = %q", res.Transaction.Condition)
	}
}

func TestWriteOff(t *testing.T) {
	repo, _ := testutil.SetupRepo(t)
	f := testutil.SeedFixture(t, repo)
	ctx := context.Background()

	t.Run("partial keeps the tool", func(t *testing.T) {
		tx, err := repo.WriteOffTool(ctx, db.WriteOffInput{
			ToolID: f.Tool.ID, UserID: f.Storekeeper.ID, Quantity: 1, Reason: "worn", Notes: "bit set",
		})
		if err != nil {
			t.Fatal(err)
		}
		if tx.Notes != "Reason: worn. bit set" {
			t.Errorf("notes = %q", tx.Notes)
		}
		if _, err := repo.GetTool(ctx, f.Tool.ID); err != nil {
			t.Errorf("tool should still exist: %v", err)
		}
	})

	t.Run("worker cannot write off", func(t *testing.T) {
		_, err := repo.WriteOffTool(ctx, db.WriteOffInput{ToolID: f.Tool.ID, UserID: f.Worker.ID, Quantity: 1, Completely: true})
		if !errors.Is(err, db.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("held tool cannot be removed", func(t *testing.T) {
		if _, err := repo.IssueTool(ctx, issueInput(f, nil)); err != nil {
			t.Fatal(err)
		}
		_, err := repo.WriteOffTool(ctx, db.WriteOffInput{ToolID: f.Tool.ID, UserID: f.Admin.ID, Quantity: 1, Completely: true})
		if !errors.Is(err, db.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
		if err := repo.DeleteTool(ctx, f.Tool.ID); !errors.Is(err, db.ErrConflict) {
			t.Fatalf("delete: expected ErrConflict, got %v", err)
		}
		if ok, err := repo.CanRemoveTool(ctx, f.Tool.ID); err != nil || ok {
			t.Fatalf("CanRemoveTool = %v, %v while issued", ok, err)
		}
		if _, err := repo.ReturnTool(ctx, returnInput(f)); err != nil {
			t.Fatal(err)
		}
		if ok, err := repo.CanRemoveTool(ctx, f.Tool.ID); err != nil || !ok {
			t.Fatalf("CanRemoveTool = %v, %v after return", ok, err)
		}
	})

	t.Run("complete removes tool and keeps history", func(t *testing.T) {
		if _, err := repo.WriteOffTool(ctx, db.WriteOffInput{
			ToolID: f.Tool.ID, UserID: f.Admin.ID, Quantity: 1, Reason: "broken", Completely: true,
		}); err != nil {
			t.Fatal(err)
		}
		if _, err := repo.GetTool(ctx, f.Tool.ID); !errors.Is(err, db.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		hist, err := repo.ToolHistory(ctx, f.Tool.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(hist) == 0 || hist[0].TransactionType != models.TxWriteOff {
			t.Fatalf("history should start with the write-off: %+v", hist)
		}
		if hist[0].Tool.Name != "Drill" {
			t.Errorf("removed tool name not resolved from snapshot: %+v", hist[0].Tool)
		}
	})

	t.Run("missing tool", func(t *testing.T) {
		_, err := repo.WriteOffTool(ctx, db.WriteOffInput{ToolID: 4242, UserID: f.Admin.ID, Quantity: 1})
		if !errors.Is(err, db.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestReceive(t *testing.T) {
	repo, _ := testutil.SetupRepo(t)
	f := testutil.SeedFixture(t, repo)
	ctx := context.Background()

	res, err := repo.ReceiveTool(ctx, db.ReceiveInput{
		Article: " SAW-9 ", Name: "Circular saw", StorageLocationID: f.Location.ID,
		ReceivedByID: f.Storekeeper.ID, Quantity: 2, Notes: "supplier A",
	})
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if res.Tool.ID == 0 || res.Tool.Article != "SAW-9" {
		t.Errorf("tool not created: %+v", res.Tool)
	}
	if res.Transaction.TransactionType != models.TxReceipt || res.Transaction.ToolID != res.Tool.ID || res.Transaction.Quantity != 2 {
		t.Errorf("unexpected receipt %+v", res.Transaction)
	}

	// restock the same tool
	again, err := repo.ReceiveTool(ctx, db.ReceiveInput{ToolID: &res.Tool.ID, ReceivedByID: f.Admin.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if again.Tool.ID != res.Tool.ID {
		t.Errorf("restock created a new tool")
	}

	t.Run("restock into a missing location", func(t *testing.T) {
		var before int64
		repo.DB.Model(&models.ToolTransaction{}).Count(&before)
		_, err := repo.ReceiveTool(ctx, db.ReceiveInput{
			ToolID: &res.Tool.ID, StorageLocationID: 9999, ReceivedByID: f.Admin.ID, Quantity: 1,
		})
		if !errors.Is(err, db.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
		var after int64
		repo.DB.Model(&models.ToolTransaction{}).Count(&after)
		if after != before {
			t.Errorf("receipt written for a missing location: %d -> %d", before, after)
		}
		tool, _ := repo.GetTool(ctx, res.Tool.ID)
		if tool.StorageLocationID != f.Location.ID {
			t.Errorf("tool moved to location %d", tool.StorageLocationID)
		}
	})

	t.Run("restock into another location moves the tool", func(t *testing.T) {
		shelf := testutil.SeedLocation(t, repo, "Shelf 7")
		moved, err := repo.ReceiveTool(ctx, db.ReceiveInput{
			ToolID: &res.Tool.ID, StorageLocationID: shelf.ID, ReceivedByID: f.Storekeeper.ID, Quantity: 1,
		})
		if err != nil {
			t.Fatal(err)
		}
		if moved.Tool.StorageLocationID != shelf.ID {
			t.Errorf("result location = %d, want %d", moved.Tool.StorageLocationID, shelf.ID)
		}
		tool, _ := repo.GetTool(ctx, res.Tool.ID)
		if tool.StorageLocationID != shelf.ID {
			t.Errorf("stored location = %d, want %d", tool.StorageLocationID, shelf.ID)
		}
	})
}

func TestReceiveIsAtomic(t *testing.T) {
	repo, _ := testutil.SetupRepo(t)
	f := testutil.SeedFixture(t, repo)
	ctx := context.Background()

	var before int64
	repo.DB.Model(&models.Tool{}).Count(&before)

	_, err := repo.ReceiveTool(ctx, db.ReceiveInput{
		Article: "X-1", Name: "Thing", StorageLocationID: 999, ReceivedByID: f.Storekeeper.ID, Quantity: 1,
	})
	if !errors.Is(err, db.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing location, got %v", err)
	}
	_, err = repo.ReceiveTool(ctx, db.ReceiveInput{
		Article: "X-1", Name: "Thing", StorageLocationID: f.Location.ID, ReceivedByID: f.Worker.ID, Quantity: 1,
	})
	if !errors.Is(err, db.ErrValidation) {
		t.Fatalf("expected ErrValidation for worker receiver, got %v", err)
	}

	var after, receipts int64
	repo.DB.Model(&models.Tool{}).Count(&after)
	repo.DB.Model(&models.ToolTransaction{}).Count(&receipts)
	if after != before || receipts != 0 {
		t.Errorf("failed receives left tools=%d (was %d) transactions=%d", after, before, receipts)
	}
}
