package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"piggy/internal/core"
)

func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "piggy.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedGoal(t *testing.T, repo *SQLiteRepository, accountID int64, target string) core.Goal {
	t.Helper()
	goal, err := repo.CreateGoal(context.Background(), core.Goal{
		UserID:       1,
		AccountID:    accountID,
		Name:         "Goal",
		TargetAmount: d(target),
		Order:        1,
		CreatedAt:    time.Now().Add(-24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	return goal
}

func TestBalanceIgnoresVirtualAndFuture(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	acct, err := repo.CreateAccount(ctx, "Checking")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	now := time.Now().UTC()
	entries := []struct {
		amount  string
		virtual bool
		booked  time.Time
	}{
		{"500.00", false, now.Add(-48 * time.Hour)},
		{"-123.45", false, now.Add(-24 * time.Hour)},
		{"99.99", true, now.Add(-24 * time.Hour)},  // virtual, ignored
		{"777.00", false, now.Add(24 * time.Hour)}, // future, ignored
	}
	for _, e := range entries {
		_, err := repo.CreateTransaction(ctx, core.Transaction{
			AccountID: acct.ID,
			Amount:    d(e.amount),
			Virtual:   e.virtual,
			BookedAt:  e.booked,
		})
		if err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}

	balance, err := repo.Balance(ctx, acct.ID, now)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(d("376.55")) {
		t.Fatalf("expected 376.55, got %s", balance)
	}
}

func TestBalanceUnknownAccount(t *testing.T) {
	repo := testRepo(t)
	_, err := repo.Balance(context.Background(), 42, time.Now())
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateGoalSeedsRepetition(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	acct, _ := repo.CreateAccount(ctx, "Checking")
	goal := seedGoal(t, repo, acct.ID, "300.00")

	rep, err := repo.CurrentRepetition(ctx, goal.ID, time.Now())
	if err != nil {
		t.Fatalf("current repetition: %v", err)
	}
	if !rep.CurrentAmount.IsZero() {
		t.Fatalf("initial amount must be zero, got %s", rep.CurrentAmount)
	}
	if rep.Version != 1 {
		t.Fatalf("initial version must be 1, got %d", rep.Version)
	}

	// A date before the goal existed has no covering repetition.
	_, err = repo.CurrentRepetition(ctx, goal.ID, goal.CreatedAt.Add(-48*time.Hour))
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found before start, got %v", err)
	}
}

func TestApplyEventUpdatesAmountAndAppendsEvent(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	acct, _ := repo.CreateAccount(ctx, "Checking")
	goal := seedGoal(t, repo, acct.ID, "300.00")
	rep, _ := repo.CurrentRepetition(ctx, goal.ID, time.Now())

	rep, err := repo.ApplyEvent(ctx, rep, d("100.10"))
	if err != nil {
		t.Fatalf("apply deposit: %v", err)
	}
	if !rep.CurrentAmount.Equal(d("100.10")) || rep.Version != 2 {
		t.Fatalf("unexpected repetition after deposit: %+v", rep)
	}

	rep, err = repo.ApplyEvent(ctx, rep, d("-0.10"))
	if err != nil {
		t.Fatalf("apply withdrawal: %v", err)
	}
	if !rep.CurrentAmount.Equal(d("100.00")) {
		t.Fatalf("expected 100.00, got %s", rep.CurrentAmount)
	}

	events, err := repo.EventsForGoal(ctx, goal.ID)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	sum := decimal.Zero
	for _, e := range events {
		sum = sum.Add(e.Amount)
	}
	if !sum.Equal(rep.CurrentAmount) {
		t.Fatalf("event sum %s must equal current amount %s", sum, rep.CurrentAmount)
	}
}

func TestApplyEventStaleVersionConflicts(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	acct, _ := repo.CreateAccount(ctx, "Checking")
	goal := seedGoal(t, repo, acct.ID, "300.00")
	rep, _ := repo.CurrentRepetition(ctx, goal.ID, time.Now())

	// First writer wins.
	if _, err := repo.ApplyEvent(ctx, rep, d("10")); err != nil {
		t.Fatalf("first apply: %v", err)
	}

	// Second writer still holds the old version.
	_, err := repo.ApplyEvent(ctx, rep, d("10"))
	var conflict *core.ConcurrencyConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	// The losing write left no event behind.
	events, _ := repo.EventsForGoal(ctx, goal.ID)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
}

func TestReorderGoals(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	acct, _ := repo.CreateAccount(ctx, "Checking")
	a := seedGoal(t, repo, acct.ID, "100")
	b := seedGoal(t, repo, acct.ID, "100")
	c := seedGoal(t, repo, acct.ID, "100")

	if err := repo.ReorderGoals(ctx, 1, []int64{b.ID, a.ID}); err != nil {
		t.Fatalf("reorder: %v", err)
	}

	goals, err := repo.GoalsForUser(ctx, 1)
	if err != nil {
		t.Fatalf("goals for user: %v", err)
	}
	orders := make(map[int64]int)
	for _, g := range goals {
		orders[g.ID] = g.Order
	}
	if orders[b.ID] != 1 || orders[a.ID] != 2 || orders[c.ID] != 0 {
		t.Fatalf("unexpected orders: %v", orders)
	}
	// Unordered goals sort last.
	if goals[len(goals)-1].ID != c.ID {
		t.Fatalf("goal with order 0 must sort last, got %v", goals)
	}
}

func TestDeleteGoalCascades(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	acct, _ := repo.CreateAccount(ctx, "Checking")
	goal := seedGoal(t, repo, acct.ID, "300.00")
	rep, _ := repo.CurrentRepetition(ctx, goal.ID, time.Now())
	if _, err := repo.ApplyEvent(ctx, rep, d("10")); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if err := repo.DeleteGoal(ctx, goal.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Goal(ctx, goal.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("goal must be gone, got %v", err)
	}
	if _, err := repo.CurrentRepetition(ctx, goal.ID, time.Now()); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("repetitions must be gone, got %v", err)
	}
	events, err := repo.EventsForGoal(ctx, goal.ID)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("events must be gone, got %d", len(events))
	}
}

func TestExportJobLifecycle(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	job, err := repo.CreateExportJob(ctx, 1, "abc123")
	if err != nil {
		t.Fatalf("create export job: %v", err)
	}
	if job.Status != core.ExportPending || job.FileName != "abc123-records.xml" {
		t.Fatalf("unexpected job: %+v", job)
	}

	if err := repo.SetExportJobStatus(ctx, job.ID, core.ExportFinished); err != nil {
		t.Fatalf("set status: %v", err)
	}
	got, err := repo.ExportJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("export job: %v", err)
	}
	if got.Status != core.ExportFinished || got.FinishedAt == nil {
		t.Fatalf("expected finished job with timestamp, got %+v", got)
	}
}
