package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"piggy/internal/core"
)

// Ports for the persistence and balance collaborators. The SQLite repository
// implements both; tests substitute in-memory fakes.
type (
	Store interface {
		Account(ctx context.Context, id int64) (core.Account, error)
		Goal(ctx context.Context, id int64) (core.Goal, error)
		GoalsForUser(ctx context.Context, userID int64) ([]core.Goal, error)
		GoalsForAccount(ctx context.Context, accountID int64) ([]core.Goal, error)

		// CreateGoal stores the goal and its initial repetition (amount 0)
		// in one transaction.
		CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
		UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
		// DeleteGoal removes the goal with its repetitions and events.
		DeleteGoal(ctx context.Context, id int64) error
		MaxOrder(ctx context.Context, userID int64) (int, error)

		// CurrentRepetition returns the repetition whose period covers asOf.
		CurrentRepetition(ctx context.Context, goalID int64, asOf time.Time) (core.Repetition, error)

		// ApplyEvent adds delta to the repetition amount and appends the
		// matching event, both in one transaction guarded by the
		// repetition's version. A stale version yields
		// ConcurrencyConflictError with nothing written.
		ApplyEvent(ctx context.Context, rep core.Repetition, delta decimal.Decimal) (core.Repetition, error)

		// ReorderGoals zeroes every order for the user and assigns i+1 by
		// position, all in one transaction.
		ReorderGoals(ctx context.Context, userID int64, orderedIDs []int64) error

		EventsForGoal(ctx context.Context, goalID int64) ([]core.Event, error)
	}

	// BalanceProvider returns an account's balance as of a date, ignoring
	// virtual transactions.
	BalanceProvider interface {
		Balance(ctx context.Context, accountID int64, asOf time.Time) (decimal.Decimal, error)
	}
)
