// Package ledger implements the savings-goal ledger: deposits and
// withdrawals against a goal's current repetition, goal lifecycle, display
// ordering and the per-account aggregates for the list view.
//
// Money never leaves the decimal domain. The invariants held after every
// successful mutation: 0 <= current amount <= target amount, and the sum of
// a repetition's events equals its current amount.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"piggy/internal/core"
)

type Service struct {
	store    Store
	balances BalanceProvider
	now      func() time.Time
}

func NewService(store Store, balances BalanceProvider) *Service {
	return &Service{
		store:    store,
		balances: balances,
		now:      time.Now,
	}
}

// GoalDetail is the show-view payload: the goal, its current progress and
// the full event history.
type GoalDetail struct {
	Goal       core.Goal
	Repetition core.Repetition
	Events     []core.Event
	SavedSoFar decimal.Decimal
	LeftToSave decimal.Decimal
	Percentage int
}

// ListResult carries the list view: every goal with derived figures, plus
// per-account aggregates.
type ListResult struct {
	Goals    []core.GoalView
	Accounts []core.AccountSummary
}

// LeftOnAccount computes the account headroom for a goal: the account
// balance as of the date, minus the unsaved remainder of every *other* goal
// on the same account. Sibling goals compete for the same uncommitted
// balance, so funds implicitly reserved for them are not available here.
// The result may be negative; callers clamp before display.
func (s *Service) LeftOnAccount(ctx context.Context, goal core.Goal, asOf time.Time) (decimal.Decimal, error) {
	balance, err := s.balances.Balance(ctx, goal.AccountID, asOf)
	if err != nil {
		return decimal.Zero, fmt.Errorf("account balance: %w", err)
	}

	siblings, err := s.store.GoalsForAccount(ctx, goal.AccountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("goals for account: %w", err)
	}

	reserved := decimal.Zero
	for _, sib := range siblings {
		if sib.ID == goal.ID {
			continue
		}
		current, err := s.currentAmount(ctx, sib.ID, asOf)
		if err != nil {
			return decimal.Zero, err
		}
		reserved = reserved.Add(sib.TargetAmount.Sub(current))
	}

	return balance.Sub(reserved), nil
}

// MaxDepositable is the cap on a single deposit right now:
// min(headroom on the account, amount still missing to the target).
// Always recomputed from live balances, never cached.
func (s *Service) MaxDepositable(ctx context.Context, goal core.Goal, rep core.Repetition, asOf time.Time) (decimal.Decimal, error) {
	left, err := s.LeftOnAccount(ctx, goal, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	leftToSave := goal.LeftToSave(rep.CurrentAmount)
	return decimal.Min(left, leftToSave), nil
}

// MaxDeposit resolves the goal and returns the current deposit cap. Used by
// the add-money view to pre-fill the form limit.
func (s *Service) MaxDeposit(ctx context.Context, userID, goalID int64) (decimal.Decimal, error) {
	goal, rep, err := s.goalWithRepetition(ctx, userID, goalID)
	if err != nil {
		return decimal.Zero, err
	}
	return s.MaxDepositable(ctx, goal, rep, s.now())
}

// Deposit adds amount to the goal's current repetition and appends a
// positive event. Rejected without mutation when the amount is not positive
// or exceeds the deposit cap; the rejection carries the computed cap.
func (s *Service) Deposit(ctx context.Context, userID, goalID int64, amount decimal.Decimal) (core.Repetition, error) {
	if amount.Sign() <= 0 {
		return core.Repetition{}, core.ErrInvalidAmount
	}

	goal, rep, err := s.goalWithRepetition(ctx, userID, goalID)
	if err != nil {
		return core.Repetition{}, err
	}

	max, err := s.MaxDepositable(ctx, goal, rep, s.now())
	if err != nil {
		return core.Repetition{}, err
	}
	if amount.GreaterThan(max) {
		slog.InfoContext(ctx, "Deposit rejected",
			"goal_id", goalID,
			"amount", core.FormatAmount(amount),
			"max", core.FormatAmount(max))
		return core.Repetition{}, &core.InsufficientHeadroomError{Requested: amount, Max: max}
	}

	updated, err := s.store.ApplyEvent(ctx, rep, amount)
	if err != nil {
		return core.Repetition{}, fmt.Errorf("apply deposit: %w", err)
	}

	slog.InfoContext(ctx, "Deposit applied",
		"goal_id", goalID,
		"amount", core.FormatAmount(amount),
		"current", core.FormatAmount(updated.CurrentAmount))
	return updated, nil
}

// Withdraw removes amount from the goal's current repetition and appends a
// negated event. Rejected without mutation when the amount is not positive
// or exceeds the amount saved so far.
func (s *Service) Withdraw(ctx context.Context, userID, goalID int64, amount decimal.Decimal) (core.Repetition, error) {
	if amount.Sign() <= 0 {
		return core.Repetition{}, core.ErrInvalidAmount
	}

	_, rep, err := s.goalWithRepetition(ctx, userID, goalID)
	if err != nil {
		return core.Repetition{}, err
	}

	if amount.GreaterThan(rep.CurrentAmount) {
		slog.InfoContext(ctx, "Withdrawal rejected",
			"goal_id", goalID,
			"amount", core.FormatAmount(amount),
			"saved", core.FormatAmount(rep.CurrentAmount))
		return core.Repetition{}, &core.InsufficientSavedError{Requested: amount, Saved: rep.CurrentAmount}
	}

	updated, err := s.store.ApplyEvent(ctx, rep, amount.Neg())
	if err != nil {
		return core.Repetition{}, fmt.Errorf("apply withdrawal: %w", err)
	}

	slog.InfoContext(ctx, "Withdrawal applied",
		"goal_id", goalID,
		"amount", core.FormatAmount(amount),
		"current", core.FormatAmount(updated.CurrentAmount))
	return updated, nil
}

// StoreGoal validates and stores a new goal at the end of the user's
// display order. The account must exist; the initial repetition starts at
// zero.
func (s *Service) StoreGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = s.now()
	}
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	if _, err := s.store.Account(ctx, g.AccountID); err != nil {
		return core.Goal{}, fmt.Errorf("resolve account: %w", err)
	}

	maxOrder, err := s.store.MaxOrder(ctx, g.UserID)
	if err != nil {
		return core.Goal{}, fmt.Errorf("max order: %w", err)
	}
	g.Order = maxOrder + 1

	stored, err := s.store.CreateGoal(ctx, g)
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	slog.InfoContext(ctx, "Goal created", "goal_id", stored.ID, "name", stored.Name, "target", core.FormatAmount(stored.TargetAmount))
	return stored, nil
}

// UpdateGoal replaces the mutable fields of an existing goal. Creation date
// and display order are preserved from the stored goal.
func (s *Service) UpdateGoal(ctx context.Context, userID int64, g core.Goal) (core.Goal, error) {
	existing, err := s.userGoal(ctx, userID, g.ID)
	if err != nil {
		return core.Goal{}, err
	}

	g.UserID = existing.UserID
	g.Order = existing.Order
	g.CreatedAt = existing.CreatedAt
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	if g.AccountID != existing.AccountID {
		if _, err := s.store.Account(ctx, g.AccountID); err != nil {
			return core.Goal{}, fmt.Errorf("resolve account: %w", err)
		}
	}

	updated, err := s.store.UpdateGoal(ctx, g)
	if err != nil {
		return core.Goal{}, fmt.Errorf("update goal: %w", err)
	}
	slog.InfoContext(ctx, "Goal updated", "goal_id", updated.ID, "name", updated.Name)
	return updated, nil
}

// DeleteGoal removes the goal and its history.
func (s *Service) DeleteGoal(ctx context.Context, userID, goalID int64) error {
	if _, err := s.userGoal(ctx, userID, goalID); err != nil {
		return err
	}
	if err := s.store.DeleteGoal(ctx, goalID); err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	slog.InfoContext(ctx, "Goal deleted", "goal_id", goalID)
	return nil
}

// Goal returns the show-view detail for one goal.
func (s *Service) Goal(ctx context.Context, userID, goalID int64) (GoalDetail, error) {
	goal, rep, err := s.goalWithRepetition(ctx, userID, goalID)
	if err != nil {
		return GoalDetail{}, err
	}
	events, err := s.store.EventsForGoal(ctx, goalID)
	if err != nil {
		return GoalDetail{}, fmt.Errorf("events for goal: %w", err)
	}
	return GoalDetail{
		Goal:       goal,
		Repetition: rep,
		Events:     events,
		SavedSoFar: rep.CurrentAmount,
		LeftToSave: goal.LeftToSave(rep.CurrentAmount),
		Percentage: goal.Percentage(rep.CurrentAmount),
	}, nil
}

// Reorder resets every goal of the user to order 0, then assigns order i+1
// to the goal at position i, all in one transaction. Goals omitted from the
// list deliberately stay at order 0, which sorts them after every ordered
// goal; passing a partial list un-orders the rest.
func (s *Service) Reorder(ctx context.Context, userID int64, orderedIDs []int64) error {
	for _, id := range orderedIDs {
		if _, err := s.userGoal(ctx, userID, id); err != nil {
			return err
		}
	}
	if err := s.store.ReorderGoals(ctx, userID, orderedIDs); err != nil {
		return fmt.Errorf("reorder goals: %w", err)
	}
	slog.InfoContext(ctx, "Goals reordered", "user_id", userID, "count", len(orderedIDs))
	return nil
}

// List returns every goal of the user with derived figures, plus the
// per-account aggregates, all as of the reference date.
func (s *Service) List(ctx context.Context, userID int64, asOf time.Time) (ListResult, error) {
	goals, err := s.store.GoalsForUser(ctx, userID)
	if err != nil {
		return ListResult{}, fmt.Errorf("goals for user: %w", err)
	}

	views := make([]core.GoalView, 0, len(goals))
	accounts := make(map[int64]core.Account)
	balances := make(map[int64]decimal.Decimal)

	for _, g := range goals {
		current, err := s.currentAmount(ctx, g.ID, asOf)
		if err != nil {
			return ListResult{}, err
		}
		views = append(views, core.GoalView{
			Goal:       g,
			SavedSoFar: current,
			LeftToSave: g.LeftToSave(current),
			Percentage: g.Percentage(current),
		})

		if _, seen := accounts[g.AccountID]; !seen {
			acct, err := s.store.Account(ctx, g.AccountID)
			if err != nil {
				return ListResult{}, fmt.Errorf("resolve account: %w", err)
			}
			balance, err := s.balances.Balance(ctx, g.AccountID, asOf)
			if err != nil {
				return ListResult{}, fmt.Errorf("account balance: %w", err)
			}
			accounts[g.AccountID] = acct
			balances[g.AccountID] = balance
		}
	}

	return ListResult{
		Goals:    views,
		Accounts: core.SummarizeAccounts(views, accounts, balances),
	}, nil
}

// userGoal loads a goal and hides goals of other users behind not-found.
func (s *Service) userGoal(ctx context.Context, userID, goalID int64) (core.Goal, error) {
	goal, err := s.store.Goal(ctx, goalID)
	if err != nil {
		return core.Goal{}, err
	}
	if goal.UserID != userID {
		return core.Goal{}, &core.NotFoundError{Kind: "goal", ID: goalID}
	}
	return goal, nil
}

func (s *Service) goalWithRepetition(ctx context.Context, userID, goalID int64) (core.Goal, core.Repetition, error) {
	goal, err := s.userGoal(ctx, userID, goalID)
	if err != nil {
		return core.Goal{}, core.Repetition{}, err
	}
	rep, err := s.store.CurrentRepetition(ctx, goalID, s.now())
	if err != nil {
		return core.Goal{}, core.Repetition{}, fmt.Errorf("current repetition: %w", err)
	}
	return goal, rep, nil
}

// currentAmount reads the saved amount of a goal's current repetition. A
// goal without a covering repetition counts as zero here so one stray
// sibling cannot take down listing or headroom computation.
func (s *Service) currentAmount(ctx context.Context, goalID int64, asOf time.Time) (decimal.Decimal, error) {
	rep, err := s.store.CurrentRepetition(ctx, goalID, asOf)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("current repetition: %w", err)
	}
	return rep.CurrentAmount, nil
}
