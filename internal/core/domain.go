package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Account is an asset account referenced by goals. Balances are derived
	// from its transactions, never stored on the account itself.
	Account struct {
		ID        int64
		Name      string
		CreatedAt time.Time
	}

	// Transaction is a booked movement on an account. Virtual transactions
	// (reservations, pending card holds) are excluded from balance sums.
	Transaction struct {
		ID          int64
		AccountID   int64
		Description string
		Amount      decimal.Decimal
		Virtual     bool
		BookedAt    time.Time
		CreatedAt   time.Time
	}

	// Goal is a savings target ("piggy bank") tied to exactly one account.
	Goal struct {
		ID           int64
		UserID       int64
		AccountID    int64
		Name         string
		TargetAmount decimal.Decimal
		TargetDate   *time.Time
		Order        int
		Note         string
		CreatedAt    time.Time
	}

	// Repetition is the progress record for a goal during one active period.
	// Exactly one repetition covers any given date while the goal exists.
	// Version backs the optimistic concurrency check on mutation.
	Repetition struct {
		ID            int64
		GoalID        int64
		StartDate     *time.Time
		EndDate       *time.Time
		CurrentAmount decimal.Decimal
		Version       int64
		CreatedAt     time.Time
	}

	// Event is an immutable ledger entry: positive for a deposit, negative
	// for a withdrawal. Events are append-only; the repetition amount is a
	// cached projection of their sum.
	Event struct {
		ID           int64
		GoalID       int64
		RepetitionID int64
		Amount       decimal.Decimal
		CreatedAt    time.Time
	}
)

var (
	ErrEmptyName      = errors.New("empty goal name")
	ErrMissingAccount = errors.New("missing account id")
	ErrBadTargetDate  = errors.New("target date before creation date")
)

const maxNameLength = 200

func (g Goal) Validate() error {
	if len(strings.TrimSpace(g.Name)) == 0 {
		return ErrEmptyName
	}
	if len(g.Name) > maxNameLength {
		return errors.New("goal name too long (max 200 characters)")
	}
	if g.AccountID <= 0 {
		return ErrMissingAccount
	}
	if g.TargetAmount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if g.TargetDate != nil && !g.CreatedAt.IsZero() && g.TargetDate.Before(g.CreatedAt) {
		return ErrBadTargetDate
	}
	return nil
}

// Covers reports whether the repetition's active period contains the date.
// Open bounds on either side match any date.
func (r Repetition) Covers(date time.Time) bool {
	if r.StartDate != nil && date.Before(*r.StartDate) {
		return false
	}
	if r.EndDate != nil && date.After(*r.EndDate) {
		return false
	}
	return true
}

// LeftToSave is the unsaved remainder against the target, decimal-exact.
func (g Goal) LeftToSave(current decimal.Decimal) decimal.Decimal {
	return g.TargetAmount.Sub(current)
}

// Percentage is the integer percent saved, floored and clamped to 100.
// A zero saved amount short-circuits to 0 without computing the ratio.
func (g Goal) Percentage(current decimal.Decimal) int {
	if current.Sign() == 0 {
		return 0
	}
	pct := int(current.Div(g.TargetAmount).Mul(decimal.NewFromInt(100)).IntPart())
	if pct > 100 {
		return 100
	}
	return pct
}
