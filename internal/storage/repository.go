// Package storage persists goals, repetitions, events, accounts and export
// jobs in SQLite. All money columns are decimal strings; arithmetic on them
// happens in Go through shopspring decimals, never in SQL, so amounts stay
// exact.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"piggy/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- accounts and transactions ---

func (r *SQLiteRepository) CreateAccount(ctx context.Context, name string) (core.Account, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (name, created_at) VALUES (?, ?)`, name, now)
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Account{}, fmt.Errorf("account id: %w", err)
	}
	return core.Account{ID: id, Name: name, CreatedAt: now}, nil
}

func (r *SQLiteRepository) Account(ctx context.Context, id int64) (core.Account, error) {
	var a core.Account
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM accounts WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, &core.NotFoundError{Kind: "account", ID: id}
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("select account: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (account_id, description, amount, virtual, booked_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.AccountID, t.Description, t.Amount.String(), t.Virtual, t.BookedAt.UTC(), now)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction id: %w", err)
	}
	t.ID = id
	t.CreatedAt = now
	return t, nil
}

// Balance sums the non-virtual transactions booked up to asOf. The sum runs
// in Go over decimal values.
func (r *SQLiteRepository) Balance(ctx context.Context, accountID int64, asOf time.Time) (decimal.Decimal, error) {
	if _, err := r.Account(ctx, accountID); err != nil {
		return decimal.Zero, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT amount FROM transactions
		 WHERE account_id = ? AND virtual = 0 AND booked_at <= ?`,
		accountID, asOf.UTC())
	if err != nil {
		return decimal.Zero, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, fmt.Errorf("scan amount: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
		}
		sum = sum.Add(amount)
	}
	return sum, rows.Err()
}

// StreamTransactions walks the full transaction history in booked order,
// invoking fn per row. Rows are decoded one at a time so exports never hold
// the whole history in memory.
func (r *SQLiteRepository) StreamTransactions(ctx context.Context, fn func(core.Transaction) error) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account_id, description, amount, virtual, booked_at, created_at
		 FROM transactions ORDER BY booked_at, id`)
	if err != nil {
		return fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
	}
	return rows.Err()
}

func scanTransaction(rows *sql.Rows) (core.Transaction, error) {
	var (
		t   core.Transaction
		raw string
	)
	if err := rows.Scan(&t.ID, &t.AccountID, &t.Description, &raw, &t.Virtual, &t.BookedAt, &t.CreatedAt); err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	t.Amount = amount
	return t, nil
}

// --- goals ---

const goalColumns = `id, user_id, account_id, name, target_amount, target_date, display_order, note, created_at`

func (r *SQLiteRepository) Goal(ctx context.Context, id int64) (core.Goal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, &core.NotFoundError{Kind: "goal", ID: id}
	}
	return g, err
}

func (r *SQLiteRepository) GoalsForUser(ctx context.Context, userID int64) ([]core.Goal, error) {
	return r.selectGoals(ctx,
		`SELECT `+goalColumns+` FROM goals
		 WHERE user_id = ?
		 ORDER BY CASE WHEN display_order = 0 THEN 1 ELSE 0 END, display_order, id`,
		userID)
}

func (r *SQLiteRepository) GoalsForAccount(ctx context.Context, accountID int64) ([]core.Goal, error) {
	return r.selectGoals(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE account_id = ? ORDER BY id`, accountID)
}

func (r *SQLiteRepository) selectGoals(ctx context.Context, query string, arg any) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("select goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGoal(row rowScanner) (core.Goal, error) {
	var (
		g          core.Goal
		rawTarget  string
		targetDate sql.NullTime
	)
	err := row.Scan(&g.ID, &g.UserID, &g.AccountID, &g.Name, &rawTarget, &targetDate, &g.Order, &g.Note, &g.CreatedAt)
	if err != nil {
		return core.Goal{}, err
	}
	target, err := decimal.NewFromString(rawTarget)
	if err != nil {
		return core.Goal{}, fmt.Errorf("parse target amount %q: %w", rawTarget, err)
	}
	g.TargetAmount = target
	if targetDate.Valid {
		t := targetDate.Time
		g.TargetDate = &t
	}
	return g, nil
}

// CreateGoal inserts the goal and its initial zero repetition in one
// transaction. The repetition period runs from creation to the target
// date, either side open when absent.
func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Goal{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO goals (user_id, account_id, name, target_amount, target_date, display_order, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.UserID, g.AccountID, g.Name, g.TargetAmount.String(), nullTime(g.TargetDate), g.Order, g.Note, g.CreatedAt.UTC())
	if err != nil {
		return core.Goal{}, fmt.Errorf("insert goal: %w", err)
	}
	goalID, err := res.LastInsertId()
	if err != nil {
		return core.Goal{}, fmt.Errorf("goal id: %w", err)
	}

	start := g.CreatedAt.UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO repetitions (goal_id, start_date, end_date, current_amount, version, created_at)
		 VALUES (?, ?, ?, '0', 1, ?)`,
		goalID, start, nullTime(g.TargetDate), start)
	if err != nil {
		return core.Goal{}, fmt.Errorf("insert repetition: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Goal{}, fmt.Errorf("commit: %w", err)
	}
	g.ID = goalID
	return g, nil
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE goals SET account_id = ?, name = ?, target_amount = ?, target_date = ?, note = ?
		 WHERE id = ?`,
		g.AccountID, g.Name, g.TargetAmount.String(), nullTime(g.TargetDate), g.Note, g.ID)
	if err != nil {
		return core.Goal{}, fmt.Errorf("update goal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Goal{}, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.Goal{}, &core.NotFoundError{Kind: "goal", ID: g.ID}
	}
	return g, nil
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return &core.NotFoundError{Kind: "goal", ID: id}
	}
	return nil
}

func (r *SQLiteRepository) MaxOrder(ctx context.Context, userID int64) (int, error) {
	var max int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(display_order), 0) FROM goals WHERE user_id = ?`, userID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("select max order: %w", err)
	}
	return max, nil
}

// ReorderGoals zeroes every order of the user and assigns i+1 by position,
// in one transaction. A partial id list leaves the omitted goals at 0.
func (r *SQLiteRepository) ReorderGoals(ctx context.Context, userID int64, orderedIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE goals SET display_order = 0 WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("reset orders: %w", err)
	}
	for i, id := range orderedIDs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE goals SET display_order = ? WHERE id = ? AND user_id = ?`,
			i+1, id, userID); err != nil {
			return fmt.Errorf("set order %d: %w", i+1, err)
		}
	}
	return tx.Commit()
}

// --- repetitions and events ---

func (r *SQLiteRepository) CurrentRepetition(ctx context.Context, goalID int64, asOf time.Time) (core.Repetition, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, goal_id, start_date, end_date, current_amount, version, created_at
		 FROM repetitions
		 WHERE goal_id = ?
		   AND (start_date IS NULL OR start_date <= ?)
		   AND (end_date IS NULL OR end_date >= ?)
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		goalID, asOf.UTC(), asOf.UTC())

	rep, err := scanRepetition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Repetition{}, &core.NotFoundError{Kind: "repetition", ID: goalID}
	}
	return rep, err
}

func scanRepetition(row rowScanner) (core.Repetition, error) {
	var (
		rep        core.Repetition
		rawAmount  string
		start, end sql.NullTime
	)
	err := row.Scan(&rep.ID, &rep.GoalID, &start, &end, &rawAmount, &rep.Version, &rep.CreatedAt)
	if err != nil {
		return core.Repetition{}, err
	}
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return core.Repetition{}, fmt.Errorf("parse current amount %q: %w", rawAmount, err)
	}
	rep.CurrentAmount = amount
	if start.Valid {
		t := start.Time
		rep.StartDate = &t
	}
	if end.Valid {
		t := end.Time
		rep.EndDate = &t
	}
	return rep, nil
}

// ApplyEvent moves the repetition amount by delta and appends the matching
// event in one transaction. The UPDATE carries the version read by the
// caller; zero rows affected means a concurrent writer got there first and
// the whole transaction rolls back.
func (r *SQLiteRepository) ApplyEvent(ctx context.Context, rep core.Repetition, delta decimal.Decimal) (core.Repetition, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Repetition{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	newAmount := rep.CurrentAmount.Add(delta)
	res, err := tx.ExecContext(ctx,
		`UPDATE repetitions SET current_amount = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		newAmount.String(), rep.ID, rep.Version)
	if err != nil {
		return core.Repetition{}, fmt.Errorf("update repetition: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Repetition{}, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.Repetition{}, &core.ConcurrencyConflictError{RepetitionID: rep.ID, Version: rep.Version}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO events (goal_id, repetition_id, amount, created_at) VALUES (?, ?, ?, ?)`,
		rep.GoalID, rep.ID, delta.String(), time.Now().UTC()); err != nil {
		return core.Repetition{}, fmt.Errorf("insert event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Repetition{}, fmt.Errorf("commit: %w", err)
	}

	rep.CurrentAmount = newAmount
	rep.Version++
	return rep, nil
}

func (r *SQLiteRepository) EventsForGoal(ctx context.Context, goalID int64) ([]core.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, goal_id, repetition_id, amount, created_at
		 FROM events WHERE goal_id = ? ORDER BY created_at, id`, goalID)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	defer rows.Close()

	var out []core.Event
	for rows.Next() {
		var (
			e   core.Event
			raw string
		)
		if err := rows.Scan(&e.ID, &e.GoalID, &e.RepetitionID, &raw, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parse event amount %q: %w", raw, err)
		}
		e.Amount = amount
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- export jobs ---

func (r *SQLiteRepository) CreateExportJob(ctx context.Context, userID int64, key string) (core.ExportJob, error) {
	now := time.Now().UTC()
	job := core.ExportJob{
		Key:       key,
		UserID:    userID,
		Status:    core.ExportPending,
		FileName:  key + "-records.xml",
		CreatedAt: now,
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO export_jobs (job_key, user_id, status, file_name, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		job.Key, job.UserID, job.Status, job.FileName, now)
	if err != nil {
		return core.ExportJob{}, fmt.Errorf("insert export job: %w", err)
	}
	job.ID, err = res.LastInsertId()
	if err != nil {
		return core.ExportJob{}, fmt.Errorf("export job id: %w", err)
	}
	return job, nil
}

func (r *SQLiteRepository) ExportJob(ctx context.Context, id int64) (core.ExportJob, error) {
	var (
		job      core.ExportJob
		finished sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, job_key, user_id, status, file_name, created_at, finished_at
		 FROM export_jobs WHERE id = ?`, id).
		Scan(&job.ID, &job.Key, &job.UserID, &job.Status, &job.FileName, &job.CreatedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ExportJob{}, &core.NotFoundError{Kind: "export job", ID: id}
	}
	if err != nil {
		return core.ExportJob{}, fmt.Errorf("select export job: %w", err)
	}
	if finished.Valid {
		t := finished.Time
		job.FinishedAt = &t
	}
	return job, nil
}

func (r *SQLiteRepository) SetExportJobStatus(ctx context.Context, id int64, status string) error {
	var finished any
	if status == core.ExportFinished || status == core.ExportFailed {
		finished = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE export_jobs SET status = ?, finished_at = ? WHERE id = ?`,
		status, finished, id)
	if err != nil {
		return fmt.Errorf("update export job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return &core.NotFoundError{Kind: "export job", ID: id}
	}
	return nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
