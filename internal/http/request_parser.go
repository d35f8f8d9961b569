// Package http exposes the goal ledger as a JSON API.
//
// This file implements parsing and validation of request payloads.
package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"piggy/internal/core"
)

// Payload size cap; the largest legitimate body is a reorder list.
const maxBodyBytes = 64 << 10

type (
	goalRequest struct {
		Name         string `json:"name"`
		AccountID    int64  `json:"account_id"`
		TargetAmount string `json:"target_amount"`
		TargetDate   string `json:"target_date"` // YYYY-MM-DD, optional
		Note         string `json:"note"`
	}

	amountRequest struct {
		Amount string `json:"amount"`
	}

	reorderRequest struct {
		Order []int64 `json:"order"`
	}

	accountRequest struct {
		Name string `json:"name"`
	}

	transactionRequest struct {
		Description string `json:"description"`
		Amount      string `json:"amount"` // signed decimal
		Virtual     bool   `json:"virtual"`
		BookedAt    string `json:"booked_at"` // YYYY-MM-DD, defaults to today
	}
)

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// userID reads the acting user from the X-User-ID header. The surrounding
// web layer owns authentication; a missing header maps to user 1 so a
// single-user deployment needs no extra setup.
func userID(r *http.Request) int64 {
	v := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if v == "" {
		return 1
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 1
	}
	return id
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &core.NotFoundError{Kind: name, ID: id}
	}
	return id, nil
}

func (req goalRequest) toGoal(userID int64) (core.Goal, error) {
	target, err := core.ParseAmount(req.TargetAmount)
	if err != nil {
		return core.Goal{}, fmt.Errorf("target amount: %w", err)
	}
	g := core.Goal{
		UserID:       userID,
		AccountID:    req.AccountID,
		Name:         strings.TrimSpace(req.Name),
		TargetAmount: target,
		Note:         strings.TrimSpace(req.Note),
	}
	if v := strings.TrimSpace(req.TargetDate); v != "" {
		date, err := time.Parse("2006-01-02", v)
		if err != nil {
			return core.Goal{}, fmt.Errorf("target date: %w", core.ErrBadTargetDate)
		}
		g.TargetDate = &date
	}
	return g, nil
}

// parseSignedAmount accepts positive and negative decimals for account
// transactions. Goal deposits and withdrawals go through core.ParseAmount,
// which allows only positive input.
func parseSignedAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Zero, core.ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, core.ErrInvalidAmount
	}
	d = d.Round(2)
	if d.Sign() == 0 {
		return decimal.Zero, core.ErrInvalidAmount
	}
	return d, nil
}

func (req transactionRequest) toTransaction(accountID int64) (core.Transaction, error) {
	amount, err := parseSignedAmount(req.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount: %w", err)
	}
	booked := time.Now().UTC()
	if v := strings.TrimSpace(req.BookedAt); v != "" {
		date, err := time.Parse("2006-01-02", v)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("booked_at: %w", core.ErrInvalidDate)
		}
		booked = date
	}
	return core.Transaction{
		AccountID:   accountID,
		Description: strings.TrimSpace(req.Description),
		Amount:      amount,
		Virtual:     req.Virtual,
		BookedAt:    booked,
	}, nil
}
