package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestGoalValidate(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	past := created.AddDate(0, -1, 0)

	valid := Goal{
		Name:         "New bicycle",
		AccountID:    1,
		TargetAmount: decimal.RequireFromString("300"),
		CreatedAt:    created,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid goal rejected: %v", err)
	}

	cases := []struct {
		name string
		mut  func(g *Goal)
		want error
	}{
		{"empty name", func(g *Goal) { g.Name = "  " }, ErrEmptyName},
		{"no account", func(g *Goal) { g.AccountID = 0 }, ErrMissingAccount},
		{"zero target", func(g *Goal) { g.TargetAmount = decimal.Zero }, ErrInvalidAmount},
		{"negative target", func(g *Goal) { g.TargetAmount = decimal.RequireFromString("-10") }, ErrInvalidAmount},
		{"target date in past", func(g *Goal) { g.TargetDate = &past }, ErrBadTargetDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := valid
			tc.mut(&g)
			if err := g.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestRepetitionCovers(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	mid := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		rep  Repetition
		date time.Time
		want bool
	}{
		{"open both sides", Repetition{}, mid, true},
		{"inside period", Repetition{StartDate: &start, EndDate: &end}, mid, true},
		{"before start", Repetition{StartDate: &start}, start.AddDate(0, 0, -1), false},
		{"after end", Repetition{EndDate: &end}, end.AddDate(0, 0, 1), false},
		{"on start", Repetition{StartDate: &start, EndDate: &end}, start, true},
		{"on end", Repetition{StartDate: &start, EndDate: &end}, end, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.rep.Covers(tc.date); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestGoalPercentage(t *testing.T) {
	cases := []struct {
		saved  string
		target string
		want   int
	}{
		{"0", "100", 0},
		{"50", "100", 50},
		{"150", "100", 100}, // clamped
		{"1", "3", 33},      // floored
		{"100", "100", 100},
	}
	for _, tc := range cases {
		g := Goal{TargetAmount: decimal.RequireFromString(tc.target)}
		if got := g.Percentage(decimal.RequireFromString(tc.saved)); got != tc.want {
			t.Fatalf("saved=%s target=%s expected %d%%, got %d%%", tc.saved, tc.target, tc.want, got)
		}
	}
}

func TestGoalLeftToSave(t *testing.T) {
	g := Goal{TargetAmount: decimal.RequireFromString("300.00")}
	got := g.LeftToSave(decimal.RequireFromString("100.10"))
	if want := decimal.RequireFromString("199.90"); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
