package http

import (
	"errors"
	"net/http/httptest"
	"testing"

	"piggy/internal/core"
)

func TestUserIDHeader(t *testing.T) {
	tests := []struct {
		header string
		want   int64
	}{
		{"", 1},
		{"7", 7},
		{"0", 1},
		{"-3", 1},
		{"abc", 1},
		{" 42 ", 42},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/goals", nil)
		if tt.header != "" {
			req.Header.Set("X-User-ID", tt.header)
		}
		if got := userID(req); got != tt.want {
			t.Errorf("Header %q: expected user %d, got %d", tt.header, tt.want, got)
		}
	}
}

func TestParseSignedAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"12.50", "12.5", false},
		{"-12,50", "-12.5", false},
		{"0", "", true},
		{"", "", true},
		{"twelve", "", true},
		{"1.005", "1.01", false}, // half up
	}
	for _, tt := range tests {
		got, err := parseSignedAmount(tt.in)
		if tt.wantErr {
			if !errors.Is(err, core.ErrInvalidAmount) {
				t.Errorf("Input %q: expected invalid amount, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Input %q: unexpected error %v", tt.in, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("Input %q: expected %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestGoalRequestTargetDate(t *testing.T) {
	req := goalRequest{Name: "Bike", AccountID: 1, TargetAmount: "100", TargetDate: "2030-06-01"}
	g, err := req.toGoal(1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if g.TargetDate == nil || g.TargetDate.Format("2006-01-02") != "2030-06-01" {
		t.Errorf("Expected target date 2030-06-01, got %v", g.TargetDate)
	}

	req.TargetDate = "june 2030"
	if _, err := req.toGoal(1); !errors.Is(err, core.ErrBadTargetDate) {
		t.Errorf("Expected bad target date error, got %v", err)
	}
}
