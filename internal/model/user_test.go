package model

import (
	"errors"
	"testing"
	"time"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"short", true},
		{"1234567", true},
		{"12345678", false},
		{"a-valid-password", false},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrValidation) {
			t.Errorf("ValidatePassword(%q) error kind = %q, want validation", tt.password, KindOf(err))
		}
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email   string
		wantErr bool
	}{
		{"ana@torontomu.ca", false},
		{"a.b@mail.utoronto.ca", false},
		{"", true},
		{"no-at-sign", true},
		{"Ana <ana@torontomu.ca>", true},
	}

	for _, tt := range tests {
		err := ValidateEmail(tt.email)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
		}
	}
}

func TestValidSchool(t *testing.T) {
	for _, s := range []string{"", SchoolTMU, SchoolUofT, SchoolWestern, SchoolYork} {
		if !ValidSchool(s) {
			t.Errorf("ValidSchool(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"McGill", "tmu", "uoft"} {
		if ValidSchool(s) {
			t.Errorf("ValidSchool(%q) = true, want false", s)
		}
	}
}

func TestNewItemValidate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	valid := NewItem{
		Title:     "Calculus textbook",
		Category:  "textbooks",
		Condition: ConditionGentlyUsed,
		ReturnBy:  now.Add(14 * 24 * time.Hour),
	}
	if err := valid.Validate(now); err != nil {
		t.Fatalf("valid item rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*NewItem)
	}{
		{"missing title", func(n *NewItem) { n.Title = "" }},
		{"missing category", func(n *NewItem) { n.Category = "" }},
		{"missing condition", func(n *NewItem) { n.Condition = "" }},
		{"unknown condition", func(n *NewItem) { n.Condition = "like new" }},
		{"missing return-by", func(n *NewItem) { n.ReturnBy = time.Time{} }},
		{"return-by in past", func(n *NewItem) { n.ReturnBy = now.Add(-time.Hour) }},
	}

	for _, tt := range tests {
		n := valid
		tt.mutate(&n)
		err := n.Validate(now)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("%s: expected validation error, got %v", tt.name, err)
		}
	}
}

func TestLoanCounterpart(t *testing.T) {
	loan := Loan{OwnerID: 1, RequesterID: 2}

	if got, ok := loan.Counterpart(1); !ok || got != 2 {
		t.Errorf("Counterpart(owner) = %d, %v; want 2, true", got, ok)
	}
	if got, ok := loan.Counterpart(2); !ok || got != 1 {
		t.Errorf("Counterpart(requester) = %d, %v; want 1, true", got, ok)
	}
	if _, ok := loan.Counterpart(3); ok {
		t.Error("Counterpart(stranger) should report false")
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		err      error
		sentinel error
		kind     Kind
	}{
		{Validationf("bad"), ErrValidation, KindValidation},
		{Conflictf("busy"), ErrConflict, KindConflict},
		{NotFoundf("gone"), ErrNotFound, KindNotFound},
		{Authf("nope"), ErrAuth, KindAuth},
	}

	for _, tt := range tests {
		if !errors.Is(tt.err, tt.sentinel) {
			t.Errorf("%v: errors.Is(%v) = false", tt.err, tt.sentinel)
		}
		if KindOf(tt.err) != tt.kind {
			t.Errorf("%v: KindOf = %q, want %q", tt.err, KindOf(tt.err), tt.kind)
		}
		wrapped := errors.Join(errors.New("context"), tt.err)
		if KindOf(wrapped) != tt.kind {
			t.Errorf("wrapped %v: KindOf = %q, want %q", tt.err, KindOf(wrapped), tt.kind)
		}
	}

	if errors.Is(Validationf("x"), ErrConflict) {
		t.Error("validation error must not match ErrConflict")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("plain error should have no kind")
	}
}
