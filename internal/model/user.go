package model

import (
	"net/mail"
	"strings"
	"time"
)

// User is a university member who can list and borrow items.
type User struct {
	ID            int64              `json:"id"`
	Username      string             `json:"username"`
	Email         string             `json:"email"`
	PasswordHash  string             `json:"-"`
	Profile       Profile            `json:"profile"`
	PossibleDates []AvailabilitySlot `json:"possible_dates"`
	CreatedAt     time.Time          `json:"created_at"`
}

// Profile holds the public part of a user record. Rating and RatingCount are
// maintained by the rating ledger only.
type Profile struct {
	School      string  `json:"school,omitempty"`
	Degree      string  `json:"degree"`
	Program     string  `json:"program"`
	Rating      float64 `json:"rating"`
	RatingCount int     `json:"rating_count"`
}

// AvailabilitySlot is a place and the times a user can meet there.
// Informational only.
type AvailabilitySlot struct {
	Location string      `json:"location"`
	Slots    []time.Time `json:"slots"`
}

// Schools.
const (
	SchoolTMU     = "TMU"
	SchoolUofT    = "UofT"
	SchoolWestern = "Western"
	SchoolYork    = "York"
)

// ValidSchool reports whether s is a supported school. The empty string is
// accepted since school is optional at signup.
func ValidSchool(s string) bool {
	switch s {
	case "", SchoolTMU, SchoolUofT, SchoolWestern, SchoolYork:
		return true
	}
	return false
}

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// ValidatePassword checks password strength requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return Validationf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// ValidateEmail checks that email is a bare address. Domain restrictions are
// left to the deployment.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return Validationf("invalid email address")
	}
	return nil
}

// OwnerSummary is the public view of an item's owner attached to listings.
type OwnerSummary struct {
	Username    string  `json:"username"`
	School      string  `json:"school,omitempty"`
	Rating      float64 `json:"rating"`
	RatingCount int     `json:"rating_count"`
}

// NormalizeUsername trims surrounding whitespace.
func NormalizeUsername(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
