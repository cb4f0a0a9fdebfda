package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Entry is one committed ledger row.
	Entry struct {
		Date        time.Time
		Amount      Money
		Description string // stored as given; case-folded only for matching
		Category    string
		User        string
		Details     string
	}

	// InvestmentEntry extends Entry with return tracking columns that are
	// written empty and back-filled outside this system.
	InvestmentEntry struct {
		Entry
		Returns    string
		ReturnDate string
	}

	// LoanPayment is a restricted entry: its category comes from the fixed
	// Loan Master list, never from the resolver.
	LoanPayment struct {
		Date        time.Time
		Amount      Money
		User        string
		Category    string
		Description string
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrMissingDescription = errors.New("missing description")
	ErrEmptyCategory      = errors.New("empty category")
	ErrEmptyUser          = errors.New("empty user")
)

// Validate checks the invariants every committed entry must hold: a date,
// a non-empty description and a resolved category.
func (e Entry) Validate() error {
	if e.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	if strings.TrimSpace(e.Description) == "" {
		return ErrMissingDescription
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(e.User) == "" {
		return ErrEmptyUser
	}
	return nil
}

func (p LoanPayment) Validate() error {
	if p.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	if strings.TrimSpace(p.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(p.User) == "" {
		return ErrEmptyUser
	}
	return nil
}

// FormatDate renders a date the way ledger rows store it.
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}
