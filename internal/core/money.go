// Package core holds the domain types shared by the parser, the ledger
// writer and the report aggregator.
//
// This file contains money parsing and formatting. Amounts are kept as
// integer cents; floats appear only at the spreadsheet boundary.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Money is a non-negative amount in cents.
type Money struct {
	Cents int64
}

// ParseAmount converts a decimal string to Money with half-up rounding on
// the third decimal place.
//
// It accepts both dot (12.34) and comma (12,34) separators. Signs are
// rejected: ledger amounts are non-negative by definition, and an explicit
// "+" is treated as a format error the same way "-" is. Zero is allowed.
//
// Examples:
//
//	ParseAmount("50")     -> 5000, nil
//	ParseAmount("12,34")  -> 1234, nil
//	ParseAmount("12.346") -> 1235, nil (rounds up)
//	ParseAmount("-5")     -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	if intPart == "0" && fracPart == "" && len(parts) == 2 {
		// Bare "0." is fine; bare "." is not.
		if s == "." {
			return Money{}, ErrInvalidAmount
		}
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return Money{}, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return Money{Cents: iv*100 + fracCents}, nil
}

// ParseCellAmount parses an amount as it comes back from a spreadsheet cell,
// where the backend may have reformatted what we wrote. It is laxer than
// ParseAmount and reports ok=false instead of an error so aggregation can
// skip bad rows.
func ParseCellAmount(s string) (Money, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return Money{}, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return Money{}, false
	}
	return Money{Cents: int64(f*100.0 + 0.5)}, true
}

// Units returns the whole-currency value for writing to a sheet cell.
func (m Money) Units() float64 {
	return float64(m.Cents) / 100.0
}

// String renders the amount with two decimals for messages.
func (m Money) String() string {
	return fmt.Sprintf("%d.%02d", m.Cents/100, m.Cents%100)
}

// Add returns the sum of two amounts.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}
