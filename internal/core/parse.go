package core

import (
	"strings"
	"unicode"
)

// ParsedEntry is a normalized entry draft produced from a raw message,
// before category resolution and commit.
type ParsedEntry struct {
	Amount      Money
	Description string
	Details     string
}

// ParseEntry parses the raw text of a candidate expense message.
//
// The first whitespace token must be the amount. The remainder is split on
// the first comma only: text before it (trimmed) is the description, text
// after it is free-form details. Splitting on the first comma keeps commas
// inside the details intact, and taking the amount with a single split
// keeps multi-word descriptions working without quoting syntax.
//
//	"50 milk"               -> {5000, "milk", ""}
//	"50 oat milk, 2 packs"  -> {5000, "oat milk", "2 packs"}
func ParseEntry(text string) (ParsedEntry, error) {
	text = strings.TrimSpace(text)
	first, rest := text, ""
	if idx := strings.IndexFunc(text, unicode.IsSpace); idx >= 0 {
		first, rest = text[:idx], text[idx+1:]
	}
	amount, err := ParseAmount(first)
	if err != nil {
		return ParsedEntry{}, ErrInvalidAmount
	}

	description := rest
	details := ""
	if idx := strings.Index(rest, ","); idx >= 0 {
		description = rest[:idx]
		details = strings.TrimSpace(rest[idx+1:])
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return ParsedEntry{}, ErrMissingDescription
	}

	return ParsedEntry{Amount: amount, Description: description, Details: details}, nil
}
