// Package callback defines the typed intents carried by inline-keyboard
// button presses. A payload is parsed exactly once, at the transport
// boundary, into one of a closed set of variants; handlers dispatch on the
// type instead of re-splitting prefixed strings.
//
// Payloads are "kind:field[:field]" built from fixed-alphabet fields only:
// UUID tokens, yes/no answers, period names and option indexes. Drafts and
// category names never travel in the payload; the pending store keeps the
// draft plus a snapshot of the offered options, and a press carries just
// the index it picked. That keeps every payload well under Telegram's
// 64-byte callback-data limit no matter how long a category name grows.
package callback

import (
	"fmt"
	"strconv"
	"strings"
)

// Intent is one decoded button press.
type Intent interface{ isIntent() }

type (
	// PickCategory assigns a category to a pending expense draft. Option
	// indexes the options snapshot stored with the draft.
	PickCategory struct {
		Token  string
		Option int
	}

	// PickInvestment assigns a category to a pending investment draft.
	PickInvestment struct {
		Token  string
		Option int
	}

	// PickLoan assigns a category to a pending loan draft.
	PickLoan struct {
		Token  string
		Option int
	}

	// ConfirmEdit answers an edit confirmation prompt.
	ConfirmEdit struct {
		Token string
		Yes   bool
	}

	// ConfirmDelete answers a delete confirmation prompt.
	ConfirmDelete struct {
		Token string
		Yes   bool
	}

	// ShowSummary requests a summary for a named period choice.
	ShowSummary struct {
		Period string // current|last|last3|year|lastyear
	}

	// ShowComparison requests one of the comparison views.
	ShowComparison struct {
		Choice string // last1|last2|year
	}
)

func (PickCategory) isIntent()   {}
func (PickInvestment) isIntent() {}
func (PickLoan) isIntent()       {}
func (ConfirmEdit) isIntent()    {}
func (ConfirmDelete) isIntent()  {}
func (ShowSummary) isIntent()    {}
func (ShowComparison) isIntent() {}

const (
	kindCategory   = "cat"
	kindInvestment = "invest"
	kindLoan       = "loan"
	kindEdit       = "edit"
	kindDelete     = "delete"
	kindSummary    = "summary"
	kindCompare    = "compare"
)

// Encode renders an intent as callback payload text.
func Encode(intent Intent) string {
	switch v := intent.(type) {
	case PickCategory:
		return join(kindCategory, v.Token, strconv.Itoa(v.Option))
	case PickInvestment:
		return join(kindInvestment, v.Token, strconv.Itoa(v.Option))
	case PickLoan:
		return join(kindLoan, v.Token, strconv.Itoa(v.Option))
	case ConfirmEdit:
		return join(kindEdit, yesNo(v.Yes), v.Token)
	case ConfirmDelete:
		return join(kindDelete, yesNo(v.Yes), v.Token)
	case ShowSummary:
		return join(kindSummary, v.Period)
	case ShowComparison:
		return join(kindCompare, v.Choice)
	}
	return ""
}

// Decode parses callback payload text back into its intent.
func Decode(data string) (Intent, error) {
	kind, rest, _ := strings.Cut(data, ":")
	switch kind {
	case kindCategory, kindInvestment, kindLoan:
		token, idxText, ok := strings.Cut(rest, ":")
		if !ok || token == "" {
			return nil, fmt.Errorf("malformed %s payload: %q", kind, data)
		}
		option, err := strconv.Atoi(idxText)
		if err != nil || option < 0 {
			return nil, fmt.Errorf("malformed %s payload: %q", kind, data)
		}
		switch kind {
		case kindCategory:
			return PickCategory{Token: token, Option: option}, nil
		case kindInvestment:
			return PickInvestment{Token: token, Option: option}, nil
		default:
			return PickLoan{Token: token, Option: option}, nil
		}
	case kindEdit, kindDelete:
		answer, token, _ := strings.Cut(rest, ":")
		yes := answer == "yes"
		if yes && token == "" {
			return nil, fmt.Errorf("malformed %s payload: %q", kind, data)
		}
		if kind == kindEdit {
			return ConfirmEdit{Token: token, Yes: yes}, nil
		}
		return ConfirmDelete{Token: token, Yes: yes}, nil
	case kindSummary:
		return ShowSummary{Period: rest}, nil
	case kindCompare:
		return ShowComparison{Choice: rest}, nil
	}
	return nil, fmt.Errorf("unknown callback kind in %q", data)
}

func join(parts ...string) string {
	return strings.Join(parts, ":")
}

func yesNo(yes bool) string {
	if yes {
		return "yes"
	}
	return "no"
}
