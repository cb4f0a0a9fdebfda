// Package services orchestrates the entry pipeline: parse, resolve, commit
// or suspend for a human choice, and answer report queries. Handlers return
// a Reply (text plus an optional choice set) and the transport layer only
// renders it.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"expensebot/internal/callback"
	"expensebot/internal/category"
	"expensebot/internal/core"
	"expensebot/internal/ledger"
	"expensebot/internal/pending"
	"expensebot/internal/report"
	"expensebot/internal/sheets"
)

// Master lists for the fixed-category entry kinds.
const (
	InvestmentMaster = "Investment Master"
	LoanMaster       = "Loan Master"
)

type (
	// Choice is one inline button: a label and an encoded callback intent.
	Choice struct {
		Label string
		Data  string
	}

	// Reply is what a handler wants rendered back: text, and optionally a
	// keyboard of choices arranged in rows.
	Reply struct {
		Text    string
		Choices [][]Choice
	}
)

// EntryService wires the resolver, writer, aggregator and pending store
// into the command surface the bot exposes.
type EntryService struct {
	resolver *category.Resolver
	writer   *ledger.Writer
	reports  *report.Aggregator
	pend     *pending.Store
	backend  sheets.Backend
	now      func() time.Time
}

func NewEntryService(resolver *category.Resolver, writer *ledger.Writer, reports *report.Aggregator, pend *pending.Store, backend sheets.Backend) *EntryService {
	return &EntryService{
		resolver: resolver,
		writer:   writer,
		reports:  reports,
		pend:     pend,
		backend:  backend,
		now:      time.Now,
	}
}

// HandleEntryText processes a free-text expense message from user. The
// date is the message time, which differs from now for backfilled entries,
// and user is the message author (for backfills, the original one).
func (s *EntryService) HandleEntryText(ctx context.Context, user string, date time.Time, text string) (Reply, error) {
	draft, err := core.ParseEntry(text)
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return Reply{Text: "❌ Invalid amount format.\nUse: <amount> <description>[, details]\nExample: 50 milk, two packets"}, nil
	case errors.Is(err, core.ErrMissingDescription):
		return Reply{Text: "❌ Missing description.\nUse: <amount> <description>[, details]"}, nil
	case err != nil:
		return Reply{}, err
	}

	cat, err := s.resolver.Resolve(draft.Description)
	if errors.Is(err, category.ErrNoCategory) {
		cats := s.resolver.Categories()
		if len(cats) == 0 {
			// Nothing to offer, so nothing gets parked either.
			return Reply{Text: "❌ No categories known yet. Add a mapping to the Master sheet first."}, nil
		}
		token := s.pend.Put(pending.Item{
			Kind:    pending.KindExpense,
			Draft:   draft,
			Date:    date,
			User:    user,
			Options: cats,
		})
		keyboard := optionKeyboard(cats, func(i int) string {
			return callback.Encode(callback.PickCategory{Token: token, Option: i})
		})
		return Reply{Text: "📝 Select category:", Choices: keyboard}, nil
	}
	if err != nil {
		return Reply{}, err
	}

	return s.commitExpense(ctx, draft, date, user, cat)
}

// ConfirmCategory commits the pending expense behind token with the picked
// option. The committed user is the one captured when the draft was
// parked, never the button presser.
func (s *EntryService) ConfirmCategory(ctx context.Context, token string, option int) (Reply, error) {
	item, ok := s.pend.Take(token)
	if !ok || item.Kind != pending.KindExpense || option < 0 || option >= len(item.Options) {
		return Reply{Text: "⌛ That prompt has expired. Please re-enter the expense."}, nil
	}
	return s.commitExpense(ctx, item.Draft, item.Date, item.User, item.Options[option])
}

func (s *EntryService) commitExpense(ctx context.Context, draft core.ParsedEntry, date time.Time, user, cat string) (Reply, error) {
	entry := core.Entry{
		Date:        date,
		Amount:      draft.Amount,
		Description: draft.Description,
		Category:    cat,
		User:        user,
		Details:     draft.Details,
	}
	if err := s.writer.AppendExpense(ctx, entry); err != nil {
		return Reply{}, fmt.Errorf("commit expense: %w", err)
	}
	msg := fmt.Sprintf("✅ Added:\nAmount: ₹%s\nDescription: %s\nCategory: %s", entry.Amount, entry.Description, entry.Category)
	if entry.Details != "" {
		msg += "\nDetails: " + entry.Details
	}
	return Reply{Text: msg}, nil
}

// Invest handles "/invest <amount> [description]": parses the draft, parks
// it and offers the fixed investment categories (with their risk label).
func (s *EntryService) Invest(ctx context.Context, user string, date time.Time, args string) (Reply, error) {
	draft, perr := parseFixedCategoryArgs(args)
	if perr != "" {
		return Reply{Text: "❌ Format: /invest <amount> [description]\nExample: /invest 1000 stock purchase"}, nil
	}

	rows, err := s.masterRows(ctx, InvestmentMaster)
	if err != nil {
		return Reply{}, err
	}
	cats, labels := masterOptions(rows)
	if len(cats) == 0 {
		return Reply{Text: "❌ No investment categories configured."}, nil
	}
	token := s.pend.Put(pending.Item{Kind: pending.KindInvestment, Draft: draft, Date: date, User: user, Options: cats})
	keyboard := optionKeyboard(labels, func(i int) string {
		return callback.Encode(callback.PickInvestment{Token: token, Option: i})
	})
	return Reply{Text: "Select investment category:", Choices: keyboard}, nil
}

// ConfirmInvestment commits the pending investment behind token.
func (s *EntryService) ConfirmInvestment(ctx context.Context, token string, option int) (Reply, error) {
	item, ok := s.pend.Take(token)
	if !ok || item.Kind != pending.KindInvestment || option < 0 || option >= len(item.Options) {
		return Reply{Text: "⌛ That prompt has expired. Please re-enter the investment."}, nil
	}
	cat := item.Options[option]
	entry := core.InvestmentEntry{Entry: core.Entry{
		Date:        item.Date,
		Amount:      item.Draft.Amount,
		Description: item.Draft.Description,
		Category:    cat,
		User:        item.User,
	}}
	if err := s.writer.AppendInvestment(ctx, entry); err != nil {
		return Reply{}, fmt.Errorf("commit investment: %w", err)
	}
	msg := fmt.Sprintf("✅ Investment added:\nAmount: ₹%s\nCategory: %s", entry.Amount, cat)
	if entry.Description != "" {
		msg += "\nDescription: " + entry.Description
	}
	return Reply{Text: msg}, nil
}

// Loan handles "/loan <amount> [description]" against the fixed
// (category, bank) master list.
func (s *EntryService) Loan(ctx context.Context, user string, date time.Time, args string) (Reply, error) {
	draft, perr := parseFixedCategoryArgs(args)
	if perr != "" {
		return Reply{Text: "❌ Format: /loan <amount> [description]\nExample: /loan 5000 emi payment"}, nil
	}

	rows, err := s.masterRows(ctx, LoanMaster)
	if err != nil {
		return Reply{}, err
	}
	cats, labels := masterOptions(rows)
	if len(cats) == 0 {
		return Reply{Text: "❌ No loan categories configured."}, nil
	}
	token := s.pend.Put(pending.Item{Kind: pending.KindLoan, Draft: draft, Date: date, User: user, Options: cats})
	keyboard := optionKeyboard(labels, func(i int) string {
		return callback.Encode(callback.PickLoan{Token: token, Option: i})
	})
	return Reply{Text: "Select loan category:", Choices: keyboard}, nil
}

// ConfirmLoan commits the pending loan payment behind token.
func (s *EntryService) ConfirmLoan(ctx context.Context, token string, option int) (Reply, error) {
	item, ok := s.pend.Take(token)
	if !ok || item.Kind != pending.KindLoan || option < 0 || option >= len(item.Options) {
		return Reply{Text: "⌛ That prompt has expired. Please re-enter the loan payment."}, nil
	}
	cat := item.Options[option]
	payment := core.LoanPayment{
		Date:        item.Date,
		Amount:      item.Draft.Amount,
		User:        item.User,
		Category:    cat,
		Description: item.Draft.Description,
	}
	if err := s.writer.AppendLoan(ctx, payment); err != nil {
		return Reply{}, fmt.Errorf("commit loan payment: %w", err)
	}
	msg := fmt.Sprintf("✅ Loan payment added:\nAmount: ₹%s\nCategory: %s", payment.Amount, cat)
	if payment.Description != "" {
		msg += "\nDescription: " + payment.Description
	}
	return Reply{Text: msg}, nil
}

// Backfill processes a replied-to message as a historical entry: the date
// and author of the ORIGINAL message are attributed, not the invoker's.
// Replies that were themselves /invest or /loan commands route to those
// flows with the historical identity.
func (s *EntryService) Backfill(ctx context.Context, originalUser string, originalDate time.Time, originalText string) (Reply, error) {
	text := strings.TrimSpace(originalText)
	lower := strings.ToLower(text)
	switch {
	case strings.HasPrefix(lower, "/invest"):
		return s.Invest(ctx, originalUser, originalDate, strings.TrimSpace(text[len("/invest"):]))
	case strings.HasPrefix(lower, "/loan"):
		return s.Loan(ctx, originalUser, originalDate, strings.TrimSpace(text[len("/loan"):]))
	default:
		return s.HandleEntryText(ctx, originalUser, originalDate, text)
	}
}

// EditLast offers a confirmation for rewriting the last row of the current
// month. Only the last row can be targeted in this flow.
func (s *EntryService) EditLast(ctx context.Context, args string) (Reply, error) {
	draft, err := core.ParseEntry(args)
	if err != nil {
		return Reply{Text: "❌ Format: /edit <amount> <description>\nExample: /edit 75 milk"}, nil
	}

	period := core.MonthKey(s.now())
	last, err := s.writer.LastEntry(ctx, period)
	if err != nil {
		return Reply{}, err
	}
	if last == nil {
		return Reply{Text: "No entries to edit!"}, nil
	}

	newCategory, rerr := s.resolver.Resolve(draft.Description)
	if rerr != nil {
		newCategory = last.Category
	}

	token := s.pend.Put(pending.Item{
		Kind:     pending.KindEdit,
		Draft:    draft,
		Category: newCategory,
		Row:      last.Row,
		Period:   period,
	})
	text := fmt.Sprintf(
		"⚠️ You are updating this entry:\n\nFrom:\nAmount: ₹%s\nDescription: %s\nCategory: %s\n\nTo:\nAmount: ₹%s\nDescription: %s\nCategory: %s\n\nProceed?",
		last.Amount, last.Description, last.Category,
		draft.Amount, draft.Description, newCategory,
	)
	return Reply{Text: text, Choices: yesNoKeyboard(
		callback.Encode(callback.ConfirmEdit{Token: token, Yes: true}),
		callback.Encode(callback.ConfirmEdit{Token: token, Yes: false}),
	)}, nil
}

// ConfirmEdit applies or cancels a pending edit.
func (s *EntryService) ConfirmEdit(ctx context.Context, token string, yes bool) (Reply, error) {
	if !yes {
		if token != "" {
			s.pend.Take(token)
		}
		return Reply{Text: "Edit cancelled."}, nil
	}
	item, ok := s.pend.Take(token)
	if !ok || item.Kind != pending.KindEdit {
		return Reply{Text: "⌛ That prompt has expired. Please run /edit again."}, nil
	}
	err := s.writer.UpdateEntry(ctx, item.Period, item.Row, item.Draft.Amount, item.Draft.Description, item.Category, item.Draft.Details)
	if err != nil {
		return Reply{}, fmt.Errorf("apply edit: %w", err)
	}
	return Reply{Text: "✅ Entry updated successfully!"}, nil
}

// DeleteLast offers a confirmation for removing the last row of the
// current month. The row index is a snapshot; see ledger.Writer.DeleteRow
// for the accepted hazard.
func (s *EntryService) DeleteLast(ctx context.Context) (Reply, error) {
	period := core.MonthKey(s.now())
	last, err := s.writer.LastEntry(ctx, period)
	if err != nil {
		return Reply{}, err
	}
	if last == nil {
		return Reply{Text: "No entries to delete!"}, nil
	}

	token := s.pend.Put(pending.Item{Kind: pending.KindDelete, Row: last.Row, Period: period})
	text := fmt.Sprintf(
		"Delete this entry?\n\nDate: %s\nAmount: ₹%s\nDescription: %s\nCategory: %s",
		last.Date, last.Amount, last.Description, last.Category,
	)
	return Reply{Text: text, Choices: yesNoKeyboard(
		callback.Encode(callback.ConfirmDelete{Token: token, Yes: true}),
		callback.Encode(callback.ConfirmDelete{Token: token, Yes: false}),
	)}, nil
}

// ConfirmDelete applies or cancels a pending delete.
func (s *EntryService) ConfirmDelete(ctx context.Context, token string, yes bool) (Reply, error) {
	if !yes {
		if token != "" {
			s.pend.Take(token)
		}
		return Reply{Text: "Deletion cancelled."}, nil
	}
	item, ok := s.pend.Take(token)
	if !ok || item.Kind != pending.KindDelete {
		return Reply{Text: "⌛ That prompt has expired. Please run /delete again."}, nil
	}
	if err := s.writer.DeleteRow(ctx, item.Period, item.Row); err != nil {
		return Reply{}, fmt.Errorf("apply delete: %w", err)
	}
	return Reply{Text: "✅ Entry deleted successfully!"}, nil
}

// masterRows reads a fixed-category master sheet, skipping the header.
// Each row is (category, qualifier): risk level for investments, bank for
// loans. A missing sheet reads as an empty list so a fresh spreadsheet
// gets a "not configured" reply instead of a failure.
func (s *EntryService) masterRows(ctx context.Context, title string) ([][]string, error) {
	rows, err := s.backend.ReadRange(ctx, title, "A:C")
	if err != nil {
		if sheets.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %q: %w", title, err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	return rows[1:], nil
}

// parseFixedCategoryArgs parses "<amount> [description]" command args.
// Unlike free-text entries the description is optional here.
func parseFixedCategoryArgs(args string) (core.ParsedEntry, string) {
	args = strings.TrimSpace(args)
	if args == "" {
		return core.ParsedEntry{}, "missing amount"
	}
	first, rest := args, ""
	if idx := strings.IndexByte(args, ' '); idx >= 0 {
		first, rest = args[:idx], strings.TrimSpace(args[idx+1:])
	}
	amount, err := core.ParseAmount(first)
	if err != nil {
		return core.ParsedEntry{}, "invalid amount"
	}
	return core.ParsedEntry{Amount: amount, Description: rest}, ""
}

// optionKeyboard lays labels out two per row; each button's payload is
// encoded from the label's index.
func optionKeyboard(labels []string, encode func(int) string) [][]Choice {
	var keyboard [][]Choice
	var row []Choice
	for i, label := range labels {
		row = append(row, Choice{Label: label, Data: encode(i)})
		if len(row) == 2 || i == len(labels)-1 {
			keyboard = append(keyboard, row)
			row = nil
		}
	}
	return keyboard
}

// masterOptions extracts the pickable categories of a master sheet and the
// matching button labels, the qualifier appended when present. The two
// slices are index-aligned.
func masterOptions(rows [][]string) (categories, labels []string) {
	for _, r := range rows {
		if len(r) == 0 || strings.TrimSpace(r[0]) == "" {
			continue
		}
		label := r[0]
		if len(r) > 1 && strings.TrimSpace(r[1]) != "" {
			label = fmt.Sprintf("%s (%s)", r[0], r[1])
		}
		categories = append(categories, r[0])
		labels = append(labels, label)
	}
	return categories, labels
}

func yesNoKeyboard(yesData, noData string) [][]Choice {
	return [][]Choice{{
		{Label: "Yes", Data: yesData},
		{Label: "No", Data: noData},
	}}
}
