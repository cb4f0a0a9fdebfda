package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"expensebot/internal/callback"
	"expensebot/internal/category"
	"expensebot/internal/ledger"
	"expensebot/internal/pending"
	"expensebot/internal/report"
	"expensebot/internal/sheets/memory"
)

var testNow = time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, masterRows [][]string) (*EntryService, *memory.Store) {
	t.Helper()
	backend := memory.New()
	backend.Seed(category.MasterSheet, append([][]string{{"Keyword", "Category"}}, masterRows...))

	resolver := category.NewResolver(backend)
	if err := resolver.Load(context.Background()); err != nil {
		t.Fatalf("load resolver: %v", err)
	}
	pend := pending.NewStore(16, time.Minute)
	writer := ledger.NewWriter(backend, resolver)
	svc := NewEntryService(resolver, writer, report.NewAggregator(backend), pend, backend)
	svc.now = func() time.Time { return testNow }
	return svc, backend
}

func decodeIntent(t *testing.T, data string) callback.Intent {
	t.Helper()
	intent, err := callback.Decode(data)
	if err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	return intent
}

func TestHandleEntryTextKnownCategoryCommits(t *testing.T) {
	svc, backend := newTestService(t, [][]string{{"milk", "Groceries"}})
	ctx := context.Background()

	reply, err := svc.HandleEntryText(ctx, "Alice", testNow, "50 milk, two packets")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !strings.Contains(reply.Text, "✅ Added") || len(reply.Choices) != 0 {
		t.Fatalf("expected immediate commit, got %+v", reply)
	}

	rows, err := backend.ReadRange(ctx, "2026-08", "A:F")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := rows[len(rows)-1]
	want := []string{"29/08/2026", "50", "milk", "Groceries", "Alice", "two packets"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("column %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestHandleEntryTextUnknownCategoryAsksThenCommits(t *testing.T) {
	svc, backend := newTestService(t, [][]string{{"petrol", "Transport"}, {"rent", "Housing"}})
	ctx := context.Background()

	reply, err := svc.HandleEntryText(ctx, "Alice", testNow, "50 milk, two packets")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(reply.Choices) == 0 {
		t.Fatalf("expected a category keyboard, got %+v", reply)
	}

	// Press the button whose label is Transport.
	var data string
	for _, row := range reply.Choices {
		for _, c := range row {
			if c.Label == "Transport" {
				data = c.Data
			}
		}
	}
	pick, ok := decodeIntent(t, data).(callback.PickCategory)
	if !ok {
		t.Fatalf("expected PickCategory, got %q", data)
	}

	confirm, err := svc.ConfirmCategory(ctx, pick.Token, pick.Option)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !strings.Contains(confirm.Text, "✅ Added") {
		t.Fatalf("unexpected confirm reply: %+v", confirm)
	}

	rows, _ := backend.ReadRange(ctx, "2026-08", "A:F")
	got := rows[len(rows)-1]
	if got[3] != "Transport" || got[4] != "Alice" {
		t.Fatalf("unexpected committed row: %v", got)
	}

	// The pick also taught the mapping, so the next identical entry
	// commits without a prompt.
	reply, err = svc.HandleEntryText(ctx, "Bob", testNow, "60 milk")
	if err != nil {
		t.Fatalf("second handle: %v", err)
	}
	if len(reply.Choices) != 0 {
		t.Fatalf("mapping was not taught, got prompt again: %+v", reply)
	}
}

func TestHandleEntryTextFormatErrors(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	reply, err := svc.HandleEntryText(ctx, "Alice", testNow, "abc milk")
	if err != nil || !strings.Contains(reply.Text, "Invalid amount") {
		t.Fatalf("expected amount guidance, got %+v (err=%v)", reply, err)
	}

	reply, err = svc.HandleEntryText(ctx, "Alice", testNow, "50")
	if err != nil || !strings.Contains(reply.Text, "Missing description") {
		t.Fatalf("expected description guidance, got %+v (err=%v)", reply, err)
	}
}

func TestConfirmCategoryExpiredToken(t *testing.T) {
	svc, _ := newTestService(t, nil)
	reply, err := svc.ConfirmCategory(context.Background(), "stale-token", 0)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !strings.Contains(reply.Text, "expired") {
		t.Fatalf("expected expiry notice, got %+v", reply)
	}
}

func TestConfirmCategoryOptionOutOfRange(t *testing.T) {
	svc, backend := newTestService(t, [][]string{{"petrol", "Transport"}})
	ctx := context.Background()

	reply, err := svc.HandleEntryText(ctx, "Alice", testNow, "50 milk")
	if err != nil || len(reply.Choices) == 0 {
		t.Fatalf("expected keyboard, got %+v (err=%v)", reply, err)
	}
	pick := decodeIntent(t, reply.Choices[0][0].Data).(callback.PickCategory)

	confirm, err := svc.ConfirmCategory(ctx, pick.Token, 99)
	if err != nil || !strings.Contains(confirm.Text, "expired") {
		t.Fatalf("out-of-range option must not commit, got %+v (err=%v)", confirm, err)
	}
	if _, err := backend.ReadRange(ctx, "2026-08", "A:F"); err == nil {
		t.Fatal("no sheet should have been written")
	}
}

func TestHandleEntryTextNoCategoriesDoesNotPark(t *testing.T) {
	// Master exists but holds no mappings: nothing to offer, so nothing
	// may be left behind in the pending store.
	svc, _ := newTestService(t, nil)

	reply, err := svc.HandleEntryText(context.Background(), "Alice", testNow, "50 milk")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !strings.Contains(reply.Text, "No categories known") || len(reply.Choices) != 0 {
		t.Fatalf("expected guidance without keyboard, got %+v", reply)
	}
	if got := svc.pend.Len(); got != 0 {
		t.Fatalf("no draft should be parked, %d pending", got)
	}
}

func TestKeyboardPayloadsFitTelegramLimit(t *testing.T) {
	// Category names can be arbitrarily long; only an index travels in the
	// payload, so every button must stay within Telegram's 64-byte cap.
	long := strings.Repeat("Very Long Category Name ", 4)
	svc, _ := newTestService(t, [][]string{{"petrol", long}})

	reply, err := svc.HandleEntryText(context.Background(), "Alice", testNow, "50 milk")
	if err != nil || len(reply.Choices) == 0 {
		t.Fatalf("expected keyboard, got %+v (err=%v)", reply, err)
	}
	for _, row := range reply.Choices {
		for _, c := range row {
			if len(c.Data) > 64 {
				t.Fatalf("payload too long (%d bytes): %q", len(c.Data), c.Data)
			}
		}
	}
}

func TestInvestFlow(t *testing.T) {
	svc, backend := newTestService(t, nil)
	backend.Seed(InvestmentMaster, [][]string{
		{"Category", "Risk"},
		{"Stocks", "High"},
		{"Bonds", "Low"},
	})
	ctx := context.Background()

	reply, err := svc.Invest(ctx, "Alice", testNow, "1000 index fund")
	if err != nil {
		t.Fatalf("invest: %v", err)
	}
	if len(reply.Choices) == 0 {
		t.Fatalf("expected investment keyboard, got %+v", reply)
	}
	if reply.Choices[0][0].Label != "Stocks (High)" {
		t.Fatalf("expected risk-qualified label, got %q", reply.Choices[0][0].Label)
	}

	pick := decodeIntent(t, reply.Choices[0][0].Data).(callback.PickInvestment)
	confirm, err := svc.ConfirmInvestment(ctx, pick.Token, pick.Option)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !strings.Contains(confirm.Text, "Investment added") {
		t.Fatalf("unexpected reply: %+v", confirm)
	}

	rows, err := backend.ReadRange(ctx, "2026 Overview", "A:G")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := rows[len(rows)-1]
	want := []string{"29/08/2026", "1000", "Stocks", "Alice", "index fund", "", ""}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("column %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestInvestMissingMasterSheet(t *testing.T) {
	// A fresh spreadsheet has no Investment Master yet. That reads as an
	// empty category list, not as an error, and parks nothing.
	svc, _ := newTestService(t, nil)

	reply, err := svc.Invest(context.Background(), "Alice", testNow, "1000 index fund")
	if err != nil {
		t.Fatalf("invest: %v", err)
	}
	if !strings.Contains(reply.Text, "No investment categories configured") {
		t.Fatalf("expected configuration guidance, got %+v", reply)
	}
	if got := svc.pend.Len(); got != 0 {
		t.Fatalf("no draft should be parked, %d pending", got)
	}
}

func TestInvestBadArgs(t *testing.T) {
	svc, _ := newTestService(t, nil)
	reply, err := svc.Invest(context.Background(), "Alice", testNow, "")
	if err != nil || !strings.Contains(reply.Text, "Format") {
		t.Fatalf("expected format guidance, got %+v (err=%v)", reply, err)
	}
}

func TestLoanFlow(t *testing.T) {
	svc, backend := newTestService(t, nil)
	backend.Seed(LoanMaster, [][]string{
		{"Category", "Bank"},
		{"Home Loan", "HDFC"},
	})
	ctx := context.Background()

	reply, err := svc.Loan(ctx, "Bob", testNow, "5000 august emi")
	if err != nil {
		t.Fatalf("loan: %v", err)
	}
	pick := decodeIntent(t, reply.Choices[0][0].Data).(callback.PickLoan)

	confirm, err := svc.ConfirmLoan(ctx, pick.Token, pick.Option)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !strings.Contains(confirm.Text, "Loan payment added") {
		t.Fatalf("unexpected reply: %+v", confirm)
	}

	rows, err := backend.ReadRange(ctx, "Loan Repayment", "A:E")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := rows[len(rows)-1]
	want := []string{"29/08/2026", "5000", "Bob", "Home Loan", "august emi"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("column %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestBackfillAttributesOriginalAuthorAndDate(t *testing.T) {
	svc, backend := newTestService(t, [][]string{{"milk", "Groceries"}})
	ctx := context.Background()

	origDate := time.Date(2026, time.May, 3, 9, 0, 0, 0, time.UTC)
	reply, err := svc.Backfill(ctx, "Carol", origDate, "50 milk")
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if !strings.Contains(reply.Text, "✅ Added") {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	// The row lands in the original month, stamped with the original author.
	rows, err := backend.ReadRange(ctx, "2026-05", "A:F")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := rows[len(rows)-1]
	if got[0] != "03/05/2026" || got[4] != "Carol" {
		t.Fatalf("expected original date and author, got %v", got)
	}
}

func TestBackfillRoutesInvestCommand(t *testing.T) {
	svc, backend := newTestService(t, nil)
	backend.Seed(InvestmentMaster, [][]string{
		{"Category", "Risk"},
		{"Stocks", "High"},
	})
	ctx := context.Background()

	origDate := time.Date(2025, time.December, 20, 9, 0, 0, 0, time.UTC)
	reply, err := svc.Backfill(ctx, "Carol", origDate, "/invest 1000 etf")
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	pick := decodeIntent(t, reply.Choices[0][0].Data).(callback.PickInvestment)
	if _, err := svc.ConfirmInvestment(ctx, pick.Token, pick.Option); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// Lands in the original year's overview sheet.
	rows, err := backend.ReadRange(ctx, "2025 Overview", "A:G")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := rows[len(rows)-1]
	if got[0] != "20/12/2025" || got[3] != "Carol" {
		t.Fatalf("expected original date and author, got %v", got)
	}
}

func TestEditLastFlow(t *testing.T) {
	svc, backend := newTestService(t, [][]string{{"milk", "Groceries"}, {"bread", "Bakery"}})
	ctx := context.Background()

	if _, err := svc.HandleEntryText(ctx, "Alice", testNow, "50 milk"); err != nil {
		t.Fatalf("seed entry: %v", err)
	}

	reply, err := svc.EditLast(ctx, "75 bread")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if !strings.Contains(reply.Text, "Proceed?") || len(reply.Choices) == 0 {
		t.Fatalf("expected confirmation prompt, got %+v", reply)
	}

	confirm := decodeIntent(t, reply.Choices[0][0].Data).(callback.ConfirmEdit)
	if !confirm.Yes {
		t.Fatalf("first button should be Yes, got %+v", confirm)
	}
	done, err := svc.ConfirmEdit(ctx, confirm.Token, true)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !strings.Contains(done.Text, "updated") {
		t.Fatalf("unexpected reply: %+v", done)
	}

	rows, _ := backend.ReadRange(ctx, "2026-08", "A:F")
	got := rows[len(rows)-1]
	if got[1] != "75" || got[2] != "bread" || got[3] != "Bakery" {
		t.Fatalf("row not rewritten: %v", got)
	}
	if got[4] != "Alice" {
		t.Fatalf("author must survive the edit, got %q", got[4])
	}
}

func TestEditLastNoEntries(t *testing.T) {
	svc, _ := newTestService(t, nil)
	reply, err := svc.EditLast(context.Background(), "75 bread")
	if err != nil || !strings.Contains(reply.Text, "No entries") {
		t.Fatalf("expected no-entries notice, got %+v (err=%v)", reply, err)
	}
}

func TestConfirmEditNo(t *testing.T) {
	svc, backend := newTestService(t, [][]string{{"milk", "Groceries"}})
	ctx := context.Background()
	if _, err := svc.HandleEntryText(ctx, "Alice", testNow, "50 milk"); err != nil {
		t.Fatalf("seed entry: %v", err)
	}

	reply, err := svc.EditLast(ctx, "75 milk")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	no := decodeIntent(t, reply.Choices[0][1].Data).(callback.ConfirmEdit)
	done, err := svc.ConfirmEdit(ctx, no.Token, no.Yes)
	if err != nil || !strings.Contains(done.Text, "cancelled") {
		t.Fatalf("expected cancellation, got %+v (err=%v)", done, err)
	}

	rows, _ := backend.ReadRange(ctx, "2026-08", "A:F")
	if rows[len(rows)-1][1] != "50" {
		t.Fatalf("cancelled edit must not change the row: %v", rows[len(rows)-1])
	}
}

func TestDeleteLastFlow(t *testing.T) {
	svc, backend := newTestService(t, [][]string{{"milk", "Groceries"}})
	ctx := context.Background()
	if _, err := svc.HandleEntryText(ctx, "Alice", testNow, "50 milk"); err != nil {
		t.Fatalf("seed entry: %v", err)
	}
	if _, err := svc.HandleEntryText(ctx, "Bob", testNow, "60 milk"); err != nil {
		t.Fatalf("seed entry: %v", err)
	}

	reply, err := svc.DeleteLast(ctx)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	yes := decodeIntent(t, reply.Choices[0][0].Data).(callback.ConfirmDelete)
	done, err := svc.ConfirmDelete(ctx, yes.Token, true)
	if err != nil || !strings.Contains(done.Text, "deleted") {
		t.Fatalf("expected deletion, got %+v (err=%v)", done, err)
	}

	rows, _ := backend.ReadRange(ctx, "2026-08", "A:F")
	if len(rows) != 2 || rows[1][4] != "Alice" {
		t.Fatalf("expected only the first entry to remain: %v", rows)
	}
}
