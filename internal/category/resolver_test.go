package category

import (
	"context"
	"errors"
	"testing"

	"expensebot/internal/sheets/memory"
)

func newLoadedResolver(t *testing.T, rows [][]string) (*Resolver, *memory.Store) {
	t.Helper()
	backend := memory.New()
	backend.Seed(MasterSheet, append([][]string{{"Keyword", "Category"}}, rows...))
	r := NewResolver(backend)
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return r, backend
}

func TestResolveExactMatch(t *testing.T) {
	r, _ := newLoadedResolver(t, [][]string{
		{"milk", "Groceries"},
		{"petrol", "Transport"},
	})

	cat, err := r.Resolve("milk")
	if err != nil || cat != "Groceries" {
		t.Fatalf("expected Groceries, got %q (err=%v)", cat, err)
	}
	// Matching is case-insensitive on the description side.
	cat, err = r.Resolve("  MILK ")
	if err != nil || cat != "Groceries" {
		t.Fatalf("expected Groceries for folded input, got %q (err=%v)", cat, err)
	}
}

func TestResolveSubstringMatch(t *testing.T) {
	r, _ := newLoadedResolver(t, [][]string{
		{"milk", "Groceries"},
	})

	cat, err := r.Resolve("2 milk cartons")
	if err != nil || cat != "Groceries" {
		t.Fatalf("expected substring match to Groceries, got %q (err=%v)", cat, err)
	}
}

func TestResolveExactWinsOverSubstring(t *testing.T) {
	r, _ := newLoadedResolver(t, [][]string{
		{"milk", "Groceries"},
		{"milk delivery", "Services"},
	})

	cat, err := r.Resolve("milk delivery")
	if err != nil || cat != "Services" {
		t.Fatalf("expected exact key to win, got %q (err=%v)", cat, err)
	}
}

func TestResolveSubstringUsesTeachOrder(t *testing.T) {
	r, _ := newLoadedResolver(t, [][]string{
		{"oat", "Groceries"},
		{"oat milk", "Beverages"},
	})

	// Both keys are substrings of the description; the earlier-taught
	// one wins.
	cat, err := r.Resolve("fresh oat milk carton")
	if err != nil || cat != "Groceries" {
		t.Fatalf("expected first-taught key to win, got %q (err=%v)", cat, err)
	}
}

func TestResolveNoMatch(t *testing.T) {
	r, _ := newLoadedResolver(t, [][]string{{"milk", "Groceries"}})

	_, err := r.Resolve("rocket fuel")
	if !errors.Is(err, ErrNoCategory) {
		t.Fatalf("expected ErrNoCategory, got %v", err)
	}
}

func TestLoadMissingMasterStartsEmpty(t *testing.T) {
	// A fresh backend has no Master sheet at all; that must load as an
	// empty table, not kill the startup.
	backend := memory.New()
	r := NewResolver(backend)
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("load against empty backend: %v", err)
	}
	if _, err := r.Resolve("milk"); !errors.Is(err, ErrNoCategory) {
		t.Fatalf("expected ErrNoCategory, got %v", err)
	}
	if cats := r.Categories(); len(cats) != 0 {
		t.Fatalf("expected no categories, got %v", cats)
	}
}

func TestTeachProvisionsMasterSheet(t *testing.T) {
	backend := memory.New()
	r := NewResolver(backend)
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := r.Teach(context.Background(), "milk", "Groceries"); err != nil {
		t.Fatalf("teach should create the missing sheet: %v", err)
	}

	rows, err := backend.ReadRange(context.Background(), MasterSheet, "A:B")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 2 || rows[0][0] != "Keyword" || rows[1][0] != "milk" {
		t.Fatalf("expected header + taught row, got %v", rows)
	}
	if cat, err := r.Resolve("milk"); err != nil || cat != "Groceries" {
		t.Fatalf("taught mapping should resolve, got %q (err=%v)", cat, err)
	}
}

func TestLoadDuplicateKeysLastWins(t *testing.T) {
	r, _ := newLoadedResolver(t, [][]string{
		{"milk", "Groceries"},
		{"milk", "Dairy"},
	})

	cat, err := r.Resolve("milk")
	if err != nil || cat != "Dairy" {
		t.Fatalf("expected last duplicate to win, got %q (err=%v)", cat, err)
	}
}

func TestTeachPersistsAndServesImmediately(t *testing.T) {
	r, backend := newLoadedResolver(t, nil)

	if err := r.Teach(context.Background(), "Milk", "Groceries"); err != nil {
		t.Fatalf("teach: %v", err)
	}

	if !r.Known("milk") {
		t.Fatal("taught key not known")
	}
	cat, err := r.Resolve("2 milk cartons")
	if err != nil || cat != "Groceries" {
		t.Fatalf("expected taught mapping to resolve, got %q (err=%v)", cat, err)
	}

	rows, err := backend.ReadRange(context.Background(), MasterSheet, "A:B")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	last := rows[len(rows)-1]
	if last[0] != "milk" || last[1] != "Groceries" {
		t.Fatalf("expected persisted row [milk Groceries], got %v", last)
	}
}

func TestCategoriesSortedUnique(t *testing.T) {
	r, _ := newLoadedResolver(t, [][]string{
		{"milk", "Groceries"},
		{"bread", "Groceries"},
		{"petrol", "Transport"},
	})

	got := r.Categories()
	want := []string{"Groceries", "Transport"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
