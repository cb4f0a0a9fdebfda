// Package category owns the description-to-category mapping. The mapping
// lives in the Master sheet and is mirrored into an in-memory cache: every
// taught pair is written through to the sheet and to the cache in the same
// call, and all reads are served from the cache.
package category

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"expensebot/internal/sheets"
)

// MasterSheet is the persisted mapping table.
const MasterSheet = "Master"

// ErrNoCategory reports that no taught key matched a description. It is a
// control-flow signal, not a failure: the caller asks the user to pick.
var ErrNoCategory = errors.New("no category match")

type Resolver struct {
	backend sheets.Backend

	mu       sync.Mutex
	mappings map[string]string
	keyOrder []string // insertion order, drives substring matching
}

func NewResolver(backend sheets.Backend) *Resolver {
	return &Resolver{
		backend:  backend,
		mappings: make(map[string]string),
	}
}

// Load reads the whole mapping table. It runs once at startup; a read
// failure is fatal for the process, except that a missing Master sheet
// loads as an empty table so a fresh spreadsheet (or the in-memory
// backend) can start cold. Teach provisions the sheet on first use.
func (r *Resolver) Load(ctx context.Context) error {
	rows, err := r.backend.ReadRange(ctx, MasterSheet, "A2:B")
	if err != nil {
		if !sheets.IsNotFound(err) {
			return fmt.Errorf("load category mappings: %w", err)
		}
		slog.InfoContext(ctx, "Master sheet missing, starting with no category mappings")
		rows = nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappings = make(map[string]string, len(rows))
	r.keyOrder = r.keyOrder[:0]
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(row[0]))
		if key == "" {
			continue
		}
		if _, ok := r.mappings[key]; !ok {
			r.keyOrder = append(r.keyOrder, key)
		}
		r.mappings[key] = row[1]
	}
	slog.InfoContext(ctx, "Loaded category mappings", "count", len(r.mappings))
	return nil
}

// Resolve returns the category for a description: an exact key match wins,
// otherwise the first taught key (in insertion order) that occurs as a
// substring of the description. When several keys are substrings the winner
// depends on teach order; that ambiguity is inherited behavior, kept
// deterministic here by iterating keyOrder instead of the map.
func (r *Resolver) Resolve(description string) (string, error) {
	description = strings.ToLower(strings.TrimSpace(description))

	r.mu.Lock()
	defer r.mu.Unlock()
	if cat, ok := r.mappings[description]; ok {
		return cat, nil
	}
	for _, key := range r.keyOrder {
		if strings.Contains(description, key) {
			return r.mappings[key], nil
		}
	}
	return "", ErrNoCategory
}

// Known reports whether the description is already an exact mapping key.
func (r *Resolver) Known(description string) bool {
	key := strings.ToLower(strings.TrimSpace(description))
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.mappings[key]
	return ok
}

// Teach appends the pair to the Master sheet and mirrors it into the cache.
// Last write wins in the cache; the sheet keeps duplicate keys (append
// semantics) and a later Load observes whichever the store returns first.
// A category picked by one user becomes the default for everyone reusing
// the same description key.
func (r *Resolver) Teach(ctx context.Context, description, category string) error {
	key := strings.ToLower(strings.TrimSpace(description))
	if key == "" {
		return errors.New("empty description key")
	}

	err := r.backend.AppendRow(ctx, MasterSheet, "A:B", []any{key, category})
	if sheets.IsNotFound(err) {
		if err = r.provision(ctx); err == nil {
			err = r.backend.AppendRow(ctx, MasterSheet, "A:B", []any{key, category})
		}
	}
	if err != nil {
		return fmt.Errorf("persist mapping %q: %w", key, err)
	}

	r.mu.Lock()
	if _, ok := r.mappings[key]; !ok {
		r.keyOrder = append(r.keyOrder, key)
	}
	r.mappings[key] = category
	r.mu.Unlock()

	slog.InfoContext(ctx, "Taught category mapping", "key", key, "category", category)
	return nil
}

// provision creates the Master sheet with its header row.
func (r *Resolver) provision(ctx context.Context) error {
	if err := r.backend.CreateSheet(ctx, MasterSheet); err != nil {
		return fmt.Errorf("create %s sheet: %w", MasterSheet, err)
	}
	if err := r.backend.UpdateRange(ctx, MasterSheet, "A1:B1", []any{"Keyword", "Category"}); err != nil {
		return fmt.Errorf("write %s header: %w", MasterSheet, err)
	}
	return nil
}

// Categories returns the sorted unique category names, for choice keyboards.
func (r *Resolver) Categories() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]struct{}, len(r.mappings))
	out := make([]string, 0, len(r.mappings))
	for _, cat := range r.mappings {
		if _, ok := seen[cat]; ok {
			continue
		}
		seen[cat] = struct{}{}
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}
