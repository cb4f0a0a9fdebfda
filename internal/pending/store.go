// Package pending holds entries that are waiting for a human choice: a
// category pick, an edit or delete confirmation. Each draft is stored under
// a short random token; only the token travels inside callback payloads, so
// free text never has to survive a delimiter-joined encoding.
package pending

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"

	"expensebot/internal/core"
)

// Kind says what confirming a pending item should do.
type Kind int

const (
	KindExpense Kind = iota
	KindInvestment
	KindLoan
	KindEdit
	KindDelete
)

// Item is one suspended interaction. Exactly the fields the confirming
// callback needs; unused fields stay zero.
type Item struct {
	Kind     Kind
	Draft    core.ParsedEntry
	Date     time.Time
	User     string   // identity to attribute; for backfills, the original author
	Options  []string // category choices offered; button presses carry an index into this
	Category string   // preselected category (edits)
	Row      int      // target row for edit/delete
	Period   string   // sheet title for edit/delete
}

// Store is a TTL-bounded LRU for pending items. Entries expire instead of
// accumulating when a user abandons a keyboard.
type Store struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
}

type storeEntry struct {
	token     string
	item      Item
	expiresAt time.Time
}

func NewStore(maxSize int, ttl time.Duration) *Store {
	return &Store{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

// Put stores an item and returns its token.
func (s *Store) Put(item Item) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := uuid.NewString()
	elem := s.lru.PushFront(&storeEntry{
		token:     token,
		item:      item,
		expiresAt: time.Now().Add(s.ttl),
	})
	s.items[token] = elem

	for s.lru.Len() > s.maxSize {
		s.removeElement(s.lru.Back())
	}
	return token
}

// Take removes and returns the item for a token. A confirmed item must not
// be replayable, so retrieval is destructive.
func (s *Store) Take(token string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[token]
	if !ok {
		return Item{}, false
	}
	entry := elem.Value.(*storeEntry)
	s.removeElement(elem)
	if time.Now().After(entry.expiresAt) {
		return Item{}, false
	}
	return entry.item, true
}

// Len returns the number of stored items, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

// Janitor evicts expired items every interval until ctx-style stop via the
// returned func.
func (s *Store) Janitor(interval time.Duration) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.evictExpired()
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}

func (s *Store) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for elem := s.lru.Back(); elem != nil; {
		prev := elem.Prev()
		if entry := elem.Value.(*storeEntry); now.After(entry.expiresAt) {
			s.removeElement(elem)
		}
		elem = prev
	}
}

func (s *Store) removeElement(elem *list.Element) {
	entry := elem.Value.(*storeEntry)
	delete(s.items, entry.token)
	s.lru.Remove(elem)
}
