// store.go — TTL'd cursor store for paginating frozen result slices.
// A query that produces more than one page freezes its filtered result here
// and hands the client an opaque cursor id. Cursors are one-shot: serving a
// page retires its id and mints a fresh one for the remainder, so an id can
// never be replayed to re-serve an earlier offset.
package pagination

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long an unconsumed cursor survives between pages.
const DefaultTTL = 5 * time.Minute

// ErrCursorNotFound is returned for unknown or expired cursor ids. It is not
// a caller fault: the defined recovery is to re-query without a cursor.
var ErrCursorNotFound = errors.New("pagination cursor not found or expired")

// Page is one slice of a frozen result list.
type Page[T any] struct {
	Items      []T
	Total      int
	HasMore    bool
	NextCursor string // empty when exhausted
}

type entry[T any] struct {
	frozen    []T
	offset    int
	createdAt time.Time
}

// Store holds live cursors. All operations serialize internally; callers
// never hold its lock across anything blocking.
type Store[T any] struct {
	mu      sync.Mutex
	cursors map[string]entry[T]
	ttl     time.Duration
	now     func() time.Time
}

// NewStore creates a cursor store. ttl <= 0 selects DefaultTTL.
func NewStore[T any](ttl time.Duration) *Store[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store[T]{
		cursors: make(map[string]entry[T]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Open serves the first page of list. When list is longer than limit, the
// remainder is frozen under a fresh cursor id.
func (s *Store[T]) Open(list []T, limit int) Page[T] {
	if limit <= 0 {
		limit = len(list)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	if len(list) <= limit {
		return Page[T]{Items: list, Total: len(list)}
	}
	id := s.allocLocked(list, limit)
	return Page[T]{
		Items:      list[:limit],
		Total:      len(list),
		HasMore:    true,
		NextCursor: id,
	}
}

// Next serves the page at the cursor's offset and retires the cursor,
// minting a successor id if anything remains. Concurrent Next calls on the
// same id are not supported; one wins, the rest get ErrCursorNotFound.
func (s *Store[T]) Next(id string, limit int) (Page[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	e, ok := s.cursors[id]
	if !ok {
		return Page[T]{}, ErrCursorNotFound
	}
	delete(s.cursors, id)

	if limit <= 0 {
		limit = len(e.frozen) - e.offset
	}
	end := e.offset + limit
	if end > len(e.frozen) {
		end = len(e.frozen)
	}
	page := Page[T]{
		Items: e.frozen[e.offset:end],
		Total: len(e.frozen),
	}
	if end < len(e.frozen) {
		page.HasMore = true
		page.NextCursor = s.allocLocked(e.frozen, end)
	}
	return page, nil
}

// Sweep drops every expired cursor. Open and Next already sweep as a side
// effect; this is for the shared periodic sweep task.
func (s *Store[T]) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
}

// Len reports the number of live cursors. Test and diagnostics hook.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cursors)
}

func (s *Store[T]) allocLocked(frozen []T, offset int) string {
	id := uuid.NewString()
	s.cursors[id] = entry[T]{frozen: frozen, offset: offset, createdAt: s.now()}
	return id
}

func (s *Store[T]) sweepLocked() {
	cutoff := s.now().Add(-s.ttl)
	for id, e := range s.cursors {
		if e.createdAt.Before(cutoff) {
			delete(s.cursors, id)
		}
	}
}
