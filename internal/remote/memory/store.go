// Package memory is an in-process remote.Store with the same upsert semantics as
// the PostgreSQL adapter. It backs offline development and the sync tests.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/julianstephens/salahlog/internal/remote"
)

// ErrInjected is a stock error for FailUpserts and FailSelects
var ErrInjected = errors.New("injected remote failure")

type Store struct {
	mu       sync.Mutex
	rows     map[string]remote.Entry // by id
	profiles map[string]json.RawMessage

	failUpsert error
	failSelect error
	block      chan struct{}

	upsertCalls int
	selectCalls int
	lastOpts    remote.UpsertOptions
}

func New() *Store {
	return &Store{
		rows:     make(map[string]remote.Entry),
		profiles: make(map[string]json.RawMessage),
	}
}

// FailUpserts makes every following upsert return err. A nil err clears the failure.
func (s *Store) FailUpserts(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failUpsert = err
}

// FailSelects makes every following select return err. A nil err clears the failure.
func (s *Store) FailSelects(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSelect = err
}

// Block makes operations wait until the returned release func is called or
// the caller's context ends.
func (s *Store) Block() (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.block = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.block == ch {
				s.block = nil
			}
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) wait(ctx context.Context) error {
	s.mu.Lock()
	ch := s.block
	s.mu.Unlock()
	if ch == nil {
		return ctx.Err()
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) UpsertEntries(ctx context.Context, rows []remote.Entry, opts remote.UpsertOptions) error {
	s.mu.Lock()
	s.upsertCalls++
	s.lastOpts = opts
	failErr := s.failUpsert
	s.mu.Unlock()

	if err := s.wait(ctx); err != nil {
		return err
	}
	if failErr != nil {
		return failErr
	}

	target, err := remote.ResolveConflictTarget(opts.ConflictTarget)
	if err != nil {
		return err
	}
	byNaturalKey := len(target) > 1

	s.mu.Lock()
	defer s.mu.Unlock()

	// Work on a copy so a failed batch leaves no partial writes
	next := make(map[string]remote.Entry, len(s.rows)+len(rows))
	for id, r := range s.rows {
		next[id] = r
	}

	for _, r := range rows {
		existingID := ""
		if byNaturalKey {
			for id, cur := range next {
				if cur.NaturalKey() == r.NaturalKey() {
					existingID = id
					break
				}
			}
		} else if _, ok := next[r.ID]; ok {
			existingID = r.ID
		}

		if existingID == "" {
			next[r.ID] = r
			continue
		}
		if opts.IgnoreDuplicates {
			continue
		}
		delete(next, existingID)
		next[r.ID] = r
	}

	s.rows = next
	return nil
}

func (s *Store) SelectEntries(ctx context.Context, q remote.Query) ([]remote.Entry, error) {
	s.mu.Lock()
	s.selectCalls++
	failErr := s.failSelect
	s.mu.Unlock()

	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	if failErr != nil {
		return nil, failErr
	}

	order, err := remote.ResolveOrder(q.OrderBy)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	var out []remote.Entry
	for _, r := range s.rows {
		if q.UserID == "" || r.UserID == q.UserID {
			out = append(out, r)
		}
	}
	s.mu.Unlock()

	less := func(a, b remote.Entry) bool {
		switch order {
		case remote.ColumnDate:
			return a.Date < b.Date
		case remote.ColumnID:
			return a.ID < b.ID
		default:
			return a.RecordedAt.Before(b.RecordedAt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if q.Descending {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) UpsertProfile(ctx context.Context, userID string, settings json.RawMessage) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpsert != nil {
		return s.failUpsert
	}
	s.profiles[userID] = append(json.RawMessage(nil), settings...)
	return nil
}

// Seed stores rows directly, bypassing conflict handling and call counting
func (s *Store) Seed(rows ...remote.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.rows[r.ID] = r
	}
}

// Rows returns a snapshot of all stored rows ordered by id
func (s *Store) Rows() []remote.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]remote.Entry, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Profile returns the stored settings document for userID
func (s *Store) Profile(userID string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	return p, ok
}

// UpsertCalls returns how many times UpsertEntries has been called
func (s *Store) UpsertCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertCalls
}

// SelectCalls returns how many times SelectEntries has been called
func (s *Store) SelectCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectCalls
}

// LastUpsertOptions returns the options passed to the most recent UpsertEntries call
func (s *Store) LastUpsertOptions() remote.UpsertOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOpts
}
