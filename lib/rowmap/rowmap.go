// Package rowmap provides a two-way mapping between the flat row order of a
// folder listing and canonical message ids, plus the list of duplicate rows
// sharing one id. The most recently registered row for an id is its primary
// row; earlier rows are retained as duplicates for display expansion only.
package rowmap

import (
	"sync"

	"git.sr.ht/~rjarry/threadtree/lib/intern"
)

// Store holds the id<->row tables for one folder.
type Store struct {
	idByRow map[int]intern.Atom
	rowByID map[intern.Atom]int
	dups    map[intern.Atom][]int
	m       sync.Mutex
}

// NewStore creates a new, empty Store.
func NewStore() *Store {
	s := &Store{}
	s.Clear()
	return s
}

// Clear discards all registered rows.
func (s *Store) Clear() {
	s.m.Lock()
	defer s.m.Unlock()
	s.idByRow = make(map[int]intern.Atom)
	s.rowByID = make(map[intern.Atom]int)
	s.dups = make(map[intern.Atom][]int)
}

// Put registers row as the primary row for id. If id already had a
// different primary row, that row is recorded as a duplicate of id.
// Re-registering the current primary pair is a no-op.
func (s *Store) Put(id intern.Atom, row int) {
	s.m.Lock()
	defer s.m.Unlock()
	if prev, ok := s.rowByID[id]; ok {
		if prev == row {
			return
		}
		s.dups[id] = append(s.dups[id], prev)
	}
	if other, ok := s.idByRow[row]; ok && other != id {
		// the row changed identity, the stale reverse entry must go
		if s.rowByID[other] == row {
			delete(s.rowByID, other)
		}
	}
	s.idByRow[row] = id
	s.rowByID[id] = row
}

// Row returns the primary row registered for id, if any.
func (s *Store) Row(id intern.Atom) (int, bool) {
	s.m.Lock()
	defer s.m.Unlock()
	row, ok := s.rowByID[id]
	return row, ok
}

// ID returns the id registered for row, primary or duplicate.
func (s *Store) ID(row int) (intern.Atom, bool) {
	s.m.Lock()
	defer s.m.Unlock()
	id, ok := s.idByRow[row]
	return id, ok
}

// Duplicates returns the non-primary rows recorded for id, oldest first.
func (s *Store) Duplicates(id intern.Atom) []int {
	s.m.Lock()
	defer s.m.Unlock()
	return s.dups[id]
}

// Forget removes a single row from the tables. Forgetting the primary row
// of an id that has recorded duplicates promotes the most recent duplicate
// to primary, so the id stays indexed. Unknown rows are a no-op.
func (s *Store) Forget(row int) {
	s.m.Lock()
	defer s.m.Unlock()
	id, ok := s.idByRow[row]
	if !ok {
		return
	}
	delete(s.idByRow, row)
	if dups := s.dups[id]; len(dups) > 0 {
		for i, d := range dups {
			if d == row {
				s.dups[id] = append(dups[:i], dups[i+1:]...)
				break
			}
		}
		if len(s.dups[id]) == 0 {
			delete(s.dups, id)
		}
	}
	if s.rowByID[id] != row {
		return
	}
	if dups := s.dups[id]; len(dups) > 0 {
		last := dups[len(dups)-1]
		s.dups[id] = dups[:len(dups)-1]
		if len(s.dups[id]) == 0 {
			delete(s.dups, id)
		}
		s.rowByID[id] = last
	} else {
		delete(s.rowByID, id)
	}
}

// Size returns the number of registered rows.
func (s *Store) Size() int {
	s.m.Lock()
	defer s.m.Unlock()
	return len(s.idByRow)
}
