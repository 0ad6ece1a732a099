// Package intern provides canonical string tables for message ids and
// normalized subjects. Interning stores each distinct string exactly once
// and hands out identical Atom handles for equal text, so equality checks
// and map lookups work on pointer identity instead of string content.
//
// Multiple Pool instances can safely be created; atoms from different pools
// never compare equal, except for the process-wide empty sentinel.
package intern

import "sync"

// Atom is a canonical handle to an interned string. Two Get calls on the
// same Pool with equal text return the same Atom.
type Atom *string

// empty is shared between all pools so that the empty string has exactly one
// canonical handle per process. It is still a distinct atom: callers can
// recognize it and avoid treating all empty values as equivalent content.
var empty = Atom(new(string))

// Empty returns the process-wide sentinel atom for the empty string.
func Empty() Atom {
	return empty
}

// Pool holds one table of interned strings.
type Pool struct {
	atoms map[string]Atom
	m     sync.Mutex
}

// NewPool creates a new, empty Pool.
func NewPool() *Pool {
	return &Pool{
		atoms: make(map[string]Atom),
	}
}

// Get returns the canonical atom for s, interning it on first use.
// The empty string always canonicalizes to the shared Empty sentinel.
func (p *Pool) Get(s string) Atom {
	if s == "" {
		return empty
	}
	p.m.Lock()
	defer p.m.Unlock()
	if a, ok := p.atoms[s]; ok {
		return a
	}
	a := Atom(&s)
	p.atoms[s] = a
	return a
}

// Len returns the number of distinct strings interned in the pool.
func (p *Pool) Len() int {
	p.m.Lock()
	defer p.m.Unlock()
	return len(p.atoms)
}
