package threads

import (
	"git.sr.ht/~rjarry/threadtree/lib/log"
	"git.sr.ht/~rjarry/threadtree/models"
)

// Pruning and subject grouping never destroy containers, they only move
// them. Every move is recorded here so that the whole prune/group phase can
// be undone record by record, newest first, leaving the raw reference tree
// exactly as the builder produced it.

type opKind int

const (
	// opDrop removed a childless placeholder from the tree.
	opDrop opKind = iota
	// opPromote replaced a placeholder by its children (or by its first
	// child acting as surrogate parent).
	opPromote
	// opSubject moved an orphan root under another root sharing its base
	// subject.
	opSubject
)

// promoted remembers one relocated child together with the edge flag it had
// before the move.
type promoted struct {
	node *models.Container
	real bool
}

// record is a single reversible structural operation.
type record struct {
	kind   opKind
	node   *models.Container
	parent *models.Container
	// children holds the node's former children in order, for opPromote.
	children []promoted
}

// Rewind pops the history newest-first and undoes every prune and group
// operation, restoring the raw (unpruned, ungrouped) forest. Rewinding an
// empty history is a no-op. The pruned root list is invalidated.
func (s *State) Rewind() {
	s.Lock()
	defer s.Unlock()
	s.rewind()
}

func (s *State) rewind() {
	for i := len(s.history) - 1; i >= 0; i-- {
		s.rewindOne(s.history[i])
	}
	if len(s.history) > 0 {
		log.Tracef("rewound %d threading operations", len(s.history))
	}
	s.history = nil
	s.roots = nil
}

func (s *State) rewindOne(r record) {
	switch r.kind {
	case opDrop:
		models.Link(r.parent, r.node, false)
	case opPromote:
		// pull the promoted children back under the placeholder, in
		// their original order and with their original edge flags,
		// then put the placeholder back where it was
		for _, k := range r.children {
			k.node.Detach()
			r.node.AddChild(k.node, true)
			k.node.RealEdge = k.real
		}
		models.Link(r.parent, r.node, false)
	case opSubject:
		r.node.Detach()
		r.node.RealEdge = true
	}
}

// snapshot records children with their current edge flags.
func snapshot(children []*models.Container) []promoted {
	kids := make([]promoted, 0, len(children))
	for _, k := range children {
		kids = append(kids, promoted{node: k, real: k.RealEdge})
	}
	return kids
}
