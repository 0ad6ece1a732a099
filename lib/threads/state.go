// Package threads reconstructs the reply forest implied by a flat folder
// listing, following the classic reference-threading approach: wrap every
// message id in a container, link containers by reference chains, prune the
// placeholder containers left behind by dangling references, then group the
// remaining orphan roots by base subject.
//
// All per-folder tables live in a State owned by the caller. Pruning and
// grouping record every structural change on an undo stack, so a folder
// that grows new messages can be rewound to the raw reference tree,
// extended, and pruned again without re-parsing rows already seen.
package threads

import (
	"sync"
	"time"

	"git.sr.ht/~rjarry/threadtree/lib/intern"
	"git.sr.ht/~rjarry/threadtree/lib/log"
	"git.sr.ht/~rjarry/threadtree/lib/rowmap"
	"git.sr.ht/~rjarry/threadtree/models"
)

// Tuple is one raw message row as handed over by the mail store, in the
// store's natural (ascending row) order.
type Tuple struct {
	// Row is the position in the flat message listing, starting at 1.
	Row int
	// MessageID, References, InReplyTo and Subject are raw header field
	// values, possibly malformed.
	MessageID  string
	References string
	InReplyTo  string
	Subject    string
}

// State holds every table of one threaded folder. It is exclusively owned
// by one logical folder: a single build, prune, group or rewind pass runs
// at a time and the embedded lock only guards against accidental re-entry,
// not for concurrent mutation.
type State struct {
	sync.Mutex

	// GroupEmptySubject lets the subject grouper merge roots whose base
	// subject is empty. Off by default so that unrelated subject-less
	// messages are left dangling instead of being piled into one thread.
	GroupEmptySubject bool

	ids      *intern.Pool
	subjects *intern.Pool
	registry map[intern.Atom]*models.Container
	// order retains containers in creation order so that traversals never
	// depend on map iteration
	order   []*models.Container
	rows    *rowmap.Store
	history []record
	roots   []*models.Container
}

// NewState creates an empty folder state.
func NewState() *State {
	s := &State{}
	s.reset()
	return s
}

// Reset discards every table, containers included. Used when the owning
// folder is rescanned from scratch.
func (s *State) Reset() {
	s.Lock()
	defer s.Unlock()
	s.reset()
}

func (s *State) reset() {
	s.ids = intern.NewPool()
	s.subjects = intern.NewPool()
	s.registry = make(map[intern.Atom]*models.Container)
	s.order = nil
	s.rows = rowmap.NewStore()
	s.history = nil
	s.roots = nil
}

// container returns the container registered for id, lazily creating a
// placeholder on first reference.
func (s *State) container(id intern.Atom) *models.Container {
	c, ok := s.registry[id]
	if !ok {
		c = models.NewContainer(id)
		s.registry[id] = c
		s.order = append(s.order, c)
	}
	return c
}

// indexed reports whether c holds a real message whose id is currently
// present in the row maps. Containers failing this are treated as
// placeholders by the pruner, even if they once held a message.
func (s *State) indexed(c *models.Container) bool {
	if c.Message == nil {
		return false
	}
	_, ok := s.rows.Row(c.ID)
	return ok
}

// row returns the sort key of c in the flat listing. Containers without a
// registered row sort after every real row.
func (s *State) row(c *models.Container) int {
	if r, ok := s.rows.Row(c.ID); ok {
		return r
	}
	return int(^uint(0) >> 1)
}

// Thread runs a full pass over tuples: build, prune, group. It returns the
// ordered forest roots.
func (s *State) Thread(tuples []Tuple) []*models.Container {
	s.Lock()
	defer s.Unlock()
	start := time.Now()
	for _, t := range tuples {
		s.add(t)
	}
	s.prune()
	s.gatherSubjects()
	log.Tracef("%d roots from %d tuples threaded in %s",
		len(s.roots), len(tuples), time.Since(start))
	return s.roots
}

// Update extends an already threaded state with newly arrived tuples:
// rewind the prune/group history, link the new rows into the raw tree,
// then prune and group again. The result equals a full rebuild over the
// union of old and new tuples.
func (s *State) Update(tuples []Tuple) []*models.Container {
	s.Lock()
	defer s.Unlock()
	start := time.Now()
	s.rewind()
	for _, t := range tuples {
		s.add(t)
	}
	s.prune()
	s.gatherSubjects()
	log.Tracef("%d roots after %d new tuples in %s",
		len(s.roots), len(tuples), time.Since(start))
	return s.roots
}

// Add runs only the tree builder over tuples, linking them into the raw
// (unpruned) forest.
func (s *State) Add(tuples ...Tuple) {
	s.Lock()
	defer s.Unlock()
	for _, t := range tuples {
		s.add(t)
	}
}

// Roots returns the forest produced by the last prune/group pass, ordered
// by ascending row index. It is nil when only raw building has been done.
func (s *State) Roots() []*models.Container {
	s.Lock()
	defer s.Unlock()
	return s.roots
}

// RawRoots returns every parentless container in creation order, including
// placeholders. Mostly useful for inspecting the unpruned tree.
func (s *State) RawRoots() []*models.Container {
	s.Lock()
	defer s.Unlock()
	var roots []*models.Container
	for _, c := range s.order {
		if c.Parent == nil {
			roots = append(roots, c)
		}
	}
	return roots
}

// ByRow returns the container holding the message at the given listing
// row, for jumping from the flat listing into the rendered tree. Duplicate
// rows resolve to the container of their shared id.
func (s *State) ByRow(row int) *models.Container {
	s.Lock()
	defer s.Unlock()
	id, ok := s.rows.ID(row)
	if !ok {
		return nil
	}
	return s.registry[id]
}

// Row returns the primary listing row of c, if its message is currently
// indexed.
func (s *State) Row(c *models.Container) (int, bool) {
	s.Lock()
	defer s.Unlock()
	return s.rows.Row(c.ID)
}

// DuplicateRows returns the rows of raw messages sharing c's id beyond the
// primary one, for display expansion. Duplicates are never tree nodes.
func (s *State) DuplicateRows(c *models.Container) []int {
	s.Lock()
	defer s.Unlock()
	return s.rows.Duplicates(c.ID)
}

// Forget removes a single row from the row maps and the duplicate lists,
// e.g. when a message was deleted without a full rescan. The tree shape is
// left alone; the caller triggers a rebuild when shape must follow.
func (s *State) Forget(row int) {
	s.Lock()
	defer s.Unlock()
	s.rows.Forget(row)
}
