package threads_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"git.sr.ht/~rjarry/threadtree/lib/threads"
	"git.sr.ht/~rjarry/threadtree/models"
)

// shape renders a forest as a compact string: every container is its row
// in [brackets] for evidenced edges or <angles> for subject-grouped ones,
// children in parens. Containers without an indexed message render as ?.
func shape(s *threads.State, roots []*models.Container) string {
	var parts []string
	for _, c := range roots {
		parts = append(parts, nodeShape(s, c))
	}
	return strings.Join(parts, " ")
}

func nodeShape(s *threads.State, c *models.Container) string {
	label := "?"
	if row, ok := s.Row(c); ok && c.Message != nil {
		label = strconv.Itoa(row)
	}
	if c.RealEdge {
		label = "[" + label + "]"
	} else {
		label = "<" + label + ">"
	}
	if len(c.Children) == 0 {
		return label
	}
	var kids []string
	for _, k := range c.Children {
		kids = append(kids, nodeShape(s, k))
	}
	return label + "(" + strings.Join(kids, ",") + ")"
}

type edge struct {
	parent, child *models.Container
}

// edges snapshots the full parent/child relation of the raw forest, also
// verifying mutual consistency along the way.
func edges(t *testing.T, s *threads.State) map[edge]bool {
	t.Helper()
	set := make(map[edge]bool)
	for _, root := range s.RawRoots() {
		err := root.Walk(func(c *models.Container, level int) error {
			for _, k := range c.Children {
				if k.Parent != c {
					t.Fatalf("inconsistent edge between %s and %s", c, k)
				}
				set[edge{parent: c, child: k}] = true
			}
			return nil
		})
		assert.NoError(t, err)
	}
	return set
}

func TestThreadReferences(t *testing.T) {
	s := threads.NewState()
	roots := s.Thread([]threads.Tuple{
		{Row: 1, MessageID: "A", Subject: "Hello"},
		{Row: 2, MessageID: "B", References: "A", Subject: "Re: Hello"},
		{Row: 3, MessageID: "C", References: "A B", Subject: "Re: Hello"},
	})
	assert.Equal(t, "[1]([2]([3]))", shape(s, roots))
}

func TestThreadSubjectFallback(t *testing.T) {
	s := threads.NewState()
	roots := s.Thread([]threads.Tuple{
		{Row: 1, MessageID: "X", Subject: "foo"},
		{Row: 2, MessageID: "Y", Subject: "Re: foo"},
	})
	// no reference link at all: grouped purely by subject, angle edge
	assert.Equal(t, "[1](<2>)", shape(s, roots))
}

func TestThreadGhostReference(t *testing.T) {
	s := threads.NewState()
	roots := s.Thread([]threads.Tuple{
		{Row: 1, MessageID: "M", References: "ghost", Subject: "Subj"},
	})
	// the ghost placeholder must not survive as a root
	assert.Equal(t, "[1]", shape(s, roots))
}

func TestThreadReplySeenFirst(t *testing.T) {
	s := threads.NewState()
	roots := s.Thread([]threads.Tuple{
		{Row: 1, MessageID: "Y", References: "X", Subject: "Re: late"},
		{Row: 2, MessageID: "X", Subject: "late"},
	})
	// X was a placeholder until row 2 filled it in
	assert.Equal(t, "[2]([1])", shape(s, roots))
}

func TestThreadInReplyToHeuristic(t *testing.T) {
	s := threads.NewState()
	roots := s.Thread([]threads.Tuple{
		{Row: 1, MessageID: "<a@x>", Subject: "hi"},
		{
			Row: 2, MessageID: "<b@x>",
			InReplyTo: "Your message of Friday <a@x>",
			Subject:   "Re: hi",
		},
	})
	assert.Equal(t, "[1]([2])", shape(s, roots))
}

func TestPruneDisagreeingReferences(t *testing.T) {
	s := threads.NewState()
	roots := s.Thread([]threads.Tuple{
		{Row: 1, MessageID: "A", References: "g1 g2 g3", Subject: "a"},
		{Row: 2, MessageID: "B", References: "g1 g3", Subject: "b"},
	})
	// all three ghosts collapse; the first survivor by row adopts the rest
	assert.Equal(t, "[1](<2>)", shape(s, roots))
}

func TestSelfAndMutualReferences(t *testing.T) {
	s := threads.NewState()
	roots := s.Thread([]threads.Tuple{
		{Row: 1, MessageID: "A", References: "A", InReplyTo: "<A>", Subject: "a"},
		{Row: 2, MessageID: "B", References: "C", Subject: "b"},
		{Row: 3, MessageID: "C", References: "B", Subject: "c"},
	})
	// adversarial chains must degrade into some valid forest
	for _, c := range roots {
		assert.True(t, c.Parent == nil)
	}
	// B named C as its ancestor first; C's counter-claim is refused
	assert.Equal(t, "[1] [3]([2])", shape(s, roots))
}

func TestMalformedTuples(t *testing.T) {
	s := threads.NewState()
	roots := s.Thread([]threads.Tuple{
		{Row: 0, MessageID: "Z", Subject: "bad row"},
		{Row: 1, MessageID: "", Subject: "no id"},
		{Row: 2, MessageID: "A", Subject: "ok"},
	})
	assert.Equal(t, "[2]", shape(s, roots))
}

func TestRewindRestoresRawTree(t *testing.T) {
	tuples := []threads.Tuple{
		{Row: 1, MessageID: "A", References: "g1 g2", Subject: "a"},
		{Row: 2, MessageID: "B", References: "g1", Subject: "b"},
		{Row: 3, MessageID: "X", Subject: "foo"},
		{Row: 4, MessageID: "Y", Subject: "Re: foo"},
		{Row: 5, MessageID: "M", References: "ghost", Subject: "m"},
	}

	s := threads.NewState()
	s.Add(tuples...)
	before := edges(t, s)

	s.Prune()
	s.GatherSubjects()
	s.Rewind()
	after := edges(t, s)

	assert.Equal(t, before, after)
	for _, root := range s.RawRoots() {
		err := root.Walk(func(c *models.Container, level int) error {
			assert.True(t, c.RealEdge, "edge flag not restored on %s", c)
			return nil
		})
		assert.NoError(t, err)
	}
	assert.Nil(t, s.Roots())
}

func TestRewindEmptyHistory(t *testing.T) {
	s := threads.NewState()
	s.Rewind() // no-op
	s.Add(threads.Tuple{Row: 1, MessageID: "A", Subject: "a"})
	before := edges(t, s)
	s.Rewind()
	assert.Equal(t, before, edges(t, s))
}

func TestIncrementalEqualsFull(t *testing.T) {
	t1 := []threads.Tuple{
		{Row: 1, MessageID: "A", Subject: "Hello"},
		{Row: 2, MessageID: "B", References: "A", Subject: "Re: Hello"},
		{Row: 3, MessageID: "M", References: "ghost", Subject: "m"},
		{Row: 4, MessageID: "X", Subject: "foo"},
	}
	t2 := []threads.Tuple{
		{Row: 5, MessageID: "C", References: "A B", Subject: "Re: Hello"},
		{Row: 6, MessageID: "ghost", Subject: "older"},
		{Row: 7, MessageID: "Y", Subject: "Re: foo"},
	}

	incremental := threads.NewState()
	incremental.Thread(t1)
	rootsInc := incremental.Update(t2)

	full := threads.NewState()
	rootsFull := full.Thread(append(append([]threads.Tuple{}, t1...), t2...))

	assert.Equal(t, shape(full, rootsFull), shape(incremental, rootsInc))
}

func TestUpdateFillsOldPlaceholder(t *testing.T) {
	s := threads.NewState()
	s.Thread([]threads.Tuple{
		{Row: 1, MessageID: "M", References: "ghost", Subject: "m"},
	})
	roots := s.Update([]threads.Tuple{
		{Row: 2, MessageID: "ghost", Subject: "older"},
	})
	// the ghost arrived late and must reclaim its child
	assert.Equal(t, "[2]([1])", shape(s, roots))
}

func TestDeterminism(t *testing.T) {
	tuples := []threads.Tuple{
		{Row: 1, MessageID: "A", References: "g1 g2 g3", Subject: "a"},
		{Row: 2, MessageID: "B", References: "g1 g3", Subject: "b"},
		{Row: 3, MessageID: "C", References: "A", Subject: "Re: a"},
		{Row: 4, MessageID: "X", Subject: "foo"},
		{Row: 5, MessageID: "Y", Subject: "Re: foo"},
		{Row: 6, MessageID: "Z", Subject: "fwd: foo"},
	}
	a := threads.NewState()
	b := threads.NewState()
	assert.Equal(t,
		shape(a, a.Thread(tuples)),
		shape(b, b.Thread(tuples)))
}

func TestDuplicateRows(t *testing.T) {
	s := threads.NewState()
	roots := s.Thread([]threads.Tuple{
		{Row: 1, MessageID: "A", Subject: "a"},
		{Row: 2, MessageID: "B", Subject: "b"},
		{Row: 3, MessageID: "A", Subject: "a"},
	})
	// the latest row governs the container; earlier rows stay as
	// duplicates and resolve to the same container
	assert.Equal(t, "[2] [3]", shape(s, roots))

	c := s.ByRow(3)
	assert.NotNil(t, c)
	assert.Equal(t, []int{1}, s.DuplicateRows(c))
	assert.True(t, s.ByRow(1) == c)
}

func TestForget(t *testing.T) {
	s := threads.NewState()
	s.Thread([]threads.Tuple{
		{Row: 1, MessageID: "X", Subject: "x"},
		{Row: 2, MessageID: "Y", References: "X", Subject: "y"},
	})

	s.Forget(2)
	assert.Nil(t, s.ByRow(2))
	// Forget does not reshape the tree by itself
	assert.Equal(t, "[1]([?])", shape(s, s.Roots()))

	// a rebuild makes the shape follow
	roots := s.Update(nil)
	assert.Equal(t, "[1]", shape(s, roots))

	// forgetting an unknown row is a no-op
	s.Forget(42)
	assert.Equal(t, "[1]", shape(s, s.Roots()))
}

func TestEmptySubjectGrouping(t *testing.T) {
	tuples := []threads.Tuple{
		{Row: 1, MessageID: "A", Subject: ""},
		{Row: 2, MessageID: "B", Subject: ""},
	}

	s := threads.NewState()
	roots := s.Thread(tuples)
	// subject-less messages are left dangling by default
	assert.Equal(t, "[1] [2]", shape(s, roots))

	merging := threads.NewState()
	merging.GroupEmptySubject = true
	roots = merging.Thread(tuples)
	assert.Equal(t, "[1](<2>)", shape(merging, roots))
}

func TestReset(t *testing.T) {
	s := threads.NewState()
	s.Thread([]threads.Tuple{{Row: 1, MessageID: "A", Subject: "a"}})
	s.Reset()
	assert.Nil(t, s.Roots())
	assert.Nil(t, s.ByRow(1))
	roots := s.Thread([]threads.Tuple{{Row: 1, MessageID: "B", Subject: "b"}})
	assert.Equal(t, "[1]", shape(s, roots))
}
