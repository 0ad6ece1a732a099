package threads

import (
	"sort"

	"git.sr.ht/~rjarry/threadtree/models"
)

// Prune removes the structural noise the reference walk leaves behind:
// placeholder containers that exist only because some message referenced
// their id. Every change is recorded on the history stack. The returned
// roots all hold a real, currently indexed message and are ordered by
// ascending row.
func (s *State) Prune() []*models.Container {
	s.Lock()
	defer s.Unlock()
	return s.prune()
}

func (s *State) prune() []*models.Container {
	// Flatten the forest depth-first, then resolve in reverse so that
	// every container's children have met their fate before it does.
	var work []*models.Container
	for _, c := range s.order {
		if c.Parent == nil {
			flatten(&work, c)
		}
	}

	for i := len(work) - 1; i >= 0; i-- {
		c := work[i]
		switch {
		case s.indexed(c):
			// A real message. Its children are stably reordered by
			// listing position.
			s.sortByRow(c.Children)

		case len(c.Children) > 0 && (len(c.Children) == 1 || c.Parent != nil):
			// A placeholder with kids that can move up one level:
			// either there is only one kid, or the placeholder is not
			// itself a root, so promotion does not flood the root set.
			s.promote(c)

		case len(c.Children) > 1:
			// A placeholder root with several kids. Promoting them all
			// would break the thread apart, so the first kid becomes a
			// surrogate parent for the rest.
			s.promoteSurrogate(c)

		default:
			// A placeholder without kids. Such containers show up when
			// two messages have References that disagree about the
			// ancestry of an unseen id.
			s.drop(c)
		}
	}

	var roots []*models.Container
	for _, c := range s.order {
		if c.Parent == nil && s.indexed(c) {
			roots = append(roots, c)
		}
	}
	s.sortByRow(roots)
	s.roots = roots
	return roots
}

func flatten(work *[]*models.Container, c *models.Container) {
	*work = append(*work, c)
	for _, child := range c.Children {
		flatten(work, child)
	}
}

func (s *State) sortByRow(containers []*models.Container) {
	sort.SliceStable(containers, func(i, j int) bool {
		return s.row(containers[i]) < s.row(containers[j])
	})
}

// promote discards a placeholder by relinking its children directly under
// its former parent, or to the root set when it had none. Children are
// appended at the end to keep their visual order.
func (s *State) promote(c *models.Container) {
	rec := record{
		kind:     opPromote,
		node:     c,
		parent:   c.Parent,
		children: snapshot(c.Children),
	}
	c.Detach()
	for _, k := range rec.children {
		models.Link(rec.parent, k.node, true)
	}
	s.history = append(s.history, rec)
}

// promoteSurrogate handles a placeholder root with several children: its
// first child (by listing position) takes the placeholder's place and
// adopts the remaining children. The adopted edges carry no reference
// evidence and are flagged accordingly.
func (s *State) promoteSurrogate(c *models.Container) {
	rec := record{
		kind:     opPromote,
		node:     c,
		children: snapshot(c.Children),
	}
	kids := make([]*models.Container, len(c.Children))
	copy(kids, c.Children)
	s.sortByRow(kids)

	first := kids[0]
	first.Detach()
	for _, k := range kids[1:] {
		first.AddChild(k, true)
		k.RealEdge = false
	}
	s.history = append(s.history, rec)
}

// drop unlinks a childless placeholder.
func (s *State) drop(c *models.Container) {
	rec := record{kind: opDrop, node: c, parent: c.Parent}
	c.Detach()
	s.history = append(s.history, rec)
}
