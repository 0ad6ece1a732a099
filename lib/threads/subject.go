package threads

import (
	"git.sr.ht/~rjarry/threadtree/lib/intern"
	"git.sr.ht/~rjarry/threadtree/lib/log"
	"git.sr.ht/~rjarry/threadtree/models"
)

// GatherSubjects merges pruned roots that share a base subject, so that
// replies without any References still end up threaded. The first root
// seen for a subject adopts every later root with the same subject; the
// adopted edges are only a guess and are flagged as such. Merges are
// recorded on the history stack like prune operations.
func (s *State) GatherSubjects() []*models.Container {
	s.Lock()
	defer s.Unlock()
	return s.gatherSubjects()
}

func (s *State) gatherSubjects() []*models.Container {
	// transient, valid for this pass only
	table := make(map[intern.Atom]*models.Container)

	merged := 0
	kept := s.roots[:0]
	for _, c := range s.roots {
		subj := s.effectiveSubject(c)
		if subj == nil || (subj == intern.Empty() && !s.GroupEmptySubject) {
			kept = append(kept, c)
			continue
		}
		old, ok := table[subj]
		if !ok {
			table[subj] = c
			kept = append(kept, c)
			continue
		}
		old.AddChild(c, true)
		c.RealEdge = false
		s.history = append(s.history, record{kind: opSubject, node: c})
		merged++
	}
	if merged > 0 {
		log.Tracef("%d roots merged by subject", merged)
	}
	s.roots = kept
	return kept
}

// effectiveSubject returns the base subject representing c: its own
// message's subject, or the subject of its first real descendant while c
// is a placeholder.
func (s *State) effectiveSubject(c *models.Container) intern.Atom {
	if c.Message != nil {
		return c.Message.Subject
	}
	for _, child := range c.Children {
		if subj := s.effectiveSubject(child); subj != nil {
			return subj
		}
	}
	return nil
}
