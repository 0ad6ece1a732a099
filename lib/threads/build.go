package threads

import (
	sortthread "github.com/emersion/go-imap-sortthread"

	"git.sr.ht/~rjarry/threadtree/lib/intern"
	"git.sr.ht/~rjarry/threadtree/lib/log"
	"git.sr.ht/~rjarry/threadtree/lib/parse"
	"git.sr.ht/~rjarry/threadtree/models"
)

// add links one raw tuple into the unpruned forest. Malformed tuples are
// skipped; whatever remains still yields a valid forest.
func (s *State) add(t Tuple) {
	if t.Row < 1 {
		log.Debugf("skipping tuple with invalid row %d", t.Row)
		return
	}
	msgid := parse.MsgID(t.MessageID)
	if msgid == "" {
		log.Debugf("skipping row %d without a message id", t.Row)
		return
	}

	irp := parse.LastMsgID(t.InReplyTo)
	refs := cleanRefs(msgid, irp, parse.FieldMsgIDList(t.References))

	subject, reply := sortthread.GetBaseSubject(t.Subject)

	id := s.ids.Get(msgid)
	msg := &models.Message{
		ID:             id,
		Refs:           make([]intern.Atom, 0, len(refs)),
		Subject:        s.subjects.Get(subject),
		SubjectIsReply: reply,
	}
	for _, ref := range refs {
		msg.Refs = append(msg.Refs, s.ids.Get(ref))
	}

	s.rows.Put(id, t.Row)
	c := s.container(id)
	c.Message = msg

	// Link the ancestor chain pairwise: refs A B C make C a child of B, B
	// a child of A. Links that would loop are silently refused.
	var parent *models.Container
	for _, ref := range msg.Refs {
		rc := s.container(ref)
		if parent != nil && parent != rc {
			parent.AddChild(rc, false)
		}
		parent = rc
	}

	// This tuple is the latest word on where its message sits: drop
	// whatever parent an earlier reference walk presumed and link under
	// the last ancestor, if any. A message whose references disagree with
	// everyone else's may end up parentless again.
	c.Detach()
	if parent != nil && parent != c {
		parent.AddChild(c, false)
	}
}

// cleanRefs cleans up the references for threading:
// 1) the message's own id must not be part of its references
// 2) no id may occur twice (avoid circularities)
// 3) the in-reply-to guess belongs at the end of the chain, not the start
func cleanRefs(m, irp string, refs []string) []string {
	considered := make(map[string]any)
	cleaned := make([]string, 0, len(refs)+1)
	for _, r := range refs {
		if _, seen := considered[r]; r != m && !seen {
			considered[r] = nil
			cleaned = append(cleaned, r)
		}
	}
	if irp != "" && irp != m {
		if len(cleaned) == 0 {
			return []string{irp}
		}
		if cleaned[0] == irp && len(cleaned) > 1 {
			cleaned = append(cleaned[1:], irp)
		} else if _, seen := considered[irp]; !seen {
			cleaned = append(cleaned, irp)
		}
	}
	return cleaned
}
