package models

import (
	"errors"
	"fmt"

	"git.sr.ht/~rjarry/threadtree/lib/intern"
)

// Message is the threading-relevant data extracted from one raw message row.
// It is immutable once constructed; a row seen again with superseding data
// gets a fresh Message.
type Message struct {
	// ID is the canonical message id.
	ID intern.Atom
	// Refs is the canonical ancestor chain, oldest first, derived from the
	// References field plus the in-reply-to guess.
	Refs []intern.Atom
	// Subject is the canonical base subject, with reply and forward
	// markers stripped.
	Subject intern.Atom
	// SubjectIsReply records whether stripping changed the subject text.
	// A non-reply subject makes a more likely thread root.
	SubjectIsReply bool
}

// Container is one node of the reconstructed reply forest. It wraps zero or
// one Message: a container without a message is a placeholder that exists
// only because some other message referenced its id.
//
// Parent and Children are kept mutually consistent by the link methods, and
// the graph is always a forest: AddChild refuses any link that would make a
// container its own ancestor.
type Container struct {
	// ID is the canonical id this container stands for, set at creation
	// even while the container is still a placeholder.
	ID intern.Atom
	// Message is nil for placeholders.
	Message *Message
	Parent  *Container
	// Children in insertion/promotion order, not necessarily chronological.
	Children []*Container
	// RealEdge is true when the link to Parent is backed by reference-chain
	// evidence and false when it was only inferred by subject grouping.
	// Renderers use it to pick bracket vs. angle-bracket markers.
	RealEdge bool
}

// NewContainer creates a detached placeholder for id.
func NewContainer(id intern.Atom) *Container {
	return &Container{ID: id, RealEdge: true}
}

// IsAncestorOf reports whether c is reached by walking the parent chain
// upwards from o. A container is trivially its own ancestor.
func (c *Container) IsAncestorOf(o *Container) bool {
	for ; o != nil; o = o.Parent {
		if o == c {
			return true
		}
	}
	return false
}

// Detach unlinks c from its parent's children list and clears the parent
// pointer. Detaching a root is a no-op.
func (c *Container) Detach() {
	if c.Parent == nil {
		return
	}
	siblings := c.Parent.Children
	for i, s := range siblings {
		if s == c {
			c.Parent.Children = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	c.Parent = nil
}

// AddChild links child under c, replacing any previous parent link of
// child. By default the child is inserted at the front of the children
// list; atEnd appends it instead, which preserves the existing visual order
// when reassigning orphans. A link that would make a container its own
// ancestor is silently refused: the heuristic must degrade gracefully on
// adversarial reference chains instead of aborting.
func (c *Container) AddChild(child *Container, atEnd bool) {
	if child == nil || child.IsAncestorOf(c) {
		return
	}
	child.Detach()
	if atEnd {
		c.Children = append(c.Children, child)
	} else {
		c.Children = append([]*Container{child}, c.Children...)
	}
	child.Parent = c
}

// Link attaches child under parent like parent.AddChild. A nil parent is
// equivalent to child.Detach.
func Link(parent, child *Container, atEnd bool) {
	if parent == nil {
		child.Detach()
		return
	}
	parent.AddChild(child, atEnd)
}

// ErrSkipContainer can be returned from a walk function to skip the subtree
// below the current container.
var ErrSkipContainer = errors.New("skip this container")

// WalkFn is called for each container visited by Walk, with the depth below
// the walk root (the root itself is level 0).
type WalkFn func(c *Container, level int) error

// Walk traverses the subtree rooted at c depth-first, children in order.
func (c *Container) Walk(walkFn WalkFn) error {
	err := walk(c, walkFn, 0)
	if err == ErrSkipContainer {
		return nil
	}
	return err
}

func walk(c *Container, walkFn WalkFn, level int) error {
	if c == nil {
		return nil
	}
	err := walkFn(c, level)
	if err != nil {
		return err
	}
	for _, child := range c.Children {
		err = walk(child, walkFn, level+1)
		if err == ErrSkipContainer {
			continue
		} else if err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) String() string {
	if c == nil {
		return "<nil>"
	}
	id := "?"
	if c.ID != nil {
		id = *c.ID
	}
	parent := "-"
	if c.Parent != nil && c.Parent.ID != nil {
		parent = *c.Parent.ID
	}
	kind := "msg"
	if c.Message == nil {
		kind = "empty"
	}
	return fmt.Sprintf("[%s] (%s, parent:%s, children:%d)",
		id, kind, parent, len(c.Children))
}
