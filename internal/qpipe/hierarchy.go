package qpipe

import (
	"fmt"
	"strings"
)

// Payload is the variant-specific data carried by a hierarchy node. Merge
// folds another payload into this one, filling only fields currently unset;
// it is invoked when a URI is inserted a second time.
type Payload[P any] interface {
	Merge(other P)
}

// HierarchyNode is one node of a URI hierarchy. A node's URI is always a
// strict textual extension of its parent's URI.
type HierarchyNode[P Payload[P]] struct {
	ID       int
	URI      string
	ParentID int
	Children []*HierarchyNode[P]
	Payload  P
}

// Hierarchy is the online tree-insertion engine shared by the resource and
// problem hierarchies. Nodes are discovered one leaf at a time from
// arbitrary-depth URIs; shared path prefixes are split without re-scanning
// the tree. Identifiers are assigned in pre-order at insertion time and
// never reused or renumbered.
type Hierarchy[P Payload[P]] struct {
	root       *HierarchyNode[P]
	size       int
	newPayload func() P
}

// NewHierarchy creates a hierarchy with the given root URI (id 0).
// newPayload constructs the empty payload used for the root and for
// synthesized intermediate nodes.
func NewHierarchy[P Payload[P]](rootURI string, newPayload func() P) *Hierarchy[P] {
	return &Hierarchy[P]{
		root: &HierarchyNode[P]{
			ID:       0,
			URI:      rootURI,
			ParentID: -1,
			Payload:  newPayload(),
		},
		newPayload: newPayload,
	}
}

// Root returns the root node.
func (h *Hierarchy[P]) Root() *HierarchyNode[P] { return h.root }

// Size returns the number of nodes inserted so far, excluding the root.
func (h *Hierarchy[P]) Size() int { return h.size }

// Insert adds uri to the hierarchy with the given payload and returns the
// node's assigned id. Inserting a known URI merges the payload into the
// existing node and returns its id; otherwise one intermediate, payload-less
// node is synthesized per new path segment and the whole chain is appended
// under the deepest known ancestor. A uri that cannot extend its deepest
// known ancestor inserts nothing and returns -1.
func (h *Hierarchy[P]) Insert(uri string, payload P) int {
	ancestor := h.deepestKnownAncestor(uri)
	if ancestor.URI == uri {
		ancestor.Payload.Merge(payload)
		return ancestor.ID
	}

	if len(uri) <= len(ancestor.URI) {
		return -1
	}
	suffix := uri[len(ancestor.URI):]

	segments := strings.Split(suffix, "/")
	for len(segments) > 0 && segments[len(segments)-1] == "" {
		segments = segments[:len(segments)-1]
	}
	if len(segments) == 0 {
		return -1
	}

	// Intermediate nodes for every segment but the last, then the inserted
	// node itself carrying the full payload. Ids are assigned exactly once,
	// as the vertical chain is constructed.
	parent := ancestor
	prefix := ancestor.URI
	for _, segment := range segments[:len(segments)-1] {
		prefix += segment + "/"
		parent = h.appendChild(parent, prefix, h.newPayload())
	}
	leaf := h.appendChild(parent, uri, payload)
	return leaf.ID
}

func (h *Hierarchy[P]) appendChild(parent *HierarchyNode[P], uri string, payload P) *HierarchyNode[P] {
	h.size++
	node := &HierarchyNode[P]{
		ID:       h.size,
		URI:      uri,
		ParentID: parent.ID,
		Payload:  payload,
	}
	parent.Children = append(parent.Children, node)
	return node
}

// deepestKnownAncestor descends into the first child whose URI is a textual
// prefix of uri, repeating until no child qualifies. Cost is bounded by the
// URI's segment count.
func (h *Hierarchy[P]) deepestKnownAncestor(uri string) *HierarchyNode[P] {
	node := h.root
descend:
	for {
		for _, child := range node.Children {
			if strings.HasPrefix(uri, child.URI) {
				node = child
				continue descend
			}
		}
		return node
	}
}

// Walk visits every node in pre-order, root first.
func (h *Hierarchy[P]) Walk(visit func(node *HierarchyNode[P])) {
	var rec func(n *HierarchyNode[P])
	rec = func(n *HierarchyNode[P]) {
		visit(n)
		for _, child := range n.Children {
			rec(child)
		}
	}
	rec(h.root)
}

// String renders the hierarchy as an indented tree of URIs, one node per
// line, for human review.
func (h *Hierarchy[P]) String() string {
	var b strings.Builder
	var rec func(n *HierarchyNode[P], indent string)
	rec = func(n *HierarchyNode[P], indent string) {
		fmt.Fprintf(&b, "%s %s\n", indent, n.URI)
		for _, child := range n.Children {
			rec(child, indent+"*")
		}
	}
	rec(h.root, "*")
	return b.String()
}
