// Package menu implements a rofi script-mode menu: a tree of entries whose
// leaves run actions, reordered by how often each entry is picked.
package menu

import (
	"context"
	"slices"
	"sort"
	"strings"
)

// SEP joins path segments. A path string starts with SEP; the root is "".
const SEP = "|$|$|"

// Call describes one selected leaf.
type Call struct {
	// Arg is the selected entry's label.
	Arg string
	// Path is the SEP-joined path of the entry.
	Path string
	Root *Node
}

// Action runs when a leaf is selected.
type Action func(ctx context.Context, call Call) error

// Node is a menu entry. Children keep insertion order until sorted.
type Node struct {
	Action   Action
	ForceTop int
	UseFreq  bool

	keys     []string
	children map[string]*Node
}

// NewNode returns an empty node that takes part in frequency sorting.
func NewNode() *Node {
	return &Node{UseFreq: true, children: make(map[string]*Node)}
}

// Keys returns the child labels in display order.
func (n *Node) Keys() []string { return slices.Clone(n.keys) }

// Child returns the child labelled k.
func (n *Node) Child(k string) (*Node, bool) {
	c, ok := n.children[k]
	return c, ok
}

// HasChildren reports whether n is a submenu.
func (n *Node) HasChildren() bool { return len(n.keys) > 0 }

// Set inserts or replaces the child k. A replaced child keeps its position.
func (n *Node) Set(k string, child *Node) {
	if n.children == nil {
		n.children = make(map[string]*Node)
	}
	if _, ok := n.children[k]; !ok {
		n.keys = append(n.keys, k)
	}
	n.children[k] = child
}

// Add installs action at path, creating intermediate submenus. A leaf in
// the way of an intermediate segment is replaced by a submenu.
func Add(root *Node, path []string, action Action) {
	if len(path) == 0 {
		return
	}
	cur := root
	for _, seg := range path[:len(path)-1] {
		next, ok := cur.Child(seg)
		if !ok || (!next.HasChildren() && next.Action != nil) {
			next = NewNode()
			cur.Set(seg, next)
		}
		cur = next
	}
	leaf := NewNode()
	leaf.Action = action
	cur.Set(path[len(path)-1], leaf)
}

// JoinPath builds a path string from segments.
func JoinPath(segs ...string) string {
	if len(segs) == 0 {
		return ""
	}
	return SEP + strings.Join(segs, SEP)
}

// SplitPath returns the segments of a path string.
func SplitPath(path string) []string {
	parts := strings.Split(path, SEP)
	return parts[1:]
}

// Lookup finds the node at path. The root path "" is never found.
func Lookup(root *Node, path string) (*Node, bool) {
	segs := SplitPath(path)
	if len(segs) == 0 || root == nil {
		return nil, false
	}
	cur := root
	for _, seg := range segs {
		next, ok := cur.Child(seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// SortByFreq reorders every submenu by ForceTop, then pick count, then
// insertion order. Nodes with UseFreq unset and paths listed in exclude are
// left as they are, subtree included.
func SortByFreq(root *Node, freq map[string]int, exclude []string) {
	sortByFreq(root, "", freq, exclude)
}

func sortByFreq(n *Node, path string, freq map[string]int, exclude []string) {
	if !n.HasChildren() || !n.UseFreq || slices.Contains(exclude, path) {
		return
	}
	childPath := func(k string) string { return path + SEP + k }
	sort.SliceStable(n.keys, func(i, j int) bool {
		a, b := n.children[n.keys[i]], n.children[n.keys[j]]
		if a.ForceTop != b.ForceTop {
			return a.ForceTop > b.ForceTop
		}
		return freq[childPath(n.keys[i])] > freq[childPath(n.keys[j])]
	})
	for _, k := range n.keys {
		sortByFreq(n.children[k], childPath(k), freq, exclude)
	}
}
