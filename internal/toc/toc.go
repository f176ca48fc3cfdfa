// Package toc holds the reader's table-of-contents tree and the sidebar
// state built on it: which entries are expanded and which is active.
package toc

import (
	"strings"

	"github.com/metcalfc/leaf/internal/surface"
)

// Node is one table-of-contents entry. Leaves have nil Children.
type Node struct {
	Label    string `json:"label"`
	Href     string `json:"href"`
	Children []Node `json:"children,omitempty"`
}

// IsBranch reports whether the node has child entries.
func (n Node) IsBranch() bool {
	return len(n.Children) > 0
}

// Map converts the surface's native TOC into Nodes, preserving order.
// An entry without sub-items becomes a leaf.
func Map(items []surface.TOCItem) []Node {
	if len(items) == 0 {
		return nil
	}
	nodes := make([]Node, 0, len(items))
	for _, item := range items {
		nodes = append(nodes, Node{
			Label:    item.Label,
			Href:     item.Href,
			Children: Map(item.Subitems),
		})
	}
	return nodes
}

// NormalizeHref drops the fragment and a single leading slash, leaving the
// document part of a locator.
func NormalizeHref(href string) string {
	doc, _, _ := strings.Cut(href, "#")
	return strings.TrimPrefix(doc, "/")
}

// Matches reports whether a TOC href designates the active locator: either
// exactly, or by document once fragments are ignored.
func Matches(href, active string) bool {
	return href == active || NormalizeHref(href) == NormalizeHref(active)
}

// AutoExpand finds the first entry, depth first, matching active and adds
// every strictly-ancestor href to set. It stops at the first match and
// reports whether one was found; set is untouched otherwise.
func AutoExpand(nodes []Node, active string, set *ExpandedSet) bool {
	if active == "" {
		return false
	}
	return expandParents(nodes, active, nil, set)
}

func expandParents(nodes []Node, active string, parents []string, set *ExpandedSet) bool {
	for _, n := range nodes {
		if Matches(n.Href, active) {
			for _, p := range parents {
				set.Add(p)
			}
			return true
		}
		if n.IsBranch() {
			path := append(parents[:len(parents):len(parents)], n.Href)
			if expandParents(n.Children, active, path, set) {
				return true
			}
		}
	}
	return false
}
