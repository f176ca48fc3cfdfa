package toc

import "sort"

// ExpandedSet is the set of hrefs whose children are shown in the sidebar.
type ExpandedSet struct {
	hrefs map[string]struct{}
}

// NewExpandedSet creates an empty set.
func NewExpandedSet() *ExpandedSet {
	return &ExpandedSet{hrefs: make(map[string]struct{})}
}

func (s *ExpandedSet) Add(href string) { s.hrefs[href] = struct{}{} }

func (s *ExpandedSet) Remove(href string) { delete(s.hrefs, href) }

func (s *ExpandedSet) Has(href string) bool {
	_, ok := s.hrefs[href]
	return ok
}

// Toggle flips href and returns whether it is now expanded.
func (s *ExpandedSet) Toggle(href string) bool {
	if s.Has(href) {
		s.Remove(href)
		return false
	}
	s.Add(href)
	return true
}

func (s *ExpandedSet) Len() int { return len(s.hrefs) }

// Clear collapses everything.
func (s *ExpandedSet) Clear() {
	s.hrefs = make(map[string]struct{})
}

// Hrefs returns the expanded hrefs in sorted order.
func (s *ExpandedSet) Hrefs() []string {
	out := make([]string, 0, len(s.hrefs))
	for h := range s.hrefs {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// Row is one visible line of the sidebar.
type Row struct {
	Node     Node
	Depth    int
	Expanded bool
	Active   bool
}

// Sidebar is the chapter list view state: the tree, its expansion and the
// active location. It is owned by a single UI goroutine.
type Sidebar struct {
	chapters []Node
	expanded *ExpandedSet
	active   string
}

// NewSidebar creates an empty sidebar.
func NewSidebar() *Sidebar {
	return &Sidebar{expanded: NewExpandedSet()}
}

// SetChapters replaces the tree. Expansion from the previous book is cleared.
func (s *Sidebar) SetChapters(nodes []Node) {
	s.chapters = nodes
	s.expanded.Clear()
	if s.active != "" {
		AutoExpand(s.chapters, s.active, s.expanded)
	}
}

func (s *Sidebar) Chapters() []Node { return s.chapters }

// SetActive records the active locator and, when it changed, expands the
// ancestors of its entry. It reports whether the active locator changed.
func (s *Sidebar) SetActive(href string) bool {
	if href == s.active {
		return false
	}
	s.active = href
	if href != "" {
		AutoExpand(s.chapters, href, s.expanded)
	}
	return true
}

func (s *Sidebar) Active() string { return s.active }

// Toggle flips the expansion of one entry.
func (s *Sidebar) Toggle(href string) bool { return s.expanded.Toggle(href) }

func (s *Sidebar) IsExpanded(href string) bool { return s.expanded.Has(href) }

// IsActive reports whether href is the active chapter, regardless of
// whether it is currently visible.
func (s *Sidebar) IsActive(href string) bool {
	return s.active != "" && Matches(href, s.active)
}

// Expanded exposes the underlying set.
func (s *Sidebar) Expanded() *ExpandedSet { return s.expanded }

// Rows flattens the visible part of the tree in display order.
func (s *Sidebar) Rows() []Row {
	var rows []Row
	var walk func(nodes []Node, depth int)
	walk = func(nodes []Node, depth int) {
		for _, n := range nodes {
			expanded := n.IsBranch() && s.expanded.Has(n.Href)
			rows = append(rows, Row{
				Node:     n,
				Depth:    depth,
				Expanded: expanded,
				Active:   s.IsActive(n.Href),
			})
			if expanded {
				walk(n.Children, depth+1)
			}
		}
	}
	walk(s.chapters, 0)
	return rows
}
