//go:build !gui

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/metcalfc/leaf/internal/bookmark"
	"github.com/metcalfc/leaf/internal/config"
	"github.com/metcalfc/leaf/internal/frame"
	"github.com/metcalfc/leaf/internal/gesture"
	"github.com/metcalfc/leaf/internal/surface"
	"github.com/metcalfc/leaf/internal/toc"
	"github.com/metcalfc/leaf/internal/view"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFAA00"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	textStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 2)

	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(lipgloss.Color("#444444"))

	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Padding(0, 1)

	activeTabStyle = tabStyle.
			Foreground(lipgloss.Color("#FFAA00")).
			Bold(true)

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	cursorStyle = lipgloss.NewStyle().
			Reverse(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000"))
)

type keyMap struct {
	Prev     key.Binding
	Next     key.Binding
	Sidebar  key.Binding
	Tab      key.Binding
	Up       key.Binding
	Down     key.Binding
	Select   key.Binding
	Expand   key.Binding
	Bookmark key.Binding
	Delete   key.Binding
	Restart  key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.Sidebar, k.Bookmark, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Prev, k.Next, k.Restart},
		{k.Sidebar, k.Tab, k.Up, k.Down, k.Select, k.Expand},
		{k.Bookmark, k.Delete, k.Help, k.Quit},
	}
}

var keys = keyMap{
	Prev:     key.NewBinding(key.WithKeys("left", "h", "pgup"), key.WithHelp("←/h", "prev page")),
	Next:     key.NewBinding(key.WithKeys("right", "l", "pgdown"), key.WithHelp("→/l", "next page")),
	Sidebar:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "contents")),
	Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "chapters/bookmarks")),
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Select:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "go to")),
	Expand:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "expand/collapse")),
	Bookmark: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bookmark")),
	Delete:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete bookmark")),
	Restart:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// hostKeys maps terminal key names onto the names page turns are bound to.
var hostKeys = map[string]string{
	"left":   gesture.KeyArrowLeft,
	"right":  gesture.KeyArrowRight,
	"pgup":   gesture.KeyPageUp,
	"pgdown": gesture.KeyPageDown,
}

func hostKey(s string) string {
	if k, ok := hostKeys[s]; ok {
		return k
	}
	return s
}

type sidebarTab int

const (
	tabChapters sidebarTab = iota
	tabBookmarks
)

const maxSidebarWidth = 36

type model struct {
	ctx   context.Context
	sess  *session
	title string
	help  help.Model

	sidebarOpen bool
	tab         sidebarTab
	cursor      int
	marks       []bookmark.Bookmark

	status   string
	statusOK bool
	quitting bool
	width    int
	height   int
}

type eventMsg view.Event

type eventsClosedMsg struct{}

type bookmarksMsg struct {
	marks  []bookmark.Bookmark
	status string
	err    error
}

func newModel(ctx context.Context, s *session, showTOC bool) model {
	return model{
		ctx:         ctx,
		sess:        s,
		title:       s.title(ctx),
		help:        help.New(),
		sidebarOpen: showTOC,
		width:       80,
		height:      24,
	}
}

func waitForEvent(events <-chan view.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m model) loadBookmarks() tea.Cmd {
	return func() tea.Msg {
		marks, err := m.sess.listBookmarks(m.ctx)
		return bookmarksMsg{marks: marks, err: err}
	}
}

func (m model) addBookmark() tea.Cmd {
	return func() tea.Msg {
		b, err := m.sess.addBookmark(m.ctx)
		if err != nil {
			return bookmarksMsg{err: err}
		}
		marks, err := m.sess.listBookmarks(m.ctx)
		return bookmarksMsg{marks: marks, status: "bookmarked " + b.Title, err: err}
	}
}

func (m model) deleteBookmark(id int64) tea.Cmd {
	return func() tea.Msg {
		if err := m.sess.deleteBookmark(m.ctx, id); err != nil {
			return bookmarksMsg{err: err}
		}
		marks, err := m.sess.listBookmarks(m.ctx)
		return bookmarksMsg{marks: marks, status: "bookmark deleted", err: err}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.sess.events), m.loadBookmarks())
}

func (m model) sidebarWidth() int {
	return min(maxSidebarWidth, m.width/3)
}

// contentRect is where page text is drawn, in terminal cells.
func (m model) contentRect() frame.Rect {
	left := 0
	if m.sidebarOpen {
		left = m.sidebarWidth() + 1
	}
	return frame.Rect{
		Left:   float64(left),
		Top:    1,
		Width:  float64(max(1, m.width-left)),
		Height: float64(max(1, m.height-2)),
	}
}

func (m model) setSidebar(open bool) model {
	m.sidebarOpen = open
	if open {
		m.cursor = m.activeRow()
	}
	m.sess.manager.SetBounds(m.contentRect())
	return m
}

func (m model) activeRow() int {
	if m.tab != tabChapters {
		return 0
	}
	for i, r := range m.sess.manager.SidebarRows() {
		if r.Active {
			return i
		}
	}
	return 0
}

func (m model) rowCount() int {
	if m.tab == tabBookmarks {
		return len(m.marks)
	}
	return len(m.sess.manager.SidebarRows())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.sess.manager.SetBounds(m.contentRect())
		return m, nil

	case tea.MouseMsg:
		return m.mouse(msg)

	case tea.KeyMsg:
		return m.key(msg)

	case eventMsg:
		switch msg.Type {
		case view.EventRelocate:
			m.sess.remember(msg.Location)
		case view.EventMiddleTap:
			m = m.setSidebar(!m.sidebarOpen)
		case view.EventError:
			m.status, m.statusOK = msg.Err.Error(), false
		}
		return m, waitForEvent(m.sess.events)

	case eventsClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case bookmarksMsg:
		if msg.err != nil {
			m.status, m.statusOK = msg.err.Error(), false
			return m, nil
		}
		m.marks = msg.marks
		m.status, m.statusOK = msg.status, true
		if m.tab == tabBookmarks {
			m.cursor = min(m.cursor, max(0, len(m.marks)-1))
		}
		return m, nil
	}
	return m, nil
}

func (m model) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, keys.Prev), key.Matches(msg, keys.Next):
		m.sess.manager.Key(hostKey(msg.String()))
		return m, nil

	case key.Matches(msg, keys.Sidebar):
		return m.setSidebar(!m.sidebarOpen), nil

	case key.Matches(msg, keys.Bookmark):
		return m, m.addBookmark()

	case key.Matches(msg, keys.Restart):
		if err := m.sess.restart(m.ctx); err != nil {
			m.status, m.statusOK = err.Error(), false
		}
		return m, nil

	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	if !m.sidebarOpen {
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Tab):
		if m.tab == tabChapters {
			m.tab = tabBookmarks
		} else {
			m.tab = tabChapters
		}
		m.cursor = m.activeRow()
	case key.Matches(msg, keys.Up):
		m.cursor = max(0, m.cursor-1)
	case key.Matches(msg, keys.Down):
		m.cursor = min(max(0, m.rowCount()-1), m.cursor+1)
	case key.Matches(msg, keys.Select):
		return m.selectRow()
	case key.Matches(msg, keys.Expand):
		if rows := m.sess.manager.SidebarRows(); m.tab == tabChapters && m.cursor < len(rows) && rows[m.cursor].Node.IsBranch() {
			m.sess.manager.ToggleChapter(rows[m.cursor].Node.Href)
		}
	case key.Matches(msg, keys.Delete):
		if m.tab == tabBookmarks && m.cursor < len(m.marks) {
			return m, m.deleteBookmark(m.marks[m.cursor].ID)
		}
	}
	return m, nil
}

// selectRow jumps to the row under the cursor and closes the sidebar.
func (m model) selectRow() (tea.Model, tea.Cmd) {
	var locator string
	switch m.tab {
	case tabChapters:
		rows := m.sess.manager.SidebarRows()
		if m.cursor >= len(rows) {
			return m, nil
		}
		locator = rows[m.cursor].Node.Href
	case tabBookmarks:
		if m.cursor >= len(m.marks) {
			return m, nil
		}
		locator = m.marks[m.cursor].CFI
	}
	if err := m.sess.manager.GoTo(m.ctx, surface.Locator(locator)); err != nil {
		m.status, m.statusOK = err.Error(), false
		return m, nil
	}
	return m.setSidebar(false), nil
}

func (m model) mouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.sidebarOpen && msg.X < m.sidebarWidth() {
		// Row 0 is the header, row 1 the tab bar.
		row := m.scrollOffset() + msg.Y - 2
		if msg.Action == tea.MouseActionRelease && row >= 0 && row < m.rowCount() {
			m.cursor = row
			return m.selectRow()
		}
		return m, nil
	}

	x, y := float64(msg.X), float64(msg.Y)
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft {
			m.sess.manager.Pointer(frame.PointerDown, x, y)
		}
	case tea.MouseActionRelease:
		m.sess.manager.Pointer(frame.PointerClick, x, y)
	}
	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	header := titleStyle.Render(truncate(m.title, m.width))
	body := m.pageView()
	if m.sidebarOpen {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), body)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.footerView())
}

func (m model) pageView() string {
	r := m.contentRect()
	w, h := int(r.Width), int(r.Height)
	style := textStyle.Width(w).Height(h).MaxHeight(h)

	rend := m.sess.manager.Renderer()
	if rend == nil {
		return style.Render("No book open.")
	}
	page, ok := rend.Page()
	if !ok {
		return style.Render("Loading...")
	}
	return style.Render(page.Text)
}

func (m model) scrollOffset() int {
	visible := max(1, m.height-3)
	return max(0, m.cursor-visible+1)
}

func (m model) sidebarView() string {
	w := m.sidebarWidth()
	h := max(1, m.height-2)

	chapters, marks := tabStyle, tabStyle
	if m.tab == tabChapters {
		chapters = activeTabStyle
	} else {
		marks = activeTabStyle
	}
	lines := []string{chapters.Render("Contents") + marks.Render("Bookmarks")}

	var items []string
	switch m.tab {
	case tabChapters:
		for _, r := range m.sess.manager.SidebarRows() {
			items = append(items, rowLabel(r))
		}
		if len(items) == 0 {
			items = append(items, "(no contents)")
		}
	case tabBookmarks:
		for _, b := range m.marks {
			items = append(items, b.Title)
		}
		if len(items) == 0 {
			items = append(items, "(no bookmarks, press b)")
		}
	}

	off := m.scrollOffset()
	rows := m.sess.manager.SidebarRows()
	for i := off; i < len(items) && len(lines) < h; i++ {
		line := truncate(items[i], w)
		switch {
		case i == m.cursor:
			line = cursorStyle.Render(line)
		case m.tab == tabChapters && i < len(rows) && rows[i].Active:
			line = activeStyle.Render(line)
		}
		lines = append(lines, line)
	}

	return sidebarStyle.Width(w).Height(h).MaxHeight(h).Render(strings.Join(lines, "\n"))
}

func rowLabel(r toc.Row) string {
	marker := "  "
	if r.Node.IsBranch() {
		marker = "▸ "
		if r.Expanded {
			marker = "▾ "
		}
	}
	return strings.Repeat("  ", r.Depth) + marker + r.Node.Label
}

func (m model) footerView() string {
	var parts []string
	if loc := m.sess.manager.Location(); loc != nil {
		if r := m.sess.manager.Renderer(); r != nil {
			if page, ok := r.Page(); ok {
				parts = append(parts, fmt.Sprintf("%s  %d/%d", page.Title, page.Index+1, page.Count))
			}
		}
		parts = append(parts, fmt.Sprintf("%d%%", int(loc.Fraction*100+0.5)))
	}
	if m.status != "" {
		if m.statusOK {
			parts = append(parts, m.status)
		} else {
			parts = append(parts, errorStyle.Render(m.status))
		}
	}
	status := statusStyle.Render(strings.Join(parts, " | "))
	return status + "  " + m.help.View(keys)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

func runTUI(ctx context.Context, s *session, opts options) error {
	p := tea.NewProgram(newModel(ctx, s, opts.showTOC),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

func main() {
	root := newRootCmd(frontEnd{
		name:  "leaf",
		short: "Terminal EPUB and Markdown reader",
		long: `leaf pages through EPUB and Markdown books in the terminal.
Click the left or right third of the page to turn it, the middle to open
the contents; double-click and long presses are left alone.`,
		logOutput: func(cfg *config.Config) (io.WriteCloser, error) {
			return logFile(cfg)
		},
		run: runTUI,
	})
	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
