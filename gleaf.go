//go:build gui

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"github.com/metcalfc/leaf/internal/bookmark"
	"github.com/metcalfc/leaf/internal/config"
	"github.com/metcalfc/leaf/internal/frame"
	"github.com/metcalfc/leaf/internal/gesture"
	"github.com/metcalfc/leaf/internal/surface"
	"github.com/metcalfc/leaf/internal/toc"
	"github.com/metcalfc/leaf/internal/view"
)

// tapArea hosts the page and forwards raw mouse presses and releases, so
// the gesture layer sees the same events a terminal click produces.
type tapArea struct {
	widget.BaseWidget
	content  fyne.CanvasObject
	onDown   func(x, y float32)
	onUp     func(x, y float32)
	onResize func(fyne.Size)
}

var _ desktop.Mouseable = (*tapArea)(nil)

func newTapArea(content fyne.CanvasObject) *tapArea {
	t := &tapArea{content: content}
	t.ExtendBaseWidget(t)
	return t
}

func (t *tapArea) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(t.content)
}

func (t *tapArea) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button == desktop.MouseButtonPrimary && t.onDown != nil {
		t.onDown(ev.Position.X, ev.Position.Y)
	}
}

func (t *tapArea) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button == desktop.MouseButtonPrimary && t.onUp != nil {
		t.onUp(ev.Position.X, ev.Position.Y)
	}
}

func (t *tapArea) Resize(size fyne.Size) {
	t.BaseWidget.Resize(size)
	if t.onResize != nil {
		t.onResize(size)
	}
}

// chapterIndex resolves tree node ids (chapter hrefs) to chapters.
type chapterIndex struct {
	roots []toc.Node
	byID  map[string]toc.Node
}

func newChapterIndex(nodes []toc.Node) *chapterIndex {
	idx := &chapterIndex{roots: nodes, byID: make(map[string]toc.Node)}
	var walk func([]toc.Node)
	walk = func(ns []toc.Node) {
		for _, n := range ns {
			if _, dup := idx.byID[n.Href]; !dup {
				idx.byID[n.Href] = n
			}
			walk(n.Children)
		}
	}
	walk(nodes)
	return idx
}

func (idx *chapterIndex) children(id widget.TreeNodeID) []widget.TreeNodeID {
	nodes := idx.roots
	if id != "" {
		nodes = idx.byID[id].Children
	}
	ids := make([]widget.TreeNodeID, len(nodes))
	for i, n := range nodes {
		ids[i] = n.Href
	}
	return ids
}

func (idx *chapterIndex) isBranch(id widget.TreeNodeID) bool {
	if id == "" {
		return true
	}
	return idx.byID[id].IsBranch()
}

type gui struct {
	ctx  context.Context
	sess *session
	app  fyne.App
	win  fyne.Window

	split    *container.Split
	page     *widget.Label
	status   *widget.Label
	tree     *widget.Tree
	marks    []bookmark.Bookmark
	markList *widget.List
	chapters *chapterIndex
	active   string
	syncing  bool
}

func runGUI(ctx context.Context, s *session, opts options) error {
	g := &gui{
		ctx:      ctx,
		sess:     s,
		app:      app.New(),
		chapters: newChapterIndex(s.manager.Chapters()),
	}
	g.win = g.app.NewWindow("gleaf - " + s.title(ctx))

	g.page = widget.NewLabel("")
	g.page.Wrapping = fyne.TextWrapWord
	g.status = widget.NewLabel("")
	g.status.Alignment = fyne.TextAlignCenter

	tap := newTapArea(container.NewPadded(g.page))
	tap.onDown = func(x, y float32) { s.manager.Pointer(frame.PointerDown, float64(x), float64(y)) }
	tap.onUp = func(x, y float32) { s.manager.Pointer(frame.PointerClick, float64(x), float64(y)) }
	tap.onResize = func(size fyne.Size) {
		s.manager.SetBounds(frame.Rect{Width: float64(size.Width), Height: float64(size.Height)})
	}

	tabs := container.NewAppTabs(
		container.NewTabItem("Contents", g.buildTree()),
		container.NewTabItem("Bookmarks", g.buildBookmarks()),
		container.NewTabItem("Book", g.buildInfo()),
	)
	reading := container.NewBorder(nil, g.status, nil, nil, tap)
	g.split = container.NewHSplit(tabs, reading)
	g.split.Offset = 0.3
	if !opts.showTOC {
		tabs.Hide()
	}

	g.win.SetContent(g.split)
	g.win.Resize(fyne.NewSize(900, 650))
	g.win.Canvas().SetOnTypedKey(g.typedKey)

	go func() {
		for ev := range s.events {
			fyne.Do(func() { g.handle(ev) })
		}
	}()
	go func() {
		<-ctx.Done()
		fyne.Do(g.app.Quit)
	}()

	g.refresh()
	g.loadBookmarks()
	g.win.ShowAndRun()
	return nil
}

func (g *gui) buildTree() fyne.CanvasObject {
	g.tree = widget.NewTree(
		g.chapters.children,
		g.chapters.isBranch,
		func(branch bool) fyne.CanvasObject {
			return widget.NewLabel("Chapter")
		},
		func(id widget.TreeNodeID, branch bool, o fyne.CanvasObject) {
			label := o.(*widget.Label)
			label.TextStyle.Bold = id == g.active
			label.SetText(g.chapters.byID[id].Label)
		},
	)
	g.tree.OnSelected = func(id widget.TreeNodeID) {
		g.tree.UnselectAll()
		g.jump(id)
	}
	g.tree.OnBranchOpened = func(id widget.TreeNodeID) {
		if !g.syncing && !slices.Contains(g.sess.manager.ExpandedChapters(), id) {
			g.sess.manager.ToggleChapter(id)
		}
	}
	g.tree.OnBranchClosed = func(id widget.TreeNodeID) {
		if !g.syncing && slices.Contains(g.sess.manager.ExpandedChapters(), id) {
			g.sess.manager.ToggleChapter(id)
		}
	}
	if len(g.chapters.roots) == 0 {
		return widget.NewLabel("No contents")
	}
	return g.tree
}

func (g *gui) buildBookmarks() fyne.CanvasObject {
	g.markList = widget.NewList(
		func() int { return len(g.marks) },
		func() fyne.CanvasObject {
			return container.NewBorder(nil, nil, nil, widget.NewButton("✕", nil), widget.NewLabel("Bookmark"))
		},
		func(id widget.ListItemID, o fyne.CanvasObject) {
			row := o.(*fyne.Container)
			b := g.marks[id]
			row.Objects[0].(*widget.Label).SetText(b.Title)
			row.Objects[1].(*widget.Button).OnTapped = func() { g.deleteBookmark(b.ID) }
		},
	)
	g.markList.OnSelected = func(id widget.ListItemID) {
		g.markList.UnselectAll()
		if id < len(g.marks) {
			g.jump(g.marks[id].CFI)
		}
	}
	add := widget.NewButton("Bookmark this page", g.addBookmark)
	return container.NewBorder(nil, add, nil, nil, g.markList)
}

func (g *gui) buildInfo() fyne.CanvasObject {
	md := g.sess.manager.Metadata(g.ctx)
	var lines []string
	for _, k := range []string{"title", "authors", "publisher", "language", "identifier", "description"} {
		if v := md[k]; v != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", k, v))
		}
	}
	info := widget.NewLabel(strings.Join(lines, "\n"))
	info.Wrapping = fyne.TextWrapWord

	data, _, err := g.sess.manager.Cover(g.ctx)
	if err != nil {
		return container.NewVScroll(info)
	}
	img := canvas.NewImageFromReader(bytes.NewReader(data), "cover")
	img.FillMode = canvas.ImageFillContain
	img.SetMinSize(fyne.NewSize(160, 240))
	return container.NewVScroll(container.NewVBox(img, info))
}

func (g *gui) handle(ev view.Event) {
	switch ev.Type {
	case view.EventRelocate:
		g.sess.remember(ev.Location)
		g.refresh()
	case view.EventMiddleTap:
		g.toggleSidebar()
	case view.EventError:
		g.status.SetText("Error: " + ev.Err.Error())
	}
}

// refresh redraws the page and status and mirrors sidebar expansion onto
// the tree.
func (g *gui) refresh() {
	if r := g.sess.manager.Renderer(); r != nil {
		if page, ok := r.Page(); ok {
			g.page.SetText(page.Text)
			status := fmt.Sprintf("%s  %d/%d", page.Title, page.Index+1, page.Count)
			if loc := g.sess.manager.Location(); loc != nil {
				status += fmt.Sprintf("  |  %d%%", int(loc.Fraction*100+0.5))
			}
			g.status.SetText(status)
		}
	}

	g.active = ""
	for _, r := range g.sess.manager.SidebarRows() {
		if r.Active {
			g.active = r.Node.Href
		}
	}
	g.syncing = true
	for _, href := range g.sess.manager.ExpandedChapters() {
		g.tree.OpenBranch(href)
	}
	g.syncing = false
	g.tree.Refresh()
}

func (g *gui) toggleSidebar() {
	if g.split.Leading.Visible() {
		g.split.Leading.Hide()
	} else {
		g.split.Leading.Show()
	}
	g.split.Refresh()
}

// jump goes to locator and closes the sidebar.
func (g *gui) jump(locator string) {
	if err := g.sess.manager.GoTo(g.ctx, surface.Locator(locator)); err != nil {
		g.status.SetText("Error: " + err.Error())
		return
	}
	g.split.Leading.Hide()
	g.split.Refresh()
}

func (g *gui) loadBookmarks() {
	go func() {
		marks, err := g.sess.listBookmarks(g.ctx)
		fyne.Do(func() {
			if err != nil {
				g.status.SetText("Bookmarks: " + err.Error())
				return
			}
			g.marks = marks
			g.markList.Refresh()
		})
	}()
}

func (g *gui) addBookmark() {
	go func() {
		_, err := g.sess.addBookmark(g.ctx)
		if err != nil {
			fyne.Do(func() { g.status.SetText("Bookmark: " + err.Error()) })
			return
		}
		g.loadBookmarks()
	}()
}

func (g *gui) deleteBookmark(id int64) {
	go func() {
		if err := g.sess.deleteBookmark(g.ctx, id); err != nil {
			fyne.Do(func() { g.status.SetText("Bookmark: " + err.Error()) })
			return
		}
		g.loadBookmarks()
	}()
}

func (g *gui) typedKey(k *fyne.KeyEvent) {
	switch k.Name {
	case fyne.KeyLeft:
		g.sess.manager.Key(gesture.KeyArrowLeft)
	case fyne.KeyRight:
		g.sess.manager.Key(gesture.KeyArrowRight)
	case fyne.KeyPageUp:
		g.sess.manager.Key(gesture.KeyPageUp)
	case fyne.KeyPageDown:
		g.sess.manager.Key(gesture.KeyPageDown)
	case fyne.KeyT:
		g.toggleSidebar()
	case fyne.KeyB:
		g.addBookmark()
	case fyne.KeyR:
		if err := g.sess.restart(g.ctx); err != nil {
			g.status.SetText("Error: " + err.Error())
		}
	case fyne.KeyF:
		g.win.SetFullScreen(!g.win.FullScreen())
	case fyne.KeyQ:
		g.app.Quit()
	}
}

func main() {
	root := newRootCmd(frontEnd{
		name:  "gleaf",
		short: "Desktop EPUB and Markdown reader",
		logOutput: func(*config.Config) (io.WriteCloser, error) {
			return nopCloser{os.Stderr}, nil
		},
		run: runGUI,
	})
	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
