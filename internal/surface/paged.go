package surface

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/metcalfc/leaf/internal/frame"
	"github.com/metcalfc/leaf/internal/logging"
)

// DefaultPageWords is the page size used when Options leave it unset.
const DefaultPageWords = 250

// Options configures a Paged surface.
type Options struct {
	PageWords int
	Buffer    int
}

// Paged lays every section out into fixed word-count pages and shows one
// section's content document at a time.
type Paged struct {
	log       zerolog.Logger
	pageWords int
	events    chan Event

	mu       sync.Mutex
	closed   bool
	opened   int
	book     *Book
	sections []Section
	pages    []int
	section  int
	page     int
	bounds   frame.Rect
	docs     map[int]*frame.Doc
}

// NewPaged creates a surface with no book open.
func NewPaged(ctx context.Context, opts Options) *Paged {
	if opts.PageWords <= 0 {
		opts.PageWords = DefaultPageWords
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}
	return &Paged{
		log:       logging.Component(ctx, "surface"),
		pageWords: opts.PageWords,
		events:    make(chan Event, opts.Buffer),
		docs:      make(map[int]*frame.Doc),
	}
}

// Open parses f with the registered format for it and shows its first
// section. A failed open leaves the previous book in place.
func (p *Paged) Open(ctx context.Context, f File) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	format, err := Lookup(f)
	if err != nil {
		return err
	}
	book, sections, err := format.Parse(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", format.Name(), err)
	}
	if len(sections) == 0 {
		return fmt.Errorf("%s has no sections", f.Name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	p.opened++
	p.book = book
	p.sections = sections
	p.pages = make([]int, len(sections))
	for i, s := range sections {
		p.pages[i] = pageCount(len(s.Words), p.pageWords)
	}
	p.docs = make(map[int]*frame.Doc)
	p.section, p.page = -1, 0

	p.log.Info().
		Str("format", format.Name()).
		Str("title", book.Metadata.Title).
		Int("sections", len(sections)).
		Msg("opened book")

	p.show(0, 0)
	return nil
}

func pageCount(words, per int) int {
	if words == 0 {
		return 1
	}
	return (words + per - 1) / per
}

// show moves to (section, page), emitting load when the section changes and
// relocate always. Callers hold mu.
func (p *Paged) show(section, page int) {
	if section != p.section {
		p.section = section
		p.emit(Event{Type: EventLoad, Section: section, Document: p.doc(section)})
	}
	p.page = page
	loc := p.location()
	p.emit(Event{Type: EventRelocate, Section: section, Location: &loc})
}

// doc returns the cached content document for a section.
func (p *Paged) doc(section int) *frame.Doc {
	if d, ok := p.docs[section]; ok {
		return d
	}
	id := "book" + strconv.Itoa(p.opened) + "-section" + strconv.Itoa(section)
	d := frame.NewDoc(id, p.bounds)
	p.docs[section] = d
	return d
}

func (p *Paged) emit(ev Event) {
	if p.closed {
		return
	}
	select {
	case p.events <- ev:
	default:
		p.log.Warn().Str("type", string(ev.Type)).Msg("event channel full, dropping event")
	}
}

func (p *Paged) location() Location {
	s := p.sections[p.section]
	loc := Location{
		Section: p.section,
		Page:    p.page,
		Pages:   p.pages[p.section],
		Href:    s.Href,
		Locator: s.Href + "#page=" + strconv.Itoa(p.page+1),
		TOCHref: tocHrefFor(p.book.TOC, s.Href),
	}
	if loc.TOCHref == "" {
		loc.TOCHref = s.Href
	}
	total, before := 0, 0
	for i, n := range p.pages {
		if i < p.section {
			before += n
		}
		total += n
	}
	if total > 1 {
		loc.Fraction = float64(before+p.page) / float64(total-1)
	}
	return loc
}

func docPart(href string) string {
	doc, _, _ := strings.Cut(href, "#")
	return strings.TrimPrefix(doc, "/")
}

func tocHrefFor(items []TOCItem, href string) string {
	want := docPart(href)
	for _, it := range items {
		if docPart(it.Href) == want {
			return it.Href
		}
		if h := tocHrefFor(it.Subitems, href); h != "" {
			return h
		}
	}
	return ""
}

// Next turns one page forward, crossing into the next section at its end.
func (p *Paged) Next() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.book == nil || p.closed {
		return
	}
	switch {
	case p.page < p.pages[p.section]-1:
		p.show(p.section, p.page+1)
	case p.section < len(p.sections)-1:
		p.show(p.section+1, 0)
	}
}

// Prev turns one page back, landing on the last page of the previous
// section at a section start.
func (p *Paged) Prev() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.book == nil || p.closed {
		return
	}
	switch {
	case p.page > 0:
		p.show(p.section, p.page-1)
	case p.section > 0:
		p.show(p.section-1, p.pages[p.section-1]-1)
	}
}

// GoTo navigates to a locator or section index.
func (p *Paged) GoTo(ctx context.Context, target Target) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.book == nil || p.closed {
		return ErrNotOpen
	}
	if target == nil {
		target = SectionIndex(0)
	}

	switch t := target.(type) {
	case SectionIndex:
		if int(t) < 0 || int(t) >= len(p.sections) {
			return fmt.Errorf("%w: %d", ErrSectionRange, int(t))
		}
		p.show(int(t), 0)
	case Locator:
		section, page, ok := p.resolve(string(t))
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownLocator, string(t))
		}
		p.show(section, page)
	default:
		return fmt.Errorf("unsupported target %T", target)
	}
	return nil
}

// resolve maps "<href>#page=<n>" to a section and zero-based page. Other
// fragments resolve to the section's first page.
func (p *Paged) resolve(locator string) (int, int, bool) {
	doc, frag, _ := strings.Cut(locator, "#")
	doc = strings.TrimPrefix(doc, "/")
	for i, s := range p.sections {
		if docPart(s.Href) != doc {
			continue
		}
		page := 0
		if v, ok := strings.CutPrefix(frag, "page="); ok {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				page = min(n-1, p.pages[i]-1)
			}
		}
		return i, page, true
	}
	return 0, 0, false
}

// GoToFraction jumps to the page at fraction of the whole book.
func (p *Paged) GoToFraction(ctx context.Context, fraction float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.book == nil || p.closed {
		return ErrNotOpen
	}

	fraction = max(0, min(1, fraction))
	total := 0
	for _, n := range p.pages {
		total += n
	}
	target := int(fraction*float64(total-1) + 0.5)
	for i, n := range p.pages {
		if target < n {
			p.show(i, target)
			return nil
		}
		target -= n
	}
	last := len(p.pages) - 1
	p.show(last, p.pages[last]-1)
	return nil
}

// Book returns the open book, or nil.
func (p *Paged) Book() *Book {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.book
}

// SectionFractions returns where each section starts as a fraction of the
// book, followed by 1.
func (p *Paged) SectionFractions() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.book == nil {
		return nil
	}
	total := 0
	for _, n := range p.pages {
		total += n
	}
	out := make([]float64, 0, len(p.pages)+1)
	acc := 0
	for _, n := range p.pages {
		out = append(out, float64(acc)/float64(total))
		acc += n
	}
	return append(out, 1)
}

func (p *Paged) Renderer() Renderer { return pagedRenderer{p} }

func (p *Paged) Events() <-chan Event { return p.events }

// SetBounds resizes the view. Every cached document fills it.
func (p *Paged) SetBounds(r frame.Rect) {
	p.mu.Lock()
	p.bounds = r
	docs := make([]*frame.Doc, 0, len(p.docs))
	for _, d := range p.docs {
		docs = append(docs, d)
	}
	p.mu.Unlock()

	for _, d := range docs {
		d.SetFrameRect(r)
	}
}

// visible returns the document on screen.
func (p *Paged) visible() *frame.Doc {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.book == nil || p.closed {
		return nil
	}
	return p.docs[p.section]
}

// Pointer delivers a viewport-coordinate pointer event to the visible
// document when it falls inside its frame.
func (p *Paged) Pointer(kind frame.PointerKind, x, y float64) {
	d := p.visible()
	if d == nil {
		return
	}
	r := d.FrameRect()
	if !r.Contains(x, y) {
		return
	}
	d.DispatchPointer(frame.PointerEvent{Kind: kind, X: x - r.Left, Y: y - r.Top, Target: "P"})
}

// Key delivers a key press to the visible document.
func (p *Paged) Key(key string) {
	if d := p.visible(); d != nil {
		d.DispatchKey(frame.KeyEvent{Key: key})
	}
}

// Close stops the surface and closes its event channel.
func (p *Paged) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.events)
	return nil
}

type pagedRenderer struct{ p *Paged }

func (r pagedRenderer) Page() (Page, bool) {
	p := r.p
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.book == nil || p.section < 0 {
		return Page{}, false
	}
	s := p.sections[p.section]
	start := p.page * p.pageWords
	end := min(start+p.pageWords, len(s.Words))
	var text string
	if start < end {
		text = strings.Join(s.Words[start:end], " ")
	}
	return Page{
		Section: p.section,
		Index:   p.page,
		Count:   p.pages[p.section],
		Title:   s.Title,
		Href:    s.Href,
		Text:    text,
	}, true
}

func (r pagedRenderer) Bounds() frame.Rect {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	return r.p.bounds
}
