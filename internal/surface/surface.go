// Package surface is the rendering surface the reader drives: it opens a
// book, lays its sections out into pages, shows one section at a time in its
// own content document and reports what it is doing on an event channel.
package surface

import (
	"context"
	"errors"

	"github.com/metcalfc/leaf/internal/frame"
)

var (
	// ErrNotOpen is returned by navigation before a book was opened.
	ErrNotOpen = errors.New("no book open")
	// ErrClosed is returned by Open after Close.
	ErrClosed = errors.New("surface closed")
	// ErrUnknownLocator is returned when a locator names no section.
	ErrUnknownLocator = errors.New("unknown locator")
	// ErrSectionRange is returned for a section index outside the book.
	ErrSectionRange = errors.New("section index out of range")
	// ErrNoCover is returned by Book.Cover when the book has no cover image.
	ErrNoCover = errors.New("book has no cover")
)

// Surface is what the view manager needs from a renderer.
type Surface interface {
	Open(ctx context.Context, f File) error
	Prev()
	Next()
	// GoTo navigates to target. A nil target means the first section.
	GoTo(ctx context.Context, target Target) error
	GoToFraction(ctx context.Context, fraction float64) error
	// Book is nil until a book was opened.
	Book() *Book
	SectionFractions() []float64
	Renderer() Renderer
	Events() <-chan Event
	SetBounds(r frame.Rect)
	// Pointer and Key inject raw input, in viewport coordinates, into the
	// visible content document.
	Pointer(kind frame.PointerKind, x, y float64)
	Key(key string)
	Close() error
}

// File is a book's bytes plus enough to pick a format for them.
type File struct {
	Name      string
	MediaType string
	Data      []byte
}

// Target is a navigation destination: a Locator or a SectionIndex.
type Target interface {
	isTarget()
}

// Locator addresses a position by href, optionally "#page=<n>".
type Locator string

// SectionIndex addresses a section by its spine position.
type SectionIndex int

func (Locator) isTarget()      {}
func (SectionIndex) isTarget() {}

// EventType tags surface events.
type EventType string

const (
	EventLoad     EventType = "load"
	EventRelocate EventType = "relocate"
	EventError    EventType = "error"
)

// Event is emitted on the surface's event channel. Load events carry the
// content document that was just shown; relocate events carry the location.
type Event struct {
	Type     EventType
	Section  int
	Document frame.Document
	Location *Location
	Err      error
}

// Location is the reading position reported by relocate events.
type Location struct {
	Section  int     `json:"section"`
	Page     int     `json:"page"`
	Pages    int     `json:"pages"`
	Href     string  `json:"href"`
	Locator  string  `json:"locator"`
	Fraction float64 `json:"fraction"`
	// TOCHref is the href of the table-of-contents entry for this section,
	// or the section href when no entry names it.
	TOCHref string `json:"tocHref"`
}

// TOCItem is one entry of a book's native table of contents.
type TOCItem struct {
	Label    string
	Href     string
	Subitems []TOCItem
}

// Metadata describes a book.
type Metadata struct {
	Title       string
	Authors     []string
	Language    string
	Publisher   string
	Description string
	Identifier  string
	Extra       map[string]string
}

// Book is an opened book.
type Book struct {
	TOC      []TOCItem
	Metadata Metadata

	cover func() ([]byte, string, error)
}

// NewBook assembles a Book. cover may be nil.
func NewBook(toc []TOCItem, md Metadata, cover func() ([]byte, string, error)) *Book {
	return &Book{TOC: toc, Metadata: md, cover: cover}
}

// Cover returns the cover image bytes and media type.
func (b *Book) Cover() ([]byte, string, error) {
	if b == nil || b.cover == nil {
		return nil, "", ErrNoCover
	}
	return b.cover()
}

// Page is the content currently laid out in the view.
type Page struct {
	Section int
	Index   int
	Count   int
	Title   string
	Href    string
	Text    string
}

// Renderer exposes what is on screen so front-ends can draw it.
type Renderer interface {
	Page() (Page, bool)
	Bounds() frame.Rect
}
